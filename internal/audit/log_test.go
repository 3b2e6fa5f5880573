package audit

import (
	"path/filepath"
	"testing"
)

func TestRecordAndRecent(t *testing.T) {
	logger := NewLogger(filepath.Join(t.TempDir(), "audit.sqlite"))

	if err := logger.Record("cli", "create_plan", "p-1", map[string]string{"name": "exp"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := logger.Record("cli", "stop", "p-1", nil); err != nil {
		t.Fatalf("record: %v", err)
	}

	events, err := logger.Recent(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Operation != "stop" {
		t.Fatalf("newest first: got %s, want stop", events[0].Operation)
	}
	if events[1].PlanID != "p-1" || events[1].Payload == "" {
		t.Fatalf("event missing fields: %+v", events[1])
	}
}

func TestNilLoggerDiscards(t *testing.T) {
	var logger *Logger
	if err := logger.Record("cli", "noop", "", nil); err != nil {
		t.Fatalf("nil logger should discard, got %v", err)
	}
	events, err := logger.Recent(5)
	if err != nil || events != nil {
		t.Fatalf("nil logger recent = (%v, %v), want (nil, nil)", events, err)
	}
}
