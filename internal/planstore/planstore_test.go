package planstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func ptr(s string) *string { return &s }

func samplePlan() *Plan {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return &Plan{
		PackageName:       "com.example.app",
		Language:          "en-US",
		Name:              "hero screenshot test",
		Metric:            "cvr",
		TrafficProportion: 0.5,
		Type:              TypeMixed,
		Status:            StatusDraft,
		CreatedAt:         now,
		UpdatedAt:         now,
		Variants: []Variant{
			{
				VariantID: "v-1",
				Label:     "control",
				Title:     ptr("My App"),
			},
			{
				VariantID: "v-2",
				Label:     "bold claim",
				Title:     ptr("My App - Plan Faster"),
				Assets:    []Asset{{ImageType: "phoneScreenshots", FilePath: "shots/hero.png"}},
			},
		},
	}
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	return map[string]Store{
		"file": NewFileStore(t.TempDir()),
		"mem":  NewMemStore(),
	}
}

func TestCreateAssignsIDAndRoundTrips(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			plan := samplePlan()
			if err := store.Create(plan); err != nil {
				t.Fatalf("create: %v", err)
			}
			if plan.PlanID == "" {
				t.Fatal("create did not assign a plan id")
			}

			got, err := store.Get(plan.PlanID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if diff := cmp.Diff(plan, got); diff != "" {
				t.Fatalf("round-trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGetMissingIsNotFound(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get("nope")
			if !errors.Is(err, ErrNotFound) {
				t.Fatalf("err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestDeleteReportsWhetherRemoved(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			plan := samplePlan()
			if err := store.Create(plan); err != nil {
				t.Fatalf("create: %v", err)
			}

			deleted, err := store.Delete(plan.PlanID)
			if err != nil || !deleted {
				t.Fatalf("delete = (%v, %v), want (true, nil)", deleted, err)
			}
			deleted, err = store.Delete(plan.PlanID)
			if err != nil || deleted {
				t.Fatalf("second delete = (%v, %v), want (false, nil)", deleted, err)
			}
		})
	}
}

func TestListReturnsAllPlans(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 3; i++ {
				if err := store.Create(samplePlan()); err != nil {
					t.Fatalf("create: %v", err)
				}
			}
			plans, err := store.List()
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(plans) != 3 {
				t.Fatalf("list returned %d plans, want 3", len(plans))
			}
		})
	}
}

func TestSaveOverwritesWholeObject(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			plan := samplePlan()
			if err := store.Create(plan); err != nil {
				t.Fatalf("create: %v", err)
			}
			plan.Status = StatusRunning
			plan.Notes = "started"
			if err := store.Save(plan); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err := store.Get(plan.PlanID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.Status != StatusRunning || got.Notes != "started" {
				t.Fatalf("saved plan = %+v, want running/started", got)
			}
		})
	}
}

func TestFileStoreCorruptRecordIsNotFound(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := store.Get("bad")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFileStoreIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("notes"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := store.Create(samplePlan()); err != nil {
		t.Fatalf("create: %v", err)
	}
	plans, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(plans) != 1 {
		t.Fatalf("list returned %d plans, want 1", len(plans))
	}
}
