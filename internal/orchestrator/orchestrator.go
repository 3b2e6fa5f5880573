// Package orchestrator drives the experiment lifecycle: plan CRUD, manual
// start, significance evaluation, winner promotion, and the readiness guard.
// Each operation reads the current stored plan, mutates it in memory, and
// writes the whole object back; there is no cross-operation locking.
package orchestrator

import (
	"errors"
	"fmt"
	"time"

	"storelab/internal/audit"
	"storelab/internal/planstore"
	"storelab/internal/publisher"
	"storelab/internal/significance"
)

// ErrVariantNotFound is returned when a variant id does not resolve within
// its plan.
var ErrVariantNotFound = errors.New("variant not found")

// ErrInvalidTransition is returned when the lifecycle table denies an
// operation for the plan's current status.
var ErrInvalidTransition = errors.New("invalid status transition")

type operation string

const (
	opStart operation = "start"
	opStop  operation = "stop"
	opApply operation = "apply"
)

// transitions is the explicit lifecycle table: (current status, operation)
// -> next status. Absent entries are denied. applied -> applied stays open
// so an interrupted promotion can be retried.
var transitions = map[planstore.Status]map[operation]planstore.Status{
	planstore.StatusDraft: {
		opStart: planstore.StatusRunning,
		opStop:  planstore.StatusStopped,
	},
	planstore.StatusRunning: {
		opStart: planstore.StatusRunning,
		opStop:  planstore.StatusStopped,
		opApply: planstore.StatusApplied,
	},
	planstore.StatusStopped: {
		opStop:  planstore.StatusStopped,
		opApply: planstore.StatusApplied,
	},
	planstore.StatusApplied: {
		opApply: planstore.StatusApplied,
	},
}

// Orchestrator wires the plan store, the publisher collaborator, and the
// significance engine. Audit may be nil; Now defaults to time.Now.
type Orchestrator struct {
	Store  planstore.Store
	Editor publisher.Editor
	Engine *significance.Engine
	Audit  *audit.Logger
	Actor  string
	Now    func() time.Time
}

// New returns an Orchestrator with a production significance engine.
func New(store planstore.Store, editor publisher.Editor) *Orchestrator {
	return &Orchestrator{
		Store:  store,
		Editor: editor,
		Engine: significance.NewRandom(),
		Actor:  "storelab",
	}
}

func (o *Orchestrator) timestamp() time.Time {
	if o.Now != nil {
		return o.Now().UTC()
	}
	return time.Now().UTC()
}

func (o *Orchestrator) actor() string {
	if o.Actor == "" {
		return "storelab"
	}
	return o.Actor
}

func (o *Orchestrator) record(op, planID string, payload any) {
	// Audit failures never fail the operation itself.
	_ = o.Audit.Record(o.actor(), op, planID, payload)
}

// next resolves the transition table for the plan's current status.
func next(status planstore.Status, op operation) (planstore.Status, error) {
	if to, ok := transitions[status][op]; ok {
		return to, nil
	}
	return "", fmt.Errorf("%w: cannot %s a %s plan", ErrInvalidTransition, op, status)
}
