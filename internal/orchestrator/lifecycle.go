package orchestrator

import (
	"fmt"

	"storelab/internal/planstore"
)

// StartResult mirrors what a human needs to start the experiment in the
// console: the console itself randomizes traffic, storelab only orchestrates
// content and later promotion.
type StartResult struct {
	PlanID       string              `json:"plan_id"`
	Status       planstore.Status    `json:"status"`
	Instructions []string            `json:"instructions"`
	Variants     []planstore.Variant `json:"variants"`
	Note         string              `json:"note"`
}

// StartManual marks the plan running and returns console setup instructions.
// Restarting a running plan is idempotent; stopped and applied plans are
// denied by the transition table.
func (o *Orchestrator) StartManual(planID string) (*StartResult, error) {
	plan, err := o.Store.Get(planID)
	if err != nil {
		return nil, err
	}
	to, err := next(plan.Status, opStart)
	if err != nil {
		return nil, err
	}

	plan.Status = to
	plan.UpdatedAt = o.timestamp()
	if err := o.Store.Save(plan); err != nil {
		return nil, err
	}
	o.record("start_manual", plan.PlanID, nil)

	steps := []string{
		"Open the publisher console and select the app",
		"Store presence -> Store listing -> Experiments",
		fmt.Sprintf("Create new experiment: %s | Locale: %s | Traffic: %d%%",
			plan.Type, plan.Language, int(plan.TrafficProportion*100)),
		fmt.Sprintf("Name: %s", plan.Name),
		"Add variants and paste the following fields per variant:",
	}

	return &StartResult{
		PlanID:       plan.PlanID,
		Status:       plan.Status,
		Instructions: steps,
		Variants:     plan.Variants,
		Note:         "Once the console declares a winner, run apply to promote it.",
	}, nil
}

// StopResult reports the plan's status after a stop.
type StopResult struct {
	PlanID string           `json:"plan_id"`
	Status planstore.Status `json:"status"`
}

// Stop marks the plan stopped without touching listing content. Stopping an
// already-stopped plan is idempotent.
func (o *Orchestrator) Stop(planID string) (*StopResult, error) {
	plan, err := o.Store.Get(planID)
	if err != nil {
		return nil, err
	}
	to, err := next(plan.Status, opStop)
	if err != nil {
		return nil, err
	}

	plan.Status = to
	plan.UpdatedAt = o.timestamp()
	if err := o.Store.Save(plan); err != nil {
		return nil, err
	}
	o.record("stop", plan.PlanID, nil)

	return &StopResult{PlanID: plan.PlanID, Status: plan.Status}, nil
}
