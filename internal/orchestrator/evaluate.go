package orchestrator

import (
	"fmt"

	"storelab/internal/planstore"
	"storelab/internal/significance"
)

// Metrics maps variant id to observed counts, as supplied by callers.
type Metrics map[string]planstore.VariantCount

// EvaluateResult pairs a plan with its freshly computed results.
type EvaluateResult struct {
	PlanID string            `json:"plan_id"`
	Result planstore.Results `json:"result"`
}

// ComputeSignificance evaluates the supplied per-variant metrics and
// persists the outcome as the plan's last_results. The plan's status is not
// changed, and the operation is allowed in any status.
//
// Metric keys must be variant ids of the plan; the plan's variant order
// fixes the baseline (first variant with metrics) and tie-breaking.
func (o *Orchestrator) ComputeSignificance(planID string, metrics Metrics, samples int) (*EvaluateResult, error) {
	plan, err := o.Store.Get(planID)
	if err != nil {
		return nil, err
	}

	counts, err := orderCounts(plan, metrics)
	if err != nil {
		return nil, err
	}

	engine := o.Engine
	if engine == nil {
		engine = significance.NewRandom()
	}
	bayes, err := engine.Evaluate(counts, samples)
	if err != nil {
		return nil, err
	}

	plan.LastResults = &planstore.Results{
		Metrics:        counts,
		Bayes:          bayes,
		Recommendation: significance.Recommendation(bayes, counts),
		EvaluatedAt:    o.timestamp(),
	}
	plan.UpdatedAt = plan.LastResults.EvaluatedAt
	if err := o.Store.Save(plan); err != nil {
		return nil, err
	}
	o.record("compute_significance", plan.PlanID, map[string]any{
		"winner":         bayes.Winner,
		"probability":    bayes.WinnerProbability,
		"recommendation": plan.LastResults.Recommendation,
	})

	return &EvaluateResult{PlanID: plan.PlanID, Result: *plan.LastResults}, nil
}

// orderCounts projects the metrics map onto the plan's variant order so the
// engine sees a deterministic baseline regardless of map iteration.
func orderCounts(plan *planstore.Plan, metrics Metrics) ([]planstore.VariantCount, error) {
	known := make(map[string]struct{}, len(plan.Variants))
	for _, v := range plan.Variants {
		known[v.VariantID] = struct{}{}
	}
	for id := range metrics {
		if _, ok := known[id]; !ok {
			return nil, fmt.Errorf("%w: metrics reference unknown variant %s",
				significance.ErrInvalidInput, id)
		}
	}

	var counts []planstore.VariantCount
	for _, v := range plan.Variants {
		m, ok := metrics[v.VariantID]
		if !ok {
			continue
		}
		m.VariantID = v.VariantID
		counts = append(counts, m)
	}
	return counts, nil
}
