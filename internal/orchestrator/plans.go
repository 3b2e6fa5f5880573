package orchestrator

import (
	"fmt"

	"github.com/google/uuid"

	"storelab/internal/planstore"
)

// VariantInput describes one candidate content set at plan creation.
type VariantInput struct {
	Label            string            `json:"label"`
	Title            *string           `json:"title,omitempty"`
	ShortDescription *string           `json:"short_description,omitempty"`
	FullDescription  *string           `json:"full_description,omitempty"`
	Video            *string           `json:"video,omitempty"`
	Assets           []planstore.Asset `json:"assets,omitempty"`
}

// CreatePlanInput carries the caller-supplied plan fields.
type CreatePlanInput struct {
	PackageName       string                   `json:"package_name"`
	Language          string                   `json:"language"`
	Name              string                   `json:"name"`
	Hypothesis        string                   `json:"hypothesis,omitempty"`
	Metric            string                   `json:"metric"`
	TrafficProportion float64                  `json:"traffic_proportion"`
	Type              planstore.ExperimentType `json:"type"`
	Variants          []VariantInput           `json:"variants"`
	Notes             string                   `json:"notes,omitempty"`
}

// CreatePlan persists a new plan in draft status, assigning plan and variant
// ids. Traffic proportion is clamped into [0.1, 1.0]; a zero value means
// unset and defaults to 1.0.
func (o *Orchestrator) CreatePlan(input CreatePlanInput) (*planstore.Plan, error) {
	if input.PackageName == "" {
		return nil, fmt.Errorf("package_name is required")
	}
	if input.Language == "" {
		return nil, fmt.Errorf("language is required")
	}
	if input.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	for i, v := range input.Variants {
		if v.Label == "" {
			return nil, fmt.Errorf("variants[%d]: label is required", i)
		}
	}

	now := o.timestamp()
	plan := &planstore.Plan{
		PackageName:       input.PackageName,
		Language:          input.Language,
		Name:              input.Name,
		Hypothesis:        input.Hypothesis,
		Metric:            input.Metric,
		TrafficProportion: clampTraffic(input.TrafficProportion),
		Type:              input.Type,
		Status:            planstore.StatusDraft,
		Notes:             input.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	for _, v := range input.Variants {
		plan.Variants = append(plan.Variants, planstore.Variant{
			VariantID:        uuid.NewString(),
			Label:            v.Label,
			Title:            v.Title,
			ShortDescription: v.ShortDescription,
			FullDescription:  v.FullDescription,
			Video:            v.Video,
			Assets:           v.Assets,
		})
	}

	if err := o.Store.Create(plan); err != nil {
		return nil, err
	}
	o.record("create_plan", plan.PlanID, map[string]any{
		"package_name": plan.PackageName,
		"language":     plan.Language,
		"name":         plan.Name,
		"variants":     len(plan.Variants),
	})
	return plan, nil
}

// GetPlan returns one stored plan.
func (o *Orchestrator) GetPlan(planID string) (*planstore.Plan, error) {
	return o.Store.Get(planID)
}

// ListPlans returns every stored plan.
func (o *Orchestrator) ListPlans() ([]*planstore.Plan, error) {
	return o.Store.List()
}

// DeletePlan removes a plan and reports whether a deletion occurred.
func (o *Orchestrator) DeletePlan(planID string) (bool, error) {
	deleted, err := o.Store.Delete(planID)
	if err != nil {
		return false, err
	}
	if deleted {
		o.record("delete_plan", planID, nil)
	}
	return deleted, nil
}

// clampTraffic keeps the proportion within what the console accepts. Values
// outside [0.1, 1.0] are adjusted, not rejected; zero means unset.
func clampTraffic(v float64) float64 {
	if v == 0 {
		v = 1.0
	}
	if v < 0.1 {
		return 0.1
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}
