package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Preview shows what a promotion would change on the live listing, without
// mutating anything.
type Preview struct {
	PlanID        string `json:"plan_id"`
	VariantID     string `json:"variant_id"`
	ChangedFields int    `json:"changed_fields"`
	AssetCount    int    `json:"asset_count"`
	Diff          string `json:"diff,omitempty"`
}

// PreviewApply diffs the variant's text overrides against the current live
// listing. Fields the variant does not override are omitted.
func (o *Orchestrator) PreviewApply(ctx context.Context, planID, variantID string) (*Preview, error) {
	plan, err := o.Store.Get(planID)
	if err != nil {
		return nil, err
	}
	variant, ok := plan.FindVariant(variantID)
	if !ok {
		return nil, fmt.Errorf("plan %s has no variant %s: %w", planID, variantID, ErrVariantNotFound)
	}

	live, err := o.Editor.GetListing(ctx, plan.PackageName, plan.Language)
	if err != nil {
		return nil, err
	}

	fields := []struct {
		name     string
		current  string
		override *string
	}{
		{"title", live.Title, variant.Title},
		{"short_description", live.ShortDescription, variant.ShortDescription},
		{"full_description", live.FullDescription, variant.FullDescription},
		{"video", live.Video, variant.Video},
	}

	var diffs []string
	changed := 0
	for _, f := range fields {
		if f.override == nil {
			continue
		}
		text, err := fieldDiff(f.name, f.current, *f.override)
		if err != nil {
			return nil, err
		}
		if text != "" {
			changed++
			diffs = append(diffs, text)
		}
	}

	return &Preview{
		PlanID:        plan.PlanID,
		VariantID:     variantID,
		ChangedFields: changed,
		AssetCount:    len(variant.Assets),
		Diff:          strings.Join(diffs, "\n"),
	}, nil
}

func fieldDiff(field, current, proposed string) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(current),
		B:        difflib.SplitLines(proposed),
		FromFile: "live/" + field,
		ToFile:   "variant/" + field,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("diff %s: %w", field, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	return text, nil
}
