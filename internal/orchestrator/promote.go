package orchestrator

import (
	"context"
	"fmt"

	"storelab/internal/planstore"
	"storelab/internal/publisher"
)

// ApplyResult reports a completed promotion.
type ApplyResult struct {
	PlanID         string            `json:"plan_id"`
	AppliedVariant string            `json:"applied_variant"`
	TextPatch      publisher.Listing `json:"text_patch"`
	AssetUploads   []publisher.Image `json:"asset_uploads"`
	Status         planstore.Status  `json:"status"`
}

// ApplyWinner promotes a variant's content to the live listing: a text patch
// for the non-empty fields, then per image type a delete-all followed by
// sequential uploads. Each completed step is persisted on the plan before the
// next one runs, so a failed promotion can be retried and resumes where it
// stopped. Completed remote steps are never rolled back.
func (o *Orchestrator) ApplyWinner(ctx context.Context, planID, variantID string, changesNotSentForReview bool) (*ApplyResult, error) {
	plan, err := o.Store.Get(planID)
	if err != nil {
		return nil, err
	}
	variant, ok := plan.FindVariant(variantID)
	if !ok {
		return nil, fmt.Errorf("plan %s has no variant %s: %w", planID, variantID, ErrVariantNotFound)
	}
	if _, err := next(plan.Status, opApply); err != nil {
		return nil, err
	}

	// A retry with a different variant abandons the previous saga record.
	if plan.Promotion == nil || plan.Promotion.VariantID != variantID {
		plan.Promotion = &planstore.Promotion{
			VariantID: variantID,
			StartedAt: o.timestamp(),
		}
		if err := o.save(plan); err != nil {
			return nil, err
		}
	}

	result := &ApplyResult{PlanID: plan.PlanID, AppliedVariant: variantID}

	patch := publisher.ListingPatch{
		Title:            variant.Title,
		ShortDescription: variant.ShortDescription,
		FullDescription:  variant.FullDescription,
		Video:            variant.Video,
	}
	if !patch.Empty() && !plan.Promotion.TextPatched {
		listing, err := o.Editor.PatchListing(ctx, plan.PackageName, plan.Language, patch, changesNotSentForReview)
		if err != nil {
			return nil, fmt.Errorf("promote text: %w", err)
		}
		result.TextPatch = listing
		plan.Promotion.TextPatched = true
		if err := o.save(plan); err != nil {
			return nil, err
		}
	}

	for _, group := range groupAssets(variant.Assets) {
		if plan.Promotion.TypeDone(group.imageType) {
			continue
		}
		// The delete must run exactly once per type: repeating it on a retry
		// would wipe uploads the saga record says are already in place.
		if !plan.Promotion.TypeDeleted(group.imageType) {
			if err := o.Editor.DeleteAllImages(ctx, plan.PackageName, plan.Language, group.imageType, changesNotSentForReview); err != nil {
				return nil, fmt.Errorf("promote assets: %w", err)
			}
			plan.Promotion.DeletedTypes = append(plan.Promotion.DeletedTypes, group.imageType)
			if err := o.save(plan); err != nil {
				return nil, err
			}
		}
		for _, path := range group.files {
			if plan.Promotion.FileUploaded(path) {
				continue
			}
			img, err := o.Editor.UploadImage(ctx, plan.PackageName, plan.Language, group.imageType, path, "", changesNotSentForReview)
			if err != nil {
				return nil, fmt.Errorf("promote assets: %w", err)
			}
			result.AssetUploads = append(result.AssetUploads, img)
			plan.Promotion.UploadedFiles = append(plan.Promotion.UploadedFiles, path)
			if err := o.save(plan); err != nil {
				return nil, err
			}
		}
		plan.Promotion.CompletedTypes = append(plan.Promotion.CompletedTypes, group.imageType)
		if err := o.save(plan); err != nil {
			return nil, err
		}
	}

	plan.Status = planstore.StatusApplied
	if err := o.save(plan); err != nil {
		return nil, err
	}
	o.record("apply_winner", plan.PlanID, map[string]any{
		"variant_id": variantID,
		"uploads":    len(result.AssetUploads),
	})

	result.Status = plan.Status
	return result, nil
}

func (o *Orchestrator) save(plan *planstore.Plan) error {
	plan.UpdatedAt = o.timestamp()
	return o.Store.Save(plan)
}

type assetGroup struct {
	imageType string
	files     []string
}

// groupAssets buckets asset paths by image type, preserving first-seen type
// order and per-type file order.
func groupAssets(assets []planstore.Asset) []assetGroup {
	var groups []assetGroup
	index := make(map[string]int)
	for _, a := range assets {
		i, ok := index[a.ImageType]
		if !ok {
			i = len(groups)
			index[a.ImageType] = i
			groups = append(groups, assetGroup{imageType: a.ImageType})
		}
		groups[i].files = append(groups[i].files, a.FilePath)
	}
	return groups
}
