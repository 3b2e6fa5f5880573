// Package mcp exposes the experiment orchestrator as MCP tools over stdio,
// so an agent can drive the full plan lifecycle without shelling out to the
// CLI.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"storelab/internal/lint"
	"storelab/internal/localization"
	"storelab/internal/orchestrator"
	"storelab/internal/planstore"
)

// Server wraps the MCP SDK server around one orchestrator instance.
type Server struct {
	MCPServer *sdkmcp.Server

	orc    *orchestrator.Orchestrator
	cloner *localization.Cloner
	log    *slog.Logger
}

// NewServer creates the server and registers every tool.
func NewServer(orc *orchestrator.Orchestrator, version string) *Server {
	s := &Server{
		MCPServer: sdkmcp.NewServer(
			&sdkmcp.Implementation{Name: "storelab", Version: version},
			nil,
		),
		orc:    orc,
		cloner: localization.NewCloner(orc.Editor),
		log:    slog.Default().With("component", "mcp"),
	}
	s.registerTools()
	return s
}

// Run serves MCP over stdio until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "experiments_create_plan",
		Description: "Create a store-listing experiment plan in draft status. Variant ids are assigned server-side.",
	}, s.handleCreatePlan)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "experiments_list_plans",
		Description: "List all stored experiment plans.",
	}, s.handleListPlans)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "experiments_get_plan",
		Description: "Get one experiment plan by id, including its last significance results.",
	}, s.handleGetPlan)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "experiments_delete_plan",
		Description: "Delete an experiment plan. Reports whether a deletion occurred.",
	}, s.handleDeletePlan)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "experiments_start_manual",
		Description: "Mark a plan running and return step-by-step console setup instructions plus the variant content to paste.",
	}, s.handleStartManual)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "experiments_compute_significance",
		Description: "Run the Bayesian Monte-Carlo evaluation over per-variant visitor/conversion counts and persist the result on the plan.",
	}, s.handleComputeSignificance)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "experiments_apply_winner",
		Description: "Promote a winning variant to the live listing: patch text fields, then replace images per asset type. Resumable on partial failure.",
	}, s.handleApplyWinner)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "experiments_stop",
		Description: "Mark a plan stopped without touching listing content. Idempotent.",
	}, s.handleStop)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "guard_experiment_readiness",
		Description: "Check whether a locale has a live listing before an experiment targets it.",
	}, s.handleGuardReadiness)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "preview_apply",
		Description: "Show a unified diff of what applying a variant would change on the live listing, without writing anything.",
	}, s.handlePreviewApply)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "validate_metadata_policy",
		Description: "Lint listing text against store policy: length limits, emojis, repeated punctuation, promo/ranking claims.",
	}, s.handleValidateMetadata)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "asset_spec_check",
		Description: "Validate a local image file against the store's dimension and format specs for its image type.",
	}, s.handleAssetSpecCheck)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_locale_coverage",
		Description: "List the locales a package has listings for, optionally compared against a target locale set.",
	}, s.handleLocaleCoverage)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "clone_listing_to_locale",
		Description: "Copy one locale's listing text (and optionally images) onto another locale.",
	}, s.handleCloneListing)
}

// --- Tool input/output types ---

type assetInput struct {
	ImageType string `json:"image_type" jsonschema:"store image type, e.g. icon, featureGraphic, phoneScreenshots"`
	FilePath  string `json:"file_path" jsonschema:"local path of the asset file"`
}

type variantInput struct {
	Label            string       `json:"label" jsonschema:"short human label for the variant"`
	Title            *string      `json:"title,omitempty" jsonschema:"candidate app title"`
	ShortDescription *string      `json:"short_description,omitempty" jsonschema:"candidate short description"`
	FullDescription  *string      `json:"full_description,omitempty" jsonschema:"candidate full description"`
	Video            *string      `json:"video,omitempty" jsonschema:"candidate promo video URL"`
	Assets           []assetInput `json:"assets,omitempty" jsonschema:"candidate image assets"`
}

type createPlanInput struct {
	PackageName       string         `json:"package_name" jsonschema:"application package name"`
	Language          string         `json:"language" jsonschema:"BCP-47 locale of the listing under test"`
	Name              string         `json:"name" jsonschema:"experiment name"`
	Hypothesis        string         `json:"hypothesis,omitempty" jsonschema:"what the experiment is expected to show"`
	Metric            string         `json:"metric,omitempty" jsonschema:"success metric, e.g. first-time installers"`
	TrafficProportion float64        `json:"traffic_proportion,omitempty" jsonschema:"fraction of traffic in [0.1, 1.0]; 0 means unset (1.0)"`
	Type              string         `json:"type,omitempty" jsonschema:"experiment type: text, graphics, or mixed"`
	Variants          []variantInput `json:"variants" jsonschema:"candidate variants"`
	Notes             string         `json:"notes,omitempty" jsonschema:"free-form notes"`
}

type planIDInput struct {
	PlanID string `json:"plan_id" jsonschema:"plan id returned by experiments_create_plan"`
}

type listPlansInput struct{}

type listPlansOutput struct {
	Plans []*planstore.Plan `json:"plans"`
	Count int               `json:"count"`
}

type getPlanOutput struct {
	Plan *planstore.Plan `json:"plan"`
}

type deletePlanOutput struct {
	PlanID  string `json:"plan_id"`
	Deleted bool   `json:"deleted"`
}

type countInput struct {
	Visitors    int `json:"visitors" jsonschema:"unique visitors who saw the variant"`
	Conversions int `json:"conversions" jsonschema:"conversions attributed to the variant"`
}

type computeSignificanceInput struct {
	PlanID  string                `json:"plan_id" jsonschema:"plan id"`
	Metrics map[string]countInput `json:"metrics" jsonschema:"observed counts keyed by variant id"`
	Samples int                   `json:"samples,omitempty" jsonschema:"Monte-Carlo sample count (default 20000)"`
}

type applyWinnerInput struct {
	PlanID        string `json:"plan_id" jsonschema:"plan id"`
	VariantID     string `json:"variant_id" jsonschema:"winning variant id"`
	SendForReview bool   `json:"send_for_review,omitempty" jsonschema:"submit the edit for review immediately (default false)"`
}

type guardInput struct {
	PackageName string `json:"package_name" jsonschema:"application package name"`
	Language    string `json:"language" jsonschema:"locale to check"`
}

type previewInput struct {
	PlanID    string `json:"plan_id" jsonschema:"plan id"`
	VariantID string `json:"variant_id" jsonschema:"variant to preview"`
}

type validateMetadataInput struct {
	Title            *string `json:"title,omitempty" jsonschema:"title to lint"`
	ShortDescription *string `json:"short_description,omitempty" jsonschema:"short description to lint"`
	FullDescription  *string `json:"full_description,omitempty" jsonschema:"full description to lint"`
}

type assetSpecInput struct {
	ImageType string `json:"image_type" jsonschema:"store image type the file is intended for"`
	FilePath  string `json:"file_path" jsonschema:"local path of the image file"`
}

type coverageInput struct {
	PackageName string   `json:"package_name" jsonschema:"application package name"`
	Targets     []string `json:"targets,omitempty" jsonschema:"locale set to compare against"`
}

type cloneInput struct {
	PackageName string   `json:"package_name" jsonschema:"application package name"`
	Source      string   `json:"source" jsonschema:"locale to copy from"`
	Destination string   `json:"destination" jsonschema:"locale to copy to"`
	ImageTypes  []string `json:"image_types,omitempty" jsonschema:"image types to mirror; empty copies text only"`
}

// --- Tool handlers ---

func (s *Server) handleCreatePlan(_ context.Context, _ *sdkmcp.CallToolRequest, input createPlanInput) (*sdkmcp.CallToolResult, getPlanOutput, error) {
	in := orchestrator.CreatePlanInput{
		PackageName:       input.PackageName,
		Language:          input.Language,
		Name:              input.Name,
		Hypothesis:        input.Hypothesis,
		Metric:            input.Metric,
		TrafficProportion: input.TrafficProportion,
		Type:              planstore.ExperimentType(input.Type),
		Notes:             input.Notes,
	}
	for _, v := range input.Variants {
		variant := orchestrator.VariantInput{
			Label:            v.Label,
			Title:            v.Title,
			ShortDescription: v.ShortDescription,
			FullDescription:  v.FullDescription,
			Video:            v.Video,
		}
		for _, a := range v.Assets {
			variant.Assets = append(variant.Assets, planstore.Asset{ImageType: a.ImageType, FilePath: a.FilePath})
		}
		in.Variants = append(in.Variants, variant)
	}

	plan, err := s.orc.CreatePlan(in)
	if err != nil {
		return nil, getPlanOutput{}, err
	}
	s.log.Info("plan created", "plan_id", plan.PlanID, "package", plan.PackageName)
	return nil, getPlanOutput{Plan: plan}, nil
}

func (s *Server) handleListPlans(_ context.Context, _ *sdkmcp.CallToolRequest, _ listPlansInput) (*sdkmcp.CallToolResult, listPlansOutput, error) {
	plans, err := s.orc.ListPlans()
	if err != nil {
		return nil, listPlansOutput{}, err
	}
	return nil, listPlansOutput{Plans: plans, Count: len(plans)}, nil
}

func (s *Server) handleGetPlan(_ context.Context, _ *sdkmcp.CallToolRequest, input planIDInput) (*sdkmcp.CallToolResult, getPlanOutput, error) {
	plan, err := s.orc.GetPlan(input.PlanID)
	if err != nil {
		return nil, getPlanOutput{}, err
	}
	return nil, getPlanOutput{Plan: plan}, nil
}

func (s *Server) handleDeletePlan(_ context.Context, _ *sdkmcp.CallToolRequest, input planIDInput) (*sdkmcp.CallToolResult, deletePlanOutput, error) {
	deleted, err := s.orc.DeletePlan(input.PlanID)
	if err != nil {
		return nil, deletePlanOutput{}, err
	}
	return nil, deletePlanOutput{PlanID: input.PlanID, Deleted: deleted}, nil
}

func (s *Server) handleStartManual(_ context.Context, _ *sdkmcp.CallToolRequest, input planIDInput) (*sdkmcp.CallToolResult, orchestrator.StartResult, error) {
	result, err := s.orc.StartManual(input.PlanID)
	if err != nil {
		return nil, orchestrator.StartResult{}, err
	}
	return nil, *result, nil
}

func (s *Server) handleComputeSignificance(_ context.Context, _ *sdkmcp.CallToolRequest, input computeSignificanceInput) (*sdkmcp.CallToolResult, orchestrator.EvaluateResult, error) {
	if len(input.Metrics) == 0 {
		return nil, orchestrator.EvaluateResult{}, fmt.Errorf("metrics are required")
	}
	metrics := make(orchestrator.Metrics, len(input.Metrics))
	for id, c := range input.Metrics {
		metrics[id] = planstore.VariantCount{Visitors: c.Visitors, Conversions: c.Conversions}
	}
	result, err := s.orc.ComputeSignificance(input.PlanID, metrics, input.Samples)
	if err != nil {
		return nil, orchestrator.EvaluateResult{}, err
	}
	return nil, *result, nil
}

func (s *Server) handleApplyWinner(ctx context.Context, _ *sdkmcp.CallToolRequest, input applyWinnerInput) (*sdkmcp.CallToolResult, orchestrator.ApplyResult, error) {
	result, err := s.orc.ApplyWinner(ctx, input.PlanID, input.VariantID, !input.SendForReview)
	if err != nil {
		return nil, orchestrator.ApplyResult{}, err
	}
	s.log.Info("winner applied", "plan_id", input.PlanID, "variant_id", input.VariantID)
	return nil, *result, nil
}

func (s *Server) handleStop(_ context.Context, _ *sdkmcp.CallToolRequest, input planIDInput) (*sdkmcp.CallToolResult, orchestrator.StopResult, error) {
	result, err := s.orc.Stop(input.PlanID)
	if err != nil {
		return nil, orchestrator.StopResult{}, err
	}
	return nil, *result, nil
}

func (s *Server) handleGuardReadiness(ctx context.Context, _ *sdkmcp.CallToolRequest, input guardInput) (*sdkmcp.CallToolResult, orchestrator.Readiness, error) {
	readiness, err := s.orc.GuardReadiness(ctx, input.PackageName, input.Language)
	if err != nil {
		return nil, orchestrator.Readiness{}, err
	}
	return nil, *readiness, nil
}

func (s *Server) handlePreviewApply(ctx context.Context, _ *sdkmcp.CallToolRequest, input previewInput) (*sdkmcp.CallToolResult, orchestrator.Preview, error) {
	preview, err := s.orc.PreviewApply(ctx, input.PlanID, input.VariantID)
	if err != nil {
		return nil, orchestrator.Preview{}, err
	}
	return nil, *preview, nil
}

func (s *Server) handleValidateMetadata(_ context.Context, _ *sdkmcp.CallToolRequest, input validateMetadataInput) (*sdkmcp.CallToolResult, lint.MetadataReport, error) {
	if input.Title == nil && input.ShortDescription == nil && input.FullDescription == nil {
		return nil, lint.MetadataReport{}, fmt.Errorf("at least one of title, short_description, full_description is required")
	}
	return nil, lint.CheckMetadata(input.Title, input.ShortDescription, input.FullDescription), nil
}

func (s *Server) handleAssetSpecCheck(_ context.Context, _ *sdkmcp.CallToolRequest, input assetSpecInput) (*sdkmcp.CallToolResult, lint.AssetReport, error) {
	if input.ImageType == "" || input.FilePath == "" {
		return nil, lint.AssetReport{}, fmt.Errorf("image_type and file_path are required")
	}
	report, err := lint.CheckAsset(input.ImageType, input.FilePath)
	if err != nil {
		return nil, lint.AssetReport{}, err
	}
	return nil, *report, nil
}

func (s *Server) handleLocaleCoverage(ctx context.Context, _ *sdkmcp.CallToolRequest, input coverageInput) (*sdkmcp.CallToolResult, localization.CoverageReport, error) {
	report, err := localization.Coverage(ctx, s.orc.Editor, input.PackageName, input.Targets)
	if err != nil {
		return nil, localization.CoverageReport{}, err
	}
	return nil, *report, nil
}

func (s *Server) handleCloneListing(ctx context.Context, _ *sdkmcp.CallToolRequest, input cloneInput) (*sdkmcp.CallToolResult, localization.CloneResult, error) {
	result, err := s.cloner.CloneListing(ctx, input.PackageName, input.Source, input.Destination, input.ImageTypes)
	if err != nil {
		return nil, localization.CloneResult{}, err
	}
	s.log.Info("listing cloned", "package", input.PackageName, "source", input.Source, "destination", input.Destination)
	return nil, *result, nil
}
