package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"storelab/internal/audit"
	"storelab/internal/lint"
	"storelab/internal/localization"
	"storelab/internal/mcp"
	"storelab/internal/orchestrator"
	"storelab/internal/plandef"
	"storelab/internal/planstore"
	"storelab/internal/publisher"
	"storelab/internal/workspace"
)

const appName = "storelab"

const version = "0.1.0"

func main() {
	flag.String("workspace", "", "Path to workspace root")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s: store-listing experiment orchestration\n\n", appName)
		fmt.Fprintf(os.Stderr, "Usage:\n  %s [command] [flags]\n\n", appName)
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  init    Initialize a new workspace")
		fmt.Fprintln(os.Stderr, "  plan    Manage experiment plans")
		fmt.Fprintln(os.Stderr, "  guard   Check locale readiness before an experiment")
		fmt.Fprintln(os.Stderr, "  lint    Validate listing metadata and image assets")
		fmt.Fprintln(os.Stderr, "  clone   Copy a listing to another locale")
		fmt.Fprintln(os.Stderr, "  audit   Inspect the audit log")
		fmt.Fprintln(os.Stderr, "  serve   Serve the MCP tools over stdio")
		fmt.Fprintln(os.Stderr, "  help    Show this help")
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flag.PrintDefaults()
	}

	workspacePath, remaining, err := extractWorkspaceFlag(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	args := remaining
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		flag.Usage()
		return
	}

	switch args[0] {
	case "init":
		if err := runInit(args[1:], workspacePath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case "plan":
		if err := runPlan(args[1:], workspacePath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case "guard":
		if err := runGuard(args[1:], workspacePath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case "lint":
		if err := runLint(args[1:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case "clone":
		if err := runClone(args[1:], workspacePath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case "audit":
		if err := runAudit(args[1:], workspacePath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case "serve":
		if err := runServe(args[1:], workspacePath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[0])
		flag.Usage()
		os.Exit(1)
	}
}

func extractWorkspaceFlag(args []string) (string, []string, error) {
	var workspacePath string
	remaining := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--workspace" {
			if i+1 >= len(args) {
				return "", nil, fmt.Errorf("--workspace requires a value")
			}
			workspacePath = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--workspace=") {
			workspacePath = strings.TrimPrefix(arg, "--workspace=")
			continue
		}
		remaining = append(remaining, arg)
	}
	return workspacePath, remaining, nil
}

// newOrchestrator wires the file-backed plan store, the publisher client, and
// the audit log for one command invocation. The access token is read from
// STORELAB_ACCESS_TOKEN; commands that never reach the remote API work
// without it.
func newOrchestrator(workspacePath string) (*orchestrator.Orchestrator, *workspace.Workspace, error) {
	if strings.TrimSpace(workspacePath) == "" {
		return nil, nil, fmt.Errorf("--workspace is required")
	}
	ws, err := workspace.Resolve(workspacePath)
	if err != nil {
		return nil, nil, err
	}
	if err := ws.EnsureDirs(); err != nil {
		return nil, nil, err
	}

	editor := publisher.NewClient(publisher.StaticToken(os.Getenv("STORELAB_ACCESS_TOKEN")))
	orc := orchestrator.New(planstore.NewFileStore(ws.PlansDir), editor)
	orc.Audit = audit.NewLogger(ws.AuditDBPath)
	orc.Actor = "cli"
	return orc, ws, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	data = append(data, '\n')
	_, err = os.Stdout.Write(data)
	return err
}

func runInit(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(workspacePath) == "" {
		return fmt.Errorf("--workspace is required")
	}

	root, err := workspace.ResolveRoot(workspacePath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create workspace root: %w", err)
	}
	ws, err := workspace.Resolve(root)
	if err != nil {
		return err
	}
	if err := ws.EnsureDirs(); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Initialized workspace: %s\n", ws.Root)
	fmt.Fprintln(os.Stdout, "Next steps:")
	fmt.Fprintf(os.Stdout, "  %s plan create --workspace %s --file plan.yml\n", appName, ws.Root)
	fmt.Fprintf(os.Stdout, "  %s plan start --workspace %s <plan-id>\n", appName, ws.Root)
	return nil
}

func runPlan(args []string, workspacePath string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		return fmt.Errorf("%s plan: missing subcommand (create, list, get, delete, start, stop, eval, apply, preview)", appName)
	}

	switch args[0] {
	case "create":
		return runPlanCreate(args[1:], workspacePath)
	case "list":
		return runPlanList(args[1:], workspacePath)
	case "get":
		return runPlanGet(args[1:], workspacePath)
	case "delete":
		return runPlanDelete(args[1:], workspacePath)
	case "start":
		return runPlanStart(args[1:], workspacePath)
	case "stop":
		return runPlanStop(args[1:], workspacePath)
	case "eval":
		return runPlanEval(args[1:], workspacePath)
	case "apply":
		return runPlanApply(args[1:], workspacePath)
	case "preview":
		return runPlanPreview(args[1:], workspacePath)
	default:
		return fmt.Errorf("%s plan: unknown subcommand %q", appName, args[0])
	}
}

// planIDArg peels a leading positional plan id off the argument list.
func planIDArg(args []string) (string, []string) {
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		return args[0], args[1:]
	}
	return "", args
}

func runPlanCreate(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("plan create", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	file := fs.String("file", "", "Path to plan definition YAML")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("--file is required")
	}

	orc, ws, err := newOrchestrator(workspacePath)
	if err != nil {
		return err
	}
	absFile, err := ws.ResolvePath(*file)
	if err != nil {
		return fmt.Errorf("resolve --file: %w", err)
	}

	input, err := plandef.LoadFile(absFile)
	if err != nil {
		return err
	}
	plan, err := orc.CreatePlan(input)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Created plan: %s\n", plan.PlanID)
	return printJSON(plan)
}

func runPlanList(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("plan list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	orc, _, err := newOrchestrator(workspacePath)
	if err != nil {
		return err
	}
	plans, err := orc.ListPlans()
	if err != nil {
		return err
	}
	if len(plans) == 0 {
		fmt.Fprintln(os.Stdout, "No plans")
		return nil
	}
	for _, p := range plans {
		fmt.Fprintf(os.Stdout, "%s  %-8s  %s  [%s/%s]\n", p.PlanID, p.Status, p.Name, p.PackageName, p.Language)
	}
	return nil
}

func runPlanGet(args []string, workspacePath string) error {
	planID, rest := planIDArg(args)
	fs := flag.NewFlagSet("plan get", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if planID == "" {
		return fmt.Errorf("plan id is required")
	}

	orc, _, err := newOrchestrator(workspacePath)
	if err != nil {
		return err
	}
	plan, err := orc.GetPlan(planID)
	if err != nil {
		return err
	}
	return printJSON(plan)
}

func runPlanDelete(args []string, workspacePath string) error {
	planID, rest := planIDArg(args)
	fs := flag.NewFlagSet("plan delete", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if planID == "" {
		return fmt.Errorf("plan id is required")
	}

	orc, _, err := newOrchestrator(workspacePath)
	if err != nil {
		return err
	}
	deleted, err := orc.DeletePlan(planID)
	if err != nil {
		return err
	}
	if deleted {
		fmt.Fprintf(os.Stdout, "Deleted plan: %s\n", planID)
	} else {
		fmt.Fprintf(os.Stdout, "No such plan: %s\n", planID)
	}
	return nil
}

func runPlanStart(args []string, workspacePath string) error {
	planID, rest := planIDArg(args)
	fs := flag.NewFlagSet("plan start", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if planID == "" {
		return fmt.Errorf("plan id is required")
	}

	orc, _, err := newOrchestrator(workspacePath)
	if err != nil {
		return err
	}
	result, err := orc.StartManual(planID)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Plan %s is %s\n\n", result.PlanID, result.Status)
	for i, step := range result.Instructions {
		fmt.Fprintf(os.Stdout, "%d. %s\n", i+1, step)
	}
	fmt.Fprintln(os.Stdout)
	for _, v := range result.Variants {
		fmt.Fprintf(os.Stdout, "Variant %s (%s):\n", v.Label, v.VariantID)
		if v.Title != nil {
			fmt.Fprintf(os.Stdout, "  title: %s\n", *v.Title)
		}
		if v.ShortDescription != nil {
			fmt.Fprintf(os.Stdout, "  short description: %s\n", *v.ShortDescription)
		}
		if v.FullDescription != nil {
			fmt.Fprintf(os.Stdout, "  full description: %s\n", *v.FullDescription)
		}
		if v.Video != nil {
			fmt.Fprintf(os.Stdout, "  video: %s\n", *v.Video)
		}
		for _, a := range v.Assets {
			fmt.Fprintf(os.Stdout, "  %s: %s\n", a.ImageType, a.FilePath)
		}
	}
	fmt.Fprintf(os.Stdout, "\n%s\n", result.Note)
	return nil
}

func runPlanStop(args []string, workspacePath string) error {
	planID, rest := planIDArg(args)
	fs := flag.NewFlagSet("plan stop", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if planID == "" {
		return fmt.Errorf("plan id is required")
	}

	orc, _, err := newOrchestrator(workspacePath)
	if err != nil {
		return err
	}
	result, err := orc.Stop(planID)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Plan %s is %s\n", result.PlanID, result.Status)
	return nil
}

func runPlanEval(args []string, workspacePath string) error {
	planID, rest := planIDArg(args)
	fs := flag.NewFlagSet("plan eval", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	metricsJSON := fs.String("metrics-json", "", `Per-variant counts as JSON: {"<variant-id>": {"visitors": N, "conversions": N}, ...}`)
	samples := fs.Int("samples", 0, "Monte-Carlo sample count (default 20000)")
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if planID == "" {
		return fmt.Errorf("plan id is required")
	}
	if *metricsJSON == "" {
		return fmt.Errorf("--metrics-json is required")
	}

	var metrics orchestrator.Metrics
	if err := json.Unmarshal([]byte(*metricsJSON), &metrics); err != nil {
		return fmt.Errorf("parse --metrics-json: %w", err)
	}

	orc, _, err := newOrchestrator(workspacePath)
	if err != nil {
		return err
	}
	result, err := orc.ComputeSignificance(planID, metrics, *samples)
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runPlanApply(args []string, workspacePath string) error {
	planID, rest := planIDArg(args)
	fs := flag.NewFlagSet("plan apply", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	variantID := fs.String("variant", "", "Winning variant id to promote")
	sendForReview := fs.Bool("send-for-review", false, "Submit the edit for review immediately")
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if planID == "" {
		return fmt.Errorf("plan id is required")
	}
	if *variantID == "" {
		return fmt.Errorf("--variant is required")
	}

	orc, _, err := newOrchestrator(workspacePath)
	if err != nil {
		return err
	}
	result, err := orc.ApplyWinner(context.Background(), planID, *variantID, !*sendForReview)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Applied variant %s to live listing\n", result.AppliedVariant)
	return printJSON(result)
}

func runPlanPreview(args []string, workspacePath string) error {
	planID, rest := planIDArg(args)
	fs := flag.NewFlagSet("plan preview", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	variantID := fs.String("variant", "", "Variant id to preview")
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if planID == "" {
		return fmt.Errorf("plan id is required")
	}
	if *variantID == "" {
		return fmt.Errorf("--variant is required")
	}

	orc, _, err := newOrchestrator(workspacePath)
	if err != nil {
		return err
	}
	preview, err := orc.PreviewApply(context.Background(), planID, *variantID)
	if err != nil {
		return err
	}
	if preview.Diff == "" {
		fmt.Fprintln(os.Stdout, "No text changes")
	} else {
		fmt.Fprint(os.Stdout, preview.Diff)
	}
	if preview.AssetCount > 0 {
		fmt.Fprintf(os.Stdout, "\n%d asset(s) would be replaced\n", preview.AssetCount)
	}
	return nil
}

func runGuard(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("guard", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	packageName := fs.String("package", "", "Application package name")
	language := fs.String("language", "", "Locale to check")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *packageName == "" || *language == "" {
		return fmt.Errorf("--package and --language are required")
	}

	orc, _, err := newOrchestrator(workspacePath)
	if err != nil {
		return err
	}
	readiness, err := orc.GuardReadiness(context.Background(), *packageName, *language)
	if err != nil {
		return err
	}
	return printJSON(readiness)
}

func runLint(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		return fmt.Errorf("%s lint: missing subcommand (metadata, asset)", appName)
	}

	switch args[0] {
	case "metadata":
		return runLintMetadata(args[1:])
	case "asset":
		return runLintAsset(args[1:])
	default:
		return fmt.Errorf("%s lint: unknown subcommand %q", appName, args[0])
	}
}

func runLintMetadata(args []string) error {
	fs := flag.NewFlagSet("lint metadata", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	title := fs.String("title", "", "Title to lint")
	short := fs.String("short", "", "Short description to lint")
	full := fs.String("full", "", "Full description to lint")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var titleP, shortP, fullP *string
	if *title != "" {
		titleP = title
	}
	if *short != "" {
		shortP = short
	}
	if *full != "" {
		fullP = full
	}
	if titleP == nil && shortP == nil && fullP == nil {
		return fmt.Errorf("at least one of --title, --short, --full is required")
	}

	report := lint.CheckMetadata(titleP, shortP, fullP)
	if err := printJSON(report); err != nil {
		return err
	}
	if !report.OK {
		os.Exit(1)
	}
	return nil
}

func runLintAsset(args []string) error {
	fs := flag.NewFlagSet("lint asset", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	imageType := fs.String("type", "", "Store image type (icon, featureGraphic, phoneScreenshots, ...)")
	path := fs.String("path", "", "Local image file path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *imageType == "" || *path == "" {
		return fmt.Errorf("--type and --path are required")
	}

	report, err := lint.CheckAsset(*imageType, *path)
	if err != nil {
		return err
	}
	if err := printJSON(report); err != nil {
		return err
	}
	if !report.OK {
		os.Exit(1)
	}
	return nil
}

func runClone(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("clone", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	packageName := fs.String("package", "", "Application package name")
	from := fs.String("from", "", "Locale to copy from")
	to := fs.String("to", "", "Locale to copy to")
	images := fs.String("images", "", "Comma-separated image types to mirror (default: text only)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *packageName == "" || *from == "" || *to == "" {
		return fmt.Errorf("--package, --from and --to are required")
	}

	var imageTypes []string
	for _, t := range strings.Split(*images, ",") {
		if t = strings.TrimSpace(t); t != "" {
			imageTypes = append(imageTypes, t)
		}
	}

	orc, _, err := newOrchestrator(workspacePath)
	if err != nil {
		return err
	}
	cloner := localization.NewCloner(orc.Editor)
	result, err := cloner.CloneListing(context.Background(), *packageName, *from, *to, imageTypes)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Cloned %s -> %s\n", result.Source, result.Destination)
	return printJSON(result)
}

func runAudit(args []string, workspacePath string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		return fmt.Errorf("%s audit: missing subcommand (recent)", appName)
	}

	switch args[0] {
	case "recent":
		return runAuditRecent(args[1:], workspacePath)
	default:
		return fmt.Errorf("%s audit: unknown subcommand %q", appName, args[0])
	}
}

func runAuditRecent(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("audit recent", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	limit := fs.Int("limit", 20, "Maximum events to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	_, ws, err := newOrchestrator(workspacePath)
	if err != nil {
		return err
	}
	events, err := audit.NewLogger(ws.AuditDBPath).Recent(*limit)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Fprintln(os.Stdout, "No events")
		return nil
	}
	for _, ev := range events {
		line := fmt.Sprintf("%s  %-10s %s", ev.At.Format("2006-01-02 15:04:05"), ev.Actor, ev.Operation)
		if ev.PlanID != "" {
			line += "  plan=" + ev.PlanID
		}
		fmt.Fprintln(os.Stdout, line)
	}
	return nil
}

func runServe(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	orc, ws, err := newOrchestrator(workspacePath)
	if err != nil {
		return err
	}
	orc.Actor = "mcp"

	fmt.Fprintf(os.Stderr, "Serving MCP over stdio for workspace: %s\n", ws.Root)
	return mcp.NewServer(orc, version).Run(context.Background())
}
