package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/sourceplane/varcall/internal/loader"
	"github.com/sourceplane/varcall/internal/model"
	"github.com/sourceplane/varcall/internal/planner"
	"github.com/sourceplane/varcall/internal/render"
	"github.com/sourceplane/varcall/internal/runner"
	"go.uber.org/multierr"
)

func runPipeline(ctx context.Context, name string) error {
	r := runner.Default()
	res, err := r.Run(ctx, runner.Options{
		Pipeline:   name,
		ToolConfig: toolFile,
		Manifest:   dataFile,
		OutDir:     outDir,
		Backend:    cluster,
		Remove:     removeTmp,
		DryRun:     dryRun,
		NoWait:     noWait,
		PlanFormat: planFormat,
		LogLevel:   logLevel,
	})
	if err != nil {
		return err
	}

	fmt.Printf("✓ Run %d logged to %s\n", res.RunIndex, res.LogPath)
	if viewPlan != "" {
		fmt.Println("\n" + viewOf(res.Plan, viewPlan))
	}
	return nil
}

func viewOf(plan *model.Plan, view string) string {
	viewer := render.NewPlanViewer(plan)
	switch {
	case view == "dependencies":
		return viewer.ViewDependencies()
	case view == "debug":
		return render.NewRenderer().DebugDump(plan)
	case strings.HasPrefix(view, "patient="):
		return viewer.ViewByPatient(strings.TrimPrefix(view, "patient="))
	default:
		return viewer.ViewDAG()
	}
}

func validateFiles() error {
	l, err := loader.NewLoader()
	if err != nil {
		return fmt.Errorf("failed to create loader: %w", err)
	}

	fmt.Println("□ Validating tool config...")
	cfg, err := l.LoadToolConfig(toolFile)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Tool config is valid (%s, %s)\n", cfg.Build, cfg.GATK)

	pipelines := planner.Pipelines()
	if pipelineName != "" {
		p, err := planner.Lookup(pipelineName)
		if err != nil {
			return err
		}
		pipelines = []*planner.Pipeline{p}
	}

	var errs error
	for _, p := range pipelines {
		if err := p.Validate(cfg); err != nil {
			color.New(color.FgYellow).Printf("  %s: %v\n", p.Name, err)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", p.Name, err))
			continue
		}
		fmt.Printf("  %s: ok\n", p.Name)
	}
	if pipelineName != "" && errs != nil {
		return errs
	}

	if dataFile != "" {
		fmt.Println("□ Validating sample manifest...")
		manifest, err := l.LoadManifest(dataFile)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Manifest is valid (%d patients)\n", len(manifest))
	}

	fmt.Println("✓ All validation passed")
	return nil
}

func showStatus(name string) error {
	p, err := planner.Lookup(name)
	if err != nil {
		return err
	}
	l, err := loader.NewLoader()
	if err != nil {
		return fmt.Errorf("failed to create loader: %w", err)
	}

	fmt.Println("□ Loading inputs...")
	cfg, err := l.LoadToolConfig(toolFile)
	if err != nil {
		return err
	}
	manifest, err := l.LoadManifest(dataFile)
	if err != nil {
		return err
	}

	analyzer := planner.NewStatusAnalyzer(p, cfg, outDir, manifest)
	if patientID != "" {
		st := analyzer.GetPatient(patientID)
		if st == nil {
			return fmt.Errorf("patient not found: %s", patientID)
		}
		printPatientStatus(st, true)
		return nil
	}

	patients := analyzer.ListAll()
	done := 0
	for _, st := range patients {
		printPatientStatus(st, longFormat)
		if st.Done() {
			done++
		}
	}
	fmt.Printf("\n✓ %d of %d patients fully published\n", done, len(patients))
	return nil
}

func printPatientStatus(st *planner.PatientStatus, long bool) {
	mark := color.New(color.FgYellow).Sprint("□")
	if st.Done() {
		mark = color.New(color.FgGreen).Sprint("✓")
	}
	fmt.Printf("%s %s (%d/%d phases)\n", mark, st.Patient, st.Complete, len(st.Phases))
	if !long {
		return
	}

	for _, ph := range st.Phases {
		owner := ph.Sample
		if owner == "" {
			owner = st.Patient
		}
		state := "missing"
		if ph.Complete {
			state = humanize.Bytes(uint64(ph.Size))
		}
		fmt.Printf("    %-12s %-10s %-10s %s\n", owner, ph.Phase, state, ph.Output)
	}
}

func listPipelines(args []string) error {
	if len(args) > 0 {
		p, err := planner.Lookup(args[0])
		if err != nil {
			return err
		}
		printPipelineDetails(p)
		return nil
	}

	fmt.Println("Available Pipelines:")
	for _, p := range planner.Pipelines() {
		fmt.Printf("  %-16s %s\n", p.Name, p.Description)
	}
	fmt.Println("\nRun 'varcall pipelines <name>' for detailed information")
	return nil
}

func printPipelineDetails(p *planner.Pipeline) {
	fmt.Printf("\n[Pipeline] %s\n", p.Name)
	fmt.Printf("  Description:     %s\n", p.Description)
	fmt.Printf("  Requires normal: %v\n", p.RequiresNormal)
	fmt.Printf("  Prepares ref:    %v\n", p.Prepare)
	fmt.Printf("  Collates:        %v\n", p.Collate)

	phases := func(label string, list []planner.Phase) {
		if len(list) == 0 {
			return
		}
		names := make([]string, len(list))
		for i, ph := range list {
			names[i] = ph.Name
		}
		fmt.Printf("  %s phases:   %s\n", label, strings.Join(names, " → "))
	}
	phases("Normal", p.NormalPhases)
	phases("Tumour", p.TumourPhases)
	fmt.Printf("  Stage keys:      %s\n", strings.Join(p.StageKeys(), ", "))
}

func showPlan(path string) error {
	plan, err := render.LoadPlan(path)
	if err != nil {
		return err
	}
	fmt.Println(viewOf(plan, planView))
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "✗ %v\n", err)
		stop()
		os.Exit(1)
	}
}
