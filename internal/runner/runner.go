// Package runner drives one pipeline invocation from config loading to the
// completion of its final job.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/fatih/color"
	cerror "github.com/sourceplane/varcall/internal/errors"
	"github.com/sourceplane/varcall/internal/jobscript"
	"github.com/sourceplane/varcall/internal/loader"
	"github.com/sourceplane/varcall/internal/logutil"
	"github.com/sourceplane/varcall/internal/model"
	"github.com/sourceplane/varcall/internal/normalize"
	"github.com/sourceplane/varcall/internal/oracle"
	"github.com/sourceplane/varcall/internal/planner"
	"github.com/sourceplane/varcall/internal/render"
	"github.com/sourceplane/varcall/internal/runlog"
	"github.com/sourceplane/varcall/internal/scheduler"
	"go.uber.org/zap"
)

const DefaultBackend = "slurm"

// Options are the per-invocation settings of a pipeline run
type Options struct {
	Pipeline   string
	ToolConfig string
	Manifest   string
	OutDir     string
	Backend    string
	// Remove submits a cleanup of intermediates per patient
	Remove bool
	DryRun bool
	NoWait bool
	// PlanFormat is json or yaml
	PlanFormat string
	LogLevel   string
}

// Result describes a finished invocation
type Result struct {
	RunIndex int
	Plan     *model.Plan
	PlanPath string
	LogPath  string
	// Metrics is the final job, empty when nothing was submitted
	Metrics model.JobHandle
	Waited  bool
}

// Runner executes pipeline invocations.
type Runner struct {
	Stdout io.Writer
	// Console receives human readable log lines, nil discards them
	Console  io.Writer
	Executor scheduler.Executor

	Clock           clock.Clock
	PollInterval    time.Duration
	MaxPollFailures int
}

func NewRunner(stdout, console io.Writer) *Runner {
	return &Runner{
		Stdout:          stdout,
		Console:         console,
		Clock:           clock.New(),
		PollInterval:    DefaultPollInterval,
		MaxPollFailures: DefaultMaxFailures,
	}
}

func (r *Runner) step(format string, args ...interface{}) {
	fmt.Fprintf(r.Stdout, "□ "+format+"\n", args...)
}

func (r *Runner) done(format string, args ...interface{}) {
	color.New(color.FgGreen).Fprintf(r.Stdout, "✓ "+format+"\n", args...)
}

// Run loads the inputs, builds and submits the job graph, writes the run plan
// and, unless told otherwise, waits for the final metrics job.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	r.step("Loading tool config...")
	l, err := loader.NewLoader()
	if err != nil {
		return nil, fmt.Errorf("failed to create loader: %w", err)
	}
	cfg, err := l.LoadToolConfig(opts.ToolConfig)
	if err != nil {
		return nil, err
	}
	r.done("Tool config loaded (%s, %s)", cfg.Build, cfg.GATK)

	r.step("Loading sample manifest...")
	manifest, err := l.LoadManifest(opts.Manifest)
	if err != nil {
		return nil, err
	}
	r.done("Manifest loaded (%d patients)", len(manifest))

	if opts.OutDir == "" {
		return nil, cerror.ErrMissingFlag.GenWithStackByArgs("--out_dir")
	}
	pipeline, err := planner.Lookup(opts.Pipeline)
	if err != nil {
		return nil, err
	}
	if err := pipeline.Validate(cfg); err != nil {
		return nil, cerror.WrapError(cerror.ErrConfigInvalid, err, opts.ToolConfig)
	}

	backend := opts.Backend
	if backend == "" {
		backend = DefaultBackend
	}
	if _, err := scheduler.NewBackend(backend); err != nil {
		return nil, err
	}

	var rl *runlog.RunLog
	if opts.DryRun {
		r.step("Dry-run mode enabled, nothing will be submitted")
		rl, err = runlog.Peek(opts.OutDir, pipeline.Name, backend)
	} else {
		rl, err = runlog.Open(opts.OutDir, pipeline.Name, backend)
	}
	if err != nil {
		return nil, err
	}

	level := opts.LogLevel
	if level == "" {
		level = "info"
	}
	logger, err := logutil.NewLogger(level, r.Console, rl.LogPath())
	if err != nil {
		return nil, err
	}
	defer logger.Close()
	logger.Info("starting run",
		zap.String("pipeline", pipeline.Name),
		zap.Int("run", rl.Index),
		zap.String("backend", backend),
		zap.Bool("dryRun", opts.DryRun),
		zap.String("outDir", opts.OutDir))
	if !normalize.HasNormal(manifest) && len(pipeline.TumourPhases) > 0 {
		logger.Warn("manifest has no normal samples, tumours are processed without a matched normal")
	}

	sched, err := scheduler.New(scheduler.Config{
		Backend:   backend,
		DryRun:    opts.DryRun,
		ExtraArgs: cfg.Scheduler.ExtraArgs,
		Logger:    logger.Logger,
	}, r.Executor)
	if err != nil {
		return nil, err
	}

	writer := jobscript.NewWriter(rl.Dir, rl.Index)
	writer.DryRun = rl.DryRun
	builder := &planner.Builder{
		Pipeline:  pipeline,
		Config:    cfg,
		OutDir:    opts.OutDir,
		Scheduler: sched,
		Writer:    writer,
		Oracle:    oracle.New(),
		Remove:    opts.Remove,
		Logger:    logger.Logger,
	}

	r.step("Building job graph...")
	state := model.NewRunState(rl.Index)
	initial, err := builder.Prepare(ctx, state)
	if err != nil {
		return nil, err
	}
	if err := builder.Build(ctx, state, manifest, initial); err != nil {
		return nil, err
	}
	metrics, err := builder.SubmitMetrics(ctx, state, rl.MetricsPath())
	if err != nil {
		return nil, err
	}
	r.done("%d jobs submitted, %d stages skipped", state.Submitted(), state.Skipped())

	plan, err := planner.NewPlan(state, planner.PlanMetadata{
		Pipeline: pipeline.Name,
		Backend:  backend,
		DryRun:   opts.DryRun,
	})
	if err != nil {
		return nil, err
	}
	res := &Result{
		RunIndex: rl.Index,
		Plan:     plan,
		PlanPath: rl.PlanPath(opts.PlanFormat),
		LogPath:  rl.LogPath(),
		Metrics:  metrics,
	}
	if err := render.NewRenderer().WritePlan(plan, res.PlanPath); err != nil {
		return nil, err
	}
	r.done("Run plan written to %s", res.PlanPath)

	switch {
	case opts.DryRun:
		logger.Info("dry run complete, not waiting")
		return res, nil
	case metrics == "":
		logger.Info("nothing to submit, every output is already published")
		r.done("Nothing to submit")
		return res, nil
	case opts.NoWait:
		logger.Info("not waiting for completion", zap.Stringer("job", metrics))
		return res, nil
	}

	r.step("Waiting for job %s...", metrics)
	w := NewWaiter(sched, logger.Logger)
	if r.Clock != nil {
		w.Clock = r.Clock
	}
	if r.PollInterval > 0 {
		w.Interval = r.PollInterval
	}
	if r.MaxPollFailures > 0 {
		w.MaxFailures = r.MaxPollFailures
	}
	if err := w.Wait(ctx, metrics); err != nil {
		return nil, err
	}
	res.Waited = true
	r.done("Run complete")
	return res, nil
}

// Default returns a runner writing progress to stdout and logs to stderr.
func Default() *Runner {
	return NewRunner(os.Stdout, os.Stderr)
}
