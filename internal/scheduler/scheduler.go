// Package scheduler submits job scripts to a batch scheduler and queries
// their state. Everything specific to one scheduler lives behind Backend.
package scheduler

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/mattn/go-shellwords"
	cerror "github.com/sourceplane/varcall/internal/errors"
	"github.com/sourceplane/varcall/internal/jobscript"
	"github.com/sourceplane/varcall/internal/model"
	"go.uber.org/zap"
)

// Scheduler is what the graph builder and run controller need from a
// batch system
type Scheduler interface {
	Submit(ctx context.Context, job *jobscript.Job) (model.JobHandle, error)
	Poll(ctx context.Context, handle model.JobHandle) (model.JobState, error)
	MetricsCommand(handles []model.JobHandle, out string) string
	Name() string
}

// Backend translates jobs and status queries into one scheduler's CLI
type Backend interface {
	Name() string
	// SubmitCommand is the submission binary, e.g. sbatch
	SubmitCommand() string
	SubmitArgs(job *jobscript.Job, extra []string) []string
	// EncodeDependencies returns the dependency arguments; none for no handles
	EncodeDependencies(handles []model.JobHandle, killOnError bool) []string
	ParseJobID(out []byte) (model.JobHandle, error)
	StatusCommand() string
	StatusArgs(handle model.JobHandle) []string
	ParseState(out []byte) model.JobState
	MetricsCommand(handles []model.JobHandle, out string) string
}

// transientMarkers identify status failures that go away on retry
var transientMarkers = []string{
	"Connection timed out",
	"Socket timed out",
	"slurm_load_jobs error",
}

// IsTransient reports whether scheduler output names a recoverable failure.
func IsTransient(output string) bool {
	for _, m := range transientMarkers {
		if strings.Contains(output, m) {
			return true
		}
	}
	return false
}

// Config selects and configures a scheduler adapter
type Config struct {
	Backend string
	DryRun  bool
	// ExtraArgs are appended to every submission, split like a shell would
	ExtraArgs string
	Logger    *zap.Logger
}

// Adapter implements Scheduler on top of a Backend and an Executor
type Adapter struct {
	backend   Backend
	exec      Executor
	dryRun    bool
	extraArgs []string
	logger    *zap.Logger

	dryRunCount int64
}

// New creates the adapter for cfg.Backend.
func New(cfg Config, exec Executor) (*Adapter, error) {
	backend, err := NewBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}

	extra, err := shellwords.Parse(cfg.ExtraArgs)
	if err != nil {
		return nil, cerror.WrapError(cerror.ErrConfigInvalid, err, "scheduler.extra_args")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if exec == nil {
		exec = ExecExecutor{}
	}
	return &Adapter{
		backend:   backend,
		exec:      exec,
		dryRun:    cfg.DryRun,
		extraArgs: extra,
		logger:    logger.With(zap.String("backend", backend.Name())),
	}, nil
}

// NewBackend returns the backend registered under name.
func NewBackend(name string) (Backend, error) {
	switch strings.ToLower(name) {
	case "slurm":
		return Slurm{}, nil
	case "lsf":
		return LSF{}, nil
	default:
		return nil, cerror.ErrUnknownBackend.GenWithStackByArgs(name)
	}
}

// Backends lists the supported backend names.
func Backends() []string {
	return []string{"slurm", "lsf"}
}

// Name returns the backend name.
func (a *Adapter) Name() string {
	return a.backend.Name()
}

// DryRun reports whether submissions are simulated.
func (a *Adapter) DryRun() bool {
	return a.dryRun
}

// Submit submits job and returns its handle. In dry run the executor is
// never called and a placeholder handle is returned.
func (a *Adapter) Submit(ctx context.Context, job *jobscript.Job) (model.JobHandle, error) {
	args := a.backend.SubmitArgs(job, a.extraArgs)

	if a.dryRun {
		handle := model.DryRunHandle(int(atomic.AddInt64(&a.dryRunCount, 1)))
		a.logger.Info("dry run, not submitting",
			zap.String("job", job.Name),
			zap.String("id", job.ID),
			zap.Stringer("handle", handle),
			zap.String("command", a.backend.SubmitCommand()+" "+strings.Join(args, " ")))
		return handle, nil
	}

	out, err := a.exec.Run(ctx, a.backend.SubmitCommand(), args...)
	if err != nil {
		return "", cerror.WrapError(cerror.ErrSchedulerSubmit, err, job.Script)
	}
	handle, err := a.backend.ParseJobID(out)
	if err != nil {
		return "", cerror.WrapError(cerror.ErrSchedulerSubmit, err, job.Script)
	}

	a.logger.Info("submitted job",
		zap.String("job", job.Name),
		zap.String("id", job.ID),
		zap.Stringer("handle", handle),
		zap.Stringers("dependencies", job.Dependencies))
	return handle, nil
}

// Poll returns the state of handle. Dry-run handles are always UNKNOWN.
func (a *Adapter) Poll(ctx context.Context, handle model.JobHandle) (model.JobState, error) {
	if handle.IsDryRun() {
		return model.StateUnknown, nil
	}

	out, err := a.exec.Run(ctx, a.backend.StatusCommand(), a.backend.StatusArgs(handle)...)
	if err != nil {
		if IsTransient(string(out)) || IsTransient(err.Error()) {
			return model.StateUnknown, cerror.WrapError(cerror.ErrPollTransient, err, handle)
		}
		return model.StateUnknown, cerror.WrapError(cerror.ErrPollFailed, err, handle)
	}
	if IsTransient(string(out)) {
		return model.StateUnknown, cerror.ErrPollTransient.GenWithStackByArgs(handle)
	}
	return a.backend.ParseState(out), nil
}

// MetricsCommand returns the command dumping accounting data of handles to out.
func (a *Adapter) MetricsCommand(handles []model.JobHandle, out string) string {
	return a.backend.MetricsCommand(handles, out)
}

// firstField returns the first whitespace separated token of the first
// non-empty line of out.
func firstField(out []byte) string {
	for _, line := range strings.Split(string(out), "\n") {
		if fields := strings.Fields(line); len(fields) > 0 {
			return fields[0]
		}
	}
	return ""
}

func joinHandles(handles []model.JobHandle, sep string) string {
	parts := make([]string, len(handles))
	for i, h := range handles {
		parts[i] = string(h)
	}
	return strings.Join(parts, sep)
}
