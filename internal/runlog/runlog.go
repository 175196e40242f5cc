// Package runlog owns the per-pipeline log directory and the run index that
// prefixes every file written during one invocation.
package runlog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	cerror "github.com/sourceplane/varcall/internal/errors"
)

const (
	// maxClaimAttempts bounds the search for a free run index
	maxClaimAttempts = 100
	claimRetryDelay  = 10 * time.Millisecond
)

// RunLog is a claimed run index inside a log directory
type RunLog struct {
	Dir      string
	Pipeline string
	Backend  string
	Index    int
	// DryRun marks an unclaimed index, its files carry a dryrun tag
	DryRun bool
}

// Dir returns the log directory of pipeline under outDir.
func Dir(outDir, pipeline string) string {
	return filepath.Join(outDir, "logs", pipeline)
}

// Open creates the log directory and claims the next run index. The index is
// one more than the number of metrics placeholders already present; the
// placeholder of the new index is created exclusively so two concurrent
// invocations never share an index.
func Open(outDir, pipeline, backend string) (*RunLog, error) {
	dir := Dir(outDir, pipeline)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, cerror.WrapError(cerror.ErrLogDirCreate, err, dir)
	}

	start, err := CountRuns(dir, backend)
	if err != nil {
		return nil, err
	}

	r := &RunLog{Dir: dir, Pipeline: pipeline, Backend: backend}
	candidate := start + 1
	op := func() error {
		r.Index = candidate
		path := r.MetricsPath()
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if os.IsExist(err) {
			candidate++
			return err
		} else if err != nil {
			return backoff.Permanent(cerror.WrapError(cerror.ErrMetricsPlaceholder, err, path))
		}
		return f.Close()
	}

	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(claimRetryDelay), maxClaimAttempts-1)
	if err := backoff.Retry(op, policy); err != nil {
		if os.IsExist(err) {
			return nil, cerror.WrapError(cerror.ErrRunIndexExhausted, err, dir, maxClaimAttempts)
		}
		return nil, err
	}
	return r, nil
}

// Peek returns the index the next Open would claim without claiming it. The
// log directory is still created so job scripts can be written; the run log
// and plan of a peeked index are tagged so the real run keeps its own.
func Peek(outDir, pipeline, backend string) (*RunLog, error) {
	dir := Dir(outDir, pipeline)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, cerror.WrapError(cerror.ErrLogDirCreate, err, dir)
	}
	n, err := CountRuns(dir, backend)
	if err != nil {
		return nil, err
	}
	return &RunLog{Dir: dir, Pipeline: pipeline, Backend: backend, Index: n + 1, DryRun: true}, nil
}

// CountRuns returns how many runs of backend have claimed an index in dir.
func CountRuns(dir, backend string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, fmt.Sprintf("%s_job_metrics_*.out", backend)))
	if err != nil {
		return 0, err
	}
	return len(matches), nil
}

func (r *RunLog) tag() string {
	if r.DryRun {
		return fmt.Sprintf("%d_dryrun", r.Index)
	}
	return fmt.Sprintf("%d", r.Index)
}

// LogPath is the run log of this invocation.
func (r *RunLog) LogPath() string {
	return filepath.Join(r.Dir, fmt.Sprintf("%s_pipeline_%s.log", r.Pipeline, r.tag()))
}

// MetricsPath is the placeholder the metrics job fills in.
func (r *RunLog) MetricsPath() string {
	return filepath.Join(r.Dir, fmt.Sprintf("%s_job_metrics_%d.out", r.Backend, r.Index))
}

// PlanPath is the rendered run plan for format "json" or "yaml".
func (r *RunLog) PlanPath(format string) string {
	ext := "json"
	if format == "yaml" || format == "yml" {
		ext = "yaml"
	}
	return filepath.Join(r.Dir, fmt.Sprintf("%s_plan_%s.%s", r.Pipeline, r.tag(), ext))
}
