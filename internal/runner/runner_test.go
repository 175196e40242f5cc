package runner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/benbjohnson/clock"
	cerror "github.com/sourceplane/varcall/internal/errors"
	"github.com/sourceplane/varcall/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSlurm answers sbatch with sequential IDs and sacct with a fixed state
type fakeSlurm struct {
	mu     sync.Mutex
	state  string
	nextID int
	calls  map[string][][]string
}

func newFakeSlurm(state string) *fakeSlurm {
	return &fakeSlurm{state: state, calls: make(map[string][][]string)}
}

func (f *fakeSlurm) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name] = append(f.calls[name], args)
	switch name {
	case "sbatch":
		f.nextID++
		return []byte(fmt.Sprintf("%d\n", f.nextID)), nil
	case "sacct":
		return []byte(f.state + "\n"), nil
	}
	return nil, fmt.Errorf("unexpected command %s", name)
}

func (f *fakeSlurm) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls[name])
}

func testRunner(exec *fakeSlurm) (*Runner, *bytes.Buffer) {
	var out bytes.Buffer
	r := NewRunner(&out, nil)
	r.Executor = exec
	r.Clock = clock.NewMock()
	return r, &out
}

func testOptions(t *testing.T) Options {
	return Options{
		Pipeline:   "somatic-mutect2",
		ToolConfig: filepath.Join("testdata", "toolconfig.yaml"),
		Manifest:   filepath.Join("testdata", "manifest.yaml"),
		OutDir:     t.TempDir(),
	}
}

func TestDryRunSubmitsNothing(t *testing.T) {
	exec := newFakeSlurm("COMPLETED")
	r, out := testRunner(exec)
	opts := testOptions(t)
	opts.DryRun = true

	res, err := r.Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Zero(t, exec.count("sbatch"))
	assert.Zero(t, exec.count("sacct"))
	assert.False(t, res.Waited)
	assert.True(t, res.Plan.Metadata.DryRun)
	assert.Equal(t, 1, res.RunIndex)
	assert.True(t, res.Metrics.IsDryRun())
	for _, job := range res.Plan.Jobs {
		assert.True(t, model.JobHandle(job.ID).IsDryRun(), job.ID)
	}

	assert.FileExists(t, res.PlanPath)
	assert.NoFileExists(t, filepath.Join(opts.OutDir, "logs", "somatic-mutect2", "slurm_job_metrics_1.out"))
	assert.NoDirExists(t, filepath.Join(opts.OutDir, "P1"))
	assert.Contains(t, out.String(), "□ Dry-run mode enabled")
}

func TestRealRunKeepsDryRunFiles(t *testing.T) {
	exec := newFakeSlurm("COMPLETED")
	r, _ := testRunner(exec)
	opts := testOptions(t)
	opts.DryRun = true

	dry, err := r.Run(context.Background(), opts)
	require.NoError(t, err)
	dryScripts, err := filepath.Glob(filepath.Join(opts.OutDir, "logs", "somatic-mutect2", "1_dryrun_*.sh"))
	require.NoError(t, err)
	require.NotEmpty(t, dryScripts)
	dryLog, err := os.ReadFile(dry.LogPath)
	require.NoError(t, err)

	opts.DryRun = false
	opts.NoWait = true
	claimed, err := r.Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, dry.RunIndex, claimed.RunIndex)
	assert.NotEqual(t, dry.LogPath, claimed.LogPath)
	assert.NotEqual(t, dry.PlanPath, claimed.PlanPath)
	assert.FileExists(t, dry.PlanPath)

	after, err := os.ReadFile(dry.LogPath)
	require.NoError(t, err)
	assert.Equal(t, dryLog, after, "the real run does not append to the dry-run log")
	for _, script := range dryScripts {
		assert.FileExists(t, script)
	}

	realScripts, err := filepath.Glob(filepath.Join(opts.OutDir, "logs", "somatic-mutect2", "1_apply_bqsr_*.sh"))
	require.NoError(t, err)
	assert.NotEmpty(t, realScripts)
}

func TestRunWaitsForMetricsJob(t *testing.T) {
	exec := newFakeSlurm("COMPLETED")
	r, out := testRunner(exec)
	opts := testOptions(t)

	res, err := r.Run(context.Background(), opts)
	require.NoError(t, err)

	// prepare, 14 jobs for P1, 11 for the tumour-only P2, metrics
	assert.Equal(t, 27, exec.count("sbatch"))
	assert.Equal(t, model.JobHandle("27"), res.Metrics)
	assert.True(t, res.Waited)
	require.Equal(t, 1, exec.count("sacct"))
	assert.Contains(t, exec.calls["sacct"][0], "27")

	for _, args := range exec.calls["sbatch"] {
		assert.Contains(t, args, "--account=genomics")
	}

	logDir := filepath.Join(opts.OutDir, "logs", "somatic-mutect2")
	assert.FileExists(t, filepath.Join(logDir, "slurm_job_metrics_1.out"))
	assert.Equal(t, filepath.Join(logDir, "somatic-mutect2_plan_1.json"), res.PlanPath)

	data, err := os.ReadFile(res.LogPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "starting run")

	assert.Contains(t, out.String(), "✓ Run complete")
}

func TestRunIndexAdvancesAcrossRuns(t *testing.T) {
	exec := newFakeSlurm("COMPLETED")
	r, _ := testRunner(exec)
	opts := testOptions(t)
	opts.NoWait = true
	opts.PlanFormat = "yaml"

	first, err := r.Run(context.Background(), opts)
	require.NoError(t, err)
	second, err := r.Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 1, first.RunIndex)
	assert.Equal(t, 2, second.RunIndex)
	assert.True(t, strings.HasSuffix(second.PlanPath, "somatic-mutect2_plan_2.yaml"))
	assert.Zero(t, exec.count("sacct"), "no-wait never polls")
	assert.False(t, second.Waited)
}

func TestRunReportsFailedFinalJob(t *testing.T) {
	r, _ := testRunner(newFakeSlurm("FAILED"))

	_, err := r.Run(context.Background(), testOptions(t))
	require.Error(t, err)
	assert.True(t, cerror.Is(err, cerror.ErrStageFailed))
}

func TestRunRejectsBadInvocations(t *testing.T) {
	r, _ := testRunner(newFakeSlurm("COMPLETED"))

	opts := testOptions(t)
	opts.OutDir = ""
	_, err := r.Run(context.Background(), opts)
	assert.True(t, cerror.Is(err, cerror.ErrMissingFlag))

	opts = testOptions(t)
	opts.Pipeline = "somatic-strelka"
	_, err = r.Run(context.Background(), opts)
	assert.True(t, cerror.Is(err, cerror.ErrUnknownPipeline))

	opts = testOptions(t)
	opts.Backend = "pbs"
	_, err = r.Run(context.Background(), opts)
	assert.True(t, cerror.Is(err, cerror.ErrUnknownBackend))

	opts = testOptions(t)
	opts.ToolConfig = ""
	_, err = r.Run(context.Background(), opts)
	assert.True(t, cerror.Is(err, cerror.ErrMissingFlag))
}
