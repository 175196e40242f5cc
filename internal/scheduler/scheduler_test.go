package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	cerror "github.com/sourceplane/varcall/internal/errors"
	"github.com/sourceplane/varcall/internal/jobscript"
	"github.com/sourceplane/varcall/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name string
	args []string
}

// fakeExecutor replays canned responses and records calls
type fakeExecutor struct {
	calls     []call
	responses []response
}

type response struct {
	out string
	err error
}

func (f *fakeExecutor) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	if len(f.responses) == 0 {
		return nil, errors.New("no response queued")
	}
	r := f.responses[0]
	f.responses = f.responses[1:]
	return []byte(r.out), r.err
}

func testJob(deps []model.JobHandle, killOnError bool) *jobscript.Job {
	return &jobscript.Job{
		Name:         "mutect",
		ID:           "P1_T1",
		Command:      "gatk Mutect2",
		Resources:    model.Resources{CPUs: 2, MemMB: 8192, Time: 26*time.Hour + 30*time.Minute},
		Dependencies: deps,
		KillOnError:  killOnError,
		Script:       "/logs/1_mutect_P1_T1.sh",
		Log:          "/logs/1_mutect_P1_T1.log",
	}
}

func TestDryRunNeverCallsExecutor(t *testing.T) {
	exec := &fakeExecutor{}
	a, err := New(Config{Backend: "slurm", DryRun: true}, exec)
	require.NoError(t, err)

	first, err := a.Submit(context.Background(), testJob(nil, true))
	require.NoError(t, err)
	second, err := a.Submit(context.Background(), testJob([]model.JobHandle{first}, true))
	require.NoError(t, err)

	assert.True(t, first.IsDryRun())
	assert.True(t, second.IsDryRun())
	assert.NotEqual(t, first, second)

	state, err := a.Poll(context.Background(), first)
	require.NoError(t, err)
	assert.Equal(t, model.StateUnknown, state)

	assert.Empty(t, exec.calls)
}

func TestSlurmSubmit(t *testing.T) {
	exec := &fakeExecutor{responses: []response{{out: "4242\n"}}}
	a, err := New(Config{Backend: "slurm", ExtraArgs: `--account=genomics --qos "high prio"`}, exec)
	require.NoError(t, err)

	handle, err := a.Submit(context.Background(), testJob([]model.JobHandle{"11", "12"}, true))
	require.NoError(t, err)
	assert.Equal(t, model.JobHandle("4242"), handle)

	require.Len(t, exec.calls, 1)
	assert.Equal(t, "sbatch", exec.calls[0].name)
	assert.Equal(t, []string{
		"--parsable",
		"--job-name=mutect_P1_T1",
		"--output=/logs/1_mutect_P1_T1.log",
		"--cpus-per-task=2",
		"--mem=8192M",
		"--time=1-02:30:00",
		"--dependency=afterok:11:12",
		"--kill-on-invalid-dep=yes",
		"--account=genomics",
		"--qos",
		"high prio",
		"/logs/1_mutect_P1_T1.sh",
	}, exec.calls[0].args)
}

func TestSubmitFailureIsNotRetried(t *testing.T) {
	exec := &fakeExecutor{responses: []response{{err: errors.New("sbatch: error: invalid partition")}}}
	a, err := New(Config{Backend: "slurm"}, exec)
	require.NoError(t, err)

	_, err = a.Submit(context.Background(), testJob(nil, true))
	require.Error(t, err)
	assert.True(t, cerror.Is(err, cerror.ErrSchedulerSubmit))
	assert.Len(t, exec.calls, 1)
}

func TestEncodeDependencies(t *testing.T) {
	handles := []model.JobHandle{"1", "2"}

	tests := []struct {
		name        string
		backend     Backend
		handles     []model.JobHandle
		killOnError bool
		want        []string
	}{
		{"slurm none", Slurm{}, nil, true, nil},
		{"slurm afterok", Slurm{}, handles, true, []string{"--dependency=afterok:1:2", "--kill-on-invalid-dep=yes"}},
		{"slurm afterany", Slurm{}, handles, false, []string{"--dependency=afterany:1:2"}},
		{"lsf none", LSF{}, nil, false, nil},
		{"lsf done", LSF{}, handles, true, []string{"-w", "done(1) && done(2)", "-ti"}},
		{"lsf ended", LSF{}, handles, false, []string{"-w", "ended(1) && ended(2)"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.backend.EncodeDependencies(tt.handles, tt.killOnError))
		})
	}
}

func TestParseState(t *testing.T) {
	tests := []struct {
		backend Backend
		out     string
		want    model.JobState
	}{
		{Slurm{}, "   PENDING \n", model.StatePending},
		{Slurm{}, "RUNNING", model.StateRunning},
		{Slurm{}, "COMPLETED\n", model.StateCompleted},
		{Slurm{}, "CANCELLED by 1000\n", model.StateFailed},
		{Slurm{}, "OUT_OF_MEMORY+", model.StateFailed},
		{Slurm{}, "", model.StateUnknown},
		{LSF{}, "PEND", model.StatePending},
		{LSF{}, "RUN\n", model.StateRunning},
		{LSF{}, "DONE", model.StateCompleted},
		{LSF{}, "EXIT", model.StateFailed},
		{LSF{}, "UNKWN", model.StateUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.backend.ParseState([]byte(tt.out)), "%s %q", tt.backend.Name(), tt.out)
	}
}

func TestParseJobID(t *testing.T) {
	h, err := Slurm{}.ParseJobID([]byte("981;cluster1\n"))
	require.NoError(t, err)
	assert.Equal(t, model.JobHandle("981"), h)

	_, err = Slurm{}.ParseJobID([]byte("sbatch: error: Batch job submission failed"))
	assert.Error(t, err)

	h, err = LSF{}.ParseJobID([]byte("Job <5521> is submitted to default queue <normal>.\n"))
	require.NoError(t, err)
	assert.Equal(t, model.JobHandle("5521"), h)

	_, err = LSF{}.ParseJobID([]byte("Request aborted by esub."))
	assert.Error(t, err)
}

func TestPollClassifiesFailures(t *testing.T) {
	exec := &fakeExecutor{responses: []response{
		{err: errors.New("sacct failed: exit status 1: slurm_load_jobs error: Socket timed out on send/recv operation")},
		{out: "sacct: error: Connection timed out\n"},
		{err: errors.New("sacct failed: exit status 1: Invalid job id specified")},
		{out: "RUNNING\n"},
	}}
	a, err := New(Config{Backend: "slurm"}, exec)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = a.Poll(ctx, "77")
	assert.True(t, cerror.IsTransientPoll(err))

	_, err = a.Poll(ctx, "77")
	assert.True(t, cerror.IsTransientPoll(err))

	_, err = a.Poll(ctx, "77")
	require.Error(t, err)
	assert.False(t, cerror.IsTransientPoll(err))
	assert.True(t, cerror.Is(err, cerror.ErrPollFailed))

	state, err := a.Poll(ctx, "77")
	require.NoError(t, err)
	assert.Equal(t, model.StateRunning, state)

	assert.Equal(t, []string{"-j", "77", "-X", "-n", "-o", "State"}, exec.calls[0].args)
}

func TestLSFSubmitArgs(t *testing.T) {
	args := LSF{}.SubmitArgs(testJob([]model.JobHandle{"3"}, false), nil)
	assert.Equal(t, []string{
		"-J", "mutect_P1_T1",
		"-o", "/logs/1_mutect_P1_T1.log",
		"-n", "2",
		"-M", "8192",
		"-R", "rusage[mem=8192]",
		"-W", "26:30",
		"-w", "ended(3)",
		"/logs/1_mutect_P1_T1.sh",
	}, args)
}

func TestMetricsCommand(t *testing.T) {
	handles := []model.JobHandle{"1", "2", "3"}
	assert.Contains(t, Slurm{}.MetricsCommand(handles, "/logs/slurm_job_metrics_1.out"), "sacct -j 1,2,3 ")
	assert.Contains(t, LSF{}.MetricsCommand(handles, "/logs/lsf_job_metrics_1.out"), "\" 1 2 3 > /logs/lsf_job_metrics_1.out")
}

func TestUnknownBackend(t *testing.T) {
	_, err := New(Config{Backend: "pbs"}, &fakeExecutor{})
	require.Error(t, err)
	assert.True(t, cerror.Is(err, cerror.ErrUnknownBackend))
}
