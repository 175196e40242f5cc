package runlog

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunIndexIsMonotonic(t *testing.T) {
	out := t.TempDir()

	var indices []int
	for i := 0; i < 3; i++ {
		r, err := Open(out, "somatic-mutect2", "slurm")
		require.NoError(t, err)
		indices = append(indices, r.Index)
	}
	assert.Equal(t, []int{1, 2, 3}, indices)

	dir := Dir(out, "somatic-mutect2")
	n, err := CountRuns(dir, "slurm")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// other backends and pipelines count separately
	r, err := Open(out, "somatic-mutect2", "lsf")
	require.NoError(t, err)
	assert.Equal(t, 1, r.Index)
	r, err = Open(out, "germline", "slurm")
	require.NoError(t, err)
	assert.Equal(t, 1, r.Index)
}

func TestRunIndexSkipsTakenSlots(t *testing.T) {
	out := t.TempDir()
	dir := Dir(out, "rnaseq")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	// runs 1 and 3 exist, 2 was removed by hand
	for _, name := range []string{"slurm_job_metrics_1.out", "slurm_job_metrics_3.out"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	r, err := Open(out, "rnaseq", "slurm")
	require.NoError(t, err)
	assert.Equal(t, 4, r.Index)
}

func TestConcurrentOpenClaimsDistinctIndices(t *testing.T) {
	out := t.TempDir()

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		indices []int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := Open(out, "germline", "slurm")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			indices = append(indices, r.Index)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Ints(indices)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, indices)
}

func TestPeekDoesNotClaim(t *testing.T) {
	out := t.TempDir()

	for i := 0; i < 2; i++ {
		r, err := Peek(out, "germline", "slurm")
		require.NoError(t, err)
		assert.Equal(t, 1, r.Index)
		assert.NoFileExists(t, r.MetricsPath())
		assert.DirExists(t, r.Dir)
		assert.Equal(t, filepath.Join(r.Dir, "germline_pipeline_1_dryrun.log"), r.LogPath())
		assert.Equal(t, filepath.Join(r.Dir, "germline_plan_1_dryrun.json"), r.PlanPath("json"))
	}

	dry, err := Peek(out, "germline", "slurm")
	require.NoError(t, err)
	r, err := Open(out, "germline", "slurm")
	require.NoError(t, err)
	assert.Equal(t, 1, r.Index)
	assert.False(t, r.DryRun)
	assert.NotEqual(t, dry.LogPath(), r.LogPath())
	assert.NotEqual(t, dry.PlanPath("json"), r.PlanPath("json"))
}

func TestPaths(t *testing.T) {
	r := &RunLog{Dir: "/out/logs/germline", Pipeline: "germline", Backend: "lsf", Index: 7}
	assert.Equal(t, "/out/logs/germline/germline_pipeline_7.log", r.LogPath())
	assert.Equal(t, "/out/logs/germline/lsf_job_metrics_7.out", r.MetricsPath())
	assert.Equal(t, "/out/logs/germline/germline_plan_7.json", r.PlanPath("json"))
	assert.Equal(t, "/out/logs/germline/germline_plan_7.yaml", r.PlanPath("yaml"))
}

func TestOpenFailsOnUnwritableOutDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := Open(file, "germline", "slurm")
	assert.Error(t, err)
}
