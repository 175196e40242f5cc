package jobscript

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	cerror "github.com/sourceplane/varcall/internal/errors"
	"github.com/sourceplane/varcall/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeJobWritesScript(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, 3)

	res := model.Resources{CPUs: 4, MemMB: 16384, Time: 2 * time.Hour, JavaMem: "12g"}
	job, err := w.MakeJob("mutect", "P1/T 1", "gatk Mutect2 -I T1.bam", res,
		[]model.JobHandle{"101", "102"}, []string{"gatk/4.1.9.0", "samtools/1.17"}, true)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "3_mutect_P1_T_1.sh"), job.Script)
	assert.Equal(t, filepath.Join(dir, "3_mutect_P1_T_1.log"), job.Log)
	assert.True(t, job.KillOnError)
	assert.Equal(t, []model.JobHandle{"101", "102"}, job.Dependencies)

	data, err := os.ReadFile(job.Script)
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/bash\n"+
		"# mutect P1/T 1\n"+
		"set -euo pipefail\n"+
		"module load gatk/4.1.9.0\n"+
		"module load samtools/1.17\n"+
		"\n"+
		"gatk Mutect2 -I T1.bam\n", string(data))

	info, err := os.Stat(job.Script)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0o100)
}

func TestMakeFanIn(t *testing.T) {
	w := NewWriter(t.TempDir(), 1)
	job, err := w.MakeFanIn("cleanup", "P1", "rm -rf /out/P1/*/tmp", model.Resources{CPUs: 1}, []model.JobHandle{"7"}, nil)
	require.NoError(t, err)
	assert.False(t, job.KillOnError)
}

func TestMakeJobErrors(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "absent"), 1)

	_, err := w.MakeJob("align", "N1", "", model.Resources{}, nil, nil, true)
	assert.Error(t, err)

	_, err = w.MakeJob("align", "N1", "true", model.Resources{}, nil, nil, true)
	require.Error(t, err)
	assert.True(t, cerror.Is(err, cerror.ErrScriptWrite))
}

func TestMakeJobKeepsCollidingIDsApart(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, 2)

	// patient P1 sample A_B and patient P1_A sample B sanitise alike
	first, err := w.MakeJob("apply_bqsr", "P1_A_B", "echo first", model.Resources{}, nil, nil, true)
	require.NoError(t, err)
	second, err := w.MakeJob("apply_bqsr", "P1_A_B", "echo second", model.Resources{}, nil, nil, true)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "2_apply_bqsr_P1_A_B.sh"), first.Script)
	assert.Equal(t, filepath.Join(dir, "2_apply_bqsr_P1_A_B.2.sh"), second.Script)
	assert.NotEqual(t, first.Log, second.Log)

	data, err := os.ReadFile(first.Script)
	require.NoError(t, err)
	assert.Contains(t, string(data), "echo first")
	data, err = os.ReadFile(second.Script)
	require.NoError(t, err)
	assert.Contains(t, string(data), "echo second")
}

func TestDryRunScriptsAreTagged(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, 4)
	w.DryRun = true

	job, err := w.MakeJob("mutect", "P1_T1", "gatk Mutect2", model.Resources{}, nil, nil, true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "4_dryrun_mutect_P1_T1.sh"), job.Script)
	assert.Equal(t, filepath.Join(dir, "4_dryrun_mutect_P1_T1.log"), job.Log)
}

func TestSanitizeID(t *testing.T) {
	assert.Equal(t, "P1_N-1.a", SanitizeID("P1/N-1.a"))
	assert.Equal(t, "x", SanitizeID("  x  "))
}
