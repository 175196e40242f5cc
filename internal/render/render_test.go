package render

import (
	"path/filepath"
	"strings"
	"testing"

	cerror "github.com/sourceplane/varcall/internal/errors"
	"github.com/sourceplane/varcall/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePlan() *model.Plan {
	return &model.Plan{
		APIVersion: "varcall.sourceplane.io/v1",
		Kind:       "RunPlan",
		Metadata: model.PlanMetadata{
			Pipeline:  "somatic-mutect2",
			RunIndex:  3,
			Backend:   "slurm",
			Submitted: 3,
			Skipped:   1,
		},
		Jobs: []model.PlanJob{
			{ID: "11", Name: "mutect", Phase: "call", Patient: "P1", Sample: "T1", Outcome: "submitted", DependsOn: []string{}, KillOnError: true},
			{ID: "12", Name: "publish_call", Phase: "call", Patient: "P1", Sample: "T1", Outcome: "submitted", DependsOn: []string{"11"}, KillOnError: true},
			{ID: "13", Name: "metrics", Phase: "metrics", Outcome: "submitted", DependsOn: []string{"11", "12"}},
			{ID: "skipped-0", Name: "align", Phase: "align", Patient: "P1", Sample: "N1", Outcome: "skipped", DependsOn: []string{}, Sentinel: "/out/P1/N1/N1.recal.bam.md5"},
		},
	}
}

func TestWriteAndLoadPlan(t *testing.T) {
	r := NewRenderer()
	dir := t.TempDir()

	for _, name := range []string{"plan.json", "plan.yaml"} {
		path := filepath.Join(dir, "logs", name)
		require.NoError(t, r.WritePlan(samplePlan(), path))

		loaded, err := LoadPlan(path)
		require.NoError(t, err)
		assert.Equal(t, samplePlan(), loaded, name)
	}
}

func TestWritePlanReportsUnwritablePath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, NewRenderer().WritePlan(samplePlan(), blocker))

	err := NewRenderer().WritePlan(samplePlan(), filepath.Join(blocker, "plan.json"))
	require.Error(t, err)
	assert.True(t, cerror.Is(err, cerror.ErrPlanWrite))
}

func TestViewDAG(t *testing.T) {
	out := NewPlanViewer(samplePlan()).ViewDAG()

	assert.Contains(t, out, "├─ (run)\n")
	assert.Contains(t, out, "└─ P1\n")
	assert.Contains(t, out, "mutect [11]")
	assert.Contains(t, out, "align (skipped)")
	assert.Contains(t, out, "metrics [13] (fan-in)")
	assert.Contains(t, out, "(depends on) 11")
	assert.True(t, strings.HasSuffix(out, "Summary: 1 patients, 3 submitted, 1 skipped\n"))

	// samples of a patient are sorted
	assert.Less(t, strings.Index(out, "N1"), strings.Index(out, "T1"))
}

func TestViewByPatient(t *testing.T) {
	v := NewPlanViewer(samplePlan())

	out := v.ViewByPatient("P1")
	assert.Contains(t, out, "T1 (2 jobs)")
	assert.Contains(t, out, "Sentinel: /out/P1/N1/N1.recal.bam.md5")
	assert.NotContains(t, out, "metrics")

	assert.Equal(t, "No jobs found for patient: P9", v.ViewByPatient("P9"))
}

func TestViewDependencies(t *testing.T) {
	out := NewPlanViewer(samplePlan()).ViewDependencies()

	assert.Contains(t, out, "mutect [11] (P1/T1)\n   (no dependencies)")
	assert.Contains(t, out, "└─ metrics [13] ((run))")
	assert.NotContains(t, out, "skipped-0")

	empty := NewPlanViewer(&model.Plan{}).ViewDependencies()
	assert.Equal(t, "No jobs in plan", empty)
}

func TestDebugDump(t *testing.T) {
	out := NewRenderer().DebugDump(samplePlan())
	assert.Contains(t, out, "Plan: somatic-mutect2 run 3 on slurm\n")
	assert.Contains(t, out, "Jobs: 3 submitted, 1 skipped")
	assert.Contains(t, out, "  KillOnError: false\n")
}
