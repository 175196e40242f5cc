package planner

import (
	"testing"

	cerror "github.com/sourceplane/varcall/internal/errors"
	"github.com/sourceplane/varcall/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlanOrdersJobsAfterDependencies(t *testing.T) {
	state := model.NewRunState(4)
	state.Record(model.StageRecord{Name: "align", Phase: "align", Patient: "P1", Sample: "N1", Outcome: model.OutcomeSkipped, Sentinel: "/o/N1.recal.bam.md5"})
	state.Record(model.StageRecord{Name: "mutect", Phase: "call", Patient: "P1", Sample: "T1", Outcome: model.OutcomeSubmitted, Handle: "30", KillOnError: true})
	state.Record(model.StageRecord{Name: "publish_call", Phase: "call", Patient: "P1", Sample: "T1", Outcome: model.OutcomeSubmitted, Handle: "31", Dependencies: []model.JobHandle{"30"}, KillOnError: true})
	state.Record(model.StageRecord{Name: "collate", Phase: "finalize", Patient: "P1", Outcome: model.OutcomeSubmitted, Handle: "100", Dependencies: []model.JobHandle{"30", "31"}, FanIn: true})

	plan, err := NewPlan(state, PlanMetadata{Pipeline: "somatic-mutect2", Backend: "slurm"})
	require.NoError(t, err)

	assert.Equal(t, 4, plan.Metadata.RunIndex)
	assert.Equal(t, 3, plan.Metadata.Submitted)
	assert.Equal(t, 1, plan.Metadata.Skipped)

	require.Len(t, plan.Jobs, 4)
	ids := []string{plan.Jobs[0].ID, plan.Jobs[1].ID, plan.Jobs[2].ID}
	assert.Equal(t, []string{"30", "31", "100"}, ids)
	assert.Equal(t, "skipped", plan.Jobs[3].Outcome)
	assert.Empty(t, plan.Jobs[3].DependsOn)
	assert.False(t, plan.Jobs[2].KillOnError)
}

func TestJobGraphRejectsCycles(t *testing.T) {
	g := NewJobGraph([]model.PlanJob{
		{ID: "a", DependsOn: []string{"b"}},
		{ID: "b", DependsOn: []string{"a"}},
	})
	err := g.Validate()
	require.Error(t, err)
	assert.True(t, cerror.Is(err, cerror.ErrCyclicPlan))

	_, err = g.TopologicalSort()
	assert.Error(t, err)
}

func TestJobGraphRejectsUnknownDependency(t *testing.T) {
	g := NewJobGraph([]model.PlanJob{{ID: "a", DependsOn: []string{"zz"}}})
	assert.Error(t, g.Validate())
}
