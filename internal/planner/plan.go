package planner

import (
	"fmt"

	"github.com/sourceplane/varcall/internal/model"
)

const (
	planAPIVersion = "varcall.sourceplane.io/v1"
	planKind       = "RunPlan"
)

// PlanMetadata describes the invocation a plan is rendered for
type PlanMetadata struct {
	Pipeline string
	Backend  string
	DryRun   bool
}

// NewPlan converts the recorded stage decisions of state into a validated
// plan. Submitted jobs are keyed by handle and listed in dependency order,
// skipped stages follow in recording order.
func NewPlan(state *model.RunState, meta PlanMetadata) (*model.Plan, error) {
	plan := &model.Plan{
		APIVersion: planAPIVersion,
		Kind:       planKind,
		Metadata: model.PlanMetadata{
			Pipeline:  meta.Pipeline,
			RunIndex:  state.RunIndex,
			Backend:   meta.Backend,
			DryRun:    meta.DryRun,
			Submitted: state.Submitted(),
			Skipped:   state.Skipped(),
		},
	}

	submitted := make([]model.PlanJob, 0, state.Submitted())
	var skipped []model.PlanJob
	for i, rec := range state.Records {
		job := model.PlanJob{
			Name:        rec.Name,
			Phase:       rec.Phase,
			Patient:     rec.Patient,
			Sample:      rec.Sample,
			Outcome:     string(rec.Outcome),
			DependsOn:   handleStrings(rec.Dependencies),
			Sentinel:    rec.Sentinel,
			Script:      rec.Script,
			KillOnError: rec.KillOnError,
		}
		if rec.Outcome == model.OutcomeSubmitted {
			job.ID = string(rec.Handle)
			submitted = append(submitted, job)
			continue
		}
		job.ID = fmt.Sprintf("skipped-%d", i)
		skipped = append(skipped, job)
	}

	graph := NewJobGraph(submitted)
	if err := graph.Validate(); err != nil {
		return nil, err
	}
	order, err := graph.TopologicalSort()
	if err != nil {
		return nil, err
	}

	byID := make(map[string]model.PlanJob, len(submitted))
	for _, job := range submitted {
		byID[job.ID] = job
	}
	plan.Jobs = make([]model.PlanJob, 0, len(state.Records))
	for _, id := range order {
		plan.Jobs = append(plan.Jobs, byID[id])
	}
	plan.Jobs = append(plan.Jobs, skipped...)
	return plan, nil
}

func handleStrings(handles []model.JobHandle) []string {
	out := make([]string, len(handles))
	for i, h := range handles {
		out[i] = string(h)
	}
	return out
}
