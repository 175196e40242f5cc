package planner

import (
	"fmt"
	"sort"

	cerror "github.com/sourceplane/varcall/internal/errors"
	"github.com/sourceplane/varcall/internal/model"
)

// JobGraph represents the DAG of planned jobs with cycle detection and topological sorting
type JobGraph struct {
	jobs map[string]*model.PlanJob
}

// NewJobGraph creates a new job graph from plan jobs
func NewJobGraph(jobs []model.PlanJob) *JobGraph {
	g := &JobGraph{jobs: make(map[string]*model.PlanJob, len(jobs))}
	for i := range jobs {
		g.jobs[jobs[i].ID] = &jobs[i]
	}
	return g
}

// Validate checks that every dependency names a planned job and that the
// graph is acyclic
func (g *JobGraph) Validate() error {
	for _, id := range g.ids() {
		for _, dep := range g.jobs[id].DependsOn {
			if _, ok := g.jobs[dep]; !ok {
				return fmt.Errorf("job %s depends on unknown job %s", id, dep)
			}
		}
	}
	return g.DetectCycles()
}

// DetectCycles performs cycle detection on the job dependency graph using DFS
func (g *JobGraph) DetectCycles() error {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)

	for _, id := range g.ids() {
		if !visited[id] {
			if g.hasCycleDFS(id, visited, recStack) {
				return cerror.ErrCyclicPlan.GenWithStackByArgs()
			}
		}
	}

	return nil
}

// hasCycleDFS performs DFS cycle detection from a given node
func (g *JobGraph) hasCycleDFS(node string, visited, recStack map[string]bool) bool {
	visited[node] = true
	recStack[node] = true

	job, exists := g.jobs[node]
	if !exists {
		return false
	}

	for _, dep := range job.DependsOn {
		if !visited[dep] {
			if g.hasCycleDFS(dep, visited, recStack) {
				return true
			}
		} else if recStack[dep] {
			return true
		}
	}

	recStack[node] = false
	return false
}

// TopologicalSort orders job IDs so every job follows its dependencies,
// using Kahn's algorithm. Ties are broken by ID for stable output.
func (g *JobGraph) TopologicalSort() ([]string, error) {
	dependents := make(map[string][]string)
	inDegree := make(map[string]int)

	for id := range g.jobs {
		inDegree[id] = 0
	}
	for id, job := range g.jobs {
		for _, dep := range job.DependsOn {
			dependents[dep] = append(dependents[dep], id)
			inDegree[id]++
		}
	}

	queue := make([]string, 0)
	for id, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	sorted := make([]string, 0, len(g.jobs))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		sorted = append(sorted, current)

		for _, dependent := range dependents[current] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
		sort.Strings(queue)
	}

	if len(sorted) != len(g.jobs) {
		return nil, cerror.ErrCyclicPlan.GenWithStackByArgs()
	}

	return sorted, nil
}

func (g *JobGraph) ids() []string {
	ids := make([]string, 0, len(g.jobs))
	for id := range g.jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
