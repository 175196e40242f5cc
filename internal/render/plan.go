package render

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cerror "github.com/sourceplane/varcall/internal/errors"
	"github.com/sourceplane/varcall/internal/model"
	"gopkg.in/yaml.v3"
)

// Renderer serializes run plans
type Renderer struct{}

// NewRenderer creates a new renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

// RenderJSON renders plan as JSON
func (r *Renderer) RenderJSON(plan *model.Plan) ([]byte, error) {
	return json.MarshalIndent(plan, "", "  ")
}

// RenderYAML renders plan as YAML
func (r *Renderer) RenderYAML(plan *model.Plan) ([]byte, error) {
	return yaml.Marshal(plan)
}

// WritePlan writes plan to file (JSON or YAML based on extension)
func (r *Renderer) WritePlan(plan *model.Plan, path string) error {
	var data []byte
	var err error

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return cerror.WrapError(cerror.ErrPlanWrite, err, path)
		}
	}

	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		data, err = r.RenderYAML(plan)
	default:
		data, err = r.RenderJSON(plan)
	}
	if err != nil {
		return cerror.WrapError(cerror.ErrPlanWrite, err, path)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return cerror.WrapError(cerror.ErrPlanWrite, err, path)
	}
	return nil
}

// LoadPlan reads a plan written by WritePlan.
func LoadPlan(path string) (*model.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}

	var plan model.Plan
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &plan)
	default:
		err = json.Unmarshal(data, &plan)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse plan %s: %w", path, err)
	}
	return &plan, nil
}

// DebugDump outputs debug information about the plan
func (r *Renderer) DebugDump(plan *model.Plan) string {
	var sb strings.Builder
	m := plan.Metadata
	fmt.Fprintf(&sb, "Plan: %s run %d on %s", m.Pipeline, m.RunIndex, m.Backend)
	if m.DryRun {
		sb.WriteString(" (dry run)")
	}
	fmt.Fprintf(&sb, "\nJobs: %d submitted, %d skipped\n\n", m.Submitted, m.Skipped)

	for _, job := range plan.Jobs {
		fmt.Fprintf(&sb, "Job: %s\n", job.ID)
		fmt.Fprintf(&sb, "  Name: %s\n", job.Name)
		if job.Patient != "" {
			fmt.Fprintf(&sb, "  Patient: %s\n", job.Patient)
		}
		if job.Sample != "" {
			fmt.Fprintf(&sb, "  Sample: %s\n", job.Sample)
		}
		fmt.Fprintf(&sb, "  Outcome: %s\n", job.Outcome)
		fmt.Fprintf(&sb, "  KillOnError: %t\n", job.KillOnError)
		fmt.Fprintf(&sb, "  DependsOn: %v\n", job.DependsOn)
		if job.Script != "" {
			fmt.Fprintf(&sb, "  Script: %s\n", job.Script)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
