package model

// Plan is the audit record of one pipeline invocation
type Plan struct {
	APIVersion string       `json:"apiVersion" yaml:"apiVersion"`
	Kind       string       `json:"kind" yaml:"kind"`
	Metadata   PlanMetadata `json:"metadata" yaml:"metadata"`
	Jobs       []PlanJob    `json:"jobs" yaml:"jobs"`
}

// PlanMetadata identifies the invocation a plan belongs to
type PlanMetadata struct {
	Pipeline  string `json:"pipeline" yaml:"pipeline"`
	RunIndex  int    `json:"runIndex" yaml:"runIndex"`
	Backend   string `json:"backend" yaml:"backend"`
	DryRun    bool   `json:"dryRun" yaml:"dryRun"`
	Submitted int    `json:"submitted" yaml:"submitted"`
	Skipped   int    `json:"skipped" yaml:"skipped"`
}

// PlanJob is one stage decision in the plan
type PlanJob struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Phase       string   `json:"phase,omitempty" yaml:"phase,omitempty"`
	Patient     string   `json:"patient,omitempty" yaml:"patient,omitempty"`
	Sample      string   `json:"sample,omitempty" yaml:"sample,omitempty"`
	Outcome     string   `json:"outcome" yaml:"outcome"`
	DependsOn   []string `json:"dependsOn" yaml:"dependsOn"`
	Sentinel    string   `json:"sentinel,omitempty" yaml:"sentinel,omitempty"`
	Script      string   `json:"script,omitempty" yaml:"script,omitempty"`
	KillOnError bool     `json:"killOnError" yaml:"killOnError"`
}
