package planner

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/sourceplane/varcall/internal/command"
	cerror "github.com/sourceplane/varcall/internal/errors"
	"github.com/sourceplane/varcall/internal/model"
	"go.uber.org/multierr"
)

// stageList accumulates the stages of a phase. Specs are kept even when their
// command cannot be rendered so callers can still list stage keys.
type stageList struct {
	specs []StageSpec
	err   error
}

func (l *stageList) add(name, params string, tools []string, cmd string, err error) {
	l.specs = append(l.specs, StageSpec{Name: name, Params: params, Command: cmd, Tools: tools})
	l.err = multierr.Append(l.err, err)
}

func (l *stageList) result() ([]StageSpec, error) {
	return l.specs, l.err
}

// StageSpec is one job of a phase
type StageSpec struct {
	// Name is unique within the phase and names the job script
	Name string
	// Params is the tool config stage key holding resources; defaults to Name
	Params  string
	Command string
	// Tools are the module keys loaded before the command
	Tools []string
}

func (s StageSpec) paramsKey() string {
	if s.Params != "" {
		return s.Params
	}
	return s.Name
}

// Context is what a phase sees of the sample it is built for
type Context struct {
	Config *model.ToolConfig
	OutDir string
	Sample model.Sample
	// Normal is the patient's matched normal, nil when the patient has none
	// or the sample is itself a normal
	Normal *model.Sample
}

// SampleDir is the output directory of the sample.
func (c Context) SampleDir() string {
	return filepath.Join(c.OutDir, c.Sample.Patient, c.Sample.ID)
}

// Output returns the published path of the sample file with suffix.
func (c Context) Output(suffix string) string {
	return filepath.Join(c.SampleDir(), c.Sample.ID+suffix)
}

// Tmp returns the tentative path of the sample file with suffix.
func (c Context) Tmp(suffix string) string {
	return command.Tentative(c.Output(suffix))
}

// NormalOutput returns the published path of the matched normal's file, or
// "" without a matched normal.
func (c Context) NormalOutput(suffix string) string {
	if c.Normal == nil {
		return ""
	}
	return filepath.Join(c.OutDir, c.Normal.Patient, c.Normal.ID, c.Normal.ID+suffix)
}

// NormalID returns the matched normal's sample ID or "".
func (c Context) NormalID() string {
	if c.Normal == nil {
		return ""
	}
	return c.Normal.ID
}

// GATK returns the GATK invocation for the stage key.
func (c Context) GATK(stage string) command.GATK {
	return command.GATK{
		Generation: c.Config.GATK,
		JavaMem:    c.Config.Stages[stage].JavaMem,
		Jar:        c.Config.Jars["gatk"],
	}
}

// Phase produces one published output per sample
type Phase struct {
	Name   string
	Stages func(c Context) ([]StageSpec, error)
	Output func(c Context) string
	// NeedsNormal makes the phase wait for the matched normal's anchor
	NeedsNormal bool
}

// Pipeline is an ordered set of phases run for every sample of a manifest
type Pipeline struct {
	Name         string
	Description  string
	NormalPhases []Phase
	TumourPhases []Phase
	// RequiresNormal rejects patients without a normal sample
	RequiresNormal bool
	// Prepare indexes the reference once before any sample
	Prepare bool
	// Collate summarises each patient once its stages have ended
	Collate bool
}

// utilityStages are run without tool config entries unless overridden
var utilityStages = map[string]model.StageParams{
	"publish":           {Time: "1:00:00", Mem: "1G"},
	"collate":           {Time: "2:00:00", Mem: "4G"},
	"cleanup":           {Time: "1:00:00", Mem: "1G"},
	"metrics":           {Time: "0:30:00", Mem: "1G"},
	"prepare_reference": {Time: "4:00:00", Mem: "8G", JavaMem: "6g"},
}

// StageParams returns the parameters of a stage key, falling back to the
// built-in utility defaults.
func StageParams(cfg *model.ToolConfig, key string) (model.StageParams, bool) {
	if p, ok := cfg.Stages[key]; ok {
		return p, true
	}
	p, ok := utilityStages[key]
	return p, ok
}

// Validate checks that cfg carries everything p needs, by rendering every
// phase for a synthetic tumour/normal pair. All problems are reported.
func (p *Pipeline) Validate(cfg *model.ToolConfig) error {
	normal := model.Sample{Patient: "patient", ID: "normal", Kind: model.Normal, BAM: "normal.bam"}
	tumour := model.Sample{Patient: "patient", ID: "tumour", Kind: model.Tumour, BAM: "tumour.bam"}

	var errs error
	seen := map[string]bool{}
	check := func(phases []Phase, c Context) {
		for _, phase := range phases {
			specs, err := phase.Stages(c)
			errs = multierr.Append(errs, err)
			for _, s := range specs {
				key := s.paramsKey()
				if seen[key] {
					continue
				}
				seen[key] = true
				errs = multierr.Append(errs, validateStage(cfg, key, s.Tools))
			}
		}
	}
	check(p.NormalPhases, Context{Config: cfg, OutDir: "out", Sample: normal})
	check(p.TumourPhases, Context{Config: cfg, OutDir: "out", Sample: tumour, Normal: &normal})

	if p.Collate && cfg.CollateScript == "" {
		errs = multierr.Append(errs, cerror.ErrMissingParameter.GenWithStackByArgs("config", "collate_script"))
	}
	if p.Prepare {
		errs = multierr.Append(errs, validatePrepare(cfg))
	}
	return errs
}

func validateStage(cfg *model.ToolConfig, key string, tools []string) error {
	params, ok := StageParams(cfg, key)
	if !ok {
		return cerror.ErrMissingParameter.GenWithStackByArgs("stages", key)
	}
	if _, err := params.Resources(); err != nil {
		return cerror.WrapError(cerror.ErrConfigInvalid, err, "stages."+key)
	}
	for _, tool := range tools {
		if tool == "gatk" && cfg.GATK == 0 {
			return cerror.ErrMissingParameter.GenWithStackByArgs("config", "versions.gatk")
		}
	}
	return nil
}

func validatePrepare(cfg *model.ToolConfig) error {
	_, err := command.PrepareReference(prepareParams(cfg))
	return err
}

func prepareParams(cfg *model.ToolConfig) command.PrepareReferenceParams {
	params, _ := StageParams(cfg, "prepare_reference")
	return command.PrepareReferenceParams{
		GATK: command.GATK{
			Generation: cfg.GATK,
			JavaMem:    params.JavaMem,
			Jar:        cfg.Jars["gatk"],
		},
		Reference: cfg.Reference.Fasta,
		Picard:    cfg.Jars["picard"],
	}
}

// StageKeys lists the stage keys the pipeline reads from the tool config.
func (p *Pipeline) StageKeys() []string {
	cfg := &model.ToolConfig{GATK: model.GATK4}
	normal := model.Sample{Patient: "patient", ID: "normal", Kind: model.Normal}
	tumour := model.Sample{Patient: "patient", ID: "tumour", Kind: model.Tumour}

	seen := map[string]bool{}
	collect := func(phases []Phase, c Context) {
		for _, phase := range phases {
			specs, _ := phase.Stages(c)
			for _, s := range specs {
				seen[s.paramsKey()] = true
			}
		}
	}
	collect(p.NormalPhases, Context{Config: cfg, Sample: normal})
	collect(p.TumourPhases, Context{Config: cfg, Sample: tumour, Normal: &normal})

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var registry = map[string]*Pipeline{}

func register(p *Pipeline) {
	if _, ok := registry[p.Name]; ok {
		panic(fmt.Sprintf("pipeline %s registered twice", p.Name))
	}
	registry[p.Name] = p
}

// Lookup returns the pipeline registered under name.
func Lookup(name string) (*Pipeline, error) {
	p, ok := registry[name]
	if !ok {
		return nil, cerror.ErrUnknownPipeline.GenWithStackByArgs(name)
	}
	return p, nil
}

// Pipelines returns every registered pipeline sorted by name.
func Pipelines() []*Pipeline {
	out := make([]*Pipeline, 0, len(registry))
	for _, p := range registry {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
