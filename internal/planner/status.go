package planner

import (
	"sort"

	"github.com/sourceplane/varcall/internal/model"
	"github.com/sourceplane/varcall/internal/oracle"
)

// PhaseStatus is the published state of one phase of one sample
type PhaseStatus struct {
	Patient  string
	Sample   string
	Kind     model.SampleKind
	Phase    string
	Output   string
	Sentinel string
	Complete bool
	Size     int64
}

// PatientStatus merges the phase states of a patient
type PatientStatus struct {
	Patient  string
	Phases   []PhaseStatus
	Complete int
}

// Done reports whether every phase of the patient is published.
func (p *PatientStatus) Done() bool {
	return p.Complete == len(p.Phases)
}

// StatusAnalyzer reports which outputs of a manifest are already published
// without submitting anything
type StatusAnalyzer struct {
	pipeline *Pipeline
	config   *model.ToolConfig
	outDir   string
	manifest model.SampleManifest
	oracle   *oracle.Oracle

	phases []PhaseStatus
}

// NewStatusAnalyzer creates an analyzer for pipeline over manifest.
func NewStatusAnalyzer(p *Pipeline, cfg *model.ToolConfig, outDir string, manifest model.SampleManifest) *StatusAnalyzer {
	return &StatusAnalyzer{
		pipeline: p,
		config:   cfg,
		outDir:   outDir,
		manifest: manifest,
		oracle:   oracle.New(),
	}
}

// AnalyzeAll checks the sentinel of every phase in build order
func (sa *StatusAnalyzer) AnalyzeAll() []PhaseStatus {
	if sa.phases != nil {
		return sa.phases
	}

	sa.phases = make([]PhaseStatus, 0)
	for _, pid := range sa.manifest.PatientIDs() {
		patient := sa.manifest[pid]
		normals := patient.Normals(pid)

		var matched *model.Sample
		if len(normals) > 0 {
			matched = &normals[0]
		}
		for _, s := range normals {
			sa.check(Context{Config: sa.config, OutDir: sa.outDir, Sample: s}, sa.pipeline.NormalPhases)
		}
		for _, s := range patient.Tumours(pid) {
			sa.check(Context{Config: sa.config, OutDir: sa.outDir, Sample: s, Normal: matched}, sa.pipeline.TumourPhases)
		}

		if sa.pipeline.Collate {
			sa.phases = append(sa.phases, sa.status(pid, "", "", "collate", CollateOutput(sa.outDir, pid)))
		}
	}
	return sa.phases
}

func (sa *StatusAnalyzer) check(c Context, phases []Phase) {
	for _, phase := range phases {
		sa.phases = append(sa.phases, sa.status(c.Sample.Patient, c.Sample.ID, c.Sample.Kind, phase.Name, phase.Output(c)))
	}
}

func (sa *StatusAnalyzer) status(pid, sample string, kind model.SampleKind, phase, output string) PhaseStatus {
	st := PhaseStatus{
		Patient:  pid,
		Sample:   sample,
		Kind:     kind,
		Phase:    phase,
		Output:   output,
		Sentinel: oracle.Sentinel(output),
	}
	if !sa.oracle.IsMissing(st.Sentinel) {
		st.Complete = true
		_, st.Size = sa.oracle.Check(output)
	}
	return st
}

// GetPatient returns the merged status of one patient, nil if unknown
func (sa *StatusAnalyzer) GetPatient(pid string) *PatientStatus {
	for _, p := range sa.ListAll() {
		if p.Patient == pid {
			return p
		}
	}
	return nil
}

// ListAll lists every patient with its phase states, sorted by patient
func (sa *StatusAnalyzer) ListAll() []*PatientStatus {
	byPatient := make(map[string]*PatientStatus)
	for _, st := range sa.AnalyzeAll() {
		p, exists := byPatient[st.Patient]
		if !exists {
			p = &PatientStatus{Patient: st.Patient}
			byPatient[st.Patient] = p
		}
		p.Phases = append(p.Phases, st)
		if st.Complete {
			p.Complete++
		}
	}

	result := make([]*PatientStatus, 0, len(byPatient))
	for _, p := range byPatient {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Patient < result[j].Patient
	})
	return result
}
