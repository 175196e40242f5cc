package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sourceplane/varcall/internal/model"
)

const (
	separator = "═══════════════════════════════════════════════════════════\n"
	// runGroup holds jobs that belong to no patient
	runGroup = "(run)"
	// patientGroup holds patient level jobs that belong to no sample
	patientGroup = "(patient)"
)

// PlanViewer provides human-readable visualization of a run plan
type PlanViewer struct {
	plan *model.Plan
}

// NewPlanViewer creates a new plan viewer
func NewPlanViewer(plan *model.Plan) *PlanViewer {
	return &PlanViewer{plan: plan}
}

func groupName(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

func sortedKeys(m map[string][]*model.PlanJob) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// jobLabel is the one line form of a job
func jobLabel(job *model.PlanJob) string {
	if job.Outcome == string(model.OutcomeSkipped) {
		return fmt.Sprintf("%s (skipped)", job.Name)
	}
	label := fmt.Sprintf("%s [%s]", job.Name, job.ID)
	if !job.KillOnError {
		label += " (fan-in)"
	}
	return label
}

// ViewDAG returns a tree of patients, samples and their jobs in plan order
func (pv *PlanViewer) ViewDAG() string {
	if len(pv.plan.Jobs) == 0 {
		return "No jobs in plan"
	}

	patients := make(map[string]map[string][]*model.PlanJob)
	for i := range pv.plan.Jobs {
		job := &pv.plan.Jobs[i]
		p := groupName(job.Patient, runGroup)
		if patients[p] == nil {
			patients[p] = make(map[string][]*model.PlanJob)
		}
		s := groupName(job.Sample, patientGroup)
		patients[p][s] = append(patients[p][s], job)
	}

	names := make([]string, 0, len(patients))
	for p := range patients {
		names = append(names, p)
	}
	sort.Strings(names)

	var sb strings.Builder
	for i, patient := range names {
		isLastPatient := i == len(names)-1

		prefix := "├─ "
		if isLastPatient {
			prefix = "└─ "
		}
		sb.WriteString(prefix + patient + "\n")

		samples := patients[patient]
		keys := sortedKeys(samples)
		for j, sample := range keys {
			isLastSample := j == len(keys)-1

			samplePrefix := "│  ├─ "
			connector := "│  │"
			if isLastSample {
				samplePrefix = "│  └─ "
				connector = "│   "
			}
			if isLastPatient {
				samplePrefix = strings.Replace(samplePrefix, "│", " ", 1)
				connector = strings.Replace(connector, "│", " ", 1)
			}
			sb.WriteString(samplePrefix + sample + "\n")

			jobs := samples[sample]
			for k, job := range jobs {
				jobPrefix := connector + "  ├─ "
				depConnector := connector + "  │"
				if k == len(jobs)-1 {
					jobPrefix = connector + "  └─ "
					depConnector = connector + "   "
				}
				sb.WriteString(jobPrefix + jobLabel(job) + "\n")

				for l, dep := range job.DependsOn {
					depPrefix := depConnector + "  ├─ "
					if l == len(job.DependsOn)-1 {
						depPrefix = depConnector + "  └─ "
					}
					fmt.Fprintf(&sb, "%s(depends on) %s\n", depPrefix, dep)
				}
			}
		}
		sb.WriteString("\n")
	}

	m := pv.plan.Metadata
	sb.WriteString(separator)
	fmt.Fprintf(&sb, "Summary: %d patients, %d submitted, %d skipped\n", countPatients(names), m.Submitted, m.Skipped)
	return sb.String()
}

func countPatients(names []string) int {
	n := 0
	for _, name := range names {
		if name != runGroup {
			n++
		}
	}
	return n
}

// ViewByPatient shows every job of one patient grouped by sample
func (pv *PlanViewer) ViewByPatient(patient string) string {
	samples := make(map[string][]*model.PlanJob)
	for i := range pv.plan.Jobs {
		job := &pv.plan.Jobs[i]
		if job.Patient == patient {
			s := groupName(job.Sample, patientGroup)
			samples[s] = append(samples[s], job)
		}
	}
	if len(samples) == 0 {
		return fmt.Sprintf("No jobs found for patient: %s", patient)
	}

	var sb strings.Builder
	sb.WriteString(patient + "\n")
	sb.WriteString(separator + "\n")

	for _, sample := range sortedKeys(samples) {
		jobs := samples[sample]
		fmt.Fprintf(&sb, "%s (%d jobs)\n", sample, len(jobs))

		for i, job := range jobs {
			prefix := "├─ "
			connector := "│  "
			if i == len(jobs)-1 {
				prefix = "└─ "
				connector = "   "
			}

			sb.WriteString(prefix + jobLabel(job) + "\n")
			if job.Phase != "" {
				fmt.Fprintf(&sb, "%s  Phase: %s\n", connector, job.Phase)
			}
			if job.Sentinel != "" {
				fmt.Fprintf(&sb, "%s  Sentinel: %s\n", connector, job.Sentinel)
			}
			if job.Script != "" {
				fmt.Fprintf(&sb, "%s  Script: %s\n", connector, job.Script)
			}
			if len(job.DependsOn) > 0 {
				fmt.Fprintf(&sb, "%s  Dependencies:\n", connector)
				for _, dep := range job.DependsOn {
					fmt.Fprintf(&sb, "%s    %s\n", connector, dep)
				}
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// ViewDependencies lists submitted jobs with the handles they wait for
func (pv *PlanViewer) ViewDependencies() string {
	var jobs []*model.PlanJob
	for i := range pv.plan.Jobs {
		if pv.plan.Jobs[i].Outcome == string(model.OutcomeSubmitted) {
			jobs = append(jobs, &pv.plan.Jobs[i])
		}
	}
	if len(jobs) == 0 {
		return "No jobs in plan"
	}

	var sb strings.Builder
	sb.WriteString("Job Dependencies\n")
	sb.WriteString(separator + "\n")

	for i, job := range jobs {
		prefix := "├─ "
		if i == len(jobs)-1 {
			prefix = "└─ "
		}

		owner := groupName(job.Patient, runGroup)
		if job.Sample != "" {
			owner += "/" + job.Sample
		}
		fmt.Fprintf(&sb, "%s%s [%s] (%s)\n", prefix, job.Name, job.ID, owner)

		if len(job.DependsOn) == 0 {
			sb.WriteString("   (no dependencies)\n")
		} else {
			for j, dep := range job.DependsOn {
				depPrefix := "  ├─ "
				if j == len(job.DependsOn)-1 {
					depPrefix = "  └─ "
				}
				fmt.Fprintf(&sb, "%s(depends on) %s\n", depPrefix, dep)
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
