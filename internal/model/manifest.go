package model

import "sort"

// SampleKind distinguishes matched normal samples from tumour samples
type SampleKind string

const (
	Normal SampleKind = "normal"
	Tumour SampleKind = "tumour"
)

// Patient holds the BAMs of one patient keyed by sample ID
type Patient struct {
	Normal map[string]string `yaml:"normal" json:"normal"`
	Tumour map[string]string `yaml:"tumour" json:"tumour"`
}

// SampleManifest maps patient IDs to their samples
type SampleManifest map[string]Patient

// Sample is one BAM of a patient, flattened out of the manifest
type Sample struct {
	Patient string
	ID      string
	Kind    SampleKind
	BAM     string
}

// PatientIDs returns the patient IDs in lexicographic order.
func (m SampleManifest) PatientIDs() []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Normals returns the patient's normal samples sorted by ID.
func (p Patient) Normals(patientID string) []Sample {
	return flatten(patientID, Normal, p.Normal)
}

// Tumours returns the patient's tumour samples sorted by ID.
func (p Patient) Tumours(patientID string) []Sample {
	return flatten(patientID, Tumour, p.Tumour)
}

// Samples returns normals first, then tumours.
func (p Patient) Samples(patientID string) []Sample {
	return append(p.Normals(patientID), p.Tumours(patientID)...)
}

func flatten(patientID string, kind SampleKind, bams map[string]string) []Sample {
	ids := make([]string, 0, len(bams))
	for id := range bams {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	samples := make([]Sample, 0, len(ids))
	for _, id := range ids {
		samples = append(samples, Sample{
			Patient: patientID,
			ID:      id,
			Kind:    kind,
			BAM:     bams[id],
		})
	}
	return samples
}
