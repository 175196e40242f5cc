package normalize

import (
	"fmt"
	"strings"

	cerror "github.com/sourceplane/varcall/internal/errors"
	"github.com/sourceplane/varcall/internal/model"
	"go.uber.org/multierr"
)

// NormalizeManifest checks the manifest invariants and returns it in
// canonical form: nil sample maps replaced by empty ones, whitespace trimmed
// from paths. Every violation is reported, not just the first.
func NormalizeManifest(source string, manifest model.SampleManifest) (model.SampleManifest, error) {
	if len(manifest) == 0 {
		return nil, cerror.WrapError(cerror.ErrManifestInvalid, fmt.Errorf("no patients"), source)
	}

	normalized := make(model.SampleManifest, len(manifest))
	var errs error

	for _, patientID := range manifest.PatientIDs() {
		patient := manifest[patientID]
		if strings.TrimSpace(patientID) == "" {
			errs = multierr.Append(errs, fmt.Errorf("empty patient ID"))
			continue
		}

		out := model.Patient{
			Normal: make(map[string]string, len(patient.Normal)),
			Tumour: make(map[string]string, len(patient.Tumour)),
		}
		for id, bam := range patient.Normal {
			out.Normal[id] = strings.TrimSpace(bam)
		}
		for id, bam := range patient.Tumour {
			out.Tumour[id] = strings.TrimSpace(bam)
			if _, dup := out.Normal[id]; dup {
				errs = multierr.Append(errs, fmt.Errorf("patient %s: sample %s listed as both normal and tumour", patientID, id))
			}
		}

		if len(out.Normal) == 0 && len(out.Tumour) == 0 {
			errs = multierr.Append(errs, fmt.Errorf("patient %s has no samples", patientID))
		}
		for _, s := range out.Samples(patientID) {
			if s.ID == "" {
				errs = multierr.Append(errs, fmt.Errorf("patient %s: empty sample ID", patientID))
			}
			if s.BAM == "" {
				errs = multierr.Append(errs, fmt.Errorf("patient %s: sample %s has no BAM path", patientID, s.ID))
			}
		}

		normalized[patientID] = out
	}

	if errs != nil {
		return nil, cerror.WrapError(cerror.ErrManifestInvalid, errs, source)
	}
	return normalized, nil
}

// HasNormal reports whether any patient carries a normal sample.
func HasNormal(manifest model.SampleManifest) bool {
	for _, p := range manifest {
		if len(p.Normal) > 0 {
			return true
		}
	}
	return false
}
