package planner

import (
	"path/filepath"
	"testing"

	"github.com/sourceplane/varcall/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusReportsPublishedPhases(t *testing.T) {
	f := newFixture(t, "somatic-mutect2", false)
	out := filepath.Join(f.dir, "out")
	touch(t, filepath.Join(out, "P1", "N1", "N1.recal.bam"))
	touch(t, filepath.Join(out, "P1", "N1", "N1.recal.bam.md5"))
	touch(t, filepath.Join(out, "P1", "T1", "T1.mutect2.vcf.gz.md5"))

	sa := NewStatusAnalyzer(f.builder.Pipeline, f.cfg, out, onePatient())
	phases := sa.AnalyzeAll()

	// one normal phase, four phases per tumour, collate
	require.Len(t, phases, 10)
	assert.Equal(t, "N1", phases[0].Sample)
	assert.Equal(t, model.Normal, phases[0].Kind)
	assert.True(t, phases[0].Complete)
	assert.Equal(t, int64(1), phases[0].Size)

	last := phases[len(phases)-1]
	assert.Equal(t, "collate", last.Phase)
	assert.Empty(t, last.Sample)
	assert.False(t, last.Complete)

	p := sa.GetPatient("P1")
	require.NotNil(t, p)
	assert.Equal(t, 2, p.Complete)
	assert.False(t, p.Done())
	assert.Nil(t, sa.GetPatient("P2"))
}

func TestStatusListsPatientsInOrder(t *testing.T) {
	f := newFixture(t, "germline", false)
	manifest := model.SampleManifest{
		"P2": {Normal: map[string]string{"B": "/data/B.bam"}},
		"P1": {Normal: map[string]string{"A": "/data/A.bam"}, Tumour: map[string]string{"T": "/data/T.bam"}},
	}

	all := NewStatusAnalyzer(f.builder.Pipeline, f.cfg, filepath.Join(f.dir, "out"), manifest).ListAll()
	require.Len(t, all, 2)
	assert.Equal(t, "P1", all[0].Patient)
	assert.Equal(t, "P2", all[1].Patient)
	for _, st := range all[0].Phases {
		assert.Equal(t, "A", st.Sample, "germline tracks normals only")
	}
}
