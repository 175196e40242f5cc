package loader

import (
	"os"
	"path/filepath"
	"testing"

	cerror "github.com/sourceplane/varcall/internal/errors"
	"github.com/sourceplane/varcall/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const toolConfig = `
reference:
  fasta: /ref/hg19/genome.fa
  build: hg19
versions:
  gatk: "3.8-1-0-gf15c1c3ef"
jars:
  gatk: /opt/GenomeAnalysisTK.jar
stages:
  base_recalibrator: {time: "4:00:00", mem: 8G, java_mem: 6g}
`

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadToolConfigResolvesTags(t *testing.T) {
	l, err := NewLoader()
	require.NoError(t, err)

	cfg, err := l.LoadToolConfig(write(t, "tools.yaml", toolConfig))
	require.NoError(t, err)
	assert.Equal(t, model.GATK3, cfg.GATK)
	assert.Equal(t, "GRCh37", cfg.Build.NCBIBuild())
	assert.Equal(t, "/opt/GenomeAnalysisTK.jar", cfg.Jars["gatk"])
	assert.Equal(t, "6g", cfg.Stages["base_recalibrator"].JavaMem)
}

func TestLoadToolConfigAcceptsUnquotedVersion(t *testing.T) {
	l, err := NewLoader()
	require.NoError(t, err)

	tests := map[string]model.ToolGeneration{
		"4.2":  model.GATK4,
		"4.0":  model.GATK4Early,
		"4.10": model.GATK4,
		"4":    model.GATK4,
	}
	for version, want := range tests {
		t.Run(version, func(t *testing.T) {
			doc := "reference: {fasta: /ref/genome.fa, build: hg38}\n" +
				"versions:\n  gatk: " + version + "\n" +
				"stages:\n  mutect: {time: \"1:00:00\", mem: 1G}\n"
			cfg, err := l.LoadToolConfig(write(t, "tools.yaml", doc))
			require.NoError(t, err)
			assert.Equal(t, want, cfg.GATK)
		})
	}
}

func TestLoadToolConfigFailsFast(t *testing.T) {
	l, err := NewLoader()
	require.NoError(t, err)

	_, err = l.LoadToolConfig("")
	assert.True(t, cerror.Is(err, cerror.ErrMissingFlag))

	_, err = l.LoadToolConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.True(t, cerror.Is(err, cerror.ErrConfigRead))

	_, err = l.LoadToolConfig(write(t, "nostages.yaml", "reference: {fasta: /ref/genome.fa, build: hg38}\n"))
	assert.True(t, cerror.Is(err, cerror.ErrConfigInvalid))

	bad := `
reference: {fasta: /ref/genome.fa, build: mm10}
stages:
  mutect: {time: "1:00:00", mem: 1G}
`
	_, err = l.LoadToolConfig(write(t, "build.yaml", bad))
	assert.True(t, cerror.Is(err, cerror.ErrUnsupportedReferenceBuild))
}

func TestLoadManifest(t *testing.T) {
	l, err := NewLoader()
	require.NoError(t, err)

	m, err := l.LoadManifest(write(t, "samples.yaml", `
P1:
  normal: {N1: " /data/N1.bam "}
  tumour: {T1: /data/T1.bam}
P2:
  tumour: {T2: /data/T2.bam}
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"P1", "P2"}, m.PatientIDs())
	assert.Equal(t, "/data/N1.bam", m["P1"].Normal["N1"])
	assert.NotNil(t, m["P2"].Normal)

	_, err = l.LoadManifest(write(t, "dup.yaml", `
P1:
  normal: {S1: /data/a.bam}
  tumour: {S1: /data/b.bam}
`))
	assert.True(t, cerror.Is(err, cerror.ErrManifestInvalid))

	_, err = l.LoadManifest(write(t, "empty.yaml", "P1: {}\nP2:\n  tumour: {T2: /data/T2.bam}\n"))
	assert.True(t, cerror.Is(err, cerror.ErrManifestInvalid), "a patient without samples is rejected")

	_, err = l.LoadManifest(write(t, "extra.yaml", "P1:\n  germline: {S1: /data/a.bam}\n"))
	assert.True(t, cerror.Is(err, cerror.ErrManifestInvalid))
}
