package oracle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMissing(t *testing.T) {
	dir := t.TempDir()

	full := filepath.Join(dir, "calls.vcf.gz.md5")
	require.NoError(t, os.WriteFile(full, []byte("d41d8cd98f00b204e9800998ecf8427e  calls.vcf.gz\n"), 0o644))

	empty := filepath.Join(dir, "empty.md5")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))

	subdir := filepath.Join(dir, "dir.md5")
	require.NoError(t, os.Mkdir(subdir, 0o755))

	tests := []struct {
		name    string
		path    string
		missing bool
	}{
		{"non-empty sentinel is complete", full, false},
		{"empty sentinel is missing", empty, true},
		{"absent sentinel is missing", filepath.Join(dir, "absent.md5"), true},
		{"directory is missing", subdir, true},
		{"empty path is missing", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.missing, IsMissing(tt.path))
		})
	}
}

func TestCheckReportsSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bam.md5")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	missing, size := New().Check(path)
	assert.False(t, missing)
	assert.EqualValues(t, 3, size)
}

func TestSentinel(t *testing.T) {
	assert.Equal(t, "/out/P1/T1/calls.vcf.gz.md5", Sentinel("/out/P1/T1/calls.vcf.gz"))
}
