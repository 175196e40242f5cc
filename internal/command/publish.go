package command

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sourceplane/varcall/internal/model"
)

// TmpDir is the per-sample directory tools write tentative outputs into.
const TmpDir = "tmp"

// Tentative returns where a tool writes output before it is published.
// The basename is kept so tools that infer formats from extensions still work.
func Tentative(output string) string {
	return filepath.Join(filepath.Dir(output), TmpDir, filepath.Base(output))
}

// PublishParams promotes a tentative output
type PublishParams struct {
	Output   string
	Sentinel string
}

// Publish returns the command moving the tentative output and its companion
// files (indexes, stats) into place, then writing the checksum sentinel.
// Companions are matched on the output name without its last extension so
// that foo.bai travels with foo.bam. The sentinel is written last and
// atomically.
func Publish(p PublishParams) (string, error) {
	if err := require("Publish",
		field{"output", p.Output},
		field{"sentinel", p.Sentinel},
	); err != nil {
		return "", err
	}

	dir := filepath.Dir(p.Output)
	base := filepath.Base(p.Output)
	tmp := Tentative(p.Output)
	stem := strings.TrimSuffix(tmp, filepath.Ext(tmp))
	return fmt.Sprintf("test -s %s || { echo \"%s is missing or empty\" >&2; exit 1; }\n", tmp, tmp) +
		fmt.Sprintf("mv %s* %s/\n", stem, dir) +
		fmt.Sprintf("(cd %s && md5sum %s > %s.partial)\n", dir, base, p.Sentinel) +
		fmt.Sprintf("mv %s.partial %s", p.Sentinel, p.Sentinel), nil
}

// CollateParams summarises a patient's results
type CollateParams struct {
	Script     string
	Patient    string
	PatientDir string
	Output     string
}

// Collate returns the Rscript command collating a patient directory.
func Collate(p CollateParams) (string, error) {
	if err := require("Collate",
		field{"collate_script", p.Script},
		field{"patient", p.Patient},
		field{"patient_dir", p.PatientDir},
		field{"output", p.Output},
	); err != nil {
		return "", err
	}
	return newBuilder("Rscript", p.Script,
		"--patient", p.Patient,
		"--input", p.PatientDir,
		"--output", p.Output).String(), nil
}

// CleanupParams removes a patient's intermediates
type CleanupParams struct {
	PatientDir string
}

// Cleanup returns the command removing every sample tmp directory under the
// patient directory. Published outputs and sentinels are kept.
func Cleanup(p CleanupParams) (string, error) {
	if err := require("Cleanup", field{"patient_dir", p.PatientDir}); err != nil {
		return "", err
	}
	return fmt.Sprintf("rm -rf %s/*/%s", p.PatientDir, TmpDir), nil
}

// PrepareReferenceParams indexes the reference
type PrepareReferenceParams struct {
	GATK      GATK
	Reference string
	// Picard is the picard jar, used only by GATK3
	Picard string
}

// ReferenceIndex is the faidx index prepare writes, used as its sentinel.
func ReferenceIndex(fasta string) string {
	return fasta + ".fai"
}

// ReferenceDict is the sequence dictionary path of fasta.
func ReferenceDict(fasta string) string {
	ext := filepath.Ext(fasta)
	if ext == ".gz" {
		fasta = fasta[:len(fasta)-len(ext)]
		ext = filepath.Ext(fasta)
	}
	return fasta[:len(fasta)-len(ext)] + ".dict"
}

// PrepareReference returns the command creating the sequence dictionary and
// then the faidx index. The index is written last as it marks completion.
func PrepareReference(p PrepareReferenceParams) (string, error) {
	fields := []field{{"reference", p.Reference}, {"java_mem", p.GATK.JavaMem}}
	if p.GATK.Generation == model.GATK3 {
		fields = append(fields, field{"picard jar", p.Picard})
	}
	if err := require("PrepareReference", fields...); err != nil {
		return "", err
	}

	dict := ReferenceDict(p.Reference)
	var dictCmd string
	if p.GATK.Generation == model.GATK3 {
		dictCmd = newBuilder("java", "-Xmx"+p.GATK.JavaMem, "-jar", p.Picard, "CreateSequenceDictionary",
			"R="+p.Reference, "O="+dict).String()
	} else {
		dictCmd = p.GATK.invoke("CreateSequenceDictionary").add("-R", p.Reference, "-O", dict).String()
	}
	return fmt.Sprintf("test -s %s || %s\n", dict, dictCmd) +
		newBuilder("samtools", "faidx", p.Reference).String(), nil
}
