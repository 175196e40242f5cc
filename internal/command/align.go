package command

import (
	"path/filepath"
	"strconv"
)

// StarAlignParams realigns an RNA-seq BAM with STAR two-pass mode
type StarAlignParams struct {
	Input     string
	GenomeDir string
	Sample    string
	CPUs      int
	// Output is the coordinate sorted BAM; STAR intermediates go next to it
	Output string
}

// StarAlign converts the input BAM back to paired FASTQ, aligns it with STAR
// and moves the sorted BAM to Output.
func StarAlign(p StarAlignParams) (string, error) {
	if err := require("StarAlign",
		field{"input", p.Input},
		field{"genome_dir", p.GenomeDir},
		field{"sample", p.Sample},
		field{"output", p.Output},
	); err != nil {
		return "", err
	}

	cpus := p.CPUs
	if cpus <= 0 {
		cpus = 1
	}
	dir := filepath.Dir(p.Output)
	prefix := filepath.Join(dir, p.Sample+".")
	r1 := filepath.Join(dir, p.Sample+"_R1.fastq.gz")
	r2 := filepath.Join(dir, p.Sample+"_R2.fastq.gz")

	fastq := newBuilder("samtools", "collate", "-u", "-O", p.Input, "|",
		"samtools", "fastq", "-1", r1, "-2", r2, "-0", "/dev/null", "-s", "/dev/null", "-n", "-")
	star := newBuilder("STAR",
		"--runThreadN", strconv.Itoa(cpus),
		"--genomeDir", p.GenomeDir,
		"--readFilesIn", r1, r2,
		"--readFilesCommand", "zcat",
		"--outSAMtype", "BAM", "SortedByCoordinate",
		"--twopassMode", "Basic",
		"--outSAMattrRGline", "ID:"+p.Sample, "SM:"+p.Sample,
		"--outFileNamePrefix", prefix)

	return fastq.String() + "\n" +
		star.String() + "\n" +
		newBuilder("mv", prefix+"Aligned.sortedByCoord.out.bam", p.Output).String() + "\n" +
		newBuilder("samtools", "index", p.Output).String() + "\n" +
		newBuilder("rm", "-f", r1, r2).String(), nil
}
