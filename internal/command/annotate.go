package command

import (
	"path/filepath"
	"strings"

	"github.com/sourceplane/varcall/internal/model"
)

// Vcf2MafParams annotates a VCF with VEP and converts it to MAF
type Vcf2MafParams struct {
	Build     model.RefBuild
	Reference string
	VepData   string
	Input     string
	TumourID  string
	NormalID  string
	Output    string
}

// Vcf2Maf returns the vcf2maf command. The input is decompressed first since
// vcf2maf reads plain VCF only.
func Vcf2Maf(p Vcf2MafParams) (string, error) {
	if err := require("Vcf2Maf",
		field{"build", string(p.Build)},
		field{"reference", p.Reference},
		field{"vep_data", p.VepData},
		field{"input", p.Input},
		field{"tumour_id", p.TumourID},
		field{"output", p.Output},
	); err != nil {
		return "", err
	}

	plain := strings.TrimSuffix(p.Output, filepath.Ext(p.Output)) + ".vcf"
	b := newBuilder("vcf2maf.pl",
		"--input-vcf", plain,
		"--output-maf", p.Output,
		"--tumor-id", p.TumourID)
	b.opt("--normal-id", p.NormalID)
	b.add("--ref-fasta", p.Reference,
		"--ncbi-build", p.Build.NCBIBuild(),
		"--vep-data", p.VepData)

	return newBuilder("bcftools", "view", p.Input, "-o", plain).String() + "\n" +
		b.String() + "\n" +
		newBuilder("rm", "-f", plain).String(), nil
}

// CPSRParams reports germline cancer predisposition variants of one sample
type CPSRParams struct {
	Build    model.RefBuild
	PCGRData string
	Input    string
	Sample   string
	// Output is the published report; CPSR writes into its directory
	Output string
}

// CPSRReportName is the report CPSR writes for sample under build.
func CPSRReportName(sample string, build model.RefBuild) string {
	return sample + ".cpsr." + build.Assembly() + ".html"
}

// CPSR returns the cpsr.py command and moves the report to Output.
func CPSR(p CPSRParams) (string, error) {
	if err := require("CPSR",
		field{"build", string(p.Build)},
		field{"pcgr_data", p.PCGRData},
		field{"input", p.Input},
		field{"sample", p.Sample},
		field{"output", p.Output},
	); err != nil {
		return "", err
	}

	dir := filepath.Dir(p.Output)
	report := filepath.Join(dir, CPSRReportName(p.Sample, p.Build))
	cmd := newBuilder("cpsr.py",
		"--input_vcf", p.Input,
		"--pcgr_dir", p.PCGRData,
		"--output_dir", dir,
		"--genome_assembly", p.Build.Assembly(),
		"--sample_id", p.Sample,
		"--panel_id", "0",
		"--no_vcf_validate").String()
	if report == p.Output {
		return cmd, nil
	}
	return cmd + "\n" + newBuilder("mv", report, p.Output).String(), nil
}
