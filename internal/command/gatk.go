package command

import (
	"fmt"
	"strings"

	"github.com/sourceplane/varcall/internal/model"
)

// BaseRecalibratorParams builds the recalibration table of a BAM
type BaseRecalibratorParams struct {
	GATK       GATK
	Reference  string
	Input      string
	KnownSites []string
	Table      string
}

// BaseRecalibrator returns the BaseRecalibrator command.
func BaseRecalibrator(p BaseRecalibratorParams) (string, error) {
	if err := joinErrs(
		p.GATK.validate("BaseRecalibrator"),
		require("BaseRecalibrator",
			field{"reference", p.Reference},
			field{"input", p.Input},
			field{"table", p.Table},
			field{"known_sites", strings.Join(p.KnownSites, "")},
		),
	); err != nil {
		return "", err
	}

	b := p.GATK.invoke("BaseRecalibrator").add("-R", p.Reference, "-I", p.Input)
	if p.GATK.Generation == model.GATK3 {
		b.repeat("-knownSites", p.KnownSites)
	} else {
		b.repeat("--known-sites", p.KnownSites)
	}
	return b.add(p.GATK.out(), p.Table).String(), nil
}

// ApplyBQSRParams applies a recalibration table
type ApplyBQSRParams struct {
	GATK      GATK
	Reference string
	Input     string
	Table     string
	Output    string
}

// ApplyBQSR returns the command writing the recalibrated BAM and its index.
// GATK3 uses PrintReads with -BQSR.
func ApplyBQSR(p ApplyBQSRParams) (string, error) {
	if err := joinErrs(
		p.GATK.validate("ApplyBQSR"),
		require("ApplyBQSR",
			field{"reference", p.Reference},
			field{"input", p.Input},
			field{"table", p.Table},
			field{"output", p.Output},
		),
	); err != nil {
		return "", err
	}

	if p.GATK.Generation == model.GATK3 {
		return p.GATK.invoke("PrintReads").
			add("-R", p.Reference, "-I", p.Input, "-BQSR", p.Table, "-o", p.Output).
			String(), nil
	}
	return p.GATK.invoke("ApplyBQSR").
		add("-R", p.Reference, "-I", p.Input, "--bqsr-recal-file", p.Table, "-O", p.Output, "--create-output-bam-index", "true").
		String(), nil
}

// MutectParams calls somatic variants of a tumour, optionally against its
// matched normal
type MutectParams struct {
	GATK GATK
	// MutectJar is the muTect jar, used only by GATK3
	MutectJar        string
	Reference        string
	Tumour           string
	TumourName       string
	Normal           string
	NormalName       string
	PanelOfNormals   string
	GermlineResource string
	DbSNP            string
	Output           string
}

// Mutect returns the somatic calling command for the configured generation:
// muTect 1 for GATK3, Mutect2 with -tumor for 4.0, Mutect2 for 4.1+.
func Mutect(p MutectParams) (string, error) {
	fields := []field{
		{"reference", p.Reference},
		{"tumour", p.Tumour},
		{"tumour_name", p.TumourName},
		{"output", p.Output},
	}
	if p.Normal != "" {
		fields = append(fields, field{"normal_name", p.NormalName})
	}
	if p.GATK.Generation == model.GATK3 {
		fields = append(fields, field{"mutect jar", p.MutectJar})
	}
	if err := joinErrs(require("Mutect", fields...), require("Mutect", field{"java_mem", p.GATK.JavaMem})); err != nil {
		return "", err
	}

	switch p.GATK.Generation {
	case model.GATK3:
		b := newBuilder("java", fmt.Sprintf("-Xmx%s", p.GATK.JavaMem), "-jar", p.MutectJar,
			"--analysis_type", "MuTect",
			"--reference_sequence", p.Reference,
			"--input_file:tumor", p.Tumour)
		b.opt("--input_file:normal", p.Normal).
			opt("--normal_panel", p.PanelOfNormals).
			opt("--dbsnp", p.DbSNP)
		return b.add("--vcf", p.Output).String(), nil
	case model.GATK4Early:
		b := p.GATK.invoke("Mutect2").add("-R", p.Reference, "-I", p.Tumour, "-tumor", p.TumourName)
		if p.Normal != "" {
			b.add("-I", p.Normal, "-normal", p.NormalName)
		}
		b.opt("--panel-of-normals", p.PanelOfNormals).opt("--germline-resource", p.GermlineResource)
		return b.add("-O", p.Output).String(), nil
	default:
		b := p.GATK.invoke("Mutect2").add("-R", p.Reference, "-I", p.Tumour)
		if p.Normal != "" {
			b.add("-I", p.Normal, "-normal", p.NormalName)
		}
		b.opt("--panel-of-normals", p.PanelOfNormals).opt("--germline-resource", p.GermlineResource)
		return b.add("-O", p.Output).String(), nil
	}
}

// FilterMutectCallsParams filters raw somatic calls
type FilterMutectCallsParams struct {
	GATK      GATK
	Reference string
	Input     string
	Output    string
}

// FilterMutectCalls returns the somatic filtering command. muTect 1 output
// has no GATK filter tool, so GATK3 keeps PASS records with bcftools.
func FilterMutectCalls(p FilterMutectCallsParams) (string, error) {
	if err := require("FilterMutectCalls",
		field{"reference", p.Reference},
		field{"input", p.Input},
		field{"output", p.Output},
	); err != nil {
		return "", err
	}

	switch p.GATK.Generation {
	case model.GATK3:
		return newBuilder("bcftools", "view", "-f", "PASS", "-Oz", "-o", p.Output, p.Input).String(), nil
	case model.GATK4Early:
		if err := p.GATK.validate("FilterMutectCalls"); err != nil {
			return "", err
		}
		return p.GATK.invoke("FilterMutectCalls").add("-V", p.Input, "-O", p.Output).String(), nil
	default:
		if err := p.GATK.validate("FilterMutectCalls"); err != nil {
			return "", err
		}
		return p.GATK.invoke("FilterMutectCalls").add("-R", p.Reference, "-V", p.Input, "-O", p.Output).String(), nil
	}
}

// HaplotypeCallerParams calls germline variants of one sample
type HaplotypeCallerParams struct {
	GATK      GATK
	Reference string
	Input     string
	DbSNP     string
	Output    string
	// RNA enables the RNA-seq settings (soft clips ignored, lower call confidence)
	RNA bool
}

// HaplotypeCaller returns the germline calling command.
func HaplotypeCaller(p HaplotypeCallerParams) (string, error) {
	if err := joinErrs(
		p.GATK.validate("HaplotypeCaller"),
		require("HaplotypeCaller",
			field{"reference", p.Reference},
			field{"input", p.Input},
			field{"output", p.Output},
		),
	); err != nil {
		return "", err
	}

	b := p.GATK.invoke("HaplotypeCaller").add("-R", p.Reference, "-I", p.Input)
	if p.GATK.Generation == model.GATK3 {
		b.opt("--dbsnp", p.DbSNP)
		if p.RNA {
			b.add("-dontUseSoftClippedBases", "-stand_call_conf", "20.0")
		}
	} else {
		b.opt("-D", p.DbSNP)
		if p.RNA {
			b.add("--dont-use-soft-clipped-bases", "-stand-call-conf", "20.0")
		}
	}
	return b.add(p.GATK.out(), p.Output).String(), nil
}

// RecalMode selects the variant class recalibrated by VQSR
type RecalMode string

const (
	SNP   RecalMode = "SNP"
	INDEL RecalMode = "INDEL"
)

// VQSR annotation sets per mode
var recalAnnotations = map[RecalMode][]string{
	SNP:   {"QD", "MQ", "MQRankSum", "ReadPosRankSum", "FS", "SOR"},
	INDEL: {"QD", "FS", "SOR", "ReadPosRankSum", "MQRankSum"},
}

// truth sensitivity filter levels per mode
var truthSensitivity = map[RecalMode]string{
	SNP:   "99.7",
	INDEL: "99.0",
}

// VariantRecalibratorParams builds the VQSR model of one mode
type VariantRecalibratorParams struct {
	GATK      GATK
	Mode      RecalMode
	Reference string
	Input     string
	Resources model.VQSRResources
	DbSNP     string
	Recal     string
	Tranches  string
}

// VariantRecalibrator returns the VQSR model building command for p.Mode.
func VariantRecalibrator(p VariantRecalibratorParams) (string, error) {
	fields := []field{
		{"reference", p.Reference},
		{"input", p.Input},
		{"dbsnp", p.DbSNP},
		{"recal", p.Recal},
		{"tranches", p.Tranches},
	}
	switch p.Mode {
	case SNP:
		fields = append(fields,
			field{"resources.hapmap", p.Resources.HapMap},
			field{"resources.omni", p.Resources.Omni},
			field{"resources.g1k", p.Resources.G1K})
	case INDEL:
		fields = append(fields, field{"resources.mills", p.Resources.Mills})
	default:
		return "", fmt.Errorf("VariantRecalibrator: unknown mode %q", p.Mode)
	}
	if err := joinErrs(p.GATK.validate("VariantRecalibrator"), require("VariantRecalibrator", fields...)); err != nil {
		return "", err
	}

	gatk3 := p.GATK.Generation == model.GATK3
	resource := func(name, params, path string) []string {
		if gatk3 {
			return []string{fmt.Sprintf("-resource:%s,%s", name, params), path}
		}
		return []string{"--resource:" + name + "," + params, path}
	}

	b := p.GATK.invoke("VariantRecalibrator").add("-R", p.Reference, p.GATK.variant(), p.Input)
	if p.Mode == SNP {
		b.add(resource("hapmap", "known=false,training=true,truth=true,prior=15.0", p.Resources.HapMap)...)
		b.add(resource("omni", "known=false,training=true,truth=false,prior=12.0", p.Resources.Omni)...)
		b.add(resource("1000G", "known=false,training=true,truth=false,prior=10.0", p.Resources.G1K)...)
		b.add(resource("dbsnp", "known=true,training=false,truth=false,prior=2.0", p.DbSNP)...)
	} else {
		b.add(resource("mills", "known=false,training=true,truth=true,prior=12.0", p.Resources.Mills)...)
		b.add(resource("dbsnp", "known=true,training=false,truth=false,prior=2.0", p.DbSNP)...)
		b.add("--max-gaussians", "4")
	}
	b.repeat("-an", recalAnnotations[p.Mode])
	b.add("-mode", string(p.Mode))
	if gatk3 {
		return b.add("-recalFile", p.Recal, "-tranchesFile", p.Tranches).String(), nil
	}
	return b.add("-O", p.Recal, "--tranches-file", p.Tranches).String(), nil
}

// ApplyVQSRParams applies a VQSR model of one mode
type ApplyVQSRParams struct {
	GATK      GATK
	Mode      RecalMode
	Reference string
	Input     string
	Recal     string
	Tranches  string
	Output    string
}

// ApplyVQSR returns the filtering command for p.Mode. GATK3 names the tool
// ApplyRecalibration.
func ApplyVQSR(p ApplyVQSRParams) (string, error) {
	if _, ok := truthSensitivity[p.Mode]; !ok {
		return "", fmt.Errorf("ApplyVQSR: unknown mode %q", p.Mode)
	}
	if err := joinErrs(
		p.GATK.validate("ApplyVQSR"),
		require("ApplyVQSR",
			field{"reference", p.Reference},
			field{"input", p.Input},
			field{"recal", p.Recal},
			field{"tranches", p.Tranches},
			field{"output", p.Output},
		),
	); err != nil {
		return "", err
	}

	if p.GATK.Generation == model.GATK3 {
		return p.GATK.invoke("ApplyRecalibration").
			add("-R", p.Reference, "-input", p.Input,
				"-recalFile", p.Recal, "-tranchesFile", p.Tranches,
				"--ts_filter_level", truthSensitivity[p.Mode],
				"-mode", string(p.Mode), "-o", p.Output).
			String(), nil
	}
	return p.GATK.invoke("ApplyVQSR").
		add("-R", p.Reference, "-V", p.Input,
			"--recal-file", p.Recal, "--tranches-file", p.Tranches,
			"--truth-sensitivity-filter-level", truthSensitivity[p.Mode],
			"-mode", string(p.Mode), "-O", p.Output).
		String(), nil
}

// VariantFiltrationParams hard-filters RNA-seq calls
type VariantFiltrationParams struct {
	GATK      GATK
	Reference string
	Input     string
	Output    string
}

// VariantFiltration returns the RNA-seq hard filtering command.
func VariantFiltration(p VariantFiltrationParams) (string, error) {
	if err := joinErrs(
		p.GATK.validate("VariantFiltration"),
		require("VariantFiltration",
			field{"reference", p.Reference},
			field{"input", p.Input},
			field{"output", p.Output},
		),
	); err != nil {
		return "", err
	}

	filter := "--filter-expression"
	if p.GATK.Generation == model.GATK3 {
		filter = "--filterExpression"
	}
	name := "--filter-name"
	if p.GATK.Generation == model.GATK3 {
		name = "--filterName"
	}
	return p.GATK.invoke("VariantFiltration").
		add("-R", p.Reference, p.GATK.variant(), p.Input,
			"-window", "35", "-cluster", "3",
			name, "FS", filter, `"FS > 30.0"`,
			name, "QD", filter, `"QD < 2.0"`,
			p.GATK.out(), p.Output).
		String(), nil
}
