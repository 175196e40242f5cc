package planner

import (
	"github.com/sourceplane/varcall/internal/command"
	"github.com/sourceplane/varcall/internal/model"
)

// output suffixes, appended to the sample ID
const (
	recalBAM        = ".recal.bam"
	recalTable      = ".recal.table"
	starBAM         = ".star.bam"
	mutectVCF       = ".mutect2.vcf.gz"
	mutectFiltered  = ".mutect2.filtered.vcf.gz"
	mutectMAF       = ".mutect2.maf"
	sniperVCF       = ".sniper.vcf"
	sniperFiltered  = ".sniper.filtered.vcf.gz"
	sniperMAF       = ".sniper.maf"
	haplotypeVCF    = ".hc.vcf.gz"
	vqsrVCF         = ".vqsr.vcf.gz"
	rnaFilteredVCF  = ".hc.filtered.vcf.gz"
	cpsrReport      = ".cpsr.html"
	snpRecal        = ".snp.recal"
	snpTranches     = ".snp.tranches"
	snpRecalibrated = ".snp.vqsr.vcf.gz"
	indelRecal      = ".indel.recal"
	indelTranches   = ".indel.tranches"
)

func init() {
	register(somaticMutect2())
	register(somaticSniper())
	register(germline())
	register(rnaseq())
}

func fixed(suffix string) func(Context) string {
	return func(c Context) string { return c.Output(suffix) }
}

// bqsrPhase recalibrates base qualities of a DNA BAM
func bqsrPhase() Phase {
	return Phase{
		Name:   "align",
		Output: fixed(recalBAM),
		Stages: func(c Context) ([]StageSpec, error) {
			ref := c.Config.Reference
			var l stageList

			cmd, err := command.BaseRecalibrator(command.BaseRecalibratorParams{
				GATK:       c.GATK("base_recalibrator"),
				Reference:  ref.Fasta,
				Input:      c.Sample.BAM,
				KnownSites: ref.KnownSites,
				Table:      c.Tmp(recalTable),
			})
			l.add("base_recalibrator", "", []string{"gatk"}, cmd, err)

			cmd, err = command.ApplyBQSR(command.ApplyBQSRParams{
				GATK:      c.GATK("apply_bqsr"),
				Reference: ref.Fasta,
				Input:     c.Sample.BAM,
				Table:     c.Tmp(recalTable),
				Output:    c.Tmp(recalBAM),
			})
			l.add("apply_bqsr", "", []string{"gatk"}, cmd, err)
			return l.result()
		},
	}
}

// vcf2mafPhase annotates a published tumour VCF
func vcf2mafPhase(input, output string) Phase {
	return Phase{
		Name:   "annotate",
		Output: fixed(output),
		Stages: func(c Context) ([]StageSpec, error) {
			var l stageList
			cmd, err := command.Vcf2Maf(command.Vcf2MafParams{
				Build:     c.Config.Build,
				Reference: c.Config.Reference.Fasta,
				VepData:   c.Config.Reference.VepData,
				Input:     c.Output(input),
				TumourID:  c.Sample.ID,
				NormalID:  c.NormalID(),
				Output:    c.Tmp(output),
			})
			l.add("vcf2maf", "", []string{"bcftools", "vep", "vcf2maf"}, cmd, err)
			return l.result()
		},
	}
}

func somaticMutect2() *Pipeline {
	call := Phase{
		Name:        "call",
		NeedsNormal: true,
		Output:      fixed(mutectVCF),
		Stages: func(c Context) ([]StageSpec, error) {
			cfg := c.Config
			var l stageList
			cmd, err := command.Mutect(command.MutectParams{
				GATK:             c.GATK("mutect"),
				MutectJar:        cfg.Jars["mutect"],
				Reference:        cfg.Reference.Fasta,
				Tumour:           c.Output(recalBAM),
				TumourName:       c.Sample.ID,
				Normal:           c.NormalOutput(recalBAM),
				NormalName:       c.NormalID(),
				PanelOfNormals:   cfg.PanelOfNormals,
				GermlineResource: cfg.GermlineResource,
				DbSNP:            cfg.Reference.DbSNP,
				Output:           c.Tmp(mutectVCF),
			})
			tools := []string{"gatk"}
			if cfg.GATK == model.GATK3 {
				tools = []string{"java"}
			}
			l.add("mutect", "", tools, cmd, err)
			return l.result()
		},
	}
	filter := Phase{
		Name:   "filter",
		Output: fixed(mutectFiltered),
		Stages: func(c Context) ([]StageSpec, error) {
			var l stageList
			cmd, err := command.FilterMutectCalls(command.FilterMutectCallsParams{
				GATK:      c.GATK("filter_mutect_calls"),
				Reference: c.Config.Reference.Fasta,
				Input:     c.Output(mutectVCF),
				Output:    c.Tmp(mutectFiltered),
			})
			tools := []string{"gatk"}
			if c.Config.GATK == model.GATK3 {
				tools = []string{"bcftools"}
			}
			l.add("filter_mutect_calls", "", tools, cmd, err)
			return l.result()
		},
	}

	return &Pipeline{
		Name:         "somatic-mutect2",
		Description:  "somatic SNV and indel calling with Mutect, annotated to MAF",
		NormalPhases: []Phase{bqsrPhase()},
		TumourPhases: []Phase{bqsrPhase(), call, filter, vcf2mafPhase(mutectFiltered, mutectMAF)},
		Prepare:      true,
		Collate:      true,
	}
}

func somaticSniper() *Pipeline {
	call := Phase{
		Name:        "call",
		NeedsNormal: true,
		Output:      fixed(sniperVCF),
		Stages: func(c Context) ([]StageSpec, error) {
			var l stageList
			cmd, err := command.SomaticSniper(command.SomaticSniperParams{
				Reference: c.Config.Reference.Fasta,
				Tumour:    c.Output(recalBAM),
				Normal:    c.NormalOutput(recalBAM),
				Output:    c.Tmp(sniperVCF),
			})
			l.add("somatic_sniper", "", []string{"somaticsniper"}, cmd, err)
			return l.result()
		},
	}
	filter := Phase{
		Name:   "filter",
		Output: fixed(sniperFiltered),
		Stages: func(c Context) ([]StageSpec, error) {
			var l stageList
			cmd, err := command.SomaticSniperFilter(command.SomaticSniperFilterParams{
				Input:  c.Output(sniperVCF),
				Output: c.Tmp(sniperFiltered),
			})
			l.add("sniper_filter", "", []string{"bcftools"}, cmd, err)
			return l.result()
		},
	}

	return &Pipeline{
		Name:           "somatic-sniper",
		Description:    "somatic SNV calling with SomaticSniper, annotated to MAF",
		NormalPhases:   []Phase{bqsrPhase()},
		TumourPhases:   []Phase{bqsrPhase(), call, filter, vcf2mafPhase(sniperFiltered, sniperMAF)},
		RequiresNormal: true,
		Prepare:        true,
		Collate:        true,
	}
}

func germline() *Pipeline {
	call := Phase{
		Name:   "call",
		Output: fixed(haplotypeVCF),
		Stages: func(c Context) ([]StageSpec, error) {
			var l stageList
			cmd, err := command.HaplotypeCaller(command.HaplotypeCallerParams{
				GATK:      c.GATK("haplotype_caller"),
				Reference: c.Config.Reference.Fasta,
				Input:     c.Output(recalBAM),
				DbSNP:     c.Config.Reference.DbSNP,
				Output:    c.Tmp(haplotypeVCF),
			})
			l.add("haplotype_caller", "", []string{"gatk"}, cmd, err)
			return l.result()
		},
	}
	filter := Phase{
		Name:   "filter",
		Output: fixed(vqsrVCF),
		Stages: func(c Context) ([]StageSpec, error) {
			ref := c.Config.Reference
			var l stageList

			cmd, err := command.VariantRecalibrator(command.VariantRecalibratorParams{
				GATK:      c.GATK("variant_recalibrator"),
				Mode:      command.SNP,
				Reference: ref.Fasta,
				Input:     c.Output(haplotypeVCF),
				Resources: ref.Resources,
				DbSNP:     ref.DbSNP,
				Recal:     c.Tmp(snpRecal),
				Tranches:  c.Tmp(snpTranches),
			})
			l.add("variant_recalibrator_snp", "variant_recalibrator", []string{"gatk"}, cmd, err)

			cmd, err = command.ApplyVQSR(command.ApplyVQSRParams{
				GATK:      c.GATK("apply_vqsr"),
				Mode:      command.SNP,
				Reference: ref.Fasta,
				Input:     c.Output(haplotypeVCF),
				Recal:     c.Tmp(snpRecal),
				Tranches:  c.Tmp(snpTranches),
				Output:    c.Tmp(snpRecalibrated),
			})
			l.add("apply_vqsr_snp", "apply_vqsr", []string{"gatk"}, cmd, err)

			cmd, err = command.VariantRecalibrator(command.VariantRecalibratorParams{
				GATK:      c.GATK("variant_recalibrator"),
				Mode:      command.INDEL,
				Reference: ref.Fasta,
				Input:     c.Tmp(snpRecalibrated),
				Resources: ref.Resources,
				DbSNP:     ref.DbSNP,
				Recal:     c.Tmp(indelRecal),
				Tranches:  c.Tmp(indelTranches),
			})
			l.add("variant_recalibrator_indel", "variant_recalibrator", []string{"gatk"}, cmd, err)

			cmd, err = command.ApplyVQSR(command.ApplyVQSRParams{
				GATK:      c.GATK("apply_vqsr"),
				Mode:      command.INDEL,
				Reference: ref.Fasta,
				Input:     c.Tmp(snpRecalibrated),
				Recal:     c.Tmp(indelRecal),
				Tranches:  c.Tmp(indelTranches),
				Output:    c.Tmp(vqsrVCF),
			})
			l.add("apply_vqsr_indel", "apply_vqsr", []string{"gatk"}, cmd, err)
			return l.result()
		},
	}
	annotate := Phase{
		Name:   "annotate",
		Output: fixed(cpsrReport),
		Stages: func(c Context) ([]StageSpec, error) {
			var l stageList
			cmd, err := command.CPSR(command.CPSRParams{
				Build:    c.Config.Build,
				PCGRData: c.Config.Reference.PCGRData,
				Input:    c.Output(vqsrVCF),
				Sample:   c.Sample.ID,
				Output:   c.Tmp(cpsrReport),
			})
			l.add("cpsr", "", []string{"cpsr"}, cmd, err)
			return l.result()
		},
	}

	return &Pipeline{
		Name:         "germline",
		Description:  "germline calling of normal samples with HaplotypeCaller and VQSR, reported with CPSR",
		NormalPhases: []Phase{bqsrPhase(), call, filter, annotate},
		Prepare:      true,
	}
}

func rnaseq() *Pipeline {
	align := Phase{
		Name:   "align",
		Output: fixed(starBAM),
		Stages: func(c Context) ([]StageSpec, error) {
			var l stageList
			params, _ := StageParams(c.Config, "star_align")
			cmd, err := command.StarAlign(command.StarAlignParams{
				Input:     c.Sample.BAM,
				GenomeDir: c.Config.Reference.StarIndex,
				Sample:    c.Sample.ID,
				CPUs:      params.CPUs,
				Output:    c.Tmp(starBAM),
			})
			l.add("star_align", "", []string{"samtools", "star"}, cmd, err)
			return l.result()
		},
	}
	call := Phase{
		Name:   "call",
		Output: fixed(haplotypeVCF),
		Stages: func(c Context) ([]StageSpec, error) {
			var l stageList
			cmd, err := command.HaplotypeCaller(command.HaplotypeCallerParams{
				GATK:      c.GATK("haplotype_caller"),
				Reference: c.Config.Reference.Fasta,
				Input:     c.Output(starBAM),
				DbSNP:     c.Config.Reference.DbSNP,
				Output:    c.Tmp(haplotypeVCF),
				RNA:       true,
			})
			l.add("haplotype_caller", "", []string{"gatk"}, cmd, err)
			return l.result()
		},
	}
	filter := Phase{
		Name:   "filter",
		Output: fixed(rnaFilteredVCF),
		Stages: func(c Context) ([]StageSpec, error) {
			var l stageList
			cmd, err := command.VariantFiltration(command.VariantFiltrationParams{
				GATK:      c.GATK("variant_filtration"),
				Reference: c.Config.Reference.Fasta,
				Input:     c.Output(haplotypeVCF),
				Output:    c.Tmp(rnaFilteredVCF),
			})
			l.add("variant_filtration", "", []string{"gatk"}, cmd, err)
			return l.result()
		},
	}

	phases := []Phase{align, call, filter}
	return &Pipeline{
		Name:         "rnaseq",
		Description:  "RNA-seq variant calling: STAR two-pass alignment, HaplotypeCaller and hard filters",
		NormalPhases: phases,
		TumourPhases: phases,
		Prepare:      true,
	}
}
