package command

// SomaticSniperParams calls somatic SNVs from a tumour/normal pair
type SomaticSniperParams struct {
	Reference string
	Tumour    string
	Normal    string
	Output    string
}

// SomaticSniper returns the bam-somaticsniper command writing VCF.
func SomaticSniper(p SomaticSniperParams) (string, error) {
	if err := require("SomaticSniper",
		field{"reference", p.Reference},
		field{"tumour", p.Tumour},
		field{"normal", p.Normal},
		field{"output", p.Output},
	); err != nil {
		return "", err
	}
	return newBuilder("bam-somaticsniper", "-q", "1", "-Q", "15", "-G", "-L", "-F", "vcf",
		"-f", p.Reference, p.Tumour, p.Normal, p.Output).String(), nil
}

// SomaticSniperFilterParams keeps confident somatic calls
type SomaticSniperFilterParams struct {
	Input  string
	Output string
}

// SomaticSniperFilter keeps records whose tumour somatic status is 2
// (somatic) and writes bgzipped VCF.
func SomaticSniperFilter(p SomaticSniperFilterParams) (string, error) {
	if err := require("SomaticSniperFilter",
		field{"input", p.Input},
		field{"output", p.Output},
	); err != nil {
		return "", err
	}
	return newBuilder("bcftools", "view", "-i", `'FMT/SS[1]=2'`, "-Oz", "-o", p.Output, p.Input).String() +
		"\n" + newBuilder("bcftools", "index", "-t", p.Output).String(), nil
}
