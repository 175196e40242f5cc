package model

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-semver/semver"
	"github.com/docker/go-units"
	cerror "github.com/sourceplane/varcall/internal/errors"
)

// ToolConfig is the tool versions/parameters document
type ToolConfig struct {
	Reference        Reference              `yaml:"reference" json:"reference"`
	// Versions keeps the YAML scalar text, so an unquoted 4.10 stays "4.10"
	Versions         map[string]string      `yaml:"versions" json:"versions"`
	Modules          map[string]string      `yaml:"modules" json:"modules"`
	Jars             map[string]string      `yaml:"jars" json:"jars,omitempty"`
	PanelOfNormals   string                 `yaml:"panel_of_normals" json:"panel_of_normals,omitempty"`
	GermlineResource string                 `yaml:"germline_resource" json:"germline_resource,omitempty"`
	CollateScript    string                 `yaml:"collate_script" json:"collate_script,omitempty"`
	Stages           map[string]StageParams `yaml:"stages" json:"stages"`
	Scheduler        SchedulerConfig        `yaml:"scheduler" json:"scheduler"`

	// Resolved once at load time
	Build RefBuild       `yaml:"-" json:"-"`
	GATK  ToolGeneration `yaml:"-" json:"-"`
}

// Reference holds genome reference paths
type Reference struct {
	Fasta      string        `yaml:"fasta" json:"fasta"`
	Build      string        `yaml:"build" json:"build"`
	StarIndex  string        `yaml:"star_index" json:"star_index,omitempty"`
	VepData    string        `yaml:"vep_data" json:"vep_data,omitempty"`
	PCGRData   string        `yaml:"pcgr_data" json:"pcgr_data,omitempty"`
	DbSNP      string        `yaml:"dbsnp" json:"dbsnp,omitempty"`
	KnownSites []string      `yaml:"known_sites" json:"known_sites,omitempty"`
	Resources  VQSRResources `yaml:"resources" json:"resources"`
}

// VQSRResources are the truth/training sets used by variant recalibration
type VQSRResources struct {
	HapMap string `yaml:"hapmap" json:"hapmap,omitempty"`
	Omni   string `yaml:"omni" json:"omni,omitempty"`
	G1K    string `yaml:"g1k" json:"g1k,omitempty"`
	Mills  string `yaml:"mills" json:"mills,omitempty"`
}

// SchedulerConfig carries scheduler options shared by every submission
type SchedulerConfig struct {
	ExtraArgs string `yaml:"extra_args" json:"extra_args,omitempty"`
}

// StageParams is the per-stage parameter block
type StageParams struct {
	Time    string `yaml:"time" json:"time"`
	Mem     string `yaml:"mem" json:"mem"`
	JavaMem string `yaml:"java_mem" json:"java_mem,omitempty"`
	CPUs    int    `yaml:"cpus" json:"cpus,omitempty"`
}

// Resources converts the parameter block into scheduler resources.
func (p StageParams) Resources() (Resources, error) {
	mem, err := units.RAMInBytes(p.Mem)
	if err != nil {
		return Resources{}, fmt.Errorf("invalid mem %q: %w", p.Mem, err)
	}
	wall, err := ParseWallTime(p.Time)
	if err != nil {
		return Resources{}, err
	}
	cpus := p.CPUs
	if cpus <= 0 {
		cpus = 1
	}
	return Resources{
		CPUs:    cpus,
		MemMB:   mem / units.MiB,
		Time:    wall,
		JavaMem: p.JavaMem,
	}, nil
}

// ModulesFor returns the module strings declared for tools, in the given
// order, skipping tools without a declared module.
func (c *ToolConfig) ModulesFor(tools ...string) []string {
	modules := make([]string, 0, len(tools))
	for _, tool := range tools {
		if m, ok := c.Modules[tool]; ok && m != "" {
			modules = append(modules, m)
		}
	}
	return modules
}

// StageNames returns the configured stage names sorted.
func (c *ToolConfig) StageNames() []string {
	names := make([]string, 0, len(c.Stages))
	for name := range c.Stages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RefBuild is a reference genome build tag
type RefBuild string

const (
	GRCh37 RefBuild = "GRCh37"
	Hg19   RefBuild = "hg19"
	Hg38   RefBuild = "hg38"
	GRCh38 RefBuild = "GRCh38"
)

// ParseRefBuild resolves a build tag case-insensitively.
func ParseRefBuild(s string) (RefBuild, error) {
	for _, b := range []RefBuild{GRCh37, Hg19, Hg38, GRCh38} {
		if strings.EqualFold(s, string(b)) {
			return b, nil
		}
	}
	return "", cerror.ErrUnsupportedReferenceBuild.GenWithStackByArgs(s)
}

// NCBIBuild returns the NCBI assembly name used by vcf2maf.
func (b RefBuild) NCBIBuild() string {
	if b == Hg38 || b == GRCh38 {
		return "GRCh38"
	}
	return "GRCh37"
}

// Assembly returns the lower-case assembly name used by CPSR.
func (b RefBuild) Assembly() string {
	return strings.ToLower(b.NCBIBuild())
}

// ToolGeneration selects the command syntax family of the GATK tools
type ToolGeneration int

const (
	// GATK3 runs MuTect and GATK through java -jar
	GATK3 ToolGeneration = iota + 3
	// GATK4Early is 4.0.x, where Mutect2 needs -tumor
	GATK4Early
	// GATK4 is 4.1 and later
	GATK4
)

func (g ToolGeneration) String() string {
	switch g {
	case GATK3:
		return "gatk3"
	case GATK4Early:
		return "gatk4.0"
	case GATK4:
		return "gatk4"
	default:
		return "unknown"
	}
}

var versionPrefix = regexp.MustCompile(`^v?(\d+(?:\.\d+){0,2})`)

// ParseGATKGeneration resolves a GATK version string such as "4.1.9.0".
// A bare major version selects the newest syntax of that major.
func ParseGATKGeneration(version string) (ToolGeneration, error) {
	m := versionPrefix.FindStringSubmatch(strings.TrimSpace(version))
	if m == nil {
		return 0, cerror.ErrUnsupportedToolVersion.GenWithStackByArgs("gatk", version)
	}
	parts := strings.Split(m[1], ".")
	bareMajor := len(parts) == 1
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	v, err := semver.NewVersion(strings.Join(parts, "."))
	if err != nil {
		return 0, cerror.WrapError(cerror.ErrUnsupportedToolVersion, err, "gatk", version)
	}

	switch {
	case v.Major == 3:
		return GATK3, nil
	case v.Major == 4 && v.Minor == 0 && !bareMajor:
		return GATK4Early, nil
	case v.Major >= 4:
		return GATK4, nil
	default:
		return 0, cerror.ErrUnsupportedToolVersion.GenWithStackByArgs("gatk", version)
	}
}

// ParseWallTime parses scheduler wall time: minutes, MM:SS, HH:MM:SS,
// D-HH, D-HH:MM or D-HH:MM:SS.
func ParseWallTime(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty wall time")
	}

	var days int
	rest := s
	if i := strings.Index(s, "-"); i >= 0 {
		d, err := strconv.Atoi(s[:i])
		if err != nil || d < 0 {
			return 0, fmt.Errorf("invalid wall time %q", s)
		}
		days = d
		rest = s[i+1:]
	}

	fields := strings.Split(rest, ":")
	nums := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid wall time %q", s)
		}
		nums[i] = n
	}

	var h, m, sec int
	switch {
	case len(nums) > 3:
		return 0, fmt.Errorf("invalid wall time %q", s)
	case rest != s:
		// after "D-" fields are HH[:MM[:SS]]
		h = nums[0]
		if len(nums) > 1 {
			m = nums[1]
		}
		if len(nums) > 2 {
			sec = nums[2]
		}
	case len(nums) == 1:
		m = nums[0]
	case len(nums) == 2:
		m, sec = nums[0], nums[1]
	default:
		h, m, sec = nums[0], nums[1], nums[2]
	}

	d := time.Duration(days)*24*time.Hour +
		time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(sec)*time.Second
	if d <= 0 {
		return 0, fmt.Errorf("wall time %q must be positive", s)
	}
	return d, nil
}
