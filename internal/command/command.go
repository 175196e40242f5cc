// Package command builds the shell command text of every pipeline tool.
//
// Functions here are pure: they interpolate paths and flags from typed
// parameter structs and never touch the filesystem. Version- or mode-specific
// syntax is chosen from explicit tags carried by the parameters.
package command

import (
	"fmt"
	"strings"

	cerror "github.com/sourceplane/varcall/internal/errors"
	"github.com/sourceplane/varcall/internal/model"
	"go.uber.org/multierr"
)

// field is a named parameter checked for presence
type field struct {
	name  string
	value string
}

// require returns an error naming every empty field of tool.
func require(tool string, fields ...field) error {
	var errs error
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			errs = multierr.Append(errs, cerror.ErrMissingParameter.GenWithStackByArgs(tool, f.name))
		}
	}
	return errs
}

func joinErrs(errs ...error) error {
	return multierr.Combine(errs...)
}

// builder accumulates command arguments
type builder struct {
	parts []string
}

func newBuilder(base ...string) *builder {
	return &builder{parts: append([]string{}, base...)}
}

func (b *builder) add(args ...string) *builder {
	b.parts = append(b.parts, args...)
	return b
}

// opt adds flag and value only when value is set.
func (b *builder) opt(flag, value string) *builder {
	if value != "" {
		b.parts = append(b.parts, flag, value)
	}
	return b
}

// repeat adds flag once per value.
func (b *builder) repeat(flag string, values []string) *builder {
	for _, v := range values {
		b.parts = append(b.parts, flag, v)
	}
	return b
}

func (b *builder) String() string {
	return strings.Join(b.parts, " ")
}

// GATK is the invocation context shared by all GATK tools
type GATK struct {
	Generation model.ToolGeneration
	JavaMem    string
	// Jar is the GenomeAnalysisTK.jar path, used only by GATK3
	Jar string
}

func (g GATK) validate(tool string) error {
	fields := []field{{"java_mem", g.JavaMem}}
	if g.Generation == model.GATK3 {
		fields = append(fields, field{"gatk jar", g.Jar})
	}
	return require(tool, fields...)
}

// invoke starts a GATK command line for tool.
func (g GATK) invoke(tool string) *builder {
	if g.Generation == model.GATK3 {
		return newBuilder("java", fmt.Sprintf("-Xmx%s", g.JavaMem), "-jar", g.Jar, "-T", tool)
	}
	return newBuilder("gatk", "--java-options", fmt.Sprintf("\"-Xmx%s\"", g.JavaMem), tool)
}

// out returns the output flag of the generation.
func (g GATK) out() string {
	if g.Generation == model.GATK3 {
		return "-o"
	}
	return "-O"
}

// variant returns the input VCF flag of the generation.
func (g GATK) variant() string {
	if g.Generation == model.GATK3 {
		return "--variant"
	}
	return "-V"
}
