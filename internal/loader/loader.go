package loader

import (
	"os"

	cerror "github.com/sourceplane/varcall/internal/errors"
	"github.com/sourceplane/varcall/internal/model"
	"github.com/sourceplane/varcall/internal/normalize"
	"github.com/sourceplane/varcall/internal/schema"
	"gopkg.in/yaml.v3"
)

// Loader reads and validates the tool config and sample manifest
type Loader struct {
	validator *schema.Validator
}

// NewLoader creates a loader backed by the embedded schemas
func NewLoader() (*Loader, error) {
	v, err := schema.NewValidator()
	if err != nil {
		return nil, err
	}
	return &Loader{validator: v}, nil
}

// LoadToolConfig loads the tool config, validates it against the schema and
// resolves the reference build and GATK generation
func (l *Loader) LoadToolConfig(path string) (*model.ToolConfig, error) {
	if path == "" {
		return nil, cerror.ErrMissingFlag.GenWithStackByArgs("--tool")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cerror.WrapError(cerror.ErrConfigRead, err, path)
	}

	if err := l.validator.ValidateToolConfig(data); err != nil {
		return nil, cerror.WrapError(cerror.ErrConfigInvalid, err, path)
	}

	var cfg model.ToolConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, cerror.WrapError(cerror.ErrConfigInvalid, err, path)
	}

	build, err := model.ParseRefBuild(cfg.Reference.Build)
	if err != nil {
		return nil, err
	}
	cfg.Build = build

	if v, ok := cfg.Versions["gatk"]; ok {
		gen, err := model.ParseGATKGeneration(v)
		if err != nil {
			return nil, err
		}
		cfg.GATK = gen
	}

	return &cfg, nil
}

// LoadManifest loads and normalizes the sample manifest
func (l *Loader) LoadManifest(path string) (model.SampleManifest, error) {
	if path == "" {
		return nil, cerror.ErrMissingFlag.GenWithStackByArgs("--data")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cerror.WrapError(cerror.ErrConfigRead, err, path)
	}

	if err := l.validator.ValidateManifest(data); err != nil {
		return nil, cerror.WrapError(cerror.ErrManifestInvalid, err, path)
	}

	var manifest model.SampleManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, cerror.WrapError(cerror.ErrManifestInvalid, err, path)
	}

	return normalize.NormalizeManifest(path, manifest)
}
