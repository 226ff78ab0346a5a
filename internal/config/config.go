// Package config loads promptc.yaml project settings.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/promptc/internal/ir"
	"github.com/roach88/promptc/internal/typecheck"
)

// DefaultFile is the config file looked up when --config is not given.
const DefaultFile = "promptc.yaml"

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config is the contents of promptc.yaml. Command-line flags override
// individual fields after loading.
type Config struct {
	// SchemaDir is the directory of .cue schema files.
	SchemaDir string `yaml:"schema_dir"`

	// Output is where compile writes indented IR JSON. Empty means no file.
	Output string `yaml:"output,omitempty"`

	// Format is the CLI output format: "text" or "json".
	Format string `yaml:"format"`

	// Database is the SQLite snapshot store. Empty disables history.
	Database string `yaml:"database,omitempty"`

	// StrictTemplates makes template diagnostics fail `check`.
	StrictTemplates bool `yaml:"strict_templates"`

	// Context is the registry `eval` starts from: "prompt" or "constraint".
	Context string `yaml:"context"`

	// Generators are carried into the IR configuration untouched.
	Generators []ir.Generator `yaml:"generators,omitempty"`
}

// Default returns the settings used when no file is present.
func Default() Config {
	return Config{
		SchemaDir: ".",
		Format:    FormatText,
		Context:   typecheck.ContextPrompt.String(),
	}
}

// Load reads path, applying defaults for omitted fields. Unknown keys are
// rejected so typos surface instead of being ignored.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOptional is Load, except that a missing file yields Default.
func LoadOptional(path string) (Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate checks field values.
func (c Config) Validate() error {
	var errs []error
	if c.SchemaDir == "" {
		errs = append(errs, errors.New("schema_dir is required"))
	}
	switch c.Format {
	case FormatText, FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("format must be %q or %q, got %q", FormatText, FormatJSON, c.Format))
	}
	if _, err := ParseContext(c.Context); err != nil {
		errs = append(errs, err)
	}
	seen := map[string]bool{}
	for i, g := range c.Generators {
		switch {
		case g.Name == "":
			errs = append(errs, fmt.Errorf("generators[%d]: name is required", i))
		case seen[g.Name]:
			errs = append(errs, fmt.Errorf("generators[%d]: duplicate name %q", i, g.Name))
		}
		seen[g.Name] = true
		if g.OutputType == "" {
			errs = append(errs, fmt.Errorf("generators[%d]: output_type is required", i))
		}
	}
	return errors.Join(errs...)
}

// EvalContext returns the configured registry context.
func (c Config) EvalContext() typecheck.Context {
	ctx, _ := ParseContext(c.Context)
	return ctx
}

// ParseContext maps "prompt" and "constraint" to a registry context.
func ParseContext(s string) (typecheck.Context, error) {
	switch s {
	case typecheck.ContextPrompt.String():
		return typecheck.ContextPrompt, nil
	case typecheck.ContextConstraint.String():
		return typecheck.ContextConstraint, nil
	}
	return typecheck.ContextPrompt, fmt.Errorf("context must be %q or %q, got %q",
		typecheck.ContextPrompt, typecheck.ContextConstraint, s)
}
