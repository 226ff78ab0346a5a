package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is the CUE schema directory to load and compile.
	Schema string `yaml:"schema"`

	// Context selects the registry flow steps evaluate against:
	// "prompt" (default) or "constraint".
	Context string `yaml:"context,omitempty"`

	// Flow evaluates template expressions against the compiled schema.
	Flow []EvalStep `yaml:"flow,omitempty"`

	// Assertions validate the compile outcome.
	Assertions []Assertion `yaml:"assertions"`
}

// EvalStep type-checks one template expression.
type EvalStep struct {
	// Eval is the expression source, without {{ }}.
	Eval string `yaml:"eval"`

	// Vars declares variables as name: type (e.g. jobs: "Job[]?").
	Vars map[string]string `yaml:"vars,omitempty"`

	// Expect specifies the expected type and diagnostics.
	// If nil, the step is only recorded.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected evaluation result.
type ExpectClause struct {
	// Type is the expected rendered type (e.g. "string", "Job[]").
	Type string `yaml:"type,omitempty"`

	// Diagnostics are substrings that must each appear in some diagnostic.
	// When empty the step must produce no diagnostics.
	Diagnostics []string `yaml:"diagnostics,omitempty"`
}

// Assertion validates the outcome of compiling the scenario's schema.
type Assertion struct {
	// Type specifies the assertion type (see the Assert constants).
	Type string `yaml:"type"`

	// Codes are the expected error codes, in any order (error_codes).
	Codes []string `yaml:"codes,omitempty"`

	// Kind is the entity collection counted by entity_count.
	Kind string `yaml:"kind,omitempty"`

	// Count is the expected number (entity_count, finding_count).
	Count int `yaml:"count,omitempty"`

	// Entity restricts finding_count to one declaration.
	Entity string `yaml:"entity,omitempty"`

	// Names are env var names (env_vars) or class names (recursive_cycle).
	Names []string `yaml:"names,omitempty"`
}

// Assertion type constants.
const (
	AssertCompiles       = "compiles"
	AssertErrorCodes     = "error_codes"
	AssertEntityCount    = "entity_count"
	AssertEnvVars        = "env_vars"
	AssertFindingCount   = "finding_count"
	AssertRecursiveCycle = "recursive_cycle"
)

// Entity kinds accepted by entity_count.
var entityKinds = []string{"enums", "classes", "functions", "clients", "retry_policies", "template_strings", "tests"}

// LoadScenario reads and parses a scenario YAML file. The schema path is
// resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the schema path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve the schema path BEFORE validation
	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) && basePath != "" {
		scenario.Schema = filepath.Join(basePath, scenario.Schema)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if info, err := os.Stat(s.Schema); err != nil || !info.IsDir() {
		return fmt.Errorf("schema directory not found: %s", s.Schema)
	}

	if s.Context != "" && s.Context != "prompt" && s.Context != "constraint" {
		return fmt.Errorf("context must be \"prompt\" or \"constraint\", got %q", s.Context)
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Flow {
		if step.Eval == "" {
			return fmt.Errorf("flow[%d]: eval is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCompiles:
	case AssertErrorCodes:
		if len(a.Codes) == 0 {
			return fmt.Errorf("assertions[%d]: codes list is required for error_codes", index)
		}
	case AssertEntityCount:
		if !slices.Contains(entityKinds, a.Kind) {
			return fmt.Errorf("assertions[%d]: kind must be one of %v for entity_count", index, entityKinds)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for entity_count", index)
		}
	case AssertEnvVars:
		// An empty names list asserts that no env vars are required.
	case AssertFindingCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for finding_count", index)
		}
	case AssertRecursiveCycle:
		if len(a.Names) == 0 {
			return fmt.Errorf("assertions[%d]: names list is required for recursive_cycle", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
