package ir

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NamedType is a (name, type) pair such as a function input or a class
// block argument.
type NamedType struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// Field is a class field. Type carries its own attributes: the
// constraints declared on the type expression and its span.
type Field struct {
	Name string     `json:"name"`
	Type Node[Type] `json:"type"`
}

// Class is a structured output or input type.
type Class struct {
	Name         string        `json:"name"`
	StaticFields []Node[Field] `json:"static_fields"`
	Inputs       []NamedType   `json:"inputs"`
}

// FieldNames returns the class field names in declaration order.
func (c Class) FieldNames() []string {
	names := make([]string, len(c.StaticFields))
	for i, f := range c.StaticFields {
		names[i] = f.Elem.Name
	}
	return names
}

// EnumValue is one named member of an enum.
type EnumValue string

// Enum is a closed set of named values.
type Enum struct {
	Name   string            `json:"name"`
	Values []Node[EnumValue] `json:"values"`
}

// ClientSpec identifies the client a function runs against: either a named
// client declaration or a provider/model shorthand. Exactly one form is set.
type ClientSpec struct {
	named    string
	provider string
	model    string
}

// NamedClient returns a spec referencing the client declared as name.
func NamedClient(name string) ClientSpec { return ClientSpec{named: name} }

// ShorthandClient returns an inline provider/model spec.
func ShorthandClient(provider, model string) ClientSpec {
	return ClientSpec{provider: provider, model: model}
}

// ParseClientSpec splits "provider/model" into a shorthand spec and treats
// anything without a slash as a named client. Only the first slash splits,
// so model names may contain slashes.
func ParseClientSpec(id string) (ClientSpec, error) {
	if id == "" {
		return ClientSpec{}, fmt.Errorf("client spec is empty")
	}
	provider, model, ok := strings.Cut(id, "/")
	if !ok {
		return NamedClient(id), nil
	}
	if provider == "" || model == "" {
		return ClientSpec{}, fmt.Errorf("client spec %q: expected provider/model", id)
	}
	return ShorthandClient(provider, model), nil
}

// Named returns the client name for a named spec.
func (s ClientSpec) Named() (string, bool) { return s.named, s.named != "" }

// Shorthand returns provider and model for a shorthand spec.
func (s ClientSpec) Shorthand() (provider, model string, ok bool) {
	return s.provider, s.model, s.named == "" && s.provider != ""
}

func (s ClientSpec) String() string {
	if s.named != "" {
		return s.named
	}
	return s.provider + "/" + s.model
}

func (s ClientSpec) MarshalJSON() ([]byte, error) {
	if s.named != "" {
		return json.Marshal(struct {
			Kind string `json:"kind"`
			Name string `json:"name"`
		}{"named", s.named})
	}
	return json.Marshal(struct {
		Kind     string `json:"kind"`
		Provider string `json:"provider"`
		Model    string `json:"model"`
	}{"shorthand", s.provider, s.model})
}

// FunctionConfig is one prompt/client binding of a function.
type FunctionConfig struct {
	Name           string     `json:"name"`
	PromptTemplate string     `json:"prompt_template"`
	PromptSpan     Span       `json:"-"`
	Client         ClientSpec `json:"client"`
}

// DefaultConfigName names the single config every function carries.
const DefaultConfigName = "default_config"

// Function is an LLM function signature with its prompt configs.
type Function struct {
	Name          string           `json:"name"`
	Inputs        []NamedType      `json:"inputs"`
	Output        Type             `json:"output"`
	Configs       []FunctionConfig `json:"configs"`
	DefaultConfig string           `json:"default_config"`
	Tests         []Node[TestCase] `json:"tests"`
}

// Input returns the declared type of the named input.
func (f Function) Input(name string) (Type, bool) {
	for _, in := range f.Inputs {
		if in.Name == name {
			return in.Type, true
		}
	}
	return nil, false
}

// Option is one named option expression of a client or retry policy.
type Option struct {
	Name  string     `json:"name"`
	Value Expression `json:"value"`
}

// Client is a named LLM client declaration.
type Client struct {
	Name          string   `json:"name"`
	Provider      string   `json:"provider"`
	RetryPolicyID string   `json:"retry_policy_id,omitempty"`
	Options       []Option `json:"options"`
}

// RetryStrategyType names a backoff algorithm.
type RetryStrategyType string

const (
	ConstantDelay      RetryStrategyType = "constant_delay"
	ExponentialBackoff RetryStrategyType = "exponential_backoff"
)

// RetryStrategy is the backoff schedule of a retry policy. Multiplier and
// MaxDelayMs apply to exponential backoff only.
type RetryStrategy struct {
	Type       RetryStrategyType `json:"type"`
	DelayMs    int               `json:"delay_ms"`
	Multiplier float64           `json:"multiplier,omitempty"`
	MaxDelayMs int               `json:"max_delay_ms,omitempty"`
}

// RetryPolicy is a named retry policy declaration.
type RetryPolicy struct {
	Name       string        `json:"name"`
	MaxRetries int           `json:"max_retries"`
	Strategy   RetryStrategy `json:"strategy"`
	Options    []Option      `json:"options"`
}

// TestCaseFunction names one function a test case exercises.
type TestCaseFunction string

// TestCase is a named set of arguments run against one or more functions.
// Args keeps declaration order.
type TestCase struct {
	Name      string                   `json:"name"`
	Functions []Node[TestCaseFunction] `json:"functions"`
	Args      MapExpr                  `json:"args"`
}

// TemplateString is a reusable named prompt fragment.
type TemplateString struct {
	Name    string  `json:"name"`
	Params  []Field `json:"params"`
	Content string  `json:"content"`
}

// Generator is one code generation target declared in the schema.
type Generator struct {
	Name       string `yaml:"name"`
	OutputType string `yaml:"output_type"`
	OutputDir  string `yaml:"output_dir"`
	Version    string `yaml:"version"`
}

// Configuration carries schema-level settings consumed outside the core.
// It is never serialized with the IR.
type Configuration struct {
	Generators []Generator
}
