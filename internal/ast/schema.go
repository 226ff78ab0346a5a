package ast

import (
	"iter"
	"slices"

	"github.com/roach88/promptc/internal/ir"
)

// BlockArg is a named, typed parameter: a function input, a class input or
// a template string parameter.
type BlockArg struct {
	Name string
	Type FieldType
	Span ir.Span
}

// EnumValue is one member of an enum block.
type EnumValue struct {
	Name       string
	Attributes []Attribute
	Span       ir.Span
}

// Enum is an enum block.
type Enum struct {
	Name       string
	Attributes []Attribute
	Values     []EnumValue
	Span       ir.Span
}

// Field is a class field. Attributes belong to the field itself; attributes
// on Type (asserts and checks) belong to the type.
type Field struct {
	Name       string
	Type       FieldType
	Attributes []Attribute
	Span       ir.Span
}

// Class is a class block.
type Class struct {
	Name       string
	Attributes []Attribute
	Fields     []Field
	Inputs     []BlockArg
	Span       ir.Span
}

// Function is a function block. Output is nil when the declaration had no
// parseable return type.
type Function struct {
	Name       string
	Attributes []Attribute
	Inputs     []BlockArg
	Output     FieldType
	Client     string
	Prompt     string
	PromptSpan ir.Span
	Span       ir.Span
}

// Option is a key/value entry in a client, retry policy or test block.
type Option struct {
	Key   string
	Value Expression
	Span  ir.Span
}

// Client is a client block.
type Client struct {
	Name        string
	Provider    string
	RetryPolicy string
	Options     []Option
	Span        ir.Span
}

// RetryStrategy is the strategy sub-block of a retry policy.
type RetryStrategy struct {
	Type       string
	DelayMs    int
	Multiplier float64
	MaxDelayMs int
}

// RetryPolicy is a retry_policy block.
type RetryPolicy struct {
	Name       string
	MaxRetries int
	Strategy   RetryStrategy
	Options    []Option
	Span       ir.Span
}

// TemplateString is a template_string block.
type TemplateString struct {
	Name    string
	Inputs  []BlockArg
	Content string
	Span    ir.Span
}

// TestFunction is one entry of a test block's functions list.
type TestFunction struct {
	Name string
	Span ir.Span
}

// TestCase is a test block.
type TestCase struct {
	Name       string
	Attributes []Attribute
	Functions  []TestFunction
	Args       []Option
	Span       ir.Span
}

// Generator is a generator block.
type Generator struct {
	Name       string
	OutputType string
	OutputDir  string
	Version    string
	Span       ir.Span
}

// Database exposes a parsed schema as read-only walkers, one per block kind,
// in source order.
type Database interface {
	Enums() iter.Seq[*Enum]
	Classes() iter.Seq[*Class]
	Functions() iter.Seq[*Function]
	Clients() iter.Seq[*Client]
	RetryPolicies() iter.Seq[*RetryPolicy]
	TemplateStrings() iter.Seq[*TemplateString]
	Tests() iter.Seq[*TestCase]
	Generators() iter.Seq[*Generator]
}

// Schema is an in-memory Database.
type Schema struct {
	EnumDecls           []Enum
	ClassDecls          []Class
	FunctionDecls       []Function
	ClientDecls         []Client
	RetryPolicyDecls    []RetryPolicy
	TemplateStringDecls []TemplateString
	TestDecls           []TestCase
	GeneratorDecls      []Generator
}

var _ Database = (*Schema)(nil)

func seqOf[T any](items []T) iter.Seq[*T] {
	return func(yield func(*T) bool) {
		for i := range items {
			if !yield(&items[i]) {
				return
			}
		}
	}
}

func (s *Schema) Enums() iter.Seq[*Enum]             { return seqOf(s.EnumDecls) }
func (s *Schema) Classes() iter.Seq[*Class]          { return seqOf(s.ClassDecls) }
func (s *Schema) Functions() iter.Seq[*Function]     { return seqOf(s.FunctionDecls) }
func (s *Schema) Clients() iter.Seq[*Client]         { return seqOf(s.ClientDecls) }
func (s *Schema) Tests() iter.Seq[*TestCase]         { return seqOf(s.TestDecls) }
func (s *Schema) Generators() iter.Seq[*Generator]   { return seqOf(s.GeneratorDecls) }
func (s *Schema) RetryPolicies() iter.Seq[*RetryPolicy] {
	return seqOf(s.RetryPolicyDecls)
}
func (s *Schema) TemplateStrings() iter.Seq[*TemplateString] {
	return seqOf(s.TemplateStringDecls)
}

// Merge appends every declaration of other to s.
func (s *Schema) Merge(other *Schema) {
	s.EnumDecls = append(s.EnumDecls, other.EnumDecls...)
	s.ClassDecls = append(s.ClassDecls, other.ClassDecls...)
	s.FunctionDecls = append(s.FunctionDecls, other.FunctionDecls...)
	s.ClientDecls = append(s.ClientDecls, other.ClientDecls...)
	s.RetryPolicyDecls = append(s.RetryPolicyDecls, other.RetryPolicyDecls...)
	s.TemplateStringDecls = append(s.TemplateStringDecls, other.TemplateStringDecls...)
	s.TestDecls = append(s.TestDecls, other.TestDecls...)
	s.GeneratorDecls = append(s.GeneratorDecls, other.GeneratorDecls...)
}

// Collect drains a walker into a slice.
func Collect[T any](seq iter.Seq[*T]) []*T {
	return slices.Collect(seq)
}
