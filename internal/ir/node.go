package ir

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Position is a 1-based line/column location in a source file.
type Position struct {
	Line   int
	Column int
}

// Span is the source range a node was lowered from.
type Span struct {
	File  string
	Start Position
	End   Position
}

// IsZero reports whether the span carries no location.
func (s Span) IsZero() bool {
	return s.File == "" && s.Start == (Position{})
}

// String renders the span as file:line:col.
func (s Span) String() string {
	if s.IsZero() {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Start.Line, s.Start.Column)
}

// ConstraintLevel distinguishes fatal asserts from advisory checks.
type ConstraintLevel string

const (
	// ConstraintAssert fails construction of a value that violates it.
	ConstraintAssert ConstraintLevel = "assert"
	// ConstraintCheck is recorded but never fails construction.
	ConstraintCheck ConstraintLevel = "check"
)

// Constraint is an assert/check predicate attached to a type. Expression
// is an opaque template expression evaluated downstream.
type Constraint struct {
	Level      ConstraintLevel `json:"level"`
	Expression string          `json:"expression"`
	Label      string          `json:"label,omitempty"`
}

func (c Constraint) String() string {
	if c.Label != "" {
		return fmt.Sprintf("@%s(%s, %q)", c.Level, c.Label, c.Expression)
	}
	return fmt.Sprintf("@%s(%q)", c.Level, c.Expression)
}

// Attribute is a normalized piece of node metadata. The known keys are
// Description, Alias, DynamicType and Skip; anything else is carried as
// UnknownAttribute so newer schemas still lower.
type Attribute interface {
	Key() string
	isAttribute()
}

// Description documents a node. Value is a String, RawString or
// TemplateExpression.
type Description struct {
	Value Expression
}

// Alias renames a node in rendered prompts and parsed output.
type Alias struct {
	Name string
}

// DynamicType marks a class or enum as extensible at runtime.
type DynamicType struct{}

// Skip excludes a node from rendering and parsing.
type Skip struct{}

// UnknownAttribute is an unrecognized key and its raw value.
type UnknownAttribute struct {
	Name  string
	Value Expression
}

func (Description) Key() string        { return "description" }
func (Alias) Key() string              { return "alias" }
func (DynamicType) Key() string        { return "dynamic_type" }
func (Skip) Key() string               { return "skip" }
func (a UnknownAttribute) Key() string { return a.Name }

func (Description) isAttribute()      {}
func (Alias) isAttribute()            {}
func (DynamicType) isAttribute()      {}
func (Skip) isAttribute()             {}
func (UnknownAttribute) isAttribute() {}

// attributeValue is the serialized value of a: the expression for
// description and unknown keys, the string for alias, true for flags.
func attributeValue(a Attribute) any {
	switch v := a.(type) {
	case Description:
		return v.Value
	case Alias:
		return v.Name
	case UnknownAttribute:
		return v.Value
	default:
		return true
	}
}

// NodeAttributes is the metadata attached to every IR node.
type NodeAttributes struct {
	// Meta holds normalized attributes in declaration order. Each key
	// appears at most once.
	Meta        []Attribute
	Constraints []Constraint
	Span        Span
}

// Get returns the attribute stored under key.
func (a NodeAttributes) Get(key string) (Attribute, bool) {
	for _, m := range a.Meta {
		if m.Key() == key {
			return m, true
		}
	}
	return nil, false
}

// Description returns the description expression, if any.
func (a NodeAttributes) Description() (Expression, bool) {
	if m, ok := a.Get("description"); ok {
		return m.(Description).Value, true
	}
	return nil, false
}

// Alias returns the alias, if any.
func (a NodeAttributes) Alias() (string, bool) {
	if m, ok := a.Get("alias"); ok {
		return m.(Alias).Name, true
	}
	return "", false
}

// IsDynamic reports whether the node carries dynamic_type.
func (a NodeAttributes) IsDynamic() bool {
	_, ok := a.Get("dynamic_type")
	return ok
}

// IsSkipped reports whether the node carries skip.
func (a NodeAttributes) IsSkipped() bool {
	_, ok := a.Get("skip")
	return ok
}

// MarshalJSON serializes meta as an object in declaration order. Span is
// never serialized.
func (a NodeAttributes) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteString(`{"meta":{`)
	for i, m := range a.Meta {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(m.Key())
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(attributeValue(m))
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", m.Key(), err)
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(val)
	}
	b.WriteString(`},"constraints":`)
	constraints := a.Constraints
	if constraints == nil {
		constraints = []Constraint{}
	}
	cs, err := json.Marshal(constraints)
	if err != nil {
		return nil, err
	}
	b.Write(cs)
	b.WriteByte('}')
	return []byte(b.String()), nil
}

// Node wraps an IR entity with its attributes.
type Node[T any] struct {
	Attributes NodeAttributes `json:"attributes"`
	Elem       T              `json:"elem"`
}

// NewNode wraps elem with attrs.
func NewNode[T any](elem T, attrs NodeAttributes) Node[T] {
	return Node[T]{Attributes: attrs, Elem: elem}
}
