package ir

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// PrimitiveKind names a builtin scalar type.
type PrimitiveKind string

// Builtin primitive kinds.
const (
	PrimitiveString PrimitiveKind = "string"
	PrimitiveInt    PrimitiveKind = "int"
	PrimitiveFloat  PrimitiveKind = "float"
	PrimitiveBool   PrimitiveKind = "bool"
	PrimitiveNull   PrimitiveKind = "null"
	PrimitiveImage  PrimitiveKind = "image"
	PrimitiveAudio  PrimitiveKind = "audio"
)

// PrimitiveKinds lists every builtin primitive in declaration order.
var PrimitiveKinds = []PrimitiveKind{
	PrimitiveString,
	PrimitiveInt,
	PrimitiveFloat,
	PrimitiveBool,
	PrimitiveNull,
	PrimitiveImage,
	PrimitiveAudio,
}

// LookupPrimitive returns the primitive kind spelled name.
func LookupPrimitive(name string) (PrimitiveKind, bool) {
	for _, k := range PrimitiveKinds {
		if string(k) == name {
			return k, true
		}
	}
	return "", false
}

// LiteralKind discriminates LiteralValue.
type LiteralKind int

const (
	LiteralString LiteralKind = iota
	LiteralInt
	LiteralBool
)

// LiteralValue is a literal type value: a string, an integer or a bool.
// It is comparable with ==.
type LiteralValue struct {
	Kind LiteralKind
	Str  string
	Int  int64
	Bool bool
}

// StringLiteral returns a string literal value.
func StringLiteral(s string) LiteralValue { return LiteralValue{Kind: LiteralString, Str: s} }

// IntLiteral returns an integer literal value.
func IntLiteral(n int64) LiteralValue { return LiteralValue{Kind: LiteralInt, Int: n} }

// BoolLiteral returns a bool literal value.
func BoolLiteral(b bool) LiteralValue { return LiteralValue{Kind: LiteralBool, Bool: b} }

// String renders the literal the way it is written in source:
// strings are double-quoted, integers and bools are bare.
func (l LiteralValue) String() string {
	switch l.Kind {
	case LiteralInt:
		return strconv.FormatInt(l.Int, 10)
	case LiteralBool:
		return strconv.FormatBool(l.Bool)
	default:
		return strconv.Quote(l.Str)
	}
}

// MarshalJSON encodes the literal as its JSON scalar.
func (l LiteralValue) MarshalJSON() ([]byte, error) {
	switch l.Kind {
	case LiteralInt:
		return json.Marshal(l.Int)
	case LiteralBool:
		return json.Marshal(l.Bool)
	default:
		return json.Marshal(l.Str)
	}
}

// Type is the canonical field type. It is a closed union; the concrete
// variants are Primitive, Literal, Class, Enum, Optional, List, Map, Union,
// Tuple and Constrained.
type Type interface {
	fmt.Stringer
	json.Marshaler
	isType()
}

// Primitive is a builtin scalar type.
type Primitive struct {
	Kind PrimitiveKind
}

// Literal is a singleton type inhabited by exactly one value.
type Literal struct {
	Value LiteralValue
}

// Class references a class by name.
type Class struct {
	Name string
}

// Enum references an enum by name.
type Enum struct {
	Name string
}

// Optional is Inner or null.
type Optional struct {
	Inner Type
}

// List is a homogeneous list of Inner.
type List struct {
	Inner Type
}

// Map maps Key to Value.
type Map struct {
	Key   Type
	Value Type
}

// Union is any one of Members.
type Union struct {
	Members []Type
}

// Tuple is a fixed-length heterogeneous sequence.
type Tuple struct {
	Members []Type
}

// Constrained attaches assert/check constraints to Base.
type Constrained struct {
	Base        Type
	Constraints []Constraint
}

func (Primitive) isType()   {}
func (Literal) isType()     {}
func (Class) isType()       {}
func (Enum) isType()        {}
func (Optional) isType()    {}
func (List) isType()        {}
func (Map) isType()         {}
func (Union) isType()       {}
func (Tuple) isType()       {}
func (Constrained) isType() {}

func (t Primitive) String() string { return string(t.Kind) }
func (t Literal) String() string   { return t.Value.String() }
func (t Class) String() string     { return t.Name }
func (t Enum) String() string      { return t.Name }
func (t Optional) String() string  { return t.Inner.String() + "?" }

func (t List) String() string {
	inner := t.Inner.String()
	if _, ok := t.Inner.(Union); ok {
		inner = "(" + inner + ")"
	}
	return inner + "[]"
}

func (t Map) String() string {
	return fmt.Sprintf("map<%s, %s>", t.Key, t.Value)
}

func (t Union) String() string {
	return joinTypes(t.Members, " | ")
}

func (t Tuple) String() string {
	return "(" + joinTypes(t.Members, ", ") + ")"
}

func (t Constrained) String() string {
	var b strings.Builder
	b.WriteString(t.Base.String())
	for _, c := range t.Constraints {
		b.WriteString(" ")
		b.WriteString(c.String())
	}
	return b.String()
}

func joinTypes(ts []Type, sep string) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, sep)
}

// typeJSON is the tagged wire form shared by every Type variant.
type typeJSON struct {
	Kind        string        `json:"kind"`
	Primitive   PrimitiveKind `json:"primitive,omitempty"`
	Literal     *LiteralValue `json:"literal,omitempty"`
	Name        string        `json:"name,omitempty"`
	Inner       Type          `json:"inner,omitempty"`
	Key         Type          `json:"key,omitempty"`
	Value       Type          `json:"value,omitempty"`
	Members     []Type        `json:"members,omitempty"`
	Base        Type          `json:"base,omitempty"`
	Constraints []Constraint  `json:"constraints,omitempty"`
}

func (t Primitive) MarshalJSON() ([]byte, error) {
	return json.Marshal(typeJSON{Kind: "primitive", Primitive: t.Kind})
}

func (t Literal) MarshalJSON() ([]byte, error) {
	v := t.Value
	return json.Marshal(typeJSON{Kind: "literal", Literal: &v})
}

func (t Class) MarshalJSON() ([]byte, error) {
	return json.Marshal(typeJSON{Kind: "class", Name: t.Name})
}

func (t Enum) MarshalJSON() ([]byte, error) {
	return json.Marshal(typeJSON{Kind: "enum", Name: t.Name})
}

func (t Optional) MarshalJSON() ([]byte, error) {
	return json.Marshal(typeJSON{Kind: "optional", Inner: t.Inner})
}

func (t List) MarshalJSON() ([]byte, error) {
	return json.Marshal(typeJSON{Kind: "list", Inner: t.Inner})
}

func (t Map) MarshalJSON() ([]byte, error) {
	return json.Marshal(typeJSON{Kind: "map", Key: t.Key, Value: t.Value})
}

// Members always serialize, even when empty, so an empty union stays
// distinguishable from a missing field.
func (t Union) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind    string `json:"kind"`
		Members []Type `json:"members"`
	}{"union", nonNilTypes(t.Members)})
}

func (t Tuple) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind    string `json:"kind"`
		Members []Type `json:"members"`
	}{"tuple", nonNilTypes(t.Members)})
}

func (t Constrained) MarshalJSON() ([]byte, error) {
	return json.Marshal(typeJSON{Kind: "constrained", Base: t.Base, Constraints: t.Constraints})
}

func nonNilTypes(ts []Type) []Type {
	if ts == nil {
		return []Type{}
	}
	return ts
}

// NewOptional wraps t in Optional.
func NewOptional(t Type) Type { return Optional{Inner: t} }

// NewList wraps t in List.
func NewList(t Type) Type { return List{Inner: t} }

// Unwrap returns the direct children of t: the inner type of containers,
// the members of unions and tuples, and the base of a constrained type.
// Primitive, Literal, Class and Enum have no children.
func Unwrap(t Type) []Type {
	switch v := t.(type) {
	case Optional:
		return []Type{v.Inner}
	case List:
		return []Type{v.Inner}
	case Map:
		return []Type{v.Key, v.Value}
	case Union:
		return v.Members
	case Tuple:
		return v.Members
	case Constrained:
		return []Type{v.Base}
	default:
		return nil
	}
}

// ReferencedClasses returns the class names reachable from t through any
// container, in first-occurrence order without duplicates.
func ReferencedClasses(t Type) []string {
	var out []string
	seen := make(map[string]bool)
	var walk func(Type)
	walk = func(t Type) {
		if c, ok := t.(Class); ok {
			if !seen[c.Name] {
				seen[c.Name] = true
				out = append(out, c.Name)
			}
			return
		}
		for _, child := range Unwrap(t) {
			walk(child)
		}
	}
	walk(t)
	return out
}

// IsOptional reports whether t admits null: an Optional, a Union with a null
// member, or either of those under a Constrained wrapper.
func IsOptional(t Type) bool {
	switch v := t.(type) {
	case Optional:
		return true
	case Primitive:
		return v.Kind == PrimitiveNull
	case Union:
		for _, m := range v.Members {
			if IsOptional(m) {
				return true
			}
		}
		return false
	case Constrained:
		return IsOptional(v.Base)
	default:
		return false
	}
}
