// Package ast defines the parsed schema handed to the compiler.
//
// The surface syntax is owned by whichever front end builds these values
// (see internal/loader). The compiler only reads them: field types with
// their arity, raw attribute lists, literal expressions and spans.
package ast

import (
	"github.com/roach88/promptc/internal/ir"
)

// Arity marks a declared type as required or optional.
type Arity int

const (
	Required Arity = iota
	Optional
)

func (a Arity) String() string {
	if a == Optional {
		return "optional"
	}
	return "required"
}

// Meta is the data every field-type node carries.
type Meta struct {
	Arity      Arity
	Attributes []Attribute
	Span       ir.Span
}

// TypeMeta returns m. Field-type nodes embed Meta to satisfy FieldType.
func (m Meta) TypeMeta() Meta { return m }

// FieldType is a declared type expression.
type FieldType interface {
	TypeMeta() Meta
	isFieldType()
}

// Primitive is a builtin scalar such as string or int.
type Primitive struct {
	Meta
	Kind ir.PrimitiveKind
}

// Literal is a literal type such as "draft" or 3.
type Literal struct {
	Meta
	Value ir.LiteralValue
}

// Symbol is a reference to a class or enum by name.
type Symbol struct {
	Meta
	Name string
}

// List is Elem repeated; Dims counts the [] suffixes.
type List struct {
	Meta
	Elem FieldType
	Dims int
}

// Map is map<Key, Value>.
type Map struct {
	Meta
	Key   FieldType
	Value FieldType
}

// Union is A | B | ...
type Union struct {
	Meta
	Members []FieldType
}

// Tuple is (A, B, ...).
type Tuple struct {
	Meta
	Members []FieldType
}

func (Primitive) isFieldType() {}
func (Literal) isFieldType()   {}
func (Symbol) isFieldType()    {}
func (List) isFieldType()      {}
func (Map) isFieldType()       {}
func (Union) isFieldType()     {}
func (Tuple) isFieldType()     {}

// WithArity returns a copy of t whose own arity is a. Children are shared.
func WithArity(t FieldType, a Arity) FieldType {
	switch v := t.(type) {
	case Primitive:
		v.Arity = a
		return v
	case Literal:
		v.Arity = a
		return v
	case Symbol:
		v.Arity = a
		return v
	case List:
		v.Arity = a
		return v
	case Map:
		v.Arity = a
		return v
	case Union:
		v.Arity = a
		return v
	case Tuple:
		v.Arity = a
		return v
	default:
		return t
	}
}

// Attribute is one raw @name(args...) occurrence.
type Attribute struct {
	Name string
	Args []Expression
	Span ir.Span
}
