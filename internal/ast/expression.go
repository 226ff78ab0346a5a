package ast

import "github.com/roach88/promptc/internal/ir"

// Expression is a literal value written in the schema.
type Expression interface {
	ExprSpan() ir.Span
	isExpression()
}

// IdentifierKind classifies a bare identifier.
type IdentifierKind int

const (
	// IdentLocal is a plain name such as a label.
	IdentLocal IdentifierKind = iota
	// IdentEnv is env.NAME.
	IdentEnv
	// IdentRef is a dotted or dashed reference such as gpt-4o or a.b.
	IdentRef
	// IdentString is an unquoted string value.
	IdentString
	// IdentInvalid is anything the front end could not classify.
	IdentInvalid
)

type (
	BoolValue struct {
		Value bool
		Span  ir.Span
	}
	NumericValue struct {
		Value string
		Span  ir.Span
	}
	StringValue struct {
		Value string
		Span  ir.Span
	}
	RawStringValue struct {
		Value string
		Span  ir.Span
	}
	// TemplateValue is a {{ ... }} template expression; Value excludes the
	// braces.
	TemplateValue struct {
		Value string
		Span  ir.Span
	}
	Identifier struct {
		Kind IdentifierKind
		Name string
		Span ir.Span
	}
	Array struct {
		Items []Expression
		Span  ir.Span
	}
	MapEntry struct {
		Key   string
		Value Expression
	}
	MapValue struct {
		Entries []MapEntry
		Span    ir.Span
	}
)

func (e BoolValue) ExprSpan() ir.Span      { return e.Span }
func (e NumericValue) ExprSpan() ir.Span   { return e.Span }
func (e StringValue) ExprSpan() ir.Span    { return e.Span }
func (e RawStringValue) ExprSpan() ir.Span { return e.Span }
func (e TemplateValue) ExprSpan() ir.Span  { return e.Span }
func (e Identifier) ExprSpan() ir.Span     { return e.Span }
func (e Array) ExprSpan() ir.Span          { return e.Span }
func (e MapValue) ExprSpan() ir.Span       { return e.Span }

func (BoolValue) isExpression()      {}
func (NumericValue) isExpression()   {}
func (StringValue) isExpression()    {}
func (RawStringValue) isExpression() {}
func (TemplateValue) isExpression()  {}
func (Identifier) isExpression()     {}
func (Array) isExpression()          {}
func (MapValue) isExpression()       {}
