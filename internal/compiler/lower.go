package compiler

import (
	"log/slog"

	"github.com/roach88/promptc/internal/ast"
	"github.com/roach88/promptc/internal/ir"
)

type symbolKind int

const (
	symbolClass symbolKind = iota
	symbolEnum
)

type symbol struct {
	kind        symbolKind
	constraints []ir.Constraint
}

// Resolver maps type names to classes and enums. Every name must be
// declared before any field type is lowered.
type Resolver struct {
	symbols map[string]symbol
}

// NewResolver returns an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{symbols: make(map[string]symbol)}
}

// DeclareClass registers a class and the constraints declared on the class
// itself, which are attached to every reference to it.
func (r *Resolver) DeclareClass(name string, constraints []ir.Constraint) {
	r.symbols[name] = symbol{kind: symbolClass, constraints: constraints}
}

// DeclareEnum registers an enum and its block-level constraints.
func (r *Resolver) DeclareEnum(name string, constraints []ir.Constraint) {
	r.symbols[name] = symbol{kind: symbolEnum, constraints: constraints}
}

// Resolve returns the reference type for name and its block constraints.
func (r *Resolver) Resolve(name string) (ir.Type, []ir.Constraint, bool) {
	s, ok := r.symbols[name]
	if !ok {
		return nil, nil, false
	}
	if s.kind == symbolEnum {
		return ir.Enum{Name: name}, s.constraints, true
	}
	return ir.Class{Name: name}, s.constraints, true
}

// NewResolverFromDatabase declares every class and enum in db.
func NewResolverFromDatabase(db ast.Database, log *slog.Logger) *Resolver {
	r := NewResolver()
	for e := range db.Enums() {
		r.DeclareEnum(e.Name, ExtractAttributes(e.Attributes, log).Constraints)
	}
	for c := range db.Classes() {
		r.DeclareClass(c.Name, ExtractAttributes(c.Attributes, log).Constraints)
	}
	return r
}

// Lower converts a declared field type into its canonical IR type.
//
// Per node, constraints (those of a referenced class or enum, then the
// node's own) wrap the base type in a single Constrained, and optional arity
// wraps the result in Optional. An optional union instead gains one explicit
// null member.
func Lower(t ast.FieldType, r *Resolver, log *slog.Logger) (ir.Type, error) {
	if t == nil {
		return nil, compileErrorf(ErrCodeInvalidBlockArg, ir.Span{}, "", "missing field type")
	}
	meta := t.TypeMeta()
	own := ExtractAttributes(meta.Attributes, log).Constraints

	var (
		base      ir.Type
		inherited []ir.Constraint
	)
	switch v := t.(type) {
	case ast.Primitive:
		base = ir.Primitive{Kind: v.Kind}
	case ast.Literal:
		base = ir.Literal{Value: v.Value}
	case ast.Symbol:
		ref, cs, ok := r.Resolve(v.Name)
		if !ok {
			return nil, compileErrorf(ErrCodeUnresolvableIdentifier, meta.Span, "",
				"field type uses unresolvable identifier %q", v.Name)
		}
		base, inherited = ref, cs
	case ast.List:
		if v.Dims < 1 {
			return nil, compileErrorf(ErrCodeInvalidListDims, meta.Span, "",
				"list must have at least one dimension, got %d", v.Dims)
		}
		elem, err := Lower(v.Elem, r, log)
		if err != nil {
			return nil, err
		}
		base = elem
		for range v.Dims {
			base = ir.List{Inner: base}
		}
	case ast.Map:
		key, err := Lower(v.Key, r, log)
		if err != nil {
			return nil, err
		}
		value, err := Lower(v.Value, r, log)
		if err != nil {
			return nil, err
		}
		base = ir.Map{Key: key, Value: value}
	case ast.Union:
		members, err := lowerAll(v.Members, r, log)
		if err != nil {
			return nil, err
		}
		if meta.Arity == ast.Optional {
			members = append(members, ir.Primitive{Kind: ir.PrimitiveNull})
		}
		return constrain(ir.Union{Members: members}, own), nil
	case ast.Tuple:
		members, err := lowerAll(v.Members, r, log)
		if err != nil {
			return nil, err
		}
		base = ir.Tuple{Members: members}
	default:
		return nil, compileErrorf(ErrCodeInvalidBlockArg, meta.Span, "", "unsupported field type %T", t)
	}

	constraints := append(append([]ir.Constraint(nil), inherited...), own...)
	base = constrain(base, constraints)
	if meta.Arity == ast.Optional {
		base = ir.Optional{Inner: base}
	}
	return base, nil
}

func lowerAll(ts []ast.FieldType, r *Resolver, log *slog.Logger) ([]ir.Type, error) {
	out := make([]ir.Type, 0, len(ts)+1)
	for _, m := range ts {
		lowered, err := Lower(m, r, log)
		if err != nil {
			return nil, err
		}
		out = append(out, lowered)
	}
	return out, nil
}

func constrain(t ir.Type, constraints []ir.Constraint) ir.Type {
	if len(constraints) == 0 {
		return t
	}
	return ir.Constrained{Base: t, Constraints: constraints}
}
