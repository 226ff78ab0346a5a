// Package typecheck infers types for template expressions against a
// registry of known variables, classes and functions, collecting every
// type error as a diagnostic.
package typecheck

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/promptc/internal/ir"
)

// Type is the evaluator's type lattice. It is coarser than ir.Type: it
// tracks literals and unions, not containers or constraints.
type Type interface {
	String() string
	isType()
}

type (
	// Number is the widened result of arithmetic.
	Number struct{}
	Int    struct{}
	Float  struct{}
	Bool   struct{}
	String struct{}
	None   struct{}
	// Unknown stands in for an expression that already produced a
	// diagnostic, or whose type cannot be tracked. It is compatible with
	// everything so one error does not cascade.
	Unknown struct{}
)

// Literal is the type of a single literal value.
type Literal struct {
	Value ir.LiteralValue
}

// Optional is inner or none.
type Optional struct {
	Inner Type
}

// Union is one of Members. Build unions with MakeUnion so members stay
// flat, distinct and canonically ordered.
type Union struct {
	Members []Type
}

// List is a list of Inner.
type List struct {
	Inner Type
}

// ClassRef names a registered class.
type ClassRef struct {
	Name string
}

// FunctionRef names a registered function.
type FunctionRef struct {
	Name string
}

func (Number) isType()      {}
func (Int) isType()         {}
func (Float) isType()       {}
func (Bool) isType()        {}
func (String) isType()      {}
func (None) isType()        {}
func (Unknown) isType()     {}
func (Literal) isType()     {}
func (Optional) isType()    {}
func (Union) isType()       {}
func (List) isType()        {}
func (ClassRef) isType()    {}
func (FunctionRef) isType() {}

func (Number) String() string  { return "number" }
func (Int) String() string     { return "int" }
func (Float) String() string   { return "float" }
func (Bool) String() string    { return "bool" }
func (String) String() string  { return "string" }
func (None) String() string    { return "none" }
func (Unknown) String() string { return "unknown" }

func (t Literal) String() string {
	switch t.Value.Kind {
	case ir.LiteralString:
		return "literal[" + strconv.Quote(t.Value.Str) + "]"
	case ir.LiteralBool:
		return "literal[" + strconv.FormatBool(t.Value.Bool) + "]"
	default:
		return "literal[" + strconv.FormatInt(t.Value.Int, 10) + "]"
	}
}

func (t Optional) String() string { return "(none | " + t.Inner.String() + ")" }

func (t Union) String() string {
	parts := make([]string, len(t.Members))
	for i, m := range t.Members {
		parts[i] = m.String()
	}
	return "(" + strings.Join(parts, " | ") + ")"
}

func (t List) String() string        { return "list[" + t.Inner.String() + "]" }
func (t ClassRef) String() string    { return "class " + t.Name }
func (t FunctionRef) String() string { return "function " + t.Name }

// Equal reports structural equality.
func Equal(a, b Type) bool {
	switch a := a.(type) {
	case Literal:
		b, ok := b.(Literal)
		return ok && a.Value == b.Value
	case Optional:
		b, ok := b.(Optional)
		return ok && Equal(a.Inner, b.Inner)
	case List:
		b, ok := b.(List)
		return ok && Equal(a.Inner, b.Inner)
	case Union:
		b, ok := b.(Union)
		return ok && slices.EqualFunc(a.Members, b.Members, Equal)
	default:
		return a == b
	}
}

// rank orders union members: string, int and bool literals, then none,
// the scalar types, lists, class and function references, and unknown.
func rank(t Type) int {
	switch t := t.(type) {
	case Literal:
		switch t.Value.Kind {
		case ir.LiteralString:
			return 0
		case ir.LiteralInt:
			return 1
		default:
			return 2
		}
	case None:
		return 3
	case Bool:
		return 4
	case Int:
		return 5
	case Float:
		return 6
	case Number:
		return 7
	case String:
		return 8
	case List:
		return 9
	case ClassRef:
		return 10
	case FunctionRef:
		return 11
	case Optional:
		return 12
	default:
		return 13
	}
}

func compareTypes(a, b Type) int {
	if c := cmp.Compare(rank(a), rank(b)); c != 0 {
		return c
	}
	switch a := a.(type) {
	case Literal:
		b := b.(Literal)
		switch a.Value.Kind {
		case ir.LiteralString:
			return strings.Compare(a.Value.Str, b.Value.Str)
		case ir.LiteralInt:
			return cmp.Compare(a.Value.Int, b.Value.Int)
		default:
			return compareBool(a.Value.Bool, b.Value.Bool)
		}
	case ClassRef:
		return strings.Compare(a.Name, b.(ClassRef).Name)
	case FunctionRef:
		return strings.Compare(a.Name, b.(FunctionRef).Name)
	}
	return strings.Compare(a.String(), b.String())
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

// MakeUnion flattens nested unions and optionals, drops duplicates and
// sorts members canonically. A single remaining member is returned as is.
func MakeUnion(types ...Type) Type {
	var flat []Type
	var add func(Type)
	add = func(t Type) {
		switch t := t.(type) {
		case Union:
			for _, m := range t.Members {
				add(m)
			}
		case Optional:
			add(None{})
			add(t.Inner)
		default:
			if !slices.ContainsFunc(flat, func(have Type) bool { return Equal(have, t) }) {
				flat = append(flat, t)
			}
		}
	}
	for _, t := range types {
		add(t)
	}
	switch len(flat) {
	case 0:
		return None{}
	case 1:
		return flat[0]
	}
	slices.SortStableFunc(flat, compareTypes)
	return Union{Members: flat}
}

// Assignable reports whether a value of type src may be passed where dst
// is expected.
func Assignable(dst, src Type) bool {
	if _, ok := src.(Unknown); ok {
		return true
	}
	switch s := src.(type) {
	case Union:
		for _, m := range s.Members {
			if !Assignable(dst, m) {
				return false
			}
		}
		return true
	case Optional:
		return Assignable(dst, None{}) && Assignable(dst, s.Inner)
	}

	switch d := dst.(type) {
	case Unknown:
		return true
	case Optional:
		if _, ok := src.(None); ok {
			return true
		}
		return Assignable(d.Inner, src)
	case Union:
		for _, m := range d.Members {
			if Assignable(m, src) {
				return true
			}
		}
		return false
	case Number:
		return isInt(src) || isType[Float](src) || isType[Number](src)
	case Float:
		return isInt(src) || isType[Float](src)
	case Int:
		return isInt(src)
	case Bool:
		return isType[Bool](src) || isLiteral(src, ir.LiteralBool)
	case String:
		return isType[String](src) || isLiteral(src, ir.LiteralString)
	case List:
		s, ok := src.(List)
		return ok && Assignable(d.Inner, s.Inner)
	default:
		return Equal(dst, src)
	}
}

func isType[T Type](t Type) bool {
	_, ok := t.(T)
	return ok
}

func isLiteral(t Type, kind ir.LiteralKind) bool {
	l, ok := t.(Literal)
	return ok && l.Value.Kind == kind
}

func isInt(t Type) bool {
	return isType[Int](t) || isLiteral(t, ir.LiteralInt)
}

// FromIR maps a lowered schema type onto the lattice. Enums become
// strings; maps and media primitives are not tracked.
func FromIR(t ir.Type) Type {
	switch t := t.(type) {
	case ir.Primitive:
		switch t.Kind {
		case ir.PrimitiveString:
			return String{}
		case ir.PrimitiveInt:
			return Int{}
		case ir.PrimitiveFloat:
			return Float{}
		case ir.PrimitiveBool:
			return Bool{}
		case ir.PrimitiveNull:
			return None{}
		}
		return Unknown{}
	case ir.Literal:
		return Literal{Value: t.Value}
	case ir.Class:
		return ClassRef{Name: t.Name}
	case ir.Enum:
		return String{}
	case ir.Optional:
		return Optional{Inner: FromIR(t.Inner)}
	case ir.List:
		return List{Inner: FromIR(t.Inner)}
	case ir.Union:
		members := make([]Type, len(t.Members))
		for i, m := range t.Members {
			members[i] = FromIR(m)
		}
		return MakeUnion(members...)
	case ir.Tuple:
		members := make([]Type, len(t.Members))
		for i, m := range t.Members {
			members[i] = FromIR(m)
		}
		return List{Inner: MakeUnion(members...)}
	case ir.Constrained:
		return FromIR(t.Base)
	}
	return Unknown{}
}
