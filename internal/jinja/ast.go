// Package jinja parses the template language used in prompts and
// constraint expressions: expressions inside {{ }} and the control tags
// inside {% %}. It only parses; typing lives in package typecheck.
package jinja

import (
	"fmt"
	"strconv"
	"strings"
)

// Position is a 1-based line and column within a template or expression.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// shift maps a position relative to base (which is 1:1 relative to itself)
// into base's coordinate space.
func shift(base, rel Position) Position {
	if rel.Line <= 1 {
		return Position{Line: base.Line, Column: base.Column + rel.Column - 1}
	}
	return Position{Line: base.Line + rel.Line - 1, Column: rel.Column}
}

// Expr is a parsed template expression.
type Expr interface {
	Pos() Position
	String() string
	isExpr()
}

type node struct {
	At Position
}

func (n node) Pos() Position { return n.At }

// ConstKind discriminates the literal held by a Const.
type ConstKind int

const (
	ConstNone ConstKind = iota
	ConstBool
	ConstInt
	ConstFloat
	ConstString
)

// Const is a literal: none, a boolean, an integer, a float or a string.
type Const struct {
	node
	Kind  ConstKind
	Bool  bool
	Int   int64
	Float float64
	Str   string
}

// Var references a variable by name.
type Var struct {
	node
	Name string
}

// GetAttr is x.name.
type GetAttr struct {
	node
	Expr Expr
	Name string
}

// GetItem is x[index].
type GetItem struct {
	node
	Expr  Expr
	Index Expr
}

// Kwarg is a name=value call argument.
type Kwarg struct {
	Name  string
	Value Expr
}

// Call is callee(args..., name=value...). Positional and keyword arguments
// keep their source order within each list.
type Call struct {
	node
	Callee Expr
	Args   []Expr
	Kwargs []Kwarg
}

// Filter is expr|name(args...).
type Filter struct {
	node
	Expr   Expr
	Name   string
	Args   []Expr
	Kwargs []Kwarg
}

// Test is expr is [not] name(args...).
type Test struct {
	node
	Expr    Expr
	Name    string
	Negated bool
	Args    []Expr
	Kwargs  []Kwarg
}

// Unary is a prefix operator: not, - or +.
type Unary struct {
	node
	Op   string
	Expr Expr
}

// Binary is an infix operator. Op is one of: or and == != < <= > >= in
// "not in" + - ~ * / // % **.
type Binary struct {
	node
	Op    string
	Left  Expr
	Right Expr
}

// Cond is then if test else else. Else is nil when omitted.
type Cond struct {
	node
	Test Expr
	Then Expr
	Else Expr
}

// ListLit is [a, b].
type ListLit struct {
	node
	Items []Expr
}

// TupleLit is (a, b).
type TupleLit struct {
	node
	Items []Expr
}

// DictEntry is one key: value pair of a DictLit.
type DictEntry struct {
	Key   Expr
	Value Expr
}

// DictLit is {k: v}.
type DictLit struct {
	node
	Entries []DictEntry
}

func (Const) isExpr()    {}
func (Var) isExpr()      {}
func (GetAttr) isExpr()  {}
func (GetItem) isExpr()  {}
func (Call) isExpr()     {}
func (Filter) isExpr()   {}
func (Test) isExpr()     {}
func (Unary) isExpr()    {}
func (Binary) isExpr()   {}
func (Cond) isExpr()     {}
func (ListLit) isExpr()  {}
func (TupleLit) isExpr() {}
func (DictLit) isExpr()  {}

func (c Const) String() string {
	switch c.Kind {
	case ConstBool:
		return strconv.FormatBool(c.Bool)
	case ConstInt:
		return strconv.FormatInt(c.Int, 10)
	case ConstFloat:
		return strconv.FormatFloat(c.Float, 'g', -1, 64)
	case ConstString:
		return strconv.Quote(c.Str)
	default:
		return "none"
	}
}

func (v Var) String() string     { return v.Name }
func (g GetAttr) String() string { return operand(g.Expr) + "." + g.Name }
func (g GetItem) String() string { return operand(g.Expr) + "[" + g.Index.String() + "]" }

func (c Call) String() string {
	return operand(c.Callee) + "(" + joinArgs(c.Args, c.Kwargs) + ")"
}

func (f Filter) String() string {
	s := operand(f.Expr) + "|" + f.Name
	if len(f.Args) > 0 || len(f.Kwargs) > 0 {
		s += "(" + joinArgs(f.Args, f.Kwargs) + ")"
	}
	return s
}

func (t Test) String() string {
	s := operand(t.Expr) + " is "
	if t.Negated {
		s += "not "
	}
	s += t.Name
	if len(t.Args) > 0 || len(t.Kwargs) > 0 {
		s += "(" + joinArgs(t.Args, t.Kwargs) + ")"
	}
	return s
}

func (u Unary) String() string {
	if u.Op == "not" {
		return "not " + operand(u.Expr)
	}
	return u.Op + operand(u.Expr)
}

func (b Binary) String() string {
	return operand(b.Left) + " " + b.Op + " " + operand(b.Right)
}

func (c Cond) String() string {
	s := operand(c.Then) + " if " + operand(c.Test)
	if c.Else != nil {
		s += " else " + operand(c.Else)
	}
	return s
}

func (l ListLit) String() string { return "[" + joinExprs(l.Items) + "]" }

func (t TupleLit) String() string {
	if len(t.Items) == 1 {
		return "(" + t.Items[0].String() + ",)"
	}
	return "(" + joinExprs(t.Items) + ")"
}

func (d DictLit) String() string {
	parts := make([]string, len(d.Entries))
	for i, e := range d.Entries {
		parts[i] = e.Key.String() + ": " + e.Value.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// operand parenthesizes compound expressions nested inside another.
func operand(e Expr) string {
	switch e.(type) {
	case Binary, *Binary, Cond, *Cond, Unary, *Unary, Test, *Test:
		return "(" + e.String() + ")"
	}
	return e.String()
}

func joinExprs(items []Expr) string {
	parts := make([]string, len(items))
	for i, e := range items {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

func joinArgs(args []Expr, kwargs []Kwarg) string {
	parts := make([]string, 0, len(args)+len(kwargs))
	for _, a := range args {
		parts = append(parts, a.String())
	}
	for _, kw := range kwargs {
		parts = append(parts, kw.Name+"="+kw.Value.String())
	}
	return strings.Join(parts, ", ")
}
