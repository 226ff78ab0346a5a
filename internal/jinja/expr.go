package jinja

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// SyntaxError reports an expression or template that does not parse.
type SyntaxError struct {
	Pos     Position
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

// ParseExpr parses a single expression such as "user.name|upper".
func ParseExpr(src string) (Expr, error) {
	return parseExprAt(src, Position{Line: 1, Column: 1})
}

// parseExprAt parses src whose first character sits at base.
func parseExprAt(src string, base Position) (Expr, error) {
	if strings.TrimSpace(src) == "" {
		return nil, &SyntaxError{Pos: base, Message: "empty expression"}
	}
	tree, err := exprParser.ParseString("", src)
	if err != nil {
		return nil, syntaxError(err, base)
	}
	c := converter{base: base}
	e := c.ifExpr(tree)
	if c.err != nil {
		return nil, c.err
	}
	return e, nil
}

func syntaxError(err error, base Position) *SyntaxError {
	var perr participle.Error
	if errors.As(err, &perr) {
		p := perr.Position()
		return &SyntaxError{
			Pos:     shift(base, Position{Line: p.Line, Column: p.Column}),
			Message: perr.Message(),
		}
	}
	return &SyntaxError{Pos: base, Message: err.Error()}
}

// converter turns the participle grammar tree into the public AST,
// translating positions into the enclosing template's coordinates.
type converter struct {
	base Position
	err  error
}

func (c *converter) at(p lexer.Position) node {
	return node{At: shift(c.base, Position{Line: p.Line, Column: p.Column})}
}

func (c *converter) ifExpr(e *ifExpr) Expr {
	then := c.orExpr(e.Then)
	if e.Test == nil {
		return then
	}
	cond := Cond{node: c.at(e.Pos), Test: c.orExpr(e.Test), Then: then}
	if e.Else != nil {
		cond.Else = c.ifExpr(e.Else)
	}
	return cond
}

func (c *converter) orExpr(e *orExpr) Expr {
	out := c.andExpr(e.Left)
	for _, r := range e.Right {
		out = Binary{node: c.at(e.Pos), Op: "or", Left: out, Right: c.andExpr(r)}
	}
	return out
}

func (c *converter) andExpr(e *andExpr) Expr {
	out := c.notExpr(e.Left)
	for _, r := range e.Right {
		out = Binary{node: c.at(e.Pos), Op: "and", Left: out, Right: c.notExpr(r)}
	}
	return out
}

func (c *converter) notExpr(e *notExpr) Expr {
	if e.Not != nil {
		return Unary{node: c.at(e.Pos), Op: "not", Expr: c.notExpr(e.Not)}
	}
	return c.compareExpr(e.Compare)
}

func (c *converter) compareExpr(e *compareExpr) Expr {
	out := c.sumExpr(e.Left)
	for _, op := range e.Ops {
		name := op.Op
		if name == "notin" {
			name = "not in"
		}
		out = Binary{node: c.at(e.Pos), Op: name, Left: out, Right: c.sumExpr(op.Right)}
	}
	return out
}

func (c *converter) sumExpr(e *sumExpr) Expr {
	out := c.concatExpr(e.Left)
	for _, op := range e.Ops {
		out = Binary{node: c.at(e.Pos), Op: op.Op, Left: out, Right: c.concatExpr(op.Right)}
	}
	return out
}

func (c *converter) concatExpr(e *concatExpr) Expr {
	out := c.productExpr(e.Left)
	for _, r := range e.Right {
		out = Binary{node: c.at(e.Pos), Op: "~", Left: out, Right: c.productExpr(r)}
	}
	return out
}

func (c *converter) productExpr(e *productExpr) Expr {
	out := c.unaryExpr(e.Left)
	for _, op := range e.Ops {
		out = Binary{node: c.at(e.Pos), Op: op.Op, Left: out, Right: c.unaryExpr(op.Right)}
	}
	return out
}

func (c *converter) unaryExpr(e *unaryExpr) Expr {
	if e.Unary != nil {
		return Unary{node: c.at(e.Pos), Op: e.Op, Expr: c.unaryExpr(e.Unary)}
	}
	return c.powerExpr(e.Power)
}

func (c *converter) powerExpr(e *powerExpr) Expr {
	base := c.postfixExpr(e.Base)
	if e.Exponent == nil {
		return base
	}
	return Binary{node: c.at(e.Pos), Op: "**", Left: base, Right: c.unaryExpr(e.Exponent)}
}

func (c *converter) postfixExpr(e *postfixExpr) Expr {
	out := c.primaryExpr(e.Primary)
	n := c.at(e.Pos)
	for _, s := range e.Suffixes {
		switch {
		case s.Attr != "":
			out = GetAttr{node: n, Expr: out, Name: s.Attr}
		case s.Index != nil:
			out = GetItem{node: n, Expr: out, Index: c.ifExpr(s.Index)}
		case s.CallOpen:
			args, kwargs := c.arguments(s.Args)
			out = Call{node: n, Callee: out, Args: args, Kwargs: kwargs}
		case s.Filter != nil:
			args, kwargs := c.arguments(s.Filter.Args)
			out = Filter{node: n, Expr: out, Name: s.Filter.Name, Args: args, Kwargs: kwargs}
		case s.Test != nil:
			args, kwargs := c.arguments(s.Test.Args)
			out = Test{node: n, Expr: out, Name: s.Test.Name, Negated: s.Test.Not, Args: args, Kwargs: kwargs}
		}
	}
	return out
}

func (c *converter) arguments(in []*argument) ([]Expr, []Kwarg) {
	var args []Expr
	var kwargs []Kwarg
	for _, a := range in {
		v := c.ifExpr(a.Value)
		if a.Name == "" {
			if len(kwargs) > 0 && c.err == nil {
				c.err = &SyntaxError{Pos: c.at(a.Pos).At, Message: "positional argument follows keyword argument"}
			}
			args = append(args, v)
			continue
		}
		kwargs = append(kwargs, Kwarg{Name: a.Name, Value: v})
	}
	return args, kwargs
}

func (c *converter) primaryExpr(e *primaryExpr) Expr {
	n := c.at(e.Pos)
	switch {
	case e.Float != nil:
		return Const{node: n, Kind: ConstFloat, Float: *e.Float}
	case e.Int != nil:
		return Const{node: n, Kind: ConstInt, Int: *e.Int}
	case len(e.Str) > 0:
		var b strings.Builder
		for _, s := range e.Str {
			v, err := unquote(s)
			if err != nil && c.err == nil {
				c.err = &SyntaxError{Pos: n.At, Message: fmt.Sprintf("invalid string literal %s", s)}
			}
			b.WriteString(v)
		}
		return Const{node: n, Kind: ConstString, Str: b.String()}
	case e.True:
		return Const{node: n, Kind: ConstBool, Bool: true}
	case e.False:
		return Const{node: n, Kind: ConstBool}
	case e.None:
		return Const{node: n, Kind: ConstNone}
	case e.Ident != "":
		return Var{node: n, Name: e.Ident}
	case e.ListOpen:
		return ListLit{node: n, Items: c.exprs(e.List)}
	case e.DictOpen:
		entries := make([]DictEntry, len(e.Dict))
		for i, d := range e.Dict {
			entries[i] = DictEntry{Key: c.ifExpr(d.Key), Value: c.ifExpr(d.Value)}
		}
		return DictLit{node: n, Entries: entries}
	default:
		items := c.exprs(e.Paren)
		if len(items) == 1 && !e.Trailing {
			return items[0]
		}
		return TupleLit{node: n, Items: items}
	}
}

func (c *converter) exprs(in []*ifExpr) []Expr {
	out := make([]Expr, len(in))
	for i, e := range in {
		out[i] = c.ifExpr(e)
	}
	return out
}

// unquote decodes a single- or double-quoted string literal.
func unquote(s string) (string, error) {
	if len(s) < 2 {
		return "", fmt.Errorf("short literal")
	}
	if s[0] == '"' {
		return strconv.Unquote(s)
	}
	body := s[1 : len(s)-1]
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(body); i++ {
		switch ch := body[i]; {
		case ch == '\\' && i+1 < len(body) && body[i+1] == '\'':
			b.WriteByte('\'')
			i++
		case ch == '\\' && i+1 < len(body):
			b.WriteByte(ch)
			b.WriteByte(body[i+1])
			i++
		case ch == '"':
			b.WriteString(`\"`)
		default:
			b.WriteByte(ch)
		}
	}
	b.WriteByte('"')
	return strconv.Unquote(b.String())
}
