package typecheck

import (
	"slices"

	"github.com/roach88/promptc/internal/ir"
	"github.com/roach88/promptc/internal/jinja"
	"github.com/roach88/promptc/internal/suggest"
)

// Evaluate infers the type of e against types. Every type error in the
// expression is collected; a non-nil error is always Diagnostics, and the
// returned type is then Unknown.
//
// Both branches of a conditional are checked, and a call is checked against
// its signature with all binding problems reported together.
func Evaluate(e jinja.Expr, types *PredefinedTypes) (Type, error) {
	t, diags := Infer(e, types)
	if len(diags) > 0 {
		return Unknown{}, diags
	}
	return t, nil
}

// Infer is Evaluate without the error conversion: it returns the best
// inferred type together with any diagnostics.
func Infer(e jinja.Expr, types *PredefinedTypes) (Type, Diagnostics) {
	ev := &evaluator{types: types}
	t := ev.eval(e)
	return t, ev.diags
}

type evaluator struct {
	types *PredefinedTypes
	diags Diagnostics
}

func (ev *evaluator) eval(e jinja.Expr) Type {
	switch e := e.(type) {
	case jinja.Const:
		return constType(e)
	case jinja.Var:
		return ev.variable(e)
	case jinja.GetAttr:
		return ev.property(ev.eval(e.Expr), e.Expr, e.Name, e.Pos())
	case jinja.GetItem:
		return ev.item(e)
	case jinja.Call:
		return ev.call(e)
	case jinja.Filter:
		t := ev.eval(e.Expr)
		ev.evalArgs(e.Args, e.Kwargs)
		return filterType(e.Name, t)
	case jinja.Test:
		ev.eval(e.Expr)
		ev.evalArgs(e.Args, e.Kwargs)
		return Bool{}
	case jinja.Unary:
		ev.eval(e.Expr)
		if e.Op == "not" {
			return Bool{}
		}
		return Number{}
	case jinja.Binary:
		ev.eval(e.Left)
		ev.eval(e.Right)
		return binaryType(e.Op)
	case jinja.Cond:
		ev.eval(e.Test)
		then := ev.eval(e.Then)
		var otherwise Type = None{}
		if e.Else != nil {
			otherwise = ev.eval(e.Else)
		}
		return MakeUnion(then, otherwise)
	case jinja.ListLit:
		return ev.sequence(e.Items)
	case jinja.TupleLit:
		return ev.sequence(e.Items)
	case jinja.DictLit:
		for _, entry := range e.Entries {
			ev.eval(entry.Key)
			ev.eval(entry.Value)
		}
		return Unknown{}
	}
	return Unknown{}
}

func constType(c jinja.Const) Type {
	switch c.Kind {
	case jinja.ConstBool:
		return Literal{Value: ir.BoolLiteral(c.Bool)}
	case jinja.ConstInt:
		return Literal{Value: ir.IntLiteral(c.Int)}
	case jinja.ConstFloat:
		return Float{}
	case jinja.ConstString:
		return Literal{Value: ir.StringLiteral(c.Str)}
	default:
		return None{}
	}
}

func binaryType(op string) Type {
	switch op {
	case "+", "-", "*", "/", "//", "%", "**":
		return Number{}
	case "~":
		return String{}
	default:
		return Bool{}
	}
}

func (ev *evaluator) sequence(items []jinja.Expr) Type {
	if len(items) == 0 {
		return List{Inner: Unknown{}}
	}
	types := make([]Type, len(items))
	for i, item := range items {
		types[i] = ev.eval(item)
	}
	return List{Inner: MakeUnion(types...)}
}

func (ev *evaluator) variable(v jinja.Var) Type {
	if t, ok := ev.types.Variable(v.Name); ok {
		return t
	}
	hints := suggest.Suggest(v.Name, ev.types.Names())
	for _, b := range ev.types.Builtins() {
		if !slices.Contains(hints, b) {
			hints = append(hints, b)
		}
	}
	msg := "Variable `" + v.Name + "` does not exist."
	if phrase := suggest.Phrase(hints, "`"); phrase != "" {
		msg += " " + phrase
	}
	ev.diags.add(UnknownVariable, v.Pos(), "%s", msg)
	return Unknown{}
}

// property types obj.name where obj (rendered from objExpr) has type t.
func (ev *evaluator) property(t Type, objExpr jinja.Expr, name string, pos jinja.Position) Type {
	switch t := t.(type) {
	case ClassRef:
		fields, ok := ev.types.Class(t.Name)
		if !ok {
			return Unknown{}
		}
		for _, f := range fields {
			if f.Name == name {
				return f.Type
			}
		}
		names := make([]string, len(fields))
		for i, f := range fields {
			names[i] = f.Name
		}
		msg := "class " + t.Name + " (" + objExpr.String() + ") does not have a property '" + name + "'"
		if phrase := suggest.Phrase(suggest.Suggest(name, names), "'"); phrase != "" {
			msg += ". " + phrase
		}
		ev.diags.add(UnknownProperty, pos, "%s", msg)
		return Unknown{}
	case Optional:
		return ev.property(t.Inner, objExpr, name, pos)
	case Union:
		var out []Type
		for _, m := range t.Members {
			if _, isNone := m.(None); isNone {
				continue
			}
			out = append(out, ev.property(m, objExpr, name, pos))
		}
		return MakeUnion(out...)
	}
	return Unknown{}
}

func (ev *evaluator) item(e jinja.GetItem) Type {
	t := ev.eval(e.Expr)
	idx := ev.eval(e.Index)
	if o, ok := t.(Optional); ok {
		t = o.Inner
	}
	switch t := t.(type) {
	case List:
		return t.Inner
	case String:
		return String{}
	case Literal:
		if t.Value.Kind == ir.LiteralString {
			return String{}
		}
	case ClassRef:
		if key, ok := idx.(Literal); ok && key.Value.Kind == ir.LiteralString {
			return ev.property(t, e.Expr, key.Value.Str, e.Pos())
		}
	}
	return Unknown{}
}

func (ev *evaluator) evalArgs(args []jinja.Expr, kwargs []jinja.Kwarg) ([]Type, []Type) {
	argTypes := make([]Type, len(args))
	for i, a := range args {
		argTypes[i] = ev.eval(a)
	}
	kwTypes := make([]Type, len(kwargs))
	for i, kw := range kwargs {
		kwTypes[i] = ev.eval(kw.Value)
	}
	return argTypes, kwTypes
}

func (ev *evaluator) call(c jinja.Call) Type {
	callee := ev.eval(c.Callee)
	args, kwargs := ev.evalArgs(c.Args, c.Kwargs)

	switch t := callee.(type) {
	case Unknown:
		return Unknown{}
	case FunctionRef:
		fn, ok := ev.types.Function(t.Name)
		if !ok {
			ev.diags.add(UnknownFunction, c.Pos(), "Function '%s' does not exist", t.Name)
			return Unknown{}
		}
		if !ev.bind(fn, c, args, kwargs) {
			return Unknown{}
		}
		return fn.Return
	default:
		ev.diags.add(NotCallable, c.Pos(), "'%s' of type %s is not callable", c.Callee, callee)
		return Unknown{}
	}
}

// bind checks call arguments against fn, reporting every problem. It
// returns true when the call binds cleanly.
func (ev *evaluator) bind(fn Function, c jinja.Call, args, kwargs []Type) bool {
	before := len(ev.diags)
	pos := c.Pos()
	bound := make(map[string]bool, len(fn.Params))

	check := func(p Param, got Type) {
		if !Assignable(p.Type, got) {
			ev.diags.add(ArgumentType, pos, "Function '%s' expects argument '%s' to be of type %s, but got %s",
				fn.Name, p.Name, p.Type, got)
		}
	}

	if fn.KeywordOnly {
		if len(args) > 0 {
			ev.diags.add(ArityMismatch, pos, "Function '%s' does not accept positional arguments, but got %d", fn.Name, len(args))
		}
	} else {
		if total := len(args) + len(kwargs); total != len(fn.Params) {
			ev.diags.add(ArityMismatch, pos, "Function '%s' expects %d arguments, but got %d", fn.Name, len(fn.Params), total)
		}
		for i, got := range args {
			if i < len(fn.Params) {
				check(fn.Params[i], got)
				bound[fn.Params[i].Name] = true
			}
		}
	}

	var unknown []int
	for i, kw := range c.Kwargs {
		p, ok := fn.param(kw.Name)
		if !ok {
			unknown = append(unknown, i)
			continue
		}
		if bound[kw.Name] {
			ev.diags.add(DuplicateArgument, pos, "Function '%s' got multiple values for argument '%s'", fn.Name, kw.Name)
			continue
		}
		bound[kw.Name] = true
		check(p, kwargs[i])
	}

	var unbound []string
	for _, p := range fn.Params {
		if !bound[p.Name] {
			unbound = append(unbound, p.Name)
		}
	}

	if !fn.KeywordOnly && len(args)+len(kwargs) == len(fn.Params) {
		for _, name := range unbound {
			ev.diags.add(MissingArgument, pos, "Function '%s' expects argument '%s'", fn.Name, name)
		}
	}

	for _, i := range unknown {
		name := c.Kwargs[i].Name
		hints := suggest.Suggest(name, unbound)
		if len(hints) == 0 && fn.KeywordOnly {
			hints = slices.Sorted(slices.Values(unbound))
		}
		msg := "Function '" + fn.Name + "' does not have an argument '" + name + "'."
		if phrase := suggest.Phrase(hints, "'"); phrase != "" {
			msg += " " + phrase
		}
		ev.diags.add(UnknownArgument, pos, "%s", msg)
	}

	return len(ev.diags) == before
}

// filterType is the result type of the builtin filter name applied to t.
// Unlisted filters are not tracked.
func filterType(name string, t Type) Type {
	switch name {
	case "length", "count", "wordcount":
		return Int{}
	case "upper", "lower", "title", "capitalize", "trim", "striptags", "string",
		"join", "format", "replace", "escape", "e", "safe", "truncate", "center",
		"indent", "urlencode", "tojson", "pprint":
		return String{}
	case "int":
		return Int{}
	case "float":
		return Float{}
	case "abs", "round", "sum":
		return Number{}
	case "first", "last", "random", "min", "max":
		if l, ok := t.(List); ok {
			return l.Inner
		}
	case "list", "sort", "reverse", "unique":
		if l, ok := t.(List); ok {
			return l
		}
	}
	return Unknown{}
}
