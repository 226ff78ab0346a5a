// Package promptcheck type-checks the Jinja embedded in a compiled schema:
// every function prompt, template string body and assert/check constraint
// is parsed and each expression is evaluated against a registry built from
// the IR.
package promptcheck

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/promptc/internal/ir"
	"github.com/roach88/promptc/internal/jinja"
	"github.com/roach88/promptc/internal/typecheck"
)

// SyntaxError is the finding kind for templates and constraint expressions
// that do not parse.
const SyntaxError typecheck.DiagnosticKind = "syntax_error"

// Finding is one problem in a schema's embedded Jinja. Span locates the
// owning declaration; Pos is relative to the start of the template or
// constraint expression.
type Finding struct {
	Entity  string                   `json:"entity"`
	Kind    typecheck.DiagnosticKind `json:"kind"`
	Message string                   `json:"message"`
	Span    ir.Span                  `json:"-"`
	Pos     jinja.Position           `json:"pos"`
}

func (f Finding) String() string {
	s := fmt.Sprintf("%s (%s): %s", f.Entity, f.Pos, f.Message)
	if !f.Span.IsZero() {
		s = f.Span.String() + ": " + s
	}
	return s
}

// Check validates every prompt, template string and constraint in r. The
// result is empty, never nil, when nothing is wrong.
func Check(r *ir.IntermediateRepr) []Finding {
	c := &checker{
		prompt:     SchemaTypes(r, typecheck.ContextPrompt),
		constraint: SchemaTypes(r, typecheck.ContextConstraint),
		seen:       map[string]bool{},
		findings:   []Finding{},
	}

	for fn := range r.WalkFunctions() {
		scope := c.prompt.Child()
		for _, in := range fn.Item().Inputs {
			scope.AddVariable(in.Name, typecheck.FromIR(in.Type))
		}
		for _, cfg := range fn.Item().Configs {
			span := cfg.PromptSpan
			if span.IsZero() {
				span = fn.Attributes().Span
			}
			entity := fn.Name()
			if len(fn.Item().Configs) > 1 {
				entity += "[" + cfg.Name + "]"
			}
			c.template(entity, span, cfg.PromptTemplate, scope)
		}
	}

	for ts := range r.WalkTemplateStrings() {
		scope := c.prompt.Child()
		for _, p := range ts.Item().Params {
			scope.AddVariable(p.Name, typecheck.FromIR(p.Type.Elem))
		}
		c.template(ts.Name(), ts.Attributes().Span, ts.Item().Content, scope)
	}

	// Declaration-level constraints first, so constraints copied onto a
	// reference are reported against the declaration that owns them.
	for e := range r.WalkEnums() {
		c.constraints(e.Name(), e.Attributes(), typecheck.String{})
	}
	for cls := range r.WalkClasses() {
		c.constraints(cls.Name(), cls.Attributes(), typecheck.ClassRef{Name: cls.Name()})
	}
	for cls := range r.WalkClasses() {
		for _, f := range cls.Item().StaticFields {
			entity := cls.Name() + "." + f.Elem.Name
			span := f.Elem.Type.Attributes.Span
			if span.IsZero() {
				span = f.Attributes.Span
			}
			c.typeConstraints(entity, span, f.Elem.Type.Elem)
		}
	}
	return c.findings
}

// SchemaTypes seeds a registry with the builtins for ctx, every class as a
// field map and every template string as a function returning a string.
func SchemaTypes(r *ir.IntermediateRepr, ctx typecheck.Context) *typecheck.PredefinedTypes {
	types := typecheck.Default(ctx)
	for cls := range r.WalkClasses() {
		fields := make([]typecheck.Field, len(cls.Item().StaticFields))
		for i, f := range cls.Item().StaticFields {
			fields[i] = typecheck.Field{Name: f.Elem.Name, Type: typecheck.FromIR(f.Elem.Type.Elem)}
		}
		types.AddClass(cls.Name(), fields...)
	}
	for ts := range r.WalkTemplateStrings() {
		params := make([]typecheck.Param, len(ts.Item().Params))
		for i, p := range ts.Item().Params {
			params[i] = typecheck.Param{Name: p.Name, Type: typecheck.FromIR(p.Type.Elem)}
		}
		types.AddFunction(ts.Name(), typecheck.String{}, params...)
	}
	return types
}

type checker struct {
	prompt     *typecheck.PredefinedTypes
	constraint *typecheck.PredefinedTypes
	seen       map[string]bool
	findings   []Finding
}

func (c *checker) template(entity string, span ir.Span, src string, scope *typecheck.PredefinedTypes) {
	tmpl, err := jinja.ParseTemplate(src)
	if err != nil {
		c.syntax(entity, span, err)
		return
	}
	c.walk(entity, span, tmpl.Nodes, scope)
}

func (c *checker) walk(entity string, span ir.Span, nodes []jinja.Node, scope *typecheck.PredefinedTypes) {
	for i, n := range nodes {
		switch n := n.(type) {
		case jinja.Output:
			c.expr(entity, span, n.Expr, scope)
		case jinja.If:
			for _, b := range n.Branches {
				c.expr(entity, span, b.Cond, scope)
				c.walk(entity, span, b.Body, scope)
			}
			c.walk(entity, span, n.Else, scope)
		case jinja.For:
			iter := c.expr(entity, span, n.Iter, scope)
			body := scope.Child()
			elem := elementType(iter)
			if len(n.Targets) == 1 {
				body.AddVariable(n.Targets[0], elem)
			} else {
				for _, name := range n.Targets {
					body.AddVariable(name, elementType(elem))
				}
			}
			body.AddVariable("loop", typecheck.ClassRef{Name: typecheck.LoopClass})
			if n.Filter != nil {
				c.expr(entity, span, n.Filter, body)
			}
			c.walk(entity, span, n.Body, body)
			c.walk(entity, span, n.Else, scope)
		case jinja.Set:
			value := c.expr(entity, span, n.Value, scope)
			rest := scope.Child()
			if len(n.Targets) == 1 {
				rest.AddVariable(n.Targets[0], value)
			} else {
				for _, name := range n.Targets {
					rest.AddVariable(name, elementType(value))
				}
			}
			c.walk(entity, span, nodes[i+1:], rest)
			return
		}
	}
}

// elementType is what iterating over t yields. A none member contributes
// nothing, so an optional list yields its element type.
func elementType(t typecheck.Type) typecheck.Type {
	switch t := t.(type) {
	case typecheck.List:
		return t.Inner
	case typecheck.Optional:
		return elementType(t.Inner)
	case typecheck.Union:
		var rest []typecheck.Type
		for _, m := range t.Members {
			if _, isNone := m.(typecheck.None); !isNone {
				rest = append(rest, m)
			}
		}
		if len(rest) == 1 {
			return elementType(rest[0])
		}
	}
	return typecheck.Unknown{}
}

func (c *checker) expr(entity string, span ir.Span, e jinja.Expr, scope *typecheck.PredefinedTypes) typecheck.Type {
	t, diags := typecheck.Infer(e, scope)
	for _, d := range diags {
		c.findings = append(c.findings, Finding{Entity: entity, Kind: d.Kind, Message: d.Message, Span: span, Pos: d.Pos})
	}
	return t
}

func (c *checker) syntax(entity string, span ir.Span, err error) {
	f := Finding{Entity: entity, Kind: SyntaxError, Message: err.Error(), Span: span}
	var se *jinja.SyntaxError
	if errors.As(err, &se) {
		f.Message = se.Message
		f.Pos = se.Pos
	}
	c.findings = append(c.findings, f)
}

func (c *checker) constraints(entity string, attrs ir.NodeAttributes, this typecheck.Type) {
	for _, con := range attrs.Constraints {
		c.constraint1(entity, attrs.Span, con, this)
	}
}

// typeConstraints checks the constraints nested anywhere in t.
func (c *checker) typeConstraints(entity string, span ir.Span, t ir.Type) {
	switch t := t.(type) {
	case ir.Constrained:
		this := typecheck.FromIR(t.Base)
		for _, con := range t.Constraints {
			c.constraint1(entity, span, con, this)
		}
		c.typeConstraints(entity, span, t.Base)
	case ir.Optional:
		c.typeConstraints(entity, span, t.Inner)
	case ir.List:
		c.typeConstraints(entity, span, t.Inner)
	case ir.Map:
		c.typeConstraints(entity, span, t.Key)
		c.typeConstraints(entity, span, t.Value)
	case ir.Union:
		for _, m := range t.Members {
			c.typeConstraints(entity, span, m)
		}
	case ir.Tuple:
		for _, m := range t.Members {
			c.typeConstraints(entity, span, m)
		}
	}
}

// constraint1 evaluates one constraint with `this` bound. The same
// expression against the same type is only checked once.
func (c *checker) constraint1(entity string, span ir.Span, con ir.Constraint, this typecheck.Type) {
	key := con.Expression + "\x00" + this.String()
	if c.seen[key] {
		return
	}
	c.seen[key] = true

	e, err := jinja.ParseExpr(ConstraintSource(con.Expression))
	if err != nil {
		c.syntax(entity, span, err)
		return
	}
	scope := c.constraint.Child()
	scope.AddVariable("this", this)
	c.expr(entity, span, e, scope)
}

// ConstraintSource strips the {{ }} a constraint expression may be written
// with.
func ConstraintSource(expr string) string {
	s := strings.TrimSpace(expr)
	if strings.HasPrefix(s, "{{") && strings.HasSuffix(s, "}}") && len(s) >= 4 {
		s = strings.TrimSpace(s[2 : len(s)-2])
	}
	return s
}
