package compiler

import (
	"log/slog"
	"slices"

	"github.com/roach88/promptc/internal/ast"
	"github.com/roach88/promptc/internal/ir"
)

// Attribute names with special meaning.
const (
	attrDescription = "description"
	attrAlias       = "alias"
	attrDynamicType = "dynamic_type"
	attrSkip        = "skip"
	attrAssert      = "assert"
	attrCheck       = "check"
)

// ExtractAttributes normalizes raw attributes into node metadata and an
// ordered constraint list. Known keys with an unexpected argument shape are
// logged and dropped. Unknown keys are kept as ir.UnknownAttribute. A later
// occurrence of a key replaces an earlier one.
//
// The returned NodeAttributes has no span; callers set it.
func ExtractAttributes(attrs []ast.Attribute, log *slog.Logger) ir.NodeAttributes {
	if log == nil {
		log = slog.Default()
	}
	var out ir.NodeAttributes
	for _, a := range attrs {
		switch a.Name {
		case attrAssert, attrCheck:
			if c, ok := extractConstraint(a); ok {
				out.Constraints = append(out.Constraints, c)
			} else {
				log.Debug("constraint dropped", "attribute", a.Name, "args", len(a.Args), "span", a.Span.String())
			}
			continue
		}

		m, ok := extractMeta(a)
		if !ok {
			log.Warn("ignoring attribute with unrecognized shape",
				"attribute", a.Name, "args", len(a.Args), "span", a.Span.String())
			continue
		}
		if m == nil {
			continue
		}
		out.Meta = setMeta(out.Meta, m)
	}
	return out
}

// extractMeta returns (nil, true) for a recognized attribute that records
// nothing, such as skip(false).
func extractMeta(a ast.Attribute) (ir.Attribute, bool) {
	switch a.Name {
	case attrDescription:
		if len(a.Args) != 1 {
			return nil, false
		}
		switch v := a.Args[0].(type) {
		case ast.StringValue:
			return ir.Description{Value: ir.StringExpr(v.Value)}, true
		case ast.RawStringValue:
			return ir.Description{Value: ir.RawStringExpr(v.Value)}, true
		case ast.TemplateValue:
			return ir.Description{Value: ir.TemplateExpr(v.Value)}, true
		}
		return nil, false
	case attrAlias:
		if len(a.Args) != 1 {
			return nil, false
		}
		switch v := a.Args[0].(type) {
		case ast.StringValue:
			return ir.Alias{Name: v.Value}, true
		case ast.Identifier:
			if v.Kind == ast.IdentString || v.Kind == ast.IdentLocal {
				return ir.Alias{Name: v.Name}, true
			}
		}
		return nil, false
	case attrDynamicType, attrSkip:
		set, ok := flagValue(a)
		if !ok {
			return nil, false
		}
		if !set {
			return nil, true
		}
		if a.Name == attrSkip {
			return ir.Skip{}, true
		}
		return ir.DynamicType{}, true
	default:
		value, err := unknownValue(a.Args)
		if err != nil {
			return nil, false
		}
		return ir.UnknownAttribute{Name: a.Name, Value: value}, true
	}
}

// flagValue reads a boolean flag. A bare flag with no arguments is true.
func flagValue(a ast.Attribute) (bool, bool) {
	switch len(a.Args) {
	case 0:
		return true, true
	case 1:
		if b, ok := a.Args[0].(ast.BoolValue); ok {
			return b.Value, true
		}
	}
	return false, false
}

func unknownValue(args []ast.Expression) (ir.Expression, error) {
	switch len(args) {
	case 0:
		return ir.BoolExpr(true), nil
	case 1:
		return LowerExpression(args[0])
	default:
		return LowerExpression(ast.Array{Items: args})
	}
}

func setMeta(meta []ir.Attribute, m ir.Attribute) []ir.Attribute {
	if i := slices.IndexFunc(meta, func(x ir.Attribute) bool { return x.Key() == m.Key() }); i >= 0 {
		meta[i] = m
		return meta
	}
	return append(meta, m)
}

// extractConstraint accepts exactly two shapes: a single template
// expression, or a local identifier label followed by a template expression.
func extractConstraint(a ast.Attribute) (ir.Constraint, bool) {
	level := ir.ConstraintAssert
	if a.Name == attrCheck {
		level = ir.ConstraintCheck
	}
	switch len(a.Args) {
	case 1:
		if expr, ok := a.Args[0].(ast.TemplateValue); ok {
			return ir.Constraint{Level: level, Expression: expr.Value}, true
		}
	case 2:
		label, ok := a.Args[0].(ast.Identifier)
		if !ok || label.Kind != ast.IdentLocal {
			return ir.Constraint{}, false
		}
		if expr, ok := a.Args[1].(ast.TemplateValue); ok {
			return ir.Constraint{Level: level, Expression: expr.Value, Label: label.Name}, true
		}
	}
	return ir.Constraint{}, false
}

// LowerExpression converts a schema literal to its IR form. Reference
// identifiers and unquoted strings become strings; an invalid identifier is
// an error.
func LowerExpression(e ast.Expression) (ir.Expression, error) {
	switch v := e.(type) {
	case ast.BoolValue:
		return ir.BoolExpr(v.Value), nil
	case ast.NumericValue:
		return ir.NumericExpr(v.Value), nil
	case ast.StringValue:
		return ir.StringExpr(v.Value), nil
	case ast.RawStringValue:
		return ir.RawStringExpr(v.Value), nil
	case ast.TemplateValue:
		return ir.TemplateExpr(v.Value), nil
	case ast.Identifier:
		switch v.Kind {
		case ast.IdentEnv:
			return ir.Identifier{Kind: ir.IdentEnv, Name: v.Name}, nil
		case ast.IdentLocal:
			return ir.Identifier{Kind: ir.IdentLocal, Name: v.Name}, nil
		case ast.IdentRef, ast.IdentString:
			return ir.StringExpr(v.Name), nil
		default:
			return nil, compileErrorf(ErrCodeInvalidExpression, v.Span, "", "invalid identifier %q", v.Name)
		}
	case ast.Array:
		items := make(ir.ListExpr, 0, len(v.Items))
		for _, item := range v.Items {
			lowered, err := LowerExpression(item)
			if err != nil {
				return nil, err
			}
			items = append(items, lowered)
		}
		return items, nil
	case ast.MapValue:
		entries := make(ir.MapExpr, 0, len(v.Entries))
		for _, kv := range v.Entries {
			lowered, err := LowerExpression(kv.Value)
			if err != nil {
				return nil, err
			}
			entries = append(entries, ir.MapEntry{Key: kv.Key, Value: lowered})
		}
		return entries, nil
	default:
		return nil, compileErrorf(ErrCodeInvalidExpression, ir.Span{}, "", "unsupported expression %T", e)
	}
}
