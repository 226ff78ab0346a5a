package compiler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/promptc/internal/ast"
	"github.com/roach88/promptc/internal/ir"
)

func TestExtractAttributesKnownKeys(t *testing.T) {
	attrs := []ast.Attribute{
		{Name: "description", Args: []ast.Expression{ast.RawStringValue{Value: "multi\nline"}}},
		{Name: "alias", Args: []ast.Expression{ast.StringValue{Value: "full_name"}}},
		{Name: "dynamic_type", Args: []ast.Expression{ast.BoolValue{Value: true}}},
		{Name: "skip", Args: []ast.Expression{ast.BoolValue{Value: false}}},
	}

	got := ExtractAttributes(attrs, discardLogger())

	assert.Equal(t, []ir.Attribute{
		ir.Description{Value: ir.RawStringExpr("multi\nline")},
		ir.Alias{Name: "full_name"},
		ir.DynamicType{},
	}, got.Meta)
	assert.False(t, got.IsSkipped(), "skip(false) is not recorded")
	assert.Empty(t, got.Constraints)
}

func TestExtractAttributesTemplateDescription(t *testing.T) {
	got := ExtractAttributes([]ast.Attribute{
		{Name: "description", Args: []ast.Expression{tmpl("_.role('user')")}},
	}, discardLogger())

	d, ok := got.Description()
	require.True(t, ok)
	assert.Equal(t, ir.TemplateExpr("_.role('user')"), d)
}

func TestExtractAttributesBareFlag(t *testing.T) {
	got := ExtractAttributes([]ast.Attribute{{Name: "skip"}}, discardLogger())
	assert.True(t, got.IsSkipped())
}

func TestExtractAttributesWrongShapeWarns(t *testing.T) {
	log, buf := bufferLogger()
	got := ExtractAttributes([]ast.Attribute{
		{Name: "alias", Args: []ast.Expression{ast.NumericValue{Value: "1"}}, Span: span(7)},
		{Name: "description", Args: []ast.Expression{ast.StringValue{Value: "a"}, ast.StringValue{Value: "b"}}},
		{Name: "dynamic_type", Args: []ast.Expression{ast.StringValue{Value: "yes"}}},
	}, log)

	assert.Empty(t, got.Meta)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "attribute=alias")
	assert.Contains(t, buf.String(), "attribute=description")
	assert.Contains(t, buf.String(), "attribute=dynamic_type")
	assert.Contains(t, buf.String(), "schema.cue:7:1")
}

func TestExtractAttributesLaterOccurrenceWins(t *testing.T) {
	got := ExtractAttributes([]ast.Attribute{
		{Name: "alias", Args: []ast.Expression{ast.StringValue{Value: "first"}}},
		{Name: "alias", Args: []ast.Expression{ast.StringValue{Value: "second"}}},
	}, discardLogger())

	require.Len(t, got.Meta, 1)
	alias, _ := got.Alias()
	assert.Equal(t, "second", alias)
}

func TestExtractAttributesUnknownKeyKept(t *testing.T) {
	got := ExtractAttributes([]ast.Attribute{
		{Name: "stream_done"},
		{Name: "owner", Args: []ast.Expression{ast.StringValue{Value: "ml"}}},
		{Name: "pair", Args: []ast.Expression{ast.NumericValue{Value: "1"}, ast.NumericValue{Value: "2"}}},
	}, discardLogger())

	assert.Equal(t, []ir.Attribute{
		ir.UnknownAttribute{Name: "stream_done", Value: ir.BoolExpr(true)},
		ir.UnknownAttribute{Name: "owner", Value: ir.StringExpr("ml")},
		ir.UnknownAttribute{Name: "pair", Value: ir.ListExpr{ir.NumericExpr("1"), ir.NumericExpr("2")}},
	}, got.Meta)
}

func TestExtractConstraintShapes(t *testing.T) {
	tests := []struct {
		name string
		attr ast.Attribute
		want []ir.Constraint
	}{
		{
			name: "anonymous assert",
			attr: assertAttr("this > 0"),
			want: []ir.Constraint{{Level: ir.ConstraintAssert, Expression: "this > 0"}},
		},
		{
			name: "labeled check",
			attr: ast.Attribute{Name: "check", Args: []ast.Expression{local("short"), tmpl("this|length < 10")}},
			want: []ir.Constraint{{Level: ir.ConstraintCheck, Expression: "this|length < 10", Label: "short"}},
		},
		{
			name: "no arguments",
			attr: ast.Attribute{Name: "assert"},
		},
		{
			name: "plain string is not a template",
			attr: ast.Attribute{Name: "assert", Args: []ast.Expression{ast.StringValue{Value: "this > 0"}}},
		},
		{
			name: "label must be a local identifier",
			attr: ast.Attribute{Name: "assert", Args: []ast.Expression{ast.StringValue{Value: "lbl"}, tmpl("x")}},
		},
		{
			name: "three arguments",
			attr: ast.Attribute{Name: "check", Args: []ast.Expression{local("a"), tmpl("x"), tmpl("y")}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractAttributes([]ast.Attribute{tt.attr}, discardLogger())
			assert.Equal(t, tt.want, got.Constraints)
			assert.Empty(t, got.Meta)
		})
	}
}

func TestExtractConstraintsKeepOrder(t *testing.T) {
	got := ExtractAttributes([]ast.Attribute{
		{Name: "check", Args: []ast.Expression{local("b"), tmpl("2")}},
		assertAttr("1"),
	}, discardLogger())

	require.Len(t, got.Constraints, 2)
	assert.Equal(t, "b", got.Constraints[0].Label)
	assert.Equal(t, ir.ConstraintAssert, got.Constraints[1].Level)
}

func TestLowerExpression(t *testing.T) {
	in := ast.MapValue{Entries: []ast.MapEntry{
		{Key: "model", Value: ast.Identifier{Kind: ast.IdentRef, Name: "gpt-3.5-turbo"}},
		{Key: "key", Value: ast.Identifier{Kind: ast.IdentEnv, Name: "KEY"}},
		{Key: "temps", Value: ast.Array{Items: []ast.Expression{ast.NumericValue{Value: "0.10"}, ast.BoolValue{Value: true}}}},
		{Key: "mode", Value: ast.Identifier{Kind: ast.IdentString, Name: "json"}},
	}}

	got, err := LowerExpression(in)
	require.NoError(t, err)
	assert.Equal(t, ir.MapExpr{
		{Key: "model", Value: ir.StringExpr("gpt-3.5-turbo")},
		{Key: "key", Value: ir.Identifier{Kind: ir.IdentEnv, Name: "KEY"}},
		{Key: "temps", Value: ir.ListExpr{ir.NumericExpr("0.10"), ir.BoolExpr(true)}},
		{Key: "mode", Value: ir.StringExpr("json")},
	}, got)
}

func TestLowerExpressionInvalidIdentifier(t *testing.T) {
	_, err := LowerExpression(ast.Array{Items: []ast.Expression{
		ast.Identifier{Kind: ast.IdentInvalid, Name: "1abc", Span: span(4)},
	}})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidExpression))
	assert.Contains(t, err.Error(), "schema.cue:4:1")
	assert.Contains(t, err.Error(), "E206")
}
