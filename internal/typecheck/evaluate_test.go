package typecheck

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/promptc/internal/ir"
	"github.com/roach88/promptc/internal/jinja"
)

func promptTypes() *PredefinedTypes {
	p := Default(ContextPrompt)
	p.AddClass("Foo",
		Field{Name: "name", Type: String{}},
		Field{Name: "items", Type: List{Inner: String{}}},
		Field{Name: "score", Type: Optional{Inner: Int{}}},
	)
	p.AddVariable("bar", ClassRef{Name: "Foo"})
	p.AddFunction("SomeFunc", String{}, Param{Name: "arg", Type: Bool{}})
	p.AddFunction("AnotherFunc", Int{},
		Param{Name: "arg1", Type: Bool{}},
		Param{Name: "arg2", Type: String{}},
		Param{Name: "arg3", Type: Int{}},
	)
	return p
}

func eval(t *testing.T, src string, types *PredefinedTypes) (Type, Diagnostics) {
	t.Helper()
	e, err := jinja.ParseExpr(src)
	require.NoError(t, err, "parse %q", src)
	return Infer(e, types)
}

func lit(v int64) Type     { return Literal{Value: ir.IntLiteral(v)} }
func slit(v string) Type   { return Literal{Value: ir.StringLiteral(v)} }
func union(m ...Type) Type { return Union{Members: m} }

func TestEvaluateTypes(t *testing.T) {
	tests := []struct {
		src  string
		want Type
	}{
		{"1.1 + 1", Number{}},
		{"not 1.1", Bool{}},
		{"'a' ~ 1", String{}},
		{"none", None{}},
		{"true", Literal{Value: ir.BoolLiteral(true)}},
		{"1.5", Float{}},
		{"1 if true else 2", union(lit(1), lit(2))},
		{"2 if true else 1", union(lit(1), lit(2))},
		{"'1' if true else 2", union(slit("1"), lit(2))},
		{"1 if true", union(lit(1), None{})},
		{"bar", ClassRef{Name: "Foo"}},
		{"bar.name", String{}},
		{"bar.score", Optional{Inner: Int{}}},
		{"bar.items", List{Inner: String{}}},
		{"bar.items[0]", String{}},
		{"bar['name']", String{}},
		{"bar.items|length", Int{}},
		{"bar.items|first", String{}},
		{"bar.name|upper", String{}},
		{"bar.name is defined", Bool{}},
		{"bar.name == 'x' and bar.score > 1", Bool{}},
		{"[1, 2, 1]", List{Inner: union(lit(1), lit(2))}},
		{"[]", List{Inner: Unknown{}}},
		{"{'k': bar}", Unknown{}},
		{"SomeFunc(true)", String{}},
		{"SomeFunc(arg=false)", String{}},
		{"AnotherFunc(true, '1', 3)", Int{}},
		{"AnotherFunc(arg3=1, arg2='x', arg1=true)", Int{}},
		{"_.role('user')", String{}},
		{"ctx.output_format(prefix='hi')", String{}},
		{"ctx.output_format(always_hoist_enums=true, or_splitter=none)", String{}},
		{"ctx.output_format()", String{}},
		{"ctx.client.provider", String{}},
		{"SomeFunc", FunctionRef{Name: "SomeFunc"}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, diags := eval(t, tt.src, promptTypes())
			assert.Empty(t, diags)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateDiagnostics(t *testing.T) {
	tests := []struct {
		src  string
		kind DiagnosticKind
		want []string
	}{
		{
			src:  "ok",
			kind: UnknownVariable,
			want: []string{"Variable `ok` does not exist. Did you mean one of these: `_`, `ctx`?"},
		},
		{
			src:  "ok ~ 1.1",
			kind: UnknownVariable,
			want: []string{"Variable `ok` does not exist. Did you mean one of these: `_`, `ctx`?"},
		},
		{
			src:  "bars",
			kind: UnknownVariable,
			want: []string{"Variable `bars` does not exist. Did you mean one of these: `bar`, `_`, `ctx`?"},
		},
		{
			src:  "bar.f",
			kind: UnknownProperty,
			want: []string{"class Foo (bar) does not have a property 'f'"},
		},
		{
			src:  "bar.f.g",
			kind: UnknownProperty,
			want: []string{"class Foo (bar) does not have a property 'f'"},
		},
		{
			src:  "bar.nme",
			kind: UnknownProperty,
			want: []string{"class Foo (bar) does not have a property 'nme'. Did you mean 'name'?"},
		},
		{
			src:  "SomeFunc(arg=1)",
			kind: ArgumentType,
			want: []string{"Function 'SomeFunc' expects argument 'arg' to be of type bool, but got literal[1]"},
		},
		{
			src:  "SomeFunc(1 if true)",
			kind: ArgumentType,
			want: []string{"Function 'SomeFunc' expects argument 'arg' to be of type bool, but got (literal[1] | none)"},
		},
		{
			src:  "AnotherFunc(true)",
			kind: ArityMismatch,
			want: []string{"Function 'AnotherFunc' expects 3 arguments, but got 1"},
		},
		{
			src:  "AnotherFunc(true, arg2='1')",
			kind: ArityMismatch,
			want: []string{"Function 'AnotherFunc' expects 3 arguments, but got 2"},
		},
		{
			src:  "ctx.output_format(always_hoist_enums=1)",
			kind: ArgumentType,
			want: []string{"Function 'baml::OutputFormat' expects argument 'always_hoist_enums' to be of type (none | bool), but got literal[1]"},
		},
		{
			src:  "ctx.output_format('x')",
			kind: ArityMismatch,
			want: []string{"Function 'baml::OutputFormat' does not accept positional arguments, but got 1"},
		},
		{
			src:  "ctx.output_format(prefix='1', unknown=1)",
			kind: UnknownArgument,
			want: []string{"Function 'baml::OutputFormat' does not have an argument 'unknown'. Did you mean one of these: 'always_hoist_enums', 'enum_value_prefix', 'hoisted_class_prefix', 'or_splitter'?"},
		},
		{
			src:  "ctx.output_format(prefx='1')",
			kind: UnknownArgument,
			want: []string{"Function 'baml::OutputFormat' does not have an argument 'prefx'. Did you mean 'prefix'?"},
		},
		{
			src:  "bar(1)",
			kind: NotCallable,
			want: []string{"'bar' of type class Foo is not callable"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, diags := eval(t, tt.src, promptTypes())
			require.NotEmpty(t, diags)
			assert.Equal(t, tt.kind, diags[0].Kind)
			assert.Equal(t, tt.want, diags.Messages())
		})
	}
}

func TestEvaluateEmptyRegistry(t *testing.T) {
	got, diags := eval(t, "1 + 1", New(ContextPrompt))
	assert.Empty(t, diags)
	assert.Equal(t, Number{}, got)
}

func TestEvaluateUnknownReceiver(t *testing.T) {
	_, diags := eval(t, "bar.f", Default(ContextPrompt))
	require.Len(t, diags, 1)
	assert.Equal(t, UnknownVariable, diags[0].Kind)
	assert.Equal(t, "Variable `bar` does not exist. Did you mean one of these: `_`, `ctx`?", diags[0].Message)
}

func TestEvaluateBindingReportsEverything(t *testing.T) {
	_, diags := eval(t, "AnotherFunc(true, arg2='1', arg4=1)", promptTypes())
	assert.Equal(t, []string{
		"Function 'AnotherFunc' expects argument 'arg3'",
		"Function 'AnotherFunc' does not have an argument 'arg4'. Did you mean 'arg3'?",
	}, diags.Messages())

	_, diags = eval(t, "AnotherFunc(true, arg1=false, arg2='x')", promptTypes())
	assert.Equal(t, []string{
		"Function 'AnotherFunc' got multiple values for argument 'arg1'",
		"Function 'AnotherFunc' expects argument 'arg3'",
	}, diags.Messages())
}

func TestEvaluateChecksBothBranches(t *testing.T) {
	_, diags := eval(t, "bar.f if missing else bar.g", promptTypes())
	require.Len(t, diags, 3)
	assert.Equal(t, []DiagnosticKind{UnknownVariable, UnknownProperty, UnknownProperty}, []DiagnosticKind{
		diags[0].Kind, diags[1].Kind, diags[2].Kind,
	})
	assert.Contains(t, diags[2].Message, "property 'g'")
}

func TestEvaluateReturnsDiagnosticsError(t *testing.T) {
	e, err := jinja.ParseExpr("bar.f ~ missing")
	require.NoError(t, err)

	got, err := Evaluate(e, promptTypes())
	require.Error(t, err)
	assert.Equal(t, Unknown{}, got)

	var diags Diagnostics
	require.True(t, errors.As(err, &diags))
	assert.Len(t, diags, 2)
	assert.Contains(t, err.Error(), "2 expression error(s)")
	assert.Contains(t, err.Error(), "1:1: class Foo (bar)")
}

func TestEvaluateDiagnosticPosition(t *testing.T) {
	_, diags := eval(t, "1 + missing", promptTypes())
	require.Len(t, diags, 1)
	assert.Equal(t, jinja.Position{Line: 1, Column: 5}, diags[0].Pos)
}

func TestEvaluateConstraintContext(t *testing.T) {
	types := Default(ContextConstraint)
	types.AddVariable("this", Int{})

	got, diags := eval(t, "this > 0", types)
	assert.Empty(t, diags)
	assert.Equal(t, Bool{}, got)

	_, diags = eval(t, "ctx", types)
	assert.Equal(t, []string{"Variable `ctx` does not exist. Did you mean `_`?"}, diags.Messages())
}

func TestEvaluateChildScope(t *testing.T) {
	parent := promptTypes()
	child := parent.Child()
	child.AddVariable("item", String{})
	child.AddVariable("bar", Int{})

	got, diags := eval(t, "item ~ bar", child)
	assert.Empty(t, diags)
	assert.Equal(t, String{}, got)

	got, _ = eval(t, "bar", child)
	assert.Equal(t, Int{}, got, "inner bindings shadow outer ones")

	_, diags = eval(t, "item", parent)
	assert.Len(t, diags, 1, "child bindings do not leak into the parent")
}

func TestEvaluateOptionalClassProperty(t *testing.T) {
	types := promptTypes()
	types.AddVariable("maybe", Optional{Inner: ClassRef{Name: "Foo"}})
	types.AddVariable("either", MakeUnion(ClassRef{Name: "Foo"}, None{}))

	got, diags := eval(t, "maybe.name", types)
	assert.Empty(t, diags)
	assert.Equal(t, String{}, got)

	got, diags = eval(t, "either.items", types)
	assert.Empty(t, diags)
	assert.Equal(t, List{Inner: String{}}, got)
}
