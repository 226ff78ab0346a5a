package typecheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPromptBuiltins(t *testing.T) {
	p := Default(ContextPrompt)
	assert.Equal(t, ContextPrompt, p.Context())
	assert.Equal(t, []string{"_", "ctx"}, p.Builtins())
	assert.Equal(t, []string{"_", "ctx"}, p.Names(), "namespaced builtins are hidden")

	fn, ok := p.Function(OutputFormatFunc)
	require.True(t, ok)
	assert.True(t, fn.KeywordOnly)
	assert.Len(t, fn.Params, 5)

	fields, ok := p.Class(LoopClass)
	require.True(t, ok)
	assert.Equal(t, "index", fields[0].Name)
}

func TestDefaultConstraintBuiltins(t *testing.T) {
	p := Default(ContextConstraint)
	assert.Equal(t, "constraint", p.Context().String())
	assert.Equal(t, []string{"_"}, p.Builtins())

	_, ok := p.Variable("ctx")
	assert.False(t, ok)
	_, ok = p.Function(OutputFormatFunc)
	assert.False(t, ok)
}

func TestRegistryNamesOrder(t *testing.T) {
	p := Default(ContextPrompt)
	p.AddVariable("input", String{})
	p.AddFunction("Zeta", String{})
	p.AddFunction("Alpha", String{})

	child := p.Child()
	child.AddVariable("item", Int{})

	assert.Equal(t, []string{"_", "ctx", "input", "item", "Alpha", "Zeta"}, child.Names())
	assert.Equal(t, ContextPrompt, child.Context())
	assert.Equal(t, []string{"_", "ctx"}, child.Builtins())
}

func TestRegistryAddVariableReplaces(t *testing.T) {
	p := New(ContextPrompt)
	p.AddVariable("x", Int{})
	p.AddVariable("x", String{})

	got, ok := p.Variable("x")
	require.True(t, ok)
	assert.Equal(t, String{}, got)
	assert.Equal(t, []string{"x"}, p.Names())
}

func TestRegistryFunctionAsVariable(t *testing.T) {
	p := New(ContextPrompt)
	p.AddFunction("Greet", String{}, Param{Name: "name", Type: String{}})

	got, ok := p.Variable("Greet")
	require.True(t, ok)
	assert.Equal(t, FunctionRef{Name: "Greet"}, got)
}
