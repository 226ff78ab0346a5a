package jinja

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exprStrings(tmpl *Template) []string {
	var out []string
	for _, e := range tmpl.Exprs() {
		out = append(out, e.String())
	}
	return out
}

func TestParseTemplateTextAndOutput(t *testing.T) {
	tmpl, err := ParseTemplate("Extract from {{ text }}.\n{{ ctx.output_format }}")
	require.NoError(t, err)
	require.Len(t, tmpl.Nodes, 4)

	assert.Equal(t, "Extract from ", tmpl.Nodes[0].(Text).Value)
	out := tmpl.Nodes[1].(Output)
	assert.Equal(t, "text", out.Expr.String())
	assert.Equal(t, Position{Line: 1, Column: 14}, out.Pos())
	assert.Equal(t, Position{Line: 1, Column: 17}, out.Expr.Pos())
	assert.Equal(t, ".\n", tmpl.Nodes[2].(Text).Value)
	assert.Equal(t, Position{Line: 2, Column: 4}, tmpl.Nodes[3].(Output).Expr.Pos())
}

func TestParseTemplateControlFlow(t *testing.T) {
	src := `{% for job in resume.jobs if job.current %}
{% if job.title == 'CEO' %}boss{% elif job.reports %}lead{% else %}ic{% endif %}
{% set n = loop.index %}{{ n }}
{% else %}none{% endfor %}`

	tmpl, err := ParseTemplate(src)
	require.NoError(t, err)

	require.Len(t, tmpl.Nodes, 1)
	loop := tmpl.Nodes[0].(For)
	assert.Equal(t, []string{"job"}, loop.Targets)
	assert.Equal(t, "resume.jobs", loop.Iter.String())
	assert.Equal(t, "job.current", loop.Filter.String())
	assert.Len(t, loop.Else, 1)

	var cond If
	for _, n := range loop.Body {
		if c, ok := n.(If); ok {
			cond = c
		}
	}
	require.Len(t, cond.Branches, 2)
	assert.Equal(t, "job.reports", cond.Branches[1].Cond.String())
	assert.Equal(t, "ic", cond.Else[0].(Text).Value)

	assert.Equal(t, []string{
		"resume.jobs", "job.current",
		`job.title == "CEO"`, "job.reports",
		"loop.index", "n",
	}, exprStrings(tmpl))
}

func TestParseTemplateTupleTargets(t *testing.T) {
	tmpl, err := ParseTemplate("{% for k, v in d.items() %}{{ k }}={{ v }}{% endfor %}{% set a, b = pair %}")
	require.NoError(t, err)
	assert.Equal(t, []string{"k", "v"}, tmpl.Nodes[0].(For).Targets)
	assert.Equal(t, []string{"a", "b"}, tmpl.Nodes[1].(Set).Targets)
	assert.Equal(t, "pair", tmpl.Nodes[1].(Set).Value.String())
}

func TestParseTemplateWhitespaceControl(t *testing.T) {
	tmpl, err := ParseTemplate("a  \n{{- x -}}\n  b{# note #}c")
	require.NoError(t, err)
	require.Len(t, tmpl.Nodes, 4)
	assert.Equal(t, "a", tmpl.Nodes[0].(Text).Value)
	assert.Equal(t, "b", tmpl.Nodes[2].(Text).Value)
	assert.Equal(t, Position{Line: 3, Column: 3}, tmpl.Nodes[2].Pos())
	assert.Equal(t, "c", tmpl.Nodes[3].(Text).Value)
}

func TestParseTemplateDelimitersInStrings(t *testing.T) {
	tmpl, err := ParseTemplate(`{{ "}}" ~ '%}' }}`)
	require.NoError(t, err)
	assert.Equal(t, []string{`"}}" ~ "%}"`}, exprStrings(tmpl))
}

func TestParseTemplateRaw(t *testing.T) {
	tmpl, err := ParseTemplate("{% raw %}{{ not parsed }}{% endraw %}")
	require.NoError(t, err)
	require.Len(t, tmpl.Nodes, 1)
	assert.Equal(t, "{{ not parsed }}", tmpl.Nodes[0].(Text).Value)
}

func TestParseTemplateErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unclosed output", "hi {{ name", "1:4: unclosed {{"},
		{"unclosed if", "{% if x %}y", "1:1: unclosed {% if %}"},
		{"stray endfor", "{% endfor %}", "1:1: unexpected {% endfor %}"},
		{"mismatched close", "{% if x %}{% endfor %}", "1:11: unexpected {% endfor %} inside {% if %}"},
		{"unsupported", "{% macro m() %}{% endmacro %}", `1:1: unsupported statement "macro"`},
		{"bad expression", "line\n{{ 1 + }}", "2:"},
		{"bad for", "{% for in xs %}{% endfor %}", "expected {% for name in expr %}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTemplate(tt.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
