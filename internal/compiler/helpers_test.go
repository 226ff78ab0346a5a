package compiler

import (
	"bytes"
	"io"
	"log/slog"

	"github.com/roach88/promptc/internal/ast"
	"github.com/roach88/promptc/internal/ir"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func span(line int) ir.Span {
	return ir.Span{File: "schema.cue", Start: ir.Position{Line: line, Column: 1}}
}

func prim(kind ir.PrimitiveKind) ast.Primitive { return ast.Primitive{Kind: kind} }

func optional(t ast.FieldType) ast.FieldType { return ast.WithArity(t, ast.Optional) }

func sym(name string) ast.Symbol { return ast.Symbol{Name: name} }

func tmpl(s string) ast.TemplateValue { return ast.TemplateValue{Value: s} }

func local(s string) ast.Identifier { return ast.Identifier{Kind: ast.IdentLocal, Name: s} }

func assertAttr(expr string) ast.Attribute {
	return ast.Attribute{Name: "assert", Args: []ast.Expression{tmpl(expr)}}
}

func field(name string, t ast.FieldType) ast.Field {
	return ast.Field{Name: name, Type: t}
}

func class(name string, fields ...ast.Field) ast.Class {
	return ast.Class{Name: name, Fields: fields}
}

// resumeSchema is a small schema touching every block kind.
func resumeSchema() *ast.Schema {
	return &ast.Schema{
		EnumDecls: []ast.Enum{{
			Name: "Seniority",
			Values: []ast.EnumValue{
				{Name: "Junior"},
				{Name: "Senior", Attributes: []ast.Attribute{{Name: "alias", Args: []ast.Expression{ast.StringValue{Value: "sr"}}}}},
			},
			Span: span(1),
		}},
		ClassDecls: []ast.Class{
			{
				Name: "Resume",
				Fields: []ast.Field{
					field("name", prim(ir.PrimitiveString)),
					field("jobs", ast.List{Elem: sym("Job"), Dims: 1}),
					field("level", optional(sym("Seniority"))),
				},
				Span: span(5),
			},
			{
				Name: "Job",
				Fields: []ast.Field{
					field("title", prim(ir.PrimitiveString)),
					field("reports", ast.List{Elem: sym("Job"), Dims: 1}),
				},
				Span: span(12),
			},
		},
		FunctionDecls: []ast.Function{{
			Name:   "ExtractResume",
			Inputs: []ast.BlockArg{{Name: "text", Type: prim(ir.PrimitiveString)}},
			Output: sym("Resume"),
			Client: "Main",
			Prompt: "Extract from {{ text }}. {{ ctx.output_format }}",
			Span:   span(20),
		}},
		ClientDecls: []ast.Client{{
			Name:        "Main",
			Provider:    "openai",
			RetryPolicy: "Backoff",
			Options: []ast.Option{
				{Key: "model", Value: ast.Identifier{Kind: ast.IdentRef, Name: "gpt-4o"}},
				{Key: "api_key", Value: ast.Identifier{Kind: ast.IdentEnv, Name: "OPENAI_API_KEY"}},
			},
			Span: span(30),
		}},
		RetryPolicyDecls: []ast.RetryPolicy{{
			Name:       "Backoff",
			MaxRetries: 3,
			Strategy:   ast.RetryStrategy{Type: "exponential_backoff"},
			Span:       span(40),
		}},
		TemplateStringDecls: []ast.TemplateString{{
			Name:    "Greeting",
			Inputs:  []ast.BlockArg{{Name: "name", Type: prim(ir.PrimitiveString)}, {Name: "bad", Type: sym("Missing")}},
			Content: "Hello {{ name }}",
			Span:    span(50),
		}},
		TestDecls: []ast.TestCase{{
			Name:      "Basic",
			Functions: []ast.TestFunction{{Name: "ExtractResume"}},
			Args:      []ast.Option{{Key: "text", Value: ast.StringValue{Value: "Jane, engineer"}}},
			Span:      span(60),
		}},
		GeneratorDecls: []ast.Generator{{Name: "python", OutputType: "python/pydantic", OutputDir: "../", Version: "0.1.0"}},
	}
}
