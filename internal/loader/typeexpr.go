package loader

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/roach88/promptc/internal/ast"
	"github.com/roach88/promptc/internal/ir"
)

var (
	typeLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `\s+`},
		{Name: "String", Pattern: `"(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])*'`},
		{Name: "Int", Pattern: `-?\d+`},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
		{Name: "Brackets", Pattern: `\[\s*\]`},
		{Name: "Punct", Pattern: `[|?<>,()]`},
	})

	typeParser = participle.MustBuild[unionType](
		participle.Lexer(typeLexer),
		participle.Elide("Whitespace"),
		participle.UseLookahead(2),
	)
)

// Grammar:
//
//	union   := postfix ('|' postfix)*
//	postfix := primary ('[]' | '?')*
//	primary := 'map' '<' union ',' union '>'
//	         | String | Int | Ident
//	         | '(' union (',' union)* ')'

type unionType struct {
	Members []*postfixType `parser:"@@ ( '|' @@ )*"`
}

type postfixType struct {
	Pos      lexer.Position
	Base     *primaryType `parser:"@@"`
	Suffixes []string     `parser:"( @Brackets | @'?' )*"`
}

type primaryType struct {
	Pos   lexer.Position
	Map   *mapType     `parser:"  @@"`
	Str   *string      `parser:"| @String"`
	Int   *int64       `parser:"| @Int"`
	Ident *string      `parser:"| @Ident"`
	Group []*unionType `parser:"| '(' @@ ( ',' @@ )* ')'"`
}

type mapType struct {
	Key   *unionType `parser:"'map' '<' @@"`
	Value *unionType `parser:"',' @@ '>'"`
}

// TypeSyntaxError reports a field type string that does not parse.
type TypeSyntaxError struct {
	Source string
	Column int
	Reason string
}

func (e *TypeSyntaxError) Error() string {
	return fmt.Sprintf("invalid type %q at column %d: %s", e.Source, e.Column, e.Reason)
}

// ParseFieldType parses a declared type such as "string[]?",
// "map<string, Job>" or `"draft" | "final"`. Every node gets span.
func ParseFieldType(src string, span ir.Span) (ast.FieldType, error) {
	if strings.TrimSpace(src) == "" {
		return nil, &TypeSyntaxError{Source: src, Column: 1, Reason: "empty type"}
	}
	tree, err := typeParser.ParseString("", src)
	if err != nil {
		var perr participle.Error
		if errors.As(err, &perr) {
			return nil, &TypeSyntaxError{Source: src, Column: perr.Position().Column, Reason: perr.Message()}
		}
		return nil, &TypeSyntaxError{Source: src, Column: 1, Reason: err.Error()}
	}
	b := typeBuilder{src: src, span: span}
	return b.union(tree)
}

type typeBuilder struct {
	src  string
	span ir.Span
}

func (b typeBuilder) meta() ast.Meta { return ast.Meta{Span: b.span} }

func (b typeBuilder) union(u *unionType) (ast.FieldType, error) {
	members := make([]ast.FieldType, 0, len(u.Members))
	for _, m := range u.Members {
		t, err := b.postfix(m)
		if err != nil {
			return nil, err
		}
		members = append(members, t)
	}
	if len(members) == 1 {
		return members[0], nil
	}
	return ast.Union{Meta: b.meta(), Members: members}, nil
}

// postfix applies suffixes left to right: consecutive [] add dimensions to
// one list, and ? marks whatever has been built so far optional.
func (b typeBuilder) postfix(p *postfixType) (ast.FieldType, error) {
	t, err := b.primary(p.Base)
	if err != nil {
		return nil, err
	}
	prev := ""
	for _, s := range p.Suffixes {
		if s != "?" {
			s = "[]"
		}
		switch l, isList := t.(ast.List); {
		case s == "?" && prev == "?":
			return nil, &TypeSyntaxError{Source: b.src, Column: p.Pos.Column, Reason: "repeated '?'"}
		case s == "?":
			t = ast.WithArity(t, ast.Optional)
		case isList && prev == "[]":
			l.Dims++
			t = l
		default:
			t = ast.List{Meta: b.meta(), Elem: t, Dims: 1}
		}
		prev = s
	}
	return t, nil
}

func (b typeBuilder) primary(p *primaryType) (ast.FieldType, error) {
	switch {
	case p.Map != nil:
		key, err := b.union(p.Map.Key)
		if err != nil {
			return nil, err
		}
		value, err := b.union(p.Map.Value)
		if err != nil {
			return nil, err
		}
		return ast.Map{Meta: b.meta(), Key: key, Value: value}, nil
	case p.Str != nil:
		s, err := unquote(*p.Str)
		if err != nil {
			return nil, &TypeSyntaxError{Source: b.src, Column: p.Pos.Column, Reason: err.Error()}
		}
		return ast.Literal{Meta: b.meta(), Value: ir.StringLiteral(s)}, nil
	case p.Int != nil:
		return ast.Literal{Meta: b.meta(), Value: ir.IntLiteral(*p.Int)}, nil
	case p.Ident != nil:
		switch name := *p.Ident; name {
		case "true", "false":
			return ast.Literal{Meta: b.meta(), Value: ir.BoolLiteral(name == "true")}, nil
		default:
			if kind, ok := ir.LookupPrimitive(name); ok {
				return ast.Primitive{Meta: b.meta(), Kind: kind}, nil
			}
			return ast.Symbol{Meta: b.meta(), Name: name}, nil
		}
	default:
		members := make([]ast.FieldType, 0, len(p.Group))
		for _, g := range p.Group {
			t, err := b.union(g)
			if err != nil {
				return nil, err
			}
			members = append(members, t)
		}
		if len(members) == 1 {
			return members[0], nil
		}
		return ast.Tuple{Meta: b.meta(), Members: members}, nil
	}
}

// unquote accepts both quote styles.
func unquote(s string) (string, error) {
	if strings.HasPrefix(s, "'") {
		inner := s[1 : len(s)-1]
		inner = strings.ReplaceAll(inner, `\'`, `'`)
		inner = strings.ReplaceAll(inner, `"`, `\"`)
		s = `"` + inner + `"`
	}
	return strconv.Unquote(s)
}
