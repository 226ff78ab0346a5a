package jinja

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	// exprLexer tokenizes a single expression. Keyword precedes Ident so
	// operators spelled as words never lex as identifiers.
	exprLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `\s+`},
		{Name: "Float", Pattern: `\d+\.\d+(?:[eE][-+]?\d+)?`},
		{Name: "Int", Pattern: `\d+`},
		{Name: "String", Pattern: `"(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])*'`},
		{Name: "Keyword", Pattern: `\b(?:and|or|not|in|is|if|else)\b`},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
		{Name: "Operator", Pattern: `\*\*|//|==|!=|<=|>=|[-+*/%~<>=|.,:()\[\]{}]`},
	})

	exprParser = participle.MustBuild[ifExpr](
		participle.Lexer(exprLexer),
		participle.Elide("Whitespace"),
		participle.UseLookahead(3),
	)
)

// Grammar, loosest binding first:
//
//	ifExpr  := or ('if' or ('else' ifExpr)?)?
//	or      := and ('or' and)*
//	and     := not ('and' not)*
//	not     := 'not' not | compare
//	compare := sum (cmpOp sum)*
//	sum     := concat (('+' | '-') concat)*
//	concat  := product ('~' product)*
//	product := unary (('*' | '/' | '//' | '%') unary)*
//	unary   := ('-' | '+') unary | power
//	power   := postfix ('**' unary)?
//	postfix := primary suffix*

type ifExpr struct {
	Pos  lexer.Position
	Then *orExpr `parser:"@@"`
	Test *orExpr `parser:"( 'if' @@"`
	Else *ifExpr `parser:"  ( 'else' @@ )? )?"`
}

type orExpr struct {
	Pos   lexer.Position
	Left  *andExpr   `parser:"@@"`
	Right []*andExpr `parser:"( 'or' @@ )*"`
}

type andExpr struct {
	Pos   lexer.Position
	Left  *notExpr   `parser:"@@"`
	Right []*notExpr `parser:"( 'and' @@ )*"`
}

type notExpr struct {
	Pos     lexer.Position
	Not     *notExpr     `parser:"  'not' @@"`
	Compare *compareExpr `parser:"| @@"`
}

type compareExpr struct {
	Pos  lexer.Position
	Left *sumExpr     `parser:"@@"`
	Ops  []*compareOp `parser:"@@*"`
}

type compareOp struct {
	Pos   lexer.Position
	Op    string   `parser:"( @( '==' | '!=' | '<=' | '>=' | '<' | '>' | 'in' ) | @( 'not' 'in' ) )"`
	Right *sumExpr `parser:"@@"`
}

type sumExpr struct {
	Pos  lexer.Position
	Left *concatExpr `parser:"@@"`
	Ops  []*sumOp    `parser:"@@*"`
}

type sumOp struct {
	Pos   lexer.Position
	Op    string      `parser:"@( '+' | '-' )"`
	Right *concatExpr `parser:"@@"`
}

type concatExpr struct {
	Pos   lexer.Position
	Left  *productExpr   `parser:"@@"`
	Right []*productExpr `parser:"( '~' @@ )*"`
}

type productExpr struct {
	Pos  lexer.Position
	Left *unaryExpr   `parser:"@@"`
	Ops  []*productOp `parser:"@@*"`
}

type productOp struct {
	Pos   lexer.Position
	Op    string     `parser:"@( '*' | '//' | '/' | '%' )"`
	Right *unaryExpr `parser:"@@"`
}

type unaryExpr struct {
	Pos   lexer.Position
	Op    string     `parser:"  ( @( '-' | '+' )"`
	Unary *unaryExpr `parser:"    @@ )"`
	Power *powerExpr `parser:"| @@"`
}

type powerExpr struct {
	Pos      lexer.Position
	Base     *postfixExpr `parser:"@@"`
	Exponent *unaryExpr   `parser:"( '**' @@ )?"`
}

type postfixExpr struct {
	Pos      lexer.Position
	Primary  *primaryExpr `parser:"@@"`
	Suffixes []*suffix    `parser:"@@*"`
}

type suffix struct {
	Pos      lexer.Position
	Attr     string        `parser:"  '.' @Ident"`
	Index    *ifExpr       `parser:"| '[' @@ ']'"`
	CallOpen bool          `parser:"| ( @'('"`
	Args     []*argument   `parser:"    ( @@ ( ',' @@ )* ','? )? ')' )"`
	Filter   *filterSuffix `parser:"| '|' @@"`
	Test     *testSuffix   `parser:"| 'is' @@"`
}

type filterSuffix struct {
	Name     string      `parser:"@Ident"`
	CallOpen bool        `parser:"( @'('"`
	Args     []*argument `parser:"  ( @@ ( ',' @@ )* ','? )? ')' )?"`
}

type testSuffix struct {
	Not      bool        `parser:"@'not'?"`
	Name     string      `parser:"@Ident"`
	CallOpen bool        `parser:"( @'('"`
	Args     []*argument `parser:"  ( @@ ( ',' @@ )* ','? )? ')' )?"`
}

type argument struct {
	Pos   lexer.Position
	Name  string  `parser:"( @Ident '=' )?"`
	Value *ifExpr `parser:"@@"`
}

type primaryExpr struct {
	Pos       lexer.Position
	Float     *float64     `parser:"  @Float"`
	Int       *int64       `parser:"| @Int"`
	Str       []string     `parser:"| @String+"`
	True      bool         `parser:"| @( 'true' | 'True' )"`
	False     bool         `parser:"| @( 'false' | 'False' )"`
	None      bool         `parser:"| @( 'none' | 'None' )"`
	Ident     string       `parser:"| @Ident"`
	ListOpen  bool         `parser:"| ( @'['"`
	List      []*ifExpr    `parser:"    ( @@ ( ',' @@ )* ','? )? ']' )"`
	DictOpen  bool         `parser:"| ( @'{'"`
	Dict      []*dictEntry `parser:"    ( @@ ( ',' @@ )* ','? )? '}' )"`
	ParenOpen bool         `parser:"| ( @'('"`
	Paren     []*ifExpr    `parser:"    ( @@ ( ',' @@ )* )?"`
	Trailing  bool         `parser:"    @','? ')' )"`
}

type dictEntry struct {
	Key   *ifExpr `parser:"@@ ':'"`
	Value *ifExpr `parser:"@@"`
}
