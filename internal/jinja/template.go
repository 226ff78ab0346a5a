package jinja

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Node is one element of a parsed template body.
type Node interface {
	Pos() Position
	isNode()
}

// Text is literal template output.
type Text struct {
	node
	Value string
}

// Output is {{ expr }}.
type Output struct {
	node
	Expr Expr
}

// Branch is one condition and body of an If.
type Branch struct {
	Cond Expr
	Body []Node
}

// If is {% if %}...{% elif %}...{% else %}...{% endif %}.
type If struct {
	node
	Branches []Branch
	Else     []Node
}

// For is {% for targets in iter [if filter] %}...{% else %}...{% endfor %}.
type For struct {
	node
	Targets []string
	Iter    Expr
	Filter  Expr
	Body    []Node
	Else    []Node
}

// Set is {% set targets = value %}.
type Set struct {
	node
	Targets []string
	Value   Expr
}

func (Text) isNode()   {}
func (Output) isNode() {}
func (If) isNode()     {}
func (For) isNode()    {}
func (Set) isNode()    {}

// Template is a parsed template.
type Template struct {
	Nodes []Node
}

// Exprs returns every expression in t in source order, including those in
// nested bodies.
func (t *Template) Exprs() []Expr {
	var out []Expr
	var walk func([]Node)
	walk = func(nodes []Node) {
		for _, n := range nodes {
			switch n := n.(type) {
			case Output:
				out = append(out, n.Expr)
			case If:
				for _, b := range n.Branches {
					out = append(out, b.Cond)
					walk(b.Body)
				}
				walk(n.Else)
			case For:
				out = append(out, n.Iter)
				if n.Filter != nil {
					out = append(out, n.Filter)
				}
				walk(n.Body)
				walk(n.Else)
			case Set:
				out = append(out, n.Value)
			}
		}
	}
	walk(t.Nodes)
	return out
}

type tokenKind int

const (
	tokText tokenKind = iota
	tokOutput
	tokStmt
)

type token struct {
	kind    tokenKind
	content string
	pos     Position // of the first content byte
	tagPos  Position // of the opening delimiter
}

// ParseTemplate splits src into text, {{ }} output and {% %} statements
// and parses each expression. {# #} comments are dropped. A '-' just
// inside a delimiter trims the whitespace on that side.
func ParseTemplate(src string) (*Template, error) {
	toks, err := scan(src)
	if err != nil {
		return nil, err
	}
	p := &templateParser{toks: toks}
	nodes, end, err := p.body()
	if err != nil {
		return nil, err
	}
	if end != nil {
		return nil, &SyntaxError{Pos: end.tagPos, Message: fmt.Sprintf("unexpected {%% %s %%}", keyword(end.content))}
	}
	return &Template{Nodes: nodes}, nil
}

type lineIndex []int

func newLineIndex(src string) lineIndex {
	idx := lineIndex{0}
	for i := range len(src) {
		if src[i] == '\n' {
			idx = append(idx, i+1)
		}
	}
	return idx
}

func (l lineIndex) position(offset int) Position {
	line, found := slices.BinarySearch(l, offset)
	if !found {
		line--
	}
	return Position{Line: line + 1, Column: offset - l[line] + 1}
}

func scan(src string) ([]token, error) {
	lines := newLineIndex(src)
	var toks []token
	trimNext := false
	pos := 0
	for pos < len(src) {
		start, open := nextDelimiter(src, pos)
		if start < 0 {
			toks = appendText(toks, src[pos:], lines.position(pos), trimNext, false)
			break
		}
		inner := start + 2
		trimPrev := inner < len(src) && src[inner] == '-'
		if trimPrev || (inner < len(src) && src[inner] == '+') {
			inner++
		}
		toks = appendText(toks, src[pos:start], lines.position(pos), trimNext, trimPrev)

		closeDelim := map[string]string{"{{": "}}", "{%": "%}", "{#": "#}"}[open]
		end := findClose(src, inner, closeDelim, open != "{#")
		if end < 0 {
			return nil, &SyntaxError{Pos: lines.position(start), Message: fmt.Sprintf("unclosed %s", open)}
		}
		content := src[inner:end]
		trimNext = strings.HasSuffix(content, "-")
		if trimNext || strings.HasSuffix(content, "+") {
			content = content[:len(content)-1]
		}
		pos = end + 2

		switch open {
		case "{{":
			toks = append(toks, token{kind: tokOutput, content: content, pos: lines.position(inner), tagPos: lines.position(start)})
		case "{%":
			if keyword(content) == "raw" {
				rawEnd := rawBlockEnd(src, pos)
				if rawEnd < 0 {
					return nil, &SyntaxError{Pos: lines.position(start), Message: "unclosed {% raw %}"}
				}
				toks = append(toks, token{kind: tokText, content: src[pos:rawEnd.start], pos: lines.position(pos)})
				pos = rawEnd.end
				trimNext = rawEnd.trim
				continue
			}
			toks = append(toks, token{kind: tokStmt, content: content, pos: lines.position(inner), tagPos: lines.position(start)})
		}
	}
	return toks, nil
}

func appendText(toks []token, text string, at Position, trimLeft, trimRight bool) []token {
	if trimLeft {
		trimmed := strings.TrimLeft(text, " \t\r\n")
		at = advance(at, text[:len(text)-len(trimmed)])
		text = trimmed
	}
	if trimRight {
		text = strings.TrimRight(text, " \t\r\n")
	}
	if text == "" {
		return toks
	}
	return append(toks, token{kind: tokText, content: text, pos: at})
}

// advance moves at past skipped.
func advance(at Position, skipped string) Position {
	for _, r := range skipped {
		if r == '\n' {
			at.Line++
			at.Column = 1
		} else {
			at.Column++
		}
	}
	return at
}

func nextDelimiter(src string, from int) (int, string) {
	best, kind := -1, ""
	for _, open := range []string{"{{", "{%", "{#"} {
		if i := strings.Index(src[from:], open); i >= 0 && (best < 0 || from+i < best) {
			best, kind = from+i, open
		}
	}
	return best, kind
}

// findClose returns the offset of closeDelim at or after from. When quoted
// is set, delimiters inside string literals are skipped.
func findClose(src string, from int, closeDelim string, quoted bool) int {
	var quote byte
	for i := from; i < len(src)-1; i++ {
		ch := src[i]
		switch {
		case quote != 0 && ch == '\\':
			i++
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case quoted && (ch == '"' || ch == '\''):
			quote = ch
		case src[i:i+2] == closeDelim:
			return i
		}
	}
	return -1
}

var endRawPattern = regexp.MustCompile(`\{%([-+]?)\s*endraw\s*([-+]?)%\}`)

type rawEnd struct {
	start, end int
	trim       bool
}

func rawBlockEnd(src string, from int) *rawEnd {
	loc := endRawPattern.FindStringSubmatchIndex(src[from:])
	if loc == nil {
		return nil
	}
	return &rawEnd{
		start: from + loc[0],
		end:   from + loc[1],
		trim:  src[from+loc[4]:from+loc[5]] == "-",
	}
}

// keyword returns the first word of a statement.
func keyword(content string) string {
	fields := strings.Fields(content)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

var (
	forPattern = regexp.MustCompile(`^for\s+([A-Za-z_][A-Za-z0-9_]*(?:\s*,\s*[A-Za-z_][A-Za-z0-9_]*)*)\s+in\s`)
	setPattern = regexp.MustCompile(`^set\s+([A-Za-z_][A-Za-z0-9_]*(?:\s*,\s*[A-Za-z_][A-Za-z0-9_]*)*)\s*=[^=]`)
)

type templateParser struct {
	toks []token
	pos  int
}

// body parses nodes until a statement it does not own, which it returns
// unconsumed (nil at end of input).
func (p *templateParser) body() ([]Node, *token, error) {
	var nodes []Node
	for p.pos < len(p.toks) {
		tok := p.toks[p.pos]
		switch tok.kind {
		case tokText:
			nodes = append(nodes, Text{node: node{At: tok.pos}, Value: tok.content})
			p.pos++
		case tokOutput:
			e, err := parseExprAt(tok.content, tok.pos)
			if err != nil {
				return nil, nil, err
			}
			nodes = append(nodes, Output{node: node{At: tok.tagPos}, Expr: e})
			p.pos++
		case tokStmt:
			n, err := p.statement(tok)
			if err != nil {
				return nil, nil, err
			}
			if n == nil {
				return nodes, &p.toks[p.pos], nil
			}
			nodes = append(nodes, n)
		}
	}
	return nodes, nil, nil
}

// statement parses an opening statement and its body. It returns nil for
// closing and continuation tags, leaving them for the enclosing body.
func (p *templateParser) statement(tok token) (Node, error) {
	trimmed, at := trimLeading(tok.content, tok.pos)
	switch keyword(trimmed) {
	case "if":
		p.pos++
		return p.ifStatement(tok, trimmed, at)
	case "for":
		p.pos++
		return p.forStatement(tok, trimmed, at)
	case "set":
		p.pos++
		return setStatement(tok, trimmed, at)
	case "break", "continue":
		p.pos++
		return Text{node: node{At: tok.tagPos}}, nil
	case "elif", "else", "endif", "endfor":
		return nil, nil
	case "":
		return nil, &SyntaxError{Pos: tok.tagPos, Message: "empty statement"}
	default:
		return nil, &SyntaxError{Pos: tok.tagPos, Message: fmt.Sprintf("unsupported statement %q", keyword(trimmed))}
	}
}

func trimLeading(content string, at Position) (string, Position) {
	trimmed := strings.TrimLeft(content, " \t\r\n")
	return strings.TrimRight(trimmed, " \t\r\n"), advance(at, content[:len(content)-len(trimmed)])
}

// exprAfter parses the expression that follows the first n bytes of a
// statement starting at at.
func exprAfter(stmt string, n int, at Position) (Expr, error) {
	return parseExprAt(stmt[n:], advance(at, stmt[:n]))
}

func (p *templateParser) ifStatement(open token, stmt string, at Position) (Node, error) {
	cond, err := exprAfter(stmt, len("if"), at)
	if err != nil {
		return nil, err
	}
	out := If{node: node{At: open.tagPos}}
	for {
		body, end, err := p.body()
		if err != nil {
			return nil, err
		}
		out.Branches = append(out.Branches, Branch{Cond: cond, Body: body})
		if end == nil {
			return nil, &SyntaxError{Pos: open.tagPos, Message: "unclosed {% if %}"}
		}
		endStmt, endAt := trimLeading(end.content, end.pos)
		p.pos++
		switch keyword(endStmt) {
		case "elif":
			if cond, err = exprAfter(endStmt, len("elif"), endAt); err != nil {
				return nil, err
			}
		case "else":
			out.Else, err = p.closeWith(open, "endif")
			return out, err
		case "endif":
			return out, nil
		default:
			return nil, &SyntaxError{Pos: end.tagPos, Message: fmt.Sprintf("unexpected {%% %s %%} inside {%% if %%}", keyword(endStmt))}
		}
	}
}

func (p *templateParser) forStatement(open token, stmt string, at Position) (Node, error) {
	m := forPattern.FindStringSubmatchIndex(stmt)
	if m == nil {
		return nil, &SyntaxError{Pos: open.tagPos, Message: "expected {% for name in expr %}"}
	}
	iter, err := exprAfter(stmt, m[1], at)
	if err != nil {
		return nil, err
	}
	out := For{node: node{At: open.tagPos}, Targets: splitTargets(stmt[m[2]:m[3]]), Iter: iter}
	// A trailing "if" without "else" filters the loop.
	if c, ok := iter.(Cond); ok && c.Else == nil {
		out.Iter, out.Filter = c.Then, c.Test
	}

	body, end, err := p.body()
	if err != nil {
		return nil, err
	}
	out.Body = body
	if end == nil {
		return nil, &SyntaxError{Pos: open.tagPos, Message: "unclosed {% for %}"}
	}
	endStmt, _ := trimLeading(end.content, end.pos)
	p.pos++
	switch keyword(endStmt) {
	case "else":
		out.Else, err = p.closeWith(open, "endfor")
		return out, err
	case "endfor":
		return out, nil
	default:
		return nil, &SyntaxError{Pos: end.tagPos, Message: fmt.Sprintf("unexpected {%% %s %%} inside {%% for %%}", keyword(endStmt))}
	}
}

// closeWith parses an else body that must end with the closing tag.
func (p *templateParser) closeWith(open token, closing string) ([]Node, error) {
	body, end, err := p.body()
	if err != nil {
		return nil, err
	}
	if end == nil {
		return nil, &SyntaxError{Pos: open.tagPos, Message: fmt.Sprintf("missing {%% %s %%}", closing)}
	}
	if k := keyword(end.content); k != closing {
		return nil, &SyntaxError{Pos: end.tagPos, Message: fmt.Sprintf("expected {%% %s %%}, got {%% %s %%}", closing, k)}
	}
	p.pos++
	return body, nil
}

func setStatement(open token, stmt string, at Position) (Node, error) {
	m := setPattern.FindStringSubmatchIndex(stmt)
	if m == nil {
		return nil, &SyntaxError{Pos: open.tagPos, Message: "expected {% set name = expr %}"}
	}
	value, err := exprAfter(stmt, m[1]-1, at)
	if err != nil {
		return nil, err
	}
	return Set{node: node{At: open.tagPos}, Targets: splitTargets(stmt[m[2]:m[3]]), Value: value}, nil
}

func splitTargets(s string) []string {
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
