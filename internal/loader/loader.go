package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/promptc/internal/ast"
	"github.com/roach88/promptc/internal/ir"
)

// Result contains a schema loaded from a directory.
type Result struct {
	Schema    *ast.Schema
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files found
}

// Load reads every .cue file under dir as one CUE instance and converts it
// into an ast.Schema. Spans are relative to dir. Conversion collects all
// problems and returns them as LoadErrors.
func Load(dir string) (*Result, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing schema directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("resolving %s: %v", dir, err)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: abs})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(ErrCodeLoadFailed, inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(ErrCodeBuildFailed, err)
	}

	schema, err := convert(value, abs)
	if err != nil {
		return nil, err
	}
	return &Result{Schema: schema, CUEValue: value, FileCount: len(cueFiles)}, nil
}

// FromValue converts an already built CUE value. File names in spans are
// kept as CUE reports them.
func FromValue(v cue.Value) (*ast.Schema, error) {
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(ErrCodeBuildFailed, err)
	}
	return convert(v, "")
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func convert(v cue.Value, root string) (*ast.Schema, error) {
	c := &converter{root: root, schema: &ast.Schema{}}
	c.top(v)
	if len(c.errs) > 0 {
		return nil, c.errs
	}
	return c.schema, nil
}

type converter struct {
	root   string
	schema *ast.Schema
	errs   LoadErrors
}

func (c *converter) fail(v cue.Value, code, format string, args ...any) {
	c.errs = append(c.errs, &LoadError{Code: code, Message: fmt.Sprintf(format, args...), Pos: v.Pos()})
}

func (c *converter) span(v cue.Value) ir.Span {
	return c.spanAt(v.Pos())
}

func (c *converter) spanAt(pos token.Pos) ir.Span {
	if !pos.IsValid() {
		return ir.Span{}
	}
	file := pos.Filename()
	if c.root != "" {
		if rel, err := filepath.Rel(c.root, file); err == nil {
			file = rel
		}
	}
	start := ir.Position{Line: pos.Line(), Column: pos.Column()}
	return ir.Span{File: filepath.ToSlash(file), Start: start, End: start}
}

// field is one labeled member of a CUE struct.
type field struct {
	label string
	value cue.Value
}

// fields lists the regular fields of a struct in declaration order.
func (c *converter) fields(v cue.Value, what string) []field {
	if v.Kind() != cue.StructKind {
		c.fail(v, ErrCodeInvalidBlock, "%s must be a struct", what)
		return nil
	}
	iter, err := v.Fields()
	if err != nil {
		c.errs = append(c.errs, formatCUEError(ErrCodeInvalidBlock, err))
		return nil
	}
	var out []field
	for iter.Next() {
		out = append(out, field{label: iter.Label(), value: iter.Value()})
	}
	return out
}

var blockKinds = map[string]func(*converter, field){
	"enum":            (*converter).enum,
	"class":           (*converter).class,
	"function":        (*converter).function,
	"client":          (*converter).client,
	"retry_policy":    (*converter).retryPolicy,
	"template_string": (*converter).templateString,
	"test":            (*converter).test,
	"generator":       (*converter).generator,
}

func (c *converter) top(v cue.Value) {
	for _, kind := range c.fields(v, "schema") {
		build, ok := blockKinds[kind.label]
		if !ok {
			c.fail(kind.value, ErrCodeInvalidBlock, "unknown block kind %q", kind.label)
			continue
		}
		for _, d := range c.fields(kind.value, kind.label) {
			build(c, d)
		}
	}
}

func (c *converter) enum(d field) {
	e := ast.Enum{Name: d.label, Span: c.span(d.value)}
	for _, f := range c.fields(d.value, "enum "+d.label) {
		if f.label != "values" {
			e.Attributes = append(e.Attributes, c.attribute(f)...)
			continue
		}
		if f.value.Kind() == cue.ListKind {
			for _, item := range c.list(f.value) {
				name, ok := c.str(item, "enum value")
				if ok {
					e.Values = append(e.Values, ast.EnumValue{Name: name, Span: c.span(item)})
				}
			}
			continue
		}
		for _, val := range c.fields(f.value, "enum values") {
			ev := ast.EnumValue{Name: val.label, Span: c.span(val.value)}
			for _, a := range c.fields(val.value, "enum value "+val.label) {
				ev.Attributes = append(ev.Attributes, c.attribute(a)...)
			}
			e.Values = append(e.Values, ev)
		}
	}
	c.schema.EnumDecls = append(c.schema.EnumDecls, e)
}

func (c *converter) class(d field) {
	cl := ast.Class{Name: d.label, Span: c.span(d.value)}
	for _, f := range c.fields(d.value, "class "+d.label) {
		switch f.label {
		case "fields":
			for _, fd := range c.fields(f.value, "class fields") {
				if fl, ok := c.classField(fd); ok {
					cl.Fields = append(cl.Fields, fl)
				}
			}
		case "inputs":
			cl.Inputs = c.blockArgs(f.value)
		default:
			cl.Attributes = append(cl.Attributes, c.attribute(f)...)
		}
	}
	c.schema.ClassDecls = append(c.schema.ClassDecls, cl)
}

// classField accepts either the type string or a struct with a type key and
// attributes. assert and check describe the value, so they go on the type.
func (c *converter) classField(fd field) (ast.Field, bool) {
	out := ast.Field{Name: fd.label, Span: c.span(fd.value)}
	if fd.value.Kind() == cue.StringKind {
		t, ok := c.fieldType(fd.value)
		out.Type = t
		return out, ok
	}
	var typeAttrs []ast.Attribute
	found := false
	for _, f := range c.fields(fd.value, "field "+fd.label) {
		switch f.label {
		case "type":
			t, ok := c.fieldType(f.value)
			if !ok {
				return out, false
			}
			out.Type = t
			found = true
		case "assert", "check":
			typeAttrs = append(typeAttrs, c.attribute(f)...)
		default:
			out.Attributes = append(out.Attributes, c.attribute(f)...)
		}
	}
	if !found {
		c.fail(fd.value, ErrCodeInvalidBlock, "field %q has no type", fd.label)
		return out, false
	}
	out.Type = withAttributes(out.Type, typeAttrs)
	return out, true
}

func withAttributes(t ast.FieldType, attrs []ast.Attribute) ast.FieldType {
	if len(attrs) == 0 {
		return t
	}
	switch v := t.(type) {
	case ast.Primitive:
		v.Attributes = append(v.Attributes, attrs...)
		return v
	case ast.Literal:
		v.Attributes = append(v.Attributes, attrs...)
		return v
	case ast.Symbol:
		v.Attributes = append(v.Attributes, attrs...)
		return v
	case ast.List:
		v.Attributes = append(v.Attributes, attrs...)
		return v
	case ast.Map:
		v.Attributes = append(v.Attributes, attrs...)
		return v
	case ast.Union:
		v.Attributes = append(v.Attributes, attrs...)
		return v
	case ast.Tuple:
		v.Attributes = append(v.Attributes, attrs...)
		return v
	default:
		return t
	}
}

func (c *converter) fieldType(v cue.Value) (ast.FieldType, bool) {
	s, ok := c.str(v, "type")
	if !ok {
		return nil, false
	}
	t, err := ParseFieldType(s, c.span(v))
	if err != nil {
		c.fail(v, ErrCodeInvalidType, "%v", err)
		return nil, false
	}
	return t, true
}

func (c *converter) blockArgs(v cue.Value) []ast.BlockArg {
	var args []ast.BlockArg
	for _, f := range c.fields(v, "inputs") {
		arg := ast.BlockArg{Name: f.label, Span: c.span(f.value)}
		tv := f.value
		if tv.Kind() == cue.StructKind {
			tv = tv.LookupPath(cue.MakePath(cue.Str("type")))
			if !tv.Exists() {
				c.fail(f.value, ErrCodeInvalidBlock, "input %q has no type", f.label)
				continue
			}
		}
		t, ok := c.fieldType(tv)
		if !ok {
			continue
		}
		arg.Type = t
		args = append(args, arg)
	}
	return args
}

func (c *converter) function(d field) {
	fn := ast.Function{Name: d.label, Span: c.span(d.value)}
	for _, f := range c.fields(d.value, "function "+d.label) {
		switch f.label {
		case "inputs":
			fn.Inputs = c.blockArgs(f.value)
		case "output":
			if t, ok := c.fieldType(f.value); ok {
				fn.Output = t
			}
		case "client":
			fn.Client, _ = c.str(f.value, "client")
		case "prompt":
			fn.Prompt, _ = c.str(f.value, "prompt")
			fn.PromptSpan = c.span(f.value)
		default:
			fn.Attributes = append(fn.Attributes, c.attribute(f)...)
		}
	}
	c.schema.FunctionDecls = append(c.schema.FunctionDecls, fn)
}

func (c *converter) client(d field) {
	cl := ast.Client{Name: d.label, Span: c.span(d.value)}
	for _, f := range c.fields(d.value, "client "+d.label) {
		switch f.label {
		case "provider":
			cl.Provider, _ = c.str(f.value, "provider")
		case "retry_policy":
			cl.RetryPolicy, _ = c.str(f.value, "retry_policy")
		case "options":
			cl.Options = c.options(f.value)
		default:
			c.fail(f.value, ErrCodeInvalidBlock, "client %s: unknown key %q", d.label, f.label)
		}
	}
	c.schema.ClientDecls = append(c.schema.ClientDecls, cl)
}

func (c *converter) retryPolicy(d field) {
	p := ast.RetryPolicy{Name: d.label, Span: c.span(d.value)}
	for _, f := range c.fields(d.value, "retry_policy "+d.label) {
		switch f.label {
		case "max_retries":
			p.MaxRetries, _ = c.integer(f.value, "max_retries")
		case "strategy":
			p.Strategy = c.strategy(f.value)
		case "options":
			p.Options = c.options(f.value)
		default:
			c.fail(f.value, ErrCodeInvalidBlock, "retry_policy %s: unknown key %q", d.label, f.label)
		}
	}
	c.schema.RetryPolicyDecls = append(c.schema.RetryPolicyDecls, p)
}

func (c *converter) strategy(v cue.Value) ast.RetryStrategy {
	var s ast.RetryStrategy
	for _, f := range c.fields(v, "strategy") {
		switch f.label {
		case "type":
			s.Type, _ = c.str(f.value, "strategy type")
		case "delay_ms":
			s.DelayMs, _ = c.integer(f.value, "delay_ms")
		case "multiplier":
			m, err := f.value.Float64()
			if err != nil {
				c.fail(f.value, ErrCodeInvalidBlock, "multiplier must be a number")
				continue
			}
			s.Multiplier = m
		case "max_delay_ms":
			s.MaxDelayMs, _ = c.integer(f.value, "max_delay_ms")
		default:
			c.fail(f.value, ErrCodeInvalidBlock, "strategy: unknown key %q", f.label)
		}
	}
	return s
}

func (c *converter) templateString(d field) {
	ts := ast.TemplateString{Name: d.label, Span: c.span(d.value)}
	for _, f := range c.fields(d.value, "template_string "+d.label) {
		switch f.label {
		case "inputs":
			ts.Inputs = c.blockArgs(f.value)
		case "content":
			ts.Content, _ = c.str(f.value, "content")
		default:
			c.fail(f.value, ErrCodeInvalidBlock, "template_string %s: unknown key %q", d.label, f.label)
		}
	}
	c.schema.TemplateStringDecls = append(c.schema.TemplateStringDecls, ts)
}

func (c *converter) test(d field) {
	tc := ast.TestCase{Name: d.label, Span: c.span(d.value)}
	for _, f := range c.fields(d.value, "test "+d.label) {
		switch f.label {
		case "functions":
			for _, item := range c.list(f.value) {
				if name, ok := c.str(item, "test function"); ok {
					tc.Functions = append(tc.Functions, ast.TestFunction{Name: name, Span: c.span(item)})
				}
			}
		case "args":
			tc.Args = c.options(f.value)
		default:
			tc.Attributes = append(tc.Attributes, c.attribute(f)...)
		}
	}
	c.schema.TestDecls = append(c.schema.TestDecls, tc)
}

func (c *converter) generator(d field) {
	g := ast.Generator{Name: d.label, Span: c.span(d.value)}
	for _, f := range c.fields(d.value, "generator "+d.label) {
		switch f.label {
		case "output_type":
			g.OutputType, _ = c.str(f.value, "output_type")
		case "output_dir":
			g.OutputDir, _ = c.str(f.value, "output_dir")
		case "version":
			g.Version, _ = c.str(f.value, "version")
		default:
			c.fail(f.value, ErrCodeInvalidBlock, "generator %s: unknown key %q", d.label, f.label)
		}
	}
	c.schema.GeneratorDecls = append(c.schema.GeneratorDecls, g)
}

func (c *converter) options(v cue.Value) []ast.Option {
	var opts []ast.Option
	for _, f := range c.fields(v, "options") {
		if e, ok := c.expr(f.value); ok {
			opts = append(opts, ast.Option{Key: f.label, Value: e, Span: c.span(f.value)})
		}
	}
	return opts
}

// attribute converts one key of a block into attributes. A labeled
// constraint struct yields one attribute per label.
func (c *converter) attribute(f field) []ast.Attribute {
	name := f.label
	if name == "dynamic" {
		name = "dynamic_type"
	}
	sp := c.span(f.value)

	if name == "assert" || name == "check" {
		switch f.value.Kind() {
		case cue.StringKind:
			s, _ := f.value.String()
			return []ast.Attribute{{Name: name, Args: []ast.Expression{c.template(s, f.value)}, Span: sp}}
		case cue.StructKind:
			var out []ast.Attribute
			for _, l := range c.fields(f.value, name) {
				s, ok := c.str(l.value, name+" "+l.label)
				if !ok {
					continue
				}
				out = append(out, ast.Attribute{Name: name, Span: c.span(l.value), Args: []ast.Expression{
					ast.Identifier{Kind: ast.IdentLocal, Name: l.label, Span: c.span(l.value)},
					c.template(s, l.value),
				}})
			}
			return out
		case cue.ListKind:
			return []ast.Attribute{{Name: name, Args: c.constraintArgs(f.value), Span: sp}}
		}
	}

	if f.value.Kind() == cue.ListKind {
		var args []ast.Expression
		for _, item := range c.list(f.value) {
			if e, ok := c.expr(item); ok {
				args = append(args, e)
			}
		}
		return []ast.Attribute{{Name: name, Args: args, Span: sp}}
	}
	e, ok := c.expr(f.value)
	if !ok {
		return nil
	}
	return []ast.Attribute{{Name: name, Args: []ast.Expression{e}, Span: sp}}
}

// constraintArgs reads the explicit list form. [label, expr] with a bare
// label is labeled; every other item is a template expression.
func (c *converter) constraintArgs(v cue.Value) []ast.Expression {
	items := c.list(v)
	strs := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := c.str(item, "constraint")
		if !ok {
			return nil
		}
		strs = append(strs, s)
	}
	if len(strs) == 2 && isLabel(strs[0]) {
		return []ast.Expression{
			ast.Identifier{Kind: ast.IdentLocal, Name: strs[0], Span: c.span(items[0])},
			c.template(strs[1], items[1]),
		}
	}
	args := make([]ast.Expression, len(strs))
	for i, s := range strs {
		args[i] = c.template(s, items[i])
	}
	return args
}

func isLabel(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func (c *converter) template(s string, v cue.Value) ast.TemplateValue {
	if inner, ok := templateBody(s); ok {
		s = inner
	}
	return ast.TemplateValue{Value: strings.TrimSpace(s), Span: c.span(v)}
}

// templateBody returns the text between {{ and }} when s is exactly one
// template expression.
func templateBody(s string) (string, bool) {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "{{") || !strings.HasSuffix(t, "}}") || len(t) < 4 {
		return "", false
	}
	inner := t[2 : len(t)-2]
	if strings.Contains(inner, "{{") || strings.Contains(inner, "}}") {
		return "", false
	}
	return strings.TrimSpace(inner), true
}

// expr converts a concrete CUE value into an expression.
func (c *converter) expr(v cue.Value) (ast.Expression, bool) {
	sp := c.span(v)
	switch v.Kind() {
	case cue.BoolKind:
		b, _ := v.Bool()
		return ast.BoolValue{Value: b, Span: sp}, true
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			c.errs = append(c.errs, formatCUEError(ErrCodeInvalidBlock, err))
			return nil, false
		}
		return ast.NumericValue{Value: strconv.FormatInt(n, 10), Span: sp}, true
	case cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			c.errs = append(c.errs, formatCUEError(ErrCodeInvalidBlock, err))
			return nil, false
		}
		return ast.NumericValue{Value: strconv.FormatFloat(f, 'f', -1, 64), Span: sp}, true
	case cue.StringKind:
		s, _ := v.String()
		if inner, ok := templateBody(s); ok {
			return ast.TemplateValue{Value: inner, Span: sp}, true
		}
		if name, ok := strings.CutPrefix(s, "env."); ok && isLabel(name) {
			return ast.Identifier{Kind: ast.IdentEnv, Name: name, Span: sp}, true
		}
		return ast.StringValue{Value: s, Span: sp}, true
	case cue.NullKind:
		return ast.Identifier{Kind: ast.IdentInvalid, Name: "null", Span: sp}, true
	case cue.ListKind:
		arr := ast.Array{Span: sp}
		for _, item := range c.list(v) {
			e, ok := c.expr(item)
			if !ok {
				return nil, false
			}
			arr.Items = append(arr.Items, e)
		}
		return arr, true
	case cue.StructKind:
		fs := c.fields(v, "value")
		if len(fs) == 1 && fs[0].label == "raw" {
			s, ok := c.str(fs[0].value, "raw")
			if !ok {
				return nil, false
			}
			return ast.RawStringValue{Value: s, Span: sp}, true
		}
		m := ast.MapValue{Span: sp}
		for _, f := range fs {
			e, ok := c.expr(f.value)
			if !ok {
				return nil, false
			}
			m.Entries = append(m.Entries, ast.MapEntry{Key: f.label, Value: e})
		}
		return m, true
	default:
		c.fail(v, ErrCodeInvalidBlock, "value must be concrete")
		return nil, false
	}
}

func (c *converter) list(v cue.Value) []cue.Value {
	iter, err := v.List()
	if err != nil {
		c.fail(v, ErrCodeInvalidBlock, "expected a list")
		return nil
	}
	var out []cue.Value
	for iter.Next() {
		out = append(out, iter.Value())
	}
	return out
}

func (c *converter) str(v cue.Value, what string) (string, bool) {
	s, err := v.String()
	if err != nil {
		c.fail(v, ErrCodeInvalidBlock, "%s must be a string", what)
		return "", false
	}
	return s, true
}

func (c *converter) integer(v cue.Value, what string) (int, bool) {
	n, err := v.Int64()
	if err != nil {
		c.fail(v, ErrCodeInvalidBlock, "%s must be an integer", what)
		return 0, false
	}
	return int(n), true
}
