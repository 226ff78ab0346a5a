package compiler

import (
	"fmt"
	"log/slog"

	"github.com/roach88/promptc/internal/ast"
	"github.com/roach88/promptc/internal/ir"
)

// Default retry strategy parameters.
const (
	defaultDelayMs    = 200
	defaultMultiplier = 1.5
	defaultMaxDelayMs = 10000
)

type options struct {
	log *slog.Logger
}

// Option configures Assemble and Compile.
type Option func(*options)

// WithLogger sets the logger used for non-fatal attribute warnings.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}

func newOptions(opts []Option) options {
	o := options{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Compile validates db and, if it is clean, assembles it. Validation
// failures are returned together as ValidationErrors.
func Compile(db ast.Database, opts ...Option) (*ir.IntermediateRepr, error) {
	if errs := Validate(db); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return Assemble(db, opts...)
}

// Assemble lowers every block of db into one IntermediateRepr.
//
// All class and enum names are declared before any field type is lowered.
// The first structural error aborts assembly. Collections are sorted by
// name, then cycles are computed over the sorted classes.
func Assemble(db ast.Database, opts ...Option) (*ir.IntermediateRepr, error) {
	o := newOptions(opts)
	a := &assembler{
		db:       db,
		log:      o.log,
		resolver: NewResolverFromDatabase(db, o.log),
	}

	var c ir.Contents
	for e := range db.Enums() {
		c.Enums = append(c.Enums, a.lowerEnum(e))
	}
	for cls := range db.Classes() {
		node, err := a.lowerClass(cls)
		if err != nil {
			return nil, withEntity(err, cls.Name)
		}
		c.Classes = append(c.Classes, node)
	}
	for f := range db.Functions() {
		node, err := a.lowerFunction(f)
		if err != nil {
			return nil, withEntity(err, f.Name)
		}
		c.Functions = append(c.Functions, node)
	}
	for cl := range db.Clients() {
		node, err := a.lowerClient(cl)
		if err != nil {
			return nil, withEntity(err, cl.Name)
		}
		c.Clients = append(c.Clients, node)
	}
	for p := range db.RetryPolicies() {
		node, err := a.lowerRetryPolicy(p)
		if err != nil {
			return nil, withEntity(err, p.Name)
		}
		c.RetryPolicies = append(c.RetryPolicies, node)
	}
	for ts := range db.TemplateStrings() {
		c.TemplateStrings = append(c.TemplateStrings, a.lowerTemplateString(ts))
	}
	for g := range db.Generators() {
		c.Configuration.Generators = append(c.Configuration.Generators, ir.Generator{
			Name:       g.Name,
			OutputType: g.OutputType,
			OutputDir:  g.OutputDir,
			Version:    g.Version,
		})
	}

	ir.SortByName(c.Classes)
	c.FiniteRecursiveCycles = FindCycles(c.Classes)

	return ir.New(c), nil
}

type assembler struct {
	db       ast.Database
	log      *slog.Logger
	resolver *Resolver
}

func (a *assembler) attributes(attrs []ast.Attribute, span ir.Span) ir.NodeAttributes {
	out := ExtractAttributes(attrs, a.log)
	out.Span = span
	return out
}

func (a *assembler) lowerEnum(e *ast.Enum) ir.Node[ir.Enum] {
	values := make([]ir.Node[ir.EnumValue], 0, len(e.Values))
	for _, v := range e.Values {
		values = append(values, ir.NewNode(ir.EnumValue(v.Name), a.attributes(v.Attributes, v.Span)))
	}
	return ir.NewNode(ir.Enum{Name: e.Name, Values: values}, a.attributes(e.Attributes, e.Span))
}

func (a *assembler) lowerType(t ast.FieldType) (ir.Node[ir.Type], error) {
	lowered, err := Lower(t, a.resolver, a.log)
	if err != nil {
		return ir.Node[ir.Type]{}, err
	}
	meta := t.TypeMeta()
	return ir.NewNode(lowered, a.attributes(meta.Attributes, meta.Span)), nil
}

func (a *assembler) lowerArgs(args []ast.BlockArg) ([]ir.NamedType, error) {
	out := make([]ir.NamedType, 0, len(args))
	for _, arg := range args {
		if arg.Name == "" || arg.Type == nil {
			return nil, compileErrorf(ErrCodeInvalidBlockArg, arg.Span, "",
				"block argument %q must have a name and a type", arg.Name)
		}
		t, err := Lower(arg.Type, a.resolver, a.log)
		if err != nil {
			return nil, err
		}
		out = append(out, ir.NamedType{Name: arg.Name, Type: t})
	}
	return out, nil
}

func (a *assembler) lowerClass(c *ast.Class) (ir.Node[ir.Class], error) {
	fields := make([]ir.Node[ir.Field], 0, len(c.Fields))
	for _, f := range c.Fields {
		if f.Type == nil {
			return ir.Node[ir.Class]{}, compileErrorf(ErrCodeInvalidBlockArg, f.Span, "",
				"field %q has no type", f.Name)
		}
		t, err := a.lowerType(f.Type)
		if err != nil {
			return ir.Node[ir.Class]{}, err
		}
		fields = append(fields, ir.NewNode(ir.Field{Name: f.Name, Type: t}, a.attributes(f.Attributes, f.Span)))
	}
	inputs, err := a.lowerArgs(c.Inputs)
	if err != nil {
		return ir.Node[ir.Class]{}, err
	}
	return ir.NewNode(ir.Class{
		Name:         c.Name,
		StaticFields: fields,
		Inputs:       inputs,
	}, a.attributes(c.Attributes, c.Span)), nil
}

func (a *assembler) lowerFunction(f *ast.Function) (ir.Node[ir.Function], error) {
	if f.Output == nil {
		return ir.Node[ir.Function]{}, compileErrorf(ErrCodeMalformedFunction, f.Span, f.Name,
			"function has no return type")
	}
	inputs, err := a.lowerArgs(f.Inputs)
	if err != nil {
		return ir.Node[ir.Function]{}, err
	}
	output, err := Lower(f.Output, a.resolver, a.log)
	if err != nil {
		return ir.Node[ir.Function]{}, err
	}
	client, err := ir.ParseClientSpec(f.Client)
	if err != nil {
		return ir.Node[ir.Function]{}, compileErrorf(ErrCodeInvalidClientSpec, f.Span, f.Name, "%v", err)
	}
	tests, err := a.testsFor(f.Name)
	if err != nil {
		return ir.Node[ir.Function]{}, err
	}
	return ir.NewNode(ir.Function{
		Name:   f.Name,
		Inputs: inputs,
		Output: output,
		Configs: []ir.FunctionConfig{{
			Name:           ir.DefaultConfigName,
			PromptTemplate: f.Prompt,
			PromptSpan:     f.PromptSpan,
			Client:         client,
		}},
		DefaultConfig: ir.DefaultConfigName,
		Tests:         tests,
	}, a.attributes(f.Attributes, f.Span)), nil
}

// testsFor returns the test cases that list function, in declaration order.
func (a *assembler) testsFor(function string) ([]ir.Node[ir.TestCase], error) {
	tests := []ir.Node[ir.TestCase]{}
	for tc := range a.db.Tests() {
		if !listsFunction(tc, function) {
			continue
		}
		node, err := a.lowerTest(tc)
		if err != nil {
			return nil, withEntity(err, tc.Name)
		}
		tests = append(tests, node)
	}
	return tests, nil
}

func listsFunction(tc *ast.TestCase, function string) bool {
	for _, fn := range tc.Functions {
		if fn.Name == function {
			return true
		}
	}
	return false
}

func (a *assembler) lowerTest(tc *ast.TestCase) (ir.Node[ir.TestCase], error) {
	functions := make([]ir.Node[ir.TestCaseFunction], 0, len(tc.Functions))
	for _, fn := range tc.Functions {
		functions = append(functions, ir.NewNode(ir.TestCaseFunction(fn.Name), ir.NodeAttributes{Span: fn.Span}))
	}
	args := make(ir.MapExpr, 0, len(tc.Args))
	for _, opt := range tc.Args {
		v, err := LowerExpression(opt.Value)
		if err != nil {
			return ir.Node[ir.TestCase]{}, err
		}
		args = append(args, ir.MapEntry{Key: opt.Key, Value: v})
	}
	return ir.NewNode(ir.TestCase{
		Name:      tc.Name,
		Functions: functions,
		Args:      args,
	}, a.attributes(tc.Attributes, tc.Span)), nil
}

func lowerOptions(opts []ast.Option) ([]ir.Option, error) {
	out := make([]ir.Option, 0, len(opts))
	for _, opt := range opts {
		v, err := LowerExpression(opt.Value)
		if err != nil {
			return nil, fmt.Errorf("option %q: %w", opt.Key, err)
		}
		out = append(out, ir.Option{Name: opt.Key, Value: v})
	}
	return out, nil
}

func (a *assembler) lowerClient(c *ast.Client) (ir.Node[ir.Client], error) {
	if c.Provider == "" {
		return ir.Node[ir.Client]{}, compileErrorf(ErrCodeInvalidBlockArg, c.Span, c.Name, "client has no provider")
	}
	opts, err := lowerOptions(c.Options)
	if err != nil {
		return ir.Node[ir.Client]{}, err
	}
	return ir.NewNode(ir.Client{
		Name:          c.Name,
		Provider:      c.Provider,
		RetryPolicyID: c.RetryPolicy,
		Options:       opts,
	}, ir.NodeAttributes{Span: c.Span}), nil
}

func (a *assembler) lowerRetryPolicy(p *ast.RetryPolicy) (ir.Node[ir.RetryPolicy], error) {
	strategy, err := lowerStrategy(p.Strategy)
	if err != nil {
		return ir.Node[ir.RetryPolicy]{}, compileErrorf(ErrCodeInvalidBlockArg, p.Span, p.Name, "%v", err)
	}
	if p.MaxRetries < 0 {
		return ir.Node[ir.RetryPolicy]{}, compileErrorf(ErrCodeInvalidBlockArg, p.Span, p.Name,
			"max_retries must not be negative, got %d", p.MaxRetries)
	}
	opts, err := lowerOptions(p.Options)
	if err != nil {
		return ir.Node[ir.RetryPolicy]{}, err
	}
	return ir.NewNode(ir.RetryPolicy{
		Name:       p.Name,
		MaxRetries: p.MaxRetries,
		Strategy:   strategy,
		Options:    opts,
	}, ir.NodeAttributes{Span: p.Span}), nil
}

// lowerStrategy fills in defaults: an empty type is a constant delay, and
// zero parameters take the default delay, multiplier and cap.
func lowerStrategy(s ast.RetryStrategy) (ir.RetryStrategy, error) {
	out := ir.RetryStrategy{DelayMs: s.DelayMs}
	if out.DelayMs == 0 {
		out.DelayMs = defaultDelayMs
	}
	switch ir.RetryStrategyType(s.Type) {
	case "", ir.ConstantDelay:
		out.Type = ir.ConstantDelay
	case ir.ExponentialBackoff:
		out.Type = ir.ExponentialBackoff
		out.Multiplier = s.Multiplier
		if out.Multiplier == 0 {
			out.Multiplier = defaultMultiplier
		}
		out.MaxDelayMs = s.MaxDelayMs
		if out.MaxDelayMs == 0 {
			out.MaxDelayMs = defaultMaxDelayMs
		}
	default:
		return ir.RetryStrategy{}, fmt.Errorf("unknown retry strategy %q", s.Type)
	}
	if out.DelayMs < 0 || out.MaxDelayMs < 0 || out.Multiplier < 0 {
		return ir.RetryStrategy{}, fmt.Errorf("retry strategy parameters must not be negative")
	}
	return out, nil
}

// lowerTemplateString drops parameters whose type does not lower; the
// template body is still usable without them.
func (a *assembler) lowerTemplateString(ts *ast.TemplateString) ir.Node[ir.TemplateString] {
	params := make([]ir.Field, 0, len(ts.Inputs))
	for _, in := range ts.Inputs {
		if in.Type == nil {
			continue
		}
		t, err := a.lowerType(in.Type)
		if err != nil {
			a.log.Debug("template string parameter dropped", "template_string", ts.Name, "param", in.Name, "error", err)
			continue
		}
		params = append(params, ir.Field{Name: in.Name, Type: t})
	}
	return ir.NewNode(ir.TemplateString{
		Name:    ts.Name,
		Params:  params,
		Content: ts.Content,
	}, ir.NodeAttributes{Span: ts.Span})
}
