package typecheck

import (
	"slices"
	"strings"
)

// Context selects which builtins a registry starts with.
type Context int

const (
	// ContextPrompt evaluates prompt templates: `_` and `ctx` are bound.
	ContextPrompt Context = iota
	// ContextConstraint evaluates assert/check expressions: no `ctx`.
	ContextConstraint
)

func (c Context) String() string {
	if c == ContextConstraint {
		return "constraint"
	}
	return "prompt"
}

// Builtin class and function names.
const (
	BuiltinClass      = "baml::BuiltIn"
	ContextClass      = "baml::Context"
	ClientClass       = "baml::Client"
	LoopClass         = "jinja::Loop"
	RoleFunction      = "baml::Role"
	OutputFormatFunc  = "baml::OutputFormat"
	builtinNamespaced = "::"
)

// Field is a named class member.
type Field struct {
	Name string
	Type Type
}

// Param is a named function parameter.
type Param struct {
	Name string
	Type Type
}

// Function is a callable signature. KeywordOnly functions reject
// positional arguments and treat every parameter as optional.
type Function struct {
	Name        string
	Return      Type
	Params      []Param
	KeywordOnly bool
}

func (f Function) param(name string) (Param, bool) {
	for _, p := range f.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

type variable struct {
	name string
	typ  Type
}

// PredefinedTypes is the registry an expression is evaluated against.
// Registries are built during setup and then only read; scopes such as a
// for-loop body get a Child instead of mutating the parent.
type PredefinedTypes struct {
	context   Context
	parent    *PredefinedTypes
	variables []variable
	classes   map[string][]Field
	functions map[string]Function
	builtins  []string
}

// New returns an empty registry.
func New(ctx Context) *PredefinedTypes {
	return &PredefinedTypes{
		context:   ctx,
		classes:   map[string][]Field{},
		functions: map[string]Function{},
	}
}

// Default returns a registry seeded with the builtins for ctx.
func Default(ctx Context) *PredefinedTypes {
	p := New(ctx)

	p.AddFunction(RoleFunction, String{}, Param{Name: "role", Type: String{}})
	p.AddClass(BuiltinClass, Field{Name: "role", Type: FunctionRef{Name: RoleFunction}})
	p.addBuiltin("_", ClassRef{Name: BuiltinClass})

	p.AddClass(LoopClass,
		Field{Name: "index", Type: Int{}},
		Field{Name: "index0", Type: Int{}},
		Field{Name: "revindex", Type: Int{}},
		Field{Name: "revindex0", Type: Int{}},
		Field{Name: "first", Type: Bool{}},
		Field{Name: "last", Type: Bool{}},
		Field{Name: "length", Type: Int{}},
		Field{Name: "depth", Type: Int{}},
	)

	if ctx == ContextPrompt {
		p.addFunctionSig(Function{
			Name:        OutputFormatFunc,
			Return:      String{},
			KeywordOnly: true,
			Params: []Param{
				{Name: "prefix", Type: Optional{Inner: String{}}},
				{Name: "or_splitter", Type: Optional{Inner: String{}}},
				{Name: "enum_value_prefix", Type: Optional{Inner: String{}}},
				{Name: "always_hoist_enums", Type: Optional{Inner: Bool{}}},
				{Name: "hoisted_class_prefix", Type: Optional{Inner: String{}}},
			},
		})
		p.AddClass(ClientClass,
			Field{Name: "name", Type: String{}},
			Field{Name: "provider", Type: String{}},
		)
		p.AddClass(ContextClass,
			Field{Name: "output_format", Type: FunctionRef{Name: OutputFormatFunc}},
			Field{Name: "client", Type: ClassRef{Name: ClientClass}},
		)
		p.addBuiltin("ctx", ClassRef{Name: ContextClass})
	}
	return p
}

func (p *PredefinedTypes) addBuiltin(name string, t Type) {
	p.AddVariable(name, t)
	p.builtins = append(p.builtins, name)
}

// Context returns the evaluation context the registry was built for.
func (p *PredefinedTypes) Context() Context {
	for p.parent != nil {
		p = p.parent
	}
	return p.context
}

// Child returns a scope whose new variables shadow p's without changing it.
func (p *PredefinedTypes) Child() *PredefinedTypes {
	return &PredefinedTypes{
		context:   p.context,
		parent:    p,
		classes:   map[string][]Field{},
		functions: map[string]Function{},
	}
}

// AddVariable binds name in this scope, replacing an earlier binding.
func (p *PredefinedTypes) AddVariable(name string, t Type) {
	for i, v := range p.variables {
		if v.name == name {
			p.variables[i].typ = t
			return
		}
	}
	p.variables = append(p.variables, variable{name: name, typ: t})
}

// AddClass registers or replaces a class with the given fields.
func (p *PredefinedTypes) AddClass(name string, fields ...Field) {
	p.classes[name] = slices.Clone(fields)
}

// AddFunction registers or replaces a function taking params in order.
func (p *PredefinedTypes) AddFunction(name string, ret Type, params ...Param) {
	p.addFunctionSig(Function{Name: name, Return: ret, Params: slices.Clone(params)})
}

func (p *PredefinedTypes) addFunctionSig(f Function) {
	p.functions[f.Name] = f
}

// Variable resolves name through the scope chain. A registered function
// name resolves to a FunctionRef.
func (p *PredefinedTypes) Variable(name string) (Type, bool) {
	for s := p; s != nil; s = s.parent {
		for _, v := range s.variables {
			if v.name == name {
				return v.typ, true
			}
		}
	}
	if _, ok := p.Function(name); ok {
		return FunctionRef{Name: name}, true
	}
	return nil, false
}

// Class returns the fields of a registered class.
func (p *PredefinedTypes) Class(name string) ([]Field, bool) {
	for s := p; s != nil; s = s.parent {
		if f, ok := s.classes[name]; ok {
			return f, true
		}
	}
	return nil, false
}

// Function returns a registered function signature.
func (p *PredefinedTypes) Function(name string) (Function, bool) {
	for s := p; s != nil; s = s.parent {
		if f, ok := s.functions[name]; ok {
			return f, true
		}
	}
	return Function{}, false
}

// Names returns every user-visible variable and function name: variables
// outermost scope first in binding order, then functions sorted.
// Namespaced builtins are omitted.
func (p *PredefinedTypes) Names() []string {
	var scopes []*PredefinedTypes
	for s := p; s != nil; s = s.parent {
		scopes = append(scopes, s)
	}
	slices.Reverse(scopes)

	var names []string
	seen := map[string]bool{}
	add := func(name string) {
		if !seen[name] && !strings.Contains(name, builtinNamespaced) {
			seen[name] = true
			names = append(names, name)
		}
	}
	var functions []string
	for _, s := range scopes {
		for _, v := range s.variables {
			add(v.name)
		}
		for name := range s.functions {
			functions = append(functions, name)
		}
	}
	slices.Sort(functions)
	for _, name := range functions {
		add(name)
	}
	return names
}

// Builtins returns the names bound by Default, which every unknown-variable
// hint offers.
func (p *PredefinedTypes) Builtins() []string {
	for p.parent != nil {
		p = p.parent
	}
	return slices.Clone(p.builtins)
}
