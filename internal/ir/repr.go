package ir

import (
	"cmp"
	"encoding/json"
	"iter"
	"slices"
)

// ClassSet is a set of class names, stored sorted.
type ClassSet []string

// NewClassSet returns the sorted, de-duplicated set of names.
func NewClassSet(names ...string) ClassSet {
	s := slices.Clone(names)
	slices.Sort(s)
	return ClassSet(slices.Compact(s))
}

// Contains reports whether name is in the set.
func (s ClassSet) Contains(name string) bool {
	_, ok := slices.BinarySearch(s, name)
	return ok
}

// Contents is everything needed to construct an IntermediateRepr.
type Contents struct {
	Enums                 []Node[Enum]
	Classes               []Node[Class]
	FiniteRecursiveCycles []ClassSet
	Functions             []Node[Function]
	Clients               []Node[Client]
	RetryPolicies         []Node[RetryPolicy]
	TemplateStrings       []Node[TemplateString]
	Configuration         Configuration
}

// IntermediateRepr is the lowered schema. It cannot be modified after New
// returns. Walkers and Find* return a copy of the node itself, but nested
// slices (fields, values, options, tests, constraints) are shared with the
// IR and must not be written through.
type IntermediateRepr struct {
	enums           []Node[Enum]
	classes         []Node[Class]
	cycles          []ClassSet
	functions       []Node[Function]
	clients         []Node[Client]
	retryPolicies   []Node[RetryPolicy]
	templateStrings []Node[TemplateString]
	configuration   Configuration
}

type named interface {
	Enum | Class | Function | Client | RetryPolicy | TemplateString
}

func nameOf[T named](v T) string { return entityName(v) }

func entityName(v any) string {
	switch e := v.(type) {
	case Enum:
		return e.Name
	case Class:
		return e.Name
	case Function:
		return e.Name
	case Client:
		return e.Name
	case RetryPolicy:
		return e.Name
	case TemplateString:
		return e.Name
	case TestCase:
		return e.Name
	}
	return ""
}

// SortByName sorts nodes by entity name. The sort is stable so entities with
// equal names keep their relative order.
func SortByName[T named](nodes []Node[T]) {
	slices.SortStableFunc(nodes, func(a, b Node[T]) int {
		return cmp.Compare(nameOf(a.Elem), nameOf(b.Elem))
	})
}

// New builds an IntermediateRepr. Each collection is copied and sorted by
// name, so the result does not alias c.
func New(c Contents) *IntermediateRepr {
	r := &IntermediateRepr{
		enums:           slices.Clone(c.Enums),
		classes:         slices.Clone(c.Classes),
		cycles:          slices.Clone(c.FiniteRecursiveCycles),
		functions:       slices.Clone(c.Functions),
		clients:         slices.Clone(c.Clients),
		retryPolicies:   slices.Clone(c.RetryPolicies),
		templateStrings: slices.Clone(c.TemplateStrings),
		configuration:   Configuration{Generators: slices.Clone(c.Configuration.Generators)},
	}
	SortByName(r.enums)
	SortByName(r.classes)
	SortByName(r.functions)
	SortByName(r.clients)
	SortByName(r.retryPolicies)
	SortByName(r.templateStrings)
	return r
}

// Walker pairs a node with the IR it belongs to, so consumers can follow
// references while iterating. Node is a shallow copy; treat it as read-only.
type Walker[T any] struct {
	IR   *IntermediateRepr
	Node *Node[T]
}

// Name returns the walked entity's name.
func (w Walker[T]) Name() string { return entityName(w.Node.Elem) }

// Item returns the walked entity.
func (w Walker[T]) Item() T { return w.Node.Elem }

// Attributes returns the walked node's attributes.
func (w Walker[T]) Attributes() NodeAttributes { return w.Node.Attributes }

func walk[T any](r *IntermediateRepr, nodes []Node[T]) iter.Seq[Walker[T]] {
	return func(yield func(Walker[T]) bool) {
		for i := range nodes {
			n := nodes[i]
			if !yield(Walker[T]{IR: r, Node: &n}) {
				return
			}
		}
	}
}

func (r *IntermediateRepr) WalkEnums() iter.Seq[Walker[Enum]]     { return walk(r, r.enums) }
func (r *IntermediateRepr) WalkClasses() iter.Seq[Walker[Class]]  { return walk(r, r.classes) }
func (r *IntermediateRepr) WalkClients() iter.Seq[Walker[Client]] { return walk(r, r.clients) }

func (r *IntermediateRepr) WalkFunctions() iter.Seq[Walker[Function]] {
	return walk(r, r.functions)
}

func (r *IntermediateRepr) WalkRetryPolicies() iter.Seq[Walker[RetryPolicy]] {
	return walk(r, r.retryPolicies)
}

func (r *IntermediateRepr) WalkTemplateStrings() iter.Seq[Walker[TemplateString]] {
	return walk(r, r.templateStrings)
}

// WalkTests yields every (function, test case) pair, functions in name order
// and tests in declaration order.
func (r *IntermediateRepr) WalkTests() iter.Seq2[Walker[Function], Walker[TestCase]] {
	return func(yield func(Walker[Function], Walker[TestCase]) bool) {
		for fn := range r.WalkFunctions() {
			for i := range fn.Node.Elem.Tests {
				tc := fn.Node.Elem.Tests[i]
				if !yield(fn, Walker[TestCase]{IR: r, Node: &tc}) {
					return
				}
			}
		}
	}
}

func find[T named](nodes []Node[T], name string) (*Node[T], bool) {
	i, ok := slices.BinarySearchFunc(nodes, name, func(n Node[T], name string) int {
		return cmp.Compare(nameOf(n.Elem), name)
	})
	if !ok {
		return nil, false
	}
	n := nodes[i]
	return &n, true
}

// FindEnum returns the enum named name.
func (r *IntermediateRepr) FindEnum(name string) (*Node[Enum], bool) { return find(r.enums, name) }

// FindClass returns the class named name.
func (r *IntermediateRepr) FindClass(name string) (*Node[Class], bool) {
	return find(r.classes, name)
}

// FindFunction returns the function named name.
func (r *IntermediateRepr) FindFunction(name string) (*Node[Function], bool) {
	return find(r.functions, name)
}

// FindClient returns the client named name.
func (r *IntermediateRepr) FindClient(name string) (*Node[Client], bool) {
	return find(r.clients, name)
}

// FindRetryPolicy returns the retry policy named name.
func (r *IntermediateRepr) FindRetryPolicy(name string) (*Node[RetryPolicy], bool) {
	return find(r.retryPolicies, name)
}

// FindTemplateString returns the template string named name.
func (r *IntermediateRepr) FindTemplateString(name string) (*Node[TemplateString], bool) {
	return find(r.templateStrings, name)
}

// FiniteRecursiveCycles returns the recursive class groups in discovery order.
func (r *IntermediateRepr) FiniteRecursiveCycles() []ClassSet {
	out := make([]ClassSet, len(r.cycles))
	for i, c := range r.cycles {
		out[i] = slices.Clone(c)
	}
	return out
}

// Configuration returns the schema-level configuration.
func (r *IntermediateRepr) Configuration() Configuration {
	return Configuration{Generators: slices.Clone(r.configuration.Generators)}
}

// RequiredEnvVars returns every environment variable referenced by a client
// option, sorted and without duplicates.
func (r *IntermediateRepr) RequiredEnvVars() []string {
	var out []string
	for _, c := range r.clients {
		for _, opt := range c.Elem.Options {
			out = append(out, EnvVars(opt.Value)...)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// MarshalJSON serializes every collection in name order. Configuration and
// spans are omitted.
func (r *IntermediateRepr) MarshalJSON() ([]byte, error) {
	cycles := make([]ClassSet, len(r.cycles))
	for i, c := range r.cycles {
		cycles[i] = nonNil(c)
	}
	return json.Marshal(struct {
		Version               string                 `json:"version"`
		Enums                 []Node[Enum]           `json:"enums"`
		Classes               []Node[Class]          `json:"classes"`
		FiniteRecursiveCycles []ClassSet             `json:"finite_recursive_cycles"`
		Functions             []Node[Function]       `json:"functions"`
		Clients               []Node[Client]         `json:"clients"`
		RetryPolicies         []Node[RetryPolicy]    `json:"retry_policies"`
		TemplateStrings       []Node[TemplateString] `json:"template_strings"`
	}{
		Version:               IRVersion,
		Enums:                 nonNil(r.enums),
		Classes:               nonNil(r.classes),
		FiniteRecursiveCycles: cycles,
		Functions:             nonNil(r.functions),
		Clients:               nonNil(r.clients),
		RetryPolicies:         nonNil(r.retryPolicies),
		TemplateStrings:       nonNil(r.templateStrings),
	})
}
