package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/promptc/internal/ast"
	"github.com/roach88/promptc/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrDuplicateName      = "E101" // two top-level blocks share a name
	ErrUnknownClient      = "E102" // function names a client that is not declared
	ErrUnknownRetryPolicy = "E103" // client names a retry policy that is not declared
	ErrUnknownTestTarget  = "E104" // test lists a function that is not declared
	ErrReservedName       = "E105" // block named like a builtin type
	ErrDuplicateMember    = "E106" // duplicate field, enum value or parameter
	ErrEmptyName          = "E107" // block, field or parameter without a name
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string  `json:"field"`
	Message string  `json:"message"`
	Code    string  `json:"code"`
	File    string  `json:"file,omitempty"`
	Line    int     `json:"line,omitempty"`
	Span    ir.Span `json:"-"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] %s:%d: %s: %s", e.Code, e.File, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidationErrors is the collected result of Validate, usable as an error.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d validation error(s):\n%s", len(errs), strings.Join(msgs, "\n"))
}

func newValidationError(code, field string, span ir.Span, format string, args ...any) ValidationError {
	return ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
		File:    span.File,
		Line:    span.Start.Line,
		Span:    span,
	}
}

// reservedNames cannot name a class, enum, function or template string.
var reservedNames = map[string]bool{
	"map": true, "env": true, "true": true, "false": true,
}

func init() {
	for _, k := range ir.PrimitiveKinds {
		reservedNames[string(k)] = true
	}
}

// Validate checks cross-references and naming in a parsed schema before it
// is lowered. Returns all errors found (does not fail-fast).
func Validate(db ast.Database) []ValidationError {
	var errs []ValidationError

	// Classes, enums, functions and template strings share one namespace.
	types := newNamespace("type", &errs)
	for e := range db.Enums() {
		types.declare(e.Name, "enum", e.Span)
		members := newNamespace("value", &errs)
		for _, v := range e.Values {
			members.declareMember(e.Name, v.Name, v.Span)
		}
	}
	for c := range db.Classes() {
		types.declare(c.Name, "class", c.Span)
		members := newNamespace("field", &errs)
		for _, f := range c.Fields {
			members.declareMember(c.Name, f.Name, f.Span)
		}
		validateArgs(c.Name, c.Inputs, &errs)
	}
	for f := range db.Functions() {
		types.declare(f.Name, "function", f.Span)
		validateArgs(f.Name, f.Inputs, &errs)
	}
	for ts := range db.TemplateStrings() {
		types.declare(ts.Name, "template_string", ts.Span)
		validateArgs(ts.Name, ts.Inputs, &errs)
	}

	clients := newNamespace("client", &errs)
	for c := range db.Clients() {
		clients.declare(c.Name, "client", c.Span)
	}
	policies := newNamespace("retry_policy", &errs)
	for p := range db.RetryPolicies() {
		policies.declare(p.Name, "retry_policy", p.Span)
	}
	tests := newNamespace("test", &errs)
	for tc := range db.Tests() {
		tests.declare(tc.Name, "test", tc.Span)
	}

	for f := range db.Functions() {
		spec, err := ir.ParseClientSpec(f.Client)
		if err != nil {
			continue // reported as a structural error during lowering
		}
		if name, ok := spec.Named(); ok && !clients.has(name) {
			errs = append(errs, newValidationError(ErrUnknownClient, f.Name+".client", f.Span,
				"unknown client %q", name))
		}
	}
	for c := range db.Clients() {
		if c.RetryPolicy != "" && !policies.has(c.RetryPolicy) {
			errs = append(errs, newValidationError(ErrUnknownRetryPolicy, c.Name+".retry_policy", c.Span,
				"unknown retry policy %q", c.RetryPolicy))
		}
	}
	for tc := range db.Tests() {
		for _, fn := range tc.Functions {
			if !types.hasKind(fn.Name, "function") {
				errs = append(errs, newValidationError(ErrUnknownTestTarget, tc.Name+".functions", fn.Span,
					"unknown function %q", fn.Name))
			}
		}
	}
	return errs
}

func validateArgs(owner string, args []ast.BlockArg, errs *[]ValidationError) {
	params := newNamespace("parameter", errs)
	for _, a := range args {
		params.declareMember(owner, a.Name, a.Span)
	}
}

type namespace struct {
	what  string
	kinds map[string]string
	errs  *[]ValidationError
}

func newNamespace(what string, errs *[]ValidationError) *namespace {
	return &namespace{what: what, kinds: make(map[string]string), errs: errs}
}

func (n *namespace) declare(name, kind string, span ir.Span) {
	switch {
	case name == "":
		*n.errs = append(*n.errs, newValidationError(ErrEmptyName, kind, span, "%s has no name", kind))
		return
	case n.what == "type" && reservedNames[name]:
		*n.errs = append(*n.errs, newValidationError(ErrReservedName, name, span,
			"%s name %q is reserved", kind, name))
	}
	if prev, ok := n.kinds[name]; ok {
		*n.errs = append(*n.errs, newValidationError(ErrDuplicateName, name, span,
			"%s %q conflicts with %s of the same name", kind, name, prev))
		return
	}
	n.kinds[name] = kind
}

func (n *namespace) declareMember(owner, name string, span ir.Span) {
	if name == "" {
		*n.errs = append(*n.errs, newValidationError(ErrEmptyName, owner, span, "%s has no name", n.what))
		return
	}
	if _, ok := n.kinds[name]; ok {
		*n.errs = append(*n.errs, newValidationError(ErrDuplicateMember, owner+"."+name, span,
			"duplicate %s %q", n.what, name))
		return
	}
	n.kinds[name] = n.what
}

func (n *namespace) has(name string) bool {
	_, ok := n.kinds[name]
	return ok
}

func (n *namespace) hasKind(name, kind string) bool {
	return n.kinds[name] == kind
}
