package typecheck

import (
	"fmt"
	"strings"

	"github.com/roach88/promptc/internal/jinja"
)

// DiagnosticKind classifies an expression type error.
type DiagnosticKind string

const (
	UnknownVariable   DiagnosticKind = "unknown_variable"
	UnknownProperty   DiagnosticKind = "unknown_property"
	UnknownFunction   DiagnosticKind = "unknown_function"
	NotCallable       DiagnosticKind = "not_callable"
	ArityMismatch     DiagnosticKind = "arity_mismatch"
	MissingArgument   DiagnosticKind = "missing_argument"
	ArgumentType      DiagnosticKind = "argument_type"
	UnknownArgument   DiagnosticKind = "unknown_argument"
	DuplicateArgument DiagnosticKind = "duplicate_argument"
)

// Diagnostic is one expression type error.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Message string         `json:"message"`
	Pos     jinja.Position `json:"pos"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Pos, d.Message)
}

// Diagnostics accumulates errors across an evaluation. It implements error
// for callers that want a single value.
type Diagnostics []Diagnostic

func (d Diagnostics) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d expression error(s):", len(d))
	for _, diag := range d {
		b.WriteString("\n  ")
		b.WriteString(diag.String())
	}
	return b.String()
}

// Messages returns the diagnostic messages in order.
func (d Diagnostics) Messages() []string {
	out := make([]string, len(d))
	for i, diag := range d {
		out[i] = diag.Message
	}
	return out
}

func (d *Diagnostics) add(kind DiagnosticKind, pos jinja.Position, format string, args ...any) {
	*d = append(*d, Diagnostic{Kind: kind, Message: fmt.Sprintf(format, args...), Pos: pos})
}
