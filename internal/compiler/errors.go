package compiler

import (
	"errors"
	"fmt"

	"github.com/roach88/promptc/internal/ir"
)

// Structural error codes (E200-E299). Any of these aborts assembly.
const (
	ErrCodeUnresolvableIdentifier = "E201" // field type names an unknown class or enum
	ErrCodeMalformedFunction      = "E202" // function signature cannot be lowered
	ErrCodeInvalidBlockArg        = "E203" // block argument or sub-block has an invalid shape
	ErrCodeInvalidListDims        = "E204" // list declared with fewer than one dimension
	ErrCodeInvalidClientSpec      = "E205" // function client is neither a name nor provider/model
	ErrCodeInvalidExpression      = "E206" // expression cannot be represented in the IR
)

// Sentinels matched by errors.Is against a *CompileError.
var (
	ErrUnresolvableIdentifier = errors.New("unresolvable identifier")
	ErrMalformedFunction      = errors.New("malformed function signature")
	ErrInvalidBlockArg        = errors.New("invalid block argument")
	ErrInvalidListDims        = errors.New("invalid list dimension")
	ErrInvalidClientSpec      = errors.New("invalid client spec")
	ErrInvalidExpression      = errors.New("invalid expression")
)

var sentinels = map[string]error{
	ErrCodeUnresolvableIdentifier: ErrUnresolvableIdentifier,
	ErrCodeMalformedFunction:      ErrMalformedFunction,
	ErrCodeInvalidBlockArg:        ErrInvalidBlockArg,
	ErrCodeInvalidListDims:        ErrInvalidListDims,
	ErrCodeInvalidClientSpec:      ErrInvalidClientSpec,
	ErrCodeInvalidExpression:      ErrInvalidExpression,
}

// CompileError is a structural schema error with the offending span.
type CompileError struct {
	Code    string
	Entity  string
	Message string
	Span    ir.Span
}

func (e *CompileError) Error() string {
	if !e.Span.IsZero() {
		return fmt.Sprintf("%s: [%s] %s: %s", e.Span, e.Code, e.Entity, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Entity, e.Message)
}

// Unwrap exposes the sentinel for e.Code.
func (e *CompileError) Unwrap() error {
	return sentinels[e.Code]
}

func compileErrorf(code string, span ir.Span, entity, format string, args ...any) *CompileError {
	return &CompileError{
		Code:    code,
		Entity:  entity,
		Message: fmt.Sprintf(format, args...),
		Span:    span,
	}
}

// withEntity fills in the entity on a CompileError raised below the entity
// level, such as inside a field type.
func withEntity(err error, entity string) error {
	var ce *CompileError
	if errors.As(err, &ce) && ce.Entity == "" {
		ce.Entity = entity
	}
	return err
}
