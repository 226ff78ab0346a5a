package loader

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Error codes for loading schema files.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error

	ErrCodeInvalidBlock = "E301" // Block has an unknown key or a value of the wrong shape
	ErrCodeInvalidType  = "E302" // Field type string does not parse
)

// LoadError represents an error that occurred while loading a schema.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadErrors is every problem found in one schema.
type LoadErrors []*LoadError

func (errs LoadErrors) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d schema error(s):", len(errs))
	for _, e := range errs {
		sb.WriteString("\n  ")
		sb.WriteString(e.Error())
	}
	return sb.String()
}

// formatCUEError converts a CUE error into a LoadError carrying the position
// of its first underlying error.
func formatCUEError(code string, err error) *LoadError {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: code, Message: err.Error()}
	}

	firstErr := errs[0]
	le := &LoadError{Code: code, Message: firstErr.Error()}
	if positions := errors.Positions(firstErr); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}
