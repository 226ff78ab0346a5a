package cli

import "github.com/roach88/promptc/internal/loader"

// Error codes used by commands in addition to the loader's.
const (
	ErrCodeGeneric     = loader.ErrCodeGeneric
	ErrCodeWriteFailed = loader.ErrCodeWriteFailed
	ErrCodeNotFound    = loader.ErrCodeNotFound
	ErrCodeStoreFailed = "E008" // Snapshot store could not be opened or written
	ErrCodeBadArgument = "E009" // Flag or argument value is malformed
	ErrCodeTestFailed  = "E010" // One or more conformance scenarios failed
	ErrCodeSyntax      = "E401" // Template expression does not parse
	ErrCodeTemplate    = "E402" // Template expression does not type-check
)
