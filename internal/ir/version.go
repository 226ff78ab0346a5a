package ir

// Version constants for the IR schema and the compiler.
const (
	// IRVersion is the serialized IR schema version.
	IRVersion = "1"

	// CompilerVersion is the promptc compiler version.
	CompilerVersion = "0.1.0"
)
