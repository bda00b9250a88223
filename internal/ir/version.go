package ir

// Version constants for the IR schema and compiler.
const (
	// IRVersion is the flat-design schema version.
	IRVersion = "1"

	// CompilerVersion is the Silica front-end version.
	CompilerVersion = "0.1.0"
)
