package ir

// Version constants for the payload schema and toolkit.
const (
	// PayloadVersion is the immediate payload schema version.
	PayloadVersion = "1"

	// ToolVersion is the eqhdl toolkit version.
	ToolVersion = "0.1.0"
)
