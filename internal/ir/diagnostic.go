package ir

import (
	"fmt"
	"strings"
)

// Diagnostic is a localized compile error or warning. Every stage reports
// through this shape so the CLI can render and count failures uniformly.
type Diagnostic struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Pos     Pos      `json:"pos,omitempty"`
	Notes   []string `json:"notes,omitempty"`
}

// Error implements the error interface.
func (d Diagnostic) Error() string {
	var b strings.Builder
	if d.Pos.IsValid() {
		fmt.Fprintf(&b, "[%s] %s: %s", d.Code, d.Pos, d.Message)
	} else {
		fmt.Fprintf(&b, "[%s] %s", d.Code, d.Message)
	}
	for _, note := range d.Notes {
		b.WriteString("\n  note: ")
		b.WriteString(note)
	}
	return b.String()
}
