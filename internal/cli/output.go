package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/silica-hdl/silica/internal/ir"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Type or solver failure in the compiled design
	ExitCommandError = 2 // Command error (invalid paths, unreadable input, etc.)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (ExitFailure or ExitCommandError)
	Message string
	Err     error // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// Response is the standard JSON envelope for CLI output.
type Response struct {
	Status      string          `json:"status"` // "ok" or "error"
	Data        any             `json:"data,omitempty"`
	Error       *ResponseError  `json:"error,omitempty"`
	Diagnostics []ir.Diagnostic `json:"diagnostics,omitempty"`
}

// ResponseError is the error structure for CLI responses.
type ResponseError struct {
	Code    string `json:"code"` // "E001", "E202", etc.
	Message string `json:"message"`
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs a single error in the configured format.
func (f *OutputFormatter) Error(code, message string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{
			Status: "error",
			Error:  &ResponseError{Code: code, Message: message},
		})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	return nil
}

// Diagnostics outputs compile diagnostics. In JSON the full structured list
// is emitted; in text each diagnostic renders with position and notes.
func (f *OutputFormatter) Diagnostics(diags []ir.Diagnostic) error {
	if f.Format == "json" {
		resp := Response{Status: "error", Diagnostics: diags}
		if len(diags) > 0 {
			resp.Error = &ResponseError{Code: diags[0].Code, Message: diags[0].Message}
		}
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	for _, d := range diags {
		fmt.Fprintln(f.Writer, d.Error())
	}
	fmt.Fprintf(f.Writer, "\n%d error(s)\n", len(diags))
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled. Logs go to
// ErrWriter when set, so JSON output on Writer stays clean.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
