package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silica-hdl/silica/internal/ir"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp Response
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("E001", "compilation failed")
	require.NoError(t, err)

	var resp Response
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E001", resp.Error.Code)
	assert.Equal(t, "compilation failed", resp.Error.Message)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Error("E005", "design directory not found")
	require.NoError(t, err)
	assert.Equal(t, "Error [E005]: design directory not found\n", buf.String())
}

func TestOutputFormatter_Diagnostics(t *testing.T) {
	diags := []ir.Diagnostic{
		{Code: "E202", Message: "interval mismatch"},
		{Code: "E301", Message: "no natural solution"},
	}

	t.Run("json", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "json", Writer: buf}

		require.NoError(t, formatter.Diagnostics(diags))

		var resp Response
		require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
		assert.Equal(t, "error", resp.Status)
		require.NotNil(t, resp.Error)
		// The envelope's error field carries the first diagnostic.
		assert.Equal(t, "E202", resp.Error.Code)
		assert.Len(t, resp.Diagnostics, 2)
	})

	t.Run("text", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "text", Writer: buf}

		require.NoError(t, formatter.Diagnostics(diags))
		assert.Contains(t, buf.String(), "E202")
		assert.Contains(t, buf.String(), "E301")
		assert.Contains(t, buf.String(), "2 error(s)")
	})
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	quiet := &OutputFormatter{Format: "text", Writer: out, ErrWriter: errOut}
	quiet.VerboseLog("should not appear")
	assert.Empty(t, errOut.String())

	verbose := &OutputFormatter{Format: "text", Writer: out, ErrWriter: errOut, Verbose: true}
	verbose.VerboseLog("loaded %d component(s)", 3)
	// Verbose logs go to the error writer, keeping stdout machine-readable.
	assert.Empty(t, out.String())
	assert.Equal(t, "loaded 3 component(s)\n", errOut.String())
}

func TestExitError(t *testing.T) {
	plain := NewExitError(ExitFailure, "check failed")
	assert.Equal(t, "check failed", plain.Error())
	assert.Equal(t, ExitFailure, GetExitCode(plain))

	wrapped := WrapExitError(ExitCommandError, "opening compile cache", errors.New("disk full"))
	assert.Equal(t, "opening compile cache: disk full", wrapped.Error())
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
	assert.ErrorContains(t, wrapped.Unwrap(), "disk full")

	// Wrapping preserves the code through error chains.
	chained := fmt.Errorf("outer: %w", wrapped)
	assert.Equal(t, ExitCommandError, GetExitCode(chained))

	assert.Equal(t, ExitFailure, GetExitCode(errors.New("untyped")))
}
