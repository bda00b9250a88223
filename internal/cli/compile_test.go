package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silica-hdl/silica/internal/ir"
)

func TestCompilePipeline(t *testing.T) {
	dir := designDir(t, pipelineDesign)

	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir, "--entry", "Top"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "✓ Compiled 3 specialization(s) from Top")
	assert.Contains(t, output, "Mul[32 2]")
	assert.Contains(t, output, "Mul[32 3]")
}

func TestCompileShowModels(t *testing.T) {
	dir := designDir(t, pipelineDesign)

	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir, "--entry", "Top", "--show-models"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "L = 22")
	assert.Contains(t, output, "L = 4")
	assert.Contains(t, output, "L = 9")
}

func TestCompileJSONEmitsDesign(t *testing.T) {
	dir := designDir(t, pipelineDesign)

	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir, "--entry", "Top"})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string    `json:"status"`
		Data   ir.Design `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, resp.Data.Components, 3)

	entry, ok := resp.Data.Components[resp.Data.Entry]
	require.True(t, ok)
	assert.Equal(t, "Top", entry.Name)
	assert.Equal(t, int64(22), entry.Exists["L"])
}

func TestCompileWritesOutputFile(t *testing.T) {
	dir := designDir(t, pipelineDesign)
	outPath := filepath.Join(t.TempDir(), "design.json")

	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir, "--entry", "Top", "-o", outPath})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Wrote design to "+outPath)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var design ir.Design
	require.NoError(t, json.Unmarshal(data, &design))
	assert.Len(t, design.Components, 3)
	assert.Equal(t, ir.MustSpecKey("Top", nil), design.Entry)
}

func TestCompileEntryArgs(t *testing.T) {
	dir := designDir(t, pipelineDesign)

	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir, "--entry", "Mul", "--args", "8,2"})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Data ir.Design `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.Len(t, resp.Data.Components, 1)

	comp := resp.Data.Components[resp.Data.Entry]
	assert.Equal(t, []int64{8, 2}, comp.Args)
	assert.Equal(t, int64(4), comp.Exists["L"])
}

func TestCompileUnsatisfiableSchedule(t *testing.T) {
	dir := designDir(t, mistimedDesign)

	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir, "--entry", "Top"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "E301")
}

func TestCompileCheckOnly(t *testing.T) {
	dir := designDir(t, pipelineDesign)

	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir, "--entry", "Top", "--check-only"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "design checks")
}

func TestCompileRequiresEntry(t *testing.T) {
	dir := designDir(t, pipelineDesign)

	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry")
}

func TestCompileUnknownEntry(t *testing.T) {
	dir := designDir(t, pipelineDesign)

	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir, "--entry", "Root"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "E101")
}

func TestCompileWithPersistentCache(t *testing.T) {
	dir := designDir(t, pipelineDesign)
	cachePath := filepath.Join(t.TempDir(), "compile.db")

	for run := 0; run < 2; run++ {
		buf := &bytes.Buffer{}
		cmd := NewCompileCommand(&RootOptions{Format: "text"})
		cmd.SetOut(buf)
		cmd.SetArgs([]string{dir, "--entry", "Top", "--cache", cachePath})

		require.NoError(t, cmd.Execute(), "run %d", run)
		assert.Contains(t, buf.String(), "✓ Compiled 3 specialization(s)", "run %d", run)
	}

	// The cache database outlives both runs.
	_, err := os.Stat(cachePath)
	require.NoError(t, err)
}
