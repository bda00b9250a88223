package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// populateCache compiles the pipeline design with a persistent cache and
// returns the cache path.
func populateCache(t *testing.T) string {
	t.Helper()
	dir := designDir(t, pipelineDesign)
	cachePath := filepath.Join(t.TempDir(), "compile.db")

	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{dir, "--entry", "Top", "--cache", cachePath})
	require.NoError(t, cmd.Execute())

	return cachePath
}

func TestCacheListsSpecializations(t *testing.T) {
	cachePath := populateCache(t)

	buf := &bytes.Buffer{}
	cmd := NewCacheCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{cachePath})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "3 specialization(s)")
	assert.Contains(t, output, "Mul[32 2]")
	assert.Contains(t, output, "Mul[32 3]")
	assert.Contains(t, output, "Top[]")
}

func TestCacheFilterByDef(t *testing.T) {
	cachePath := populateCache(t)

	buf := &bytes.Buffer{}
	cmd := NewCacheCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{cachePath, "--def", "Mul"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "2 specialization(s)")
	assert.NotContains(t, buf.String(), "Top")
}

func TestCacheListsModels(t *testing.T) {
	cachePath := populateCache(t)

	buf := &bytes.Buffer{}
	cmd := NewCacheCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{cachePath, "--models"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "3 model(s)")
	assert.Contains(t, output, "L = 22")
	assert.Contains(t, output, "L = 4")
	assert.Contains(t, output, "L = 9")
}

func TestCacheListsSessions(t *testing.T) {
	cachePath := populateCache(t)

	buf := &bytes.Buffer{}
	cmd := NewCacheCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{cachePath, "--sessions"})

	require.NoError(t, cmd.Execute())
	// Compiling recorded one session; inspecting records another.
	assert.Contains(t, buf.String(), "2 session(s)")
}

func TestCacheMissingDatabase(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewCacheCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "absent.db")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "E005")
}
