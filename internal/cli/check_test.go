package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pipelineDesign = `
package design

component: {
	Mul: {
		params: [{name: "W", where: ["W > 0"]}, {name: "N", where: ["N > 1"]}]
		time:      "T"
		interface: "go"
		ports: [
			{name: "go", dir: "in", start: "T", end: "T+1", width: "1"},
			{name: "A", dir: "in", start: "T", end: "T+1", width: "W"},
			{name: "B", dir: "in", start: "T", end: "T+1", width: "W"},
			{name: "O", dir: "out", start: "T+L", end: "T+L+1", width: "W"},
		]
		exists: [{name: "L", def: "N*N"}]
	}
	Top: {
		time:      "G"
		interface: "go"
		ports: [
			{name: "go", dir: "in", start: "G", end: "G+1", width: "1"},
			{name: "A", dir: "in", start: "G", end: "G+1", width: "32"},
			{name: "B", dir: "in", start: "G", end: "G+1", width: "32"},
			{name: "O", dir: "out", start: "G+L", end: "G+L+1", width: "32"},
		]
		exists: [{name: "L"}]
		body: [
			{instance: "m2", def: "Mul", args: ["32", "2"]},
			{instance: "m3", def: "Mul", args: ["32", "3"]},
			{invoke: "i0", instance: "m2", at: "G", args: ["A", "B"]},
			{invoke: "i1", instance: "m3", at: "G+4", args: ["i0.O", "i0.O"]},
			{invoke: "i2", instance: "m3", at: "G+13", args: ["i1.O", "i1.O"]},
			{connect: {dst: "O", src: "i2.O"}},
		]
	}
}
`

// mistimedDesign samples i0's product one cycle after its window closes.
const mistimedDesign = `
package design

component: {
	Mul: {
		params: [{name: "W", where: ["W > 0"]}, {name: "N", where: ["N > 1"]}]
		time:      "T"
		interface: "go"
		ports: [
			{name: "go", dir: "in", start: "T", end: "T+1", width: "1"},
			{name: "A", dir: "in", start: "T", end: "T+1", width: "W"},
			{name: "B", dir: "in", start: "T", end: "T+1", width: "W"},
			{name: "O", dir: "out", start: "T+L", end: "T+L+1", width: "W"},
		]
		exists: [{name: "L", def: "N*N"}]
	}
	Top: {
		time:      "G"
		interface: "go"
		ports: [
			{name: "go", dir: "in", start: "G", end: "G+1", width: "1"},
			{name: "A", dir: "in", start: "G", end: "G+1", width: "32"},
			{name: "O", dir: "out", start: "G+L", end: "G+L+1", width: "32"},
		]
		exists: [{name: "L"}]
		body: [
			{instance: "m2", def: "Mul", args: ["32", "2"]},
			{invoke: "i0", instance: "m2", at: "G", args: ["A", "A"]},
			{invoke: "i1", instance: "m2", at: "G+5", args: ["i0.O", "i0.O"]},
			{connect: {dst: "O", src: "i1.O"}},
		]
	}
}
`

// designDir writes a design document into a fresh temp directory.
func designDir(t *testing.T, doc string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "design.cue"), []byte(doc), 0644))
	return dir
}

func TestCheckWellTypedDesign(t *testing.T) {
	dir := designDir(t, pipelineDesign)

	buf := &bytes.Buffer{}
	cmd := NewCheckCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "✓ 2 component(s) check")
}

func TestCheckJSONSummary(t *testing.T) {
	dir := designDir(t, pipelineDesign)

	buf := &bytes.Buffer{}
	cmd := NewCheckCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	require.NoError(t, cmd.Execute())

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(2), data["components"])
	assert.Greater(t, data["constraints"], float64(0))
}

func TestCheckReportsResolutionErrors(t *testing.T) {
	dir := designDir(t, `
package design

component: Top: {
	time: "G"
	ports: [{name: "A", dir: "in", start: "G", end: "G+1", width: "8"}]
	body: [{instance: "m", def: "Missing"}]
}
`)

	buf := &bytes.Buffer{}
	cmd := NewCheckCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "E101")
}

func TestCheckMissingDirectory(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewCheckCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "absent")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "E005")
}

func TestCheckEmptyDirectory(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewCheckCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{t.TempDir()})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "E003")
}

func TestCheckVerboseListsComponents(t *testing.T) {
	dir := designDir(t, pipelineDesign)

	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := NewCheckCommand(&RootOptions{Format: "text", Verbose: true})
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs([]string{dir})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, errOut.String(), "Mul")
	assert.Contains(t, errOut.String(), "Top")
}
