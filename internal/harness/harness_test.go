package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarios runs every scenario under testdata/scenarios. Adding a new
// conformance case is a new YAML file, not a new test function.
func TestScenarios(t *testing.T) {
	matches, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, matches, "no scenarios found")

	for _, path := range matches {
		path := path
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(context.Background(), scenario)
			require.NoError(t, err)

			for _, failure := range Assert(scenario, result) {
				t.Error(failure)
			}
		})
	}
}

func TestPipelineGolden(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/pipeline.yaml")
	require.NoError(t, err)

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	require.False(t, result.Failed(), "diagnostics: %v", result.Diagnostics)

	AssertGolden(t, scenario.Name, result.Design)
}

func TestRunReportsDiagnosticsNotErrors(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/mistimed.yaml")
	require.NoError(t, err)

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err, "compilation failures surface as diagnostics")
	assert.True(t, result.Failed())
	assert.Nil(t, result.Design)
}

func TestRunUnreadableDesign(t *testing.T) {
	scenario := &Scenario{
		Name:        "missing",
		Description: "x",
		Design:      filepath.Join(t.TempDir(), "absent.cue"),
		Entry:       "Top",
		Expect:      Expectation{Outcome: OutcomeDesign},
	}

	_, err := Run(context.Background(), scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading design")
}

func TestAssertDetectsWrongExistential(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/pipeline.yaml")
	require.NoError(t, err)
	scenario.Expect.Exists["Top"]["L"] = 21

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	failures := Assert(scenario, result)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "L = 22, want 21")
}

func TestAssertDetectsUnexpectedSuccess(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/pipeline.yaml")
	require.NoError(t, err)
	scenario.Expect = Expectation{Outcome: OutcomeDiagnostics, Codes: []string{"E301"}}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	failures := Assert(scenario, result)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "compilation succeeded")
}
