package harness

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/silica-hdl/silica/internal/ir"
)

// Assert evaluates a scenario's expectations against a result and returns
// one message per failed expectation. An empty slice means the scenario
// passed.
func Assert(scenario *Scenario, result *Result) []string {
	var failures []string

	switch scenario.Expect.Outcome {
	case OutcomeDesign:
		if result.Failed() {
			failures = append(failures,
				fmt.Sprintf("expected a design, got %d diagnostic(s): %s", len(result.Diagnostics), summarize(result.Diagnostics)))
			return failures
		}
		failures = append(failures, assertDesign(scenario, result.Design)...)

	case OutcomeDiagnostics:
		if !result.Failed() {
			failures = append(failures, "expected diagnostics, compilation succeeded")
			return failures
		}
		for _, code := range scenario.Expect.Codes {
			if !hasCode(result.Diagnostics, code) {
				failures = append(failures,
					fmt.Sprintf("expected diagnostic %s, got: %s", code, summarize(result.Diagnostics)))
			}
		}
	}

	return failures
}

func assertDesign(scenario *Scenario, design *ir.Design) []string {
	var failures []string

	if want := scenario.Expect.Specializations; want != 0 && len(design.Components) != want {
		failures = append(failures,
			fmt.Sprintf("expected %d specialization(s), got %d", want, len(design.Components)))
	}

	byName := make(map[string]*ir.Component, len(design.Components))
	for _, comp := range design.Components {
		byName[RenderName(comp)] = comp
	}

	for name, wantExists := range scenario.Expect.Exists {
		comp, ok := byName[name]
		if !ok {
			failures = append(failures, fmt.Sprintf("no specialization %s in design", name))
			continue
		}
		for param, want := range wantExists {
			got, ok := comp.Exists[param]
			if !ok {
				failures = append(failures, fmt.Sprintf("%s: existential %s is unsolved", name, param))
				continue
			}
			if got != want {
				failures = append(failures, fmt.Sprintf("%s: existential %s = %d, want %d", name, param, got, want))
			}
		}
	}

	return failures
}

// RenderName renders a specialization as "Name" or "Name[a,b]". Scenario
// expectations and golden snapshots identify components this way rather than
// by hash key.
func RenderName(comp *ir.Component) string {
	if len(comp.Args) == 0 {
		return comp.Name
	}
	parts := make([]string, len(comp.Args))
	for i, arg := range comp.Args {
		parts[i] = strconv.FormatInt(arg, 10)
	}
	return fmt.Sprintf("%s[%s]", comp.Name, strings.Join(parts, ","))
}

func hasCode(diags []ir.Diagnostic, code string) bool {
	for _, d := range diags {
		if d.Code == code {
			return true
		}
	}
	return false
}

func summarize(diags []ir.Diagnostic) string {
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = d.Code
	}
	return strings.Join(parts, ", ")
}
