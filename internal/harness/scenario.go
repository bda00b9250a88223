package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance case: a design document, an entry point,
// and the expected compilation outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Design is the path to the CUE design document, relative to the
	// scenario file location.
	Design string `yaml:"design"`

	// Entry names the entry component to monomorphize.
	Entry string `yaml:"entry"`

	// Args are concrete values for the entry component's parameters.
	Args []int64 `yaml:"args,omitempty"`

	// Expect is the expected outcome.
	Expect Expectation `yaml:"expect"`
}

// Expectation describes the result a scenario demands.
type Expectation struct {
	// Outcome is either "design" (compilation succeeds and emits a design)
	// or "diagnostics" (compilation fails with the listed codes).
	Outcome string `yaml:"outcome"`

	// Codes lists diagnostic codes that must each appear at least once.
	// Only meaningful for the diagnostics outcome.
	Codes []string `yaml:"codes,omitempty"`

	// Specializations is the expected number of emitted components.
	// Zero means unchecked.
	Specializations int `yaml:"specializations,omitempty"`

	// Exists maps a rendered specialization name ("Top", "Mul[32,2]") to
	// its expected solved existential values. Subset match over the
	// design's components.
	Exists map[string]map[string]int64 `yaml:"exists,omitempty"`
}

// Expectation outcome constants.
const (
	OutcomeDesign      = "design"
	OutcomeDiagnostics = "diagnostics"
)

// LoadScenario reads and parses a scenario YAML file. The design path is
// resolved relative to the scenario file. Unknown fields are rejected, so a
// typo in a scenario fails loudly instead of silently weakening the case.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Design != "" && !filepath.IsAbs(scenario.Design) {
		scenario.Design = filepath.Join(filepath.Dir(path), scenario.Design)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and consistent.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Design == "" {
		return fmt.Errorf("design is required")
	}
	if _, err := os.Stat(s.Design); os.IsNotExist(err) {
		return fmt.Errorf("design file not found: %s", s.Design)
	}
	if s.Entry == "" {
		return fmt.Errorf("entry is required")
	}

	switch s.Expect.Outcome {
	case OutcomeDesign:
		if len(s.Expect.Codes) > 0 {
			return fmt.Errorf("expect.codes is only valid for the diagnostics outcome")
		}
	case OutcomeDiagnostics:
		if len(s.Expect.Codes) == 0 {
			return fmt.Errorf("expect.codes is required for the diagnostics outcome")
		}
		if s.Expect.Specializations != 0 || len(s.Expect.Exists) != 0 {
			return fmt.Errorf("expect.specializations and expect.exists are only valid for the design outcome")
		}
	case "":
		return fmt.Errorf("expect.outcome is required")
	default:
		return fmt.Errorf("unknown expect.outcome %q", s.Expect.Outcome)
	}

	return nil
}
