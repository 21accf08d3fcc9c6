package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: one linkage definition and
// what its plan must look like.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Specs lists the CUE files holding the definition. Paths are relative
	// to the scenario file location.
	Specs []string `yaml:"specs"`

	// Linkage names the entry of the linkage struct under test.
	Linkage string `yaml:"linkage"`

	// Expect holds top-level plan properties.
	Expect Expectation `yaml:"expect"`

	// Assertions validate individual parts of the plan.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Expectation describes the expected plan, or the expected rejection.
type Expectation struct {
	// Kind is self, cross or dual.
	Kind string `yaml:"kind,omitempty"`

	// Decollation is the expected decollation flag, when set.
	Decollation *bool `yaml:"decollation,omitempty"`

	// Warnings is the expected number of warnings, when set.
	Warnings *int `yaml:"warnings,omitempty"`

	// Error is a substring of the expected rejection. A scenario with an
	// error expectation passes only if the definition is rejected.
	Error string `yaml:"error,omitempty"`
}

// AssertionType names an assertion.
type AssertionType string

const (
	AssertExpectationKind AssertionType = "expectation_kind"
	AssertSchemaColumns   AssertionType = "schema_columns"
	AssertDDLContains     AssertionType = "ddl_contains"
	AssertQueryContains   AssertionType = "query_contains"
	AssertWarningContains AssertionType = "warning_contains"
)

// Assertion checks one part of a plan. Which fields apply depends on Type.
type Assertion struct {
	Type AssertionType `yaml:"type"`

	// expectation_kind
	Index int    `yaml:"index,omitempty"`
	Kind  string `yaml:"kind,omitempty"`
	Field string `yaml:"field,omitempty"`

	// schema_columns: groups, scores or matches
	Table   string   `yaml:"table,omitempty"`
	Columns []string `yaml:"columns,omitempty"`

	// query_contains: lhs or rhs
	Side string `yaml:"side,omitempty"`

	// ddl_contains, query_contains, warning_contains
	Contains string `yaml:"contains,omitempty"`
}

// LoadScenario loads a scenario file, resolving spec paths relative to the
// file's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath loads a scenario file, resolving relative spec
// paths against basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches misspelled keys.
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i, specPath := range scenario.Specs {
		if !filepath.IsAbs(specPath) && basePath != "" {
			scenario.Specs[i] = filepath.Join(basePath, specPath)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every .yaml file in dir, in lexical order.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Specs) == 0 {
		return fmt.Errorf("specs list is required and must be non-empty")
	}
	if s.Linkage == "" {
		return fmt.Errorf("linkage is required")
	}

	for _, specPath := range s.Specs {
		if _, err := os.Stat(specPath); os.IsNotExist(err) {
			return fmt.Errorf("spec file not found: %s", specPath)
		}
	}

	switch s.Expect.Kind {
	case "", "self", "cross", "dual":
	default:
		return fmt.Errorf("expect.kind: unknown linkage kind %q", s.Expect.Kind)
	}
	if s.Expect.Error != "" && (s.Expect.Kind != "" || s.Expect.Decollation != nil || len(s.Assertions) > 0) {
		return fmt.Errorf("expect.error cannot be combined with plan expectations or assertions")
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertExpectationKind:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for expectation_kind", index)
		}
		if a.Index < 0 {
			return fmt.Errorf("assertions[%d]: index must be non-negative", index)
		}
	case AssertSchemaColumns:
		switch a.Table {
		case "groups", "scores", "matches":
		default:
			return fmt.Errorf("assertions[%d]: table must be groups, scores or matches", index)
		}
	case AssertQueryContains:
		if a.Side != "lhs" && a.Side != "rhs" {
			return fmt.Errorf("assertions[%d]: side must be lhs or rhs", index)
		}
		if a.Contains == "" {
			return fmt.Errorf("assertions[%d]: contains is required for query_contains", index)
		}
	case AssertDDLContains, AssertWarningContains:
		if a.Contains == "" {
			return fmt.Errorf("assertions[%d]: contains is required for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
