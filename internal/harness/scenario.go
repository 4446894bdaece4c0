package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rxflow/internal/store"
)

// Scenario defines one end-to-end workflow test.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description"`

	// Workflow is the path of the workflow document to compile and run.
	// LoadScenario resolves it relative to the scenario file.
	Workflow string `yaml:"workflow"`

	// RunID is the fixed run ID. If empty, testutil.DefaultRunID is used.
	RunID string `yaml:"run_id,omitempty"`

	// MaxValues overrides the engine's value quota.
	MaxValues int `yaml:"max_values,omitempty"`

	// Expect describes the expected outcome of the run.
	Expect *Expect `yaml:"expect,omitempty"`

	// Assertions validate the stored trace and state.
	// Supported types: trace_contains, trace_order, trace_count, final_state
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Expect is the expected outcome of a scenario run.
type Expect struct {
	// Status is the expected terminal run status.
	Status string `yaml:"status,omitempty"`

	// Values are the expected emitted values, compared in order by their
	// canonical JSON encoding. An explicit empty list expects no values.
	Values []any `yaml:"values,omitempty"`

	// Error is the expected build or run error code.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": a next notification carries Value
	// - "trace_order": Values appear in this order, gaps allowed
	// - "trace_count": exactly Count notifications of Kind (and Value, if set)
	// - "final_state": query a store table and verify expected columns
	Type string `yaml:"type"`

	// Value is the expected value (trace_contains, trace_count).
	Value any `yaml:"value,omitempty"`

	// Values is the expected value order (trace_order).
	Values []any `yaml:"values,omitempty"`

	// Kind is the notification kind counted by trace_count. Default: next.
	Kind string `yaml:"kind,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Table is the store table name (final_state).
	Table string `yaml:"table,omitempty"`

	// Where specifies query filters (final_state). All fields must match.
	Where map[string]any `yaml:"where,omitempty"`

	// Expect contains expected column values (final_state). Subset match.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file. The workflow path is
// resolved relative to the scenario's directory.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Workflow != "" && !filepath.IsAbs(scenario.Workflow) {
		scenario.Workflow = filepath.Join(filepath.Dir(path), scenario.Workflow)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Workflow == "" {
		return fmt.Errorf("workflow is required")
	}
	if _, err := os.Stat(s.Workflow); os.IsNotExist(err) {
		return fmt.Errorf("workflow file not found: %s", s.Workflow)
	}
	if s.MaxValues < 0 {
		return fmt.Errorf("max_values must be non-negative")
	}
	if s.Expect == nil && len(s.Assertions) == 0 {
		return fmt.Errorf("expect or assertions is required")
	}

	if e := s.Expect; e != nil {
		if e.Error != "" && e.Values != nil {
			return fmt.Errorf("expect: values and error are mutually exclusive")
		}
		switch store.Status(e.Status) {
		case "", store.StatusCompleted, store.StatusFailed, store.StatusCancelled:
		default:
			return fmt.Errorf("expect: unknown status %q", e.Status)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Values) == 0 {
			return fmt.Errorf("assertions[%d]: values list is required for trace_order", index)
		}
	case AssertTraceCount:
		switch store.Kind(a.Kind) {
		case "", store.KindNext, store.KindError, store.KindCompleted:
		default:
			return fmt.Errorf("assertions[%d]: unknown notification kind %q", index, a.Kind)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
