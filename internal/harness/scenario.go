package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/beaconq/internal/entity"
	"github.com/roach88/beaconq/internal/filter"
	"github.com/roach88/beaconq/internal/ontology"
)

// Scenario defines a compiler conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Registry is an optional CUE registry file. Empty means the default
	// layout.
	Registry string `yaml:"registry,omitempty"`

	// OntologyFile is an optional YAML ontology fixture file.
	OntologyFile string `yaml:"ontology_file,omitempty"`

	// Ontology is an inline fixture, merged over OntologyFile.
	Ontology *ontology.Fixture `yaml:"ontology,omitempty"`

	// Steps are compiled in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the compiled steps as a whole.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one compile request.
type Step struct {
	// Name identifies the step in assertions and the trace.
	Name string `yaml:"name"`

	// Target is the entity type searched ("individuals", "Biosample", ...).
	Target string `yaml:"target"`

	// Scope is the default ontology scope. Empty means Target.
	Scope string `yaml:"scope,omitempty"`

	IDColumn  string `yaml:"id_column,omitempty"`
	OmitWhere bool   `yaml:"omit_where,omitempty"`
	Strict    bool   `yaml:"strict,omitempty"`

	Filters []filter.Spec `yaml:"filters"`

	// Expect specifies the compiled result. If nil, only the assertions
	// apply.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected compile outcome.
type ExpectClause struct {
	// Predicate is the exact predicate text. Nil skips the check; an empty
	// string expects no constraint.
	Predicate *string `yaml:"predicate,omitempty"`

	// Params are the expected parameters, checked whenever Predicate is set.
	Params []string `yaml:"params,omitempty"`

	// Error is the expected error code, e.g. UNSUPPORTED_OPERATOR.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the compiled steps.
type Assertion struct {
	// Type specifies the assertion type:
	// - "params_balanced": parameter count equals placeholder count
	// - "predicate_contains": step predicate contains Text
	// - "membership_count": step predicate has Count membership clauses
	// - "idempotent": recompiling yields identical output
	Type string `yaml:"type"`

	// Step names the step checked (predicate_contains, membership_count).
	Step string `yaml:"step,omitempty"`

	// Text is the expected substring (predicate_contains).
	Text string `yaml:"text,omitempty"`

	// Count is the expected number of clauses (membership_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertParamsBalanced    = "params_balanced"
	AssertPredicateContains = "predicate_contains"
	AssertMembershipCount   = "membership_count"
	AssertIdempotent        = "idempotent"
)

// LoadScenario reads and parses a scenario YAML file. Registry and ontology
// paths are resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	scenario.Registry = resolve(base, scenario.Registry)
	scenario.OntologyFile = resolve(base, scenario.OntologyFile)

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML without resolving or validating paths.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "step:" vs "steps:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for _, p := range []string{s.Registry, s.OntologyFile} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", p)
		}
	}

	names := make(map[string]bool, len(s.Steps))
	for i, step := range s.Steps {
		if step.Name == "" {
			return fmt.Errorf("steps[%d]: name is required", i)
		}
		if names[step.Name] {
			return fmt.Errorf("steps[%d]: duplicate name %q", i, step.Name)
		}
		names[step.Name] = true

		if step.Target == "" {
			return fmt.Errorf("steps[%d]: target is required", i)
		}
		if _, err := entity.ParseType(step.Target); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
		if step.Scope != "" {
			if _, err := entity.ParseType(step.Scope); err != nil {
				return fmt.Errorf("steps[%d]: scope: %w", i, err)
			}
		}
		if e := step.Expect; e != nil {
			if e.Error != "" && e.Predicate != nil {
				return fmt.Errorf("steps[%d].expect: error and predicate are exclusive", i)
			}
			if e.Error == "" && e.Predicate == nil {
				return fmt.Errorf("steps[%d].expect: predicate or error is required", i)
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, names); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion, steps map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertParamsBalanced, AssertIdempotent:
	case AssertPredicateContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for predicate_contains", index)
		}
	case AssertMembershipCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for membership_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.Type == AssertPredicateContains || a.Type == AssertMembershipCount {
		if !steps[a.Step] {
			return fmt.Errorf("assertions[%d]: unknown step %q", index, a.Step)
		}
	}
	return nil
}
