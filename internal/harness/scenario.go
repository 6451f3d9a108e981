package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/roach88/querysteps/internal/tree"
)

// Scenario defines a decomposition test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name" validate:"required"`

	// Description explains what this scenario validates.
	Description string `yaml:"description" validate:"required"`

	// Query is the path of a query file (.json, .yaml, .yml or .cue).
	// Relative paths are resolved against the scenario file's directory.
	Query string `yaml:"query,omitempty" validate:"required_without=QueryTree,excluded_with=QueryTree"`

	// QueryTree is an inline query, used instead of Query.
	QueryTree *tree.NodeModel `yaml:"query_tree,omitempty"`

	// IntermediateTable overrides the placeholder in cross steps.
	IntermediateTable string `yaml:"intermediate_table,omitempty"`

	// SampleData is a SQL script creating the tables the query reads.
	// Required by row_count and group_count assertions.
	SampleData string `yaml:"sample_data,omitempty"`

	// Steps are the expected steps, in order.
	Steps []ExpectedStep `yaml:"steps" validate:"required,min=1,dive"`

	// Assertions are additional checks on the run.
	Assertions []Assertion `yaml:"assertions,omitempty" validate:"dive"`
}

// ExpectedStep describes one expected step. Tables, Expressions and
// KeyColumns are compared only when given.
type ExpectedStep struct {
	Kind        string   `yaml:"kind" validate:"required,oneof=cross on using where groupBy select orderBy"`
	Tables      []string `yaml:"tables,omitempty" validate:"omitempty,len=2"`
	Expressions []string `yaml:"expressions,omitempty"`
	KeyColumns  []int    `yaml:"key_columns,omitempty" validate:"dive,min=0"`
}

// Assertion is an additional check on a run.
type Assertion struct {
	Type  string `yaml:"type" validate:"required,oneof=round_trip evaluation_order row_count group_count"`
	Step  int    `yaml:"step,omitempty" validate:"min=0"`
	Count int    `yaml:"count,omitempty" validate:"min=0"`
}

// Assertion type constants.
const (
	AssertRoundTrip       = "round_trip"
	AssertEvaluationOrder = "evaluation_order"
	AssertRowCount        = "row_count"
	AssertGroupCount      = "group_count"
)

// scenarioValidate checks struct tags on scenarios.
var scenarioValidate = validator.New()

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "step:" vs "steps:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Query != "" && !filepath.IsAbs(scenario.Query) {
		scenario.Query = filepath.Join(filepath.Dir(path), scenario.Query)
	}

	if err := ValidateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// ValidateScenario checks required fields and the rules that span fields.
func ValidateScenario(s *Scenario) error {
	if err := scenarioValidate.Struct(s); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("%s: failed %q check", fe.Namespace(), fe.Tag())
		}
		return err
	}

	if s.Query != "" {
		if _, err := os.Stat(s.Query); err != nil {
			return fmt.Errorf("query file not found: %s", s.Query)
		}
	}

	for i, a := range s.Assertions {
		switch a.Type {
		case AssertRowCount, AssertGroupCount:
			if s.SampleData == "" {
				return fmt.Errorf("assertions[%d]: %s requires sample_data", i, a.Type)
			}
			if a.Step >= len(s.Steps) {
				return fmt.Errorf("assertions[%d]: step %d out of range [0,%d)", i, a.Step, len(s.Steps))
			}
		}
		if a.Type == AssertGroupCount && s.Steps[a.Step].Kind != "groupBy" {
			return fmt.Errorf("assertions[%d]: group_count needs a groupBy step, step %d is %s", i, a.Step, s.Steps[a.Step].Kind)
		}
	}

	return nil
}
