package harness

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/querysteps/internal/canonical"
	"github.com/roach88/querysteps/internal/querysql"
	"github.com/roach88/querysteps/internal/stepwise"
)

// Snapshot renders the steps of a result as canonical JSON:
//
//	{"scenario_name":...,"steps":[{"kind":"cross","sql":"SELECT ...","tables":[...]},...]}
//
// Each step carries its description and the SQL of its snapshot; groupBy
// steps add the SQL of their pre-aggregation query.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	compiler := querysql.NewCompiler()

	steps := make([]any, len(result.Steps))
	for i, step := range result.Steps {
		entry, err := snapshotStep(compiler, step)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		steps[i] = entry
	}

	return canonical.Marshal(map[string]any{
		"scenario_name": scenarioName,
		"steps":         steps,
	})
}

func snapshotStep(compiler *querysql.Compiler, step stepwise.Step) (map[string]any, error) {
	sqlText, _, err := compiler.Compile(step.Tree)
	if err != nil {
		return nil, err
	}

	entry := map[string]any{
		"kind": string(step.Description.Kind()),
		"sql":  sqlText,
	}
	tables, exprs, keys := describe(step.Description)
	if len(tables) > 0 {
		entry["tables"] = tables
	}
	if len(exprs) > 0 {
		entry["expressions"] = exprs
	}
	if g, ok := step.Description.(stepwise.GroupBy); ok {
		pre, _, err := compiler.Compile(g.PreAggregation)
		if err != nil {
			return nil, fmt.Errorf("pre-aggregation: %w", err)
		}
		entry["pre_aggregation_sql"] = pre
		entry["key_columns"] = keys
	}
	return entry, nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
