package harness

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/querysteps/internal/querysource"
	"github.com/roach88/querysteps/internal/querysql"
	"github.com/roach88/querysteps/internal/resultset"
	"github.com/roach88/querysteps/internal/stepwise"
	"github.com/roach88/querysteps/internal/store"
	"github.com/roach88/querysteps/internal/tree"
)

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Load the query (file or inline)
//  2. Decompose it
//  3. Compare the steps with the expected steps
//  4. With sample data, execute every step in a fresh in-memory database
//  5. Evaluate assertions
//
// Mismatches are reported in the Result; an error means the scenario could
// not run at all.
func Run(scenario *Scenario) (*Result, error) {
	query, err := loadQuery(scenario)
	if err != nil {
		return nil, err
	}

	steps, err := stepwise.New(stepwise.Options{IntermediateTable: scenario.IntermediateTable}).
		Decompose(tree.New(query))
	if err != nil {
		return nil, fmt.Errorf("decompose: %w", err)
	}

	result := NewResult()
	result.Steps = steps

	compareSteps(scenario.Steps, steps, result)

	var groups map[int]int
	if scenario.SampleData != "" {
		result.RowCounts, groups, err = executeSteps(context.Background(), scenario.SampleData, steps)
		if err != nil {
			return nil, err
		}
	}

	for i, a := range scenario.Assertions {
		if msg := evaluate(a, query, result, groups); msg != "" {
			result.AddError(fmt.Sprintf("assertions[%d] %s: %s", i, a.Type, msg))
		}
	}

	slog.Debug("scenario finished",
		"scenario", scenario.Name,
		"steps", len(steps),
		"pass", result.Pass)
	return result, nil
}

func loadQuery(s *Scenario) (tree.NodeModel, error) {
	if s.QueryTree != nil {
		if err := querysource.CheckShape(*s.QueryTree); err != nil {
			return tree.NodeModel{}, fmt.Errorf("query_tree: %w", err)
		}
		return s.QueryTree.Clone(), nil
	}
	return querysource.LoadFile(s.Query)
}

func compareSteps(want []ExpectedStep, got []stepwise.Step, result *Result) {
	if len(want) != len(got) {
		result.AddError(fmt.Sprintf("expected %d steps, got %d (%s)", len(want), len(got), stepwise.KindSequence(got)))
	}

	for i := range min(len(want), len(got)) {
		w, g := want[i], got[i]
		if string(g.Description.Kind()) != w.Kind {
			result.AddError(fmt.Sprintf("steps[%d]: expected kind %s, got %s", i, w.Kind, g.Description.Kind()))
			continue
		}

		tables, exprs, keys := describe(g.Description)
		if w.Tables != nil && !slices.Equal(w.Tables, tables) {
			result.AddError(fmt.Sprintf("steps[%d]: expected tables %q, got %q", i, w.Tables, tables))
		}
		if w.Expressions != nil && !slices.Equal(w.Expressions, exprs) {
			result.AddError(fmt.Sprintf("steps[%d]: expected expressions %q, got %q", i, w.Expressions, exprs))
		}
		if w.KeyColumns != nil && !slices.Equal(w.KeyColumns, keys) {
			result.AddError(fmt.Sprintf("steps[%d]: expected key_columns %v, got %v", i, w.KeyColumns, keys))
		}
	}
}

func describe(d stepwise.Description) (tables, exprs []string, keys []int) {
	switch desc := d.(type) {
	case stepwise.Cross:
		return desc.Tables, nil, nil
	case stepwise.On:
		return nil, desc.Expressions, nil
	case stepwise.Using:
		return nil, desc.Expressions, nil
	case stepwise.Where:
		return nil, desc.Expressions, nil
	case stepwise.GroupBy:
		return nil, desc.Expressions, desc.KeyColumns
	case stepwise.Select:
		return nil, desc.Expressions, nil
	case stepwise.OrderBy:
		return nil, desc.Expressions, nil
	default:
		return nil, nil, nil
	}
}

// executeSteps runs every step on a fresh in-memory database seeded with
// sampleData. It returns the row count per step and, for groupBy steps,
// the number of buckets keyed by step index.
func executeSteps(ctx context.Context, sampleData string, steps []stepwise.Step) ([]int, map[int]int, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if err := st.Seed(ctx, sampleData); err != nil {
		return nil, nil, err
	}

	compiler := querysql.NewCompiler()
	counts := make([]int, len(steps))
	groups := make(map[int]int)
	for i, step := range steps {
		table, err := runTree(ctx, st, compiler, step.Tree)
		if err != nil {
			return nil, nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		counts[i] = len(table.Rows)

		if g, ok := step.Description.(stepwise.GroupBy); ok {
			pre, err := runTree(ctx, st, compiler, g.PreAggregation)
			if err != nil {
				return nil, nil, fmt.Errorf("steps[%d] pre-aggregation: %w", i, err)
			}
			buckets, err := resultset.Group(pre, g.KeyColumns)
			if err != nil {
				return nil, nil, fmt.Errorf("steps[%d] grouping: %w", i, err)
			}
			groups[i] = len(buckets.Buckets)
		}
	}
	return counts, groups, nil
}

func runTree(ctx context.Context, st *store.Store, compiler *querysql.Compiler, m tree.NodeModel) (resultset.Table, error) {
	sqlText, params, err := compiler.Compile(m)
	if err != nil {
		return resultset.Table{}, err
	}
	return st.Query(ctx, sqlText, params...)
}

// evaluate returns a failure message, or "" if the assertion holds.
func evaluate(a Assertion, query tree.NodeModel, result *Result, groups map[int]int) string {
	switch a.Type {
	case AssertRoundTrip:
		if len(result.Steps) == 0 {
			return "no steps"
		}
		if !tree.Equal(query, result.Steps[len(result.Steps)-1].Tree) {
			return "last step does not reproduce the query"
		}
	case AssertEvaluationOrder:
		if kinds := stepwise.KindSequence(result.Steps); !stepwise.EvaluationOrder.MatchString(kinds) {
			return fmt.Sprintf("kinds %q are out of evaluation order", strings.TrimSpace(kinds))
		}
	case AssertRowCount:
		if a.Step >= len(result.RowCounts) {
			return fmt.Sprintf("step %d was not executed", a.Step)
		}
		if got := result.RowCounts[a.Step]; got != a.Count {
			return fmt.Sprintf("expected %d rows, got %d", a.Count, got)
		}
	case AssertGroupCount:
		got, ok := groups[a.Step]
		if !ok {
			return fmt.Sprintf("step %d is not a groupBy step", a.Step)
		}
		if got != a.Count {
			return fmt.Sprintf("expected %d groups, got %d", a.Count, got)
		}
	default:
		return fmt.Sprintf("unknown assertion type %q", a.Type)
	}
	return ""
}
