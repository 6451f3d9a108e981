package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querysteps/internal/stepwise"
	"github.com/roach88/querysteps/internal/testutil"
)

func loadTestdata(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestRun_Testdata(t *testing.T) {
	tests := []struct {
		name      string
		kinds     []stepwise.Kind
		rowCounts []int
	}{
		{
			name:      "inner_join",
			kinds:     []stepwise.Kind{stepwise.KindCross, stepwise.KindOn, stepwise.KindSelect},
			rowCounts: []int{12, 3, 3},
		},
		{
			name: "two_joins",
			kinds: []stepwise.Kind{
				stepwise.KindCross, stepwise.KindOn, stepwise.KindCross, stepwise.KindUsing, stepwise.KindSelect,
			},
			rowCounts: []int{12, 3, 6, 3, 3},
		},
		{
			name: "grouped",
			kinds: []stepwise.Kind{
				stepwise.KindWhere, stepwise.KindGroupBy, stepwise.KindSelect, stepwise.KindOrderBy,
			},
			rowCounts: []int{3, 2, 2, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Run(loadTestdata(t, tt.name))
			require.NoError(t, err)

			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
			assert.Equal(t, tt.kinds, stepwise.Kinds(result.Steps))
			assert.Equal(t, tt.rowCounts, result.RowCounts)
		})
	}
}

func TestRun_InlineTreeWithoutSampleData(t *testing.T) {
	query := testutil.TagTermin()
	scenario := &Scenario{
		Name:        "tag_termin",
		Description: "implicit product",
		QueryTree:   &query,
		Steps: []ExpectedStep{
			{Kind: "cross", Tables: []string{"tag", "termin"}},
			{Kind: "where", Expressions: []string{"termin.TAG = tag.TAG"}},
			{Kind: "select", Expressions: []string{"tag.WOCHENTAG"}},
		},
		Assertions: []Assertion{{Type: AssertRoundTrip}, {Type: AssertEvaluationOrder}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Nil(t, result.RowCounts)
}

func TestRun_StepMismatches(t *testing.T) {
	query := testutil.CharakterAuftritt()
	scenario := &Scenario{
		Name:        "mismatch",
		Description: "wrong expectations",
		QueryTree:   &query,
		Steps: []ExpectedStep{
			{Kind: "cross", Tables: []string{"Auftritt", "Charakter"}},
			{Kind: "where"},
			{Kind: "select", Expressions: []string{"Charakter.Charakter_ID"}},
			{Kind: "orderBy"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "expected 4 steps, got 3")
	assert.Contains(t, result.Errors[1], "steps[0]: expected tables")
	assert.Contains(t, result.Errors[2], "steps[1]: expected kind where, got on")
	assert.Contains(t, result.Errors[3], "steps[2]: expected expressions")
}

func TestRun_AssertionFailures(t *testing.T) {
	scenario := loadTestdata(t, "grouped")
	scenario.Assertions = []Assertion{
		{Type: AssertRowCount, Step: 0, Count: 5},
		{Type: AssertGroupCount, Step: 1, Count: 3},
		{Type: AssertGroupCount, Step: 2, Count: 1},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "expected 5 rows, got 3")
	assert.Contains(t, result.Errors[1], "expected 3 groups, got 2")
	assert.Contains(t, result.Errors[2], "step 2 is not a groupBy step")
}

func TestRun_BadSampleData(t *testing.T) {
	scenario := loadTestdata(t, "inner_join")
	scenario.SampleData = "CREATE TABLE Charakter (Charakter_ID INTEGER);"

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "steps[0]")
}

func TestRun_InvalidInlineTree(t *testing.T) {
	query := testutil.Minimal()
	query.Language = ""
	scenario := &Scenario{Name: "bad", Description: "bad", QueryTree: &query, Steps: []ExpectedStep{{Kind: "select"}}}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query_tree")
}
