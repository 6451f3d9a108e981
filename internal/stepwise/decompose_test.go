package stepwise

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	g "github.com/roach88/querysteps/internal/sqlgrammar"
	"github.com/roach88/querysteps/internal/testutil"
	"github.com/roach88/querysteps/internal/tree"
)

func assertTreeEqual(t *testing.T, want, got tree.NodeModel) {
	t.Helper()
	if !tree.Equal(want, got) {
		wantJSON, _ := json.MarshalIndent(want, "", "  ")
		gotJSON, _ := json.MarshalIndent(got, "", "  ")
		assert.Fail(t, "trees differ", "want:\n%s\ngot:\n%s", wantJSON, gotJSON)
	}
}

func decompose(t *testing.T, model tree.NodeModel) []Step {
	t.Helper()
	steps, err := Decompose(tree.New(model))
	require.NoError(t, err)
	require.NotEmpty(t, steps)
	return steps
}

func TestDecomposeSimpleInnerJoin(t *testing.T) {
	input := testutil.CharakterAuftritt()
	steps := decompose(t, input)

	require.Len(t, steps, 3)
	assert.Equal(t, Cross{Tables: []string{"Charakter", "Auftritt"}}, steps[0].Description)
	assert.Equal(t, On{Expressions: []string{"Auftritt.Charakter_ID = Charakter.Charakter_ID"}}, steps[1].Description)
	assert.Equal(t, Select{Expressions: []string{"Charakter.Charakter_Name"}}, steps[2].Description)

	bareJoin := tree.NodeModel{
		Language: g.Language,
		Name:     g.TypeInnerJoin,
		Children: map[string][]tree.NodeModel{g.CategoryTable: {g.Table("Auftritt", "")}},
	}
	assertTreeEqual(t, g.Query(
		g.Select(g.Star()),
		g.From([]tree.NodeModel{g.Table("Charakter", "")}, bareJoin),
		g.Clauses{},
	), steps[0].Tree)

	fullJoin := input.Children[g.CategoryFrom][0].Children[g.CategoryJoins][0]
	assertTreeEqual(t, g.Query(
		g.Select(g.Star()),
		g.From([]tree.NodeModel{g.Table("Charakter", "")}, fullJoin),
		g.Clauses{},
	), steps[1].Tree)

	assertTreeEqual(t, input, steps[2].Tree)
}

func TestDecomposeImplicitCartesianList(t *testing.T) {
	input := testutil.TagTermin()
	steps := decompose(t, input)

	assert.Equal(t, []Kind{KindCross, KindWhere, KindSelect}, Kinds(steps))
	assert.Equal(t, Cross{Tables: []string{"tag", "termin"}}, steps[0].Description)
	assert.Equal(t, Where{Expressions: []string{"termin.TAG = tag.TAG"}}, steps[1].Description)
	assert.Equal(t, Select{Expressions: []string{"tag.WOCHENTAG"}}, steps[2].Description)

	// The cross join has no filter, so the first snapshot already holds it.
	_, hasWhere := tree.New(steps[0].Tree).LocateOrAbsent(tree.P(g.CategoryWhere, 0))
	assert.False(t, hasWhere)
	join, err := tree.New(steps[0].Tree).Locate(tree.P(g.CategoryFrom, 0, g.CategoryJoins, 0))
	require.NoError(t, err)
	assert.Equal(t, g.TypeCrossJoin, join.TypeName())

	assertTreeEqual(t, input, steps[2].Tree)
}

func TestDecomposeFromTableList(t *testing.T) {
	input := g.Query(
		g.Select(g.Column("tag", "WOCHENTAG")),
		g.From([]tree.NodeModel{g.Table("tag", ""), g.Table("termin", ""), g.Table("raum", "")}),
		g.Clauses{},
	)
	steps := decompose(t, input)

	assert.Equal(t, []Kind{KindCross, KindCross, KindSelect}, Kinds(steps))
	assert.Equal(t, Cross{Tables: []string{"tag", "termin"}}, steps[0].Description)
	assert.Equal(t, Cross{Tables: []string{IntermediateTable, "raum"}}, steps[1].Description)
	assertTreeEqual(t, input, steps[2].Tree)
}

func TestDecomposeTwoJoinsUsesPlaceholder(t *testing.T) {
	input := testutil.TwoJoins()
	steps := decompose(t, input)

	assert.Equal(t, []Kind{KindCross, KindOn, KindCross, KindUsing, KindSelect}, Kinds(steps))
	assert.Equal(t, Cross{Tables: []string{"Charakter", "Auftritt"}}, steps[0].Description)
	assert.Equal(t, Cross{Tables: []string{IntermediateTable, "Geschichte"}}, steps[2].Description)
	assert.Equal(t, Using{Expressions: []string{"Geschichte.Geschichte_ID"}}, steps[3].Description)

	for _, s := range steps[1:] {
		if c, ok := s.Description.(Cross); ok {
			assert.NotEqual(t, "Charakter", c.Tables[0])
		}
	}

	assertTreeEqual(t, input, steps[len(steps)-1].Tree)
}

func TestDecomposeOuterJoinKeepsType(t *testing.T) {
	steps := decompose(t, testutil.TwoJoins())

	joins := tree.New(steps[2].Tree)
	outer, err := joins.Locate(tree.P(g.CategoryFrom, 0, g.CategoryJoins, 1))
	require.NoError(t, err)

	assert.Equal(t, g.TypeOuterJoinUsing, outer.TypeName())
	assert.Equal(t, "left", outer.PropertyOrEmpty(g.PropSideType))
	assert.Empty(t, outer.ChildrenInCategory(g.CategoryUsing))

	inner, err := joins.Locate(tree.P(g.CategoryFrom, 0, g.CategoryJoins, 0))
	require.NoError(t, err)
	assert.Equal(t, g.TypeInnerJoinOn, inner.TypeName(), "earlier joins are complete")
}

func TestDecomposeJoinKinds(t *testing.T) {
	on := g.Binary(g.Column("b", "id"), "=", g.Column("a", "id"))
	onExprs := []string{"b.id = a.id"}
	usingExprs := []string{"b.x", "b.y"}
	b := func() tree.NodeModel { return g.Table("b", "") }

	tests := []struct {
		name       string
		join       tree.NodeModel
		wantType   string
		wantSide   string
		wantFilter Kind
		wantExprs  []string
	}{
		{
			name:     "cross join",
			join:     g.CrossJoin(b()),
			wantType: g.TypeCrossJoin,
		},
		{
			name:       "inner join on",
			join:       g.InnerJoinOn(b(), on),
			wantType:   g.TypeInnerJoin,
			wantFilter: KindOn,
			wantExprs:  onExprs,
		},
		{
			name:       "inner join using",
			join:       g.InnerJoinUsing(b(), g.Column("b", "x"), g.Column("b", "y")),
			wantType:   g.TypeInnerJoin,
			wantFilter: KindUsing,
			wantExprs:  usingExprs,
		},
		{
			name:       "left outer join on",
			join:       g.OuterJoinOn("left", b(), on),
			wantType:   g.TypeOuterJoinOn,
			wantSide:   "left",
			wantFilter: KindOn,
			wantExprs:  onExprs,
		},
		{
			name:       "right outer join on",
			join:       g.OuterJoinOn("right", b(), on),
			wantType:   g.TypeOuterJoinOn,
			wantSide:   "right",
			wantFilter: KindOn,
			wantExprs:  onExprs,
		},
		{
			name:       "full outer join on",
			join:       g.OuterJoinOn("full", b(), on),
			wantType:   g.TypeOuterJoinOn,
			wantSide:   "full",
			wantFilter: KindOn,
			wantExprs:  onExprs,
		},
		{
			name:       "outer join using",
			join:       g.OuterJoinUsing("left", b(), g.Column("b", "x"), g.Column("b", "y")),
			wantType:   g.TypeOuterJoinUsing,
			wantSide:   "left",
			wantFilter: KindUsing,
			wantExprs:  usingExprs,
		},
	}

	joinPath := tree.P(g.CategoryFrom, 0, g.CategoryJoins, 0)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := g.Query(g.Select(g.Star()), g.From([]tree.NodeModel{g.Table("a", "")}, tt.join), g.Clauses{})
			before := tree.MustFingerprint(input)
			steps := decompose(t, input)

			assert.Equal(t, Cross{Tables: []string{"a", "b"}}, steps[0].Description)

			stripped, err := tree.New(steps[0].Tree).Locate(joinPath)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, stripped.TypeName())
			assert.Equal(t, tt.wantSide, stripped.PropertyOrEmpty(g.PropSideType))
			assert.Equal(t, []string{g.CategoryTable}, stripped.Categories())

			if tt.wantFilter == "" {
				assert.Equal(t, []Kind{KindCross, KindSelect}, Kinds(steps))
			} else {
				require.Equal(t, []Kind{KindCross, tt.wantFilter, KindSelect}, Kinds(steps))
				if tt.wantFilter == KindOn {
					assert.Equal(t, On{Expressions: tt.wantExprs}, steps[1].Description)
				} else {
					assert.Equal(t, Using{Expressions: tt.wantExprs}, steps[1].Description)
				}

				restored, err := tree.New(steps[1].Tree).Locate(joinPath)
				require.NoError(t, err)
				assert.Equal(t, tt.join.Name, restored.TypeName())
			}

			assertTreeEqual(t, input, steps[len(steps)-1].Tree)
			assert.Equal(t, before, tree.MustFingerprint(input))
		})
	}
}

func TestDecomposeMixedJoins(t *testing.T) {
	on := g.Binary(g.Column("b", "id"), "=", g.Column("a", "id"))
	where := g.Where(g.Binary(g.Column("a", "id"), ">", g.Constant("0")))
	groupBy := g.GroupBy(g.Column("a", "id"))
	orderBy := g.OrderBy(g.Sort(g.Column("a", "id"), "ASC"))

	input := g.Query(
		g.Select(g.Column("a", "id")),
		g.From(
			[]tree.NodeModel{g.Table("a", ""), g.Table("t2", "")},
			g.OuterJoinOn("right", g.Table("b", ""), on),
			g.InnerJoinUsing(g.Table("c", ""), g.Column("c", "x"), g.Column("c", "y")),
			g.CrossJoin(g.Table("d", "")),
		),
		g.Clauses{Where: &where, GroupBy: &groupBy, OrderBy: &orderBy},
	)
	steps := decompose(t, input)

	assert.Equal(t, "cross cross on cross using cross where groupBy select orderBy ", KindSequence(steps))
	assert.Equal(t, Cross{Tables: []string{"a", "t2"}}, steps[0].Description)
	assert.Equal(t, Cross{Tables: []string{IntermediateTable, "b"}}, steps[1].Description)
	assert.Equal(t, Cross{Tables: []string{IntermediateTable, "c"}}, steps[3].Description)
	assert.Equal(t, Using{Expressions: []string{"c.x", "c.y"}}, steps[4].Description)
	assert.Equal(t, Cross{Tables: []string{IntermediateTable, "d"}}, steps[5].Description)

	assertTreeEqual(t, input, steps[len(steps)-1].Tree)
}

func TestEvaluationOrder(t *testing.T) {
	tests := []struct {
		kinds string
		want  bool
	}{
		{"select ", true},
		{"cross on cross using where groupBy select orderBy ", true},
		{"cross cross select ", true},
		{"where cross select ", false},
		{"select where ", false},
		{"cross on on select ", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EvaluationOrder.MatchString(tt.kinds), tt.kinds)
	}
}

func TestDecomposeGroupedQuery(t *testing.T) {
	input := testutil.Grouped()
	steps := decompose(t, input)

	require.Equal(t, []Kind{KindWhere, KindGroupBy, KindSelect, KindOrderBy}, Kinds(steps))
	assert.Equal(t, Where{Expressions: []string{"termin.RAUM = 'A'"}}, steps[0].Description)
	assert.Equal(t, Select{Expressions: []string{"termin.TAG", "COUNT() termin.TAG"}}, steps[2].Description)
	assert.Equal(t, OrderBy{Expressions: []string{"termin.TAG DESC"}}, steps[3].Description)

	group, ok := steps[1].Description.(GroupBy)
	require.True(t, ok)
	assert.Equal(t, []string{"termin.TAG"}, group.Expressions)
	assert.Equal(t, []int{0}, group.KeyColumns)

	where := g.Where(g.Binary(g.Column("termin", "RAUM"), "=", g.Constant("'A'")))
	assertTreeEqual(t, g.Query(
		g.Select(g.Column("termin", "TAG"), g.Star()),
		g.From([]tree.NodeModel{g.Table("termin", "")}),
		g.Clauses{Where: &where},
	), group.PreAggregation)

	groupBy := g.GroupBy(g.Column("termin", "TAG"))
	assertTreeEqual(t, g.Query(
		g.Select(g.Star()),
		g.From([]tree.NodeModel{g.Table("termin", "")}),
		g.Clauses{Where: &where, GroupBy: &groupBy},
	), steps[1].Tree)

	assertTreeEqual(t, input, steps[3].Tree)
}

func TestDecomposeMinimalQuery(t *testing.T) {
	input := testutil.Minimal()
	steps := decompose(t, input)

	require.Len(t, steps, 1)
	assert.Equal(t, Select{Expressions: []string{"*"}}, steps[0].Description)
	assertTreeEqual(t, input, steps[0].Tree)
}

func TestDecomposeEmptyTree(t *testing.T) {
	steps, err := Decompose(tree.Tree{})
	require.NoError(t, err)
	assert.NotNil(t, steps)
	assert.Empty(t, steps)
}

func TestDecomposeMissingFrom(t *testing.T) {
	input := tree.NodeModel{
		Language: g.Language,
		Name:     g.TypeQuerySelect,
		Children: map[string][]tree.NodeModel{g.CategorySelect: {g.Select(g.Star())}},
	}

	_, err := Decompose(tree.New(input))
	require.Error(t, err)
	assert.True(t, tree.IsNotFound(err))
	assert.Contains(t, err.Error(), "first FROM table")
}

func TestDecomposeJoinWithoutTable(t *testing.T) {
	broken := tree.NodeModel{Language: g.Language, Name: g.TypeCrossJoin}
	input := g.Query(g.Select(g.Star()), g.From([]tree.NodeModel{g.Table("tag", "")}, broken), g.Clauses{})

	_, err := Decompose(tree.New(input))
	require.Error(t, err)
	assert.True(t, tree.IsCardinalityError(err))
}

func TestDecomposeInvariants(t *testing.T) {
	fixtures := map[string]tree.NodeModel{
		"inner join": testutil.CharakterAuftritt(),
		"cartesian":  testutil.TagTermin(),
		"two joins":  testutil.TwoJoins(),
		"grouped":    testutil.Grouped(),
		"minimal":    testutil.Minimal(),
	}

	for name, input := range fixtures {
		t.Run(name, func(t *testing.T) {
			before := tree.MustFingerprint(input)
			steps := decompose(t, input)

			assert.Regexp(t, EvaluationOrder, KindSequence(steps))
			assertTreeEqual(t, input, steps[len(steps)-1].Tree)
			assert.Equal(t, before, tree.MustFingerprint(input), "input must not change")

			// A filter step always follows the cross step for the same join.
			for i, s := range steps {
				switch s.Description.(type) {
				case On, Using:
					require.Greater(t, i, 0)
					assert.Equal(t, KindCross, steps[i-1].Description.Kind())
				}
			}
		})
	}
}

func TestDecomposeKeepsRootProperties(t *testing.T) {
	input := testutil.CharakterAuftritt()
	input.Properties = map[string]string{"dialect": "sqlite"}

	for _, s := range decompose(t, input) {
		assert.Equal(t, "sqlite", s.Tree.Properties["dialect"])
	}
}

func TestDecomposerCustomPlaceholder(t *testing.T) {
	steps, err := New(Options{IntermediateTable: "(previous)"}).Decompose(tree.New(testutil.TwoJoins()))
	require.NoError(t, err)

	assert.Equal(t, Cross{Tables: []string{"(previous)", "Geschichte"}}, steps[2].Description)
}

func TestDecomposeConcurrent(t *testing.T) {
	input := tree.New(testutil.TwoJoins())
	want, err := Decompose(input)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := Decompose(input)
			assert.NoError(t, err)
			assert.Equal(t, Kinds(want), Kinds(got))
		}()
	}
	wg.Wait()
}

func TestStepJSONRoundTrip(t *testing.T) {
	steps := decompose(t, testutil.Grouped())

	data, err := json.Marshal(steps)
	require.NoError(t, err)

	var decoded []Step
	require.NoError(t, json.Unmarshal(data, &decoded))

	require.Len(t, decoded, len(steps))
	for i := range steps {
		assert.Equal(t, steps[i].Description.Kind(), decoded[i].Description.Kind())
		assertTreeEqual(t, steps[i].Tree, decoded[i].Tree)
	}

	group := decoded[1].Description.(GroupBy)
	assert.Equal(t, []int{0}, group.KeyColumns)
	assertTreeEqual(t, steps[1].Description.(GroupBy).PreAggregation, group.PreAggregation)
}

func TestUnmarshalDescriptionUnknownType(t *testing.T) {
	_, err := UnmarshalDescription([]byte(`{"type":"having"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "having")
}
