package sqlexpr

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	g "github.com/roach88/querysteps/internal/sqlgrammar"
	"github.com/roach88/querysteps/internal/tree"
)

func nodes(models ...tree.NodeModel) []tree.Node {
	out := make([]tree.Node, len(models))
	for i, m := range models {
		out[i] = tree.NewNode(m)
	}
	return out
}

// captureLogs redirects the default logger for the duration of the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return buf
}

func TestCollectStarOperator(t *testing.T) {
	assert.Equal(t, []string{"*"}, Collect(nodes(g.Star())))
}

func TestCollectEmpty(t *testing.T) {
	got := Collect(nil)
	assert.NotNil(t, got)
	assert.Equal(t, []string{}, got)
}

func TestCollect(t *testing.T) {
	tests := []struct {
		name string
		in   []tree.NodeModel
		want []string
	}{
		{
			name: "column",
			in:   []tree.NodeModel{g.Column("Charakter", "Charakter_Name")},
			want: []string{"Charakter.Charakter_Name"},
		},
		{
			name: "constant",
			in:   []tree.NodeModel{g.Constant("'Montag'")},
			want: []string{"'Montag'"},
		},
		{
			name: "binary",
			in: []tree.NodeModel{
				g.Binary(g.Column("Auftritt", "Charakter_ID"), "=", g.Column("Charakter", "Charakter_ID")),
			},
			want: []string{"Auftritt.Charakter_ID", "=", "Charakter.Charakter_ID"},
		},
		{
			name: "nested binary",
			in: []tree.NodeModel{
				g.Binary(g.Binary(g.Column("a", "x"), "<", g.Constant("3")), "AND", g.Column("b", "y")),
			},
			want: []string{"a.x", "<", "3", "AND", "b.y"},
		},
		{
			name: "parameter contributes nothing",
			in:   []tree.NodeModel{g.Binary(g.Column("a", "x"), "=", g.Parameter("p"))},
			want: []string{"a.x", "="},
		},
		{
			name: "parentheses contribute nothing",
			in:   []tree.NodeModel{g.Paren(g.Column("a", "x")), g.Constant("1")},
			want: []string{"1"},
		},
		{
			name: "function call renders name before arguments",
			in:   []tree.NodeModel{g.Func("COUNT", g.Column("termin", "TAG"))},
			want: []string{"COUNT()", "termin.TAG"},
		},
		{
			name: "function call without arguments",
			in:   []tree.NodeModel{g.Func("RANDOM")},
			want: []string{"RANDOM()"},
		},
		{
			name: "sort order",
			in:   []tree.NodeModel{g.Sort(g.Column("tag", "TAG"), "DESC"), g.Sort(g.Column("tag", "NAME"), "ASC")},
			want: []string{"tag.TAG", "DESC", "tag.NAME", "ASC"},
		},
		{
			name: "several top level expressions keep order",
			in:   []tree.NodeModel{g.Column("a", "x"), g.Star(), g.Column("b", "y")},
			want: []string{"a.x", "*", "b.y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Collect(nodes(tt.in...)))
		})
	}
}

func TestCollectUnknownIsLoggedAndSkipped(t *testing.T) {
	logs := captureLogs(t)

	unknown := tree.NodeModel{Language: "sql", Name: "caseWhen"}
	got := Collect(nodes(g.Column("a", "x"), unknown))

	assert.Equal(t, []string{"a.x"}, got)
	assert.Contains(t, logs.String(), "unrecognized expression node")
	assert.Contains(t, logs.String(), "sql.caseWhen")
}

func TestCollectBinaryOperatorProperty(t *testing.T) {
	bare := tree.NodeModel{
		Language:   "sql",
		Name:       g.TypeBinaryExpression,
		Properties: map[string]string{g.PropOperator: "<>"},
		Children: map[string][]tree.NodeModel{
			g.CategoryLHS: {g.Column("a", "x")},
			g.CategoryRHS: {g.Constant("2")},
		},
	}
	assert.Equal(t, []string{"a.x", "<>", "2"}, Collect(nodes(bare)))
}

func TestRender(t *testing.T) {
	got := Render(nodes(
		g.Binary(g.Column("termin", "TAG"), "=", g.Column("tag", "TAG")),
		g.Column("tag", "WOCHENTAG"),
		g.Paren(g.Constant("1")),
	))
	assert.Equal(t, []string{"termin.TAG = tag.TAG", "tag.WOCHENTAG", ""}, got)
	assert.Equal(t, []string{}, Render(nil))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		in   tree.NodeModel
		want Expression
	}{
		{"star", g.Star(), StarOperator{}},
		{"column", g.Column("t", "c"), ColumnName{RefTableName: "t", ColumnName: "c"}},
		{"constant", g.Constant("7"), Constant{Value: "7"}},
		{"parameter", g.Parameter("p"), Parameter{Name: "p"}},
		{"unknown", tree.NodeModel{Language: "dxml", Name: "element"}, Unknown{Type: tree.QualifiedTypeName{LanguageName: "dxml", TypeName: "element"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tree.NewNode(tt.in)))
		})
	}

	fn, ok := Classify(tree.NewNode(g.Func("MAX", g.Column("t", "c")))).(FunctionCall)
	assert.True(t, ok)
	assert.Equal(t, "MAX", fn.Name)
	assert.Len(t, fn.Arguments, 1)

	sort, ok := Classify(tree.NewNode(g.Sort(g.Column("t", "c"), "ASC"))).(SortOrder)
	assert.True(t, ok)
	assert.Equal(t, "ASC", sort.Order)
}
