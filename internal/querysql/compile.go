package querysql

import (
	"fmt"
	"strings"

	g "github.com/roach88/querysteps/internal/sqlgrammar"
	"github.com/roach88/querysteps/internal/sqlexpr"
	"github.com/roach88/querysteps/internal/tree"
)

// Compiler renders querySelect trees as SQLite SQL text.
//
// CRITICAL: parameter nodes are never interpolated. Each becomes a "?"
// placeholder and its value is taken from BoundValues.
type Compiler struct {
	// BoundValues maps parameter names to their values. A parameter with
	// no entry binds NULL.
	BoundValues map[string]any
}

// NewCompiler creates a Compiler with no bound values.
func NewCompiler() *Compiler {
	return &Compiler{
		BoundValues: make(map[string]any),
	}
}

// Compile converts a querySelect snapshot to SQL.
// Returns (sql, params, error).
//
// Unknown node types are errors: unlike token flattening, a query that
// drops part of its text would silently change meaning.
func (c *Compiler) Compile(m tree.NodeModel) (string, []any, error) {
	if m.Name == "" {
		return "", nil, fmt.Errorf("cannot compile empty tree")
	}
	root := tree.NewNode(m)
	if root.TypeName() != g.TypeQuerySelect {
		return "", nil, fmt.Errorf("unsupported root type: %s", root.QualifiedTypeName())
	}

	w := &writer{c: c}
	w.query(root)
	if w.err != nil {
		return "", nil, w.err
	}
	return w.sb.String(), w.params, nil
}

// writer accumulates SQL text and parameters. The first error stops all
// further output.
type writer struct {
	c      *Compiler
	sb     strings.Builder
	params []any
	err    error
}

func (w *writer) write(parts ...string) {
	for _, p := range parts {
		w.sb.WriteString(p)
	}
}

func (w *writer) fail(format string, args ...any) {
	if w.err == nil {
		w.err = fmt.Errorf(format, args...)
	}
}

func (w *writer) query(root tree.Node) {
	sel, err := root.ChildInCategory(g.CategorySelect)
	if err != nil {
		w.fail("compile SELECT: %w", err)
		return
	}
	from, err := root.ChildInCategory(g.CategoryFrom)
	if err != nil {
		w.fail("compile FROM: %w", err)
		return
	}

	w.write("SELECT ")
	if sel.PropertyOrEmpty(g.PropDistinct) == "true" {
		w.write("DISTINCT ")
	}
	w.list(sel.ChildrenInCategory(g.CategoryColumns))

	w.write(" FROM ")
	w.from(from)

	if where, ok := single(root, g.CategoryWhere); ok {
		w.write(" WHERE ")
		w.list(where.ChildrenInCategory(g.CategoryExpressions))
	}
	if groupBy, ok := single(root, g.CategoryGroupBy); ok {
		w.write(" GROUP BY ")
		w.list(groupBy.ChildrenInCategory(g.CategoryExpressions))
	}
	if orderBy, ok := single(root, g.CategoryOrderBy); ok {
		w.write(" ORDER BY ")
		w.list(orderBy.ChildrenInCategory(g.CategoryExpressions))
	}
}

func single(n tree.Node, category string) (tree.Node, bool) {
	children := n.ChildrenInCategory(category)
	if len(children) == 0 {
		return tree.Node{}, false
	}
	return children[0], true
}

func (w *writer) from(from tree.Node) {
	tables := from.ChildrenInCategory(g.CategoryTables)
	if len(tables) == 0 {
		w.fail("compile FROM: no tables")
		return
	}
	for i, t := range tables {
		if i > 0 {
			w.write(", ")
		}
		w.table(t)
	}
	for _, j := range from.ChildrenInCategory(g.CategoryJoins) {
		w.write(" ")
		w.join(j)
	}
}

func (w *writer) table(t tree.Node) {
	if t.TypeName() != g.TypeTableIntroduction {
		w.fail("unsupported table node: %s", t.QualifiedTypeName())
		return
	}
	w.write(t.PropertyOrEmpty(g.PropName))
	if alias := t.PropertyOrEmpty(g.PropAlias); alias != "" {
		w.write(" AS ", alias)
	}
}

func (w *writer) join(j tree.Node) {
	table, err := j.ChildInCategory(g.CategoryTable)
	if err != nil {
		w.fail("compile %s: %w", j.TypeName(), err)
		return
	}

	switch j.TypeName() {
	case g.TypeCrossJoin:
		w.write("CROSS JOIN ")
	case g.TypeInnerJoin, g.TypeInnerJoinOn, g.TypeInnerJoinUsing:
		w.write("INNER JOIN ")
	case g.TypeOuterJoinOn, g.TypeOuterJoinUsing:
		side := strings.ToUpper(j.PropertyOrEmpty(g.PropSideType))
		switch side {
		case "LEFT", "RIGHT", "FULL":
			w.write(side, " OUTER JOIN ")
		default:
			w.fail("unsupported outer join side %q", side)
			return
		}
	default:
		w.fail("unsupported join type: %s", j.QualifiedTypeName())
		return
	}
	w.table(table)

	// Stripped joins carry no filter and compile to a plain product.
	if on := j.ChildrenInCategory(g.CategoryOn); len(on) > 0 {
		w.write(" ON ")
		w.list(on)
	}
	if using := j.ChildrenInCategory(g.CategoryUsing); len(using) > 0 {
		w.write(" USING (")
		for i, col := range using {
			if i > 0 {
				w.write(", ")
			}
			w.write(col.PropertyOrEmpty(g.PropColumnName))
		}
		w.write(")")
	}
}

func (w *writer) list(nodes []tree.Node) {
	for i, n := range nodes {
		if i > 0 {
			w.write(", ")
		}
		w.expr(n)
	}
}

func (w *writer) exprs(nodes []tree.Node) {
	for i, n := range nodes {
		if i > 0 {
			w.write(" ")
		}
		w.expr(n)
	}
}

func (w *writer) expr(n tree.Node) {
	switch e := sqlexpr.Classify(n).(type) {
	case sqlexpr.BinaryExpression:
		w.exprs(e.LHS)
		w.write(" ", e.Operator, " ")
		w.exprs(e.RHS)
	case sqlexpr.ColumnName:
		if e.RefTableName != "" {
			w.write(e.RefTableName, ".")
		}
		w.write(e.ColumnName)
	case sqlexpr.Constant:
		w.write(e.Value)
	case sqlexpr.Parameter:
		// CRITICAL: never interpolate the value.
		w.write("?")
		w.params = append(w.params, w.c.BoundValues[e.Name])
	case sqlexpr.FunctionCall:
		w.write(e.Name, "(")
		w.list(e.Arguments)
		w.write(")")
	case sqlexpr.Parentheses:
		w.write("(")
		w.exprs(e.Expression)
		w.write(")")
	case sqlexpr.SortOrder:
		w.exprs(e.Expression)
		if e.Order != "" {
			w.write(" ", e.Order)
		}
	case sqlexpr.StarOperator:
		w.write("*")
	case sqlexpr.Unknown:
		w.fail("unsupported expression node: %s", e.Type)
	default:
		w.fail("unhandled expression variant %T", e)
	}
}
