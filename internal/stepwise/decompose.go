package stepwise

import (
	"fmt"
	"log/slog"

	g "github.com/roach88/querysteps/internal/sqlgrammar"
	"github.com/roach88/querysteps/internal/sqlexpr"
	"github.com/roach88/querysteps/internal/tree"
)

// IntermediateTable is the default placeholder naming "everything joined so
// far" in the Cross steps after the first.
const IntermediateTable = "@intermediate"

// Options configures a Decomposer.
type Options struct {
	// IntermediateTable overrides the placeholder used in Cross steps.
	// Empty means IntermediateTable.
	IntermediateTable string
}

// Decomposer turns query trees into steps.
type Decomposer struct {
	intermediate string
}

// New creates a Decomposer.
func New(opts Options) *Decomposer {
	placeholder := opts.IntermediateTable
	if placeholder == "" {
		placeholder = IntermediateTable
	}
	return &Decomposer{intermediate: placeholder}
}

// Decompose runs a Decomposer with default options.
func Decompose(query tree.Tree) ([]Step, error) {
	return New(Options{}).Decompose(query)
}

// Fixed paths into a querySelect tree.
var (
	pathSelect     = tree.P(g.CategorySelect, 0)
	pathFrom       = tree.P(g.CategoryFrom, 0)
	pathFirstTable = tree.P(g.CategoryFrom, 0, g.CategoryTables, 0)
	pathWhere      = tree.P(g.CategoryWhere, 0)
	pathGroupBy    = tree.P(g.CategoryGroupBy, 0)
	pathOrderBy    = tree.P(g.CategoryOrderBy, 0)
)

// run holds the state of one decomposition.
type run struct {
	query     tree.Tree
	current   tree.Tree
	steps     []Step
	products  int
	firstName string
	d         *Decomposer
}

// Decompose replays query clause by clause. An empty tree yields no steps.
//
// Errors only occur when the input violates the querySelect shape (for
// example a FROM without tables); they wrap *tree.NotFoundError or
// *tree.CardinalityError.
func (d *Decomposer) Decompose(query tree.Tree) ([]Step, error) {
	if query.IsEmpty() {
		return []Step{}, nil
	}

	r := &run{query: query, d: d}
	if err := r.seed(); err != nil {
		return nil, fmt.Errorf("decompose: %w", err)
	}
	if err := r.joins(); err != nil {
		return nil, fmt.Errorf("decompose: %w", err)
	}
	if err := r.where(); err != nil {
		return nil, fmt.Errorf("decompose: %w", err)
	}
	if err := r.groupBy(); err != nil {
		return nil, fmt.Errorf("decompose: %w", err)
	}
	if err := r.selectColumns(); err != nil {
		return nil, fmt.Errorf("decompose: %w", err)
	}
	if err := r.orderBy(); err != nil {
		return nil, fmt.Errorf("decompose: %w", err)
	}

	if last := r.current.ToModel(); !tree.Equal(last, query.ToModel()) {
		slog.Warn("decomposition does not reproduce its input; the query carries clauses outside the querySelect shape")
	}

	return r.steps, nil
}

// seed builds "SELECT * FROM <first table>", keeping the properties of the
// query root and the FROM node.
func (r *run) seed() error {
	first, err := r.query.Locate(pathFirstTable)
	if err != nil {
		return fmt.Errorf("first FROM table: %w", err)
	}
	from, err := r.query.Locate(pathFrom)
	if err != nil {
		return fmt.Errorf("FROM clause: %w", err)
	}
	root, _ := r.query.Root()

	seedFrom := g.From([]tree.NodeModel{first.ToModel()})
	seedFrom.Properties = from.Properties()

	seedRoot := g.Query(g.Select(g.Star()), seedFrom, g.Clauses{})
	seedRoot.Language = root.LanguageName()
	seedRoot.Name = root.TypeName()
	seedRoot.Properties = root.Properties()

	r.current = tree.New(seedRoot)
	r.firstName = first.PropertyOrEmpty(g.PropName)
	return nil
}

// joins emits the cartesian steps: first the additional tables of an
// implicit FROM list, then every join in source order.
func (r *run) joins() error {
	from, err := r.query.Locate(pathFrom)
	if err != nil {
		return fmt.Errorf("FROM clause: %w", err)
	}

	tables := from.ChildrenInCategory(g.CategoryTables)
	for i := 1; i < len(tables); i++ {
		path := pathFrom.Append(g.CategoryTables, i)
		if err := r.insert(path, tables[i].ToModel()); err != nil {
			return err
		}
		r.emitCross(tables[i].PropertyOrEmpty(g.PropName))
	}

	for i, join := range from.ChildrenInCategory(g.CategoryJoins) {
		if err := r.join(i, join); err != nil {
			return fmt.Errorf("join %d: %w", i, err)
		}
	}
	return nil
}

func (r *run) join(i int, join tree.Node) error {
	table, err := join.ChildInCategory(g.CategoryTable)
	if err != nil {
		return err
	}

	path := pathFrom.Append(g.CategoryJoins, i)
	if err := r.insert(path, stripFilter(join)); err != nil {
		return err
	}
	r.emitCross(table.PropertyOrEmpty(g.PropName))

	category, ok := g.JoinFilterCategory(join.TypeName())
	if !ok {
		return nil
	}
	if _, present := r.query.LocateOrAbsent(path.Append(category, 0)); !present {
		return nil
	}

	if err := r.replace(path, join.ToModel()); err != nil {
		return err
	}
	exprs := sqlexpr.Render(join.ChildrenInCategory(category))
	if category == g.CategoryUsing {
		r.emit(Using{Expressions: exprs})
	} else {
		r.emit(On{Expressions: exprs})
	}
	return nil
}

// stripFilter returns the join without its on/using filter. A filterless
// inner join is relabelled innerJoin; other join kinds keep their type.
func stripFilter(join tree.Node) tree.NodeModel {
	m := join.ToModel()
	if category, ok := g.JoinFilterCategory(m.Name); ok {
		delete(m.Children, category)
	}
	if g.IsInnerJoin(m.Name) {
		m.Name = g.TypeInnerJoin
	}
	return m
}

func (r *run) where() error {
	where, ok := r.query.LocateOrAbsent(pathWhere)
	if !ok {
		return nil
	}
	if err := r.insert(pathWhere, where.ToModel()); err != nil {
		return err
	}
	r.emit(Where{Expressions: sqlexpr.Render(where.ChildrenInCategory(g.CategoryExpressions))})
	return nil
}

func (r *run) groupBy() error {
	groupBy, ok := r.query.LocateOrAbsent(pathGroupBy)
	if !ok {
		return nil
	}
	keys := groupBy.ChildrenInCategory(g.CategoryExpressions)

	pre, keyColumns, err := preAggregation(r.current, keys)
	if err != nil {
		return fmt.Errorf("pre-aggregation: %w", err)
	}

	if err := r.insert(pathGroupBy, groupBy.ToModel()); err != nil {
		return err
	}
	r.emit(GroupBy{
		Expressions:    sqlexpr.Render(keys),
		PreAggregation: pre,
		KeyColumns:     keyColumns,
	})
	return nil
}

func (r *run) selectColumns() error {
	sel, err := r.query.Locate(pathSelect)
	if err != nil {
		return fmt.Errorf("SELECT clause: %w", err)
	}
	if err := r.replace(pathSelect, sel.ToModel()); err != nil {
		return err
	}
	r.emit(Select{Expressions: sqlexpr.Render(sel.ChildrenInCategory(g.CategoryColumns))})
	return nil
}

func (r *run) orderBy() error {
	orderBy, ok := r.query.LocateOrAbsent(pathOrderBy)
	if !ok {
		return nil
	}
	if err := r.insert(pathOrderBy, orderBy.ToModel()); err != nil {
		return err
	}
	r.emit(OrderBy{Expressions: sqlexpr.Render(orderBy.ChildrenInCategory(g.CategoryExpressions))})
	return nil
}

func (r *run) insert(path tree.Path, node tree.NodeModel) error {
	next, err := r.current.InsertNode(path, node)
	if err != nil {
		return err
	}
	r.current = next
	return nil
}

func (r *run) replace(path tree.Path, node tree.NodeModel) error {
	next, err := r.current.ReplaceNode(path, node)
	if err != nil {
		return err
	}
	r.current = next
	return nil
}

// emitCross records a cartesian product with table. The left side is the
// first FROM table for the first product and the placeholder afterwards.
func (r *run) emitCross(table string) {
	left := r.firstName
	if r.products > 0 {
		left = r.d.intermediate
	}
	r.products++
	r.emit(Cross{Tables: []string{left, table}})
}

func (r *run) emit(desc Description) {
	r.steps = append(r.steps, Step{Tree: r.current.ToModel(), Description: desc})
	slog.Debug("decomposition step",
		"index", len(r.steps)-1,
		"kind", string(desc.Kind()))
}
