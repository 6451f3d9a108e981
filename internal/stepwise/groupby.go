package stepwise

import (
	g "github.com/roach88/querysteps/internal/sqlgrammar"
	"github.com/roach88/querysteps/internal/tree"
)

// preAggregation derives the query that lists the rows of current before
// they are grouped by keys.
//
// The projection becomes the grouping expressions followed by "*":
//
//	SELECT <k1>, ..., <kn>, * FROM ... WHERE ...
//
// so the first n columns of every result row are its group key. The
// returned positions are 0..n-1.
func preAggregation(current tree.Tree, keys []tree.Node) (tree.NodeModel, []int, error) {
	columns := make([]tree.NodeModel, 0, len(keys)+1)
	positions := make([]int, 0, len(keys))
	for i, key := range keys {
		columns = append(columns, key.ToModel())
		positions = append(positions, i)
	}
	columns = append(columns, g.Star())

	pre, err := current.ReplaceNode(pathSelect, g.Select(columns...))
	if err != nil {
		return tree.NodeModel{}, nil, err
	}
	return pre.ToModel(), positions, nil
}
