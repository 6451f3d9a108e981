package sqlexpr

import (
	"log/slog"
	"strings"

	"github.com/roach88/querysteps/internal/tree"
)

// Collect flattens expression nodes into an ordered list of tokens.
//
// Token rules per variant:
//   - BinaryExpression: lhs tokens, the operator, rhs tokens
//   - ColumnName: "table.column"
//   - Constant: the literal value
//   - Parameter: nothing
//   - FunctionCall: "name()" followed by the argument tokens
//   - Parentheses: nothing
//   - SortOrder: the expression tokens, then the order
//   - StarOperator: "*"
//   - Unknown: nothing (logged)
//
// Collect never fails. An empty input yields an empty, non-nil slice.
func Collect(nodes []tree.Node) []string {
	tokens := []string{}
	for _, n := range nodes {
		tokens = collect(tokens, n)
	}
	return tokens
}

func collect(tokens []string, n tree.Node) []string {
	switch e := Classify(n).(type) {
	case BinaryExpression:
		tokens = collectAll(tokens, e.LHS)
		tokens = append(tokens, e.Operator)
		return collectAll(tokens, e.RHS)
	case ColumnName:
		return append(tokens, e.RefTableName+"."+e.ColumnName)
	case Constant:
		return append(tokens, e.Value)
	case Parameter:
		return tokens
	case FunctionCall:
		// The closing parenthesis comes before the argument tokens.
		tokens = append(tokens, e.Name+"()")
		return collectAll(tokens, e.Arguments)
	case Parentheses:
		return tokens
	case SortOrder:
		tokens = collectAll(tokens, e.Expression)
		return append(tokens, e.Order)
	case StarOperator:
		return append(tokens, "*")
	case Unknown:
		slog.Warn("unrecognized expression node, contributing no tokens",
			"type", e.Type.String())
		return tokens
	default:
		slog.Warn("unhandled expression variant", "node", n.QualifiedTypeName().String())
		return tokens
	}
}

func collectAll(tokens []string, nodes []tree.Node) []string {
	for _, n := range nodes {
		tokens = collect(tokens, n)
	}
	return tokens
}

// Render flattens each top-level expression separately and joins its tokens
// with single spaces. This is the form used in step descriptions:
//
//	[a.x = b.y, c.z] → ["a.x = b.y", "c.z"]
//
// An expression contributing no tokens renders as "".
func Render(nodes []tree.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = strings.Join(Collect([]tree.Node{n}), " ")
	}
	return out
}
