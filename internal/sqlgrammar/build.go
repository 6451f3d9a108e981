package sqlgrammar

import "github.com/roach88/querysteps/internal/tree"

func node(name string, props map[string]string, children map[string][]tree.NodeModel) tree.NodeModel {
	return tree.NodeModel{
		Language:   Language,
		Name:       name,
		Properties: props,
		Children:   children,
	}
}

// Star builds a "*" projection.
func Star() tree.NodeModel {
	return node(TypeStarOperator, nil, nil)
}

// Select builds a SELECT node with the given projected expressions.
func Select(columns ...tree.NodeModel) tree.NodeModel {
	return node(TypeSelect, nil, map[string][]tree.NodeModel{CategoryColumns: columns})
}

// SelectDistinct builds a SELECT DISTINCT node.
func SelectDistinct(columns ...tree.NodeModel) tree.NodeModel {
	m := Select(columns...)
	m.Properties = map[string]string{PropDistinct: "true"}
	return m
}

// Table builds a table introduction. An empty alias is omitted.
func Table(name, alias string) tree.NodeModel {
	props := map[string]string{PropName: name}
	if alias != "" {
		props[PropAlias] = alias
	}
	return node(TypeTableIntroduction, props, nil)
}

// From builds a FROM node.
func From(tables []tree.NodeModel, joins ...tree.NodeModel) tree.NodeModel {
	return node(TypeFrom, nil, map[string][]tree.NodeModel{
		CategoryTables: tables,
		CategoryJoins:  joins,
	})
}

// CrossJoin builds an unfiltered join, as produced by "FROM a, b".
func CrossJoin(table tree.NodeModel) tree.NodeModel {
	return node(TypeCrossJoin, nil, map[string][]tree.NodeModel{CategoryTable: {table}})
}

// InnerJoinOn builds "INNER JOIN table ON on".
func InnerJoinOn(table, on tree.NodeModel) tree.NodeModel {
	return node(TypeInnerJoinOn, nil, map[string][]tree.NodeModel{
		CategoryTable: {table},
		CategoryOn:    {on},
	})
}

// InnerJoinUsing builds "INNER JOIN table USING (columns)".
func InnerJoinUsing(table tree.NodeModel, using ...tree.NodeModel) tree.NodeModel {
	return node(TypeInnerJoinUsing, nil, map[string][]tree.NodeModel{
		CategoryTable: {table},
		CategoryUsing: using,
	})
}

// OuterJoinOn builds "<side> OUTER JOIN table ON on". side is "left",
// "right" or "full".
func OuterJoinOn(side string, table, on tree.NodeModel) tree.NodeModel {
	return node(TypeOuterJoinOn, map[string]string{PropSideType: side}, map[string][]tree.NodeModel{
		CategoryTable: {table},
		CategoryOn:    {on},
	})
}

// OuterJoinUsing builds "<side> OUTER JOIN table USING (columns)".
func OuterJoinUsing(side string, table tree.NodeModel, using ...tree.NodeModel) tree.NodeModel {
	return node(TypeOuterJoinUsing, map[string]string{PropSideType: side}, map[string][]tree.NodeModel{
		CategoryTable: {table},
		CategoryUsing: using,
	})
}

// Column builds a qualified column reference.
func Column(table, column string) tree.NodeModel {
	return node(TypeColumnName, map[string]string{
		PropRefTableName: table,
		PropColumnName:   column,
	}, nil)
}

// Constant builds a literal. value is kept verbatim, including quotes.
func Constant(value string) tree.NodeModel {
	return node(TypeConstant, map[string]string{PropValue: value}, nil)
}

// Parameter builds a named placeholder.
func Parameter(name string) tree.NodeModel {
	return node(TypeParameter, map[string]string{PropName: name}, nil)
}

// Binary builds "lhs op rhs".
func Binary(lhs tree.NodeModel, op string, rhs tree.NodeModel) tree.NodeModel {
	return node(TypeBinaryExpression, nil, map[string][]tree.NodeModel{
		CategoryLHS:      {lhs},
		CategoryOperator: {node(TypeRelationalOperator, map[string]string{PropOperator: op}, nil)},
		CategoryRHS:      {rhs},
	})
}

// Func builds a function call.
func Func(name string, args ...tree.NodeModel) tree.NodeModel {
	return node(TypeFunctionCall, map[string]string{PropName: name}, map[string][]tree.NodeModel{
		CategoryArguments: args,
	})
}

// Paren wraps an expression in parentheses.
func Paren(expr tree.NodeModel) tree.NodeModel {
	return node(TypeParentheses, nil, map[string][]tree.NodeModel{CategoryExpression: {expr}})
}

// Sort builds an ORDER BY item; order is "ASC" or "DESC".
func Sort(expr tree.NodeModel, order string) tree.NodeModel {
	return node(TypeSortOrder, map[string]string{PropOrder: order}, map[string][]tree.NodeModel{
		CategoryExpression: {expr},
	})
}

// Where builds a WHERE clause.
func Where(expr tree.NodeModel) tree.NodeModel {
	return node(TypeWhere, nil, map[string][]tree.NodeModel{CategoryExpressions: {expr}})
}

// GroupBy builds a GROUP BY clause.
func GroupBy(exprs ...tree.NodeModel) tree.NodeModel {
	return node(TypeGroupBy, nil, map[string][]tree.NodeModel{CategoryExpressions: exprs})
}

// OrderBy builds an ORDER BY clause from sort items.
func OrderBy(items ...tree.NodeModel) tree.NodeModel {
	return node(TypeOrderBy, nil, map[string][]tree.NodeModel{CategoryExpressions: items})
}

// Clauses holds the optional clauses of a query.
type Clauses struct {
	Where   *tree.NodeModel
	GroupBy *tree.NodeModel
	OrderBy *tree.NodeModel
}

// Query builds a querySelect root.
func Query(sel, from tree.NodeModel, clauses Clauses) tree.NodeModel {
	children := map[string][]tree.NodeModel{
		CategorySelect: {sel},
		CategoryFrom:   {from},
	}
	if clauses.Where != nil {
		children[CategoryWhere] = []tree.NodeModel{*clauses.Where}
	}
	if clauses.GroupBy != nil {
		children[CategoryGroupBy] = []tree.NodeModel{*clauses.GroupBy}
	}
	if clauses.OrderBy != nil {
		children[CategoryOrderBy] = []tree.NodeModel{*clauses.OrderBy}
	}
	return node(TypeQuerySelect, nil, children)
}
