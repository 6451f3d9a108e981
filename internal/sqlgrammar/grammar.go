// Package sqlgrammar names the node shapes of the SQL query grammar and
// provides builders for them.
//
// Only the data shapes live here. Validating that a tree follows the
// grammar is done upstream and is not part of this module.
//
// Shape summary (category → children):
//
//	querySelect  select[1] from[1] where[0..1] groupBy[0..1] orderBy[0..1]
//	select       columns[*]                      props: distinct?
//	from         tables[1..] joins[*]
//	crossJoin    table[1]
//	innerJoinOn  table[1] on[1]
//	innerJoinUsing table[1] using[1..]
//	outerJoinOn  table[1] on[1]                  props: sideType
//	outerJoinUsing table[1] using[1..]           props: sideType
//	where        expressions[1]
//	groupBy      expressions[1..]
//	orderBy      expressions[1..] (sortOrder)
package sqlgrammar

// Language is the grammar language name of every SQL node.
const Language = "sql"

// Node type names.
const (
	TypeQuerySelect        = "querySelect"
	TypeSelect             = "select"
	TypeFrom               = "from"
	TypeTableIntroduction  = "tableIntroduction"
	TypeCrossJoin          = "crossJoin"
	TypeInnerJoin          = "innerJoin"
	TypeInnerJoinOn        = "innerJoinOn"
	TypeInnerJoinUsing     = "innerJoinUsing"
	TypeOuterJoinOn        = "outerJoinOn"
	TypeOuterJoinUsing     = "outerJoinUsing"
	TypeWhere              = "where"
	TypeGroupBy            = "groupBy"
	TypeOrderBy            = "orderBy"
	TypeBinaryExpression   = "binaryExpression"
	TypeRelationalOperator = "relationalOperator"
	TypeColumnName         = "columnName"
	TypeConstant           = "constant"
	TypeParameter          = "parameter"
	TypeFunctionCall       = "functionCall"
	TypeParentheses        = "parentheses"
	TypeSortOrder          = "sortOrder"
	TypeStarOperator       = "starOperator"
)

// Child category names.
const (
	CategorySelect      = "select"
	CategoryFrom        = "from"
	CategoryWhere       = "where"
	CategoryGroupBy     = "groupBy"
	CategoryOrderBy     = "orderBy"
	CategoryColumns     = "columns"
	CategoryTables      = "tables"
	CategoryJoins       = "joins"
	CategoryTable       = "table"
	CategoryOn          = "on"
	CategoryUsing       = "using"
	CategoryExpressions = "expressions"
	CategoryExpression  = "expression"
	CategoryLHS         = "lhs"
	CategoryRHS         = "rhs"
	CategoryOperator    = "operator"
	CategoryArguments   = "arguments"
)

// Property keys.
const (
	PropName         = "name"
	PropAlias        = "alias"
	PropColumnName   = "columnName"
	PropRefTableName = "refTableName"
	PropValue        = "value"
	PropOperator     = "operator"
	PropOrder        = "order"
	PropSideType     = "sideType"
	PropDistinct     = "distinct"
)

// JoinFilterCategory returns the category holding a join's filter ("on" or
// "using") for join types that carry one.
func JoinFilterCategory(typeName string) (string, bool) {
	switch typeName {
	case TypeInnerJoinOn, TypeOuterJoinOn:
		return CategoryOn, true
	case TypeInnerJoinUsing, TypeOuterJoinUsing:
		return CategoryUsing, true
	default:
		return "", false
	}
}

// IsInnerJoin reports whether typeName is one of the inner join shapes.
func IsInnerJoin(typeName string) bool {
	switch typeName {
	case TypeInnerJoin, TypeInnerJoinOn, TypeInnerJoinUsing:
		return true
	default:
		return false
	}
}

// IsJoin reports whether typeName is any join shape.
func IsJoin(typeName string) bool {
	switch typeName {
	case TypeCrossJoin, TypeOuterJoinOn, TypeOuterJoinUsing:
		return true
	default:
		return IsInnerJoin(typeName)
	}
}
