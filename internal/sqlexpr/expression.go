// Package sqlexpr classifies SQL expression nodes and flattens them into
// human-readable tokens.
//
// Expression is a sealed interface: only the types in this package
// implement it, so a type switch over an Expression lists every variant.
// Nodes whose type name is not one of the known shapes classify as
// Unknown; flattening an Unknown yields no tokens and logs a warning, so
// a grammar extension never breaks a decomposition.
package sqlexpr

import (
	"github.com/roach88/querysteps/internal/sqlgrammar"
	"github.com/roach88/querysteps/internal/tree"
)

// Expression is one classified expression node.
type Expression interface {
	expression() // seals the interface to this package
}

// BinaryExpression is "lhs operator rhs".
type BinaryExpression struct {
	LHS      []tree.Node
	Operator string
	RHS      []tree.Node
}

func (BinaryExpression) expression() {}

// ColumnName is a qualified column reference.
type ColumnName struct {
	RefTableName string
	ColumnName   string
}

func (ColumnName) expression() {}

// Constant is a literal, kept verbatim.
type Constant struct {
	Value string
}

func (Constant) expression() {}

// Parameter is a named placeholder. Its value is unknown while editing.
type Parameter struct {
	Name string
}

func (Parameter) expression() {}

// FunctionCall is "name(arguments...)".
type FunctionCall struct {
	Name      string
	Arguments []tree.Node
}

func (FunctionCall) expression() {}

// Parentheses wraps a nested expression.
type Parentheses struct {
	Expression []tree.Node
}

func (Parentheses) expression() {}

// SortOrder is an ORDER BY item with its direction.
type SortOrder struct {
	Expression []tree.Node
	Order      string
}

func (SortOrder) expression() {}

// StarOperator is "*".
type StarOperator struct{}

func (StarOperator) expression() {}

// Unknown is any node whose type name is not a known expression shape.
type Unknown struct {
	Type tree.QualifiedTypeName
}

func (Unknown) expression() {}

// Classify maps a node to its expression variant by type name.
func Classify(n tree.Node) Expression {
	switch n.TypeName() {
	case sqlgrammar.TypeBinaryExpression:
		return BinaryExpression{
			LHS:      n.ChildrenInCategory(sqlgrammar.CategoryLHS),
			Operator: binaryOperator(n),
			RHS:      n.ChildrenInCategory(sqlgrammar.CategoryRHS),
		}
	case sqlgrammar.TypeColumnName:
		return ColumnName{
			RefTableName: n.PropertyOrEmpty(sqlgrammar.PropRefTableName),
			ColumnName:   n.PropertyOrEmpty(sqlgrammar.PropColumnName),
		}
	case sqlgrammar.TypeConstant:
		return Constant{Value: n.PropertyOrEmpty(sqlgrammar.PropValue)}
	case sqlgrammar.TypeParameter:
		return Parameter{Name: n.PropertyOrEmpty(sqlgrammar.PropName)}
	case sqlgrammar.TypeFunctionCall:
		return FunctionCall{
			Name:      n.PropertyOrEmpty(sqlgrammar.PropName),
			Arguments: n.ChildrenInCategory(sqlgrammar.CategoryArguments),
		}
	case sqlgrammar.TypeParentheses:
		return Parentheses{Expression: n.ChildrenInCategory(sqlgrammar.CategoryExpression)}
	case sqlgrammar.TypeSortOrder:
		return SortOrder{
			Expression: n.ChildrenInCategory(sqlgrammar.CategoryExpression),
			Order:      n.PropertyOrEmpty(sqlgrammar.PropOrder),
		}
	case sqlgrammar.TypeStarOperator:
		return StarOperator{}
	default:
		return Unknown{Type: n.QualifiedTypeName()}
	}
}

// binaryOperator reads the operator from the "operator" child; a bare
// "operator" property on the expression itself is accepted as well.
func binaryOperator(n tree.Node) string {
	ops := n.ChildrenInCategory(sqlgrammar.CategoryOperator)
	if len(ops) > 0 {
		return ops[0].PropertyOrEmpty(sqlgrammar.PropOperator)
	}
	return n.PropertyOrEmpty(sqlgrammar.PropOperator)
}
