package tree

import (
	"fmt"
	"slices"
)

// Node is a read-only view of one point in a tree.
//
// The zero Node has no type and no children. Nodes never expose their
// internal maps; Properties and ToModel return copies.
type Node struct {
	model NodeModel
}

// NewNode builds a node from a snapshot. The snapshot is copied, later
// changes to it do not affect the node.
func NewNode(model NodeModel) Node {
	return Node{model: model.Clone()}
}

// TypeName returns the grammar type name, e.g. "querySelect".
func (n Node) TypeName() string { return n.model.Name }

// LanguageName returns the grammar language name, e.g. "sql".
func (n Node) LanguageName() string { return n.model.Language }

// QualifiedTypeName returns the (language, type) pair of the node.
func (n Node) QualifiedTypeName() QualifiedTypeName {
	return QualifiedTypeName{LanguageName: n.model.Language, TypeName: n.model.Name}
}

// Property returns the value stored under key.
func (n Node) Property(key string) (string, bool) {
	v, ok := n.model.Properties[key]
	return v, ok
}

// PropertyOrEmpty returns the value stored under key, or "".
func (n Node) PropertyOrEmpty(key string) string {
	return n.model.Properties[key]
}

// Properties returns a copy of all properties.
func (n Node) Properties() map[string]string {
	out := make(map[string]string, len(n.model.Properties))
	for k, v := range n.model.Properties {
		out[k] = v
	}
	return out
}

// Categories returns the names of all non-empty child categories, sorted.
func (n Node) Categories() []string {
	var names []string
	for name, children := range n.model.Children {
		if len(children) > 0 {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// ChildrenInCategory returns all children in the named category in order.
// An absent category yields an empty slice; this never fails.
func (n Node) ChildrenInCategory(name string) []Node {
	children := n.model.Children[name]
	out := make([]Node, len(children))
	for i, child := range children {
		out[i] = Node{model: child}
	}
	return out
}

// ChildInCategory returns the single child in the named category.
// It fails with a *CardinalityError unless exactly one child is present.
func (n Node) ChildInCategory(name string) (Node, error) {
	children := n.model.Children[name]
	if len(children) != 1 {
		return Node{}, &CardinalityError{Category: name, Count: len(children), TypeName: n.model.Name}
	}
	return Node{model: children[0]}, nil
}

// ToModel returns a deep copy of the node's snapshot.
func (n Node) ToModel() NodeModel {
	return n.model.Clone()
}

func (n Node) String() string {
	return fmt.Sprintf("%s(%d categories)", n.QualifiedTypeName(), len(n.Categories()))
}

// resolve walks path from n. On failure it returns the failing depth and a
// reason.
func (n Node) resolve(path Path) (Node, int, string) {
	cur := n.model
	for depth, step := range path {
		children, ok := cur.Children[step.Category]
		if !ok || len(children) == 0 {
			return Node{}, depth, fmt.Sprintf("no category %q on %s", step.Category, cur.Name)
		}
		if step.Index < 0 || step.Index >= len(children) {
			return Node{}, depth, fmt.Sprintf("index %d out of range [0,%d)", step.Index, len(children))
		}
		cur = children[step.Index]
	}
	return Node{model: cur}, 0, ""
}
