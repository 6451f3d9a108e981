package tree

import (
	"fmt"
	"slices"
)

// Tree wraps at most one root node. The zero Tree is empty.
//
// Tree is a value type: InsertNode and ReplaceNode return new trees and
// never modify the receiver, so a Tree may be shared between goroutines
// freely.
type Tree struct {
	root *Node
}

// New builds a tree from a root snapshot.
func New(root NodeModel) Tree {
	n := NewNode(root)
	return Tree{root: &n}
}

// IsEmpty reports whether the tree has no root.
func (t Tree) IsEmpty() bool {
	return t.root == nil
}

// Root returns the root node.
func (t Tree) Root() (Node, bool) {
	if t.root == nil {
		return Node{}, false
	}
	return *t.root, true
}

// ToModel returns a deep copy of the root snapshot. An empty tree yields the
// zero NodeModel.
func (t Tree) ToModel() NodeModel {
	if t.root == nil {
		return NodeModel{}
	}
	return t.root.ToModel()
}

// Locate resolves path strictly. Any missing category or out-of-range index
// yields a *NotFoundError.
func (t Tree) Locate(path Path) (Node, error) {
	if t.root == nil {
		return Node{}, &NotFoundError{Path: path, Depth: -1, Reason: "tree is empty"}
	}
	node, depth, reason := t.root.resolve(path)
	if reason != "" {
		return Node{}, &NotFoundError{Path: path, Depth: depth, Reason: reason}
	}
	return node, nil
}

// LocateOrAbsent resolves path like Locate but reports absence instead of
// failing.
func (t Tree) LocateOrAbsent(path Path) (Node, bool) {
	node, err := t.Locate(path)
	if err != nil {
		return Node{}, false
	}
	return node, true
}

// InsertNode returns a new tree with node inserted at the slot named by the
// final path step. Siblings at and after that index shift right. The index
// may equal the current length of the category (append), and inserting at
// index 0 of an absent category creates it.
func (t Tree) InsertNode(path Path, node NodeModel) (Tree, error) {
	parentPath, slot, ok := path.Parent()
	if !ok {
		return Tree{}, &NotFoundError{Path: path, Depth: -1, Reason: "insert needs a non-empty path"}
	}
	if t.root == nil {
		return Tree{}, &NotFoundError{Path: path, Depth: -1, Reason: "tree is empty"}
	}

	root := t.root.model.Clone()
	parent, err := walk(&root, path, parentPath)
	if err != nil {
		return Tree{}, err
	}

	siblings := parent.Children[slot.Category]
	if slot.Index < 0 || slot.Index > len(siblings) {
		return Tree{}, &NotFoundError{
			Path:   path,
			Depth:  len(path) - 1,
			Reason: fmt.Sprintf("insert index %d out of range [0,%d]", slot.Index, len(siblings)),
		}
	}

	if parent.Children == nil {
		parent.Children = make(map[string][]NodeModel)
	}
	parent.Children[slot.Category] = slices.Insert(siblings, slot.Index, node.Clone())

	return Tree{root: &Node{model: root}}, nil
}

// ReplaceNode returns a new tree with the node at path substituted. The
// path must resolve to an existing node; the empty path replaces the root.
func (t Tree) ReplaceNode(path Path, node NodeModel) (Tree, error) {
	if t.root == nil {
		return Tree{}, &NotFoundError{Path: path, Depth: -1, Reason: "tree is empty"}
	}

	parentPath, slot, ok := path.Parent()
	if !ok {
		return New(node), nil
	}

	root := t.root.model.Clone()
	parent, err := walk(&root, path, parentPath)
	if err != nil {
		return Tree{}, err
	}

	siblings := parent.Children[slot.Category]
	if len(siblings) == 0 {
		return Tree{}, &NotFoundError{
			Path:   path,
			Depth:  len(path) - 1,
			Reason: fmt.Sprintf("no category %q on %s", slot.Category, parent.Name),
		}
	}
	if slot.Index < 0 || slot.Index >= len(siblings) {
		return Tree{}, &NotFoundError{
			Path:   path,
			Depth:  len(path) - 1,
			Reason: fmt.Sprintf("index %d out of range [0,%d)", slot.Index, len(siblings)),
		}
	}
	siblings[slot.Index] = node.Clone()

	return Tree{root: &Node{model: root}}, nil
}

// walk follows steps inside a privately owned model and returns a pointer to
// the addressed node so it can be edited in place. full is only used for
// error reporting.
func walk(root *NodeModel, full, steps Path) (*NodeModel, error) {
	cur := root
	for depth, step := range steps {
		children := cur.Children[step.Category]
		if len(children) == 0 {
			return nil, &NotFoundError{
				Path:   full,
				Depth:  depth,
				Reason: fmt.Sprintf("no category %q on %s", step.Category, cur.Name),
			}
		}
		if step.Index < 0 || step.Index >= len(children) {
			return nil, &NotFoundError{
				Path:   full,
				Depth:  depth,
				Reason: fmt.Sprintf("index %d out of range [0,%d)", step.Index, len(children)),
			}
		}
		cur = &children[step.Index]
	}
	return cur, nil
}
