package tree

import (
	"fmt"
	"slices"

	"github.com/roach88/querysteps/internal/canonical"
)

// NodeModel is the serialisable snapshot of a node and its subtree.
type NodeModel struct {
	Language   string                 `json:"language" yaml:"language"`
	Name       string                 `json:"name" yaml:"name"`
	Properties map[string]string      `json:"properties,omitempty" yaml:"properties,omitempty"`
	Children   map[string][]NodeModel `json:"children,omitempty" yaml:"children,omitempty"`
}

// QualifiedTypeName identifies the grammar shape of a node.
type QualifiedTypeName struct {
	LanguageName string `json:"language_name"`
	TypeName     string `json:"type_name"`
}

func (q QualifiedTypeName) String() string {
	return fmt.Sprintf("%s.%s", q.LanguageName, q.TypeName)
}

// Clone returns a normalised deep copy of m.
// Empty categories and an empty property map are dropped.
func (m NodeModel) Clone() NodeModel {
	out := NodeModel{
		Language: m.Language,
		Name:     m.Name,
	}

	if len(m.Properties) > 0 {
		out.Properties = make(map[string]string, len(m.Properties))
		for k, v := range m.Properties {
			out.Properties[k] = v
		}
	}

	for category, children := range m.Children {
		if len(children) == 0 {
			continue
		}
		if out.Children == nil {
			out.Children = make(map[string][]NodeModel, len(m.Children))
		}
		copied := make([]NodeModel, len(children))
		for i, child := range children {
			copied[i] = child.Clone()
		}
		out.Children[category] = copied
	}

	return out
}

// CanonicalValue implements canonical.Valuer.
func (m NodeModel) CanonicalValue() any {
	obj := map[string]any{
		"language": m.Language,
		"name":     m.Name,
	}
	if len(m.Properties) > 0 {
		obj["properties"] = m.Properties
	}

	children := make(map[string]any)
	for category, nodes := range m.Children {
		if len(nodes) == 0 {
			continue
		}
		list := make([]any, len(nodes))
		for i, n := range nodes {
			list[i] = n
		}
		children[category] = list
	}
	if len(children) > 0 {
		obj["children"] = children
	}
	return obj
}

// MarshalCanonical returns the RFC 8785 encoding of the normalised snapshot.
func (m NodeModel) MarshalCanonical() ([]byte, error) {
	return canonical.Marshal(m)
}

// Equal reports whether two snapshots are structurally equal.
// Absent and empty categories (and property maps) compare equal.
func Equal(a, b NodeModel) bool {
	if a.Language != b.Language || a.Name != b.Name {
		return false
	}

	if len(a.Properties) != len(b.Properties) {
		return false
	}
	for k, v := range a.Properties {
		if other, ok := b.Properties[k]; !ok || other != v {
			return false
		}
	}

	if nonEmptyCategories(a) != nonEmptyCategories(b) {
		return false
	}
	for category, children := range a.Children {
		if !slices.EqualFunc(children, b.Children[category], Equal) {
			return false
		}
	}
	return true
}

func nonEmptyCategories(m NodeModel) int {
	n := 0
	for _, children := range m.Children {
		if len(children) > 0 {
			n++
		}
	}
	return n
}
