// Package tree provides the addressable structural tree that query
// decomposition is built on.
//
// A tree is a value: every edit (InsertNode, ReplaceNode) returns a new Tree
// and leaves the receiver untouched. Nodes carry a qualified type name
// (language + type name), flat string properties, and ordered children
// grouped by category name. An absent category is the same as an empty one.
//
// Nodes are addressed by a Path, an ordered list of (category, index) steps
// resolved from the root. Two lookups exist:
//
//   - Locate fails with a *NotFoundError when any step does not resolve.
//     Use it where the grammar guarantees the node exists.
//   - LocateOrAbsent reports absence with a boolean. Use it for optional
//     clauses.
//
// NodeModel is the plain serialisable snapshot of a node. Snapshots are
// normalised: empty categories and empty property maps are dropped, so two
// snapshots are Equal iff every type name, language name, property and
// ordered child list match recursively.
//
// Query trees are small (tens of nodes), so edits deep-copy the affected
// tree rather than sharing structure.
package tree
