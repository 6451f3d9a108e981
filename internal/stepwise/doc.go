// Package stepwise decomposes a completed SELECT query into the sequence of
// intermediate queries a database conceptually evaluates.
//
// Clauses are replayed in relational evaluation order, not in the order
// they were written:
//
//	cross (on|using)?   once per joined table
//	where?
//	groupBy?
//	select              always
//	orderBy?
//
// Each Step pairs a snapshot of the query accumulated so far with a
// Description of what changed. The snapshot of the last step always equals
// the input query.
//
// The engine starts from a synthetic "SELECT * FROM <first table>" and
// grows it with tree.InsertNode and tree.ReplaceNode. The input tree is only
// read. Decompose keeps no state between calls and is safe for concurrent
// use.
//
// A join with a filter produces two steps: first the bare cartesian
// product, then the filtered join. A stripped inner join is labelled
// innerJoin; outer joins keep their type name so the asymmetry of the join
// stays visible in the cartesian step.
package stepwise
