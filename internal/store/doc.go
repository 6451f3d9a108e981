// Package store provides SQLite-backed storage for decomposition runs and
// executes step queries against sample data.
//
// A run is one decomposition of one query:
//   - qs_runs: the input query as canonical JSON, its fingerprint, and the
//     placeholder used for intermediate tables
//   - qs_steps: one row per step with the snapshot, its fingerprint and the
//     description as JSON
//
// # Ordering
//
// Runs carry a logical seq assigned on insert, never a timestamp. Listings
// use ORDER BY seq ASC, id COLLATE BINARY ASC so identical inputs list
// identically.
//
// # Sample data
//
// The same database may hold arbitrary user tables. Seed runs a SQL script
// against it and Query executes compiled step SQL, returning a
// resultset.Table.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
