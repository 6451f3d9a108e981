// Package harness runs decomposition scenarios and compares their steps
// against expectations and golden files.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: simple_inner_join
//	description: "An inner join yields cross, on and select steps"
//	query: queries/charakter.yaml      # or an inline query_tree
//	intermediate_table: "@intermediate" # optional
//	sample_data: |                      # optional SQL seed script
//	  CREATE TABLE Charakter (...);
//	steps:
//	  - kind: cross
//	    tables: [Charakter, Auftritt]
//	  - kind: "on"
//	    expressions: ["Auftritt.Charakter_ID = Charakter.Charakter_ID"]
//	  - kind: select
//	    expressions: [Charakter.Charakter_Name]
//	assertions:
//	  - type: round_trip
//	  - type: row_count
//	    step: 0
//	    count: 12
//
// Query paths are relative to the scenario file. Unknown fields are
// rejected.
//
// # Assertion Types
//
//   - round_trip: the last step's snapshot equals the input query
//   - evaluation_order: step kinds follow relational evaluation order
//   - row_count: a step's SQL returns count rows on the sample data
//   - group_count: a groupBy step forms count buckets on the sample data
//
// # Golden Files
//
// Snapshot renders the steps of a run as canonical JSON, so a golden file
// changes only when a decomposition changes.
package harness
