// Package harness provides conformance testing for linkage definitions.
//
// The harness loads CUE linkage definitions, builds their plans and checks
// the outcome against YAML scenarios, optionally snapshotting the canonical
// plan as a golden file.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: people_customers
//	description: "Cross-database linkage of people and customers"
//	specs:
//	  - ../specs/people_customers.cue
//	linkage: people_customers
//	expect:
//	  kind: dual
//	  decollation: true
//	  warnings: 1
//	assertions:
//	  - type: expectation_kind
//	    index: 0
//	    kind: dual
//	    field: first_name
//	  - type: schema_columns
//	    table: groups
//	    columns: [id, first_name]
//	  - type: ddl_contains
//	    contains: "CREATE TABLE IF NOT EXISTS"
//	  - type: query_contains
//	    side: lhs
//	    contains: "WHERE"
//
// A scenario may instead expect the definition to be rejected:
//
//	expect:
//	  error: "E211"
//
// # Assertion Types
//
//   - expectation_kind: the plan expectation at index has the given kind
//     (and merged field when set)
//   - schema_columns: an output table has exactly the listed columns
//   - ddl_contains: some DDL statement contains the text
//   - query_contains: the applied query of a side contains the text
//   - warning_contains: some warning contains the text
//
// # Deterministic Testing
//
// Every run saves the plan into a fresh in-memory store with a step clock
// and sequential identifiers, so record identifiers and timestamps are
// identical across runs.
package harness
