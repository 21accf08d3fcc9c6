// Package dataset describes the source tables a linkage reads from.
//
// A Dataset is identified by its URI and table name. Its fields carry the
// TypeDescriptor parsed from the declared column type. A Handle is an
// immutable, restricted view of a dataset: applying a filter or a grouping
// returns a new Handle and leaves the receiver untouched. Handles render to a
// SELECT statement in the source database's SQL flavor.
package dataset
