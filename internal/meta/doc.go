// Package meta wraps the operands of a linkage rule.
//
// An Object is a column on one side of the linkage, a literal value, or a
// derived function over other objects. Objects that depend on a dataset are
// dynamic and always carry a side and a dataset; literals and functions of
// literals are static and carry neither.
package meta
