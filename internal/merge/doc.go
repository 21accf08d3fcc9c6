// Package merge reconciles two column type descriptors into one type that can
// hold values from both.
//
// Base types are unified through a fixed conversion graph:
//
//	Bool -> Int -> {BigInt, Float}
//	BigInt -> Decimal
//	Float -> Decimal
//	Decimal -> String
//
// String, DateTime, Date, Time and Binary are terminal. The reachable-type
// closure of every node is precomputed, so extending the graph never risks a
// cyclic walk.
package merge
