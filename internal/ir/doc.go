// Package ir holds the canonical intermediate representation shared by the
// linkage planner: column type descriptors, compiled linkage specs and plans.
//
// ir imports nothing internal. Every other internal package may import it.
//
// Key constraints:
//   - TypeDescriptor and SizeSpec are comparable values; structural equality is ==
//   - Plan hashes use RFC 8785 canonical JSON over IRValue (no floats)
//   - All JSON tags use snake_case
package ir
