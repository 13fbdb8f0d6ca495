// Package vm executes compiled whitespace programs.
//
// This package contains:
//   - Machine: the bounded execution stack, control stack and halt state
//   - Heap: the address-keyed symbol table behind STORE and RESTORE
//   - Primitive handlers, one per opcode, grouped by concern
//
// A Machine owns all of its state and is not safe for concurrent use.
package vm
