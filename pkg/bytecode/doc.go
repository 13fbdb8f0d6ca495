// Package bytecode defines the compiled form of a whitespace program.
//
// Whitespace source is made only of spaces (S), tabs (T) and newlines (L).
// Every instruction has a fixed signature of two to four of those characters,
// and some are followed by a binary numeral parameter. The signature table in
// opcodes.go is a compatibility contract: existing programs depend on it bit
// for bit.
//
// # Architecture Overview
//
//   - Opcodes: the 25 instructions with their names, signatures and stack
//     effects. Matching is by exact signature in table order.
//
//   - Program: a flat list of Instructions, each carrying its parameter and
//     source location, plus a label index recording every LABEL definition.
//     Jump targets are resolved through the index at run time, so forward
//     references need no fixups.
//
//   - Errors: a single numeric Code per failure with a static message. The
//     Error type adds the instruction name and position and formats the
//     operator-facing diagnostic line.
//
//   - Images: Programs serialize to canonical CBOR prefixed with "WSBC" so
//     they can be cached or shipped without recompiling.
//
// The compiler package builds Programs from source; the vm package runs them.
package bytecode
