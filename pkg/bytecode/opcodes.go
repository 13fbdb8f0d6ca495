package bytecode

import "fmt"

// Opcode identifies one of the fixed whitespace instructions.
// The numeric order is also the order in which signatures are matched.
type Opcode byte

const (
	// ========================================================================
	// Stack manipulation (IMP: space)
	// ========================================================================

	OpPush  Opcode = iota // SS  <n>  push n
	OpDup                 // SLS      duplicate top
	OpCopy                // STS <n>  copy nth element (from the bottom) to top
	OpSwap                // SLT      swap top two
	OpPop                 // SLL      discard top
	OpSlide               // STL <n>  drop n elements below top

	// ========================================================================
	// Arithmetic (IMP: tab space)
	// ========================================================================

	OpAdd // TSSS
	OpSub // TSST  second - top
	OpMul // TSSL
	OpDiv // TSTS  second / top (truncating)
	OpMod // TSTT  second % top

	// ========================================================================
	// Heap access (IMP: tab tab)
	// ========================================================================

	OpStore   // TTS  heap[second] = top
	OpRestore // TTT  top = heap[top]

	// ========================================================================
	// Flow control (IMP: newline)
	// ========================================================================

	OpLabel // LSS <n>
	OpCall  // LST <n>
	OpJump  // LSL <n>
	OpJz    // LTS <n>  pop, jump if zero
	OpJn    // LTT <n>  pop, jump if negative
	OpRet   // LTL
	OpEnd   // LLL

	// ========================================================================
	// I/O (IMP: tab newline)
	// ========================================================================

	OpPutc  // TLSS
	OpPuti  // TLST
	OpReadc // TLTS
	OpReadi // TLTT

	// OpDprint dumps the stack to the diagnostic channel.
	OpDprint // TTL

	opcodeCount
)

// MaxSignatureLen is the longest signature in the instruction table.
const MaxSignatureLen = 4

// OpcodeInfo provides metadata about each opcode.
type OpcodeInfo struct {
	Name       string // Human-readable name
	Signature  string // Exact whitespace encoding
	TakesParam bool   // Followed by a binary numeral
	StackPop   int    // Values consumed from the top of the stack
	StackPush  int    // Values produced on the top of the stack
}

// opcodeInfoTable is indexed by Opcode. Signatures are a compatibility
// contract with existing whitespace programs and must not change.
var opcodeInfoTable = [opcodeCount]OpcodeInfo{
	OpPush:  {"PUSH", "  ", true, 0, 1},
	OpDup:   {"DUP", " \n ", false, 1, 2},
	OpCopy:  {"COPY", " \t ", true, 0, 1},
	OpSwap:  {"SWAP", " \n\t", false, 2, 2},
	OpPop:   {"POP", " \n\n", false, 1, 0},
	OpSlide: {"SLIDE", " \t\n", true, 1, 1},

	OpAdd: {"ADD", "\t   ", false, 2, 1},
	OpSub: {"SUB", "\t  \t", false, 2, 1},
	OpMul: {"MUL", "\t  \n", false, 2, 1},
	OpDiv: {"DIV", "\t \t ", false, 2, 1},
	OpMod: {"MOD", "\t \t\t", false, 2, 1},

	OpStore:   {"STORE", "\t\t ", false, 2, 0},
	OpRestore: {"RESTORE", "\t\t\t", false, 1, 1},

	OpLabel: {"LABEL", "\n  ", true, 0, 0},
	OpCall:  {"CALL", "\n \t", true, 0, 0},
	OpJump:  {"JMP", "\n \n", true, 0, 0},
	OpJz:    {"JZ", "\n\t ", true, 1, 0},
	OpJn:    {"JN", "\n\t\t", true, 1, 0},
	OpRet:   {"RET", "\n\t\n", false, 0, 0},
	OpEnd:   {"END", "\n\n\n", false, 0, 0},

	OpPutc:  {"PUTC", "\t\n  ", false, 1, 0},
	OpPuti:  {"PUTI", "\t\n \t", false, 1, 0},
	OpReadc: {"READC", "\t\n\t ", false, 1, 0},
	OpReadi: {"READI", "\t\n\t\t", false, 1, 0},

	OpDprint: {"DPRINT", "\t\t\n", false, 0, 0},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if op.Valid() {
		return opcodeInfoTable[op]
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// Valid reports whether op is one of the defined opcodes.
func (op Opcode) Valid() bool {
	return op < opcodeCount
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// Signature returns the whitespace encoding of the opcode.
func (op Opcode) Signature() string {
	return GetOpcodeInfo(op).Signature
}

// TakesParam returns true if the opcode is followed by a numeral.
func (op Opcode) TakesParam() bool {
	return GetOpcodeInfo(op).TakesParam
}

// IsJump returns true if the opcode transfers control to a label.
func (op Opcode) IsJump() bool {
	return op >= OpCall && op <= OpJn
}

// IsArithmetic returns true for the binary arithmetic opcodes.
func (op Opcode) IsArithmetic() bool {
	return op >= OpAdd && op <= OpMod
}

// IsIO returns true for the opcodes that touch program input or output.
func (op Opcode) IsIO() bool {
	return op >= OpPutc && op <= OpReadi
}

// MatchSignature returns the first opcode, in table order, whose signature
// equals sig exactly.
func MatchSignature(sig string) (Opcode, bool) {
	for op := Opcode(0); op < opcodeCount; op++ {
		if opcodeInfoTable[op].Signature == sig {
			return op, true
		}
	}
	return 0, false
}

// VisibleSignature renders a signature with S, T and L for space, tab and
// newline.
func VisibleSignature(sig string) string {
	out := make([]byte, len(sig))
	for i := 0; i < len(sig); i++ {
		switch sig[i] {
		case ' ':
			out[i] = 'S'
		case '\t':
			out[i] = 'T'
		case '\n':
			out[i] = 'L'
		default:
			out[i] = '?'
		}
	}
	return string(out)
}

// AllOpcodes returns all defined opcodes in table order.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, opcodeCount)
	for op := Opcode(0); op < opcodeCount; op++ {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return int(opcodeCount)
}
