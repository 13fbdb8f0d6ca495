package compiler

import (
	"strings"

	"github.com/chazu/wsi/pkg/bytecode"
)

// EncodeParam renders v as a numeral body (without the terminating
// newline) using the fewest digits. Zero is a single space so that it
// survives strict parsing; negative values use all 64 digits.
func EncodeParam(v int64) string {
	u := uint64(v)
	if u == 0 {
		return " "
	}
	var buf [64]byte
	i := len(buf)
	for u > 0 {
		i--
		if u&1 == 1 {
			buf[i] = '\t'
		} else {
			buf[i] = ' '
		}
		u >>= 1
	}
	return string(buf[i:])
}

// EncodeInstruction renders one instruction as canonical source.
func EncodeInstruction(in bytecode.Instruction) string {
	if !in.Op.TakesParam() {
		return in.Op.Signature()
	}
	return in.Op.Signature() + EncodeParam(in.Param) + "\n"
}

// Encode renders a program as canonical whitespace source with no comments.
// Compiling the result yields the same opcodes and parameters.
func Encode(p *bytecode.Program) []byte {
	var sb strings.Builder
	for _, in := range p.Instructions {
		sb.WriteString(EncodeInstruction(in))
	}
	return []byte(sb.String())
}
