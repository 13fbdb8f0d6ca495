package vm

import "github.com/chazu/wsi/pkg/bytecode"

// opArith applies a binary operator to the second item and the top item,
// replacing both with the result. Division truncates toward zero.
func (m *Machine) opArith(in bytecode.Instruction) bytecode.Code {
	if m.sp < 2 {
		return bytecode.CodeTooFewItems
	}
	a, b := m.stack[m.sp-2], m.stack[m.sp-1]

	var r int64
	switch in.Op {
	case bytecode.OpAdd:
		r = a + b
	case bytecode.OpSub:
		r = a - b
	case bytecode.OpMul:
		r = a * b
	case bytecode.OpDiv:
		if b == 0 {
			return bytecode.CodeDivisionByZero
		}
		r = a / b
	case bytecode.OpMod:
		if b == 0 {
			return bytecode.CodeDivisionByZero
		}
		r = a % b
	default:
		return bytecode.CodeBadInstruction
	}

	m.sp--
	m.stack[m.sp-1] = r
	return bytecode.CodeSuccess
}
