package vm

import "github.com/chazu/wsi/pkg/bytecode"

// ---------------------------------------------------------------------------
// Flow control primitives
//
// Handlers that redirect set the current control-stack slot to the LABEL's
// index; the run loop then advances past it.
// ---------------------------------------------------------------------------

func (m *Machine) opLabel(in bytecode.Instruction) bytecode.Code {
	return bytecode.CodeSuccess
}

func (m *Machine) opCall(in bytecode.Instruction) bytecode.Code {
	target, ok := m.prog.ResolveLabel(in.Param)
	if !ok {
		return bytecode.CodeNoLabelFound
	}
	if m.frameDepth >= len(m.frames) {
		return bytecode.CodeMaxRecursionDepth
	}
	m.frames[m.frameDepth] = target
	m.frameDepth++
	return bytecode.CodeSuccess
}

func (m *Machine) opJump(in bytecode.Instruction) bytecode.Code {
	target, ok := m.prog.ResolveLabel(in.Param)
	if !ok {
		return bytecode.CodeNoLabelFound
	}
	m.frames[m.frameDepth-1] = target
	return bytecode.CodeSuccess
}

// opBranch handles JZ and JN. The label is only resolved when the branch is
// taken, and before the test value is popped.
func (m *Machine) opBranch(in bytecode.Instruction) bytecode.Code {
	if m.sp == 0 {
		return bytecode.CodeEmptyStack
	}

	v := m.top()
	taken := v == 0
	if in.Op == bytecode.OpJn {
		taken = v < 0
	}
	if !taken {
		m.sp--
		return bytecode.CodeSuccess
	}

	target, ok := m.prog.ResolveLabel(in.Param)
	if !ok {
		return bytecode.CodeNoLabelFound
	}
	m.sp--
	m.frames[m.frameDepth-1] = target
	return bytecode.CodeSuccess
}

func (m *Machine) opRet(in bytecode.Instruction) bytecode.Code {
	if m.frameDepth <= 1 {
		return bytecode.CodeReturnFromMain
	}
	m.frameDepth--
	return bytecode.CodeSuccess
}

func (m *Machine) opEnd(in bytecode.Instruction) bytecode.Code {
	m.halted = true
	return bytecode.CodeSuccess
}
