package vm

import "github.com/chazu/wsi/pkg/bytecode"

// ---------------------------------------------------------------------------
// Stack manipulation primitives
// ---------------------------------------------------------------------------

func (m *Machine) full() bool {
	return m.sp >= len(m.stack)
}

func (m *Machine) push(v int64) {
	m.stack[m.sp] = v
	m.sp++
}

func (m *Machine) pop() int64 {
	m.sp--
	return m.stack[m.sp]
}

func (m *Machine) top() int64 {
	return m.stack[m.sp-1]
}

func (m *Machine) opPush(in bytecode.Instruction) bytecode.Code {
	if m.full() {
		return bytecode.CodeFullStack
	}
	m.push(in.Param)
	return bytecode.CodeSuccess
}

func (m *Machine) opDup(in bytecode.Instruction) bytecode.Code {
	if m.sp == 0 {
		return bytecode.CodeEmptyStack
	}
	if m.full() {
		return bytecode.CodeFullStack
	}
	m.push(m.top())
	return bytecode.CodeSuccess
}

// opCopy pushes the element n places from the bottom of the stack.
func (m *Machine) opCopy(in bytecode.Instruction) bytecode.Code {
	if m.sp == 0 {
		return bytecode.CodeEmptyStack
	}
	if m.full() {
		return bytecode.CodeFullStack
	}
	if in.Param < 0 || in.Param >= int64(m.sp) {
		return bytecode.CodeOutOfRange
	}
	m.push(m.stack[in.Param])
	return bytecode.CodeSuccess
}

func (m *Machine) opSwap(in bytecode.Instruction) bytecode.Code {
	if m.sp < 2 {
		return bytecode.CodeTooFewItems
	}
	m.stack[m.sp-1], m.stack[m.sp-2] = m.stack[m.sp-2], m.stack[m.sp-1]
	return bytecode.CodeSuccess
}

func (m *Machine) opPop(in bytecode.Instruction) bytecode.Code {
	if m.sp == 0 {
		return bytecode.CodeEmptyStack
	}
	m.sp--
	return bytecode.CodeSuccess
}

// opSlide drops n items from under the top item.
func (m *Machine) opSlide(in bytecode.Instruction) bytecode.Code {
	if m.sp == 0 {
		return bytecode.CodeEmptyStack
	}
	if in.Param < 0 || in.Param >= int64(m.sp) {
		return bytecode.CodeOutOfRange
	}
	top := m.top()
	m.sp -= int(in.Param)
	m.stack[m.sp-1] = top
	return bytecode.CodeSuccess
}
