package vm

import "github.com/chazu/wsi/pkg/bytecode"

// opStore pops a value and then an address and writes the value to the heap.
func (m *Machine) opStore(in bytecode.Instruction) bytecode.Code {
	if m.sp < 2 {
		return bytecode.CodeTooFewItems
	}
	value := m.pop()
	addr := m.pop()
	m.heap.StoreInt(addr, value)
	return bytecode.CodeSuccess
}

// opRestore replaces the address on top of the stack with its heap value.
func (m *Machine) opRestore(in bytecode.Instruction) bytecode.Code {
	if m.sp == 0 {
		return bytecode.CodeEmptyStack
	}
	v, ok := m.heap.LoadInt(m.top())
	if !ok {
		return bytecode.CodeNoMatch
	}
	m.stack[m.sp-1] = v
	return bytecode.CodeSuccess
}
