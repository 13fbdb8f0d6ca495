package vm

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/chazu/wsi/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// I/O primitives
// ---------------------------------------------------------------------------

// eofValue is stored by READC and READI when input is exhausted.
const eofValue = -1

func (m *Machine) write(b []byte) bytecode.Code {
	if _, err := m.out.Write(b); err != nil {
		m.cause = err
		return bytecode.CodeFailure
	}
	return bytecode.CodeSuccess
}

// opPutc writes the top item as a UTF-8 encoded character. Values that are
// not valid code points print as U+FFFD.
func (m *Machine) opPutc(in bytecode.Instruction) bytecode.Code {
	if m.sp == 0 {
		return bytecode.CodeEmptyStack
	}
	v := m.top()
	r := utf8.RuneError
	if v >= 0 && v <= utf8.MaxRune {
		r = rune(v)
	}
	m.numbuf = utf8.AppendRune(m.numbuf[:0], r)
	if code := m.write(m.numbuf); code != bytecode.CodeSuccess {
		return code
	}
	m.sp--
	return bytecode.CodeSuccess
}

func (m *Machine) opPuti(in bytecode.Instruction) bytecode.Code {
	if m.sp == 0 {
		return bytecode.CodeEmptyStack
	}
	m.numbuf = strconv.AppendInt(m.numbuf[:0], m.top(), 10)
	if code := m.write(m.numbuf); code != bytecode.CodeSuccess {
		return code
	}
	m.sp--
	return bytecode.CodeSuccess
}

// opReadc reads one character and stores its code point at the address on
// top of the stack.
func (m *Machine) opReadc(in bytecode.Instruction) bytecode.Code {
	if m.sp == 0 {
		return bytecode.CodeEmptyStack
	}

	var v int64 = eofValue
	r, _, err := m.in.ReadRune()
	switch {
	case err == nil:
		v = int64(r)
	case !errors.Is(err, io.EOF):
		m.cause = err
		return bytecode.CodeBadInput
	}

	m.heap.StoreInt(m.pop(), v)
	return bytecode.CodeSuccess
}

// opReadi reads one line holding a decimal integer and stores it at the
// address on top of the stack.
func (m *Machine) opReadi(in bytecode.Instruction) bytecode.Code {
	if m.sp == 0 {
		return bytecode.CodeEmptyStack
	}

	line, err := m.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		m.cause = err
		return bytecode.CodeBadInput
	}

	var v int64 = eofValue
	if err == nil || line != "" {
		v, err = strconv.ParseInt(strings.TrimSpace(line), 10, 64)
		if err != nil {
			m.cause = err
			return bytecode.CodeBadInput
		}
	}

	m.heap.StoreInt(m.pop(), v)
	return bytecode.CodeSuccess
}

func (m *Machine) opDprint(in bytecode.Instruction) bytecode.Code {
	if _, err := fmt.Fprintf(m.diag, "stack = %s\n", m.formatStack()); err != nil {
		m.cause = err
		return bytecode.CodeFailure
	}
	return bytecode.CodeSuccess
}
