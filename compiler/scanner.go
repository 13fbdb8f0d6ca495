package compiler

import (
	"io"

	"github.com/chazu/wsi/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Scanner: whitespace signatures -> opcodes
// ---------------------------------------------------------------------------

// Scanner assembles whitespace characters into instruction signatures.
// Comment bytes are skipped without touching the signature.
type Scanner struct {
	source
	sig [bytecode.MaxSignatureLen]byte
	n   int
}

// NewScanner creates a scanner reading src from the cursor position.
func NewScanner(src []byte, cur *Cursor) *Scanner {
	return &Scanner{source: source{src: src, cur: cur}}
}

// Next scans the next instruction. The returned location is the position of
// the instruction's first whitespace character. At a clean end of input Next
// returns io.EOF; end of input inside a signature is a bad instruction.
func (s *Scanner) Next() (bytecode.Opcode, bytecode.SourceLocation, error) {
	var start bytecode.SourceLocation
	s.n = 0

	for {
		loc := s.cur.Location()
		ch, ok := s.next()
		if !ok {
			if s.n == 0 {
				return 0, loc, io.EOF
			}
			return 0, start, bytecode.NewError(bytecode.CodeBadInstruction, "", start)
		}

		if !isWhitespace(ch) {
			continue
		}
		if s.n == 0 {
			start = loc
		}

		s.sig[s.n] = ch
		s.n++

		if op, ok := bytecode.MatchSignature(string(s.sig[:s.n])); ok {
			return op, start, nil
		}
		if s.n == bytecode.MaxSignatureLen {
			return 0, start, bytecode.NewError(bytecode.CodeBadInstruction, "", start)
		}
	}
}

// Pending returns the partially assembled signature.
func (s *Scanner) Pending() string {
	return string(s.sig[:s.n])
}
