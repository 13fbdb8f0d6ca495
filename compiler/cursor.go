package compiler

import (
	"fmt"

	"github.com/chazu/wsi/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Cursor: read position shared by the scanner and the parameter decoder
// ---------------------------------------------------------------------------

// Cursor tracks the next unread byte of the source.
type Cursor struct {
	Offset int // byte offset into the source
	Line   int // line of the next byte (1-based)
	Column int // column of the next byte (1-based)
}

// NewCursor returns a cursor at the start of the source.
func NewCursor() *Cursor {
	return &Cursor{Line: 1, Column: 1}
}

// advance moves past ch.
func (c *Cursor) advance(ch byte) {
	c.Offset++
	if ch == '\n' {
		c.Line++
		c.Column = 1
	} else {
		c.Column++
	}
}

// Location returns the position of the next byte.
func (c *Cursor) Location() bytecode.SourceLocation {
	return bytecode.SourceLocation{Line: uint32(c.Line), Column: uint32(c.Column)}
}

func (c *Cursor) String() string {
	return fmt.Sprintf("%d:%d", c.Line, c.Column)
}

// isWhitespace reports whether ch is one of the three significant bytes.
// Everything else is a comment.
func isWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n'
}

// source pairs the raw text with the cursor reading it.
type source struct {
	src []byte
	cur *Cursor
}

// next consumes one byte. Returns false at end of input.
func (s *source) next() (byte, bool) {
	if s.cur.Offset >= len(s.src) {
		return 0, false
	}
	ch := s.src[s.cur.Offset]
	s.cur.advance(ch)
	return ch, true
}
