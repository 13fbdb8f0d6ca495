package bytecode

import (
	"fmt"
	"strconv"
)

// ProgramVersion is the current program image format version.
// Increment when making incompatible changes to the format.
const ProgramVersion uint16 = 1

// SourceLocation is a 1-based line/column position in the source text.
type SourceLocation struct {
	Line   uint32 `cbor:"line"`
	Column uint32 `cbor:"col"`
}

func (l SourceLocation) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// Instruction is one decoded operation. Param is meaningful only for
// opcodes whose TakesParam is true.
type Instruction struct {
	Op    Opcode         `cbor:"op"`
	Param int64          `cbor:"param,omitempty"`
	Loc   SourceLocation `cbor:"loc"`
}

func (in Instruction) String() string {
	if in.Op.TakesParam() {
		return in.Op.String() + " " + strconv.FormatInt(in.Param, 10)
	}
	return in.Op.String()
}

// LabelEntry records where a LABEL instruction sits in the program.
type LabelEntry struct {
	Label int64 `cbor:"label"`
	Index int   `cbor:"index"`
}

// Program is a compiled whitespace program: a flat instruction list plus
// the index of every label definition. It is read-only once built.
type Program struct {
	Version      uint16        `cbor:"version"`
	Instructions []Instruction `cbor:"code"`
	Labels       []LabelEntry  `cbor:"labels"`

	// first instruction index per label value
	labelIndex map[int64]int
}

// NewProgram creates a new empty program with the current version.
func NewProgram() *Program {
	return &Program{
		Version:      ProgramVersion,
		Instructions: make([]Instruction, 0, 2),
		Labels:       make([]LabelEntry, 0, 2),
		labelIndex:   make(map[int64]int),
	}
}

// Append adds an instruction and returns its index. LABEL instructions are
// also recorded in the label index.
func (p *Program) Append(in Instruction) int {
	idx := len(p.Instructions)
	if idx == cap(p.Instructions) {
		p.Instructions = grow(p.Instructions)
	}
	p.Instructions = append(p.Instructions, in)

	if in.Op == OpLabel {
		if len(p.Labels) == cap(p.Labels) {
			p.Labels = grow(p.Labels)
		}
		p.Labels = append(p.Labels, LabelEntry{Label: in.Param, Index: idx})
		if p.labelIndex == nil {
			p.labelIndex = make(map[int64]int)
		}
		if _, dup := p.labelIndex[in.Param]; !dup {
			p.labelIndex[in.Param] = idx
		}
	}
	return idx
}

// grow doubles the capacity of s, keeping its contents.
func grow[T any](s []T) []T {
	n := cap(s) * 2
	if n == 0 {
		n = 2
	}
	out := make([]T, len(s), n)
	copy(out, s)
	return out
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return len(p.Instructions)
}

// At returns the instruction at index i.
// Panics if the index is out of bounds.
func (p *Program) At(i int) Instruction {
	return p.Instructions[i]
}

// ResolveLabel returns the instruction index of the first LABEL whose
// parameter equals label.
func (p *Program) ResolveLabel(label int64) (int, bool) {
	if p.labelIndex == nil {
		p.rebuildLabelIndex()
	}
	idx, ok := p.labelIndex[label]
	return idx, ok
}

// LabelCount returns the number of label definitions, duplicates included.
func (p *Program) LabelCount() int {
	return len(p.Labels)
}

func (p *Program) rebuildLabelIndex() {
	p.labelIndex = make(map[int64]int, len(p.Labels))
	for _, l := range p.Labels {
		if _, dup := p.labelIndex[l.Label]; !dup {
			p.labelIndex[l.Label] = l.Index
		}
	}
}

// Validate checks that the label table agrees with the instruction list.
// Programs produced by the compiler always validate; decoded images may not.
func (p *Program) Validate() error {
	if p.Version > ProgramVersion {
		return fmt.Errorf("program version %d is newer than supported version %d", p.Version, ProgramVersion)
	}
	n := 0
	for i, in := range p.Instructions {
		if !in.Op.Valid() {
			return fmt.Errorf("instruction %d: invalid opcode 0x%02X", i, byte(in.Op))
		}
		if in.Op != OpLabel {
			continue
		}
		if n >= len(p.Labels) {
			return fmt.Errorf("instruction %d: label %d missing from label table", i, in.Param)
		}
		if l := p.Labels[n]; l.Index != i || l.Label != in.Param {
			return fmt.Errorf("label table entry %d = (%d @ %d), want (%d @ %d)", n, l.Label, l.Index, in.Param, i)
		}
		n++
	}
	if n != len(p.Labels) {
		return fmt.Errorf("label table has %d entries, program defines %d labels", len(p.Labels), n)
	}
	return nil
}
