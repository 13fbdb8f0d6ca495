package bytecode

import (
	"fmt"
	"sort"
	"strings"
)

// Disassemble returns a human-readable listing of the program.
func (p *Program) Disassemble() string {
	return p.DisassembleWithName("")
}

// DisassembleWithName returns a human-readable listing with a name header.
func (p *Program) DisassembleWithName(name string) string {
	var sb strings.Builder

	// Header
	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; Whitespace Program v%d\n", p.Version))
	sb.WriteString(fmt.Sprintf("; Instructions: %d\n", len(p.Instructions)))
	sb.WriteString("\n")

	// Labels, sorted by value for readability
	if len(p.Labels) > 0 {
		labels := make([]LabelEntry, len(p.Labels))
		copy(labels, p.Labels)
		sort.SliceStable(labels, func(i, j int) bool { return labels[i].Label < labels[j].Label })

		sb.WriteString("; Labels:\n")
		for _, l := range labels {
			sb.WriteString(fmt.Sprintf(";   %-8d -> %04d\n", l.Label, l.Index))
		}
		sb.WriteString("\n")
	}

	// Code section
	sb.WriteString("; Code:\n")
	for i := range p.Instructions {
		sb.WriteString(p.disassembleInstruction(i))
		sb.WriteString("\n")
	}

	return sb.String()
}

// disassembleInstruction formats one instruction as
// "IIII  NAME param   ; SIG  line:col".
func (p *Program) disassembleInstruction(i int) string {
	if i < 0 || i >= len(p.Instructions) {
		return "<end of code>"
	}
	in := p.Instructions[i]
	text := in.String()

	if in.Op.IsJump() {
		if target, ok := p.ResolveLabel(in.Param); ok {
			text = fmt.Sprintf("%s (-> %04d)", text, target)
		} else {
			text += " (unresolved)"
		}
	}

	return fmt.Sprintf("%04d  %-26s ; %-4s  %s", i, text, VisibleSignature(in.Op.Signature()), in.Loc)
}

// DisassembleInstruction returns a human-readable representation of a single instruction.
func (p *Program) DisassembleInstruction(i int) string {
	return p.disassembleInstruction(i)
}

// DisassembleToLines returns the code listing as a slice of lines.
func (p *Program) DisassembleToLines() []string {
	lines := make([]string, 0, len(p.Instructions))
	for i := range p.Instructions {
		lines = append(lines, p.disassembleInstruction(i))
	}
	return lines
}
