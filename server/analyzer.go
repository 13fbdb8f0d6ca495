package server

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf16"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/wsi/cache"
	"github.com/chazu/wsi/compiler"
	"github.com/chazu/wsi/pkg/bytecode"
)

// Document is an open source file and the result of compiling it.
type Document struct {
	Text    string
	Program *bytecode.Program // nil when compilation failed
	Err     error

	lines []int // byte offset of each line start
}

// newDocument wraps text and indexes its lines.
func newDocument(text string) *Document {
	lines := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, i+1)
		}
	}
	return &Document{Text: text, lines: lines}
}

// Analyzer compiles documents, optionally through the compile cache.
// Analyze calls are serialized, so edits are compiled in arrival order.
type Analyzer struct {
	Options compiler.Options
	Cache   *cache.Cache

	mu sync.Mutex
}

// Analyze compiles text into a Document.
func (a *Analyzer) Analyze(text string) *Document {
	a.mu.Lock()
	defer a.mu.Unlock()

	doc := newDocument(text)
	if a.Cache != nil {
		doc.Program, _, doc.Err = a.Cache.Compile([]byte(text), a.Options)
	} else {
		doc.Program, doc.Err = compiler.Compile([]byte(text), a.Options)
	}
	if doc.Err != nil {
		doc.Program = nil
	}
	return doc
}

// ---------------------------------------------------------------------------
// Positions
// ---------------------------------------------------------------------------

// Source columns count bytes; LSP characters count UTF-16 code units.

// position converts a 1-based byte location to a 0-based LSP position.
func (d *Document) position(loc bytecode.SourceLocation) protocol.Position {
	if loc.Line == 0 || len(d.lines) == 0 {
		return protocol.Position{}
	}
	line := int(loc.Line) - 1
	if line >= len(d.lines) {
		return documentEnd(d.Text)
	}

	start := d.lines[line]
	end := len(d.Text)
	if line+1 < len(d.lines) {
		end = d.lines[line+1] - 1
	}
	if loc.Column > 0 && start+int(loc.Column)-1 < end {
		end = start + int(loc.Column) - 1
	}
	return protocol.Position{
		Line:      protocol.UInteger(line),
		Character: protocol.UInteger(utf16Len(d.Text[start:end])),
	}
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// byteOffset converts an LSP position to a byte offset into text, clamping
// the character to the end of its line. Reports false when the line does
// not exist.
func byteOffset(text string, pos protocol.Position) (int, bool) {
	off := 0
	for l := protocol.UInteger(0); l < pos.Line; l++ {
		i := strings.IndexByte(text[off:], '\n')
		if i < 0 {
			return 0, false
		}
		off += i + 1
	}

	units := 0
	for off < len(text) && units < int(pos.Character) {
		r, w := utf8.DecodeRuneInString(text[off:])
		if r == '\n' {
			break
		}
		units += utf16.RuneLen(r)
		off += w
	}
	return off, true
}

func positionBefore(a, b protocol.Position) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Character < b.Character
}

// documentEnd returns the position just past the last byte of text.
func documentEnd(text string) protocol.Position {
	line := strings.Count(text, "\n")
	last := text[strings.LastIndexByte(text, '\n')+1:]
	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(utf16Len(last))}
}

// instructionAt returns the index of the instruction whose extent holds pos:
// the last instruction starting at or before pos. -1 when pos precedes every
// instruction.
func instructionAt(d *Document, pos protocol.Position) int {
	p := d.Program
	lo, hi := 0, p.Len()
	for lo < hi {
		mid := (lo + hi) / 2
		if positionBefore(pos, d.position(p.At(mid).Loc)) {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo - 1
}

// instructionRange spans from instruction i to the start of the next one,
// or to the end of the document for the last instruction.
func instructionRange(d *Document, i int) protocol.Range {
	p := d.Program
	r := protocol.Range{Start: d.position(p.At(i).Loc)}
	if i+1 < p.Len() {
		r.End = d.position(p.At(i + 1).Loc)
	} else {
		r.End = documentEnd(d.Text)
	}
	return r
}

// ---------------------------------------------------------------------------
// Language features
// ---------------------------------------------------------------------------

// diagnostics reports the compile error of doc, if any.
func diagnostics(doc *Document) []protocol.Diagnostic {
	if doc.Err == nil {
		return []protocol.Diagnostic{}
	}

	severity := protocol.DiagnosticSeverityError
	source := lspName
	d := protocol.Diagnostic{
		Severity: &severity,
		Source:   &source,
		Message:  doc.Err.Error(),
	}

	var e *bytecode.Error
	if errors.As(doc.Err, &e) {
		start := doc.position(e.Loc)
		d.Range = protocol.Range{Start: start, End: protocol.Position{Line: start.Line, Character: start.Character + 1}}
		d.Message = e.Code.Message()
		if e.Op != "" {
			d.Message = e.Op + ": " + d.Message
		}
		if e.Err != nil {
			d.Message += " (" + e.Err.Error() + ")"
		}
	}
	return []protocol.Diagnostic{d}
}

// hoverMarkdown describes instruction i of p.
func hoverMarkdown(p *bytecode.Program, i int) string {
	in := p.At(i)

	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n\n", in)
	fmt.Fprintf(&b, "Signature `%s`, instruction %d", bytecode.VisibleSignature(in.Op.Signature()), i)

	info := bytecode.GetOpcodeInfo(in.Op)
	fmt.Fprintf(&b, "\n\n%s: pops %d, pushes %d", opcodeGroup(in.Op), info.StackPop, info.StackPush)

	if in.Op.IsJump() {
		if target, ok := p.ResolveLabel(in.Param); ok {
			fmt.Fprintf(&b, "\n\nTarget: instruction %d (line %d)", target, p.At(target).Loc.Line)
		} else {
			fmt.Fprintf(&b, "\n\nTarget: label %d is not defined", in.Param)
		}
	}
	if in.Op == bytecode.OpLabel {
		if first, _ := p.ResolveLabel(in.Param); first != i {
			fmt.Fprintf(&b, "\n\nShadowed by instruction %d", first)
		}
	}
	return b.String()
}

// opcodeGroup names the instruction family of op.
func opcodeGroup(op bytecode.Opcode) string {
	switch {
	case op.IsArithmetic():
		return "Arithmetic"
	case op.IsIO():
		return "I/O"
	case op == bytecode.OpStore || op == bytecode.OpRestore:
		return "Heap"
	case op == bytecode.OpDprint:
		return "Debug"
	case op >= bytecode.OpLabel:
		return "Flow"
	}
	return "Stack"
}

// labelSymbols lists every LABEL instruction as a document symbol.
func labelSymbols(d *Document) []protocol.DocumentSymbol {
	p := d.Program
	symbols := []protocol.DocumentSymbol{}
	for i, in := range p.Instructions {
		if in.Op != bytecode.OpLabel {
			continue
		}
		detail := fmt.Sprintf("instruction %d", i)
		if first, _ := p.ResolveLabel(in.Param); first != i {
			detail += " (shadowed)"
		}
		r := instructionRange(d, i)
		symbols = append(symbols, protocol.DocumentSymbol{
			Name:           fmt.Sprintf("label %d", in.Param),
			Detail:         &detail,
			Kind:           protocol.SymbolKindFunction,
			Range:          r,
			SelectionRange: r,
		})
	}
	return symbols
}

// labelAt returns the label value referenced by the LABEL, CALL or jump
// instruction at index i.
func labelAt(p *bytecode.Program, i int) (int64, bool) {
	if i < 0 || i >= p.Len() {
		return 0, false
	}
	in := p.At(i)
	if in.Op == bytecode.OpLabel || in.Op.IsJump() {
		return in.Param, true
	}
	return 0, false
}

// labelReferences returns the index of every LABEL, CALL and jump naming label.
func labelReferences(p *bytecode.Program, label int64) []int {
	var refs []int
	for i, in := range p.Instructions {
		if (in.Op == bytecode.OpLabel || in.Op.IsJump()) && in.Param == label {
			refs = append(refs, i)
		}
	}
	return refs
}

// completions offers instruction mnemonics matching prefix. Accepting one
// inserts the instruction's whitespace signature.
func completions(prefix string) []protocol.CompletionItem {
	upper := strings.ToUpper(prefix)
	var items []protocol.CompletionItem
	for _, op := range bytecode.AllOpcodes() {
		name := op.String()
		if !strings.HasPrefix(name, upper) {
			continue
		}
		kind := protocol.CompletionItemKindKeyword
		detail := bytecode.VisibleSignature(op.Signature())
		if op.TakesParam() {
			detail += " <number>"
		}
		insert := op.Signature()
		items = append(items, protocol.CompletionItem{
			Label:      name,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &insert,
		})
	}
	return items
}
