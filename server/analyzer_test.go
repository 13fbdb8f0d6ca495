package server

import (
	"path/filepath"
	"strings"
	"sync"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/wsi/cache"
	"github.com/chazu/wsi/compiler"
	"github.com/chazu/wsi/pkg/bytecode"
)

// callProgram is "CALL 1; END; LABEL 1; RET" with one instruction per line.
const callProgram = "call\n \t\t\n" + "end\n\n\n" + "label\n  \t\n" + "ret\n\t\n"

func analyze(t *testing.T, text string) *Document {
	t.Helper()
	a := &Analyzer{Options: compiler.DefaultOptions()}
	return a.Analyze(text)
}

func TestAnalyze(t *testing.T) {
	doc := analyze(t, callProgram)
	if doc.Err != nil {
		t.Fatalf("Analyze error: %v", doc.Err)
	}
	if doc.Program.Len() != 4 {
		t.Fatalf("got %d instructions, want 4:\n%s", doc.Program.Len(), doc.Program.Disassemble())
	}
	if doc.Text != callProgram {
		t.Error("document text not kept")
	}

	bad := analyze(t, "\t\n\n ")
	if bad.Err == nil || bad.Program != nil {
		t.Errorf("bad source: err=%v program=%v", bad.Err, bad.Program)
	}
}

func TestAnalyzeWithCache(t *testing.T) {
	c, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	a := &Analyzer{Options: compiler.DefaultOptions(), Cache: c}
	for i := 0; i < 2; i++ {
		doc := a.Analyze(callProgram)
		if doc.Err != nil || doc.Program.Len() != 4 {
			t.Fatalf("pass %d: err=%v", i, doc.Err)
		}
	}
	if n, _ := c.Len(); n != 1 {
		t.Errorf("cache has %d entries, want 1", n)
	}
}

func TestAnalyzeConcurrent(t *testing.T) {
	c, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	a := &Analyzer{Options: compiler.DefaultOptions(), Cache: c}
	sources := []string{callProgram, "\n\n\n", "  \t\n\n\n\n"}

	var wg sync.WaitGroup
	errs := make(chan error, 30)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(src string) {
			defer wg.Done()
			if doc := a.Analyze(src); doc.Err != nil {
				errs <- doc.Err
			}
		}(sources[i%len(sources)])
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Analyze error: %v", err)
	}
	if n, _ := c.Len(); n != len(sources) {
		t.Errorf("cache has %d entries, want %d", n, len(sources))
	}
}

func TestDocumentPosition(t *testing.T) {
	// "é" is two bytes and one UTF-16 unit; "😀" is four bytes and two units.
	doc := newDocument("ab\n  é x\n😀\t\n")

	tests := []struct {
		loc  bytecode.SourceLocation
		want protocol.Position
	}{
		{bytecode.SourceLocation{Line: 1, Column: 1}, protocol.Position{Line: 0, Character: 0}},
		{bytecode.SourceLocation{Line: 1, Column: 3}, protocol.Position{Line: 0, Character: 2}},
		{bytecode.SourceLocation{Line: 2, Column: 5}, protocol.Position{Line: 1, Character: 3}},
		{bytecode.SourceLocation{Line: 2, Column: 6}, protocol.Position{Line: 1, Character: 4}},
		{bytecode.SourceLocation{Line: 3, Column: 5}, protocol.Position{Line: 2, Character: 2}},
		{bytecode.SourceLocation{Line: 3, Column: 40}, protocol.Position{Line: 2, Character: 3}},
		{bytecode.SourceLocation{Line: 4, Column: 1}, protocol.Position{Line: 3, Character: 0}},
		{bytecode.SourceLocation{}, protocol.Position{}},
	}
	for _, tt := range tests {
		if got := doc.position(tt.loc); got != tt.want {
			t.Errorf("position(%s) = %+v, want %+v", tt.loc, got, tt.want)
		}
	}
}

func TestByteOffset(t *testing.T) {
	text := "ab\né x\n😀z"

	tests := []struct {
		pos  protocol.Position
		want int
		ok   bool
	}{
		{protocol.Position{Line: 0, Character: 0}, 0, true},
		{protocol.Position{Line: 0, Character: 9}, 2, true},
		{protocol.Position{Line: 1, Character: 1}, 5, true},
		{protocol.Position{Line: 1, Character: 3}, 7, true},
		{protocol.Position{Line: 2, Character: 2}, 12, true},
		{protocol.Position{Line: 2, Character: 3}, 13, true},
		{protocol.Position{Line: 3, Character: 0}, 0, false},
	}
	for _, tt := range tests {
		got, ok := byteOffset(text, tt.pos)
		if got != tt.want || ok != tt.ok {
			t.Errorf("byteOffset(%+v) = %d, %v; want %d, %v", tt.pos, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDiagnosticsNonASCIIComment(t *testing.T) {
	// The bad signature starts after a two-byte comment character.
	d := diagnostics(analyze(t, "é\t\n\n "))
	if len(d) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(d))
	}
	want := protocol.Range{
		Start: protocol.Position{Line: 0, Character: 1},
		End:   protocol.Position{Line: 0, Character: 2},
	}
	if d[0].Range != want {
		t.Errorf("range = %+v, want %+v", d[0].Range, want)
	}
}

func TestDocumentEnd(t *testing.T) {
	tests := []struct {
		text string
		want protocol.Position
	}{
		{"", protocol.Position{Line: 0, Character: 0}},
		{"abc", protocol.Position{Line: 0, Character: 3}},
		{"a\nbc", protocol.Position{Line: 1, Character: 2}},
		{"a\n", protocol.Position{Line: 1, Character: 0}},
		{"a\né😀", protocol.Position{Line: 1, Character: 3}},
	}
	for _, tt := range tests {
		if got := documentEnd(tt.text); got != tt.want {
			t.Errorf("documentEnd(%q) = %+v, want %+v", tt.text, got, tt.want)
		}
	}
}

func TestInstructionAt(t *testing.T) {
	doc := analyze(t, callProgram)

	// "call" comment precedes the first signature on line 1.
	if got := instructionAt(doc, protocol.Position{Line: 0, Character: 0}); got != -1 {
		t.Errorf("before first instruction = %d, want -1", got)
	}

	tests := []struct {
		pos  protocol.Position
		want int
	}{
		{protocol.Position{Line: 0, Character: 4}, 0},
		{protocol.Position{Line: 1, Character: 1}, 0},
		{protocol.Position{Line: 2, Character: 2}, 0},
		{protocol.Position{Line: 2, Character: 3}, 1},
		{protocol.Position{Line: 3, Character: 0}, 1},
		{protocol.Position{Line: 6, Character: 0}, 2},
		{protocol.Position{Line: 9, Character: 0}, 3},
		{protocol.Position{Line: 50, Character: 0}, 3},
	}
	for _, tt := range tests {
		if got := instructionAt(doc, tt.pos); got != tt.want {
			t.Errorf("instructionAt(%+v) = %d, want %d", tt.pos, got, tt.want)
		}
	}
}

func TestDiagnostics(t *testing.T) {
	if d := diagnostics(analyze(t, callProgram)); len(d) != 0 {
		t.Errorf("clean document has %d diagnostics", len(d))
	}

	d := diagnostics(analyze(t, "ok\t\n\n "))
	if len(d) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(d))
	}
	want := protocol.Range{
		Start: protocol.Position{Line: 0, Character: 2},
		End:   protocol.Position{Line: 0, Character: 3},
	}
	if d[0].Range != want {
		t.Errorf("range = %+v, want %+v", d[0].Range, want)
	}
	if d[0].Message != "bad instruction" {
		t.Errorf("message = %q", d[0].Message)
	}
	if d[0].Severity == nil || *d[0].Severity != protocol.DiagnosticSeverityError {
		t.Error("severity should be error")
	}

	d = diagnostics(analyze(t, "  \t"))
	if len(d) != 1 || !strings.HasPrefix(d[0].Message, "PUSH: ") {
		t.Errorf("param diagnostic = %+v", d)
	}
}

func TestHoverMarkdown(t *testing.T) {
	p := analyze(t, callProgram).Program

	h := hoverMarkdown(p, 0)
	if !strings.Contains(h, "**CALL 1**") {
		t.Errorf("hover missing instruction: %q", h)
	}
	if !strings.Contains(h, "`LST`") {
		t.Errorf("hover missing signature: %q", h)
	}
	if !strings.Contains(h, "Target: instruction 2") {
		t.Errorf("hover missing target: %q", h)
	}
	if !strings.Contains(h, "Flow: pops 0, pushes 0") {
		t.Errorf("hover missing stack effect: %q", h)
	}

	missing := analyze(t, "\n \n\t\t\n\n\n\n").Program // JMP 3; END
	if h := hoverMarkdown(missing, 0); !strings.Contains(h, "label 3 is not defined") {
		t.Errorf("hover for dangling jump = %q", h)
	}
}

func TestOpcodeGroup(t *testing.T) {
	tests := []struct {
		op   bytecode.Opcode
		want string
	}{
		{bytecode.OpPush, "Stack"},
		{bytecode.OpSlide, "Stack"},
		{bytecode.OpMod, "Arithmetic"},
		{bytecode.OpRestore, "Heap"},
		{bytecode.OpJn, "Flow"},
		{bytecode.OpEnd, "Flow"},
		{bytecode.OpReadi, "I/O"},
		{bytecode.OpDprint, "Debug"},
	}
	for _, tt := range tests {
		if got := opcodeGroup(tt.op); got != tt.want {
			t.Errorf("opcodeGroup(%s) = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestLabelSymbols(t *testing.T) {
	// LABEL 1; LABEL 1; END
	doc := analyze(t, "\n  \t\n"+"\n  \t\n"+"\n\n\n")
	symbols := labelSymbols(doc)
	if len(symbols) != 2 {
		t.Fatalf("got %d symbols, want 2", len(symbols))
	}
	if symbols[0].Name != "label 1" {
		t.Errorf("name = %q", symbols[0].Name)
	}
	if strings.Contains(*symbols[0].Detail, "shadowed") {
		t.Error("first label should not be shadowed")
	}
	if !strings.Contains(*symbols[1].Detail, "shadowed") {
		t.Error("second label should be shadowed")
	}
	if symbols[0].Kind != protocol.SymbolKindFunction {
		t.Errorf("kind = %v", symbols[0].Kind)
	}
}

func TestLabelReferences(t *testing.T) {
	p := analyze(t, callProgram).Program

	label, ok := labelAt(p, 0)
	if !ok || label != 1 {
		t.Fatalf("labelAt(0) = %d, %v", label, ok)
	}
	if _, ok := labelAt(p, 1); ok {
		t.Error("END has no label")
	}
	if _, ok := labelAt(p, -1); ok {
		t.Error("out of range index has no label")
	}

	refs := labelReferences(p, 1)
	if len(refs) != 2 || refs[0] != 0 || refs[1] != 2 {
		t.Errorf("labelReferences(1) = %v, want [0 2]", refs)
	}
}

func TestCompletions(t *testing.T) {
	items := completions("pu")
	var names []string
	for _, it := range items {
		names = append(names, it.Label)
	}
	if strings.Join(names, ",") != "PUSH,PUTC,PUTI" {
		t.Errorf("completions(pu) = %v", names)
	}
	if *items[0].InsertText != "  " {
		t.Errorf("PUSH inserts %q", *items[0].InsertText)
	}
	if *items[0].Detail != "SS <number>" {
		t.Errorf("PUSH detail = %q", *items[0].Detail)
	}

	if items := completions("zz"); len(items) != 0 {
		t.Errorf("completions(zz) = %d items", len(items))
	}
}

func TestExtractPrefix(t *testing.T) {
	tests := []struct {
		text string
		pos  protocol.Position
		want string
	}{
		{"pu", protocol.Position{Line: 0, Character: 2}, "pu"},
		{"  \tdu", protocol.Position{Line: 0, Character: 5}, "du"},
		{"x\nsw", protocol.Position{Line: 1, Character: 2}, "sw"},
		{"abc", protocol.Position{Line: 0, Character: 0}, ""},
		{"", protocol.Position{Line: 0, Character: 0}, ""},
		{"one", protocol.Position{Line: 5, Character: 0}, ""},
		{"end", protocol.Position{Line: 0, Character: 99}, "end"},
		{"é re", protocol.Position{Line: 0, Character: 4}, "re"},
		{"😀ju", protocol.Position{Line: 0, Character: 3}, "j"},
	}
	for _, tt := range tests {
		if got := extractPrefix(tt.text, tt.pos); got != tt.want {
			t.Errorf("extractPrefix(%q, %+v) = %q, want %q", tt.text, tt.pos, got, tt.want)
		}
	}
}
