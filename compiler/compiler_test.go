package compiler

import (
	"errors"
	"testing"

	"github.com/chazu/wsi/pkg/bytecode"
)

func TestCompileEachSignature(t *testing.T) {
	// Scanning a lone signature yields exactly one instruction of that kind.
	for _, op := range bytecode.AllOpcodes() {
		src := op.Signature()
		if op.TakesParam() {
			src += "\t\n"
		}

		prog, err := CompileString(src)
		if err != nil {
			t.Errorf("%s: Compile error: %v", op, err)
			continue
		}
		if prog.Len() != 1 {
			t.Errorf("%s: got %d instructions, want 1", op, prog.Len())
			continue
		}
		if got := prog.At(0).Op; got != op {
			t.Errorf("%s: compiled as %s", op, got)
		}
		if op.TakesParam() && prog.At(0).Param != 1 {
			t.Errorf("%s: param = %d, want 1", op, prog.At(0).Param)
		}
	}
}

func TestCompileEmpty(t *testing.T) {
	for _, src := range []string{"", "comments-only", "[x]\r{y}"} {
		prog, err := CompileString(src)
		if err != nil {
			t.Errorf("Compile(%q) error: %v", src, err)
			continue
		}
		if prog.Len() != 0 {
			t.Errorf("Compile(%q) = %d instructions, want 0", src, prog.Len())
		}
	}
}

func TestCompilePushEnd(t *testing.T) {
	prog, err := CompileString("  \t\n\n\n\n")
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}

	want := []bytecode.Instruction{
		{Op: bytecode.OpPush, Param: 1, Loc: bytecode.SourceLocation{Line: 1, Column: 1}},
		{Op: bytecode.OpEnd, Loc: bytecode.SourceLocation{Line: 2, Column: 1}},
	}
	if prog.Len() != len(want) {
		t.Fatalf("got %d instructions, want %d", prog.Len(), len(want))
	}
	for i, w := range want {
		if got := prog.At(i); got != w {
			t.Errorf("instruction %d = %+v, want %+v", i, got, w)
		}
	}
}

func TestCompileQuotedScenarioBytes(t *testing.T) {
	// "   \t \n\t\n  \n" reads as PUSH 2 (digits 010), PUTC, then a lone
	// newline that never completes a signature.
	_, err := CompileString("   \t \n\t\n  \n")
	if !errors.Is(err, bytecode.ErrBadInstruction) {
		t.Fatalf("err = %v, want bad instruction", err)
	}
	var e *bytecode.Error
	if !errors.As(err, &e) {
		t.Fatalf("err is %T", err)
	}
	if e.Loc.Line != 3 || e.Loc.Column != 3 {
		t.Errorf("error at %s, want 3:3", e.Loc)
	}
}

func TestCompileComments(t *testing.T) {
	// Comment bytes inside signatures and numerals are ignored.
	src := "push" + " " + "x" + " " + "five:" + "\t \t\n" + "pop" + " \n" + "y" + "\n"

	prog, err := CompileString(src)
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	if prog.Len() != 2 {
		t.Fatalf("got %d instructions, want 2:\n%s", prog.Len(), prog.Disassemble())
	}
	if in := prog.At(0); in.Op != bytecode.OpPush || in.Param != 5 {
		t.Errorf("instruction 0 = %s, want PUSH 5", in)
	}
	if in := prog.At(1); in.Op != bytecode.OpPop {
		t.Errorf("instruction 1 = %s, want POP", in)
	}
}

func TestCompilePositions(t *testing.T) {
	src := "ab  \t\ncd\n\n\n"
	prog, err := CompileString(src)
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	if prog.Len() != 2 {
		t.Fatalf("got %d instructions, want 2", prog.Len())
	}

	tests := []struct {
		op   bytecode.Opcode
		line uint32
		col  uint32
	}{
		{bytecode.OpPush, 1, 3},
		{bytecode.OpEnd, 2, 3},
	}
	for i, tt := range tests {
		in := prog.At(i)
		if in.Op != tt.op || in.Loc.Line != tt.line || in.Loc.Column != tt.col {
			t.Errorf("instruction %d = %s at %s, want %s at %d:%d", i, in, in.Loc, tt.op, tt.line, tt.col)
		}
	}
}

func TestCompileLabels(t *testing.T) {
	// JMP 1; LABEL 0; LABEL 1; END
	src := "\n \n\t\n" + "\n   \n" + "\n  \t\n" + "\n\n\n"
	prog, err := CompileString(src)
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	if prog.LabelCount() != 2 {
		t.Fatalf("LabelCount() = %d, want 2", prog.LabelCount())
	}
	if idx, ok := prog.ResolveLabel(1); !ok || idx != 2 {
		t.Errorf("ResolveLabel(1) = %d, %v; want 2, true", idx, ok)
	}
	if idx, ok := prog.ResolveLabel(0); !ok || idx != 1 {
		t.Errorf("ResolveLabel(0) = %d, %v; want 1, true", idx, ok)
	}
}

func TestCompileBadInstruction(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line uint32
		col  uint32
	}{
		{"no match at max length", "\t\n\n ", 1, 1},
		{"eof inside signature", "\n\n\n\t", 4, 1},
		{"after comment", "ab\t \ncd\n", 1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileString(tt.src)
			var e *bytecode.Error
			if !errors.As(err, &e) {
				t.Fatalf("err = %v, want *bytecode.Error", err)
			}
			if e.Code != bytecode.CodeBadInstruction {
				t.Errorf("code = %d, want %d", e.Code, bytecode.CodeBadInstruction)
			}
			if e.Loc.Line != tt.line || e.Loc.Column != tt.col {
				t.Errorf("error at %s, want %d:%d", e.Loc, tt.line, tt.col)
			}
			if e.Op != "" {
				t.Errorf("Op = %q, want empty", e.Op)
			}
		})
	}
}

func TestCompileBadParam(t *testing.T) {
	_, err := CompileString("\n\n\n  \t \t")
	var e *bytecode.Error
	if !errors.As(err, &e) {
		t.Fatalf("err = %v, want *bytecode.Error", err)
	}
	if e.Code != bytecode.CodeBadParam || e.Op != "PUSH" {
		t.Errorf("got code %d op %q, want bad param on PUSH", e.Code, e.Op)
	}
	if e.Loc.Line != 4 || e.Loc.Column != 1 {
		t.Errorf("error at %s, want 4:1", e.Loc)
	}
	if !errors.Is(err, errParamUnterminated) {
		t.Errorf("cause = %v, want unterminated", e.Err)
	}
}

func TestCompileStrictParams(t *testing.T) {
	src := "  \n\n\n\n" // PUSH with no digits

	prog, err := Compile([]byte(src), DefaultOptions())
	if err != nil {
		t.Fatalf("lenient Compile error: %v", err)
	}
	if prog.At(0).Param != 0 {
		t.Errorf("empty numeral = %d, want 0", prog.At(0).Param)
	}

	_, err = Compile([]byte(src), Options{StrictParams: true})
	if !errors.Is(err, bytecode.ErrBadParam) {
		t.Errorf("strict err = %v, want bad param", err)
	}
}

func TestCompileIsAllOrNothing(t *testing.T) {
	prog, err := CompileString("  \t\n" + "\t\n\n ")
	if err == nil {
		t.Fatal("expected error")
	}
	if prog != nil {
		t.Error("failed compilation should not return a program")
	}
}
