// Package compiler turns whitespace source text into a bytecode.Program.
//
// Compilation is a single pass: the Scanner matches signatures, the
// ParamDecoder reads numerals for instructions that take one, and each
// finished instruction is appended to the Program. The first syntax error
// aborts the whole compilation.
package compiler

import (
	"errors"
	"io"

	"github.com/tliron/commonlog"

	"github.com/chazu/wsi/pkg/bytecode"
)

var log = commonlog.GetLogger("wsi.compiler")

// Options configures parameter decoding.
type Options struct {
	// StrictParams makes an empty numeral a bad-parameter error.
	StrictParams bool

	// MaxParamLen caps the binary digits kept per numeral (1..64).
	MaxParamLen int
}

// DefaultOptions returns the lenient defaults: empty numerals read as 0 and
// numerals keep up to 64 digits.
func DefaultOptions() Options {
	return Options{MaxParamLen: DefaultMaxParamLen}
}

// Compile builds a Program from source. Errors are *bytecode.Error values
// positioned at the start of the offending instruction.
func Compile(src []byte, opts Options) (*bytecode.Program, error) {
	cur := NewCursor()
	scanner := NewScanner(src, cur)
	params := NewParamDecoder(src, cur)
	params.Strict = opts.StrictParams
	if opts.MaxParamLen > 0 {
		params.MaxDigits = opts.MaxParamLen
	}

	prog := bytecode.NewProgram()

	for {
		op, loc, err := scanner.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Debugf("bad instruction %q at %s", bytecode.VisibleSignature(scanner.Pending()), loc)
			return nil, err
		}

		in := bytecode.Instruction{Op: op, Loc: loc}
		if op.TakesParam() {
			in.Param, err = params.Decode()
			if err != nil {
				return nil, &bytecode.Error{Code: bytecode.CodeBadParam, Op: op.String(), Loc: loc, Err: err}
			}
		}
		prog.Append(in)
	}

	log.Debugf("compiled %d instructions, %d labels", prog.Len(), prog.LabelCount())
	return prog, nil
}

// CompileString is a convenience wrapper around Compile with default options.
func CompileString(src string) (*bytecode.Program, error) {
	return Compile([]byte(src), DefaultOptions())
}
