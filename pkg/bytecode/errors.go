package bytecode

import (
	"errors"
	"fmt"
)

// Code is the numeric error code of a compile-time or run-time failure.
// It doubles as the process exit status.
type Code int

const (
	CodeSuccess Code = iota
	CodeFailure
	CodeBadInstruction
	CodeBadParam
	CodeTooFewItems
	CodeOutOfRange
	CodeFullStack
	CodeEmptyStack
	CodeNoMatch
	CodeMaxRecursionDepth
	CodeNoLabelFound
	CodeReturnFromMain
	CodeEndOfFile
	CodeDivisionByZero
	CodeBadInput
	CodeStepLimit
	CodeCancelled

	codeCount
)

var codeMessages = [codeCount]string{
	CodeSuccess:           "success",
	CodeFailure:           "failure",
	CodeBadInstruction:    "bad instruction",
	CodeBadParam:          "there was an issue getting the provided parameter",
	CodeTooFewItems:       "too few elements in stack",
	CodeOutOfRange:        "index out of range",
	CodeFullStack:         "stack is full",
	CodeEmptyStack:        "stack is empty",
	CodeNoMatch:           "couldn't find a match for that key",
	CodeMaxRecursionDepth: "maximum call depth reached",
	CodeNoLabelFound:      "label not found",
	CodeReturnFromMain:    "return from main process",
	CodeEndOfFile:         "end of file reached. no END statement (LLL)",
	CodeDivisionByZero:    "division by zero",
	CodeBadInput:          "could not read input",
	CodeStepLimit:         "step limit exceeded",
	CodeCancelled:         "execution cancelled",
}

// Message returns the static description for the code.
func (c Code) Message() string {
	if c >= 0 && c < codeCount {
		return codeMessages[c]
	}
	return fmt.Sprintf("unknown error %d", int(c))
}

func (c Code) String() string {
	return c.Message()
}

// Error is a positioned language error. Op names the instruction that
// failed; it is empty for signatures that never matched an instruction.
type Error struct {
	Code Code
	Op   string
	Loc  SourceLocation
	Err  error // underlying I/O cause, if any
}

// NewError creates an error for the instruction at loc.
func NewError(code Code, op string, loc SourceLocation) *Error {
	return &Error{Code: code, Op: op, Loc: loc}
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("error #%d : L%d C%d : %s %q", int(e.Code), e.Loc.Line, e.Loc.Column, e.Op, e.Code.Message())
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors by code, so errors.Is(err, ErrNoMatch) holds for any
// no-match error regardless of position.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrBadInstruction    = &Error{Code: CodeBadInstruction}
	ErrBadParam          = &Error{Code: CodeBadParam}
	ErrTooFewItems       = &Error{Code: CodeTooFewItems}
	ErrOutOfRange        = &Error{Code: CodeOutOfRange}
	ErrFullStack         = &Error{Code: CodeFullStack}
	ErrEmptyStack        = &Error{Code: CodeEmptyStack}
	ErrNoMatch           = &Error{Code: CodeNoMatch}
	ErrMaxRecursionDepth = &Error{Code: CodeMaxRecursionDepth}
	ErrNoLabelFound      = &Error{Code: CodeNoLabelFound}
	ErrReturnFromMain    = &Error{Code: CodeReturnFromMain}
	ErrEndOfFile         = &Error{Code: CodeEndOfFile}
	ErrDivisionByZero    = &Error{Code: CodeDivisionByZero}
	ErrBadInput          = &Error{Code: CodeBadInput}
	ErrStepLimit         = &Error{Code: CodeStepLimit}
	ErrCancelled         = &Error{Code: CodeCancelled}
)

// CodeOf extracts the error code from err. Nil maps to CodeSuccess and
// errors that are not language errors map to CodeFailure.
func CodeOf(err error) Code {
	if err == nil {
		return CodeSuccess
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeFailure
}
