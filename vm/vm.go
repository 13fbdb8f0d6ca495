package vm

import (
	"bufio"
	"context"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/wsi/pkg/bytecode"
)

var log = commonlog.GetLogger("wsi.vm")

const (
	// DefaultStackDepth is the default execution stack capacity.
	DefaultStackDepth = 255

	// DefaultCallDepth is the default control stack capacity, main frame included.
	DefaultCallDepth = 255
)

// Config holds the limits and tracing switches for a Machine.
type Config struct {
	StackDepth int
	CallDepth  int

	// MaxSteps stops the run with a step-limit error after this many
	// instructions. Zero means unlimited.
	MaxSteps uint64

	TraceInstructions bool
	TraceStack        bool
}

// DefaultConfig returns the stock limits with tracing off.
func DefaultConfig() Config {
	return Config{
		StackDepth: DefaultStackDepth,
		CallDepth:  DefaultCallDepth,
	}
}

// ---------------------------------------------------------------------------
// Machine
// ---------------------------------------------------------------------------

// Machine runs one Program.
type Machine struct {
	prog *bytecode.Program
	cfg  Config

	// Execution stack
	stack []int64
	sp    int

	// Control stack; the top slot is the instruction pointer
	frames     []int
	frameDepth int

	heap   *Heap
	halted bool
	steps  uint64

	in     *bufio.Reader
	out    io.Writer
	diag   io.Writer
	numbuf []byte

	// cause is the I/O error behind the last failing handler, if any.
	cause error
}

// handler executes one instruction. A Code other than CodeSuccess aborts the run and the
// handler must not have mutated any state.
type handler func(m *Machine, in bytecode.Instruction) bytecode.Code

var handlers []handler

func init() {
	handlers = make([]handler, bytecode.OpcodeCount())

	handlers[bytecode.OpPush] = (*Machine).opPush
	handlers[bytecode.OpDup] = (*Machine).opDup
	handlers[bytecode.OpCopy] = (*Machine).opCopy
	handlers[bytecode.OpSwap] = (*Machine).opSwap
	handlers[bytecode.OpPop] = (*Machine).opPop
	handlers[bytecode.OpSlide] = (*Machine).opSlide

	handlers[bytecode.OpAdd] = (*Machine).opArith
	handlers[bytecode.OpSub] = (*Machine).opArith
	handlers[bytecode.OpMul] = (*Machine).opArith
	handlers[bytecode.OpDiv] = (*Machine).opArith
	handlers[bytecode.OpMod] = (*Machine).opArith

	handlers[bytecode.OpStore] = (*Machine).opStore
	handlers[bytecode.OpRestore] = (*Machine).opRestore

	handlers[bytecode.OpLabel] = (*Machine).opLabel
	handlers[bytecode.OpCall] = (*Machine).opCall
	handlers[bytecode.OpJump] = (*Machine).opJump
	handlers[bytecode.OpJz] = (*Machine).opBranch
	handlers[bytecode.OpJn] = (*Machine).opBranch
	handlers[bytecode.OpRet] = (*Machine).opRet
	handlers[bytecode.OpEnd] = (*Machine).opEnd

	handlers[bytecode.OpPutc] = (*Machine).opPutc
	handlers[bytecode.OpPuti] = (*Machine).opPuti
	handlers[bytecode.OpReadc] = (*Machine).opReadc
	handlers[bytecode.OpReadi] = (*Machine).opReadi
	handlers[bytecode.OpDprint] = (*Machine).opDprint
}

// New creates a Machine for prog. I/O defaults to the process's standard
// streams; DPRINT writes to stderr.
func New(prog *bytecode.Program, cfg Config) *Machine {
	if cfg.StackDepth <= 0 {
		cfg.StackDepth = DefaultStackDepth
	}
	if cfg.CallDepth <= 0 {
		cfg.CallDepth = DefaultCallDepth
	}
	m := &Machine{
		prog:   prog,
		cfg:    cfg,
		stack:  make([]int64, cfg.StackDepth),
		frames: make([]int, cfg.CallDepth),
		in:     bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		diag:   os.Stderr,
	}
	m.reset()
	return m
}

// SetInput sets the reader used by READC and READI.
func (m *Machine) SetInput(r io.Reader) {
	m.in = bufio.NewReader(r)
}

// SetOutput sets the writer used by PUTC and PUTI.
func (m *Machine) SetOutput(w io.Writer) {
	m.out = w
}

// SetDiagnostics sets the writer used by DPRINT.
func (m *Machine) SetDiagnostics(w io.Writer) {
	m.diag = w
}

func (m *Machine) reset() {
	m.sp = 0
	m.frames[0] = 0
	m.frameDepth = 1
	m.heap = NewHeap()
	m.halted = false
	m.steps = 0
}

// Run executes the program from the first instruction with empty stacks and
// an empty heap. It returns nil when END is reached and a *bytecode.Error
// otherwise. Cancelling ctx stops the run between instructions.
func (m *Machine) Run(ctx context.Context) error {
	m.reset()
	done := ctx.Done()

	// An empty program has no instruction to blame; point at the start.
	last := bytecode.SourceLocation{Line: 1, Column: 1}
	for {
		ip := m.frames[m.frameDepth-1]
		if ip >= m.prog.Len() {
			return bytecode.NewError(bytecode.CodeEndOfFile, "", last)
		}
		in := m.prog.At(ip)
		last = in.Loc

		if done != nil {
			select {
			case <-done:
				return &bytecode.Error{Code: bytecode.CodeCancelled, Op: in.Op.String(), Loc: in.Loc, Err: ctx.Err()}
			default:
			}
		}
		if m.cfg.MaxSteps > 0 && m.steps >= m.cfg.MaxSteps {
			return bytecode.NewError(bytecode.CodeStepLimit, in.Op.String(), in.Loc)
		}

		if err := m.step(ip, in); err != nil {
			log.Debugf("%s at %04d", err, ip)
			return err
		}
		if m.halted {
			log.Debugf("halted after %d steps", m.steps)
			return nil
		}
		m.frames[m.frameDepth-1]++
	}
}

// step dispatches a single instruction.
func (m *Machine) step(ip int, in bytecode.Instruction) error {
	if !in.Op.Valid() {
		return bytecode.NewError(bytecode.CodeBadInstruction, in.Op.String(), in.Loc)
	}
	if m.cfg.TraceInstructions {
		log.Debugf("%04d  %s", ip, in)
	}

	m.steps++
	if code := handlers[in.Op](m, in); code != bytecode.CodeSuccess {
		cause := m.cause
		m.cause = nil
		return m.fail(code, in, cause)
	}

	if m.cfg.TraceStack {
		log.Debugf("stack = %s", m.formatStack())
	}
	return nil
}

func (m *Machine) fail(code bytecode.Code, in bytecode.Instruction, cause error) error {
	return &bytecode.Error{Code: code, Op: in.Op.String(), Loc: in.Loc, Err: cause}
}

// Stack returns a copy of the execution stack, bottom first.
func (m *Machine) Stack() []int64 {
	out := make([]int64, m.sp)
	copy(out, m.stack[:m.sp])
	return out
}

// CallDepth returns the number of live control-stack frames, main included.
func (m *Machine) CallDepth() int {
	return m.frameDepth
}

// Heap returns the machine's heap.
func (m *Machine) Heap() *Heap {
	return m.heap
}

// Steps returns the number of instructions executed by the last Run.
func (m *Machine) Steps() uint64 {
	return m.steps
}

// Halted reports whether the last Run reached END.
func (m *Machine) Halted() bool {
	return m.halted
}

func (m *Machine) formatStack() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i := 0; i < m.sp; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.FormatInt(m.stack[i], 10))
	}
	sb.WriteByte(']')
	return sb.String()
}

// Execute runs prog on a fresh Machine. Nil streams keep the defaults.
func Execute(ctx context.Context, prog *bytecode.Program, cfg Config, in io.Reader, out io.Writer) error {
	m := New(prog, cfg)
	if in != nil {
		m.SetInput(in)
	}
	if out != nil {
		m.SetOutput(out)
	}
	return m.Run(ctx)
}
