package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	"github.com/tliron/commonlog"

	"github.com/chazu/wsi/cache"
	"github.com/chazu/wsi/compiler"
	"github.com/chazu/wsi/manifest"
	"github.com/chazu/wsi/pkg/bytecode"
	"github.com/chazu/wsi/server"
	"github.com/chazu/wsi/vm"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("wsi")

// verbosity is a repeatable -v flag.
type verbosity int

func (v *verbosity) String() string { return strconv.Itoa(int(*v)) }
func (v *verbosity) IsBoolFlag() bool { return true }

func (v *verbosity) Set(s string) error {
	on, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	if on {
		*v++
	}
	return nil
}

type options struct {
	disassemble bool
	strip       bool
	output      string
	image       bool
	strict      bool
	stackDepth  int
	callDepth   int
	maxSteps    uint64
	trace       bool
	traceStack  bool
	useCache    bool
	lsp         bool
	verbose     verbosity
	logFile     string
}

func newFlagSet(opts *options, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("wsi", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.BoolVar(&opts.disassemble, "d", false, "Print a disassembly instead of running")
	fs.BoolVar(&opts.strip, "strip", false, "Print canonical source with comments removed")
	fs.StringVar(&opts.output, "o", "", "Write the compiled program image to `file`")
	fs.BoolVar(&opts.image, "image", false, "Treat the input as a compiled program image")
	fs.BoolVar(&opts.strict, "strict", false, "Reject numbers with no digits")
	fs.IntVar(&opts.stackDepth, "stack", 0, "Execution stack capacity (overrides wsi.toml)")
	fs.IntVar(&opts.callDepth, "calls", 0, "Call stack capacity (overrides wsi.toml)")
	fs.Uint64Var(&opts.maxSteps, "steps", 0, "Stop after this many instructions, 0 for no limit")
	fs.BoolVar(&opts.trace, "trace", false, "Log every executed instruction")
	fs.BoolVar(&opts.traceStack, "trace-stack", false, "Log the stack after every instruction")
	fs.BoolVar(&opts.useCache, "cache", false, "Use the compiled-program cache")
	fs.BoolVar(&opts.lsp, "lsp", false, "Start the language server on stdio")
	fs.Var(&opts.verbose, "v", "Verbose logging (repeat for more)")
	fs.StringVar(&opts.logFile, "log", "", "Write logs to `file` instead of stderr")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: wsi [options] program.ws\n\n")
		fmt.Fprintf(stderr, "Compiles and runs a whitespace program. Settings are read from the\n")
		fmt.Fprintf(stderr, "nearest wsi.toml above the program; flags override them.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  wsi hello.ws              # Run a program\n")
		fmt.Fprintf(stderr, "  wsi -d hello.ws           # Show the instruction listing\n")
		fmt.Fprintf(stderr, "  wsi -o hello.wsc hello.ws # Compile to an image\n")
		fmt.Fprintf(stderr, "  wsi -image hello.wsc      # Run an image\n")
		fmt.Fprintf(stderr, "  wsi -lsp                  # Serve editors over stdio\n")
	}
	return fs
}

// run executes the command line and returns the process exit status.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var opts options
	fs := newFlagSet(&opts, stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return int(bytecode.CodeFailure)
	}

	level := int(opts.verbose)
	if (opts.trace || opts.traceStack) && level < 2 {
		level = 2
	}
	var logPath *string
	if opts.logFile != "" {
		logPath = &opts.logFile
	}
	commonlog.Configure(level, logPath)

	if opts.lsp {
		return runLSP(&opts, fs, stderr)
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return int(bytecode.CodeFailure)
	}
	path := fs.Arg(0)

	m, err := configure(filepath.Dir(path), &opts, fs)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return int(bytecode.CodeFailure)
	}

	prog, err := loadProgram(path, m, &opts)
	if err != nil {
		return report(stderr, err)
	}

	if opts.output != "" {
		image, err := bytecode.MarshalProgram(prog)
		if err == nil {
			err = os.WriteFile(opts.output, image, 0644)
		}
		if err != nil {
			fmt.Fprintf(stderr, "Error writing image: %v\n", err)
			return int(bytecode.CodeFailure)
		}
		log.Infof("wrote %s (%d instructions)", opts.output, prog.Len())
	}

	switch {
	case opts.disassemble:
		fmt.Fprint(stdout, prog.DisassembleWithName(filepath.Base(path)))
		return 0
	case opts.strip:
		stdout.Write(compiler.Encode(prog))
		return 0
	case opts.output != "":
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	machine := vm.New(prog, m.VMConfig())
	machine.SetInput(stdin)
	machine.SetOutput(stdout)
	machine.SetDiagnostics(stderr)

	if err := machine.Run(ctx); err != nil {
		return report(stderr, err)
	}
	log.Infof("finished after %d steps", machine.Steps())
	return 0
}

// report prints err and returns its exit status. Language errors print in
// their positioned form; anything else is a plain failure.
func report(stderr io.Writer, err error) int {
	code := bytecode.CodeOf(err)
	if code == bytecode.CodeFailure {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	} else {
		fmt.Fprintln(stderr, err)
	}
	return int(code)
}

// loadManifest finds the wsi.toml governing dir, falling back to defaults.
func loadManifest(dir string) (*manifest.Manifest, error) {
	m, err := manifest.FindAndLoad(dir)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return manifest.Default(), nil
	}
	log.Infof("using %s", filepath.Join(m.Dir, manifest.FileName))
	return m, nil
}

// configure loads the manifest for dir, applies flag overrides and checks
// the result against the schema again.
func configure(dir string, opts *options, fs *flag.FlagSet) (*manifest.Manifest, error) {
	m, err := loadManifest(dir)
	if err != nil {
		return nil, err
	}
	applyOverrides(m, opts, fs)
	if err := manifest.Validate(m); err != nil {
		return nil, err
	}
	return m, nil
}

// applyOverrides copies explicitly set flags over the manifest values.
func applyOverrides(m *manifest.Manifest, opts *options, fs *flag.FlagSet) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "strict":
			m.Parser.StrictParams = opts.strict
		case "stack":
			m.Limits.StackDepth = opts.stackDepth
		case "calls":
			m.Limits.CallDepth = opts.callDepth
		case "steps":
			m.Limits.MaxSteps = opts.maxSteps
		case "trace":
			m.Debug.TraceInstructions = opts.trace
		case "trace-stack":
			m.Debug.TraceStack = opts.traceStack
		case "cache":
			m.Cache.Enabled = opts.useCache
		}
	})
}

// loadProgram reads path as source or, with -image, as a compiled image.
func loadProgram(path string, m *manifest.Manifest, opts *options) (*bytecode.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read program: %w", err)
	}

	if opts.image {
		prog, err := bytecode.UnmarshalProgram(data)
		if err != nil {
			return nil, fmt.Errorf("cannot load image %s: %w", path, err)
		}
		return prog, nil
	}

	copts := m.CompilerOptions()
	if !m.Cache.Enabled {
		return compiler.Compile(data, copts)
	}

	dbPath, err := m.CachePath()
	if err != nil {
		return nil, err
	}
	c, err := cache.Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	prog, hit, err := c.Compile(data, copts)
	if err != nil {
		return nil, err
	}
	log.Infof("compiled %s (%d instructions, cached=%t in %s)", path, prog.Len(), hit, c.Path())
	return prog, nil
}

// runLSP serves the language server with settings from the working
// directory's wsi.toml.
func runLSP(opts *options, fs *flag.FlagSet, stderr io.Writer) int {
	m, err := configure(".", opts, fs)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return int(bytecode.CodeFailure)
	}

	analyzer := &server.Analyzer{Options: m.CompilerOptions()}
	if m.Cache.Enabled {
		dbPath, err := m.CachePath()
		if err == nil {
			analyzer.Cache, err = cache.Open(dbPath)
		}
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return int(bytecode.CodeFailure)
		}
		defer analyzer.Cache.Close()
	}

	if err := server.NewLSP(analyzer).Run(); err != nil {
		fmt.Fprintf(stderr, "LSP error: %v\n", err)
		return int(bytecode.CodeFailure)
	}
	return 0
}
