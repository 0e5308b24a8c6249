// Command loxgo is the CLI front end for the compiler and bytecode VM:
// subcommand dispatch lifted from informatter-nilan's cmd_run.go/cmd_repl.go
// (github.com/google/subcommands, the one real dependency in the retrieval
// pack that already solves "a language CLI with run/repl subcommands"),
// wired to this module's own lexer/compiler/vm instead of nilan's
// AST-walking interpreter.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"github.com/kristofer/loxgo/pkg/options"
	"github.com/kristofer/loxgo/pkg/vm"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		os.Exit(runREPL(os.Stdin, os.Stdout, os.Stderr))
	}

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(&versionCmd{}, "")
	subcommands.Register(&runCmd{}, "")
	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}

// versionCmd prints the interpreter's version string.
type versionCmd struct{}

func (*versionCmd) Name() string             { return "version" }
func (*versionCmd) Synopsis() string         { return "print the interpreter version" }
func (*versionCmd) Usage() string            { return "version:\n  Print the loxgo version.\n" }
func (*versionCmd) SetFlags(f *flag.FlagSet) {}

func (*versionCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	fmt.Printf("loxgo version %s\n", version)
	return subcommands.ExitSuccess
}

// runCmd compiles and interprets a source file (or "-" for stdin), exposing
// the four diagnostic toggles spec.md §6 names as flags on the subcommand
// rather than as package-level globals (Design Notes §9).
type runCmd struct {
	dump     bool
	trace    bool
	logGC    bool
	stressGC bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "compile and run a source file" }
func (*runCmd) Usage() string {
	return `run [--dump] [--trace] [--log-gc] [--stress-gc] <path|->:
  Compile and interpret a loxgo source file. Use - to read from stdin.
`
}

func (r *runCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&r.dump, "dump", false, "print each function's disassembly after compiling")
	f.BoolVar(&r.trace, "trace", false, "trace every instruction and the value stack before executing it")
	f.BoolVar(&r.logGC, "log-gc", false, "log each garbage-collection cycle")
	f.BoolVar(&r.stressGC, "stress-gc", false, "run a collection at every allocation site in the VM")
}

// exitCode maps an InterpretResult to the process exit status spec.md §6
// fixes: 0 success, 65 compile error, 70 runtime error.
func exitCode(result vm.InterpretResult) subcommands.ExitStatus {
	switch result {
	case vm.InterpretOK:
		return subcommands.ExitSuccess
	case vm.InterpretCompileError:
		return 65
	case vm.InterpretRuntimeError:
		return 70
	default:
		return subcommands.ExitFailure
	}
}

func (r *runCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "run: a source path (or -) is required")
		return subcommands.ExitUsageError
	}

	source, err := readSource(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "run: %v\n", err)
		return 74
	}

	opts := options.Debug{
		DumpChunks:     r.dump,
		TraceExecution: r.trace,
		LogGC:          r.logGC,
		StressGC:       r.stressGC,
	}
	machine := vm.New(opts, os.Stdout, os.Stderr)
	return exitCode(machine.Interpret(source))
}

func readSource(path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	return string(b), err
}

// runREPL is a minimal read-eval-print loop: spec.md §1 places the
// interactive line editor itself out of scope, so this is a plain
// bufio.Scanner loop (no history, no multi-line editing) rather than a
// dependency like chzyer/readline — see DESIGN.md for why that dependency
// has no caller in this module.
func runREPL(in io.Reader, out, errOut io.Writer) int {
	fmt.Fprintf(out, "loxgo %s\n", version)
	machine := vm.New(options.Debug{}, out, errOut)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return 0
		}
		machine.Interpret(scanner.Text())
	}
}
