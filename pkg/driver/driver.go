// Package driver wires the lexer, parser, compiler, and VM into the
// single pipeline the CLI runs: source bytes in, program output and a
// phase-tagged error out (the CLI turns the error into an exit code).
// It is the only package that knows about all four
// pipeline stages at once.
package driver

import (
	"fmt"
	"io"

	"github.com/kristofer/sexpvm/pkg/bytecode"
	"github.com/kristofer/sexpvm/pkg/compiler"
	"github.com/kristofer/sexpvm/pkg/lexer"
	"github.com/kristofer/sexpvm/pkg/parser"
	"github.com/kristofer/sexpvm/pkg/vm"
)

// Options configures one Run: where program output goes, and the two
// additive diagnostics flags.
type Options struct {
	Stdout io.Writer
	Stderr io.Writer

	// Debug, when true, traces every executed instruction to Stderr.
	Debug bool
	// Disasm, when true, prints a disassembly listing to Stdout before
	// running.
	Disasm bool
}

// Run lexes, parses, compiles, and executes source, writing program
// output to opts.Stdout. It returns the first phase-tagged error
// encountered, already formatted with its "<Phase> error: " prefix by
// the originating package — the caller only needs to print it and set
// a nonzero exit code.
func Run(source string, opts Options) error {
	l := lexer.New(source)
	p, err := parser.New(l)
	if err != nil {
		return err
	}
	prog, err := p.ParseProgram()
	if err != nil {
		return err
	}

	c := compiler.New()
	code, syms, err := c.Compile(prog)
	if err != nil {
		return err
	}

	if opts.Disasm {
		fmt.Fprint(opts.Stdout, bytecode.Disassemble(code))
	}

	var tracer *vm.Tracer
	if opts.Debug {
		tracer = vm.NewTracer(opts.Stderr)
	}

	m := vm.New(code, syms.Len(), opts.Stdout, tracer)
	if err := m.Run(); err != nil {
		return err
	}
	return nil
}
