// Command interp runs a single S-expression source file.
//
// Usage: interp [-debug] [-disasm] <filepath>
//
// Flags must come before the file path; anything after it is ignored.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/kristofer/sexpvm/pkg/driver"
)

func main() {
	debug := flag.Bool("debug", false, "trace executed instructions to stderr")
	disasm := flag.Bool("disasm", false, "print a disassembly listing to stdout before running")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stdout, "usage: interp <filepath>")
		os.Exit(1)
	}
	filename := flag.Arg(0)

	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stdout, "cannot read %s: %v\n", filename, err)
		os.Exit(1)
	}

	opts := driver.Options{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Debug:  *debug,
		Disasm: *disasm,
	}
	if err := driver.Run(string(data), opts); err != nil {
		fmt.Fprintln(os.Stdout, err)
		os.Exit(1)
	}
}
