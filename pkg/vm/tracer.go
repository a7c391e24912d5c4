package vm

import (
	"fmt"
	"io"

	"github.com/kristofer/sexpvm/pkg/bytecode"
)

// Tracer writes one line per executed instruction to an io.Writer.
// It is the non-interactive replacement for a step/breakpoint
// debugger: this VM has no REPL and no paused execution, only a
// running trace suitable for `-debug` to stderr, leaving stdout
// reserved for program output.
type Tracer struct {
	w io.Writer
}

// NewTracer wraps w as a Tracer. A nil Tracer (the zero value used via
// (*Tracer)(nil)) is valid and traces nothing, so the VM can call
// trace on its *Tracer field every instruction without checking it for
// nil first.
func NewTracer(w io.Writer) *Tracer {
	return &Tracer{w: w}
}

func (t *Tracer) trace(pc int, instr bytecode.Instruction, sp int) {
	if t == nil || t.w == nil {
		return
	}
	if bytecode.HasOperand(instr.Op) {
		fmt.Fprintf(t.w, "pc=%-4d %-14s %-16s sp=%d\n", pc, instr.Op, instr.Operand.GoString(), sp)
		return
	}
	fmt.Fprintf(t.w, "pc=%-4d %-14s sp=%d\n", pc, instr.Op, sp)
}
