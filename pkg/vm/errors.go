package vm

import (
	"fmt"
	"strings"

	"github.com/kristofer/sexpvm/pkg/bytecode"
)

// ErrorKind names the runtime-error domains the VM can raise. These
// map directly onto the phase-tagged diagnostics the driver prints.
type ErrorKind int

const (
	RuntimeTypeError ErrorKind = iota
	DivisionByZero
	StackUnderflow
	IndexOutOfBounds
	ConversionOverflow
	AllocationError
)

func (k ErrorKind) String() string {
	switch k {
	case RuntimeTypeError:
		return "RuntimeTypeError"
	case DivisionByZero:
		return "DivisionByZero"
	case StackUnderflow:
		return "StackUnderflow"
	case IndexOutOfBounds:
		return "IndexOutOfBounds"
	case ConversionOverflow:
		return "ConversionOverflow"
	case AllocationError:
		return "AllocationError"
	default:
		return "UnknownRuntimeError"
	}
}

// TraceEntry records one executed instruction, kept for the last few
// instructions before a failure so a RuntimeError can show what led to
// it — the same role the prototype's execution trace plays under
// `-debug`, just bounded to a short tail instead of the whole run.
type TraceEntry struct {
	PC    int
	Op    bytecode.Opcode
	Depth int // stack depth (sp) at the time this instruction executed
}

// RuntimeError is a terminal VM failure: a Kind, a human message, and
// a short trace of recently executed instructions.
type RuntimeError struct {
	Kind    ErrorKind
	Message string
	Trace   []TraceEntry
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Runtime error: %s: %s", e.Kind, e.Message)
	if len(e.Trace) > 0 {
		b.WriteString("\n  recent instructions:")
		for _, t := range e.Trace {
			fmt.Fprintf(&b, "\n    pc=%-4d %-14s sp=%d", t.PC, t.Op, t.Depth)
		}
	}
	return b.String()
}

func newRuntimeError(kind ErrorKind, trace []TraceEntry, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Kind: kind, Message: fmt.Sprintf(format, args...), Trace: trace}
}
