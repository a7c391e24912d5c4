// Package bytecode defines the instruction set that the compiler
// emits and the virtual machine executes.
//
// Instructions are a flat (opcode, operand) pair. The operand is a
// value.Value; most opcodes ignore it (the zero Value, Integer 0) and
// only PUSH, LOAD_VAR, STORE_VAR, and MAKE_LIST actually read it. There
// is no constant pool — literal values live directly in the
// instruction stream as PUSH operands, owned by the same lifetime
// chain as the AST node that produced them.
package bytecode

import (
	"fmt"

	"github.com/kristofer/sexpvm/pkg/value"
)

// Opcode identifies one VM instruction.
type Opcode int

const (
	PUSH Opcode = iota
	LOAD_VAR
	STORE_VAR
	MAKE_LIST

	ADD
	SUB
	MUL
	DIV
	MOD

	AND
	OR
	NOT

	EQ
	NEQ
	LT
	LTE
	GT
	GTE

	CONCATSTR
	SUBSTR
	STR_EQ
	STRLEN

	PRINT
	PRINTLN

	DUP
	SWAP
	DISCARD

	INT2FLOAT
	FLOAT2INT

	JMP
	JMP_IF
	JMP_IF_FALSE

	LIST_APPEND
	LIST_SUBLIST
	LIST_REMOVE
	LIST_SET
	LIST_GET
	LIST_LEN

	HALT
)

var names = map[Opcode]string{
	PUSH:          "PUSH",
	LOAD_VAR:      "LOAD_VAR",
	STORE_VAR:     "STORE_VAR",
	MAKE_LIST:     "MAKE_LIST",
	ADD:           "ADD",
	SUB:           "SUB",
	MUL:           "MUL",
	DIV:           "DIV",
	MOD:           "MOD",
	AND:           "AND",
	OR:            "OR",
	NOT:           "NOT",
	EQ:            "EQ",
	NEQ:           "NEQ",
	LT:            "LT",
	LTE:           "LTE",
	GT:            "GT",
	GTE:           "GTE",
	CONCATSTR:     "CONCATSTR",
	SUBSTR:        "SUBSTR",
	STR_EQ:        "STR_EQ",
	STRLEN:        "STRLEN",
	PRINT:         "PRINT",
	PRINTLN:       "PRINTLN",
	DUP:           "DUP",
	SWAP:          "SWAP",
	DISCARD:       "DISCARD",
	INT2FLOAT:     "INT2FLOAT",
	FLOAT2INT:     "FLOAT2INT",
	JMP:           "JMP",
	JMP_IF:        "JMP_IF",
	JMP_IF_FALSE:  "JMP_IF_FALSE",
	LIST_APPEND:   "LIST_APPEND",
	LIST_SUBLIST:  "LIST_SUBLIST",
	LIST_REMOVE:   "LIST_REMOVE",
	LIST_SET:      "LIST_SET",
	LIST_GET:      "LIST_GET",
	LIST_LEN:      "LIST_LEN",
	HALT:          "HALT",
}

func (op Opcode) String() string {
	if s, ok := names[op]; ok {
		return s
	}
	return fmt.Sprintf("OPCODE(%d)", int(op))
}

// Instruction is one (opcode, operand) pair. Operand is meaningful
// only for PUSH, LOAD_VAR, STORE_VAR, and MAKE_LIST; every other
// opcode carries the zero Value.
type Instruction struct {
	Op      Opcode
	Operand value.Value
}

// HasOperand reports whether op's operand carries information, purely
// for disassembly formatting.
func HasOperand(op Opcode) bool {
	switch op {
	case PUSH, LOAD_VAR, STORE_VAR, MAKE_LIST:
		return true
	default:
		return false
	}
}

// Disassemble renders a compiled instruction stream as a human-readable
// listing, one line per instruction, addressed by instruction index.
// It is additive tooling reachable from the CLI's -disasm flag; it
// never writes to a file.
func Disassemble(code []Instruction) string {
	var out []byte
	for i, instr := range code {
		line := fmt.Sprintf("%4d  %-14s", i, instr.Op)
		if HasOperand(instr.Op) {
			line += " " + instr.Operand.GoString()
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return string(out)
}
