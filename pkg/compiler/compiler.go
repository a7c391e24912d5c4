// Package compiler lowers an AST program into a linear instruction
// stream for the virtual machine.
//
// Compilation is single-pass, recursive-descent over the AST. Every
// top-level expression compiles in order; a final HALT is appended.
// Structured forms (`if`, `while`) need jump targets that aren't known
// until their bodies have been compiled, so the compiler reserves a
// `PUSH(placeholder); JMP*` pair up front and rewrites only the PUSH's
// operand once the target address is known — back-patching the
// operand, not the opcode.
package compiler

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/kristofer/sexpvm/pkg/ast"
	"github.com/kristofer/sexpvm/pkg/bytecode"
	"github.com/kristofer/sexpvm/pkg/symtab"
	"github.com/kristofer/sexpvm/pkg/value"
)

// CompileError covers unknown call heads, arity mismatches, `define`
// of a non-symbol, undefined variables, and empty calls.
type CompileError struct {
	Msg string
}

func (e *CompileError) Error() string { return fmt.Sprintf("Codegen error: %s", e.Msg) }

func compileErrorf(format string, args ...interface{}) error {
	return errors.WithStack(&CompileError{Msg: fmt.Sprintf(format, args...)})
}

// Compiler accumulates the instruction stream for one program.
type Compiler struct {
	code []bytecode.Instruction
	syms *symtab.Table
}

// New returns an empty Compiler with a fresh symbol table.
func New() *Compiler {
	return &Compiler{syms: symtab.New()}
}

// Compile lowers prog to a complete instruction stream ending in HALT.
// The returned symbol table can be used to size the VM's global slot
// array (Len()) and to label LOAD_VAR/STORE_VAR operands in
// disassembly.
func (c *Compiler) Compile(prog *ast.Program) ([]bytecode.Instruction, *symtab.Table, error) {
	for _, expr := range prog.Exprs {
		if err := c.compileExpr(expr); err != nil {
			return nil, nil, err
		}
	}
	c.emit(bytecode.HALT, value.Value{})
	return c.code, c.syms, nil
}

func (c *Compiler) emit(op bytecode.Opcode, operand value.Value) int {
	c.code = append(c.code, bytecode.Instruction{Op: op, Operand: operand})
	return len(c.code) - 1
}

// patchOperand rewrites the operand of the PUSH at idx, used to fill
// in a jump target once it's known.
func (c *Compiler) patchOperand(idx int, addr int) {
	c.code[idx].Operand = value.Int32(int32(addr))
}

func (c *Compiler) here() int {
	return len(c.code)
}

func (c *Compiler) compileExpr(expr ast.Expr) error {
	switch n := expr.(type) {
	case *ast.IntegerLiteral:
		c.emit(bytecode.PUSH, value.Int32(n.Value))
		return nil
	case *ast.FloatLiteral:
		c.emit(bytecode.PUSH, value.Float64(n.Value))
		return nil
	case *ast.BoolLiteral:
		c.emit(bytecode.PUSH, value.Bool(n.Value))
		return nil
	case *ast.StringLiteral:
		c.emit(bytecode.PUSH, value.StringLiteral(n.Value))
		return nil
	case *ast.Symbol:
		slot := c.syms.Lookup(n.Name)
		if slot == symtab.NotFound {
			return compileErrorf("undefined variable %q", n.Name)
		}
		c.emit(bytecode.LOAD_VAR, value.Int32(int32(slot)))
		return nil
	case *ast.List:
		return c.compileList(n)
	default:
		return compileErrorf("unknown AST node %T", n)
	}
}

func (c *Compiler) compileList(list *ast.List) error {
	if len(list.Items) == 0 {
		return compileErrorf("empty call")
	}
	head, ok := list.Items[0].(*ast.Symbol)
	if !ok {
		return compileErrorf("call head must be a symbol")
	}
	args := list.Items[1:]

	switch head.Name {
	case "define":
		return c.compileDefine(args)
	case "do":
		return c.compileDo(args)
	case "if":
		return c.compileIf(args)
	case "while":
		return c.compileWhile(args)
	case "+", "*", "and", "or", "concat":
		return c.compileFold(head.Name, args)
	case "-", "/", "%", "==", "!=", "<", "<=", ">", ">=", "str=":
		return c.compileBinary(head.Name, args)
	case "not", "print", "println", "strlen", "int2float", "float2int":
		return c.compileUnary(head.Name, args)
	case "substr":
		return c.compileSubstr(args)
	case "list":
		return c.compileMakeList(args)
	case "list-append":
		return c.compileListOp(head.Name, bytecode.LIST_APPEND, 2, args)
	case "list-remove":
		return c.compileListOp(head.Name, bytecode.LIST_REMOVE, 2, args)
	case "list-set":
		return c.compileListOp(head.Name, bytecode.LIST_SET, 3, args)
	case "list-get":
		return c.compileListOp(head.Name, bytecode.LIST_GET, 2, args)
	case "list-len":
		return c.compileListOp(head.Name, bytecode.LIST_LEN, 1, args)
	case "list-sublist":
		return c.compileListOp(head.Name, bytecode.LIST_SUBLIST, 3, args)
	default:
		return compileErrorf("unknown function %q", head.Name)
	}
}

func (c *Compiler) compileDefine(args []ast.Expr) error {
	if len(args) != 2 {
		return compileErrorf("define requires 2 arguments (symbol, expr), got %d", len(args))
	}
	sym, ok := args[0].(*ast.Symbol)
	if !ok {
		return compileErrorf("define requires a symbol as its first argument")
	}
	if err := c.compileExpr(args[1]); err != nil {
		return err
	}
	slot := c.syms.Define(sym.Name)
	c.emit(bytecode.STORE_VAR, value.Int32(int32(slot)))
	return nil
}

// compileDo compiles each argument in order. Only the value of the
// last one remains on the stack afterward — do is an expression whose
// value is its final form's value — so every earlier form's value is
// discarded once compiled.
func (c *Compiler) compileDo(args []ast.Expr) error {
	if len(args) < 1 {
		return compileErrorf("do requires at least 1 argument, got %d", len(args))
	}
	for i, a := range args {
		if err := c.compileExpr(a); err != nil {
			return err
		}
		if i < len(args)-1 {
			c.emit(bytecode.DISCARD, value.Value{})
		}
	}
	return nil
}

// compileIf lowers `(if cond then else)` to:
//
//	compile cond
//	PUSH(addr_else); JMP_IF_FALSE
//	compile then
//	PUSH(addr_end); JMP
//	addr_else: compile else
//	addr_end:
func (c *Compiler) compileIf(args []ast.Expr) error {
	if len(args) != 3 {
		return compileErrorf("if requires 3 arguments (cond, then, else), got %d", len(args))
	}
	if err := c.compileExpr(args[0]); err != nil {
		return err
	}
	elsePush := c.emit(bytecode.PUSH, value.Int32(0))
	c.emit(bytecode.JMP_IF_FALSE, value.Value{})

	if err := c.compileExpr(args[1]); err != nil {
		return err
	}
	endPush := c.emit(bytecode.PUSH, value.Int32(0))
	c.emit(bytecode.JMP, value.Value{})

	c.patchOperand(elsePush, c.here())
	if err := c.compileExpr(args[2]); err != nil {
		return err
	}
	c.patchOperand(endPush, c.here())
	return nil
}

// compileWhile lowers `(while cond body...)` to:
//
//	loop_start: compile cond
//	PUSH(addr_end); JMP_IF_FALSE
//	compile each body form; DISCARD its value
//	PUSH(loop_start); JMP
//	addr_end:
func (c *Compiler) compileWhile(args []ast.Expr) error {
	if len(args) < 2 {
		return compileErrorf("while requires at least 2 arguments (cond, body...), got %d", len(args))
	}
	loopStart := c.here()
	if err := c.compileExpr(args[0]); err != nil {
		return err
	}
	endPush := c.emit(bytecode.PUSH, value.Int32(0))
	c.emit(bytecode.JMP_IF_FALSE, value.Value{})

	for _, body := range args[1:] {
		if err := c.compileExpr(body); err != nil {
			return err
		}
		c.emit(bytecode.DISCARD, value.Value{})
	}
	c.emit(bytecode.PUSH, value.Int32(int32(loopStart)))
	c.emit(bytecode.JMP, value.Value{})

	c.patchOperand(endPush, c.here())
	return nil
}

var foldOp = map[string]bytecode.Opcode{
	"+":      bytecode.ADD,
	"*":      bytecode.MUL,
	"and":    bytecode.AND,
	"or":     bytecode.OR,
	"concat": bytecode.CONCATSTR,
}

func (c *Compiler) compileFold(name string, args []ast.Expr) error {
	if len(args) < 2 {
		return compileErrorf("%s requires at least 2 arguments, got %d", name, len(args))
	}
	for _, a := range args {
		if err := c.compileExpr(a); err != nil {
			return err
		}
	}
	op := foldOp[name]
	for i := 0; i < len(args)-1; i++ {
		c.emit(op, value.Value{})
	}
	return nil
}

var binaryOp = map[string]bytecode.Opcode{
	"-":     bytecode.SUB,
	"/":     bytecode.DIV,
	"%":     bytecode.MOD,
	"==":    bytecode.EQ,
	"!=":    bytecode.NEQ,
	"<":     bytecode.LT,
	"<=":    bytecode.LTE,
	">":     bytecode.GT,
	">=":    bytecode.GTE,
	"str=":  bytecode.STR_EQ,
}

func (c *Compiler) compileBinary(name string, args []ast.Expr) error {
	if len(args) != 2 {
		return compileErrorf("%s requires exactly 2 arguments, got %d", name, len(args))
	}
	if err := c.compileExpr(args[0]); err != nil {
		return err
	}
	if err := c.compileExpr(args[1]); err != nil {
		return err
	}
	c.emit(binaryOp[name], value.Value{})
	return nil
}

var unaryOp = map[string]bytecode.Opcode{
	"not":       bytecode.NOT,
	"print":     bytecode.PRINT,
	"println":   bytecode.PRINTLN,
	"strlen":    bytecode.STRLEN,
	"int2float": bytecode.INT2FLOAT,
	"float2int": bytecode.FLOAT2INT,
}

func (c *Compiler) compileUnary(name string, args []ast.Expr) error {
	if len(args) != 1 {
		return compileErrorf("%s requires exactly 1 argument, got %d", name, len(args))
	}
	if err := c.compileExpr(args[0]); err != nil {
		return err
	}
	c.emit(unaryOp[name], value.Value{})
	return nil
}

// compileSubstr emits args in source order (string, start, length) so
// that at runtime they're popped in the order `len, start, s` — see
// pkg/vm's SUBSTR handling.
func (c *Compiler) compileSubstr(args []ast.Expr) error {
	if len(args) != 3 {
		return compileErrorf("substr requires exactly 3 arguments (string, start, length), got %d", len(args))
	}
	for _, a := range args {
		if err := c.compileExpr(a); err != nil {
			return err
		}
	}
	c.emit(bytecode.SUBSTR, value.Value{})
	return nil
}

// compileMakeList lowers `(list a b c...)` to N pushes followed by
// MAKE_LIST(n). An empty list literal is not supported, matching the
// boundary case of empty-list construction not being a valid form.
func (c *Compiler) compileMakeList(args []ast.Expr) error {
	if len(args) < 1 {
		return compileErrorf("list requires at least 1 argument, got %d", len(args))
	}
	for _, a := range args {
		if err := c.compileExpr(a); err != nil {
			return err
		}
	}
	c.emit(bytecode.MAKE_LIST, value.Int32(int32(len(args))))
	return nil
}

// compileListOp lowers the fixed-arity list forms (list-append,
// list-remove, list-set, list-get, list-len, list-sublist) by
// compiling their arguments left to right and emitting op, which pops
// them back in reverse.
func (c *Compiler) compileListOp(name string, op bytecode.Opcode, arity int, args []ast.Expr) error {
	if len(args) != arity {
		return compileErrorf("%s requires exactly %d arguments, got %d", name, arity, len(args))
	}
	for _, a := range args {
		if err := c.compileExpr(a); err != nil {
			return err
		}
	}
	c.emit(op, value.Value{})
	return nil
}
