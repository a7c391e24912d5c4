// Package vm implements the stack-based virtual machine: value stack,
// global slot array, program counter, string/list heaps, and the
// fetch-decode-dispatch interpreter loop.
package vm

import (
	"fmt"
	"io"
	"math"

	"github.com/kristofer/sexpvm/pkg/bytecode"
	"github.com/kristofer/sexpvm/pkg/value"
)

const traceDepth = 8

// Machine holds all state for one run of a compiled program.
type Machine struct {
	stack []value.Value

	globals    []value.Value
	globalsSet []bool

	code []bytecode.Instruction
	pc   int

	strings stringHeap
	lists   listHeap

	out    io.Writer
	tracer *Tracer
	recent []TraceEntry
}

// New constructs a Machine for code, sized for numGlobals global
// slots (the compiler's symbol table length), writing program output
// to out. Literal string PUSH operands are resolved to string-heap
// handles once, here, before execution starts.
func New(code []bytecode.Instruction, numGlobals int, out io.Writer, tracer *Tracer) *Machine {
	m := &Machine{
		globals:    make([]value.Value, numGlobals),
		globalsSet: make([]bool, numGlobals),
		out:        out,
		tracer:     tracer,
	}
	m.code = m.resolveLiterals(code)
	return m
}

// resolveLiterals copies code, replacing every KindStringLiteral PUSH
// operand with a KindString operand pointing at a freshly registered
// string-heap entry.
func (m *Machine) resolveLiterals(code []bytecode.Instruction) []bytecode.Instruction {
	out := make([]bytecode.Instruction, len(code))
	copy(out, code)
	for i, instr := range out {
		if instr.Op == bytecode.PUSH && instr.Operand.Kind == value.KindStringLiteral {
			h := m.strings.register(instr.Operand.Str)
			out[i].Operand = value.StringHandle(h)
		}
	}
	return out
}

// Run executes the loaded instruction stream to completion (HALT) or
// until a RuntimeError occurs. The stack is left intact for
// inspection either way.
func (m *Machine) Run() error {
	for m.pc < len(m.code) {
		instr := m.code[m.pc]
		cur := m.pc
		m.pc++

		m.tracer.trace(cur, instr, len(m.stack))
		m.recordTrace(cur, instr)

		halt, err := m.step(instr)
		if err != nil {
			return err
		}
		if halt {
			return nil
		}
	}
	return nil
}

// Stack returns the machine's final stack, bottom first, for test
// introspection after Run returns.
func (m *Machine) Stack() []value.Value {
	return m.stack
}

func (m *Machine) recordTrace(pc int, instr bytecode.Instruction) {
	m.recent = append(m.recent, TraceEntry{PC: pc, Op: instr.Op, Depth: len(m.stack)})
	if len(m.recent) > traceDepth {
		m.recent = m.recent[len(m.recent)-traceDepth:]
	}
}

func (m *Machine) fail(kind ErrorKind, format string, args ...interface{}) error {
	return newRuntimeError(kind, m.recent, format, args...)
}

func (m *Machine) push(v value.Value) {
	m.stack = append(m.stack, v)
}

func (m *Machine) pop() (value.Value, error) {
	if len(m.stack) == 0 {
		return value.Value{}, m.fail(StackUnderflow, "pop on empty stack")
	}
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v, nil
}

// step executes one instruction, returning halt=true if it was HALT.
func (m *Machine) step(instr bytecode.Instruction) (bool, error) {
	switch instr.Op {
	case bytecode.PUSH:
		m.push(instr.Operand)
		return false, nil
	case bytecode.LOAD_VAR:
		slot := int(instr.Operand.Int)
		if slot < 0 || slot >= len(m.globals) || !m.globalsSet[slot] {
			return false, m.fail(RuntimeTypeError, "load of unwritten global slot %d", slot)
		}
		m.push(m.globals[slot])
		return false, nil
	case bytecode.STORE_VAR:
		slot := int(instr.Operand.Int)
		v, err := m.pop()
		if err != nil {
			return false, err
		}
		if slot < 0 || slot >= len(m.globals) {
			return false, m.fail(RuntimeTypeError, "store to out-of-range global slot %d", slot)
		}
		m.globals[slot] = v
		m.globalsSet[slot] = true
		m.push(v)
		return false, nil
	case bytecode.MAKE_LIST:
		return false, m.execMakeList(int(instr.Operand.Int))
	case bytecode.ADD, bytecode.SUB, bytecode.MUL, bytecode.DIV:
		return false, m.execArith(instr.Op)
	case bytecode.MOD:
		return false, m.execMod()
	case bytecode.AND, bytecode.OR:
		return false, m.execBoolBinary(instr.Op)
	case bytecode.NOT:
		return false, m.execNot()
	case bytecode.EQ, bytecode.NEQ, bytecode.LT, bytecode.LTE, bytecode.GT, bytecode.GTE:
		return false, m.execCompare(instr.Op)
	case bytecode.CONCATSTR:
		return false, m.execConcat()
	case bytecode.SUBSTR:
		return false, m.execSubstr()
	case bytecode.STR_EQ:
		return false, m.execStrEq()
	case bytecode.STRLEN:
		return false, m.execStrlen()
	case bytecode.PRINT:
		return false, m.execPrint(false)
	case bytecode.PRINTLN:
		return false, m.execPrint(true)
	case bytecode.DUP:
		return false, m.execDup()
	case bytecode.SWAP:
		return false, m.execSwap()
	case bytecode.DISCARD:
		_, err := m.pop()
		return false, err
	case bytecode.INT2FLOAT:
		return false, m.execInt2Float()
	case bytecode.FLOAT2INT:
		return false, m.execFloat2Int()
	case bytecode.JMP:
		return false, m.execJmp()
	case bytecode.JMP_IF:
		return false, m.execJmpCond(true)
	case bytecode.JMP_IF_FALSE:
		return false, m.execJmpCond(false)
	case bytecode.LIST_APPEND:
		return false, m.execListAppend()
	case bytecode.LIST_SUBLIST:
		return false, m.execListSublist()
	case bytecode.LIST_REMOVE:
		return false, m.execListRemove()
	case bytecode.LIST_SET:
		return false, m.execListSet()
	case bytecode.LIST_GET:
		return false, m.execListGet()
	case bytecode.LIST_LEN:
		return false, m.execListLen()
	case bytecode.HALT:
		return true, nil
	default:
		return false, m.fail(RuntimeTypeError, "unknown opcode %v", instr.Op)
	}
}

func (m *Machine) execMakeList(n int) error {
	if n < 0 {
		return m.fail(RuntimeTypeError, "MAKE_LIST with negative count %d", n)
	}
	elements := make([]value.Value, n)
	for i := n - 1; i >= 0; i-- {
		v, err := m.pop()
		if err != nil {
			return err
		}
		elements[i] = v
	}
	h := m.lists.register(elements)
	m.push(value.ListHandle(h))
	return nil
}

// execArith implements ADD/SUB/MUL/DIV. Pop order is a then b; the
// semantic pair is (b, a): SUB yields b-a, DIV yields b/a (always
// Float, DivisionByZero if |a| < 1e-12). ADD and MUL are symmetric.
func (m *Machine) execArith(op bytecode.Opcode) error {
	a, err := m.pop()
	if err != nil {
		return err
	}
	b, err := m.pop()
	if err != nil {
		return err
	}
	if !a.IsNumeric() || !b.IsNumeric() {
		return m.fail(RuntimeTypeError, "%v requires numeric operands", op)
	}

	if op == bytecode.DIV {
		af, bf := a.AsFloat64(), b.AsFloat64()
		if math.Abs(af) < 1e-12 {
			return m.fail(DivisionByZero, "division by zero")
		}
		m.push(value.Float64(bf / af))
		return nil
	}

	if a.Kind == value.KindInt && b.Kind == value.KindInt {
		switch op {
		case bytecode.ADD:
			m.push(value.Int32(a.Int + b.Int))
		case bytecode.SUB:
			m.push(value.Int32(b.Int - a.Int))
		case bytecode.MUL:
			m.push(value.Int32(a.Int * b.Int))
		}
		return nil
	}
	af, bf := a.AsFloat64(), b.AsFloat64()
	switch op {
	case bytecode.ADD:
		m.push(value.Float64(af + bf))
	case bytecode.SUB:
		m.push(value.Float64(bf - af))
	case bytecode.MUL:
		m.push(value.Float64(af * bf))
	}
	return nil
}

func (m *Machine) execMod() error {
	a, err := m.pop()
	if err != nil {
		return err
	}
	b, err := m.pop()
	if err != nil {
		return err
	}
	if a.Kind != value.KindInt || b.Kind != value.KindInt {
		return m.fail(RuntimeTypeError, "MOD requires integer operands")
	}
	if a.Int == 0 {
		return m.fail(DivisionByZero, "modulo by zero")
	}
	m.push(value.Int32(b.Int % a.Int))
	return nil
}

func (m *Machine) execBoolBinary(op bytecode.Opcode) error {
	a, err := m.pop()
	if err != nil {
		return err
	}
	b, err := m.pop()
	if err != nil {
		return err
	}
	if a.Kind != value.KindBool || b.Kind != value.KindBool {
		return m.fail(RuntimeTypeError, "%v requires boolean operands", op)
	}
	switch op {
	case bytecode.AND:
		m.push(value.Bool(a.Bool && b.Bool))
	case bytecode.OR:
		m.push(value.Bool(a.Bool || b.Bool))
	}
	return nil
}

func (m *Machine) execNot() error {
	a, err := m.pop()
	if err != nil {
		return err
	}
	if a.Kind != value.KindBool {
		return m.fail(RuntimeTypeError, "NOT requires a boolean operand")
	}
	m.push(value.Bool(!a.Bool))
	return nil
}

// execCompare implements EQ/NEQ/LT/LTE/GT/GTE. EQ and NEQ are
// symmetric; the ordering comparisons follow the same (b, a)
// convention as SUB/DIV/MOD, so `(< i 3)` — compiled i-then-3 — tests
// i < 3, not 3 < i.
func (m *Machine) execCompare(op bytecode.Opcode) error {
	a, err := m.pop()
	if err != nil {
		return err
	}
	b, err := m.pop()
	if err != nil {
		return err
	}
	if !a.IsNumeric() || !b.IsNumeric() {
		return m.fail(RuntimeTypeError, "%v requires numeric operands", op)
	}
	af, bf := a.AsFloat64(), b.AsFloat64()
	var result bool
	switch op {
	case bytecode.EQ:
		result = af == bf
	case bytecode.NEQ:
		result = af != bf
	case bytecode.LT:
		result = bf < af
	case bytecode.LTE:
		result = bf <= af
	case bytecode.GT:
		result = bf > af
	case bytecode.GTE:
		result = bf >= af
	}
	m.push(value.Bool(result))
	return nil
}

// execConcat implements CONCATSTR: pops a then b, result is b++a — the
// value pushed first (the earlier, more "left" operand) ends up
// leftmost in the result.
func (m *Machine) execConcat() error {
	a, err := m.pop()
	if err != nil {
		return err
	}
	b, err := m.pop()
	if err != nil {
		return err
	}
	as, ok := m.strings.get(a.Handle)
	if a.Kind != value.KindString || !ok {
		return m.fail(RuntimeTypeError, "CONCATSTR requires string operands")
	}
	bs, ok := m.strings.get(b.Handle)
	if b.Kind != value.KindString || !ok {
		return m.fail(RuntimeTypeError, "CONCATSTR requires string operands")
	}
	h := m.strings.register(bs + as)
	m.push(value.StringHandle(h))
	return nil
}

// execSubstr implements SUBSTR, popping in the order len, start, s —
// matching the compiler's left-to-right emission of
// `(substr s start len)`. Valid iff 0 <= start <= len(s) and
// start+length <= len(s); start == len(s) with length 0 is valid and
// yields "".
func (m *Machine) execSubstr() error {
	length, err := m.pop()
	if err != nil {
		return err
	}
	start, err := m.pop()
	if err != nil {
		return err
	}
	s, err := m.pop()
	if err != nil {
		return err
	}
	if s.Kind != value.KindString {
		return m.fail(RuntimeTypeError, "SUBSTR requires a string operand")
	}
	if start.Kind != value.KindInt || length.Kind != value.KindInt {
		return m.fail(RuntimeTypeError, "SUBSTR start and length must be integers")
	}
	if start.Int < 0 || length.Int < 0 {
		return m.fail(IndexOutOfBounds, "SUBSTR start and length may not be negative")
	}
	str, ok := m.strings.get(s.Handle)
	if !ok {
		return m.fail(RuntimeTypeError, "SUBSTR requires a string operand")
	}
	st, ln := int(start.Int), int(length.Int)
	if st > len(str) || st+ln > len(str) {
		return m.fail(IndexOutOfBounds, "substring [%d:%d+%d] out of bounds for length %d", st, st, ln, len(str))
	}
	h := m.strings.register(str[st : st+ln])
	m.push(value.StringHandle(h))
	return nil
}

func (m *Machine) execStrEq() error {
	a, err := m.pop()
	if err != nil {
		return err
	}
	b, err := m.pop()
	if err != nil {
		return err
	}
	as, aok := m.strings.get(a.Handle)
	bs, bok := m.strings.get(b.Handle)
	if a.Kind != value.KindString || b.Kind != value.KindString || !aok || !bok {
		return m.fail(RuntimeTypeError, "STR_EQ requires string operands")
	}
	m.push(value.Bool(as == bs))
	return nil
}

func (m *Machine) execStrlen() error {
	a, err := m.pop()
	if err != nil {
		return err
	}
	s, ok := m.strings.get(a.Handle)
	if a.Kind != value.KindString || !ok {
		return m.fail(RuntimeTypeError, "STRLEN requires a string operand")
	}
	m.push(value.Int32(int32(len(s))))
	return nil
}

func (m *Machine) execPrint(newline bool) error {
	v, err := m.pop()
	if err != nil {
		return err
	}
	s, err := m.Format(v)
	if err != nil {
		return err
	}
	if newline {
		fmt.Fprintln(m.out, s)
	} else {
		fmt.Fprint(m.out, s)
	}
	m.push(v)
	return nil
}

// execDup duplicates the top value at the handle level for every
// kind, including strings: language-visible operations never mutate a
// string or list in place, so sharing a handle between the original
// and the duplicate is indistinguishable from a deep copy.
func (m *Machine) execDup() error {
	a, err := m.pop()
	if err != nil {
		return err
	}
	m.push(a)
	m.push(a)
	return nil
}

func (m *Machine) execSwap() error {
	a, err := m.pop()
	if err != nil {
		return err
	}
	b, err := m.pop()
	if err != nil {
		return err
	}
	m.push(a)
	m.push(b)
	return nil
}

func (m *Machine) execInt2Float() error {
	a, err := m.pop()
	if err != nil {
		return err
	}
	if !a.IsNumeric() {
		return m.fail(RuntimeTypeError, "INT2FLOAT requires a numeric operand")
	}
	m.push(value.Float64(a.AsFloat64()))
	return nil
}

func (m *Machine) execFloat2Int() error {
	a, err := m.pop()
	if err != nil {
		return err
	}
	switch a.Kind {
	case value.KindInt:
		m.push(a)
		return nil
	case value.KindFloat:
		if a.Float < math.MinInt32 || a.Float > math.MaxInt32 {
			return m.fail(ConversionOverflow, "float %f out of int32 range", a.Float)
		}
		m.push(value.Int32(int32(a.Float)))
		return nil
	default:
		return m.fail(RuntimeTypeError, "FLOAT2INT requires a numeric operand")
	}
}

func (m *Machine) execJmp() error {
	addr, err := m.pop()
	if err != nil {
		return err
	}
	if addr.Kind != value.KindInt || addr.Int < 0 {
		return m.fail(RuntimeTypeError, "JMP requires a non-negative integer address")
	}
	m.pc = int(addr.Int)
	return nil
}

func (m *Machine) execJmpCond(jumpWhenTrue bool) error {
	addr, err := m.pop()
	if err != nil {
		return err
	}
	cond, err := m.pop()
	if err != nil {
		return err
	}
	if addr.Kind != value.KindInt || addr.Int < 0 {
		return m.fail(RuntimeTypeError, "conditional jump requires a non-negative integer address")
	}
	if cond.Kind != value.KindBool {
		return m.fail(RuntimeTypeError, "conditional jump requires a boolean condition")
	}
	if cond.Bool == jumpWhenTrue {
		m.pc = int(addr.Int)
	}
	return nil
}

func (m *Machine) listOperand(v value.Value) (*vmList, error) {
	l, ok := m.lists.get(v.Handle)
	if v.Kind != value.KindList || !ok {
		return nil, m.fail(RuntimeTypeError, "expected a list operand")
	}
	return l, nil
}

// execListAppend pops v then the list; pushes a fresh list with v
// appended, leaving the original untouched.
func (m *Machine) execListAppend() error {
	v, err := m.pop()
	if err != nil {
		return err
	}
	lv, err := m.pop()
	if err != nil {
		return err
	}
	l, err := m.listOperand(lv)
	if err != nil {
		return err
	}
	out := make([]value.Value, len(l.elements)+1)
	copy(out, l.elements)
	out[len(l.elements)] = v
	m.push(value.ListHandle(m.lists.register(out)))
	return nil
}

// execListSublist pops length, start, list in that order, matching
// SUBSTR's convention for the analogous string operation.
func (m *Machine) execListSublist() error {
	length, err := m.pop()
	if err != nil {
		return err
	}
	start, err := m.pop()
	if err != nil {
		return err
	}
	lv, err := m.pop()
	if err != nil {
		return err
	}
	l, err := m.listOperand(lv)
	if err != nil {
		return err
	}
	if start.Kind != value.KindInt || length.Kind != value.KindInt {
		return m.fail(RuntimeTypeError, "LIST_SUBLIST start and length must be integers")
	}
	if start.Int < 0 || length.Int < 0 {
		return m.fail(IndexOutOfBounds, "LIST_SUBLIST start and length may not be negative")
	}
	st, ln := int(start.Int), int(length.Int)
	if st > len(l.elements) || st+ln > len(l.elements) {
		return m.fail(IndexOutOfBounds, "sublist [%d:%d+%d] out of bounds for length %d", st, st, ln, len(l.elements))
	}
	out := make([]value.Value, ln)
	copy(out, l.elements[st:st+ln])
	m.push(value.ListHandle(m.lists.register(out)))
	return nil
}

// execListRemove pops idx then list; pushes a fresh list with the
// element at idx removed.
func (m *Machine) execListRemove() error {
	idx, err := m.pop()
	if err != nil {
		return err
	}
	lv, err := m.pop()
	if err != nil {
		return err
	}
	l, err := m.listOperand(lv)
	if err != nil {
		return err
	}
	if idx.Kind != value.KindInt {
		return m.fail(RuntimeTypeError, "LIST_REMOVE index must be an integer")
	}
	i := int(idx.Int)
	if i < 0 || i >= len(l.elements) {
		return m.fail(IndexOutOfBounds, "LIST_REMOVE index %d out of bounds for length %d", i, len(l.elements))
	}
	out := make([]value.Value, 0, len(l.elements)-1)
	out = append(out, l.elements[:i]...)
	out = append(out, l.elements[i+1:]...)
	m.push(value.ListHandle(m.lists.register(out)))
	return nil
}

// execListSet pops v, idx, list in that order; pushes a fresh list
// with index idx replaced by v.
func (m *Machine) execListSet() error {
	v, err := m.pop()
	if err != nil {
		return err
	}
	idx, err := m.pop()
	if err != nil {
		return err
	}
	lv, err := m.pop()
	if err != nil {
		return err
	}
	l, err := m.listOperand(lv)
	if err != nil {
		return err
	}
	if idx.Kind != value.KindInt {
		return m.fail(RuntimeTypeError, "LIST_SET index must be an integer")
	}
	i := int(idx.Int)
	if i < 0 || i >= len(l.elements) {
		return m.fail(IndexOutOfBounds, "LIST_SET index %d out of bounds for length %d", i, len(l.elements))
	}
	out := make([]value.Value, len(l.elements))
	copy(out, l.elements)
	out[i] = v
	m.push(value.ListHandle(m.lists.register(out)))
	return nil
}

// execListGet pops idx then list; pushes the element at idx. This is
// a read, not a mutator, so it returns the element itself rather than
// a fresh list.
func (m *Machine) execListGet() error {
	idx, err := m.pop()
	if err != nil {
		return err
	}
	lv, err := m.pop()
	if err != nil {
		return err
	}
	l, err := m.listOperand(lv)
	if err != nil {
		return err
	}
	if idx.Kind != value.KindInt {
		return m.fail(RuntimeTypeError, "LIST_GET index must be an integer")
	}
	i := int(idx.Int)
	if i < 0 || i >= len(l.elements) {
		return m.fail(IndexOutOfBounds, "LIST_GET index %d out of bounds for length %d", i, len(l.elements))
	}
	m.push(l.elements[i])
	return nil
}

func (m *Machine) execListLen() error {
	lv, err := m.pop()
	if err != nil {
		return err
	}
	l, err := m.listOperand(lv)
	if err != nil {
		return err
	}
	m.push(value.Int32(int32(len(l.elements))))
	return nil
}

// Format renders v in the language's printed form: decimal integers,
// six-fractional-digit floats, bare true/false, raw string bytes with
// no surrounding quotes, and `[elem elem ...]` for lists with string
// elements quoted.
func (m *Machine) Format(v value.Value) (string, error) {
	switch v.Kind {
	case value.KindInt:
		return fmt.Sprintf("%d", v.Int), nil
	case value.KindFloat:
		return fmt.Sprintf("%f", v.Float), nil
	case value.KindBool:
		if v.Bool {
			return "true", nil
		}
		return "false", nil
	case value.KindString:
		s, ok := m.strings.get(v.Handle)
		if !ok {
			return "", m.fail(RuntimeTypeError, "invalid string handle %d", v.Handle)
		}
		return s, nil
	case value.KindList:
		l, ok := m.lists.get(v.Handle)
		if !ok {
			return "", m.fail(RuntimeTypeError, "invalid list handle %d", v.Handle)
		}
		parts := make([]string, len(l.elements))
		for i, e := range l.elements {
			rendered, err := m.Format(e)
			if err != nil {
				return "", err
			}
			if e.Kind == value.KindString {
				rendered = `"` + rendered + `"`
			}
			parts[i] = rendered
		}
		out := "["
		for i, p := range parts {
			if i > 0 {
				out += " "
			}
			out += p
		}
		return out + "]", nil
	default:
		return "", m.fail(RuntimeTypeError, "cannot format value of kind %v", v.Kind)
	}
}
