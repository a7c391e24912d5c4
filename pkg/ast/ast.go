// Package ast defines the Abstract Syntax Tree nodes produced by the
// parser and consumed by the compiler.
//
// The surface language has exactly two shapes: atoms (integers, floats,
// bools, strings, symbols) and parenthesized lists of expressions. Every
// top-level form is an expression — there is no separate statement
// grammar — and `define`/`do`/`if`/`while` are just lists whose head
// symbol the compiler dispatches on.
package ast

// Node is implemented by every AST node.
type Node interface {
	// TokenLiteral returns a short description of the node, used only
	// in diagnostics.
	TokenLiteral() string
}

// Expr is implemented by every expression node: literals, symbols, and
// parenthesized call forms.
type Expr interface {
	Node
	exprNode()
}

// Program is the root node: a sequence of top-level expressions
// compiled in order.
type Program struct {
	Exprs []Expr
}

func (p *Program) TokenLiteral() string {
	if len(p.Exprs) == 0 {
		return ""
	}
	return p.Exprs[0].TokenLiteral()
}

// IntegerLiteral is a bare integer atom, e.g. `42`.
type IntegerLiteral struct {
	Value int32
}

func (n *IntegerLiteral) TokenLiteral() string { return "integer" }
func (n *IntegerLiteral) exprNode()            {}

// FloatLiteral is a bare floating-point atom, e.g. `3.5`.
type FloatLiteral struct {
	Value float64
}

func (n *FloatLiteral) TokenLiteral() string { return "float" }
func (n *FloatLiteral) exprNode()            {}

// BoolLiteral is the bare word `true` or `false`.
type BoolLiteral struct {
	Value bool
}

func (n *BoolLiteral) TokenLiteral() string { return "bool" }
func (n *BoolLiteral) exprNode()            {}

// StringLiteral is a quoted string atom, already escape-decoded by the
// lexer.
type StringLiteral struct {
	Value string
}

func (n *StringLiteral) TokenLiteral() string { return "string" }
func (n *StringLiteral) exprNode()            {}

// Symbol is a bare symbol atom that is not the head of a call form —
// compiles to a variable load.
type Symbol struct {
	Name string
}

func (n *Symbol) TokenLiteral() string { return n.Name }
func (n *Symbol) exprNode()            {}

// List is a parenthesized form `(head arg...)`. The compiler requires
// Items[0] to be a Symbol; the parser accepts any expressions, and
// accepts zero Items — `()` parses fine and is rejected only later, as
// an "empty call" compile error.
type List struct {
	Items []Expr
}

func (n *List) TokenLiteral() string { return "(" }
func (n *List) exprNode()            {}
