// Package parser implements the recursive-descent parser for the
// S-expression surface syntax.
//
// The grammar has exactly two productions: an atom (integer, float,
// bool, string, or symbol) and a parenthesized list of zero or more
// expressions. There is no operator precedence to climb and no
// statement/expression distinction — every top-level form is parsed the
// same way a nested one is.
//
// The parser keeps a two-token window, cur and peek, the same shape the
// prototype's parser uses, even though this grammar never needs the
// second token: every decision, including reporting a list that runs
// into EOF instead of a ')', is made from cur alone.
package parser

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/kristofer/sexpvm/pkg/ast"
	"github.com/kristofer/sexpvm/pkg/lexer"
)

// ParseError is returned for any syntactic error: a stray ')' at top
// level, EOF in the middle of a list, or a malformed atom.
type ParseError struct {
	Line, Column int
	Msg          string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("Parser error: %s (line %d, column %d)", e.Msg, e.Line, e.Column)
}

func parseErrorf(tok lexer.Token, format string, args ...interface{}) error {
	return errors.WithStack(&ParseError{Line: tok.Line, Column: tok.Column, Msg: fmt.Sprintf(format, args...)})
}

// Parser turns a token stream into an ast.Program.
type Parser struct {
	l    *lexer.Lexer
	cur  lexer.Token
	peek lexer.Token
}

// New creates a Parser reading from l. It primes both cur and peek.
func New(l *lexer.Lexer) (*Parser, error) {
	p := &Parser{l: l}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) nextToken() error {
	p.cur = p.peek
	tok, err := p.l.NextToken()
	if err != nil {
		return err
	}
	p.peek = tok
	return nil
}

// ParseProgram parses every top-level form up to EOF.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	for p.cur.Type != lexer.TokenEOF {
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		prog.Exprs = append(prog.Exprs, expr)
	}
	return prog, nil
}

// parseExpr parses one atom or one parenthesized list.
func (p *Parser) parseExpr() (ast.Expr, error) {
	switch p.cur.Type {
	case lexer.TokenLParen:
		return p.parseList()
	case lexer.TokenRParen:
		return nil, parseErrorf(p.cur, "unmatched ')'")
	case lexer.TokenEOF:
		return nil, parseErrorf(p.cur, "unexpected end of input")
	default:
		return p.parseAtom()
	}
}

func (p *Parser) parseAtom() (ast.Expr, error) {
	tok := p.cur
	var expr ast.Expr
	switch tok.Type {
	case lexer.TokenInteger:
		expr = &ast.IntegerLiteral{Value: tok.Int}
	case lexer.TokenFloat:
		expr = &ast.FloatLiteral{Value: tok.Float}
	case lexer.TokenBool:
		expr = &ast.BoolLiteral{Value: tok.Bool}
	case lexer.TokenString:
		expr = &ast.StringLiteral{Value: tok.Literal}
	case lexer.TokenSymbol:
		expr = &ast.Symbol{Name: tok.Literal}
	default:
		return nil, parseErrorf(tok, "unexpected token %s", tok.Type)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return expr, nil
}

// parseList parses `( expr* )`, requiring the closing paren to appear
// before EOF. An empty list `()` is accepted syntactically; whether
// it's a valid call form is a compiler concern, not a parser one.
func (p *Parser) parseList() (ast.Expr, error) {
	open := p.cur
	if err := p.advance(); err != nil { // consume '('
		return nil, err
	}
	list := &ast.List{}
	for {
		if p.cur.Type == lexer.TokenEOF {
			return nil, parseErrorf(open, "unexpected EOF while parsing list")
		}
		if p.cur.Type == lexer.TokenRParen {
			if err := p.advance(); err != nil { // consume ')'
				return nil, err
			}
			return list, nil
		}
		item, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, item)
	}
}

func (p *Parser) advance() error {
	return p.nextToken()
}
