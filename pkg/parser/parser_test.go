package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/sexpvm/pkg/ast"
	"github.com/kristofer/sexpvm/pkg/lexer"
)

func parseSource(t *testing.T, src string) *ast.Program {
	t.Helper()
	p, err := New(lexer.New(src))
	require.NoError(t, err)
	prog, err := p.ParseProgram()
	require.NoError(t, err)
	return prog
}

func TestParserAtoms(t *testing.T) {
	prog := parseSource(t, `42 3.5 true false "hi" x`)
	require.Len(t, prog.Exprs, 6)

	assert.Equal(t, &ast.IntegerLiteral{Value: 42}, prog.Exprs[0])
	assert.Equal(t, &ast.FloatLiteral{Value: 3.5}, prog.Exprs[1])
	assert.Equal(t, &ast.BoolLiteral{Value: true}, prog.Exprs[2])
	assert.Equal(t, &ast.BoolLiteral{Value: false}, prog.Exprs[3])
	assert.Equal(t, &ast.StringLiteral{Value: "hi"}, prog.Exprs[4])
	assert.Equal(t, &ast.Symbol{Name: "x"}, prog.Exprs[5])
}

func TestParserSimpleList(t *testing.T) {
	prog := parseSource(t, `(+ 1 2)`)
	require.Len(t, prog.Exprs, 1)

	list, ok := prog.Exprs[0].(*ast.List)
	require.True(t, ok)
	require.Len(t, list.Items, 3)
	assert.Equal(t, &ast.Symbol{Name: "+"}, list.Items[0])
	assert.Equal(t, &ast.IntegerLiteral{Value: 1}, list.Items[1])
	assert.Equal(t, &ast.IntegerLiteral{Value: 2}, list.Items[2])
}

func TestParserNestedList(t *testing.T) {
	prog := parseSource(t, `(define x (+ 1 (* 2 3)))`)
	require.Len(t, prog.Exprs, 1)

	outer, ok := prog.Exprs[0].(*ast.List)
	require.True(t, ok)
	require.Len(t, outer.Items, 3)

	plus, ok := outer.Items[2].(*ast.List)
	require.True(t, ok)
	require.Len(t, plus.Items, 3)

	mul, ok := plus.Items[2].(*ast.List)
	require.True(t, ok)
	assert.Equal(t, &ast.Symbol{Name: "*"}, mul.Items[0])
}

func TestParserEmptyList(t *testing.T) {
	prog := parseSource(t, `()`)
	require.Len(t, prog.Exprs, 1)
	list, ok := prog.Exprs[0].(*ast.List)
	require.True(t, ok)
	assert.Empty(t, list.Items)
}

func TestParserMultipleTopLevelForms(t *testing.T) {
	prog := parseSource(t, `(define x 1) (define y 2) (+ x y)`)
	assert.Len(t, prog.Exprs, 3)
}

func TestParserUnmatchedCloseParen(t *testing.T) {
	p, err := New(lexer.New(`)`))
	require.NoError(t, err)
	_, err = p.ParseProgram()
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestParserUnterminatedList(t *testing.T) {
	p, err := New(lexer.New(`(+ 1 2`))
	require.NoError(t, err)
	_, err = p.ParseProgram()
	require.Error(t, err)
}

func TestParserUnterminatedNestedList(t *testing.T) {
	p, err := New(lexer.New(`(+ 1 (* 2 3)`))
	require.NoError(t, err)
	_, err = p.ParseProgram()
	require.Error(t, err)
}
