package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenTypes(t *testing.T, src string) []TokenType {
	t.Helper()
	l := New(src)
	var types []TokenType
	for {
		tok, err := l.NextToken()
		require.NoError(t, err)
		types = append(types, tok.Type)
		if tok.Type == TokenEOF {
			return types
		}
	}
}

func TestLexerParens(t *testing.T) {
	types := tokenTypes(t, "(())")
	assert.Equal(t, []TokenType{TokenLParen, TokenLParen, TokenRParen, TokenRParen, TokenEOF}, types)
}

func TestLexerIntegerLiteral(t *testing.T) {
	l := New("42")
	tok, err := l.NextToken()
	require.NoError(t, err)
	assert.Equal(t, TokenInteger, tok.Type)
	assert.Equal(t, int32(42), tok.Int)
}

func TestLexerFloatLiteral(t *testing.T) {
	l := New("3.5")
	tok, err := l.NextToken()
	require.NoError(t, err)
	assert.Equal(t, TokenFloat, tok.Type)
	assert.InDelta(t, 3.5, tok.Float, 1e-9)
}

func TestLexerFloatLeadingZero(t *testing.T) {
	l := New("0.125")
	tok, err := l.NextToken()
	require.NoError(t, err)
	assert.Equal(t, TokenFloat, tok.Type)
	assert.InDelta(t, 0.125, tok.Float, 1e-9)
}

func TestLexerMalformedNumberTwoDots(t *testing.T) {
	l := New("1.2.3")
	_, err := l.NextToken()
	require.Error(t, err)
	var lexErr *LexError
	require.ErrorAs(t, err, &lexErr)
}

func TestLexerMalformedNumberTrailingDot(t *testing.T) {
	l := New("1. ")
	_, err := l.NextToken()
	require.Error(t, err)
}

func TestLexerBoolLiterals(t *testing.T) {
	types := tokenTypes(t, "true false")
	assert.Equal(t, []TokenType{TokenBool, TokenBool, TokenEOF}, types)

	l := New("true")
	tok, _ := l.NextToken()
	assert.True(t, tok.Bool)

	l = New("false")
	tok, _ = l.NextToken()
	assert.False(t, tok.Bool)
}

func TestLexerSymbol(t *testing.T) {
	for _, sym := range []string{"+", "-", "while", "str=", "x", "list-append"} {
		l := New(sym)
		tok, err := l.NextToken()
		require.NoError(t, err)
		assert.Equal(t, TokenSymbol, tok.Type)
		assert.Equal(t, sym, tok.Literal)
	}
}

func TestLexerStringLiteral(t *testing.T) {
	l := New(`"hello world"`)
	tok, err := l.NextToken()
	require.NoError(t, err)
	assert.Equal(t, TokenString, tok.Type)
	assert.Equal(t, "hello world", tok.Literal)
}

func TestLexerEmptyStringLiteral(t *testing.T) {
	l := New(`""`)
	tok, err := l.NextToken()
	require.NoError(t, err)
	assert.Equal(t, TokenString, tok.Type)
	assert.Equal(t, "", tok.Literal)
}

func TestLexerStringEscapes(t *testing.T) {
	l := New(`"a\nb\tc\\d\"e"`)
	tok, err := l.NextToken()
	require.NoError(t, err)
	assert.Equal(t, "a\nb\tc\\d\"e", tok.Literal)
}

func TestLexerUnterminatedString(t *testing.T) {
	l := New(`"abc`)
	_, err := l.NextToken()
	require.Error(t, err)
}

func TestLexerUnknownEscape(t *testing.T) {
	l := New(`"a\qb"`)
	_, err := l.NextToken()
	require.Error(t, err)
}

func TestLexerFullExpression(t *testing.T) {
	types := tokenTypes(t, `(define x (+ 1 2.5))`)
	assert.Equal(t, []TokenType{
		TokenLParen, TokenSymbol, TokenSymbol,
		TokenLParen, TokenSymbol, TokenInteger, TokenFloat, TokenRParen,
		TokenRParen, TokenEOF,
	}, types)
}

func TestLexerTracksLineAndColumn(t *testing.T) {
	l := New("(foo\n  bar)")
	tok, err := l.NextToken() // (
	require.NoError(t, err)
	assert.Equal(t, 1, tok.Line)

	tok, err = l.NextToken() // foo
	require.NoError(t, err)
	assert.Equal(t, 1, tok.Line)

	tok, err = l.NextToken() // bar
	require.NoError(t, err)
	assert.Equal(t, 2, tok.Line)
}
