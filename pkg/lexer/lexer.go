// Package lexer implements the lexical analyzer for the S-expression
// surface syntax: it tokenizes by single-character lookahead, the same
// way the retained C prototype's lexer does.
package lexer

import (
	"fmt"
	"unicode"

	"github.com/pkg/errors"
)

// TokenType identifies the kind of a Token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIllegal
	TokenLParen
	TokenRParen
	TokenInteger
	TokenFloat
	TokenBool
	TokenString
	TokenSymbol
)

func (tt TokenType) String() string {
	switch tt {
	case TokenEOF:
		return "EOF"
	case TokenIllegal:
		return "ILLEGAL"
	case TokenLParen:
		return "LPAREN"
	case TokenRParen:
		return "RPAREN"
	case TokenInteger:
		return "INTEGER"
	case TokenFloat:
		return "FLOAT"
	case TokenBool:
		return "BOOL"
	case TokenString:
		return "STRING"
	case TokenSymbol:
		return "SYMBOL"
	default:
		return "UNKNOWN"
	}
}

// Token is a single lexical token: its type plus whatever literal data
// that type carries (decoded already — e.g. string escapes are resolved
// here, not by the parser).
type Token struct {
	Type    TokenType
	Literal string // raw text for Symbol, decoded text for String
	Int     int32
	Float   float64
	Bool    bool
	Line    int
	Column  int
}

// LexError is returned for malformed numbers, unterminated strings, and
// unknown escapes. It carries the phase tag "Lexer error" that the
// driver prints verbatim (spec.md §8: diagnostics tagged by phase).
type LexError struct {
	Line, Column int
	Msg          string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("Lexer error: %s (line %d, column %d)", e.Msg, e.Line, e.Column)
}

func lexErrorf(line, col int, format string, args ...interface{}) error {
	return errors.WithStack(&LexError{Line: line, Column: col, Msg: fmt.Sprintf(format, args...)})
}

// Lexer tokenizes one source buffer, one byte of lookahead at a time.
type Lexer struct {
	input        string
	position     int
	readPosition int
	ch           byte
	line, column int
}

// New creates a Lexer over the given source text.
func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		if l.ch == '\n' {
			l.line++
			l.column = 0
		}
		l.readChar()
	}
}

// NextToken returns the next token, or a LexError for malformed input.
func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespace()

	line, col := l.line, l.column
	tok := Token{Line: line, Column: col}

	switch {
	case l.ch == 0:
		tok.Type = TokenEOF
		return tok, nil
	case l.ch == '(':
		tok.Type = TokenLParen
		l.readChar()
		return tok, nil
	case l.ch == ')':
		tok.Type = TokenRParen
		l.readChar()
		return tok, nil
	case l.ch == '"':
		return l.readString(line, col)
	case isDigit(l.ch):
		return l.readNumber(line, col)
	default:
		return l.readSymbol(line, col)
	}
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isDelimiter(ch byte) bool {
	return ch == 0 || ch == '(' || ch == ')' || ch == '"' || unicode.IsSpace(rune(ch))
}

// readNumber reads one or more digits, optionally followed by a single
// '.' and one or more digits. A second '.' is a lex error, not a
// silent terminator — the surface syntax has no other use for '.'.
func (l *Lexer) readNumber(line, col int) (Token, error) {
	start := l.position
	dots := 0
	for isDigit(l.ch) || l.ch == '.' {
		if l.ch == '.' {
			dots++
			if dots > 1 {
				return Token{}, lexErrorf(line, col, "malformed number %q: too many '.'", l.input[start:l.position+1])
			}
			if !isDigit(l.peekChar()) {
				return Token{}, lexErrorf(line, col, "malformed number %q: '.' must be followed by a digit", l.input[start:l.position+1])
			}
		}
		l.readChar()
	}
	lit := l.input[start:l.position]
	if dots == 0 {
		var n int64
		for _, c := range []byte(lit) {
			n = n*10 + int64(c-'0')
		}
		return Token{Type: TokenInteger, Literal: lit, Int: int32(n), Line: line, Column: col}, nil
	}
	f, err := parseFloat(lit)
	if err != nil {
		return Token{}, lexErrorf(line, col, "malformed float %q", lit)
	}
	return Token{Type: TokenFloat, Literal: lit, Float: f, Line: line, Column: col}, nil
}

// readString reads a '"'-delimited string literal, decoding the escapes
// \n, \t, \\, \" along the way; any other escape is a lex error, and
// running off the end of input before the closing quote is too.
func (l *Lexer) readString(line, col int) (Token, error) {
	l.readChar() // consume opening quote
	var buf []byte
	for {
		if l.ch == 0 {
			return Token{}, lexErrorf(line, col, "unterminated string")
		}
		if l.ch == '"' {
			l.readChar() // consume closing quote
			break
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				buf = append(buf, '\n')
			case 't':
				buf = append(buf, '\t')
			case '\\':
				buf = append(buf, '\\')
			case '"':
				buf = append(buf, '"')
			case 0:
				return Token{}, lexErrorf(line, col, "unterminated string")
			default:
				return Token{}, lexErrorf(line, col, "unknown escape sequence '\\%c'", l.ch)
			}
			l.readChar()
			continue
		}
		if l.ch == '\n' {
			l.line++
			l.column = 0
		}
		buf = append(buf, l.ch)
		l.readChar()
	}
	return Token{Type: TokenString, Literal: string(buf), Line: line, Column: col}, nil
}

// readSymbol reads a run of characters up to the next delimiter
// (whitespace, '(', ')', '"', or end-of-input). The bare words "true"
// and "false" are recognized as Bool tokens; everything else — `+`,
// `str=`, `while`, `x`, ... — is a Symbol.
func (l *Lexer) readSymbol(line, col int) (Token, error) {
	start := l.position
	for !isDelimiter(l.ch) {
		l.readChar()
	}
	lit := l.input[start:l.position]
	if lit == "" {
		tok := Token{Type: TokenIllegal, Literal: string(l.ch), Line: line, Column: col}
		l.readChar()
		return tok, lexErrorf(line, col, "unexpected character %q", tok.Literal)
	}
	switch lit {
	case "true":
		return Token{Type: TokenBool, Literal: lit, Bool: true, Line: line, Column: col}, nil
	case "false":
		return Token{Type: TokenBool, Literal: lit, Bool: false, Line: line, Column: col}, nil
	default:
		return Token{Type: TokenSymbol, Literal: lit, Line: line, Column: col}, nil
	}
}

// parseFloat converts a digits-dot-digits literal to float64 without
// reaching for strconv's broader grammar (exponents, hex floats, signs)
// that this language's number syntax does not support.
func parseFloat(lit string) (float64, error) {
	dot := -1
	for i := 0; i < len(lit); i++ {
		if lit[i] == '.' {
			dot = i
			break
		}
	}
	if dot < 0 {
		return 0, errors.Errorf("not a float literal: %q", lit)
	}
	var whole, frac int64
	for i := 0; i < dot; i++ {
		whole = whole*10 + int64(lit[i]-'0')
	}
	scale := 1.0
	for i := dot + 1; i < len(lit); i++ {
		frac = frac*10 + int64(lit[i]-'0')
		scale *= 10
	}
	return float64(whole) + float64(frac)/scale, nil
}
