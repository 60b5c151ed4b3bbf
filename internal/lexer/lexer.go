// Package lexer implements the kaleido lexical analyzer.
package lexer

import (
	"fmt"

	"github.com/orizon-lang/kaleido/internal/position"
)

// TokenType represents the type of a token
type TokenType int

// String returns a string representation of the token type
func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(tt))
}

const (
	TokenEOF TokenType = iota
	TokenError

	TokenIdentifier
	TokenNumber

	// Keywords
	TokenDef
	TokenExtern
	TokenIf
	TokenThen
	TokenElse
	TokenFor
	TokenIn
	TokenWhile
	TokenVar
	TokenEnd

	// Operators
	TokenPlus
	TokenMinus
	TokenMul
	TokenDiv
	TokenAssign
	TokenEq
	TokenNe
	TokenLt
	TokenLe
	TokenGt
	TokenGe
	TokenColon

	// Punctuation
	TokenLParen
	TokenRParen
	TokenComma
	TokenSemicolon
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenError:      "ERROR",
	TokenIdentifier: "IDENTIFIER",
	TokenNumber:     "NUMBER",

	TokenDef:    "DEF",
	TokenExtern: "EXTERN",
	TokenIf:     "IF",
	TokenThen:   "THEN",
	TokenElse:   "ELSE",
	TokenFor:    "FOR",
	TokenIn:     "IN",
	TokenWhile:  "WHILE",
	TokenVar:    "VAR",
	TokenEnd:    "END",

	TokenPlus:   "PLUS",
	TokenMinus:  "MINUS",
	TokenMul:    "MUL",
	TokenDiv:    "DIV",
	TokenAssign: "ASSIGN",
	TokenEq:     "EQ",
	TokenNe:     "NE",
	TokenLt:     "LT",
	TokenLe:     "LE",
	TokenGt:     "GT",
	TokenGe:     "GE",
	TokenColon:  "COLON",

	TokenLParen:    "LPAREN",
	TokenRParen:    "RPAREN",
	TokenComma:     "COMMA",
	TokenSemicolon: "SEMICOLON",
}

// keywords maps string keywords to their token types
var keywords = map[string]TokenType{
	"def":    TokenDef,
	"extern": TokenExtern,
	"if":     TokenIf,
	"then":   TokenThen,
	"else":   TokenElse,
	"for":    TokenFor,
	"in":     TokenIn,
	"while":  TokenWhile,
	"var":    TokenVar,
	"end":    TokenEnd,
}

// Token represents a lexical token with position information
type Token struct {
	Type    TokenType
	Literal string
	Span    position.Span
}

// String returns a string representation of the token
func (t Token) String() string {
	return fmt.Sprintf("{Type: %s, Literal: %q, At: %s}", t.Type, t.Literal, t.Span.Start)
}

// Lexer represents the lexical analyzer
type Lexer struct {
	input        string
	filename     string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int  // line of ch
	column       int  // column of ch
}

// New creates a new lexer instance
func New(input string) *Lexer {
	return NewWithFilename(input, "")
}

// NewWithFilename creates a new lexer instance with filename for error reporting
func NewWithFilename(input, filename string) *Lexer {
	l := &Lexer{input: input, filename: filename, line: 1}
	l.readChar()

	return l
}

// readChar reads the next character and advances position
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0 // ASCII NUL character represents "EOF"
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

// peekChar returns the next character without advancing position
func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) atEOF() bool { return l.position >= len(l.input) }

func (l *Lexer) here() position.Position {
	return position.Position{Filename: l.filename, Line: l.line, Column: l.column, Offset: l.position}
}

// skipTrivia skips whitespace and '#' line comments.
func (l *Lexer) skipTrivia() {
	for !l.atEOF() {
		switch l.ch {
		case ' ', '\t', '\r', '\n':
			l.readChar()
		case '#':
			for !l.atEOF() && l.ch != '\n' {
				l.readChar()
			}
		default:
			return
		}
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[start:l.position]
}

// readNumber reads digits with at most one decimal point; ".5" is valid.
func (l *Lexer) readNumber() string {
	start := l.position
	seenDot := false
	for isDigit(l.ch) || (l.ch == '.' && !seenDot) {
		if l.ch == '.' {
			seenDot = true
		}
		l.readChar()
	}
	return l.input[start:l.position]
}

// isLetter checks if character is ASCII letter
func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z'
}

// isDigit checks if character is ASCII digit
func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

// NextToken scans the input and returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipTrivia()

	start := l.here()
	if l.atEOF() {
		return Token{Type: TokenEOF, Span: position.Between(start, start)}
	}

	var typ TokenType
	var literal string

	switch ch := l.ch; {
	case isLetter(ch) || ch == '_':
		literal = l.readIdentifier()
		typ = lookupIdent(literal)
		return l.finish(typ, literal, start)
	case isDigit(ch) || (ch == '.' && isDigit(l.peekChar())):
		literal = l.readNumber()
		return l.finish(TokenNumber, literal, start)
	case ch == '=' || ch == '!' || ch == '<' || ch == '>':
		if l.peekChar() == '=' {
			l.readChar()
			literal = string([]byte{ch, '='})
			typ = map[byte]TokenType{'=': TokenEq, '!': TokenNe, '<': TokenLe, '>': TokenGe}[ch]
			break
		}
		literal = string(ch)
		switch ch {
		case '=':
			typ = TokenAssign
		case '<':
			typ = TokenLt
		case '>':
			typ = TokenGt
		default:
			typ = TokenError
		}
	default:
		literal = string(ch)
		typ = singleChar(ch)
	}

	l.readChar()

	return l.finish(typ, literal, start)
}

func singleChar(ch byte) TokenType {
	switch ch {
	case '+':
		return TokenPlus
	case '-':
		return TokenMinus
	case '*':
		return TokenMul
	case '/':
		return TokenDiv
	case ':':
		return TokenColon
	case '(':
		return TokenLParen
	case ')':
		return TokenRParen
	case ',':
		return TokenComma
	case ';':
		return TokenSemicolon
	default:
		return TokenError
	}
}

func (l *Lexer) finish(typ TokenType, literal string, start position.Position) Token {
	return Token{Type: typ, Literal: literal, Span: position.Between(start, l.here())}
}

func lookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return TokenIdentifier
}

// Tokenize scans the whole input, including the trailing EOF token.
func Tokenize(input, filename string) []Token {
	l := NewWithFilename(input, filename)

	var toks []Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == TokenEOF {
			return toks
		}
	}
}
