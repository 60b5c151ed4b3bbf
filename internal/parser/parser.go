// Package parser implements the kaleido recursive descent parser.
// Expressions are parsed with a Pratt loop (parser_expressions.go); this file
// holds the token plumbing, top-level forms and error recovery.
package parser

import (
	"errors"
	"fmt"

	"github.com/orizon-lang/kaleido/internal/ast"
	"github.com/orizon-lang/kaleido/internal/lexer"
	"github.com/orizon-lang/kaleido/internal/position"
)

// Parser represents the recursive descent parser
type Parser struct {
	lexer   *lexer.Lexer
	current lexer.Token
	peek    lexer.Token
	errors  []error

	filename string
}

// ParseError represents a parsing error with context
type ParseError struct {
	Span    position.Span
	Message string
	Context string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %s: %s", e.Span.Start, e.Message)
}

// ErrorSpan returns where the error occurred.
func (e *ParseError) ErrorSpan() position.Span { return e.Span }

// NewParser creates a new parser instance
func NewParser(l *lexer.Lexer, filename string) *Parser {
	p := &Parser{lexer: l, filename: filename}

	// Read the first two tokens
	p.nextToken()
	p.nextToken()

	return p
}

// ParseString parses src and joins every parse error into one.
func ParseString(src, filename string) (*ast.Sequence, error) {
	p := NewParser(lexer.NewWithFilename(src, filename), filename)
	seq, errs := p.Parse()

	return seq, errors.Join(errs...)
}

// Parse parses the whole input into the right-leaning form sequence. The
// sequence holds every form that parsed, even when errors were reported.
func (p *Parser) Parse() (*ast.Sequence, []error) {
	var forms []ast.Node

	for !p.currentTokenIs(lexer.TokenEOF) {
		if p.currentTokenIs(lexer.TokenSemicolon) {
			p.nextToken()
			continue
		}

		before := len(p.errors)
		form := p.parseForm()
		if form == nil || len(p.errors) > before {
			p.synchronize()
			continue
		}
		forms = append(forms, form)
		p.nextToken()
	}

	return ast.SequenceOf(forms...), p.errors
}

// Errors returns the errors collected so far.
func (p *Parser) Errors() []error { return p.errors }

// nextToken advances the parser to the next token
func (p *Parser) nextToken() {
	p.current = p.peek
	p.peek = p.lexer.NextToken()
}

// currentTokenIs checks if the current token is of the given type
func (p *Parser) currentTokenIs(tokenType lexer.TokenType) bool {
	return p.current.Type == tokenType
}

// peekTokenIs checks if the peek token is of the given type
func (p *Parser) peekTokenIs(tokenType lexer.TokenType) bool {
	return p.peek.Type == tokenType
}

// expectPeek advances if the peek token matches the expected type
func (p *Parser) expectPeek(tokenType lexer.TokenType, context string) bool {
	if p.peekTokenIs(tokenType) {
		p.nextToken()
		return true
	}

	p.addError(p.peek.Span, fmt.Sprintf("expected %s, got %s", tokenType, describe(p.peek)), context)

	return false
}

func describe(tok lexer.Token) string {
	if tok.Type == lexer.TokenEOF {
		return "end of input"
	}
	return fmt.Sprintf("%s %q", tok.Type, tok.Literal)
}

// addError adds an error to the parser's error list
func (p *Parser) addError(span position.Span, message, context string) {
	p.errors = append(p.errors, &ParseError{Span: span, Message: message, Context: context})
}

// synchronize skips to the token after the next ';' so the following form
// can be parsed.
func (p *Parser) synchronize() {
	for !p.currentTokenIs(lexer.TokenSemicolon) && !p.currentTokenIs(lexer.TokenEOF) {
		p.nextToken()
	}
	if p.currentTokenIs(lexer.TokenSemicolon) {
		p.nextToken()
	}
}

func (p *Parser) spanFrom(start lexer.Token) position.Span {
	return position.Between(start.Span.Start, p.current.Span.End)
}

// parseForm parses one definition, declaration or top-level expression.
// On return the current token is the last token of the form.
func (p *Parser) parseForm() ast.Node {
	switch p.current.Type {
	case lexer.TokenDef:
		return p.parseDefinition()
	case lexer.TokenExtern:
		return p.parseExtern()
	default:
		expr := p.parseExpression(LOWEST)
		if expr == nil {
			return nil
		}
		expr.MarkTopLevel()

		return expr
	}
}

// parseDefinition parses: 'def' proto expr
func (p *Parser) parseDefinition() ast.Node {
	start := p.current
	p.nextToken()

	proto := p.parsePrototype()
	if proto == nil {
		return nil
	}
	// Only extern declarations print their signature; a definition prints
	// the whole function once it is generated.
	proto.NoEmit()

	p.nextToken()
	body := p.parseExpression(LOWEST)
	if body == nil {
		return nil
	}

	return ast.NewFunction(p.spanFrom(start), proto, body)
}

// parseExtern parses: 'extern' proto
func (p *Parser) parseExtern() ast.Node {
	p.nextToken()

	proto := p.parsePrototype()
	if proto == nil {
		return nil
	}
	return proto
}

// parsePrototype parses: ident '(' [ ident { [','] ident } ] ')'
func (p *Parser) parsePrototype() *ast.Prototype {
	start := p.current
	if !p.currentTokenIs(lexer.TokenIdentifier) {
		p.addError(p.current.Span, fmt.Sprintf("expected function name in prototype, got %s", describe(p.current)), "prototype")
		return nil
	}
	name := p.current.Literal

	if !p.expectPeek(lexer.TokenLParen, "prototype") {
		return nil
	}

	params := []string{}
	for !p.peekTokenIs(lexer.TokenRParen) {
		if p.peekTokenIs(lexer.TokenComma) && len(params) > 0 {
			p.nextToken()
		}
		if !p.expectPeek(lexer.TokenIdentifier, "prototype parameters") {
			return nil
		}
		params = append(params, p.current.Literal)
	}
	p.nextToken()

	return ast.NewPrototype(p.spanFrom(start), name, params)
}
