package parser

import (
	"fmt"
	"strconv"

	"github.com/orizon-lang/kaleido/internal/ast"
	"github.com/orizon-lang/kaleido/internal/lexer"
)

// ====== Expression Parsing (Pratt Parser) ======

// Precedence levels for operators
type Precedence int

const (
	_ Precedence = iota
	LOWEST
	SEQUENCE // :
	ASSIGN   // =
	COMPARE  // == != < <= > >=
	SUM      // + -
	PRODUCT  // * /
	PREFIX   // -X +X
)

// Associativity of a binary precedence level.
type Associativity int

const (
	LeftAssociative Associativity = iota
	RightAssociative
)

// precedences maps token types to their precedence levels
var precedences = map[lexer.TokenType]Precedence{
	lexer.TokenColon:  SEQUENCE,
	lexer.TokenAssign: ASSIGN,

	lexer.TokenEq: COMPARE,
	lexer.TokenNe: COMPARE,
	lexer.TokenLt: COMPARE,
	lexer.TokenLe: COMPARE,
	lexer.TokenGt: COMPARE,
	lexer.TokenGe: COMPARE,

	lexer.TokenPlus:  SUM,
	lexer.TokenMinus: SUM,

	lexer.TokenMul: PRODUCT,
	lexer.TokenDiv: PRODUCT,
}

// operatorAssociativity maps precedence levels to their associativity
var operatorAssociativity = map[Precedence]Associativity{
	SEQUENCE: RightAssociative,
	ASSIGN:   RightAssociative,
	COMPARE:  LeftAssociative,
	SUM:      LeftAssociative,
	PRODUCT:  LeftAssociative,
}

var binaryOperators = map[lexer.TokenType]ast.Operator{
	lexer.TokenColon:  ast.OpSeq,
	lexer.TokenAssign: ast.OpAssign,
	lexer.TokenEq:     ast.OpEq,
	lexer.TokenNe:     ast.OpNe,
	lexer.TokenLt:     ast.OpLt,
	lexer.TokenLe:     ast.OpLe,
	lexer.TokenGt:     ast.OpGt,
	lexer.TokenGe:     ast.OpGe,
	lexer.TokenPlus:   ast.OpAdd,
	lexer.TokenMinus:  ast.OpSub,
	lexer.TokenMul:    ast.OpMul,
	lexer.TokenDiv:    ast.OpDiv,
}

// peekPrecedence returns the precedence of the peek token
func (p *Parser) peekPrecedence() Precedence {
	if p, ok := precedences[p.peek.Type]; ok {
		return p
	}
	return LOWEST
}

// currentPrecedence returns the precedence of the current token
func (p *Parser) currentPrecedence() Precedence {
	if p, ok := precedences[p.current.Type]; ok {
		return p
	}
	return LOWEST
}

// parseExpression parses an expression whose operators bind tighter than
// precedence. On return the current token is the last token consumed.
func (p *Parser) parseExpression(precedence Precedence) ast.Expr {
	left := p.parsePrefixExpression()
	if left == nil {
		return nil
	}

	for p.shouldContinueParsing(precedence) {
		p.nextToken()
		left = p.parseBinaryExpression(left)
		if left == nil {
			return nil
		}
	}

	return left
}

// shouldContinueParsing determines if parsing should continue based on precedence and associativity
func (p *Parser) shouldContinueParsing(precedence Precedence) bool {
	peekPrec := p.peekPrecedence()
	if peekPrec == LOWEST {
		return false
	}
	if precedence == peekPrec {
		return operatorAssociativity[peekPrec] == RightAssociative
	}
	return precedence < peekPrec
}

// parsePrefixExpression parses primaries and prefix operators.
func (p *Parser) parsePrefixExpression() ast.Expr {
	switch p.current.Type {
	case lexer.TokenIdentifier:
		if p.peekTokenIs(lexer.TokenLParen) {
			return p.parseCallExpression()
		}
		return ast.NewVariable(p.current.Span, p.current.Literal)
	case lexer.TokenNumber:
		return p.parseNumberLiteral()
	case lexer.TokenMinus, lexer.TokenPlus:
		return p.parseUnaryExpression()
	case lexer.TokenLParen:
		return p.parseGroupedExpression()
	case lexer.TokenIf:
		return p.parseIfExpression()
	case lexer.TokenFor:
		return p.parseForExpression()
	case lexer.TokenWhile:
		return p.parseWhileExpression()
	case lexer.TokenVar:
		return p.parseVarExpression()
	case lexer.TokenError:
		p.addError(p.current.Span, fmt.Sprintf("unexpected character %q", p.current.Literal), "expression parsing")
		return nil
	default:
		p.addError(p.current.Span, fmt.Sprintf("unknown token when expecting an expression: %s", describe(p.current)), "expression parsing")
		return nil
	}
}

// parseNumberLiteral parses a numeric literal
func (p *Parser) parseNumberLiteral() ast.Expr {
	value, err := strconv.ParseFloat(p.current.Literal, 64)
	if err != nil {
		p.addError(p.current.Span, fmt.Sprintf("could not parse %q as number", p.current.Literal), "number parsing")
		return nil
	}

	return ast.NewNumber(p.current.Span, value)
}

// parseUnaryExpression parses unary expressions
func (p *Parser) parseUnaryExpression() ast.Expr {
	start := p.current
	op := ast.OpSub
	if start.Type == lexer.TokenPlus {
		op = ast.OpAdd
	}

	p.nextToken()
	operand := p.parseExpression(PREFIX)
	if operand == nil {
		return nil
	}

	return ast.NewUnary(p.spanFrom(start), op, operand)
}

// parseGroupedExpression parses grouped expressions
func (p *Parser) parseGroupedExpression() ast.Expr {
	p.nextToken()
	exp := p.parseExpression(LOWEST)
	if exp == nil {
		return nil
	}

	if !p.expectPeek(lexer.TokenRParen, "parenthesized expression") {
		return nil
	}

	return exp
}

// parseBinaryExpression parses binary expressions
func (p *Parser) parseBinaryExpression(left ast.Expr) ast.Expr {
	op, ok := binaryOperators[p.current.Type]
	if !ok {
		p.addError(p.current.Span, fmt.Sprintf("unknown binary operator %q", p.current.Literal), "expression parsing")
		return nil
	}

	precedence := p.currentPrecedence()
	p.nextToken()
	right := p.parseExpression(precedence)
	if right == nil {
		return nil
	}

	return ast.NewBinary(left.GetSpan().Union(p.current.Span), op, left, right)
}

// parseCallExpression parses: ident '(' [ expr { ',' expr } ] ')'
func (p *Parser) parseCallExpression() ast.Expr {
	start := p.current
	callee := start.Literal
	p.nextToken()

	args := []ast.Expr{}
	if p.peekTokenIs(lexer.TokenRParen) {
		p.nextToken()
		return ast.NewCall(p.spanFrom(start), callee, args)
	}

	for {
		p.nextToken()
		arg := p.parseExpression(LOWEST)
		if arg == nil {
			return nil
		}
		args = append(args, arg)

		if p.peekTokenIs(lexer.TokenRParen) {
			p.nextToken()
			break
		}
		if !p.expectPeek(lexer.TokenComma, "argument list") {
			return nil
		}
	}

	return ast.NewCall(p.spanFrom(start), callee, args)
}

// parseIfExpression parses: 'if' expr 'then' expr 'else' expr
func (p *Parser) parseIfExpression() ast.Expr {
	start := p.current
	p.nextToken()

	cond := p.parseExpression(LOWEST)
	if cond == nil || !p.expectPeek(lexer.TokenThen, "if expression") {
		return nil
	}
	p.nextToken()

	then := p.parseExpression(LOWEST)
	if then == nil || !p.expectPeek(lexer.TokenElse, "if expression") {
		return nil
	}
	p.nextToken()

	els := p.parseExpression(LOWEST)
	if els == nil {
		return nil
	}

	return ast.NewIf(p.spanFrom(start), cond, then, els)
}

// parseForExpression parses:
// 'for' ident '=' expr ',' expr [ ',' expr ] 'in' expr ['end']
func (p *Parser) parseForExpression() ast.Expr {
	start := p.current
	if !p.expectPeek(lexer.TokenIdentifier, "for expression") {
		return nil
	}
	name := p.current.Literal

	if !p.expectPeek(lexer.TokenAssign, "for expression") {
		return nil
	}
	p.nextToken()

	init := p.parseExpression(LOWEST)
	if init == nil || !p.expectPeek(lexer.TokenComma, "for expression") {
		return nil
	}
	p.nextToken()

	cond := p.parseExpression(LOWEST)
	if cond == nil {
		return nil
	}

	var step ast.Expr
	if p.peekTokenIs(lexer.TokenComma) {
		p.nextToken()
		p.nextToken()
		if step = p.parseExpression(LOWEST); step == nil {
			return nil
		}
	}

	body := p.parseLoopBody("for expression")
	if body == nil {
		return nil
	}

	return ast.NewFor(p.spanFrom(start), name, init, cond, step, body)
}

// parseWhileExpression parses: 'while' expr 'in' expr ['end']
func (p *Parser) parseWhileExpression() ast.Expr {
	start := p.current
	p.nextToken()

	cond := p.parseExpression(LOWEST)
	if cond == nil {
		return nil
	}

	body := p.parseLoopBody("while expression")
	if body == nil {
		return nil
	}

	return ast.NewWhile(p.spanFrom(start), cond, body)
}

// parseVarExpression parses:
// 'var' ident ['=' expr] { ',' ident ['=' expr] } 'in' expr ['end']
func (p *Parser) parseVarExpression() ast.Expr {
	start := p.current

	var bindings []ast.Binding
	for {
		if !p.expectPeek(lexer.TokenIdentifier, "var expression") {
			return nil
		}
		b := ast.Binding{Name: p.current.Literal}

		if p.peekTokenIs(lexer.TokenAssign) {
			p.nextToken()
			p.nextToken()
			if b.Init = p.parseExpression(LOWEST); b.Init == nil {
				return nil
			}
		}
		bindings = append(bindings, b)

		if !p.peekTokenIs(lexer.TokenComma) {
			break
		}
		p.nextToken()
	}

	body := p.parseLoopBody("var expression")
	if body == nil {
		return nil
	}

	return ast.NewVarBinding(p.spanFrom(start), bindings, body)
}

// parseLoopBody parses: 'in' expr ['end']
func (p *Parser) parseLoopBody(context string) ast.Expr {
	if !p.expectPeek(lexer.TokenIn, context) {
		return nil
	}
	p.nextToken()

	body := p.parseExpression(LOWEST)
	if body == nil {
		return nil
	}
	if p.peekTokenIs(lexer.TokenEnd) {
		p.nextToken()
	}

	return body
}
