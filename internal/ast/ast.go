// Package ast defines the Abstract Syntax Tree (AST) nodes for the kaleido
// expression language.
//
// Every node carries a source span and supports the visitor pattern; the
// tree printer and every other walker dispatch through Accept. Expression
// nodes additionally carry a placement that marks the outermost node of a
// bare top-level statement, which code generation wraps into an anonymous
// function exactly once.
package ast

import (
	"github.com/orizon-lang/kaleido/internal/position"
)

// Node is the base interface for all AST nodes
type Node interface {
	// GetSpan returns the source span covered by this node
	GetSpan() position.Span
	// String returns the printer rendering of the node
	String() string
	// Accept implements the visitor pattern for AST traversal
	Accept(visitor Visitor) interface{}
}

// Expr represents all expression nodes in the AST
type Expr interface {
	Node
	Placement() Placement
	// MarkTopLevel is called by the parser on the outermost node of a
	// standalone top-level statement.
	MarkTopLevel()
	// IsPendingTopLevel reports whether the node still awaits wrapping.
	IsPendingTopLevel() bool
	// ClaimTopLevel clears a pending mark and reports whether it was set.
	ClaimTopLevel() bool
	// Toggle flips the placement.
	Toggle()
	exprNode()
}

// Placement is the two-state top-level flag of an expression node.
type Placement uint8

const (
	// Nested nodes are sub-expressions or already wrapped statements.
	Nested Placement = iota
	// PendingTopLevel nodes are unwrapped standalone statements.
	PendingTopLevel
)

func (p Placement) String() string {
	if p == PendingTopLevel {
		return "pending-top-level"
	}
	return "nested"
}

type exprBase struct {
	Span      position.Span
	placement Placement
}

func (e *exprBase) GetSpan() position.Span  { return e.Span }
func (e *exprBase) Placement() Placement    { return e.placement }
func (e *exprBase) MarkTopLevel()           { e.placement = PendingTopLevel }
func (e *exprBase) IsPendingTopLevel() bool { return e.placement == PendingTopLevel }
func (e *exprBase) exprNode()               {}

func (e *exprBase) ClaimTopLevel() bool {
	if e.placement != PendingTopLevel {
		return false
	}
	e.placement = Nested
	return true
}

func (e *exprBase) Toggle() {
	if e.placement == PendingTopLevel {
		e.placement = Nested
	} else {
		e.placement = PendingTopLevel
	}
}

// Operator is a unary or binary operator spelling.
type Operator string

const (
	OpAdd    Operator = "+"
	OpSub    Operator = "-"
	OpMul    Operator = "*"
	OpDiv    Operator = "/"
	OpEq     Operator = "=="
	OpNe     Operator = "!="
	OpGt     Operator = ">"
	OpLt     Operator = "<"
	OpGe     Operator = ">="
	OpLe     Operator = "<="
	OpAssign Operator = "="
	OpSeq    Operator = ":"
)

// ===== Expressions =====

// Number is a numeric literal.
type Number struct {
	exprBase
	Value float64
}

// NewNumber creates a literal.
func NewNumber(span position.Span, v float64) *Number {
	return &Number{exprBase: exprBase{Span: span}, Value: v}
}

// Variable is a reference to a binding.
type Variable struct {
	exprBase
	Name string
}

// NewVariable creates a variable reference.
func NewVariable(span position.Span, name string) *Variable {
	return &Variable{exprBase: exprBase{Span: span}, Name: name}
}

// Unary is a prefix operation: + or -.
type Unary struct {
	exprBase
	Op      Operator
	Operand Expr
}

// NewUnary creates a prefix operation.
func NewUnary(span position.Span, op Operator, operand Expr) *Unary {
	return &Unary{exprBase: exprBase{Span: span}, Op: op, Operand: operand}
}

// Binary is an arithmetic, comparison, assignment or sequencing operation.
type Binary struct {
	exprBase
	Op  Operator
	LHS Expr
	RHS Expr
}

// NewBinary creates a binary operation.
func NewBinary(span position.Span, op Operator, lhs, rhs Expr) *Binary {
	return &Binary{exprBase: exprBase{Span: span}, Op: op, LHS: lhs, RHS: rhs}
}

// Call invokes a function by name.
type Call struct {
	exprBase
	Callee string
	Args   []Expr
}

// NewCall creates a call.
func NewCall(span position.Span, callee string, args []Expr) *Call {
	return &Call{exprBase: exprBase{Span: span}, Callee: callee, Args: args}
}

// If is a conditional expression; both branches are mandatory.
type If struct {
	exprBase
	Cond Expr
	Then Expr
	Else Expr
}

// NewIf creates a conditional.
func NewIf(span position.Span, cond, then, els Expr) *If {
	return &If{exprBase: exprBase{Span: span}, Cond: cond, Then: then, Else: els}
}

// For is a counted loop. Step may be nil, meaning 1.
type For struct {
	exprBase
	Var   string
	Start Expr
	Cond  Expr
	Step  Expr
	Body  Expr
}

// NewFor creates a counted loop.
func NewFor(span position.Span, name string, start, cond, step, body Expr) *For {
	return &For{exprBase: exprBase{Span: span}, Var: name, Start: start, Cond: cond, Step: step, Body: body}
}

// While is a pre-tested loop.
type While struct {
	exprBase
	Cond Expr
	Body Expr
}

// NewWhile creates a pre-tested loop.
func NewWhile(span position.Span, cond, body Expr) *While {
	return &While{exprBase: exprBase{Span: span}, Cond: cond, Body: body}
}

// Binding is one name of a var expression. Init may be nil, meaning 0.
type Binding struct {
	Name string
	Init Expr
}

// VarBinding introduces local variables visible in Body.
type VarBinding struct {
	exprBase
	Bindings []Binding
	Body     Expr
}

// NewVarBinding creates a local scope.
func NewVarBinding(span position.Span, bindings []Binding, body Expr) *VarBinding {
	return &VarBinding{exprBase: exprBase{Span: span}, Bindings: bindings, Body: body}
}

// ===== Definitions =====

// Prototype is a function signature.
type Prototype struct {
	Span   position.Span
	Name   string
	Params []string
	noEmit bool
}

// NewPrototype creates a signature that is printed when generated.
func NewPrototype(span position.Span, name string, params []string) *Prototype {
	return &Prototype{Span: span, Name: name, Params: params}
}

// NoEmit suppresses diagnostic printing of the generated declaration.
func (p *Prototype) NoEmit() { p.noEmit = true }

// Emits reports whether the generated declaration is printed.
func (p *Prototype) Emits() bool { return !p.noEmit }

func (p *Prototype) GetSpan() position.Span             { return p.Span }
func (p *Prototype) Accept(visitor Visitor) interface{} { return visitor.VisitPrototype(p) }
func (p *Prototype) String() string                     { return Sprint(p) }

// Function is a definition. A nil Body makes it a forward declaration.
type Function struct {
	Span  position.Span
	Proto *Prototype
	Body  Expr
}

// NewFunction creates a function definition.
func NewFunction(span position.Span, proto *Prototype, body Expr) *Function {
	return &Function{Span: span, Proto: proto, Body: body}
}

// IsExternal reports whether the function has no body.
func (f *Function) IsExternal() bool { return f.Body == nil }

func (f *Function) GetSpan() position.Span             { return f.Span }
func (f *Function) Accept(visitor Visitor) interface{} { return visitor.VisitFunction(f) }
func (f *Function) String() string                     { return Sprint(f) }

// Sequence is a right-leaning list of top-level forms. Both fields may be
// nil; the empty sequence terminates a program.
type Sequence struct {
	Span  position.Span
	First Node
	Next  Node
}

// NewSequence links a form in front of a continuation.
func NewSequence(first, next Node) *Sequence {
	s := &Sequence{First: first, Next: next}
	if first != nil {
		s.Span = first.GetSpan()
	}
	if next != nil {
		s.Span = s.Span.Union(next.GetSpan())
	}
	return s
}

// IsEmpty reports whether the sequence is the terminator.
func (s *Sequence) IsEmpty() bool { return s.First == nil && s.Next == nil }

// Forms flattens the chain into its forms, in order.
func (s *Sequence) Forms() []Node {
	var forms []Node
	var cur Node = s
	for cur != nil {
		seq, ok := cur.(*Sequence)
		if !ok {
			forms = append(forms, cur)
			break
		}
		if seq.First != nil {
			forms = append(forms, seq.First)
		}
		cur = seq.Next
	}
	return forms
}

// SequenceOf builds the right-leaning chain for forms.
func SequenceOf(forms ...Node) *Sequence {
	seq := &Sequence{}
	for i := len(forms) - 1; i >= 0; i-- {
		seq = NewSequence(forms[i], seq)
	}
	return seq
}

func (s *Sequence) GetSpan() position.Span             { return s.Span }
func (s *Sequence) Accept(visitor Visitor) interface{} { return visitor.VisitSequence(s) }
func (s *Sequence) String() string                     { return Sprint(s) }

func (n *Number) Accept(visitor Visitor) interface{}     { return visitor.VisitNumber(n) }
func (v *Variable) Accept(visitor Visitor) interface{}   { return visitor.VisitVariable(v) }
func (u *Unary) Accept(visitor Visitor) interface{}      { return visitor.VisitUnary(u) }
func (b *Binary) Accept(visitor Visitor) interface{}     { return visitor.VisitBinary(b) }
func (c *Call) Accept(visitor Visitor) interface{}       { return visitor.VisitCall(c) }
func (i *If) Accept(visitor Visitor) interface{}         { return visitor.VisitIf(i) }
func (f *For) Accept(visitor Visitor) interface{}        { return visitor.VisitFor(f) }
func (w *While) Accept(visitor Visitor) interface{}      { return visitor.VisitWhile(w) }
func (v *VarBinding) Accept(visitor Visitor) interface{} { return visitor.VisitVarBinding(v) }

func (n *Number) String() string     { return Sprint(n) }
func (v *Variable) String() string   { return Sprint(v) }
func (u *Unary) String() string      { return Sprint(u) }
func (b *Binary) String() string     { return Sprint(b) }
func (c *Call) String() string       { return Sprint(c) }
func (i *If) String() string         { return Sprint(i) }
func (f *For) String() string        { return Sprint(f) }
func (w *While) String() string      { return Sprint(w) }
func (v *VarBinding) String() string { return Sprint(v) }
