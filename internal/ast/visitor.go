// Package ast - Visitor pattern implementation for AST traversal.
package ast

// Visitor dispatches on the concrete node type. Implementations return
// whatever their pass produces; the printer returns nil.
type Visitor interface {
	VisitNumber(node *Number) interface{}
	VisitVariable(node *Variable) interface{}
	VisitUnary(node *Unary) interface{}
	VisitBinary(node *Binary) interface{}
	VisitCall(node *Call) interface{}
	VisitIf(node *If) interface{}
	VisitFor(node *For) interface{}
	VisitWhile(node *While) interface{}
	VisitVarBinding(node *VarBinding) interface{}
	VisitPrototype(node *Prototype) interface{}
	VisitFunction(node *Function) interface{}
	VisitSequence(node *Sequence) interface{}
}

// BaseVisitor provides a default implementation of the Visitor interface
// that returns nil for all visits, so concrete visitors only override the
// methods they need.
type BaseVisitor struct{}

func (v *BaseVisitor) VisitNumber(node *Number) interface{}         { return nil }
func (v *BaseVisitor) VisitVariable(node *Variable) interface{}     { return nil }
func (v *BaseVisitor) VisitUnary(node *Unary) interface{}           { return nil }
func (v *BaseVisitor) VisitBinary(node *Binary) interface{}         { return nil }
func (v *BaseVisitor) VisitCall(node *Call) interface{}             { return nil }
func (v *BaseVisitor) VisitIf(node *If) interface{}                 { return nil }
func (v *BaseVisitor) VisitFor(node *For) interface{}               { return nil }
func (v *BaseVisitor) VisitWhile(node *While) interface{}           { return nil }
func (v *BaseVisitor) VisitVarBinding(node *VarBinding) interface{} { return nil }
func (v *BaseVisitor) VisitPrototype(node *Prototype) interface{}   { return nil }
func (v *BaseVisitor) VisitFunction(node *Function) interface{}     { return nil }
func (v *BaseVisitor) VisitSequence(node *Sequence) interface{}     { return nil }

// Children returns the direct children of n in evaluation order.
func Children(n Node) []Node {
	var out []Node
	add := func(c Node) {
		if c == nil {
			return
		}
		// A typed nil stored in an interface is still absent.
		if e, ok := c.(Expr); ok && isNilExpr(e) {
			return
		}
		out = append(out, c)
	}

	switch x := n.(type) {
	case *Unary:
		add(x.Operand)
	case *Binary:
		add(x.LHS)
		add(x.RHS)
	case *Call:
		for _, a := range x.Args {
			add(a)
		}
	case *If:
		add(x.Cond)
		add(x.Then)
		add(x.Else)
	case *For:
		add(x.Start)
		add(x.Cond)
		add(x.Step)
		add(x.Body)
	case *While:
		add(x.Cond)
		add(x.Body)
	case *VarBinding:
		for _, b := range x.Bindings {
			add(b.Init)
		}
		add(x.Body)
	case *Function:
		if x.Proto != nil {
			add(x.Proto)
		}
		add(x.Body)
	case *Sequence:
		add(x.First)
		add(x.Next)
	}
	return out
}

func isNilExpr(e Expr) bool {
	switch x := e.(type) {
	case *Number:
		return x == nil
	case *Variable:
		return x == nil
	case *Unary:
		return x == nil
	case *Binary:
		return x == nil
	case *Call:
		return x == nil
	case *If:
		return x == nil
	case *For:
		return x == nil
	case *While:
		return x == nil
	case *VarBinding:
		return x == nil
	}
	return false
}

// Inspect traverses the tree depth first in evaluation order. If fn
// returns false the children of that node are skipped.
func Inspect(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range Children(n) {
		Inspect(c, fn)
	}
}

// CountPendingTopLevel returns how many nodes under n still await wrapping.
func CountPendingTopLevel(n Node) int {
	count := 0
	Inspect(n, func(c Node) bool {
		if e, ok := c.(Expr); ok && e.IsPendingTopLevel() {
			count++
		}
		return true
	})
	return count
}
