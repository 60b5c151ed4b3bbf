package ast

import (
	"bytes"
	"io"
	"strconv"
)

// Printer renders a tree in its fully parenthesised form.
type Printer struct {
	BaseVisitor
	buf bytes.Buffer
}

// Print writes the rendering of node to w.
func Print(w io.Writer, node Node) error {
	p := &Printer{}
	p.print(node)
	_, err := w.Write(p.buf.Bytes())

	return err
}

// Sprint returns the rendering of node.
func Sprint(node Node) string {
	p := &Printer{}
	p.print(node)

	return p.buf.String()
}

func (p *Printer) print(n Node) {
	if n == nil {
		return
	}
	if e, ok := n.(Expr); ok && isNilExpr(e) {
		return
	}
	n.Accept(p)
}

func (p *Printer) VisitNumber(node *Number) interface{} {
	p.buf.WriteString(strconv.FormatFloat(node.Value, 'g', -1, 64))
	return nil
}

func (p *Printer) VisitVariable(node *Variable) interface{} {
	p.buf.WriteString(node.Name)
	return nil
}

func (p *Printer) VisitUnary(node *Unary) interface{} {
	p.buf.WriteByte('(')
	p.buf.WriteString(string(node.Op))
	p.buf.WriteByte(' ')
	p.print(node.Operand)
	p.buf.WriteByte(')')

	return nil
}

func (p *Printer) VisitBinary(node *Binary) interface{} {
	p.buf.WriteByte('(')
	p.buf.WriteString(string(node.Op))
	p.buf.WriteByte(' ')
	p.print(node.LHS)
	p.buf.WriteByte(' ')
	p.print(node.RHS)
	p.buf.WriteByte(')')

	return nil
}

func (p *Printer) VisitCall(node *Call) interface{} {
	p.buf.WriteString(node.Callee)
	p.buf.WriteByte('(')
	for i, a := range node.Args {
		if i > 0 {
			p.buf.WriteByte(' ')
		}
		p.print(a)
	}
	p.buf.WriteByte(')')

	return nil
}

func (p *Printer) VisitIf(node *If) interface{} {
	p.buf.WriteString("(if ")
	p.print(node.Cond)
	p.buf.WriteString(" then ")
	p.print(node.Then)
	p.buf.WriteString(" else ")
	p.print(node.Else)
	p.buf.WriteByte(')')

	return nil
}

func (p *Printer) VisitFor(node *For) interface{} {
	p.buf.WriteString("(for ")
	p.buf.WriteString(node.Var)
	p.buf.WriteString(" = ")
	p.print(node.Start)
	p.buf.WriteString(", ")
	p.print(node.Cond)
	p.buf.WriteString(", ")
	if node.Step == nil || isNilExpr(node.Step) {
		p.buf.WriteByte('1')
	} else {
		p.print(node.Step)
	}
	p.buf.WriteString(" in ")
	p.print(node.Body)
	p.buf.WriteByte(')')

	return nil
}

func (p *Printer) VisitWhile(node *While) interface{} {
	p.buf.WriteString("(while ")
	p.print(node.Cond)
	p.buf.WriteString(" in ")
	p.print(node.Body)
	p.buf.WriteByte(')')

	return nil
}

func (p *Printer) VisitVarBinding(node *VarBinding) interface{} {
	p.buf.WriteString("(var ")
	for i, b := range node.Bindings {
		if i > 0 {
			p.buf.WriteString(", ")
		}
		p.buf.WriteString(b.Name)
		if b.Init != nil && !isNilExpr(b.Init) {
			p.buf.WriteString(" = ")
			p.print(b.Init)
		}
	}
	p.buf.WriteString(" in ")
	p.print(node.Body)
	p.buf.WriteByte(')')

	return nil
}

func (p *Printer) signature(proto *Prototype) {
	p.buf.WriteString(proto.Name)
	p.buf.WriteByte('(')
	for i, param := range proto.Params {
		if i > 0 {
			p.buf.WriteByte(' ')
		}
		p.buf.WriteString(param)
	}
	p.buf.WriteByte(')')
}

func (p *Printer) VisitPrototype(node *Prototype) interface{} {
	p.buf.WriteString("extern ")
	p.signature(node)

	return nil
}

func (p *Printer) VisitFunction(node *Function) interface{} {
	if node.Proto == nil {
		return nil
	}
	if node.IsExternal() || isNilExpr(node.Body) {
		return p.VisitPrototype(node.Proto)
	}
	p.buf.WriteString("def ")
	p.signature(node.Proto)
	p.buf.WriteByte(' ')
	p.print(node.Body)

	return nil
}

func (p *Printer) VisitSequence(node *Sequence) interface{} {
	for i, form := range node.Forms() {
		if i > 0 {
			p.buf.WriteString(";\n")
		}
		p.print(form)
	}

	return nil
}
