package codegen

import (
	"github.com/orizon-lang/kaleido/internal/ast"
	kerrors "github.com/orizon-lang/kaleido/internal/errors"
	"github.com/orizon-lang/kaleido/internal/mir"
)

var arithmetic = map[ast.Operator]mir.BinOpKind{
	ast.OpAdd: mir.OpFAdd,
	ast.OpSub: mir.OpFSub,
	ast.OpMul: mir.OpFMul,
	ast.OpDiv: mir.OpFDiv,
}

var arithmeticNames = map[ast.Operator]string{
	ast.OpAdd: "addtmp",
	ast.OpSub: "subtmp",
	ast.OpMul: "multmp",
	ast.OpDiv: "divtmp",
}

var comparisons = map[ast.Operator]mir.CmpPred{
	ast.OpEq: mir.CmpOEQ,
	ast.OpNe: mir.CmpONE,
	ast.OpGt: mir.CmpOGT,
	ast.OpLt: mir.CmpOLT,
	ast.OpGe: mir.CmpOGE,
	ast.OpLe: mir.CmpOLE,
}

func (g *Generator) genVariable(n *ast.Variable) (mir.Value, error) {
	slot, ok := g.env.Lookup(n.Name)
	if !ok {
		return nil, g.fail(kerrors.UnknownVariable(n.Name).At(n.Span))
	}
	return g.builder.Load(slot, n.Name), nil
}

func (g *Generator) genUnary(n *ast.Unary) (mir.Value, error) {
	v, err := g.Codegen(n.Operand)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case ast.OpAdd:
		return v, nil
	case ast.OpSub:
		return g.builder.FSub(mir.ConstFloat(0), v, "negtmp"), nil
	default:
		return nil, g.fail(kerrors.UnsupportedOperator("unary", string(n.Op)).At(n.Span))
	}
}

func (g *Generator) genBinary(n *ast.Binary) (mir.Value, error) {
	if n.Op == ast.OpAssign {
		return g.genAssign(n)
	}

	lhs, err := g.Codegen(n.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := g.Codegen(n.RHS)
	if err != nil {
		return nil, err
	}

	if n.Op == ast.OpSeq {
		return rhs, nil
	}
	if op, ok := arithmetic[n.Op]; ok {
		return g.builder.BinOp(op, lhs, rhs, arithmeticNames[n.Op]), nil
	}
	if pred, ok := comparisons[n.Op]; ok {
		return g.builder.FCmp(pred, lhs, rhs, "cmptmp"), nil
	}

	return nil, g.fail(kerrors.UnsupportedOperator("binary", string(n.Op)).At(n.Span))
}

// genAssign stores into the slot of a variable. The destination must be a
// plain variable reference.
func (g *Generator) genAssign(n *ast.Binary) (mir.Value, error) {
	dst, ok := n.LHS.(*ast.Variable)
	if !ok {
		return nil, g.fail(kerrors.InvalidAssignTarget(ast.Sprint(n.LHS)).At(n.Span))
	}

	val, err := g.Codegen(n.RHS)
	if err != nil {
		return nil, err
	}

	slot, found := g.env.Lookup(dst.Name)
	if !found {
		return nil, g.fail(kerrors.UnknownVariable(dst.Name).At(dst.Span))
	}
	g.builder.Store(val, slot)

	return val, nil
}

func (g *Generator) genCall(n *ast.Call) (mir.Value, error) {
	callee := g.module.Function(n.Callee)
	if callee == nil {
		return nil, g.fail(kerrors.UnknownFunction(n.Callee).At(n.Span))
	}
	if len(callee.Params) != len(n.Args) {
		return nil, g.fail(kerrors.ArityMismatch(n.Callee, len(callee.Params), len(n.Args)).At(n.Span))
	}

	args := make([]mir.Value, 0, len(n.Args))
	for _, a := range n.Args {
		v, err := g.Codegen(a)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	return g.builder.Call(callee, args, "calltmp"), nil
}
