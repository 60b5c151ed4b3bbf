package codegen

import (
	"github.com/orizon-lang/kaleido/internal/ast"
	"github.com/orizon-lang/kaleido/internal/mir"
	"github.com/orizon-lang/kaleido/internal/resolver"
)

// condition lowers e to an i1; a double is compared against 0.0.
func (g *Generator) condition(e ast.Expr, name string) (mir.Value, error) {
	v, err := g.Codegen(e)
	if err != nil {
		return nil, err
	}
	if v.Type() == mir.TypeDouble {
		v = g.builder.FCmp(mir.CmpONE, v, mir.ConstFloat(0), name)
	}
	return v, nil
}

// genIf lowers:
//
//	    cond
//	   /    \
//	then    else
//	   \    /
//	   ifcont: phi [then, thenExit], [else, elseExit]
func (g *Generator) genIf(n *ast.If) (mir.Value, error) {
	cond, err := g.condition(n.Cond, "ifcond")
	if err != nil {
		return nil, err
	}

	fn := g.builder.Function()
	thenBB := fn.AddBlock("then")
	elseBB := fn.NewBlock("else")
	mergeBB := fn.NewBlock("ifcont")

	g.builder.CondBr(cond, thenBB, elseBB)

	g.builder.SetInsertPoint(thenBB)
	thenV, err := g.Codegen(n.Then)
	if err != nil {
		return nil, err
	}
	g.builder.Br(mergeBB)
	thenExit := g.builder.InsertBlock()

	fn.AppendBlock(elseBB)
	g.builder.SetInsertPoint(elseBB)
	elseV, err := g.Codegen(n.Else)
	if err != nil {
		return nil, err
	}
	g.builder.Br(mergeBB)
	elseExit := g.builder.InsertBlock()

	fn.AppendBlock(mergeBB)
	g.builder.SetInsertPoint(mergeBB)
	phi := g.builder.Phi("iftmp")
	phi.AddIncoming(thenV, thenExit)
	phi.AddIncoming(elseV, elseExit)

	return phi, nil
}

// genFor lowers a counted loop. The header phi starts at 0.0 and takes the
// body value on every back edge, so the loop yields the value of its last
// iteration, or 0 when the body never ran.
func (g *Generator) genFor(n *ast.For) (mir.Value, error) {
	fn := g.builder.Function()
	slot := fn.EntryAlloca(n.Var)

	start, err := g.Codegen(n.Start)
	if err != nil {
		return nil, err
	}
	g.builder.Store(start, slot)

	preheader := g.builder.InsertBlock()
	header := fn.AddBlock("header")
	loop := fn.NewBlock("loop")
	after := fn.NewBlock("afterloop")

	g.builder.Br(header)
	g.builder.SetInsertPoint(header)
	phi := g.builder.Phi("looptmp")
	phi.AddIncoming(mir.ConstFloat(0), preheader)

	mark := g.env.Mark()
	g.env.Shadow(n.Var, slot, resolver.SymbolKindInduction)

	cond, err := g.condition(n.Cond, "loopcond")
	if err != nil {
		return nil, err
	}
	g.builder.CondBr(cond, loop, after)

	fn.AppendBlock(loop)
	g.builder.SetInsertPoint(loop)
	body, err := g.Codegen(n.Body)
	if err != nil {
		return nil, err
	}

	var step mir.Value = mir.ConstFloat(1)
	if n.Step != nil {
		if step, err = g.Codegen(n.Step); err != nil {
			return nil, err
		}
	}
	cur := g.builder.Load(slot, n.Var)
	next := g.builder.FAdd(cur, step, "nextvar")
	g.builder.Store(next, slot)

	latch := g.builder.InsertBlock()
	g.builder.Br(header)
	phi.AddIncoming(body, latch)

	fn.AppendBlock(after)
	g.builder.SetInsertPoint(after)
	g.env.RestoreScope(mark)

	return phi, nil
}

// genWhile lowers a pre-tested loop with the same result convention as for.
func (g *Generator) genWhile(n *ast.While) (mir.Value, error) {
	fn := g.builder.Function()

	preheader := g.builder.InsertBlock()
	header := fn.AddBlock("header")
	loop := fn.NewBlock("loop")
	after := fn.NewBlock("afterloop")

	g.builder.Br(header)
	g.builder.SetInsertPoint(header)
	phi := g.builder.Phi("looptmp")
	phi.AddIncoming(mir.ConstFloat(0), preheader)

	cond, err := g.condition(n.Cond, "loopcond")
	if err != nil {
		return nil, err
	}
	g.builder.CondBr(cond, loop, after)

	fn.AppendBlock(loop)
	g.builder.SetInsertPoint(loop)
	body, err := g.Codegen(n.Body)
	if err != nil {
		return nil, err
	}

	latch := g.builder.InsertBlock()
	g.builder.Br(header)
	phi.AddIncoming(body, latch)

	fn.AppendBlock(after)
	g.builder.SetInsertPoint(after)

	return phi, nil
}

// genVarBinding evaluates each initializer before its own name is shadowed,
// so "var a = a" reads the outer a.
func (g *Generator) genVarBinding(n *ast.VarBinding) (mir.Value, error) {
	fn := g.builder.Function()
	mark := g.env.Mark()

	for _, b := range n.Bindings {
		var init mir.Value = mir.ConstFloat(0)
		if b.Init != nil {
			v, err := g.Codegen(b.Init)
			if err != nil {
				return nil, err
			}
			init = v
		}

		slot := fn.EntryAlloca(b.Name)
		g.builder.Store(init, slot)
		g.env.Shadow(b.Name, slot, resolver.SymbolKindLocal)
	}

	body, err := g.Codegen(n.Body)
	if err != nil {
		return nil, err
	}
	g.env.RestoreScope(mark)

	return body, nil
}
