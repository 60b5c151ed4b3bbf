// Package llvm converts MIR modules into LLVM IR using llir/llvm.
package llvm

import (
	"fmt"
	"io"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/orizon-lang/kaleido/internal/mir"
)

var predicates = map[mir.CmpPred]enum.FPred{
	mir.CmpOEQ: enum.FPredOEQ,
	mir.CmpONE: enum.FPredONE,
	mir.CmpOGT: enum.FPredOGT,
	mir.CmpOLT: enum.FPredOLT,
	mir.CmpOGE: enum.FPredOGE,
	mir.CmpOLE: enum.FPredOLE,
}

type translator struct {
	out   *ir.Module
	funcs map[*mir.Function]*ir.Func
}

// Translate builds an LLVM module from m. Every function is declared
// before any body is translated so calls may refer forward.
func Translate(m *mir.Module) (*ir.Module, error) {
	t := &translator{
		out:   ir.NewModule(),
		funcs: make(map[*mir.Function]*ir.Func, len(m.Functions)),
	}
	t.out.SourceFilename = m.Name

	for _, f := range m.Functions {
		params := make([]*ir.Param, len(f.Params))
		for i, p := range f.Params {
			params[i] = ir.NewParam(p.Name, types.Double)
		}
		t.funcs[f] = t.out.NewFunc(f.Name, types.Double, params...)
	}

	for _, f := range m.Functions {
		if f.IsDeclaration() {
			continue
		}
		if err := t.function(f); err != nil {
			return nil, fmt.Errorf("llvm: %s: %w", f.Name, err)
		}
	}

	return t.out, nil
}

// Write translates m and writes the LLVM assembly to w.
func Write(w io.Writer, m *mir.Module) error {
	out, err := Translate(m)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out.String())
	return err
}

type funcState struct {
	fn     *ir.Func
	blocks map[*mir.BasicBlock]*ir.Block
	vals   map[mir.Value]value.Value
	phis   map[*mir.Phi]*ir.InstPhi
}

func (t *translator) function(f *mir.Function) error {
	st := &funcState{
		fn:     t.funcs[f],
		blocks: make(map[*mir.BasicBlock]*ir.Block, len(f.Blocks)),
		vals:   make(map[mir.Value]value.Value),
		phis:   make(map[*mir.Phi]*ir.InstPhi),
	}
	for i, p := range f.Params {
		st.vals[p] = st.fn.Params[i]
	}
	for _, b := range f.Blocks {
		st.blocks[b] = st.fn.NewBlock(b.Name)
	}

	for _, b := range f.Blocks {
		if err := t.block(st, b); err != nil {
			return err
		}
	}

	// Incoming values may be defined later in the layout than the phi.
	for p, phi := range st.phis {
		for _, inc := range p.Incoming {
			v, err := st.operand(inc.Value)
			if err != nil {
				return err
			}
			pred, ok := st.blocks[inc.Block]
			if !ok {
				return fmt.Errorf("phi %s: unknown predecessor %s", p.Ident(), inc.Block.Name)
			}
			phi.Incs = append(phi.Incs, ir.NewIncoming(v, pred))
		}
	}

	return nil
}

func (st *funcState) operand(v mir.Value) (value.Value, error) {
	if c, ok := v.(*mir.Const); ok {
		return constant.NewFloat(types.Double, c.Float64), nil
	}
	out, ok := st.vals[v]
	if !ok {
		return nil, fmt.Errorf("operand %s used before its definition", v.Ident())
	}
	return out, nil
}

func (st *funcState) operands(vs ...mir.Value) ([]value.Value, error) {
	out := make([]value.Value, len(vs))
	for i, v := range vs {
		x, err := st.operand(v)
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}

func (t *translator) block(st *funcState, b *mir.BasicBlock) error {
	blk := st.blocks[b]

	for _, in := range b.Instrs {
		switch i := in.(type) {
		case *mir.Alloca:
			a := blk.NewAlloca(types.Double)
			a.SetName(i.Name)
			st.vals[i] = a

		case *mir.Load:
			src, err := st.operand(i.Addr)
			if err != nil {
				return err
			}
			l := blk.NewLoad(types.Double, src)
			l.SetName(i.Name)
			st.vals[i] = l

		case *mir.Store:
			ops, err := st.operands(i.Val, i.Addr)
			if err != nil {
				return err
			}
			blk.NewStore(ops[0], ops[1])

		case *mir.BinOp:
			ops, err := st.operands(i.LHS, i.RHS)
			if err != nil {
				return err
			}
			var v interface{ SetName(string) }
			switch i.Op {
			case mir.OpFAdd:
				inst := blk.NewFAdd(ops[0], ops[1])
				v, st.vals[i] = inst, inst
			case mir.OpFSub:
				inst := blk.NewFSub(ops[0], ops[1])
				v, st.vals[i] = inst, inst
			case mir.OpFMul:
				inst := blk.NewFMul(ops[0], ops[1])
				v, st.vals[i] = inst, inst
			case mir.OpFDiv:
				inst := blk.NewFDiv(ops[0], ops[1])
				v, st.vals[i] = inst, inst
			default:
				return fmt.Errorf("unknown arithmetic operation %s", i.Op)
			}
			v.SetName(i.Name)

		case *mir.Cmp:
			ops, err := st.operands(i.LHS, i.RHS)
			if err != nil {
				return err
			}
			c := blk.NewFCmp(predicates[i.Pred], ops[0], ops[1])
			c.SetName(i.Name)
			st.vals[i] = c

		case *mir.Call:
			callee, ok := t.funcs[i.Callee]
			if !ok {
				return fmt.Errorf("call to @%s which is not in this module", i.Callee.Name)
			}
			args, err := st.operands(i.Args...)
			if err != nil {
				return err
			}
			c := blk.NewCall(callee, args...)
			c.SetName(i.Name)
			st.vals[i] = c

		case *mir.Phi:
			// The placeholder fixes the phi type; real edges are added
			// once every block is translated.
			phi := blk.NewPhi(ir.NewIncoming(constant.NewFloat(types.Double, 0), blk))
			phi.Incs = phi.Incs[:0]
			phi.SetName(i.Name)
			st.vals[i] = phi
			st.phis[i] = phi

		case *mir.Br:
			blk.NewBr(st.blocks[i.Target])

		case *mir.CondBr:
			cond, err := st.operand(i.Cond)
			if err != nil {
				return err
			}
			blk.NewCondBr(cond, st.blocks[i.True], st.blocks[i.False])

		case *mir.Ret:
			v, err := st.operand(i.Val)
			if err != nil {
				return err
			}
			blk.NewRet(v)

		default:
			return fmt.Errorf("unsupported instruction %T", in)
		}
	}

	return nil
}
