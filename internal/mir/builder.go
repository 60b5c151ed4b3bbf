package mir

// Builder appends instructions at the end of its current block.
type Builder struct {
	block *BasicBlock
}

// NewBuilder returns a builder without an insertion point.
func NewBuilder() *Builder { return &Builder{} }

// SetInsertPoint makes b the block new instructions are appended to.
func (bd *Builder) SetInsertPoint(b *BasicBlock) { bd.block = b }

// InsertBlock returns the current insertion block. Code generation for a
// nested construct may have moved it, so callers re-query it after
// generating a sub-expression.
func (bd *Builder) InsertBlock() *BasicBlock { return bd.block }

// Function returns the function that owns the insertion block.
func (bd *Builder) Function() *Function {
	if bd.block == nil {
		return nil
	}
	return bd.block.parent
}

func (bd *Builder) insert(i Instr, base *instrBase) {
	if bd.block == nil {
		panic("mir: builder has no insertion point")
	}
	base.parent = bd.block
	bd.block.Instrs = append(bd.block.Instrs, i)
}

func (bd *Builder) name(hint string) string {
	return bd.block.parent.uniqueName(hint)
}

// Load reads slot.
func (bd *Builder) Load(slot *Alloca, name string) *Load {
	i := &Load{Name: bd.name(name), Addr: slot}
	bd.insert(i, &i.instrBase)

	return i
}

// Store writes v into slot.
func (bd *Builder) Store(v Value, slot *Alloca) *Store {
	i := &Store{Val: v, Addr: slot}
	bd.insert(i, &i.instrBase)

	return i
}

// BinOp emits an arithmetic instruction.
func (bd *Builder) BinOp(op BinOpKind, lhs, rhs Value, name string) *BinOp {
	i := &BinOp{Name: bd.name(name), Op: op, LHS: lhs, RHS: rhs}
	bd.insert(i, &i.instrBase)

	return i
}

func (bd *Builder) FAdd(lhs, rhs Value, name string) *BinOp { return bd.BinOp(OpFAdd, lhs, rhs, name) }
func (bd *Builder) FSub(lhs, rhs Value, name string) *BinOp { return bd.BinOp(OpFSub, lhs, rhs, name) }
func (bd *Builder) FMul(lhs, rhs Value, name string) *BinOp { return bd.BinOp(OpFMul, lhs, rhs, name) }
func (bd *Builder) FDiv(lhs, rhs Value, name string) *BinOp { return bd.BinOp(OpFDiv, lhs, rhs, name) }

// FCmp emits an ordered comparison.
func (bd *Builder) FCmp(pred CmpPred, lhs, rhs Value, name string) *Cmp {
	i := &Cmp{Name: bd.name(name), Pred: pred, LHS: lhs, RHS: rhs}
	bd.insert(i, &i.instrBase)

	return i
}

// Call emits a call to fn.
func (bd *Builder) Call(fn *Function, args []Value, name string) *Call {
	i := &Call{Name: bd.name(name), Callee: fn, Args: args}
	bd.insert(i, &i.instrBase)

	return i
}

// Phi emits a phi node with no incoming edges yet.
func (bd *Builder) Phi(name string) *Phi {
	i := &Phi{Name: bd.name(name)}
	bd.insert(i, &i.instrBase)

	return i
}

// Br emits an unconditional branch.
func (bd *Builder) Br(target *BasicBlock) *Br {
	i := &Br{Target: target}
	bd.insert(i, &i.instrBase)

	return i
}

// CondBr emits a conditional branch.
func (bd *Builder) CondBr(cond Value, t, f *BasicBlock) *CondBr {
	i := &CondBr{Cond: cond, True: t, False: f}
	bd.insert(i, &i.instrBase)

	return i
}

// Ret emits a return.
func (bd *Builder) Ret(v Value) *Ret {
	i := &Ret{Val: v}
	bd.insert(i, &i.instrBase)

	return i
}
