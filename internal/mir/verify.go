package mir

import (
	"errors"
	"fmt"
)

// VerifyError describes one structural problem in a function.
type VerifyError struct {
	Function string
	Block    string
	Index    int
	Message  string
}

func (e *VerifyError) Error() string {
	if e.Block == "" {
		return fmt.Sprintf("verify %s: %s", e.Function, e.Message)
	}
	return fmt.Sprintf("verify %s, block %s, instr %d: %s", e.Function, e.Block, e.Index, e.Message)
}

// Verify checks the structural consistency of a completed function:
//  1. every block is non-empty and ends in exactly one terminator
//  2. phi nodes lead their block and have one entry per predecessor
//  3. branch targets and operands belong to the function
//  4. operand types match the instruction
//  5. every use is dominated by its definition
//
// It returns nil or the joined VerifyErrors.
func Verify(f *Function) error {
	v := &verifier{fn: f}
	v.run()

	if len(v.errs) == 0 {
		return nil
	}

	errs := make([]error, len(v.errs))
	for i := range v.errs {
		errs[i] = &v.errs[i]
	}

	return errors.Join(errs...)
}

type verifier struct {
	fn   *Function
	errs []VerifyError

	index map[*BasicBlock]int
	preds map[*BasicBlock][]*BasicBlock
	defs  map[Instr]int
	dom   [][]bool
	reach []bool
}

func (v *verifier) errorf(b *BasicBlock, idx int, format string, args ...interface{}) {
	e := VerifyError{Function: v.fn.Name, Index: idx, Message: fmt.Sprintf(format, args...)}
	if b != nil {
		e.Block = b.Name
	}
	v.errs = append(v.errs, e)
}

func (v *verifier) run() {
	f := v.fn
	if f.IsDeclaration() {
		return
	}
	if f.module != nil && f.module.Function(f.Name) != f {
		v.errorf(nil, 0, "function is not registered in module %s", f.module.Name)
	}

	v.index = make(map[*BasicBlock]int, len(f.Blocks))
	for i, b := range f.Blocks {
		if _, dup := v.index[b]; dup {
			v.errorf(b, 0, "block appears twice in layout")
			continue
		}
		if b.parent != f || !b.attached {
			v.errorf(b, 0, "block does not belong to function")
		}
		v.index[b] = i
	}

	if !v.checkShape() {
		return
	}

	v.computePreds()
	v.computeDominators()

	if len(v.preds[f.Entry()]) > 0 {
		v.errorf(f.Entry(), 0, "entry block has predecessors")
	}

	v.defs = make(map[Instr]int)
	for _, b := range f.Blocks {
		for i, in := range b.Instrs {
			v.defs[in] = i
		}
	}

	for _, b := range f.Blocks {
		for i, in := range b.Instrs {
			v.checkInstr(b, i, in)
		}
	}
}

// checkShape verifies terminators and phi placement. Later checks rely on
// well formed blocks so a failure stops verification.
func (v *verifier) checkShape() bool {
	ok := true
	for _, b := range v.fn.Blocks {
		if len(b.Instrs) == 0 {
			v.errorf(b, 0, "empty basic block")
			ok = false
			continue
		}

		seenNonPhi := false
		for i, in := range b.Instrs {
			if in.Block() != b {
				v.errorf(b, i, "instruction parent mismatch")
				ok = false
			}
			last := i == len(b.Instrs)-1
			if IsTerminator(in) != last {
				if last {
					v.errorf(b, i, "block does not end with a terminator")
				} else {
					v.errorf(b, i, "terminator in the middle of a block")
				}
				ok = false
			}
			if _, isPhi := in.(*Phi); isPhi {
				if seenNonPhi {
					v.errorf(b, i, "phi node is not grouped at the top of its block")
					ok = false
				}
			} else {
				seenNonPhi = true
			}
		}

		for _, s := range b.Succs() {
			if _, in := v.index[s]; !in {
				v.errorf(b, len(b.Instrs)-1, "branch to block %q outside the function layout", s.Name)
				ok = false
			}
		}
	}
	return ok
}

func (v *verifier) computePreds() {
	v.preds = make(map[*BasicBlock][]*BasicBlock)
	for _, b := range v.fn.Blocks {
		for _, s := range b.Succs() {
			v.preds[s] = append(v.preds[s], b)
		}
	}
}

// computeDominators runs the iterative data-flow formulation over the
// blocks reachable from entry.
func (v *verifier) computeDominators() {
	blocks := v.fn.Blocks
	n := len(blocks)

	v.reach = make([]bool, n)
	stack := []*BasicBlock{blocks[0]}
	v.reach[0] = true
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range b.Succs() {
			if i := v.index[s]; !v.reach[i] {
				v.reach[i] = true
				stack = append(stack, s)
			}
		}
	}

	v.dom = make([][]bool, n)
	for i := range v.dom {
		v.dom[i] = make([]bool, n)
		for j := range v.dom[i] {
			v.dom[i][j] = i != 0 || j == 0
		}
	}

	for changed := true; changed; {
		changed = false
		for i := 1; i < n; i++ {
			if !v.reach[i] {
				continue
			}
			next := make([]bool, n)
			first := true
			for _, p := range v.preds[blocks[i]] {
				pi := v.index[p]
				if !v.reach[pi] {
					continue
				}
				for j := range next {
					if first {
						next[j] = v.dom[pi][j]
					} else {
						next[j] = next[j] && v.dom[pi][j]
					}
				}
				first = false
			}
			next[i] = true
			for j := range next {
				if next[j] != v.dom[i][j] {
					v.dom[i] = next
					changed = true
					break
				}
			}
		}
	}
}

// dominates reports whether block a dominates block b.
func (v *verifier) dominates(a, b *BasicBlock) bool {
	return v.dom[v.index[b]][v.index[a]]
}

func (v *verifier) checkInstr(b *BasicBlock, idx int, in Instr) {
	switch i := in.(type) {
	case *Alloca:
		if b != v.fn.Entry() {
			v.errorf(b, idx, "alloca outside the entry block")
		}
	case *Load:
		v.checkOperand(b, idx, i.Addr, TypePtr)
	case *Store:
		v.checkOperand(b, idx, i.Val, TypeDouble)
		v.checkOperand(b, idx, i.Addr, TypePtr)
	case *BinOp:
		v.checkOperand(b, idx, i.LHS, TypeDouble)
		v.checkOperand(b, idx, i.RHS, TypeDouble)
	case *Cmp:
		v.checkOperand(b, idx, i.LHS, TypeDouble)
		v.checkOperand(b, idx, i.RHS, TypeDouble)
	case *Call:
		v.checkCall(b, idx, i)
	case *Phi:
		v.checkPhi(b, idx, i)
	case *CondBr:
		v.checkOperand(b, idx, i.Cond, TypeBool)
	case *Ret:
		v.checkOperand(b, idx, i.Val, TypeDouble)
	case *Br:
	default:
		v.errorf(b, idx, "unknown instruction %T", in)
	}
}

func (v *verifier) checkCall(b *BasicBlock, idx int, c *Call) {
	if c.Callee == nil {
		v.errorf(b, idx, "call without callee")
		return
	}
	if c.Callee.module == nil || c.Callee.module != v.fn.module {
		v.errorf(b, idx, "call to @%s which is not in this module", c.Callee.Name)
	}
	if len(c.Args) != len(c.Callee.Params) {
		v.errorf(b, idx, "call to @%s with %d arguments, want %d", c.Callee.Name, len(c.Args), len(c.Callee.Params))
	}
	for _, a := range c.Args {
		v.checkOperand(b, idx, a, TypeDouble)
	}
}

func (v *verifier) checkPhi(b *BasicBlock, idx int, p *Phi) {
	preds := v.preds[b]
	if len(p.Incoming) != len(preds) {
		v.errorf(b, idx, "phi has %d incoming values but block has %d predecessors", len(p.Incoming), len(preds))
	}

	seen := make(map[*BasicBlock]bool)
	for _, in := range p.Incoming {
		if in.Block == nil || in.Value == nil {
			v.errorf(b, idx, "phi has an incomplete incoming entry")
			continue
		}
		if seen[in.Block] {
			v.errorf(b, idx, "phi lists predecessor %q twice", in.Block.Name)
		}
		seen[in.Block] = true

		isPred := false
		for _, pr := range preds {
			if pr == in.Block {
				isPred = true
				break
			}
		}
		if !isPred {
			v.errorf(b, idx, "phi incoming block %q is not a predecessor", in.Block.Name)
			continue
		}
		if in.Value.Type() != TypeDouble {
			v.errorf(b, idx, "phi incoming value %s has type %s", in.Value.Ident(), in.Value.Type())
			continue
		}
		// A phi operand must be available at the end of its predecessor.
		if def, ok := in.Value.(Instr); ok {
			if !v.defined(b, idx, def) {
				continue
			}
			db := def.Block()
			if v.reach[v.index[in.Block]] && !v.dominates(db, in.Block) {
				v.errorf(b, idx, "phi operand %s does not dominate predecessor %q", in.Value.Ident(), in.Block.Name)
			}
		}
	}
}

func (v *verifier) checkOperand(b *BasicBlock, idx int, op Value, want Type) {
	if op == nil {
		v.errorf(b, idx, "missing operand")
		return
	}
	if op.Type() != want {
		v.errorf(b, idx, "operand %s has type %s, want %s", op.Ident(), op.Type(), want)
	}

	switch o := op.(type) {
	case *Const:
	case *Param:
		if o.fn != v.fn {
			v.errorf(b, idx, "parameter %s belongs to another function", o.Ident())
		}
	case Instr:
		if !v.defined(b, idx, o) {
			return
		}
		if !v.reach[v.index[b]] {
			return
		}
		db := o.Block()
		if db == b {
			if v.defs[o] >= idx {
				v.errorf(b, idx, "operand %s is used before it is defined", op.Ident())
			}
			return
		}
		if !v.dominates(db, b) {
			v.errorf(b, idx, "operand %s does not dominate its use", op.Ident())
		}
	default:
		v.errorf(b, idx, "unknown operand %T", op)
	}
}

// defined reports whether def is an instruction placed in this function.
func (v *verifier) defined(b *BasicBlock, idx int, def Instr) bool {
	db := def.Block()
	if db == nil || db.parent != v.fn {
		v.errorf(b, idx, "operand is defined outside the function")
		return false
	}
	if _, ok := v.index[db]; !ok {
		v.errorf(b, idx, "operand is defined in a detached block %q", db.Name)
		return false
	}
	if _, ok := v.defs[def]; !ok {
		v.errorf(b, idx, "operand is not part of its block")
		return false
	}
	return true
}
