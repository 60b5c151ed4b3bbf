// Package mir defines the Mid-level IR the code generator lowers into.
// It is SSA form over a single numeric type: values are produced once,
// mutable variables live in entry-block stack slots (alloca/load/store) and
// control-flow joins are reconciled with phi nodes.
package mir

import (
	"fmt"
	"strconv"
	"strings"
)

// Type is the type of an IR value. The language has one numeric type;
// comparisons produce booleans and slots are pointers to the numeric type.
type Type int

const (
	TypeVoid Type = iota
	TypeDouble
	TypeBool
	TypePtr
)

func (t Type) String() string {
	switch t {
	case TypeDouble:
		return "double"
	case TypeBool:
		return "i1"
	case TypePtr:
		return "double*"
	default:
		return "void"
	}
}

// Value is anything that can appear as an instruction operand.
type Value interface {
	Type() Type
	// Ident returns the operand spelling, e.g. %x or 1.0.
	Ident() string
}

// Const is a numeric constant.
type Const struct{ Float64 float64 }

// ConstFloat returns the constant v.
func ConstFloat(v float64) *Const { return &Const{Float64: v} }

func (c *Const) Type() Type     { return TypeDouble }
func (c *Const) Ident() string  { return formatFloat(c.Float64) }
func (c *Const) String() string { return c.Ident() }

func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnI") {
		s += ".0"
	}
	return s
}

// Param is a formal parameter of a function.
type Param struct {
	Name  string
	Index int
	fn    *Function
}

func (p *Param) Type() Type          { return TypeDouble }
func (p *Param) Ident() string       { return "%" + p.Name }
func (p *Param) Function() *Function { return p.fn }
func (p *Param) String() string      { return "double " + p.Ident() }

// Module is a compilation unit: an ordered function table.
type Module struct {
	Name      string
	Functions []*Function
}

// NewModule returns an empty module.
func NewModule(name string) *Module {
	return &Module{Name: name}
}

// Function looks up a function by name.
func (m *Module) Function(name string) *Function {
	for _, f := range m.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// NewFunction declares a function taking len(params) doubles and
// returning a double. The name must not already be in the table.
func (m *Module) NewFunction(name string, params []string) (*Function, error) {
	if m.Function(name) != nil {
		return nil, fmt.Errorf("function %q already exists in module %s", name, m.Name)
	}

	f := &Function{Name: name, module: m, names: make(map[string]int)}
	for i, p := range params {
		f.Params = append(f.Params, &Param{Name: f.uniqueName(p), Index: i, fn: f})
	}

	m.Functions = append(m.Functions, f)

	return f, nil
}

// Remove deletes f from the function table. It reports whether f was present.
func (m *Module) Remove(f *Function) bool {
	for i, g := range m.Functions {
		if g == f {
			m.Functions = append(m.Functions[:i], m.Functions[i+1:]...)
			f.module = nil

			return true
		}
	}
	return false
}

// Function is a list of basic blocks; the first block is the entry.
// A function without blocks is a declaration.
type Function struct {
	Name   string
	Params []*Param
	Blocks []*BasicBlock

	module *Module
	names  map[string]int
}

// Module returns the owning module, or nil once the function was removed.
func (f *Function) Module() *Module { return f.module }

// IsDeclaration reports whether the function has no body.
func (f *Function) IsDeclaration() bool { return len(f.Blocks) == 0 }

// Entry returns the entry block or nil for a declaration.
func (f *Function) Entry() *BasicBlock {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// NewBlock creates a block owned by f that is not yet placed in the layout.
// Use AppendBlock to attach it.
func (f *Function) NewBlock(name string) *BasicBlock {
	return &BasicBlock{Name: f.uniqueName(name), parent: f}
}

// AppendBlock attaches b at the end of the block layout.
func (f *Function) AppendBlock(b *BasicBlock) {
	if b.attached {
		return
	}
	b.parent = f
	b.attached = true
	f.Blocks = append(f.Blocks, b)
}

// AddBlock creates and attaches a block in one step.
func (f *Function) AddBlock(name string) *BasicBlock {
	b := f.NewBlock(name)
	f.AppendBlock(b)

	return b
}

// EntryAlloca allocates a mutable slot at the top of the entry block,
// after any slot allocated before it.
func (f *Function) EntryAlloca(name string) *Alloca {
	entry := f.Entry()
	if entry == nil {
		entry = f.AddBlock("entry")
	}

	a := &Alloca{Name: f.uniqueName(name)}
	a.parent = entry

	pos := 0
	for pos < len(entry.Instrs) {
		if _, ok := entry.Instrs[pos].(*Alloca); !ok {
			break
		}
		pos++
	}

	entry.Instrs = append(entry.Instrs, nil)
	copy(entry.Instrs[pos+1:], entry.Instrs[pos:])
	entry.Instrs[pos] = a

	return a
}

// Reset strips the body, turning f back into a declaration.
func (f *Function) Reset() {
	for _, b := range f.Blocks {
		b.attached = false
	}
	f.Blocks = nil
	f.names = make(map[string]int)
	for _, p := range f.Params {
		f.names[p.Name] = 1
	}
}

func (f *Function) uniqueName(hint string) string {
	if hint == "" {
		hint = "tmp"
	}
	if f.names == nil {
		f.names = make(map[string]int)
	}

	n := f.names[hint]
	f.names[hint] = n + 1
	if n == 0 {
		return hint
	}

	return fmt.Sprintf("%s%d", hint, n)
}

// Signature renders the function header without a body.
func (f *Function) Signature() string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.String()
	}
	return fmt.Sprintf("double @%s(%s)", f.Name, strings.Join(params, ", "))
}

// BasicBlock is a sequence of instructions ending with a terminator.
type BasicBlock struct {
	Name   string
	Instrs []Instr

	parent   *Function
	attached bool
}

// Parent returns the function the block belongs to.
func (b *BasicBlock) Parent() *Function { return b.parent }

// Attached reports whether the block is part of its function's layout.
func (b *BasicBlock) Attached() bool { return b.attached }

func (b *BasicBlock) Ident() string { return "%" + b.Name }

// Terminator returns the final instruction if it is a terminator.
func (b *BasicBlock) Terminator() Instr {
	if len(b.Instrs) == 0 {
		return nil
	}
	last := b.Instrs[len(b.Instrs)-1]
	if !IsTerminator(last) {
		return nil
	}
	return last
}

// Succs returns the blocks the terminator can transfer control to.
func (b *BasicBlock) Succs() []*BasicBlock {
	switch t := b.Terminator().(type) {
	case *Br:
		return []*BasicBlock{t.Target}
	case *CondBr:
		if t.True == t.False {
			return []*BasicBlock{t.True}
		}
		return []*BasicBlock{t.True, t.False}
	default:
		return nil
	}
}

// Preds returns the attached blocks of the same function that branch to b.
func (b *BasicBlock) Preds() []*BasicBlock {
	if b.parent == nil {
		return nil
	}

	var preds []*BasicBlock
	for _, p := range b.parent.Blocks {
		for _, s := range p.Succs() {
			if s == b {
				preds = append(preds, p)
				break
			}
		}
	}

	return preds
}

// Instr is implemented by all MIR instructions.
type Instr interface {
	Block() *BasicBlock
	String() string
	isInstr()
}

type instrBase struct{ parent *BasicBlock }

func (i *instrBase) Block() *BasicBlock { return i.parent }
func (i *instrBase) isInstr()           {}

// Alloca allocates a local stack slot holding one double.
type Alloca struct {
	instrBase
	Name string
}

// Load reads the current value of a slot.
type Load struct {
	instrBase
	Name string
	Addr *Alloca
}

// Store writes a value into a slot.
type Store struct {
	instrBase
	Val  Value
	Addr *Alloca
}

// BinOpKind enumerates the floating point arithmetic operations.
type BinOpKind int

const (
	OpFAdd BinOpKind = iota
	OpFSub
	OpFMul
	OpFDiv
)

// BinOp is a floating point arithmetic operation.
type BinOp struct {
	instrBase
	Name string
	Op   BinOpKind
	LHS  Value
	RHS  Value
}

// CmpPred enumerates ordered floating point comparison predicates.
type CmpPred int

const (
	CmpOEQ CmpPred = iota
	CmpONE
	CmpOGT
	CmpOLT
	CmpOGE
	CmpOLE
)

// Cmp compares two doubles producing an i1.
type Cmp struct {
	instrBase
	Name string
	Pred CmpPred
	LHS  Value
	RHS  Value
}

// Call invokes a function of the same module.
type Call struct {
	instrBase
	Name   string
	Callee *Function
	Args   []Value
}

// Incoming is one (value, predecessor) pair of a phi node.
type Incoming struct {
	Value Value
	Block *BasicBlock
}

// Phi selects a value depending on the predecessor control came from.
type Phi struct {
	instrBase
	Name     string
	Incoming []Incoming
}

// AddIncoming appends a (value, predecessor) pair.
func (p *Phi) AddIncoming(v Value, pred *BasicBlock) {
	p.Incoming = append(p.Incoming, Incoming{Value: v, Block: pred})
}

// Br is an unconditional branch.
type Br struct {
	instrBase
	Target *BasicBlock
}

// CondBr branches on an i1.
type CondBr struct {
	instrBase
	Cond  Value
	True  *BasicBlock
	False *BasicBlock
}

// Ret returns a value from the function.
type Ret struct {
	instrBase
	Val Value
}

// IsTerminator reports whether i ends a basic block.
func IsTerminator(i Instr) bool {
	switch i.(type) {
	case *Br, *CondBr, *Ret:
		return true
	default:
		return false
	}
}

func (i *Alloca) Type() Type { return TypePtr }
func (i *Load) Type() Type   { return TypeDouble }
func (i *BinOp) Type() Type  { return TypeDouble }
func (i *Cmp) Type() Type    { return TypeBool }
func (i *Call) Type() Type   { return TypeDouble }
func (i *Phi) Type() Type    { return TypeDouble }

func (i *Alloca) Ident() string { return "%" + i.Name }
func (i *Load) Ident() string   { return "%" + i.Name }
func (i *BinOp) Ident() string  { return "%" + i.Name }
func (i *Cmp) Ident() string    { return "%" + i.Name }
func (i *Call) Ident() string   { return "%" + i.Name }
func (i *Phi) Ident() string    { return "%" + i.Name }

func (k BinOpKind) String() string {
	switch k {
	case OpFAdd:
		return "fadd"
	case OpFSub:
		return "fsub"
	case OpFMul:
		return "fmul"
	case OpFDiv:
		return "fdiv"
	default:
		return "binop?"
	}
}

func (p CmpPred) String() string {
	switch p {
	case CmpOEQ:
		return "oeq"
	case CmpONE:
		return "one"
	case CmpOGT:
		return "ogt"
	case CmpOLT:
		return "olt"
	case CmpOGE:
		return "oge"
	case CmpOLE:
		return "ole"
	default:
		return "cmp?"
	}
}

func typed(v Value) string {
	if v == nil {
		return "<nil>"
	}
	return v.Type().String() + " " + v.Ident()
}

func (i *Alloca) String() string { return fmt.Sprintf("%s = alloca double", i.Ident()) }

func (i *Load) String() string {
	return fmt.Sprintf("%s = load double, %s", i.Ident(), typed(i.Addr))
}

func (i *Store) String() string {
	return fmt.Sprintf("store %s, %s", typed(i.Val), typed(i.Addr))
}

func (i *BinOp) String() string {
	return fmt.Sprintf("%s = %s double %s, %s", i.Ident(), i.Op, i.LHS.Ident(), i.RHS.Ident())
}

func (i *Cmp) String() string {
	return fmt.Sprintf("%s = fcmp %s double %s, %s", i.Ident(), i.Pred, i.LHS.Ident(), i.RHS.Ident())
}

func (i *Call) String() string {
	args := make([]string, len(i.Args))
	for idx, a := range i.Args {
		args[idx] = typed(a)
	}
	return fmt.Sprintf("%s = call double @%s(%s)", i.Ident(), i.Callee.Name, strings.Join(args, ", "))
}

func (i *Phi) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s = phi double ", i.Ident())
	for idx, in := range i.Incoming {
		if idx > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "[ %s, %s ]", in.Value.Ident(), in.Block.Ident())
	}
	return b.String()
}

func (i *Br) String() string { return fmt.Sprintf("br label %s", i.Target.Ident()) }

func (i *CondBr) String() string {
	return fmt.Sprintf("br %s, label %s, label %s", typed(i.Cond), i.True.Ident(), i.False.Ident())
}

func (i *Ret) String() string { return "ret " + typed(i.Val) }

func (m *Module) String() string {
	if m == nil {
		return "<nil-mir-module>"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "; ModuleID = '%s'\n", m.Name)
	for _, f := range m.Functions {
		b.WriteByte('\n')
		b.WriteString(f.String())
	}
	return b.String()
}

func (f *Function) String() string {
	if f == nil {
		return "<nil-func>"
	}
	if f.IsDeclaration() {
		return "declare " + f.Signature() + "\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "define %s {\n", f.Signature())
	for i, bb := range f.Blocks {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(bb.String())
	}
	b.WriteString("}\n")
	return b.String()
}

func (b *BasicBlock) String() string {
	if b == nil {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:\n", b.Name)
	for _, in := range b.Instrs {
		sb.WriteString("  ")
		sb.WriteString(in.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
