// Package eval executes MIR functions directly.
//
// The engine walks basic blocks, keeps one value per instruction and one
// cell per slot in each frame, and resolves phi nodes on block entry from
// the block control came from. Declarations are bound to builtins by name.
package eval

import (
	"errors"
	"fmt"
	"io"
	"os"

	kerrors "github.com/orizon-lang/kaleido/internal/errors"
	"github.com/orizon-lang/kaleido/internal/mir"
)

// DefaultMaxDepth bounds nested calls.
const DefaultMaxDepth = 10000

// ErrCallDepth is returned when calls nest deeper than MaxDepth.
var ErrCallDepth = errors.New("eval: call depth exceeded")

// ErrNoReturn is returned when control leaves a function without a ret.
var ErrNoReturn = errors.New("eval: block has no terminator")

// Options configures an Engine.
type Options struct {
	// MaxSteps bounds executed instructions per top-level Call. Zero
	// means unlimited.
	MaxSteps int
	// MaxDepth bounds nested calls. Zero means DefaultMaxDepth.
	MaxDepth int
	// Output receives the output of putchard and printd. Defaults to
	// os.Stdout.
	Output io.Writer
}

// Engine evaluates functions of any module.
type Engine struct {
	builtins map[string]Builtin
	out      io.Writer
	maxSteps int
	maxDepth int

	steps int
	depth int
	root  string
}

// NewEngine returns an engine with the standard builtins installed.
func NewEngine(opts Options) *Engine {
	e := &Engine{
		builtins: make(map[string]Builtin),
		out:      opts.Output,
		maxSteps: opts.MaxSteps,
		maxDepth: opts.MaxDepth,
	}
	if e.out == nil {
		e.out = os.Stdout
	}
	if e.maxDepth <= 0 {
		e.maxDepth = DefaultMaxDepth
	}
	for name, b := range standardBuiltins(e) {
		e.builtins[name] = b
	}

	return e
}

// Register binds a declaration name to fn, replacing any builtin.
func (e *Engine) Register(name string, fn Builtin) {
	e.builtins[name] = fn
}

// Steps returns the number of instructions executed by the last Call.
func (e *Engine) Steps() int { return e.steps }

// Call runs fn with args and returns its result.
func (e *Engine) Call(fn *mir.Function, args ...float64) (float64, error) {
	e.steps = 0
	e.depth = 0
	e.root = fn.Name

	return e.call(fn, args)
}

type frame struct {
	fn    *mir.Function
	args  []float64
	vals  map[mir.Instr]float64
	cells map[*mir.Alloca]float64
}

func (e *Engine) call(fn *mir.Function, args []float64) (float64, error) {
	if len(args) != len(fn.Params) {
		return 0, kerrors.ArityMismatch(fn.Name, len(fn.Params), len(args))
	}
	if fn.IsDeclaration() {
		b, ok := e.builtins[fn.Name]
		if !ok {
			return 0, kerrors.UnknownFunction(fn.Name)
		}
		return b(args)
	}

	e.depth++
	defer func() { e.depth-- }()
	if e.depth > e.maxDepth {
		return 0, fmt.Errorf("%w: %d nested calls in %q", ErrCallDepth, e.maxDepth, fn.Name)
	}

	fr := &frame{
		fn:    fn,
		args:  args,
		vals:  make(map[mir.Instr]float64),
		cells: make(map[*mir.Alloca]float64),
	}

	var pred *mir.BasicBlock
	block := fn.Entry()
	for {
		next, ret, done, err := e.runBlock(fr, block, pred)
		if err != nil {
			return 0, err
		}
		if done {
			return ret, nil
		}
		pred, block = block, next
	}
}

// runBlock executes b. It returns the successor to run next, or the return
// value with done set.
func (e *Engine) runBlock(fr *frame, b, pred *mir.BasicBlock) (next *mir.BasicBlock, ret float64, done bool, err error) {
	// Phis read their operands as of the edge, so all are evaluated before
	// any is assigned.
	var phis []*mir.Phi
	var phiVals []float64
	for _, in := range b.Instrs {
		p, ok := in.(*mir.Phi)
		if !ok {
			break
		}
		v, err := e.phiValue(fr, p, pred)
		if err != nil {
			return nil, 0, false, err
		}
		phis = append(phis, p)
		phiVals = append(phiVals, v)
	}
	for i, p := range phis {
		fr.vals[p] = phiVals[i]
	}

	for _, in := range b.Instrs[len(phis):] {
		if err := e.tick(); err != nil {
			return nil, 0, false, err
		}

		switch i := in.(type) {
		case *mir.Alloca:
			fr.cells[i] = 0
		case *mir.Load:
			fr.vals[i] = fr.cells[i.Addr]
		case *mir.Store:
			fr.cells[i.Addr] = e.value(fr, i.Val)
		case *mir.BinOp:
			fr.vals[i] = arith(i.Op, e.value(fr, i.LHS), e.value(fr, i.RHS))
		case *mir.Cmp:
			fr.vals[i] = boolValue(compare(i.Pred, e.value(fr, i.LHS), e.value(fr, i.RHS)))
		case *mir.Call:
			args := make([]float64, len(i.Args))
			for k, a := range i.Args {
				args[k] = e.value(fr, a)
			}
			v, err := e.call(i.Callee, args)
			if err != nil {
				return nil, 0, false, err
			}
			fr.vals[i] = v
		case *mir.Br:
			return i.Target, 0, false, nil
		case *mir.CondBr:
			if e.value(fr, i.Cond) != 0 {
				return i.True, 0, false, nil
			}
			return i.False, 0, false, nil
		case *mir.Ret:
			return nil, e.value(fr, i.Val), true, nil
		case *mir.Phi:
			return nil, 0, false, fmt.Errorf("eval: phi %s after the head of block %s", i.Ident(), b.Name)
		default:
			return nil, 0, false, fmt.Errorf("eval: unknown instruction %T", in)
		}
	}

	return nil, 0, false, fmt.Errorf("%w: %s in %q", ErrNoReturn, b.Name, fr.fn.Name)
}

func (e *Engine) tick() error {
	e.steps++
	if e.maxSteps > 0 && e.steps > e.maxSteps {
		return kerrors.StepLimit(e.root, e.maxSteps)
	}
	return nil
}

func (e *Engine) phiValue(fr *frame, p *mir.Phi, pred *mir.BasicBlock) (float64, error) {
	for _, inc := range p.Incoming {
		if inc.Block == pred {
			return e.value(fr, inc.Value), nil
		}
	}
	from := "<entry>"
	if pred != nil {
		from = pred.Name
	}
	return 0, fmt.Errorf("eval: phi %s has no incoming value for %s", p.Ident(), from)
}

func (e *Engine) value(fr *frame, v mir.Value) float64 {
	switch x := v.(type) {
	case *mir.Const:
		return x.Float64
	case *mir.Param:
		return fr.args[x.Index]
	case mir.Instr:
		return fr.vals[x]
	default:
		return 0
	}
}

func arith(op mir.BinOpKind, l, r float64) float64 {
	switch op {
	case mir.OpFAdd:
		return l + r
	case mir.OpFSub:
		return l - r
	case mir.OpFMul:
		return l * r
	default:
		return l / r
	}
}

// compare follows the ordered predicates: any comparison with NaN is false.
func compare(p mir.CmpPred, l, r float64) bool {
	switch p {
	case mir.CmpOEQ:
		return l == r
	case mir.CmpONE:
		return l < r || l > r
	case mir.CmpOGT:
		return l > r
	case mir.CmpOLT:
		return l < r
	case mir.CmpOGE:
		return l >= r
	default:
		return l <= r
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
