// Package codegen lowers the AST into SSA-form MIR.
//
// Mutable variables live in entry-block slots (alloca/load/store), values
// that meet at a control-flow join are merged with phi nodes, and bare
// top-level expressions are wrapped in anonymous functions that are handed
// to an evaluation hook and then dropped from the module.
package codegen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"goa.design/clue/log"

	"github.com/orizon-lang/kaleido/internal/ast"
	"github.com/orizon-lang/kaleido/internal/diagnostic"
	kerrors "github.com/orizon-lang/kaleido/internal/errors"
	"github.com/orizon-lang/kaleido/internal/mir"
	"github.com/orizon-lang/kaleido/internal/resolver"
)

// AnonPrefix names the functions that wrap top-level expressions.
const AnonPrefix = "__anon_expr"

var anonCounter atomic.Uint64

// Options configures a Generator.
type Options struct {
	// Diagnostics receives every generation failure. May be nil.
	Diagnostics *diagnostic.Reporter
	// IROut receives extern declarations and every verified function.
	// May be nil.
	IROut io.Writer
	// StopOnError stops a sequence at its first failing form.
	StopOnError bool
	// FillDeclarations lets a definition supply the body of an earlier
	// declaration with the same arity instead of failing as a redefinition.
	FillDeclarations bool
	// OnTopLevel is called with each wrapped top-level expression before
	// the wrapper is removed from the module.
	OnTopLevel func(fn *mir.Function) error
}

// Generator lowers AST nodes into one module. It is not safe for
// concurrent use.
type Generator struct {
	ctx     context.Context
	module  *mir.Module
	builder *mir.Builder
	env     *resolver.Environment
	opts    Options

	// reserved wrapper numbers, next through last
	next, last uint64
}

// NewGenerator returns a generator that adds functions to m. ctx carries
// the logger used for debug output.
func NewGenerator(ctx context.Context, m *mir.Module, opts Options) *Generator {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Generator{
		ctx:     ctx,
		module:  m,
		builder: mir.NewBuilder(),
		env:     resolver.NewEnvironment(),
		opts:    opts,
	}
}

// Module returns the module functions are generated into.
func (g *Generator) Module() *mir.Module { return g.module }

// Environment returns the symbol environment of the function being generated.
func (g *Generator) Environment() *resolver.Environment { return g.env }

// Generate lowers a whole program. Every form is attempted unless
// StopOnError is set; the failures are returned joined.
func (g *Generator) Generate(root ast.Node) error {
	if seq, ok := root.(*ast.Sequence); ok {
		return g.genSequence(seq)
	}
	_, err := g.Codegen(root)
	return err
}

// Codegen lowers one node. Expressions return their value; definitions,
// declarations, sequences and wrapped top-level expressions return nil.
func (g *Generator) Codegen(node ast.Node) (mir.Value, error) {
	if e, ok := node.(ast.Expr); ok && e.ClaimTopLevel() {
		return nil, g.wrapTopLevel(e)
	}

	switch n := node.(type) {
	case *ast.Number:
		return mir.ConstFloat(n.Value), nil
	case *ast.Variable:
		return g.genVariable(n)
	case *ast.Unary:
		return g.genUnary(n)
	case *ast.Binary:
		return g.genBinary(n)
	case *ast.Call:
		return g.genCall(n)
	case *ast.If:
		return g.genIf(n)
	case *ast.For:
		return g.genFor(n)
	case *ast.While:
		return g.genWhile(n)
	case *ast.VarBinding:
		return g.genVarBinding(n)
	case *ast.Prototype:
		_, err := g.GeneratePrototype(n)
		return nil, err
	case *ast.Function:
		_, err := g.GenerateFunction(n)
		return nil, err
	case *ast.Sequence:
		return nil, g.genSequence(n)
	case nil:
		return nil, nil
	default:
		return nil, g.fail(kerrors.UnsupportedOperator("node", fmt.Sprintf("%T", node)))
	}
}

// Reserve takes one wrapper number per pending top-level form of root from
// the process-wide counter, so the names no longer depend on when root is
// generated. Wrappers beyond the reservation number themselves as usual.
func (g *Generator) Reserve(root ast.Node) {
	n := uint64(0)
	forms := []ast.Node{root}
	if seq, ok := root.(*ast.Sequence); ok && seq != nil {
		forms = seq.Forms()
	}
	for _, form := range forms {
		if e, ok := form.(ast.Expr); ok && e.IsPendingTopLevel() {
			n++
		}
	}
	if n == 0 {
		return
	}

	g.last = anonCounter.Add(n)
	g.next = g.last - n + 1
}

func (g *Generator) anonName() string {
	var n uint64
	if g.next != 0 && g.next <= g.last {
		n = g.next
		g.next++
	} else {
		n = anonCounter.Add(1)
	}
	return fmt.Sprintf("%s%d", AnonPrefix, n)
}

func (g *Generator) genSequence(seq *ast.Sequence) error {
	var errs []error
	for _, form := range seq.Forms() {
		if _, err := g.Codegen(form); err != nil {
			errs = append(errs, err)
			if g.opts.StopOnError {
				break
			}
		}
	}
	return errors.Join(errs...)
}

// wrapTopLevel generates e as the body of a fresh anonymous function, hands
// it to the evaluation hook and removes it from the module again.
func (g *Generator) wrapTopLevel(e ast.Expr) error {
	name := g.anonName()

	proto := ast.NewPrototype(e.GetSpan(), name, nil)
	proto.NoEmit()

	fn, err := g.GenerateFunction(ast.NewFunction(e.GetSpan(), proto, e))
	if err != nil {
		return err
	}
	defer g.module.Remove(fn)

	if g.opts.OnTopLevel != nil {
		if err := g.opts.OnTopLevel(fn); err != nil {
			g.report(err)
			return err
		}
	}
	return nil
}

// fail reports err and returns it.
func (g *Generator) fail(err *kerrors.StandardError) error {
	g.report(err)
	return err
}

func (g *Generator) report(err error) {
	if g.opts.Diagnostics != nil {
		g.opts.Diagnostics.ReportError(err)
	}
	log.Debug(g.ctx, log.KV{K: "msg", V: "codegen failed"}, log.KV{K: "err", V: err.Error()})
}

func (g *Generator) emitIR(text string) {
	if g.opts.IROut == nil {
		return
	}
	_, _ = io.WriteString(g.opts.IROut, text)
	_, _ = io.WriteString(g.opts.IROut, "\n")
}
