package codegen

import (
	"goa.design/clue/log"

	"github.com/orizon-lang/kaleido/internal/ast"
	kerrors "github.com/orizon-lang/kaleido/internal/errors"
	"github.com/orizon-lang/kaleido/internal/mir"
	"github.com/orizon-lang/kaleido/internal/resolver"
)

// GeneratePrototype declares p in the module, or returns the existing
// function of that name when the arity agrees. Emitting prototypes print
// their declaration.
func (g *Generator) GeneratePrototype(p *ast.Prototype) (*mir.Function, error) {
	if fn := g.module.Function(p.Name); fn != nil {
		if len(fn.Params) != len(p.Params) {
			return nil, g.fail(kerrors.ArityMismatch(p.Name, len(fn.Params), len(p.Params)).At(p.Span))
		}
		if p.Emits() {
			g.emitIR("declare " + fn.Signature())
		}
		return fn, nil
	}

	fn, err := g.module.NewFunction(p.Name, p.Params)
	if err != nil {
		return nil, g.fail(kerrors.Redefinition(p.Name).At(p.Span))
	}
	if p.Emits() {
		g.emitIR(fn.String())
	}

	return fn, nil
}

// GenerateFunction generates a definition. Any existing function of the
// same name is a redefinition, unless FillDeclarations lets the body fill a
// declaration. A failed body leaves the module as it was before the
// definition was attempted.
func (g *Generator) GenerateFunction(f *ast.Function) (*mir.Function, error) {
	if f.IsExternal() {
		return g.GeneratePrototype(f.Proto)
	}

	existing := g.module.Function(f.Proto.Name)
	fill := existing != nil && existing.IsDeclaration() && g.opts.FillDeclarations
	if existing != nil && !fill {
		return nil, g.fail(kerrors.Redefinition(f.Proto.Name).At(f.Proto.Span))
	}

	fn, err := g.GeneratePrototype(f.Proto)
	if err != nil {
		return nil, err
	}

	discard := func() {
		if fill {
			fn.Reset()
			return
		}
		g.module.Remove(fn)
	}

	g.builder.SetInsertPoint(fn.AddBlock("entry"))
	g.env.Clear()
	for i, p := range fn.Params {
		name := f.Proto.Params[i]
		slot := fn.EntryAlloca(name)
		g.builder.Store(p, slot)
		g.env.Bind(name, slot, resolver.SymbolKindParameter)
	}

	body, err := g.Codegen(f.Body)
	if err != nil {
		discard()
		return nil, err
	}
	g.builder.Ret(body)

	if verr := mir.Verify(fn); verr != nil {
		discard()
		return nil, g.fail(kerrors.MalformedFunction(f.Proto.Name, verr).At(f.Span))
	}

	g.emitIR(fn.String())

	stats := g.env.GetStatistics()
	log.Debug(g.ctx,
		log.KV{K: "msg", V: "generated function"},
		log.KV{K: "function", V: fn.Name},
		log.KV{K: "blocks", V: len(fn.Blocks)},
		log.KV{K: "lookups", V: stats.Lookups},
		log.KV{K: "misses", V: stats.Misses})

	return fn, nil
}
