// Package session runs source text through parsing, code generation and
// evaluation against one persistent module.
package session

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/orizon-lang/kaleido/internal/ast"
	"github.com/orizon-lang/kaleido/internal/cli"
	"github.com/orizon-lang/kaleido/internal/codegen"
	"github.com/orizon-lang/kaleido/internal/diagnostic"
	"github.com/orizon-lang/kaleido/internal/eval"
	"github.com/orizon-lang/kaleido/internal/mir"
	"github.com/orizon-lang/kaleido/internal/parser"
)

// Options configures a Session. Nil writers discard their output.
type Options struct {
	Config *cli.Config
	Logger *cli.Logger

	// Output receives evaluation results and builtin output.
	Output io.Writer
	// IROut receives generated IR when Config.PrintIR is set.
	IROut io.Writer
	// Diagnostics receives error reports.
	Diagnostics io.Writer
}

// Result is the value of one evaluated top-level expression.
type Result struct {
	Name  string
	Value float64
}

// Session owns a module and the generator and engine working on it.
type Session struct {
	cfg    *cli.Config
	logger *cli.Logger
	out    io.Writer

	module   *mir.Module
	gen      *codegen.Generator
	engine   *eval.Engine
	reporter *diagnostic.Reporter
	results  []Result
}

// New returns a session for a module called name.
func New(name string, opts Options) *Session {
	cfg := opts.Config
	if cfg == nil {
		cfg = cli.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = cli.NewLogger(io.Discard, cfg.LogFormat, false, false)
	}
	out := orDiscard(opts.Output)

	s := &Session{
		cfg:      cfg,
		logger:   logger,
		out:      out,
		module:   mir.NewModule(name),
		engine:   eval.NewEngine(eval.Options{MaxSteps: cfg.MaxSteps, Output: out}),
		reporter: diagnostic.NewReporter(orDiscard(opts.Diagnostics)),
	}

	var irOut io.Writer
	if cfg.PrintIR {
		irOut = opts.IROut
	}
	s.gen = codegen.NewGenerator(logger.Context(), s.module, codegen.Options{
		Diagnostics:      s.reporter,
		IROut:            irOut,
		StopOnError:      cfg.StopOnError,
		FillDeclarations: cfg.FillDeclarations,
		OnTopLevel:       s.evaluate,
	})

	return s
}

func orDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}

// Module returns the module definitions accumulate in.
func (s *Session) Module() *mir.Module { return s.module }

// Reporter returns the diagnostics reporter.
func (s *Session) Reporter() *diagnostic.Reporter { return s.reporter }

// Results returns every value evaluated so far.
func (s *Session) Results() []Result { return s.results }

// Parse parses src, reporting syntax errors. The forms that did parse are
// returned even when err is non-nil.
func (s *Session) Parse(src, filename string) (*ast.Sequence, error) {
	seq, err := parser.ParseString(src, filename)
	if err != nil {
		s.reporter.ReportError(err)
	}
	return seq, err
}

// Unit is parsed source waiting to be generated.
type Unit struct {
	filename string
	seq      *ast.Sequence
	err      error
}

// Prepare parses src and reserves wrapper names for its top-level
// expressions. Units prepared one after another keep their names in that
// order however their generation is scheduled.
func (s *Session) Prepare(src, filename string) *Unit {
	seq, err := s.Parse(src, filename)
	s.gen.Reserve(seq)
	return &Unit{filename: filename, seq: seq, err: err}
}

// Generate generates a prepared unit. Syntax errors do not stop the forms
// that parsed from being generated; all failures are returned joined.
func (s *Session) Generate(u *Unit) error {
	if u.err != nil && s.cfg.StopOnError {
		return u.err
	}

	if s.cfg.PrintAST {
		if err := ast.Print(s.out, u.seq); err != nil {
			return err
		}
		fmt.Fprintln(s.out)
	}

	gerr := s.gen.Generate(u.seq)
	s.logger.Info("%s: %d forms, %d functions in module", u.filename, len(u.seq.Forms()), len(s.module.Functions))

	return errors.Join(u.err, gerr)
}

// Run prepares and generates src.
func (s *Session) Run(src, filename string) error {
	return s.Generate(s.Prepare(src, filename))
}

// evaluate runs a wrapped top-level expression and prints its value.
func (s *Session) evaluate(fn *mir.Function) error {
	if !s.cfg.Evaluate {
		return nil
	}

	v, err := s.engine.Call(fn)
	if err != nil {
		return fmt.Errorf("evaluating %s: %w", fn.Name, err)
	}
	s.logger.Debug("%s took %d steps", fn.Name, s.engine.Steps())

	s.results = append(s.results, Result{Name: fn.Name, Value: v})
	fmt.Fprintf(s.out, "%s = %s\n", fn.Name, strconv.FormatFloat(v, 'g', -1, 64))

	return nil
}
