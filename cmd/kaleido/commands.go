package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/sync/errgroup"
	"gopkg.in/urfave/cli.v1"

	"github.com/orizon-lang/kaleido/internal/ast"
	kcli "github.com/orizon-lang/kaleido/internal/cli"
	"github.com/orizon-lang/kaleido/internal/eval"
	"github.com/orizon-lang/kaleido/internal/lexer"
	"github.com/orizon-lang/kaleido/internal/llvm"
	"github.com/orizon-lang/kaleido/internal/mir"
	"github.com/orizon-lang/kaleido/internal/repl"
	"github.com/orizon-lang/kaleido/internal/session"
	"github.com/orizon-lang/kaleido/internal/watch"
)

// settings loads the configuration file and applies flag overrides.
func settings(ctx *cli.Context) (*kcli.Config, *kcli.Logger, error) {
	cfg, err := kcli.LoadConfig(ctx.GlobalString(configFileFlag.Name))
	if err != nil {
		return nil, nil, err
	}

	if ctx.GlobalIsSet(verboseFlag.Name) {
		cfg.Verbose = ctx.GlobalBool(verboseFlag.Name)
	}
	if ctx.GlobalIsSet(debugFlag.Name) {
		cfg.Debug = ctx.GlobalBool(debugFlag.Name)
	}
	if ctx.GlobalIsSet(logFormatFlag.Name) {
		cfg.LogFormat = ctx.GlobalString(logFormatFlag.Name)
	}
	if ctx.IsSet(stopOnErrorFlag.Name) {
		cfg.StopOnError = ctx.Bool(stopOnErrorFlag.Name)
	}
	if ctx.IsSet(fillDeclarationsFlag.Name) {
		cfg.FillDeclarations = ctx.Bool(fillDeclarationsFlag.Name)
	}
	if ctx.IsSet(astFlag.Name) {
		cfg.PrintAST = ctx.Bool(astFlag.Name)
	}
	if ctx.IsSet(quietIRFlag.Name) {
		cfg.PrintIR = !ctx.Bool(quietIRFlag.Name)
	}
	if ctx.IsSet(maxStepsFlag.Name) {
		cfg.MaxSteps = ctx.Int(maxStepsFlag.Name)
	}
	if ctx.IsSet(emitLLVMFlag.Name) {
		cfg.EmitLLVM = ctx.String(emitLLVMFlag.Name)
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger := kcli.NewLogger(os.Stderr, cfg.LogFormat, cfg.Verbose, cfg.Debug)
	logger.Debug("configuration: %+v", *cfg)

	return cfg, logger, nil
}

func oneFile(ctx *cli.Context) (string, error) {
	if ctx.NArg() != 1 {
		return "", fmt.Errorf("%s: expected one FILE argument, got %d", ctx.Command.Name, ctx.NArg())
	}
	return ctx.Args().First(), nil
}

// output is where one compilation writes.
type output struct {
	stdout io.Writer
	ir     io.Writer
	diag   io.Writer
}

var std = output{stdout: os.Stdout, ir: os.Stderr, diag: os.Stderr}

// prepare reads path into a fresh session and parses it.
func prepare(cfg *kcli.Config, logger *kcli.Logger, path string, out output) (*session.Session, *session.Unit, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	sess := session.New(path, session.Options{
		Config:      cfg,
		Logger:      logger,
		Output:      out.stdout,
		IROut:       out.ir,
		Diagnostics: out.diag,
	})
	return sess, sess.Prepare(string(src), path), nil
}

// finish generates a prepared unit. The returned error only reports that
// something failed; details went to the session's diagnostics writer.
func finish(logger *kcli.Logger, path string, sess *session.Session, unit *session.Unit) error {
	if err := sess.Generate(unit); err != nil {
		logger.Debug("%s: %v", path, err)
		return fmt.Errorf("%s: %s", path, sess.Reporter().Summary())
	}
	return nil
}

// compile runs path through a fresh session and returns it.
func compile(cfg *kcli.Config, logger *kcli.Logger, path string, out output) (*session.Session, error) {
	sess, unit, err := prepare(cfg, logger, path, out)
	if err != nil {
		return nil, err
	}
	return sess, finish(logger, path, sess, unit)
}

func traceScan(w io.Writer, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	for _, tok := range lexer.Tokenize(string(src), path) {
		fmt.Fprintf(w, "%-16s %-12s %q\n", tok.Span.Start, tok.Type, tok.Literal)
	}
	return nil
}

func runCommand(ctx *cli.Context) error {
	cfg, logger, err := settings(ctx)
	if err != nil {
		return err
	}
	files := []string(ctx.Args())
	if len(files) == 0 {
		return errors.New("run: expected at least one FILE")
	}

	if ctx.Bool(traceScanFlag.Name) {
		for _, f := range files {
			if err := traceScan(os.Stdout, f); err != nil {
				return err
			}
		}
	}

	if ctx.Bool(watchFlag.Name) {
		if len(files) != 1 {
			return errors.New("run --watch: expected exactly one FILE")
		}
		return watchFile(cfg, logger, files[0])
	}

	if len(files) == 1 {
		if _, err := compile(cfg, logger, files[0], std); err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		return nil
	}

	return runAll(cfg, logger, files, os.Stdout, os.Stderr)
}

// runAll compiles independent files concurrently and writes their output
// in argument order. Files are parsed in that order first, which fixes the
// wrapper names each one prints.
func runAll(cfg *kcli.Config, logger *kcli.Logger, files []string, stdout, stderr io.Writer) error {
	type result struct {
		stdout, stderr bytes.Buffer
		sess           *session.Session
		unit           *session.Unit
		err            error
	}
	results := make([]*result, len(files))
	for i, f := range files {
		r := &result{}
		results[i] = r
		r.sess, r.unit, r.err = prepare(cfg, logger, f, output{stdout: &r.stdout, ir: &r.stderr, diag: &r.stderr})
	}

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, f := range files {
		r := results[i]
		if r.err != nil {
			continue
		}
		g.Go(func() error {
			r.err = finish(logger, f, r.sess, r.unit)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, r := range results {
		_, _ = r.stderr.WriteTo(stderr)
		_, _ = r.stdout.WriteTo(stdout)
		if r.err != nil {
			errs = append(errs, r.err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	return nil
}

func watchFile(cfg *kcli.Config, logger *kcli.Logger, path string) error {
	w, err := watch.New(path)
	if err != nil {
		return err
	}
	defer w.Close()

	sigctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if _, err := compile(cfg, logger, path, std); err != nil {
		logger.Warn("%v", err)
	}
	logger.Info("watching %s", path)

	err = w.Run(sigctx, func(ev watch.Event) {
		logger.Info("%s changed, re-running", ev.Path)
		if _, err := compile(cfg, logger, path, std); err != nil {
			logger.Warn("%v", err)
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func astCommand(ctx *cli.Context) error {
	path, err := oneFile(ctx)
	if err != nil {
		return err
	}
	cfg, logger, err := settings(ctx)
	if err != nil {
		return err
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	sess := session.New(path, session.Options{Config: cfg, Logger: logger, Diagnostics: os.Stderr})
	seq, perr := sess.Parse(string(src), path)
	if err := ast.Print(os.Stdout, seq); err != nil {
		return err
	}
	fmt.Println()

	if perr != nil {
		return cli.NewExitError(sess.Reporter().Summary(), 1)
	}
	return nil
}

// generateOnly compiles path without evaluating or printing IR.
func generateOnly(ctx *cli.Context) (*session.Session, *kcli.Config, error) {
	path, err := oneFile(ctx)
	if err != nil {
		return nil, nil, err
	}
	cfg, logger, err := settings(ctx)
	if err != nil {
		return nil, nil, err
	}
	cfg.Evaluate = false
	cfg.PrintIR = false

	sess, err := compile(cfg, logger, path, std)
	if sess == nil {
		return nil, nil, err
	}
	if err != nil {
		return sess, cfg, cli.NewExitError(err.Error(), 1)
	}
	return sess, cfg, nil
}

func irCommand(ctx *cli.Context) error {
	sess, _, err := generateOnly(ctx)
	if sess != nil {
		fmt.Print(sess.Module().String())
	}
	return err
}

func buildCommand(ctx *cli.Context) error {
	sess, cfg, err := generateOnly(ctx)
	if err != nil {
		return err
	}
	if cfg.EmitLLVM == "" {
		return errors.New("build: --emit-llvm FILE is required")
	}

	if cfg.EmitLLVM == "-" {
		return llvm.Write(os.Stdout, sess.Module())
	}

	f, err := os.Create(cfg.EmitLLVM)
	if err != nil {
		return err
	}
	if err := llvm.Write(f, sess.Module()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func symbolsCommand(ctx *cli.Context) error {
	sess, _, err := generateOnly(ctx)
	if sess != nil {
		renderSymbols(os.Stdout, sess.Module(), eval.NewEngine(eval.Options{}).Builtins())
	}
	return err
}

// renderSymbols prints the function table.
func renderSymbols(w io.Writer, m *mir.Module, builtins []string) {
	native := make(map[string]bool, len(builtins))
	for _, b := range builtins {
		native[b] = true
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Function", "Arity", "Kind", "Blocks", "Instructions"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, fn := range m.Functions {
		kind := "defined"
		switch {
		case fn.IsDeclaration() && native[fn.Name]:
			kind = "builtin"
		case fn.IsDeclaration():
			kind = "external"
		}
		instrs := 0
		for _, b := range fn.Blocks {
			instrs += len(b.Instrs)
		}
		table.Append([]string{
			fn.Name,
			strconv.Itoa(len(fn.Params)),
			kind,
			strconv.Itoa(len(fn.Blocks)),
			strconv.Itoa(instrs),
		})
	}
	table.Render()
}

func replCommand(ctx *cli.Context) error {
	cfg, logger, err := settings(ctx)
	if err != nil {
		return err
	}
	sess := session.New("repl", session.Options{
		Config:      cfg,
		Logger:      logger,
		Output:      os.Stdout,
		IROut:       os.Stderr,
		Diagnostics: os.Stderr,
	})
	return repl.Run(sess)
}

func versionCommand(ctx *cli.Context) error {
	return kcli.PrintVersion(os.Stdout, "kaleido", ctx.Bool(jsonFlag.Name))
}
