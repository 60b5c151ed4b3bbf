package session

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orizon-lang/kaleido/internal/cli"
	"github.com/orizon-lang/kaleido/internal/codegen"
	kerrors "github.com/orizon-lang/kaleido/internal/errors"
)

func newSession(cfg *cli.Config) (*Session, *bytes.Buffer, *bytes.Buffer, *bytes.Buffer) {
	var out, ir, diags bytes.Buffer
	s := New("test", Options{Config: cfg, Output: &out, IROut: &ir, Diagnostics: &diags})
	return s, &out, &ir, &diags
}

func TestRunEvaluatesTopLevelForms(t *testing.T) {
	s, out, ir, _ := newSession(nil)

	require.NoError(t, s.Run("def sq(x) x * x; sq(3) + 1; extern putchard(c); putchard(72)", "a.kal"))

	require.Len(t, s.Results(), 2)
	assert.Equal(t, 10.0, s.Results()[0].Value)
	assert.Contains(t, out.String(), s.Results()[0].Name+" = 10\n")
	assert.Contains(t, out.String(), "H")
	assert.Contains(t, ir.String(), "define double @sq(double %x)")
	assert.Len(t, s.Module().Functions, 2, "wrappers are not kept")
}

func TestDefinitionsPersistAcrossRuns(t *testing.T) {
	s, _, _, _ := newSession(nil)
	require.NoError(t, s.Run("def inc(x) x + 1", "1"))
	require.NoError(t, s.Run("inc(inc(1))", "2"))
	assert.Equal(t, 3.0, s.Results()[0].Value)
}

func TestRunReportsSyntaxAndCodegenErrors(t *testing.T) {
	s, _, _, diags := newSession(nil)

	err := s.Run("def (x) 1; y; 2", "bad.kal")
	require.Error(t, err)
	assert.True(t, errors.Is(err, kerrors.ErrUnknownVariable))
	assert.Equal(t, 2, s.Reporter().ErrorCount())
	assert.Contains(t, diags.String(), "error[E0001]")
	require.Len(t, s.Results(), 1, "later forms still run")
}

func TestStopOnErrorSkipsGenerationAfterSyntaxError(t *testing.T) {
	cfg := cli.DefaultConfig()
	cfg.StopOnError = true
	s, _, _, _ := newSession(cfg)

	require.Error(t, s.Run("1 + ; 2", "x"))
	assert.Empty(t, s.Results())
}

func TestFillDeclarationsSwitch(t *testing.T) {
	src := "extern half(x); def quarter(x) half(half(x)); def half(x) x / 2; quarter(8)"

	s, _, _, _ := newSession(nil)
	err := s.Run(src, "x")
	assert.True(t, errors.Is(err, kerrors.ErrRedefinition))
	assert.Empty(t, s.Results())

	cfg := cli.DefaultConfig()
	cfg.FillDeclarations = true
	s, _, _, _ = newSession(cfg)
	require.NoError(t, s.Run(src, "x"))
	require.Len(t, s.Results(), 1)
	assert.Equal(t, 2.0, s.Results()[0].Value)
}

func TestPreparedUnitsKeepTheirOrder(t *testing.T) {
	a, _, _, _ := newSession(nil)
	b, _, _, _ := newSession(nil)
	ua := a.Prepare("1; 2", "a")
	ub := b.Prepare("3", "b")

	require.NoError(t, b.Generate(ub))
	require.NoError(t, a.Generate(ua))

	require.Len(t, a.Results(), 2)
	require.Len(t, b.Results(), 1)
	number := func(r Result) uint64 {
		n, err := strconv.ParseUint(strings.TrimPrefix(r.Name, codegen.AnonPrefix), 10, 64)
		require.NoError(t, err, r.Name)
		return n
	}
	first := number(a.Results()[0])
	assert.Equal(t, first+1, number(a.Results()[1]))
	assert.Equal(t, first+2, number(b.Results()[0]))
}

func TestConfigSwitches(t *testing.T) {
	cfg := cli.DefaultConfig()
	cfg.PrintIR = false
	cfg.Evaluate = false
	cfg.PrintAST = true
	s, out, ir, _ := newSession(cfg)

	require.NoError(t, s.Run("def f(x) x + 2; f(1)", "x"))
	assert.Empty(t, ir.String())
	assert.Empty(t, s.Results())
	assert.True(t, strings.HasPrefix(out.String(), "def f(x) (+ x 2)"), out.String())
}

func TestStepLimitIsReported(t *testing.T) {
	cfg := cli.DefaultConfig()
	cfg.MaxSteps = 100
	s, _, _, diags := newSession(cfg)

	err := s.Run("for i = 0, i < 1000 in i", "x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, kerrors.ErrStepLimit))
	assert.Contains(t, diags.String(), "STEP_LIMIT")
}
