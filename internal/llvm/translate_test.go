package llvm

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orizon-lang/kaleido/internal/codegen"
	"github.com/orizon-lang/kaleido/internal/mir"
	"github.com/orizon-lang/kaleido/internal/parser"
)

func generate(t *testing.T, src string) *mir.Module {
	t.Helper()
	seq, err := parser.ParseString(src, "llvm.kal")
	require.NoError(t, err)

	m := mir.NewModule("llvm.kal")
	require.NoError(t, codegen.NewGenerator(context.Background(), m, codegen.Options{FillDeclarations: true}).Generate(seq))
	return m
}

func TestTranslateDeclarationsAndCalls(t *testing.T) {
	m := generate(t, "extern sin(x); def wave(x y) sin(x) * y + 1")

	out, err := Translate(m)
	require.NoError(t, err)
	require.Len(t, out.Funcs, 2)

	text := out.String()
	assert.Contains(t, text, "declare double @sin(double")
	assert.Contains(t, text, "define double @wave(")
	assert.Contains(t, text, "call double @sin(")
	assert.Contains(t, text, "fmul double")
	assert.Contains(t, text, "fadd double")
}

func TestTranslateControlFlow(t *testing.T) {
	m := generate(t, `
def pick(a b) if a < b then a else b;
def sum(n) var s = 0 in (for i = 0, i < n in s = s + i) : s`)

	out, err := Translate(m)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "fcmp olt double")
	assert.Contains(t, text, "phi double")
	assert.Contains(t, text, "alloca double")
	assert.Contains(t, text, "br i1")
	assert.Equal(t, 2, strings.Count(text, "phi double"))
}

func TestTranslateForwardCall(t *testing.T) {
	m := generate(t, "extern b(x); def a(x) b(x) + 1; def b(x) x * 2")

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, m))
	assert.Contains(t, buf.String(), "define double @b(")
	assert.NotContains(t, buf.String(), "declare double @b")
}

func TestTranslateRejectsForeignCallee(t *testing.T) {
	other := mir.NewModule("other")
	ext, err := other.NewFunction("ext", nil)
	require.NoError(t, err)

	m := mir.NewModule("main")
	fn, err := m.NewFunction("f", nil)
	require.NoError(t, err)
	bd := mir.NewBuilder()
	bd.SetInsertPoint(fn.AddBlock("entry"))
	bd.Ret(bd.Call(ext, nil, "r"))

	_, err = Translate(m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in this module")
}
