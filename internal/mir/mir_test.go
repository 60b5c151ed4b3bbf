package mir

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleFunctionTable(t *testing.T) {
	m := NewModule("test")

	f, err := m.NewFunction("f", []string{"x", "y"})
	require.NoError(t, err)
	assert.Same(t, f, m.Function("f"))
	assert.Same(t, m, f.Module())
	assert.True(t, f.IsDeclaration())

	_, err = m.NewFunction("f", nil)
	assert.Error(t, err, "duplicate names are rejected")

	assert.True(t, m.Remove(f))
	assert.Nil(t, m.Function("f"))
	assert.Nil(t, f.Module())
	assert.False(t, m.Remove(f))
}

func TestEntryAllocaStaysAtTop(t *testing.T) {
	m := NewModule("test")
	f, err := m.NewFunction("f", []string{"x"})
	require.NoError(t, err)

	b := NewBuilder()
	b.SetInsertPoint(f.AddBlock("entry"))

	first := f.EntryAlloca("x")
	b.Store(f.Params[0], first)
	second := f.EntryAlloca("i")

	entry := f.Entry()
	require.Len(t, entry.Instrs, 3)
	assert.Same(t, first, entry.Instrs[0])
	assert.Same(t, second, entry.Instrs[1])
	assert.IsType(t, &Store{}, entry.Instrs[2])

	// Params share the name space with locals.
	assert.Equal(t, "x1", first.Name)
}

func TestResetTurnsBodyIntoDeclaration(t *testing.T) {
	m := NewModule("test")
	f, err := m.NewFunction("f", []string{"a"})
	require.NoError(t, err)

	b := NewBuilder()
	blk := f.AddBlock("entry")
	b.SetInsertPoint(blk)
	b.Ret(ConstFloat(1))

	f.Reset()
	assert.True(t, f.IsDeclaration())
	assert.False(t, blk.Attached())
	assert.Equal(t, "declare double @f(double %a)\n", f.String())

	// A fresh body reuses the entry name.
	assert.Equal(t, "entry", f.AddBlock("entry").Name)
}

func TestPrinting(t *testing.T) {
	m := NewModule("demo")
	f, err := m.NewFunction("twice", []string{"x"})
	require.NoError(t, err)

	b := NewBuilder()
	b.SetInsertPoint(f.AddBlock("entry"))
	slot := f.EntryAlloca("x")
	b.Store(f.Params[0], slot)
	v := b.Load(slot, "x")
	sum := b.FAdd(v, v, "addtmp")
	b.Ret(sum)

	want := strings.Join([]string{
		"define double @twice(double %x) {",
		"entry:",
		"  %x1 = alloca double",
		"  store double %x, double* %x1",
		"  %x2 = load double, double* %x1",
		"  %addtmp = fadd double %x2, %x2",
		"  ret double %addtmp",
		"}",
		"",
	}, "\n")
	assert.Equal(t, want, f.String())
	assert.True(t, strings.HasPrefix(m.String(), "; ModuleID = 'demo'\n"))
}

func TestConstIdent(t *testing.T) {
	assert.Equal(t, "1.0", ConstFloat(1).Ident())
	assert.Equal(t, "0.5", ConstFloat(0.5).Ident())
	assert.Equal(t, "-3.0", ConstFloat(-3).Ident())
	assert.Equal(t, "1e+21", ConstFloat(1e21).Ident())
}

func TestSuccsAndPreds(t *testing.T) {
	m := NewModule("test")
	f, err := m.NewFunction("f", nil)
	require.NoError(t, err)

	b := NewBuilder()
	entry := f.AddBlock("entry")
	then := f.AddBlock("then")
	els := f.AddBlock("else")

	b.SetInsertPoint(entry)
	cond := b.FCmp(CmpONE, ConstFloat(1), ConstFloat(0), "ifcond")
	b.CondBr(cond, then, els)

	assert.Equal(t, []*BasicBlock{then, els}, entry.Succs())
	assert.Equal(t, []*BasicBlock{entry}, then.Preds())
	assert.Empty(t, entry.Preds())
}

func TestBuilderPanicsWithoutInsertPoint(t *testing.T) {
	assert.Panics(t, func() { NewBuilder().Ret(ConstFloat(0)) })
}
