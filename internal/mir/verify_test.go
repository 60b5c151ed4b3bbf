package mir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// diamond builds: entry -> then|else -> merge with a phi.
func diamond(t *testing.T) (*Function, *Phi) {
	t.Helper()

	m := NewModule("test")
	f, err := m.NewFunction("f", []string{"c"})
	require.NoError(t, err)

	b := NewBuilder()
	entry := f.AddBlock("entry")
	then := f.AddBlock("then")
	els := f.AddBlock("else")
	merge := f.AddBlock("ifcont")

	b.SetInsertPoint(entry)
	cond := b.FCmp(CmpONE, f.Params[0], ConstFloat(0), "ifcond")
	b.CondBr(cond, then, els)

	b.SetInsertPoint(then)
	tv := b.FAdd(ConstFloat(1), ConstFloat(1), "t")
	b.Br(merge)

	b.SetInsertPoint(els)
	b.Br(merge)

	b.SetInsertPoint(merge)
	phi := b.Phi("iftmp")
	phi.AddIncoming(tv, then)
	phi.AddIncoming(ConstFloat(3), els)
	b.Ret(phi)

	return f, phi
}

func verifyMessages(err error) []string {
	var out []string
	if err == nil {
		return out
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			var ve *VerifyError
			if errors.As(e, &ve) {
				out = append(out, ve.Message)
			}
		}
	}
	return out
}

func TestVerifyAcceptsWellFormedDiamond(t *testing.T) {
	f, _ := diamond(t)
	assert.NoError(t, Verify(f))
}

func TestVerifyDeclarationIsValid(t *testing.T) {
	m := NewModule("test")
	f, err := m.NewFunction("ext", []string{"x"})
	require.NoError(t, err)
	assert.NoError(t, Verify(f))
}

func TestVerifyMissingTerminator(t *testing.T) {
	m := NewModule("test")
	f, err := m.NewFunction("f", nil)
	require.NoError(t, err)

	b := NewBuilder()
	b.SetInsertPoint(f.AddBlock("entry"))
	b.FAdd(ConstFloat(1), ConstFloat(2), "x")

	err = Verify(f)
	require.Error(t, err)
	assert.Contains(t, verifyMessages(err), "block does not end with a terminator")
}

func TestVerifyPhiMissingPredecessor(t *testing.T) {
	f, phi := diamond(t)
	phi.Incoming = phi.Incoming[:1]

	err := Verify(f)
	require.Error(t, err)
	assert.Contains(t, verifyMessages(err), "phi has 1 incoming values but block has 2 predecessors")
}

func TestVerifyPhiOperandMustDominatePredecessor(t *testing.T) {
	f, phi := diamond(t)
	// The value defined in "then" is not available on the edge from "else".
	phi.Incoming[1].Value = phi.Incoming[0].Value

	err := Verify(f)
	require.Error(t, err)
	assert.Contains(t, verifyMessages(err), `phi operand %t does not dominate predecessor "else"`)
}

func TestVerifyUseNotDominated(t *testing.T) {
	m := NewModule("test")
	f, err := m.NewFunction("f", nil)
	require.NoError(t, err)

	b := NewBuilder()
	entry := f.AddBlock("entry")
	left := f.AddBlock("left")
	right := f.AddBlock("right")

	b.SetInsertPoint(entry)
	b.CondBr(b.FCmp(CmpOLT, ConstFloat(0), ConstFloat(1), "c"), left, right)

	b.SetInsertPoint(left)
	v := b.FAdd(ConstFloat(1), ConstFloat(1), "v")
	b.Ret(v)

	b.SetInsertPoint(right)
	b.Ret(v)

	err = Verify(f)
	require.Error(t, err)
	assert.Contains(t, verifyMessages(err), "operand %v does not dominate its use")
}

func TestVerifyCallArity(t *testing.T) {
	m := NewModule("test")
	callee, err := m.NewFunction("g", []string{"a", "b"})
	require.NoError(t, err)
	f, err := m.NewFunction("f", nil)
	require.NoError(t, err)

	b := NewBuilder()
	b.SetInsertPoint(f.AddBlock("entry"))
	c := b.Call(callee, []Value{ConstFloat(1)}, "calltmp")
	b.Ret(c)

	err = Verify(f)
	require.Error(t, err)
	assert.Contains(t, verifyMessages(err), "call to @g with 1 arguments, want 2")
}

func TestVerifyAllocaOutsideEntry(t *testing.T) {
	m := NewModule("test")
	f, err := m.NewFunction("f", nil)
	require.NoError(t, err)

	b := NewBuilder()
	entry := f.AddBlock("entry")
	next := f.AddBlock("next")
	b.SetInsertPoint(entry)
	b.Br(next)

	b.SetInsertPoint(next)
	a := &Alloca{Name: "slot"}
	a.parent = next
	next.Instrs = append(next.Instrs, a)
	b.Ret(ConstFloat(0))

	err = Verify(f)
	require.Error(t, err)
	assert.Contains(t, verifyMessages(err), "alloca outside the entry block")
}

func TestVerifyConditionMustBeBoolean(t *testing.T) {
	m := NewModule("test")
	f, err := m.NewFunction("f", []string{"x"})
	require.NoError(t, err)

	b := NewBuilder()
	entry := f.AddBlock("entry")
	exit := f.AddBlock("exit")
	b.SetInsertPoint(entry)
	b.CondBr(f.Params[0], exit, exit)
	b.SetInsertPoint(exit)
	b.Ret(ConstFloat(0))

	err = Verify(f)
	require.Error(t, err)
	assert.Contains(t, verifyMessages(err), "operand %x has type double, want i1")
}

func TestVerifyDetachedBranchTarget(t *testing.T) {
	m := NewModule("test")
	f, err := m.NewFunction("f", nil)
	require.NoError(t, err)

	b := NewBuilder()
	b.SetInsertPoint(f.AddBlock("entry"))
	b.Br(f.NewBlock("nowhere"))

	err = Verify(f)
	require.Error(t, err)
	assert.Contains(t, verifyMessages(err), `branch to block "nowhere" outside the function layout`)
}

func TestVerifyRemovedFunctionCallee(t *testing.T) {
	m := NewModule("test")
	g, err := m.NewFunction("g", nil)
	require.NoError(t, err)
	f, err := m.NewFunction("f", nil)
	require.NoError(t, err)
	require.True(t, m.Remove(g))

	b := NewBuilder()
	b.SetInsertPoint(f.AddBlock("entry"))
	b.Ret(b.Call(g, nil, "calltmp"))

	err = Verify(f)
	require.Error(t, err)
	assert.Contains(t, verifyMessages(err), "call to @g which is not in this module")
}
