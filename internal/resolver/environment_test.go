package resolver

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orizon-lang/kaleido/internal/mir"
)

func slots(t *testing.T, names ...string) []*mir.Alloca {
	t.Helper()
	m := mir.NewModule("test")
	f, err := m.NewFunction("f", nil)
	require.NoError(t, err)

	out := make([]*mir.Alloca, len(names))
	for i, n := range names {
		out[i] = f.EntryAlloca(n)
	}
	return out
}

func TestShadowRestoresOuterBinding(t *testing.T) {
	s := slots(t, "x", "x")
	env := NewEnvironment()
	env.Bind("x", s[0], SymbolKindParameter)

	mark := env.Mark()
	env.Shadow("x", s[1], SymbolKindLocal)

	got, ok := env.Lookup("x")
	require.True(t, ok)
	assert.Same(t, s[1], got)

	env.RestoreScope(mark)
	got, ok = env.Lookup("x")
	require.True(t, ok)
	assert.Same(t, s[0], got)
}

func TestShadowOfUnboundNameIsRemoved(t *testing.T) {
	s := slots(t, "i")
	env := NewEnvironment()

	rec := env.Shadow("i", s[0], SymbolKindInduction)
	assert.Nil(t, rec.Prev)

	env.Restore(rec)
	_, ok := env.Lookup("i")
	assert.False(t, ok)
	assert.Equal(t, 1, env.GetStatistics().Misses)
}

func TestRestoreScopeUndoesDoubleShadowInOneScope(t *testing.T) {
	s := slots(t, "a", "a", "a")
	env := NewEnvironment()
	env.Bind("a", s[0], SymbolKindLocal)

	mark := env.Mark()
	env.Shadow("a", s[1], SymbolKindLocal)
	env.Shadow("a", s[2], SymbolKindLocal)
	env.RestoreScope(mark)

	got, _ := env.Lookup("a")
	assert.Same(t, s[0], got)
	assert.Equal(t, 0, env.Mark())
}

func TestClearDropsBindingsAndRecords(t *testing.T) {
	s := slots(t, "x", "y")
	env := NewEnvironment()
	env.Bind("x", s[0], SymbolKindParameter)
	env.Shadow("y", s[1], SymbolKindLocal)

	env.Clear()

	assert.Equal(t, 0, env.Len())
	assert.Equal(t, 0, env.Mark())
}

func TestShadowRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("nested scopes restore the exact prior environment", prop.ForAll(
		func(outerIdx []int, innerIdx []int) bool {
			pool := []string{"a", "b", "c", "i", "j"}
			outer := make([]string, len(outerIdx))
			for k, i := range outerIdx {
				outer[k] = pool[i]
			}
			inner := make([]string, len(innerIdx))
			for k, i := range innerIdx {
				inner[k] = pool[i]
			}
			all := append(append([]string{}, outer...), inner...)
			m := mir.NewModule("prop")
			f, _ := m.NewFunction("f", nil)

			env := NewEnvironment()
			for _, n := range outer {
				env.Bind(n, f.EntryAlloca(n), SymbolKindLocal)
			}

			before := make(map[string]*mir.Alloca)
			for _, n := range all {
				if s, ok := env.Lookup(n); ok {
					before[n] = s
				}
			}

			mark := env.Mark()
			for _, n := range inner {
				env.Shadow(n, f.EntryAlloca(n), SymbolKindLocal)
			}
			env.RestoreScope(mark)

			for _, n := range all {
				s, ok := env.Lookup(n)
				prev, had := before[n]
				if ok != had || s != prev {
					return false
				}
			}
			return env.Mark() == mark
		},
		gen.SliceOf(gen.IntRange(0, 3)),
		gen.SliceOf(gen.IntRange(0, 4)),
	))

	properties.TestingRun(t)
}
