// Package resolver maps source names to the storage slots that hold them
// while a function is being generated.
//
// Scopes are not nested tables: a single map holds the visible binding of
// every name, and constructs that introduce names push shadow records on an
// explicit stack. Leaving a scope pops those records and reinstates the
// previous binding, or removes the name if it had none.
package resolver

import (
	"github.com/orizon-lang/kaleido/internal/mir"
)

// SymbolKind records which construct introduced a binding.
type SymbolKind int

const (
	SymbolKindParameter SymbolKind = iota
	SymbolKindInduction
	SymbolKindLocal
)

// String returns the string representation of SymbolKind.
func (sk SymbolKind) String() string {
	switch sk {
	case SymbolKindParameter:
		return "parameter"
	case SymbolKindInduction:
		return "induction"
	case SymbolKindLocal:
		return "local"
	default:
		return "unknown"
	}
}

// Symbol is a visible binding.
type Symbol struct {
	Name string
	Slot *mir.Alloca
	Kind SymbolKind
}

// Shadowed records the binding a name had before Shadow replaced it.
// Prev is nil when the name was unbound.
type Shadowed struct {
	Name string
	Prev *Symbol
}

// Environment is the name to slot mapping of the function being generated.
type Environment struct {
	symbols map[string]*Symbol
	stack   []Shadowed

	lookups int
	misses  int
}

// NewEnvironment returns an empty environment.
func NewEnvironment() *Environment {
	return &Environment{symbols: make(map[string]*Symbol)}
}

// Clear drops every binding and every pending shadow record.
func (e *Environment) Clear() {
	e.symbols = make(map[string]*Symbol)
	e.stack = e.stack[:0]
}

// Bind installs a binding without recording what it replaces.
func (e *Environment) Bind(name string, slot *mir.Alloca, kind SymbolKind) {
	e.symbols[name] = &Symbol{Name: name, Slot: slot, Kind: kind}
}

// Lookup returns the slot currently bound to name.
func (e *Environment) Lookup(name string) (*mir.Alloca, bool) {
	e.lookups++
	sym, ok := e.symbols[name]
	if !ok {
		e.misses++
		return nil, false
	}
	return sym.Slot, true
}

// Symbol returns the visible binding of name.
func (e *Environment) Symbol(name string) (*Symbol, bool) {
	sym, ok := e.symbols[name]
	return sym, ok
}

// Mark returns the current depth of the shadow stack.
func (e *Environment) Mark() int { return len(e.stack) }

// Shadow binds name to slot and pushes a record of the previous binding.
func (e *Environment) Shadow(name string, slot *mir.Alloca, kind SymbolKind) Shadowed {
	rec := Shadowed{Name: name, Prev: e.symbols[name]}
	e.stack = append(e.stack, rec)
	e.symbols[name] = &Symbol{Name: name, Slot: slot, Kind: kind}

	return rec
}

// Restore reinstates a single record.
func (e *Environment) Restore(rec Shadowed) {
	if rec.Prev == nil {
		delete(e.symbols, rec.Name)
		return
	}
	e.symbols[rec.Name] = rec.Prev
}

// RestoreScope pops every record pushed since mark. Records are undone
// newest first, so a name shadowed twice in one scope ends up with the
// binding it had before the scope began.
func (e *Environment) RestoreScope(mark int) {
	if mark < 0 {
		mark = 0
	}
	for len(e.stack) > mark {
		rec := e.stack[len(e.stack)-1]
		e.stack = e.stack[:len(e.stack)-1]
		e.Restore(rec)
	}
}

// Len returns the number of visible bindings.
func (e *Environment) Len() int { return len(e.symbols) }

// Names returns the visible names in no particular order.
func (e *Environment) Names() []string {
	names := make([]string, 0, len(e.symbols))
	for n := range e.symbols {
		names = append(names, n)
	}
	return names
}

// EnvironmentStatistics reports lookup activity.
type EnvironmentStatistics struct {
	Bindings int
	Depth    int
	Lookups  int
	Misses   int
}

// GetStatistics returns lookup counters for debug logging.
func (e *Environment) GetStatistics() EnvironmentStatistics {
	return EnvironmentStatistics{
		Bindings: len(e.symbols),
		Depth:    len(e.stack),
		Lookups:  e.lookups,
		Misses:   e.misses,
	}
}
