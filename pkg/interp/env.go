package interp

import "sort"

// Env is a scoped environment for variable bindings.
// It supports parent-chained lookup for lexical scoping.
type Env struct {
	bindings map[string]Value
	parent   *Env
}

// NewEnv creates a new environment with an optional parent scope.
func NewEnv(parent *Env) *Env {
	return &Env{
		bindings: make(map[string]Value),
		parent:   parent,
	}
}

// Child creates a new child scope whose parent is this environment.
func (e *Env) Child() *Env {
	return NewEnv(e)
}

// Get looks up a variable by name, traversing parent scopes.
func (e *Env) Get(name string) (Value, bool) {
	if val, ok := e.bindings[name]; ok {
		return val, true
	}
	if e.parent != nil {
		return e.parent.Get(name)
	}
	return nil, false
}

// Set assigns a variable. If the name is bound in this scope or any parent
// the existing binding is updated in place; otherwise the name is bound in
// this scope. Updating in place is what lets reloaded code mutate its
// caller's variables.
func (e *Env) Set(name string, val Value) {
	for scope := e; scope != nil; scope = scope.parent {
		if _, ok := scope.bindings[name]; ok {
			scope.bindings[name] = val
			return
		}
	}
	e.bindings[name] = val
}

// SetLocal binds a variable in this scope only, shadowing any parent binding.
func (e *Env) SetLocal(name string, val Value) {
	e.bindings[name] = val
}

// Has checks whether a variable is defined in this scope or any parent.
func (e *Env) Has(name string) bool {
	if _, ok := e.bindings[name]; ok {
		return true
	}
	if e.parent != nil {
		return e.parent.Has(name)
	}
	return false
}

// Names returns every name visible from this scope, sorted, with inner
// shadowing collapsed.
func (e *Env) Names() []string {
	seen := make(map[string]bool)
	for scope := e; scope != nil; scope = scope.parent {
		for name := range scope.bindings {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Copy flattens the visible chain into a single fresh scope. Bindings are
// copied shallowly, so writes into the copy do not touch the original chain
// but shared composite values remain shared.
func (e *Env) Copy() *Env {
	fresh := NewEnv(nil)
	var fill func(*Env)
	fill = func(scope *Env) {
		if scope == nil {
			return
		}
		fill(scope.parent) // parents first so inner scopes win
		for name, val := range scope.bindings {
			fresh.bindings[name] = val
		}
	}
	fill(e)
	return fresh
}
