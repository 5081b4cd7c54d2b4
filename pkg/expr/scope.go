package expr

import "sync"

// Var is a single scope entry. Get returns the current value; Set writes
// it back, or is nil for read-only entries. The directive layer backs
// Vars with signal accessors, so reading one inside an effect tracks.
type Var struct {
	Get func() any
	Set func(any)
}

// Constant returns a read-only Var holding a fixed value.
func Constant(v any) *Var {
	return &Var{Get: func() any { return v }}
}

// Stored returns a mutable Var backed by a plain variable.
// Used for scope entries created by assignment from handler statements.
func Stored(initial any) *Var {
	v := initial
	return &Var{
		Get: func() any { return v },
		Set: func(nv any) { v = nv },
	}
}

// Scope is a chain of name bindings. Resolution walks child to parent;
// definition always lands in the receiver, shadowing outer entries.
//
// One scope per bound document region: the root scope holds the p-data
// object's signals, each p-for row gets a child scope with the loop
// variable and index.
type Scope struct {
	parent *Scope

	mu   sync.RWMutex
	vars map[string]*Var
}

// NewScope creates a root scope.
func NewScope() *Scope {
	return &Scope{vars: make(map[string]*Var)}
}

// Child creates a scope nested in s.
func (s *Scope) Child() *Scope {
	return &Scope{parent: s, vars: make(map[string]*Var)}
}

// Parent returns the enclosing scope, or nil at the root.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Define binds a name in this scope, shadowing any outer binding.
func (s *Scope) Define(name string, v *Var) {
	s.mu.Lock()
	s.vars[name] = v
	s.mu.Unlock()
}

// Resolve finds the nearest binding for name, walking outward.
func (s *Scope) Resolve(name string) (*Var, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		v, ok := cur.vars[name]
		cur.mu.RUnlock()
		if ok {
			return v, true
		}
	}
	return nil, false
}

// Names returns the names bound in this scope only (not ancestors).
func (s *Scope) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.vars))
	for name := range s.vars {
		names = append(names, name)
	}
	return names
}
