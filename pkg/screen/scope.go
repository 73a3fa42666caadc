package screen

import (
	"maps"
	"slices"
)

// Reserved scope keys.
const (
	// KeyScope holds the scope itself.
	KeyScope = "_scope"
	// KeyName holds the nesting marker: 0 at top level, a Nesting inside use.
	KeyName = "_name"
	// KeyDebug is true while the evaluation is being profiled with debug output.
	KeyDebug = "_debug"
	// KeyArgs holds positional arguments for parameterized screens.
	KeyArgs = "_args"
	// KeyKwargs holds keyword arguments for parameterized screens.
	KeyKwargs = "_kwargs"
)

// Nesting is the marker stored under KeyName for screens evaluated by use.
type Nesting struct {
	// Parent is the enclosing marker supplied by the caller.
	Parent any
	// Name is the used screen's name.
	Name []string
}

// Scope is the ordered, string-keyed variable mapping a screen callback is
// evaluated with.
type Scope struct {
	keys   []string
	values map[string]any
}

// NewScope creates an empty scope.
func NewScope() *Scope {
	return &Scope{values: make(map[string]any)}
}

// ScopeOf creates a scope from m, ordering keys lexically.
func ScopeOf(m map[string]any) *Scope {
	s := NewScope()
	s.Merge(m)
	return s
}

// Get returns the value stored under key.
func (s *Scope) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Lookup returns the value stored under key, or nil.
func (s *Scope) Lookup(key string) any {
	return s.values[key]
}

// Set stores v under key, appending key if it is new.
func (s *Scope) Set(key string, v any) {
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = v
}

// Delete removes key.
func (s *Scope) Delete(key string) {
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	s.keys = slices.DeleteFunc(s.keys, func(k string) bool { return k == key })
}

// Merge stores every entry of m, new keys in lexical order.
func (s *Scope) Merge(m map[string]any) {
	for _, k := range slices.Sorted(maps.Keys(m)) {
		s.Set(k, m[k])
	}
}

// Keys returns the keys in insertion order.
func (s *Scope) Keys() []string {
	return slices.Clone(s.keys)
}

// Len returns the number of entries.
func (s *Scope) Len() int {
	return len(s.keys)
}

// Copy returns a shallow copy.
func (s *Scope) Copy() *Scope {
	if s == nil {
		return NewScope()
	}
	return &Scope{
		keys:   slices.Clone(s.keys),
		values: maps.Clone(s.values),
	}
}

// Vars returns the entries handed to the expression evaluator: everything
// except the self-reference, nesting marker and debug flag. A parameterized
// screen's _args and _kwargs stay visible.
func (s *Scope) Vars() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		switch k {
		case KeyScope, KeyName, KeyDebug:
			continue
		}
		out[k] = v
	}
	return out
}

// persistable returns the entries worth saving: everything except the
// self-reference, nesting marker and debug flag.
func (s *Scope) persistable() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		switch k {
		case KeyScope, KeyName, KeyDebug:
			continue
		}
		out[k] = v
	}
	return out
}
