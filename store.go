package props

import (
	"sync"

	"github.com/goliatone/go-props/layering"
)

// store is the backing storage for property values. Sibling containers hold
// the same *store when their bound contexts are identical. A property name is
// shared only between fields of the kind that claimed it first.
type store struct {
	mu     sync.RWMutex
	values map[string]any
	kinds  map[string]Kind
}

func newStore() *store {
	return &store{values: make(map[string]any), kinds: make(map[string]Kind)}
}

// claim reports whether a field of kind may live in this store under name.
func (s *store) claim(name string, kind Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	claimed, ok := s.kinds[name]
	if !ok {
		s.kinds[name] = kind
		return true
	}
	return claimed == kind
}

func (s *store) holds(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.kinds[name]
	return ok
}

func (s *store) get(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[name]
	return layering.Clone(value), ok
}

// set commits value and returns the previous value.
func (s *store) set(name string, value any) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.values[name]
	s.values[name] = value
	return old
}

// setIfMissing stores the value produced by fn unless name already holds one.
func (s *store) setIfMissing(name string, fn func() any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[name]; ok {
		return
	}
	s.values[name] = fn()
}

// snapshot copies the values for names, skipping those not stored.
func (s *store) snapshot(names []string) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(names))
	for _, name := range names {
		if value, ok := s.values[name]; ok {
			out[name] = layering.Clone(value)
		}
	}
	return out
}
