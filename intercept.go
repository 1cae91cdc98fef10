package props

import (
	"context"
	"sort"
	"sync"
)

// Change describes a write being intercepted. Value holds the current
// candidate: the written value for the first interceptor, the previous
// interceptor's result afterwards.
type Change struct {
	Container *Container
	Property  string
	Previous  any
	Value     any
}

// InterceptFunc observes a write and returns the value that replaces the
// candidate. Returning an error aborts the write.
type InterceptFunc func(ctx context.Context, change Change) (any, error)

// Spec selects properties by its keys. Values are ignored.
type Spec map[string]any

// Names builds a Spec selecting names.
func Names(names ...string) Spec {
	spec := make(Spec, len(names))
	for _, name := range names {
		spec[name] = nil
	}
	return spec
}

func (s Spec) names() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Registration is the handle returned by OnSet. A propagated registration is
// installed on several containers and removed from all of them at once.
type Registration struct {
	names []string
	once  bool
	fn    InterceptFunc

	mu      sync.Mutex
	tables  []*interceptorTable
	fires   int
	removed bool
}

// Remove deregisters the callback everywhere it was installed. It reports
// whether this call removed it.
func (r *Registration) Remove() bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	if r.removed {
		r.mu.Unlock()
		return false
	}
	r.removed = true
	tables := r.tables
	r.tables = nil
	r.mu.Unlock()

	for _, table := range tables {
		table.remove(r)
	}
	return true
}

// Names returns the selected property names, sorted.
func (r *Registration) Names() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.names...)
}

// Fired returns how many times the callback ran.
func (r *Registration) Fired() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fires
}

// Active reports whether the registration still intercepts writes.
func (r *Registration) Active() bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.removed
}

// claim records a fire. A once registration is claimed by exactly one write
// and removed before its callback runs.
func (r *Registration) claim() bool {
	r.mu.Lock()
	if r.removed {
		r.mu.Unlock()
		return false
	}
	r.fires++
	if !r.once {
		r.mu.Unlock()
		return true
	}
	r.mu.Unlock()
	r.Remove()
	return true
}

func (r *Registration) attach(table *interceptorTable) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.removed {
		return false
	}
	r.tables = append(r.tables, table)
	return true
}

// interceptorTable maps property names to registrations in registration order.
type interceptorTable struct {
	mu      sync.RWMutex
	entries map[string][]*Registration
}

func newInterceptorTable() *interceptorTable {
	return &interceptorTable{entries: make(map[string][]*Registration)}
}

func (t *interceptorTable) add(reg *Registration, names []string) {
	if len(names) == 0 || !reg.attach(t) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, name := range names {
		t.entries[name] = append(t.entries[name], reg)
	}
}

func (t *interceptorTable) remove(reg *Registration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for name, regs := range t.entries {
		kept := regs[:0]
		for _, candidate := range regs {
			if candidate != reg {
				kept = append(kept, candidate)
			}
		}
		if len(kept) == 0 {
			delete(t.entries, name)
			continue
		}
		t.entries[name] = kept
	}
}

// matching returns a copy of the registrations for name so callbacks can run
// without holding the table lock.
func (t *interceptorTable) matching(name string) []*Registration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	regs := t.entries[name]
	if len(regs) == 0 {
		return nil
	}
	return append([]*Registration(nil), regs...)
}

// len returns the number of installed registrations for name.
func (t *interceptorTable) len(name string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries[name])
}

// apply runs the matching interceptors over change in registration order and
// returns the final candidate.
func (t *interceptorTable) apply(ctx context.Context, change Change) (any, int, error) {
	fired := 0
	for _, reg := range t.matching(change.Property) {
		if !reg.claim() {
			continue
		}
		fired++
		next, err := reg.fn(ctx, change)
		if err != nil {
			return nil, fired, err
		}
		change.Value = next
	}
	return change.Value, fired, nil
}

// OnSet registers fn for every property named by spec's keys. With once the
// registration removes itself after its first fire. With propagate it is also
// installed on every bound context, transitively, for each selected name that
// context declares.
func (c *Container) OnSet(spec Spec, once, propagate bool, fn InterceptFunc) (*Registration, error) {
	if fn == nil {
		return nil, &PropertyError{Op: "onSet", Schema: c.schema.Name(), Err: errNilInterceptor}
	}
	names := spec.names()
	for _, name := range names {
		if !c.schema.HasField(name) {
			return nil, unknownProperty("onSet", c.schema.Name(), name)
		}
	}
	reg := &Registration{names: names, once: once, fn: fn}
	c.table.add(reg, names)
	if propagate {
		visited := map[*Container]struct{}{c: {}}
		c.propagate(reg, names, visited)
	}
	return reg, nil
}

func (c *Container) propagate(reg *Registration, names []string, visited map[*Container]struct{}) {
	for _, binding := range c.bindings {
		parent := binding.Container
		if _, seen := visited[parent]; seen {
			continue
		}
		visited[parent] = struct{}{}
		declared := make([]string, 0, len(names))
		for _, name := range names {
			if parent.schema.HasField(name) {
				declared = append(declared, name)
			}
		}
		parent.table.add(reg, declared)
		parent.propagate(reg, names, visited)
	}
}
