package props

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Binding ties a parent container to the role it plays for a child.
type Binding struct {
	Role      string
	Container *Container
}

// Bind pairs role with c for WithContexts.
func Bind(role string, c *Container) Binding {
	return Binding{Role: role, Container: c}
}

// WithParent binds c under the role its schema declares for bare parents.
// It is equivalent to WithContexts(Bind(c.Schema().RoleName(), c)).
func WithParent(c *Container) Option {
	return func(cfg *containerConfig) {
		cfg.bindings = append(cfg.bindings, Binding{Container: c})
	}
}

// WithContexts binds named parent contexts in the given order.
func WithContexts(bindings ...Binding) Option {
	return func(cfg *containerConfig) {
		cfg.bindings = append(cfg.bindings, bindings...)
	}
}

// WithContextMap binds a role to container mapping. Bindings are ordered by
// the schema's role declaration order, unknown roles last by name.
func WithContextMap(contexts map[string]*Container) Option {
	return func(cfg *containerConfig) {
		if len(contexts) == 0 {
			return
		}
		cfg.contextMap = contexts
	}
}

// resolveBindings validates cfg's bindings against schema and returns them
// with bare parents resolved to their role names.
func resolveBindings(schema *Schema, cfg containerConfig) ([]Binding, error) {
	bindings := make([]Binding, 0, len(cfg.bindings)+len(cfg.contextMap))
	for _, binding := range cfg.bindings {
		if binding.Role == "" && binding.Container != nil {
			binding.Role = binding.Container.Schema().RoleName()
		}
		bindings = append(bindings, binding)
	}
	bindings = append(bindings, orderContextMap(schema, cfg.contextMap)...)

	seen := make(map[string]struct{}, len(bindings))
	for _, binding := range bindings {
		if binding.Container == nil {
			return nil, &ContextError{Schema: schema.Name(), Role: binding.Role, Reason: "container is nil"}
		}
		role, ok := schema.Role(binding.Role)
		if !ok {
			return nil, &ContextError{Schema: schema.Name(), Role: binding.Role, Reason: "role not declared"}
		}
		if _, dup := seen[binding.Role]; dup {
			return nil, &ContextError{Schema: schema.Name(), Role: binding.Role, Reason: "role bound twice"}
		}
		seen[binding.Role] = struct{}{}
		if binding.Container.Schema() != role.Schema {
			return nil, &ContextError{
				Schema: schema.Name(),
				Role:   binding.Role,
				Reason: fmt.Sprintf("expected %s, got %s", role.Schema.Name(), binding.Container.Schema().Name()),
			}
		}
	}
	return bindings, nil
}

func orderContextMap(schema *Schema, contexts map[string]*Container) []Binding {
	if len(contexts) == 0 {
		return nil
	}
	roles := make([]string, 0, len(contexts))
	for role := range contexts {
		roles = append(roles, role)
	}
	position := func(role string) int {
		if idx, ok := schema.roleIdx[role]; ok {
			return idx
		}
		return len(schema.roles)
	}
	sort.Slice(roles, func(i, j int) bool {
		pi, pj := position(roles[i]), position(roles[j])
		if pi == pj {
			return roles[i] < roles[j]
		}
		return pi < pj
	})
	out := make([]Binding, len(roles))
	for i, role := range roles {
		out[i] = Binding{Role: role, Container: contexts[role]}
	}
	return out
}

// scopeKey identifies a binding set independent of the order it was given in.
func scopeKey(bindings []Binding) (string, *Container) {
	sorted := make([]Binding, len(bindings))
	copy(sorted, bindings)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Role == sorted[j].Role {
			return sorted[i].Container.serial < sorted[j].Container.serial
		}
		return sorted[i].Role < sorted[j].Role
	})
	parts := make([]string, len(sorted))
	for i, binding := range sorted {
		parts[i] = binding.Role + "=" + strconv.FormatUint(binding.Container.serial, 10)
	}
	return strings.Join(parts, ";"), sorted[0].Container
}

// acquireStore returns the store shared by every container bound to exactly
// bindings, creating it on first use. created reports whether it is new.
func acquireStore(bindings []Binding) (s *store, created bool) {
	if len(bindings) == 0 {
		return newStore(), true
	}
	key, anchor := scopeKey(bindings)
	anchor.scopesMu.Lock()
	defer anchor.scopesMu.Unlock()
	if existing, ok := anchor.scopes[key]; ok {
		return existing, false
	}
	if anchor.scopes == nil {
		anchor.scopes = make(map[string]*store)
	}
	s = newStore()
	anchor.scopes[key] = s
	return s, true
}
