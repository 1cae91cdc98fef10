package props

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/goliatone/go-props/layering"
)

const (
	// Recommended priorities for common layering patterns. Higher numbers win.
	ScopePrioritySystem = 100
	ScopePriorityTenant = 200
	ScopePriorityOrg    = 300
	ScopePriorityTeam   = 400
	ScopePriorityUser   = 500
)

// Scope models a named precedence bucket (system, tenant, user, etc.). Higher
// priority values represent stronger layers.
type Scope struct {
	Name     string         `json:"name"`
	Label    string         `json:"label,omitempty"`
	Priority int            `json:"priority"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ScopeOption configures metadata on Scope creation.
type ScopeOption func(*scopeConfig)

type scopeConfig struct {
	label    string
	metadata map[string]any
}

// WithScopeLabel sets a human-friendly label on the scope.
func WithScopeLabel(label string) ScopeOption {
	return func(cfg *scopeConfig) {
		cfg.label = label
	}
}

// WithScopeMetadata attaches arbitrary metadata to the scope. The map is copied
// so the resulting Scope remains immutable even if the caller mutates their
// reference.
func WithScopeMetadata(metadata map[string]any) ScopeOption {
	return func(cfg *scopeConfig) {
		if len(metadata) == 0 {
			return
		}
		cfg.metadata = copyMetadata(metadata)
	}
}

// NewScope builds a Scope with the supplied configuration. Validation is
// deferred to Stack construction.
func NewScope(name string, priority int, opts ...ScopeOption) Scope {
	cfg := scopeConfig{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	return Scope{
		Name:     name,
		Label:    cfg.label,
		Priority: priority,
		Metadata: copyMetadata(cfg.metadata),
	}
}

func (s Scope) clone() Scope {
	s.Metadata = copyMetadata(s.Metadata)
	return s
}

// Layer pairs a scope with the default values captured for it.
type Layer struct {
	Scope      Scope
	Values     map[string]any
	SnapshotID string
}

// LayerOption configures optional metadata for a layer.
type LayerOption func(*Layer)

// WithSnapshotID sets the snapshot identifier used for auditing.
func WithSnapshotID(id string) LayerOption {
	return func(layer *Layer) {
		layer.SnapshotID = id
	}
}

// NewLayer constructs a Layer holding copies of scope and values.
func NewLayer(scope Scope, values map[string]any, opts ...LayerOption) Layer {
	layer := Layer{
		Scope:  scope.clone(),
		Values: layering.CloneSnapshot(values),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&layer)
	}
	return layer
}

func (l Layer) clone() Layer {
	return Layer{
		Scope:      l.Scope.clone(),
		Values:     layering.CloneSnapshot(l.Values),
		SnapshotID: l.SnapshotID,
	}
}

var (
	// ErrScopeNameRequired indicates a missing scope name.
	ErrScopeNameRequired = errors.New("scope: name must be provided")
	// ErrDuplicateScopeName indicates Stack construction received multiple
	// layers with the same scope name.
	ErrDuplicateScopeName = errors.New("scope: names must be unique")
	// ErrPriorityOrder indicates Stack construction detected duplicate
	// priorities.
	ErrPriorityOrder = errors.New("scope: priorities must be strictly ordered")
)

// Stack is an immutable set of default layers ordered from strongest to
// weakest.
type Stack struct {
	layers []Layer
}

// NewStack validates and sorts layers so the highest priority comes first.
func NewStack(layers ...Layer) (*Stack, error) {
	if len(layers) == 0 {
		return &Stack{}, nil
	}

	seenNames := make(map[string]struct{}, len(layers))
	copied := make([]Layer, len(layers))
	for i, layer := range layers {
		layer := layer.clone()
		if layer.Scope.Name == "" {
			return nil, ErrScopeNameRequired
		}
		if _, ok := seenNames[layer.Scope.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateScopeName, layer.Scope.Name)
		}
		seenNames[layer.Scope.Name] = struct{}{}
		copied[i] = layer
	}

	sort.Slice(copied, func(i, j int) bool {
		if copied[i].Scope.Priority == copied[j].Scope.Priority {
			return copied[i].Scope.Name < copied[j].Scope.Name
		}
		return copied[i].Scope.Priority > copied[j].Scope.Priority
	})

	for i := 1; i < len(copied); i++ {
		if copied[i-1].Scope.Priority <= copied[i].Scope.Priority {
			return nil, fmt.Errorf("%w: %d", ErrPriorityOrder, copied[i].Scope.Priority)
		}
	}

	return &Stack{layers: copied}, nil
}

// Layers returns copies of the layers, strongest first.
func (s *Stack) Layers() []Layer {
	if s == nil || len(s.layers) == 0 {
		return nil
	}
	out := make([]Layer, len(s.layers))
	for i := range s.layers {
		out[i] = s.layers[i].clone()
	}
	return out
}

// Len returns the number of layers in the stack.
func (s *Stack) Len() int {
	if s == nil {
		return 0
	}
	return len(s.layers)
}

// Merge resolves the stack into Defaults that remember which layer supplied
// each value.
func (s *Stack) Merge() (*Defaults, error) {
	if s == nil || len(s.layers) == 0 {
		return nil, fmt.Errorf("scope: stack must include at least one layer")
	}
	snapshots := make([]map[string]any, len(s.layers))
	for i := range s.layers {
		snapshots[i] = s.layers[i].Values
	}
	return &Defaults{
		values: layering.MergeSnapshots(snapshots...),
		layers: s.Layers(),
	}, nil
}

// SystemTenantOrgTeamUser assembles the canonical five-layer stack (system,
// tenant, org, team, user) and returns the merged defaults.
func SystemTenantOrgTeamUser(system, tenant, org, team, user map[string]any) (*Defaults, error) {
	stack, err := NewStack(
		NewLayer(NewScope("user", ScopePriorityUser, WithScopeLabel("User")), user),
		NewLayer(NewScope("team", ScopePriorityTeam, WithScopeLabel("Team")), team),
		NewLayer(NewScope("org", ScopePriorityOrg, WithScopeLabel("Organization")), org),
		NewLayer(NewScope("tenant", ScopePriorityTenant, WithScopeLabel("Tenant")), tenant),
		NewLayer(NewScope("system", ScopePrioritySystem, WithScopeLabel("System Defaults")), system),
	)
	if err != nil {
		return nil, err
	}
	return stack.Merge()
}

// Defaults is a merged set of default construction values. It implements
// DefaultsLoader.
type Defaults struct {
	values map[string]any
	layers []Layer
}

// Values returns a copy of the merged values.
func (d *Defaults) Values() map[string]any {
	if d == nil {
		return map[string]any{}
	}
	return layering.CloneSnapshot(d.values)
}

// Source returns the layer whose value for name wins.
func (d *Defaults) Source(name string) (Layer, bool) {
	if d == nil {
		return Layer{}, false
	}
	for _, layer := range d.layers {
		if _, ok := layer.Values[name]; ok {
			return layer.clone(), true
		}
	}
	return Layer{}, false
}

// LoadDefaults implements DefaultsLoader.
func (d *Defaults) LoadDefaults(ctx context.Context, _ *Schema) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.Values(), nil
}

func copyMetadata(origin map[string]any) map[string]any {
	if len(origin) == 0 {
		return nil
	}
	out := make(map[string]any, len(origin))
	for key, value := range origin {
		out[key] = value
	}
	return out
}
