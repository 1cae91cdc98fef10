package props

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry keeps schemas by name and the options applied to every container
// it builds.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
	opts    []Option
}

// NewRegistry constructs an empty registry. opts apply to every container the
// registry builds, before the per-call options.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		schemas: make(map[string]*Schema),
		opts:    append([]Option(nil), opts...),
	}
}

// Register stores schemas under their names.
func (r *Registry) Register(schemas ...*Schema) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, schema := range schemas {
		if schema == nil {
			return fmt.Errorf("%w: schema is nil", ErrInvalidSchema)
		}
		if _, exists := r.schemas[schema.Name()]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateSchema, schema.Name())
		}
		r.schemas[schema.Name()] = schema
	}
	return nil
}

// Schema returns the schema registered under name.
func (r *Registry) Schema(name string) (*Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	schema, ok := r.schemas[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSchema, name)
	}
	return schema, nil
}

// Names returns the registered schema names sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New constructs a container of the named schema.
func (r *Registry) New(name string, opts ...Option) (*Container, error) {
	schema, err := r.Schema(name)
	if err != nil {
		return nil, err
	}
	return New(schema, r.options(opts)...)
}

// Decode builds a container of the named schema from data.
func (r *Registry) Decode(ctx context.Context, name string, data []byte, opts ...Option) (*Container, error) {
	schema, err := r.Schema(name)
	if err != nil {
		return nil, err
	}
	return Decode(ctx, schema, data, r.options(opts)...)
}

func (r *Registry) options(opts []Option) []Option {
	out := make([]Option, 0, len(r.opts)+len(opts))
	out = append(out, r.opts...)
	return append(out, opts...)
}
