package props

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-props/layering"
	"github.com/goliatone/go-props/pkg/activity"
)

// containerSerial numbers containers for scope keys. It is not an identity.
var containerSerial atomic.Uint64

// Container holds the values of one schema instance, the parent contexts it
// was bound to, and the interceptors that filter its writes.
type Container struct {
	schema   *Schema
	serial   uint64
	cfg      containerConfig
	bindings []Binding
	store    *store
	local    *store
	table    *interceptorTable
	emitter  *activity.Emitter

	scopesMu sync.Mutex
	scopes   map[string]*store
}

// New constructs a container of schema. Bound contexts, construction values
// and container settings are supplied as options; settings left unset are
// inherited from the first bound context.
func New(schema *Schema, opts ...Option) (*Container, error) {
	return newContainer(context.Background(), schema, applyOptions(opts), "")
}

// MustNew is like New but panics on error.
func MustNew(schema *Schema, opts ...Option) *Container {
	c, err := New(schema, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

func newContainer(ctx context.Context, schema *Schema, cfg containerConfig, sourceID string) (*Container, error) {
	if schema == nil {
		return nil, fmt.Errorf("%w: schema is nil", ErrInvalidSchema)
	}
	start := time.Now()
	bindings, err := resolveBindings(schema, cfg)
	if err != nil {
		return nil, err
	}
	for name := range cfg.values {
		if !schema.HasField(name) {
			return nil, unknownProperty(OpCreate, schema.Name(), name)
		}
	}
	if len(bindings) > 0 {
		cfg = cfg.inherit(bindings[0].Container.cfg)
	}
	cfg = cfg.withDefaults()

	c := &Container{
		schema:   schema,
		serial:   containerSerial.Add(1),
		cfg:      cfg.settings(),
		bindings: bindings,
		table:    newInterceptorTable(),
	}
	c.emitter = activity.NewEmitter(c.cfg.hooks, c.cfg.activityConfig())

	c.store, _ = acquireStore(bindings)
	for _, field := range schema.fields {
		field := field
		target := c.store
		if !c.store.claim(field.Name, field.Kind) && !field.Identity {
			// A sibling declared the name with another kind.
			if c.local == nil {
				c.local = newStore()
			}
			c.local.claim(field.Name, field.Kind)
			target = c.local
		}
		target.setIfMissing(field.Name, func() any {
			if field.Identity {
				return c.cfg.idGen.Generate()
			}
			return layering.Clone(field.Default)
		})
	}
	for name, value := range cfg.values {
		c.storeFor(name).set(name, layering.Clone(value))
	}

	c.log(LogEvent{Op: OpCreate, Duration: time.Since(start)})
	input := activity.ContainerEventInput{
		Schema:      schema.Name(),
		ContainerID: c.ID(),
		SourceID:    sourceID,
		Contexts:    c.roleNames(),
		OccurredAt:  time.Now(),
	}
	applyActor(ctx, &input)
	if sourceID != "" {
		c.emit(ctx, activity.BuildContainerDeserialisedEvent(input))
	} else {
		c.emit(ctx, activity.BuildContainerCreatedEvent(input))
	}
	return c, nil
}

// Schema returns the container's schema.
func (c *Container) Schema() *Schema {
	if c == nil {
		return nil
	}
	return c.schema
}

// ID returns the identity property value.
func (c *Container) ID() string {
	value, _ := c.storeFor(c.schema.identity).get(c.schema.identity)
	id, _ := value.(string)
	return id
}

// SetID writes the identity property through the interceptors.
func (c *Container) SetID(id string) error {
	return c.Set(c.schema.identity, id)
}

// Get returns the committed value of name.
func (c *Container) Get(name string) (any, error) {
	if !c.schema.HasField(name) {
		return nil, unknownProperty("get", c.schema.Name(), name)
	}
	value, _ := c.storeFor(name).get(name)
	return value, nil
}

// Set writes value to name through the interceptors.
func (c *Container) Set(name string, value any) error {
	return c.SetContext(context.Background(), name, value)
}

// SetContext writes value to name through the interceptors. ctx is handed to
// each interceptor and to activity hooks.
func (c *Container) SetContext(ctx context.Context, name string, value any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !c.schema.HasField(name) {
		err := unknownProperty(OpSet, c.schema.Name(), name)
		c.log(LogEvent{Op: OpSet, Property: name, Err: err})
		return err
	}
	start := time.Now()
	previous, _ := c.storeFor(name).get(name)
	final, fired, err := c.table.apply(ctx, Change{
		Container: c,
		Property:  name,
		Previous:  previous,
		Value:     value,
	})
	if fired > 0 {
		c.log(LogEvent{Op: OpIntercept, Property: name, Duration: time.Since(start), Err: err})
	}
	if err != nil {
		return &PropertyError{Op: OpIntercept, Schema: c.schema.Name(), Property: name, Err: err}
	}

	old := c.storeFor(name).set(name, layering.Clone(final))
	c.log(LogEvent{Op: OpSet, Property: name, Duration: time.Since(start)})

	input := activity.ContainerEventInput{
		Schema:      c.schema.Name(),
		ContainerID: c.ID(),
		Property:    name,
		OldValue:    old,
		NewValue:    layering.Clone(final),
		OccurredAt:  time.Now(),
	}
	applyActor(ctx, &input)
	c.emit(ctx, activity.BuildPropertyUpdatedEvent(input))
	return nil
}

// Context returns the container bound under role.
func (c *Container) Context(role string) (*Container, bool) {
	for _, binding := range c.bindings {
		if binding.Role == role {
			return binding.Container, true
		}
	}
	return nil, false
}

// Contexts returns the bindings in binding order.
func (c *Container) Contexts() []Binding {
	return append([]Binding(nil), c.bindings...)
}

// Snapshot returns the container's own property values.
func (c *Container) Snapshot() map[string]any {
	names := c.schema.fieldNames()
	out := c.store.snapshot(names)
	if c.local != nil {
		for name, value := range c.local.snapshot(names) {
			out[name] = value
		}
	}
	return out
}

// storeFor returns the store holding name for this container.
func (c *Container) storeFor(name string) *store {
	if c.local != nil && c.local.holds(name) {
		return c.local
	}
	return c.store
}

// Structure returns the own values with each bound context nested under its
// role, recursively.
func (c *Container) Structure() map[string]any {
	out := c.Snapshot()
	for _, binding := range c.bindings {
		out[binding.Role] = binding.Container.Structure()
	}
	return out
}

func (c *Container) roleNames() []string {
	if len(c.bindings) == 0 {
		return nil
	}
	roles := make([]string, len(c.bindings))
	for i, binding := range c.bindings {
		roles[i] = binding.Role
	}
	return roles
}

func (c *Container) log(event LogEvent) {
	event.Schema = c.schema.Name()
	if event.ContainerID == "" {
		event.ContainerID = c.ID()
	}
	c.cfg.logger.Log(event)
}

func (c *Container) emit(ctx context.Context, event activity.Event) {
	if !c.emitter.Enabled() {
		return
	}
	if err := c.emitter.Emit(ctx, event); err != nil {
		c.log(LogEvent{Op: OpEmit, Property: propertyOf(event), Err: err})
	}
}

func propertyOf(event activity.Event) string {
	if name, ok := event.Metadata["property"].(string); ok {
		return name
	}
	return ""
}

func applyActor(ctx context.Context, input *activity.ContainerEventInput) {
	actor, ok := activity.ActorFromContext(ctx)
	if !ok {
		return
	}
	input.ActorID = actor.ActorID
	input.UserID = actor.UserID
	input.TenantID = actor.TenantID
}
