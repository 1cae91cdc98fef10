package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	props "github.com/goliatone/go-props"
	"github.com/goliatone/go-props/layering"
)

// ErrETagMismatch reports a write based on a stale snapshot.
var ErrETagMismatch = errors.New("state: etag mismatch")

// Ref identifies one persisted defaults snapshot for one schema.
type Ref struct {
	Schema string
	Scope  props.Scope
}

// Meta is storage-owned metadata used for trace/audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads/saves one snapshot for a single scope reference.
type Store interface {
	Load(ctx context.Context, ref Ref) (snapshot map[string]any, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot map[string]any, meta Meta) (Meta, error)
}

// Mutator edits a snapshot in place.
type Mutator func(snapshot map[string]any) error

// Identifier returns the canonical storage key for r.
func (r Ref) Identifier() (string, error) {
	switch r.Scope.Name {
	case "system":
		return fmt.Sprintf("system/%s", r.Schema), nil
	case "tenant", "org", "team", "user":
		metadataKey := r.Scope.Name + "_id"
		id, ok := r.Scope.Metadata[metadataKey]
		if !ok {
			return "", fmt.Errorf("missing metadata key %q for scope %q", metadataKey, r.Scope.Name)
		}
		idString, ok := id.(string)
		if !ok || idString == "" {
			return "", fmt.Errorf("missing metadata key %q for scope %q", metadataKey, r.Scope.Name)
		}
		return fmt.Sprintf("%s/%s/%s", r.Scope.Name, idString, r.Schema), nil
	default:
		return "", fmt.Errorf("unsupported scope name %q", r.Scope.Name)
	}
}

// Resolver loads per-scope snapshots and merges them into container
// defaults. With Scopes set it serves as a props.DefaultsLoader.
type Resolver struct {
	Store  Store
	Scopes []props.Scope
}

// Resolve merges the snapshots stored for schema under scopes.
func (r Resolver) Resolve(ctx context.Context, schema string, scopes ...props.Scope) (*props.Defaults, error) {
	if r.Store == nil {
		return nil, fmt.Errorf("state: store is required")
	}
	if schema == "" {
		return nil, fmt.Errorf("state: schema is required")
	}
	if len(scopes) == 0 {
		return nil, fmt.Errorf("state: at least one scope is required")
	}
	layers, err := r.load(ctx, schema, scopes)
	if err != nil {
		return nil, err
	}
	if len(layers) == 0 {
		return nil, fmt.Errorf("state: no layers found for schema %q", schema)
	}
	stack, err := props.NewStack(layers...)
	if err != nil {
		return nil, fmt.Errorf("state: stack: %w", err)
	}
	return stack.Merge()
}

// LoadDefaults implements props.DefaultsLoader over r.Scopes. A schema with
// nothing stored yields no values.
func (r Resolver) LoadDefaults(ctx context.Context, schema *props.Schema) (map[string]any, error) {
	if r.Store == nil {
		return nil, fmt.Errorf("state: store is required")
	}
	layers, err := r.load(ctx, schema.Name(), r.Scopes)
	if err != nil || len(layers) == 0 {
		return nil, err
	}
	stack, err := props.NewStack(layers...)
	if err != nil {
		return nil, fmt.Errorf("state: stack: %w", err)
	}
	defaults, err := stack.Merge()
	if err != nil {
		return nil, err
	}
	return defaults.Values(), nil
}

func (r Resolver) load(ctx context.Context, schema string, scopes []props.Scope) ([]props.Layer, error) {
	layers := make([]props.Layer, 0, len(scopes))
	for _, scope := range scopes {
		snapshot, meta, ok, err := r.Store.Load(ctx, Ref{Schema: schema, Scope: scope})
		if err != nil {
			return nil, fmt.Errorf("state: load %q for scope %q: %w", schema, scope.Name, err)
		}
		if !ok {
			continue
		}
		layers = append(layers, props.NewLayer(scope, snapshot, props.WithSnapshotID(meta.SnapshotID)))
	}
	return layers, nil
}

// Capture stores c's non-identity values as the defaults snapshot for ref.
// A non-empty meta.ETag must match the stored one.
func (r Resolver) Capture(ctx context.Context, ref Ref, c *props.Container, meta Meta) (Meta, error) {
	if c == nil {
		return Meta{}, fmt.Errorf("state: container is required")
	}
	if ref.Schema == "" {
		ref.Schema = c.Schema().Name()
	}
	snapshot := c.Snapshot()
	delete(snapshot, c.Schema().IdentityField())
	_, saved, err := r.Mutate(ctx, ref, meta, func(current map[string]any) error {
		for key := range current {
			delete(current, key)
		}
		for key, value := range snapshot {
			current[key] = value
		}
		return nil
	})
	return saved, err
}

// Mutate loads one snapshot, applies fn, then saves it with a fresh ETag.
func (r Resolver) Mutate(ctx context.Context, ref Ref, meta Meta, fn Mutator) (*props.Defaults, Meta, error) {
	if r.Store == nil {
		return nil, Meta{}, fmt.Errorf("state: store is required")
	}
	if ref.Schema == "" {
		return nil, Meta{}, fmt.Errorf("state: schema is required")
	}
	if ref.Scope.Name == "" {
		return nil, Meta{}, fmt.Errorf("state: scope name is required")
	}
	if fn == nil {
		return nil, Meta{}, fmt.Errorf("state: mutator is required")
	}

	snapshot, loadedMeta, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("state: load %q for scope %q: %w", ref.Schema, ref.Scope.Name, err)
	}
	if !ok {
		snapshot = map[string]any{}
		loadedMeta = Meta{}
	}
	snapshot = layering.CloneSnapshot(snapshot)
	if snapshot == nil {
		snapshot = map[string]any{}
	}

	if meta.ETag != "" && loadedMeta.ETag != "" && meta.ETag != loadedMeta.ETag {
		return nil, loadedMeta, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, loadedMeta.ETag)
	}

	if err := fn(snapshot); err != nil {
		return nil, loadedMeta, err
	}

	saveMeta := mergeMeta(loadedMeta, meta)
	saveMeta.ETag = uuid.NewString()
	if meta.SnapshotID == "" {
		saveMeta.SnapshotID = uuid.NewString()
	}
	if meta.UpdatedAt.IsZero() {
		saveMeta.UpdatedAt = time.Now().UTC()
	}
	savedMeta, err := r.Store.Save(ctx, ref, snapshot, saveMeta)
	if err != nil {
		return nil, loadedMeta, fmt.Errorf("state: save %q for scope %q: %w", ref.Schema, ref.Scope.Name, err)
	}

	layer := props.NewLayer(ref.Scope, snapshot, props.WithSnapshotID(savedMeta.SnapshotID))
	stack, err := props.NewStack(layer)
	if err != nil {
		return nil, loadedMeta, fmt.Errorf("state: stack: %w", err)
	}
	defaults, err := stack.Merge()
	if err != nil {
		return nil, loadedMeta, err
	}
	return defaults, savedMeta, nil
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}
