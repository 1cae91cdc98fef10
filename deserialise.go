package props

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/goliatone/go-props/layering"
)

// DefaultsLoader supplies default construction values for a schema when a
// representation omits them. Values for undeclared or identity properties
// are ignored.
type DefaultsLoader interface {
	LoadDefaults(ctx context.Context, schema *Schema) (map[string]any, error)
}

// DefaultsLoaderFunc adapts a function to DefaultsLoader.
type DefaultsLoaderFunc func(ctx context.Context, schema *Schema) (map[string]any, error)

// LoadDefaults implements DefaultsLoader.
func (f DefaultsLoaderFunc) LoadDefaults(ctx context.Context, schema *Schema) (map[string]any, error) {
	if f == nil {
		return nil, nil
	}
	return f(ctx, schema)
}

// Deserialise builds a new container of the same schema from the receiver's
// serialised representation. The result and every rebuilt context carry
// freshly generated identities. Settings such as the logger and identity
// generator are carried over from the receiver, and every value keeps the Go
// type it had in the receiver.
func (c *Container) Deserialise(ctx context.Context) (*Container, error) {
	data, err := c.encode()
	if err != nil {
		return nil, err
	}
	return decode(ctx, c.schema, data, c.cfg, c)
}

// Decode builds a container of schema from a serialised representation.
// Missing properties fall back to the configured DefaultsLoader and then to
// the schema defaults. Nested context objects are rebuilt as new parents;
// binding options are ignored. Identities in data are never reused.
//
// Represented values take the Go type of the field default when they fit it,
// so a field declared with an int64 default decodes to int64. Fields without
// a typed default keep the JSON shape for their kind.
func Decode(ctx context.Context, schema *Schema, data []byte, opts ...Option) (*Container, error) {
	return decode(ctx, schema, data, applyOptions(opts), nil)
}

func decode(ctx context.Context, schema *Schema, data []byte, cfg containerConfig, source *Container) (*Container, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if schema == nil {
		return nil, fmt.Errorf("%w: schema is nil", ErrInvalidSchema)
	}
	start := time.Now()
	logger := cfg.logger
	if logger == nil {
		logger = noopLogger{}
	}

	c, err := func() (*Container, error) {
		if !gjson.ValidBytes(data) {
			return nil, fmt.Errorf("%w: %s: invalid JSON", ErrMalformedRepresentation, schema.Name())
		}
		root := gjson.ParseBytes(data)
		if !root.IsObject() {
			return nil, fmt.Errorf("%w: %s: expected object", ErrMalformedRepresentation, schema.Name())
		}
		return decodeObject(ctx, schema, root, cfg, source)
	}()

	event := LogEvent{Op: OpDeserialise, Schema: schema.Name(), Duration: time.Since(start), Err: err}
	if c != nil {
		event.ContainerID = c.ID()
	}
	logger.Log(event)
	return c, err
}

func decodeObject(ctx context.Context, schema *Schema, object gjson.Result, cfg containerConfig, source *Container) (*Container, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("props: deserialise %s: %w", schema.Name(), err)
	}
	defaults, err := loadDefaults(ctx, schema, cfg.defaults)
	if err != nil {
		return nil, err
	}

	var templates map[string]any
	if source != nil && source.schema == schema {
		templates = source.Snapshot()
	} else {
		source = nil
	}

	settings := cfg.settings()
	var bindings []Binding
	values := make(map[string]any, len(schema.fields))
	seen := make(map[string]bool, len(schema.roles))
	var walkErr error
	object.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if role, ok := schema.Role(name); ok {
			if seen[name] {
				walkErr = fmt.Errorf("%w: %s.%s: duplicate role", ErrMalformedRepresentation, schema.Name(), name)
				return false
			}
			seen[name] = true
			if !value.IsObject() {
				walkErr = fmt.Errorf("%w: %s.%s: expected object", ErrMalformedRepresentation, schema.Name(), name)
				return false
			}
			var nested *Container
			if source != nil {
				nested, _ = source.Context(name)
			}
			parent, err := decodeObject(ctx, role.Schema, value, settings, nested)
			if err != nil {
				walkErr = err
				return false
			}
			bindings = append(bindings, Bind(name, parent))
			return true
		}
		if field, ok := schema.Field(name); ok && !field.Identity {
			template := templates[name]
			if template == nil {
				template = field.Default
			}
			values[name] = conform(coerce(value, field.Kind), template)
		}
		return true
	})
	if walkErr != nil {
		return nil, walkErr
	}

	for name, value := range defaults {
		if _, ok := values[name]; !ok {
			values[name] = value
		}
	}
	for name, value := range cfg.values {
		if name == schema.identity {
			continue
		}
		values[name] = value
	}

	build := settings
	build.bindings = bindings
	build.values = values
	sourceID := object.Get(gjsonEscape(schema.identity)).String()
	return newContainer(ctx, schema, build, sourceID)
}

// loadDefaults merges loader values over the schema defaults, keeping only
// declared non-identity properties.
func loadDefaults(ctx context.Context, schema *Schema, loader DefaultsLoader) (map[string]any, error) {
	base := schema.Defaults()
	if loader == nil {
		return base, nil
	}
	loaded, err := loader.LoadDefaults(ctx, schema)
	if err != nil {
		return nil, fmt.Errorf("props: load defaults for %s: %w", schema.Name(), err)
	}
	filtered := make(map[string]any, len(loaded))
	for name, value := range loaded {
		if field, ok := schema.Field(name); ok && !field.Identity {
			filtered[name] = value
		}
	}
	return layering.MergeSnapshots(filtered, base), nil
}

// coerce converts a decoded JSON value to the Go shape stored for kind.
func coerce(value gjson.Result, kind Kind) any {
	if value.Type == gjson.Null {
		return nil
	}
	switch kind {
	case KindString:
		if value.Type == gjson.String {
			return value.String()
		}
	case KindInt:
		if value.Type == gjson.Number {
			if isIntegral(value.Raw) {
				return int(value.Int())
			}
			return value.Float()
		}
	case KindFloat:
		if value.Type == gjson.Number {
			return value.Float()
		}
	case KindBool:
		if value.Type == gjson.True || value.Type == gjson.False {
			return value.Bool()
		}
	}
	return plainValue(value)
}

// conform reshapes a value decoded from JSON into the Go type of template,
// which is the value the property held before it was serialised or its
// default. Values that do not fit are returned unchanged.
func conform(value, template any) any {
	if value == nil || template == nil {
		return value
	}
	switch shape := template.(type) {
	case map[string]any:
		object, ok := value.(map[string]any)
		if !ok {
			return value
		}
		for key, item := range object {
			if nested, ok := shape[key]; ok {
				object[key] = conform(item, nested)
			}
		}
		return object
	case []any:
		items, ok := value.([]any)
		if !ok {
			return value
		}
		for i := range items {
			if i < len(shape) {
				items[i] = conform(items[i], shape[i])
			}
		}
		return items
	}

	target := reflect.TypeOf(template)
	if reflect.TypeOf(value) == target {
		return value
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return value
	}
	out := reflect.New(target)
	if err := json.Unmarshal(raw, out.Interface()); err != nil {
		return value
	}
	return out.Elem().Interface()
}

// plainValue mirrors gjson.Result.Value but keeps integral numbers as int.
func plainValue(value gjson.Result) any {
	switch {
	case value.IsObject():
		out := map[string]any{}
		value.ForEach(func(key, item gjson.Result) bool {
			out[key.String()] = plainValue(item)
			return true
		})
		return out
	case value.IsArray():
		items := value.Array()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = plainValue(item)
		}
		return out
	case value.Type == gjson.Number:
		if isIntegral(value.Raw) {
			return int(value.Int())
		}
		return value.Float()
	default:
		return value.Value()
	}
}

func isIntegral(raw string) bool {
	return raw != "" && !strings.ContainsAny(raw, ".eE")
}

func gjsonEscape(path string) string {
	return strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`).Replace(path)
}
