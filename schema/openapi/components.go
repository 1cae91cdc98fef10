package openapi

import (
	"fmt"
	"regexp"

	props "github.com/goliatone/go-props"
)

// componentRegistry names one component per schema instance.
type componentRegistry struct {
	names     map[*props.Schema]string
	schemas   map[string]map[string]any
	usedNames map[string]struct{}
}

func newComponentRegistry() *componentRegistry {
	return &componentRegistry{
		names:     map[*props.Schema]string{},
		schemas:   map[string]map[string]any{},
		usedNames: map[string]struct{}{},
	}
}

// reference returns the component reference for schema, reserving a name on
// first use. The bool reports whether the schema still needs building.
func (r *componentRegistry) reference(nameHint string, schema *props.Schema) (string, bool) {
	if name, ok := r.names[schema]; ok {
		return componentRef(name), false
	}
	name := r.uniqueName(nameHint)
	r.names[schema] = name
	return componentRef(name), true
}

func (r *componentRegistry) define(schema *props.Schema, body map[string]any) {
	r.schemas[r.names[schema]] = body
}

func (r *componentRegistry) componentsMap() map[string]any {
	if len(r.schemas) == 0 {
		return nil
	}
	out := make(map[string]any, len(r.schemas))
	for name, body := range r.schemas {
		out[name] = body
	}
	return out
}

func componentRef(name string) string {
	return fmt.Sprintf("#/components/schemas/%s", name)
}

func (r *componentRegistry) uniqueName(name string) string {
	safe := sanitizeComponentName(name)
	if safe == "" {
		safe = "Schema"
	}
	if _, exists := r.usedNames[safe]; !exists {
		r.usedNames[safe] = struct{}{}
		return safe
	}
	suffix := 1
	for {
		candidate := fmt.Sprintf("%s%d", safe, suffix)
		if _, exists := r.usedNames[candidate]; !exists {
			r.usedNames[candidate] = struct{}{}
			return candidate
		}
		suffix++
	}
}

var componentNameRegexp = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

func sanitizeComponentName(name string) string {
	name = componentNameRegexp.ReplaceAllString(name, "_")
	name = trimUnderscores(name)
	if name == "" {
		return ""
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}
	return name
}

func trimUnderscores(input string) string {
	start := 0
	for start < len(input) && input[start] == '_' {
		start++
	}
	end := len(input)
	for end > start && input[end-1] == '_' {
		end--
	}
	return input[start:end]
}
