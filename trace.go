package props

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Trace records the containers visited while resolving a dotted path
// through bound contexts.
type Trace struct {
	Path  string       `json:"path"`
	Steps []Provenance `json:"steps"`
}

// Provenance details one container on a traced path. Role is empty for the
// container the lookup started from.
type Provenance struct {
	Schema      string `json:"schema"`
	Role        string `json:"role,omitempty"`
	ContainerID string `json:"container_id"`
	Path        string `json:"path"`
	Value       any    `json:"value,omitempty"`
	Found       bool   `json:"found"`
}

// Lookup resolves path, a dotted sequence of role names followed by a
// property name and optional nested map keys, e.g. "contextA.contextRoot.Id".
func (c *Container) Lookup(path string) (any, Trace, error) {
	trace := Trace{Path: path}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, trace, fmt.Errorf("props: lookup path must not be empty")
	}
	segments := strings.Split(path, ".")
	current := c
	role := ""
	for i, segment := range segments {
		step := Provenance{
			Schema:      current.schema.Name(),
			Role:        role,
			ContainerID: current.ID(),
			Path:        strings.Join(segments[:i], "."),
		}
		if next, ok := current.Context(segment); ok {
			step.Found = true
			trace.Steps = append(trace.Steps, step)
			current = next
			role = segment
			continue
		}
		if !current.schema.HasField(segment) {
			trace.Steps = append(trace.Steps, step)
			return nil, trace, unknownProperty("lookup", current.schema.Name(), segment)
		}
		value, _ := current.storeFor(segment).get(segment)
		value, found := descend(value, segments[i+1:])
		step.Path = path
		step.Value = value
		step.Found = found
		trace.Steps = append(trace.Steps, step)
		return value, trace, nil
	}
	return nil, trace, fmt.Errorf("props: lookup %q ends at context %q", path, role)
}

func descend(value any, keys []string) (any, bool) {
	for _, key := range keys {
		m, ok := value.(map[string]any)
		if !ok {
			return nil, false
		}
		value, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return value, true
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
