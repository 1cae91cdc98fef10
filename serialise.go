package props

import (
	"fmt"
	"time"

	"github.com/tidwall/sjson"
)

// Serialise encodes the container as a compact JSON object: each bound
// context under its role in binding order, then the own properties in
// declaration order. It never triggers interceptors.
func (c *Container) Serialise() (string, error) {
	start := time.Now()
	data, err := c.encode()
	c.log(LogEvent{Op: OpSerialise, Duration: time.Since(start), Err: err})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// MarshalJSON implements json.Marshaler with the Serialise representation.
func (c *Container) MarshalJSON() ([]byte, error) {
	return c.encode()
}

func (c *Container) encode() ([]byte, error) {
	out := []byte("{}")
	var err error
	for _, binding := range c.bindings {
		nested, nestedErr := binding.Container.encode()
		if nestedErr != nil {
			return nil, nestedErr
		}
		out, err = sjson.SetRawBytes(out, binding.Role, nested)
		if err != nil {
			return nil, fmt.Errorf("props: serialise %s.%s: %w", c.schema.Name(), binding.Role, err)
		}
	}
	values := c.Snapshot()
	for _, field := range c.schema.fields {
		out, err = sjson.SetBytes(out, field.Name, values[field.Name])
		if err != nil {
			return nil, fmt.Errorf("props: serialise %s.%s: %w", c.schema.Name(), field.Name, err)
		}
	}
	return out, nil
}
