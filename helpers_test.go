package props

import (
	"testing"

	"github.com/goliatone/go-props/pkg/identity"
)

type contextSchemas struct {
	Root *Schema
	A    *Schema
	B    *Schema
	C    *Schema
	D    *Schema
}

// newContextSchemas mirrors a small context hierarchy: A and C hang off root
// and A respectively, B accepts either.
func newContextSchemas(t testing.TB) contextSchemas {
	t.Helper()
	root := MustSchema("ContextRoot")
	a := MustSchema("ContextA", WithRole("contextRoot", root))
	b := MustSchema("ContextB", WithRole("contextRoot", root), WithRole("contextA", a))
	c := MustSchema("ContextC", WithRole("contextA", a))
	d := MustSchema("ContextD",
		WithField("param1", KindString, nil),
		WithField("param2", KindString, "HelloWorldAgain"),
		WithField("param3", KindObject, map[string]any{"message": "GoodbyeWorld"}),
	)
	return contextSchemas{Root: root, A: a, B: b, C: c, D: d}
}

func mustNew(t testing.TB, schema *Schema, opts ...Option) *Container {
	t.Helper()
	c, err := New(schema, opts...)
	if err != nil {
		t.Fatalf("new %s: %v", schema.Name(), err)
	}
	return c
}

func mustSet(t testing.TB, c *Container, name string, value any) {
	t.Helper()
	if err := c.Set(name, value); err != nil {
		t.Fatalf("set %s.%s: %v", c.Schema().Name(), name, err)
	}
}

func mustGet(t testing.TB, c *Container, name string) any {
	t.Helper()
	value, err := c.Get(name)
	if err != nil {
		t.Fatalf("get %s.%s: %v", c.Schema().Name(), name, err)
	}
	return value
}

func sequenceIDs(prefix string) Option {
	return WithIDGenerator(identity.Sequence(prefix))
}
