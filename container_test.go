package props

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/goliatone/go-props/pkg/identity"
)

func TestSetGetConsistency(t *testing.T) {
	s := newContextSchemas(t)
	d := mustNew(t, s.D)

	cases := []struct {
		name  string
		value any
	}{
		{name: "Id", value: "e742b112-1363-49f2-84dd-5e2e2c8dabe5"},
		{name: "param1", value: "Hello World"},
		{name: "param2", value: nil},
		{name: "param3", value: map[string]any{"message": "hi", "n": 2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mustSet(t, d, tc.name, tc.value)
			if got := mustGet(t, d, tc.name); !reflect.DeepEqual(got, tc.value) {
				t.Fatalf("want %#v, got %#v", tc.value, got)
			}
		})
	}
}

func TestNewAppliesDefaultsAndValues(t *testing.T) {
	s := newContextSchemas(t)
	d := mustNew(t, s.D, sequenceIDs("d"), WithValues(map[string]any{"param1": "Hello World"}))

	if d.ID() != "d-1" {
		t.Fatalf("expected generated id d-1, got %q", d.ID())
	}
	if got := mustGet(t, d, "param1"); got != "Hello World" {
		t.Fatalf("expected construction value, got %v", got)
	}
	if got := mustGet(t, d, "param2"); got != "HelloWorldAgain" {
		t.Fatalf("expected default, got %v", got)
	}
	param3 := mustGet(t, d, "param3").(map[string]any)
	param3["message"] = "mutated"
	if got := mustGet(t, d, "param3").(map[string]any)["message"]; got != "GoodbyeWorld" {
		t.Fatalf("get must not alias stored values, got %v", got)
	}
	if got := s.D.Defaults()["param3"].(map[string]any)["message"]; got != "GoodbyeWorld" {
		t.Fatalf("schema defaults must not alias container values, got %v", got)
	}
}

func TestNewRejectsUnknownValues(t *testing.T) {
	s := newContextSchemas(t)
	_, err := New(s.D, WithValues(map[string]any{"nope": 1}))
	if !errors.Is(err, ErrUnknownProperty) {
		t.Fatalf("expected ErrUnknownProperty, got %v", err)
	}
}

func TestUnknownPropertyErrors(t *testing.T) {
	s := newContextSchemas(t)
	root := mustNew(t, s.Root)

	if err := root.Set("Name", "x"); !errors.Is(err, ErrUnknownProperty) {
		t.Fatalf("set: expected ErrUnknownProperty, got %v", err)
	}
	if _, err := root.Get("Name"); !errors.Is(err, ErrUnknownProperty) {
		t.Fatalf("get: expected ErrUnknownProperty, got %v", err)
	}
	var propErr *PropertyError
	err := root.Set("Name", "x")
	if !errors.As(err, &propErr) || propErr.Property != "Name" || propErr.Schema != "ContextRoot" {
		t.Fatalf("expected PropertyError for ContextRoot.Name, got %#v", err)
	}
	reg, err := root.OnSet(Names("Id", "Name"), false, false, func(_ context.Context, ch Change) (any, error) {
		return ch.Value, nil
	})
	if !errors.Is(err, ErrUnknownProperty) || reg != nil {
		t.Fatalf("onSet: expected ErrUnknownProperty and no registration, got %v %v", reg, err)
	}
	if n := root.table.len("Id"); n != 0 {
		t.Fatalf("failed onSet must not register anything, got %d", n)
	}
}

func TestInvalidContext(t *testing.T) {
	s := newContextSchemas(t)
	root := mustNew(t, s.Root)
	a := mustNew(t, s.A, WithParent(root))

	cases := []struct {
		name   string
		schema *Schema
		opts   []Option
	}{
		{name: "undeclared role", schema: s.A, opts: []Option{WithContexts(Bind("contextZ", root))}},
		{name: "nil container", schema: s.A, opts: []Option{WithContexts(Bind("contextRoot", nil))}},
		{name: "nil bare parent", schema: s.A, opts: []Option{WithParent(nil)}},
		{name: "duplicate role", schema: s.B, opts: []Option{WithParent(root), WithContexts(Bind("contextRoot", root))}},
		{name: "schema mismatch", schema: s.B, opts: []Option{WithContexts(Bind("contextRoot", a))}},
		{name: "no roles declared", schema: s.Root, opts: []Option{WithParent(root)}},
		{name: "map with unknown role", schema: s.C, opts: []Option{WithContextMap(map[string]*Container{"contextRoot": root})}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.schema, tc.opts...)
			if !errors.Is(err, ErrInvalidContext) {
				t.Fatalf("expected ErrInvalidContext, got %v", err)
			}
			var ctxErr *ContextError
			if !errors.As(err, &ctxErr) || ctxErr.Schema != tc.schema.Name() {
				t.Fatalf("expected ContextError for %s, got %#v", tc.schema.Name(), err)
			}
		})
	}
}

func TestContextSharing(t *testing.T) {
	s := newContextSchemas(t)
	root := mustNew(t, s.Root)
	mustSet(t, root, "Id", "653ef45a-14ba-400b-a1a9-c0695d6b1f06")

	a := mustNew(t, s.A, WithContexts(Bind("contextRoot", root)))
	mustSet(t, a, "Id", "250b70e1-fe1f-47eb-8185-04278ddef1bc")

	b := mustNew(t, s.B, WithContexts(Bind("contextA", a)))
	mustSet(t, b, "Id", "c0785886-6652-4308-aab5-b96b15eb942e")

	c := mustNew(t, s.C, WithContexts(Bind("contextA", a)))
	mustSet(t, c, "Id", "a70b6d9a-6e3b-40d3-a1b5-08327d1cd6e2")

	if root.ID() == a.ID() || root.ID() == b.ID() || root.ID() == c.ID() {
		t.Fatalf("root must not share identity: root=%s a=%s b=%s c=%s", root.ID(), a.ID(), b.ID(), c.ID())
	}
	if a.ID() == b.ID() || a.ID() == c.ID() {
		t.Fatalf("a must not share identity with its children: a=%s b=%s c=%s", a.ID(), b.ID(), c.ID())
	}
	if b.ID() != c.ID() {
		t.Fatalf("b and c share context a and must agree: b=%s c=%s", b.ID(), c.ID())
	}
	if b.ID() != "a70b6d9a-6e3b-40d3-a1b5-08327d1cd6e2" {
		t.Fatalf("expected last write to win, got %s", b.ID())
	}

	parentOfB, _ := b.Context("contextA")
	parentOfC, _ := c.Context("contextA")
	if parentOfB != a || parentOfC != a {
		t.Fatalf("bound contexts must be the same instance")
	}
	mustSet(t, parentOfB, "Id", "shared")
	if parentOfC.ID() != "shared" || a.ID() != "shared" {
		t.Fatalf("write through one child's context must be visible via the other")
	}
}

func TestSiblingJoiningSharedStoreInheritsIdentity(t *testing.T) {
	s := newContextSchemas(t)
	root := mustNew(t, s.Root, sequenceIDs("ctx"))
	a := mustNew(t, s.A, WithParent(root))
	b := mustNew(t, s.B, WithParent(root))

	if a.ID() != "ctx-2" {
		t.Fatalf("expected a to generate ctx-2, got %s", a.ID())
	}
	if b.ID() != a.ID() {
		t.Fatalf("b joins a's store and must inherit its identity, got a=%s b=%s", a.ID(), b.ID())
	}
}

func TestSiblingsShareOnlyMatchingKinds(t *testing.T) {
	s := newContextSchemas(t)
	counterB := MustSchema("CounterB", WithRole("contextRoot", s.Root), WithField("count", KindInt, 1), WithField("label", KindString, "b"))
	counterC := MustSchema("CounterC", WithRole("contextRoot", s.Root), WithField("count", KindString, "x"), WithField("label", KindString, "c"))

	root := mustNew(t, s.Root)
	b := mustNew(t, counterB, WithContexts(Bind("contextRoot", root)))
	c := mustNew(t, counterC, WithContexts(Bind("contextRoot", root)), WithValues(map[string]any{"count": "y"}))

	if got := mustGet(t, c, "count"); got != "y" {
		t.Fatalf("expected c to keep its own string count, got %v (%T)", got, got)
	}
	if got := mustGet(t, b, "count"); got != 1 {
		t.Fatalf("expected b count untouched, got %v", got)
	}
	mustSet(t, b, "count", 5)
	if got := mustGet(t, c, "count"); got != "y" {
		t.Fatalf("int write leaked into string field: %v", got)
	}
	if snapshot := c.Snapshot(); snapshot["count"] != "y" {
		t.Fatalf("snapshot must read c's own count, got %v", snapshot["count"])
	}
	if value, _, err := c.Lookup("count"); err != nil || value != "y" {
		t.Fatalf("lookup must read c's own count, got %v %v", value, err)
	}

	if got := mustGet(t, c, "label"); got != "b" {
		t.Fatalf("same-kind field must be shared, got %v", got)
	}
	mustSet(t, c, "label", "shared")
	if got := mustGet(t, b, "label"); got != "shared" {
		t.Fatalf("same-kind write must reach sibling, got %v", got)
	}
	if b.ID() != c.ID() {
		t.Fatalf("identity must stay shared, got b=%s c=%s", b.ID(), c.ID())
	}
}

func TestDifferentInstancesNeverShare(t *testing.T) {
	s := newContextSchemas(t)
	gen := identity.Sequence("ctx")
	root1 := mustNew(t, s.Root, WithIDGenerator(gen), WithValues(map[string]any{"Id": "same"}))
	root2 := mustNew(t, s.Root, WithIDGenerator(gen), WithValues(map[string]any{"Id": "same"}))

	a1 := mustNew(t, s.A, WithParent(root1))
	a2 := mustNew(t, s.A, WithParent(root2))
	if a1.ID() == a2.ID() {
		t.Fatalf("containers built from distinct instances must not share, both %s", a1.ID())
	}
	mustSet(t, a1, "Id", "x")
	if a2.ID() == "x" {
		t.Fatalf("write leaked across distinct instances")
	}
}

func TestBareParentEquivalentToMapping(t *testing.T) {
	s := newContextSchemas(t)
	root := mustNew(t, s.Root)

	bare := mustNew(t, s.A, WithParent(root))
	mapped := mustNew(t, s.B, WithContexts(Bind("contextRoot", root)))
	fromMap := mustNew(t, s.B, WithContextMap(map[string]*Container{"contextRoot": root}))

	if bare.ID() != mapped.ID() || mapped.ID() != fromMap.ID() {
		t.Fatalf("bare parent and mapping must resolve to the same binding: %s %s %s", bare.ID(), mapped.ID(), fromMap.ID())
	}
	got := bare.Contexts()
	if len(got) != 1 || got[0].Role != "contextRoot" || got[0].Container != root {
		t.Fatalf("unexpected bindings %+v", got)
	}
}

func TestBindingOrderDoesNotAffectSharing(t *testing.T) {
	s := newContextSchemas(t)
	root := mustNew(t, s.Root)
	a := mustNew(t, s.A, WithParent(root))

	b1 := mustNew(t, s.B, WithContexts(Bind("contextRoot", root), Bind("contextA", a)))
	b2 := mustNew(t, s.B, WithContexts(Bind("contextA", a), Bind("contextRoot", root)))
	if b1.ID() != b2.ID() {
		t.Fatalf("identical binding sets must share regardless of order")
	}
	if roles := b2.roleNames(); !reflect.DeepEqual(roles, []string{"contextA", "contextRoot"}) {
		t.Fatalf("binding order must be preserved, got %v", roles)
	}
}

func TestChildInheritsSettings(t *testing.T) {
	s := newContextSchemas(t)
	var mu sync.Mutex
	var ops []string
	logger := LoggerFunc(func(event LogEvent) {
		mu.Lock()
		defer mu.Unlock()
		ops = append(ops, event.Schema+":"+event.Op)
	})
	root := mustNew(t, s.Root, sequenceIDs("ctx"), WithLogger(logger))
	a := mustNew(t, s.A, WithParent(root))

	if a.ID() != "ctx-2" {
		t.Fatalf("expected inherited generator, got %s", a.ID())
	}
	if !reflect.DeepEqual(ops, []string{"ContextRoot:create", "ContextA:create"}) {
		t.Fatalf("expected inherited logger, got %v", ops)
	}

	silent := mustNew(t, s.A, WithParent(root), WithLogger(nil))
	mustSet(t, silent, "Id", "quiet")
	if len(ops) != 2 {
		t.Fatalf("WithLogger(nil) must silence inherited logger, got %v", ops)
	}
}

func TestSnapshotAndStructure(t *testing.T) {
	s := newContextSchemas(t)
	root := mustNew(t, s.Root, WithValues(map[string]any{"Id": "r"}))
	a := mustNew(t, s.A, WithParent(root), WithValues(map[string]any{"Id": "a"}))

	if got := a.Snapshot(); !reflect.DeepEqual(got, map[string]any{"Id": "a"}) {
		t.Fatalf("unexpected snapshot %v", got)
	}
	want := map[string]any{"Id": "a", "contextRoot": map[string]any{"Id": "r"}}
	if got := a.Structure(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected structure %v", got)
	}
	if _, ok := a.Context("missing"); ok {
		t.Fatalf("unexpected context for missing role")
	}
}

func TestTypedProperty(t *testing.T) {
	s := newContextSchemas(t)
	d := mustNew(t, s.D)
	param2 := Prop[string]("param2")

	got, err := param2.Get(d)
	if err != nil || got != "HelloWorldAgain" {
		t.Fatalf("get: %q %v", got, err)
	}
	if err := param2.Set(d, "changed"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := param2.Get(d); got != "changed" {
		t.Fatalf("expected changed, got %q", got)
	}
	if _, err := Prop[int]("param2").Get(d); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
	if got, err := Prop[string]("param1").Get(d); err != nil || got != "" {
		t.Fatalf("nil value should yield zero, got %q %v", got, err)
	}
}

func TestConcurrentWritesAreSafe(t *testing.T) {
	s := newContextSchemas(t)
	root := mustNew(t, s.Root)
	a := mustNew(t, s.A, WithParent(root))
	b := mustNew(t, s.B, WithParent(root))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = a.Set("Id", "a")
		}()
		go func() {
			defer wg.Done()
			_ = b.Set("Id", "b")
			_, _ = b.Serialise()
		}()
	}
	wg.Wait()
	if a.ID() != b.ID() {
		t.Fatalf("shared store diverged: %s %s", a.ID(), b.ID())
	}
}
