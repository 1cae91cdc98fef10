package props

import (
	"errors"
	"testing"
)

func TestLookupThroughContexts(t *testing.T) {
	s := newContextSchemas(t)
	root := mustNew(t, s.Root, WithValues(map[string]any{"Id": "root"}))
	a := mustNew(t, s.A, WithParent(root), WithValues(map[string]any{"Id": "a"}))
	c := mustNew(t, s.C, WithParent(a), WithValues(map[string]any{"Id": "c"}))

	value, trace, err := c.Lookup("contextA.contextRoot.Id")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if value != "root" {
		t.Fatalf("expected root id, got %v", value)
	}
	if len(trace.Steps) != 3 {
		t.Fatalf("expected three steps, got %+v", trace.Steps)
	}
	wantSchemas := []string{"ContextC", "ContextA", "ContextRoot"}
	wantRoles := []string{"", "contextA", "contextRoot"}
	wantIDs := []string{"c", "a", "root"}
	for i, step := range trace.Steps {
		if step.Schema != wantSchemas[i] || step.Role != wantRoles[i] || step.ContainerID != wantIDs[i] || !step.Found {
			t.Fatalf("step %d: unexpected %+v", i, step)
		}
	}
	if last := trace.Steps[2]; last.Path != "contextA.contextRoot.Id" || last.Value != "root" {
		t.Fatalf("unexpected final step %+v", last)
	}
}

func TestLookupNestedValues(t *testing.T) {
	s := newContextSchemas(t)
	d := mustNew(t, s.D)

	value, trace, err := d.Lookup("param3.message")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if value != "GoodbyeWorld" || !trace.Steps[0].Found {
		t.Fatalf("expected nested value, got %v (%+v)", value, trace)
	}

	value, trace, err = d.Lookup("param3.missing")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if value != nil || trace.Steps[0].Found {
		t.Fatalf("expected missing nested key to be reported, got %v (%+v)", value, trace)
	}
}

func TestLookupErrors(t *testing.T) {
	s := newContextSchemas(t)
	root := mustNew(t, s.Root)
	a := mustNew(t, s.A, WithParent(root))

	if _, _, err := a.Lookup(""); err == nil {
		t.Fatalf("expected empty path error")
	}
	if _, _, err := a.Lookup("contextRoot.missing"); !errors.Is(err, ErrUnknownProperty) {
		t.Fatalf("expected ErrUnknownProperty, got %v", err)
	}
	if _, _, err := a.Lookup("contextRoot"); err == nil {
		t.Fatalf("expected error when path ends at a context")
	}
}

func TestTraceJSONRoundTrip(t *testing.T) {
	s := newContextSchemas(t)
	root := mustNew(t, s.Root, WithValues(map[string]any{"Id": "root"}))
	a := mustNew(t, s.A, WithParent(root), WithValues(map[string]any{"Id": "a"}))

	_, trace, err := a.Lookup("contextRoot.Id")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	payload, err := trace.ToJSON()
	if err != nil {
		t.Fatalf("to json: %v", err)
	}
	restored, err := TraceFromJSON(payload)
	if err != nil {
		t.Fatalf("from json: %v", err)
	}
	if restored.Path != trace.Path || len(restored.Steps) != len(trace.Steps) {
		t.Fatalf("trace mismatch: %+v vs %+v", restored, trace)
	}
	if restored.Steps[1].Value != "root" || restored.Steps[1].Role != "contextRoot" {
		t.Fatalf("unexpected restored step %+v", restored.Steps[1])
	}
	if _, err := TraceFromJSON([]byte("{")); err == nil {
		t.Fatalf("expected malformed payload to fail")
	}
}
