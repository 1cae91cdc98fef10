package props

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	s := newContextSchemas(t)
	registry := NewRegistry()
	if err := registry.Register(s.Root, s.A, s.D); err != nil {
		t.Fatalf("register: %v", err)
	}
	if got := registry.Names(); !reflect.DeepEqual(got, []string{"ContextA", "ContextD", "ContextRoot"}) {
		t.Fatalf("unexpected names %v", got)
	}
	schema, err := registry.Schema("ContextA")
	if err != nil || schema != s.A {
		t.Fatalf("expected ContextA schema, got %v (%v)", schema, err)
	}
	if _, err := registry.Schema("Missing"); !errors.Is(err, ErrUnknownSchema) {
		t.Fatalf("expected ErrUnknownSchema, got %v", err)
	}
	if err := registry.Register(MustSchema("ContextA")); !errors.Is(err, ErrDuplicateSchema) {
		t.Fatalf("expected ErrDuplicateSchema, got %v", err)
	}
	if err := registry.Register(nil); !errors.Is(err, ErrInvalidSchema) {
		t.Fatalf("expected ErrInvalidSchema, got %v", err)
	}
}

func TestRegistryAppliesSharedOptions(t *testing.T) {
	s := newContextSchemas(t)
	registry := NewRegistry(sequenceIDs("reg"))
	if err := registry.Register(s.Root, s.A); err != nil {
		t.Fatalf("register: %v", err)
	}

	root, err := registry.New("ContextRoot")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if root.ID() != "reg-1" {
		t.Fatalf("expected registry generator, got %q", root.ID())
	}
	a, err := registry.New("ContextA", WithParent(root), WithValues(map[string]any{"Id": "explicit"}))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if a.ID() != "explicit" {
		t.Fatalf("per-call options must apply after registry options, got %q", a.ID())
	}
	if _, err := registry.New("Missing"); !errors.Is(err, ErrUnknownSchema) {
		t.Fatalf("expected ErrUnknownSchema, got %v", err)
	}
}

func TestRegistryDecode(t *testing.T) {
	s := newContextSchemas(t)
	registry := NewRegistry(sequenceIDs("dec"))
	if err := registry.Register(s.Root, s.A); err != nil {
		t.Fatalf("register: %v", err)
	}
	c, err := registry.Decode(context.Background(), "ContextA", []byte(`{"contextRoot":{"Id":"r"},"Id":"a"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	parent, ok := c.Context("contextRoot")
	if !ok {
		t.Fatalf("expected rebuilt context")
	}
	if parent.ID() != "dec-1" || c.ID() != "dec-2" {
		t.Fatalf("expected fresh sequential identities, got %q and %q", parent.ID(), c.ID())
	}
	if _, err := registry.Decode(context.Background(), "Missing", []byte(`{}`)); !errors.Is(err, ErrUnknownSchema) {
		t.Fatalf("expected ErrUnknownSchema, got %v", err)
	}
}
