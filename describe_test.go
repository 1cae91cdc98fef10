package props

import (
	"reflect"
	"testing"
)

func TestDescribeFlattensRolesFirst(t *testing.T) {
	s := newContextSchemas(t)
	root := mustNew(t, s.Root)
	a := mustNew(t, s.A, WithParent(root))
	b := mustNew(t, s.B, WithContexts(Bind("contextRoot", root), Bind("contextA", a)))

	doc, err := b.Describe()
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if doc.Format != SchemaFormatDescriptors {
		t.Fatalf("expected descriptor format, got %q", doc.Format)
	}
	got, ok := doc.Document.([]FieldDescriptor)
	if !ok {
		t.Fatalf("expected descriptors, got %T", doc.Document)
	}
	want := []FieldDescriptor{
		{Path: "contextRoot.Id", Type: "string", Identity: true},
		{Path: "contextA.contextRoot.Id", Type: "string", Identity: true},
		{Path: "contextA.Id", Type: "string", Identity: true},
		{Path: "Id", Type: "string", Identity: true},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected descriptors:\nwant %+v\n got %+v", want, got)
	}
}

func TestDescribeFieldKinds(t *testing.T) {
	s := newContextSchemas(t)
	doc, err := DefaultSchemaGenerator().Generate(s.D)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	got := doc.Document.([]FieldDescriptor)
	want := []FieldDescriptor{
		{Path: "Id", Type: "string", Identity: true},
		{Path: "param1", Type: "string"},
		{Path: "param2", Type: "string"},
		{Path: "param3", Type: "object"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected descriptors:\nwant %+v\n got %+v", want, got)
	}

	empty, err := DefaultSchemaGenerator().Generate(nil)
	if err != nil {
		t.Fatalf("generate nil: %v", err)
	}
	if descriptors := empty.Document.([]FieldDescriptor); len(descriptors) != 0 {
		t.Fatalf("expected empty document for nil schema, got %+v", descriptors)
	}
}

type staticGenerator struct{}

func (staticGenerator) Generate(schema *Schema) (SchemaDocument, error) {
	return SchemaDocument{Format: SchemaFormatOpenAPI, Document: schema.Name()}, nil
}

func TestDescribeUsesConfiguredGenerator(t *testing.T) {
	s := newContextSchemas(t)
	root := mustNew(t, s.Root, WithSchemaGenerator(staticGenerator{}))
	a := mustNew(t, s.A, WithParent(root))

	doc, err := a.Describe()
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if doc.Format != SchemaFormatOpenAPI || doc.Document != "ContextA" {
		t.Fatalf("expected inherited generator, got %+v", doc)
	}
}
