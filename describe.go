package props

import "strings"

// FieldDescriptor describes a property path and its kind.
type FieldDescriptor struct {
	Path     string `json:"path"`
	Type     string `json:"type"`
	Identity bool   `json:"identity,omitempty"`
}

// DefaultSchemaGenerator returns the built-in descriptor-based schema generator.
func DefaultSchemaGenerator() SchemaGenerator {
	return descriptorGenerator{}
}

type descriptorGenerator struct{}

// Generate flattens schema into descriptors in serialisation order: role
// paths first, then own fields.
func (descriptorGenerator) Generate(schema *Schema) (SchemaDocument, error) {
	descriptors := deriveFieldDescriptors(schema, "", map[*Schema]bool{})
	if descriptors == nil {
		descriptors = []FieldDescriptor{}
	}
	return SchemaDocument{
		Format:   SchemaFormatDescriptors,
		Document: descriptors,
	}, nil
}

func deriveFieldDescriptors(schema *Schema, prefix string, visiting map[*Schema]bool) []FieldDescriptor {
	if schema == nil || visiting[schema] {
		return nil
	}
	visiting[schema] = true
	defer delete(visiting, schema)

	var fields []FieldDescriptor
	for _, role := range schema.roles {
		fields = append(fields, deriveFieldDescriptors(role.Schema, joinPath(prefix, role.Name), visiting)...)
	}
	for _, field := range schema.fields {
		fields = append(fields, FieldDescriptor{
			Path:     joinPath(prefix, field.Name),
			Type:     string(field.Kind),
			Identity: field.Identity,
		})
	}
	return fields
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return strings.Join([]string{prefix, segment}, ".")
}

// Describe generates a document for the container's schema using the
// configured generator, the descriptor generator by default.
func (c *Container) Describe() (SchemaDocument, error) {
	generator := c.cfg.schemaGenerator
	if generator == nil {
		generator = DefaultSchemaGenerator()
	}
	return generator.Generate(c.schema)
}
