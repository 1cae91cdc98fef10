package openapi

import (
	props "github.com/goliatone/go-props"
)

type generator struct {
	config generatorConfig
}

// NewGenerator constructs an OpenAPI-compatible schema generator. Each
// schema reachable through roles is published once under components.
func NewGenerator(opts ...GeneratorOption) props.SchemaGenerator {
	cfg := defaultGeneratorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return generator{config: cfg}
}

// Option returns a props.Option that wires the OpenAPI schema generator into
// a container.
func Option(opts ...GeneratorOption) props.Option {
	return props.WithSchemaGenerator(NewGenerator(opts...))
}

func (g generator) Generate(schema *props.Schema) (props.SchemaDocument, error) {
	if schema == nil {
		return props.SchemaDocument{
			Format:   props.SchemaFormatOpenAPI,
			Document: map[string]any{},
		}, nil
	}
	document, err := newOpenAPIDocumentBuilder(g.config, newComponentRegistry(), schema).build()
	if err != nil {
		return props.SchemaDocument{}, err
	}
	return props.SchemaDocument{
		Format:   props.SchemaFormatOpenAPI,
		Document: document,
	}, nil
}
