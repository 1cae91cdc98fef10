package props

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/goliatone/go-props/layering"
)

// DefaultIdentityField is the identity property name used when a schema does
// not override it.
const DefaultIdentityField = "Id"

// Kind describes the value shape a property holds. Kinds drive coercion when
// decoding and schema documents; writes are not validated against them.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindBool   Kind = "bool"
	KindObject Kind = "object"
	KindList   Kind = "list"
	KindAny    Kind = "any"
)

// Field declares one property of a schema.
type Field struct {
	Name     string
	Kind     Kind
	Default  any
	Identity bool
}

// Role declares a named parent context a schema expects, and the schema a
// container bound to it must have.
type Role struct {
	Name   string
	Schema *Schema
}

// Schema is the fixed property and role declaration shared by containers of
// the same type. Schemas are immutable once built.
type Schema struct {
	name     string
	roleName string
	identity string
	fields   []Field
	index    map[string]int
	roles    []Role
	roleIdx  map[string]int
}

// SchemaOption configures a schema under construction.
type SchemaOption func(*schemaBuilder)

type schemaBuilder struct {
	identity string
	roleName string
	fields   []Field
	roles    []Role
}

// WithField declares a property with a default value. Declaration order is
// preserved and drives serialisation order.
func WithField(name string, kind Kind, def any) SchemaOption {
	return func(b *schemaBuilder) {
		b.fields = append(b.fields, Field{Name: name, Kind: kind, Default: def})
	}
}

// WithIdentityField renames the identity property.
func WithIdentityField(name string) SchemaOption {
	return func(b *schemaBuilder) {
		b.identity = name
	}
}

// WithRole declares a parent context role bound to containers of parent.
func WithRole(name string, parent *Schema) SchemaOption {
	return func(b *schemaBuilder) {
		b.roles = append(b.roles, Role{Name: name, Schema: parent})
	}
}

// WithRoleName sets the role this schema takes when one of its containers is
// passed as a bare parent.
func WithRoleName(name string) SchemaOption {
	return func(b *schemaBuilder) {
		b.roleName = name
	}
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// NewSchema validates and builds a schema.
func NewSchema(name string, opts ...SchemaOption) (*Schema, error) {
	b := schemaBuilder{identity: DefaultIdentityField}
	for _, opt := range opts {
		if opt != nil {
			opt(&b)
		}
	}
	if b.roleName == "" {
		b.roleName = lowerFirst(name)
	}
	if err := validName("schema", name); err != nil {
		return nil, err
	}
	if err := validName("identity field", b.identity); err != nil {
		return nil, err
	}
	if err := validName("role name", b.roleName); err != nil {
		return nil, err
	}

	s := &Schema{
		name:     name,
		roleName: b.roleName,
		identity: b.identity,
		fields:   make([]Field, 0, len(b.fields)+1),
		index:    make(map[string]int, len(b.fields)+1),
		roleIdx:  make(map[string]int, len(b.roles)),
	}
	s.fields = append(s.fields, Field{Name: b.identity, Kind: KindString, Identity: true})
	s.index[b.identity] = 0

	for _, field := range b.fields {
		if err := validName("field", field.Name); err != nil {
			return nil, err
		}
		if _, exists := s.index[field.Name]; exists {
			return nil, fmt.Errorf("%w: %s declares field %q twice", ErrInvalidSchema, name, field.Name)
		}
		if field.Kind == "" {
			field.Kind = KindAny
		}
		field.Default = layering.Clone(field.Default)
		field.Identity = false
		s.index[field.Name] = len(s.fields)
		s.fields = append(s.fields, field)
	}

	for _, role := range b.roles {
		if err := validName("role", role.Name); err != nil {
			return nil, err
		}
		if role.Schema == nil {
			return nil, fmt.Errorf("%w: %s role %q has no schema", ErrInvalidSchema, name, role.Name)
		}
		if _, exists := s.roleIdx[role.Name]; exists {
			return nil, fmt.Errorf("%w: %s declares role %q twice", ErrInvalidSchema, name, role.Name)
		}
		if _, exists := s.index[role.Name]; exists {
			return nil, fmt.Errorf("%w: %s role %q collides with a field", ErrInvalidSchema, name, role.Name)
		}
		s.roleIdx[role.Name] = len(s.roles)
		s.roles = append(s.roles, role)
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on error.
func MustSchema(name string, opts ...SchemaOption) *Schema {
	s, err := NewSchema(name, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the schema name.
func (s *Schema) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

// RoleName returns the role containers of this schema take as bare parents.
func (s *Schema) RoleName() string {
	if s == nil {
		return ""
	}
	return s.roleName
}

// IdentityField returns the name of the identity property.
func (s *Schema) IdentityField() string {
	if s == nil {
		return ""
	}
	return s.identity
}

// Fields returns the declared properties in order, identity first.
func (s *Schema) Fields() []Field {
	if s == nil {
		return nil
	}
	out := make([]Field, len(s.fields))
	for i, field := range s.fields {
		field.Default = layering.Clone(field.Default)
		out[i] = field
	}
	return out
}

// Field returns the declaration for name.
func (s *Schema) Field(name string) (Field, bool) {
	if s == nil {
		return Field{}, false
	}
	idx, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	field := s.fields[idx]
	field.Default = layering.Clone(field.Default)
	return field, true
}

// HasField reports whether name is a declared property.
func (s *Schema) HasField(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[name]
	return ok
}

// Roles returns the declared parent roles in order.
func (s *Schema) Roles() []Role {
	if s == nil {
		return nil
	}
	out := make([]Role, len(s.roles))
	copy(out, s.roles)
	return out
}

// Role returns the declaration for the named role.
func (s *Schema) Role(name string) (Role, bool) {
	if s == nil {
		return Role{}, false
	}
	idx, ok := s.roleIdx[name]
	if !ok {
		return Role{}, false
	}
	return s.roles[idx], true
}

// Defaults returns the non-identity default values, deep-cloned.
func (s *Schema) Defaults() map[string]any {
	if s == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(s.fields))
	for _, field := range s.fields {
		if field.Identity {
			continue
		}
		out[field.Name] = layering.Clone(field.Default)
	}
	return out
}

func (s *Schema) fieldNames() []string {
	names := make([]string, len(s.fields))
	for i, field := range s.fields {
		names[i] = field.Name
	}
	return names
}

func validName(kind, name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %s name %q is not an identifier", ErrInvalidSchema, kind, name)
	}
	return nil
}

func lowerFirst(name string) string {
	if name == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToLower(r)) + name[size:]
}

// Property is a typed accessor for one declared property.
type Property[T any] struct {
	name string
}

// Prop returns a typed accessor for name.
func Prop[T any](name string) Property[T] {
	return Property[T]{name: strings.TrimSpace(name)}
}

// Name returns the property name.
func (p Property[T]) Name() string {
	return p.name
}

// Get reads the property from c and asserts its type. A nil stored value
// yields the zero value of T.
func (p Property[T]) Get(c *Container) (T, error) {
	var zero T
	value, err := c.Get(p.name)
	if err != nil {
		return zero, err
	}
	if value == nil {
		return zero, nil
	}
	typed, ok := value.(T)
	if !ok {
		return zero, &PropertyError{
			Op:       "get",
			Schema:   c.Schema().Name(),
			Property: p.name,
			Err:      fmt.Errorf("%w: have %T, want %T", ErrTypeMismatch, value, zero),
		}
	}
	return typed, nil
}

// Set writes v through c's interceptors.
func (p Property[T]) Set(c *Container, v T) error {
	return c.Set(p.name, v)
}
