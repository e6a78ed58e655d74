package hydra

import "reflect"

// =====================================
// Entity Metadata
// =====================================

// MetadataProvider describes mapped entity types.
// Implementations must accept both the struct type and a pointer to it.
type MetadataProvider interface {
	MetadataFor(t reflect.Type) (*EntityInfo, error)
}

// MetadataProviderFunc adapts a function to MetadataProvider.
type MetadataProviderFunc func(t reflect.Type) (*EntityInfo, error)

// MetadataFor implements MetadataProvider
func (f MetadataProviderFunc) MetadataFor(t reflect.Type) (*EntityInfo, error) {
	return f(t)
}

// EntityInfo contains metadata about an entity type
type EntityInfo struct {
	Name         string
	Type         reflect.Type // struct type, never a pointer
	Fields       []FieldInfo
	Associations []AssociationInfo
	Identifier   []string
}

// FieldInfo contains metadata about a scalar field.
// Name is the logical field name used in Records; GoName is the struct
// field it is stored in and defaults to the classified Name.
type FieldInfo struct {
	Name       string
	GoName     string
	Type       FieldType
	IsNullable bool
}

// AssociationInfo contains metadata about a relation to another entity.
type AssociationInfo struct {
	Name       string
	GoName     string
	Kind       RelationType
	Target     reflect.Type // struct type of the related entity
	IsNullable bool
}

// FieldNames returns the scalar field names in declaration order.
func (e *EntityInfo) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Name)
	}
	return names
}

// AssociationNames returns the association names in declaration order.
func (e *EntityInfo) AssociationNames() []string {
	names := make([]string, 0, len(e.Associations))
	for _, a := range e.Associations {
		names = append(names, a.Name)
	}
	return names
}

// Field returns the scalar field metadata for name.
func (e *EntityInfo) Field(name string) (*FieldInfo, bool) {
	for i := range e.Fields {
		if e.Fields[i].Name == name {
			return &e.Fields[i], true
		}
	}
	return nil, false
}

// Association returns the association metadata for name.
func (e *EntityInfo) Association(name string) (*AssociationInfo, bool) {
	for i := range e.Associations {
		if e.Associations[i].Name == name {
			return &e.Associations[i], true
		}
	}
	return nil, false
}

// HasField reports whether name is a mapped scalar field.
func (e *EntityInfo) HasField(name string) bool {
	_, ok := e.Field(name)
	return ok
}

// HasAssociation reports whether name is a mapped association.
func (e *EntityInfo) HasAssociation(name string) bool {
	_, ok := e.Association(name)
	return ok
}

// IsSingleValuedAssociation reports whether name is a to-one association.
func (e *EntityInfo) IsSingleValuedAssociation(name string) bool {
	a, ok := e.Association(name)
	return ok && !a.Kind.IsCollection()
}

// IsCollectionValuedAssociation reports whether name is a to-many association.
func (e *EntityInfo) IsCollectionValuedAssociation(name string) bool {
	a, ok := e.Association(name)
	return ok && a.Kind.IsCollection()
}

// AssociationTargetType returns the struct type targeted by an association.
func (e *EntityInfo) AssociationTargetType(name string) reflect.Type {
	if a, ok := e.Association(name); ok {
		return a.Target
	}
	return nil
}

// TypeOfField returns the declared type of a scalar field, or "" when the
// field is unknown.
func (e *EntityInfo) TypeOfField(name string) FieldType {
	if f, ok := e.Field(name); ok {
		return f.Type
	}
	return ""
}

// IsNullable reports whether a field or association accepts null.
// Unknown names are never nullable.
func (e *EntityInfo) IsNullable(name string) bool {
	if f, ok := e.Field(name); ok {
		return f.IsNullable
	}
	if a, ok := e.Association(name); ok {
		return a.IsNullable
	}
	return false
}

// IsIdentifier reports whether name is one of the identifier fields.
func (e *EntityInfo) IsIdentifier(name string) bool {
	for _, id := range e.Identifier {
		if id == name {
			return true
		}
	}
	return false
}

// goName returns the struct field name backing a field or association.
func (e *EntityInfo) goName(name string) string {
	if f, ok := e.Field(name); ok && f.GoName != "" {
		return f.GoName
	}
	if a, ok := e.Association(name); ok && a.GoName != "" {
		return a.GoName
	}
	return classify(name)
}

// indirectType strips pointers from t.
func indirectType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
