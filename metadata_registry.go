package hydra

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEntityNotRegistered = errors.New("entity not registered")
	ErrNotAnEntity         = errors.New("not an entity type")
)

// =====================================
// Metadata Registry
// =====================================

// MetadataRegistry is a MetadataProvider backed by registered or inferred
// EntityInfo values. It is safe for concurrent use.
type MetadataRegistry struct {
	mutex    sync.RWMutex
	entities map[reflect.Type]*EntityInfo
	strict   bool
}

// NewMetadataRegistry creates a registry that infers metadata for unknown
// struct types from their fields and `hydra` tags.
func NewMetadataRegistry() *MetadataRegistry {
	return &MetadataRegistry{entities: make(map[reflect.Type]*EntityInfo)}
}

// NewStrictMetadataRegistry creates a registry that only knows registered types.
func NewStrictMetadataRegistry() *MetadataRegistry {
	r := NewMetadataRegistry()
	r.strict = true
	return r
}

// Register infers and stores metadata for each entity (a value or a type).
func (r *MetadataRegistry) Register(entities ...interface{}) error {
	for _, entity := range entities {
		t, ok := entity.(reflect.Type)
		if !ok {
			t = reflect.TypeOf(entity)
		}
		info, err := InferEntityInfo(t)
		if err != nil {
			return err
		}
		r.RegisterInfo(info)
	}
	return nil
}

// RegisterInfo stores explicit metadata, replacing anything known for its type.
func (r *MetadataRegistry) RegisterInfo(info *EntityInfo) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.entities[indirectType(info.Type)] = info
}

// MetadataFor implements MetadataProvider
func (r *MetadataRegistry) MetadataFor(t reflect.Type) (*EntityInfo, error) {
	st := indirectType(t)

	r.mutex.RLock()
	info, exists := r.entities[st]
	r.mutex.RUnlock()
	if exists {
		return info, nil
	}
	if r.strict {
		return nil, fmt.Errorf("%w: %v", ErrEntityNotRegistered, t)
	}

	info, err := InferEntityInfo(st)
	if err != nil {
		return nil, err
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if existing, ok := r.entities[st]; ok {
		return existing, nil
	}
	r.entities[st] = info
	return info, nil
}

// Types lists the registered entity types.
func (r *MetadataRegistry) Types() []reflect.Type {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	types := make([]reflect.Type, 0, len(r.entities))
	for t := range r.entities {
		types = append(types, t)
	}
	return types
}

// =====================================
// Struct inference
// =====================================

var (
	timeType = reflect.TypeOf(time.Time{})
	uuidType = reflect.TypeOf(uuid.UUID{})
)

// fieldTag holds the parsed `hydra` struct tag:
//
//	`hydra:"name,id,nullable,notnull,type:datetime,rel:many_to_many"`
//
// "-" skips the field. Options may appear in any order after the name.
type fieldTag struct {
	name     string
	skip     bool
	id       bool
	nullable *bool
	typ      FieldType
	relation RelationType
}

func parseFieldTag(tag string) fieldTag {
	var ft fieldTag
	if tag == "-" {
		ft.skip = true
		return ft
	}
	parts := strings.Split(tag, ",")
	ft.name = strings.TrimSpace(parts[0])
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		switch {
		case part == "id":
			ft.id = true
		case part == "nullable":
			v := true
			ft.nullable = &v
		case part == "notnull":
			v := false
			ft.nullable = &v
		case strings.HasPrefix(part, "type:"):
			ft.typ = FieldType(strings.TrimPrefix(part, "type:"))
		case strings.HasPrefix(part, "rel:"):
			ft.relation = RelationType(strings.TrimPrefix(part, "rel:"))
		}
	}
	return ft
}

// InferEntityInfo builds metadata from a struct type.
//
// Field names default to the lowerCamelCase struct field name. Pointers to
// structs become many-to-one associations, slices of struct pointers and
// collections become one-to-many associations. The identifier is the set of
// fields tagged `id`, or the field named ID when none is tagged.
func InferEntityInfo(t reflect.Type) (*EntityInfo, error) {
	st := indirectType(t)
	if st == nil || st.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %v", ErrNotAnEntity, t)
	}

	info := &EntityInfo{Name: st.Name(), Type: st}
	var fallbackID string

	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		if sf.Anonymous {
			continue
		}
		tag := parseFieldTag(sf.Tag.Get("hydra"))
		if tag.skip {
			continue
		}
		name := tag.name
		if name == "" {
			name = lowerCamel(sf.Name)
		}

		if target, relation, ok := inferAssociation(sf.Type); ok {
			if tag.relation != "" {
				relation = tag.relation
			}
			info.Associations = append(info.Associations, AssociationInfo{
				Name:       name,
				GoName:     sf.Name,
				Kind:       relation,
				Target:     target,
				IsNullable: resolveNullable(tag, sf.Type),
			})
			continue
		}

		fieldType := tag.typ
		if fieldType == "" {
			fieldType = inferFieldType(sf.Type)
		}
		info.Fields = append(info.Fields, FieldInfo{
			Name:       name,
			GoName:     sf.Name,
			Type:       fieldType,
			IsNullable: resolveNullable(tag, sf.Type),
		})
		if tag.id {
			info.Identifier = append(info.Identifier, name)
		}
		if sf.Name == "ID" || sf.Name == "Id" || sf.Name == "id" {
			fallbackID = name
		}
	}

	if len(info.Identifier) == 0 && fallbackID != "" {
		info.Identifier = []string{fallbackID}
	}
	return info, nil
}

func resolveNullable(tag fieldTag, t reflect.Type) bool {
	if tag.nullable != nil {
		return *tag.nullable
	}
	return canHoldNil(t)
}

func inferAssociation(t reflect.Type) (reflect.Type, RelationType, bool) {
	if target, ok := collectionElementType(t); ok {
		return target, RelationOneToMany, true
	}
	if t.Kind() == reflect.Ptr && isEntityStruct(t.Elem()) {
		return t.Elem(), RelationManyToOne, true
	}
	return nil, "", false
}

// collectionElementType returns the entity type held by a collection-like
// field type.
func collectionElementType(t reflect.Type) (reflect.Type, bool) {
	switch {
	case t.Implements(elementCollectionType):
		if t.Kind() == reflect.Ptr {
			elem := reflect.New(t.Elem()).Interface().(ElementCollection).ElementType()
			return entityOf(elem)
		}
	case reflect.PtrTo(t).Implements(elementCollectionType):
		elem := reflect.New(t).Interface().(ElementCollection).ElementType()
		return entityOf(elem)
	case t.Kind() == reflect.Slice:
		return entityOf(t.Elem())
	}
	return nil, false
}

func entityOf(t reflect.Type) (reflect.Type, bool) {
	if t.Kind() == reflect.Ptr && isEntityStruct(t.Elem()) {
		return t.Elem(), true
	}
	return nil, false
}

func isEntityStruct(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && t != timeType
}

// FieldTypeOf infers the mapping type of a Go field type. It returns ""
// for kinds without a scalar mapping.
func FieldTypeOf(t reflect.Type) FieldType {
	return inferFieldType(t)
}

func inferFieldType(t reflect.Type) FieldType {
	t = indirectType(t)
	switch t {
	case timeType:
		return TypeDateTime
	case uuidType:
		return TypeGUID
	}
	switch t.Kind() {
	case reflect.Bool:
		return TypeBoolean
	case reflect.String:
		return TypeString
	case reflect.Int8, reflect.Int16, reflect.Uint8, reflect.Uint16:
		return TypeSmallInt
	case reflect.Int, reflect.Int32, reflect.Int64, reflect.Uint, reflect.Uint32, reflect.Uint64:
		return TypeInteger
	case reflect.Float32, reflect.Float64:
		return TypeFloat
	}
	return ""
}
