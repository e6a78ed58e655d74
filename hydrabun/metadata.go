package hydrabun

import (
	"reflect"
	"strings"
	"sync"

	"github.com/lemmego/hydra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// =====================================
// Metadata
// =====================================

// Metadata implements hydra.MetadataProvider on top of Bun table schemas.
// Field names are the lowerCamel form of the Go field names.
type Metadata struct {
	db      *bun.DB
	infos   sync.Map // reflect.Type -> *hydra.EntityInfo
	columns sync.Map // reflect.Type -> map[string]string
}

// NewMetadata creates a metadata provider reading schemas through db.
func NewMetadata(db *bun.DB) *Metadata {
	return &Metadata{db: db}
}

// MetadataFor implements hydra.MetadataProvider
func (m *Metadata) MetadataFor(t reflect.Type) (*hydra.EntityInfo, error) {
	st := indirect(t)
	if st == nil || st.Kind() != reflect.Struct {
		return nil, hydra.NewError(hydra.ErrorTypeInvalidArgument, "entity must be a struct or a pointer to struct")
	}
	if info, ok := m.infos.Load(st); ok {
		return info.(*hydra.EntityInfo), nil
	}

	info, columns := entityInfo(m.db.Table(st))
	m.columns.LoadOrStore(st, columns)
	actual, _ := m.infos.LoadOrStore(st, info)
	return actual.(*hydra.EntityInfo), nil
}

// Column returns the database column backing a logical field name.
func (m *Metadata) Column(t reflect.Type, name string) (string, bool) {
	st := indirect(t)
	if _, err := m.MetadataFor(st); err != nil {
		return "", false
	}
	columns, ok := m.columns.Load(st)
	if !ok {
		return "", false
	}
	column, ok := columns.(map[string]string)[name]
	return column, ok
}

func entityInfo(table *schema.Table) (*hydra.EntityInfo, map[string]string) {
	info := &hydra.EntityInfo{
		Name: table.TypeName,
		Type: table.Type,
	}
	columns := make(map[string]string)

	for _, field := range table.Fields {
		name := hydra.FieldName(field.GoName)
		info.Fields = append(info.Fields, hydra.FieldInfo{
			Name:       name,
			GoName:     field.GoName,
			Type:       fieldType(field),
			IsNullable: !field.NotNull && !field.IsPK,
		})
		columns[name] = field.Name
		if field.IsPK {
			info.Identifier = append(info.Identifier, name)
		}
	}

	// Relations are kept in declaration order.
	for i := 0; i < table.Type.NumField(); i++ {
		sf := table.Type.Field(i)
		rel, ok := table.Relations[sf.Name]
		if !ok {
			continue
		}
		info.Associations = append(info.Associations, hydra.AssociationInfo{
			Name:       hydra.FieldName(sf.Name),
			GoName:     sf.Name,
			Kind:       relationKind(rel.Type),
			Target:     rel.JoinTable.Type,
			IsNullable: sf.Type.Kind() == reflect.Ptr,
		})
	}
	return info, columns
}

func relationKind(t int) hydra.RelationType {
	switch t {
	case schema.HasOneRelation:
		return hydra.RelationOneToOne
	case schema.HasManyRelation:
		return hydra.RelationOneToMany
	case schema.ManyToManyRelation:
		return hydra.RelationManyToMany
	default:
		return hydra.RelationManyToOne
	}
}

// fieldType maps a Bun field to a hydra field type. An explicit SQL type
// in the tag wins over the Go type.
func fieldType(field *schema.Field) hydra.FieldType {
	declared := strings.ToLower(field.UserSQLType)
	switch {
	case strings.HasPrefix(declared, "decimal"), strings.HasPrefix(declared, "numeric"):
		return hydra.TypeDecimal
	case declared == "text":
		return hydra.TypeText
	case declared == "date":
		return hydra.TypeDate
	case declared == "bigint":
		return hydra.TypeBigInt
	case declared == "smallint":
		return hydra.TypeSmallInt
	case strings.HasPrefix(declared, "timestamptz"):
		return hydra.TypeDateTimeTZ
	}
	return hydra.FieldTypeOf(field.StructField.Type)
}

func indirect(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
