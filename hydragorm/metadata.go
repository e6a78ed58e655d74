package hydragorm

import (
	"reflect"
	"strings"
	"sync"

	"github.com/lemmego/hydra"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// =====================================
// Metadata
// =====================================

// Metadata implements hydra.MetadataProvider on top of GORM schemas.
// Field names are the lowerCamel form of the Go field names, so "UserID"
// is exposed as "userID".
type Metadata struct {
	db      *gorm.DB
	infos   sync.Map // reflect.Type -> *hydra.EntityInfo
	columns sync.Map // reflect.Type -> map[string]string
}

// NewMetadata creates a metadata provider reading schemas through db.
func NewMetadata(db *gorm.DB) *Metadata {
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

	stmt := &gorm.Statement{DB: m.db}
	if err := stmt.Parse(reflect.New(st).Interface()); err != nil {
		return nil, convertGormError(err)
	}

	info, columns := entityInfo(stmt.Schema)
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

func entityInfo(s *schema.Schema) (*hydra.EntityInfo, map[string]string) {
	info := &hydra.EntityInfo{
		Name: s.Name,
		Type: s.ModelType,
	}
	columns := make(map[string]string)

	for _, field := range s.Fields {
		if field.Name == "" || !field.Readable {
			continue
		}
		name := hydra.FieldName(field.Name)

		if rel, ok := s.Relationships.Relations[field.Name]; ok {
			info.Associations = append(info.Associations, hydra.AssociationInfo{
				Name:       name,
				GoName:     field.Name,
				Kind:       relationKind(rel.Type),
				Target:     rel.FieldSchema.ModelType,
				IsNullable: field.FieldType.Kind() == reflect.Ptr,
			})
			continue
		}
		if field.DBName == "" {
			continue
		}

		info.Fields = append(info.Fields, hydra.FieldInfo{
			Name:       name,
			GoName:     field.Name,
			Type:       fieldType(field),
			IsNullable: !field.NotNull && !field.PrimaryKey,
		})
		columns[name] = field.DBName
	}

	for _, field := range s.PrimaryFields {
		info.Identifier = append(info.Identifier, hydra.FieldName(field.Name))
	}
	return info, columns
}

func relationKind(t schema.RelationshipType) hydra.RelationType {
	switch t {
	case schema.HasOne:
		return hydra.RelationOneToOne
	case schema.HasMany:
		return hydra.RelationOneToMany
	case schema.Many2Many:
		return hydra.RelationManyToMany
	default:
		return hydra.RelationManyToOne
	}
}

// fieldType maps a GORM field to a hydra field type. Go types with a
// dedicated mapping (time.Time, uuid.UUID) win over the database type.
func fieldType(field *schema.Field) hydra.FieldType {
	declared := strings.ToLower(field.TagSettings["TYPE"])
	switch {
	case strings.HasPrefix(declared, "decimal"), strings.HasPrefix(declared, "numeric"):
		return hydra.TypeDecimal
	case declared == "text":
		return hydra.TypeText
	case declared == "date":
		return hydra.TypeDate
	}

	if ft := hydra.FieldTypeOf(field.FieldType); ft != "" {
		return ft
	}
	switch field.DataType {
	case schema.Bool:
		return hydra.TypeBoolean
	case schema.Int, schema.Uint:
		return hydra.TypeInteger
	case schema.Float:
		return hydra.TypeFloat
	case schema.String:
		return hydra.TypeString
	case schema.Time:
		return hydra.TypeDateTime
	}
	return ""
}

func indirect(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
