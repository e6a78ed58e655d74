package hydra

import (
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Invoice struct {
	Number    string     `hydra:"number,id"`
	Ref       uuid.UUID
	Total     float64
	Lines     int16
	Paid      bool
	IssuedAt  time.Time
	DueAt     *time.Time `hydra:",notnull"`
	Note      string     `hydra:"memo,nullable,type:text"`
	Internal  string     `hydra:"-"`
	Customer  *Author
	Approvers []*Author  `hydra:"approvers,rel:many_to_many"`
	Tags      *Collection[*Tag]

	audit
}

type audit struct {
	CreatedBy string
}

func TestInferEntityInfo(t *testing.T) {
	info, err := InferEntityInfo(reflect.TypeOf(&Invoice{}))
	require.NoError(t, err)

	assert.Equal(t, "Invoice", info.Name)
	assert.Equal(t, reflect.TypeOf(Invoice{}), info.Type)
	assert.Equal(t, []string{"number"}, info.Identifier)
	assert.Equal(t, []string{"number", "ref", "total", "lines", "paid", "issuedAt", "dueAt", "memo"}, info.FieldNames())
	assert.Equal(t, []string{"customer", "approvers", "tags"}, info.AssociationNames())

	fieldTypes := map[string]FieldType{
		"number":   TypeString,
		"ref":      TypeGUID,
		"total":    TypeFloat,
		"lines":    TypeSmallInt,
		"paid":     TypeBoolean,
		"issuedAt": TypeDateTime,
		"dueAt":    TypeDateTime,
		"memo":     TypeText,
	}
	for name, ft := range fieldTypes {
		assert.Equal(t, ft, info.TypeOfField(name), name)
	}

	assert.False(t, info.IsNullable("number"))
	assert.False(t, info.IsNullable("dueAt"), "notnull overrides the pointer")
	assert.True(t, info.IsNullable("memo"))
	assert.True(t, info.IsNullable("customer"))
	assert.False(t, info.IsNullable("unknown"))

	assert.True(t, info.IsSingleValuedAssociation("customer"))
	assert.False(t, info.IsCollectionValuedAssociation("customer"))
	assert.True(t, info.IsCollectionValuedAssociation("approvers"))
	assert.True(t, info.IsCollectionValuedAssociation("tags"))
	assert.False(t, info.IsSingleValuedAssociation("total"))

	approvers, ok := info.Association("approvers")
	require.True(t, ok)
	assert.Equal(t, RelationManyToMany, approvers.Kind)
	assert.Equal(t, reflect.TypeOf(Author{}), approvers.Target)
	assert.Equal(t, reflect.TypeOf(Tag{}), info.AssociationTargetType("tags"))
	assert.Nil(t, info.AssociationTargetType("total"))

	assert.True(t, info.HasField("memo"))
	assert.False(t, info.HasField("note"))
	assert.False(t, info.HasField("internal"))
	assert.True(t, info.HasAssociation("customer"))
	assert.True(t, info.IsIdentifier("number"))
	assert.False(t, info.IsIdentifier("ref"))

	assert.Equal(t, "Note", info.goName("memo"))
	assert.Equal(t, "Missing", info.goName("missing"))
}

func TestInferEntityInfoFallbackIdentifier(t *testing.T) {
	info, err := InferEntityInfo(reflect.TypeOf(Book{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, info.Identifier)

	info, err = InferEntityInfo(reflect.TypeOf(SimpleEntity{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, info.Identifier)

	info, err = InferEntityInfo(reflect.TypeOf(Membership{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"userId", "groupId"}, info.Identifier)
}

func TestInferEntityInfoRejectsNonStructs(t *testing.T) {
	_, err := InferEntityInfo(reflect.TypeOf(5))
	assert.ErrorIs(t, err, ErrNotAnEntity)

	_, err = InferEntityInfo(nil)
	assert.ErrorIs(t, err, ErrNotAnEntity)
}

func TestParseFieldTag(t *testing.T) {
	tag := parseFieldTag("code, id, notnull, type:bigint, rel:one_to_one")
	assert.Equal(t, "code", tag.name)
	assert.True(t, tag.id)
	require.NotNil(t, tag.nullable)
	assert.False(t, *tag.nullable)
	assert.Equal(t, TypeBigInt, tag.typ)
	assert.Equal(t, RelationOneToOne, tag.relation)

	assert.True(t, parseFieldTag("-").skip)
	assert.Equal(t, fieldTag{}, parseFieldTag(""))
}

func TestMetadataRegistry(t *testing.T) {
	registry := NewMetadataRegistry()

	info, err := registry.MetadataFor(reflect.TypeOf(&Tag{}))
	require.NoError(t, err)
	again, err := registry.MetadataFor(reflect.TypeOf(Tag{}))
	require.NoError(t, err)
	assert.Same(t, info, again)
	assert.Len(t, registry.Types(), 1)

	_, err = registry.MetadataFor(reflect.TypeOf(""))
	assert.ErrorIs(t, err, ErrNotAnEntity)
}

func TestStrictMetadataRegistry(t *testing.T) {
	registry := NewStrictMetadataRegistry()

	_, err := registry.MetadataFor(reflect.TypeOf(Tag{}))
	assert.ErrorIs(t, err, ErrEntityNotRegistered)

	require.NoError(t, registry.Register(&Tag{}, reflect.TypeOf(Author{})))
	_, err = registry.MetadataFor(reflect.TypeOf(&Tag{}))
	assert.NoError(t, err)
	_, err = registry.MetadataFor(reflect.TypeOf(Author{}))
	assert.NoError(t, err)

	assert.ErrorIs(t, registry.Register(42), ErrNotAnEntity)
}

func TestRegisterInfoOverridesInference(t *testing.T) {
	registry := NewMetadataRegistry()
	registry.RegisterInfo(&EntityInfo{
		Name:       "Tag",
		Type:       reflect.TypeOf(Tag{}),
		Fields:     []FieldInfo{{Name: "label", GoName: "name", Type: TypeString}},
		Identifier: []string{},
	})

	h := mustNew(t, registry, nil, WithByValue(false))
	data, err := h.Extract(&Tag{id: 1, name: "go"})
	require.NoError(t, err)
	assert.Equal(t, Record{"label": "go"}, data)
}

func TestMetadataProviderFunc(t *testing.T) {
	calls := 0
	inner := NewMetadataRegistry()
	provider := MetadataProviderFunc(func(t reflect.Type) (*EntityInfo, error) {
		calls++
		return inner.MetadataFor(t)
	})

	h := mustNew(t, provider, nil)
	_, err := h.Extract(&SimpleEntity{})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestMetadataRegistryConcurrentInference(t *testing.T) {
	registry := NewMetadataRegistry()
	results := make([]*EntityInfo, 8)

	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = registry.MetadataFor(reflect.TypeOf(Article{}))
		}(i)
	}
	wg.Wait()

	for _, info := range results {
		assert.Same(t, results[0], info)
	}
}
