package hydra

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Membership struct {
	UserID  int    `hydra:"userId,id"`
	GroupID string `hydra:"groupId,id"`
	Role    string
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	meta := NewMetadataRegistry()
	store := NewMemoryStore(meta)
	tagType := reflect.TypeOf(Tag{})

	a, b := &Tag{id: 1, name: "A"}, &Tag{id: 2, name: "B"}
	require.NoError(t, store.Put(a, b))
	assert.Equal(t, 2, store.Len(tagType))
	assert.Equal(t, 2, store.Len(reflect.TypeOf(a)))

	found, err := store.Find(ctx, tagType, 1)
	require.NoError(t, err)
	assert.Same(t, a, found)

	found, err = store.Find(ctx, tagType, Record{"id": int64(2)})
	require.NoError(t, err)
	assert.Same(t, b, found)

	found, err = store.Find(ctx, tagType, "2")
	require.NoError(t, err)
	assert.Same(t, b, found, "identifiers are compared by their string form")

	found, err = store.Find(ctx, tagType, 3)
	require.NoError(t, err)
	assert.Nil(t, found)

	deleted, err := store.Delete(tagType, 1)
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = store.Delete(tagType, 1)
	require.NoError(t, err)
	assert.False(t, deleted)

	assert.Equal(t, 4, store.Lookups())
}

func TestMemoryStoreCompositeIdentifier(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(NewMetadataRegistry())
	target := reflect.TypeOf(Membership{})

	m := &Membership{UserID: 1, GroupID: "admins", Role: "owner"}
	require.NoError(t, store.Put(m))

	found, err := store.Find(ctx, target, Record{"groupId": "admins", "userId": 1})
	require.NoError(t, err)
	assert.Same(t, m, found)

	found, err = store.Find(ctx, target, Record{"userId": 1})
	require.NoError(t, err)
	assert.Nil(t, found, "partial identifiers never match")

	found, err = store.Find(ctx, target, 1)
	require.NoError(t, err)
	assert.Nil(t, found, "scalars only address single identifiers")
}

func TestMemoryStoreErrors(t *testing.T) {
	store := NewMemoryStore(NewStrictMetadataRegistry())

	err := store.Put(&Tag{id: 1})
	assert.ErrorIs(t, err, ErrEntityNotRegistered)

	err = NewMemoryStore(NewMetadataRegistry()).Put(Tag{id: 1})
	assert.True(t, IsErrorType(err, ErrorTypeInvalidArgument))

	err = NewMemoryStore(NewMetadataRegistry()).Put(&Profile{})
	assert.NoError(t, err, "zero identifiers are still identifiers")

	type anonymous struct{ Name string }
	err = NewMemoryStore(NewMetadataRegistry()).Put(&anonymous{})
	assert.True(t, IsErrorType(err, ErrorTypeInvalidArgument))

	_, err = store.Find(context.Background(), nil, 1)
	assert.True(t, IsErrorType(err, ErrorTypeInvalidArgument))
}

func TestMemoryStoreHonoursContext(t *testing.T) {
	store := NewMemoryStore(NewMetadataRegistry())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Find(ctx, reflect.TypeOf(Tag{}), 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStoreFunc(t *testing.T) {
	var calls []interface{}
	store := StoreFunc(func(ctx context.Context, target reflect.Type, id interface{}) (interface{}, error) {
		calls = append(calls, id)
		return &Author{id: 1}, nil
	})

	h := mustNew(t, NewMetadataRegistry(), store)
	article := &Article{}
	_, err := h.Hydrate(context.Background(), Record{"author": 1}, article)
	require.NoError(t, err)
	assert.Equal(t, 1, article.author.id)
	assert.Equal(t, []interface{}{1}, calls)
}

func TestIdentifierValues(t *testing.T) {
	meta := NewMetadataRegistry()

	info, err := meta.MetadataFor(reflect.TypeOf(Membership{}))
	require.NoError(t, err)
	values, err := IdentifierValues(info, &Membership{UserID: 3, GroupID: "g"})
	require.NoError(t, err)
	assert.Equal(t, Record{"userId": 3, "groupId": "g"}, values)

	info, err = meta.MetadataFor(reflect.TypeOf(Tag{}))
	require.NoError(t, err)
	values, err = IdentifierValues(info, &Tag{id: 9})
	require.NoError(t, err)
	assert.Equal(t, Record{"id": 9}, values)

	_, err = IdentifierValues(info, Tag{})
	assert.Error(t, err)
}
