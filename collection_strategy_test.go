package hydra

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func articleContext(t *testing.T, article *Article) CollectionContext {
	t.Helper()
	info, err := NewMetadataRegistry().MetadataFor(reflect.TypeOf(article))
	require.NoError(t, err)
	return NewCollectionContext(article, "tags", info)
}

func TestCollectionStrategies(t *testing.T) {
	tests := []struct {
		name     string
		strategy CollectionStrategy
		expected []string
	}{
		{"allow remove by value", AllowRemoveByValue{}, []string{"B", "C"}},
		{"allow remove by reference", AllowRemoveByReference{}, []string{"B", "C"}},
		{"disallow remove by value", DisallowRemoveByValue{}, []string{"A", "B", "C"}},
		{"disallow remove by reference", DisallowRemoveByReference{}, []string{"A", "B", "C"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b, c := &Tag{name: "A"}, &Tag{name: "B"}, &Tag{name: "C"}
			article := &Article{tags: NewCollection(a, b)}
			tags := article.tags

			err := tt.strategy.HydrateCollection(articleContext(t, article), []interface{}{b, c})
			require.NoError(t, err)

			assert.Same(t, tags, article.tags)
			assert.Equal(t, tt.expected, tagNames(article.tags))
		})
	}
}

func TestCollectionStrategiesAreReentrant(t *testing.T) {
	strategy := AllowRemoveByValue{}
	x, y := &Tag{name: "X"}, &Tag{name: "Y"}
	first := &Article{tags: NewCollection(x)}
	second := &Article{tags: NewCollection(y)}

	require.NoError(t, strategy.HydrateCollection(articleContext(t, first), []interface{}{y}))
	require.NoError(t, strategy.HydrateCollection(articleContext(t, second), []interface{}{x, y}))

	assert.Equal(t, []string{"Y"}, tagNames(first.tags))
	assert.Equal(t, []string{"Y", "X"}, tagNames(second.tags))
}

func TestCollectionStrategyPassthrough(t *testing.T) {
	value := []int{1, 2}
	for _, s := range []CollectionStrategy{AllowRemoveByValue{}, AllowRemoveByReference{}, DisallowRemoveByValue{}, DisallowRemoveByReference{}} {
		extracted, err := s.Extract(value, nil)
		require.NoError(t, err)
		assert.Equal(t, value, extracted)

		hydrated, err := s.Hydrate(value, Record{})
		require.NoError(t, err)
		assert.Equal(t, value, hydrated)
	}
}

func TestCollectionContextWithoutMetadata(t *testing.T) {
	b := &Book{ID: 1}
	library := &Library{}

	ctx := NewCollectionContext(library, "books", nil)
	require.NoError(t, DisallowRemoveByReference{}.HydrateCollection(ctx, []interface{}{b, b}))
	assert.Equal(t, []*Book{b}, library.Books)
}

func TestCollectionContextMissingGetter(t *testing.T) {
	type orphan struct {
		Books []*Book
	}
	info, err := InferEntityInfo(reflect.TypeOf(orphan{}))
	require.NoError(t, err)

	ctx := NewCollectionContext(&orphan{}, "books", info)
	_, err = ctx.CurrentByValue()
	require.Error(t, err)
	assert.True(t, IsConfiguration(err))
	assert.Contains(t, err.Error(), "GetBooks")
}

func TestCollectionContextMissingField(t *testing.T) {
	ctx := NewCollectionContext(&Library{}, "shelves", nil)

	_, err := ctx.CurrentByReference()
	assert.True(t, IsConfiguration(err))

	err = ctx.MutateByReference([]interface{}{&Book{}}, nil)
	assert.True(t, IsConfiguration(err))
}

func TestCollectionContextRejectsForeignElements(t *testing.T) {
	article := &Article{}
	err := AllowRemoveByReference{}.HydrateCollection(articleContext(t, article), []interface{}{&Book{}})
	require.Error(t, err)

	var hydraErr Error
	require.ErrorAs(t, err, &hydraErr)
	assert.Equal(t, ErrorTypeInvalidArgument, hydraErr.Type)
	assert.Equal(t, "tags", hydraErr.Field)
}

func TestCollectionContextMatchesMembersByIdentifier(t *testing.T) {
	tagInfo, err := NewMetadataRegistry().MetadataFor(reflect.TypeOf(&Tag{}))
	require.NoError(t, err)

	held, copied := &Tag{id: 1, name: "held"}, &Tag{id: 1, name: "copy"}
	unsaved := &Tag{name: "new"}

	ctx := CollectionContext{Target: tagInfo}
	assert.Empty(t, ctx.Difference([]interface{}{copied}, []interface{}{held}))
	assert.Equal(t, []interface{}{unsaved}, ctx.Difference([]interface{}{copied, unsaved}, []interface{}{held}))
	assert.Equal(t, []interface{}{unsaved}, ctx.Difference([]interface{}{unsaved}, []interface{}{&Tag{name: "new"}}),
		"members without an identifier are compared by pointer")

	ctx.Target = nil
	assert.Equal(t, []interface{}{copied}, ctx.Difference([]interface{}{copied}, []interface{}{held}))
}

func TestCollectionStrategiesKeepHeldMembers(t *testing.T) {
	tagInfo, err := NewMetadataRegistry().MetadataFor(reflect.TypeOf(&Tag{}))
	require.NoError(t, err)

	tests := []struct {
		name     string
		strategy CollectionStrategy
		expected []string
	}{
		{"allow remove by value", AllowRemoveByValue{}, []string{"A", "C"}},
		{"allow remove by reference", AllowRemoveByReference{}, []string{"A", "C"}},
		{"disallow remove by value", DisallowRemoveByValue{}, []string{"A", "B", "C"}},
		{"disallow remove by reference", DisallowRemoveByReference{}, []string{"A", "B", "C"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := &Tag{id: 1, name: "A"}, &Tag{id: 2, name: "B"}
			article := &Article{tags: NewCollection(a, b)}

			ctx := articleContext(t, article)
			ctx.Target = tagInfo
			err := tt.strategy.HydrateCollection(ctx, []interface{}{&Tag{id: 1, name: "A"}, &Tag{id: 3, name: "C"}})
			require.NoError(t, err)

			assert.Equal(t, tt.expected, tagNames(article.tags))
			assert.Same(t, a, article.tags.Items()[0])
		})
	}
}
