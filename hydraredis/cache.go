package hydraredis

import (
	"context"
	"io"
	"log/slog"
	"reflect"

	"github.com/lemmego/hydra"
)

// =====================================
// Read-through Cache
// =====================================

// Cache is an entity store that can also keep entities.
type Cache interface {
	hydra.EntityStore
	Save(ctx context.Context, entities ...interface{}) error
}

// CachedStore answers lookups from a cache and falls back to the backing
// store on a miss, saving what the backing store finds.
// Cache failures never fail a lookup; they are logged and the backing
// store is used instead.
type CachedStore struct {
	next   hydra.EntityStore
	cache  Cache
	logger *slog.Logger
}

// NewCachedStore puts cache in front of next.
func NewCachedStore(next hydra.EntityStore, cache Cache) *CachedStore {
	return &CachedStore{
		next:   next,
		cache:  cache,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the logger receiving cache failures.
func (c *CachedStore) SetLogger(logger *slog.Logger) {
	c.logger = logger
}

// Find implements hydra.EntityStore
func (c *CachedStore) Find(ctx context.Context, target reflect.Type, id interface{}) (interface{}, error) {
	found, err := c.cache.Find(ctx, target, id)
	if err != nil {
		c.logger.WarnContext(ctx, "hydraredis: cache lookup failed", "entity", target.String(), "error", err)
	} else if found != nil {
		return found, nil
	}

	found, err = c.next.Find(ctx, target, id)
	if err != nil || isNil(found) {
		return nil, err
	}

	if err := c.cache.Save(ctx, found); err != nil {
		c.logger.WarnContext(ctx, "hydraredis: cache save failed", "entity", target.String(), "error", err)
	}
	return found, nil
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}
