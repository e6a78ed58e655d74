package hydraredis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/lemmego/hydra"
)

// =====================================
// Entity Store
// =====================================

// Store implements hydra.EntityStore over JSON documents kept in Redis.
// An entity is stored under "<prefix><type>:<identifier>".
type Store struct {
	client redis.Cmdable
	meta   hydra.MetadataProvider
	prefix string
	ttl    time.Duration
}

// NewStore creates a store on client. A nil meta infers metadata from
// struct tags.
func NewStore(client redis.Cmdable, meta hydra.MetadataProvider) *Store {
	if meta == nil {
		meta = hydra.NewMetadataRegistry()
	}
	return &Store{client: client, meta: meta, prefix: "hydra:"}
}

// WithPrefix returns a copy of the store using prefix for its keys.
func (s *Store) WithPrefix(prefix string) *Store {
	c := *s
	c.prefix = prefix
	return &c
}

// WithTTL returns a copy of the store whose saved documents expire after
// ttl. Zero keeps them forever.
func (s *Store) WithTTL(ttl time.Duration) *Store {
	c := *s
	c.ttl = ttl
	return &c
}

// Metadata returns the metadata provider used by the store.
func (s *Store) Metadata() hydra.MetadataProvider {
	return s.meta
}

// Key returns the Redis key of the entity of type target identified by id.
func (s *Store) Key(target reflect.Type, id interface{}) (string, bool, error) {
	st := indirect(target)
	info, err := s.meta.MetadataFor(st)
	if err != nil {
		return "", false, err
	}
	key, ok := hydra.IdentifierKey(info, id)
	if !ok {
		return "", false, nil
	}
	return s.prefix + strings.ToLower(st.Name()) + ":" + strings.ReplaceAll(key, "\x1f", ","), true, nil
}

// Find implements hydra.EntityStore
func (s *Store) Find(ctx context.Context, target reflect.Type, id interface{}) (interface{}, error) {
	key, ok, err := s.Key(target, id)
	if err != nil || !ok {
		return nil, err
	}

	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, convertRedisError(err)
	}

	dest := reflect.New(indirect(target)).Interface()
	if err := json.Unmarshal(data, dest); err != nil {
		return nil, hydra.NewErrorWithCause(hydra.ErrorTypeParse, fmt.Sprintf("failed to decode %s", key), err)
	}
	return dest, nil
}

// Save stores entities under their current identifier values.
func (s *Store) Save(ctx context.Context, entities ...interface{}) error {
	pipe := s.client.TxPipeline()
	for _, entity := range entities {
		key, err := s.entityKey(entity)
		if err != nil {
			return err
		}
		data, err := json.Marshal(entity)
		if err != nil {
			return hydra.NewErrorWithCause(hydra.ErrorTypeInvalidArgument, fmt.Sprintf("failed to encode %T", entity), err)
		}
		pipe.Set(ctx, key, data, s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return convertRedisError(err)
}

// Delete removes the entity of type target identified by id and reports
// whether it existed.
func (s *Store) Delete(ctx context.Context, target reflect.Type, id interface{}) (bool, error) {
	key, ok, err := s.Key(target, id)
	if err != nil || !ok {
		return false, err
	}
	n, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return false, convertRedisError(err)
	}
	return n > 0, nil
}

func (s *Store) entityKey(entity interface{}) (string, error) {
	t := reflect.TypeOf(entity)
	info, err := s.meta.MetadataFor(t)
	if err != nil {
		return "", err
	}
	id, err := hydra.IdentifierValues(info, entity)
	if err != nil {
		return "", err
	}
	key, ok, err := s.Key(t, id)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", hydra.NewError(hydra.ErrorTypeInvalidArgument, fmt.Sprintf("%s has no complete identifier", info.Name))
	}
	return key, nil
}

func indirect(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
