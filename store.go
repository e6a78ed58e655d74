package hydra

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// =====================================
// Entity Store
// =====================================

// EntityStore looks up persisted entities by identifier.
//
// target is the struct type of the entity. id is either a scalar or a Record
// of identifier field -> value. Find returns (nil, nil) when nothing
// matches; absence is not an error.
type EntityStore interface {
	Find(ctx context.Context, target reflect.Type, id interface{}) (interface{}, error)
}

// StoreFunc adapts a function to EntityStore.
type StoreFunc func(ctx context.Context, target reflect.Type, id interface{}) (interface{}, error)

// Find implements EntityStore
func (f StoreFunc) Find(ctx context.Context, target reflect.Type, id interface{}) (interface{}, error) {
	return f(ctx, target, id)
}

// MemoryStore is an in-memory EntityStore keyed by identifier values.
// It is safe for concurrent use.
type MemoryStore struct {
	mutex    sync.RWMutex
	meta     MetadataProvider
	entities map[reflect.Type]map[string]interface{}
	lookups  int64
}

// NewMemoryStore creates an empty store that reads identifiers using meta.
func NewMemoryStore(meta MetadataProvider) *MemoryStore {
	return &MemoryStore{
		meta:     meta,
		entities: make(map[reflect.Type]map[string]interface{}),
	}
}

// Put stores entities under their current identifier values.
func (s *MemoryStore) Put(entities ...interface{}) error {
	for _, entity := range entities {
		t, info, err := s.describe(reflect.TypeOf(entity))
		if err != nil {
			return err
		}
		id, err := IdentifierValues(info, entity)
		if err != nil {
			return err
		}
		key, ok := IdentifierKey(info, id)
		if !ok {
			return NewError(ErrorTypeInvalidArgument, fmt.Sprintf("%s has no complete identifier", info.Name))
		}

		s.mutex.Lock()
		if s.entities[t] == nil {
			s.entities[t] = make(map[string]interface{})
		}
		s.entities[t][key] = entity
		s.mutex.Unlock()
	}
	return nil
}

// Delete removes the entity stored under id and reports whether it existed.
func (s *MemoryStore) Delete(target reflect.Type, id interface{}) (bool, error) {
	t, info, err := s.describe(target)
	if err != nil {
		return false, err
	}
	key, ok := IdentifierKey(info, id)
	if !ok {
		return false, nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	_, exists := s.entities[t][key]
	delete(s.entities[t], key)
	return exists, nil
}

// Find implements EntityStore
func (s *MemoryStore) Find(ctx context.Context, target reflect.Type, id interface{}) (interface{}, error) {
	atomic.AddInt64(&s.lookups, 1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t, info, err := s.describe(target)
	if err != nil {
		return nil, err
	}
	key, ok := IdentifierKey(info, id)
	if !ok {
		return nil, nil
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.entities[t][key], nil
}

// Lookups returns how many times Find has been called.
func (s *MemoryStore) Lookups() int {
	return int(atomic.LoadInt64(&s.lookups))
}

// Len returns the number of stored entities of the target type.
func (s *MemoryStore) Len(target reflect.Type) int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.entities[indirectType(target)])
}

func (s *MemoryStore) describe(t reflect.Type) (reflect.Type, *EntityInfo, error) {
	if t == nil {
		return nil, nil, NewError(ErrorTypeInvalidArgument, "entity type is nil")
	}
	st := indirectType(t)
	info, err := s.meta.MetadataFor(st)
	if err != nil {
		return nil, nil, err
	}
	return st, info, nil
}

// NormalizeIdentifier expands id into a Record keyed by identifier field.
// A scalar is accepted for single-field identifiers only. It reports false
// when a value is missing or null.
func NormalizeIdentifier(info *EntityInfo, id interface{}) (Record, bool) {
	if len(info.Identifier) == 0 {
		return nil, false
	}

	values, isRecord := toRecord(id)
	if !isRecord {
		if len(info.Identifier) != 1 || isNil(id) {
			return nil, false
		}
		values = Record{info.Identifier[0]: id}
	}

	out := make(Record, len(info.Identifier))
	for _, name := range info.Identifier {
		v, ok := values[name]
		if !ok || isNil(v) {
			return nil, false
		}
		out[name] = v
	}
	return out, true
}

// IdentifierKey renders identifier values as a stable string, suitable as
// a map or cache key.
func IdentifierKey(info *EntityInfo, id interface{}) (string, bool) {
	values, ok := NormalizeIdentifier(info, id)
	if !ok {
		return "", false
	}

	names := append([]string(nil), info.Identifier...)
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+toString(values[name]))
	}
	return strings.Join(parts, "\x1f"), true
}

// IdentifierValues reads the identifier fields of entity through its
// getters, falling back to the struct fields.
func IdentifierValues(info *EntityInfo, entity interface{}) (Record, error) {
	rv := reflect.ValueOf(entity)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return nil, NewError(ErrorTypeInvalidArgument, fmt.Sprintf("expected a pointer to struct, got %T", entity))
	}
	table := accessorsFor(rv.Type())
	out := make(Record, len(info.Identifier))
	for _, name := range info.Identifier {
		fa := table.field(name, info.goName(name))
		if v, ok := fa.get(rv); ok {
			out[name] = v
			continue
		}
		if v, ok := fa.read(rv); ok {
			out[name] = v
		}
	}
	return out, nil
}

// ToRecord converts a string-keyed map into a Record.
func ToRecord(v interface{}) (Record, bool) {
	return toRecord(v)
}

func toRecord(v interface{}) (Record, bool) {
	switch m := v.(type) {
	case Record:
		return m, true
	case map[string]interface{}:
		return Record(m), true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(Record, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}
