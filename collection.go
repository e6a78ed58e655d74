package hydra

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/davecgh/go-spew/spew"
)

// =====================================
// Collections
// =====================================

// ElementCollection is the untyped view of a collection-valued association.
// Collection strategies mutate associations through it, so the collection
// object owned by the entity is never swapped for another one.
type ElementCollection interface {
	Elements() []interface{}
	AddElement(element interface{}) error
	RemoveElement(element interface{}) bool
	ElementType() reflect.Type
}

// Collection is an ordered collection of related entities with identity
// based membership. Entities should hold it by pointer: by-reference
// hydration mutates a *Collection[T] in place, so every holder of the
// pointer sees the change, while a plain slice field is given a new slice
// header that earlier copies of the slice do not see.
type Collection[T any] struct {
	items []T
}

// NewCollection creates a collection holding items.
func NewCollection[T any](items ...T) *Collection[T] {
	c := &Collection[T]{}
	c.Add(items...)
	return c
}

// Add appends items that are not already members.
func (c *Collection[T]) Add(items ...T) {
	for _, item := range items {
		if !c.Contains(item) {
			c.items = append(c.items, item)
		}
	}
}

// Remove drops item and reports whether it was a member.
func (c *Collection[T]) Remove(item T) bool {
	id := identityOf(item)
	for i := range c.items {
		if identityOf(c.items[i]) == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

// Contains reports whether item is a member, compared by identity.
func (c *Collection[T]) Contains(item T) bool {
	id := identityOf(item)
	for i := range c.items {
		if identityOf(c.items[i]) == id {
			return true
		}
	}
	return false
}

// Items returns a copy of the members.
func (c *Collection[T]) Items() []T {
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of members.
func (c *Collection[T]) Len() int {
	return len(c.items)
}

// Elements implements ElementCollection
func (c *Collection[T]) Elements() []interface{} {
	out := make([]interface{}, len(c.items))
	for i, item := range c.items {
		out[i] = item
	}
	return out
}

// AddElement implements ElementCollection
func (c *Collection[T]) AddElement(element interface{}) error {
	item, ok := element.(T)
	if !ok {
		return NewError(ErrorTypeInvalidArgument,
			fmt.Sprintf("cannot add %T to a collection of %s", element, c.ElementType()))
	}
	c.Add(item)
	return nil
}

// RemoveElement implements ElementCollection
func (c *Collection[T]) RemoveElement(element interface{}) bool {
	item, ok := element.(T)
	if !ok {
		return false
	}
	return c.Remove(item)
}

// ElementType implements ElementCollection
func (c *Collection[T]) ElementType() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// MarshalJSON encodes the collection as a JSON array.
func (c *Collection[T]) MarshalJSON() ([]byte, error) {
	if c == nil || c.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.items)
}

// UnmarshalJSON decodes a JSON array into the collection, replacing its members.
func (c *Collection[T]) UnmarshalJSON(data []byte) error {
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	c.items = items
	return nil
}

// =====================================
// Identity
// =====================================

// identity is a stable token for an element: the address for reference
// kinds, the value itself for comparable values and a dump otherwise.
type identity struct {
	typ   reflect.Type
	ptr   uintptr
	value interface{}
}

var identityDumper = spew.ConfigState{
	SortKeys:                true,
	DisableMethods:          true,
	DisablePointerAddresses: false,
}

func identityOf(v interface{}) identity {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return identity{}
	}
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return identity{typ: rv.Type(), ptr: rv.Pointer()}
	}
	if isComparable(rv) {
		return identity{typ: rv.Type(), value: v}
	}
	return identity{typ: rv.Type(), value: identityDumper.Sdump(v)}
}

// isComparable reports whether rv can be used as a map key without panicking.
func isComparable(rv reflect.Value) bool {
	if !rv.Type().Comparable() {
		return false
	}
	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			return true
		}
		return isComparable(rv.Elem())
	case reflect.Struct:
		for i := 0; i < rv.NumField(); i++ {
			if !isComparable(rv.Field(i)) {
				return false
			}
		}
	case reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if !isComparable(rv.Index(i)) {
				return false
			}
		}
	}
	return true
}

// identitySet is a visited set keyed by element identity.
type identitySet map[identity]struct{}

func newIdentitySet(elements []interface{}) identitySet {
	set := make(identitySet, len(elements))
	for _, e := range elements {
		set[identityOf(e)] = struct{}{}
	}
	return set
}

func (s identitySet) has(e interface{}) bool {
	_, ok := s[identityOf(e)]
	return ok
}

// difference returns the elements of a that are not in b, keeping order.
// Repeated elements of a are returned once.
func difference(a, b []interface{}) []interface{} {
	return differenceBy(a, b, identityOf)
}

func differenceBy(a, b []interface{}, identify func(interface{}) identity) []interface{} {
	seen := make(identitySet, len(b))
	for _, e := range b {
		seen[identify(e)] = struct{}{}
	}
	var out []interface{}
	for _, e := range a {
		id := identify(e)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, e)
	}
	return out
}

// memberKey returns the identifier key of an entity of the info type.
// Entities whose identifier is missing or holds a zero value have no key:
// they are not persisted yet and only match themselves.
func memberKey(info *EntityInfo, e interface{}) (string, bool) {
	if info == nil || len(info.Identifier) == 0 || !isInstance(e, info.Type) {
		return "", false
	}
	id, err := IdentifierValues(info, e)
	if err != nil {
		return "", false
	}
	for _, name := range info.Identifier {
		v, ok := id[name]
		if !ok || isNil(v) || reflect.ValueOf(v).IsZero() {
			return "", false
		}
	}
	return IdentifierKey(info, id)
}

// elementsOf flattens a collection-like value into a slice of elements.
// The second result is false when v is not a collection.
func elementsOf(v interface{}) ([]interface{}, bool) {
	if v == nil {
		return nil, true
	}
	if c, ok := v.(ElementCollection); ok {
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Ptr && rv.IsNil() {
			return nil, true
		}
		return c.Elements(), true
	}
	if elements, ok := v.([]interface{}); ok {
		return elements, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			// []byte and fixed byte arrays such as uuid.UUID are scalars
			return nil, false
		}
		out := make([]interface{}, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = rv.Index(i).Interface()
		}
		return out, true
	case reflect.Struct:
		// Collection[T] held by value
		p := reflect.New(rv.Type())
		p.Elem().Set(rv)
		if c, ok := p.Interface().(ElementCollection); ok {
			return c.Elements(), true
		}
	}
	return nil, false
}
