package hydra

import (
	"fmt"
	"reflect"
)

// =====================================
// Strategies
// =====================================

// Strategy transforms a single field value during extraction and hydration.
type Strategy interface {
	// Extract converts the value read from object into its Record form
	Extract(value interface{}, object interface{}) (interface{}, error)
	// Hydrate converts a Record value into the form written to the entity.
	// data is the whole Record being hydrated.
	Hydrate(value interface{}, data Record) (interface{}, error)
}

// CollectionStrategy reconciles a collection-valued association.
// Implementations hold no per-call state: everything about the call is in ctx.
type CollectionStrategy interface {
	Strategy
	HydrateCollection(ctx CollectionContext, values []interface{}) error
}

// StoreAware is implemented by plugins that need the entity store.
type StoreAware interface {
	SetStore(store EntityStore)
}

// ClosureStrategy builds a Strategy from functions. A nil function leaves
// the value unchanged.
type ClosureStrategy struct {
	ExtractFunc func(value interface{}, object interface{}) (interface{}, error)
	HydrateFunc func(value interface{}, data Record) (interface{}, error)
}

// Extract implements Strategy
func (s ClosureStrategy) Extract(value interface{}, object interface{}) (interface{}, error) {
	if s.ExtractFunc == nil {
		return value, nil
	}
	return s.ExtractFunc(value, object)
}

// Hydrate implements Strategy
func (s ClosureStrategy) Hydrate(value interface{}, data Record) (interface{}, error) {
	if s.HydrateFunc == nil {
		return value, nil
	}
	return s.HydrateFunc(value, data)
}

// =====================================
// Collection Context
// =====================================

// CollectionContext describes one reconciliation call: the entity owning
// the collection, the association name and the owner's metadata.
//
// Target is the metadata of the associated entity type. When it is set,
// members carrying a complete identifier are matched by identifier values;
// other members are matched by identity.
type CollectionContext struct {
	Owner    interface{}
	Field    string
	Metadata *EntityInfo
	Target   *EntityInfo

	accessors *accessorTable
}

// NewCollectionContext creates the context for reconciling field on owner.
func NewCollectionContext(owner interface{}, field string, info *EntityInfo) CollectionContext {
	return CollectionContext{
		Owner:     owner,
		Field:     field,
		Metadata:  info,
		accessors: accessorsFor(reflect.TypeOf(owner)),
	}
}

func (c CollectionContext) entityName() string {
	if c.Metadata != nil && c.Metadata.Name != "" {
		return c.Metadata.Name
	}
	return typeName(c.Owner)
}

func (c CollectionContext) binding() *fieldAccessor {
	table := c.accessors
	if table == nil {
		table = accessorsFor(reflect.TypeOf(c.Owner))
	}
	goName := ""
	if c.Metadata != nil {
		goName = c.Metadata.goName(c.Field)
	}
	return table.field(c.Field, goName)
}

// Difference returns the members of a that are not in b, keeping order.
// Repeated members of a are returned once.
func (c CollectionContext) Difference(a, b []interface{}) []interface{} {
	return differenceBy(a, b, c.memberIdentity)
}

func (c CollectionContext) memberIdentity(e interface{}) identity {
	if key, ok := memberKey(c.Target, e); ok {
		return identity{typ: c.Target.Type, value: key}
	}
	return identityOf(e)
}

// heldMembers indexes the members already in the collection by identifier
// key. Members without a complete identifier are left out.
func (c CollectionContext) heldMembers(byValue bool) map[string]interface{} {
	if c.Target == nil {
		return nil
	}
	var current []interface{}
	var err error
	if byValue {
		current, err = c.CurrentByValue()
	} else {
		current, err = c.CurrentByReference()
	}
	if err != nil {
		return nil
	}
	held := make(map[string]interface{}, len(current))
	for _, e := range current {
		if key, ok := memberKey(c.Target, e); ok {
			held[key] = e
		}
	}
	return held
}

// RequireMethods fails with a configuration error when the owner lacks the
// adder, or the remover when withRemover is set.
func (c CollectionContext) RequireMethods(withRemover bool) error {
	b := c.binding()
	adder := "Add" + classify(c.Field)
	remover := "Remove" + classify(c.Field)

	switch {
	case withRemover && (b.adder == nil || b.remover == nil):
		return configurationError(c.entityName(), c.Field,
			"removal requires both %s and %s to be defined on %s, but one or both are missing",
			adder, remover, c.entityName())
	case b.adder == nil:
		return configurationError(c.entityName(), c.Field,
			"adding requires %s to be defined on %s, but it is missing", adder, c.entityName())
	}
	return nil
}

// CurrentByValue returns the collection as reported by the owner's getter.
func (c CollectionContext) CurrentByValue() ([]interface{}, error) {
	b := c.binding()
	value, ok := b.get(reflect.ValueOf(c.Owner))
	if !ok {
		return nil, configurationError(c.entityName(), c.Field,
			"the getter Get%s to access collection %s in %s does not exist",
			classify(c.Field), c.Field, c.entityName())
	}
	elements, ok := elementsOf(value)
	if !ok {
		return nil, configurationError(c.entityName(), c.Field,
			"getter for %s returned %T, which is not a collection", c.Field, value)
	}
	return elements, nil
}

// CurrentByReference returns the collection stored in the backing field.
func (c CollectionContext) CurrentByReference() ([]interface{}, error) {
	value, ok := c.binding().read(reflect.ValueOf(c.Owner))
	if !ok {
		return nil, c.missingField()
	}
	elements, ok := elementsOf(value)
	if !ok {
		return nil, configurationError(c.entityName(), c.Field,
			"field %s holds %T, which is not a collection", c.Field, value)
	}
	return elements, nil
}

// AddByValue passes elements to the owner's adder. Empty input is a no-op.
func (c CollectionContext) AddByValue(elements []interface{}) error {
	if len(elements) == 0 {
		return nil
	}
	b := c.binding()
	if b.adder == nil {
		return c.RequireMethods(false)
	}
	return c.wrap(callCollection(reflect.ValueOf(c.Owner), b.adder, elements))
}

// RemoveByValue passes elements to the owner's remover. Empty input is a no-op.
func (c CollectionContext) RemoveByValue(elements []interface{}) error {
	if len(elements) == 0 {
		return nil
	}
	b := c.binding()
	if b.remover == nil {
		return c.RequireMethods(true)
	}
	return c.wrap(callCollection(reflect.ValueOf(c.Owner), b.remover, elements))
}

// MutateByReference adds and removes elements on the live collection held
// by the backing field. Collection fields are mutated through
// ElementCollection; a nil collection pointer is initialised first. Slice
// fields are rewritten in place, keeping the order of retained elements.
func (c CollectionContext) MutateByReference(add, remove []interface{}) error {
	if len(add) == 0 && len(remove) == 0 {
		return nil
	}
	f, ok := c.binding().fieldValue(reflect.ValueOf(c.Owner))
	if !ok {
		return c.missingField()
	}

	if ec, ok := c.liveCollection(f); ok {
		for _, e := range add {
			if err := ec.AddElement(e); err != nil {
				return c.wrap(err)
			}
		}
		for _, e := range remove {
			ec.RemoveElement(e)
		}
		return nil
	}

	if f.Kind() != reflect.Slice {
		return configurationError(c.entityName(), c.Field,
			"field %s has type %s, which is not a collection", c.Field, f.Type())
	}

	removed := newIdentitySet(remove)
	current, _ := elementsOf(f.Interface())
	kept := make([]interface{}, 0, len(current)+len(add))
	for _, e := range current {
		if !removed.has(e) {
			kept = append(kept, e)
		}
	}
	kept = append(kept, add...)

	slice, err := buildSlice(f.Type(), kept)
	if err != nil {
		return c.wrap(err)
	}
	f.Set(slice)
	return nil
}

func (c CollectionContext) liveCollection(f reflect.Value) (ElementCollection, bool) {
	switch {
	case f.Kind() == reflect.Ptr && f.Type().Implements(elementCollectionType):
		if f.IsNil() {
			f.Set(reflect.New(f.Type().Elem()))
		}
		return f.Interface().(ElementCollection), true
	case f.Kind() == reflect.Interface && !f.IsNil():
		ec, ok := f.Interface().(ElementCollection)
		return ec, ok
	case f.CanAddr() && f.Addr().Type().Implements(elementCollectionType):
		return f.Addr().Interface().(ElementCollection), true
	}
	return nil, false
}

func (c CollectionContext) missingField() error {
	return configurationError(c.entityName(), c.Field,
		"field %s does not exist in %s", c.Field, c.entityName())
}

func (c CollectionContext) wrap(err error) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(Error); ok {
		if e.Entity == "" {
			e.Entity = c.entityName()
		}
		if e.Field == "" {
			e.Field = c.Field
		}
		return e
	}
	return Error{
		Type:    ErrorTypeInternal,
		Message: fmt.Sprintf("updating collection %s failed", c.Field),
		Entity:  c.entityName(),
		Field:   c.Field,
		Cause:   err,
	}
}
