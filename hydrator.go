package hydra

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sort"
)

// =====================================
// Hydrator
// =====================================

// Hydrator converts entities to Records and back, resolving associations
// through an EntityStore and reconciling collections in place.
//
// Extract and Hydrate do not modify the Hydrator, so a configured Hydrator
// may be shared between goroutines. The configuration methods are not
// synchronised and must not run concurrently with conversions.
type Hydrator struct {
	meta  MetadataProvider
	store EntityStore

	byValue            bool
	defaultByValue     CollectionStrategy
	defaultByReference CollectionStrategy
	strategies         map[string]Strategy
	filters            *FilterComposite
	naming             NamingStrategy
	logger             *slog.Logger
}

// New creates a Hydrator. store may be nil, in which case no existing
// entity is ever found and associations are always built from data.
// The first option that fails to apply is returned as an error.
func New(meta MetadataProvider, store EntityStore, opts ...Option) (*Hydrator, error) {
	h := &Hydrator{
		meta:               meta,
		store:              store,
		byValue:            true,
		defaultByValue:     AllowRemoveByValue{},
		defaultByReference: AllowRemoveByReference{},
		strategies:         make(map[string]Strategy),
		filters:            NewFilterComposite(),
		logger:             slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if err := opt.Apply(h); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// ByValue reports whether entities are accessed through their methods.
func (h *Hydrator) ByValue() bool { return h.byValue }

// Store returns the entity store, which may be nil.
func (h *Hydrator) Store() EntityStore { return h.store }

// Metadata returns the metadata provider.
func (h *Hydrator) Metadata() MetadataProvider { return h.meta }

// AddStrategy attaches a strategy to a field, replacing any previous one.
func (h *Hydrator) AddStrategy(field string, s Strategy) {
	h.strategies[field] = s
}

// RemoveStrategy detaches the strategy of a field and reports whether it existed.
func (h *Hydrator) RemoveStrategy(field string) bool {
	_, ok := h.strategies[field]
	delete(h.strategies, field)
	return ok
}

// HasStrategy checks whether a strategy is attached to field.
func (h *Hydrator) HasStrategy(field string) bool {
	_, ok := h.strategies[field]
	return ok
}

// GetStrategy returns the strategy attached to field.
func (h *Hydrator) GetStrategy(field string) (Strategy, bool) {
	s, ok := h.strategies[field]
	return s, ok
}

// SetDefaultByValueStrategy sets the default collection strategy for by-value mode.
func (h *Hydrator) SetDefaultByValueStrategy(s CollectionStrategy) {
	h.defaultByValue = s
}

// DefaultByValueStrategy returns the default collection strategy for by-value mode.
func (h *Hydrator) DefaultByValueStrategy() CollectionStrategy { return h.defaultByValue }

// SetDefaultByReferenceStrategy sets the default collection strategy for by-reference mode.
func (h *Hydrator) SetDefaultByReferenceStrategy(s CollectionStrategy) {
	h.defaultByReference = s
}

// DefaultByReferenceStrategy returns the default collection strategy for by-reference mode.
func (h *Hydrator) DefaultByReferenceStrategy() CollectionStrategy { return h.defaultByReference }

// AddFilter registers a named extraction filter.
func (h *Hydrator) AddFilter(name string, f Filter, condition Condition) error {
	return h.filters.AddFilter(name, f, condition)
}

// RemoveFilter removes a named filter and reports whether it existed.
func (h *Hydrator) RemoveFilter(name string) bool {
	return h.filters.RemoveFilter(name)
}

// HasFilter checks whether a named filter is registered.
func (h *Hydrator) HasFilter(name string) bool {
	return h.filters.HasFilter(name)
}

// Filters returns the composite holding the registered filters.
func (h *Hydrator) Filters() *FilterComposite { return h.filters }

// SetNamingStrategy sets the naming strategy; nil removes it.
func (h *Hydrator) SetNamingStrategy(n NamingStrategy) { h.naming = n }

// NamingStrategy returns the naming strategy, or nil.
func (h *Hydrator) NamingStrategy() NamingStrategy { return h.naming }

func (h *Hydrator) extractName(field string) string {
	if h.naming == nil {
		return field
	}
	return h.naming.Extract(field)
}

func (h *Hydrator) hydrateName(key string) string {
	if h.naming == nil {
		return key
	}
	return h.naming.Hydrate(key)
}

func (h *Hydrator) defaultCollectionStrategy() CollectionStrategy {
	if h.byValue {
		return h.defaultByValue
	}
	return h.defaultByReference
}

// =====================================
// Conversion state
// =====================================

// conversion is the per-call view of one entity: its metadata, its
// accessor table and the strategies that apply to it.
type conversion struct {
	h         *Hydrator
	entity    reflect.Value
	info      *EntityInfo
	accessors *accessorTable
}

// prepare fetches the entity's metadata and checks that every
// collection-valued association has a collection strategy.
func (h *Hydrator) prepare(entity interface{}) (*conversion, error) {
	rv := reflect.ValueOf(entity)
	if !rv.IsValid() || rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return nil, NewError(ErrorTypeInvalidArgument, fmt.Sprintf("expected a non-nil pointer to struct, got %T", entity))
	}
	info, err := h.meta.MetadataFor(rv.Type())
	if err != nil {
		return nil, err
	}

	c := &conversion{h: h, entity: rv, info: info, accessors: accessorsFor(rv.Type())}
	for _, a := range info.Associations {
		if !a.Kind.IsCollection() {
			continue
		}
		s := c.strategy(a.Name)
		if _, ok := s.(CollectionStrategy); !ok {
			return nil, configurationError(info.Name, a.Name,
				"strategies used for collection-valued associations must implement CollectionStrategy, %T given", s)
		}
	}
	return c, nil
}

// strategy returns the configured strategy of a field, or the default
// collection strategy for collection-valued associations.
func (c *conversion) strategy(field string) Strategy {
	if s, ok := c.h.strategies[field]; ok {
		return s
	}
	if c.info.IsCollectionValuedAssociation(field) {
		return c.h.defaultCollectionStrategy()
	}
	return nil
}

func (c *conversion) binding(field string) *fieldAccessor {
	return c.accessors.field(field, c.info.goName(field))
}

func (c *conversion) skip(field, reason string) {
	c.h.logger.Debug("hydra: field skipped",
		slog.String("entity", c.info.Name),
		slog.String("field", field),
		slog.String("reason", reason),
	)
}

// annotate attaches the entity and field to hydra errors that lack them.
// Other errors, from setters, hooks or custom strategies, are wrapped in an
// internal Error naming the entity and field; errors.Is still reaches them.
func (c *conversion) annotate(field string, err error) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(Error); ok {
		if e.Entity == "" {
			e.Entity = c.info.Name
		}
		if e.Field == "" {
			e.Field = field
		}
		return e
	}
	message := fmt.Sprintf("converting %s failed", c.info.Name)
	if field != "" {
		message = fmt.Sprintf("converting field %s failed", field)
	}
	return Error{
		Type:    ErrorTypeInternal,
		Message: message,
		Entity:  c.info.Name,
		Field:   field,
		Cause:   err,
	}
}

// =====================================
// Extraction
// =====================================

// Extract converts entity into a Record. Entities implementing
// FilterProvider are filtered by their own filter, others by the
// hydrator's registered filters.
func (h *Hydrator) Extract(entity interface{}) (Record, error) {
	var filter Filter = h.filters
	if fp, ok := entity.(FilterProvider); ok {
		filter = fp.HydratorFilter()
	}
	return h.ExtractWithFilter(entity, filter)
}

// ExtractWithFilter converts entity into a Record, including only the
// fields accepted by filter. A nil filter accepts every field.
func (h *Hydrator) ExtractWithFilter(entity interface{}, filter Filter) (Record, error) {
	c, err := h.prepare(entity)
	if err != nil {
		return nil, err
	}

	names := append(c.info.FieldNames(), c.info.AssociationNames()...)
	data := make(Record, len(names))
	for _, name := range names {
		if filter != nil && !filter.Filter(name) {
			c.skip(name, "filtered")
			continue
		}

		fa := c.binding(name)
		var value interface{}
		var ok bool
		if h.byValue {
			value, ok = fa.get(c.entity)
		} else {
			value, ok = fa.read(c.entity)
		}
		if !ok {
			c.skip(name, "no accessor")
			continue
		}

		if s := c.strategy(name); s != nil {
			if value, err = s.Extract(value, entity); err != nil {
				return nil, c.annotate(name, err)
			}
		}
		data[h.extractName(name)] = value
	}

	if hook, ok := entity.(AfterExtractHook); ok {
		if err := hook.AfterExtract(data); err != nil {
			return nil, c.annotate("", err)
		}
	}
	return data, nil
}

// =====================================
// Hydration
// =====================================

// Hydrate writes data into entity and returns the hydrated entity.
//
// When data carries every identifier of the entity type and the store
// knows an entity with those identifiers, that stored entity is hydrated
// and returned instead of the one passed in.
func (h *Hydrator) Hydrate(ctx context.Context, data Record, entity interface{}) (interface{}, error) {
	return h.hydrate(ctx, data, entity, true)
}

func (h *Hydrator) hydrate(ctx context.Context, data Record, entity interface{}, replace bool) (interface{}, error) {
	c, err := h.prepare(entity)
	if err != nil {
		return nil, err
	}

	if replace {
		found, err := c.findByIdentifier(ctx, data)
		if err != nil {
			return nil, err
		}
		if found != nil && reflect.TypeOf(found) == c.entity.Type() {
			c.entity = reflect.ValueOf(found)
		}
	}
	target := c.entity.Interface()

	if hook, ok := target.(BeforeHydrateHook); ok {
		if err := hook.BeforeHydrate(ctx, data); err != nil {
			return nil, c.annotate("", err)
		}
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		field := h.hydrateName(key)
		value := data[key]

		switch {
		case c.info.IsSingleValuedAssociation(field):
			err = c.hydrateSingle(ctx, field, value, data)
		case c.info.IsCollectionValuedAssociation(field):
			err = c.hydrateCollection(ctx, field, value)
		default:
			err = c.hydrateField(field, value, data)
		}
		if err != nil {
			return nil, c.annotate(field, err)
		}
	}

	if hook, ok := target.(AfterHydrateHook); ok {
		if err := hook.AfterHydrate(ctx); err != nil {
			return nil, c.annotate("", err)
		}
	}
	return target, nil
}

// findByIdentifier looks up the stored entity matching the identifiers in
// data. Keys are matched under their external name first.
func (c *conversion) findByIdentifier(ctx context.Context, data Record) (interface{}, error) {
	if len(c.info.Identifier) == 0 {
		return nil, nil
	}
	id := make(Record, len(c.info.Identifier))
	for _, name := range c.info.Identifier {
		v, ok := data[c.h.extractName(name)]
		if !ok {
			v, ok = data[name]
		}
		if !ok || isNil(v) {
			return nil, nil
		}
		id[name] = v
	}
	return c.h.find(ctx, id, c.info.Type)
}

// applyStrategy runs the field's hydration strategy, if any.
func (c *conversion) applyStrategy(field string, value interface{}, data Record) (interface{}, error) {
	s := c.strategy(field)
	if s == nil {
		return value, nil
	}
	return s.Hydrate(value, data)
}

func (c *conversion) hydrateField(field string, value interface{}, data Record) error {
	fa := c.binding(field)
	if c.h.byValue && !fa.hasSetter() {
		c.skip(field, "no setter")
		return nil
	}
	if !c.h.byValue && !fa.hasField() {
		c.skip(field, "unknown field")
		return nil
	}

	value, err := c.applyStrategy(field, value, data)
	if err != nil {
		return err
	}
	if !isNil(value) {
		if value, err = Coerce(value, c.info.TypeOfField(field)); err != nil {
			return err
		}
	}
	return c.write(field, fa, value)
}

func (c *conversion) hydrateSingle(ctx context.Context, field string, value interface{}, data Record) error {
	fa := c.binding(field)
	if c.h.byValue && !fa.hasSetter() {
		c.skip(field, "no setter")
		return nil
	}
	if !c.h.byValue && !fa.hasField() {
		c.skip(field, "unknown field")
		return nil
	}

	value, err := c.applyStrategy(field, value, data)
	if err != nil {
		return err
	}
	resolved, err := c.h.resolveSingle(ctx, c.info.AssociationTargetType(field), value)
	if err != nil {
		return err
	}
	return c.write(field, fa, resolved)
}

func (c *conversion) hydrateCollection(ctx context.Context, field string, value interface{}) error {
	if !c.h.byValue && !c.binding(field).hasField() {
		c.skip(field, "unknown field")
		return nil
	}

	target := c.info.AssociationTargetType(field)
	targetInfo, err := c.h.meta.MetadataFor(target)
	if err != nil {
		return err
	}
	cc := CollectionContext{
		Owner:     c.entity.Interface(),
		Field:     field,
		Metadata:  c.info,
		Target:    targetInfo,
		accessors: c.accessors,
	}

	elements, err := c.h.toMany(ctx, target, value, cc.heldMembers(c.h.byValue))
	if err != nil {
		return err
	}

	strategy := c.strategy(field).(CollectionStrategy)
	return strategy.HydrateCollection(cc, elements)
}

// write stores value through the setter or the field. nil is only written
// to nullable fields whose destination can hold it.
func (c *conversion) write(field string, fa *fieldAccessor, value interface{}) error {
	if isNil(value) && !c.info.IsNullable(field) {
		c.skip(field, "null for non-nullable field")
		return nil
	}

	if c.h.byValue {
		ok, err := fa.set(c.entity, value)
		if err != nil {
			return err
		}
		if !ok {
			c.skip(field, fmt.Sprintf("setter does not accept %s", typeName(value)))
		}
		return nil
	}

	if !fa.write(c.entity, value) {
		c.skip(field, fmt.Sprintf("field does not accept %s", typeName(value)))
	}
	return nil
}
