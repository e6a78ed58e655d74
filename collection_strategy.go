package hydra

// =====================================
// Collection Strategies
// =====================================

// Each strategy diffs the incoming entities against the current members
// with CollectionContext.Difference and only adds or removes the
// difference. The collection object held by the owner is never replaced.

// collectionPassthrough provides the Strategy half shared by all
// collection strategies: values are returned unchanged.
type collectionPassthrough struct{}

// Extract implements Strategy
func (collectionPassthrough) Extract(value interface{}, _ interface{}) (interface{}, error) {
	return value, nil
}

// Hydrate implements Strategy
func (collectionPassthrough) Hydrate(value interface{}, _ Record) (interface{}, error) {
	return value, nil
}

// AllowRemoveByValue adds and removes members through the owner's
// Add<Name> and Remove<Name> methods, diffing against its getter.
type AllowRemoveByValue struct{ collectionPassthrough }

// HydrateCollection implements CollectionStrategy
func (AllowRemoveByValue) HydrateCollection(ctx CollectionContext, values []interface{}) error {
	if err := ctx.RequireMethods(true); err != nil {
		return err
	}
	current, err := ctx.CurrentByValue()
	if err != nil {
		return err
	}
	if err := ctx.AddByValue(ctx.Difference(values, current)); err != nil {
		return err
	}
	return ctx.RemoveByValue(ctx.Difference(current, values))
}

// AllowRemoveByReference adds and removes members directly on the
// collection stored in the owner's field.
type AllowRemoveByReference struct{ collectionPassthrough }

// HydrateCollection implements CollectionStrategy
func (AllowRemoveByReference) HydrateCollection(ctx CollectionContext, values []interface{}) error {
	current, err := ctx.CurrentByReference()
	if err != nil {
		return err
	}
	return ctx.MutateByReference(ctx.Difference(values, current), ctx.Difference(current, values))
}

// DisallowRemoveByValue only adds members, through the owner's Add<Name> method.
type DisallowRemoveByValue struct{ collectionPassthrough }

// HydrateCollection implements CollectionStrategy
func (DisallowRemoveByValue) HydrateCollection(ctx CollectionContext, values []interface{}) error {
	if err := ctx.RequireMethods(false); err != nil {
		return err
	}
	current, err := ctx.CurrentByValue()
	if err != nil {
		return err
	}
	return ctx.AddByValue(ctx.Difference(values, current))
}

// DisallowRemoveByReference only adds members, directly on the owner's field.
type DisallowRemoveByReference struct{ collectionPassthrough }

// HydrateCollection implements CollectionStrategy
func (DisallowRemoveByReference) HydrateCollection(ctx CollectionContext, values []interface{}) error {
	current, err := ctx.CurrentByReference()
	if err != nil {
		return err
	}
	return ctx.MutateByReference(ctx.Difference(values, current), nil)
}

var (
	_ CollectionStrategy = AllowRemoveByValue{}
	_ CollectionStrategy = AllowRemoveByReference{}
	_ CollectionStrategy = DisallowRemoveByValue{}
	_ CollectionStrategy = DisallowRemoveByReference{}
)
