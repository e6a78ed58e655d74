package hydra

import "context"

// =====================================
// Entity Hook Interfaces
// =====================================

// BeforeHydrateHook is called before a Record is written into the entity.
// The entity is the one being hydrated, after identifier-based replacement.
type BeforeHydrateHook interface {
	BeforeHydrate(ctx context.Context, data Record) error
}

// AfterHydrateHook is called after every field of the Record was processed
type AfterHydrateHook interface {
	AfterHydrate(ctx context.Context) error
}

// AfterExtractHook is called with the extracted Record and may amend it
type AfterExtractHook interface {
	AfterExtract(data Record) error
}
