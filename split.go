package hydra

import "context"

// Extractor converts entities into Records.
type Extractor interface {
	Extract(entity interface{}) (Record, error)
}

// EntityHydrator writes Records into entities.
type EntityHydrator interface {
	Hydrate(ctx context.Context, data Record, entity interface{}) (interface{}, error)
}

var (
	_ Extractor      = (*Hydrator)(nil)
	_ EntityHydrator = (*Hydrator)(nil)
)

// Split combines an Extractor and an EntityHydrator configured
// independently, for example an extractor that hides fields together with
// a by-reference hydrator.
type Split struct {
	Extractor Extractor
	Hydrator  EntityHydrator
}

// NewSplit creates a Split.
func NewSplit(extractor Extractor, hydrator EntityHydrator) *Split {
	return &Split{Extractor: extractor, Hydrator: hydrator}
}

// Extract implements Extractor
func (s *Split) Extract(entity interface{}) (Record, error) {
	return s.Extractor.Extract(entity)
}

// Hydrate implements EntityHydrator
func (s *Split) Hydrate(ctx context.Context, data Record, entity interface{}) (interface{}, error) {
	return s.Hydrator.Hydrate(ctx, data, entity)
}
