package hydra

import "log/slog"

// =====================================
// Hydrator Options
// =====================================

// Option configures a Hydrator
type Option interface {
	Apply(h *Hydrator) error
}

// ByValueOption selects accessor-based (true) or field-based (false) access
type ByValueOption struct {
	ByValue bool
}

func (o ByValueOption) Apply(h *Hydrator) error {
	h.byValue = o.ByValue
	return nil
}

// DefaultStrategyOption sets the collection strategy used for associations
// without an explicit strategy
type DefaultStrategyOption struct {
	ByValue  bool
	Strategy CollectionStrategy
}

func (o DefaultStrategyOption) Apply(h *Hydrator) error {
	if o.Strategy == nil {
		return NewError(ErrorTypeInvalidArgument, "default collection strategy cannot be nil")
	}
	if o.ByValue {
		h.defaultByValue = o.Strategy
	} else {
		h.defaultByReference = o.Strategy
	}
	return nil
}

// StrategyOption attaches a strategy to a field
type StrategyOption struct {
	Field    string
	Strategy Strategy
}

func (o StrategyOption) Apply(h *Hydrator) error {
	h.AddStrategy(o.Field, o.Strategy)
	return nil
}

// FilterOption registers a named extraction filter
type FilterOption struct {
	Name      string
	Filter    Filter
	Condition Condition
}

func (o FilterOption) Apply(h *Hydrator) error {
	// anything but and is treated as or
	condition := o.Condition
	if condition != ConditionAnd {
		condition = ConditionOr
	}
	return h.AddFilter(o.Name, o.Filter, condition)
}

// NamingStrategyOption sets the naming strategy
type NamingStrategyOption struct {
	Strategy NamingStrategy
}

func (o NamingStrategyOption) Apply(h *Hydrator) error {
	h.naming = o.Strategy
	return nil
}

// LoggerOption sets the logger used for debug output on skipped fields
type LoggerOption struct {
	Logger *slog.Logger
}

func (o LoggerOption) Apply(h *Hydrator) error {
	if o.Logger != nil {
		h.logger = o.Logger
	}
	return nil
}

// =====================================
// Option Constructors
// =====================================

// WithByValue selects accessor-based access (the default) or, with false,
// direct field access.
func WithByValue(byValue bool) Option {
	return ByValueOption{ByValue: byValue}
}

// WithDefaultByValueStrategy replaces AllowRemoveByValue as the default
// collection strategy in by-value mode.
func WithDefaultByValueStrategy(s CollectionStrategy) Option {
	return DefaultStrategyOption{ByValue: true, Strategy: s}
}

// WithDefaultByReferenceStrategy replaces AllowRemoveByReference as the
// default collection strategy in by-reference mode.
func WithDefaultByReferenceStrategy(s CollectionStrategy) Option {
	return DefaultStrategyOption{ByValue: false, Strategy: s}
}

// WithStrategy attaches s to field.
func WithStrategy(field string, s Strategy) Option {
	return StrategyOption{Field: field, Strategy: s}
}

// WithFilter registers a named extraction filter.
func WithFilter(name string, f Filter, condition Condition) Option {
	return FilterOption{Name: name, Filter: f, Condition: condition}
}

// WithNamingStrategy sets the naming strategy.
func WithNamingStrategy(n NamingStrategy) Option {
	return NamingStrategyOption{Strategy: n}
}

// WithLogger sets the logger. Skipped fields are reported at debug level.
func WithLogger(logger *slog.Logger) Option {
	return LoggerOption{Logger: logger}
}
