package hydra

import (
	"fmt"
	"sort"
	"sync"
)

// =====================================
// Property Filters
// =====================================

// Filter decides whether a field takes part in extraction.
type Filter interface {
	Filter(name string) bool
}

// FilterProvider is implemented by entities that supply their own filter.
// The entity filter replaces the hydrator's configured filters.
type FilterProvider interface {
	HydratorFilter() Filter
}

// FilterFunc adapts a function to Filter.
type FilterFunc func(name string) bool

// Filter implements Filter
func (f FilterFunc) Filter(name string) bool {
	return f(name)
}

// PropertyName filters fields by an explicit set of names.
type PropertyName struct {
	properties map[string]struct{}
	exclude    bool
}

// NewPropertyName creates a PropertyName filter.
// With exclude=false the names form an allow-list, with exclude=true a deny-list.
func NewPropertyName(properties []string, exclude bool) *PropertyName {
	set := make(map[string]struct{}, len(properties))
	for _, p := range properties {
		set[p] = struct{}{}
	}
	return &PropertyName{properties: set, exclude: exclude}
}

// Filter implements Filter
func (p *PropertyName) Filter(name string) bool {
	_, ok := p.properties[name]
	if p.exclude {
		return !ok
	}
	return ok
}

// Condition says how a filter combines with the others in a FilterComposite.
type Condition string

const (
	ConditionOr  Condition = "or"
	ConditionAnd Condition = "and"
)

// ParseCondition converts a configuration value into a Condition.
// The empty string defaults to ConditionOr.
func ParseCondition(s string) (Condition, error) {
	switch Condition(s) {
	case "", ConditionOr:
		return ConditionOr, nil
	case ConditionAnd:
		return ConditionAnd, nil
	}
	return "", NewError(ErrorTypeConfiguration, fmt.Sprintf("unknown filter condition %q", s))
}

// FilterComposite combines named filters.
// A name passes when at least one OR filter accepts it (or none are
// registered) and every AND filter accepts it.
type FilterComposite struct {
	mutex      sync.RWMutex
	orFilters  map[string]Filter
	andFilters map[string]Filter
}

// NewFilterComposite creates an empty composite that accepts every name.
func NewFilterComposite() *FilterComposite {
	return &FilterComposite{
		orFilters:  make(map[string]Filter),
		andFilters: make(map[string]Filter),
	}
}

// AddFilter registers a filter under name, replacing any previous one.
func (c *FilterComposite) AddFilter(name string, filter Filter, condition Condition) error {
	if filter == nil {
		return NewError(ErrorTypeInvalidArgument, fmt.Sprintf("filter %q is nil", name))
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.orFilters, name)
	delete(c.andFilters, name)
	switch condition {
	case ConditionOr:
		c.orFilters[name] = filter
	case ConditionAnd:
		c.andFilters[name] = filter
	default:
		return NewError(ErrorTypeInvalidArgument, fmt.Sprintf("unknown filter condition %q", condition))
	}
	return nil
}

// RemoveFilter removes a filter and reports whether it existed.
func (c *FilterComposite) RemoveFilter(name string) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, inOr := c.orFilters[name]
	_, inAnd := c.andFilters[name]
	delete(c.orFilters, name)
	delete(c.andFilters, name)
	return inOr || inAnd
}

// HasFilter checks whether a filter is registered under name.
func (c *FilterComposite) HasFilter(name string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	_, inOr := c.orFilters[name]
	_, inAnd := c.andFilters[name]
	return inOr || inAnd
}

// Len returns the number of registered filters.
func (c *FilterComposite) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.orFilters) + len(c.andFilters)
}

// Filter implements Filter
func (c *FilterComposite) Filter(name string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if len(c.orFilters) > 0 {
		accepted := false
		for _, key := range sortedKeys(c.orFilters) {
			if c.orFilters[key].Filter(name) {
				accepted = true
				break
			}
		}
		if !accepted {
			return false
		}
	}

	for _, key := range sortedKeys(c.andFilters) {
		if !c.andFilters[key].Filter(name) {
			return false
		}
	}
	return true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
