package hydra

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	pluginsOnce       sync.Once
	pluginsInstance   *PluginRegistry
	ErrPluginNotFound = errors.New("plugin not found")
)

// Keys of the plugins registered by DefaultPlugins
const (
	PluginAllowRemoveByValue        = "hydra.strategy.allow_remove_by_value"
	PluginAllowRemoveByReference    = "hydra.strategy.allow_remove_by_reference"
	PluginDisallowRemoveByValue     = "hydra.strategy.disallow_remove_by_value"
	PluginDisallowRemoveByReference = "hydra.strategy.disallow_remove_by_reference"
	PluginIdentityNaming            = "hydra.naming.identity"
	PluginUnderscoreNaming          = "hydra.naming.underscore"
)

// PluginFactory creates a fresh plugin instance: a Strategy, a Filter, a
// NamingStrategy or a custom extract/hydrate service.
type PluginFactory func() (interface{}, error)

// PluginRegistry resolves strategies, filters and naming strategies by
// configuration key.
type PluginRegistry struct {
	mutex     sync.RWMutex
	factories map[string]PluginFactory
}

// NewPluginRegistry creates an empty registry
func NewPluginRegistry() *PluginRegistry {
	return &PluginRegistry{factories: make(map[string]PluginFactory)}
}

// DefaultPlugins returns the shared registry holding the built-in plugins
func DefaultPlugins() *PluginRegistry {
	pluginsOnce.Do(func() {
		pluginsInstance = NewPluginRegistry()
		registerBuiltins(pluginsInstance)
	})
	return pluginsInstance
}

func registerBuiltins(r *PluginRegistry) {
	r.RegisterInstance(PluginAllowRemoveByValue, AllowRemoveByValue{})
	r.RegisterInstance(PluginAllowRemoveByReference, AllowRemoveByReference{})
	r.RegisterInstance(PluginDisallowRemoveByValue, DisallowRemoveByValue{})
	r.RegisterInstance(PluginDisallowRemoveByReference, DisallowRemoveByReference{})
	r.RegisterInstance(PluginIdentityNaming, IdentityNamingStrategy{})
	r.RegisterInstance(PluginUnderscoreNaming, UnderscoreNamingStrategy{})
}

// Register adds a factory under key, replacing any previous one
func (r *PluginRegistry) Register(key string, factory PluginFactory) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.factories[key] = factory
}

// RegisterInstance registers a plugin that is shared by every lookup
func (r *PluginRegistry) RegisterInstance(key string, plugin interface{}) {
	r.Register(key, func() (interface{}, error) { return plugin, nil })
}

// Has checks whether a plugin is registered under key
func (r *PluginRegistry) Has(key string) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	_, exists := r.factories[key]
	return exists
}

// Get creates the plugin registered under key
func (r *PluginRegistry) Get(key string) (interface{}, error) {
	r.mutex.RLock()
	factory, exists := r.factories[key]
	r.mutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: '%s'", ErrPluginNotFound, key)
	}
	plugin, err := factory()
	if err != nil {
		return nil, fmt.Errorf("error creating plugin '%s': %w", key, err)
	}
	return plugin, nil
}

// Remove unregisters key and reports whether it was registered
func (r *PluginRegistry) Remove(key string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	_, exists := r.factories[key]
	delete(r.factories, key)
	return exists
}

// Keys returns the registered keys in sorted order
func (r *PluginRegistry) Keys() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	keys := make([]string, 0, len(r.factories))
	for key := range r.factories {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Package-level functions

// GetPlugin resolves key and checks that the plugin implements T
// Usage: s, err := hydra.GetPlugin[hydra.CollectionStrategy](registry, key)
func GetPlugin[T any](r *PluginRegistry, key string) (T, error) {
	var zero T

	plugin, err := r.Get(key)
	if err != nil {
		return zero, err
	}

	typed, ok := plugin.(T)
	if !ok {
		return zero, fmt.Errorf("plugin '%s' is not of expected type %T, got %T", key, (*T)(nil), plugin)
	}
	return typed, nil
}

// RegisterPlugin registers a factory on the default registry
func RegisterPlugin(key string, factory PluginFactory) {
	DefaultPlugins().Register(key, factory)
}
