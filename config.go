package hydra

import (
	"fmt"
	"os"

	"github.com/hengadev/errsx"
	"gopkg.in/yaml.v3"
)

// =====================================
// Hydrator Configuration
// =====================================

// ConfigFile holds named hydrator configurations:
//
//	hydrators:
//	  article:
//	    by_value: true
//	    strategies:
//	      tags: hydra.strategy.disallow_remove_by_value
//	    filters:
//	      public:
//	        filter: app.filter.public
//	        condition: and
//	    naming_strategy: hydra.naming.underscore
type ConfigFile struct {
	Hydrators map[string]*HydratorConfig `json:"hydrators" yaml:"hydrators"`
}

// HydratorConfig configures one hydrator. Strategy, filter and naming
// strategy values are plugin keys resolved through a PluginRegistry.
type HydratorConfig struct {
	// Hydrator names a custom plugin used for both extraction and hydration
	Hydrator                   string                  `json:"hydrator" yaml:"hydrator"`
	ByValue                    *bool                   `json:"by_value" yaml:"by_value"`
	DefaultByValueStrategy     string                  `json:"default_by_value_strategy" yaml:"default_by_value_strategy"`
	DefaultByReferenceStrategy string                  `json:"default_by_reference_strategy" yaml:"default_by_reference_strategy"`
	Strategies                 map[string]string       `json:"strategies" yaml:"strategies"`
	Filters                    map[string]FilterConfig `json:"filters" yaml:"filters"`
	NamingStrategy             string                  `json:"naming_strategy" yaml:"naming_strategy"`
}

// FilterConfig names a filter plugin and how it combines with the others
type FilterConfig struct {
	Filter    string `json:"filter" yaml:"filter"`
	Condition string `json:"condition" yaml:"condition"`
}

// LoadConfigFile loads and parses a YAML hydrator configuration file.
func LoadConfigFile(path string) (*ConfigFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read hydrator config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML data into a ConfigFile.
func ParseConfig(data []byte) (*ConfigFile, error) {
	var cf ConfigFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, NewErrorWithCause(ErrorTypeConfiguration, "failed to parse hydrator config", err)
	}
	applyDefaults(&cf)
	return &cf, nil
}

// applyDefaults fills in default values for optional fields.
func applyDefaults(cf *ConfigFile) {
	if cf.Hydrators == nil {
		cf.Hydrators = make(map[string]*HydratorConfig)
	}
	for name, hc := range cf.Hydrators {
		if hc == nil {
			hc = &HydratorConfig{}
			cf.Hydrators[name] = hc
		}
		hc.applyDefaults()
	}
}

func (c *HydratorConfig) applyDefaults() {
	if c.ByValue == nil {
		v := true
		c.ByValue = &v
	}
	for name, fc := range c.Filters {
		if fc.Condition == "" {
			fc.Condition = string(ConditionOr)
			c.Filters[name] = fc
		}
	}
}

// Validate checks the configuration without resolving any plugin.
func (c *HydratorConfig) Validate() error {
	var errs errsx.Map
	for _, field := range sortedKeys(c.Strategies) {
		if c.Strategies[field] == "" {
			errs.Set(fmt.Sprintf("strategies.%s", field), fmt.Errorf("empty strategy key"))
		}
	}
	for _, name := range sortedKeys(c.Filters) {
		fc := c.Filters[name]
		if fc.Filter == "" {
			errs.Set(fmt.Sprintf("filters.%s.filter", name), fmt.Errorf("empty filter key"))
		}
		if _, err := ParseCondition(fc.Condition); err != nil {
			errs.Set(fmt.Sprintf("filters.%s.condition", name), err)
		}
	}
	return errs.AsError()
}

// Hydrator builds the hydrator configured under name.
func (f *ConfigFile) Hydrator(name string, meta MetadataProvider, store EntityStore, plugins *PluginRegistry, opts ...Option) (*Split, error) {
	hc, ok := f.Hydrators[name]
	if !ok || hc == nil {
		return nil, configurationError("", "", "could not retrieve %q config", name)
	}
	return NewFromConfig(hc, meta, store, plugins, opts...)
}

// Names returns the configured hydrator names in sorted order.
func (f *ConfigFile) Names() []string {
	return sortedKeys(f.Hydrators)
}

// NewFromConfig builds a hydrator from configuration, resolving every plugin
// key through plugins (DefaultPlugins when nil). Plugins implementing
// StoreAware receive store. opts are applied before the configuration.
func NewFromConfig(cfg *HydratorConfig, meta MetadataProvider, store EntityStore, plugins *PluginRegistry, opts ...Option) (*Split, error) {
	if plugins == nil {
		plugins = DefaultPlugins()
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, NewErrorWithCause(ErrorTypeConfiguration, "invalid hydrator config", err)
	}

	if cfg.Hydrator != "" {
		plugin, err := resolvePlugin(plugins, store, cfg.Hydrator, "hydrator")
		if err != nil {
			return nil, err
		}
		extractor, okExtract := plugin.(Extractor)
		hydrator, okHydrate := plugin.(EntityHydrator)
		if !okExtract || !okHydrate {
			return nil, configurationError("", "", "custom hydrator %s (%T) must implement Extractor and EntityHydrator", cfg.Hydrator, plugin)
		}
		if h, ok := plugin.(*Hydrator); ok {
			if err := configure(h, cfg, store, plugins); err != nil {
				return nil, err
			}
		}
		return NewSplit(extractor, hydrator), nil
	}

	options := append([]Option{}, opts...)
	h, err := New(meta, store, append(options, WithByValue(*cfg.ByValue))...)
	if err != nil {
		return nil, err
	}
	if err := configure(h, cfg, store, plugins); err != nil {
		return nil, err
	}
	return NewSplit(h, h), nil
}

func configure(h *Hydrator, cfg *HydratorConfig, store EntityStore, plugins *PluginRegistry) error {
	if cfg.DefaultByValueStrategy != "" {
		s, err := resolveCollectionStrategy(plugins, store, cfg.DefaultByValueStrategy)
		if err != nil {
			return err
		}
		h.SetDefaultByValueStrategy(s)
	}
	if cfg.DefaultByReferenceStrategy != "" {
		s, err := resolveCollectionStrategy(plugins, store, cfg.DefaultByReferenceStrategy)
		if err != nil {
			return err
		}
		h.SetDefaultByReferenceStrategy(s)
	}

	for _, name := range sortedKeys(cfg.Filters) {
		fc := cfg.Filters[name]
		plugin, err := resolvePlugin(plugins, store, fc.Filter, "filter")
		if err != nil {
			return err
		}
		filter, ok := plugin.(Filter)
		if !ok {
			return configurationError("", name, "filter plugin %s (%T) must implement Filter", fc.Filter, plugin)
		}
		condition, err := ParseCondition(fc.Condition)
		if err != nil {
			return err
		}
		if err := h.AddFilter(name, filter, condition); err != nil {
			return err
		}
	}

	for _, field := range sortedKeys(cfg.Strategies) {
		key := cfg.Strategies[field]
		plugin, err := resolvePlugin(plugins, store, key, "strategy")
		if err != nil {
			return configurationError("", field, "invalid strategy %s for field %s", key, field)
		}
		s, ok := plugin.(Strategy)
		if !ok {
			return configurationError("", field, "invalid strategy type %T for field %s", plugin, field)
		}
		h.AddStrategy(field, s)
	}

	if cfg.NamingStrategy != "" {
		plugin, err := resolvePlugin(plugins, store, cfg.NamingStrategy, "naming strategy")
		if err != nil {
			return err
		}
		n, ok := plugin.(NamingStrategy)
		if !ok {
			return configurationError("", "", "invalid naming strategy type %T", plugin)
		}
		h.SetNamingStrategy(n)
	}
	return nil
}

func resolvePlugin(plugins *PluginRegistry, store EntityStore, key, kind string) (interface{}, error) {
	plugin, err := plugins.Get(key)
	if err != nil {
		return nil, NewErrorWithCause(ErrorTypeConfiguration, fmt.Sprintf("invalid %s %s", kind, key), err)
	}
	if aware, ok := plugin.(StoreAware); ok {
		aware.SetStore(store)
	}
	return plugin, nil
}

func resolveCollectionStrategy(plugins *PluginRegistry, store EntityStore, key string) (CollectionStrategy, error) {
	plugin, err := resolvePlugin(plugins, store, key, "collection strategy")
	if err != nil {
		return nil, err
	}
	s, ok := plugin.(CollectionStrategy)
	if !ok {
		return nil, configurationError("", "", "default strategy %s (%T) must implement CollectionStrategy", key, plugin)
	}
	return s, nil
}
