package search

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Creator builds a search provider
type Creator func(config Config) (Provider, error)

// Factory maps search provider names to creators. Fixed after construction.
type Factory struct {
	creators       map[string]Creator
	defaultTimeout time.Duration
}

// FactoryOption customizes a Factory at construction time
type FactoryOption func(*Factory)

// WithCreator registers an additional search provider
func WithCreator(name string, creator Creator) FactoryOption {
	return func(f *Factory) {
		f.creators[strings.ToLower(name)] = creator
	}
}

// WithDefaultTimeout sets the request timeout of providers created without
// an explicit "timeout" config entry
func WithDefaultTimeout(d time.Duration) FactoryOption {
	return func(f *Factory) {
		f.defaultTimeout = d
	}
}

// NewFactory creates a factory with the built-in providers registered
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{
		creators: map[string]Creator{
			"brave": NewBraveProvider,
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateProvider creates a search provider by (case-insensitive) name
func (f *Factory) CreateProvider(name, apiKey string, extra map[string]any) (Provider, error) {
	return f.Create(Config{Name: name, APIKey: apiKey, Config: extra})
}

// Create creates a search provider from a full configuration
func (f *Factory) Create(config Config) (Provider, error) {
	key := strings.ToLower(strings.TrimSpace(config.Name))
	creator, ok := f.creators[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, key)
	}

	config.Name = key
	extra := make(map[string]any, len(config.Config)+1)
	for k, v := range config.Config {
		extra[k] = v
	}
	if _, ok := extra["timeout"]; !ok && f.defaultTimeout > 0 {
		extra["timeout"] = f.defaultTimeout
	}
	config.Config = extra
	return creator(config)
}

// open creates a provider for a configured key. A missing key is an error.
func (f *Factory) open(name, apiKey string) (Provider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API key for provider %s is not configured", name)
	}
	return f.CreateProvider(name, apiKey, nil)
}

// AvailableProviders returns the sorted registered names
func (f *Factory) AvailableProviders() []string {
	names := make([]string, 0, len(f.creators))
	for name := range f.creators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
