package providers

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"newsdesk/internal/models"
)

// Registry keys of the built-in providers
const (
	TypeOpenAI    = models.ProviderTypeOpenAI
	TypeGoogle    = models.ProviderTypeGoogle
	TypeAnthropic = models.ProviderTypeAnthropic
)

// ProviderCreator is a function that creates a provider instance
type ProviderCreator func(config ProviderConfig) (Provider, error)

// ProviderFactory maps provider names to their creators. The table is
// fixed once the factory is built; new vendors are added with WithCreator.
type ProviderFactory struct {
	creators map[string]ProviderCreator
	aliases  map[string]string

	// defaultTimeout applies to providers whose config has no timeout
	defaultTimeout time.Duration
}

// FactoryOption customizes a ProviderFactory at construction time
type FactoryOption func(*ProviderFactory)

// WithCreator registers an additional provider type
func WithCreator(name string, creator ProviderCreator) FactoryOption {
	return func(f *ProviderFactory) {
		f.creators[strings.ToLower(name)] = creator
	}
}

// WithAlias makes alias resolve to an already registered name
func WithAlias(alias, name string) FactoryOption {
	return func(f *ProviderFactory) {
		f.aliases[strings.ToLower(alias)] = strings.ToLower(name)
	}
}

// WithDefaultTimeout sets the request timeout of providers that do not configure one
func WithDefaultTimeout(d time.Duration) FactoryOption {
	return func(f *ProviderFactory) {
		f.defaultTimeout = d
	}
}

// NewProviderFactory creates a new provider factory with default providers registered
func NewProviderFactory(opts ...FactoryOption) *ProviderFactory {
	f := &ProviderFactory{
		creators: map[string]ProviderCreator{
			string(TypeOpenAI):    NewOpenAIProvider,
			string(TypeGoogle):    NewGeminiProvider,
			string(TypeAnthropic): NewAnthropicProvider,
		},
		aliases: map[string]string{
			"gemini": string(TypeGoogle),
			"claude": string(TypeAnthropic),
		},
	}

	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *ProviderFactory) resolve(name string) (string, ProviderCreator, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if target, ok := f.aliases[key]; ok {
		key = target
	}
	creator, ok := f.creators[key]
	return key, creator, ok
}

// CreateProvider creates a new provider instance. An empty baseURL keeps
// the vendor default unless extra carries a base_url.
func (f *ProviderFactory) CreateProvider(name, apiKey, baseURL string, extra map[string]any) (Provider, error) {
	return f.Create(ProviderConfig{
		Name:    name,
		APIKey:  apiKey,
		BaseURL: baseURL,
		Config:  extra,
	})
}

// Create creates a provider from a full configuration
func (f *ProviderFactory) Create(config ProviderConfig) (Provider, error) {
	key, creator, ok := f.resolve(config.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, config.Name)
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

	provider, err := creator(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider %s: %w", key, err)
	}
	return provider, nil
}

// CreateFromStored builds an adapter from a stored provider record.
// Malformed additional config is treated as absent.
func (f *ProviderFactory) CreateFromStored(p *models.Provider) (Provider, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil provider record", ErrUnknownProvider)
	}

	extra := p.Config()
	return f.CreateProvider(p.Name, p.Credential(), extra.String("base_url"), extra)
}

// IsSupported reports whether name (or one of its aliases) is registered
func (f *ProviderFactory) IsSupported(name string) bool {
	_, _, ok := f.resolve(name)
	return ok
}

// SupportedTypes returns the sorted list of supported provider types
func (f *ProviderFactory) SupportedTypes() []string {
	types := make([]string, 0, len(f.creators))
	for t := range f.creators {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
