package models

import "time"

// ProviderType enumerates supported AI provider types.
type ProviderType string

const (
	ProviderTypeOpenAI    ProviderType = "openai"
	ProviderTypeGoogle    ProviderType = "google"
	ProviderTypeAnthropic ProviderType = "anthropic"
)

// Provider represents an AI vendor configuration
type Provider struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"` // registry key: openai, google, anthropic
	DisplayName string `db:"display_name" json:"display_name"`
	IsActive    bool   `db:"is_active" json:"is_active"`

	// APIKey holds the decrypted credential; the repository takes care of encryption at rest.
	APIKey *string `db:"api_key" json:"-"`

	// AdditionalConfig is a free-form JSON object (base_url, timeout, ...).
	// Malformed JSON is treated as absent, see ParseJSONB.
	AdditionalConfig *string `db:"additional_config" json:"additional_config,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Credential returns the API key or an empty string.
func (p *Provider) Credential() string {
	if p == nil || p.APIKey == nil {
		return ""
	}
	return *p.APIKey
}

// Config returns the parsed additional configuration. Never nil.
func (p *Provider) Config() JSONB {
	if p == nil {
		return JSONB{}
	}
	return ParseJSONB(p.AdditionalConfig)
}
