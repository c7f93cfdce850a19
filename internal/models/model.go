package models

import "time"

//
// Model (ai_models table)
//

type Model struct {
	ID          int64  `db:"id" json:"id"`
	ProviderID  int64  `db:"provider_id" json:"provider_id"`
	Name        string `db:"name" json:"name"` // unique per provider, e.g. gpt-4o
	DisplayName string `db:"display_name" json:"display_name"`

	// APIIdentifier is the model name sent on the wire (e.g. gemini-2.0-flash-exp).
	APIIdentifier string `db:"api_identifier" json:"api_identifier"`
	IsActive      bool   `db:"is_active" json:"is_active"`

	// DefaultParams is a JSON object with generation defaults
	// ({"temperature": 0.7, "max_tokens": 1000}).
	DefaultParams *string `db:"default_params" json:"default_params,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Label returns the most human-friendly name available.
func (m *Model) Label() string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.Name
}
