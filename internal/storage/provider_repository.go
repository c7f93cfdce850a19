package storage

import (
	"context"
	"database/sql"
	"fmt"

	"newsdesk/internal/logging"
	"newsdesk/internal/models"
)

const providerColumns = `id, name, display_name, is_active, api_key, additional_config, created_at, updated_at`

// ProviderRepository handles provider database operations.
// API keys are transparently encrypted when the DB has an encryption key.
type ProviderRepository struct {
	db *DB
}

// NewProviderRepository creates a new provider repository
func NewProviderRepository(db *DB) *ProviderRepository {
	return &ProviderRepository{db: db}
}

// GetByID retrieves a provider by ID
func (r *ProviderRepository) GetByID(ctx context.Context, id int64) (*models.Provider, error) {
	var provider models.Provider
	query := `SELECT ` + providerColumns + ` FROM providers WHERE id = $1`

	err := r.db.conn.GetContext(ctx, &provider, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProviderNotFound
		}
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}

	r.decryptKey(&provider)
	return &provider, nil
}

// GetByName retrieves a provider by name
func (r *ProviderRepository) GetByName(ctx context.Context, name string) (*models.Provider, error) {
	var provider models.Provider
	query := `SELECT ` + providerColumns + ` FROM providers WHERE name = $1`

	err := r.db.conn.GetContext(ctx, &provider, query, name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProviderNotFound
		}
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}

	r.decryptKey(&provider)
	return &provider, nil
}

// List returns all providers ordered by name
func (r *ProviderRepository) List(ctx context.Context) ([]*models.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers ORDER BY name`

	var providers []*models.Provider
	if err := r.db.conn.SelectContext(ctx, &providers, query); err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}

	for _, p := range providers {
		r.decryptKey(p)
	}
	return providers, nil
}

// Upsert creates a provider or updates the one with the same name.
// An existing API key is kept when provider.APIKey is nil.
func (r *ProviderRepository) Upsert(ctx context.Context, provider *models.Provider) error {
	apiKey, err := r.encryptKey(provider.APIKey)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO providers (name, display_name, is_active, api_key, additional_config)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO UPDATE
		SET display_name = EXCLUDED.display_name,
		    is_active = EXCLUDED.is_active,
		    api_key = COALESCE(EXCLUDED.api_key, providers.api_key),
		    additional_config = EXCLUDED.additional_config,
		    updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err = r.db.conn.QueryRowxContext(
		ctx, query,
		provider.Name, provider.DisplayName, provider.IsActive, apiKey, provider.AdditionalConfig,
	).Scan(&provider.ID, &provider.CreatedAt, &provider.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert provider: %w", err)
	}

	return nil
}

// SetAPIKey replaces the API key of a provider
func (r *ProviderRepository) SetAPIKey(ctx context.Context, id int64, apiKey string) error {
	key := &apiKey
	if apiKey == "" {
		key = nil
	}
	stored, err := r.encryptKey(key)
	if err != nil {
		return err
	}

	result, err := r.db.conn.ExecContext(ctx,
		`UPDATE providers SET api_key = $2, updated_at = NOW() WHERE id = $1`, id, stored)
	if err != nil {
		return fmt.Errorf("failed to set provider API key: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrProviderNotFound
	}
	return nil
}

func (r *ProviderRepository) encryptKey(apiKey *string) (*string, error) {
	if apiKey == nil || r.db.encryption == nil {
		return apiKey, nil
	}

	encrypted, err := r.db.encryption.Encrypt([]byte(*apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt provider API key: %w", err)
	}
	return &encrypted, nil
}

// decryptKey replaces the stored key with its plaintext. A key that does
// not decrypt, such as one written before ENCRYPTION_KEY was set, is
// treated as missing so calls fail with an auth error and can fall back.
// Re-run "newsdesk provider set-key" to store it encrypted.
func (r *ProviderRepository) decryptKey(provider *models.Provider) {
	if provider.APIKey == nil || *provider.APIKey == "" || r.db.encryption == nil {
		return
	}

	plaintext, err := r.db.encryption.Decrypt(*provider.APIKey)
	if err != nil {
		logging.Warningf("API key of provider %s cannot be decrypted, treating it as missing: %v", provider.Name, err)
		provider.APIKey = nil
		return
	}
	key := string(plaintext)
	provider.APIKey = &key
}
