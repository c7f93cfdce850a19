package storage

import (
	"context"
	"database/sql"
	"fmt"

	"newsdesk/internal/models"
)

const modelColumns = `id, provider_id, name, display_name, api_identifier, is_active, default_params, created_at, updated_at`

// ModelRepository handles model database operations
type ModelRepository struct {
	db *DB
}

// NewModelRepository creates a new model repository
func NewModelRepository(db *DB) *ModelRepository {
	return &ModelRepository{db: db}
}

// GetByID retrieves a model by ID, active or not
func (r *ModelRepository) GetByID(ctx context.Context, id int64) (*models.Model, error) {
	var model models.Model
	query := `SELECT ` + modelColumns + ` FROM ai_models WHERE id = $1`

	err := r.db.conn.GetContext(ctx, &model, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrModelNotFound
		}
		return nil, fmt.Errorf("failed to get model: %w", err)
	}

	return &model, nil
}

// GetByName retrieves a model by its provider scoped name
func (r *ModelRepository) GetByName(ctx context.Context, providerID int64, name string) (*models.Model, error) {
	var model models.Model
	query := `SELECT ` + modelColumns + ` FROM ai_models WHERE provider_id = $1 AND name = $2`

	err := r.db.conn.GetContext(ctx, &model, query, providerID, name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrModelNotFound
		}
		return nil, fmt.Errorf("failed to get model: %w", err)
	}

	return &model, nil
}

// ListByProvider returns the models of a provider ordered by name
func (r *ModelRepository) ListByProvider(ctx context.Context, providerID int64) ([]*models.Model, error) {
	query := `SELECT ` + modelColumns + ` FROM ai_models WHERE provider_id = $1 ORDER BY name`

	var list []*models.Model
	if err := r.db.conn.SelectContext(ctx, &list, query, providerID); err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	return list, nil
}

// Upsert creates a model or updates the one with the same (provider, name)
func (r *ModelRepository) Upsert(ctx context.Context, model *models.Model) error {
	query := `
		INSERT INTO ai_models (provider_id, name, display_name, api_identifier, is_active, default_params)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (provider_id, name) DO UPDATE
		SET display_name = EXCLUDED.display_name,
		    api_identifier = EXCLUDED.api_identifier,
		    is_active = EXCLUDED.is_active,
		    default_params = EXCLUDED.default_params,
		    updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := r.db.conn.QueryRowxContext(
		ctx, query,
		model.ProviderID, model.Name, model.DisplayName, model.APIIdentifier, model.IsActive, model.DefaultParams,
	).Scan(&model.ID, &model.CreatedAt, &model.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert model: %w", err)
	}

	return nil
}
