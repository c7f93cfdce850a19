package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"newsdesk/internal/models"
)

const stageColumns = `id, name, display_name, description, stage_order, is_active, created_at, updated_at`

// StageRepository handles stage database operations
type StageRepository struct {
	db *DB
}

// NewStageRepository creates a new stage repository
func NewStageRepository(db *DB) *StageRepository {
	return &StageRepository{db: db}
}

// GetByID retrieves a stage by ID
func (r *StageRepository) GetByID(ctx context.Context, id int64) (*models.Stage, error) {
	var stage models.Stage
	query := `SELECT ` + stageColumns + ` FROM stages WHERE id = $1`

	err := r.db.conn.GetContext(ctx, &stage, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrStageNotFound
		}
		return nil, fmt.Errorf("failed to get stage: %w", err)
	}

	return &stage, nil
}

// GetByName retrieves a stage by its unique name
func (r *StageRepository) GetByName(ctx context.Context, name string) (*models.Stage, error) {
	var stage models.Stage
	query := `SELECT ` + stageColumns + ` FROM stages WHERE name = $1`

	err := r.db.conn.GetContext(ctx, &stage, query, name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrStageNotFound
		}
		return nil, fmt.Errorf("failed to get stage: %w", err)
	}

	return &stage, nil
}

// ListActive returns the active stages in pipeline order
func (r *StageRepository) ListActive(ctx context.Context) ([]*models.Stage, error) {
	query := `SELECT ` + stageColumns + ` FROM stages WHERE is_active ORDER BY stage_order, id`

	var stages []*models.Stage
	if err := r.db.conn.SelectContext(ctx, &stages, query); err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}
	return stages, nil
}

// ListActiveByIDs returns the active stages among ids, in pipeline order.
// Unknown and inactive IDs are silently skipped.
func (r *StageRepository) ListActiveByIDs(ctx context.Context, ids []int64) ([]*models.Stage, error) {
	if len(ids) == 0 {
		return []*models.Stage{}, nil
	}

	query := `SELECT ` + stageColumns + ` FROM stages WHERE id = ANY($1) AND is_active ORDER BY stage_order, id`

	var stages []*models.Stage
	if err := r.db.conn.SelectContext(ctx, &stages, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}
	return stages, nil
}

// Upsert creates a stage or updates the one with the same name
func (r *StageRepository) Upsert(ctx context.Context, stage *models.Stage) error {
	query := `
		INSERT INTO stages (name, display_name, description, stage_order, is_active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO UPDATE
		SET display_name = EXCLUDED.display_name,
		    description = EXCLUDED.description,
		    stage_order = EXCLUDED.stage_order,
		    is_active = EXCLUDED.is_active,
		    updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := r.db.conn.QueryRowxContext(
		ctx, query,
		stage.Name, stage.DisplayName, stage.Description, stage.Order, stage.IsActive,
	).Scan(&stage.ID, &stage.CreatedAt, &stage.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert stage: %w", err)
	}

	return nil
}
