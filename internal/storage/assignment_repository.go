package storage

import (
	"context"
	"database/sql"
	"fmt"

	"newsdesk/internal/models"
)

const assignmentColumns = `id, stage_id, model_id, fallback_model_id, is_active, priority, created_at, updated_at`

// AssignmentRepository handles stage assignment database operations.
// Assignments are append-only; at most one per stage is active.
type AssignmentRepository struct {
	db *DB
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(db *DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// GetActiveForStage returns the active assignment of a stage. If several
// are active the highest priority wins.
func (r *AssignmentRepository) GetActiveForStage(ctx context.Context, stageID int64) (*models.StageAssignment, error) {
	var a models.StageAssignment
	query := `
		SELECT ` + assignmentColumns + `
		FROM stage_assignments
		WHERE stage_id = $1 AND is_active
		ORDER BY priority DESC, id DESC
		LIMIT 1
	`

	err := r.db.conn.GetContext(ctx, &a, query, stageID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to get stage assignment: %w", err)
	}

	return &a, nil
}

// GetActiveForModel returns the highest priority active assignment whose
// primary model is modelID. Used to find a fallback for a failing model.
func (r *AssignmentRepository) GetActiveForModel(ctx context.Context, modelID int64) (*models.StageAssignment, error) {
	var a models.StageAssignment
	query := `
		SELECT ` + assignmentColumns + `
		FROM stage_assignments
		WHERE model_id = $1 AND is_active
		ORDER BY priority DESC, id DESC
		LIMIT 1
	`

	err := r.db.conn.GetContext(ctx, &a, query, modelID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to get model assignment: %w", err)
	}

	return &a, nil
}

// Activate supersedes the active assignment of a stage with a new one.
// Previous rows are deactivated, not deleted.
func (r *AssignmentRepository) Activate(ctx context.Context, stageID, modelID int64, fallbackModelID *int64, priority int) (*models.StageAssignment, error) {
	if fallbackModelID != nil && *fallbackModelID == modelID {
		return nil, ErrInvalidFallback
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE stage_assignments SET is_active = FALSE, updated_at = NOW() WHERE stage_id = $1 AND is_active`,
		stageID,
	); err != nil {
		return nil, fmt.Errorf("failed to deactivate stage assignments: %w", err)
	}

	a := &models.StageAssignment{
		StageID:         stageID,
		ModelID:         modelID,
		FallbackModelID: fallbackModelID,
		IsActive:        true,
		Priority:        priority,
	}
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO stage_assignments (stage_id, model_id, fallback_model_id, is_active, priority)
		VALUES ($1, $2, $3, TRUE, $4)
		RETURNING id, created_at, updated_at
	`, stageID, modelID, fallbackModelID, priority).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create stage assignment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit stage assignment: %w", err)
	}
	return a, nil
}
