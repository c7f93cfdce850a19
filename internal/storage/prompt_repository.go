package storage

import (
	"context"
	"database/sql"
	"fmt"

	"newsdesk/internal/models"
)

// PromptRepository handles system and user prompt database operations
type PromptRepository struct {
	db *DB
}

// NewPromptRepository creates a new prompt repository
func NewPromptRepository(db *DB) *PromptRepository {
	return &PromptRepository{db: db}
}

// GetSystemPrompt returns the system prompt of a stage
func (r *PromptRepository) GetSystemPrompt(ctx context.Context, stageID int64) (*models.SystemPrompt, error) {
	var p models.SystemPrompt
	query := `
		SELECT id, stage_id, prompt_text, description, created_at, updated_at
		FROM system_prompts
		WHERE stage_id = $1
	`

	err := r.db.conn.GetContext(ctx, &p, query, stageID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSystemPromptNotFound
		}
		return nil, fmt.Errorf("failed to get system prompt: %w", err)
	}

	return &p, nil
}

// UpsertSystemPrompt creates or replaces the system prompt of a stage.
// A nil description keeps the stored one.
func (r *PromptRepository) UpsertSystemPrompt(ctx context.Context, p *models.SystemPrompt) error {
	query := `
		INSERT INTO system_prompts (stage_id, prompt_text, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (stage_id) DO UPDATE
		SET prompt_text = EXCLUDED.prompt_text,
		    description = COALESCE(EXCLUDED.description, system_prompts.description),
		    updated_at = NOW()
		RETURNING id, description, created_at, updated_at
	`

	err := r.db.conn.QueryRowxContext(ctx, query, p.StageID, p.PromptText, p.Description).
		Scan(&p.ID, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert system prompt: %w", err)
	}

	return nil
}

// GetUserPrompt returns the prompt of a user for a stage
func (r *PromptRepository) GetUserPrompt(ctx context.Context, userID, stageID int64) (*models.UserPrompt, error) {
	var p models.UserPrompt
	query := `
		SELECT id, user_id, stage_id, prompt_text, is_customized, created_at, updated_at
		FROM user_prompts
		WHERE user_id = $1 AND stage_id = $2
	`

	err := r.db.conn.GetContext(ctx, &p, query, userID, stageID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserPromptNotFound
		}
		return nil, fmt.Errorf("failed to get user prompt: %w", err)
	}

	return &p, nil
}

// CreateUserPrompt inserts a user prompt. A concurrent insert for the same
// (user, stage) leaves the existing row untouched and loads it into p.
func (r *PromptRepository) CreateUserPrompt(ctx context.Context, p *models.UserPrompt) error {
	query := `
		INSERT INTO user_prompts (user_id, stage_id, prompt_text, is_customized)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, stage_id) DO UPDATE SET user_id = user_prompts.user_id
		RETURNING id, prompt_text, is_customized, created_at, updated_at
	`

	err := r.db.conn.QueryRowxContext(ctx, query, p.UserID, p.StageID, p.PromptText, p.IsCustomized).
		Scan(&p.ID, &p.PromptText, &p.IsCustomized, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user prompt: %w", err)
	}

	return nil
}

// UpdateUserPrompt overwrites the text and customization flag
func (r *PromptRepository) UpdateUserPrompt(ctx context.Context, p *models.UserPrompt) error {
	query := `
		UPDATE user_prompts
		SET prompt_text = $3, is_customized = $4, updated_at = NOW()
		WHERE user_id = $1 AND stage_id = $2
		RETURNING updated_at
	`

	err := r.db.conn.QueryRowxContext(ctx, query, p.UserID, p.StageID, p.PromptText, p.IsCustomized).
		Scan(&p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrUserPromptNotFound
		}
		return fmt.Errorf("failed to update user prompt: %w", err)
	}

	return nil
}
