package prompts

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"newsdesk/internal/logging"
	"newsdesk/internal/models"
	"newsdesk/internal/storage"
)

// ErrSystemPromptNotFound is returned when a stage has no default instruction.
// A stage must have a system prompt before any user can work with it.
var ErrSystemPromptNotFound = errors.New("system prompt not found")

// Store is the prompt persistence the manager needs
type Store interface {
	GetSystemPrompt(ctx context.Context, stageID int64) (*models.SystemPrompt, error)
	UpsertSystemPrompt(ctx context.Context, p *models.SystemPrompt) error
	GetUserPrompt(ctx context.Context, userID, stageID int64) (*models.UserPrompt, error)
	CreateUserPrompt(ctx context.Context, p *models.UserPrompt) error
	UpdateUserPrompt(ctx context.Context, p *models.UserPrompt) error
	ListActiveStages(ctx context.Context) ([]*models.Stage, error)
}

// Manager resolves the instruction text used for a (user, stage) pair.
// Users get a lazily created copy of the stage's system prompt which they
// may customize and reset.
type Manager struct {
	store Store
	log   zerolog.Logger
}

// NewManager creates a new prompt manager
func NewManager(store Store) *Manager {
	return &Manager{
		store: store,
		log:   logging.With("prompts"),
	}
}

func (m *Manager) systemPrompt(ctx context.Context, stageID int64) (*models.SystemPrompt, error) {
	sp, err := m.store.GetSystemPrompt(ctx, stageID)
	if err != nil {
		if errors.Is(err, storage.ErrSystemPromptNotFound) {
			return nil, fmt.Errorf("%w for stage %d", ErrSystemPromptNotFound, stageID)
		}
		return nil, fmt.Errorf("failed to get system prompt for stage %d: %w", stageID, err)
	}
	return sp, nil
}

// GetOrCreateUserPrompt returns the user's copy for the stage, creating it
// from the system prompt on first access.
func (m *Manager) GetOrCreateUserPrompt(ctx context.Context, userID, stageID int64) (*models.UserPrompt, error) {
	up, err := m.store.GetUserPrompt(ctx, userID, stageID)
	if err == nil {
		return up, nil
	}
	if !errors.Is(err, storage.ErrUserPromptNotFound) {
		return nil, fmt.Errorf("failed to get user prompt: %w", err)
	}

	sp, err := m.systemPrompt(ctx, stageID)
	if err != nil {
		return nil, err
	}

	up = &models.UserPrompt{
		UserID:       userID,
		StageID:      stageID,
		PromptText:   sp.PromptText,
		IsCustomized: false,
	}
	if err := m.store.CreateUserPrompt(ctx, up); err != nil {
		return nil, fmt.Errorf("failed to create user prompt: %w", err)
	}

	m.log.Debug().Int64("user_id", userID).Int64("stage_id", stageID).Msg("created user prompt from system prompt")
	return up, nil
}

// UpdateUserPrompt overwrites the user's copy and marks it customized
func (m *Manager) UpdateUserPrompt(ctx context.Context, userID, stageID int64, text string) (*models.UserPrompt, error) {
	up, err := m.GetOrCreateUserPrompt(ctx, userID, stageID)
	if err != nil {
		return nil, err
	}

	up.PromptText = text
	up.IsCustomized = true
	if err := m.store.UpdateUserPrompt(ctx, up); err != nil {
		return nil, fmt.Errorf("failed to update user prompt: %w", err)
	}
	return up, nil
}

// ResetUserPrompt restores the user's copy to the current system prompt
func (m *Manager) ResetUserPrompt(ctx context.Context, userID, stageID int64) (*models.UserPrompt, error) {
	up, err := m.GetOrCreateUserPrompt(ctx, userID, stageID)
	if err != nil {
		return nil, err
	}

	sp, err := m.systemPrompt(ctx, stageID)
	if err != nil {
		return nil, err
	}

	up.PromptText = sp.PromptText
	up.IsCustomized = false
	if err := m.store.UpdateUserPrompt(ctx, up); err != nil {
		return nil, fmt.Errorf("failed to reset user prompt: %w", err)
	}
	return up, nil
}

// GetPromptForProcessing returns the instruction text for a pipeline stage
func (m *Manager) GetPromptForProcessing(ctx context.Context, userID, stageID int64) (string, error) {
	up, err := m.GetOrCreateUserPrompt(ctx, userID, stageID)
	if err != nil {
		return "", err
	}
	return up.PromptText, nil
}

// UpdateSystemPrompt upserts the stage default. Existing user copies are left alone.
// A nil description keeps the stored one.
func (m *Manager) UpdateSystemPrompt(ctx context.Context, stageID int64, text string, description *string) (*models.SystemPrompt, error) {
	sp := &models.SystemPrompt{
		StageID:     stageID,
		PromptText:  text,
		Description: description,
	}
	if err := m.store.UpsertSystemPrompt(ctx, sp); err != nil {
		return nil, fmt.Errorf("failed to update system prompt: %w", err)
	}

	m.log.Info().Int64("stage_id", stageID).Msg("system prompt updated")
	return sp, nil
}

// InitializeUserPrompts creates the user's copies for every active stage.
// Stages without a system prompt are skipped. Returns the number of stages
// the user now has a prompt for.
func (m *Manager) InitializeUserPrompts(ctx context.Context, userID int64) (int, error) {
	stages, err := m.store.ListActiveStages(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list stages: %w", err)
	}

	count := 0
	for _, st := range stages {
		if _, err := m.GetOrCreateUserPrompt(ctx, userID, st.ID); err != nil {
			if errors.Is(err, ErrSystemPromptNotFound) {
				m.log.Warn().Int64("user_id", userID).Str("stage", st.Name).Msg("stage has no system prompt, skipping")
				continue
			}
			return count, err
		}
		count++
	}
	return count, nil
}
