package storage

import (
	"context"
	"errors"
	"fmt"

	"newsdesk/internal/models"
)

// Store is the configuration store backed by Postgres. It exposes the
// keyed lookups used by the router, the prompt manager and the pipeline.
type Store struct {
	Providers   *ProviderRepository
	Models      *ModelRepository
	Stages      *StageRepository
	Assignments *AssignmentRepository
	Prompts     *PromptRepository
}

// NewStore creates a store over db
func NewStore(db *DB) *Store {
	return &Store{
		Providers:   db.NewProviderRepository(),
		Models:      db.NewModelRepository(),
		Stages:      db.NewStageRepository(),
		Assignments: db.NewAssignmentRepository(),
		Prompts:     db.NewPromptRepository(),
	}
}

func (s *Store) GetModel(ctx context.Context, id int64) (*models.Model, error) {
	return s.Models.GetByID(ctx, id)
}

func (s *Store) GetProvider(ctx context.Context, id int64) (*models.Provider, error) {
	return s.Providers.GetByID(ctx, id)
}

func (s *Store) GetActiveAssignmentForModel(ctx context.Context, modelID int64) (*models.StageAssignment, error) {
	return s.Assignments.GetActiveForModel(ctx, modelID)
}

func (s *Store) GetActiveAssignmentForStage(ctx context.Context, stageID int64) (*models.StageAssignment, error) {
	return s.Assignments.GetActiveForStage(ctx, stageID)
}

func (s *Store) ListActiveStages(ctx context.Context) ([]*models.Stage, error) {
	return s.Stages.ListActive(ctx)
}

func (s *Store) GetActiveStagesByIDs(ctx context.Context, ids []int64) ([]*models.Stage, error) {
	return s.Stages.ListActiveByIDs(ctx, ids)
}

func (s *Store) GetSystemPrompt(ctx context.Context, stageID int64) (*models.SystemPrompt, error) {
	return s.Prompts.GetSystemPrompt(ctx, stageID)
}

func (s *Store) UpsertSystemPrompt(ctx context.Context, p *models.SystemPrompt) error {
	return s.Prompts.UpsertSystemPrompt(ctx, p)
}

func (s *Store) GetUserPrompt(ctx context.Context, userID, stageID int64) (*models.UserPrompt, error) {
	return s.Prompts.GetUserPrompt(ctx, userID, stageID)
}

func (s *Store) CreateUserPrompt(ctx context.Context, p *models.UserPrompt) error {
	return s.Prompts.CreateUserPrompt(ctx, p)
}

func (s *Store) UpdateUserPrompt(ctx context.Context, p *models.UserPrompt) error {
	return s.Prompts.UpdateUserPrompt(ctx, p)
}

// Seed inserts the records of data that do not exist yet. Existing rows,
// including administrator edits, are left untouched.
func (s *Store) Seed(ctx context.Context, data SeedData) (SeedReport, error) {
	var report SeedReport

	stageIDs := make(map[string]int64, len(data.Stages))
	for _, st := range data.Stages {
		existing, err := s.Stages.GetByName(ctx, st.Name)
		switch {
		case err == nil:
			stageIDs[st.Name] = existing.ID
			report.Skipped++
			continue
		case !errors.Is(err, ErrStageNotFound):
			return report, err
		}

		stage := st
		if err := s.Stages.Upsert(ctx, &stage); err != nil {
			return report, err
		}
		stageIDs[st.Name] = stage.ID
		report.Stages++
	}

	for name, text := range data.SystemPrompts {
		stageID, ok := stageIDs[name]
		if !ok {
			continue
		}
		if _, err := s.Prompts.GetSystemPrompt(ctx, stageID); err == nil {
			report.Skipped++
			continue
		} else if !errors.Is(err, ErrSystemPromptNotFound) {
			return report, err
		}
		if err := s.Prompts.UpsertSystemPrompt(ctx, &models.SystemPrompt{StageID: stageID, PromptText: text}); err != nil {
			return report, err
		}
		report.SystemPrompts++
	}

	providerIDs := make(map[string]int64, len(data.Providers))
	for _, pr := range data.Providers {
		existing, err := s.Providers.GetByName(ctx, pr.Name)
		switch {
		case err == nil:
			providerIDs[pr.Name] = existing.ID
			report.Skipped++
			continue
		case !errors.Is(err, ErrProviderNotFound):
			return report, err
		}

		provider := pr
		if err := s.Providers.Upsert(ctx, &provider); err != nil {
			return report, err
		}
		providerIDs[pr.Name] = provider.ID
		report.Providers++
	}

	for _, sm := range data.Models {
		providerID, ok := providerIDs[sm.Provider]
		if !ok {
			return report, fmt.Errorf("%w: %s (model %s)", ErrProviderNotFound, sm.Provider, sm.Model.Name)
		}
		if _, err := s.Models.GetByName(ctx, providerID, sm.Model.Name); err == nil {
			report.Skipped++
			continue
		} else if !errors.Is(err, ErrModelNotFound) {
			return report, err
		}

		model := sm.Model
		model.ProviderID = providerID
		if err := s.Models.Upsert(ctx, &model); err != nil {
			return report, err
		}
		report.Models++
	}

	return report, nil
}
