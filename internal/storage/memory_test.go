package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsdesk/internal/models"
)

func TestMemoryStoreStageOrdering(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	third := &models.Stage{Name: "c", Order: 3, IsActive: true}
	first := &models.Stage{Name: "a", Order: 1, IsActive: true}
	inactive := &models.Stage{Name: "x", Order: 0, IsActive: false}
	second := &models.Stage{Name: "b", Order: 2, IsActive: true}
	for _, st := range []*models.Stage{third, first, inactive, second} {
		s.AddStage(st)
	}

	got, err := s.GetActiveStagesByIDs(ctx, []int64{third.ID, first.ID, inactive.ID, second.ID, 999})
	require.NoError(t, err)
	names := make([]string, 0, len(got))
	for _, st := range got {
		names = append(names, st.Name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)

	all, err := s.ListActiveStages(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMemoryStoreActivateAssignmentSupersedes(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first, err := s.ActivateAssignment(1, 10, nil, 0)
	require.NoError(t, err)
	fb := int64(12)
	second, err := s.ActivateAssignment(1, 11, &fb, 0)
	require.NoError(t, err)

	active, err := s.GetActiveAssignmentForStage(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
	assert.NotEqual(t, first.ID, active.ID)

	_, err = s.GetActiveAssignmentForModel(ctx, 10)
	assert.ErrorIs(t, err, ErrAssignmentNotFound)

	_, err = s.ActivateAssignment(1, 11, &[]int64{11}[0], 0)
	assert.ErrorIs(t, err, ErrInvalidFallback)
}

func TestMemoryStoreAssignmentPriority(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.AddAssignment(&models.StageAssignment{StageID: 1, ModelID: 1, IsActive: true, Priority: 1})
	high := &models.StageAssignment{StageID: 1, ModelID: 2, IsActive: true, Priority: 5}
	s.AddAssignment(high)
	s.AddAssignment(&models.StageAssignment{StageID: 1, ModelID: 3, IsActive: false, Priority: 9})

	got, err := s.GetActiveAssignmentForStage(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, high.ID, got.ID)

	_, err = s.GetActiveAssignmentForStage(ctx, 2)
	assert.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestMemoryStoreReturnsSnapshots(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	m := &models.Model{Name: "gpt-4o", IsActive: true}
	s.AddModel(m)

	got, err := s.GetModel(ctx, m.ID)
	require.NoError(t, err)
	got.IsActive = false

	again, _ := s.GetModel(ctx, m.ID)
	assert.True(t, again.IsActive)

	s.SetModelActive(m.ID, false)
	again, _ = s.GetModel(ctx, m.ID)
	assert.False(t, again.IsActive)
}

func TestMemoryStoreUserPrompts(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.GetUserPrompt(ctx, 1, 1)
	assert.ErrorIs(t, err, ErrUserPromptNotFound)

	p := &models.UserPrompt{UserID: 1, StageID: 1, PromptText: "X"}
	require.NoError(t, s.CreateUserPrompt(ctx, p))
	assert.NotZero(t, p.ID)

	// a second create returns the existing row
	dup := &models.UserPrompt{UserID: 1, StageID: 1, PromptText: "other"}
	require.NoError(t, s.CreateUserPrompt(ctx, dup))
	assert.Equal(t, p.ID, dup.ID)
	assert.Equal(t, "X", dup.PromptText)

	assert.ErrorIs(t, s.UpdateUserPrompt(ctx, &models.UserPrompt{UserID: 2, StageID: 1}), ErrUserPromptNotFound)
}

func TestMemoryStoreSeedIsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first := s.Seed(DefaultSeedData())
	assert.Equal(t, SeedReport{Stages: 5, SystemPrompts: 5, Providers: 3, Models: 10}, first)

	second := s.Seed(DefaultSeedData())
	assert.Equal(t, 0, second.Stages+second.Providers+second.Models+second.SystemPrompts)
	assert.Equal(t, 23, second.Skipped)

	stages, err := s.ListActiveStages(ctx)
	require.NoError(t, err)
	require.Len(t, stages, 5)
	assert.Equal(t, models.StageFreshnessAnalysis, stages[2].Name)
	assert.Equal(t, 3, stages[2].Order)

	for _, st := range stages {
		_, err := s.GetSystemPrompt(ctx, st.ID)
		assert.NoError(t, err, st.Name)
	}
}
