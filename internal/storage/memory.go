package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"newsdesk/internal/models"
)

// MemoryStore is an in-process configuration store with the same lookups
// as Store. Records are copied on the way in and out so callers work on
// snapshots.
type MemoryStore struct {
	mu sync.RWMutex

	nextID        int64
	providers     map[int64]models.Provider
	models        map[int64]models.Model
	stages        map[int64]models.Stage
	assignments   []models.StageAssignment
	systemPrompts map[int64]models.SystemPrompt
	userPrompts   map[[2]int64]models.UserPrompt
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		providers:     make(map[int64]models.Provider),
		models:        make(map[int64]models.Model),
		stages:        make(map[int64]models.Stage),
		systemPrompts: make(map[int64]models.SystemPrompt),
		userPrompts:   make(map[[2]int64]models.UserPrompt),
	}
}

func (s *MemoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

// AddProvider stores p and assigns its ID when zero
func (s *MemoryStore) AddProvider(p *models.Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == 0 {
		p.ID = s.id()
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	s.providers[p.ID] = *p
}

// AddModel stores m and assigns its ID when zero
func (s *MemoryStore) AddModel(m *models.Model) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == 0 {
		m.ID = s.id()
	}
	now := time.Now()
	m.CreatedAt, m.UpdatedAt = now, now
	s.models[m.ID] = *m
}

// AddStage stores st and assigns its ID when zero
func (s *MemoryStore) AddStage(st *models.Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st.ID == 0 {
		st.ID = s.id()
	}
	now := time.Now()
	st.CreatedAt, st.UpdatedAt = now, now
	s.stages[st.ID] = *st
}

// AddAssignment appends a raw assignment row without superseding others
func (s *MemoryStore) AddAssignment(a *models.StageAssignment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == 0 {
		a.ID = s.id()
	}
	now := time.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	s.assignments = append(s.assignments, *a)
}

// ActivateAssignment deactivates the active assignments of the stage and
// appends a new active one.
func (s *MemoryStore) ActivateAssignment(stageID, modelID int64, fallbackModelID *int64, priority int) (*models.StageAssignment, error) {
	if fallbackModelID != nil && *fallbackModelID == modelID {
		return nil, ErrInvalidFallback
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for i := range s.assignments {
		if s.assignments[i].StageID == stageID && s.assignments[i].IsActive {
			s.assignments[i].IsActive = false
			s.assignments[i].UpdatedAt = now
		}
	}

	a := models.StageAssignment{
		ID:              s.id(),
		StageID:         stageID,
		ModelID:         modelID,
		FallbackModelID: fallbackModelID,
		IsActive:        true,
		Priority:        priority,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.assignments = append(s.assignments, a)
	return &a, nil
}

// SetModelActive toggles a model
func (s *MemoryStore) SetModelActive(id int64, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.models[id]; ok {
		m.IsActive = active
		s.models[id] = m
	}
}

// SetProviderActive toggles a provider
func (s *MemoryStore) SetProviderActive(id int64, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.providers[id]; ok {
		p.IsActive = active
		s.providers[id] = p
	}
}

func (s *MemoryStore) GetModel(_ context.Context, id int64) (*models.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.models[id]
	if !ok {
		return nil, ErrModelNotFound
	}
	return &m, nil
}

func (s *MemoryStore) GetProvider(_ context.Context, id int64) (*models.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.providers[id]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return &p, nil
}

// activeAssignment picks the highest priority active row matching fn,
// newest first on ties.
func (s *MemoryStore) activeAssignment(match func(models.StageAssignment) bool) *models.StageAssignment {
	var best *models.StageAssignment
	for i := range s.assignments {
		a := s.assignments[i]
		if !a.IsActive || !match(a) {
			continue
		}
		if best == nil || a.Priority > best.Priority || (a.Priority == best.Priority && a.ID > best.ID) {
			best = &a
		}
	}
	return best
}

func (s *MemoryStore) GetActiveAssignmentForModel(_ context.Context, modelID int64) (*models.StageAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a := s.activeAssignment(func(a models.StageAssignment) bool { return a.ModelID == modelID })
	if a == nil {
		return nil, ErrAssignmentNotFound
	}
	return a, nil
}

func (s *MemoryStore) GetActiveAssignmentForStage(_ context.Context, stageID int64) (*models.StageAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a := s.activeAssignment(func(a models.StageAssignment) bool { return a.StageID == stageID })
	if a == nil {
		return nil, ErrAssignmentNotFound
	}
	return a, nil
}

func (s *MemoryStore) ListActiveStages(ctx context.Context) ([]*models.Stage, error) {
	return s.filterStages(func(models.Stage) bool { return true }), nil
}

func (s *MemoryStore) GetActiveStagesByIDs(_ context.Context, ids []int64) ([]*models.Stage, error) {
	wanted := make(map[int64]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	return s.filterStages(func(st models.Stage) bool { return wanted[st.ID] }), nil
}

func (s *MemoryStore) filterStages(match func(models.Stage) bool) []*models.Stage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Stage, 0, len(s.stages))
	for _, st := range s.stages {
		if st.IsActive && match(st) {
			st := st
			out = append(out, &st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *MemoryStore) GetSystemPrompt(_ context.Context, stageID int64) (*models.SystemPrompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.systemPrompts[stageID]
	if !ok {
		return nil, ErrSystemPromptNotFound
	}
	return &p, nil
}

func (s *MemoryStore) UpsertSystemPrompt(_ context.Context, p *models.SystemPrompt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if existing, ok := s.systemPrompts[p.StageID]; ok {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
		if p.Description == nil {
			p.Description = existing.Description
		}
	} else {
		p.ID = s.id()
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	s.systemPrompts[p.StageID] = *p
	return nil
}

func (s *MemoryStore) GetUserPrompt(_ context.Context, userID, stageID int64) (*models.UserPrompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.userPrompts[[2]int64{userID, stageID}]
	if !ok {
		return nil, ErrUserPromptNotFound
	}
	return &p, nil
}

func (s *MemoryStore) CreateUserPrompt(_ context.Context, p *models.UserPrompt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := [2]int64{p.UserID, p.StageID}
	if existing, ok := s.userPrompts[key]; ok {
		*p = existing
		return nil
	}

	now := time.Now()
	p.ID = s.id()
	p.CreatedAt, p.UpdatedAt = now, now
	s.userPrompts[key] = *p
	return nil
}

func (s *MemoryStore) UpdateUserPrompt(_ context.Context, p *models.UserPrompt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := [2]int64{p.UserID, p.StageID}
	existing, ok := s.userPrompts[key]
	if !ok {
		return ErrUserPromptNotFound
	}

	existing.PromptText = p.PromptText
	existing.IsCustomized = p.IsCustomized
	existing.UpdatedAt = time.Now()
	s.userPrompts[key] = existing
	*p = existing
	return nil
}

// Seed loads data into the store, skipping records whose name already exists
func (s *MemoryStore) Seed(data SeedData) SeedReport {
	var report SeedReport

	stageIDs := map[string]int64{}
	providerIDs := map[string]int64{}

	s.mu.RLock()
	for _, st := range s.stages {
		stageIDs[st.Name] = st.ID
	}
	for _, p := range s.providers {
		providerIDs[p.Name] = p.ID
	}
	s.mu.RUnlock()

	for _, st := range data.Stages {
		if _, ok := stageIDs[st.Name]; ok {
			report.Skipped++
			continue
		}
		stage := st
		s.AddStage(&stage)
		stageIDs[st.Name] = stage.ID
		report.Stages++
	}

	for name, text := range data.SystemPrompts {
		stageID, ok := stageIDs[name]
		if !ok {
			continue
		}
		if _, err := s.GetSystemPrompt(context.Background(), stageID); err == nil {
			report.Skipped++
			continue
		}
		_ = s.UpsertSystemPrompt(context.Background(), &models.SystemPrompt{StageID: stageID, PromptText: text})
		report.SystemPrompts++
	}

	for _, p := range data.Providers {
		if _, ok := providerIDs[p.Name]; ok {
			report.Skipped++
			continue
		}
		provider := p
		s.AddProvider(&provider)
		providerIDs[p.Name] = provider.ID
		report.Providers++
	}

	for _, sm := range data.Models {
		providerID, ok := providerIDs[sm.Provider]
		if !ok || s.hasModel(providerID, sm.Model.Name) {
			report.Skipped++
			continue
		}
		model := sm.Model
		model.ProviderID = providerID
		s.AddModel(&model)
		report.Models++
	}

	return report
}

func (s *MemoryStore) hasModel(providerID int64, name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.models {
		if m.ProviderID == providerID && m.Name == name {
			return true
		}
	}
	return false
}
