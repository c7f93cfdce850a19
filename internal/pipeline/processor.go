package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"newsdesk/internal/logging"
	"newsdesk/internal/models"
	"newsdesk/internal/providers"
	"newsdesk/internal/search"
	"newsdesk/internal/storage"
)

// Validation errors of a pipeline request
const (
	ErrNoStagesSelected = "no stages selected"
	ErrEmptyText        = "text is empty"
	ErrNoActiveStages   = "no valid active stages"
)

// Store is the stage configuration the processor reads
type Store interface {
	ListActiveStages(ctx context.Context) ([]*models.Stage, error)
	GetActiveStagesByIDs(ctx context.Context, ids []int64) ([]*models.Stage, error)
	GetActiveAssignmentForStage(ctx context.Context, stageID int64) (*models.StageAssignment, error)
}

// PromptResolver returns the instruction text of a stage for a user
type PromptResolver interface {
	GetPromptForProcessing(ctx context.Context, userID, stageID int64) (string, error)
}

// Requester sends a chat exchange to the model of a stage
type Requester interface {
	SendRequest(ctx context.Context, modelID int64, messages []providers.Message, params providers.Params, useFallback bool) *providers.Result
}

// StageResult is the outcome of one stage
type StageResult struct {
	StageID          int64   `json:"stage_id"`
	StageName        string  `json:"stage_name"`
	StageDisplayName string  `json:"stage_display_name"`
	Success          bool    `json:"success"`
	Content          *string `json:"content"`
	ModelUsed        *string `json:"model_used"`
	Error            *string `json:"error"`

	FallbackUsed  bool    `json:"fallback_used,omitempty"`
	OriginalError *string `json:"original_error,omitempty"`

	SearchResults []search.Result `json:"searchResults,omitempty"`
	SearchError   *string         `json:"searchError,omitempty"`
}

// Result is the outcome of a pipeline run. Results lists every resolved
// stage in stage order, including failed ones.
type Result struct {
	RunID   uuid.UUID     `json:"run_id"`
	Success bool          `json:"success"`
	Results []StageResult `json:"results"`
	Error   *string       `json:"error"`
}

// StageInfo is the presentation view of an active stage
type StageInfo struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	Description *string `json:"description"`
	Order       int     `json:"order"`
	HasModel    bool    `json:"has_model"`
}

// Processor runs news text through the selected stages, one after another.
type Processor struct {
	store    Store
	prompts  PromptResolver
	router   Requester
	searcher Searcher
	log      zerolog.Logger
}

// Option customizes a Processor
type Option func(*Processor)

// WithSearcher enables freshness enrichment with web search results
func WithSearcher(s Searcher) Option {
	return func(p *Processor) {
		p.searcher = s
	}
}

// NewProcessor creates a new pipeline processor
func NewProcessor(store Store, prompts PromptResolver, router Requester, opts ...Option) *Processor {
	p := &Processor{
		store:   store,
		prompts: prompts,
		router:  router,
		log:     logging.With("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// run carries state from earlier stages to later ones
type run struct {
	id        uuid.UUID
	userID    int64
	text      string
	freshness *search.Response
}

func failedRun(id uuid.UUID, msg string) *Result {
	return &Result{
		RunID:   id,
		Success: false,
		Results: []StageResult{},
		Error:   &msg,
	}
}

// ProcessNews validates the request and executes the requested active
// stages in their stored order. A failing stage marks the run unsuccessful
// but never stops the remaining stages.
func (p *Processor) ProcessNews(ctx context.Context, userID int64, text string, stageIDs []int64) *Result {
	runID := uuid.New()

	if len(stageIDs) == 0 {
		return failedRun(runID, ErrNoStagesSelected)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return failedRun(runID, ErrEmptyText)
	}

	stages, err := p.store.GetActiveStagesByIDs(ctx, stageIDs)
	if err != nil {
		p.log.Error().Err(err).Str("run_id", runID.String()).Msg("failed to load stages")
		return failedRun(runID, fmt.Sprintf("failed to load stages: %v", err))
	}
	if len(stages) == 0 {
		return failedRun(runID, ErrNoActiveStages)
	}

	r := &run{id: runID, userID: userID, text: text}
	result := &Result{
		RunID:   runID,
		Success: true,
		Results: make([]StageResult, 0, len(stages)),
	}

	for _, stage := range stages {
		sr := p.processStage(ctx, r, stage)
		if !sr.Success {
			result.Success = false
		}
		result.Results = append(result.Results, sr)
	}

	p.log.Info().
		Str("run_id", runID.String()).
		Int64("user_id", userID).
		Int("stages", len(stages)).
		Bool("success", result.Success).
		Msg("pipeline run finished")

	return result
}

func (p *Processor) processStage(ctx context.Context, r *run, stage *models.Stage) (sr StageResult) {
	sr = StageResult{
		StageID:          stage.ID,
		StageName:        stage.Name,
		StageDisplayName: stage.DisplayName,
	}

	defer func() {
		if rec := recover(); rec != nil {
			p.log.Error().
				Str("run_id", r.id.String()).
				Str("stage", stage.Name).
				Interface("panic", rec).
				Msg("stage processing panicked")
			sr.Success = false
			sr.Content = nil
			sr.Error = strPtr(fmt.Sprintf("Processing error: %v", rec))
		}
	}()

	assignment, err := p.store.GetActiveAssignmentForStage(ctx, stage.ID)
	if err != nil {
		if errors.Is(err, storage.ErrAssignmentNotFound) {
			sr.Error = strPtr(fmt.Sprintf("no model assigned for stage %s", stage.DisplayName))
			return sr
		}
		sr.Error = strPtr(fmt.Sprintf("Processing error: %v", err))
		return sr
	}

	prompt, err := p.prompts.GetPromptForProcessing(ctx, r.userID, stage.ID)
	if err != nil {
		sr.Error = strPtr(fmt.Sprintf("Processing error: %v", err))
		return sr
	}

	userText := r.text
	if stage.Name == models.StageFreshnessAnalysis && r.freshness != nil && r.freshness.Success {
		userText = withPublications(r.text, r.freshness)
	}

	messages := []providers.Message{
		{Role: providers.RoleSystem, Content: prompt},
		{Role: providers.RoleUser, Content: userText},
	}

	res := p.router.SendRequest(ctx, assignment.ModelID, messages, providers.Params{}, true)
	if res == nil || !res.Success {
		msg := res.ErrorText()
		if msg == "" {
			msg = "unknown AI error"
		}
		sr.Error = &msg
		p.log.Warn().
			Str("run_id", r.id.String()).
			Str("stage", stage.Name).
			Str("error", msg).
			Msg("stage failed")
		return sr
	}

	sr.Success = true
	sr.Content = res.Content
	model := res.Model
	if model == "" {
		model = "unknown"
	}
	sr.ModelUsed = &model
	if res.FallbackUsed {
		sr.FallbackUsed = true
		sr.OriginalError = res.OriginalError
	}

	if stage.Name == models.StageFreshnessCheck && p.searcher != nil {
		resp := p.runSearch(ctx, res.Text())
		r.freshness = resp
		if resp.Success {
			sr.SearchResults = resp.Results
		} else {
			sr.SearchError = resp.Error
			p.log.Warn().
				Str("run_id", r.id.String()).
				Str("error", resp.ErrorText()).
				Msg("freshness search failed")
		}
	}

	return sr
}

// GetAvailableStages lists active stages in order and whether each has an
// active model assignment. Read only.
func (p *Processor) GetAvailableStages(ctx context.Context) ([]StageInfo, error) {
	stages, err := p.store.ListActiveStages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}

	out := make([]StageInfo, 0, len(stages))
	for _, st := range stages {
		hasModel := true
		if _, err := p.store.GetActiveAssignmentForStage(ctx, st.ID); err != nil {
			if !errors.Is(err, storage.ErrAssignmentNotFound) {
				return nil, fmt.Errorf("failed to get assignment for stage %d: %w", st.ID, err)
			}
			hasModel = false
		}

		out = append(out, StageInfo{
			ID:          st.ID,
			Name:        st.Name,
			DisplayName: st.DisplayName,
			Description: st.Description,
			Order:       st.Order,
			HasModel:    hasModel,
		})
	}
	return out, nil
}

func strPtr(s string) *string {
	return &s
}
