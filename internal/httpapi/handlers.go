package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"newsdesk/internal/middleware"
	"newsdesk/internal/pipeline"
	"newsdesk/internal/prompts"
	"newsdesk/internal/providers"
	"newsdesk/internal/search"
	"newsdesk/internal/utils"
)

var defaultSearchOptions = search.Options{Count: 10}

// ProcessRequest is the body of POST /api/process
type ProcessRequest struct {
	NewsText string            `json:"news_text"`
	StageIDs []json.RawMessage `json:"stage_ids"`
	// Format is "text" (default) or "html". HTML input is reduced to text
	// before processing.
	Format string `json:"format,omitempty"`
}

// Input formats of a process request
const (
	FormatText = "text"
	FormatHTML = "html"
)

// UpdatePromptRequest is the body of PUT /api/prompts/{stageID}
type UpdatePromptRequest struct {
	PromptText string `json:"prompt_text"`
}

func (s *Server) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := middleware.GetUserID(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "missing user identity")
	}
	return id, ok
}

// handleHealth handles GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		if err := s.deps.Health.Health(r.Context()); err != nil {
			s.log.Error().Err(err).Msg("health check failed")
			utils.RespondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleProcess handles POST /api/process
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	var req ProcessRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		if errors.Is(err, utils.ErrEmptyBody) {
			utils.RespondWithError(w, http.StatusBadRequest, "no data provided")
			return
		}
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	switch strings.ToLower(req.Format) {
	case "", FormatText:
	case FormatHTML:
		req.NewsText = pipeline.HTMLToText(req.NewsText)
	default:
		utils.RespondWithError(w, http.StatusBadRequest, "invalid format")
		return
	}

	if strings.TrimSpace(req.NewsText) == "" {
		utils.RespondWithError(w, http.StatusBadRequest, pipeline.ErrEmptyText)
		return
	}
	if len(req.StageIDs) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, pipeline.ErrNoStagesSelected)
		return
	}

	stageIDs, err := parseStageIDs(req.StageIDs)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid stage IDs")
		return
	}

	result := s.deps.Pipeline.ProcessNews(r.Context(), userID, req.NewsText, stageIDs)
	utils.RespondWithJSON(w, http.StatusOK, result)
}

// parseStageIDs accepts integers and numeric strings
func parseStageIDs(raw []json.RawMessage) ([]int64, error) {
	ids := make([]int64, 0, len(raw))
	for _, item := range raw {
		var v any
		if err := json.Unmarshal(item, &v); err != nil {
			return nil, err
		}

		switch x := v.(type) {
		case float64:
			if x != math.Trunc(x) {
				return nil, fmt.Errorf("stage ID %v is not an integer", x)
			}
			ids = append(ids, int64(x))
		case string:
			id, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("stage ID %q is not an integer", x)
			}
			ids = append(ids, id)
		default:
			return nil, fmt.Errorf("stage ID %v has unsupported type %T", v, v)
		}
	}
	return ids, nil
}

// handleStages handles GET /api/stages
func (s *Server) handleStages(w http.ResponseWriter, r *http.Request) {
	stages, err := s.deps.Pipeline.GetAvailableStages(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list stages")
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to list stages")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]any{"stages": stages})
}

func stageIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "stageID"), 10, 64)
}

func (s *Server) respondPromptError(w http.ResponseWriter, err error) {
	if errors.Is(err, prompts.ErrSystemPromptNotFound) {
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
		return
	}
	s.log.Error().Err(err).Msg("prompt operation failed")
	utils.RespondWithError(w, http.StatusInternalServerError, "prompt operation failed")
}

// handleGetPrompt handles GET /api/prompts/{stageID}
func (s *Server) handleGetPrompt(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	stageID, err := stageIDParam(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid stage ID")
		return
	}

	up, err := s.deps.Prompts.GetOrCreateUserPrompt(r.Context(), userID, stageID)
	if err != nil {
		s.respondPromptError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, up)
}

// handleUpdatePrompt handles PUT /api/prompts/{stageID}
func (s *Server) handleUpdatePrompt(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	stageID, err := stageIDParam(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid stage ID")
		return
	}

	var req UpdatePromptRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if strings.TrimSpace(req.PromptText) == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "prompt text is empty")
		return
	}

	up, err := s.deps.Prompts.UpdateUserPrompt(r.Context(), userID, stageID, req.PromptText)
	if err != nil {
		s.respondPromptError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, up)
}

// handleResetPrompt handles POST /api/prompts/{stageID}/reset
func (s *Server) handleResetPrompt(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	stageID, err := stageIDParam(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid stage ID")
		return
	}

	up, err := s.deps.Prompts.ResetUserPrompt(r.Context(), userID, stageID)
	if err != nil {
		s.respondPromptError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, up)
}

// handleInitializePrompts handles POST /api/prompts/initialize
func (s *Server) handleInitializePrompts(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	n, err := s.deps.Prompts.InitializeUserPrompts(r.Context(), userID)
	if err != nil {
		s.respondPromptError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]any{"success": true, "initialized": n})
}

// handleSearch handles GET /api/search?q=&count=&freshness=
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.deps.Searcher == nil {
		utils.RespondWithError(w, http.StatusServiceUnavailable, "search is not configured")
		return
	}

	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "query is empty")
		return
	}

	opts := defaultSearchOptions
	if raw := q.Get("count"); raw != "" {
		count, err := strconv.Atoi(raw)
		if err != nil || count <= 0 {
			utils.RespondWithError(w, http.StatusBadRequest, "invalid count")
			return
		}
		opts.Count = count
	}
	opts.Freshness = q.Get("freshness")
	opts.Country = q.Get("country")
	opts.SearchLang = q.Get("search_lang")

	resp := s.deps.Searcher.Search(r.Context(), query, opts)
	if resp == nil {
		resp = search.Failure(query, providers.FailureUnknown, "search returned no response")
	}

	status := http.StatusOK
	switch {
	case resp.Success:
	case resp.ErrorKind == providers.FailureConfig:
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusBadGateway
	}
	utils.RespondWithJSON(w, status, resp)
}
