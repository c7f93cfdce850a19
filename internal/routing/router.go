package routing

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"newsdesk/internal/logging"
	"newsdesk/internal/models"
	"newsdesk/internal/providers"
	"newsdesk/internal/storage"
	"newsdesk/internal/usage"
)

// Store is the configuration lookup the router needs.
type Store interface {
	GetModel(ctx context.Context, id int64) (*models.Model, error)
	GetProvider(ctx context.Context, id int64) (*models.Provider, error)
	GetActiveAssignmentForModel(ctx context.Context, modelID int64) (*models.StageAssignment, error)
}

// AdapterFactory materializes a provider adapter from its stored record.
type AdapterFactory interface {
	CreateFromStored(p *models.Provider) (providers.Provider, error)
}

// attempt is the position of a call in the fallback chain. Only the
// primary attempt may fall back, which caps the chain at one hop.
type attempt int

const (
	attemptPrimary attempt = iota
	attemptFallback
)

func (a attempt) String() string {
	if a == attemptPrimary {
		return "primary"
	}
	return "fallback"
}

// Router sends a chat request to the provider of a model and retries once
// on the fallback model of the model's active stage assignment.
type Router struct {
	store   Store
	factory AdapterFactory
	usage   usage.Tracker
	log     zerolog.Logger
}

// Option customizes a Router
type Option func(*Router)

// WithUsageTracker records token usage of every vendor call
func WithUsageTracker(t usage.Tracker) Option {
	return func(r *Router) {
		r.usage = t
	}
}

// NewRouter creates a new router
func NewRouter(store Store, factory AdapterFactory, opts ...Option) *Router {
	r := &Router{
		store:   store,
		factory: factory,
		usage:   usage.NewNoopTracker(),
		log:     logging.With("router"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SendRequest resolves modelID, merges its default params with params
// (params win) and calls its provider. When the call fails and
// useFallback is set, the fallback model is tried exactly once.
//
// Configuration problems (unknown or inactive model/provider) fail fast
// without any vendor call and without fallback.
func (r *Router) SendRequest(ctx context.Context, modelID int64, messages []providers.Message, params providers.Params, useFallback bool) *providers.Result {
	start := attemptFallback
	if useFallback {
		start = attemptPrimary
	}
	return r.send(ctx, modelID, messages, params, start)
}

func (r *Router) send(ctx context.Context, modelID int64, messages []providers.Message, params providers.Params, hop attempt) *providers.Result {
	res, retryable := r.call(ctx, modelID, messages, params)
	if res.Success || !retryable || hop != attemptPrimary {
		return res
	}

	fallbackID, ok := r.fallbackFor(ctx, modelID)
	if !ok {
		return res
	}

	r.log.Warn().
		Int64("model_id", modelID).
		Int64("fallback_model_id", fallbackID).
		Str("error", res.ErrorText()).
		Msg("primary model failed, trying fallback")

	fb := r.send(ctx, fallbackID, messages, params, attemptFallback)
	if fb.Success {
		fb.FallbackUsed = true
		fb.OriginalError = res.Error
		return fb
	}

	r.log.Error().
		Int64("model_id", modelID).
		Int64("fallback_model_id", fallbackID).
		Str("error", fb.ErrorText()).
		Msg("fallback model failed")
	res.FallbackError = fb.Error
	return res
}

// call performs a single attempt. retryable is false for configuration
// errors detected before any vendor call.
func (r *Router) call(ctx context.Context, modelID int64, messages []providers.Message, params providers.Params) (*providers.Result, bool) {
	model, err := r.store.GetModel(ctx, modelID)
	if err != nil {
		if errors.Is(err, storage.ErrModelNotFound) {
			return configFailure(fmt.Sprintf("model %d not found", modelID)), false
		}
		return configFailure(fmt.Sprintf("failed to load model %d: %v", modelID, err)), false
	}
	if !model.IsActive {
		return configFailure(fmt.Sprintf("model %s is inactive", model.Label())), false
	}

	provider, err := r.store.GetProvider(ctx, model.ProviderID)
	if err != nil {
		if errors.Is(err, storage.ErrProviderNotFound) {
			return configFailure(fmt.Sprintf("provider %d of model %s not found", model.ProviderID, model.Label())), false
		}
		return configFailure(fmt.Sprintf("failed to load provider of model %s: %v", model.Label(), err)), false
	}
	if !provider.IsActive {
		return configFailure(fmt.Sprintf("provider %s is inactive", provider.DisplayName)), false
	}

	adapter, err := r.factory.CreateFromStored(provider)
	if err != nil {
		res := configFailure(fmt.Sprintf("failed to create provider %s: %v", provider.Name, err))
		res.Model = model.APIIdentifier
		return res, true
	}

	merged := providers.ParseParams(model.DefaultParams).Merge(params)
	res := adapter.SendMessage(ctx, model.APIIdentifier, messages, merged)
	if res == nil {
		res = &providers.Result{Model: model.APIIdentifier}
		msg := fmt.Sprintf("%s: unexpected error: empty result", provider.Name)
		res.Error = &msg
		res.ErrorKind = providers.FailureUnknown
	}

	r.record(ctx, model.ID, res)

	r.log.Debug().
		Int64("model_id", model.ID).
		Str("provider", provider.Name).
		Bool("success", res.Success).
		Dur("latency", res.Latency).
		Int("total_tokens", res.Usage.TotalTokens).
		Msg("vendor call finished")

	return res, true
}

func (r *Router) fallbackFor(ctx context.Context, modelID int64) (int64, bool) {
	assignment, err := r.store.GetActiveAssignmentForModel(ctx, modelID)
	if err != nil {
		if !errors.Is(err, storage.ErrAssignmentNotFound) {
			r.log.Error().Err(err).Int64("model_id", modelID).Msg("failed to look up fallback model")
		}
		return 0, false
	}
	if !assignment.HasFallback() {
		return 0, false
	}
	return *assignment.FallbackModelID, true
}

func (r *Router) record(ctx context.Context, modelID int64, res *providers.Result) {
	err := r.usage.Record(ctx, usage.Record{
		ModelID:          modelID,
		PromptTokens:     res.Usage.PromptTokens,
		CompletionTokens: res.Usage.CompletionTokens,
		Success:          res.Success,
	})
	if err != nil {
		r.log.Warn().Err(err).Int64("model_id", modelID).Msg("usage accounting failed")
	}
}

func configFailure(message string) *providers.Result {
	return &providers.Result{
		Success:   false,
		Error:     &message,
		ErrorKind: providers.FailureConfig,
	}
}
