package storage

import "errors"

var (
	// ErrProviderNotFound is returned when a provider is not found
	ErrProviderNotFound = errors.New("provider not found")

	// ErrModelNotFound is returned when a model is not found
	ErrModelNotFound = errors.New("model not found")

	// ErrStageNotFound is returned when a stage is not found
	ErrStageNotFound = errors.New("stage not found")

	// ErrAssignmentNotFound is returned when no active stage assignment exists
	ErrAssignmentNotFound = errors.New("stage assignment not found")

	// ErrSystemPromptNotFound is returned when a stage has no system prompt
	ErrSystemPromptNotFound = errors.New("system prompt not found")

	// ErrUserPromptNotFound is returned when a user has no prompt for a stage
	ErrUserPromptNotFound = errors.New("user prompt not found")

	// ErrInvalidFallback is returned when a fallback model equals the primary
	ErrInvalidFallback = errors.New("fallback model must differ from primary model")
)
