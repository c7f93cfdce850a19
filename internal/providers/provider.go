package providers

import (
	"context"
	"net/http"
	"time"
)

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a normalized chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Usage is the normalized token accounting of a call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Result is the vendor-agnostic outcome of a SendMessage call.
// Failures are reported through Success/Error, never as Go errors.
type Result struct {
	Success   bool        `json:"success"`
	Content   *string     `json:"content"`
	Model     string      `json:"model"`
	Usage     Usage       `json:"usage"`
	Error     *string     `json:"error"`
	ErrorKind FailureKind `json:"error_kind,omitempty"`

	// Set by the router when the fallback model produced the content.
	FallbackUsed  bool    `json:"fallback_used,omitempty"`
	OriginalError *string `json:"original_error,omitempty"`
	// Set by the router when the fallback model failed as well.
	FallbackError *string `json:"fallback_error,omitempty"`

	Latency time.Duration `json:"-"`
}

// Text returns the content or an empty string.
func (r *Result) Text() string {
	if r == nil || r.Content == nil {
		return ""
	}
	return *r.Content
}

// ErrorText returns the error message or an empty string.
func (r *Result) ErrorText() string {
	if r == nil || r.Error == nil {
		return ""
	}
	return *r.Error
}

func successResult(content, model string, usage Usage) *Result {
	return &Result{
		Success: true,
		Content: &content,
		Model:   model,
		Usage:   usage,
	}
}

func failureResult(model string, kind FailureKind, message string) *Result {
	return &Result{
		Success:   false,
		Model:     model,
		Error:     &message,
		ErrorKind: kind,
	}
}

// Provider is implemented by each concrete AI vendor adapter (OpenAI, Gemini, Anthropic, ...).
type Provider interface {
	// Name returns the registry key of this provider (openai, google, anthropic)
	Name() string

	// BaseURL returns the effective API base URL
	BaseURL() string

	// ValidateConfig checks the local configuration without any network call
	ValidateConfig() (bool, string)

	// SendMessage performs one chat request and normalizes the vendor response
	SendMessage(ctx context.Context, model string, messages []Message, params Params) *Result

	// TestConnection performs a cheap authenticated call to verify the credential
	TestConnection(ctx context.Context) (bool, string)
}

// ProviderConfig holds configuration for creating a provider instance
type ProviderConfig struct {
	Name    string
	APIKey  string
	BaseURL string         // empty means the vendor default
	Config  map[string]any // additional configuration (timeout, anthropic_version, ...)

	// HTTPClient overrides the default client; mostly useful in tests.
	HTTPClient *http.Client
}
