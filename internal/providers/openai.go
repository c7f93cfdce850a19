package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	openAIDefaultBaseURL = "https://api.openai.com/v1"
	openAIVendor         = "OpenAI"
)

// OpenAIProvider implements the Provider interface for OpenAI compatible
// chat completion APIs.
type OpenAIProvider struct {
	httpBase
}

// NewOpenAIProvider creates a new OpenAI provider instance. A missing key is
// not an error here; ValidateConfig reports it.
func NewOpenAIProvider(config ProviderConfig) (Provider, error) {
	base := newHTTPBase(config, string(TypeOpenAI), openAIVendor, openAIDefaultBaseURL)
	base.auth = NewSimpleAPIKeyAuth(config.APIKey, "Authorization", "Bearer ")
	if org := configString(config.Config, "organization", ""); org != "" {
		base.headers["OpenAI-Organization"] = org
	}

	return &OpenAIProvider{httpBase: base}, nil
}

type openAIChatRequest struct {
	Model            string    `json:"model"`
	Messages         []Message `json:"messages"`
	Temperature      *float64  `json:"temperature,omitempty"`
	MaxTokens        *int      `json:"max_tokens,omitempty"`
	TopP             *float64  `json:"top_p,omitempty"`
	Stop             []string  `json:"stop,omitempty"`
	PresencePenalty  *float64  `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64  `json:"frequency_penalty,omitempty"`
}

type openAIChatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// buildOpenAIRequest passes messages through unchanged. top_k has no
// OpenAI equivalent and is dropped.
func buildOpenAIRequest(model string, messages []Message, params Params) openAIChatRequest {
	return openAIChatRequest{
		Model:            model,
		Messages:         messages,
		Temperature:      params.Temperature,
		MaxTokens:        params.MaxTokens,
		TopP:             params.TopP,
		Stop:             params.Stop,
		PresencePenalty:  params.PresencePenalty,
		FrequencyPenalty: params.FrequencyPenalty,
	}
}

// SendMessage sends a chat completion request to OpenAI
func (p *OpenAIProvider) SendMessage(ctx context.Context, model string, messages []Message, params Params) *Result {
	if ok, msg := p.ValidateConfig(); !ok {
		return failureResult(model, FailureAuth, msg)
	}

	start := time.Now()
	resp, callErr := p.do(ctx, http.MethodPost, "/chat/completions", nil, buildOpenAIRequest(model, messages, params))
	if callErr != nil {
		return withLatency(failureResult(model, callErr.Kind, callErr.Message), start)
	}
	if !isSuccess(resp.StatusCode) {
		kind, msg := p.statusFailure(resp)
		return withLatency(failureResult(model, kind, msg), start)
	}

	var parsed openAIChatResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return withLatency(failureResult(model, FailureUnknown, fmt.Sprintf("%s: unexpected error: invalid response: %v", p.vendor, err)), start)
	}
	if len(parsed.Choices) == 0 {
		return withLatency(failureResult(model, FailureUnknown, fmt.Sprintf("%s: unexpected error: response contains no choices", p.vendor)), start)
	}

	echoed := parsed.Model
	if echoed == "" {
		echoed = model
	}
	usage := Usage{
		PromptTokens:     parsed.Usage.PromptTokens,
		CompletionTokens: parsed.Usage.CompletionTokens,
		TotalTokens:      parsed.Usage.TotalTokens,
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}

	return withLatency(successResult(parsed.Choices[0].Message.Content, echoed, usage), start)
}

// TestConnection lists the available models to validate the key
func (p *OpenAIProvider) TestConnection(ctx context.Context) (bool, string) {
	if ok, msg := p.ValidateConfig(); !ok {
		return false, msg
	}

	resp, callErr := p.do(ctx, http.MethodGet, "/models", nil, nil)
	if callErr != nil {
		return false, callErr.Message
	}
	if !isSuccess(resp.StatusCode) {
		_, msg := p.statusFailure(resp)
		return false, msg
	}

	var listing struct {
		Data []json.RawMessage `json:"data"`
	}
	_ = json.Unmarshal(resp.Body, &listing)
	return true, fmt.Sprintf("%s: connection successful, %d models available", p.vendor, len(listing.Data))
}

func withLatency(r *Result, start time.Time) *Result {
	r.Latency = time.Since(start)
	return r
}
