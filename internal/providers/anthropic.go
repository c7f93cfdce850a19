package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	anthropicDefaultBaseURL   = "https://api.anthropic.com"
	anthropicDefaultVersion   = "2023-06-01"
	anthropicDefaultMaxTokens = 4096
	anthropicProbeModel       = "claude-3-5-haiku-20241022"
	anthropicVendor           = "Anthropic"
)

// AnthropicProvider implements the Provider interface for the Claude
// Messages API.
type AnthropicProvider struct {
	httpBase
}

// NewAnthropicProvider creates a new Anthropic provider instance
func NewAnthropicProvider(config ProviderConfig) (Provider, error) {
	base := newHTTPBase(config, string(TypeAnthropic), anthropicVendor, anthropicDefaultBaseURL)
	base.auth = NewSimpleAPIKeyAuth(config.APIKey, "x-api-key", "")
	base.headers["anthropic-version"] = configString(config.Config, "anthropic_version", anthropicDefaultVersion)

	return &AnthropicProvider{httpBase: base}, nil
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model         string             `json:"model"`
	MaxTokens     int                `json:"max_tokens"`
	System        string             `json:"system,omitempty"`
	Messages      []anthropicMessage `json:"messages"`
	Temperature   *float64           `json:"temperature,omitempty"`
	TopP          *float64           `json:"top_p,omitempty"`
	TopK          *int               `json:"top_k,omitempty"`
	StopSequences []string           `json:"stop_sequences,omitempty"`
}

type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// buildAnthropicRequest lifts system messages into the top level system
// field; they never appear inside the messages array.
func buildAnthropicRequest(model string, messages []Message, params Params) anthropicRequest {
	req := anthropicRequest{
		Model:         model,
		MaxTokens:     anthropicDefaultMaxTokens,
		Messages:      make([]anthropicMessage, 0, len(messages)),
		Temperature:   params.Temperature,
		TopP:          params.TopP,
		TopK:          params.TopK,
		StopSequences: params.Stop,
	}
	if params.MaxTokens != nil && *params.MaxTokens > 0 {
		req.MaxTokens = *params.MaxTokens
	}

	var system []string
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		req.Messages = append(req.Messages, anthropicMessage{Role: string(msg.Role), Content: msg.Content})
	}
	req.System = strings.Join(system, "\n\n")
	return req
}

// SendMessage posts to /v1/messages
func (p *AnthropicProvider) SendMessage(ctx context.Context, model string, messages []Message, params Params) *Result {
	if ok, msg := p.ValidateConfig(); !ok {
		return failureResult(model, FailureAuth, msg)
	}

	start := time.Now()
	resp, callErr := p.do(ctx, http.MethodPost, "/v1/messages", nil, buildAnthropicRequest(model, messages, params))
	if callErr != nil {
		return withLatency(failureResult(model, callErr.Kind, callErr.Message), start)
	}
	if !isSuccess(resp.StatusCode) {
		kind, msg := p.statusFailure(resp)
		return withLatency(failureResult(model, kind, msg), start)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return withLatency(failureResult(model, FailureUnknown, fmt.Sprintf("%s: unexpected error: invalid response: %v", p.vendor, err)), start)
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" || block.Type == "" {
			text.WriteString(block.Text)
		}
	}
	if len(parsed.Content) == 0 {
		return withLatency(failureResult(model, FailureUnknown, fmt.Sprintf("%s: unexpected error: response contains no content", p.vendor)), start)
	}

	echoed := parsed.Model
	if echoed == "" {
		echoed = model
	}
	usage := Usage{
		PromptTokens:     parsed.Usage.InputTokens,
		CompletionTokens: parsed.Usage.OutputTokens,
		TotalTokens:      parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
	}
	return withLatency(successResult(text.String(), echoed, usage), start)
}

// TestConnection sends a minimal message since the API has no cheap listing
// endpoint. A 400 unrelated to authentication still proves the key works.
func (p *AnthropicProvider) TestConnection(ctx context.Context) (bool, string) {
	if ok, msg := p.ValidateConfig(); !ok {
		return false, msg
	}

	probe := anthropicRequest{
		Model:     anthropicProbeModel,
		MaxTokens: 10,
		Messages:  []anthropicMessage{{Role: string(RoleUser), Content: "Hi"}},
	}
	resp, callErr := p.do(ctx, http.MethodPost, "/v1/messages", nil, probe)
	if callErr != nil {
		return false, callErr.Message
	}

	if resp.StatusCode == http.StatusBadRequest {
		detail := vendorErrorMessage(resp.Body)
		if detail == "" {
			detail = "Unknown error"
		}
		if !strings.Contains(strings.ToLower(detail), "authentication") {
			return true, fmt.Sprintf("%s: API key is valid (probe model unavailable)", p.vendor)
		}
		return false, fmt.Sprintf("%s: %s", p.vendor, detail)
	}
	if !isSuccess(resp.StatusCode) {
		_, msg := p.statusFailure(resp)
		return false, msg
	}
	return true, fmt.Sprintf("%s: connection successful, API key is valid", p.vendor)
}
