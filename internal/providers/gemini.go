package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	geminiDefaultBaseURL = "https://generativelanguage.googleapis.com"
	geminiAPIVersion     = "v1beta"
	geminiVendor         = "Google AI"
)

// GeminiProvider implements the Provider interface for the Google
// Generative Language (Gemini) API.
type GeminiProvider struct {
	httpBase
}

// NewGeminiProvider creates a new Gemini provider instance
func NewGeminiProvider(config ProviderConfig) (Provider, error) {
	base := newHTTPBase(config, string(TypeGoogle), geminiVendor, geminiDefaultBaseURL)
	base.auth = NewQueryParamAuth(config.APIKey, "key")

	return &GeminiProvider{httpBase: base}, nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	TopK            *int     `json:"topK,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

// buildGeminiRequest rewraps {role, content} into {role, parts:[{text}]}.
// assistant becomes model; system messages go to systemInstruction.
func buildGeminiRequest(messages []Message, params Params) geminiRequest {
	req := geminiRequest{Contents: make([]geminiContent, 0, len(messages))}

	var system []geminiPart
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			system = append(system, geminiPart{Text: msg.Content})
		case RoleAssistant:
			req.Contents = append(req.Contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: msg.Content}}})
		default:
			req.Contents = append(req.Contents, geminiContent{Role: string(RoleUser), Parts: []geminiPart{{Text: msg.Content}}})
		}
	}
	if len(system) > 0 {
		req.SystemInstruction = &geminiContent{Parts: system}
	}

	if params.Temperature != nil || params.MaxTokens != nil || params.TopP != nil || params.TopK != nil || len(params.Stop) > 0 {
		req.GenerationConfig = &geminiGenerationConfig{
			Temperature:     params.Temperature,
			MaxOutputTokens: params.MaxTokens,
			TopP:            params.TopP,
			TopK:            params.TopK,
			StopSequences:   params.Stop,
		}
	}
	return req
}

// SendMessage calls models/{model}:generateContent
func (p *GeminiProvider) SendMessage(ctx context.Context, model string, messages []Message, params Params) *Result {
	if ok, msg := p.ValidateConfig(); !ok {
		return failureResult(model, FailureAuth, msg)
	}

	start := time.Now()
	path := fmt.Sprintf("/%s/models/%s:generateContent", geminiAPIVersion, url.PathEscape(strings.TrimPrefix(model, "models/")))
	resp, callErr := p.do(ctx, http.MethodPost, path, nil, buildGeminiRequest(messages, params))
	if callErr != nil {
		return withLatency(failureResult(model, callErr.Kind, callErr.Message), start)
	}
	if !isSuccess(resp.StatusCode) {
		kind, msg := p.statusFailure(resp)
		return withLatency(failureResult(model, kind, msg), start)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return withLatency(failureResult(model, FailureUnknown, fmt.Sprintf("%s: unexpected error: invalid response: %v", p.vendor, err)), start)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return withLatency(failureResult(model, FailureUnknown, fmt.Sprintf("%s: unexpected error: response contains no candidates", p.vendor)), start)
	}

	usage := Usage{
		PromptTokens:     parsed.UsageMetadata.PromptTokenCount,
		CompletionTokens: parsed.UsageMetadata.CandidatesTokenCount,
		TotalTokens:      parsed.UsageMetadata.TotalTokenCount,
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}

	echoed := parsed.ModelVersion
	if echoed == "" {
		echoed = model
	}
	return withLatency(successResult(parsed.Candidates[0].Content.Parts[0].Text, echoed, usage), start)
}

// TestConnection lists models to validate the key
func (p *GeminiProvider) TestConnection(ctx context.Context) (bool, string) {
	if ok, msg := p.ValidateConfig(); !ok {
		return false, msg
	}

	resp, callErr := p.do(ctx, http.MethodGet, "/"+geminiAPIVersion+"/models", nil, nil)
	if callErr != nil {
		return false, callErr.Message
	}
	if resp.StatusCode == http.StatusBadRequest {
		detail := vendorErrorMessage(resp.Body)
		if detail == "" {
			detail = "Unknown error"
		}
		return false, fmt.Sprintf("%s: bad request: %s", p.vendor, detail)
	}
	if !isSuccess(resp.StatusCode) {
		_, msg := p.statusFailure(resp)
		return false, msg
	}

	var listing struct {
		Models []json.RawMessage `json:"models"`
	}
	_ = json.Unmarshal(resp.Body, &listing)
	return true, fmt.Sprintf("%s: connection successful, %d models available", p.vendor, len(listing.Models))
}
