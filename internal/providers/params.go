package providers

import (
	"encoding/json"
	"strings"
)

// Params are the optional generation options understood by the adapters.
// A nil field means "use the vendor default".
type Params struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxTokens        *int     `json:"max_tokens,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	TopK             *int     `json:"top_k,omitempty"`
	Stop             []string `json:"stop,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
}

// rawParams accepts the field spellings found in stored model defaults.
type rawParams struct {
	Params
	MaxOutputTokens *int     `json:"max_output_tokens,omitempty"`
	StopSequences   []string `json:"stop_sequences,omitempty"`
}

// ParseParams decodes stored default parameters. Empty or malformed JSON
// yields zero Params; a bad defaults blob must never break a request.
func ParseParams(raw *string) Params {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return Params{}
	}

	var rp rawParams
	if err := json.Unmarshal([]byte(*raw), &rp); err != nil {
		return Params{}
	}

	p := rp.Params
	if p.MaxTokens == nil {
		p.MaxTokens = rp.MaxOutputTokens
	}
	if len(p.Stop) == 0 {
		p.Stop = rp.StopSequences
	}
	return p
}

// Merge returns p overlaid with every field set in override.
func (p Params) Merge(override Params) Params {
	out := p
	if override.Temperature != nil {
		out.Temperature = override.Temperature
	}
	if override.MaxTokens != nil {
		out.MaxTokens = override.MaxTokens
	}
	if override.TopP != nil {
		out.TopP = override.TopP
	}
	if override.TopK != nil {
		out.TopK = override.TopK
	}
	if len(override.Stop) > 0 {
		out.Stop = override.Stop
	}
	if override.PresencePenalty != nil {
		out.PresencePenalty = override.PresencePenalty
	}
	if override.FrequencyPenalty != nil {
		out.FrequencyPenalty = override.FrequencyPenalty
	}
	return out
}

// Float64 and Int are small helpers for building Params literals.
func Float64(v float64) *float64 { return &v }

func Int(v int) *int { return &v }
