package search

import (
	"context"
	"errors"
	"net/http"

	"newsdesk/internal/providers"
)

// ErrUnknownProvider is returned by the factory for unregistered names.
var ErrUnknownProvider = errors.New("unknown search provider")

// Options are the optional search parameters. Zero values are omitted.
type Options struct {
	Count      int    `json:"count,omitempty"`
	Freshness  string `json:"freshness,omitempty"` // pd, pw, pm, py
	Country    string `json:"country,omitempty"`
	SearchLang string `json:"search_lang,omitempty"`
}

// Result is a single normalized search hit.
type Result struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Published   string `json:"published"`
	Source      string `json:"source"`
}

// Response is the vendor-agnostic search outcome. Failures are data.
type Response struct {
	Success   bool                  `json:"success"`
	Query     string                `json:"query"`
	Results   []Result              `json:"results"`
	Total     int                   `json:"total"`
	Error     *string               `json:"error"`
	ErrorKind providers.FailureKind `json:"error_kind,omitempty"`
}

// ErrorText returns the error message or an empty string.
func (r *Response) ErrorText() string {
	if r == nil || r.Error == nil {
		return ""
	}
	return *r.Error
}

// Failure builds a shaped failed response.
func Failure(query string, kind providers.FailureKind, message string) *Response {
	return &Response{
		Success:   false,
		Query:     query,
		Results:   []Result{},
		Total:     0,
		Error:     &message,
		ErrorKind: kind,
	}
}

// Provider is implemented by each web search vendor.
type Provider interface {
	Name() string
	ValidateConfig() (bool, string)
	Search(ctx context.Context, query string, opts Options) *Response
	TestConnection(ctx context.Context) (bool, string)
}

// Config holds configuration for creating a search provider instance
type Config struct {
	Name    string
	APIKey  string
	BaseURL string
	Config  map[string]any

	HTTPClient *http.Client
}

// SearchNews resolves the provider and runs one query. A missing key or an
// unknown provider yields a failed response instead of an error.
func SearchNews(ctx context.Context, factory *Factory, providerName, apiKey, query string, opts Options) *Response {
	p, err := factory.open(providerName, apiKey)
	if err != nil {
		return Failure(query, providers.FailureConfig, err.Error())
	}
	return p.Search(ctx, query, opts)
}
