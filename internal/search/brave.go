package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"newsdesk/internal/providers"
)

const (
	braveDefaultBaseURL = "https://api.search.brave.com/res/v1"
	braveDefaultTimeout = 10 * time.Second
	braveDefaultCount   = 10
	braveVendor         = "Brave Search"
)

// BraveProvider implements Provider for the Brave Web Search API
type BraveProvider struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	auth    providers.Authenticator
	client  *http.Client
}

// NewBraveProvider creates a new Brave search provider
func NewBraveProvider(config Config) (Provider, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		if u, ok := config.Config["base_url"].(string); ok && u != "" {
			baseURL = u
		}
	}
	if baseURL == "" {
		baseURL = braveDefaultBaseURL
	}

	timeout := providers.ConfigDuration(config.Config, "timeout", braveDefaultTimeout)

	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	return &BraveProvider{
		apiKey:  config.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		auth:    providers.NewSimpleAPIKeyAuth(config.APIKey, "X-Subscription-Token", ""),
		client:  client,
	}, nil
}

// Name returns the registry key
func (p *BraveProvider) Name() string {
	return "brave"
}

// ValidateConfig fails when no API key is configured
func (p *BraveProvider) ValidateConfig() (bool, string) {
	if strings.TrimSpace(p.apiKey) == "" {
		return false, fmt.Sprintf("%s API key is not configured", braveVendor)
	}
	return true, fmt.Sprintf("%s configuration is valid", braveVendor)
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
			Age         string `json:"age"`
		} `json:"results"`
	} `json:"web"`
}

func (p *BraveProvider) buildQuery(query string, opts Options) url.Values {
	count := opts.Count
	if count <= 0 {
		count = braveDefaultCount
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("count", strconv.Itoa(count))
	if opts.Freshness != "" {
		q.Set("freshness", opts.Freshness)
	}
	if opts.Country != "" {
		q.Set("country", opts.Country)
	}
	if opts.SearchLang != "" {
		q.Set("search_lang", opts.SearchLang)
	}
	return q
}

// Search runs GET /web/search. The transport negotiates gzip itself.
func (p *BraveProvider) Search(ctx context.Context, query string, opts Options) *Response {
	if ok, msg := p.ValidateConfig(); !ok {
		return Failure(query, providers.FailureConfig, msg)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/web/search?"+p.buildQuery(query, opts).Encode(), nil)
	if err != nil {
		return Failure(query, providers.FailureUnknown, fmt.Sprintf("%s: unexpected error: %v", braveVendor, err))
	}
	req.Header.Set("Accept", "application/json")
	if err := p.auth.ApplyToRequest(req); err != nil {
		return Failure(query, providers.FailureConfig, fmt.Sprintf("%s: %v", braveVendor, err))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		kind, msg := providers.ClassifyTransportError(braveVendor, p.baseURL, p.timeout, err)
		return Failure(query, kind, msg)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		kind, msg := providers.ClassifyTransportError(braveVendor, p.baseURL, p.timeout, err)
		return Failure(query, kind, msg)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return Failure(query, providers.FailureAuth, providers.AuthFailure(braveVendor, resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests:
		return Failure(query, providers.FailureRateLimit, providers.RateLimitFailure(braveVendor))
	case resp.StatusCode != http.StatusOK:
		return Failure(query, providers.FailureHTTP, providers.HTTPFailure(braveVendor, resp.StatusCode, providers.TruncateBody(body)))
	}

	var parsed braveResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Failure(query, providers.FailureUnknown, fmt.Sprintf("%s: unexpected error: invalid response: %v", braveVendor, err))
	}

	results := make([]Result, 0, len(parsed.Web.Results))
	for _, item := range parsed.Web.Results {
		results = append(results, Result{
			Title:       item.Title,
			URL:         item.URL,
			Description: item.Description,
			Published:   item.Age,
			Source:      extractDomain(item.URL),
		})
	}

	return &Response{
		Success: true,
		Query:   query,
		Results: results,
		Total:   len(results),
	}
}

// TestConnection runs a one result query
func (p *BraveProvider) TestConnection(ctx context.Context) (bool, string) {
	if ok, msg := p.ValidateConfig(); !ok {
		return false, msg
	}

	resp := p.Search(ctx, "test", Options{Count: 1})
	if !resp.Success {
		return false, resp.ErrorText()
	}
	return true, fmt.Sprintf("%s: connection successful, %d results found", braveVendor, resp.Total)
}

// extractDomain returns the host of rawURL, or rawURL itself when it
// cannot be parsed.
func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Host
}
