package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds a single vendor call unless configured otherwise.
const DefaultTimeout = 30 * time.Second

// httpBase carries the plumbing shared by every HTTP based adapter.
type httpBase struct {
	name    string // registry key
	vendor  string // human readable name used in messages
	apiKey  string
	baseURL string
	timeout time.Duration
	auth    Authenticator
	client  *http.Client
	headers map[string]string
}

func newHTTPBase(config ProviderConfig, name, vendor, defaultBaseURL string) httpBase {
	baseURL := config.BaseURL
	if baseURL == "" {
		if u, ok := config.Config["base_url"].(string); ok && u != "" {
			baseURL = u
		}
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := ConfigDuration(config.Config, "timeout", DefaultTimeout)

	client := config.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	if config.Name != "" {
		name = config.Name
	}

	return httpBase{
		name:    name,
		vendor:  vendor,
		apiKey:  config.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		client:  client,
		headers: map[string]string{},
	}
}

// Name returns the registry key of the provider
func (b *httpBase) Name() string {
	return b.name
}

// BaseURL returns the effective API base URL
func (b *httpBase) BaseURL() string {
	return b.baseURL
}

// ValidateConfig fails when no credential is configured
func (b *httpBase) ValidateConfig() (bool, string) {
	if strings.TrimSpace(b.apiKey) == "" {
		return false, fmt.Sprintf("%s API key is not configured", b.vendor)
	}
	return true, fmt.Sprintf("%s configuration is valid", b.vendor)
}

// rawResponse is a fully read vendor response.
type rawResponse struct {
	StatusCode int
	Body       []byte
}

// callError is a transport level failure already classified and rendered.
type callError struct {
	Kind    FailureKind
	Message string
}

// do issues one request with auth and vendor headers applied. payload is
// JSON encoded when non-nil. The response body is always fully read.
func (b *httpBase) do(ctx context.Context, method, path string, query url.Values, payload any) (*rawResponse, *callError) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, &callError{Kind: FailureUnknown, Message: fmt.Sprintf("%s: unexpected error: failed to marshal request: %v", b.vendor, err)}
		}
		body = bytes.NewReader(encoded)
	}

	endpoint := b.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, &callError{Kind: FailureUnknown, Message: fmt.Sprintf("%s: unexpected error: failed to create request: %v", b.vendor, unwrapURLError(err))}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range b.headers {
		req.Header.Set(k, v)
	}

	if b.auth != nil {
		if err := b.auth.ApplyToRequest(req); err != nil {
			return nil, &callError{Kind: FailureConfig, Message: fmt.Sprintf("%s: %v", b.vendor, err)}
		}
	}

	resp, err := b.client.Do(req)
	if err != nil {
		kind, msg := ClassifyTransportError(b.vendor, b.baseURL, b.timeout, err)
		return nil, &callError{Kind: kind, Message: msg}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		kind, msg := ClassifyTransportError(b.vendor, b.baseURL, b.timeout, err)
		return nil, &callError{Kind: kind, Message: msg}
	}

	return &rawResponse{StatusCode: resp.StatusCode, Body: respBody}, nil
}

// statusFailure maps a non-2xx response to a failure kind and message.
func (b *httpBase) statusFailure(resp *rawResponse) (FailureKind, string) {
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return FailureAuth, AuthFailure(b.vendor, resp.StatusCode)
	case http.StatusTooManyRequests:
		return FailureRateLimit, RateLimitFailure(b.vendor)
	}

	detail := vendorErrorMessage(resp.Body)
	if detail == "" {
		detail = TruncateBody(resp.Body)
	}
	return FailureHTTP, HTTPFailure(b.vendor, resp.StatusCode, detail)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// vendorErrorMessage extracts the nested {"error":{"message":...}} detail
// used by OpenAI, Gemini and Anthropic alike.
func vendorErrorMessage(body []byte) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Error) == 0 {
		return ""
	}

	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(envelope.Error, &nested); err == nil && nested.Message != "" {
		return nested.Message
	}

	var flat string
	if err := json.Unmarshal(envelope.Error, &flat); err == nil {
		return flat
	}
	return ""
}

func unwrapURLError(err error) error {
	if urlErr, ok := err.(*url.Error); ok {
		return urlErr.Err
	}
	return err
}

// ConfigDuration reads a duration from extra configuration. Numbers are
// seconds; strings may be either a number of seconds or a Go duration.
func ConfigDuration(config map[string]any, key string, fallback time.Duration) time.Duration {
	raw, ok := config[key]
	if !ok || raw == nil {
		return fallback
	}

	switch v := raw.(type) {
	case float64:
		if v > 0 {
			return time.Duration(v * float64(time.Second))
		}
	case int:
		if v > 0 {
			return time.Duration(v) * time.Second
		}
	case int64:
		if v > 0 {
			return time.Duration(v) * time.Second
		}
	case time.Duration:
		if v > 0 {
			return v
		}
	case string:
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

// configString reads a non-empty string from extra configuration.
func configString(config map[string]any, key, fallback string) string {
	if v, ok := config[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
