package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsdesk/internal/providers"
)

const braveBody = `{
	"type": "search",
	"web": {"results": [
		{"title": "Rates cut", "url": "https://news.example.com/economy/rates?id=1", "description": "Central bank cuts rates", "age": "2 days ago"},
		{"title": "Markets", "url": "https://markets.example.org/today", "description": "Stocks rally"}
	]}
}`

func newBraveServer(t *testing.T, status int, body string) (*httptest.Server, *http.Request, *int32) {
	t.Helper()

	var seen http.Request
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		seen = *r.Clone(r.Context())
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &seen, &calls
}

func TestBraveSearch(t *testing.T) {
	srv, seen, _ := newBraveServer(t, http.StatusOK, braveBody)

	p, err := NewBraveProvider(Config{APIKey: "brave-key", BaseURL: srv.URL})
	require.NoError(t, err)

	resp := p.Search(context.Background(), "rate cut", Options{Freshness: "pw", Country: "us", SearchLang: "en"})
	require.True(t, resp.Success, resp.ErrorText())
	assert.Equal(t, "rate cut", resp.Query)
	assert.Equal(t, 2, resp.Total)
	assert.Nil(t, resp.Error)

	assert.Equal(t, Result{
		Title:       "Rates cut",
		URL:         "https://news.example.com/economy/rates?id=1",
		Description: "Central bank cuts rates",
		Published:   "2 days ago",
		Source:      "news.example.com",
	}, resp.Results[0])
	assert.Equal(t, "", resp.Results[1].Published)
	assert.Equal(t, "markets.example.org", resp.Results[1].Source)

	assert.Equal(t, "/web/search", seen.URL.Path)
	assert.Equal(t, "brave-key", seen.Header.Get("X-Subscription-Token"))
	assert.Equal(t, "application/json", seen.Header.Get("Accept"))
	assert.Contains(t, seen.Header.Get("Accept-Encoding"), "gzip")

	q := seen.URL.Query()
	assert.Equal(t, url.Values{
		"q":           {"rate cut"},
		"count":       {"10"},
		"freshness":   {"pw"},
		"country":     {"us"},
		"search_lang": {"en"},
	}, q)
}

func TestBraveSearchFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind providers.FailureKind
		wantErr  string
	}{
		{"unauthorized", 401, `{}`, providers.FailureAuth, "Brave Search: invalid API key (HTTP 401)"},
		{"rate limited", 429, `{}`, providers.FailureRateLimit, "Brave Search: rate limit exceeded (HTTP 429)"},
		{"server error", 500, strings.Repeat("e", 300), providers.FailureHTTP, "Brave Search API error 500: " + strings.Repeat("e", 200)},
		{"empty body", 503, "", providers.FailureHTTP, "Brave Search API error 503: Unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, _ := newBraveServer(t, tt.status, tt.body)
			p, _ := NewBraveProvider(Config{APIKey: "k", BaseURL: srv.URL})

			resp := p.Search(context.Background(), "q", Options{})
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantKind, resp.ErrorKind)
			assert.Equal(t, tt.wantErr, resp.ErrorText())
			assert.Empty(t, resp.Results)
			assert.Zero(t, resp.Total)
		})
	}
}

func TestBraveConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	p, _ := NewBraveProvider(Config{APIKey: "k", BaseURL: base})
	resp := p.Search(context.Background(), "q", Options{})
	assert.Equal(t, providers.FailureConnection, resp.ErrorKind)
	assert.Equal(t, "Brave Search: failed to connect to "+base, resp.ErrorText())
}

func TestBraveTestConnection(t *testing.T) {
	srv, seen, _ := newBraveServer(t, http.StatusOK, braveBody)
	p, _ := NewBraveProvider(Config{APIKey: "k", BaseURL: srv.URL})

	ok, msg := p.TestConnection(context.Background())
	assert.True(t, ok)
	assert.Contains(t, msg, "2 results")
	assert.Equal(t, "test", seen.URL.Query().Get("q"))
	assert.Equal(t, "1", seen.URL.Query().Get("count"))
}

func TestExtractDomain(t *testing.T) {
	assert.Equal(t, "www.example.com:8080", extractDomain("https://www.example.com:8080/a/b"))
	assert.Equal(t, "", extractDomain("not a url"))
	assert.Equal(t, "%zz", extractDomain("%zz"))
}
