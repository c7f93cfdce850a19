package search

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsdesk/internal/providers"
)

func braveFactory(url string, opts ...FactoryOption) *Factory {
	opts = append(opts, WithCreator("brave", func(c Config) (Provider, error) {
		c.BaseURL = url
		return NewBraveProvider(c)
	}))
	return NewFactory(opts...)
}

func TestClientSearch(t *testing.T) {
	srv, seen, calls := newBraveServer(t, http.StatusOK, braveBody)
	client := NewClient(braveFactory(srv.URL), "brave", "k")

	require.True(t, client.Configured())
	resp := client.Search(context.Background(), "election", Options{Count: 4})
	require.True(t, resp.Success, resp.ErrorText())
	assert.Equal(t, "4", seen.URL.Query().Get("count"))
	assert.Equal(t, "k", seen.Header.Get("X-Subscription-Token"))
	assert.EqualValues(t, 1, *calls)
}

func TestClientNotConfigured(t *testing.T) {
	srv, _, calls := newBraveServer(t, http.StatusOK, braveBody)

	t.Run("missing key", func(t *testing.T) {
		client := NewClient(braveFactory(srv.URL), "brave", "  ")
		assert.False(t, client.Configured())

		resp := client.Search(context.Background(), "q", Options{})
		assert.False(t, resp.Success)
		assert.Equal(t, providers.FailureConfig, resp.ErrorKind)
		assert.Equal(t, "API key for provider brave is not configured", resp.ErrorText())

		ok, msg := client.TestConnection(context.Background())
		assert.False(t, ok)
		assert.Equal(t, "API key for provider brave is not configured", msg)
	})

	t.Run("unknown provider", func(t *testing.T) {
		client := NewClient(braveFactory(srv.URL), "bing", "k")

		resp := client.Search(context.Background(), "q", Options{})
		assert.Equal(t, providers.FailureConfig, resp.ErrorKind)
		assert.Equal(t, "unknown search provider: bing", resp.ErrorText())

		ok, _ := client.TestConnection(context.Background())
		assert.False(t, ok)
	})

	assert.Zero(t, *calls)
}

func TestClientTestConnection(t *testing.T) {
	srv, seen, _ := newBraveServer(t, http.StatusOK, braveBody)
	client := NewClient(braveFactory(srv.URL), "brave", "k")

	ok, msg := client.TestConnection(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "Brave Search: connection successful, 2 results found", msg)
	assert.Equal(t, "test", seen.URL.Query().Get("q"))

	bad, _, _ := newBraveServer(t, http.StatusUnauthorized, `{}`)
	ok, msg = NewClient(braveFactory(bad.URL), "brave", "k").TestConnection(context.Background())
	assert.False(t, ok)
	assert.Contains(t, msg, "401")
}

func TestClientBehindCache(t *testing.T) {
	srv, _, calls := newBraveServer(t, http.StatusOK, braveBody)
	cached := NewCachedProvider(NewClient(braveFactory(srv.URL), "brave", "k"), 8, time.Minute)

	cached.Search(context.Background(), "a", Options{})
	cached.Search(context.Background(), "a", Options{})
	assert.EqualValues(t, 1, *calls)
}

func TestFactoryDefaultTimeout(t *testing.T) {
	f := NewFactory(WithDefaultTimeout(3 * time.Second))

	p, err := f.CreateProvider("brave", "k", nil)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, p.(*BraveProvider).timeout)

	p, err = f.CreateProvider("brave", "k", map[string]any{"timeout": 7})
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, p.(*BraveProvider).timeout)
}
