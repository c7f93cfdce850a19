package search

import (
	"context"
	"strings"
)

// Client searches through one named provider of a factory. The provider
// is resolved on every call, so a missing key or an unknown name shows up
// as a failed response rather than a startup error.
type Client struct {
	factory  *Factory
	provider string
	apiKey   string
}

// NewClient creates a client for providerName
func NewClient(factory *Factory, providerName, apiKey string) *Client {
	return &Client{
		factory:  factory,
		provider: providerName,
		apiKey:   apiKey,
	}
}

// Configured reports whether an API key is set
func (c *Client) Configured() bool {
	return strings.TrimSpace(c.apiKey) != ""
}

// Search runs one query through SearchNews
func (c *Client) Search(ctx context.Context, query string, opts Options) *Response {
	return SearchNews(ctx, c.factory, c.provider, c.apiKey, query, opts)
}

// TestConnection validates the configuration and runs a one result query
func (c *Client) TestConnection(ctx context.Context) (bool, string) {
	p, err := c.factory.open(c.provider, c.apiKey)
	if err != nil {
		return false, err.Error()
	}
	return p.TestConnection(ctx)
}
