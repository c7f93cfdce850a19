package providers

import (
	"fmt"
	"net/http"
)

// Authenticator applies a credential to an outgoing request.
// Vendors differ: Bearer header (OpenAI), custom header (Anthropic, Brave),
// query parameter (Gemini).
type Authenticator interface {
	ApplyToRequest(req *http.Request) error
}

// SimpleAPIKeyAuth implements header based API key authentication
type SimpleAPIKeyAuth struct {
	apiKey     string
	headerName string // e.g., "Authorization"
	prefix     string // e.g., "Bearer "
}

// NewSimpleAPIKeyAuth creates a new header authenticator. An empty header
// name defaults to Authorization with a Bearer prefix.
func NewSimpleAPIKeyAuth(apiKey, headerName, prefix string) *SimpleAPIKeyAuth {
	if headerName == "" {
		headerName = "Authorization"
		if prefix == "" {
			prefix = "Bearer "
		}
	}

	return &SimpleAPIKeyAuth{
		apiKey:     apiKey,
		headerName: headerName,
		prefix:     prefix,
	}
}

// ApplyToRequest adds the API key header
func (a *SimpleAPIKeyAuth) ApplyToRequest(req *http.Request) error {
	if a.apiKey == "" {
		return fmt.Errorf("API key is required")
	}
	req.Header.Set(a.headerName, a.prefix+a.apiKey)
	return nil
}

// QueryParamAuth passes the API key as a URL query parameter
type QueryParamAuth struct {
	apiKey string
	param  string
}

// NewQueryParamAuth creates a query parameter authenticator
func NewQueryParamAuth(apiKey, param string) *QueryParamAuth {
	if param == "" {
		param = "key"
	}
	return &QueryParamAuth{apiKey: apiKey, param: param}
}

// ApplyToRequest sets the key query parameter
func (a *QueryParamAuth) ApplyToRequest(req *http.Request) error {
	if a.apiKey == "" {
		return fmt.Errorf("API key is required")
	}
	q := req.URL.Query()
	q.Set(a.param, a.apiKey)
	req.URL.RawQuery = q.Encode()
	return nil
}
