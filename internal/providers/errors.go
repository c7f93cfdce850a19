package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
	"time"
)

// ErrUnknownProvider is returned by the factory for unregistered names.
var ErrUnknownProvider = errors.New("unknown provider")

// FailureKind classifies why a vendor call failed.
type FailureKind string

const (
	FailureConfig     FailureKind = "config"
	FailureAuth       FailureKind = "auth"
	FailureRateLimit  FailureKind = "rate_limit"
	FailureHTTP       FailureKind = "http"
	FailureTimeout    FailureKind = "timeout"
	FailureConnection FailureKind = "connection"
	FailureUnknown    FailureKind = "unknown"
)

// maxErrorBody bounds how much of a vendor error body ends up in messages.
const maxErrorBody = 200

// TruncateBody shortens a vendor response body for error messages.
func TruncateBody(body []byte) string {
	s := string(body)
	if len(s) > maxErrorBody {
		return s[:maxErrorBody]
	}
	if s == "" {
		return "Unknown error"
	}
	return s
}

// AuthFailure renders an authentication failure.
func AuthFailure(vendor string, status int) string {
	return fmt.Sprintf("%s: invalid API key (HTTP %d)", vendor, status)
}

// RateLimitFailure renders a rate-limit failure.
func RateLimitFailure(vendor string) string {
	return fmt.Sprintf("%s: rate limit exceeded (HTTP 429)", vendor)
}

// HTTPFailure renders any other non-2xx response. detail is the vendor
// message when one could be parsed, otherwise the truncated body.
func HTTPFailure(vendor string, status int, detail string) string {
	return fmt.Sprintf("%s API error %d: %s", vendor, status, detail)
}

// ClassifyTransportError maps an error returned by http.Client.Do into the
// timeout / connection / unknown buckets and renders its message.
// The request URL is never included since it may carry a credential.
func ClassifyTransportError(vendor, baseURL string, timeout time.Duration, err error) (FailureKind, string) {
	if isTimeout(err) {
		return FailureTimeout, fmt.Sprintf("%s: request timed out after %s", vendor, timeout)
	}
	if isConnectionError(err) {
		return FailureConnection, fmt.Sprintf("%s: failed to connect to %s", vendor, baseURL)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	return FailureUnknown, fmt.Sprintf("%s: unexpected error: %v", vendor, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isConnectionError(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}
