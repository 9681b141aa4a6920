// Package cors obtains the CORS headers attached to every response from an
// external service, falling back to a fixed set whenever that service is
// unavailable.
package cors

import (
	"context"
	"errors"
	"maps"

	"github.com/patric-chuzhbe/userpurge/internal/logger"
)

// HeaderProvider returns the CORS headers to attach to a response.
type HeaderProvider interface {
	Headers(ctx context.Context) (map[string]string, error)
}

// HeaderProviderFunc adapts a function to HeaderProvider.
type HeaderProviderFunc func(ctx context.Context) (map[string]string, error)

// Headers calls f.
func (f HeaderProviderFunc) Headers(ctx context.Context) (map[string]string, error) {
	return f(ctx)
}

// ErrEmptyHeaders is returned by providers whose service answered without
// any header.
var ErrEmptyHeaders = errors.New("CORS service returned no headers")

// FallbackHeaders returns the fixed header set used when negotiation fails.
func FallbackHeaders() map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin":      "*",
		"Access-Control-Allow-Methods":     "OPTIONS, POST",
		"Access-Control-Allow-Headers":     "Content-Type",
		"Access-Control-Allow-Credentials": "true",
	}
}

// Fallback never fails: it asks the wrapped provider and substitutes
// FallbackHeaders on any error.
type Fallback struct {
	provider HeaderProvider
}

// WithFallback wraps provider. A nil provider always yields the fallback set.
func WithFallback(provider HeaderProvider) *Fallback {
	return &Fallback{provider: provider}
}

// Headers returns a fresh map the caller may modify.
func (f *Fallback) Headers(ctx context.Context) map[string]string {
	if f == nil || f.provider == nil {
		return FallbackHeaders()
	}

	headers, err := f.provider.Headers(ctx)
	if err == nil && len(headers) == 0 {
		err = ErrEmptyHeaders
	}
	if err != nil {
		logger.FromContext(ctx).Warnw("using fallback CORS headers", "error", err)
		return FallbackHeaders()
	}

	return maps.Clone(headers)
}
