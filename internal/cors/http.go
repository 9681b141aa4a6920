package cors

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPProvider fetches the header map with a GET request to a CORS service.
type HTTPProvider struct {
	client *resty.Client
	url    string
}

// NewHTTPProvider returns a provider calling url with the given timeout.
func NewHTTPProvider(url string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		client: resty.New().SetTimeout(timeout),
		url:    url,
	}
}

// Headers performs the request and decodes its JSON body.
func (p *HTTPProvider) Headers(ctx context.Context) (map[string]string, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(p.url)
	if err != nil {
		return nil, fmt.Errorf("requesting CORS headers: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("CORS service responded %s", resp.Status())
	}

	return decodeHeaders(resp.Body())
}
