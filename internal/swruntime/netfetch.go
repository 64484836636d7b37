package swruntime

import (
	"context"
	"io"
	"net/http"
	"time"
)

// NetworkFetcher is the production Fetcher, resolving requests over HTTP
// against a base URL.
type NetworkFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewNetworkFetcher creates a fetcher with a sensible request timeout.
func NewNetworkFetcher(baseURL string) *NetworkFetcher {
	return &NetworkFetcher{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch performs the request and buffers the response.
func (f *NetworkFetcher) Fetch(ctx context.Context, req Request) (*Response, error) {
	url := req.URL
	if f.BaseURL != "" {
		url = f.BaseURL + req.Path
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.Client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   body,
	}, nil
}
