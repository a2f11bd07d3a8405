package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTP fetches environment values from a JSON endpoint. The response body
// must be a JSON object; nested objects are flattened. This source is
// async-only: the synchronous resolve path skips it.
type HTTP struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// HTTPOption customizes an HTTP source.
type HTTPOption func(*HTTP)

// WithHeader adds a request header, e.g. an Authorization token.
func WithHeader(key, value string) HTTPOption {
	return func(h *HTTP) {
		h.headers[key] = value
	}
}

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(h *HTTP) {
		h.client = client
	}
}

// NewHTTP creates an HTTP endpoint source.
func NewHTTP(url string, opts ...HTTPOption) *HTTP {
	h := &HTTP{
		url:     url,
		headers: make(map[string]string),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name implements resolver.Resolver.
func (h *HTTP) Name() string {
	return "http:" + h.url
}

// Metadata implements resolver.Resolver.
func (h *HTTP) Metadata() map[string]interface{} {
	return map[string]interface{}{"url": h.url}
}

// Load implements resolver.Resolver.
func (h *HTTP) Load(ctx context.Context) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, err
	}
	for key, value := range h.headers {
		req.Header.Set(key, value)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var doc map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}
	return Flatten(doc), nil
}
