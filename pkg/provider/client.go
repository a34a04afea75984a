package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds a single provider API call.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response body is kept for messages.
const maxErrorBody = 2048

// APIError is a non-2xx response from a provider API. Status codes in the
// 4xx range are generally permanent (auth, validation); 5xx and transport
// errors are transient and worth retrying on a later replay pass.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider API error: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("provider API error: HTTP %d: %s", e.StatusCode, e.Message)
}

// Permanent reports whether retrying without user intervention is pointless.
func (e *APIError) Permanent() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// restClient is the shared HTTP plumbing for all adapters. Each adapter
// supplies its base URL and auth header.
type restClient struct {
	baseURL    string
	authHeader string
	authValue  string
	http       *http.Client
}

func newRESTClient(baseURL, authHeader, authValue string) *restClient {
	return &restClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authHeader: authHeader,
		authValue:  authValue,
		http:       &http.Client{Timeout: DefaultTimeout},
	}
}

// doJSON performs a request with an optional JSON body and decodes a JSON
// response into out (which may be nil). accept overrides the Accept header
// when the caller wants a non-JSON representation (e.g. a raw diff).
func (c *restClient) do(ctx context.Context, method, path, accept string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if c.authValue != "" {
		req.Header.Set(c.authHeader, c.authValue)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}

	if out == nil {
		return nil
	}

	if raw, ok := out.(*string); ok {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		*raw = string(data)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
