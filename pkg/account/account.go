// Package account talks to the provider's support API for usage, status and
// the country catalogue. It does not go through the proxy.
package account

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"egress-dispatcher/pkg/dispatch"
)

const (
	DefaultBaseURL = "https://gateway.iploop.io:9443"
	requestTimeout = 15 * time.Second
)

// Client calls the support API with bearer auth
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(apiKey, baseURL string, logger *slog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, dispatch.ErrAuth
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: requestTimeout},
		logger:  logger,
	}, nil
}

// Usage fetches the bandwidth summary and checks it against the quota.
// A nearly exhausted quota is logged as a warning. An exhausted one returns
// the usage together with a *QuotaError.
func (c *Client) Usage(ctx context.Context) (Usage, error) {
	var u Usage
	if err := c.get(ctx, "/api/support/diagnose", &u); err != nil {
		return Usage{}, err
	}

	warn, err := CheckQuota(u)
	if err != nil {
		return u, err
	}
	if warn {
		c.logger.Warn("Bandwidth quota nearly used",
			"percent", fmt.Sprintf("%.0f", u.Percent()),
			"used_gb", u.UsedGB)
	}
	return u, nil
}

// Status returns the service status document as-is
func (c *Client) Status(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.get(ctx, "/api/support/status", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Countries returns the country catalogue as-is
func (c *Client) Countries(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.get(ctx, "/api/support/countries", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Ask posts a free-form support question
func (c *Client) Ask(ctx context.Context, question string) (map[string]any, error) {
	body, err := json.Marshal(map[string]string{"question": question})
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := c.do(ctx, http.MethodPost, "/api/support/ask", bytes.NewReader(body), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, v any) error {
	return c.do(ctx, http.MethodGet, path, nil, v)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, v any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("Account request", "method", method, "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: invalid API key", dispatch.ErrAuth)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Path: path, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// StatusError is a non-2xx answer other than 401
type StatusError struct {
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Path, e.StatusCode)
}
