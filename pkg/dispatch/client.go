// Package dispatch runs one logical fetch as a bounded sequence of proxied
// attempts, rotating the egress identity between them.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"egress-dispatcher/pkg/fetch"
	"egress-dispatcher/pkg/fingerprint"
	"egress-dispatcher/pkg/proxy"
	"egress-dispatcher/pkg/stats"
)

// Request holds the per-call parameters of a fetch. Zero values fall back
// to the client defaults.
type Request struct {
	Country string
	City    string
	// Session pins every attempt to this id. Empty rotates per attempt.
	Session string
	Render  bool
	// Header is merged over the generated fingerprint; caller wins.
	Header http.Header
	Method string
	Body   []byte
	// Timeout applies to each attempt separately
	Timeout time.Duration
	// Retries is the attempt budget for this call
	Retries int
}

// Fetcher is anything that can run a fetch call. Client and sticky sessions
// implement it.
type Fetcher interface {
	Fetch(ctx context.Context, url string, req Request) (*fetch.Result, error)
}

// Attempt describes one try within a fetch call
type Attempt struct {
	Index     int
	Start     time.Time
	SessionID string
}

// Client is the retrying, rotating dispatcher. It is safe for concurrent use.
type Client struct {
	apiKey  string
	cfg     *config
	logger  *slog.Logger
	limiter *rate.Limiter
}

var _ Fetcher = (*Client)(nil)

// New creates a dispatcher for apiKey. An empty key returns ErrAuth.
func New(apiKey string, logger *slog.Logger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: api key is required", ErrAuth)
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg := defaultConfig()
	for _, o := range opts {
		o(cfg)
	}
	if err := cfg.endpoint.Validate(); err != nil {
		return nil, err
	}
	if cfg.generator == nil {
		cfg.generator = fingerprint.NewGenerator()
	}
	if cfg.stats == nil {
		cfg.stats = stats.New()
	}

	c := &Client{
		apiKey: apiKey,
		cfg:    cfg,
		logger: logger,
	}
	if cfg.rps > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.rps), cfg.burst)
	}
	return c, nil
}

// APIKey returns the key the client authenticates with
func (c *Client) APIKey() string {
	return c.apiKey
}

// Endpoint returns the upstream proxy
func (c *Client) Endpoint() proxy.Endpoint {
	return c.cfg.endpoint
}

// Stats returns a snapshot of the call counters
func (c *Client) Stats() stats.Snapshot {
	return c.cfg.stats.Snapshot()
}

// Accumulator exposes the live counters, e.g. for a Prometheus collector
func (c *Client) Accumulator() *stats.Accumulator {
	return c.cfg.stats
}

// Fetch runs one logical request.
//
// A response whose status is not retryable is returned as data even when it
// is a 4xx or 5xx. When the attempt budget runs out on retryable failures
// the error is a *TimeoutError or a *ProxyError.
func (c *Client) Fetch(ctx context.Context, url string, req Request) (*fetch.Result, error) {
	start := time.Now()
	res, err := c.run(ctx, url, req)
	c.cfg.stats.Record(err == nil, time.Since(start))
	return res, err
}

func (c *Client) run(ctx context.Context, url string, req Request) (*fetch.Result, error) {
	retries := req.Retries
	if retries <= 0 {
		retries = c.cfg.retries
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.cfg.timeout
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	country := firstNonEmpty(req.Country, c.cfg.country)
	city := firstNonEmpty(req.City, c.cfg.city)

	identity := proxy.Identity{
		APIKey:  c.apiKey,
		Country: country,
		City:    city,
		Render:  req.Render,
	}

	var last Decision
	for i := 1; i <= retries; i++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		attempt := Attempt{Index: i, Start: time.Now(), SessionID: req.Session}
		if attempt.SessionID == "" {
			attempt.SessionID = c.cfg.sessionID()
		}

		credential, err := proxy.Encode(identity.WithSession(attempt.SessionID))
		if err != nil {
			return nil, err
		}

		res, err := c.cfg.doer.Do(ctx, url, fetch.Options{
			Proxy:   c.cfg.endpoint.URL(credential),
			Method:  method,
			Header:  fingerprint.Merge(c.cfg.generator.Generate(country), req.Header),
			Body:    req.Body,
			Timeout: timeout,
		})
		decision := Classify(res, err)

		c.logger.Debug("fetch attempt",
			"method", method,
			"url", url,
			"attempt", attempt.Index,
			"session", attempt.SessionID,
			"country", country,
			"status", decision.StatusCode,
			"decision", decision.Kind.String(),
			"elapsed", time.Since(attempt.Start))

		switch decision.Kind {
		case Terminal:
			return decision.Result, nil
		case Fatal:
			return nil, decision.Err
		}

		last = decision
		if i < retries {
			if err := c.cfg.sleep(ctx, c.cfg.baseDelay*time.Duration(i)); err != nil {
				return nil, err
			}
		}
	}

	c.logger.Debug("fetch exhausted", "url", url, "attempts", retries, "timeout", last.Timeout, "error", last.Err)
	return nil, exhausted(url, retries, last)
}

// Outcome is what FetchAsync delivers
type Outcome struct {
	Result *fetch.Result
	Err    error
}

// FetchAsync runs Fetch in its own goroutine and delivers the outcome on the
// returned channel, which is closed afterwards. Retry and backoff behave
// exactly as in Fetch.
func (c *Client) FetchAsync(ctx context.Context, url string, req Request) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		defer close(ch)
		res, err := c.Fetch(ctx, url, req)
		ch <- Outcome{Result: res, Err: err}
	}()
	return ch
}

// Get fetches url with GET
func (c *Client) Get(ctx context.Context, url string, req Request) (*fetch.Result, error) {
	req.Method = http.MethodGet
	return c.Fetch(ctx, url, req)
}

// Post sends body as JSON with POST
func (c *Client) Post(ctx context.Context, url string, body any, req Request) (*fetch.Result, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode body: %w", err)
	}
	h := req.Header.Clone()
	if h == nil {
		h = make(http.Header)
	}
	h.Set("Content-Type", "application/json")

	req.Method = http.MethodPost
	req.Header = h
	req.Body = data
	return c.Fetch(ctx, url, req)
}

// NewSessionID returns a random 16 character hex session id
func NewSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
