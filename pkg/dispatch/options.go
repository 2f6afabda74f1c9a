package dispatch

import (
	"context"
	"time"

	"egress-dispatcher/pkg/fetch"
	"egress-dispatcher/pkg/fingerprint"
	"egress-dispatcher/pkg/proxy"
	"egress-dispatcher/pkg/stats"
)

// Option configures a Client.
type Option func(*config)

// Doer performs one attempt. fetch.Do is the real implementation.
type Doer interface {
	Do(ctx context.Context, url string, opts fetch.Options) (*fetch.Result, error)
}

// DoerFunc adapts a function to Doer
type DoerFunc func(ctx context.Context, url string, opts fetch.Options) (*fetch.Result, error)

func (f DoerFunc) Do(ctx context.Context, url string, opts fetch.Options) (*fetch.Result, error) {
	return f(ctx, url, opts)
}

// Sleeper waits between attempts. It must return early with ctx's error.
type Sleeper func(ctx context.Context, d time.Duration) error

type config struct {
	endpoint  proxy.Endpoint
	country   string
	city      string
	retries   int
	baseDelay time.Duration
	timeout   time.Duration
	rps       float64
	burst     int

	doer      Doer
	sleep     Sleeper
	generator *fingerprint.Generator
	stats     *stats.Accumulator
	sessionID func() string
}

func defaultConfig() *config {
	return &config{
		endpoint:  proxy.DefaultEndpoint(),
		retries:   3,
		baseDelay: time.Second,
		timeout:   fetch.DefaultTimeout,
		burst:     1,
		doer:      DoerFunc(fetch.Do),
		sleep:     sleepContext,
		sessionID: NewSessionID,
	}
}

// WithEndpoint sets the upstream proxy.
func WithEndpoint(ep proxy.Endpoint) Option {
	return func(c *config) { c.endpoint = ep }
}

// WithCountry sets the country used when a request does not name one.
func WithCountry(country string) Option {
	return func(c *config) { c.country = country }
}

// WithCity sets the city used when a request does not name one.
func WithCity(city string) Option {
	return func(c *config) { c.city = city }
}

// WithRetries sets the attempt budget per call (default 3).
func WithRetries(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.retries = n
		}
	}
}

// WithBaseDelay sets the linear backoff unit. Attempt n waits n*d before attempt n+1.
func WithBaseDelay(d time.Duration) Option {
	return func(c *config) {
		if d >= 0 {
			c.baseDelay = d
		}
	}
}

// WithTimeout sets the per-attempt timeout (default 30s).
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit caps attempts per second across all calls on the client.
// Zero disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *config) {
		c.rps = rps
		if burst > 0 {
			c.burst = burst
		}
	}
}

// WithDoer replaces the transport used for each attempt.
func WithDoer(d Doer) Option {
	return func(c *config) { c.doer = d }
}

// WithSleeper replaces the backoff sleep.
func WithSleeper(s Sleeper) Option {
	return func(c *config) { c.sleep = s }
}

// WithGenerator sets the fingerprint generator.
func WithGenerator(g *fingerprint.Generator) Option {
	return func(c *config) { c.generator = g }
}

// WithStats shares an accumulator between clients.
func WithStats(acc *stats.Accumulator) Option {
	return func(c *config) { c.stats = acc }
}

// WithSessionIDs replaces the session id source used for rotation.
func WithSessionIDs(fn func() string) Option {
	return func(c *config) { c.sessionID = fn }
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
