// Package ratelimit keeps a process-wide cooldown per preset so one external
// site never sees more than one request per cooldown from this process,
// whichever client sends it.
package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Default is the cooldown for keys without an entry
const Default = 5 * time.Second

// MaxJitter bounds the random extra wait added to a cooldown
const MaxJitter = 2 * time.Second

// Cooldowns used by the built-in presets
var Cooldowns = map[string]time.Duration{
	"twitter":   5 * time.Second,
	"instagram": 5 * time.Second,
	"tiktok":    5 * time.Second,
	"youtube":   5 * time.Second,
	"reddit":    5 * time.Second,
	"google":    8 * time.Second,
	"nasdaq":    8 * time.Second,
	"amazon":    10 * time.Second,
	"linkedin":  10 * time.Second,
	"ebay":      15 * time.Second,
}

// Clock is the time source. Tests inject a fake one.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(l *Limiter) { l.clock = c }
}

// WithJitter replaces the jitter source.
func WithJitter(fn func() time.Duration) Option {
	return func(l *Limiter) { l.jitter = fn }
}

// gate serializes admission for one key. The channel is a one-slot
// semaphore so a waiter can give up when its context ends.
type gate struct {
	sem  chan struct{}
	last time.Time
}

// Limiter holds the last start time per key
type Limiter struct {
	clock     Clock
	jitter    func() time.Duration
	cooldowns map[string]time.Duration

	mu    sync.Mutex
	gates map[string]*gate
}

// New creates a limiter with the given per-key cooldowns
func New(cooldowns map[string]time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		clock:     realClock{},
		jitter:    randomJitter,
		cooldowns: make(map[string]time.Duration, len(cooldowns)),
		gates:     make(map[string]*gate),
	}
	for k, v := range cooldowns {
		l.cooldowns[k] = v
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

var (
	sharedOnce sync.Once
	shared     *Limiter
)

// Shared returns the process-wide limiter loaded with Cooldowns
func Shared() *Limiter {
	sharedOnce.Do(func() {
		shared = New(Cooldowns)
	})
	return shared
}

// Cooldown returns the configured interval for key
func (l *Limiter) Cooldown(key string) time.Duration {
	if d, ok := l.cooldowns[key]; ok {
		return d
	}
	return Default
}

func (l *Limiter) gate(key string) *gate {
	l.mu.Lock()
	defer l.mu.Unlock()
	g, ok := l.gates[key]
	if !ok {
		g = &gate{sem: make(chan struct{}, 1)}
		l.gates[key] = g
	}
	return g
}

// Wait blocks until key may be used again and records the new start.
//
// Callers for the same key are admitted one at a time. If the previous start
// was less than the cooldown ago, the caller waits out the remainder plus a
// jitter in [0, MaxJitter).
func (l *Limiter) Wait(ctx context.Context, key string) error {
	g := l.gate(key)

	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-g.sem }()

	if !g.last.IsZero() {
		cooldown := l.Cooldown(key)
		if elapsed := l.clock.Now().Sub(g.last); elapsed < cooldown {
			select {
			case <-l.clock.After(cooldown - elapsed + l.jitter()):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	g.last = l.clock.Now()
	return nil
}

var (
	jitterMu  sync.Mutex
	jitterRnd = rand.New(rand.NewSource(time.Now().UnixNano()))
)

func randomJitter() time.Duration {
	jitterMu.Lock()
	defer jitterMu.Unlock()
	return time.Duration(jitterRnd.Int63n(int64(MaxJitter)))
}
