package ratelimit

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances instantly when waited on
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.waits = append(c.waits, d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func fixedJitter(d time.Duration) Option {
	return WithJitter(func() time.Duration { return d })
}

func TestWaitBackToBack(t *testing.T) {
	clock := newFakeClock()
	l := New(map[string]time.Duration{"google": 8 * time.Second}, WithClock(clock), fixedJitter(500*time.Millisecond))

	first := clock.Now()
	require.NoError(t, l.Wait(context.Background(), "google"))
	require.NoError(t, l.Wait(context.Background(), "google"))

	assert.GreaterOrEqual(t, clock.Now().Sub(first), 8*time.Second)
	assert.Equal(t, []time.Duration{8500 * time.Millisecond}, clock.waits)
}

func TestWaitAfterCooldownDoesNotBlock(t *testing.T) {
	clock := newFakeClock()
	l := New(map[string]time.Duration{"ebay": 15 * time.Second}, WithClock(clock), fixedJitter(time.Second))

	require.NoError(t, l.Wait(context.Background(), "ebay"))
	clock.Advance(16 * time.Second)
	require.NoError(t, l.Wait(context.Background(), "ebay"))
	assert.Empty(t, clock.waits)
}

func TestWaitMeasuresFromLastStart(t *testing.T) {
	clock := newFakeClock()
	l := New(map[string]time.Duration{"amazon": 10 * time.Second}, WithClock(clock), fixedJitter(0))

	require.NoError(t, l.Wait(context.Background(), "amazon"))
	clock.Advance(4 * time.Second)
	require.NoError(t, l.Wait(context.Background(), "amazon"))
	assert.Equal(t, []time.Duration{6 * time.Second}, clock.waits)
}

func TestKeysAreIndependent(t *testing.T) {
	clock := newFakeClock()
	l := New(Cooldowns, WithClock(clock), fixedJitter(0))

	require.NoError(t, l.Wait(context.Background(), "reddit"))
	require.NoError(t, l.Wait(context.Background(), "youtube"))
	assert.Empty(t, clock.waits)
}

func TestUnknownKeyUsesDefault(t *testing.T) {
	l := New(nil)
	assert.Equal(t, Default, l.Cooldown("nope"))
	assert.Equal(t, 15*time.Second, New(Cooldowns).Cooldown("ebay"))
}

func TestWaitSerializesConcurrentCallers(t *testing.T) {
	const cooldown = 40 * time.Millisecond
	l := New(map[string]time.Duration{"k": cooldown}, fixedJitter(0))

	var (
		mu     sync.Mutex
		starts []time.Time
		wg     sync.WaitGroup
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Wait(context.Background(), "k"))
			mu.Lock()
			starts = append(starts, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })
	for i := 1; i < len(starts); i++ {
		// Unserialized callers would all be admitted at once
		assert.GreaterOrEqual(t, starts[i].Sub(starts[i-1]), cooldown/2)
	}
}

func TestWaitHonoursContext(t *testing.T) {
	l := New(map[string]time.Duration{"k": time.Hour}, fixedJitter(0))
	require.NoError(t, l.Wait(context.Background(), "k"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Wait(ctx, "k"), context.DeadlineExceeded)
}

func TestSharedIsSingleton(t *testing.T) {
	assert.Same(t, Shared(), Shared())
	assert.Equal(t, 8*time.Second, Shared().Cooldown("google"))
}

func TestRandomJitterRange(t *testing.T) {
	for i := 0; i < 100; i++ {
		j := randomJitter()
		assert.GreaterOrEqual(t, j, time.Duration(0))
		assert.Less(t, j, MaxJitter)
	}
}
