package batch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"egress-dispatcher/pkg/dispatch"
	"egress-dispatcher/pkg/fetch"
)

type fakeFetcher struct {
	delay   time.Duration
	failing map[string]bool

	inFlight atomic.Int32
	peak     atomic.Int32

	mu        sync.Mutex
	countries []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string, req dispatch.Request) (*fetch.Result, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.countries = append(f.countries, req.Country)
	f.mu.Unlock()

	time.Sleep(f.delay)
	if f.failing[url] {
		return nil, &dispatch.ProxyError{URL: url, Attempts: 3, Err: errors.New("connection refused")}
	}
	return &fetch.Result{StatusCode: http.StatusOK, Body: make([]byte, 2048)}, nil
}

func urls(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("https://example.com/%d", i)
	}
	return out
}

func TestWorkerCeiling(t *testing.T) {
	assert.Equal(t, MaxWorkers, New(&fakeFetcher{}, 100, nil).Workers())
	assert.Equal(t, DefaultWorkers, New(&fakeFetcher{}, 0, nil).Workers())
	assert.Equal(t, 4, New(&fakeFetcher{}, 4, nil).Workers())
}

func TestFetchAllNeverExceedsCeiling(t *testing.T) {
	f := &fakeFetcher{delay: 30 * time.Millisecond}
	e := New(f, 100, nil)

	out := e.FetchAll(context.Background(), urls(60), Options{})
	require.Len(t, out, 60)
	assert.LessOrEqual(t, f.peak.Load(), int32(MaxWorkers))
	assert.Greater(t, f.peak.Load(), int32(1))
}

func TestFetchAllIsolatesFailures(t *testing.T) {
	list := urls(25)
	bad := list[7]
	f := &fakeFetcher{delay: 5 * time.Millisecond, failing: map[string]bool{bad: true}}

	out := New(f, 25, nil).FetchAll(context.Background(), list, Options{Country: "DE"})
	require.Len(t, out, 25)

	seen := make(map[string]bool)
	var ok, failed int
	for _, o := range out {
		seen[o.URL] = true
		if o.Success() {
			ok++
			assert.Equal(t, 2, o.SizeKB())
		} else {
			failed++
			assert.Equal(t, bad, o.URL)
			assert.ErrorIs(t, o.Err, dispatch.ErrExhausted)
		}
	}
	assert.Equal(t, 24, ok)
	assert.Equal(t, 1, failed)
	assert.Len(t, seen, 25)

	for _, c := range f.countries {
		assert.Equal(t, "DE", c)
	}
}

func TestFetchAllCompletionOrder(t *testing.T) {
	slow := &orderedFetcher{delays: map[string]time.Duration{
		"https://a": 80 * time.Millisecond,
		"https://b": 5 * time.Millisecond,
	}}
	out := New(slow, 2, nil).FetchAll(context.Background(), []string{"https://a", "https://b"}, Options{})
	require.Len(t, out, 2)
	assert.Equal(t, "https://b", out[0].URL)
	assert.Equal(t, "https://a", out[1].URL)
}

func TestFetchAllStaggersSubmissions(t *testing.T) {
	f := &fakeFetcher{}
	start := time.Now()
	out := New(f, 5, nil).FetchAll(context.Background(), urls(4), Options{Delay: 20 * time.Millisecond})
	require.Len(t, out, 4)
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestFetchAllCancelledDuringStagger(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	out := New(&fakeFetcher{}, 2, nil).FetchAll(ctx, urls(5), Options{Delay: time.Second})
	require.Len(t, out, 5)

	var cancelled int
	for _, o := range out {
		if errors.Is(o.Err, context.DeadlineExceeded) {
			cancelled++
		}
	}
	assert.Equal(t, 4, cancelled)
}

func TestFetchAllEmpty(t *testing.T) {
	assert.Empty(t, New(&fakeFetcher{}, 1, nil).FetchAll(context.Background(), nil, Options{}))
}

func TestFetchMultiCountry(t *testing.T) {
	f := &fakeFetcher{delay: 100 * time.Millisecond}
	countries := []string{"US", "DE", "JP", "BR"}

	out := New(f, 1, nil).FetchMultiCountry(context.Background(), "https://example.com", countries, dispatch.Request{})
	require.Len(t, out, 4)
	for _, c := range countries {
		o, ok := out[c]
		require.True(t, ok, c)
		assert.True(t, o.Success())
		assert.Equal(t, c, o.Country)
	}
	assert.Equal(t, int32(4), f.peak.Load())
}

type orderedFetcher struct {
	delays map[string]time.Duration
}

func (f *orderedFetcher) Fetch(ctx context.Context, url string, req dispatch.Request) (*fetch.Result, error) {
	time.Sleep(f.delays[url])
	return &fetch.Result{StatusCode: http.StatusOK}, nil
}
