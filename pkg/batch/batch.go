// Package batch fans independent fetches out over a bounded worker pool
package batch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"egress-dispatcher/pkg/dispatch"
	"egress-dispatcher/pkg/fetch"
)

const (
	// MaxWorkers is the hard ceiling on concurrent fetches per batch
	MaxWorkers = 25
	// DefaultWorkers is used when the requested count is not positive
	DefaultWorkers = 10
)

// Options apply to every item of a batch
type Options struct {
	Country string
	// Delay staggers submissions. It is not applied between completions.
	Delay time.Duration
	// Request is the template for each item; Country overrides its country.
	Request dispatch.Request
}

// Outcome is the result of one item, tagged with where it came from
type Outcome struct {
	URL      string
	Country  string
	Result   *fetch.Result
	Err      error
	Duration time.Duration
}

func (o Outcome) Success() bool {
	return o.Err == nil && o.Result != nil
}

// SizeKB is the decoded body size in whole kilobytes
func (o Outcome) SizeKB() int {
	if o.Result == nil {
		return 0
	}
	return len(o.Result.Body) / 1024
}

type Executor struct {
	fetcher dispatch.Fetcher
	workers int
	logger  *slog.Logger
}

// New creates an executor. The worker count is capped at MaxWorkers no
// matter what is requested.
func New(f dispatch.Fetcher, workers int, logger *slog.Logger) *Executor {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		fetcher: f,
		workers: min(workers, MaxWorkers),
		logger:  logger,
	}
}

// Workers returns the effective pool size
func (e *Executor) Workers() int {
	return e.workers
}

type job struct {
	url     string
	country string
}

// FetchAll fetches every URL and returns one outcome per URL in completion
// order. A failing item only fills its own slot.
func (e *Executor) FetchAll(ctx context.Context, urls []string, opts Options) []Outcome {
	if len(urls) == 0 {
		return nil
	}

	jobs := make(chan job, len(urls))
	results := make(chan Outcome, len(urls))

	// Start worker pool
	var wg sync.WaitGroup
	for i := 0; i < min(e.workers, len(urls)); i++ {
		wg.Add(1)
		go e.worker(ctx, &wg, jobs, results, opts.Request)
	}

	// Send jobs to workers
	for i, u := range urls {
		if opts.Delay > 0 && i > 0 {
			if err := stagger(ctx, opts.Delay); err != nil {
				for _, rest := range urls[i:] {
					results <- Outcome{URL: rest, Country: opts.Country, Err: err}
				}
				break
			}
		}
		jobs <- job{url: u, country: opts.Country}
	}
	close(jobs)

	// Wait for all workers to finish
	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results
	out := make([]Outcome, 0, len(urls))
	for o := range results {
		e.logger.Debug("batch item finished", "url", o.URL, "success", o.Success(), "duration", o.Duration)
		out = append(out, o)
	}
	return out
}

// FetchMultiCountry fetches the same URL from every country at once and keys
// the outcomes by country code.
func (e *Executor) FetchMultiCountry(ctx context.Context, url string, countries []string, req dispatch.Request) map[string]Outcome {
	results := make(chan Outcome, len(countries))

	var wg sync.WaitGroup
	for _, c := range countries {
		wg.Add(1)
		go func(country string) {
			defer wg.Done()
			results <- e.run(ctx, job{url: url, country: country}, req)
		}(c)
	}
	wg.Wait()
	close(results)

	out := make(map[string]Outcome, len(countries))
	for o := range results {
		out[o.Country] = o
	}
	return out
}

func (e *Executor) worker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan job, results chan<- Outcome, req dispatch.Request) {
	defer wg.Done()
	for j := range jobs {
		results <- e.run(ctx, j, req)
	}
}

func (e *Executor) run(ctx context.Context, j job, req dispatch.Request) Outcome {
	if j.country != "" {
		req.Country = j.country
	}
	start := time.Now()
	res, err := e.fetcher.Fetch(ctx, j.url, req)
	if err != nil {
		e.logger.Debug("batch item failed", "url", j.url, "country", req.Country, "error", err)
	}
	return Outcome{
		URL:      j.url,
		Country:  j.country,
		Result:   res,
		Err:      err,
		Duration: time.Since(start),
	}
}

func stagger(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
