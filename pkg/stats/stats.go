// Package stats keeps per-client request counters
package stats

import (
	"sync"
	"time"
)

// Accumulator counts top-level fetch calls. One call, however many attempts
// it took, is recorded exactly once.
type Accumulator struct {
	mu          sync.Mutex
	requests    int64
	success     int64
	errors      int64
	totalTimeMs int64
}

// Snapshot is a point-in-time copy of the counters
type Snapshot struct {
	Requests    int64   `json:"requests"`
	Success     int64   `json:"success"`
	Errors      int64   `json:"errors"`
	TotalTimeMs int64   `json:"total_time_ms"`
	AvgTimeMs   float64 `json:"avg_time_ms"`
}

func New() *Accumulator {
	return &Accumulator{}
}

// Record adds one finished call
func (a *Accumulator) Record(ok bool, elapsed time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.requests++
	if ok {
		a.success++
	} else {
		a.errors++
	}
	a.totalTimeMs += elapsed.Milliseconds()
}

func (a *Accumulator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Snapshot{
		Requests:    a.requests,
		Success:     a.success,
		Errors:      a.errors,
		TotalTimeMs: a.totalTimeMs,
	}
	if s.Requests > 0 {
		s.AvgTimeMs = float64(s.TotalTimeMs) / float64(s.Requests)
	}
	return s
}
