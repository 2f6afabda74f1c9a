package stats

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports an Accumulator as Prometheus counters
type Collector struct {
	acc *Accumulator

	requests *prometheus.Desc
	success  *prometheus.Desc
	errors   *prometheus.Desc
	duration *prometheus.Desc
}

// NewCollector returns a collector reading from acc on every scrape
func NewCollector(acc *Accumulator, namespace string) *Collector {
	return &Collector{
		acc: acc,
		requests: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "fetch", "requests_total"),
			"Top-level fetch calls", nil, nil),
		success: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "fetch", "success_total"),
			"Fetch calls that returned a response", nil, nil),
		errors: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "fetch", "errors_total"),
			"Fetch calls that returned an error", nil, nil),
		duration: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "fetch", "duration_milliseconds_total"),
			"Wall time spent in fetch calls", nil, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.requests
	ch <- c.success
	ch <- c.errors
	ch <- c.duration
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.acc.Snapshot()
	ch <- prometheus.MustNewConstMetric(c.requests, prometheus.CounterValue, float64(s.Requests))
	ch <- prometheus.MustNewConstMetric(c.success, prometheus.CounterValue, float64(s.Success))
	ch <- prometheus.MustNewConstMetric(c.errors, prometheus.CounterValue, float64(s.Errors))
	ch <- prometheus.MustNewConstMetric(c.duration, prometheus.CounterValue, float64(s.TotalTimeMs))
}
