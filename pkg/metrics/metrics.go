// Package metrics records crawl counters in a private Prometheus registry and
// exports them in text format for the node-exporter textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors for one crawler process. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Requests counts HTTP exchanges by method and status ("error" on transport failure)
	Requests *prometheus.CounterVec
	// RequestDuration observes round-trip latency by method
	RequestDuration *prometheus.HistogramVec
	// Pages counts pages that produced records, by phase
	Pages *prometheus.CounterVec
	// Records counts collected records by phase
	Records *prometheus.CounterVec
	// Terminations counts how each phase ended
	Terminations *prometheus.CounterVec
}

// New creates the collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brandscraper_requests_total",
				Help: "Total number of upstream HTTP requests",
			},
			[]string{"method", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "brandscraper_request_duration_seconds",
				Help:    "Upstream HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		Pages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brandscraper_pages_total",
				Help: "Total number of pages that yielded records",
			},
			[]string{"phase"}, // "catalog", "feed", "reviews"
		),
		Records: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brandscraper_records_total",
				Help: "Total number of records collected",
			},
			[]string{"phase"},
		),
		Terminations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brandscraper_phase_terminations_total",
				Help: "Phase terminations by reason",
			},
			[]string{"phase", "termination"},
		),
	}
}

// Registry exposes the underlying registry, e.g. for an HTTP handler
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveRequest records one HTTP exchange. status 0 means a transport failure.
func (m *Metrics) ObserveRequest(method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.Requests.WithLabelValues(method, label).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// ObservePage records a page that yielded n records
func (m *Metrics) ObservePage(phase string, n int) {
	if m == nil {
		return
	}
	m.Pages.WithLabelValues(phase).Inc()
	m.Records.WithLabelValues(phase).Add(float64(n))
}

// ObserveTermination records why a phase ended
func (m *Metrics) ObserveTermination(phase, termination string) {
	if m == nil {
		return
	}
	m.Terminations.WithLabelValues(phase, termination).Inc()
}

// WriteTextfile writes the registry in Prometheus text format to path,
// atomically, creating the parent directory if needed
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
