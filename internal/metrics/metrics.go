// Package metrics provides Prometheus metrics for the simulation service.
package metrics

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector collects and exposes simulation and HTTP metrics on its own
// registry.
type Collector struct {
	registry *prometheus.Registry

	// Simulation metrics
	RunsTotal        *prometheus.CounterVec
	RunDuration      *prometheus.HistogramVec
	TournamentsTotal *prometheus.CounterVec

	// Cache metrics
	CacheLookups *prometheus.CounterVec

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),

		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "worldcup_simulation_runs_total",
				Help: "Simulation runs by format and outcome",
			},
			[]string{"format", "status"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "worldcup_simulation_duration_seconds",
				Help:    "Wall time of a simulation run",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms to ~40s
			},
			[]string{"format"},
		),
		TournamentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "worldcup_simulated_tournaments_total",
				Help: "Tournaments played by successful runs",
			},
			[]string{"format"},
		),

		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "worldcup_cache_lookups_total",
				Help: "Result cache lookups by outcome",
			},
			[]string{"result"},
		),

		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "worldcup_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "worldcup_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	c.registry.MustRegister(
		c.RunsTotal,
		c.RunDuration,
		c.TournamentsTotal,
		c.CacheLookups,
		c.RequestsTotal,
		c.RequestDuration,
	)
	return c
}

// Registry returns the prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveRun records a finished simulation run.
func (c *Collector) ObserveRun(format string, nSims int, elapsed time.Duration, err error) {
	c.RunsTotal.WithLabelValues(format, runStatus(err)).Inc()
	if err != nil {
		return
	}
	c.RunDuration.WithLabelValues(format).Observe(elapsed.Seconds())
	c.TournamentsTotal.WithLabelValues(format).Add(float64(nSims))
}

func runStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "error"
	}
}

// RecordCache records a cache hit or miss.
func (c *Collector) RecordCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.CacheLookups.WithLabelValues(result).Inc()
}

// RecordRequest records one served HTTP request.
func (c *Collector) RecordRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
