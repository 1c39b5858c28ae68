package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsTotal counts jobs reaching a terminal state, by model and outcome.
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediagen_jobs_total",
			Help: "Total number of jobs reaching a terminal state",
		},
		[]string{"model", "status"},
	)

	// GenerationDuration tracks backend generation latency in seconds.
	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediagen_generation_duration_seconds",
			Help:    "Duration of backend generation calls in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~3.5min
		},
		[]string{"model"},
	)

	// WorkersActive tracks the number of workers currently processing a job.
	WorkersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediagen_workers_active",
			Help: "Number of worker goroutines currently processing a job",
		},
	)

	// RetriesTotal counts transient failures that were re-enqueued.
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediagen_retries_total",
			Help: "Total number of retry re-enqueues after transient failures",
		},
		[]string{"model"},
	)

	// StaleLeasesRecovered counts jobs re-armed by the stale-lease sweep.
	StaleLeasesRecovered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mediagen_stale_leases_recovered_total",
			Help: "Total number of stuck processing jobs recovered by the sweep",
		},
	)
)
