package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "uv_feed"

// Metrics holds the Prometheus counters, histograms, and gauges for the feed service.
type Metrics struct {
	IngestCycles     *prometheus.CounterVec // labels: outcome={success,fetch,parse,store}
	ReadingsParsed   prometheus.Counter
	ReadingsDropped  prometheus.Counter
	IndexDefaulted   prometheus.Counter
	ReadingsStored   prometheus.Counter
	PublishErrors    prometheus.Counter
	LastSuccess      prometheus.Gauge
	SchedulerRunning prometheus.Gauge
	TicksSkipped     prometheus.Counter

	IngestDuration    prometheus.Histogram
	FeedFetchDuration prometheus.Histogram

	// BreakerState mirrors gobreaker.State: 0 closed, 1 half-open, 2 open.
	BreakerState prometheus.Gauge

	TimelineRequests *prometheus.CounterVec // labels: result={ok,empty,error}
}

func newMetrics() *Metrics {
	return &Metrics{
		IngestCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_cycles_total",
			Help:      "Ingestion cycles by outcome (success or failing stage).",
		}, []string{"outcome"}),
		ReadingsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_parsed_total",
			Help:      "Readings emitted by the feed parser.",
		}),
		ReadingsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_dropped_total",
			Help:      "Location entries dropped for lacking a name.",
		}),
		IndexDefaulted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_defaulted_total",
			Help:      "Readings whose UV index was missing or invalid and defaulted to 0.",
		}),
		ReadingsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_stored_total",
			Help:      "Readings upserted into the store.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Snapshot publications to the change feed that failed.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the most recent successful ingestion.",
		}),
		SchedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_running",
			Help:      "1 while the foreground refresh scheduler is active, 0 otherwise.",
		}),
		TicksSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_skipped_total",
			Help:      "Refresh ticks ignored because an ingestion was still in flight.",
		}),
		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Duration of a complete fetch-parse-store cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		FeedFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feed_fetch_duration_seconds",
			Help:      "Duration of the feed HTTP request.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_breaker_state",
			Help:      "Feed circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}),
		TimelineRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timeline_requests_total",
			Help:      "Widget timeline entries served by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.IngestCycles,
		m.ReadingsParsed,
		m.ReadingsDropped,
		m.IndexDefaulted,
		m.ReadingsStored,
		m.PublishErrors,
		m.LastSuccess,
		m.SchedulerRunning,
		m.TicksSkipped,
		m.IngestDuration,
		m.FeedFetchDuration,
		m.BreakerState,
		m.TimelineRequests,
	}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewUnregisteredMetrics creates Metrics that are never exposed, for
// one-shot commands that have no /metrics endpoint.
func NewUnregisteredMetrics() *Metrics {
	return newMetrics()
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
