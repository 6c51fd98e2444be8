package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var histogramBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

// Outcome labels
const (
	OutcomeOK          = "ok"
	OutcomeError       = "error"
	OutcomeUnavailable = "unavailable"
	OutcomeTransport   = "transport"
	OutcomeCompleted   = "completed"
	OutcomeDropped     = "dropped"
	OutcomeStale       = "stale"
)

// Metrics groups the collectors exported by the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	trackerOps      *prometheus.CounterVec
	completions     *prometheus.CounterVec
	repoFetches     *prometheus.CounterVec
	evictions       *prometheus.CounterVec
	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		trackerOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appdeck",
			Subsystem: "tracker",
			Name:      "operations_total",
			Help:      "Deployment tracker operations by outcome",
		}, []string{"operation", "outcome"}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appdeck",
			Subsystem: "tracker",
			Name:      "completions_total",
			Help:      "Delayed deployment completions by outcome",
		}, []string{"outcome"}),
		repoFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appdeck",
			Subsystem: "aggregator",
			Name:      "fetches_total",
			Help:      "Source-control fetches by resource and outcome",
		}, []string{"resource", "outcome"}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appdeck",
			Subsystem: "registry",
			Name:      "evictions_total",
			Help:      "Least recently used entries dropped from a full registry",
		}, []string{"registry"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appdeck",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "appdeck",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   histogramBuckets,
		}, []string{"method", "route", "status"}),
	}

	collectors := []prometheus.Collector{m.trackerOps, m.completions, m.repoFetches, m.evictions, m.requestTotal, m.requestDuration}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// TrackerOperation counts a tracker operation (fetch, create, trigger).
func (m *Metrics) TrackerOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.trackerOps.With(prometheus.Labels{"operation": operation, "outcome": outcome}).Inc()
}

// Completion counts a delayed completion outcome.
func (m *Metrics) Completion(outcome string) {
	if m == nil {
		return
	}
	m.completions.With(prometheus.Labels{"outcome": outcome}).Inc()
}

// RepoFetch counts one of the aggregator's source-control fetches.
func (m *Metrics) RepoFetch(resource, outcome string) {
	if m == nil {
		return
	}
	m.repoFetches.With(prometheus.Labels{"resource": resource, "outcome": outcome}).Inc()
}

// Eviction counts an entry dropped from registry (trackers, aggregators).
func (m *Metrics) Eviction(registry string) {
	if m == nil {
		return
	}
	m.evictions.With(prometheus.Labels{"registry": registry}).Inc()
}

// Request records a served HTTP request.
func (m *Metrics) Request(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	m.requestTotal.With(labels).Inc()
	m.requestDuration.With(labels).Observe(duration.Seconds())
}
