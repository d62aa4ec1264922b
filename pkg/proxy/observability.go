package proxy

import (
	"expvar"
	"fmt"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

func statusOf(success bool) string {
	if success {
		return statusSuccess
	}
	return statusError
}

var expvarSeq uint64

// ExpvarMetricsRecorder publishes aggregate timing and result counters via
// expvar. Durations are totalled in milliseconds per operation.
type ExpvarMetricsRecorder struct {
	name      string
	mu        sync.Mutex
	durations map[string]float64
	results   map[string]map[string]int64
}

// ExpvarMetricsSnapshot captures a read-only view of the recorded metrics.
type ExpvarMetricsSnapshot struct {
	DurationsMS map[string]float64          `json:"durations_ms_total"`
	Results     map[string]map[string]int64 `json:"results_total"`
	RecordedAt  time.Time                   `json:"recorded_at"`
}

// NewExpvarMetricsRecorder constructs an expvar-backed recorder and publishes
// it under name. When name is empty, a unique identifier is generated.
// Publishing a name twice panics, as expvar.Publish does.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		id := atomic.AddUint64(&expvarSeq, 1)
		name = fmt.Sprintf("keyproxy_metrics_%d", id)
	}
	rec := &ExpvarMetricsRecorder{
		name:      name,
		durations: make(map[string]float64),
		results:   make(map[string]map[string]int64),
	}
	expvar.Publish(name, expvar.Func(func() any {
		return rec.Snapshot()
	}))
	return rec
}

// Name returns the expvar export name.
func (r *ExpvarMetricsRecorder) Name() string {
	return r.name
}

// Snapshot returns a copy of the aggregated metrics.
func (r *ExpvarMetricsRecorder) Snapshot() ExpvarMetricsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	results := make(map[string]map[string]int64, len(r.results))
	for op, counts := range r.results {
		results[op] = maps.Clone(counts)
	}
	return ExpvarMetricsSnapshot{
		DurationsMS: maps.Clone(r.durations),
		Results:     results,
		RecordedAt:  time.Now().UTC(),
	}
}

// Observe implements MetricsRecorder.
func (r *ExpvarMetricsRecorder) Observe(operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	ms := float64(duration) / float64(time.Millisecond)
	status := statusOf(success)

	r.mu.Lock()
	r.durations[operation] += ms
	if _, ok := r.results[operation]; !ok {
		r.results[operation] = make(map[string]int64, 2)
	}
	r.results[operation][status]++
	r.mu.Unlock()
}

// PrometheusMetricsRecorder exports operation counters and a duration
// histogram through Prometheus collectors.
type PrometheusMetricsRecorder struct {
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
}

// PrometheusOption customises a PrometheusMetricsRecorder.
type PrometheusOption func(*prometheusConfig)

type prometheusConfig struct {
	namespace   string
	constLabels prometheus.Labels
	buckets     []float64
}

// WithNamespace replaces the metric namespace (default "keyproxy").
func WithNamespace(namespace string) PrometheusOption {
	return func(c *prometheusConfig) {
		c.namespace = namespace
	}
}

// WithConstLabels attaches constant labels to every exported series.
func WithConstLabels(labels prometheus.Labels) PrometheusOption {
	return func(c *prometheusConfig) {
		c.constLabels = labels
	}
}

// WithBuckets overrides the duration histogram buckets, in seconds.
func WithBuckets(buckets []float64) PrometheusOption {
	return func(c *prometheusConfig) {
		if len(buckets) > 0 {
			c.buckets = buckets
		}
	}
}

// NewPrometheusMetricsRecorder builds the collectors and registers them on
// reg. A nil reg leaves the collectors unregistered, which is useful when the
// caller wants to register them itself via Collectors.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer, opts ...PrometheusOption) (*PrometheusMetricsRecorder, error) {
	cfg := prometheusConfig{
		namespace: "keyproxy",
		buckets:   prometheus.ExponentialBuckets(0.000001, 4, 10),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	rec := &PrometheusMetricsRecorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.namespace,
			Name:        "operations_total",
			Help:        "Accessor operations by name and outcome.",
			ConstLabels: cfg.constLabels,
		}, []string{"operation", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.namespace,
			Name:        "operation_duration_seconds",
			Help:        "Accessor operation latency.",
			ConstLabels: cfg.constLabels,
			Buckets:     cfg.buckets,
		}, []string{"operation"}),
	}
	if reg != nil {
		for _, c := range rec.Collectors() {
			if err := reg.Register(c); err != nil {
				return nil, fmt.Errorf("register keyproxy collector: %w", err)
			}
		}
	}
	return rec, nil
}

// Collectors returns the underlying collectors.
func (r *PrometheusMetricsRecorder) Collectors() []prometheus.Collector {
	return []prometheus.Collector{r.operations, r.durations}
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	r.operations.WithLabelValues(operation, statusOf(success)).Inc()
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
}
