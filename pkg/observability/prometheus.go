package observability

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics implements Metrics on the default Prometheus
// registry; the /metrics endpoint exposes everything recorded here.
// Metric vectors are created lazily per (name, label-key-set).
type PrometheusMetrics struct {
	mu         sync.Mutex
	registerer prometheus.Registerer
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPrometheusMetrics registers against the default registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		registerer: prometheus.DefaultRegisterer,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

// promName normalizes dotted metric names to the Prometheus convention.
func promName(name string) string {
	return "oncall_" + strings.ReplaceAll(strings.ReplaceAll(name, ".", "_"), "-", "_")
}

func tagKeysValues(tags []Tag) ([]string, []string) {
	keys := make([]string, len(tags))
	values := make([]string, len(tags))
	for i, t := range tags {
		keys[i] = t.Key
		values[i] = t.Value
	}
	return keys, values
}

// Counter implements Metrics.
func (m *PrometheusMetrics) Counter(name string, value int64, tags ...Tag) {
	keys, values := tagKeysValues(tags)
	m.mu.Lock()
	vec, ok := m.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{Name: promName(name)}, keys)
		if err := m.registerer.Register(vec); err != nil {
			if existing, already := err.(prometheus.AlreadyRegisteredError); already {
				vec = existing.ExistingCollector.(*prometheus.CounterVec)
			}
		}
		m.counters[name] = vec
	}
	m.mu.Unlock()
	vec.WithLabelValues(values...).Add(float64(value))
}

// Gauge implements Metrics.
func (m *PrometheusMetrics) Gauge(name string, value float64, tags ...Tag) {
	keys, values := tagKeysValues(tags)
	m.mu.Lock()
	vec, ok := m.gauges[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: promName(name)}, keys)
		if err := m.registerer.Register(vec); err != nil {
			if existing, already := err.(prometheus.AlreadyRegisteredError); already {
				vec = existing.ExistingCollector.(*prometheus.GaugeVec)
			}
		}
		m.gauges[name] = vec
	}
	m.mu.Unlock()
	vec.WithLabelValues(values...).Set(value)
}

// Histogram implements Metrics.
func (m *PrometheusMetrics) Histogram(name string, value float64, tags ...Tag) {
	keys, values := tagKeysValues(tags)
	m.mu.Lock()
	vec, ok := m.histograms[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: promName(name)}, keys)
		if err := m.registerer.Register(vec); err != nil {
			if existing, already := err.(prometheus.AlreadyRegisteredError); already {
				vec = existing.ExistingCollector.(*prometheus.HistogramVec)
			}
		}
		m.histograms[name] = vec
	}
	m.mu.Unlock()
	vec.WithLabelValues(values...).Observe(value)
}

// Timing implements Metrics, recorded in seconds.
func (m *PrometheusMetrics) Timing(name string, duration time.Duration, tags ...Tag) {
	m.Histogram(name+"_seconds", duration.Seconds(), tags...)
}
