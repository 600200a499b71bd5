package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "threads"

// Metrics holds the collectors of the comment engine. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	loadRounds      prometheus.Histogram
	threadSize      prometheus.Histogram
	mutations       *prometheus.CounterVec
	deletedComments *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		loadRounds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "thread_load_rounds",
			Help:      "Store round trips needed to load one thread.",
			Buckets:   prometheus.LinearBuckets(1, 2, 10),
		}),
		threadSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "thread_size_comments",
			Help:      "Number of comments in a loaded thread.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Committed comment mutations by operation.",
		}, []string{"operation"}),
		deletedComments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deleted_comments_total",
			Help:      "Comments removed by recursive deletion, by trigger.",
		}, []string{"reason"}),
	}
	registry.MustRegister(m.loadRounds, m.threadSize, m.mutations, m.deletedComments)
	return m
}

func (m *Metrics) ObserveThreadLoad(rounds int, size int) {
	if m == nil {
		return
	}
	m.loadRounds.Observe(float64(rounds))
	m.threadSize.Observe(float64(size))
}

func (m *Metrics) IncMutation(operation string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(operation).Inc()
}

func (m *Metrics) AddDeletedComments(reason string, count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.deletedComments.WithLabelValues(reason).Add(float64(count))
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
