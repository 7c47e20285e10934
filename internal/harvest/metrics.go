package harvest

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Item outcomes recorded by the harvester.
const (
	OutcomeProcessed   = "processed"
	OutcomeFailed      = "failed"
	OutcomeOutOfBounds = "out_of_bounds"
	OutcomeStale       = "stale"
)

// Metrics groups the collectors for one harvest. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	passes          prometheus.Counter
	scrolls         prometheus.Counter
	items           *prometheus.CounterVec
	failures        *prometheus.CounterVec
	viewportRetries prometheus.Counter
	tableSize       prometheus.Gauge
}

// NewMetrics registers the harvest collectors on a dedicated registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "westie",
			Name:      "harvest_passes_total",
			Help:      "Number of passes over the rendered list.",
		}),
		scrolls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "westie",
			Name:      "harvest_scrolls_total",
			Help:      "Number of scroll steps issued.",
		}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "westie",
			Name:      "harvest_items_total",
			Help:      "Rendered items seen, by outcome.",
		}, []string{"outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "westie",
			Name:      "harvest_failures_total",
			Help:      "Item and viewport failures, by error code.",
		}, []string{"code"}),
		viewportRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "westie",
			Name:      "harvest_viewport_retries_total",
			Help:      "Viewport geometry lookups retried after staleness.",
		}),
		tableSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "westie",
			Name:      "harvest_events",
			Help:      "Events currently held in the table.",
		}),
	}

	m.Registry.MustRegister(m.passes, m.scrolls, m.items, m.failures, m.viewportRetries, m.tableSize)
	return m
}

func (m *Metrics) incPass() {
	if m == nil {
		return
	}
	m.passes.Inc()
}

func (m *Metrics) incScroll() {
	if m == nil {
		return
	}
	m.scrolls.Inc()
}

func (m *Metrics) observeItem(outcome string) {
	if m == nil {
		return
	}
	m.items.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeFailure(err error) {
	if m == nil {
		return
	}
	code := Classify(err)
	if code == "" {
		code = "OTHER"
	}
	m.failures.WithLabelValues(string(code)).Inc()
}

func (m *Metrics) incViewportRetry() {
	if m == nil {
		return
	}
	m.viewportRetries.Inc()
}

func (m *Metrics) setTableSize(n int) {
	if m == nil {
		return
	}
	m.tableSize.Set(float64(n))
}

// WriteTextfile writes the registry in the node exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
