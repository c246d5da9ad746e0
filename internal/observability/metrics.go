// Package observability provides Prometheus metrics for the fetch, score and
// store pipeline.
//
// # Description
//
// Metrics cover the poll loop (cycles, duration), feed fetching (items and
// errors per source), scoring (latency, risk distribution, sub-score
// fallbacks) and the event store (size, alerts). They are exposed on
// /metrics by the API server.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
// Every method is also safe on a nil *Metrics, so components can be built
// without instrumentation in tests.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "viralwarn"

// Metrics holds all Prometheus collectors of the pipeline.
type Metrics struct {
	// PollCyclesTotal counts poll cycles by outcome (ok, panic, cancelled).
	PollCyclesTotal *prometheus.CounterVec

	// PollCycleSeconds measures one full fetch/score/store cycle.
	PollCycleSeconds prometheus.Histogram

	// FetchedItemsTotal counts raw items returned per source.
	FetchedItemsTotal *prometheus.CounterVec

	// FetchErrorsTotal counts failed source fetches.
	FetchErrorsTotal *prometheus.CounterVec

	// ScoreSeconds measures one assessment.
	ScoreSeconds prometheus.Histogram

	// RiskScore is the distribution of composite risk scores.
	RiskScore prometheus.Histogram

	// FallbacksTotal counts sub-scores that used their fallback value.
	// Labels: component (fake_news, sensational, contradiction, nli, claims, assessment)
	FallbacksTotal *prometheus.CounterVec

	// StoredEvents is the current number of events held by the store.
	StoredEvents prometheus.Gauge

	// AlertsTotal counts stored events at or above the risk threshold.
	AlertsTotal prometheus.Counter
}

// NewMetrics creates and registers all collectors on reg. Pass
// prometheus.NewRegistry() in tests to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PollCyclesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "poller",
			Name:      "cycles_total",
			Help:      "Poll cycles by outcome.",
		}, []string{"outcome"}),
		PollCycleSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "poller",
			Name:      "cycle_seconds",
			Help:      "Duration of a fetch/score/store cycle.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		FetchedItemsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "fetch",
			Name:      "items_total",
			Help:      "Items returned per source.",
		}, []string{"source"}),
		FetchErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "fetch",
			Name:      "errors_total",
			Help:      "Failed fetches per source.",
		}, []string{"source"}),
		ScoreSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "scoring",
			Name:      "assessment_seconds",
			Help:      "Duration of one risk assessment.",
			Buckets:   prometheus.DefBuckets,
		}),
		RiskScore: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "scoring",
			Name:      "risk_score",
			Help:      "Composite risk score distribution.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
		FallbacksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "scoring",
			Name:      "fallbacks_total",
			Help:      "Sub-scores that used their fallback value.",
		}, []string{"component"}),
		StoredEvents: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "store",
			Name:      "events",
			Help:      "Events currently held in memory.",
		}),
		AlertsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "store",
			Name:      "alerts_total",
			Help:      "Stored events at or above the risk threshold.",
		}),
	}
}

func (m *Metrics) ObserveCycle(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.PollCyclesTotal.WithLabelValues(outcome).Inc()
	m.PollCycleSeconds.Observe(seconds)
}

func (m *Metrics) ObserveFetch(source string, items int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.FetchErrorsTotal.WithLabelValues(source).Inc()
		return
	}
	m.FetchedItemsTotal.WithLabelValues(source).Add(float64(items))
}

func (m *Metrics) ObserveAssessment(risk, seconds float64) {
	if m == nil {
		return
	}
	m.RiskScore.Observe(risk)
	m.ScoreSeconds.Observe(seconds)
}

func (m *Metrics) ObserveFallback(component string) {
	if m == nil {
		return
	}
	m.FallbacksTotal.WithLabelValues(component).Inc()
}

func (m *Metrics) ObserveStored(size int, alert bool) {
	if m == nil {
		return
	}
	m.StoredEvents.Set(float64(size))
	if alert {
		m.AlertsTotal.Inc()
	}
}
