package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveCycle("ok", 1)
		m.ObserveFetch("bbc", 3, nil)
		m.ObserveAssessment(0.4, 0.1)
		m.ObserveFallback("fake_news")
		m.ObserveStored(10, true)
	})
}

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveFetch("bbc", 3, nil)
	m.ObserveFetch("bbc", 2, nil)
	m.ObserveFetch("tmz", 0, errors.New("boom"))
	m.ObserveFallback("fake_news")
	m.ObserveStored(7, true)
	m.ObserveStored(8, false)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.FetchedItemsTotal.WithLabelValues("bbc")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchErrorsTotal.WithLabelValues("tmz")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("fake_news")))
	assert.Equal(t, 8.0, testutil.ToFloat64(m.StoredEvents))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlertsTotal))
}
