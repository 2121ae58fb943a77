package metric

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistryHasCoreMetrics(t *testing.T) {
	reg := NewMetricsRegistry()

	require.NotNil(t, reg.CoreMetrics())
	assert.NotNil(t, reg.CoreMetrics().FeatureCalls)
	assert.NotNil(t, reg.CoreMetrics().ActiveSubscriptions)
	assert.NotNil(t, reg.PrometheusRegistry())
}

func TestRegisterCounter(t *testing.T) {
	reg := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_rows_total",
		Help: "test counter",
	})

	require.NoError(t, reg.RegisterCounter("csv-adapter", "rows", counter))

	// Duplicate key is rejected.
	other := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_rows_other_total",
		Help: "test counter",
	})
	assert.Error(t, reg.RegisterCounter("csv-adapter", "rows", other))
}

func TestRegisterConflictingCollector(t *testing.T) {
	reg := NewMetricsRegistry()

	mk := func() prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Name: "same_name_total",
			Help: "conflict test",
		})
	}

	require.NoError(t, reg.RegisterCounter("a", "m1", mk()))
	// Same prometheus name under a different registry key still conflicts.
	assert.Error(t, reg.RegisterCounter("b", "m2", mk()))
}

func TestUnregister(t *testing.T) {
	reg := NewMetricsRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_depth",
		Help: "test gauge",
	})
	require.NoError(t, reg.RegisterGauge("sub", "depth", gauge))

	assert.True(t, reg.Unregister("sub", "depth"))
	assert.False(t, reg.Unregister("sub", "depth"), "second unregister is a no-op")

	// Name is free again after unregister.
	assert.NoError(t, reg.RegisterGauge("sub", "depth", gauge))
}

func TestHandlerServesExposition(t *testing.T) {
	reg := NewMetricsRegistry()
	reg.CoreMetrics().FeatureCalls.WithLabelValues("plant-a", "tag-search").Inc()

	srv := httptest.NewServer(reg.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	buf := make([]byte, 1<<20)
	n, _ := resp.Body.Read(buf)
	body := string(buf[:n])
	assert.Contains(t, body, "adapterkit_feature_calls_total")
}
