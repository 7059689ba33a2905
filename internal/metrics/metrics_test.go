package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRequest(t *testing.T) {
	m := New()

	m.ObserveRequest("/detect", http.MethodPost, http.StatusOK, 20*time.Millisecond)
	m.ObserveRequest("/detect", http.MethodPost, http.StatusOK, 30*time.Millisecond)
	m.ObserveRequest("/detect", http.MethodPost, http.StatusRequestEntityTooLarge, time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.requestCount.WithLabelValues("/detect", http.MethodPost, "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requestCount.WithLabelValues("/detect", http.MethodPost, "413")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.requestDuration))
}

func TestObservePrediction(t *testing.T) {
	m := New()

	m.ObservePrediction("supported", 50*time.Millisecond)
	m.ObservePrediction("invalid", 10*time.Millisecond)
	m.ObservePrediction("supported", 70*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.predictions.WithLabelValues("supported")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.predictions.WithLabelValues("invalid")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("/", http.MethodGet, http.StatusOK, time.Millisecond)
		m.ObservePrediction("supported", time.Millisecond)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObservePrediction("unsupported", time.Millisecond)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `leaf_predictions_total{outcome="unsupported"} 1`)
	assert.Contains(t, body, "leaf_inference_duration_seconds_bucket")
	assert.Contains(t, body, "go_goroutines")
}
