package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// New registers every collector with the global Prometheus registry, so
// this package exercises a single shared instance across subtests
// rather than calling New() repeatedly (which would panic on duplicate
// registration).
func TestMetrics(t *testing.T) {
	m := New()
	require.NotNil(t, m)

	t.Run("counters and gauges are usable", func(t *testing.T) {
		m.FramesProduced.Inc()
		m.AudioSubscribers.Set(3)
		m.WaterfallSubscribers.Inc()
		m.EventSubscribers.Dec()
		m.DSPErrors.Inc()
		m.EncoderErrors.Inc()
		m.QueueDepth.Set(42)
		m.BackpressureDrops.WithLabelValues("audio").Inc()
		m.BackpressureDrops.WithLabelValues("waterfall").Inc()
	})

	t.Run("handler serves metrics text", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/metrics", nil)
		rec := httptest.NewRecorder()
		Handler().ServeHTTP(rec, req)
		assert.Equal(t, 200, rec.Code)
		assert.Contains(t, rec.Body.String(), "sdrbroadcast_frames_produced_total")
	})
}
