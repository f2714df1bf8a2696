// Package metrics exposes the server's Prometheus instrumentation,
// following the teacher's prometheus.go: one struct of collectors
// built with promauto (so they self-register), one constructor, and a
// /metrics handler via promhttp.Handler(). The concerns tracked here
// are the pipeline's own (frames produced, subscriber counts, drops,
// queue depth) rather than the teacher's noise-floor/decoder metrics,
// which have no counterpart in this server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the broadcast core reports.
type Metrics struct {
	FramesProduced   prometheus.Counter
	AudioSubscribers prometheus.Gauge
	WaterfallSubscribers prometheus.Gauge
	EventSubscribers prometheus.Gauge

	BackpressureDrops *prometheus.CounterVec // label: kind=audio|waterfall
	DSPErrors         prometheus.Counter
	EncoderErrors     prometheus.Counter

	QueueDepth prometheus.Gauge
}

// New creates and registers every collector with the default registry.
func New() *Metrics {
	return &Metrics{
		FramesProduced: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sdrbroadcast_frames_produced_total",
			Help: "Total FFT frames produced by the engine.",
		}),
		AudioSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "sdrbroadcast_audio_subscribers",
			Help: "Current number of connected /audio subscribers.",
		}),
		WaterfallSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "sdrbroadcast_waterfall_subscribers",
			Help: "Current number of connected /waterfall subscribers.",
		}),
		EventSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "sdrbroadcast_event_subscribers",
			Help: "Current number of connected /events subscribers.",
		}),
		BackpressureDrops: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sdrbroadcast_backpressure_drops_total",
			Help: "Frames dropped per subscriber because the queued byte cap was exceeded.",
		}, []string{"kind"}),
		DSPErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sdrbroadcast_dsp_errors_total",
			Help: "Frames dropped for a subscriber because demodulation produced a non-finite sample.",
		}),
		EncoderErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sdrbroadcast_encoder_errors_total",
			Help: "Frames dropped for a subscriber because encoding failed.",
		}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "sdrbroadcast_scheduler_queue_depth",
			Help: "Current number of pending tasks in the scheduler's worker queue.",
		}),
	}
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
