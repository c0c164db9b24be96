package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/neurlang/melvoice/analysis"
)

// Metrics holds the collectors updated by the handlers.
type Metrics struct {
	Requests      *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	AudioDuration *prometheus.HistogramVec
	InFlight      prometheus.Gauge
}

// NewMetrics registers the service collectors, plus the Go and process
// collectors, on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "melvoice_requests_total",
			Help: "Analysis requests by outcome and audio format.",
		}, []string{"outcome", "format"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "melvoice_stage_duration_seconds",
			Help:    "Wall time of each pipeline stage.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"stage"}),
		AudioDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "melvoice_audio_duration_seconds",
			Help:    "Duration of decoded uploads.",
			Buckets: []float64{1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"format"}),
		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "melvoice_in_flight",
			Help: "Analyses currently running.",
		}),
	}
}

func (m *Metrics) observe(format string, r *analysis.Report, err error) {
	if format == "" {
		format = "unknown"
	}
	outcome := "success"
	if err != nil {
		outcome = analysis.KindOf(err).String()
	}
	m.Requests.WithLabelValues(outcome, format).Inc()
	if r == nil {
		return
	}
	for _, t := range r.Timings {
		m.StageDuration.WithLabelValues(t.Stage).Observe(t.Duration.Seconds())
	}
	if r.Duration > 0 {
		m.AudioDuration.WithLabelValues(format).Observe(r.Duration.Seconds())
	}
}
