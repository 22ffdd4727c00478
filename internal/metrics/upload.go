package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vectorflow/apps/worker/internal/vector"
)

// Recorder exports upload metrics from its own registry.
type Recorder struct {
	registry *prometheus.Registry

	uploadsTotal   *prometheus.CounterVec
	vectorsTotal   *prometheus.CounterVec
	uploadDuration *prometheus.HistogramVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		uploadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vectorflow",
				Name:      "uploads_total",
				Help:      "Total number of batch uploads by backend and outcome",
			},
			[]string{"backend", "status"}, // "ok" or a failure reason
		),
		vectorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vectorflow",
				Name:      "vectors_uploaded_total",
				Help:      "Total vectors confirmed by the backend",
			},
			[]string{"backend"},
		),
		uploadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "vectorflow",
				Name:      "upload_duration_seconds",
				Help:      "Batch upload duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"backend"},
		),
	}
	r.registry.MustRegister(
		r.uploadsTotal,
		r.vectorsTotal,
		r.uploadDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) ObserveUpload(backend vector.BackendType, vectors int, reason vector.Reason, elapsed time.Duration) {
	status := "ok"
	if reason != "" {
		status = string(reason)
	}
	r.uploadsTotal.WithLabelValues(string(backend), status).Inc()
	r.uploadDuration.WithLabelValues(string(backend)).Observe(elapsed.Seconds())
	if vectors > 0 {
		r.vectorsTotal.WithLabelValues(string(backend)).Add(float64(vectors))
	}
}

// Handler serves GET /metrics.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
