package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Pipeline metrics
	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskpilot_generations_total",
			Help: "Total number of answer generations",
		},
		[]string{"tier", "status"},
	)

	generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deskpilot_generation_duration_seconds",
			Help:    "Answer generation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tier"},
	)

	tokensStreamedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deskpilot_tokens_streamed_total",
			Help: "Total number of streamed response chunks",
		},
	)

	transcriptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskpilot_transcriptions_total",
			Help: "Total number of transcription attempts",
		},
		[]string{"status"},
	)

	transcriptionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "deskpilot_transcription_duration_seconds",
			Help:    "Transcription round-trip duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	filterRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskpilot_filter_rejections_total",
			Help: "Transcriptions rejected by the noise filter",
		},
		[]string{"reason"},
	)

	screenshotsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskpilot_screenshots_total",
			Help: "Screenshot analyses by path taken",
		},
		[]string{"path", "status"},
	)

	keyRotationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deskpilot_key_rotations_total",
			Help: "Retries that advanced to the next API key",
		},
	)

	// System metrics
	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "deskpilot_active_sessions",
			Help: "Number of live sessions",
		},
	)

	activeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "deskpilot_active_connections",
			Help: "Number of connected clients",
		},
	)

	memoryUsage = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "deskpilot_memory_usage_bytes",
			Help: "Memory usage in bytes",
		},
	)

	goroutines = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "deskpilot_goroutines",
			Help: "Number of goroutines",
		},
	)

	initOnce sync.Once
)

// InitMetrics registers all Prometheus metrics.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			generationsTotal,
			generationDuration,
			tokensStreamedTotal,
			transcriptionsTotal,
			transcriptionDuration,
			filterRejectionsTotal,
			screenshotsTotal,
			keyRotationsTotal,
			activeSessions,
			activeConnections,
			memoryUsage,
			goroutines,
		)
	})
}

// MetricsHandler returns an HTTP handler for Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordGeneration records one generation outcome.
func RecordGeneration(tier, status string, duration time.Duration) {
	generationsTotal.WithLabelValues(tier, status).Inc()
	generationDuration.WithLabelValues(tier).Observe(duration.Seconds())
}

// RecordTokenStreamed counts one streamed chunk.
func RecordTokenStreamed() {
	tokensStreamedTotal.Inc()
}

// RecordTranscription records one transcription attempt.
func RecordTranscription(status string, duration time.Duration) {
	transcriptionsTotal.WithLabelValues(status).Inc()
	transcriptionDuration.Observe(duration.Seconds())
}

// RecordFilterRejection counts a transcription the noise filter dropped.
func RecordFilterRejection(reason string) {
	filterRejectionsTotal.WithLabelValues(reason).Inc()
}

// RecordScreenshot records one screenshot analysis by path (ocr or vision).
func RecordScreenshot(path, status string) {
	screenshotsTotal.WithLabelValues(path, status).Inc()
}

// RecordKeyRotation counts a retry on a fresh API key.
func RecordKeyRotation() {
	keyRotationsTotal.Inc()
}

// SetActiveSessions sets the live session gauge.
func SetActiveSessions(count int) {
	activeSessions.Set(float64(count))
}

// SetActiveConnections sets the connected clients gauge.
func SetActiveConnections(count int) {
	activeConnections.Set(float64(count))
}

// SetMemoryUsage sets the memory usage gauge.
func SetMemoryUsage(bytes uint64) {
	memoryUsage.Set(float64(bytes))
}

// SetGoroutines sets the goroutines gauge.
func SetGoroutines(count int) {
	goroutines.Set(float64(count))
}
