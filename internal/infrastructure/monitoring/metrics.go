// Package monitoring exposes Prometheus metrics for the planning pipeline
// and the HTTP surface.
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/alchemorsel/vitaplan/internal/ports/outbound"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "vitaplan"

// MetricsCollector handles Prometheus metrics collection
type MetricsCollector struct {
	logger   *zap.Logger
	gatherer prometheus.Gatherer

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// Pipeline metrics
	retrievalTotal     *prometheus.CounterVec
	retrievalDuration  *prometheus.HistogramVec
	retrievalRelations prometheus.Histogram
	generationTotal    *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	assessmentsTotal   *prometheus.CounterVec
	assessmentScore    *prometheus.HistogramVec
	semanticFailures   *prometheus.CounterVec
	runsTotal          *prometheus.CounterVec
	runDuration        *prometheus.HistogramVec
	candidatesTotal    *prometheus.CounterVec
	droppedTotal       *prometheus.CounterVec
	cacheOperations    *prometheus.CounterVec
}

var _ outbound.MetricsRecorder = (*MetricsCollector)(nil)

// NewMetricsCollector registers the collectors on reg. gatherer serves
// the /metrics endpoint and is usually the same registry.
func NewMetricsCollector(reg prometheus.Registerer, gatherer prometheus.Gatherer, logger *zap.Logger) *MetricsCollector {
	factory := promauto.With(reg)

	return &MetricsCollector{
		logger:   logger.Named("metrics"),
		gatherer: gatherer,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
			},
			[]string{"method", "path", "status_code"},
		),
		httpResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_response_size_bytes",
				Help:      "HTTP response size in bytes",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "path", "status_code"},
		),

		retrievalTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retrieval_total",
				Help:      "Knowledge retrievals by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		retrievalDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "retrieval_duration_seconds",
				Help:      "Knowledge retrieval duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
		retrievalRelations: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "retrieval_relations",
				Help:      "Relations returned per retrieval",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		generationTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generation_total",
				Help:      "Base plan generations by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		generationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_duration_seconds",
				Help:      "Base plan generation duration in seconds",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 90},
			},
			[]string{"kind"},
		),
		assessmentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "assessments_total",
				Help:      "Safety assessments by kind and verdict",
			},
			[]string{"kind", "safe"},
		),
		assessmentScore: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "assessment_score",
				Help:      "Final safety score distribution",
				Buckets:   prometheus.LinearBuckets(0, 10, 11),
			},
			[]string{"kind"},
		),
		semanticFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "semantic_assessment_failures_total",
				Help:      "Assessments whose semantic layer failed",
			},
			[]string{"kind"},
		),
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Pipeline runs by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Pipeline run duration in seconds",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 180},
			},
			[]string{"kind"},
		),
		candidatesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "candidates_total",
				Help:      "Assessed candidates produced",
			},
			[]string{"kind"},
		),
		droppedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "candidates_dropped_total",
				Help:      "Bases or variants dropped after failures",
			},
			[]string{"kind"},
		),
		cacheOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_operations_total",
				Help:      "Cache lookups by cache and result",
			},
			[]string{"cache", "result"},
		),
	}
}

// HTTPMiddleware creates a Gin middleware for HTTP metrics collection
func (m *MetricsCollector) HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		statusCode := strconv.Itoa(c.Writer.Status())

		m.httpRequestsTotal.WithLabelValues(c.Request.Method, path, statusCode).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, path, statusCode).Observe(time.Since(start).Seconds())
		m.httpResponseSize.WithLabelValues(c.Request.Method, path, statusCode).Observe(float64(c.Writer.Size()))
	}
}

// ObserveRetrieval records one retrieval call
func (m *MetricsCollector) ObserveRetrieval(mode, outcome string, relations int, d time.Duration) {
	m.retrievalTotal.WithLabelValues(mode, outcome).Inc()
	m.retrievalDuration.WithLabelValues(mode).Observe(d.Seconds())
	m.retrievalRelations.Observe(float64(relations))
}

// ObserveGeneration records one base plan generation
func (m *MetricsCollector) ObserveGeneration(kind, outcome string, d time.Duration) {
	m.generationTotal.WithLabelValues(kind, outcome).Inc()
	m.generationDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// ObserveAssessment records one safety assessment
func (m *MetricsCollector) ObserveAssessment(kind string, score float64, safe, semanticOK bool) {
	m.assessmentsTotal.WithLabelValues(kind, strconv.FormatBool(safe)).Inc()
	m.assessmentScore.WithLabelValues(kind).Observe(score)
	if !semanticOK {
		m.semanticFailures.WithLabelValues(kind).Inc()
	}
}

// ObserveRun records one per-kind pipeline run
func (m *MetricsCollector) ObserveRun(kind, outcome string, candidates, dropped int, d time.Duration) {
	m.runsTotal.WithLabelValues(kind, outcome).Inc()
	m.runDuration.WithLabelValues(kind).Observe(d.Seconds())
	m.candidatesTotal.WithLabelValues(kind).Add(float64(candidates))
	m.droppedTotal.WithLabelValues(kind).Add(float64(dropped))
}

// ObserveCache records a cache lookup
func (m *MetricsCollector) ObserveCache(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheOperations.WithLabelValues(cache, result).Inc()
}

// Handler returns the Prometheus metrics HTTP handler
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
