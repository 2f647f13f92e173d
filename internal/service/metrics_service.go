package service

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP surface
// and the submission/classification pipelines.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	submissions     *prometheus.CounterVec
	statuses        *prometheus.CounterVec
	classifications *prometheus.CounterVec
	searchFailures  *prometheus.CounterVec
	dbQueryDuration *prometheus.HistogramVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "submissions_ingested_total",
		Help: "Occurrence submissions accepted for processing",
	}, []string{"source"})

	statuses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "submission_statuses_total",
		Help: "Submission lifecycle statuses recorded",
	}, []string{"status"})

	classifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "classification_decisions_total",
		Help: "Attachment security review decisions",
	}, []string{"state"})

	searchFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "security_search_failures_total",
		Help: "Failed calls to the security rule index",
	}, []string{"index"})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, submissions, statuses, classifications, searchFailures, dbQueryDuration, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		submissions:     submissions,
		statuses:        statuses,
		classifications: classifications,
		searchFailures:  searchFailures,
		dbQueryDuration: dbQueryDuration,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one completed HTTP request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	statusLabel := httpStatusLabel(status)
	s.requestDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(method, path, statusLabel).Inc()
}

// ObserveSubmissionIngested counts one accepted submission.
func (s *MetricsService) ObserveSubmissionIngested(source string) {
	if source == "" {
		source = "unknown"
	}
	s.submissions.WithLabelValues(source).Inc()
}

// ObserveSubmissionStatus counts one recorded lifecycle status.
func (s *MetricsService) ObserveSubmissionStatus(statusType string) {
	s.statuses.WithLabelValues(statusType).Inc()
}

// ObserveClassificationDecision counts one security review decision.
func (s *MetricsService) ObserveClassificationDecision(state string) {
	s.classifications.WithLabelValues(state).Inc()
}

// ObserveSearchFailure counts one failed rule index call.
func (s *MetricsService) ObserveSearchFailure(index string) {
	s.searchFailures.WithLabelValues(index).Inc()
}

// ObserveDBQuery records one database query duration.
func (s *MetricsService) ObserveDBQuery(query string, duration time.Duration) {
	s.dbQueryDuration.WithLabelValues(query).Observe(duration.Seconds())
}

func httpStatusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
