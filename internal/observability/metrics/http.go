package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/rxverify/internal/core/domain"
)

type HTTPServerMetrics struct {
	*upstreamMetrics

	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	searchTotal         *prometheus.CounterVec
	searchResults       *prometheus.HistogramVec
	searchDuration      *prometheus.HistogramVec
	crossCheckTotal     *prometheus.CounterVec
	crossCheckDocuments *prometheus.HistogramVec
	disagreementsTotal  *prometheus.CounterVec
	crossCheckDuration  *prometheus.HistogramVec
	sourceFailuresTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rxv",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rxv",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "rxv",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	searchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rxv",
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Total drug searches by strategy and cache outcome.",
		},
		[]string{"service", "strategy", "cache"},
	)
	searchResults := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rxv",
			Subsystem: "search",
			Name:      "results",
			Help:      "Distribution of consolidated results per search.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
		},
		[]string{"service", "strategy"},
	)
	searchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rxv",
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Drug search duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "strategy"},
	)
	crossCheckTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rxv",
			Subsystem: "crosscheck",
			Name:      "requests_total",
			Help:      "Total cross-check answers by retrieval outcome.",
		},
		[]string{"service", "outcome"},
	)
	crossCheckDocuments := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rxv",
			Subsystem: "crosscheck",
			Name:      "documents",
			Help:      "Distribution of source documents per cross-check answer.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	disagreementsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rxv",
			Subsystem: "crosscheck",
			Name:      "disagreements_total",
			Help:      "Total field disagreements reported between sources.",
		},
		[]string{"service"},
	)
	crossCheckDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rxv",
			Subsystem: "crosscheck",
			Name:      "duration_seconds",
			Help:      "Cross-check execution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	sourceFailuresTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rxv",
			Subsystem: "sources",
			Name:      "failures_total",
			Help:      "Total failed upstream source fetches.",
		},
		[]string{"service", "source"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		searchTotal,
		searchResults,
		searchDuration,
		crossCheckTotal,
		crossCheckDocuments,
		disagreementsTotal,
		crossCheckDuration,
		sourceFailuresTotal,
	)

	return &HTTPServerMetrics{
		upstreamMetrics:     newUpstreamMetrics(service, registry),
		registry:            registry,
		service:             service,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		searchTotal:         searchTotal,
		searchResults:       searchResults,
		searchDuration:      searchDuration,
		crossCheckTotal:     crossCheckTotal,
		crossCheckDocuments: crossCheckDocuments,
		disagreementsTotal:  disagreementsTotal,
		crossCheckDuration:  crossCheckDuration,
		sourceFailuresTotal: sourceFailuresTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			m.service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath folds path parameters so label cardinality stays bounded.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/imports/"):
		return "/v1/imports/{request_id}"
	case strings.HasPrefix(path, "/v1/drugs/") && strings.HasSuffix(path, "/vote"):
		return "/v1/drugs/{drug_id}/vote"
	case strings.HasPrefix(path, "/v1/drugs/") && strings.HasSuffix(path, "/rating"):
		return "/v1/drugs/{drug_id}/rating"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) ObserveSearch(strategy domain.Strategy, results int, cacheHit bool, duration time.Duration) {
	cache := "miss"
	if cacheHit {
		cache = "hit"
	}
	label := string(strategy)
	if label == "" {
		label = "unknown"
	}
	m.searchTotal.WithLabelValues(m.service, label, cache).Inc()
	m.searchResults.WithLabelValues(m.service, label).Observe(float64(results))
	m.searchDuration.WithLabelValues(m.service, label).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) ObserveCrossCheck(documents, records, disagreements int, duration time.Duration) {
	outcome := "no_context"
	if documents > 0 {
		outcome = "retrieval_hit"
	}
	m.crossCheckTotal.WithLabelValues(m.service, outcome).Inc()
	m.crossCheckDocuments.WithLabelValues(m.service).Observe(float64(documents))
	m.crossCheckDuration.WithLabelValues(m.service).Observe(duration.Seconds())
	if disagreements > 0 {
		m.disagreementsTotal.WithLabelValues(m.service).Add(float64(disagreements))
	}
}

func (m *HTTPServerMetrics) ObserveSourceFailure(source domain.Source) {
	m.sourceFailuresTotal.WithLabelValues(m.service, string(source)).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
