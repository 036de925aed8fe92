package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	TaskImport      = "import"
	TaskSearchEvent = "search_event"
)

type WorkerMetrics struct {
	*upstreamMetrics

	registry *prometheus.Registry
	service  string

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight *prometheus.GaugeVec
	queueLag        *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rxv",
			Subsystem: "worker",
			Name:      "task_process_total",
			Help:      "Total processed worker tasks by task and status.",
		},
		[]string{"service", "task", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rxv",
			Subsystem: "worker",
			Name:      "task_process_duration_seconds",
			Help:      "Worker task processing duration in seconds by task and status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "task", "status"},
	)
	processInFlight := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "rxv",
			Subsystem: "worker",
			Name:      "task_process_in_flight",
			Help:      "Number of in-flight worker tasks.",
		},
		[]string{"service", "task"},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rxv",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between message publication and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service", "task"},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, queueLag)

	return &WorkerMetrics{
		upstreamMetrics: newUpstreamMetrics(service, registry),
		registry:        registry,
		service:         service,
		processTotal:    processTotal,
		processDuration: processDuration,
		processInFlight: processInFlight,
		queueLag:        queueLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartTask(task string) {
	m.processInFlight.WithLabelValues(m.service, task).Inc()
}

func (m *WorkerMetrics) FinishTask(task string, duration time.Duration, err error) {
	m.processInFlight.WithLabelValues(m.service, task).Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processTotal.WithLabelValues(m.service, task, status).Inc()
	m.processDuration.WithLabelValues(m.service, task, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(task string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(m.service, task).Observe(lag.Seconds())
}
