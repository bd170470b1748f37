package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry and the domain counters.
type MetricsService struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	remindersSent    prometheus.Counter
	remindersSkipped prometheus.Counter
	remindersFailed  prometheus.Counter

	conflictsDetected *prometheus.CounterVec
	guardianActions   *prometheus.CounterVec
}

// NewMetricsService registers all collectors on a fresh registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		remindersSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reminders_sent_total",
			Help: "Class reminders delivered to guardians.",
		}),
		remindersSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reminders_skipped_total",
			Help: "Bookings skipped because no guardian is reachable.",
		}),
		remindersFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reminders_failed_total",
			Help: "Bookings whose reminder delivery failed.",
		}),
		conflictsDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_conflicts_detected_total",
			Help: "Booking conflicts by classification.",
		}, []string{"type"}),
		guardianActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_actions_total",
			Help: "Guardian webhook actions by kind and result.",
		}, []string{"action", "result"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.remindersSent,
		m.remindersSkipped,
		m.remindersFailed,
		m.conflictsDetected,
		m.guardianActions,
	)
	return m
}

// Handler exposes the registry for the /metrics endpoint.
func (m *MetricsService) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one served HTTP request.
func (m *MetricsService) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// ObserveReminderRun folds a dispatcher report into the counters.
func (m *MetricsService) ObserveReminderRun(report *RunReport) {
	if report == nil {
		return
	}
	m.remindersSent.Add(float64(report.Sent))
	m.remindersSkipped.Add(float64(report.Skipped))
	m.remindersFailed.Add(float64(report.Failed))
}

// ObserveConflict counts one detected conflict by classification.
func (m *MetricsService) ObserveConflict(conflictType string) {
	m.conflictsDetected.WithLabelValues(conflictType).Inc()
}

// ObserveGuardianAction counts one webhook action outcome.
func (m *MetricsService) ObserveGuardianAction(action, result string) {
	m.guardianActions.WithLabelValues(action, result).Inc()
}
