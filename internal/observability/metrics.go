package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by the API and sweep flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDuration        *prometheus.HistogramVec
	reviewDecisionsTotal       *prometheus.CounterVec
	cascadedRejectionsTotal    prometheus.Counter
	applicationsSubmittedTotal prometheus.Counter
	applicationsWithdrawnTotal prometheus.Counter
	remindersSentTotal         *prometheus.CounterVec
	expirationsProcessedTotal  prometheus.Counter
	noticesDedupedTotal        prometheus.Counter
	recountsTotal              prometheus.Counter
	mailPublishFailuresTotal   prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "scholarsphere",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "scholarsphere",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		reviewDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "scholarsphere",
				Name:      "review_decisions_total",
				Help:      "Total number of review decisions by action and outcome.",
			},
			[]string{"action", "outcome"},
		),
		cascadedRejectionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "scholarsphere",
				Name:      "cascaded_rejections_total",
				Help:      "Total number of applications rejected because a competing award was approved.",
			},
		),
		applicationsSubmittedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "scholarsphere",
				Name:      "applications_submitted_total",
				Help:      "Total number of applications and renewal requests submitted.",
			},
		),
		applicationsWithdrawnTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "scholarsphere",
				Name:      "applications_withdrawn_total",
				Help:      "Total number of applications withdrawn by students.",
			},
		),
		remindersSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "scholarsphere",
				Name:      "semester_reminders_sent_total",
				Help:      "Total number of semester-end reminders sent by tier.",
			},
			[]string{"tier"},
		),
		expirationsProcessedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "scholarsphere",
				Name:      "semester_expirations_processed_total",
				Help:      "Total number of approved applications archived as expired.",
			},
		),
		noticesDedupedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "scholarsphere",
				Name:      "semester_notices_deduped_total",
				Help:      "Total number of notices suppressed by the ledger's unique constraint.",
			},
		),
		recountsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "scholarsphere",
				Name:      "scholarship_recounts_total",
				Help:      "Total number of scholarship counter recomputations.",
			},
		),
		mailPublishFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "scholarsphere",
				Name:      "mail_publish_failures_total",
				Help:      "Total number of outbound email messages that failed to publish.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.reviewDecisionsTotal,
		m.cascadedRejectionsTotal,
		m.applicationsSubmittedTotal,
		m.applicationsWithdrawnTotal,
		m.remindersSentTotal,
		m.expirationsProcessedTotal,
		m.noticesDedupedTotal,
		m.recountsTotal,
		m.mailPublishFailuresTotal,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// HTTPMiddleware records request counts and durations. classify maps an error
// returned by a handler to the response status the app's error handler will
// produce; when nil, non-fiber errors count as 500s.
func (m *Metrics) HTTPMiddleware(classify func(error) int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		status := statusFromResult(c, err)
		if err != nil && classify != nil {
			status = classify(err)
		}

		m.recordHTTPRequest(c.Method(), path, status, time.Since(start))
		return err
	}
}

func (m *Metrics) IncReviewDecision(action string, outcome string) {
	if m == nil {
		return
	}
	m.reviewDecisionsTotal.WithLabelValues(normalizeLabel(action), normalizeLabel(outcome)).Inc()
}

func (m *Metrics) IncCascadedRejection() {
	if m == nil {
		return
	}
	m.cascadedRejectionsTotal.Inc()
}

func (m *Metrics) IncApplicationSubmitted() {
	if m == nil {
		return
	}
	m.applicationsSubmittedTotal.Inc()
}

func (m *Metrics) IncApplicationWithdrawn() {
	if m == nil {
		return
	}
	m.applicationsWithdrawnTotal.Inc()
}

func (m *Metrics) IncReminderSent(tier string) {
	if m == nil {
		return
	}
	m.remindersSentTotal.WithLabelValues(normalizeLabel(tier)).Inc()
}

func (m *Metrics) IncExpirationProcessed() {
	if m == nil {
		return
	}
	m.expirationsProcessedTotal.Inc()
}

func (m *Metrics) IncNoticeDeduped() {
	if m == nil {
		return
	}
	m.noticesDedupedTotal.Inc()
}

func (m *Metrics) IncRecount() {
	if m == nil {
		return
	}
	m.recountsTotal.Inc()
}

func (m *Metrics) IncMailPublishFailure() {
	if m == nil {
		return
	}
	m.mailPublishFailuresTotal.Inc()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
