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
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Metrics stores the Prometheus collectors shared by the API and
// worker processes.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal        *prometheus.CounterVec
	httpRequestDuration      *prometheus.HistogramVec
	notificationsSentTotal   *prometheus.CounterVec
	notificationsFailedTotal *prometheus.CounterVec
	rateLimitedTotal         *prometheus.CounterVec
	providerSendDuration     *prometheus.HistogramVec
	deliveryLatency          *prometheus.HistogramVec
	workerInflight           *prometheus.GaugeVec
	retryScheduledTotal      *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pulse",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pulse",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		notificationsSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pulse",
				Name:      "notifications_sent_total",
				Help:      "Total number of notifications delivered successfully.",
			},
			[]string{"channel"},
		),
		notificationsFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pulse",
				Name:      "notifications_failed_total",
				Help:      "Total number of notifications that reached failed state.",
			},
			[]string{"channel", "reason"},
		),
		rateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pulse",
				Name:      "rate_limited_total",
				Help:      "Total number of submissions rejected by the per-user rate limiter.",
			},
			[]string{"channel"},
		),
		providerSendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pulse",
				Name:      "provider_send_duration_seconds",
				Help:      "Provider send duration in seconds grouped by channel.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"channel"},
		),
		deliveryLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pulse",
				Name:      "delivery_latency_seconds",
				Help:      "Time from notification creation to terminal SENT state.",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 16),
			},
			[]string{"channel"},
		),
		workerInflight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "pulse",
				Name:      "worker_inflight",
				Help:      "Current number of in-flight deliveries grouped by channel.",
			},
			[]string{"channel"},
		),
		retryScheduledTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pulse",
				Name:      "retry_scheduled_total",
				Help:      "Total number of notifications scheduled for retry.",
			},
			[]string{"channel"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.notificationsSentTotal,
		m.notificationsFailedTotal,
		m.rateLimitedTotal,
		m.providerSendDuration,
		m.deliveryLatency,
		m.workerInflight,
		m.retryScheduledTotal,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// FiberHandler adapts the scrape endpoint for a fiber route.
func (m *Metrics) FiberHandler() fiber.Handler {
	scrape := fasthttpadaptor.NewFastHTTPHandler(m.Handler())
	return func(c *fiber.Ctx) error {
		scrape(c.Context())
		return nil
	}
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncNotificationSent(channel string) {
	if m == nil {
		return
	}
	m.notificationsSentTotal.WithLabelValues(normalizeChannel(channel)).Inc()
}

func (m *Metrics) IncNotificationFailed(channel string, reason string) {
	if m == nil {
		return
	}
	reasonLabel := strings.TrimSpace(strings.ToLower(reason))
	if reasonLabel == "" {
		reasonLabel = "unknown"
	}
	m.notificationsFailedTotal.WithLabelValues(normalizeChannel(channel), reasonLabel).Inc()
}

func (m *Metrics) IncRateLimited(channel string) {
	if m == nil {
		return
	}
	m.rateLimitedTotal.WithLabelValues(normalizeChannel(channel)).Inc()
}

func (m *Metrics) ObserveProviderSendDuration(channel string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.providerSendDuration.WithLabelValues(normalizeChannel(channel)).Observe(seconds)
}

func (m *Metrics) ObserveDeliveryLatency(channel string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.deliveryLatency.WithLabelValues(normalizeChannel(channel)).Observe(seconds)
}

func (m *Metrics) IncWorkerInFlight(channel string) {
	if m == nil {
		return
	}
	m.workerInflight.WithLabelValues(normalizeChannel(channel)).Inc()
}

func (m *Metrics) DecWorkerInFlight(channel string) {
	if m == nil {
		return
	}
	m.workerInflight.WithLabelValues(normalizeChannel(channel)).Dec()
}

func (m *Metrics) IncRetryScheduled(channel string) {
	if m == nil {
		return
	}
	m.retryScheduledTotal.WithLabelValues(normalizeChannel(channel)).Inc()
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

func normalizeChannel(channel string) string {
	normalized := strings.ToLower(strings.TrimSpace(channel))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
