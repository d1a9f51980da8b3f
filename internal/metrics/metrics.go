package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Webhook metrics
	WebhookDurationSeconds *prometheus.HistogramVec
	WebhookRequestsTotal   *prometheus.CounterVec
	WebhookBatchEvents     prometheus.Histogram

	// Reply metrics
	ReplySendsTotal *prometheus.CounterVec
	LoopbackTotal   prometheus.Counter

	// HTTP metrics
	HTTPErrorsTotal *prometheus.CounterVec

	// Catalog metrics
	CatalogTriggers prometheus.Gauge
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		// Webhook metrics
		WebhookDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "linebot_webhook_duration_seconds",
				Help:    "Event processing duration in seconds by event type",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5}, // Faster buckets for webhook
			},
			[]string{"event_type"}, // event_type: message, postback, follow
		),

		WebhookRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "linebot_webhook_requests_total",
				Help: "Total number of webhook events by event type and status",
			},
			[]string{"event_type", "status"}, // status: replied, skipped, ignored, failed
		),

		WebhookBatchEvents: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "linebot_webhook_batch_events",
				Help:    "Number of events per webhook request",
				Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
			},
		),

		// Reply metrics
		ReplySendsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "linebot_reply_sends_total",
				Help: "Total number of outbound reply and push calls by status",
			},
			[]string{"status"}, // status: success, error
		),

		LoopbackTotal: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "linebot_loopback_events_total",
				Help: "Total number of loopback test events skipped",
			},
		),

		// HTTP metrics
		HTTPErrorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "linebot_http_errors_total",
				Help: "Total webhook requests rejected before event processing",
			},
			[]string{"error_type"}, // error_type: invalid_signature, malformed_body
		),

		// Catalog metrics
		CatalogTriggers: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "linebot_catalog_triggers",
				Help: "Number of text triggers in the loaded reply catalog",
			},
		),
	}

	return m
}

// RecordWebhook records the outcome of a single webhook event.
func (m *Metrics) RecordWebhook(eventType, status string, duration float64) {
	if m == nil {
		return
	}
	m.WebhookRequestsTotal.WithLabelValues(eventType, status).Inc()
	m.WebhookDurationSeconds.WithLabelValues(eventType).Observe(duration)
}

// RecordBatch records the number of events in one webhook request.
func (m *Metrics) RecordBatch(events int) {
	if m == nil {
		return
	}
	m.WebhookBatchEvents.Observe(float64(events))
}

// RecordReplySend records an outbound send attempt
func (m *Metrics) RecordReplySend(status string) {
	if m == nil {
		return
	}
	m.ReplySendsTotal.WithLabelValues(status).Inc()
}

// RecordLoopback records a skipped loopback event
func (m *Metrics) RecordLoopback() {
	if m == nil {
		return
	}
	m.LoopbackTotal.Inc()
}

// RecordHTTPError records HTTP error metrics
func (m *Metrics) RecordHTTPError(errorType string) {
	if m == nil {
		return
	}
	m.HTTPErrorsTotal.WithLabelValues(errorType).Inc()
}

// SetCatalogTriggers records the size of the loaded catalog
func (m *Metrics) SetCatalogTriggers(n int) {
	if m == nil {
		return
	}
	m.CatalogTriggers.Set(float64(n))
}
