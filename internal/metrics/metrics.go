// Package metrics defines the Prometheus instrumentation for the bot engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Webhook metrics
	WebhookRequestsTotal   *prometheus.CounterVec
	WebhookDurationSeconds *prometheus.HistogramVec

	// Engine metrics
	UpdatesDedupedTotal   prometheus.Counter
	ItemsCreatedTotal     *prometheus.CounterVec
	ItemsDeletedTotal     prometheus.Counter
	CommandsTotal         *prometheus.CounterVec
	CallbacksTotal        *prometheus.CounterVec
	ShortCodeRetriesTotal prometheus.Counter

	// Delivery metrics
	DeliveryFailuresTotal prometheus.Counter

	// Rate limiter metrics
	RateLimiterDropped *prometheus.CounterVec

	// Store metrics
	StoreDurationSeconds *prometheus.HistogramVec

	// Size gauges (updated periodically by background jobs)
	SizeGauge *prometheus.GaugeVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		WebhookRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tinyvault_webhook_requests_total",
				Help: "Total number of webhook updates by update type and result status",
			},
			[]string{"update_type", "status"}, // status: processed, ignored, error
		),

		WebhookDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tinyvault_webhook_duration_seconds",
				Help:    "Webhook processing duration in seconds by update type",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"update_type"}, // update_type: message, callback
		),

		UpdatesDedupedTotal: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "tinyvault_updates_deduped_total",
				Help: "Total number of updates skipped by the idempotent replay guard",
			},
		),

		ItemsCreatedTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tinyvault_items_created_total",
				Help: "Total number of items created by kind",
			},
			[]string{"kind"}, // kind: url, note
		),

		ItemsDeletedTotal: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "tinyvault_items_deleted_total",
				Help: "Total number of items soft-deleted",
			},
		),

		CommandsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tinyvault_commands_total",
				Help: "Total number of commands routed by command name",
			},
			[]string{"command"},
		),

		CallbacksTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tinyvault_callbacks_total",
				Help: "Total number of callback actions routed by action family",
			},
			[]string{"action"},
		),

		ShortCodeRetriesTotal: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "tinyvault_short_code_retries_total",
				Help: "Total number of short code generation retries caused by collisions",
			},
		),

		DeliveryFailuresTotal: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "tinyvault_delivery_failures_total",
				Help: "Total number of outbound reply deliveries that failed",
			},
		),

		RateLimiterDropped: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tinyvault_rate_limiter_dropped_total",
				Help: "Total number of updates dropped by rate limiter",
			},
			[]string{"limiter_type"}, // limiter_type: user
		),

		StoreDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tinyvault_store_duration_seconds",
				Help:    "Store operation duration in seconds by operation",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"operation"},
		),

		SizeGauge: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tinyvault_size_entries",
				Help: "Current entry counts by entity (users, items, states, dedup)",
			},
			[]string{"entity"},
		),
	}

	return m
}

// RecordWebhook records a processed webhook update
func (m *Metrics) RecordWebhook(updateType, status string, duration float64) {
	m.WebhookRequestsTotal.WithLabelValues(updateType, status).Inc()
	m.WebhookDurationSeconds.WithLabelValues(updateType).Observe(duration)
}

// RecordDeduped records an update skipped by the replay guard
func (m *Metrics) RecordDeduped() {
	m.UpdatesDedupedTotal.Inc()
}

// RecordItemCreated records a created item by kind
func (m *Metrics) RecordItemCreated(kind string) {
	m.ItemsCreatedTotal.WithLabelValues(kind).Inc()
}

// RecordItemDeleted records a soft-deleted item
func (m *Metrics) RecordItemDeleted() {
	m.ItemsDeletedTotal.Inc()
}

// RecordCommand records a routed command
func (m *Metrics) RecordCommand(command string) {
	m.CommandsTotal.WithLabelValues(command).Inc()
}

// RecordCallback records a routed callback action
func (m *Metrics) RecordCallback(action string) {
	m.CallbacksTotal.WithLabelValues(action).Inc()
}

// RecordShortCodeRetry records a short code collision retry
func (m *Metrics) RecordShortCodeRetry() {
	m.ShortCodeRetriesTotal.Inc()
}

// RecordDeliveryFailure records a failed outbound reply
func (m *Metrics) RecordDeliveryFailure() {
	m.DeliveryFailuresTotal.Inc()
}

// RecordRateLimiterDrop records an update dropped by a rate limiter
func (m *Metrics) RecordRateLimiterDrop(limiterType string) {
	m.RateLimiterDropped.WithLabelValues(limiterType).Inc()
}

// SetSize updates an entity size gauge
func (m *Metrics) SetSize(entity string, count int) {
	m.SizeGauge.WithLabelValues(entity).Set(float64(count))
}

// RecordStoreDuration records a store operation duration
func (m *Metrics) RecordStoreDuration(operation string, duration float64) {
	m.StoreDurationSeconds.WithLabelValues(operation).Observe(duration)
}
