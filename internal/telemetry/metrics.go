package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/steeple"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Tenant resolution metrics
	TenantResolutionsTotal   metric.Int64Counter
	TenantResolutionRetries  metric.Int64Counter
	TenantResolutionDuration metric.Float64Histogram

	// Role classification metrics
	RoleClassificationsTotal metric.Int64Counter

	// Dashboard routing metrics
	RoutingDecisionsTotal metric.Int64Counter
	RoutingTimeoutsTotal  metric.Int64Counter
	RoutingPanicsTotal    metric.Int64Counter

	// Auth metrics
	SignInsTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// RecordResolution counts a tenant resolution by outcome
// (ok, not_found, disabled, unavailable).
func (m *Metrics) RecordResolution(ctx context.Context, outcome string, durationMs float64) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.TenantResolutionsTotal.Add(ctx, 1, attrs)
	m.TenantResolutionDuration.Record(ctx, durationMs, attrs)
}

// RecordSignIn counts a sign-in attempt by result (ok, invalid, error).
func (m *Metrics) RecordSignIn(ctx context.Context, result string) {
	m.SignInsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordRoutingDecision counts a routing decision by view.
func (m *Metrics) RecordRoutingDecision(ctx context.Context, view string, timedOut bool) {
	m.RoutingDecisionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("view", view),
		attribute.Bool("timed_out", timedOut),
	))
	if timedOut {
		m.RoutingTimeoutsTotal.Add(ctx, 1)
	}
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	// Tenant resolution metrics
	m.TenantResolutionsTotal, _ = meter.Int64Counter(
		"steeple.tenant.resolutions.total",
		metric.WithDescription("Total number of tenant resolutions by outcome"),
		metric.WithUnit("{resolution}"),
	)

	m.TenantResolutionRetries, _ = meter.Int64Counter(
		"steeple.tenant.resolution.retries.total",
		metric.WithDescription("Total number of tenant lookups retried after a transient store error"),
		metric.WithUnit("{retry}"),
	)

	m.TenantResolutionDuration, _ = meter.Float64Histogram(
		"steeple.tenant.resolution.duration",
		metric.WithDescription("Duration of tenant resolution including retries"),
		metric.WithUnit("ms"),
	)

	// Role classification metrics
	m.RoleClassificationsTotal, _ = meter.Int64Counter(
		"steeple.role.classifications.total",
		metric.WithDescription("Total number of role classifications by role and outcome"),
		metric.WithUnit("{classification}"),
	)

	// Dashboard routing metrics
	m.RoutingDecisionsTotal, _ = meter.Int64Counter(
		"steeple.routing.decisions.total",
		metric.WithDescription("Total number of dashboard routing decisions by view"),
		metric.WithUnit("{decision}"),
	)

	m.RoutingTimeoutsTotal, _ = meter.Int64Counter(
		"steeple.routing.timeouts.total",
		metric.WithDescription("Total number of routing decisions that fell back after the classification timeout"),
		metric.WithUnit("{timeout}"),
	)

	m.RoutingPanicsTotal, _ = meter.Int64Counter(
		"steeple.routing.panics.total",
		metric.WithDescription("Total number of panics recovered during dashboard routing"),
		metric.WithUnit("{panic}"),
	)

	// Auth metrics
	m.SignInsTotal, _ = meter.Int64Counter(
		"steeple.auth.signins.total",
		metric.WithDescription("Total number of sign-in attempts by result"),
		metric.WithUnit("{attempt}"),
	)

	return m
}
