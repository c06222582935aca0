package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics mirrors the auth decision metrics onto the global meter provider
type OTelMetrics struct {
	authentications    metric.Int64Counter
	authenticationTime metric.Float64Histogram
	authorizations     metric.Int64Counter
}

// NewOTelMetrics creates the instruments on the global meter provider
func NewOTelMetrics() (*OTelMetrics, error) {
	return NewOTelMetricsWithMeter(otel.Meter("github.com/baynext/baynext"))
}

// NewOTelMetricsWithMeter creates the instruments on meter
func NewOTelMetricsWithMeter(meter metric.Meter) (*OTelMetrics, error) {
	m := &OTelMetrics{}
	var err error

	m.authentications, err = meter.Int64Counter(
		"baynext.auth.authentications",
		metric.WithDescription("Authentication attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create authentications counter: %w", err)
	}

	m.authenticationTime, err = meter.Float64Histogram(
		"baynext.auth.duration",
		metric.WithDescription("Time spent resolving credentials"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create authentication duration histogram: %w", err)
	}

	m.authorizations, err = meter.Int64Counter(
		"baynext.auth.authorizations",
		metric.WithDescription("Project access checks"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create authorizations counter: %w", err)
	}

	return m, nil
}

// RecordAuthentication records one gateway decision
func (m *OTelMetrics) RecordAuthentication(method, outcome string, d time.Duration) {
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("auth.method", method),
		attribute.String("auth.outcome", outcome),
	)
	m.authentications.Add(ctx, 1, attrs)
	m.authenticationTime.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("auth.method", method)))
}

// RecordAuthorization records one project access check
func (m *OTelMetrics) RecordAuthorization(check, outcome string) {
	m.authorizations.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("auth.check", check),
		attribute.String("auth.outcome", outcome),
	))
}

// DecisionRecorder receives both authentication and authorization outcomes
type DecisionRecorder interface {
	RecordAuthentication(method, outcome string, d time.Duration)
	RecordAuthorization(check, outcome string)
}

// Recorders fans decisions out to several recorders
type Recorders []DecisionRecorder

// RecordAuthentication forwards to every recorder
func (rs Recorders) RecordAuthentication(method, outcome string, d time.Duration) {
	for _, r := range rs {
		r.RecordAuthentication(method, outcome, d)
	}
}

// RecordAuthorization forwards to every recorder
func (rs Recorders) RecordAuthorization(check, outcome string) {
	for _, r := range rs {
		r.RecordAuthorization(check, outcome)
	}
}
