package xtimber

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	instrumentationName = "github.com/omeyang/xtimber/pkg/observability/xtimber"

	metricEvents            = "xtimber.events"
	metricMisconfigurations = "xtimber.misconfigurations"
)

// 事件结果，作为 xtimber.events 的 outcome 属性
const (
	outcomeDelivered = "delivered"
	outcomeFiltered  = "filtered"
	outcomeFallback  = "fallback"
	outcomeFailed    = "failed"
)

// 诊断原因，作为 xtimber.misconfigurations 的 reason 属性
const (
	reasonUnknownProfile  = "unknown_profile"
	reasonInvalidProfile  = "invalid_profile"
	reasonUnknownSink     = "unknown_sink"
	reasonSinkFactory     = "sink_factory"
	reasonNoSink          = "no_sink"
	reasonTransportFailed = "transport_failed"
	reasonTransportPanic  = "transport_panic"
	reasonSinkClose       = "sink_close"
)

type instruments struct {
	events            metric.Int64Counter
	misconfigurations metric.Int64Counter
}

func newInstruments(provider metric.MeterProvider) (*instruments, error) {
	meter := provider.Meter(instrumentationName)

	events, err := meter.Int64Counter(
		metricEvents,
		metric.WithDescription("log events by level, tag and outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("xtimber: create counter failed: %w", err)
	}

	misconfigurations, err := meter.Int64Counter(
		metricMisconfigurations,
		metric.WithDescription("misconfiguration notices by reason"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("xtimber: create counter failed: %w", err)
	}

	return &instruments{events: events, misconfigurations: misconfigurations}, nil
}

func (m *instruments) event(ctx context.Context, level Level, tag, outcome string) {
	m.events.Add(ctx, 1, metric.WithAttributes(
		attribute.String("level", level.String()),
		attribute.String("tag", tag),
		attribute.String("outcome", outcome),
	))
}

func (m *instruments) misconfiguration(ctx context.Context, reason string) {
	m.misconfigurations.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
