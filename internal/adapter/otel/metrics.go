// Package otel provides PlanLoop's OpenTelemetry metric instruments.
package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "planloop"

// Metrics holds all PlanLoop metric instruments.
type Metrics struct {
	EventsAccepted   metric.Int64Counter
	EventsProcessed  metric.Int64Counter
	ToolCalls        metric.Int64Counter
	ToolCallFailures metric.Int64Counter
	RBACDenials      metric.Int64Counter
	MessagesSent     metric.Int64Counter
	MessagesDeferred metric.Int64Counter
	ProcessDuration  metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.EventsAccepted, err = meter.Int64Counter("planloop.events.accepted",
		metric.WithDescription("CloudEvents accepted by the ingress"))
	if err != nil {
		return nil, err
	}

	m.EventsProcessed, err = meter.Int64Counter("planloop.events.processed",
		metric.WithDescription("Events consumed by the agent loop"))
	if err != nil {
		return nil, err
	}

	m.ToolCalls, err = meter.Int64Counter("planloop.toolcalls",
		metric.WithDescription("Gateway tool calls executed"))
	if err != nil {
		return nil, err
	}

	m.ToolCallFailures, err = meter.Int64Counter("planloop.toolcalls.failed",
		metric.WithDescription("Gateway tool calls that returned an error"))
	if err != nil {
		return nil, err
	}

	m.RBACDenials, err = meter.Int64Counter("planloop.rbac.denials",
		metric.WithDescription("Tool calls denied by the policy table"))
	if err != nil {
		return nil, err
	}

	m.MessagesSent, err = meter.Int64Counter("planloop.messages.sent",
		metric.WithDescription("Outbound messages delivered"))
	if err != nil {
		return nil, err
	}

	m.MessagesDeferred, err = meter.Int64Counter("planloop.messages.deferred",
		metric.WithDescription("Outbound messages deferred by the rate window"))
	if err != nil {
		return nil, err
	}

	m.ProcessDuration, err = meter.Float64Histogram("planloop.event.duration_seconds",
		metric.WithDescription("Per-event processing duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
