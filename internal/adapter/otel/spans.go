package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "planloop"

// StartEventSpan starts a span covering one event's trip through the
// agent loop.
func StartEventSpan(ctx context.Context, eventID, triggerType string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "event",
		trace.WithAttributes(
			attribute.String("event.id", eventID),
			attribute.String("event.trigger_type", triggerType),
		),
	)
}

// StartToolCallSpan starts a span for a gateway tool call.
func StartToolCallSpan(ctx context.Context, requestID, tool string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "toolcall",
		trace.WithAttributes(
			attribute.String("toolcall.id", requestID),
			attribute.String("toolcall.tool", tool),
		),
	)
}

// StartDeliverySpan starts a span for one outbound message delivery.
func StartDeliverySpan(ctx context.Context, messageID, channelID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "delivery",
		trace.WithAttributes(
			attribute.String("message.id", messageID),
			attribute.String("message.channel_id", channelID),
		),
	)
}
