package server

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/petal-go/petal/pkg/protocol"
)

// tracerName is the tracer used for event spans. The tracer resolves
// through the global provider; configure an SDK provider in main() to
// export spans, otherwise they are no-ops.
const tracerName = "petal"

// eventContext is the root context for event spans. Events arrive over
// a long-lived WebSocket, so there is no per-request context to inherit.
func eventContext() context.Context {
	return context.Background()
}

// eventAttributes builds the span attributes for one client event.
func eventAttributes(sessionID string, ev *protocol.Event) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("petal.session_id", sessionID),
		attribute.String("petal.event.type", ev.Type),
		attribute.String("petal.event.target", ev.Target),
		attribute.Int64("petal.event.seq", int64(ev.Seq)),
	}
}

// recordSpanResult finalizes a span with the handler outcome.
func recordSpanResult(span trace.Span, err error, patches int) {
	span.SetAttributes(attribute.Int("petal.patches", patches))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}
