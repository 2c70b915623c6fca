package messaging

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestMessageCarrier(t *testing.T) {
	t.Run("set appends and overwrites", func(t *testing.T) {
		msg := kafka.Message{}
		carrier := NewMessageCarrier(&msg)

		carrier.Set("traceparent", "a")
		carrier.Set("tracestate", "b")
		carrier.Set("traceparent", "c")

		if len(msg.Headers) != 2 {
			t.Fatalf("expected 2 headers, got %d", len(msg.Headers))
		}
		if got := carrier.Get("traceparent"); got != "c" {
			t.Errorf("expected c, got %q", got)
		}
		if got := carrier.Get("missing"); got != "" {
			t.Errorf("expected empty, got %q", got)
		}
		keys := carrier.Keys()
		if len(keys) != 2 || keys[0] != "traceparent" || keys[1] != "tracestate" {
			t.Errorf("unexpected keys: %v", keys)
		}
	})

	t.Run("round-trips trace context", func(t *testing.T) {
		traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
		spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
		sc := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    traceID,
			SpanID:     spanID,
			TraceFlags: trace.FlagsSampled,
		})
		ctx := trace.ContextWithSpanContext(context.Background(), sc)

		propagator := propagation.TraceContext{}
		msg := kafka.Message{Headers: []kafka.Header{{Key: eventTypeHeader, Value: []byte(EventOrderPlaced)}}}
		propagator.Inject(ctx, NewMessageCarrier(&msg))

		extracted := trace.SpanContextFromContext(propagator.Extract(context.Background(), NewMessageCarrier(&msg)))
		if extracted.TraceID() != traceID {
			t.Errorf("expected trace id %s, got %s", traceID, extracted.TraceID())
		}
		if extracted.SpanID() != spanID {
			t.Errorf("expected span id %s, got %s", spanID, extracted.SpanID())
		}
		if got := NewMessageCarrier(&msg).Get(eventTypeHeader); got != EventOrderPlaced {
			t.Errorf("event type header lost: %q", got)
		}
	})
}
