package telemetry

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName scopes every span the rental services start.
const TracerName = "rental"

// Span attribute keys
const (
	SpanAttrTenantID         = "tenant_id"
	SpanAttrAmount           = "amount"
	SpanAttrPaymentMode      = "payment_mode"
	SpanAttrGatewayOrderID   = "gateway_order_id"
	SpanAttrGatewayPaymentID = "gateway_payment_id"
	SpanAttrAllocationMode   = "allocation_mode"
	SpanAttrStrategy         = "allocation_strategy"
	SpanAttrPaymentsCreated  = "payments_created"
)

// SpanOption adjusts how StartSpan opens a span.
type SpanOption func(*spanStart)

type spanStart struct {
	kind  trace.SpanKind
	attrs []attribute.KeyValue
}

// WithAttribute sets an attribute at span start.
func WithAttribute(key string, value any) SpanOption {
	return func(s *spanStart) { s.attrs = append(s.attrs, toAttribute(key, value)) }
}

// WithSpanKind overrides the default internal kind.
func WithSpanKind(kind trace.SpanKind) SpanOption {
	return func(s *spanStart) { s.kind = kind }
}

// StartSpan opens a span on the global provider; the caller ends it.
func StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, trace.Span) {
	s := spanStart{kind: trace.SpanKindInternal}
	for _, opt := range opts {
		opt(&s)
	}
	return otel.Tracer(TracerName).Start(ctx, name,
		trace.WithSpanKind(s.kind),
		trace.WithAttributes(s.attrs...),
	)
}

// StartServiceSpan opens a span named "<service>.<method>", e.g. "payment.verify".
func StartServiceSpan(ctx context.Context, service, method string, opts ...SpanOption) (context.Context, trace.Span) {
	return StartSpan(ctx, service+"."+method, opts...)
}

// SetAttributes sets alternating key/value pairs. Pairs with a non-string
// key are dropped.
func SetAttributes(span trace.Span, keyValues ...any) {
	if span == nil {
		return
	}
	attrs := make([]attribute.KeyValue, 0, len(keyValues)/2)
	for i := 0; i+1 < len(keyValues); i += 2 {
		if key, ok := keyValues[i].(string); ok {
			attrs = append(attrs, toAttribute(key, keyValues[i+1]))
		}
	}
	span.SetAttributes(attrs...)
}

// RecordError marks span failed with err. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetOK marks span successful.
func SetOK(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

// GetTraceID returns the active trace id in ctx, or "".
func GetTraceID(ctx context.Context) string {
	id := trace.SpanContextFromContext(ctx).TraceID()
	if !id.IsValid() {
		return ""
	}
	return id.String()
}

func toAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case bool:
		return attribute.Bool(key, v)
	case decimal.Decimal:
		return attribute.String(key, v.StringFixed(2))
	case uuid.UUID:
		return attribute.String(key, v.String())
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}
