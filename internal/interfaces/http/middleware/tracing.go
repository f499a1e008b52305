package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// DefaultTracingConfig returns default tracing configuration.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "rental-api",
		Enabled:     true,
	}
}

// TracingWithConfig wraps otelgin and tags the server span with the request id,
// the authenticated user and role, and an error status for 4xx/5xx responses.
// Span names follow "HTTP METHOD route", e.g. "POST /api/razorpay/verify".
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return otelgin.Middleware(cfg.ServiceName)
}

// SpanEnricher copies request attributes onto the active span once the
// handler chain has finished. Register it after TracingWithConfig.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}
		enrichSpan(c, span)
		markSpanStatus(span, c.Writer.Status())
	}
}

func enrichSpan(c *gin.Context, span trace.Span) {
	if requestID := GetRequestID(c); requestID != "" {
		span.SetAttributes(attribute.String("request_id", requestID))
	}
	if claims := GetJWTClaims(c); claims != nil {
		span.SetAttributes(
			attribute.String("user_id", claims.UserID),
			attribute.String("user_role", string(claims.Role)),
		)
	}
}

// markSpanStatus flags error responses. otelgin sets its own blank error
// status for 5xx after this runs, so the text is also kept as an attribute.
func markSpanStatus(span trace.Span, status int) {
	if status < http.StatusBadRequest {
		return
	}
	text := "Client Error"
	switch {
	case status >= http.StatusInternalServerError:
		text = "Internal Server Error"
	case status == http.StatusUnauthorized:
		text = "Unauthorized"
	case status == http.StatusForbidden:
		text = "Forbidden"
	}
	span.SetAttributes(
		attribute.Int("http.status_code", status),
		attribute.String("http.status_text", text),
	)
	span.SetStatus(codes.Error, text)
}
