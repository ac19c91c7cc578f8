package tracing

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/recipecost/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "recipecost/http"

	// CostingErrorKindKey is the gin context key the error handler uses to
	// report which costing failure ended the request.
	CostingErrorKindKey = "costing_error_kind"
)

// MiddlewareConfig controls request tracing. A nil Provider uses the global one.
type MiddlewareConfig struct {
	Provider trace.TracerProvider
}

// GinMiddleware opens a server span per request and tags it once the handler
// chain has produced a status.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	provider := cfg.Provider
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	tracer := provider.Tracer(instrumentationName)

	return func(c *gin.Context) {
		method := strings.ToUpper(c.Request.Method)
		parent := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(parent, "HTTP "+method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		ctx = withRequestBaggage(ctx)
		c.Request = c.Request.WithContext(ctx)
		started := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		span.SetName("HTTP " + method + " " + route)
		span.SetAttributes(SafeAttributes(requestAttributes(c, method, route, status, time.Since(started))...)...)

		if status < http.StatusInternalServerError {
			return
		}
		if last := c.Errors.Last(); last != nil {
			if err := SafeError(last.Err); err != nil {
				span.RecordError(err)
			}
		}
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}

func requestAttributes(c *gin.Context, method, route string, status int, elapsed time.Duration) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
		attribute.Int64("http.server_duration_ms", elapsed.Milliseconds()),
	}
	ctx := c.Request.Context()
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		attrs = append(attrs, attribute.String("request_id", requestID))
	}
	if orgID := obscontext.OrgIDFromContext(ctx); orgID != "" {
		attrs = append(attrs, attribute.String("org_id", orgID))
	}
	if strings.HasPrefix(route, "/api/recipes/:id") {
		attrs = append(attrs, attribute.String("recipe_id", c.Param("id")))
	}
	if kind := c.GetString(CostingErrorKindKey); kind != "" {
		attrs = append(attrs, attribute.String("costing.error_kind", kind))
	}
	return attrs
}

// withRequestBaggage forwards the request id to downstream calls.
func withRequestBaggage(ctx context.Context) context.Context {
	requestID := obscontext.RequestIDFromContext(ctx)
	if requestID == "" {
		return ctx
	}
	member, err := baggage.NewMember("request_id", requestID)
	if err != nil {
		return ctx
	}
	bag, err := baggage.FromContext(ctx).SetMember(member)
	if err != nil {
		return ctx
	}
	return baggage.ContextWithBaggage(ctx, bag)
}
