package tracing

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTracedEngine(t *testing.T) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(t.Context()) })

	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{Provider: provider}))
	return r, recorder
}

func attrMap(attrs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value, len(attrs))
	for _, a := range attrs {
		out[a.Key] = a.Value
	}
	return out
}

func TestGinMiddleware_TagsRecipeRoutes(t *testing.T) {
	r, recorder := newTracedEngine(t)
	r.POST("/api/recipes/:id/preview", func(c *gin.Context) {
		c.Set(CostingErrorKindKey, "incompatible_dimension")
		c.Status(http.StatusUnprocessableEntity)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/recipes/42/preview", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "HTTP POST /api/recipes/:id/preview", span.Name())
	attrs := attrMap(span.Attributes())
	assert.Equal(t, "42", attrs["recipe_id"].AsString())
	assert.Equal(t, int64(http.StatusUnprocessableEntity), attrs["http.status_code"].AsInt64())
	assert.Equal(t, "incompatible_dimension", attrs["costing.error_kind"].AsString())
	assert.Equal(t, codes.Unset, span.Status().Code)
}

func TestGinMiddleware_ServerErrorMarksSpan(t *testing.T) {
	r, recorder := newTracedEngine(t)
	r.GET("/api/products", func(c *gin.Context) {
		_ = c.Error(errors.New("db down\nselect * from products"))
		c.Status(http.StatusInternalServerError)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/products", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	require.Len(t, spans[0].Events(), 1)
	_, hasRecipe := attrMap(spans[0].Attributes())["recipe_id"]
	assert.False(t, hasRecipe)
}
