package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer sets up a test tracer provider and returns the span recorder.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
	})

	return sr
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	return attrs
}

func tracedRouter() *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), TracingWithConfig(TracingConfig{Enabled: true, ServiceName: "billhub-test"}), SpanAttributes())
	return router
}

func TestTracingWithConfig_Disabled(t *testing.T) {
	sr := setupTestTracer(t)

	router := gin.New()
	router.Use(TracingWithConfig(TracingConfig{Enabled: false}))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sr.Ended())
}

func TestSpanAttributes_BillRoute(t *testing.T) {
	sr := setupTestTracer(t)
	router := tracedRouter()
	router.POST("/bills/:id/items/:item_id/refund", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodPost,
		"/bills/6f1c2f7e-3f5c-4b57-9a57-3f0f7b6c1d11/items/0c2a9a3d-8d8e-4d55-9d5e-2a4b6f3c7e21/refund", nil)
	req.Header.Set(RequestIDHeader, "req-trace")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "POST /bills/:id/items/:item_id/refund", spans[0].Name())

	attrs := spanAttrs(spans[0])
	assert.Equal(t, "req-trace", attrs["request_id"].AsString())
	assert.Equal(t, "6f1c2f7e-3f5c-4b57-9a57-3f0f7b6c1d11", attrs["bill.id"].AsString())
	assert.Equal(t, "0c2a9a3d-8d8e-4d55-9d5e-2a4b6f3c7e21", attrs["item.id"].AsString())
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestSpanAttributes_IgnoresMalformedIDs(t *testing.T) {
	sr := setupTestTracer(t)
	router := tracedRouter()
	router.GET("/bills/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bills/not-a-uuid", nil))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	_, ok := spanAttrs(spans[0])["bill.id"]
	assert.False(t, ok)
}

func TestSpanAttributes_MarksErrors(t *testing.T) {
	sr := setupTestTracer(t)
	router := tracedRouter()
	router.POST("/bills/:id/settle", func(c *gin.Context) {
		c.Set(ErrorCodeKey, "ERR_INVALID_STATE")
		c.Status(http.StatusUnprocessableEntity)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/bills/6f1c2f7e-3f5c-4b57-9a57-3f0f7b6c1d11/settle", nil))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	attrs := spanAttrs(spans[0])
	assert.Equal(t, "ERR_INVALID_STATE", attrs["error.code"].AsString())
}
