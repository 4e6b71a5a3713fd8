package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInit_DisabledUsesNoopTracer(t *testing.T) {
	tel, err := Init(context.Background(), &Config{ServiceName: "waitlist-test"})
	require.NoError(t, err)
	require.NotNil(t, tel.Tracer())

	ctx, span := StartSpan(context.Background(), "service.queue.join")
	defer span.End()
	assert.NotNil(t, ctx)
	assert.Empty(t, GetTraceID(context.Background()))
	assert.NoError(t, Shutdown(context.Background()))
}

func TestInit_NilConfig(t *testing.T) {
	_, err := Init(context.Background(), nil)
	assert.NoError(t, err)
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(0).Description())
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1).Description())
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased")
}

func TestRecordError_NilIsNoop(t *testing.T) {
	_, span := StartSpan(context.Background(), "noop")
	RecordError(span, nil)
	RecordError(span, errors.New("boom"))
	span.End()
}

func TestTracingMiddleware_PassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(TracingMiddleware("waitlist-test"))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestTracingMiddleware_SkipPathsAndTraceHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(TracingMiddleware("waitlist-test",
		WithSkipPaths("/metrics"),
		WithRouteParams("queue_id"),
	))
	router.GET("/metrics", func(c *gin.Context) {
		_, traced := c.Get("trace_id")
		assert.False(t, traced)
		c.Status(http.StatusOK)
	})
	router.GET("/queues/:queue_id", func(c *gin.Context) {
		assert.Equal(t, "q-1", c.Param("queue_id"))
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get(TraceIDHeader))

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/queues/q-1", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
