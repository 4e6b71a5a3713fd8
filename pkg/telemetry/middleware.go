package telemetry

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// TraceIDHeader carries the trace id back to the caller
const TraceIDHeader = "X-Trace-ID"

// MiddlewareOption customizes TracingMiddleware
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	skipPaths   map[string]struct{}
	routeParams []string
}

// WithSkipPaths leaves probe and scrape endpoints untraced
func WithSkipPaths(paths ...string) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		for _, p := range paths {
			cfg.skipPaths[p] = struct{}{}
		}
	}
}

// WithRouteParams copies the named path parameters onto the server span
func WithRouteParams(params ...string) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		cfg.routeParams = append(cfg.routeParams, params...)
	}
}

// TracingMiddleware starts a server span per request, named "<METHOD> <route>"
func TracingMiddleware(serviceName string, opts ...MiddlewareOption) gin.HandlerFunc {
	cfg := &middlewareConfig{skipPaths: make(map[string]struct{})}
	for _, opt := range opts {
		opt(cfg)
	}

	tracer := otel.Tracer(serviceName + "/http")
	propagator := otel.GetTextMapPropagator()

	return func(c *gin.Context) {
		if _, skip := cfg.skipPaths[c.Request.URL.Path]; skip {
			c.Next()
			return
		}

		ctx := propagator.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		attrs := []attribute.KeyValue{
			semconv.HTTPMethod(c.Request.Method),
			semconv.HTTPRoute(route),
			semconv.UserAgentOriginal(c.Request.UserAgent()),
			attribute.String("http.client_ip", c.ClientIP()),
		}
		for _, name := range cfg.routeParams {
			if v := c.Param(name); v != "" {
				attrs = append(attrs, attribute.String(name, v))
			}
		}

		ctx, span := tracer.Start(ctx, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attrs...),
		)
		defer span.End()

		if sc := span.SpanContext(); sc.HasTraceID() {
			traceID := sc.TraceID().String()
			c.Header(TraceIDHeader, traceID)
			c.Set("trace_id", traceID)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(semconv.HTTPStatusCode(status))
		if len(c.Errors) > 0 {
			span.RecordError(c.Errors.Last())
		}
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
