package http

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const httpInstrumentationName = "github.com/fyrsmithlabs/dartrag/internal/http"

// HTTPMetrics records request counts, latency and body size per route
// template. Instruments that fail to register are left nil and skipped.
type HTTPMetrics struct {
	meter    metric.Meter
	logger   *zap.Logger
	requests metric.Int64Counter
	latency  metric.Float64Histogram
	bodySize metric.Int64Histogram
	inFlight metric.Int64UpDownCounter
}

// NewHTTPMetrics builds the instruments on the global meter provider.
func NewHTTPMetrics(logger *zap.Logger) *HTTPMetrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	return newHTTPMetrics(otel.Meter(httpInstrumentationName), logger)
}

func newHTTPMetrics(meter metric.Meter, logger *zap.Logger) *HTTPMetrics {
	m := &HTTPMetrics{meter: meter, logger: logger}

	var err error
	if m.requests, err = meter.Int64Counter(
		"dartrag.http.requests_total",
		metric.WithDescription("HTTP requests by method, route, route group and status."),
		metric.WithUnit("{request}"),
	); err != nil {
		m.warn("requests_total", err)
	}

	// Query and follow-up calls wait on the chat model, so the buckets run
	// out to a minute.
	if m.latency, err = meter.Float64Histogram(
		"dartrag.http.request_duration_seconds",
		metric.WithDescription("HTTP request latency by method, route, route group and status."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 20, 30, 60),
	); err != nil {
		m.warn("request_duration_seconds", err)
	}

	if m.bodySize, err = meter.Int64Histogram(
		"dartrag.http.response_size_bytes",
		metric.WithDescription("Response body size by method, route, route group and status."),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(256, 1024, 4096, 16384, 65536, 262144, 1048576),
	); err != nil {
		m.warn("response_size_bytes", err)
	}

	if m.inFlight, err = meter.Int64UpDownCounter(
		"dartrag.http.active_requests",
		metric.WithDescription("HTTP requests currently in flight."),
		metric.WithUnit("{request}"),
	); err != nil {
		m.warn("active_requests", err)
	}
	return m
}

func (m *HTTPMetrics) warn(instrument string, err error) {
	m.logger.Warn("http metric instrument unavailable",
		zap.String("instrument", instrument), zap.Error(err))
}

// MetricsMiddleware records one observation per request. Handler errors are
// rendered inside the middleware so the status label matches the response.
func (m *HTTPMetrics) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			started := time.Now()

			if m.inFlight != nil {
				m.inFlight.Add(ctx, 1)
				defer m.inFlight.Add(ctx, -1)
			}

			if err := next(c); err != nil {
				c.Error(err)
			}

			route := routeLabel(c.Path())
			opt := metric.WithAttributes(
				attribute.String("method", c.Request().Method),
				attribute.String("endpoint", route),
				attribute.String("route_group", routeGroup(route)),
				attribute.Int("status", c.Response().Status),
			)
			if m.requests != nil {
				m.requests.Add(ctx, 1, opt)
			}
			if m.latency != nil {
				m.latency.Record(ctx, time.Since(started).Seconds(), opt)
			}
			if m.bodySize != nil {
				m.bodySize.Record(ctx, c.Response().Size, opt)
			}
			return nil
		}
	}
}

// routeLabel keeps the matched route template so document IDs and task IDs
// never become label values. Echo reports "" when no route matched.
func routeLabel(path string) string {
	if path == "" {
		return "unmatched"
	}
	return path
}

// routeGroup buckets a route template into the API area it serves.
func routeGroup(route string) string {
	switch {
	case strings.HasPrefix(route, "/api/v1/documents"):
		return "documents"
	case strings.HasSuffix(route, "/search"):
		return "search"
	case strings.HasPrefix(route, "/api/v1/query"):
		return "query"
	case route == "unmatched":
		return "unmatched"
	default:
		return "system"
	}
}
