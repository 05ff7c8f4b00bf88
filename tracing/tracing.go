// Package tracing wires OpenTelemetry for the wiki session and its MCP tools.
// Spans are exported over OTLP/HTTP when an endpoint is configured, and
// otherwise written to stderr, since stdout carries the MCP protocol.
package tracing

import (
	"context"
	"io"
	"os"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the instrumentation scope of every span
const TracerName = "mediawiki-session"

// Config selects how spans are sampled and where they go
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Enabled        bool

	// OTLPEndpoint is host:port of an OTLP/HTTP collector; empty means stderr
	OTLPEndpoint string

	// SampleRate is the fraction of root traces kept, clamped to [0, 1]
	SampleRate float64

	// Output receives pretty-printed spans when OTLPEndpoint is empty (default os.Stderr)
	Output io.Writer
}

// DefaultConfig reads OTEL_ENABLED, OTEL_EXPORTER_OTLP_ENDPOINT,
// OTEL_SERVICE_NAME, OTEL_ENVIRONMENT and OTEL_SAMPLE_RATE.
// Setting an endpoint enables tracing on its own.
func DefaultConfig() Config {
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")

	rate := 1.0
	if v, err := strconv.ParseFloat(os.Getenv("OTEL_SAMPLE_RATE"), 64); err == nil {
		rate = v
	}

	return Config{
		ServiceName:    getEnvOrDefault("OTEL_SERVICE_NAME", TracerName),
		ServiceVersion: "1.0.0",
		Environment:    getEnvOrDefault("OTEL_ENVIRONMENT", "development"),
		Enabled:        os.Getenv("OTEL_ENABLED") == "true" || endpoint != "",
		OTLPEndpoint:   endpoint,
		SampleRate:     rate,
	}
}

// Setup installs a global tracer provider and propagator. The returned
// function flushes and stops the exporter; it is a no-op when tracing is
// disabled.
func Setup(ctx context.Context, config Config) (func(context.Context) error, error) {
	if !config.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	res, err := newResource(config)
	if err != nil {
		return nil, err
	}
	exporter, err := newExporter(ctx, config)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(config.SampleRate)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

// newResource describes this service on top of the SDK's default resource.
// The service attributes carry no schema URL, so the merge never conflicts
// with the schema the SDK version pins.
func newResource(config Config) (*resource.Resource, error) {
	service := resource.NewSchemaless(
		semconv.ServiceName(config.ServiceName),
		semconv.ServiceVersion(config.ServiceVersion),
		attribute.String("deployment.environment.name", config.Environment),
	)
	return resource.Merge(resource.Default(), service)
}

func newExporter(ctx context.Context, config Config) (sdktrace.SpanExporter, error) {
	if config.OTLPEndpoint != "" {
		return otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(config.OTLPEndpoint),
			otlptracehttp.WithInsecure(),
		)
	}
	out := config.Output
	if out == nil {
		out = os.Stderr
	}
	return stdouttrace.New(stdouttrace.WithWriter(out), stdouttrace.WithPrettyPrint())
}

// newSampler keeps the caller's decision for child spans and applies rate
// to new traces only.
func newSampler(rate float64) sdktrace.Sampler {
	var root sdktrace.Sampler
	switch {
	case rate >= 1:
		root = sdktrace.AlwaysSample()
	case rate <= 0:
		root = sdktrace.NeverSample()
	default:
		root = sdktrace.TraceIDRatioBased(rate)
	}
	return sdktrace.ParentBased(root)
}

// Tracer returns the named tracer
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartSpan starts a span under the package tracer
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// AddToolAttributes tags a span with the MCP tool being run
func AddToolAttributes(span trace.Span, toolName, category string) {
	span.SetAttributes(
		attribute.String("mcp.tool.name", toolName),
		attribute.String("mcp.tool.category", category),
	)
}

// AddAPIAttributes describes one wiki API round trip
func AddAPIAttributes(span trace.Span, action, method, sessionID string) {
	span.SetAttributes(
		attribute.String("wiki.api.action", action),
		attribute.String("http.request.method", method),
	)
	if sessionID != "" {
		span.SetAttributes(attribute.String("wiki.session.id", sessionID))
	}
}

// AddPageAttributes tags a span with the page it concerns
func AddPageAttributes(span trace.Span, title string) {
	if title != "" {
		span.SetAttributes(attribute.String("wiki.page.title", title))
	}
}

// RecordError records err on the span and marks it failed
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
