package tracing

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

func clearOTelEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_SERVICE_NAME",
		"OTEL_ENVIRONMENT", "OTEL_SAMPLE_RATE",
	} {
		t.Setenv(key, "")
	}
}

// recordSpans installs an in-memory provider for the test and returns its recorder
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	prev := otel.GetTracerProvider()
	rec := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return rec
}

func attrMap(kvs []attribute.KeyValue) map[string]string {
	out := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		out[string(kv.Key)] = kv.Value.Emit()
	}
	return out
}

func TestDefaultConfig(t *testing.T) {
	clearOTelEnv(t)

	cfg := DefaultConfig()

	if cfg.Enabled {
		t.Error("tracing should be off without OTEL_ENABLED or an endpoint")
	}
	if cfg.ServiceName != TracerName || cfg.Environment != "development" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.SampleRate != 1 {
		t.Errorf("SampleRate = %v, want 1", cfg.SampleRate)
	}
}

func TestDefaultConfig_FromEnv(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		wantEnabled bool
		wantRate    float64
	}{
		{"flag enables", map[string]string{"OTEL_ENABLED": "true"}, true, 1},
		{"endpoint enables", map[string]string{"OTEL_EXPORTER_OTLP_ENDPOINT": "collector:4318"}, true, 1},
		{"flag other than true", map[string]string{"OTEL_ENABLED": "yes"}, false, 1},
		{"sample rate", map[string]string{"OTEL_SAMPLE_RATE": "0.25"}, false, 0.25},
		{"bad sample rate", map[string]string{"OTEL_SAMPLE_RATE": "half"}, false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearOTelEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg := DefaultConfig()
			if cfg.Enabled != tt.wantEnabled {
				t.Errorf("Enabled = %v, want %v", cfg.Enabled, tt.wantEnabled)
			}
			if cfg.SampleRate != tt.wantRate {
				t.Errorf("SampleRate = %v, want %v", cfg.SampleRate, tt.wantRate)
			}
		})
	}

	t.Run("service name and environment", func(t *testing.T) {
		clearOTelEnv(t)
		t.Setenv("OTEL_SERVICE_NAME", "wiki-bot")
		t.Setenv("OTEL_ENVIRONMENT", "production")

		cfg := DefaultConfig()
		if cfg.ServiceName != "wiki-bot" || cfg.Environment != "production" {
			t.Errorf("cfg = %+v", cfg)
		}
	})
}

func TestSetup_DisabledIsNoop(t *testing.T) {
	prev := otel.GetTracerProvider()

	shutdown, err := Setup(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
	if otel.GetTracerProvider() != prev {
		t.Error("disabled Setup must not replace the global provider")
	}
}

func TestSetup_ExportsToOutput(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	shutdown, err := Setup(context.Background(), Config{
		ServiceName:    "wiki-test",
		ServiceVersion: "9.9.9",
		Environment:    "test",
		Enabled:        true,
		SampleRate:     1,
		Output:         &buf,
	})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}

	_, span := StartSpan(context.Background(), "wiki.api.query")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"wiki.api.query", "wiki-test", "9.9.9"} {
		if !strings.Contains(out, want) {
			t.Errorf("exported spans lack %q", want)
		}
	}
}

func TestSetup_AnySampleRate(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	for _, rate := range []float64{-0.5, 0, 0.5, 1, 1.5} {
		var buf bytes.Buffer
		shutdown, err := Setup(context.Background(), Config{
			ServiceName: "wiki-test",
			Enabled:     true,
			SampleRate:  rate,
			Output:      &buf,
		})
		if err != nil {
			t.Fatalf("rate %v: Setup: %v", rate, err)
		}
		_ = shutdown(context.Background())
	}
}

func TestNewResource_MergesWithSDKDefault(t *testing.T) {
	res, err := newResource(Config{ServiceName: "wiki-test", ServiceVersion: "1.2.3", Environment: "ci"})
	if err != nil {
		t.Fatalf("newResource: %v", err)
	}

	if got := res.SchemaURL(); got != resource.Default().SchemaURL() {
		t.Errorf("SchemaURL = %q, want the SDK default %q", got, resource.Default().SchemaURL())
	}

	attrs := attrMap(res.Attributes())
	if attrs[string(semconv.ServiceNameKey)] != "wiki-test" {
		t.Errorf("service.name = %q", attrs[string(semconv.ServiceNameKey)])
	}
	if attrs[string(semconv.ServiceVersionKey)] != "1.2.3" {
		t.Errorf("service.version = %q", attrs[string(semconv.ServiceVersionKey)])
	}
	if attrs["deployment.environment.name"] != "ci" {
		t.Errorf("deployment.environment.name = %q", attrs["deployment.environment.name"])
	}
	if attrs["telemetry.sdk.language"] != "go" {
		t.Error("SDK default attributes should survive the merge")
	}
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		rate float64
		root string
	}{
		{1, "AlwaysOnSampler"},
		{2, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.5, "TraceIDRatioBased"},
	}

	for _, tt := range tests {
		desc := newSampler(tt.rate).Description()
		if !strings.HasPrefix(desc, "ParentBased{root:"+tt.root) {
			t.Errorf("rate %v: sampler = %s, want root %s", tt.rate, desc, tt.root)
		}
	}
}

func TestSpanHelpers(t *testing.T) {
	rec := recordSpans(t)

	_, span := StartSpan(context.Background(), "mcp.tool.wiki_get_page")
	AddToolAttributes(span, "wiki_get_page", "read")
	AddAPIAttributes(span, "query", "GET", "b7f0c1de")
	AddPageAttributes(span, "Main Page")
	span.End()

	_, bare := StartSpan(context.Background(), "wiki.api.login")
	AddAPIAttributes(bare, "login", "POST", "")
	AddPageAttributes(bare, "")
	bare.End()

	ended := rec.Ended()
	if len(ended) != 2 {
		t.Fatalf("recorded %d spans, want 2", len(ended))
	}

	got := attrMap(ended[0].Attributes())
	want := map[string]string{
		"mcp.tool.name":       "wiki_get_page",
		"mcp.tool.category":   "read",
		"wiki.api.action":     "query",
		"http.request.method": "GET",
		"wiki.session.id":     "b7f0c1de",
		"wiki.page.title":     "Main Page",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}

	bareAttrs := attrMap(ended[1].Attributes())
	if _, ok := bareAttrs["wiki.session.id"]; ok {
		t.Error("empty session id should not be recorded")
	}
	if _, ok := bareAttrs["wiki.page.title"]; ok {
		t.Error("empty title should not be recorded")
	}
}

func TestRecordError(t *testing.T) {
	rec := recordSpans(t)

	_, ok := StartSpan(context.Background(), "ok")
	RecordError(ok, nil)
	ok.End()

	_, failed := StartSpan(context.Background(), "failed")
	RecordError(failed, errors.New("boom"))
	failed.End()

	ended := rec.Ended()
	if ended[0].Status().Code != codes.Unset {
		t.Errorf("nil error changed status to %v", ended[0].Status().Code)
	}
	if ended[1].Status().Code != codes.Error || ended[1].Status().Description != "boom" {
		t.Errorf("status = %+v", ended[1].Status())
	}
	if len(ended[1].Events()) == 0 {
		t.Error("error event should be recorded")
	}
}
