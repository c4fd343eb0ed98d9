package observability

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/signalsfoundry/intercept-simulator/internal/logging"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestTracingConfigFromEnv(t *testing.T) {
	t.Setenv("SIM_TRACING_ENABLED", "TRUE")
	t.Setenv("SIM_TRACING_EXPORTER", "OTLP")
	t.Setenv("SIM_TRACING_SERVICE_NAME", "")
	t.Setenv("SIM_TRACING_SAMPLE_RATIO", "0.25")
	t.Setenv("SIM_OTLP_ENDPOINT", "collector:4317")

	cfg := TracingConfigFromEnv()
	if !cfg.Enabled || cfg.Exporter != ExporterOTLP || cfg.Endpoint != "collector:4317" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.ServiceName != "intercept-simulator" {
		t.Fatalf("service name = %q", cfg.ServiceName)
	}
	if cfg.SampleRatio != 0.25 {
		t.Fatalf("sample ratio = %v", cfg.SampleRatio)
	}
}

func TestTracingConfigDefaults(t *testing.T) {
	cfg := tracingConfig(env(map[string]string{"SIM_TRACING_SAMPLE_RATIO": "7"}))
	if cfg.SampleRatio != 1 || cfg.Exporter != ExporterStdout || cfg.Enabled {
		t.Fatalf("cfg = %+v", cfg)
	}

	cfg = tracingConfig(env(map[string]string{"SIM_TRACING_FILE": "spans.json"}))
	if cfg.Exporter != ExporterFile || cfg.File != "spans.json" {
		t.Fatalf("a trace file should select the file exporter: %+v", cfg)
	}
}

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{}, nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestInitTracingRejectsBadExporters(t *testing.T) {
	for _, cfg := range []TracingConfig{
		{Enabled: true, Exporter: "zipkin", SampleRatio: 1},
		{Enabled: true, Exporter: ExporterFile, SampleRatio: 1},
	} {
		if _, err := InitTracing(context.Background(), cfg, nil); err == nil {
			t.Fatalf("expected an error for %+v", cfg)
		}
	}
}

func TestFileExporterWritesRunSpans(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spans.json")
	ctx := logging.ContextWithRunID(context.Background(), "run-42")

	shutdown, err := InitTracing(ctx, TracingConfig{
		Enabled:     true,
		ServiceName: "test",
		Exporter:    ExporterFile,
		File:        path,
		SampleRatio: 1,
	}, logging.Noop())
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	t.Cleanup(func() { _, _ = InitTracing(context.Background(), TracingConfig{}, nil) })

	_, span := Tracer().Start(ctx, "sim.run")
	span.End()
	ShutdownWithTimeout(ctx, shutdown, nil)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read spans: %v", err)
	}
	for _, want := range []string{"sim.run", "run-42"} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("trace file missing %q:\n%s", want, data)
		}
	}
}
