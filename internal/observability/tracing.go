package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/signalsfoundry/intercept-simulator/internal/logging"
)

// TracerName is the instrumentation name used for simulation spans.
const TracerName = "github.com/signalsfoundry/intercept-simulator"

// Supported span exporters.
const (
	ExporterStdout = "stdout"
	ExporterFile   = "file"
	ExporterOTLP   = "otlp"
)

// TracingConfig governs how run tracing is initialised.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Exporter    string
	// Endpoint is the collector address for the otlp exporter.
	Endpoint string
	// File receives one JSON span per line for the file exporter.
	File        string
	SampleRatio float64
}

// TracingConfigFromEnv reads SIM_TRACING_* and SIM_OTLP_ENDPOINT.
func TracingConfigFromEnv() TracingConfig {
	return tracingConfig(os.Getenv)
}

func tracingConfig(getenv func(string) string) TracingConfig {
	cfg := TracingConfig{
		Enabled:     strings.EqualFold(getenv("SIM_TRACING_ENABLED"), "true"),
		ServiceName: getenv("SIM_TRACING_SERVICE_NAME"),
		Exporter:    strings.ToLower(getenv("SIM_TRACING_EXPORTER")),
		Endpoint:    getenv("SIM_OTLP_ENDPOINT"),
		File:        getenv("SIM_TRACING_FILE"),
		SampleRatio: 1,
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "intercept-simulator"
	}
	if cfg.Exporter == "" {
		cfg.Exporter = ExporterStdout
		if cfg.File != "" {
			cfg.Exporter = ExporterFile
		}
	}
	if raw := getenv("SIM_TRACING_SAMPLE_RATIO"); raw != "" {
		if r, err := strconv.ParseFloat(raw, 64); err == nil && r >= 0 && r <= 1 {
			cfg.SampleRatio = r
		}
	}
	return cfg
}

// InitTracing installs the global tracer provider for one run. Spans carry
// the run ID found on ctx as a resource attribute. The returned function
// flushes pending spans and releases the exporter.
func InitTracing(ctx context.Context, cfg TracingConfig, log logging.Logger) (func(context.Context) error, error) {
	if log == nil {
		log = logging.Noop()
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !cfg.Enabled {
		otel.SetTracerProvider(trace.NewNoopTracerProvider())
		log.Debug(ctx, "tracing disabled")
		return func(context.Context) error { return nil }, nil
	}

	exp, closer, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	attrs := []attribute.KeyValue{
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.namespace", "sim"),
	}
	if id := logging.RunIDFromContext(ctx); id != "" {
		attrs = append(attrs, attribute.String("sim.run_id", id))
	}
	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sampler(cfg.SampleRatio)),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	log.Info(ctx, "tracing enabled",
		logging.String("exporter", cfg.Exporter),
		logging.String("service_name", cfg.ServiceName),
		logging.Float("sample_ratio", cfg.SampleRatio),
	)

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), closer.Close())
	}, nil
}

func sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.AlwaysSample()
	case ratio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func newExporter(ctx context.Context, cfg TracingConfig) (sdktrace.SpanExporter, io.Closer, error) {
	switch strings.ToLower(cfg.Exporter) {
	case ExporterStdout, "":
		// Stdout may carry the run report.
		exp, err := stdouttrace.New(
			stdouttrace.WithWriter(os.Stderr),
			stdouttrace.WithPrettyPrint(),
			stdouttrace.WithoutTimestamps(),
		)
		return exp, nopCloser{}, err
	case ExporterFile:
		if cfg.File == "" {
			return nil, nil, errors.New("file exporter needs SIM_TRACING_FILE")
		}
		f, err := os.Create(cfg.File)
		if err != nil {
			return nil, nil, fmt.Errorf("open trace file: %w", err)
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(f))
		if err != nil {
			_ = f.Close()
			return nil, nil, err
		}
		return exp, f, nil
	case ExporterOTLP, "otlpgrpc":
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = "localhost:4317"
		}
		client := otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
		exp, err := otlptrace.New(ctx, client)
		return exp, nopCloser{}, err
	default:
		return nil, nil, fmt.Errorf("unsupported tracing exporter: %s", cfg.Exporter)
	}
}

// ShutdownWithTimeout flushes tracing with a five second bound. Failures are
// logged, not returned.
func ShutdownWithTimeout(ctx context.Context, shutdown func(context.Context) error, log logging.Logger) {
	if shutdown == nil {
		return
	}
	if log == nil {
		log = logging.Noop()
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Warn(ctx, "tracing shutdown failed", logging.Err(err))
	}
}

// Tracer returns the tracer used for simulation spans.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}
