// Package telemetry wires OpenTelemetry tracing and Prometheus metrics.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	otelprometheus "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"pkt.systems/pslog"
)

const serviceName = "docwatch"

// Bundle owns the providers created by Setup.
type Bundle struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	registry       *prometheus.Registry
	logger         pslog.Logger
}

type otlpTarget struct {
	protocol string // "grpc" or "http"
	endpoint string
	path     string
	insecure bool
}

type otelErrorHandler struct {
	logger pslog.Logger
}

func (h otelErrorHandler) Handle(err error) {
	if err == nil {
		return
	}
	h.logger.Warn("telemetry.exporter.error", "error", err)
}

// Setup always builds the Prometheus-backed meter provider. Tracing is
// enabled only when endpoint is non-empty; otherwise spans go to the
// global no-op provider.
func Setup(ctx context.Context, endpoint string, logger pslog.Logger) (*Bundle, error) {
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	res, err := resource.New(ctx,
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	b := &Bundle{logger: logger, registry: prometheus.NewRegistry()}
	b.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := otelprometheus.New(otelprometheus.WithRegisterer(b.registry))
	if err != nil {
		return nil, fmt.Errorf("telemetry: start prometheus exporter: %w", err)
	}
	b.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	if strings.TrimSpace(endpoint) != "" {
		target, err := resolveOTLPTarget(endpoint)
		if err != nil {
			_ = b.meterProvider.Shutdown(ctx)
			return nil, err
		}
		b.tracerProvider, err = setupTracing(ctx, target, res)
		if err != nil {
			_ = b.meterProvider.Shutdown(ctx)
			return nil, err
		}
		otel.SetTracerProvider(b.tracerProvider)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
		otel.SetErrorHandler(otelErrorHandler{logger: logger})
		logger.Info("telemetry.tracing.enabled",
			"protocol", target.protocol,
			"endpoint", target.endpoint,
			"insecure", target.insecure,
		)
	}
	return b, nil
}

// Meter returns a meter backed by the Prometheus registry.
func (b *Bundle) Meter() metric.Meter {
	return b.meterProvider.Meter("github.com/Leganyst/docwatch")
}

// Handler serves the registry in the Prometheus exposition format.
func (b *Bundle) Handler() http.Handler {
	return promhttp.HandlerFor(b.registry, promhttp.HandlerOpts{Registry: b.registry})
}

func (b *Bundle) Shutdown(ctx context.Context) error {
	if b == nil {
		return nil
	}
	var errs []error
	if b.meterProvider != nil {
		if err := b.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metric shutdown: %w", err))
		}
	}
	if b.tracerProvider != nil {
		if err := b.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("trace shutdown: %w", err))
		}
	}
	if len(errs) > 0 {
		b.logger.Warn("telemetry.shutdown.failed", "error", errors.Join(errs...))
		return errors.Join(errs...)
	}
	b.logger.Info("telemetry.shutdown.complete")
	return nil
}

func setupTracing(ctx context.Context, target otlpTarget, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	var (
		exporter sdktrace.SpanExporter
		err      error
	)
	switch target.protocol {
	case "grpc":
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(target.endpoint),
			otlptracegrpc.WithTimeout(10 * time.Second),
		}
		if target.insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)
	case "http":
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(target.endpoint),
			otlptracehttp.WithTimeout(10 * time.Second),
		}
		if target.path != "" {
			opts = append(opts, otlptracehttp.WithURLPath(target.path))
		}
		if target.insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("telemetry: unsupported protocol %q", target.protocol)
	}
	if err != nil {
		return nil, fmt.Errorf("telemetry: start trace exporter (%s): %w", target.protocol, err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(1.0))),
		sdktrace.WithBatcher(exporter),
	), nil
}

// resolveOTLPTarget accepts host[:port] (plain gRPC) or a grpc://, grpcs://,
// http:// or https:// URL.
func resolveOTLPTarget(raw string) (otlpTarget, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return otlpTarget{}, fmt.Errorf("telemetry: empty endpoint")
	}
	if !strings.Contains(raw, "://") {
		endpoint := raw
		if !strings.Contains(endpoint, ":") {
			endpoint = net.JoinHostPort(endpoint, "4317")
		}
		return otlpTarget{protocol: "grpc", endpoint: endpoint, insecure: true}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return otlpTarget{}, fmt.Errorf("telemetry: parse endpoint: %w", err)
	}
	if u.Host == "" {
		return otlpTarget{}, fmt.Errorf("telemetry: endpoint %q has no host", raw)
	}
	target := otlpTarget{endpoint: u.Host, path: strings.TrimSuffix(u.Path, "/")}
	switch strings.ToLower(u.Scheme) {
	case "grpc":
		target.protocol, target.insecure = "grpc", true
	case "grpcs":
		target.protocol = "grpc"
	case "http":
		target.protocol, target.insecure = "http", true
		if u.Port() == "" {
			target.endpoint = net.JoinHostPort(u.Hostname(), "4318")
		}
	case "https":
		target.protocol = "http"
		if u.Port() == "" {
			target.endpoint = net.JoinHostPort(u.Hostname(), "4318")
		}
	default:
		return otlpTarget{}, fmt.Errorf("telemetry: unsupported scheme %q", u.Scheme)
	}
	if target.protocol == "grpc" && u.Port() == "" {
		target.endpoint = net.JoinHostPort(u.Hostname(), "4317")
	}
	return target, nil
}
