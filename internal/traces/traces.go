// Package traces provides OpenTelemetry distributed tracing for the storefront.
package traces

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/auditelle/storefront"

// Options configures the tracer provider.
type Options struct {
	// Endpoint is the OTLP gRPC collector address; empty disables tracing.
	Endpoint string
	// Insecure skips TLS towards the collector, for a local sidecar.
	Insecure bool
	// SampleRatio is the share of root traces kept, in (0, 1]. Zero keeps
	// everything.
	SampleRatio float64
	ResellerID  string
	Environment string
	Version     string
}

// Init installs the global tracer provider and returns its shutdown
// function. Without an endpoint the global no-op provider stays in place.
func Init(ctx context.Context, opts Options, logger *slog.Logger) (func(context.Context) error, error) {
	if opts.Endpoint == "" {
		logger.Info("tracing disabled (no OTEL_EXPORTER_OTLP_ENDPOINT set)")
		return func(context.Context) error { return nil }, nil
	}

	clientOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		clientOpts = append(clientOpts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("traces: exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(resourceAttrs(opts)...))
	if err != nil {
		return nil, fmt.Errorf("traces: resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(opts.SampleRatio)),
	)
	otel.SetTracerProvider(tp)

	logger.Info("tracing enabled", "endpoint", opts.Endpoint, "sample_ratio", opts.SampleRatio)
	return tp.Shutdown, nil
}

func resourceAttrs(opts Options) []attribute.KeyValue {
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	attrs := []attribute.KeyValue{
		semconv.ServiceName("storefront"),
		semconv.ServiceVersion(version),
	}
	if opts.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(opts.Environment))
	}
	if opts.ResellerID != "" {
		attrs = append(attrs, Reseller(opts.ResellerID))
	}
	return attrs
}

// sampler keeps a parent's decision and samples new traces at ratio.
func sampler(ratio float64) sdktrace.Sampler {
	if ratio <= 0 || ratio >= 1 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

// StartSpan starts a new span with the given name and returns the updated context and span.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, name)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

// End records err on span, if any, and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Common attribute helpers for consistent span decoration.

func Reseller(id string) attribute.KeyValue {
	return attribute.String("reseller.id", id)
}

func Plan(plan string) attribute.KeyValue {
	return attribute.String("plan", plan)
}

func UserID(id string) attribute.KeyValue {
	return attribute.String("user.id", id)
}

func DetectionMode(mode string) attribute.KeyValue {
	return attribute.String("detection.mode", mode)
}

func TextLength(n int) attribute.KeyValue {
	return attribute.Int("text.length", n)
}

func StripeEvent(eventType string) attribute.KeyValue {
	return attribute.String("stripe.event_type", eventType)
}
