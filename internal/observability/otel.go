// Package observability configures OpenTelemetry tracing for the listings
// server. Spans go to an OTLP/gRPC exporter and carry a resource naming the
// service, its deployment and the store it runs on.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"google.golang.org/grpc/credentials"

	"github.com/tbourn/go-listings/internal/config"
)

// Shutdown flushes pending spans and stops the tracer provider.
type Shutdown func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Test seams.
var (
	newOTLPClient = otlptracegrpc.NewClient

	newExporter = func(ctx context.Context, client otlptrace.Client) (sdktrace.SpanExporter, error) {
		return otlptrace.New(ctx, client)
	}

	// OTEL_RESOURCE_ATTRIBUTES is read first so the explicit attributes win.
	newResource = func(ctx context.Context, serviceName, version string, attrs []attribute.KeyValue) (*resource.Resource, error) {
		base := []attribute.KeyValue{
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		}
		return resource.New(
			ctx,
			resource.WithFromEnv(),
			resource.WithAttributes(append(base, attrs...)...),
		)
	}
)

// Resource attribute keys describing the listings deployment.
const (
	StoreDriverKey     = attribute.Key("listings.store.driver")
	StoreDatabaseKey   = attribute.Key("listings.store.database")
	StoreCollectionKey = attribute.Key("listings.store.collection")
	StorePathKey       = attribute.Key("listings.store.path")
	SeedOnStartKey     = attribute.Key("listings.seed.on_start")
)

// ResourceAttributes describes the listings process for the trace resource:
// which store backs it, where its data lives and the deployment environment.
func ResourceAttributes(cfg config.Config) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		StoreDriverKey.String(cfg.Store.Driver),
		SeedOnStartKey.Bool(cfg.Seed.OnStart),
	}
	switch cfg.Store.Driver {
	case config.DriverMongo:
		attrs = append(attrs,
			StoreDatabaseKey.String(cfg.Store.Mongo.Database),
			StoreCollectionKey.String(cfg.Store.Mongo.Collection),
		)
	case config.DriverSQLite:
		attrs = append(attrs, StorePathKey.String(cfg.Store.DBPath))
	}
	if cfg.OTEL.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(cfg.OTEL.Environment))
	}
	return attrs
}

// Setup installs the global tracer provider and propagator described by cfg,
// adding attrs to the service resource. When tracing is disabled it changes
// nothing and returns a no-op Shutdown. On error the globals are left untouched.
func Setup(ctx context.Context, cfg config.OTELConfig, version string, attrs ...attribute.KeyValue) (Shutdown, error) {
	if !cfg.Enabled {
		return noopShutdown, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	} else {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")))
	}

	exp, err := newExporter(ctx, newOTLPClient(opts...))
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}

	res, err := newResource(ctx, cfg.ServiceName, version, attrs)
	if err != nil {
		_ = exp.Shutdown(ctx)
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(Sampler(cfg.SampleRatio)),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

// Sampler returns a parent-based sampler for ratio. Ratios at or beyond the
// [0,1] bounds collapse to always/never sampling.
func Sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case ratio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}
