// Package tracing wires an OpenTelemetry tracer provider for flow runs.
package tracing

import (
	"context"
	"errors"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Provider owns the SDK tracer provider and whatever it writes to.
type Provider struct {
	tp     trace.TracerProvider
	sdk    *sdktrace.TracerProvider
	closer io.Closer
}

// Disabled returns a provider whose tracers record nothing.
func Disabled() *Provider {
	return &Provider{tp: noop.NewTracerProvider()}
}

// New exports spans as JSON to outputFile, or to stderr when it is empty.
func New(serviceName, serviceVersion, outputFile string) (*Provider, error) {
	var (
		w      io.Writer = os.Stderr
		closer io.Closer
	)
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return nil, err
		}
		w, closer = f, f
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, err
	}
	p, err := NewWithExporter(serviceName, serviceVersion, exporter)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, err
	}
	p.closer = closer
	return p, nil
}

// NewWithExporter configures the SDK with any span exporter, synchronously.
func NewWithExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) (*Provider, error) {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}
	sdk := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithResource(res),
	)
	return &Provider{tp: sdk, sdk: sdk}, nil
}

// Tracer returns a named tracer.
func (p *Provider) Tracer(name string) trace.Tracer {
	return p.tp.Tracer(name)
}

// Install makes the provider the process-wide default.
func (p *Provider) Install() {
	otel.SetTracerProvider(p.tp)
}

// Shutdown flushes pending spans and closes the output file.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.sdk != nil {
		errs = append(errs, p.sdk.Shutdown(ctx))
	}
	if p.closer != nil {
		errs = append(errs, p.closer.Close())
	}
	return errors.Join(errs...)
}
