// Package telemetry wires the OpenTelemetry SDK and the process logger.
package telemetry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

type Options struct {
	ServiceName string
	// Endpoint is the host:port of an OTLP gRPC collector. Without one nothing is exported
	// and logs are written as text to LogOutput.
	Endpoint  string
	Insecure  bool
	LogLevel  slog.Level
	LogOutput io.Writer
}

type Telemetry struct {
	Logger         *slog.Logger
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider

	shutdownFuncs []func(context.Context) error
}

// Setup builds the providers described by opts and registers them globally. The caller
// must call Shutdown to flush pending telemetry.
func Setup(ctx context.Context, opts Options) (*Telemetry, error) {
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stderr
	}

	if opts.Endpoint == "" {
		return &Telemetry{
			Logger:         slog.New(slog.NewTextHandler(opts.LogOutput, &slog.HandlerOptions{Level: opts.LogLevel})),
			TracerProvider: otel.GetTracerProvider(),
			MeterProvider:  otel.GetMeterProvider(),
		}, nil
	}

	tel := Telemetry{}

	handleErr := func(err error) (*Telemetry, error) {
		return nil, errors.Join(err, tel.Shutdown(ctx))
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(semconv.ServiceName(opts.ServiceName)),
	)
	if err != nil {
		return handleErr(err)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	tracerProvider, err := newTracerProvider(ctx, opts, res)
	if err != nil {
		return handleErr(err)
	}
	tel.shutdownFuncs = append(tel.shutdownFuncs, tracerProvider.Shutdown)
	otel.SetTracerProvider(tracerProvider)
	tel.TracerProvider = tracerProvider

	meterProvider, err := newMeterProvider(ctx, opts, res)
	if err != nil {
		return handleErr(err)
	}
	tel.shutdownFuncs = append(tel.shutdownFuncs, meterProvider.Shutdown)
	otel.SetMeterProvider(meterProvider)
	tel.MeterProvider = meterProvider

	loggerProvider, err := newLoggerProvider(ctx, opts, res)
	if err != nil {
		return handleErr(err)
	}
	tel.shutdownFuncs = append(tel.shutdownFuncs, loggerProvider.Shutdown)
	global.SetLoggerProvider(loggerProvider)
	tel.Logger = otelslog.NewLogger(opts.ServiceName, otelslog.WithLoggerProvider(loggerProvider))

	return &tel, nil
}

// Shutdown flushes and stops every provider Setup created.
func (tel *Telemetry) Shutdown(ctx context.Context) error {
	var err error
	for _, fn := range tel.shutdownFuncs {
		err = errors.Join(err, fn(ctx))
	}
	tel.shutdownFuncs = nil

	return err
}

func newTracerProvider(ctx context.Context, opts Options, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	options := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		options = append(options, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, options...)
	if err != nil {
		return nil, err
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}

func newMeterProvider(ctx context.Context, opts Options, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	options := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		options = append(options, otlpmetricgrpc.WithInsecure())
	}

	exporter, err := otlpmetricgrpc.New(ctx, options...)
	if err != nil {
		return nil, err
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	), nil
}

func newLoggerProvider(ctx context.Context, opts Options, res *resource.Resource) (*sdklog.LoggerProvider, error) {
	options := []otlploggrpc.Option{otlploggrpc.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		options = append(options, otlploggrpc.WithInsecure())
	}

	exporter, err := otlploggrpc.New(ctx, options...)
	if err != nil {
		return nil, err
	}

	return sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
		sdklog.WithResource(res),
	), nil
}
