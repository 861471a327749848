// Package observer provides OTEL-based observability for strata pipeline runs.
//
// It wraps Provider with an instrumented version that emits traces, metrics,
// and logs via OpenTelemetry, and exposes pipeline-level instruments for
// document, chunk, and enrichment telemetry. Users export to any
// OTEL-compatible backend by setting standard OTEL env vars or a Config
// endpoint.
package observer

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "github.com/nevindra/strata/observer"

// Config controls exporter setup. The zero value defers entirely to the
// standard OTEL env vars (OTEL_EXPORTER_OTLP_ENDPOINT and friends).
type Config struct {
	// Endpoint is the base OTLP HTTP endpoint URL, e.g.
	// "http://localhost:4318". Each signal posts to its standard path
	// under it. Empty means use the exporter defaults / env vars.
	Endpoint string
}

// Instruments holds all OTEL instruments used by the observer wrappers and
// the pipeline record helpers.
type Instruments struct {
	Tracer trace.Tracer
	Meter  metric.Meter
	Logger otellog.Logger

	// Counters
	TokenUsage     metric.Int64Counter
	LLMRequests    metric.Int64Counter
	Documents      metric.Int64Counter
	ChunksProduced metric.Int64Counter
	EnrichOutcomes metric.Int64Counter

	// Histograms
	LLMDuration    metric.Float64Histogram
	ChunkSize      metric.Int64Histogram
	EnrichDuration metric.Float64Histogram
}

// Init sets up OTEL trace, metric, and log providers with OTLP HTTP exporters.
// Configuration comes from cfg.Endpoint when set, otherwise from the standard
// OTEL env vars. Returns a shutdown function that must be called on
// application exit.
func Init(ctx context.Context, cfg Config) (*Instruments, func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName("strata")),
		resource.WithFromEnv(),
	)
	if err != nil {
		return nil, nil, err
	}

	var traceOpts []otlptracehttp.Option
	var metricOpts []otlpmetrichttp.Option
	var logOpts []otlploghttp.Option
	if cfg.Endpoint != "" {
		traceOpts = append(traceOpts, otlptracehttp.WithEndpointURL(cfg.Endpoint))
		metricOpts = append(metricOpts, otlpmetrichttp.WithEndpointURL(cfg.Endpoint))
		logOpts = append(logOpts, otlploghttp.WithEndpointURL(cfg.Endpoint))
	}

	// Trace provider
	traceExp, err := otlptracehttp.New(ctx, traceOpts...)
	if err != nil {
		return nil, nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	// Metric provider
	metricExp, err := otlpmetrichttp.New(ctx, metricOpts...)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, nil, err
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	// Log provider
	logExp, err := otlploghttp.New(ctx, logOpts...)
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, nil, err
	}
	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExp)),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(lp)

	inst, err := newInstruments()
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		_ = lp.Shutdown(ctx)
		return nil, nil, err
	}

	shutdown := func(ctx context.Context) error {
		return errors.Join(
			tp.Shutdown(ctx),
			mp.Shutdown(ctx),
			lp.Shutdown(ctx),
		)
	}

	return inst, shutdown, nil
}

func newInstruments() (*Instruments, error) {
	tracer := otel.Tracer(scopeName)
	meter := otel.Meter(scopeName)
	logger := global.GetLoggerProvider().Logger(scopeName)

	tokenUsage, err := meter.Int64Counter("llm.token.usage",
		metric.WithDescription("Total tokens consumed"),
		metric.WithUnit("{token}"))
	if err != nil {
		return nil, err
	}

	llmRequests, err := meter.Int64Counter("llm.requests",
		metric.WithDescription("LLM request count"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}

	documents, err := meter.Int64Counter("pipeline.documents",
		metric.WithDescription("Documents processed"),
		metric.WithUnit("{document}"))
	if err != nil {
		return nil, err
	}

	chunksProduced, err := meter.Int64Counter("pipeline.chunks",
		metric.WithDescription("Chunks produced"),
		metric.WithUnit("{chunk}"))
	if err != nil {
		return nil, err
	}

	enrichOutcomes, err := meter.Int64Counter("enrich.outcomes",
		metric.WithDescription("Chunk enrichment outcomes"),
		metric.WithUnit("{chunk}"))
	if err != nil {
		return nil, err
	}

	llmDuration, err := meter.Float64Histogram("llm.duration",
		metric.WithDescription("LLM call duration"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	chunkSize, err := meter.Int64Histogram("pipeline.chunk_size",
		metric.WithDescription("Chunk text size distribution"),
		metric.WithUnit("{rune}"))
	if err != nil {
		return nil, err
	}

	enrichDuration, err := meter.Float64Histogram("enrich.duration",
		metric.WithDescription("Per-chunk enrichment call duration"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	return &Instruments{
		Tracer:         tracer,
		Meter:          meter,
		Logger:         logger,
		TokenUsage:     tokenUsage,
		LLMRequests:    llmRequests,
		Documents:      documents,
		ChunksProduced: chunksProduced,
		EnrichOutcomes: enrichOutcomes,
		LLMDuration:    llmDuration,
		ChunkSize:      chunkSize,
		EnrichDuration: enrichDuration,
	}, nil
}
