// Package tracing provides OpenTelemetry-based distributed tracing infrastructure.
// It supports multiple exporters (stdout, OTLP) and provides domain-specific
// span helpers for sync pass and navigation tracing.
package tracing

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	// TracerName is the name used for the quicui tracer.
	TracerName = "github.com/ikolvi/quicui-core"

	// Version is the semantic version of the tracer.
	Version = "1.0.0"
)

// ExporterType defines the type of trace exporter.
type ExporterType string

const (
	ExporterNone   ExporterType = "none"
	ExporterStdout ExporterType = "stdout"
	ExporterOTLP   ExporterType = "otlp"
)

// Config holds tracing configuration.
type Config struct {
	Enabled      bool         // Whether tracing is enabled
	ExporterType ExporterType // Type of exporter to use
	OTLPEndpoint string       // OTLP collector endpoint (for OTLP exporter)
	ServiceName  string       // Service name for traces
	Environment  string       // Deployment environment (development, production)
	SampleRate   float64      // Sampling rate (0.0 to 1.0)
	Output       io.Writer    // Output for stdout exporter (defaults to os.Stdout)
}

// DefaultConfig returns sensible default tracing configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:      false,
		ExporterType: ExporterNone,
		ServiceName:  "quicui",
		Environment:  "development",
		SampleRate:   1.0,
	}
}

// Tracer wraps an OpenTelemetry tracer with domain-specific functionality.
type Tracer struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	config   Config
}

// global is the package-level default tracer.
var (
	global     *Tracer
	globalOnce sync.Once
)

// Init initializes the global tracer with the provided configuration.
func Init(ctx context.Context, cfg Config) (*Tracer, error) {
	var err error
	globalOnce.Do(func() {
		global, err = New(ctx, cfg)
	})
	return global, err
}

// Default returns the global tracer, or a no-op tracer if not initialized.
func Default() *Tracer {
	if global == nil {
		return &Tracer{
			tracer: otel.Tracer(TracerName),
			config: DefaultConfig(),
		}
	}
	return global
}

// New creates a new Tracer with the provided configuration.
func New(ctx context.Context, cfg Config) (*Tracer, error) {
	if !cfg.Enabled || cfg.ExporterType == ExporterNone {
		return &Tracer{
			tracer: noop.NewTracerProvider().Tracer(TracerName),
			config: cfg,
		}, nil
	}

	exporter, err := createExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	// Create resource without merging with Default() to avoid schema URL conflicts.
	// The default resource's schema URL may conflict with our semconv version.
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(Version),
			attribute.String("deployment.environment", cfg.Environment),
		),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var sampler sdktrace.Sampler
	if cfg.SampleRate >= 1.0 {
		sampler = sdktrace.AlwaysSample()
	} else if cfg.SampleRate <= 0.0 {
		sampler = sdktrace.NeverSample()
	} else {
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	otel.SetTracerProvider(provider)

	return &Tracer{
		tracer:   provider.Tracer(TracerName, trace.WithInstrumentationVersion(Version)),
		provider: provider,
		config:   cfg,
	}, nil
}

// createExporter creates the appropriate exporter based on configuration.
func createExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.ExporterType {
	case ExporterStdout:
		opts := []stdouttrace.Option{
			stdouttrace.WithPrettyPrint(),
		}
		if cfg.Output != nil {
			opts = append(opts, stdouttrace.WithWriter(cfg.Output))
		}
		return stdouttrace.New(opts...)

	case ExporterOTLP:
		opts := []otlptracehttp.Option{
			otlptracehttp.WithInsecure(),
		}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.OTLPEndpoint))
		}
		return otlptracehttp.New(ctx, opts...)

	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", cfg.ExporterType)
	}
}

// Shutdown gracefully shuts down the tracer provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider != nil {
		return t.provider.Shutdown(ctx)
	}
	return nil
}

// Start starts a new span with the given name.
func (t *Tracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// SpanFromContext returns the current span from context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// --- Domain-specific span helpers ---

// SyncPassSpan represents a full sync pass span.
type SyncPassSpan struct {
	span trace.Span
	ctx  context.Context
}

// StartSyncPassSpan starts a span covering one sync pass.
func (t *Tracer) StartSyncPassSpan(ctx context.Context, passID string, pendingCount int) (context.Context, *SyncPassSpan) {
	ctx, span := t.tracer.Start(ctx, "sync.pass",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("sync.pass_id", passID),
			attribute.Int("sync.pending_count", pendingCount),
		),
	)

	return ctx, &SyncPassSpan{span: span, ctx: ctx}
}

// SetItemsSynced sets the number of records synced in this pass.
func (ss *SyncPassSpan) SetItemsSynced(count int) {
	ss.span.SetAttributes(attribute.Int("sync.items_synced", count))
}

// SetRetryCount sets the retry attempt this pass represents.
func (ss *SyncPassSpan) SetRetryCount(count int) {
	ss.span.SetAttributes(attribute.Int("sync.retry_count", count))
}

// SetConflictCount sets the number of conflicts discovered in this pass.
func (ss *SyncPassSpan) SetConflictCount(count int) {
	ss.span.SetAttributes(attribute.Int("sync.conflict_count", count))
}

// End ends the sync pass span with success status.
func (ss *SyncPassSpan) End() {
	ss.span.SetStatus(codes.Ok, "sync pass completed")
	ss.span.End()
}

// EndWithError ends the sync pass span with error status.
func (ss *SyncPassSpan) EndWithError(err error) {
	ss.span.RecordError(err)
	ss.span.SetStatus(codes.Error, err.Error())
	ss.span.End()
}

// RecordSpan represents a per-record sync span.
type RecordSpan struct {
	span trace.Span
	ctx  context.Context
}

// StartRecordSpan starts a span for syncing one screen record.
func (t *Tracer) StartRecordSpan(ctx context.Context, screenID string, version int64) (context.Context, *RecordSpan) {
	ctx, span := t.tracer.Start(ctx, "sync.record",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("record.screen_id", screenID),
			attribute.Int64("record.version", version),
		),
	)

	return ctx, &RecordSpan{span: span, ctx: ctx}
}

// SetOperation sets the remote operation performed for this record.
func (rs *RecordSpan) SetOperation(op string) {
	rs.span.SetAttributes(attribute.String("record.operation", op))
}

// SetConflict marks this record as having hit a version conflict.
func (rs *RecordSpan) SetConflict(remoteVersion string) {
	rs.span.SetAttributes(
		attribute.Bool("record.conflict", true),
		attribute.String("record.remote_version", remoteVersion),
	)
}

// End ends the record span with success status.
func (rs *RecordSpan) End() {
	rs.span.SetStatus(codes.Ok, "record synced")
	rs.span.End()
}

// EndWithError ends the record span with error status.
func (rs *RecordSpan) EndWithError(err error) {
	rs.span.RecordError(err)
	rs.span.SetStatus(codes.Error, err.Error())
	rs.span.End()
}

// NavigationSpan represents a navigation transition span.
type NavigationSpan struct {
	span trace.Span
	ctx  context.Context
}

// StartNavigationSpan starts a span for a navigation transition.
func (t *Tracer) StartNavigationSpan(ctx context.Context, flowID, screenID string) (context.Context, *NavigationSpan) {
	ctx, span := t.tracer.Start(ctx, "navigation.transition",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("navigation.flow_id", flowID),
			attribute.String("navigation.screen_id", screenID),
		),
	)

	return ctx, &NavigationSpan{span: span, ctx: ctx}
}

// SetStackDepth sets the navigation stack depth after the transition.
func (ns *NavigationSpan) SetStackDepth(depth int) {
	ns.span.SetAttributes(attribute.Int("navigation.stack_depth", depth))
}

// SetFlowLoad marks that this transition triggered a flow definition load.
func (ns *NavigationSpan) SetFlowLoad(fromCache bool) {
	ns.span.SetAttributes(
		attribute.Bool("navigation.flow_loaded", true),
		attribute.Bool("navigation.flow_from_cache", fromCache),
	)
}

// End ends the navigation span with success status.
func (ns *NavigationSpan) End() {
	ns.span.SetStatus(codes.Ok, "navigation completed")
	ns.span.End()
}

// EndWithError ends the navigation span with error status.
func (ns *NavigationSpan) EndWithError(err error) {
	ns.span.RecordError(err)
	ns.span.SetStatus(codes.Error, err.Error())
	ns.span.End()
}

// AddEvent adds an event to the current span.
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordError records an error on the current span.
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
}

// SetAttribute sets an attribute on the current span.
func SetAttribute(ctx context.Context, key string, value any) {
	span := trace.SpanFromContext(ctx)
	switch v := value.(type) {
	case string:
		span.SetAttributes(attribute.String(key, v))
	case int:
		span.SetAttributes(attribute.Int(key, v))
	case int64:
		span.SetAttributes(attribute.Int64(key, v))
	case float64:
		span.SetAttributes(attribute.Float64(key, v))
	case bool:
		span.SetAttributes(attribute.Bool(key, v))
	}
}
