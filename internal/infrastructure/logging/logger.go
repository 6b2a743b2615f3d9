// Package logging provides structured logging infrastructure for the quicui core.
// It wraps Go's standard log/slog package with context-aware logging, correlation IDs,
// and domain-specific log attributes.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// contextKey is used for storing logger-related values in context.
type contextKey string

const (
	// CorrelationIDKey is the context key for correlation IDs.
	CorrelationIDKey contextKey = "correlation_id"
	// SyncPassIDKey is the context key for sync pass IDs.
	SyncPassIDKey contextKey = "sync_pass_id"
	// FlowIDKey is the context key for flow IDs.
	FlowIDKey contextKey = "flow_id"
	// ScreenIDKey is the context key for screen IDs.
	ScreenIDKey contextKey = "screen_id"
)

// Level represents log levels.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Format represents log output formats.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Config holds logging configuration.
type Config struct {
	Level      Level
	Format     Format
	Output     io.Writer
	AddSource  bool
	TimeFormat string
}

// DefaultConfig returns sensible default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:      LevelInfo,
		Format:     FormatText,
		Output:     os.Stderr,
		AddSource:  false,
		TimeFormat: time.RFC3339,
	}
}

// Logger wraps slog.Logger with additional functionality for the sync core.
type Logger struct {
	slogger *slog.Logger
	level   slog.Level
	mu      sync.RWMutex
}

// global is the package-level default logger.
var (
	global     *Logger
	globalOnce sync.Once
)

// Init initializes the global logger with the provided configuration.
func Init(cfg Config) *Logger {
	globalOnce.Do(func() {
		global = New(cfg)
	})
	return global
}

// Default returns the global logger, initializing it with defaults if necessary.
func Default() *Logger {
	if global == nil {
		Init(DefaultConfig())
	}
	return global
}

// New creates a new Logger with the provided configuration.
func New(cfg Config) *Logger {
	level := parseLevel(cfg.Level)

	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Customize time format
			if a.Key == slog.TimeKey && cfg.TimeFormat != "" {
				if t, ok := a.Value.Any().(time.Time); ok {
					return slog.String(slog.TimeKey, t.Format(cfg.TimeFormat))
				}
			}
			return a
		},
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	switch cfg.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return &Logger{
		slogger: slog.New(handler),
		level:   level,
	}
}

// parseLevel converts a Level to slog.Level.
func parseLevel(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLevel dynamically changes the log level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = parseLevel(level)
}

// With returns a new Logger with the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slogger: l.slogger.With(args...),
		level:   l.level,
	}
}

// WithGroup returns a new Logger with the given group name.
func (l *Logger) WithGroup(name string) *Logger {
	return &Logger{
		slogger: l.slogger.WithGroup(name),
		level:   l.level,
	}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, args ...any) {
	l.slogger.Debug(msg, args...)
}

// Info logs at info level.
func (l *Logger) Info(msg string, args ...any) {
	l.slogger.Info(msg, args...)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, args ...any) {
	l.slogger.Warn(msg, args...)
}

// Error logs at error level.
func (l *Logger) Error(msg string, args ...any) {
	l.slogger.Error(msg, args...)
}

// DebugContext logs at debug level with context.
func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.slogger.DebugContext(ctx, msg, l.enrichArgs(ctx, args)...)
}

// InfoContext logs at info level with context.
func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.slogger.InfoContext(ctx, msg, l.enrichArgs(ctx, args)...)
}

// WarnContext logs at warn level with context.
func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.slogger.WarnContext(ctx, msg, l.enrichArgs(ctx, args)...)
}

// ErrorContext logs at error level with context.
func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.slogger.ErrorContext(ctx, msg, l.enrichArgs(ctx, args)...)
}

// enrichArgs extracts context values and adds them as log attributes.
func (l *Logger) enrichArgs(ctx context.Context, args []any) []any {
	enriched := make([]any, 0, len(args)+8)

	if v := ctx.Value(CorrelationIDKey); v != nil {
		enriched = append(enriched, "correlation_id", v)
	}
	if v := ctx.Value(SyncPassIDKey); v != nil {
		enriched = append(enriched, "sync_pass_id", v)
	}
	if v := ctx.Value(FlowIDKey); v != nil {
		enriched = append(enriched, "flow_id", v)
	}
	if v := ctx.Value(ScreenIDKey); v != nil {
		enriched = append(enriched, "screen_id", v)
	}

	enriched = append(enriched, args...)
	return enriched
}

// Underlying returns the underlying slog.Logger.
func (l *Logger) Underlying() *slog.Logger {
	return l.slogger
}

// --- Context helpers ---

// WithCorrelationID adds a correlation ID to the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, id)
}

// WithSyncPassID adds a sync pass ID to the context.
func WithSyncPassID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SyncPassIDKey, id)
}

// WithFlowID adds a flow ID to the context.
func WithFlowID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, FlowIDKey, id)
}

// WithScreenID adds a screen ID to the context.
func WithScreenID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ScreenIDKey, id)
}

// CorrelationID extracts the correlation ID from context.
func CorrelationID(ctx context.Context) string {
	if v := ctx.Value(CorrelationIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// --- Domain-specific logging helpers ---

// LogSyncPassStart logs the start of a sync pass.
func LogSyncPassStart(ctx context.Context, logger *Logger, passID string, pendingCount int) {
	logger.InfoContext(ctx, "sync pass started",
		"sync_pass_id", passID,
		"pending_count", pendingCount,
	)
}

// LogSyncPassComplete logs the completion of a sync pass.
func LogSyncPassComplete(ctx context.Context, logger *Logger, passID string, itemsSynced int, duration time.Duration) {
	logger.InfoContext(ctx, "sync pass completed",
		"sync_pass_id", passID,
		"items_synced", itemsSynced,
		"duration_ms", duration.Milliseconds(),
	)
}

// LogSyncPassFailed logs a failed sync pass.
func LogSyncPassFailed(ctx context.Context, logger *Logger, passID string, err error, retryCount int) {
	logger.ErrorContext(ctx, "sync pass failed",
		"sync_pass_id", passID,
		"error", err.Error(),
		"retry_count", retryCount,
	)
}

// LogSyncGiveUp logs that the orchestrator stopped retrying after exhausting attempts.
func LogSyncGiveUp(ctx context.Context, logger *Logger, passID string, attempts int) {
	logger.WarnContext(ctx, "sync retries exhausted",
		"sync_pass_id", passID,
		"attempts", attempts,
	)
}

// LogRecordSynced logs a single record reaching the synced state.
func LogRecordSynced(ctx context.Context, logger *Logger, screenID string, version int64) {
	logger.DebugContext(ctx, "record synced",
		"screen_id", screenID,
		"version", version,
	)
}

// LogRecordFailed logs a single record failing to sync.
func LogRecordFailed(ctx context.Context, logger *Logger, screenID string, err error, failedAttempts int) {
	logger.WarnContext(ctx, "record sync failed",
		"screen_id", screenID,
		"error", err.Error(),
		"failed_attempts", failedAttempts,
	)
}

// LogConflictDetected logs a version conflict discovered during a sync pass.
func LogConflictDetected(ctx context.Context, logger *Logger, screenID string, localVersion int64, remoteVersion string) {
	logger.WarnContext(ctx, "sync conflict detected",
		"screen_id", screenID,
		"local_version", localVersion,
		"remote_version", remoteVersion,
	)
}

// LogNavigation logs a navigation transition.
func LogNavigation(ctx context.Context, logger *Logger, flowID, screenID string, stackDepth int) {
	logger.DebugContext(ctx, "navigated",
		"flow_id", flowID,
		"screen_id", screenID,
		"stack_depth", stackDepth,
	)
}

// LogFlowLoaded logs a flow definition load.
func LogFlowLoaded(ctx context.Context, logger *Logger, flowID string, screenCount int, fromCache bool) {
	logger.DebugContext(ctx, "flow loaded",
		"flow_id", flowID,
		"screen_count", screenCount,
		"from_cache", fromCache,
	)
}

// LogCacheInvalidated logs a flow cache invalidation.
func LogCacheInvalidated(ctx context.Context, logger *Logger, resourceLocator string) {
	logger.DebugContext(ctx, "flow cache invalidated",
		"resource_locator", resourceLocator,
	)
}

// LogOfflineQueued logs a remote operation queued while offline.
func LogOfflineQueued(ctx context.Context, logger *Logger, operation, screenID string, queueDepth int) {
	logger.InfoContext(ctx, "operation queued offline",
		"operation", operation,
		"screen_id", screenID,
		"queue_depth", queueDepth,
	)
}
