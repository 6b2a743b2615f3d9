package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		check  func(t *testing.T, buf *bytes.Buffer)
	}{
		{
			name: "text format",
			config: Config{
				Level:  LevelInfo,
				Format: FormatText,
			},
			check: func(t *testing.T, buf *bytes.Buffer) {
				if !strings.Contains(buf.String(), "level=INFO") {
					t.Error("expected text format with level=INFO")
				}
			},
		},
		{
			name: "json format",
			config: Config{
				Level:  LevelInfo,
				Format: FormatJSON,
			},
			check: func(t *testing.T, buf *bytes.Buffer) {
				var m map[string]interface{}
				if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
					t.Errorf("expected valid JSON output: %v", err)
				}
				if m["level"] != "INFO" {
					t.Errorf("expected level INFO, got %v", m["level"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tt.config.Output = buf

			logger := New(tt.config)
			logger.Info("test message")

			tt.check(t, buf)
		})
	}
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		name      string
		level     Level
		logMethod func(l *Logger)
		expected  bool
	}{
		{
			name:      "debug at debug level",
			level:     LevelDebug,
			logMethod: func(l *Logger) { l.Debug("test") },
			expected:  true,
		},
		{
			name:      "debug at info level",
			level:     LevelInfo,
			logMethod: func(l *Logger) { l.Debug("test") },
			expected:  false,
		},
		{
			name:      "info at info level",
			level:     LevelInfo,
			logMethod: func(l *Logger) { l.Info("test") },
			expected:  true,
		},
		{
			name:      "warn at error level",
			level:     LevelError,
			logMethod: func(l *Logger) { l.Warn("test") },
			expected:  false,
		},
		{
			name:      "error at error level",
			level:     LevelError,
			logMethod: func(l *Logger) { l.Error("test") },
			expected:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := New(Config{
				Level:  tt.level,
				Format: FormatText,
				Output: buf,
			})

			tt.logMethod(logger)

			hasOutput := buf.Len() > 0
			if hasOutput != tt.expected {
				t.Errorf("expected output=%v, got output=%v", tt.expected, hasOutput)
			}
		})
	}
}

func TestContextEnrichment(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Config{
		Level:  LevelDebug,
		Format: FormatJSON,
		Output: buf,
	})

	ctx := context.Background()
	ctx = WithCorrelationID(ctx, "corr-123")
	ctx = WithSyncPassID(ctx, "pass-456")
	ctx = WithFlowID(ctx, "onboarding")
	ctx = WithScreenID(ctx, "welcome")

	logger.InfoContext(ctx, "enriched log")

	var m map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}

	expected := map[string]string{
		"correlation_id": "corr-123",
		"sync_pass_id":   "pass-456",
		"flow_id":        "onboarding",
		"screen_id":      "welcome",
	}

	for key, expectedVal := range expected {
		if m[key] != expectedVal {
			t.Errorf("expected %s=%s, got %v", key, expectedVal, m[key])
		}
	}
}

func TestWith(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Config{
		Level:  LevelInfo,
		Format: FormatJSON,
		Output: buf,
	})

	childLogger := logger.With("component", "syncer")
	childLogger.Info("with attributes")

	var m map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}

	if m["component"] != "syncer" {
		t.Errorf("expected component=syncer, got %v", m["component"])
	}
}

func TestWithGroup(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Config{
		Level:  LevelInfo,
		Format: FormatJSON,
		Output: buf,
	})

	childLogger := logger.WithGroup("store")
	childLogger.Info("grouped log", "count", 42)

	var m map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}

	store, ok := m["store"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected store group, got %v", m["store"])
	}

	if store["count"] != float64(42) {
		t.Errorf("expected count=42, got %v", store["count"])
	}
}

func TestCorrelationIDExtraction(t *testing.T) {
	ctx := context.Background()

	if id := CorrelationID(ctx); id != "" {
		t.Errorf("expected empty correlation ID, got %s", id)
	}

	ctx = WithCorrelationID(ctx, "test-id")
	if id := CorrelationID(ctx); id != "test-id" {
		t.Errorf("expected correlation ID 'test-id', got %s", id)
	}
}

func TestDomainLogHelpers(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Config{
		Level:  LevelDebug,
		Format: FormatJSON,
		Output: buf,
	})

	ctx := context.Background()

	t.Run("LogSyncPassStart", func(t *testing.T) {
		buf.Reset()
		LogSyncPassStart(ctx, logger, "pass-1", 3)

		var m map[string]interface{}
		if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
			t.Fatalf("failed to parse JSON: %v", err)
		}

		if m["msg"] != "sync pass started" {
			t.Errorf("unexpected message: %v", m["msg"])
		}
		if m["pending_count"] != float64(3) {
			t.Errorf("unexpected pending_count: %v", m["pending_count"])
		}
	})

	t.Run("LogSyncPassComplete", func(t *testing.T) {
		buf.Reset()
		LogSyncPassComplete(ctx, logger, "pass-1", 3, 5*time.Second)

		var m map[string]interface{}
		if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
			t.Fatalf("failed to parse JSON: %v", err)
		}

		if m["duration_ms"] != float64(5000) {
			t.Errorf("unexpected duration_ms: %v", m["duration_ms"])
		}
		if m["items_synced"] != float64(3) {
			t.Errorf("unexpected items_synced: %v", m["items_synced"])
		}
	})

	t.Run("LogSyncPassFailed", func(t *testing.T) {
		buf.Reset()
		LogSyncPassFailed(ctx, logger, "pass-1", errors.New("connection refused"), 2)

		var m map[string]interface{}
		if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
			t.Fatalf("failed to parse JSON: %v", err)
		}

		if m["error"] != "connection refused" {
			t.Errorf("unexpected error: %v", m["error"])
		}
		if m["retry_count"] != float64(2) {
			t.Errorf("unexpected retry_count: %v", m["retry_count"])
		}
	})

	t.Run("LogConflictDetected", func(t *testing.T) {
		buf.Reset()
		LogConflictDetected(ctx, logger, "welcome", 4, "rev-9")

		var m map[string]interface{}
		if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
			t.Fatalf("failed to parse JSON: %v", err)
		}

		if m["screen_id"] != "welcome" {
			t.Errorf("unexpected screen_id: %v", m["screen_id"])
		}
		if m["remote_version"] != "rev-9" {
			t.Errorf("unexpected remote_version: %v", m["remote_version"])
		}
	})

	t.Run("LogNavigation", func(t *testing.T) {
		buf.Reset()
		LogNavigation(ctx, logger, "onboarding", "signup", 2)

		var m map[string]interface{}
		if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
			t.Fatalf("failed to parse JSON: %v", err)
		}

		if m["flow_id"] != "onboarding" {
			t.Errorf("unexpected flow_id: %v", m["flow_id"])
		}
		if m["stack_depth"] != float64(2) {
			t.Errorf("unexpected stack_depth: %v", m["stack_depth"])
		}
	})
}

func TestDefaultLogger(t *testing.T) {
	// Reset global for test
	global = nil
	globalOnce = sync.Once{}

	logger := Default()
	if logger == nil {
		t.Error("expected non-nil default logger")
	}

	// Calling Default() again should return the same instance
	logger2 := Default()
	if logger != logger2 {
		t.Error("expected same logger instance from Default()")
	}
}
