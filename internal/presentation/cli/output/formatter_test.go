package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func newTestFormatter(opts ...Option) (*Formatter, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	all := append([]Option{WithWriter(buf), WithColor(false)}, opts...)
	return NewFormatter(all...), buf
}

func TestPrintln(t *testing.T) {
	f, buf := newTestFormatter()
	if err := f.Println("hello %s", "world"); err != nil {
		t.Fatalf("Println() error = %v", err)
	}
	if got := buf.String(); got != "hello world\n" {
		t.Errorf("output = %q", got)
	}
}

func TestColorizeDisabled(t *testing.T) {
	f, _ := newTestFormatter()
	if got := f.Colorize("text", ColorRed); got != "text" {
		t.Errorf("Colorize() = %q, want plain text with color disabled", got)
	}
}

func TestColorizeEnabled(t *testing.T) {
	f, _ := newTestFormatter(WithColor(true))
	got := f.Colorize("text", ColorGreen)
	if !strings.HasPrefix(got, string(ColorGreen)) || !strings.HasSuffix(got, string(ColorReset)) {
		t.Errorf("Colorize() = %q, want wrapped in color codes", got)
	}
}

func TestStatusMessages(t *testing.T) {
	tests := []struct {
		name string
		fn   func(*Formatter) error
		want string
	}{
		{"success", func(f *Formatter) error { return f.Success("done") }, "✓ done\n"},
		{"error", func(f *Formatter) error { return f.Error("broken") }, "✗ broken\n"},
		{"warning", func(f *Formatter) error { return f.Warning("careful") }, "⚠ careful\n"},
		{"info", func(f *Formatter) error { return f.Info("note") }, "ℹ note\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, buf := newTestFormatter()
			if err := tt.fn(f); err != nil {
				t.Fatalf("error = %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTable(t *testing.T) {
	f, buf := newTestFormatter()
	err := f.Table(TableData{
		Columns: []TableColumn{{Header: "SCREEN"}, {Header: "STATUS"}},
		Rows: [][]string{
			{"welcome", "synced"},
			{"signup", "pending"},
		},
	})
	if err != nil {
		t.Fatalf("Table() error = %v", err)
	}

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %d, want 4:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "SCREEN") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[2], "welcome") || !strings.Contains(lines[2], "synced") {
		t.Errorf("row = %q", lines[2])
	}
}

func TestJSON(t *testing.T) {
	f, buf := newTestFormatter()
	if err := f.JSON(map[string]any{"state": "idle", "pending": 2}); err != nil {
		t.Fatalf("JSON() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["state"] != "idle" {
		t.Errorf("state = %v", decoded["state"])
	}
}

func TestSyncStateText(t *testing.T) {
	f, _ := newTestFormatter(WithColor(true))
	for _, state := range []string{"idle", "in_progress", "completed", "failed", "paused", "conflict"} {
		if got := f.SyncStateText(state); !strings.Contains(got, state) {
			t.Errorf("SyncStateText(%s) = %q, want to contain the state", state, got)
		}
	}
	if got := f.SyncStateText("unknown"); got != "unknown" {
		t.Errorf("SyncStateText(unknown) = %q", got)
	}
}

func TestRelativeTime(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"zero", time.Time{}, "never"},
		{"seconds", time.Now().Add(-30 * time.Second), "30s ago"},
		{"minutes", time.Now().Add(-5 * time.Minute), "5m ago"},
		{"hours", time.Now().Add(-3 * time.Hour), "3h ago"},
		{"days", time.Now().Add(-48 * time.Hour), "2d ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RelativeTime(tt.t); got != tt.want {
				t.Errorf("RelativeTime() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncatePayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		maxLen  int
		want    string
	}{
		{"short", `{"a":1}`, 20, `{"a":1}`},
		{"truncated", `{"type":"column","children":[]}`, 20, `{"type":"column",...`},
		{"collapses whitespace", "{\n  \"a\": 1\n}", 20, `{ "a": 1 }`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncatePayload(tt.payload, tt.maxLen); got != tt.want {
				t.Errorf("TruncatePayload() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"text", FormatText, false},
		{"", FormatText, false},
		{"JSON", FormatJSON, false},
		{"table", FormatTable, false},
		{"xml", FormatText, true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
