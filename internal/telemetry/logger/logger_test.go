package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log %q: %v", buf.String(), err)
	}
	return entry
}

// ============================================================
// Construction and Levels
// ============================================================

func TestNew_Formats(t *testing.T) {
	for _, format := range []string{"json", "text", "console", ""} {
		t.Run("format="+format, func(t *testing.T) {
			var buf bytes.Buffer
			l, err := New(Config{Level: "info", Format: format, Output: &buf})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			l.Info("ready")
			out := buf.String()
			isJSON := strings.HasPrefix(out, "{")
			wantJSON := format != "text" && format != "console"
			if isJSON != wantJSON {
				t.Errorf("output %q: json=%v, want %v", out, isJSON, wantJSON)
			}
		})
	}
}

func TestSetLevel_FiltersEntries(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "warn", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	l.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info entry written at warn level: %q", buf.String())
	}
	if l.Level() != "warn" {
		t.Errorf("Level() = %q, want warn", l.Level())
	}

	// A derived logger shares the root's level.
	child := l.Named("config")
	child.SetLevel("debug")
	l.Debug("kept")
	if entry := decodeEntry(t, &buf); entry["msg"] != "kept" {
		t.Errorf("msg = %v, want kept", entry["msg"])
	}
}

func TestSetLevel_IndependentRoots(t *testing.T) {
	a, _ := New(Config{Level: "info"})
	b, _ := New(Config{Level: "info"})

	a.SetLevel("error")
	if b.Level() != "info" {
		t.Errorf("b.Level() = %q, changing a should not affect b", b.Level())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]string{
		"debug": "DEBUG", "INFO": "INFO", "warning": "WARN", "error": "ERROR", "bogus": "INFO",
	}
	for in, want := range tests {
		if got := parseLevel(in).String(); got != want {
			t.Errorf("parseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

// ============================================================
// Child Loggers
// ============================================================

func TestLogger_NamedAndWith(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	l.Named("aof").With("file", "db.aof").Info("opened")
	entry := decodeEntry(t, &buf)
	if entry["component"] != "aof" || entry["file"] != "db.aof" {
		t.Errorf("entry = %v", entry)
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Error("ignored", "k", "v")
	l.Named("x").With("a", 1).Info("ignored")
	if l.Level() != "error" {
		t.Errorf("Nop().Level() = %q", l.Level())
	}
}
