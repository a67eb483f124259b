package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"reflect"
	"testing"
)

func newJSONLogger(t *testing.T, buf *bytes.Buffer) Logger {
	t.Helper()
	l, err := New(Config{Level: "info", Format: "json", Output: buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return l
}

func TestRedactSensitive_SensitiveKeyName(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(t, &buf)

	tests := []struct {
		key      string
		value    string
		expected string
	}{
		{"password", "mysecret123", "***REDACTED***"},
		{"requirepass", "hunter2", "***REDACTED***"},
		{"auth_user", "admin", "***REDACTED***"},
		{"client_secret", "xyz", "***REDACTED***"},
		{"credential", "cred123", "***REDACTED***"},
		{"key", "user:1", "user:1"},
		{"password", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			buf.Reset()
			l.Info("test", tt.key, tt.value)

			var logEntry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
				t.Fatalf("Failed to parse JSON log: %v", err)
			}
			if val, _ := logEntry[tt.key].(string); val != tt.expected {
				t.Errorf("Key %q logged as %q, want %q", tt.key, val, tt.expected)
			}
		})
	}
}

func TestRedactSensitive_Group(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(t, &buf)

	l.Info("loaded", slog.Group("server", "password", "pw", "addr", ":6379"))
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}
	group, ok := entry["server"].(map[string]any)
	if !ok {
		t.Fatalf("server group missing: %v", entry)
	}
	if group["password"] != redactedValue || group["addr"] != ":6379" {
		t.Errorf("group = %v", group)
	}
}

func TestRedactArgs(t *testing.T) {
	tests := []struct {
		name string
		cmd  string
		args []string
		want []string
	}{
		{"auth password only", "AUTH", []string{"pw"}, []string{redactedValue}},
		{"auth user and password", "auth", []string{"u", "pw"}, []string{redactedValue, redactedValue}},
		{"hello keeps protover", "hello", []string{"2", "AUTH", "u", "pw"}, []string{"2", redactedValue, redactedValue, redactedValue}},
		{"hello without args", "hello", nil, nil},
		{"set untouched", "set", []string{"k", "v"}, []string{"k", "v"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RedactArgs(tt.cmd, tt.args); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("RedactArgs() = %v, want %v", got, tt.want)
			}
		})
	}

	orig := []string{"pw"}
	RedactArgs("auth", orig)
	if orig[0] != "pw" {
		t.Error("RedactArgs modified its input")
	}
}

func TestIsSensitiveKey(t *testing.T) {
	for key, want := range map[string]bool{
		"password": true, "PASSWORD": true, "requirepass": true, "auth": true,
		"key": false, "addr": false, "component": false,
	} {
		if got := IsSensitiveKey(key); got != want {
			t.Errorf("IsSensitiveKey(%q) = %v, want %v", key, got, want)
		}
	}
}
