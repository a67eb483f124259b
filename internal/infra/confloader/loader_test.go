package confloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type testConfig struct {
	Server struct {
		Addr       string        `koanf:"addr"`
		MaxPending int           `koanf:"max_pending"`
		Graceful   time.Duration `koanf:"graceful_timeout"`
	} `koanf:"server"`
	HTTP struct {
		Enabled bool     `koanf:"enabled"`
		Allow   []string `koanf:"allow"`
	} `koanf:"http"`
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sidermem.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestNewLoader(t *testing.T) {
	l := NewLoader()
	if l == nil {
		t.Fatal("NewLoader() returned nil")
	}
	if l.envPrefix != DefaultEnvPrefix {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, DefaultEnvPrefix)
	}
}

func TestNewLoader_WithOptions(t *testing.T) {
	l := NewLoader(
		WithEnvPrefix("TEST_"),
		WithConfigFile("/path/to/config.yaml"),
		WithOverrides(map[string]any{"server.addr": ":1"}),
	)

	if l.envPrefix != "TEST_" {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, "TEST_")
	}
	if l.filePath != "/path/to/config.yaml" {
		t.Errorf("filePath = %q, want %q", l.filePath, "/path/to/config.yaml")
	}
	if len(l.overrides) != 1 {
		t.Errorf("overrides = %v", l.overrides)
	}
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"SIDER_SERVER_ADDR", "server.addr"},
		{"SIDER_SERVER_MAX_PENDING", "server.max_pending"},
		{"SIDER_STORAGE_APPEND_FSYNC", "storage.append_fsync"},
		{"SIDER_LOG", "log"},
	}
	for _, tt := range tests {
		if got := EnvKey("SIDER_", tt.name); got != tt.want {
			t.Errorf("EnvKey(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestLoader_LoadFile(t *testing.T) {
	path := writeFile(t, `
server:
  addr: "0.0.0.0:6379"
http:
  enabled: true
`)

	l := NewLoader()
	if err := l.LoadFile(path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if addr := l.GetString("server.addr"); addr != "0.0.0.0:6379" {
		t.Errorf("server.addr = %q, want %q", addr, "0.0.0.0:6379")
	}
	if !l.GetBool("http.enabled") {
		t.Error("http.enabled should be true")
	}
}

func TestLoader_LoadFile_NotFound(t *testing.T) {
	l := NewLoader()
	if err := l.LoadFile("/nonexistent/config.yaml"); err == nil {
		t.Error("LoadFile() should return error for nonexistent file")
	}
}

func TestLoader_LoadFile_Empty(t *testing.T) {
	l := NewLoader()
	if err := l.LoadFile(""); err != nil {
		t.Errorf("LoadFile(\"\") should not error, got: %v", err)
	}
}

func TestLoader_LoadEnv(t *testing.T) {
	t.Setenv("SIDER_SERVER_ADDR", "127.0.0.1:7000")
	t.Setenv("SIDER_SERVER_MAX_PENDING", "64")

	l := NewLoader()
	if err := l.LoadEnv(); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}

	if addr := l.GetString("server.addr"); addr != "127.0.0.1:7000" {
		t.Errorf("server.addr = %q, want %q", addr, "127.0.0.1:7000")
	}
	if n := l.GetInt("server.max_pending"); n != 64 {
		t.Errorf("server.max_pending = %d, want 64", n)
	}
}

func TestLoader_LoadEnv_CustomPrefix(t *testing.T) {
	t.Setenv("MYAPP_SERVER_PORT", "9090")

	l := NewLoader(WithEnvPrefix("MYAPP_"))
	if err := l.LoadEnv(); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}

	if port := l.GetString("server.port"); port != "9090" {
		t.Errorf("server.port = %q, want %q", port, "9090")
	}
}

func TestLoader_LoadMap(t *testing.T) {
	l := NewLoader()

	if err := l.LoadMap(map[string]any{
		"server.addr": "localhost:3000",
		"debug":       true,
	}); err != nil {
		t.Fatalf("LoadMap() error = %v", err)
	}

	if addr := l.GetString("server.addr"); addr != "localhost:3000" {
		t.Errorf("server.addr = %q, want %q", addr, "localhost:3000")
	}
	if !l.GetBool("debug") {
		t.Error("debug should be true")
	}
}

// ============================================================================
// Load
// ============================================================================

func TestLoader_Load_Priority(t *testing.T) {
	path := writeFile(t, `
server:
  addr: "from-file:6379"
  max_pending: 10
  graceful_timeout: 1s
`)
	t.Setenv("SIDER_SERVER_ADDR", "from-env:6379")
	t.Setenv("SIDER_SERVER_MAX_PENDING", "20")

	l := NewLoader(
		WithConfigFile(path),
		WithOverrides(map[string]any{"server.max_pending": 30}),
	)

	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr != "from-env:6379" {
		t.Errorf("Addr = %q, want env to override file", cfg.Server.Addr)
	}
	if cfg.Server.MaxPending != 30 {
		t.Errorf("MaxPending = %d, want override to win", cfg.Server.MaxPending)
	}
	if cfg.Server.Graceful != time.Second {
		t.Errorf("Graceful = %v, want 1s from file", cfg.Server.Graceful)
	}
}

func TestLoader_Load_KeepsDefaults(t *testing.T) {
	path := writeFile(t, "http:\n  enabled: true\n")

	var cfg testConfig
	cfg.Server.Addr = "127.0.0.1:6379"
	cfg.Server.MaxPending = 1024

	if err := NewLoader(WithConfigFile(path)).Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:6379" || cfg.Server.MaxPending != 1024 {
		t.Errorf("defaults overwritten: %+v", cfg.Server)
	}
	if !cfg.HTTP.Enabled {
		t.Error("http.enabled should be true")
	}
}

func TestLoader_Load_EnvTypes(t *testing.T) {
	t.Setenv("SIDER_SERVER_GRACEFUL_TIMEOUT", "250ms")
	t.Setenv("SIDER_HTTP_ALLOW", "10.0.0.0/8,127.0.0.1")

	var cfg testConfig
	if err := NewLoader().Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Graceful != 250*time.Millisecond {
		t.Errorf("Graceful = %v, want 250ms", cfg.Server.Graceful)
	}
	if len(cfg.HTTP.Allow) != 2 || cfg.HTTP.Allow[1] != "127.0.0.1" {
		t.Errorf("Allow = %v", cfg.HTTP.Allow)
	}
}

func TestLoader_Load_BadFile(t *testing.T) {
	var cfg testConfig
	if err := NewLoader(WithConfigFile("/nonexistent/sidermem.yaml")).Load(&cfg); err == nil {
		t.Error("Load() should fail for a missing config file")
	}
}

func TestLoader_IsLoaded(t *testing.T) {
	l := NewLoader()

	if l.IsLoaded() {
		t.Error("IsLoaded() should be false before Load()")
	}

	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !l.IsLoaded() {
		t.Error("IsLoaded() should be true after Load()")
	}
}

func TestLoader_Keys(t *testing.T) {
	l := NewLoader()
	_ = l.LoadMap(map[string]any{
		"key1": "value1",
		"key2": "value2",
	})

	if keys := l.Keys(); len(keys) < 2 {
		t.Errorf("Keys() returned %d keys, want at least 2", len(keys))
	}
}

func TestMapProvider_ReadBytes(t *testing.T) {
	if _, err := (mapProvider{}).ReadBytes(); err != ErrReadBytesNotSupported {
		t.Errorf("ReadBytes() error = %v", err)
	}
}
