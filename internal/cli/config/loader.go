package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"
)

// HomeDirName is the per-user directory holding CLI state.
const HomeDirName = ".sidermem"

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, HomeDirName, "cli.yaml")
}

// DefaultHistoryPath returns the default REPL history file path.
func DefaultHistoryPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, HomeDirName, "history")
}

// Load loads CLI configuration from file. A missing file yields Default().
func Load(path string) (*CLIConfig, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cli config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse cli config %s: %w", path, err)
	}
	if cfg.Connections == nil {
		cfg.Connections = make(map[string]ConnectionConfig)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid cli config %s: %w", path, err)
	}
	return cfg, nil
}

// Save saves CLI configuration to file with owner-only permissions.
func Save(cfg *CLIConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode cli config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// Validate checks output formats and connection profiles.
func Validate(cfg *CLIConfig) error {
	var errs []error

	if !ValidOutput(cfg.DefaultOutput) {
		errs = append(errs, fmt.Errorf("default_output: unknown format %q", cfg.DefaultOutput))
	}
	for name, conn := range cfg.Connections {
		if conn.Port < 0 || conn.Port > 65535 {
			errs = append(errs, fmt.Errorf("connections.%s.port: %d out of range", name, conn.Port))
		}
		if conn.Username != "" && conn.Password == "" {
			errs = append(errs, fmt.Errorf("connections.%s: username requires a password", name))
		}
	}
	if cfg.CurrentConnection != "" {
		if _, ok := cfg.Connections[cfg.CurrentConnection]; !ok {
			errs = append(errs, fmt.Errorf("current_connection: unknown profile %q", cfg.CurrentConnection))
		}
	}

	return errors.Join(errs...)
}

// ValidOutput reports whether format names a known output format.
func ValidOutput(format string) bool {
	switch strings.ToLower(format) {
	case "text", "raw", "json", "yaml":
		return true
	}
	return false
}
