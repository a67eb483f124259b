package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/yndnr/sidermem-go/internal/storage/aof"
)

// Verify validates the configuration and reports every problem found.
// A configured storage.db_dir is created if missing.
func Verify(cfg *ServerConfig) error {
	return errors.Join(
		verifyServer(&cfg.Server),
		verifyStorage(&cfg.Storage),
		verifyHTTP(&cfg.HTTP),
		verifyLog(&cfg.Log),
	)
}

func verifyServer(cfg *ServerSection) error {
	var errs []error

	if err := verifyAddr(cfg.Addr); err != nil {
		errs = append(errs, fmt.Errorf("server.addr: %w", err))
	}

	if cfg.TLSEnabled() {
		if cfg.TLSCertFile == "" || cfg.TLSKeyFile == "" {
			errs = append(errs, errors.New("server.tls_cert_file and server.tls_key_file must be set together"))
		}
		for _, f := range []string{cfg.TLSCertFile, cfg.TLSKeyFile, cfg.TLSCAFile} {
			if f == "" {
				continue
			}
			if _, err := os.Stat(f); err != nil {
				errs = append(errs, fmt.Errorf("tls file: %w", err))
			}
		}
	}

	if cfg.TLSCAFile != "" && !cfg.TLSEnabled() {
		errs = append(errs, errors.New("server.tls_ca_file requires server.tls_cert_file and server.tls_key_file"))
	}

	if cfg.Username != "" && cfg.Password == "" {
		errs = append(errs, errors.New("server.password is required when server.username is set"))
	}
	if cfg.GracefulTimeout < 0 {
		errs = append(errs, errors.New("server.graceful_timeout must not be negative"))
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, errors.New("server.idle_timeout must not be negative"))
	}
	if cfg.MaxBufferLength <= 0 {
		errs = append(errs, errors.New("server.max_buffer_length must be positive"))
	}
	if cfg.MaxPending <= 0 {
		errs = append(errs, errors.New("server.max_pending must be positive"))
	}
	if cfg.MaxOutbound <= 0 {
		errs = append(errs, errors.New("server.max_outbound must be positive"))
	}
	if cfg.RateLimit < 0 || cfg.RateBurst < 0 {
		errs = append(errs, errors.New("server.rate_limit and server.rate_burst must not be negative"))
	}

	return errors.Join(errs...)
}

func verifyStorage(cfg *StorageSection) error {
	var errs []error

	if _, err := aof.ParseSyncMode(cfg.AppendFsync); err != nil {
		errs = append(errs, fmt.Errorf("storage.append_fsync: %w", err))
	}
	if cfg.SweepInterval <= 0 {
		errs = append(errs, errors.New("storage.sweep_interval must be positive"))
	}

	if cfg.DBDir != "" {
		if err := os.MkdirAll(cfg.DBDir, aof.DefaultDirPerm); err != nil {
			errs = append(errs, fmt.Errorf("cannot create db directory: %w", err))
		}
	}

	return errors.Join(errs...)
}

func verifyHTTP(cfg *HTTPSection) error {
	if !cfg.Enabled {
		return nil
	}
	var errs []error

	if err := verifyAddr(cfg.Addr); err != nil {
		errs = append(errs, fmt.Errorf("http.addr: %w", err))
	}
	for _, entry := range cfg.Allow {
		if !validACLEntry(entry) {
			errs = append(errs, fmt.Errorf("http.allow: invalid IP or CIDR %q", entry))
		}
	}
	if cfg.RateLimit < 0 {
		errs = append(errs, errors.New("http.rate_limit must not be negative"))
	}

	return errors.Join(errs...)
}

func verifyLog(cfg *LogSection) error {
	var errs []error

	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", cfg.Level))
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", cfg.Format))
	}

	return errors.Join(errs...)
}

func verifyAddr(addr string) error {
	if addr == "" {
		return errors.New("address is required")
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return err
	}
	return nil
}

func validACLEntry(entry string) bool {
	if strings.Contains(entry, "/") {
		_, _, err := net.ParseCIDR(entry)
		return err == nil
	}
	return net.ParseIP(entry) != nil
}
