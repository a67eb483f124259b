package config

import "time"

// ServerConfig is the root configuration for sidermem-server.
type ServerConfig struct {
	Server  ServerSection  `koanf:"server"`
	Storage StorageSection `koanf:"storage"`
	HTTP    HTTPSection    `koanf:"http"`
	Log     LogSection     `koanf:"log"`
}

// ServerSection configures the RESP listener.
type ServerSection struct {
	Addr        string `koanf:"addr"`
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`
	// TLSCAFile, when set, requires client certificates signed by it.
	TLSCAFile   string `koanf:"tls_ca_file"`

	// Username and Password enable AUTH. An empty username means "default".
	Username string `koanf:"username"`
	Password string `koanf:"password"`

	GracefulTimeout time.Duration `koanf:"graceful_timeout"`
	// IdleTimeout closes clients that send nothing for this long. Zero disables it.
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	MaxBufferLength int           `koanf:"max_buffer_length"`
	MaxPending      int           `koanf:"max_pending"`
	// MaxOutbound is the per-client queue of unwritten replies and
	// messages. A subscriber that fills it is disconnected.
	MaxOutbound     int           `koanf:"max_outbound"`

	// RateLimit is accepted connections per second per client IP. Zero disables it.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`
}

// TLSEnabled reports whether a certificate pair is configured.
func (s *ServerSection) TLSEnabled() bool {
	return s.TLSCertFile != "" || s.TLSKeyFile != ""
}

// AuthEnabled reports whether clients must authenticate.
func (s *ServerSection) AuthEnabled() bool {
	return s.Password != ""
}

// StorageSection configures the keyspace and the append-only log.
type StorageSection struct {
	// DBDir holds db.aof. Empty runs purely in memory.
	DBDir         string        `koanf:"db_dir"`
	AppendFsync   string        `koanf:"append_fsync"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// HTTPSection configures the admin HTTP server.
type HTTPSection struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`

	// MetricsAuth puts /metrics behind the same basic auth as /admin.
	MetricsAuth bool `koanf:"metrics_auth"`

	// Allow restricts /admin to these IPs and CIDRs.
	Allow []string `koanf:"allow"`

	RateLimit float64 `koanf:"rate_limit"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
