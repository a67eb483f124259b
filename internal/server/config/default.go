package config

import (
	"time"

	"github.com/yndnr/sidermem-go/internal/storage/aof"
	"github.com/yndnr/sidermem-go/internal/storage/memory"
	"github.com/yndnr/sidermem-go/pkg/resp"
)

// Default configuration values.
const (
	DefaultAddr            = "127.0.0.1:6379"
	DefaultGracefulTimeout = 100 * time.Millisecond
	DefaultMaxPending      = 1024
	DefaultMaxOutbound     = 1024

	DefaultAppendFsync = string(aof.SyncEverySec)

	DefaultHTTPAddr      = "127.0.0.1:5080"
	DefaultHTTPRateLimit = 10

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Addr:            DefaultAddr,
			GracefulTimeout: DefaultGracefulTimeout,
			MaxBufferLength: resp.DefaultMaxBufferLength,
			MaxPending:      DefaultMaxPending,
			MaxOutbound:     DefaultMaxOutbound,
		},
		Storage: StorageSection{
			AppendFsync:   DefaultAppendFsync,
			SweepInterval: memory.DefaultSweepInterval,
		},
		HTTP: HTTPSection{
			Enabled:   false,
			Addr:      DefaultHTTPAddr,
			RateLimit: DefaultHTTPRateLimit,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
