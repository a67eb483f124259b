package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/sidermem-go/internal/core/auth"
	"github.com/yndnr/sidermem-go/internal/core/engine"
	"github.com/yndnr/sidermem-go/internal/core/pubsub"
	"github.com/yndnr/sidermem-go/internal/core/session"
	"github.com/yndnr/sidermem-go/internal/infra/buildinfo"
	"github.com/yndnr/sidermem-go/internal/infra/confloader"
	"github.com/yndnr/sidermem-go/internal/infra/shutdown"
	"github.com/yndnr/sidermem-go/internal/infra/tlsroots"
	"github.com/yndnr/sidermem-go/internal/server/config"
	"github.com/yndnr/sidermem-go/internal/server/httpserver"
	"github.com/yndnr/sidermem-go/internal/server/httpserver/handler"
	"github.com/yndnr/sidermem-go/internal/server/respserver"
	"github.com/yndnr/sidermem-go/internal/storage/aof"
	"github.com/yndnr/sidermem-go/internal/storage/memory"
	"github.com/yndnr/sidermem-go/internal/telemetry/logger"
	"github.com/yndnr/sidermem-go/internal/telemetry/metric"
)

// shutdownTimeout bounds the whole hook chain, graceful drain included.
const shutdownTimeout = 30 * time.Second

func main() {
	if err := app().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func app() *cli.App {
	cli.VersionPrinter = func(*cli.Context) {
		fmt.Printf("sidermem-server %s\n", buildinfo.String())
	}

	return &cli.App{
		Name:    "sidermem-server",
		Usage:   "in-memory key-value server speaking RESP2",
		Version: buildinfo.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				EnvVars: []string{"SIDER_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "RESP listen address (host:port)",
			},
			&cli.StringFlag{
				Name:  "db-dir",
				Usage: "Directory holding the append-only log; empty keeps data in memory only",
			},
			&cli.StringFlag{
				Name:  "appendfsync",
				Usage: "Log fsync policy: always, everysec, no",
			},
			&cli.StringFlag{
				Name:  "http-addr",
				Usage: "Enable the admin HTTP server on this address",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log format: json, text",
			},
		},
		Action: run,
	}
}

// overrides maps explicitly set flags onto configuration keys. Flags win
// over the file and the environment.
func overrides(c *cli.Context) map[string]any {
	keys := map[string]string{
		"addr":        "server.addr",
		"db-dir":      "storage.db_dir",
		"appendfsync": "storage.append_fsync",
		"http-addr":   "http.addr",
		"log-level":   "log.level",
		"log-format":  "log.format",
	}

	values := make(map[string]any)
	for flag, key := range keys {
		if c.IsSet(flag) {
			values[key] = c.String(flag)
		}
	}
	if c.IsSet("http-addr") {
		values["http.enabled"] = true
	}
	return values
}

func run(c *cli.Context) error {
	configFile := c.String("config")

	// Load configuration
	cfg, err := loadConfig(configFile, overrides(c))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Initialize logger
	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	info := buildinfo.Get()
	log.Info("starting sidermem-server",
		"version", info.Version,
		"commit", info.Commit,
		"go", info.GoVersion,
		"config", configFile)
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownHandler := shutdown.NewHandler(shutdownTimeout)

	var verifier auth.Verifier
	if cfg.Server.AuthEnabled() {
		static, err := auth.NewStatic(cfg.Server.Username, cfg.Server.Password)
		if err != nil {
			return fmt.Errorf("init auth: %w", err)
		}
		verifier = static
	}

	metrics := metric.NewRegistry()
	store := memory.New(
		memory.WithLogger(log.Named("memory")),
		memory.WithSweepInterval(cfg.Storage.SweepInterval),
	)
	shared := pubsub.New(log.Named("pubsub"))
	sessions := session.NewRegistry()

	// Rebuild the dataset and open the log for appending
	sink, err := initPersistence(ctx, cfg, store, log)
	if err != nil {
		return err
	}
	if w, ok := sink.(*aof.Writer); ok {
		shutdownHandler.OnShutdown(func(context.Context) error {
			log.Info("closing append-only log")
			return w.Close()
		})
	}

	eng, err := engine.New(engine.Config{
		Store:    store,
		Sink:     sink,
		PubSub:   shared,
		Sessions: sessions,
		Verifier: verifier,
		Metrics:  metrics,
		Logger:   log.Named("engine"),
		Server: engine.ServerInfo{
			Version:    info.Version,
			Port:       portOf(cfg.Server.Addr),
			ConfigFile: configFile,
		},
		Shutdown: shutdownHandler.Trigger,
	})
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}
	if err := metrics.Register(metric.NewCollector(eng)); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	store.Start(ctx)
	shutdownHandler.OnShutdown(func(context.Context) error {
		log.Info("stopping expiry sweeper")
		store.Stop()
		return nil
	})

	tlsConfig, err := initTLS(cfg, log, shutdownHandler)
	if err != nil {
		return fmt.Errorf("init tls: %w", err)
	}

	var ready atomic.Bool

	if cfg.HTTP.Enabled {
		router := httpserver.NewRouter(&httpserver.RouterConfig{
			Handler: handler.Config{
				Status:  eng,
				Sweeper: store,
				Ready:   ready.Load,
				Version: info.Version,
				Logger:  log.Named("http"),
			},
			Metrics:             metrics.Handler(),
			Verifier:            verifier,
			MetricsAuthRequired: cfg.HTTP.MetricsAuth,
			AdminAllowList:      cfg.HTTP.Allow,
			RateLimit:           cfg.HTTP.RateLimit,
			Logger:              log.Named("http"),
		})
		httpServer := httpserver.New(cfg.HTTP.Addr, router)

		shutdownHandler.OnShutdown(func(ctx context.Context) error {
			log.Info("shutting down HTTP server")
			return httpServer.Shutdown(ctx)
		})

		go func() {
			log.Info("HTTP server listening", "addr", cfg.HTTP.Addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("HTTP server error", "error", err)
			}
		}()
	}

	respServer := respserver.New(&respserver.Config{
		Address:         cfg.Server.Addr,
		TLSConfig:       tlsConfig,
		GracefulTimeout: cfg.Server.GracefulTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		MaxBufferLength: cfg.Server.MaxBufferLength,
		MaxPending:      cfg.Server.MaxPending,
		MaxOutbound:     cfg.Server.MaxOutbound,
		RateLimit:       cfg.Server.RateLimit,
		RateBurst:       cfg.Server.RateBurst,
	}, eng, metrics, log.Named("resp"))
	if err := respServer.Start(ctx); err != nil {
		return fmt.Errorf("start resp server: %w", err)
	}
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down RESP server", "connections", respServer.Connections())
		return respServer.Shutdown(ctx)
	})

	if configFile != "" {
		if err := watchLogLevel(configFile, log, shutdownHandler); err != nil {
			log.Warn("log level hot reload disabled", "error", err)
		}
	}

	ready.Store(true)
	shutdownHandler.OnShutdown(func(context.Context) error {
		ready.Store(false)
		return nil
	})

	log.Info("server started, press Ctrl+C to stop")
	reason, err := shutdownHandler.Wait(ctx)
	if err != nil {
		log.Error("shutdown error", "reason", reason, "error", err)
		return err
	}

	log.Info("server stopped gracefully", "reason", reason)
	return nil
}

// loadConfig loads configuration from file, environment and flags.
func loadConfig(configFile string, flags map[string]any) (*config.ServerConfig, error) {
	// Start with defaults
	cfg := config.Default()

	opts := []confloader.Option{confloader.WithOverrides(flags)}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}

	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// initLogger initializes the structured logger.
func initLogger(cfg *config.ServerConfig) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return nil, err
	}
	return log, nil
}

// initPersistence replays the append-only log into store and opens it for
// appending. Without a db_dir it returns aof.Discard.
func initPersistence(ctx context.Context, cfg *config.ServerConfig, store *memory.Store, log logger.Logger) (aof.Sink, error) {
	if cfg.Storage.DBDir == "" {
		log.Info("persistence disabled, data is kept in memory only")
		return aof.Discard, nil
	}

	// Replayed commands must not be logged again.
	replayer, err := engine.New(engine.Config{
		Store:  store,
		Sink:   aof.Discard,
		Logger: log.Named("replay"),
	})
	if err != nil {
		return nil, fmt.Errorf("init replay engine: %w", err)
	}

	path := aof.Path(cfg.Storage.DBDir)
	start := time.Now()
	stats, err := aof.Load(ctx, path, replayer, log.Named("aof"))
	if err != nil {
		return nil, fmt.Errorf("load append-only log: %w", err)
	}
	log.Info("append-only log loaded",
		"path", path,
		"frames", stats.Frames,
		"applied", stats.Applied,
		"failed", stats.Failed,
		"bytes", stats.Bytes,
		"keys", store.Size(),
		"duration", time.Since(start))

	mode, err := aof.ParseSyncMode(cfg.Storage.AppendFsync)
	if err != nil {
		return nil, err
	}
	aofCfg := aof.DefaultConfig(cfg.Storage.DBDir)
	aofCfg.SyncMode = mode

	w, err := aof.NewWriter(aofCfg)
	if err != nil {
		return nil, fmt.Errorf("open append-only log: %w", err)
	}
	return w, nil
}

// initTLS builds the RESP listener TLS configuration, or nil when TLS is
// not configured. The key pair is reloaded when its files change.
func initTLS(cfg *config.ServerConfig, log logger.Logger, sh *shutdown.Handler) (*tls.Config, error) {
	if !cfg.Server.TLSEnabled() {
		return nil, nil
	}

	watcher, err := tlsroots.NewWatcher(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile,
		tlsroots.WithLogger(log.Named("tls")))
	if err != nil {
		return nil, err
	}

	var clientCAs *tlsroots.Pool
	if cfg.Server.TLSCAFile != "" {
		clientCAs, err = tlsroots.LoadFile(cfg.Server.TLSCAFile)
		if err != nil {
			watcher.Stop()
			return nil, fmt.Errorf("load client CA: %w", err)
		}
	}

	watcher.StartAsync()
	sh.OnShutdown(func(context.Context) error {
		watcher.Stop()
		return nil
	})

	return tlsroots.ServerConfig(watcher, clientCAs), nil
}

// watchLogLevel applies log.level edits in the configuration file without
// a restart.
func watchLogLevel(configFile string, log logger.Logger, sh *shutdown.Handler) error {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log.Named("config")))
	if err != nil {
		return err
	}
	err = w.WatchKey(configFile, "log.level", log.SetLevel)
	if err != nil {
		_ = w.Stop()
		return err
	}

	w.StartAsync()
	sh.OnShutdown(func(context.Context) error {
		return w.Stop()
	})
	return nil
}

func portOf(addr string) int {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	n, _ := strconv.Atoi(port)
	return n
}
