package respserver

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/sidermem-go/internal/core/session"
	"github.com/yndnr/sidermem-go/internal/telemetry/logger"
	"github.com/yndnr/sidermem-go/internal/telemetry/metric"
	"github.com/yndnr/sidermem-go/pkg/resp"
)

// ErrServerClosed is returned by Start and Serve after Shutdown.
var ErrServerClosed = errors.New("resp server closed")

// Executor runs commands on behalf of connections. *engine.Engine
// implements it.
type Executor interface {
	Connect(opts ...session.Option) *session.Session
	Disconnect(sess *session.Session)
	Execute(ctx context.Context, sess *session.Session, args []string) resp.Reply
	RecordRejected()
}

// Config holds the RESP server configuration.
type Config struct {
	// Address is the listen address.
	Address string
	// TLSConfig serves TLS on Address when set.
	TLSConfig *tls.Config
	// GracefulTimeout is how long Shutdown lets open connections flush
	// before closing them (default: 100ms).
	GracefulTimeout time.Duration
	// IdleTimeout closes connections that send nothing for this long.
	// Zero keeps idle connections open.
	IdleTimeout time.Duration
	// WriteTimeout bounds a single reply write (default: 30s).
	WriteTimeout time.Duration
	// MaxBufferLength bounds the unparsed bytes held per connection
	// (default: 16 MiB).
	MaxBufferLength int
	// MaxPending bounds decoded requests waiting to run (default: 1024).
	MaxPending int
	// MaxOutbound bounds encoded frames waiting to be written (default:
	// 1024). A subscriber whose queue is full is disconnected.
	MaxOutbound int
	// RateLimit is the number of connections accepted per second per
	// remote IP. Set to 0 to disable rate limiting.
	RateLimit float64
	// RateBurst is the limiter burst size (default: RateLimit).
	RateBurst int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Address:         "127.0.0.1:6379",
		GracefulTimeout: 100 * time.Millisecond,
		WriteTimeout:    30 * time.Second,
		MaxBufferLength: resp.DefaultMaxBufferLength,
		MaxPending:      1024,
		MaxOutbound:     1024,
	}
}

func (c *Config) withDefaults() *Config {
	out := *c
	def := DefaultConfig()
	if out.Address == "" {
		out.Address = def.Address
	}
	if out.GracefulTimeout <= 0 {
		out.GracefulTimeout = def.GracefulTimeout
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = def.WriteTimeout
	}
	if out.MaxBufferLength <= 0 {
		out.MaxBufferLength = def.MaxBufferLength
	}
	if out.MaxPending <= 0 {
		out.MaxPending = def.MaxPending
	}
	if out.MaxOutbound <= 0 {
		out.MaxOutbound = def.MaxOutbound
	}
	return &out
}

// Server accepts RESP connections and feeds them to an Executor.
type Server struct {
	cfg     *Config
	exec    Executor
	metrics *metric.Registry
	logger  logger.Logger
	limits  *limiters

	mu        sync.Mutex
	listeners []net.Listener
	conns     map[*conn]struct{}

	rejecting atomic.Bool
	wg        sync.WaitGroup
}

// New creates a RESP server. metrics may be nil.
func New(cfg *Config, exec Executor, metrics *metric.Registry, log logger.Logger) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = logger.Nop()
	}
	cfg = cfg.withDefaults()
	return &Server{
		cfg:     cfg,
		exec:    exec,
		metrics: metrics,
		logger:  log,
		limits:  newLimiters(cfg.RateLimit, cfg.RateBurst),
		conns:   make(map[*conn]struct{}),
	}
}

// Start binds the configured address and serves it in the background.
// Addr is valid once Start returns.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return err
	}
	if s.cfg.TLSConfig != nil {
		ln = tls.NewListener(ln, s.cfg.TLSConfig)
	}
	if !s.register(ln) {
		return ErrServerClosed
	}
	s.logger.Info("resp server listening", "address", ln.Addr().String(), "tls", s.cfg.TLSConfig != nil)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.acceptLoop(ctx, ln); err != nil {
			s.logger.Error("resp server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the address of the first listener, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.listeners) == 0 {
		return nil
	}
	return s.listeners[0].Addr()
}

// Serve accepts connections on ln until it is closed.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if !s.register(ln) {
		return ErrServerClosed
	}
	return s.acceptLoop(ctx, ln)
}

// register adds ln to the served listeners. It closes ln and reports
// false once Shutdown has begun.
func (s *Server) register(ln net.Listener) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rejecting.Load() {
		_ = ln.Close()
		return false
	}
	s.listeners = append(s.listeners, ln)
	return true
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		nc, err := ln.Accept()
		if err != nil {
			if s.rejecting.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return err
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(ctx, nc)
		}()
	}
}

// handle serves one accepted connection until it closes.
func (s *Server) handle(ctx context.Context, nc net.Conn) {
	if s.rejecting.Load() {
		s.reject(nc, "shutting down")
		return
	}
	if !s.limits.allow(nc.RemoteAddr(), time.Now()) {
		s.reject(nc, "rate limited")
		return
	}

	c := newConn(s, nc)
	if !s.track(c) {
		c.abort()
		s.exec.Disconnect(c.sess)
		s.reject(nc, "shutting down")
		return
	}
	defer s.untrack(c)

	s.metrics.ConnOpened()
	defer s.metrics.ConnClosed()

	c.serve(ctx)
}

func (s *Server) reject(nc net.Conn, reason string) {
	s.logger.Debug("connection rejected", "remote", nc.RemoteAddr().String(), "reason", reason)
	s.exec.RecordRejected()
	s.metrics.ConnRejected()
	_ = nc.Close()
}

func (s *Server) track(c *conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rejecting.Load() {
		return false
	}
	s.conns[c] = struct{}{}
	return true
}

func (s *Server) untrack(c *conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c)
}

// Shutdown stops accepting, gives open connections GracefulTimeout to
// flush, then closes them and waits for their goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.rejecting.Store(true)
	listeners := s.listeners
	s.listeners = nil
	open := len(s.conns)
	s.mu.Unlock()

	var firstErr error
	for _, ln := range listeners {
		if err := ln.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if open > 0 {
		s.logger.Info("closing open connections", "count", open, "grace", s.cfg.GracefulTimeout.String())
		timer := time.NewTimer(s.cfg.GracefulTimeout)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
		s.closeAll()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.logger.Info("resp server closed")
	return firstErr
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.abort()
	}
}

// Connections returns the number of connections being served.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}
