// Package engine implements the command set on top of the keyspace.
//
// Every command runs while holding the store's command lock, so a
// command (and a whole EXEC batch) observes and mutates the keyspace
// without interleaving with other connections. Mutations are appended to
// the configured aof.Sink as RESP arrays in the order they are applied.
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/sidermem-go/internal/core/auth"
	"github.com/yndnr/sidermem-go/internal/core/domain"
	"github.com/yndnr/sidermem-go/internal/core/pubsub"
	"github.com/yndnr/sidermem-go/internal/core/session"
	"github.com/yndnr/sidermem-go/internal/infra/clock"
	"github.com/yndnr/sidermem-go/internal/storage/aof"
	"github.com/yndnr/sidermem-go/internal/storage/memory"
	"github.com/yndnr/sidermem-go/internal/telemetry/logger"
	"github.com/yndnr/sidermem-go/internal/telemetry/metric"
	"github.com/yndnr/sidermem-go/pkg/resp"
)

// Server identity reported by HELLO and INFO.
const (
	DefaultName    = "sider-mem"
	DefaultVersion = "7.0.0"
	DefaultMode    = "standalone"
	DefaultRole    = "master"
)

// ServerInfo describes the hosting process for HELLO and INFO.
type ServerInfo struct {
	Name       string
	Version    string
	Mode       string
	Role       string
	Port       int
	ConfigFile string
}

// Config wires an Engine to its collaborators. Store is required; every
// other field has a usable zero value.
type Config struct {
	Store    *memory.Store
	Sink     aof.Sink
	PubSub   *pubsub.Registry
	Sessions *session.Registry

	// Verifier enables the authentication gate when set.
	Verifier auth.Verifier

	Metrics *metric.Registry
	Logger  logger.Logger
	Server  ServerInfo

	// Shutdown is invoked asynchronously by the SHUTDOWN command.
	Shutdown func()
}

// Engine executes commands for sessions.
type Engine struct {
	store    *memory.Store
	sink     aof.Sink
	pubsub   *pubsub.Registry
	sessions *session.Registry
	verifier auth.Verifier
	metrics  *metric.Registry
	logger   logger.Logger
	server   ServerInfo
	shutdown func()

	commands map[string]*command
	replayer *session.Session

	runID     string
	started   time.Time
	processed atomic.Uint64
	rejected  atomic.Uint64
}

// call is one command invocation.
type call struct {
	ctx  context.Context
	sess *session.Session
	name string
	args []string

	// nested is set for commands run from EXEC or replay; they never
	// yield the command lock.
	nested bool
}

// New creates an engine. It fails when the command table and the handler
// set disagree.
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, errors.New("engine: store is required")
	}
	if cfg.Sink == nil {
		cfg.Sink = aof.Discard
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.PubSub == nil {
		cfg.PubSub = pubsub.New(cfg.Logger.Named("pubsub"))
	}
	if cfg.Sessions == nil {
		cfg.Sessions = session.NewRegistry()
	}
	applyServerDefaults(&cfg.Server)

	commands, err := buildCommands()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		store:    cfg.Store,
		sink:     cfg.Sink,
		pubsub:   cfg.PubSub,
		sessions: cfg.Sessions,
		verifier: cfg.Verifier,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		server:   cfg.Server,
		shutdown: cfg.Shutdown,
		commands: commands,
		replayer: session.New(0, session.WithAuthenticated(true)),
		runID:    strings.ToLower(ulid.Make().String()),
	}
	e.started = e.now()
	return e, nil
}

func applyServerDefaults(s *ServerInfo) {
	if s.Name == "" {
		s.Name = DefaultName
	}
	if s.Version == "" {
		s.Version = DefaultVersion
	}
	if s.Mode == "" {
		s.Mode = DefaultMode
	}
	if s.Role == "" {
		s.Role = DefaultRole
	}
}

// ============================================================================
// Sessions
// ============================================================================

// Connect registers a new client session. Sessions start authenticated
// when no verifier is configured.
func (e *Engine) Connect(opts ...session.Option) *session.Session {
	opts = append([]session.Option{session.WithAuthenticated(e.verifier == nil)}, opts...)
	return e.sessions.Open(opts...)
}

// Disconnect drops a session and all of its subscriptions.
func (e *Engine) Disconnect(sess *session.Session) {
	e.pubsub.RemoveSubscriber(sess)
	e.sessions.Close(sess)
}

// Sessions returns the client registry.
func (e *Engine) Sessions() *session.Registry {
	return e.sessions
}

// RecordRejected counts a connection refused before it got a session.
func (e *Engine) RecordRejected() {
	e.rejected.Add(1)
}

// ============================================================================
// Execution
// ============================================================================

// Execute runs one request for sess and returns its reply. Errors are
// returned as error replies.
func (e *Engine) Execute(ctx context.Context, sess *session.Session, args []string) resp.Reply {
	if len(args) == 0 {
		return errorReply(domain.ErrUnknownCommand("", nil))
	}
	name := strings.ToLower(args[0])
	sess.Touch(name, e.now())

	if e.verifier != nil && !sess.Authenticated() && !e.allowedUnauthenticated(name) {
		return errorReply(domain.ErrNoAuth)
	}

	if sess.InTx() {
		switch name {
		case "exec", "discard", "multi", "quit":
		default:
			sess.Enqueue(name, args[1:])
			return resp.Queued
		}
	}

	ctx = e.requestContext(ctx, sess.ID(), name)

	e.store.Lock()
	defer e.store.Unlock()

	reply, err := e.dispatch(&call{ctx: ctx, sess: sess, name: name, args: args[1:]})
	if err != nil {
		return errorReply(err)
	}
	return reply
}

// Replay applies a command read back from the append-only log. It
// implements aof.Executor.
func (e *Engine) Replay(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return domain.ErrSyntax
	}
	name := strings.ToLower(args[0])
	ctx = e.requestContext(ctx, e.replayer.ID(), name)

	e.store.Lock()
	defer e.store.Unlock()

	_, err := e.dispatch(&call{
		ctx:    ctx,
		sess:   e.replayer,
		name:   name,
		args:   args[1:],
		nested: true,
	})
	return err
}

// requestContext carries the engine logger, the connection id and the
// command name for logger.L.
func (e *Engine) requestContext(ctx context.Context, connID, name string) context.Context {
	ctx = logger.WithLogger(ctx, e.logger)
	if logger.ConnIDFromContext(ctx) == "" {
		ctx = logger.WithConnID(ctx, connID)
	}
	return logger.WithCommand(ctx, name)
}

func (e *Engine) allowedUnauthenticated(name string) bool {
	if name == "quit" {
		return true
	}
	cmd, ok := e.commands[name]
	return ok && cmd.hasFlag("no_auth")
}

// dispatch validates and runs c. The command lock must be held.
func (e *Engine) dispatch(c *call) (reply resp.Reply, err error) {
	cmd, ok := e.commands[c.name]
	if !ok {
		return nil, domain.ErrUnknownCommand(c.name, c.args)
	}
	if !cmd.acceptsArgs(len(c.args)) {
		return nil, domain.ErrWrongArity(c.name)
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.L(c.ctx).Error("command panicked",
				"panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			reply, err = nil, domain.ErrInternal
		}
		e.processed.Add(1)
		e.metrics.ObserveCommand(c.name, time.Since(start), err != nil)
	}()

	return cmd.handler(e, c)
}

// yield lets other connections run between steps of a long command.
func (e *Engine) yield(c *call) {
	if c.nested {
		return
	}
	e.store.Unlock()
	runtime.Gosched()
	e.store.Lock()
}

func errorReply(err error) resp.Reply {
	var de *domain.DomainError
	if errors.As(err, &de) {
		return resp.Error(de.Error())
	}
	return resp.Error("ERR " + err.Error())
}

// ============================================================================
// Persistence
// ============================================================================

// record appends a mutation to the log. Elements follow resp.ArrayOf
// rules, so integers are logged as integer frames.
func (e *Engine) record(elems ...any) {
	frame, err := resp.Encode(resp.ArrayOf(elems...))
	if err != nil {
		e.logger.Error("encode log frame", "command", elems[0], "error", err)
		return
	}
	if err := e.sink.Append(frame); err != nil {
		e.logger.Error("append-only log write failed", "command", elems[0], "error", err)
	}
}

// recordArgs appends name followed by args.
func (e *Engine) recordArgs(name string, args []string) {
	elems := make([]any, 0, len(args)+1)
	elems = append(elems, name)
	for _, a := range args {
		elems = append(elems, a)
	}
	e.record(elems...)
}

// ============================================================================
// Time
// ============================================================================

func (e *Engine) now() time.Time {
	return e.store.Clock().Now()
}

func (e *Engine) nowMs() int64 {
	return clock.NowMs(e.store.Clock())
}

// ============================================================================
// Metrics source
// ============================================================================

// Keys returns the number of keys, including expired keys not yet
// evicted.
func (e *Engine) Keys() int { return e.store.Size() }

// Expires returns the number of keys carrying a TTL.
func (e *Engine) Expires() int { return e.store.ExpiresCount() }

// ExpiredKeys returns the number of keys removed on expiry.
func (e *Engine) ExpiredKeys() uint64 { return e.store.Stats().ExpiredKeys }

// Clients returns the number of connected sessions.
func (e *Engine) Clients() int { return e.sessions.Count() }

// Uptime returns the time since the engine was created.
func (e *Engine) Uptime() time.Duration { return e.now().Sub(e.started) }

// AOFWrittenBytes returns the bytes appended to the log, or 0 when the
// sink does not track them.
func (e *Engine) AOFWrittenBytes() uint64 {
	if w, ok := e.sink.(persistenceStats); ok {
		return w.WrittenBytes()
	}
	return 0
}

// persistenceStats is implemented by *aof.Writer.
type persistenceStats interface {
	WrittenBytes() uint64
	LastSync() int64
	LastError() error
	SyncMode() aof.SyncMode
}

var _ metric.Source = (*Engine)(nil)
var _ aof.Executor = (*Engine)(nil)
