package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/sidermem-go/internal/core/auth"
	"github.com/yndnr/sidermem-go/internal/core/domain"
	"github.com/yndnr/sidermem-go/internal/core/session"
	"github.com/yndnr/sidermem-go/internal/infra/clock"
	"github.com/yndnr/sidermem-go/internal/storage/memory"
	"github.com/yndnr/sidermem-go/internal/telemetry/logger"
	"github.com/yndnr/sidermem-go/internal/telemetry/metric"
	"github.com/yndnr/sidermem-go/pkg/resp"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// ============================================================================
// Harness
// ============================================================================

type recordingSink struct {
	frames [][]byte
}

func (s *recordingSink) Append(frame []byte) error {
	s.frames = append(s.frames, append([]byte(nil), frame...))
	return nil
}

func (s *recordingSink) commands(t *testing.T) [][]string {
	t.Helper()
	dec := resp.NewDecoder(0)
	var out [][]string
	for _, f := range s.frames {
		if err := dec.Write(f); err != nil {
			t.Fatalf("decode log frame: %v", err)
		}
		v, ok, err := dec.Next()
		if err != nil || !ok {
			t.Fatalf("decode log frame %q: ok=%v err=%v", f, ok, err)
		}
		out = append(out, v.Args())
	}
	return out
}

type harness struct {
	t     *testing.T
	e     *Engine
	clock *clock.Manual
	store *memory.Store
	sink  *recordingSink
	sess  *session.Session
}

func newHarness(t *testing.T, configure ...func(*Config)) *harness {
	t.Helper()
	clk := clock.NewManual(epoch)
	store := memory.New(memory.WithClock(clk))
	sink := &recordingSink{}
	cfg := Config{Store: store, Sink: sink}
	for _, fn := range configure {
		fn(&cfg)
	}
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &harness{
		t:     t,
		e:     e,
		clock: clk,
		store: store,
		sink:  sink,
		sess:  e.Connect(session.WithAddrs("127.0.0.1:50000", "127.0.0.1:6379")),
	}
}

// do runs a command on the harness session and returns the wire reply.
func (h *harness) do(args ...string) string {
	return h.doAs(h.sess, args...)
}

func (h *harness) doAs(sess *session.Session, args ...string) string {
	return string(resp.MustEncode(h.e.Execute(context.Background(), sess, args)))
}

type step struct {
	args string
	want string
}

// run executes whitespace separated commands in order.
func (h *harness) run(steps []step) {
	h.t.Helper()
	for _, s := range steps {
		if got := h.do(strings.Fields(s.args)...); got != s.want {
			h.t.Errorf("%s = %q, want %q", s.args, got, s.want)
		}
	}
}

const (
	ok      = "+OK\r\n"
	nilBulk = "$-1\r\n"
	nilArr  = "*-1\r\n"
	empty   = "*0\r\n"
	queued  = "+QUEUED\r\n"
)

func bulk(s string) string { return fmt.Sprintf("$%d\r\n%s\r\n", len(s), s) }

func integer(n int64) string { return ":" + strconv.FormatInt(n, 10) + "\r\n" }

func status(s string) string { return "+" + s + "\r\n" }

func errText(err *domain.DomainError) string { return "-" + err.Error() + "\r\n" }

func array(elems ...string) string {
	return fmt.Sprintf("*%d\r\n", len(elems)) + strings.Join(elems, "")
}

func bulks(ss ...string) string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = bulk(s)
	}
	return array(out...)
}

// ============================================================================
// Construction
// ============================================================================

func TestNew_RequiresStore(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("New without store succeeded")
	}
}

func TestBuildCommands_Complete(t *testing.T) {
	cmds, err := buildCommands()
	if err != nil {
		t.Fatalf("buildCommands: %v", err)
	}
	for name, cmd := range cmds {
		if cmd.handler == nil {
			t.Errorf("%s has no handler", name)
		}
		if cmd.name != name {
			t.Errorf("%s registered as %q", name, cmd.name)
		}
	}
}

// ============================================================================
// Dispatch
// ============================================================================

func TestExecute_Dispatch(t *testing.T) {
	h := newHarness(t)
	h.run([]step{
		{"nosuch a b", errText(domain.ErrUnknownCommand("nosuch", []string{"a", "b"}))},
		{"get", errText(domain.ErrWrongArity("get"))},
		{"GET a b", errText(domain.ErrWrongArity("get"))},
		{"mset a 1 b", errText(domain.ErrWrongArity("mset"))},
		{"SeT k v", ok},
		{"gEt k", bulk("v")},
	})

	if got := string(resp.MustEncode(h.e.Execute(context.Background(), h.sess, nil))); got != errText(domain.ErrUnknownCommand("", nil)) {
		t.Errorf("empty request = %q", got)
	}
}

func TestExecute_TouchesSession(t *testing.T) {
	h := newHarness(t)
	h.do("PING")
	cmd, at := h.sess.LastCommand()
	if cmd != "ping" || !at.Equal(epoch) {
		t.Fatalf("LastCommand = %q %v", cmd, at)
	}
}

func TestExecute_Metrics(t *testing.T) {
	reg := metric.NewRegistry()
	h := newHarness(t, func(c *Config) { c.Metrics = reg })

	h.do("set", "k", "v")
	h.do("set", "k", "v")
	h.do("lpush", "k", "x")

	if got := testutil.ToFloat64(reg.CommandsTotal.WithLabelValues("set", "ok")); got != 2 {
		t.Errorf("set ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(reg.CommandsTotal.WithLabelValues("lpush", "error")); got != 1 {
		t.Errorf("lpush error = %v, want 1", got)
	}
	if got := h.e.processed.Load(); got != 3 {
		t.Errorf("processed = %d, want 3", got)
	}
}

// ============================================================================
// Authentication
// ============================================================================

func TestExecute_AuthGate(t *testing.T) {
	v, err := auth.NewStatic("", "secret")
	if err != nil {
		t.Fatal(err)
	}
	h := newHarness(t, func(c *Config) { c.Verifier = v })

	h.run([]step{
		{"get k", errText(domain.ErrNoAuth)},
		{"ping", errText(domain.ErrNoAuth)},
		{"hello 2", errText(domain.ErrNoAuth)},
		{"auth wrong", errText(domain.ErrWrongPass)},
		{"auth other secret", errText(domain.ErrWrongPass)},
		{"auth a b c", errText(domain.ErrSyntax)},
		{"auth secret", ok},
		{"get k", nilBulk},
	})
	if !h.sess.Authenticated() || h.sess.User() != session.DefaultUser {
		t.Fatalf("session auth = %v user = %q", h.sess.Authenticated(), h.sess.User())
	}

	other := h.e.Connect()
	if got := h.doAs(other, "hello", "2", "AUTH", "default", "secret", "SETNAME", "app"); !strings.HasPrefix(got, "*14\r\n") {
		t.Fatalf("hello with auth = %q", got)
	}
	if other.Name() != "app" {
		t.Errorf("Name = %q, want app", other.Name())
	}
	if got := h.doAs(h.e.Connect(), "quit"); got != ok {
		t.Errorf("quit before auth = %q", got)
	}
}

func TestAuth_NotConfigured(t *testing.T) {
	h := newHarness(t)
	h.run([]step{
		{"auth secret", errText(domain.ErrAuthNotConfigured)},
		{"get k", nilBulk},
	})
}

// ============================================================================
// Transactions
// ============================================================================

func TestExec_Results(t *testing.T) {
	h := newHarness(t)
	h.run([]step{
		{"multi", ok},
		{"get missing", queued},
		{"set k 3", queued},
		{"incr k", queued},
		{"decrby k 10", queued},
		{"del k", queued},
		{"exec", array(nilBulk, ok, integer(4), integer(-6), integer(1))},
		{"exists k", integer(0)},
	})
	if h.sess.InTx() {
		t.Fatal("session still in transaction")
	}
}

func TestExec_AbortKeepsEarlierEffects(t *testing.T) {
	h := newHarness(t)
	h.run([]step{
		{"multi", ok},
		{"set a 1", queued},
		{"lpush a x", queued},
		{"set b 2", queued},
		{"exec", errText(domain.ErrExecAbort)},
		{"get a", bulk("1")},
		{"get b", nilBulk},
		{"multi", ok},
		{"nosuch", queued},
		{"exec", errText(domain.ErrExecAbort)},
	})
}

func TestExec_AbortLogCarriesRequest(t *testing.T) {
	tests := []struct {
		name   string
		ctx    context.Context
		connID func(h *harness) string
	}{
		{
			name:   "session id",
			ctx:    context.Background(),
			connID: func(h *harness) string { return h.sess.ID() },
		},
		{
			name:   "caller id wins",
			ctx:    logger.WithConnID(context.Background(), "c-1"),
			connID: func(*harness) string { return "c-1" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l, err := logger.New(logger.Config{Level: "warn", Format: "json", Output: &buf})
			if err != nil {
				t.Fatalf("logger.New() error = %v", err)
			}
			h := newHarness(t, func(c *Config) { c.Logger = l })
			for _, args := range [][]string{{"multi"}, {"nosuch"}, {"exec"}} {
				h.e.Execute(tt.ctx, h.sess, args)
			}

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("Failed to parse JSON log %q: %v", buf.String(), err)
			}
			if entry["msg"] != "transaction aborted" {
				t.Fatalf("msg = %v", entry["msg"])
			}
			if entry["conn_id"] != tt.connID(h) || entry["command"] != "exec" {
				t.Errorf("conn_id = %v, command = %v", entry["conn_id"], entry["command"])
			}
		})
	}
}

func TestTransaction_Errors(t *testing.T) {
	h := newHarness(t)
	h.run([]step{
		{"exec", errText(domain.ErrExecNoMulti)},
		{"discard", errText(domain.ErrDiscardNoMulti)},
		{"multi", ok},
		{"multi", errText(domain.ErrMultiNested)},
		{"set a 1", queued},
		{"discard", ok},
		{"get a", nilBulk},
	})
}

func TestExec_EmptyQueue(t *testing.T) {
	h := newHarness(t)
	h.run([]step{
		{"multi", ok},
		{"exec", empty},
	})
}

// ============================================================================
// Replay
// ============================================================================

func TestReplay_RebuildsState(t *testing.T) {
	src := newHarness(t)
	src.run([]step{
		{"set s hello", ok},
		{"append s !", integer(6)},
		{"set ttl v EX 100", ok},
		{"incr n", integer(1)},
		{"incrbyfloat f 1.5", bulk("1.5")},
		{"hset h a 1 b 2", integer(2)},
		{"hdel h a", integer(1)},
		{"rpush l a b c d", integer(4)},
		{"lpop l", bulk("a")},
		{"ltrim l 0 1", ok},
		{"set gone x", ok},
		{"rename gone moved", ok},
		{"del moved", integer(1)},
		{"setrange r 2 ab", integer(4)},
	})

	dst := newHarness(t)
	for _, args := range src.sink.commands(t) {
		if err := dst.e.Replay(context.Background(), args); err != nil {
			t.Fatalf("Replay(%v): %v", args, err)
		}
	}
	if len(dst.sink.frames) != len(src.sink.frames) {
		t.Fatalf("replay logged %d frames, want %d", len(dst.sink.frames), len(src.sink.frames))
	}

	dst.run([]step{
		{"get s", bulk("hello!")},
		{"ttl ttl", integer(100)},
		{"get n", bulk("1")},
		{"get f", bulk("1.5")},
		{"hgetall h", bulks("b", "2")},
		{"lrange l 0 -1", bulks("b", "c")},
		{"exists gone moved", integer(0)},
		{"get r", bulk("\x00\x00ab")},
		{"dbsize", integer(7)},
	})
}

func TestReplay_Errors(t *testing.T) {
	h := newHarness(t)
	if err := h.e.Replay(context.Background(), nil); err == nil {
		t.Error("Replay(nil) succeeded")
	}
	if err := h.e.Replay(context.Background(), []string{"nosuch"}); err == nil {
		t.Error("Replay(unknown) succeeded")
	}
	if err := h.e.Replay(context.Background(), []string{"SET", "k", "v"}); err != nil {
		t.Errorf("Replay(SET): %v", err)
	}
	if got := h.do("get", "k"); got != bulk("v") {
		t.Errorf("get k = %q", got)
	}
}

func TestRecord_Frames(t *testing.T) {
	h := newHarness(t)
	h.run([]step{
		{"set a 1", ok},
		{"set a 2 EX 10", ok},
		{"incr a", integer(3)},
		{"get a", bulk("3")},
		{"getdel a", bulk("3")},
		{"del a", integer(0)},
		{"flushall", ok},
	})

	at := strconv.FormatInt(epoch.UnixMilli()+10000, 10)
	want := [][]string{
		{"set", "a", "1"},
		{"set", "a", "2"},
		{"pexpireat", "a", at},
		{"set", "a", "3", "KEEPTTL"},
		{"del", "a"},
		{"flushall"},
	}
	if got := h.sink.commands(t); !reflect.DeepEqual(got, want) {
		t.Fatalf("log = %v, want %v", got, want)
	}
}
