// Package session holds per-connection client state and the registry of
// connected clients.
//
// A Session is owned by its connection. The engine reads and mutates it
// while executing that connection's commands. Fields that other
// connections can observe (CLIENT LIST, INFO clients) are guarded by the
// session mutex; the transaction queue and scan cursor are only touched
// by the owning connection.
package session

import (
	"crypto/rand"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultUser is the user a session runs as before AUTH names another.
const DefaultUser = "default"

// QueuedCommand is a command buffered inside MULTI.
type QueuedCommand struct {
	Name string
	Args []string
}

// Cursor is the continuation state of an open SCAN. The key snapshot is
// held as sorted runs, one per keyspace partition, and Next merges them
// so keys come out in bytewise order. Pos counts the keys handed out and
// Gen is the keyspace generation when the scan began.
type Cursor struct {
	Pos int
	Gen uint64

	runs [][]string
}

// NewCursor starts an empty scan at keyspace generation gen.
func NewCursor(gen uint64) *Cursor {
	return &Cursor{Gen: gen}
}

// AddRun sorts keys and adds them to the snapshot.
func (c *Cursor) AddRun(keys []string) {
	if len(keys) == 0 {
		return
	}
	sort.Strings(keys)
	c.runs = append(c.runs, keys)
}

// Next returns the smallest snapshot key not yet handed out.
func (c *Cursor) Next() (string, bool) {
	if c.Done() {
		return "", false
	}
	low := 0
	for i := 1; i < len(c.runs); i++ {
		if c.runs[i][0] < c.runs[low][0] {
			low = i
		}
	}
	key := c.runs[low][0]
	if rest := c.runs[low][1:]; len(rest) > 0 {
		c.runs[low] = rest
	} else {
		c.runs = append(c.runs[:low], c.runs[low+1:]...)
	}
	c.Pos++
	return key, true
}

// Done reports whether every snapshot key has been handed out.
func (c *Cursor) Done() bool {
	return c == nil || len(c.runs) == 0
}

// DeliverFunc writes an out-of-band frame (a pub/sub message) to the
// client.
type DeliverFunc func(frame []byte) error

// Session is the state of one client connection.
type Session struct {
	id        string
	num       int64
	addr      string
	localAddr string
	created   time.Time

	mu            sync.Mutex
	name          string
	db            int
	user          string
	authenticated bool
	lastCommand   string
	lastActive    time.Time

	active atomic.Bool

	inTx  bool
	queue []QueuedCommand

	cursor *Cursor

	deliver DeliverFunc
}

// Option configures a Session.
type Option func(*Session)

// WithAddrs sets the remote and local address strings.
func WithAddrs(remote, local string) Option {
	return func(s *Session) {
		s.addr = remote
		s.localAddr = local
	}
}

// WithDeliver sets the function used to push pub/sub messages.
func WithDeliver(fn DeliverFunc) Option {
	return func(s *Session) {
		s.deliver = fn
	}
}

// WithAuthenticated marks the session authenticated from the start. It
// is used when the server requires no password and by replay.
func WithAuthenticated(ok bool) Option {
	return func(s *Session) {
		s.authenticated = ok
	}
}

// New creates an active session. num is the numeric id reported by
// CLIENT ID.
func New(num int64, opts ...Option) *Session {
	now := time.Now()
	s := &Session{
		id:         newID(now),
		num:        num,
		created:    now,
		user:       DefaultUser,
		lastActive: now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.active.Store(true)
	return s
}

func newID(now time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(now), entropy)
	if err != nil {
		return ulid.Make().String()
	}
	return strings.ToLower(id.String())
}

// ID returns the random unique session id.
func (s *Session) ID() string { return s.id }

// Num returns the numeric client id.
func (s *Session) Num() int64 { return s.num }

// Addr returns the remote address.
func (s *Session) Addr() string { return s.addr }

// LocalAddr returns the local address.
func (s *Session) LocalAddr() string { return s.localAddr }

// Created returns the connection time.
func (s *Session) Created() time.Time { return s.created }

// Name returns the name set by CLIENT SETNAME.
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// SetName sets the client name.
func (s *Session) SetName(name string) {
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
}

// DB returns the selected database index.
func (s *Session) DB() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db
}

// SetDB selects a database index.
func (s *Session) SetDB(db int) {
	s.mu.Lock()
	s.db = db
	s.mu.Unlock()
}

// User returns the authenticated user name.
func (s *Session) User() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Authenticated reports whether the session passed AUTH.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// SetAuthenticated records the outcome of AUTH for user.
func (s *Session) SetAuthenticated(user string, ok bool) {
	s.mu.Lock()
	s.authenticated = ok
	if ok {
		s.user = user
	}
	s.mu.Unlock()
}

// Touch records the last executed command.
func (s *Session) Touch(cmd string, now time.Time) {
	s.mu.Lock()
	s.lastCommand = cmd
	s.lastActive = now
	s.mu.Unlock()
}

// LastCommand returns the last executed command name and when it ran.
func (s *Session) LastCommand() (string, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastCommand, s.lastActive
}

// Active reports whether the connection is still being served.
func (s *Session) Active() bool { return s.active.Load() }

// Deactivate marks the session closed. It reports whether this call
// changed the state.
func (s *Session) Deactivate() bool {
	return s.active.CompareAndSwap(true, false)
}

// ============================================================================
// Transactions
// ============================================================================

// InTx reports whether MULTI is open.
func (s *Session) InTx() bool { return s.inTx }

// BeginTx opens a transaction with an empty queue.
func (s *Session) BeginTx() {
	s.inTx = true
	s.queue = s.queue[:0]
}

// Enqueue buffers a command inside MULTI.
func (s *Session) Enqueue(name string, args []string) {
	s.queue = append(s.queue, QueuedCommand{Name: name, Args: args})
}

// TakeTx closes the transaction and returns its queue.
func (s *Session) TakeTx() []QueuedCommand {
	q := s.queue
	s.inTx = false
	s.queue = nil
	return q
}

// DiscardTx closes the transaction and drops its queue.
func (s *Session) DiscardTx() {
	s.inTx = false
	s.queue = nil
}

// ============================================================================
// Scan cursor
// ============================================================================

// Cursor returns the open SCAN cursor, or nil.
func (s *Session) Cursor() *Cursor { return s.cursor }

// SetCursor attaches a SCAN cursor; nil clears it.
func (s *Session) SetCursor(c *Cursor) { s.cursor = c }

// ============================================================================
// Delivery
// ============================================================================

// Deliver pushes an encoded frame to the client outside the
// request/reply flow. Frames for an inactive session are dropped.
func (s *Session) Deliver(frame []byte) error {
	if s.deliver == nil || !s.Active() {
		return nil
	}
	return s.deliver(frame)
}
