package memory

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/sidermem-go/internal/core/domain"
	"github.com/yndnr/sidermem-go/internal/infra/clock"
	"github.com/yndnr/sidermem-go/internal/telemetry/logger"
	"github.com/yndnr/sidermem-go/pkg/cmap"
)

// DefaultSweepInterval is the pause between active expiry sweeps.
const DefaultSweepInterval = 30 * time.Second

// Entry is a stored value with its type tag. Value holds a string, a
// *domain.Hash or a *domain.List according to Type.
type Entry struct {
	Type  domain.Type
	Value any
}

// Stats are keyspace counters reported by INFO.
type Stats struct {
	ExpiredKeys uint64
	Hits        uint64
	Misses      uint64
}

// Store is the keyspace.
type Store struct {
	// Command lock; see package docs.
	mu sync.Mutex

	entries *cmap.Map[Entry]
	expires *cmap.Map[int64]

	clock         clock.Clock
	logger        logger.Logger
	sweepInterval time.Duration
	onExpire      func(key string)

	generation atomic.Uint64
	expired    atomic.Uint64
	hits       atomic.Uint64
	misses     atomic.Uint64

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// Option configures the Store.
type Option func(*Store)

// WithClock sets the time source used for expiry decisions.
func WithClock(c clock.Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithSweepInterval sets the pause between active expiry sweeps.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

// WithExpireHook registers a callback invoked for every key removed
// because its TTL elapsed.
func WithExpireHook(fn func(key string)) Option {
	return func(s *Store) {
		s.onExpire = fn
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		entries:       cmap.New[Entry](),
		expires:       cmap.New[int64](),
		clock:         clock.System(),
		logger:        logger.Nop(),
		sweepInterval: DefaultSweepInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lock acquires the command lock.
func (s *Store) Lock() { s.mu.Lock() }

// Unlock releases the command lock.
func (s *Store) Unlock() { s.mu.Unlock() }

// Clock returns the store's time source.
func (s *Store) Clock() clock.Clock {
	return s.clock
}

func (s *Store) nowMs() int64 {
	return clock.NowMs(s.clock)
}

// ============================================================================
// Main table
// ============================================================================

// Set stores value under key with the given type, replacing any previous
// entry and its type.
func (s *Store) Set(key string, value any, typ domain.Type) {
	if _, existed := s.entries.Get(key); !existed {
		s.generation.Add(1)
	}
	s.entries.Set(key, Entry{Type: typ, Value: value})
}

// Get returns the value stored under key, or nil when the key is absent
// or expired. A key of a different type yields domain.ErrWrongType.
func (s *Store) Get(key string, want domain.Type) (any, error) {
	if !s.Has(key) {
		s.misses.Add(1)
		return nil, nil
	}
	e, ok := s.entries.Get(key)
	if !ok {
		s.misses.Add(1)
		return nil, nil
	}
	if e.Type != want {
		return nil, domain.ErrWrongType
	}
	s.hits.Add(1)
	return e.Value, nil
}

// Type returns the type of key, or domain.TypeNone when absent.
func (s *Store) Type(key string) domain.Type {
	if !s.Has(key) {
		return domain.TypeNone
	}
	e, _ := s.entries.Get(key)
	return e.Type
}

// Has reports whether key is present. An expired key is evicted first.
func (s *Store) Has(key string) bool {
	if at, ok := s.expires.Get(key); ok && at <= s.nowMs() {
		s.expire(key)
		return false
	}
	return s.entries.Has(key)
}

// Delete removes key and its expiry. It reports whether the key existed.
func (s *Store) Delete(key string) bool {
	s.expires.Delete(key)
	if s.entries.Delete(key) {
		s.generation.Add(1)
		return true
	}
	return false
}

// Size returns the number of keys, including expired keys that have not
// been evicted yet.
func (s *Store) Size() int {
	return s.entries.Count()
}

// Clear removes every key.
func (s *Store) Clear() {
	s.entries.Clear()
	s.expires.Clear()
	s.generation.Add(1)
}

// Keys returns the current keys sorted bytewise.
func (s *Store) Keys() []string {
	keys := s.entries.Keys()
	sort.Strings(keys)
	return keys
}

// Partitions reports how many key partitions PartitionKeys walks.
func (s *Store) Partitions() int {
	return s.entries.ShardCount()
}

// PartitionKeys returns the keys of partition i in no particular order.
// Lazily expired keys may still be present.
func (s *Store) PartitionKeys(i int) []string {
	return s.entries.ShardKeys(i)
}

// Generation changes whenever a key is added or removed. Cursors compare
// it to detect a keyspace that changed under them.
func (s *Store) Generation() uint64 {
	return s.generation.Load()
}

// Stats returns keyspace counters.
func (s *Store) Stats() Stats {
	return Stats{
		ExpiredKeys: s.expired.Load(),
		Hits:        s.hits.Load(),
		Misses:      s.misses.Load(),
	}
}

// ============================================================================
// Expiry table
// ============================================================================

// HasExpiry reports whether key carries a TTL.
func (s *Store) HasExpiry(key string) bool {
	return s.expires.Has(key)
}

// GetExpiry returns the absolute expiry of key in Unix milliseconds.
func (s *Store) GetExpiry(key string) (int64, bool) {
	return s.expires.Get(key)
}

// SetExpiry records an absolute expiry for key. It is a no-op for a key
// that does not exist.
func (s *Store) SetExpiry(key string, atMs int64) {
	if !s.entries.Has(key) {
		return
	}
	s.expires.Set(key, atMs)
}

// DeleteExpiry removes the TTL of key and reports whether it had one.
func (s *Store) DeleteExpiry(key string) bool {
	return s.expires.Delete(key)
}

// ExpiresCount returns the number of keys carrying a TTL.
func (s *Store) ExpiresCount() int {
	return s.expires.Count()
}

func (s *Store) expire(key string) {
	if !s.Delete(key) {
		return
	}
	s.expired.Add(1)
	if s.onExpire != nil {
		s.onExpire(key)
	}
}

// ============================================================================
// Active sweep
// ============================================================================

// Start launches the background sweep. It stops when ctx is cancelled or
// Stop is called.
func (s *Store) Start(ctx context.Context) {
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.sweepLoop(ctx)
}

// Stop halts the background sweep and waits for it to exit.
func (s *Store) Stop() {
	if s.stopCh == nil {
		return
	}
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.doneCh
}

func (s *Store) sweepLoop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.Sweep(ctx); n > 0 {
				s.logger.Debug("expired keys swept", "count", n)
			}
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		}
	}
}

// Sweep removes every key whose expiry has passed and returns how many
// were removed. The command lock is taken per key.
func (s *Store) Sweep(ctx context.Context) int {
	removed := 0
	for _, key := range s.expires.Keys() {
		if ctx.Err() != nil {
			break
		}
		s.mu.Lock()
		if at, ok := s.expires.Get(key); ok && at <= s.nowMs() {
			s.expire(key)
			removed++
		}
		s.mu.Unlock()
		runtime.Gosched()
	}
	return removed
}
