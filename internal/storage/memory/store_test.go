package memory

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/sidermem-go/internal/core/domain"
	"github.com/yndnr/sidermem-go/internal/infra/clock"
)

func newTestStore(opts ...Option) (*Store, *clock.Manual) {
	clk := clock.NewManual(time.UnixMilli(1_700_000_000_000))
	return New(append([]Option{WithClock(clk)}, opts...)...), clk
}

// ============================================================
// Main Table
// ============================================================

func TestStore_SetGet(t *testing.T) {
	s, _ := newTestStore()

	s.Set("k", "v1", domain.TypeString)
	s.Set("k", "v2", domain.TypeString)

	got, err := s.Get("k", domain.TypeString)
	if err != nil || got != "v2" {
		t.Fatalf("Get() = (%v, %v), want (v2, nil)", got, err)
	}
	if got, err := s.Get("missing", domain.TypeString); got != nil || err != nil {
		t.Errorf("Get(missing) = (%v, %v), want (nil, nil)", got, err)
	}
	if s.Type("k") != domain.TypeString || s.Type("missing") != domain.TypeNone {
		t.Error("Type() returned unexpected tags")
	}
}

func TestStore_TypeExclusivity(t *testing.T) {
	s, _ := newTestStore()
	s.Set("k", "v", domain.TypeString)

	if _, err := s.Get("k", domain.TypeHash); !errors.Is(err, domain.ErrWrongType) {
		t.Fatalf("Get(hash) error = %v, want ErrWrongType", err)
	}

	s.Set("k", domain.NewHash(), domain.TypeHash)
	if s.Type("k") != domain.TypeHash {
		t.Errorf("Type() = %v after overwrite, want hash", s.Type("k"))
	}
	if _, err := s.Get("k", domain.TypeString); !errors.Is(err, domain.ErrWrongType) {
		t.Errorf("Get(string) error = %v, want ErrWrongType", err)
	}
}

func TestStore_PartitionsAndGeneration(t *testing.T) {
	s, _ := newTestStore()
	gen := s.Generation()
	for _, k := range []string{"c", "a", "b"} {
		s.Set(k, k, domain.TypeString)
	}
	if s.Generation() == gen {
		t.Fatal("adding keys must change the generation")
	}

	gen = s.Generation()
	s.Set("a", "again", domain.TypeString)
	if s.Generation() != gen {
		t.Error("overwriting a key must not change the generation")
	}

	var keys []string
	for i := 0; i < s.Partitions(); i++ {
		keys = append(keys, s.PartitionKeys(i)...)
	}
	sort.Strings(keys)
	if !reflect.DeepEqual(keys, []string{"a", "b", "c"}) {
		t.Errorf("partition keys = %v", keys)
	}
}

func TestStore_DeleteClearKeys(t *testing.T) {
	s, _ := newTestStore()
	for _, k := range []string{"c", "a", "b"} {
		s.Set(k, k, domain.TypeString)
	}
	s.SetExpiry("a", 1_800_000_000_000)

	if !s.Delete("a") || s.Delete("a") {
		t.Error("Delete should report existence once")
	}
	if s.HasExpiry("a") {
		t.Error("Delete must remove the expiry too")
	}
	if got := s.Keys(); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Errorf("Keys() = %v", got)
	}
	if s.Size() != 2 {
		t.Errorf("Size() = %d, want 2", s.Size())
	}

	s.Clear()
	if s.Size() != 0 || s.ExpiresCount() != 0 {
		t.Error("Clear() left entries behind")
	}
}

func TestStore_Generation(t *testing.T) {
	s, _ := newTestStore()
	g0 := s.Generation()

	s.Set("k", "v", domain.TypeString)
	g1 := s.Generation()
	if g1 == g0 {
		t.Error("adding a key must change the generation")
	}
	s.Set("k", "v2", domain.TypeString)
	if s.Generation() != g1 {
		t.Error("overwriting a key must not change the generation")
	}
	s.Delete("k")
	if s.Generation() == g1 {
		t.Error("deleting a key must change the generation")
	}
}

// ============================================================
// Expiry
// ============================================================

func TestStore_SetExpiryRequiresKey(t *testing.T) {
	s, _ := newTestStore()
	s.SetExpiry("ghost", 1)
	if s.HasExpiry("ghost") {
		t.Error("SetExpiry on a missing key must be ignored")
	}
}

func TestStore_LazyExpiry(t *testing.T) {
	var expired []string
	s, clk := newTestStore(WithExpireHook(func(k string) { expired = append(expired, k) }))

	s.Set("k", "v", domain.TypeString)
	at := clock.NowMs(clk) + 10_000
	s.SetExpiry("k", at)

	if got, ok := s.GetExpiry("k"); !ok || got != at {
		t.Fatalf("GetExpiry() = (%d, %v)", got, ok)
	}

	clk.Advance(9 * time.Second)
	if !s.Has("k") {
		t.Fatal("key expired early")
	}

	clk.Advance(time.Second)
	if s.Has("k") {
		t.Fatal("key should expire once now >= expiry")
	}
	if v, _ := s.Get("k", domain.TypeString); v != nil {
		t.Errorf("Get() = %v after expiry, want nil", v)
	}
	if s.Size() != 0 || s.HasExpiry("k") {
		t.Error("expired key not evicted from both tables")
	}
	if !reflect.DeepEqual(expired, []string{"k"}) {
		t.Errorf("expire hook saw %v", expired)
	}
	if s.Stats().ExpiredKeys != 1 {
		t.Errorf("ExpiredKeys = %d, want 1", s.Stats().ExpiredKeys)
	}
}

func TestStore_DeleteExpiry(t *testing.T) {
	s, clk := newTestStore()
	s.Set("k", "v", domain.TypeString)
	s.SetExpiry("k", clock.NowMs(clk)+1000)

	if !s.DeleteExpiry("k") || s.DeleteExpiry("k") {
		t.Error("DeleteExpiry should report a TTL once")
	}
	clk.Advance(time.Hour)
	if !s.Has("k") {
		t.Error("persisted key must not expire")
	}
}

// ============================================================
// Active Sweep
// ============================================================

func TestStore_Sweep(t *testing.T) {
	s, clk := newTestStore()
	now := clock.NowMs(clk)
	for i, k := range []string{"a", "b", "c", "d"} {
		s.Set(k, k, domain.TypeString)
		if i < 3 {
			s.SetExpiry(k, now+int64(i+1)*1000)
		}
	}

	clk.Advance(2500 * time.Millisecond)
	if n := s.Sweep(context.Background()); n != 2 {
		t.Fatalf("Sweep() removed %d, want 2", n)
	}
	if got := s.Keys(); !reflect.DeepEqual(got, []string{"c", "d"}) {
		t.Errorf("Keys() after sweep = %v", got)
	}
}

func TestStore_SweepLoop(t *testing.T) {
	s, clk := newTestStore(WithSweepInterval(5 * time.Millisecond))
	s.Set("k", "v", domain.TypeString)
	s.SetExpiry("k", clock.NowMs(clk)+1)
	clk.Advance(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Size() == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("background sweep did not remove the expired key")
}

func TestStore_SweepYieldsToCommands(t *testing.T) {
	s, clk := newTestStore()
	now := clock.NowMs(clk)
	for i := 0; i < 1000; i++ {
		k := "k" + string(rune('a'+i%26)) + string(rune('a'+i/26))
		s.Set(k, "v", domain.TypeString)
		s.SetExpiry(k, now+1)
	}
	clk.Advance(time.Second)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Sweep(context.Background())
	}()

	// A foreground command can take the lock while the sweep is running.
	s.Lock()
	s.Set("fg", "v", domain.TypeString)
	s.Unlock()
	wg.Wait()

	if !s.Has("fg") {
		t.Error("foreground key lost")
	}
}

func TestStore_StopWithoutStart(t *testing.T) {
	s, _ := newTestStore()
	s.Stop()
}
