package shutdown

import (
	"context"
	"errors"
	"sync"
	"syscall"
	"testing"
	"time"
)

func TestNewHandler(t *testing.T) {
	h := NewHandler(5 * time.Second)
	if h == nil {
		t.Fatal("NewHandler returned nil")
	}
	if h.timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", h.timeout)
	}
	if h.hooks == nil {
		t.Error("hooks should be initialized")
	}
	if h.done == nil || h.trigger == nil {
		t.Error("channels should be initialized")
	}

	select {
	case <-h.Done():
		t.Error("Done channel should not be closed initially")
	default:
	}
}

func recordingHooks(h *Handler, n int) func() []int {
	var mu sync.Mutex
	var order []int
	for i := 1; i <= n; i++ {
		h.OnShutdown(func(ctx context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		})
	}
	return func() []int {
		mu.Lock()
		defer mu.Unlock()
		return append([]int(nil), order...)
	}
}

func waitAsync(h *Handler, ctx context.Context) chan error {
	errCh := make(chan error, 1)
	go func() {
		_, err := h.Wait(ctx)
		errCh <- err
	}()
	return errCh
}

func TestHandler_Wait_WithSignal(t *testing.T) {
	h := NewHandler(5 * time.Second)
	order := recordingHooks(h, 3)

	type result struct {
		reason Reason
		err    error
	}
	resCh := make(chan result, 1)
	go func() {
		r, err := h.Wait(context.Background())
		resCh <- result{r, err}
	}()

	// Give Wait time to set up signal handler
	time.Sleep(50 * time.Millisecond)
	_ = syscall.Kill(syscall.Getpid(), syscall.SIGINT)

	select {
	case res := <-resCh:
		if res.err != nil {
			t.Errorf("Wait() returned error: %v", res.err)
		}
		if res.reason != ReasonSignal {
			t.Errorf("reason = %q, want %q", res.reason, ReasonSignal)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not complete in time")
	}

	got := order()
	if len(got) != 3 || got[0] != 3 || got[1] != 2 || got[2] != 1 {
		t.Errorf("hooks called in wrong order: %v, want [3 2 1]", got)
	}

	select {
	case <-h.Done():
	default:
		t.Error("Done channel should be closed after Wait completes")
	}
}

func TestHandler_Trigger(t *testing.T) {
	h := NewHandler(time.Second)
	order := recordingHooks(h, 2)

	resCh := make(chan Reason, 1)
	go func() {
		r, _ := h.Wait(context.Background())
		resCh <- r
	}()

	h.Trigger()
	h.Trigger()

	select {
	case r := <-resCh:
		if r != ReasonTrigger {
			t.Errorf("reason = %q, want %q", r, ReasonTrigger)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not complete after Trigger")
	}
	if got := order(); len(got) != 2 {
		t.Errorf("hooks called = %v", got)
	}
}

func TestHandler_Wait_ContextCanceled(t *testing.T) {
	h := NewHandler(time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := waitAsync(h, ctx)

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Wait() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not return after cancel")
	}
}

func TestHandler_Wait_HookError(t *testing.T) {
	h := NewHandler(5 * time.Second)

	first := errors.New("first")
	second := errors.New("second")

	h.OnShutdown(func(ctx context.Context) error { return first })
	h.OnShutdown(func(ctx context.Context) error { return nil })
	h.OnShutdown(func(ctx context.Context) error { return second })

	errCh := waitAsync(h, context.Background())
	h.Trigger()

	select {
	case err := <-errCh:
		if !errors.Is(err, first) || !errors.Is(err, second) {
			t.Errorf("Wait() returned %v, want both hook errors", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not complete in time")
	}
}

func TestHandler_HookDeadline(t *testing.T) {
	h := NewHandler(20 * time.Millisecond)

	h.OnShutdown(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	errCh := waitAsync(h, context.Background())
	h.Trigger()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Wait() error = %v, want deadline exceeded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hook context did not expire")
	}
}

func TestHandler_ConcurrentOnShutdown(t *testing.T) {
	h := NewHandler(5 * time.Second)

	var wg sync.WaitGroup
	numGoroutines := 10

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.OnShutdown(func(ctx context.Context) error {
				return nil
			})
		}()
	}

	wg.Wait()

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.hooks) != numGoroutines {
		t.Errorf("expected %d hooks, got %d", numGoroutines, len(h.hooks))
	}
}
