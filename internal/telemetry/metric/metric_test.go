package metric

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	keys, expires   int
	expired, writes uint64
}

func (f fakeSource) Keys() int               { return f.keys }
func (f fakeSource) Expires() int            { return f.expires }
func (f fakeSource) ExpiredKeys() uint64     { return f.expired }
func (f fakeSource) AOFWrittenBytes() uint64 { return f.writes }

// ============================================================================
// Registry
// ============================================================================

func TestRegistry_ObserveCommand(t *testing.T) {
	r := NewRegistry()
	r.ObserveCommand("get", time.Millisecond, false)
	r.ObserveCommand("get", time.Millisecond, false)
	r.ObserveCommand("get", time.Millisecond, true)

	if got := testutil.ToFloat64(r.CommandsTotal.WithLabelValues("get", "ok")); got != 2 {
		t.Errorf("commands_total{get,ok} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.CommandsTotal.WithLabelValues("get", "error")); got != 1 {
		t.Errorf("commands_total{get,error} = %v, want 1", got)
	}
}

func TestRegistry_Connections(t *testing.T) {
	r := NewRegistry()
	r.ConnOpened()
	r.ConnOpened()
	r.ConnClosed()
	r.ConnRejected()

	if got := testutil.ToFloat64(r.ConnectedClients); got != 1 {
		t.Errorf("connected_clients = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.ConnectionsTotal); got != 2 {
		t.Errorf("connections_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.RejectedTotal); got != 1 {
		t.Errorf("rejected_connections_total = %v, want 1", got)
	}
}

func TestRegistry_NilSafe(t *testing.T) {
	var r *Registry
	r.ObserveCommand("get", time.Millisecond, false)
	r.ConnOpened()
	r.ConnClosed()
	r.ConnRejected()
	if err := r.Register(NewCollector(fakeSource{})); err != nil {
		t.Errorf("Register() on nil = %v", err)
	}
	if r.Gatherer() == nil {
		t.Error("Gatherer() on nil returned nil")
	}
}

// ============================================================================
// Collector
// ============================================================================

func TestCollector(t *testing.T) {
	c := NewCollector(fakeSource{keys: 3, expires: 1, expired: 7, writes: 42})
	if n := testutil.CollectAndCount(c); n != 4 {
		t.Errorf("CollectAndCount() = %d, want 4", n)
	}

	want := `
# HELP sidermem_keys Keys in the keyspace.
# TYPE sidermem_keys gauge
sidermem_keys 3
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(want), "sidermem_keys"); err != nil {
		t.Errorf("CollectAndCompare() = %v", err)
	}
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(NewCollector(fakeSource{keys: 5})); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	r.ObserveCommand("set", time.Microsecond, false)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	res, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)

	for _, want := range []string{
		"sidermem_keys 5",
		`sidermem_commands_total{command="set",status="ok"} 1`,
		"sidermem_connected_clients 0",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
