package benchmark

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"testing"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/sidermem-go/internal/core/engine"
	"github.com/yndnr/sidermem-go/internal/core/session"
	"github.com/yndnr/sidermem-go/internal/storage/aof"
	"github.com/yndnr/sidermem-go/internal/storage/memory"
	"github.com/yndnr/sidermem-go/pkg/resp"
)

// KeyCounts defines the keyspace sizes for benchmarking.
var KeyCounts = []int{5000, 10000, 50000, 100000, 500000}

// SmallKeyCounts for quick benchmarks.
var SmallKeyCounts = []int{1000, 10000, 100000}

// newEngine creates an engine over a fresh store writing to sink.
func newEngine(b *testing.B, sink aof.Sink) (*engine.Engine, *session.Session) {
	b.Helper()
	e, err := engine.New(engine.Config{Store: memory.New(), Sink: sink})
	if err != nil {
		b.Fatalf("engine.New failed: %v", err)
	}
	return e, e.Connect()
}

// keyName returns the i-th key of a run.
func keyName(prefix string, i int) string {
	return prefix + ":" + strconv.Itoa(i)
}

// newPrefix returns a unique key prefix.
func newPrefix() string {
	return "bench:" + ulid.Make().String()
}

// prefill stores count string keys and returns their prefix.
func prefill(b *testing.B, e *engine.Engine, sess *session.Session, count int) string {
	b.Helper()
	ctx := context.Background()
	prefix := newPrefix()
	for i := 0; i < count; i++ {
		if r := e.Execute(ctx, sess, []string{"SET", keyName(prefix, i), "value"}); isError(r) {
			b.Fatalf("prefill SET failed: %v", r)
		}
	}
	return prefix
}

func isError(r resp.Reply) bool {
	_, ok := r.(resp.Error)
	return ok
}

// reportMemory reports memory usage.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithKeyCounts runs a benchmark function with various keyspace sizes.
func runWithKeyCounts(b *testing.B, counts []int, benchFn func(b *testing.B, count int)) {
	for _, count := range counts {
		b.Run(fmt.Sprintf("keys_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}
