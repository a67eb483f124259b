package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jolestar/go-commons-pool/v2"
	"github.com/oklog/ulid/v2"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/sidermem-go/internal/cli/connection"
	"github.com/yndnr/sidermem-go/internal/cli/output"
)

// BenchCommand returns the bench command.
func BenchCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "Run a load test against the server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "requests",
				Aliases: []string{"n"},
				Usage:   "total number of requests",
				Value:   100000,
			},
			&cli.IntFlag{
				Name:    "clients",
				Aliases: []string{"c"},
				Usage:   "number of parallel connections",
				Value:   50,
			},
			&cli.IntFlag{
				Name:    "pipeline",
				Aliases: []string{"P"},
				Usage:   "requests sent per round trip",
				Value:   1,
			},
			&cli.StringFlag{
				Name:    "command",
				Aliases: []string{"t"},
				Usage:   "command to run: " + strings.Join(benchCommands, ", "),
				Value:   "set",
			},
			&cli.IntFlag{
				Name:    "data-size",
				Aliases: []string{"d"},
				Usage:   "value size in bytes",
				Value:   3,
			},
			&cli.IntFlag{
				Name:    "keyspace",
				Aliases: []string{"r"},
				Usage:   "number of distinct keys",
				Value:   10000,
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "hide the progress bar",
			},
		},
		Action: runBench,
	}
}

var benchCommands = []string{"ping", "set", "get", "incr", "lpush", "hset"}

// BenchOptions describe one load test.
type BenchOptions struct {
	Requests int
	Clients  int
	Pipeline int
	Command  string
	DataSize int
	Keyspace int
}

func (o BenchOptions) validate() error {
	var errs []error
	if o.Requests <= 0 {
		errs = append(errs, errors.New("requests must be positive"))
	}
	if o.Clients <= 0 {
		errs = append(errs, errors.New("clients must be positive"))
	}
	if o.Pipeline <= 0 {
		errs = append(errs, errors.New("pipeline must be positive"))
	}
	if o.DataSize < 0 {
		errs = append(errs, errors.New("data-size must not be negative"))
	}
	if o.Keyspace <= 0 {
		errs = append(errs, errors.New("keyspace must be positive"))
	}
	return errors.Join(errs...)
}

// BenchResult summarizes a finished load test. Latencies are per round
// trip, so with pipelining they cover the whole batch.
type BenchResult struct {
	RunID      string  `json:"run_id" yaml:"run_id"`
	Command    string  `json:"command" yaml:"command"`
	Requests   int     `json:"requests" yaml:"requests"`
	Errors     int     `json:"errors" yaml:"errors"`
	Clients    int     `json:"clients" yaml:"clients"`
	Pipeline   int     `json:"pipeline" yaml:"pipeline"`
	DataSize   int     `json:"data_size" yaml:"data_size"`
	ElapsedSec float64 `json:"elapsed_seconds" yaml:"elapsed_seconds"`
	OpsPerSec  float64 `json:"ops_per_sec" yaml:"ops_per_sec"`
	P50Ms      float64 `json:"p50_ms" yaml:"p50_ms"`
	P99Ms      float64 `json:"p99_ms" yaml:"p99_ms"`
	MaxMs      float64 `json:"max_ms" yaml:"max_ms"`
}

// connFactory creates pooled RESP connections.
type connFactory struct {
	opts connection.Options
}

func (f *connFactory) MakeObject(ctx context.Context) (*pool.PooledObject, error) {
	c, err := connection.Dial(ctx, f.opts)
	if err != nil {
		return nil, err
	}
	return pool.NewPooledObject(c), nil
}

func (f *connFactory) DestroyObject(ctx context.Context, object *pool.PooledObject) error {
	c, ok := object.Object.(*connection.Client)
	if !ok {
		return errors.New("type mismatch")
	}
	return c.Close()
}

func (f *connFactory) ValidateObject(ctx context.Context, object *pool.PooledObject) bool {
	return true
}

func (f *connFactory) ActivateObject(ctx context.Context, object *pool.PooledObject) error {
	return nil
}

func (f *connFactory) PassivateObject(ctx context.Context, object *pool.PooledObject) error {
	return nil
}

// RunBench sends opts.Requests commands over opts.Clients pooled
// connections. onBatch, if set, is called with the size of every
// completed round trip. Keys are namespaced by a fresh run id.
func RunBench(ctx context.Context, opts BenchOptions, connOpts connection.Options, onBatch func(n int)) (*BenchResult, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	runID := ulid.Make().String()
	build, err := benchRequest(opts.Command, runID, opts.DataSize, opts.Keyspace)
	if err != nil {
		return nil, err
	}

	cfg := pool.NewDefaultPoolConfig()
	cfg.MaxTotal = opts.Clients
	cfg.MaxIdle = opts.Clients
	p := pool.NewObjectPool(ctx, &connFactory{opts: connOpts}, cfg)
	defer p.Close(ctx)

	// Fail before starting the clock when the server is unreachable.
	warm, err := p.BorrowObject(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := p.ReturnObject(ctx, warm); err != nil {
		return nil, err
	}

	var (
		batches   = (opts.Requests + opts.Pipeline - 1) / opts.Pipeline
		next      atomic.Int64
		replyErrs atomic.Int64
		mu        sync.Mutex
		latencies = make([]time.Duration, 0, batches)
		firstErr  error
		wg        sync.WaitGroup
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}

	start := time.Now()
	for range opts.Clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var local []time.Duration
			defer func() {
				mu.Lock()
				latencies = append(latencies, local...)
				mu.Unlock()
			}()

			for ctx.Err() == nil {
				b := int(next.Add(1)) - 1
				if b >= batches {
					return
				}
				first := b * opts.Pipeline
				n := min(opts.Pipeline, opts.Requests-first)
				cmds := make([][]string, n)
				for i := range cmds {
					cmds[i] = build(first + i)
				}

				obj, err := p.BorrowObject(ctx)
				if err != nil {
					fail(err)
					return
				}
				client := obj.(*connection.Client)

				t0 := time.Now()
				replies, err := client.Pipeline(cmds)
				if err != nil {
					_ = p.InvalidateObject(ctx, obj)
					fail(err)
					return
				}
				local = append(local, time.Since(t0))
				_ = p.ReturnObject(ctx, obj)

				for _, r := range replies {
					if connection.ReplyError(r) != nil {
						replyErrs.Add(1)
					}
				}
				if onBatch != nil {
					onBatch(n)
				}
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slices.Sort(latencies)
	return &BenchResult{
		RunID:      runID,
		Command:    strings.ToLower(opts.Command),
		Requests:   opts.Requests,
		Errors:     int(replyErrs.Load()),
		Clients:    opts.Clients,
		Pipeline:   opts.Pipeline,
		DataSize:   opts.DataSize,
		ElapsedSec: elapsed.Seconds(),
		OpsPerSec:  float64(opts.Requests) / elapsed.Seconds(),
		P50Ms:      millis(percentile(latencies, 0.50)),
		P99Ms:      millis(percentile(latencies, 0.99)),
		MaxMs:      millis(percentile(latencies, 1)),
	}, nil
}

// benchRequest returns a builder for the i-th request of a run.
func benchRequest(command, runID string, size, keyspace int) (func(i int) []string, error) {
	value := strings.Repeat("x", size)
	prefix := "bench:" + runID + ":"
	key := func(i int) string { return prefix + strconv.Itoa(i%keyspace) }

	switch strings.ToLower(command) {
	case "ping":
		return func(int) []string { return []string{"PING"} }, nil
	case "set":
		return func(i int) []string { return []string{"SET", key(i), value} }, nil
	case "get":
		return func(i int) []string { return []string{"GET", key(i)} }, nil
	case "incr":
		return func(i int) []string { return []string{"INCR", key(i)} }, nil
	case "lpush":
		return func(int) []string { return []string{"LPUSH", prefix + "list", value} }, nil
	case "hset":
		return func(i int) []string {
			return []string{"HSET", prefix + "hash", strconv.Itoa(i % keyspace), value}
		}, nil
	}
	return nil, fmt.Errorf("unsupported bench command %q (want %s)", command, strings.Join(benchCommands, ", "))
}

// percentile returns the p-th quantile of sorted, nearest rank.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	i := int(math.Ceil(p*float64(len(sorted)))) - 1
	i = max(0, min(i, len(sorted)-1))
	return sorted[i]
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func runBench(c *cli.Context) error {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return err
	}
	connOpts, err := flags.ConnOptions()
	if err != nil {
		return err
	}

	opts := BenchOptions{
		Requests: c.Int("requests"),
		Clients:  c.Int("clients"),
		Pipeline: c.Int("pipeline"),
		Command:  c.String("command"),
		DataSize: c.Int("data-size"),
		Keyspace: c.Int("keyspace"),
	}

	var (
		bar     *output.ProgressBar
		onBatch func(int)
	)
	if !c.Bool("quiet") && flags.Output == output.FormatText {
		bar = output.NewProgressBar(c.App.ErrWriter, strings.ToUpper(opts.Command))
		bar.SetTotal(int64(opts.Requests))
		onBatch = func(n int) { bar.Increment(int64(n)) }
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	res, err := RunBench(ctx, opts, connOpts, onBatch)
	if bar != nil && err == nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}

	if flags.Output != output.FormatText {
		return output.NewFormatter(flags.Output).Format(c.App.Writer, res)
	}
	return writeBenchReport(c.App.Writer, res)
}

func writeBenchReport(w io.Writer, r *BenchResult) error {
	_, err := fmt.Fprintf(w, `====== %s ======
  %s requests completed in %.2f seconds
  %d parallel clients, pipeline %d, %s payload
  run id %s

  throughput:  %s requests per second
  latency:     p50 %.3f ms, p99 %.3f ms, max %.3f ms
  errors:      %s
`,
		strings.ToUpper(r.Command),
		humanize.Comma(int64(r.Requests)), r.ElapsedSec,
		r.Clients, r.Pipeline, humanize.IBytes(uint64(r.DataSize)),
		r.RunID,
		humanize.Comma(int64(r.OpsPerSec)),
		r.P50Ms, r.P99Ms, r.MaxMs,
		humanize.Comma(int64(r.Errors)),
	)
	return err
}
