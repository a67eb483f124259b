package command

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/sidermem-go/internal/core/auth"
	"github.com/yndnr/sidermem-go/internal/core/engine"
	"github.com/yndnr/sidermem-go/internal/server/respserver"
	"github.com/yndnr/sidermem-go/internal/storage/memory"
)

// startServer runs a real RESP server on a loopback port and returns
// its address.
func startServer(t *testing.T, password string) string {
	t.Helper()

	cfg := engine.Config{Store: memory.New()}
	if password != "" {
		v, err := auth.NewStatic("", password)
		if err != nil {
			t.Fatalf("NewStatic() error = %v", err)
		}
		cfg.Verifier = v
	}
	e, err := engine.New(cfg)
	if err != nil {
		t.Fatalf("engine.New() error = %v", err)
	}

	srv := respserver.New(&respserver.Config{Address: "127.0.0.1:0"}, e, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	if err := srv.Start(ctx); err != nil {
		cancel()
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		sctx, scancel := context.WithTimeout(context.Background(), time.Second)
		defer scancel()
		_ = srv.Shutdown(sctx)
		cancel()
	})
	return srv.Addr().String()
}

// serverArgs returns the global flags pointing at addr.
func serverArgs(t *testing.T, addr string) []string {
	t.Helper()
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatal(err)
	}
	return []string{"--host", host, "--port", port}
}

// writeCLIConfig writes a CLI config keeping history under the test's
// temp dir and returns its path.
func writeCLIConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "cli.yaml")
	content := fmt.Sprintf("history_file: %q\n%s", filepath.Join(dir, "history"), extra)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

// runApp runs the CLI with args and returns what it wrote to stdout.
func runApp(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := App()
	app.Writer = &out
	app.ErrWriter = io.Discard
	app.Reader = strings.NewReader(stdin)
	err := app.Run(append([]string{"sidermem-cli"}, args...))
	return out.String(), err
}

// parseFlags runs the CLI with an action that only resolves the global
// flags.
func parseFlags(t *testing.T, args ...string) (*GlobalFlags, error) {
	t.Helper()
	var (
		got  *GlobalFlags
		perr error
	)
	app := App()
	app.Writer = io.Discard
	app.Action = func(c *cli.Context) error {
		got, perr = ParseGlobalFlags(c)
		return nil
	}
	if err := app.Run(append([]string{"sidermem-cli"}, args...)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return got, perr
}

// syncBuffer is a bytes.Buffer safe for one writer and one poller.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
