// Package aof provides the append-only command log: a buffered writer
// with a configurable fsync policy and a loader that replays the log
// through a command executor.
package aof

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// File layout constants.
const (
	FileName        = "db.aof"
	DefaultFilePerm = 0600
	DefaultDirPerm  = 0750
)

// Default configuration values.
const (
	DefaultBufferSize   = 64 << 10 // 64KB
	DefaultSyncInterval = time.Second
)

// SyncMode defines when appended frames reach the disk.
type SyncMode string

const (
	// SyncAlways flushes and fsyncs after every append.
	SyncAlways SyncMode = "always"
	// SyncEverySec flushes and fsyncs once per SyncInterval.
	SyncEverySec SyncMode = "everysec"
	// SyncNo flushes once per SyncInterval and leaves fsync to the OS.
	SyncNo SyncMode = "no"
)

// ParseSyncMode validates a policy name.
func ParseSyncMode(s string) (SyncMode, error) {
	switch m := SyncMode(s); m {
	case SyncAlways, SyncEverySec, SyncNo:
		return m, nil
	case "":
		return SyncEverySec, nil
	}
	return "", fmt.Errorf("aof: unknown fsync policy %q", s)
}

// Sink receives encoded command frames.
type Sink interface {
	Append(frame []byte) error
}

// Discard is a Sink that drops every frame. It backs pure in-memory
// operation and replay.
var Discard Sink = discard{}

type discard struct{}

func (discard) Append([]byte) error { return nil }

// Config configures the AOF writer.
type Config struct {
	Dir string

	SyncMode     SyncMode
	SyncInterval time.Duration

	BufferSize int
}

// DefaultConfig returns the default writer configuration for dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:          dir,
		SyncMode:     SyncEverySec,
		SyncInterval: DefaultSyncInterval,
		BufferSize:   DefaultBufferSize,
	}
}

// Path returns the log file path inside dir.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Writer appends frames to the log file.
type Writer struct {
	cfg Config

	mu     sync.Mutex
	file   *os.File
	buf    *bufio.Writer
	closed bool

	written  atomic.Uint64
	lastErr  atomic.Value
	lastSync atomic.Int64

	syncTicker *time.Ticker
	stopCh     chan struct{}
	wg         sync.WaitGroup
}

// NewWriter opens (creating if needed) the log file in append mode.
func NewWriter(cfg Config) (*Writer, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("aof: dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("aof: create dir: %w", err)
	}
	applyDefaults(&cfg)

	file, err := os.OpenFile(Path(cfg.Dir), os.O_CREATE|os.O_APPEND|os.O_WRONLY, DefaultFilePerm)
	if err != nil {
		return nil, fmt.Errorf("aof: open: %w", err)
	}

	w := &Writer{
		cfg:    cfg,
		file:   file,
		buf:    bufio.NewWriterSize(file, cfg.BufferSize),
		stopCh: make(chan struct{}),
	}
	if cfg.SyncMode != SyncAlways {
		w.startSyncLoop()
	}
	return w, nil
}

func applyDefaults(cfg *Config) {
	if cfg.SyncMode == "" {
		cfg.SyncMode = SyncEverySec
	}
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = DefaultSyncInterval
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
}

// Append implements Sink.
func (w *Writer) Append(frame []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("aof: writer is closed")
	}
	n, err := w.buf.Write(frame)
	w.written.Add(uint64(n))
	if err != nil {
		return w.fail(fmt.Errorf("aof: write: %w", err))
	}
	if w.cfg.SyncMode == SyncAlways {
		return w.syncLocked(true)
	}
	return nil
}

// Flush writes buffered frames to the file and fsyncs unless the policy
// is SyncNo.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	return w.syncLocked(w.cfg.SyncMode != SyncNo)
}

func (w *Writer) syncLocked(fsync bool) error {
	if err := w.buf.Flush(); err != nil {
		return w.fail(fmt.Errorf("aof: flush: %w", err))
	}
	if fsync {
		if err := w.file.Sync(); err != nil {
			return w.fail(fmt.Errorf("aof: sync: %w", err))
		}
	}
	w.lastSync.Store(time.Now().Unix())
	return nil
}

func (w *Writer) fail(err error) error {
	w.lastErr.Store(err)
	return err
}

func (w *Writer) startSyncLoop() {
	w.syncTicker = time.NewTicker(w.cfg.SyncInterval)
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-w.syncTicker.C:
				_ = w.Flush()
			case <-w.stopCh:
				return
			}
		}
	}()
}

// WrittenBytes returns the number of bytes appended since open.
func (w *Writer) WrittenBytes() uint64 {
	return w.written.Load()
}

// LastError returns the most recent write or sync failure, if any.
func (w *Writer) LastError() error {
	err, _ := w.lastErr.Load().(error)
	return err
}

// LastSync returns the Unix time of the last successful flush.
func (w *Writer) LastSync() int64 {
	return w.lastSync.Load()
}

// SyncMode returns the configured policy.
func (w *Writer) SyncMode() SyncMode {
	return w.cfg.SyncMode
}

// Close flushes, fsyncs and closes the file.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.stopCh)
	w.mu.Unlock()

	if w.syncTicker != nil {
		w.syncTicker.Stop()
	}
	w.wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.syncLocked(true); err != nil {
		w.file.Close()
		return err
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("aof: close: %w", err)
	}
	return nil
}
