package aof

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/yndnr/sidermem-go/internal/telemetry/logger"
	"github.com/yndnr/sidermem-go/pkg/resp"
)

const readChunkSize = 64 << 10

// Executor runs one recorded command. The command engine implements it
// with a pre-authenticated session and a Discard sink.
type Executor interface {
	Replay(ctx context.Context, args []string) error
}

// Stats summarises a replay.
type Stats struct {
	Frames  int
	Applied int
	Failed  int
	Bytes   int64
}

// Load replays the log at path through exec. A missing file means there
// is nothing to replay. Malformed frames, frames larger than the decoder
// buffer and commands that fail are logged and skipped.
func Load(ctx context.Context, path string, exec Executor, log logger.Logger) (Stats, error) {
	if log == nil {
		log = logger.Nop()
	}
	var st Stats

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Info("no append-only log, starting empty", "path", path)
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("aof: open: %w", err)
	}
	defer f.Close()

	dec := resp.NewDecoder(0)
	chunk := make([]byte, readChunkSize)
	resyncing := false

	for {
		if err := ctx.Err(); err != nil {
			return st, err
		}

		n, rerr := f.Read(chunk)
		if n > 0 {
			st.Bytes += int64(n)
			data := chunk[:n]
			if resyncing {
				data, resyncing = skipToFrame(data)
			}
			if err := dec.Write(data); err != nil {
				st.Failed++
				log.Warn("discarding oversized frame", "near_byte", st.Bytes-int64(n), "error", err)
				data, resyncing = skipToFrame(data)
				// The decoder is empty after an overflow.
				_ = dec.Write(data)
			}
			drain(ctx, dec, exec, log, &st)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return st, fmt.Errorf("aof: read: %w", rerr)
		}
	}

	if dec.Buffered() > 0 {
		log.Warn("truncated frame at end of log", "bytes", dec.Buffered())
	}
	log.Info("append-only log replayed",
		"path", path, "frames", st.Frames, "applied", st.Applied, "failed", st.Failed)
	return st, nil
}

func drain(ctx context.Context, dec *resp.Decoder, exec Executor, log logger.Logger, st *Stats) {
	for {
		v, ok, err := dec.Next()
		if err != nil {
			st.Failed++
			log.Warn("skipping malformed frame", "error", err)
			continue
		}
		if !ok {
			return
		}
		st.Frames++

		args := v.Args()
		if v.Kind != resp.KindArray || len(args) == 0 {
			st.Failed++
			log.Warn("skipping non-command frame", "frame", v.String())
			continue
		}
		if err := exec.Replay(ctx, args); err != nil {
			st.Failed++
			log.Warn("replayed command failed", "command", args[0], "error", err)
			continue
		}
		st.Applied++
	}
}

var frameStart = []byte("\r\n*")

// skipToFrame drops bytes up to the next line that opens an array. The
// flag is true when the chunk holds no such line.
func skipToFrame(b []byte) ([]byte, bool) {
	i := bytes.Index(b, frameStart)
	if i < 0 {
		return nil, true
	}
	return b[i+2:], false
}
