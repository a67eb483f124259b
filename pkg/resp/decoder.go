package resp

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// DefaultMaxBufferLength bounds the bytes a Decoder retains while waiting
// for the rest of a frame (16 MiB).
const DefaultMaxBufferLength = 16 * 1024 * 1024

// maxPrealloc caps slice preallocation for declared array lengths.
const maxPrealloc = 1024

// MaxNesting is the deepest array nesting a frame may use.
const MaxNesting = 16

var (
	ErrProtocol       = errors.New("resp: protocol error")
	ErrBufferExceeded = errors.New("Maximum buffer length exceeded")

	errIncomplete = errors.New("resp: incomplete frame")
)

var crlf = []byte("\r\n")

// ProtocolError is returned by Next for a malformed frame.
type ProtocolError struct {
	Msg string
}

func (e *ProtocolError) Error() string { return e.Msg }

func (e *ProtocolError) Unwrap() error { return ErrProtocol }

func protocolErrorf(format string, args ...any) error {
	return &ProtocolError{Msg: fmt.Sprintf(format, args...)}
}

// Decoder parses RESP2 frames from successive chunks. It is not safe for
// concurrent use.
type Decoder struct {
	max int
	buf []byte
	off int
}

// NewDecoder returns a decoder that retains at most maxBuffer bytes of
// unparsed input. A value <= 0 selects DefaultMaxBufferLength.
func NewDecoder(maxBuffer int) *Decoder {
	if maxBuffer <= 0 {
		maxBuffer = DefaultMaxBufferLength
	}
	return &Decoder{max: maxBuffer}
}

// Buffered reports the number of bytes waiting to be parsed.
func (d *Decoder) Buffered() int {
	return len(d.buf) - d.off
}

// Write appends a chunk of input. When a partial frame is pending and the
// combined size would exceed the limit, the pending bytes are discarded
// and ErrBufferExceeded is returned.
func (d *Decoder) Write(p []byte) error {
	if d.off > 0 {
		n := copy(d.buf, d.buf[d.off:])
		d.buf = d.buf[:n]
		d.off = 0
	}
	if len(d.buf) > 0 && len(d.buf)+len(p) > d.max {
		d.buf = d.buf[:0]
		return ErrBufferExceeded
	}
	d.buf = append(d.buf, p...)
	return nil
}

// Next returns the next complete frame. ok is false when more input is
// needed. On a protocol error the decoder skips past the next CRLF so that
// later frames can still be read.
func (d *Decoder) Next() (v Value, ok bool, err error) {
	if d.off >= len(d.buf) {
		return Value{}, false, nil
	}
	v, n, err := parseValue(d.buf[d.off:], 0)
	switch {
	case err == nil:
		d.off += n
		return v, true, nil
	case errors.Is(err, errIncomplete):
		return Value{}, false, nil
	default:
		d.resync()
		return Value{}, false, err
	}
}

// Reset drops any buffered input.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
	d.off = 0
}

func (d *Decoder) resync() {
	i := bytes.Index(d.buf[d.off:], crlf)
	if i < 0 {
		d.Reset()
		return
	}
	d.off += i + 2
}

func parseValue(b []byte, depth int) (Value, int, error) {
	if len(b) == 0 {
		return Value{}, 0, errIncomplete
	}
	switch Kind(b[0]) {
	case KindSimple, KindError:
		line, n, err := readLine(b[1:])
		if err != nil {
			return Value{}, 0, err
		}
		return Value{Kind: Kind(b[0]), Str: string(line)}, n + 1, nil
	case KindInteger:
		line, n, err := readLine(b[1:])
		if err != nil {
			return Value{}, 0, err
		}
		i, perr := strconv.ParseInt(string(line), 10, 64)
		if perr != nil {
			return Value{}, 0, protocolErrorf("Invalid integer: %q", line)
		}
		return Value{Kind: KindInteger, Int: i}, n + 1, nil
	case KindBulk:
		return parseBulk(b)
	case KindArray:
		return parseArray(b, depth)
	default:
		return Value{}, 0, protocolErrorf("Unexpected type: %q", b[0])
	}
}

func parseBulk(b []byte) (Value, int, error) {
	size, n, err := readLength(b[1:])
	if err != nil {
		return Value{}, 0, err
	}
	pos := 1 + n
	if size == -1 {
		return Value{Kind: KindBulk, Null: true}, pos, nil
	}
	end := pos + size
	if len(b) < end+2 {
		return Value{}, 0, errIncomplete
	}
	if b[end] != '\r' || b[end+1] != '\n' {
		return Value{}, 0, protocolErrorf("Invalid bulk string terminator")
	}
	return Value{Kind: KindBulk, Str: string(b[pos:end])}, end + 2, nil
}

func parseArray(b []byte, depth int) (Value, int, error) {
	if depth >= MaxNesting {
		return Value{}, 0, protocolErrorf("Nested arrays exceed %d levels", MaxNesting)
	}
	count, n, err := readLength(b[1:])
	if err != nil {
		return Value{}, 0, err
	}
	pos := 1 + n
	if count == -1 {
		return Value{Kind: KindArray, Null: true}, pos, nil
	}
	elems := make([]Value, 0, min(count, maxPrealloc))
	for i := 0; i < count; i++ {
		e, en, err := parseValue(b[pos:], depth+1)
		if err != nil {
			return Value{}, 0, err
		}
		elems = append(elems, e)
		pos += en
	}
	return Value{Kind: KindArray, Elems: elems}, pos, nil
}

// readLength parses a length line. Lengths below -1 are protocol errors.
func readLength(b []byte) (int, int, error) {
	line, n, err := readLine(b)
	if err != nil {
		return 0, 0, err
	}
	size, perr := strconv.Atoi(string(line))
	if perr != nil || size < -1 {
		return 0, 0, protocolErrorf("Invalid length: %q", line)
	}
	return size, n, nil
}

// readLine returns the bytes before the next CRLF and the count consumed
// including the terminator.
func readLine(b []byte) ([]byte, int, error) {
	i := bytes.Index(b, crlf)
	if i < 0 {
		return nil, 0, errIncomplete
	}
	return b[:i], i + 2, nil
}
