package connection

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/resp"
)

// DefaultTimeout bounds dialing and each request round trip.
const DefaultTimeout = 5 * time.Second

// ErrClosed is returned by a Client after Close.
var ErrClosed = errors.New("connection closed")

// Options configure a RESP client connection.
type Options struct {
	Addr     string
	Username string
	Password string
	Timeout  time.Duration

	// TLS enables TLS when set.
	TLS *tls.Config
}

// Client is a synchronous RESP2 client. It is safe for concurrent use;
// requests are serialized on the connection.
type Client struct {
	opts Options
	conn net.Conn
	rd   *resp.Reader
	wr   *resp.Writer

	mu     sync.Mutex
	closed bool
}

// Dial connects to the server and authenticates when a password is set.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	dialer := &net.Dialer{Timeout: opts.Timeout}
	var (
		conn net.Conn
		err  error
	)
	if opts.TLS != nil {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: opts.TLS}).DialContext(ctx, "tcp", opts.Addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", opts.Addr)
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", opts.Addr, err)
	}

	c := NewClient(conn, opts)
	if opts.Password != "" {
		if err := c.auth(); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	return c, nil
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Client{
		opts: opts,
		conn: conn,
		rd:   resp.NewReader(conn),
		wr:   resp.NewWriter(conn),
	}
}

func (c *Client) auth() error {
	args := []string{"AUTH", c.opts.Password}
	if c.opts.Username != "" {
		args = []string{"AUTH", c.opts.Username, c.opts.Password}
	}
	v, err := c.Do(args...)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := ReplyError(v); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	return nil
}

// Do sends one command and reads its reply. Server error replies are
// returned as values; the error result reports transport failures only.
func (c *Client) Do(args ...string) (resp.Value, error) {
	replies, err := c.Pipeline([][]string{args})
	if err != nil {
		return resp.NullValue(), err
	}
	return replies[0], nil
}

// Pipeline writes every command before reading the replies, which arrive
// in request order.
func (c *Client) Pipeline(cmds [][]string) ([]resp.Value, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if err := c.conn.SetDeadline(time.Now().Add(c.opts.Timeout)); err != nil {
		return nil, err
	}

	for _, args := range cmds {
		if len(args) == 0 {
			return nil, errors.New("empty command")
		}
		if err := c.wr.WriteArray(bulkValues(args)); err != nil {
			return nil, fmt.Errorf("write: %w", err)
		}
	}

	replies := make([]resp.Value, 0, len(cmds))
	for range cmds {
		v, _, err := c.rd.ReadValue()
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		replies = append(replies, v)
	}
	return replies, nil
}

// Receive waits for the next pushed value, such as a pub/sub message. It
// blocks until a value arrives or ctx is done.
func (c *Client) Receive(ctx context.Context) (resp.Value, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return resp.NullValue(), ErrClosed
	}

	if err := c.conn.SetReadDeadline(time.Time{}); err != nil {
		return resp.NullValue(), err
	}

	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	v, _, err := c.rd.ReadValue()
	if err != nil {
		if ctx.Err() != nil {
			return resp.NullValue(), ctx.Err()
		}
		return resp.NullValue(), fmt.Errorf("read: %w", err)
	}
	return v, nil
}

// Addr returns the server address.
func (c *Client) Addr() string {
	return c.opts.Addr
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

func bulkValues(args []string) []resp.Value {
	vals := make([]resp.Value, len(args))
	for i, a := range args {
		vals[i] = resp.StringValue(a)
	}
	return vals
}

// ReplyError returns the server error carried by v, if any.
func ReplyError(v resp.Value) error {
	if v.Type() == resp.Error {
		return errors.New(v.String())
	}
	return nil
}

// IsSubscribe reports whether a command switches the connection into
// pub/sub mode.
func IsSubscribe(name string) bool {
	switch strings.ToUpper(name) {
	case "SUBSCRIBE", "PSUBSCRIBE":
		return true
	}
	return false
}
