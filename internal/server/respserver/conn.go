package respserver

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/yndnr/sidermem-go/internal/core/session"
	"github.com/yndnr/sidermem-go/internal/telemetry/logger"
	"github.com/yndnr/sidermem-go/pkg/resp"
)

const readBufferSize = 16 * 1024

// request is one decoded frame, or the decode error that ends the
// connection.
type request struct {
	args []string
	err  error
}

// errSlowConsumer is returned by deliver when the outbound queue is full.
var errSlowConsumer = errors.New("outbound queue full")

// conn is a single client connection. Replies and pushed messages go
// through out and are written by writeLoop, so no other goroutine ever
// touches the socket for writing.
type conn struct {
	srv  *Server
	nc   net.Conn
	sess *session.Session
	log  logger.Logger

	bw  *bufio.Writer
	out chan []byte

	queue      chan request
	done       chan struct{}
	writerDone chan struct{}
	closeOnce  sync.Once
}

func newConn(s *Server, nc net.Conn) *conn {
	c := &conn{
		srv:        s,
		nc:         nc,
		bw:         bufio.NewWriter(nc),
		out:        make(chan []byte, s.cfg.MaxOutbound),
		queue:      make(chan request, s.cfg.MaxPending),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	c.sess = s.exec.Connect(
		session.WithAddrs(addrString(nc.RemoteAddr()), addrString(nc.LocalAddr())),
		session.WithDeliver(c.deliver),
	)
	c.log = s.logger.With("session", c.sess.ID(), "remote", c.sess.Addr())
	return c
}

func (c *conn) serve(ctx context.Context) {
	defer c.srv.exec.Disconnect(c.sess)
	c.log.Info("client connected")

	ctx = logger.WithConnID(ctx, c.sess.ID())

	go c.writeLoop()

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		c.readLoop()
	}()

	c.execLoop(ctx)
	c.close()
	<-readerDone
	c.log.Info("client disconnected")
}

// readLoop decodes frames into the queue. It closes the queue when the
// socket ends or a frame cannot be decoded.
func (c *conn) readLoop() {
	defer close(c.queue)

	dec := resp.NewDecoder(c.srv.cfg.MaxBufferLength)
	buf := make([]byte, readBufferSize)
	for {
		if idle := c.srv.cfg.IdleTimeout; idle > 0 {
			if err := c.nc.SetReadDeadline(time.Now().Add(idle)); err != nil {
				return
			}
		}
		n, err := c.nc.Read(buf)
		if n > 0 {
			if werr := dec.Write(buf[:n]); werr != nil {
				c.push(request{err: werr})
				return
			}
			for {
				v, ok, derr := dec.Next()
				if derr != nil {
					c.push(request{err: derr})
					return
				}
				if !ok {
					break
				}
				args := v.Args()
				if len(args) == 0 {
					continue
				}
				if !c.push(request{args: args}) {
					return
				}
			}
		}
		if err != nil {
			c.logReadError(err)
			return
		}
	}
}

// push blocks while the queue is full. It reports false once the
// connection is closing.
func (c *conn) push(r request) bool {
	select {
	case c.queue <- r:
		return true
	case <-c.done:
		return false
	}
}

// execLoop runs queued requests in arrival order. Requests still queued
// when the session goes inactive are dropped.
func (c *conn) execLoop(ctx context.Context) {
	for req := range c.queue {
		if !c.sess.Active() {
			return
		}
		if req.err != nil {
			c.log.Warn("protocol error", "error", req.err)
			_ = c.reply(resp.Error("ERR Protocol error: " + req.err.Error()))
			return
		}

		reply := c.srv.exec.Execute(ctx, c.sess, req.args)
		if err := c.reply(reply); err != nil {
			c.log.Debug("write failed", "error", err)
			return
		}
		if !c.sess.Active() {
			return
		}
	}
}

// reply queues the encoded reply to a request. It waits for room, so a
// client that stops reading only stalls its own pipeline.
func (c *conn) reply(reply resp.Reply) error {
	frame, err := resp.Encode(reply)
	if err != nil {
		frame = resp.MustEncode(resp.Error("ERR " + err.Error()))
	}
	select {
	case c.out <- frame:
		return nil
	case <-c.writerDone:
		return net.ErrClosed
	}
}

// deliver queues a pub/sub frame on behalf of another connection's
// command. It never blocks: a full queue fails the delivery, and the
// registry then drops the subscriber.
func (c *conn) deliver(frame []byte) error {
	select {
	case <-c.writerDone:
		return net.ErrClosed
	default:
	}
	select {
	case c.out <- frame:
		return nil
	default:
		c.log.Warn("disconnecting slow subscriber", "queued", len(c.out))
		c.abort()
		return errSlowConsumer
	}
}

// writeLoop writes queued frames, flushing whenever the queue drains.
// After close it writes what is left and exits.
func (c *conn) writeLoop() {
	defer close(c.writerDone)
	for {
		select {
		case frame := <-c.out:
			if err := c.writeFrame(frame); err != nil {
				c.log.Debug("write failed", "error", err)
				c.abort()
				return
			}
		case <-c.done:
			c.drain()
			return
		}
	}
}

func (c *conn) writeFrame(frame []byte) error {
	if err := c.nc.SetWriteDeadline(time.Now().Add(c.srv.cfg.WriteTimeout)); err != nil {
		return err
	}
	if _, err := c.bw.Write(frame); err != nil {
		return err
	}
	if len(c.out) == 0 {
		return c.bw.Flush()
	}
	return nil
}

func (c *conn) drain() {
	for {
		select {
		case frame := <-c.out:
			if c.writeFrame(frame) != nil {
				return
			}
		default:
			if err := c.nc.SetWriteDeadline(time.Now().Add(c.srv.cfg.WriteTimeout)); err == nil {
				_ = c.bw.Flush()
			}
			return
		}
	}
}

// close flushes pending output and closes the socket.
func (c *conn) close() {
	c.closeOnce.Do(func() {
		c.sess.Deactivate()
		close(c.done)
		<-c.writerDone
		_ = c.nc.Close()
	})
}

// abort closes the socket without flushing. The executor notices on its
// next step and finishes through close.
func (c *conn) abort() {
	c.sess.Deactivate()
	_ = c.nc.Close()
}

func (c *conn) logReadError(err error) {
	var netErr net.Error
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed), errors.Is(err, io.ErrClosedPipe):
	case errors.As(err, &netErr) && netErr.Timeout():
		c.log.Debug("connection idle timeout")
	default:
		c.log.Debug("connection read error", "error", err)
	}
}

func addrString(a net.Addr) string {
	if a == nil {
		return ""
	}
	return a.String()
}
