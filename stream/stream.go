// Package stream implements the communicator's stream I/O layer
// (spec.md §4.F): a mutex-locked connection with line- or
// byte-oriented request/reply discipline, self-healing reconnect, and
// repeated-error suppression.
package stream

import (
	"bufio"
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/frappy-project/frappy-core/logging"
	"github.com/frappy-project/frappy-core/secoperr"
)

// Conn is the minimal transport a Connection wraps: a net.Conn-shaped
// stream with Close and SetDeadline, supplied by the concrete transport
// (TCP, serial, ...). Opening a new Conn is the Dialer's job.
type Conn interface {
	io.ReadWriteCloser
	SetDeadline(t time.Time) error
}

// Dialer opens a fresh Conn to the configured URI (spec.md §4.F
// "uri" property).
type Dialer func(ctx context.Context) (Conn, error)

// Options mirrors the communicator's configurable properties (spec.md
// §4.F).
type Options struct {
	URI              string
	Timeout          time.Duration
	WaitBefore       time.Duration
	EndOfLineWrite   byte
	EndOfLineRead    byte
	Identification   []IdentExchange
	MinReplyLen      int
}

// IdentExchange is one (request, pattern) pair sent on (re)connect to
// verify the peer (spec.md §4.F "identification").
type IdentExchange struct {
	Request string
	Match   func(reply string) bool
}

// ReconnectCallback fires exactly once per successful reconnect,
// cleared if it panics or returns false (spec.md §4.F).
type ReconnectCallback func() bool

// Connection owns one communicator connection: reconnect logic,
// per-call locking, and the is_connected synthetic parameter.
type Connection struct {
	opts   Options
	dial   Dialer
	logger logging.Logger

	mu   sync.Mutex // held for the whole request/reply cycle; not re-entrant
	conn Conn
	buf  *bufio.Reader

	connectedMu sync.RWMutex
	connected   bool

	reconnectCbs []ReconnectCallback

	lastErrMu sync.Mutex
	lastErr   string
}

// New builds a Connection; call Connect to establish the first link.
func New(opts Options, dial Dialer, logger logging.Logger) *Connection {
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.EndOfLineWrite == 0 {
		opts.EndOfLineWrite = '\n'
	}
	if opts.EndOfLineRead == 0 {
		opts.EndOfLineRead = '\n'
	}
	return &Connection{opts: opts, dial: dial, logger: logger}
}

// TCPDialer builds a Dialer opening a plain TCP connection to addr
// (host:port), the common case for the "uri" property of a line-
// oriented hardware communicator (spec.md §4.F).
func TCPDialer(addr string) Dialer {
	return func(ctx context.Context) (Conn, error) {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, secoperr.CommFailed("dial %s: %v", addr, err)
		}
		return conn, nil
	}
}

// OnReconnect registers a callback fired once after a successful
// (re)connect.
func (c *Connection) OnReconnect(cb ReconnectCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconnectCbs = append(c.reconnectCbs, cb)
}

// IsConnected implements the synthetic is_connected parameter read
// (spec.md §4.F "a background poll reads the synthetic is_connected
// parameter").
func (c *Connection) IsConnected() bool {
	c.connectedMu.RLock()
	defer c.connectedMu.RUnlock()
	return c.connected
}

// Connect dials the transport and runs the identification exchange.
// On success it fires every registered reconnect callback once,
// dropping any that return false or panic.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Connection) connectLocked(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		c.setConnected(false)
		return secoperr.CommFailed("connect %s: %v", c.opts.URI, err)
	}
	c.conn = conn
	c.buf = bufio.NewReader(conn)

	for _, ident := range c.opts.Identification {
		reply, err := c.exchangeLocked(ident.Request)
		if err != nil {
			c.conn.Close()
			c.setConnected(false)
			return secoperr.CommFailed("identification %q failed: %v", ident.Request, err)
		}
		if ident.Match != nil && !ident.Match(reply) {
			c.conn.Close()
			c.setConnected(false)
			return secoperr.CommFailed("identification %q: unexpected reply %q", ident.Request, reply)
		}
	}

	c.setConnected(true)
	c.fireReconnectCallbacks()
	return nil
}

func (c *Connection) fireReconnectCallbacks() {
	survivors := c.reconnectCbs[:0]
	for _, cb := range c.reconnectCbs {
		ok := c.safeCall(cb)
		if ok {
			survivors = append(survivors, cb)
		}
	}
	c.reconnectCbs = survivors
}

func (c *Connection) safeCall(cb ReconnectCallback) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return cb()
}

func (c *Connection) setConnected(v bool) {
	c.connectedMu.Lock()
	c.connected = v
	c.connectedMu.Unlock()
}

// ReconnectLoop retries Connect at pollInterval until ctx is cancelled
// or the connection succeeds (spec.md §4.F self-healing).
func (c *Connection) ReconnectLoop(ctx context.Context, pollInterval time.Duration) {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 0 // retry forever until ctx cancellation
	b.InitialInterval = pollInterval
	b.MaxInterval = pollInterval

	_ = backoff.Retry(func() error {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if c.IsConnected() {
			return nil
		}
		return c.Connect(ctx)
	}, backoff.WithContext(b, ctx))
}

// Communicate sends request and returns the single-line reply
// (spec.md §4.F "communicate(request) -> reply").
func (c *Connection) Communicate(request string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exchangeLocked(request)
}

// Multicomm sends several requests under one held lock and returns
// their replies in order (spec.md §4.F "multicomm").
func (c *Connection) Multicomm(requests []string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(requests))
	for i, req := range requests {
		if i > 0 && c.opts.WaitBefore > 0 {
			time.Sleep(c.opts.WaitBefore)
		}
		reply, err := c.exchangeLocked(req)
		if err != nil {
			return out, err
		}
		out = append(out, reply)
	}
	return out, nil
}

// exchangeLocked performs one request/reply cycle; caller holds c.mu.
func (c *Connection) exchangeLocked(request string) (string, error) {
	if c.conn == nil {
		return "", secoperr.CommFailed("not connected")
	}
	if c.opts.WaitBefore > 0 {
		time.Sleep(c.opts.WaitBefore)
	}
	c.flushGarbageLocked()

	if c.opts.Timeout > 0 {
		c.conn.SetDeadline(time.Now().Add(c.opts.Timeout))
	}
	if _, err := c.conn.Write(append([]byte(request), c.opts.EndOfLineWrite)); err != nil {
		c.setConnected(false)
		return "", c.logOnce(secoperr.CommFailed("write: %v", err))
	}

	line, err := c.buf.ReadString(c.opts.EndOfLineRead)
	if err != nil {
		c.setConnected(false)
		return "", c.logOnce(secoperr.CommFailed("read: %v", err))
	}
	if len(line) > 0 && line[len(line)-1] == c.opts.EndOfLineRead {
		line = line[:len(line)-1]
	}
	c.clearErrOnce()
	return line, nil
}

// flushGarbageLocked discards any bytes already buffered before
// sending a new request (spec.md §4.F "flush incoming garbage once").
func (c *Connection) flushGarbageLocked() {
	n := c.buf.Buffered()
	if n > 0 {
		c.buf.Discard(n)
	}
}

// GetFullReply is the byte-oriented hook for replies whose length is
// data-dependent: it reads at least Options.MinReplyLen bytes then lets
// header inspect the buffer to decide whether more is needed (spec.md
// §4.F).
func (c *Connection) GetFullReply(request string, header func(buffered []byte) (want int, done bool)) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, secoperr.CommFailed("not connected")
	}
	if c.opts.Timeout > 0 {
		c.conn.SetDeadline(time.Now().Add(c.opts.Timeout))
	}
	if _, err := c.conn.Write(append([]byte(request), c.opts.EndOfLineWrite)); err != nil {
		c.setConnected(false)
		return nil, c.logOnce(secoperr.CommFailed("write: %v", err))
	}

	var out []byte
	for {
		b, err := c.buf.ReadByte()
		if err != nil {
			c.setConnected(false)
			return out, c.logOnce(secoperr.CommFailed("read: %v", err))
		}
		out = append(out, b)
		if len(out) < c.opts.MinReplyLen {
			continue
		}
		want, done := header(out)
		if done || (want > 0 && len(out) >= want && len(out) >= c.opts.MinReplyLen) {
			return out, nil
		}
	}
}

// logOnce logs a distinct error message once then suppresses repeats
// of the same message, re-logging only when the text changes (spec.md
// §4.F "repeated identical error messages are logged once").
func (c *Connection) logOnce(err error) error {
	msg := err.Error()
	c.lastErrMu.Lock()
	defer c.lastErrMu.Unlock()
	if msg != c.lastErr {
		c.logger.Error("stream error", "uri", c.opts.URI, "err", msg)
		c.lastErr = msg
	}
	return err
}

func (c *Connection) clearErrOnce() {
	c.lastErrMu.Lock()
	c.lastErr = ""
	c.lastErrMu.Unlock()
}
