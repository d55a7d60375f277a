// Package sqlclient is the counterpart to server/novasqlwire: dial a
// running server and get back the executor.Result or error each SQL
// statement produced.
//
// Exec/ExecContext may be called concurrently from multiple goroutines on
// one Client: a background reader goroutine demultiplexes responses by
// request id onto a pending-call table, so callers don't serialize behind
// each other's round trip the way a single request-then-response lock
// would force them to.
package sqlclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bptreeidx/engine/internal/sql/executor"
	"github.com/bptreeidx/engine/server/novasqlwire"
)

// ErrClosed is returned by Exec/ExecContext once the client's connection
// has been closed, either explicitly or because the server hung up.
var ErrClosed = errors.New("sqlclient: client closed")

// call is one in-flight request awaiting its response frame.
type call struct {
	resp novasqlwire.ExecuteResponse
	err  error
	done chan struct{}
}

// Client holds one TCP connection to a novasqlwire server and the table of
// requests currently awaiting a reply.
type Client struct {
	conn   net.Conn
	nextID atomic.Uint64

	writeMu sync.Mutex // serializes frame writes only

	mu       sync.Mutex
	pending  map[uint64]*call
	closed   bool
	closeErr error

	timeout time.Duration // per-call wait, used when ctx carries no deadline
}

func newClient(conn net.Conn) *Client {
	c := &Client{conn: conn, pending: make(map[uint64]*call)}
	go c.readLoop()
	return c
}

// Dial connects to addr, failing if no connection is established within
// timeout.
func Dial(addr string, timeout time.Duration) (*Client, error) {
	conn, err := (&net.Dialer{Timeout: timeout}).Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("sqlclient: dial %s: %w", addr, err)
	}
	return newClient(conn), nil
}

// DialContext is Dial with cancellation via ctx instead of a fixed connect
// timeout.
func DialContext(ctx context.Context, addr string, timeout time.Duration) (*Client, error) {
	conn, err := (&net.Dialer{Timeout: timeout}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("sqlclient: dial %s: %w", addr, err)
	}
	return newClient(conn), nil
}

// SetTimeout sets how long ExecContext waits for a reply when ctx carries
// no deadline of its own. Zero (the default) means wait indefinitely.
func (c *Client) SetTimeout(d time.Duration) {
	if c == nil {
		return
	}
	c.timeout = d
}

// Close closes the underlying connection and fails every call still
// waiting on a reply with ErrClosed. Idempotent.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	c.failAll(ErrClosed)
	return c.conn.Close()
}

// readLoop is the sole reader of c.conn: it decodes one response frame at
// a time and hands each to the call that sent the matching request id. It
// exits, failing every still-pending call, the first time ReadFrame errors
// — most commonly because the peer closed the connection.
func (c *Client) readLoop() {
	for {
		var resp novasqlwire.ExecuteResponse
		if err := novasqlwire.ReadFrame(c.conn, &resp); err != nil {
			c.failAll(fmt.Errorf("%w: %v", ErrClosed, err))
			return
		}
		c.deliver(resp)
	}
}

func (c *Client) deliver(resp novasqlwire.ExecuteResponse) {
	c.mu.Lock()
	cl, ok := c.pending[resp.ID]
	if ok {
		delete(c.pending, resp.ID)
	}
	c.mu.Unlock()
	if !ok {
		return // no caller waiting on this id (already timed out, or stale)
	}
	cl.resp = resp
	close(cl.done)
}

func (c *Client) failAll(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.closeErr = err
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, cl := range pending {
		cl.err = err
		close(cl.done)
	}
}

// Exec sends sql and waits for the server's response.
func (c *Client) Exec(sql string) (*executor.Result, error) {
	return c.ExecContext(context.Background(), sql)
}

// ExecContext is Exec with a caller-supplied deadline; ctx's deadline, if
// set, overrides SetTimeout for this call only.
func (c *Client) ExecContext(ctx context.Context, sql string) (*executor.Result, error) {
	if c == nil || c.conn == nil {
		return nil, errors.New("sqlclient: not connected")
	}

	cl := &call{done: make(chan struct{})}
	id := c.nextID.Add(1)

	c.mu.Lock()
	if c.closed {
		err := c.closeErr
		c.mu.Unlock()
		return nil, err
	}
	c.pending[id] = cl
	c.mu.Unlock()

	if err := c.send(ctx, id, sql); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, err
	}

	ctx, cancel := c.withDefaultTimeout(ctx)
	defer cancel()

	select {
	case <-cl.done:
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ctx.Err()
	}

	if cl.err != nil {
		return nil, cl.err
	}
	if cl.resp.Error != "" {
		return nil, errors.New(cl.resp.Error)
	}
	return cl.resp.Result, nil
}

// withDefaultTimeout applies c.timeout when ctx doesn't already carry a
// deadline of its own.
func (c *Client) withDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// send writes one request frame, bounding the write itself by ctx's
// deadline when it has one — separate from the wait for a reply, since
// writes and the shared readLoop must never block on the same deadline.
func (c *Client) send(ctx context.Context, id uint64, sql string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if dl, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(dl)
		defer func() { _ = c.conn.SetWriteDeadline(time.Time{}) }()
	}

	req := novasqlwire.ExecuteRequest{ID: id, SQL: sql}
	if err := novasqlwire.WriteFrame(c.conn, req); err != nil {
		return fmt.Errorf("sqlclient: send request: %w", err)
	}
	return nil
}
