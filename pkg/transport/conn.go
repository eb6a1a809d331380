package transport

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

var (
	// ErrTimeout is returned by Recv when no data arrived in time.
	ErrTimeout = errors.New("transport: timeout")
	// ErrClosed is returned once the connection is closed, locally or by the peer.
	ErrClosed = errors.New("transport: connection closed")
)

// SocketError is a transport-level failure.
type SocketError struct {
	Op  string // "send" or "close"
	Msg string // e.g. "failed to send"
	Err error  // underlying socket error, if any
}

// Error implements the error interface.
func (e *SocketError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

// Unwrap returns the underlying socket error.
func (e *SocketError) Unwrap() error {
	return e.Err
}

// Conn is an open connection over exactly one Socket.
type Conn struct {
	sock   Socket
	closed atomic.Bool
}

// New creates an open Conn that owns sock.
func New(sock Socket) *Conn {
	return &Conn{sock: sock}
}

// Send writes b in full. A short write is fatal; the remainder is not retried.
func (c *Conn) Send(b []byte) error {
	if c.closed.Load() {
		return ErrClosed
	}

	n, err := c.sock.SendAll(b)
	if err != nil {
		return &SocketError{Op: "send", Msg: "failed to send", Err: err}
	}
	if n < len(b) {
		return &SocketError{Op: "send", Msg: "incomplete send"}
	}
	return nil
}

// Recv returns the next chunk of bytes. It returns ErrTimeout when the
// timeout expires and ErrClosed when the peer went away or the read failed.
func (c *Conn) Recv(timeout time.Duration) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	b, err := c.sock.RecvPacket(timeout)
	switch {
	case errors.Is(err, ErrTimeout):
		return nil, ErrTimeout
	case err != nil && !errors.Is(err, io.EOF):
		return nil, fmt.Errorf("%w: %v", ErrClosed, err)
	case err != nil || len(b) == 0:
		return nil, ErrClosed
	}
	return b, nil
}

// Close closes the socket. Only the first call reaches the socket; later
// calls are no-ops.
func (c *Conn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	if err := c.sock.Close(); err != nil {
		return &SocketError{Op: "close", Msg: "failed to close", Err: err}
	}
	return nil
}

// IsClosed reports whether Close has been called.
func (c *Conn) IsClosed() bool {
	return c.closed.Load()
}

// RemoteAddr returns the peer address when the socket exposes one.
func (c *Conn) RemoteAddr() string {
	if a, ok := c.sock.(interface{ RemoteAddr() string }); ok {
		return a.RemoteAddr()
	}
	return ""
}
