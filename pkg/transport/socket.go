package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"time"
)

// NoTimeout makes RecvPacket block until data arrives or the socket closes.
const NoTimeout time.Duration = -1

// defaultPacketSize is the read buffer used for a single RecvPacket call.
const defaultPacketSize = 64 * 1024

// Socket is the raw connection a Conn delegates to.
//
// Implementations must let Close unblock a pending RecvPacket.
type Socket interface {
	// SendAll writes b completely and returns the number of bytes accepted.
	SendAll(b []byte) (int, error)
	// RecvPacket returns the next chunk of bytes. A negative timeout blocks
	// indefinitely; an expired timeout is reported as ErrTimeout.
	RecvPacket(timeout time.Duration) ([]byte, error)
	// Close releases the socket.
	Close() error
}

// NetSocket is a Socket backed by a net.Conn.
type NetSocket struct {
	conn net.Conn
	buf  []byte
}

// NewNetSocket wraps c. Only one goroutine may call RecvPacket at a time.
func NewNetSocket(c net.Conn) *NetSocket {
	return &NetSocket{
		conn: c,
		buf:  make([]byte, defaultPacketSize),
	}
}

// Dial connects to addr over TCP. A positive timeout bounds the dial.
func Dial(ctx context.Context, addr string, timeout time.Duration) (*NetSocket, error) {
	d := net.Dialer{}
	if timeout > 0 {
		d.Timeout = timeout
	}
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewNetSocket(c), nil
}

// SendAll implements Socket. net.Conn.Write already either writes every
// byte or returns an error.
func (s *NetSocket) SendAll(b []byte) (int, error) {
	return s.conn.Write(b)
}

// RecvPacket implements Socket.
func (s *NetSocket) RecvPacket(timeout time.Duration) ([]byte, error) {
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}

	n, err := s.conn.Read(s.buf)
	if n > 0 {
		out := make([]byte, n)
		copy(out, s.buf[:n])
		return out, nil
	}
	if err == nil {
		return nil, io.EOF
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return nil, ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return nil, ErrTimeout
	}
	return nil, err
}

// Close implements Socket.
func (s *NetSocket) Close() error {
	return s.conn.Close()
}

// RemoteAddr returns the peer address.
func (s *NetSocket) RemoteAddr() string {
	if addr := s.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
