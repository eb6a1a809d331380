// Package transporttest provides a scriptable transport.Socket for tests.
package transporttest

import (
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/subwire/pkg/transport"
)

type eofMarker struct{}

// EOF is a script item that makes RecvPacket report a peer close.
var EOF = eofMarker{}

// ErrSend is a convenient send failure for tests.
var ErrSend = errors.New("transporttest: send failed")

// Socket is an in-memory transport.Socket.
//
// Packets are fed either immediately (Feed) or in response to the next
// SendAll (Reply), which keeps replies ordered after the command that
// caused them. Script items are strings, byte slices or EOF.
type Socket struct {
	mu         sync.Mutex
	sent       [][]byte
	replies    [][]any
	sendErr    error
	shortWrite bool
	closeErr   error

	packets   chan any
	closed    chan struct{}
	closeOnce sync.Once
	closes    atomic.Int32
}

// NewSocket creates an empty Socket.
func NewSocket() *Socket {
	return &Socket{
		packets: make(chan any, 4096),
		closed:  make(chan struct{}),
	}
}

// Feed makes items available to RecvPacket right away.
func (s *Socket) Feed(items ...any) {
	for _, it := range items {
		s.packets <- it
	}
}

// Reply queues items to be fed after the next SendAll. Multiple Reply calls
// answer successive sends in order.
func (s *Socket) Reply(items ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, items)
}

// FailSend makes every subsequent SendAll return err.
func (s *Socket) FailSend(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendErr = err
}

// ShortWrite makes every subsequent SendAll accept one byte less than asked.
func (s *Socket) ShortWrite() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shortWrite = true
}

// FailClose makes Close return err.
func (s *Socket) FailClose(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeErr = err
}

// SendAll implements transport.Socket.
func (s *Socket) SendAll(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sendErr != nil {
		return 0, s.sendErr
	}

	cp := make([]byte, len(b))
	copy(cp, b)
	s.sent = append(s.sent, cp)

	if len(s.replies) > 0 {
		next := s.replies[0]
		s.replies = s.replies[1:]
		s.Feed(next...)
	}

	if s.shortWrite && len(b) > 0 {
		return len(b) - 1, nil
	}
	return len(b), nil
}

// RecvPacket implements transport.Socket.
func (s *Socket) RecvPacket(timeout time.Duration) ([]byte, error) {
	var expired <-chan time.Time
	if timeout >= 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}

	select {
	case it := <-s.packets:
		switch v := it.(type) {
		case eofMarker:
			return nil, io.EOF
		case string:
			return []byte(v), nil
		case []byte:
			return v, nil
		default:
			return nil, nil
		}
	case <-s.closed:
		return nil, net.ErrClosed
	case <-expired:
		return nil, transport.ErrTimeout
	}
}

// Close implements transport.Socket. It unblocks pending RecvPacket calls.
func (s *Socket) Close() error {
	s.closes.Add(1)
	s.closeOnce.Do(func() { close(s.closed) })

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeErr
}

// Sent returns every payload passed to SendAll, in order.
func (s *Socket) Sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.sent))
	for i, b := range s.sent {
		out[i] = string(b)
	}
	return out
}

// Closes returns how many times Close was called.
func (s *Socket) Closes() int {
	return int(s.closes.Load())
}

// RemoteAddr returns a fixed fake address.
func (s *Socket) RemoteAddr() string {
	return "transporttest:0"
}
