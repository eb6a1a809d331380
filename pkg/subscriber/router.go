package subscriber

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/subwire/pkg/resp"
	"github.com/yndnr/subwire/pkg/transport"
)

// readBufferSize is the bufio buffer between the socket and the reply parser.
const readBufferSize = 16 * 1024

// Result is one slot of an Invoke call: a confirmation, or the error reply
// the server sent in its place.
type Result struct {
	Confirmation
	Err error
}

// OK reports whether the server confirmed the command.
func (r Result) OK() bool {
	return r.Err == nil
}

// Router owns one connection and the goroutine that reads it.
//
// The reader is the only producer of the confirmation, message and pong
// channels and closes all three when it exits. Command issuance (Invoke,
// Ping) is serialized through a one-slot semaphore so positional
// correlation of confirmations holds across goroutines.
type Router struct {
	conn     *transport.Conn
	reader   *resp.Reader
	packets  *packetReader
	logger   *slog.Logger
	observer Observer

	confirms chan Result
	messages chan Message
	pongs    chan struct{}

	issue  chan struct{}
	done   chan struct{}
	exited chan struct{}
	once   sync.Once

	subscriptions atomic.Int64
	dropLog       rate.Sometimes
}

// NewRouter creates a Router over conn and starts its reader goroutine.
// Only the logger, observer and buffer size options apply.
func NewRouter(conn *transport.Conn, opts ...Option) *Router {
	r := newRouter(conn, buildOptions(opts))
	r.start()
	return r
}

func newRouter(conn *transport.Conn, o options) *Router {
	r := &Router{
		conn:     conn,
		logger:   o.logger,
		observer: o.observer,
		confirms: make(chan Result, confirmBufferSize),
		messages: make(chan Message, o.bufferSize),
		pongs:    make(chan struct{}, 1),
		issue:    make(chan struct{}, 1),
		done:     make(chan struct{}),
		exited:   make(chan struct{}),
		dropLog:  rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
	r.packets = &packetReader{conn: conn, done: r.done, poll: transport.NoTimeout}
	r.reader = resp.NewReader(bufio.NewReaderSize(r.packets, readBufferSize))
	return r
}

func (r *Router) start() {
	go r.run()
}

// Invoke sends cmd and waits for n confirmations, returned in the order the
// server sent them. An error reply answers the whole command, so Invoke
// returns as soon as one arrives, with it as the last result. If the
// connection ends first, the confirmations received so far are returned
// with ErrClosed. If ctx ends first, the router is interrupted, because
// later confirmations could no longer be matched to their command.
//
// Once the router has begun shutting down, Invoke fails with ErrClosed
// without sending, even if unread confirmations are still buffered.
func (r *Router) Invoke(ctx context.Context, cmd resp.Command, n int) ([]Result, error) {
	if err := r.acquire(ctx); err != nil {
		return nil, err
	}
	defer r.release()

	if err := r.conn.Send(resp.Encode(cmd)); err != nil {
		return nil, err
	}

	results := make([]Result, 0, n)
	for len(results) < n {
		select {
		case res, ok := <-r.confirms:
			if !ok {
				return results, ErrClosed
			}
			results = append(results, res)
			if !res.OK() {
				return results, nil
			}
		case <-ctx.Done():
			r.logger.Warn("abandoning command, interrupting connection",
				"verb", cmd.Verb,
				"received", len(results),
				"expected", n,
				"error", ctx.Err())
			if err := r.Interrupt(); err != nil {
				r.logger.Warn("close after abandoned command failed", "error", err)
			}
			return results, ctx.Err()
		}
	}
	return results, nil
}

// Channel returns the message channel itself. Receiving is destructive. The
// channel is closed when the router is interrupted.
func (r *Router) Channel() <-chan Message {
	return r.messages
}

// Ping sends the inline PING and waits up to timeout for the pong. A
// negative timeout waits indefinitely.
func (r *Router) Ping(timeout time.Duration) (string, error) {
	ctx := context.Background()
	if timeout >= 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := r.acquire(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		return "", err
	}
	defer r.release()

	// Discard a pong left over from an earlier ping that timed out.
	select {
	case <-r.pongs:
	default:
	}

	if err := r.conn.Send(resp.Encode("ping")); err != nil {
		return "", err
	}

	select {
	case _, ok := <-r.pongs:
		if !ok {
			return "", ErrClosed
		}
		return kindPong, nil
	case <-ctx.Done():
		return "", ErrTimeout
	}
}

// Interrupt closes the connection and waits for the reader goroutine to
// exit, after which every channel is closed. Only the call that performs
// the shutdown can return an error; later calls return nil.
func (r *Router) Interrupt() error {
	var err error
	r.once.Do(func() {
		err = r.teardown()
		r.logger.Debug("router interrupted")
	})
	<-r.exited
	return err
}

// Done is closed as soon as the router starts shutting down.
func (r *Router) Done() <-chan struct{} {
	return r.done
}

// Subscriptions returns the subscription count from the latest confirmation.
func (r *Router) Subscriptions() int64 {
	return r.subscriptions.Load()
}

// teardown must run exactly once, under r.once.
func (r *Router) teardown() error {
	close(r.done)
	r.observer.Interrupted()
	return r.conn.Close()
}

func (r *Router) acquire(ctx context.Context) error {
	select {
	case <-r.done:
		return ErrClosed
	default:
	}

	select {
	case r.issue <- struct{}{}:
		return nil
	case <-r.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Router) release() {
	<-r.issue
}

// handshake performs AUTH synchronously, before the reader starts.
func (r *Router) handshake(password string, timeout time.Duration) error {
	if err := r.conn.Send(resp.Encode(resp.NewCommand("auth", password))); err != nil {
		return err
	}

	r.packets.deadline = time.Now().Add(timeout)
	defer func() { r.packets.deadline = time.Time{} }()

	v, err := r.reader.ReadValue()
	if err != nil {
		return err
	}
	switch {
	case v.Kind == resp.KindSimple && v.Str == "OK":
		return nil
	case v.Kind == resp.KindError:
		return &ReplyError{Message: v.Str}
	default:
		return fmt.Errorf("unexpected %s reply to AUTH", v.Kind)
	}
}

func (r *Router) run() {
	defer close(r.exited)
	defer func() {
		close(r.messages)
		close(r.confirms)
		close(r.pongs)
	}()

	for {
		v, err := r.reader.ReadValue()
		if err != nil {
			r.disconnect(Disconnected{Err: err})
			return
		}
		if !r.dispatch(Classify(v), v) {
			return
		}
	}
}

// dispatch routes f to its channel. It returns false once the router is
// shutting down.
func (r *Router) dispatch(f Frame, v resp.Value) bool {
	switch f := f.(type) {
	case Confirmation:
		r.subscriptions.Store(f.Count)
		r.observer.ConfirmationReceived(f.Verb, f.Count)
		return pushOrDone(r.confirms, Result{Confirmation: f}, r.done)
	case ErrorReply:
		r.logger.Warn("server returned error", "error", f.Message)
		return pushOrDone(r.confirms, Result{Err: &ReplyError{Message: f.Message}}, r.done)
	case PublishedMessage:
		m := Message{Topic: f.Topic, Payload: f.Payload}
		r.observer.MessageReceived(m)
		return pushOrDone(r.messages, m, r.done)
	case PatternMessage:
		m := Message{Topic: f.Topic, Payload: f.Payload, Pattern: f.Pattern}
		r.observer.MessageReceived(m)
		return pushOrDone(r.messages, m, r.done)
	case Pong:
		r.observer.PongReceived()
		select {
		case r.pongs <- struct{}{}:
		default:
		}
		return true
	default:
		r.observer.FrameDropped(v.Kind.String())
		r.dropLog.Do(func() {
			r.logger.Warn("dropping unrecognized reply", "kind", v.Kind.String())
		})
		return true
	}
}

// disconnect shuts the router down from the reader goroutine.
func (r *Router) disconnect(d Disconnected) {
	r.once.Do(func() {
		if errors.Is(d.Err, transport.ErrClosed) {
			r.logger.Info("connection closed by peer")
		} else {
			r.logger.Error("reading reply failed, closing connection", "error", d.Err)
		}
		if err := r.teardown(); err != nil {
			r.logger.Warn("close after disconnect failed", "error", err)
		}
	})
}

func pushOrDone[T any](ch chan<- T, v T, done <-chan struct{}) bool {
	select {
	case ch <- v:
		return true
	case <-done:
		return false
	}
}

// packetReader adapts Conn.Recv to io.Reader so the reply parser can work
// on a byte stream regardless of how the socket chunks it.
type packetReader struct {
	conn     *transport.Conn
	done     <-chan struct{}
	pending  []byte
	poll     time.Duration
	deadline time.Time
}

func (p *packetReader) Read(b []byte) (int, error) {
	for len(p.pending) == 0 {
		wait := p.poll
		if !p.deadline.IsZero() {
			left := time.Until(p.deadline)
			if left <= 0 {
				return 0, ErrTimeout
			}
			if wait < 0 || left < wait {
				wait = left
			}
		}

		data, err := p.conn.Recv(wait)
		if errors.Is(err, transport.ErrTimeout) {
			select {
			case <-p.done:
				return 0, ErrClosed
			default:
				continue
			}
		}
		if err != nil {
			return 0, err
		}
		p.pending = data
	}

	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}
