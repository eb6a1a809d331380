package subscriber

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/subwire/pkg/resp"
	"github.com/yndnr/subwire/pkg/transport"
)

// Subscriber is a pub/sub session over one connection.
type Subscriber struct {
	id       string
	host     string
	port     int
	password string
	timeout  time.Duration
	prefix   string

	router *Router
	logger *slog.Logger
	closed atomic.Bool
}

// New dials host:port, authenticates when a password is configured and
// starts reading replies.
func New(ctx context.Context, host string, port int, opts ...Option) (*Subscriber, error) {
	o := buildOptions(opts)
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	sock, err := transport.Dial(ctx, addr, o.timeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	s, err := newSubscriber(sock, o)
	if err != nil {
		return nil, err
	}
	s.host = host
	s.port = port
	return s, nil
}

// NewWithSocket is like New but runs over an already connected socket.
func NewWithSocket(sock transport.Socket, opts ...Option) (*Subscriber, error) {
	return newSubscriber(sock, buildOptions(opts))
}

func newSubscriber(sock transport.Socket, o options) (*Subscriber, error) {
	conn := transport.New(sock)
	id := newConnID()
	logger := o.logger.With("conn_id", id, "addr", conn.RemoteAddr())
	o.logger = logger

	r := newRouter(conn, o)
	if o.password != "" {
		if err := r.handshake(o.password, o.timeout); err != nil {
			_ = conn.Close()
			logger.Warn("authentication failed", "error", err)
			return nil, &AuthError{Msg: MsgAuthFailed, Err: err}
		}
	}
	r.start()

	logger.Info("subscriber connected", "prefix", o.prefix)

	return &Subscriber{
		id:       id,
		password: o.password,
		timeout:  o.timeout,
		prefix:   o.prefix,
		router:   r,
		logger:   logger,
	}, nil
}

func newConnID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return ""
	}
	return id.String()
}

// Subscribe subscribes to the given topics with one round trip.
func (s *Subscriber) Subscribe(ctx context.Context, topics ...string) error {
	return s.issue(ctx, verbSubscribe, topics, func(err error) error {
		return &SubscribeError{Msg: MsgSubscribeFailed, Err: err}
	})
}

// Unsubscribe drops subscriptions to the given topics.
func (s *Subscriber) Unsubscribe(ctx context.Context, topics ...string) error {
	return s.issue(ctx, verbUnsubscribe, topics, func(err error) error {
		return &UnsubscribeError{Msg: MsgUnsubscribeFailed, Err: err}
	})
}

// Psubscribe subscribes to the given glob patterns.
func (s *Subscriber) Psubscribe(ctx context.Context, patterns ...string) error {
	return s.issue(ctx, verbPsubscribe, patterns, func(err error) error {
		return &SubscribeError{Msg: MsgPsubscribeFailed, Err: err}
	})
}

// Punsubscribe drops pattern subscriptions.
func (s *Subscriber) Punsubscribe(ctx context.Context, patterns ...string) error {
	return s.issue(ctx, verbPunsubscribe, patterns, func(err error) error {
		return &UnsubscribeError{Msg: MsgPunsubscribeFailed, Err: err}
	})
}

// issue runs one subscribe-family command. Any unconfirmed name tears the
// connection down before the error is returned.
func (s *Subscriber) issue(ctx context.Context, verb string, names []string, fail func(error) error) error {
	if len(names) == 0 {
		return fail(ErrNoTopics)
	}

	args := make([]string, len(names))
	for i, name := range names {
		args[i] = s.prefix + name
	}

	results, err := s.router.Invoke(ctx, resp.NewCommand(verb, args...), len(args))
	if cause := checkResults(verb, results, len(args), err); cause != nil {
		s.logger.Warn("command not confirmed, interrupting",
			"verb", verb,
			"names", args,
			"error", cause)
		if err := s.router.Interrupt(); err != nil {
			s.logger.Warn("close after failed command failed", "verb", verb, "error", err)
		}
		return fail(cause)
	}

	s.logger.Debug("command confirmed",
		"verb", verb,
		"count", len(args),
		"subscriptions", s.router.Subscriptions())
	return nil
}

func checkResults(verb string, results []Result, want int, err error) error {
	for _, r := range results {
		if !r.OK() {
			return r.Err
		}
		if !strings.EqualFold(r.Verb, verb) {
			return fmt.Errorf("%s answered with %q confirmation", verb, r.Verb)
		}
	}
	if err != nil {
		return err
	}
	if len(results) < want {
		return ErrClosed
	}
	return nil
}

// Channel returns the delivery channel. Topics are not un-prefixed.
func (s *Subscriber) Channel() <-chan Message {
	return s.router.Channel()
}

// Ping checks liveness and returns "pong".
func (s *Subscriber) Ping(timeout time.Duration) (string, error) {
	return s.router.Ping(timeout)
}

// Close ends the session. It is safe to call more than once.
func (s *Subscriber) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	err := s.router.Interrupt()
	s.logger.Info("subscriber closed")
	return err
}

// Closed reports whether Close has been called.
func (s *Subscriber) Closed() bool {
	return s.closed.Load()
}

// Done is closed when the connection ends for any reason.
func (s *Subscriber) Done() <-chan struct{} {
	return s.router.Done()
}

// Subscriptions returns the server's subscription count from the latest
// confirmation.
func (s *Subscriber) Subscriptions() int64 {
	return s.router.Subscriptions()
}

// ID returns the connection identifier used in log entries.
func (s *Subscriber) ID() string {
	return s.id
}

// Prefix returns the topic namespace.
func (s *Subscriber) Prefix() string {
	return s.prefix
}

// Addr returns host:port for dialed subscribers, or "" otherwise.
func (s *Subscriber) Addr() string {
	if s.host == "" {
		return ""
	}
	return net.JoinHostPort(s.host, strconv.Itoa(s.port))
}
