package subscriber

import (
	"log/slog"
	"time"
)

// Default option values.
const (
	DefaultTimeout    = 5 * time.Second
	DefaultBufferSize = 64
)

// confirmBufferSize bounds confirmations waiting for an Invoke caller.
const confirmBufferSize = 16

type options struct {
	password   string
	timeout    time.Duration
	prefix     string
	bufferSize int
	logger     *slog.Logger
	observer   Observer
}

// Option configures a Subscriber or Router.
type Option func(*options)

// WithPassword authenticates with AUTH right after connecting.
func WithPassword(password string) Option {
	return func(o *options) {
		o.password = password
	}
}

// WithTimeout bounds dialing and authentication.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithPrefix namespaces every topic and pattern passed to the subscribe family.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithBufferSize sets how many undelivered messages may queue before the
// reader waits for the application.
func WithBufferSize(n int) Option {
	return func(o *options) {
		o.bufferSize = n
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithObserver receives reader events, typically for metrics.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

func buildOptions(opts []Option) options {
	o := options{
		timeout:    DefaultTimeout,
		bufferSize: DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.timeout <= 0 {
		o.timeout = DefaultTimeout
	}
	if o.bufferSize <= 0 {
		o.bufferSize = DefaultBufferSize
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.observer == nil {
		o.observer = nopObserver{}
	}
	return o
}

// Observer is notified from the reader goroutine. Implementations must not
// block and must not call Interrupt or Close.
type Observer interface {
	ConfirmationReceived(verb string, count int64)
	MessageReceived(m Message)
	PongReceived()
	FrameDropped(kind string)
	Interrupted()
}

type nopObserver struct{}

func (nopObserver) ConfirmationReceived(string, int64) {}
func (nopObserver) MessageReceived(Message)            {}
func (nopObserver) PongReceived()                      {}
func (nopObserver) FrameDropped(string)                {}
func (nopObserver) Interrupted()                       {}
