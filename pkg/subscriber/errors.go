package subscriber

import (
	"errors"

	"github.com/yndnr/subwire/pkg/transport"
)

var (
	// ErrClosed is returned once the connection has ended.
	ErrClosed = transport.ErrClosed
	// ErrTimeout is returned when a ping gets no pong in time.
	ErrTimeout = transport.ErrTimeout
	// ErrNoTopics is returned when a subscribe-family call names no topic.
	ErrNoTopics = errors.New("subscriber: no topics given")
)

// Messages carried by the domain errors.
const (
	MsgSubscribeFailed    = "Subscribe failed"
	MsgPsubscribeFailed   = "Psubscribe failed"
	MsgUnsubscribeFailed  = "Unsubscribe failed"
	MsgPunsubscribeFailed = "Punsubscribe failed"
	MsgAuthFailed         = "Redis connection authentication failed"
)

// SubscribeError reports a subscribe or psubscribe the server did not confirm.
type SubscribeError struct {
	Msg string
	Err error
}

// Error implements the error interface.
func (e *SubscribeError) Error() string { return e.Msg }

// Unwrap returns the reason the confirmation was missing or rejected.
func (e *SubscribeError) Unwrap() error { return e.Err }

// UnsubscribeError reports an unsubscribe or punsubscribe the server did not confirm.
type UnsubscribeError struct {
	Msg string
	Err error
}

// Error implements the error interface.
func (e *UnsubscribeError) Error() string { return e.Msg }

// Unwrap returns the reason the confirmation was missing or rejected.
func (e *UnsubscribeError) Unwrap() error { return e.Err }

// AuthError reports a rejected or unanswered AUTH.
type AuthError struct {
	Msg string
	Err error
}

// Error implements the error interface.
func (e *AuthError) Error() string { return e.Msg }

// Unwrap returns the underlying cause.
func (e *AuthError) Unwrap() error { return e.Err }

// ReplyError is an error reply sent by the server.
type ReplyError struct {
	Message string
}

// Error implements the error interface.
func (e *ReplyError) Error() string { return e.Message }
