package subscriber

import (
	"strconv"
	"strings"

	"github.com/yndnr/subwire/pkg/resp"
)

// Frame is one classified reply. The concrete types are Confirmation,
// PublishedMessage, PatternMessage, Pong, ErrorReply and Disconnected.
type Frame interface {
	frame()
}

// Confirmation echoes a subscribe-family command: the verb, the topic or
// pattern it applied to, and the number of active subscriptions afterwards.
type Confirmation struct {
	Verb  string
	Topic string
	Count int64
}

// PublishedMessage is a message received through a plain subscription.
type PublishedMessage struct {
	Topic   string
	Payload string
}

// PatternMessage is a message received through a pattern subscription.
type PatternMessage struct {
	Pattern string
	Topic   string
	Payload string
}

// Pong answers a liveness ping.
type Pong struct{}

// ErrorReply is an error the server sent instead of a confirmation.
type ErrorReply struct {
	Message string
}

// Disconnected marks the end of the reply stream.
type Disconnected struct {
	Err error
}

func (Confirmation) frame()     {}
func (PublishedMessage) frame() {}
func (PatternMessage) frame()   {}
func (Pong) frame()             {}
func (ErrorReply) frame()       {}
func (Disconnected) frame()     {}

// Subscribe-family verbs and push kinds.
const (
	verbSubscribe    = "subscribe"
	verbUnsubscribe  = "unsubscribe"
	verbPsubscribe   = "psubscribe"
	verbPunsubscribe = "punsubscribe"
	kindMessage      = "message"
	kindPmessage     = "pmessage"
	kindPong         = "pong"
)

// Classify maps a decoded reply to its Frame. It returns nil for replies
// that match no known shape.
func Classify(v resp.Value) Frame {
	switch v.Kind {
	case resp.KindError:
		return ErrorReply{Message: v.Str}
	case resp.KindSimple:
		if strings.EqualFold(v.Str, kindPong) {
			return Pong{}
		}
		return nil
	case resp.KindArray:
		return classifyArray(v.Array)
	default:
		return nil
	}
}

func classifyArray(elems []resp.Value) Frame {
	if len(elems) == 0 {
		return nil
	}

	kind := strings.ToLower(elems[0].Text())
	switch {
	case (kind == verbSubscribe || kind == verbUnsubscribe) && len(elems) == 3:
		return Confirmation{Verb: kind, Topic: elems[1].Text(), Count: count(elems[2])}
	case (kind == verbPsubscribe || kind == verbPunsubscribe) && (len(elems) == 3 || len(elems) == 4):
		return Confirmation{Verb: kind, Topic: elems[1].Text(), Count: count(elems[len(elems)-1])}
	case kind == kindMessage && len(elems) == 3:
		return PublishedMessage{Topic: elems[1].Text(), Payload: elems[2].Text()}
	case kind == kindPmessage && len(elems) == 4:
		return PatternMessage{Pattern: elems[1].Text(), Topic: elems[2].Text(), Payload: elems[3].Text()}
	case kind == kindPong && len(elems) == 2:
		return Pong{}
	default:
		return nil
	}
}

func count(v resp.Value) int64 {
	if v.Kind == resp.KindInteger {
		return v.Int
	}
	n, _ := strconv.ParseInt(v.Text(), 10, 64)
	return n
}
