package output

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/yndnr/subwire/pkg/subscriber"
)

// Entry is the printed form of one received message.
type Entry struct {
	Time    time.Time `json:"time" yaml:"time" table:"wide"`
	Pattern string    `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Topic   string    `json:"topic" yaml:"topic"`
	Payload string    `json:"payload" yaml:"payload"`
}

// MessageWriter prints messages as they arrive. It is safe for concurrent
// use.
type MessageWriter struct {
	mu     sync.Mutex
	w      io.Writer
	format Format
	wide   bool
	header bool
	now    func() time.Time
}

// NewMessageWriter creates a writer for the given format. Table output
// prints its header before the first message.
func NewMessageWriter(w io.Writer, format Format, wide bool) *MessageWriter {
	return &MessageWriter{
		w:      w,
		format: format,
		wide:   wide,
		now:    time.Now,
	}
}

// Write prints one message.
func (mw *MessageWriter) Write(m subscriber.Message) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	e := Entry{
		Time:    mw.now(),
		Pattern: m.Pattern,
		Topic:   m.Topic,
		Payload: m.Payload,
	}

	switch mw.format {
	case FormatRaw:
		_, err := fmt.Fprintln(mw.w, m.Payload)
		return err
	case FormatJSON:
		return (&JSONFormatter{}).Format(mw.w, e)
	case FormatYAML:
		return (&YAMLFormatter{Document: true}).Format(mw.w, e)
	default:
		// Rows are printed as they arrive, so columns are tab separated
		// rather than aligned.
		if !mw.header {
			mw.header = true
			if err := mw.row("TIME", "PATTERN", "TOPIC", "PAYLOAD"); err != nil {
				return err
			}
		}
		pattern := e.Pattern
		if pattern == "" {
			pattern = "-"
		}
		return mw.row(e.Time.Format(time.RFC3339Nano), pattern, e.Topic, e.Payload)
	}
}

func (mw *MessageWriter) row(ts, pattern, topic, payload string) error {
	var err error
	if mw.wide {
		_, err = fmt.Fprintf(mw.w, "%s\t%s\t%s\t%s\n", ts, pattern, topic, payload)
	} else {
		_, err = fmt.Fprintf(mw.w, "%s\t%s\t%s\n", pattern, topic, payload)
	}
	return err
}
