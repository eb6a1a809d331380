package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yndnr/subwire/internal/cli/output"
	"github.com/yndnr/subwire/pkg/subscriber"
)

// ErrConnectionClosed is returned by Run when the connection ends while
// the prompt is open.
var ErrConnectionClosed = errors.New("connection closed")

// Session is the subscriber surface the REPL drives.
type Session interface {
	Subscribe(ctx context.Context, topics ...string) error
	Unsubscribe(ctx context.Context, topics ...string) error
	Psubscribe(ctx context.Context, patterns ...string) error
	Punsubscribe(ctx context.Context, patterns ...string) error
	Ping(timeout time.Duration) (string, error)
	Channel() <-chan subscriber.Message
	Subscriptions() int64
	Done() <-chan struct{}
}

type command struct {
	usage   string
	minArgs int
	run     func(ctx context.Context, r *REPL, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"subscribe": {usage: "subscribe <topic>...", minArgs: 1, run: func(ctx context.Context, r *REPL, args []string) error {
			return r.session.Subscribe(ctx, args...)
		}},
		"unsubscribe": {usage: "unsubscribe <topic>...", minArgs: 1, run: func(ctx context.Context, r *REPL, args []string) error {
			return r.session.Unsubscribe(ctx, args...)
		}},
		"psubscribe": {usage: "psubscribe <pattern>...", minArgs: 1, run: func(ctx context.Context, r *REPL, args []string) error {
			return r.session.Psubscribe(ctx, args...)
		}},
		"punsubscribe": {usage: "punsubscribe <pattern>...", minArgs: 1, run: func(ctx context.Context, r *REPL, args []string) error {
			return r.session.Punsubscribe(ctx, args...)
		}},
		"ping": {usage: "ping", run: func(_ context.Context, r *REPL, _ []string) error {
			start := time.Now()
			reply, err := r.session.Ping(r.timeout)
			if err != nil {
				return err
			}
			r.printf("%s (%s)\n", reply, time.Since(start).Round(time.Microsecond))
			return nil
		}},
		"status": {usage: "status", run: func(_ context.Context, r *REPL, _ []string) error {
			r.printf("subscriptions: %d\n", r.session.Subscriptions())
			return nil
		}},
		"history": {usage: "history", run: func(_ context.Context, r *REPL, _ []string) error {
			for i, entry := range r.history.Entries() {
				r.printf("%4d  %s\n", i+1, entry)
			}
			return nil
		}},
		"help": {usage: "help", run: func(_ context.Context, r *REPL, _ []string) error {
			names := make([]string, 0, len(commands))
			for name := range commands {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				r.printf("  %s\n", commands[name].usage)
			}
			r.printf("  exit\n")
			return nil
		}},
	}
}

// aliases map short forms to command names.
var aliases = map[string]string{
	"sub":    "subscribe",
	"unsub":  "unsubscribe",
	"psub":   "psubscribe",
	"punsub": "punsubscribe",
}

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	input     io.Reader
	out       *syncWriter
	session   Session
	messages  *output.MessageWriter
	format    output.Format
	completer *Completer
	history   *History
	prompt    string
	timeout   time.Duration
	logger    *slog.Logger
}

// Option configures a REPL.
type Option func(*REPL)

// WithIO replaces stdin and stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(r *REPL) {
		r.input = in
		r.out = &syncWriter{w: out}
	}
}

// WithHistory sets the history store.
func WithHistory(h *History) Option {
	return func(r *REPL) {
		r.history = h
	}
}

// WithFormat sets how received messages are printed.
func WithFormat(f output.Format) Option {
	return func(r *REPL) {
		r.format = f
	}
}

// WithTimeout sets the ping timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *REPL) {
		r.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *REPL) {
		r.logger = logger
	}
}

// New creates a REPL driving session.
func New(session Session, opts ...Option) *REPL {
	names := make([]string, 0, len(commands)+len(aliases)+2)
	for name := range commands {
		names = append(names, name)
	}
	for alias := range aliases {
		names = append(names, alias)
	}
	names = append(names, "exit", "quit")

	r := &REPL{
		input:     os.Stdin,
		out:       &syncWriter{w: os.Stdout},
		session:   session,
		completer: NewCompleter(names...),
		history:   NewHistory(""),
		format:    output.FormatTable,
		prompt:    "subwire> ",
		timeout:   subscriber.DefaultTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.messages = output.NewMessageWriter(r.out, r.format, false)
	return r
}

// Run reads commands until exit, end of input, ctx cancellation or loss
// of the connection. Messages are printed while the prompt is open.
func (r *REPL) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The line reader is not waited for: a read from a terminal cannot be
	// interrupted, and it exits at the next line once ctx is canceled.
	lines := make(chan string)
	readErr := make(chan error, 1)
	go r.readLines(ctx, lines, readErr)

	pumped := make(chan struct{})
	go func() {
		defer close(pumped)
		r.pump(ctx)
	}()
	defer func() {
		cancel()
		<-pumped
	}()

	r.printf("%s", r.prompt)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.session.Done():
			r.printf("\n%s\n", ErrConnectionClosed)
			return ErrConnectionClosed
		case line, ok := <-lines:
			if !ok {
				r.printf("\n")
				return <-readErr
			}
			line = strings.TrimSpace(line)
			if line == "" {
				r.printf("%s", r.prompt)
				continue
			}
			r.history.Add(line)
			if line == "exit" || line == "quit" {
				return nil
			}
			if err := r.execute(ctx, line); err != nil {
				r.printf("Error: %v\n", err)
			}
			r.printf("%s", r.prompt)
		}
	}
}

func (r *REPL) execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	name := strings.ToLower(fields[0])
	if full, ok := aliases[name]; ok {
		name = full
	}

	cmd, ok := commands[name]
	if !ok {
		if suggestions := r.completer.Complete(name); len(suggestions) > 0 {
			return fmt.Errorf("unknown command %q, did you mean: %s", fields[0], strings.Join(suggestions, ", "))
		}
		return fmt.Errorf("unknown command %q, type help for a list", fields[0])
	}

	args := fields[1:]
	if len(args) < cmd.minArgs {
		return fmt.Errorf("usage: %s", cmd.usage)
	}

	r.logger.Debug("repl command", "command", name, "args", args)
	return cmd.run(ctx, r, args)
}

func (r *REPL) readLines(ctx context.Context, lines chan<- string, readErr chan<- error) {
	defer close(lines)

	scanner := bufio.NewScanner(r.input)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
	readErr <- scanner.Err()
}

func (r *REPL) pump(ctx context.Context) {
	ch := r.session.Channel()
	for {
		select {
		case m, ok := <-ch:
			if !ok {
				return
			}
			if err := r.messages.Write(m); err != nil {
				r.logger.Warn("failed to print message", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (r *REPL) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

// syncWriter serializes prompt output with messages printed by the pump.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
