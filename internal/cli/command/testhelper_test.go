package command

import (
	"bufio"
	"bytes"
	"flag"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/subwire/pkg/resp"
)

// fakeServer speaks just enough RESP for the CLI: SUBSCRIBE and
// PSUBSCRIBE are confirmed and followed by the configured payloads,
// PUBLISH is recorded, and HELLO is rejected so clients fall back to
// RESP2.
type fakeServer struct {
	ln        net.Listener
	host      string
	port      int
	payloads  []string
	receivers int64
	// hangup closes a connection after the subscribe replies.
	hangup bool

	mu        sync.Mutex
	conns     []net.Conn
	published [][2]string
	wg        sync.WaitGroup
}

func startFakeServer(t *testing.T, payloads ...string) *fakeServer {
	t.Helper()
	return startFakeServerWith(t, nil, payloads...)
}

// startFakeServerWith lets configure adjust the server before it accepts.
func startFakeServerWith(t *testing.T, configure func(*fakeServer), payloads ...string) *fakeServer {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)

	s := &fakeServer{ln: ln, host: host, port: port, payloads: payloads, receivers: 1}
	if configure != nil {
		configure(s)
	}
	s.wg.Add(1)
	go s.accept()
	t.Cleanup(s.close)
	return s
}

// args returns the global flags pointing at s.
func (s *fakeServer) args() []string {
	return []string{"--host", s.host, "--port", strconv.Itoa(s.port)}
}

func (s *fakeServer) Published() [][2]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][2]string(nil), s.published...)
}

func (s *fakeServer) close() {
	_ = s.ln.Close()
	s.mu.Lock()
	for _, c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *fakeServer) accept() {
	defer s.wg.Done()
	for {
		c, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, c)
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer c.Close()
			s.serve(c)
		}()
	}
}

func (s *fakeServer) serve(c net.Conn) {
	br := bufio.NewReader(c)
	r := resp.NewReader(br)
	subscriptions := int64(0)
	for {
		b, err := br.Peek(1)
		if err != nil {
			return
		}
		if b[0] != '*' {
			line, err := br.ReadString('\n')
			if err != nil {
				return
			}
			if strings.EqualFold(strings.TrimSpace(line), "ping") {
				_, _ = c.Write(resp.Encode([]string{"pong", ""}))
			}
			continue
		}

		v, err := r.ReadValue()
		if err != nil || len(v.Array) == 0 {
			return
		}
		args := make([]string, len(v.Array)-1)
		for i, a := range v.Array[1:] {
			args[i] = a.Text()
		}

		var out []byte
		switch verb := strings.ToLower(v.Array[0].Text()); verb {
		case "hello":
			out = []byte("-ERR unknown command 'hello'\r\n")
		case "auth", "select":
			out = []byte("+OK\r\n")
		case "publish":
			s.mu.Lock()
			s.published = append(s.published, [2]string{args[0], args[1]})
			s.mu.Unlock()
			out = resp.Encode(s.receivers)
		case "subscribe", "psubscribe":
			for _, name := range args {
				subscriptions++
				out = resp.AppendValue(out, []any{verb, name, subscriptions})
			}
			for _, name := range args {
				for _, p := range s.payloads {
					if verb == "psubscribe" {
						topic := strings.ReplaceAll(name, "*", "1")
						out = resp.AppendValue(out, []string{"pmessage", name, topic, p})
					} else {
						out = resp.AppendValue(out, []string{"message", name, p})
					}
				}
			}
		case "unsubscribe", "punsubscribe":
			for _, name := range args {
				subscriptions--
				out = resp.AppendValue(out, []any{verb, name, subscriptions})
			}
		default:
			out = []byte("-ERR unknown command '" + verb + "'\r\n")
		}
		if _, err := c.Write(out); err != nil {
			return
		}
		if s.hangup && strings.HasSuffix(strings.ToLower(v.Array[0].Text()), "subscribe") {
			return
		}
	}
}

// runApp runs the CLI with args and returns what it printed. HOME points
// at an empty directory so no user config or history is read.
func runApp(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	var stdout, stderr bytes.Buffer
	app := App()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	app.Reader = strings.NewReader(stdin)
	app.ExitErrHandler = func(*cli.Context, error) {}

	err := app.Run(append([]string{"subwire-cli"}, args...))
	return stdout.String(), stderr.String(), err
}

// newTestContext parses args against flags without running an app.
func newTestContext(t *testing.T, flags []cli.Flag, args ...string) *cli.Context {
	t.Helper()

	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range flags {
		if err := f.Apply(set); err != nil {
			t.Fatalf("apply flag: %v", err)
		}
	}
	if err := set.Parse(args); err != nil {
		t.Fatalf("parse args: %v", err)
	}
	return cli.NewContext(App(), set, nil)
}
