package subscriber

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/subwire/pkg/resp"
	"github.com/yndnr/subwire/pkg/transport"
	"github.com/yndnr/subwire/pkg/transport/transporttest"
)

// ============================================================
// Invoke Tests
// ============================================================

func TestRouter_Invoke(t *testing.T) {
	sock := transporttest.NewSocket()
	sock.Reply(confirmation("subscribe", "a", 1) + confirmation("subscribe", "b", 2))
	r, obs := newTestRouter(t, sock)

	results, err := r.Invoke(context.Background(), resp.NewCommand("subscribe", "a", "b"), 2)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].Topic != "a" || results[1].Topic != "b" {
		t.Errorf("results out of order: %+v", results)
	}
	if r.Subscriptions() != 2 {
		t.Errorf("Subscriptions() = %d, want 2", r.Subscriptions())
	}
	if obs.confirmations.Load() != 2 {
		t.Errorf("observer saw %d confirmations, want 2", obs.confirmations.Load())
	}

	sent := sock.Sent()
	want := "*3\r\n$9\r\nsubscribe\r\n$1\r\na\r\n$1\r\nb\r\n"
	if len(sent) != 1 || sent[0] != want {
		t.Errorf("Sent() = %q, want [%q]", sent, want)
	}
}

func TestRouter_Invoke_Shortfall(t *testing.T) {
	sock := transporttest.NewSocket()
	sock.Reply(confirmation("subscribe", "a", 1), transporttest.EOF)
	r, _ := newTestRouter(t, sock)

	results, err := r.Invoke(context.Background(), resp.NewCommand("subscribe", "a", "b"), 2)
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("Invoke() error = %v, want ErrClosed", err)
	}
	if len(results) != 1 || results[0].Topic != "a" {
		t.Errorf("results = %+v, want only the first confirmation", results)
	}
}

func TestRouter_Invoke_ErrorReply(t *testing.T) {
	sock := transporttest.NewSocket()
	sock.Reply("-ERR only (P|S)SUBSCRIBE allowed\r\n")
	r, _ := newTestRouter(t, sock)

	results, err := r.Invoke(context.Background(), resp.NewCommand("subscribe", "a"), 1)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if results[0].OK() {
		t.Fatal("error reply reported as OK")
	}
	var re *ReplyError
	if !errors.As(results[0].Err, &re) || re.Message != "ERR only (P|S)SUBSCRIBE allowed" {
		t.Errorf("Err = %v", results[0].Err)
	}

	// Application-level failures do not stop the router.
	select {
	case <-r.Done():
		t.Error("router stopped on an error reply")
	default:
	}
}

func TestRouter_Invoke_ErrorReplyEndsMultiTopicCommand(t *testing.T) {
	sock := transporttest.NewSocket()
	sock.Reply("-NOAUTH Authentication required.\r\n")
	r, _ := newTestRouter(t, sock)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	results, err := r.Invoke(ctx, resp.NewCommand("subscribe", "a", "b", "c"), 3)
	if err != nil {
		t.Fatalf("Invoke() error = %v, want the error reply as a result", err)
	}
	if len(results) != 1 || results[0].OK() {
		t.Fatalf("results = %+v, want one rejected result", results)
	}
	var re *ReplyError
	if !errors.As(results[0].Err, &re) || re.Message != "NOAUTH Authentication required." {
		t.Errorf("Err = %v", results[0].Err)
	}
}

func TestRouter_Invoke_StopsAtErrorAfterConfirmations(t *testing.T) {
	sock := transporttest.NewSocket()
	sock.Reply(confirmation("subscribe", "a", 1) + "-ERR max subscriptions reached\r\n")
	r, _ := newTestRouter(t, sock)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	results, err := r.Invoke(ctx, resp.NewCommand("subscribe", "a", "b", "c"), 3)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if len(results) != 2 || !results[0].OK() || results[1].OK() {
		t.Errorf("results = %+v, want one confirmation then the rejection", results)
	}
}

func TestRouter_Invoke_AfterPeerCloseDoesNotSend(t *testing.T) {
	sock := transporttest.NewSocket()
	r, _ := newTestRouter(t, sock)

	sock.Feed(confirmation("subscribe", "a", 1), transporttest.EOF)
	waitClosed(t, r.Done())

	results, err := r.Invoke(context.Background(), resp.NewCommand("subscribe", "a"), 1)
	if !errors.Is(err, ErrClosed) || len(results) != 0 {
		t.Errorf("Invoke() = %v, %v, want no results and ErrClosed", results, err)
	}
	if sent := sock.Sent(); len(sent) != 0 {
		t.Errorf("sent %q after shutdown", sent)
	}
}

func TestRouter_Invoke_ContextCanceled(t *testing.T) {
	sock := transporttest.NewSocket()
	r, obs := newTestRouter(t, sock)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.Invoke(ctx, resp.NewCommand("subscribe", "a"), 1)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Invoke() error = %v, want DeadlineExceeded", err)
	}
	waitClosed(t, r.Done())
	if obs.interrupted.Load() != 1 {
		t.Errorf("interrupted %d times, want 1", obs.interrupted.Load())
	}
}

func TestRouter_Invoke_AfterInterrupt(t *testing.T) {
	sock := transporttest.NewSocket()
	r, _ := newTestRouter(t, sock)
	_ = r.Interrupt()

	if _, err := r.Invoke(context.Background(), resp.NewCommand("subscribe", "a"), 1); !errors.Is(err, ErrClosed) {
		t.Errorf("Invoke() error = %v, want ErrClosed", err)
	}
	if len(sock.Sent()) != 0 {
		t.Errorf("sent %q after interrupt", sock.Sent())
	}
}

func TestRouter_Invoke_SendFailure(t *testing.T) {
	sock := transporttest.NewSocket()
	sock.FailSend(transporttest.ErrSend)
	r, _ := newTestRouter(t, sock)

	_, err := r.Invoke(context.Background(), resp.NewCommand("subscribe", "a"), 1)
	var se *transport.SocketError
	if !errors.As(err, &se) || se.Msg != "failed to send" {
		t.Errorf("Invoke() error = %v, want failed to send", err)
	}
}

func TestRouter_Invoke_Concurrent(t *testing.T) {
	const callers = 8

	sock := transporttest.NewSocket()
	for i := 0; i < callers; i++ {
		sock.Reply(confirmation("subscribe", "t", i+1))
	}
	r, _ := newTestRouter(t, sock)

	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := r.Invoke(context.Background(), resp.NewCommand("subscribe", "t"), 1)
			if err == nil && len(results) != 1 {
				err = errors.New("missing confirmation")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Invoke() error = %v", err)
		}
	}
	if len(sock.Sent()) != callers {
		t.Errorf("sent %d commands, want %d", len(sock.Sent()), callers)
	}
}

// ============================================================
// Reader Tests
// ============================================================

func TestRouter_FragmentedReplies(t *testing.T) {
	sock := transporttest.NewSocket()
	sock.Reply("*3\r\n$9\r\nsub", "scribe\r\n$3\r\nfo", "o\r\n:1", "\r\n")
	r, _ := newTestRouter(t, sock)

	results, err := r.Invoke(context.Background(), resp.NewCommand("subscribe", "foo"), 1)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if results[0].Topic != "foo" || results[0].Count != 1 {
		t.Errorf("result = %+v", results[0])
	}
}

func TestRouter_DeliversMessagesInOrder(t *testing.T) {
	sock := transporttest.NewSocket()
	r, obs := newTestRouter(t, sock)

	sock.Feed(message("foo", "one") + message("foo", "two") + pmessage("f*", "foo", "three"))

	want := []Message{
		{Topic: "foo", Payload: "one"},
		{Topic: "foo", Payload: "two"},
		{Topic: "foo", Payload: "three", Pattern: "f*"},
	}
	for _, w := range want {
		if got := receive(t, r.Channel()); got != w {
			t.Errorf("got %+v, want %+v", got, w)
		}
	}
	if obs.messages.Load() != 3 {
		t.Errorf("observer saw %d messages, want 3", obs.messages.Load())
	}
}

func TestRouter_DropsUnknownReplies(t *testing.T) {
	sock := transporttest.NewSocket()
	r, obs := newTestRouter(t, sock)

	sock.Feed("*1\r\n$3\r\nfoo\r\n", ":5\r\n", message("foo", "after"))

	if got := receive(t, r.Channel()); got.Payload != "after" {
		t.Errorf("got %+v", got)
	}
	if obs.dropped.Load() != 2 {
		t.Errorf("dropped %d replies, want 2", obs.dropped.Load())
	}
}

func TestRouter_PeerCloseClosesQueues(t *testing.T) {
	sock := transporttest.NewSocket()
	r, obs := newTestRouter(t, sock)

	sock.Feed(message("foo", "last"), transporttest.EOF)

	if got := receive(t, r.Channel()); got.Payload != "last" {
		t.Errorf("got %+v", got)
	}
	waitClosed(t, r.Done())

	select {
	case _, ok := <-r.Channel():
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after peer close")
	}
	if obs.interrupted.Load() != 1 {
		t.Errorf("interrupted %d times, want 1", obs.interrupted.Load())
	}
	if sock.Closes() != 1 {
		t.Errorf("socket closed %d times, want 1", sock.Closes())
	}
}

func TestRouter_MalformedReplyInterrupts(t *testing.T) {
	sock := transporttest.NewSocket()
	r, _ := newTestRouter(t, sock)

	sock.Feed("?garbage\r\n")
	waitClosed(t, r.Done())
}

// ============================================================
// Interrupt Tests
// ============================================================

func TestRouter_Interrupt_UnblocksInvoke(t *testing.T) {
	sock := transporttest.NewSocket()
	r, _ := newTestRouter(t, sock)

	done := make(chan error, 1)
	go func() {
		_, err := r.Invoke(context.Background(), resp.NewCommand("subscribe", "a"), 1)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	if err := r.Interrupt(); err != nil {
		t.Fatalf("Interrupt() error = %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("Invoke() error = %v, want ErrClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Invoke() still blocked after Interrupt()")
	}
}

func TestRouter_Interrupt_Idempotent(t *testing.T) {
	sock := transporttest.NewSocket()
	sock.FailClose(errors.New("boom"))
	r, obs := newTestRouter(t, sock)

	err := r.Interrupt()
	var se *transport.SocketError
	if !errors.As(err, &se) || se.Msg != "failed to close" {
		t.Errorf("first Interrupt() error = %v, want failed to close", err)
	}
	if err := r.Interrupt(); err != nil {
		t.Errorf("second Interrupt() error = %v", err)
	}
	if obs.interrupted.Load() != 1 {
		t.Errorf("interrupted %d times, want 1", obs.interrupted.Load())
	}

	// Every queue is closed once Interrupt returns.
	if _, ok := <-r.Channel(); ok {
		t.Error("message channel still open")
	}
}

func TestRouter_Interrupt_UnblocksFullMessageQueue(t *testing.T) {
	sock := transporttest.NewSocket()
	obs := &countingObserver{}
	r := NewRouter(transport.New(sock), WithBufferSize(1), WithObserver(obs), WithLogger(discardLogger()))

	// Nobody consumes, so the reader blocks on the second push.
	sock.Feed(message("a", "1"), message("a", "2"), message("a", "3"))
	deadline := time.Now().Add(2 * time.Second)
	for obs.messages.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	finished := make(chan struct{})
	go func() {
		_ = r.Interrupt()
		close(finished)
	}()
	waitClosed(t, finished)
}

// ============================================================
// Ping Tests
// ============================================================

func TestRouter_Ping(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{name: "subscribed mode", reply: pongArray},
		{name: "plain mode", reply: "+PONG\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sock := transporttest.NewSocket()
			sock.Reply(tt.reply)
			r, obs := newTestRouter(t, sock)

			got, err := r.Ping(time.Second)
			if err != nil {
				t.Fatalf("Ping() error = %v", err)
			}
			if got != "pong" {
				t.Errorf("Ping() = %q, want pong", got)
			}
			if sent := sock.Sent(); len(sent) != 1 || sent[0] != "PING\r\n" {
				t.Errorf("Sent() = %q", sent)
			}
			if obs.pongs.Load() != 1 {
				t.Errorf("observer saw %d pongs", obs.pongs.Load())
			}
		})
	}
}

func TestRouter_Ping_Timeout(t *testing.T) {
	sock := transporttest.NewSocket()
	r, _ := newTestRouter(t, sock)

	if _, err := r.Ping(20 * time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Fatalf("Ping() error = %v, want ErrTimeout", err)
	}

	// A timeout is not a failure: the router keeps running.
	select {
	case <-r.Done():
		t.Error("router stopped after ping timeout")
	default:
	}
}

func TestRouter_Ping_DoesNotConsumeConfirmations(t *testing.T) {
	sock := transporttest.NewSocket()
	sock.Reply(pongArray)
	sock.Reply(confirmFoo)
	r, _ := newTestRouter(t, sock)

	if _, err := r.Ping(time.Second); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	results, err := r.Invoke(context.Background(), resp.NewCommand("subscribe", "foo"), 1)
	if err != nil || len(results) != 1 || results[0].Topic != "foo" {
		t.Errorf("Invoke() = %+v, %v", results, err)
	}
}

func TestRouter_Ping_AfterInterrupt(t *testing.T) {
	sock := transporttest.NewSocket()
	r, _ := newTestRouter(t, sock)
	_ = r.Interrupt()

	if _, err := r.Ping(time.Second); !errors.Is(err, ErrClosed) {
		t.Errorf("Ping() error = %v, want ErrClosed", err)
	}
}
