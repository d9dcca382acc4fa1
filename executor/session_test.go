package executor

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/caffeineduck/santabox/hostfunc"
)

func newTestSession(t *testing.T, host *hostfunc.Registry, opts ...SessionOption) *Session {
	t.Helper()
	lang := newMockLanguage(t)
	exec := newTestExecutor(t)

	session, err := exec.NewSession(lang, host, opts...)
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func evaluateValue(t *testing.T, s *Session, source string) string {
	t.Helper()
	reply, err := s.Evaluate(context.Background(), source)
	if err != nil {
		t.Fatalf("evaluate %q failed: %v", source, err)
	}
	run, ok := reply.(*RunReply)
	if !ok {
		t.Fatalf("evaluate %q: expected *RunReply, got %T", source, reply)
	}
	if run.Result.Value == nil {
		return ""
	}
	return *run.Result.Value
}

func TestSessionBasic(t *testing.T) {
	session := newTestSession(t, nil)

	if got := evaluateValue(t, session, "echo hello"); got != "hello" {
		t.Errorf("expected 'hello', got %q", got)
	}
}

func TestSessionStatePersists(t *testing.T) {
	session := newTestSession(t, nil)

	evaluateValue(t, session, "set x 42")
	if got := evaluateValue(t, session, "get x"); got != "42" {
		t.Errorf("expected '42', got %q", got)
	}
}

func TestSessionMultipleRuns(t *testing.T) {
	session := newTestSession(t, nil)

	for i := range 5 {
		want := strings.Repeat("y", i+1)
		if got := evaluateValue(t, session, "echo "+want); got != want {
			t.Errorf("run %d: expected %q, got %q", i, want, got)
		}
	}
}

func TestSessionError(t *testing.T) {
	session := newTestSession(t, nil)

	reply, err := session.Evaluate(context.Background(), "error")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := reply.(*ErrorReply); !ok {
		t.Fatalf("expected *ErrorReply, got %T", reply)
	}

	// The session survives script errors.
	if got := evaluateValue(t, session, "echo after"); got != "after" {
		t.Errorf("expected 'after', got %q", got)
	}
}

func TestSessionHostFunction(t *testing.T) {
	var out bytes.Buffer
	session := newTestSession(t, hostfunc.NewBridge(&out, nil))

	evaluateValue(t, session, "puts from session")
	if out.String() != "from session\n" {
		t.Errorf("expected puts output, got %q", out.String())
	}
}

func TestSessionClosedError(t *testing.T) {
	session := newTestSession(t, nil)
	session.Close()

	_, err := session.Evaluate(context.Background(), "echo 1")
	if !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
	if err := session.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
}

func TestSessionExited(t *testing.T) {
	session := newTestSession(t, nil)

	_, err := session.Evaluate(context.Background(), "exit")
	if !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed after the interpreter exits, got %v", err)
	}
}

func TestSessionTimeout(t *testing.T) {
	session := newTestSession(t, nil, WithSessionTimeout(300*time.Millisecond))

	start := time.Now()
	_, err := session.Evaluate(context.Background(), "loop")
	if err == nil || !strings.Contains(err.Error(), "timeout") {
		t.Errorf("expected timeout error, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("timeout took too long: %v", time.Since(start))
	}
}

func TestSessionAsInterpreter(t *testing.T) {
	var interp Interpreter = newTestSession(t, nil)

	reply, err := interp.Execute(context.Background(), Request{Kind: KindEvaluate, Source: "echo 7"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v := reply.(*RunReply).Result.Value; v == nil || *v != "7" {
		t.Errorf("unexpected value: %v", v)
	}

	if _, err := interp.Execute(context.Background(), Request{Kind: KindRun, Source: "echo 7"}, nil); err == nil {
		t.Error("expected run request to be rejected by a session")
	}
}

func TestMultipleSessions(t *testing.T) {
	lang := newMockLanguage(t)
	exec := newTestExecutor(t)

	var wg sync.WaitGroup
	for i := range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session, err := exec.NewSession(lang, nil)
			if err != nil {
				t.Errorf("session %d: %v", i, err)
				return
			}
			defer session.Close()

			want := strings.Repeat("z", i+1)
			reply, err := session.Evaluate(context.Background(), "set v "+want)
			if err != nil {
				t.Errorf("session %d: %v", i, err)
				return
			}
			reply, err = session.Evaluate(context.Background(), "get v")
			if err != nil {
				t.Errorf("session %d: %v", i, err)
				return
			}
			if v := reply.(*RunReply).Result.Value; v == nil || *v != want {
				t.Errorf("session %d: state leaked between sessions", i)
			}
		}()
	}
	wg.Wait()
}
