package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/caffeineduck/santabox/hostfunc"
	"github.com/tetratelabs/wazero"
)

var ErrSessionClosed = errors.New("session closed")

// SessionEnv is set inside the module so the interpreter enters its
// line-per-request loop instead of handling a single request.
const SessionEnv = "SANTA_SESSION"

// Session is a long-lived interpreter instance. Bindings made by one
// Evaluate are visible to the next.
type Session struct {
	exec     *Executor
	lang     Language
	cfg      sessionConfig
	registry *hostfunc.Registry

	stdin       *io.PipeWriter
	stdinReader *io.PipeReader
	protocol    *protocolHandler
	cancel      context.CancelFunc
	exited      chan struct{}
	exitErr     error

	mu     sync.Mutex
	execMu sync.Mutex
	closed bool
}

type sessionConfig struct {
	timeout      time.Duration
	startTimeout time.Duration
	stdout       io.Writer
	env          map[string]string
}

func defaultSessionConfig() sessionConfig {
	return sessionConfig{
		timeout:      30 * time.Second,
		startTimeout: 30 * time.Second,
		stdout:       io.Discard,
		env:          make(map[string]string),
	}
}

type SessionOption func(*sessionConfig)

func WithSessionTimeout(d time.Duration) SessionOption {
	return func(c *sessionConfig) {
		c.timeout = d
	}
}

func WithSessionStartTimeout(d time.Duration) SessionOption {
	return func(c *sessionConfig) {
		c.startTimeout = d
	}
}

func WithSessionStdout(w io.Writer) SessionOption {
	return func(c *sessionConfig) {
		if w != nil {
			c.stdout = w
		}
	}
}

// NewSession starts lang in session mode and waits for its ready signal.
func (e *Executor) NewSession(lang Language, host *hostfunc.Registry, opts ...SessionOption) (*Session, error) {
	cfg := defaultSessionConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.env[SessionEnv] = "1"

	if host == nil {
		host = hostfunc.NewRegistry()
	}

	s := &Session{
		exec:     e,
		lang:     lang,
		cfg:      cfg,
		registry: host,
		exited:   make(chan struct{}),
	}

	if err := s.start(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	compiled, err := s.exec.getCompiled(ctx, s.lang)
	if err != nil {
		close(s.exited)
		return err
	}

	s.stdinReader, s.stdin = io.Pipe()
	s.protocol = newProtocolHandler(ctx, s.registry, s.stdin)

	moduleConfig := wazero.NewModuleConfig().
		WithStdout(s.cfg.stdout).
		WithStderr(s.protocol).
		WithStdin(s.stdinReader).
		WithArgs(s.lang.Args()...).
		WithName("")
	for k, v := range s.cfg.env {
		moduleConfig = moduleConfig.WithEnv(k, v)
	}

	go func() {
		mod, err := s.exec.runtime.InstantiateModule(ctx, compiled, moduleConfig)
		if mod != nil {
			mod.Close(context.Background())
		}
		s.stdin.Close()
		s.exitErr = err
		close(s.exited)
	}()

	select {
	case <-s.protocol.Ready():
		return nil
	case <-s.exited:
		if s.exitErr != nil {
			return fmt.Errorf("start session: %w%s", s.exitErr, stderrSuffix(s.protocol.Stderr()))
		}
		return errors.New("start session: interpreter exited before ready")
	case <-time.After(s.cfg.startTimeout):
		return errors.New("session start timeout")
	}
}

// Evaluate sends source as an evaluate request and waits for its reply.
func (s *Session) Evaluate(ctx context.Context, source string) (Reply, error) {
	s.execMu.Lock()
	defer s.execMu.Unlock()

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrSessionClosed
	}

	req := Request{Kind: KindEvaluate, Source: source}
	line, err := EncodeRequest(req)
	if err != nil {
		return nil, err
	}

	if s.cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.timeout)
		defer cancel()
	}

	s.protocol.Reset()
	go s.protocol.send(line)

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("timeout after %v", s.cfg.timeout)
		}
		return nil, ctx.Err()
	case raw := <-s.protocol.Replies():
		return DecodeReply(raw, req)
	case <-s.exited:
		select {
		case raw := <-s.protocol.Replies():
			return DecodeReply(raw, req)
		default:
		}
		if s.exitErr != nil {
			return nil, fmt.Errorf("session exited: %w%s", s.exitErr, stderrSuffix(s.protocol.Stderr()))
		}
		return nil, ErrSessionClosed
	}
}

// Execute implements Interpreter for evaluate requests, so a session can
// sit behind a dispatcher. The host registry is fixed at session start.
func (s *Session) Execute(ctx context.Context, req Request, _ *hostfunc.Registry) (Reply, error) {
	if req.Kind != KindEvaluate {
		return nil, fmt.Errorf("session cannot handle %q requests", req.Kind)
	}
	return s.Evaluate(ctx, req.Source)
}

func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	// Closing stdin gives the interpreter EOF; cancel stops it if it is busy.
	if s.stdinReader != nil {
		s.stdinReader.Close()
	}
	if s.stdin != nil {
		s.stdin.Close()
	}
	s.cancel()
	<-s.exited
	return nil
}
