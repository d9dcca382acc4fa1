package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/caffeineduck/santabox/hostfunc"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// ErrNoReply is returned when the module exits without sending a reply frame.
var ErrNoReply = errors.New("interpreter exited without a reply")

// Executor manages the WASM runtime and compiled module caching.
type Executor struct {
	runtime  wazero.Runtime
	cache    wazero.CompilationCache
	compiled map[string]wazero.CompiledModule
	mu       sync.RWMutex
	closed   bool
}

// New creates an Executor.
func New(opts ...ExecutorOption) (*Executor, error) {
	cfg := defaultExecutorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx := context.Background()

	var cache wazero.CompilationCache
	var err error

	if cfg.diskCache {
		cacheDir := cfg.cacheDir
		if cacheDir == "" {
			cacheDir = defaultCacheDir()
		}
		cache, err = wazero.NewCompilationCacheWithDir(cacheDir)
		if err != nil {
			return nil, fmt.Errorf("create disk cache: %w", err)
		}
	}

	rtConfig := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cache != nil {
		rtConfig = rtConfig.WithCompilationCache(cache)
	}
	if cfg.memoryLimitPages > 0 {
		rtConfig = rtConfig.WithMemoryLimitPages(cfg.memoryLimitPages)
	}

	rt := wazero.NewRuntimeWithConfig(ctx, rtConfig)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		if cache != nil {
			cache.Close(ctx)
		}
		rt.Close(ctx)
		return nil, fmt.Errorf("instantiate WASI: %w", err)
	}

	e := &Executor{
		runtime:  rt,
		cache:    cache,
		compiled: make(map[string]wazero.CompiledModule),
	}

	for _, lang := range cfg.precompile {
		if _, err := e.getCompiled(ctx, lang); err != nil {
			e.Close()
			return nil, fmt.Errorf("precompile %s: %w", lang.Name(), err)
		}
	}

	return e, nil
}

// Execute runs req in a fresh module instance. The request is written as the
// first line on stdin; host calls are served from host until the module
// sends its reply frame and exits.
func (e *Executor) Execute(ctx context.Context, lang Language, req Request, host *hostfunc.Registry, opts ...Option) (Reply, error) {
	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	line, err := EncodeRequest(req)
	if err != nil {
		return nil, err
	}

	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	compiled, err := e.getCompiled(ctx, lang)
	if err != nil {
		return nil, err
	}

	stdinReader, stdinWriter := io.Pipe()
	protocol := newProtocolHandler(ctx, host, stdinWriter)

	// A guest blocked on stdin never reaches a cancellation check.
	stop := context.AfterFunc(ctx, func() { stdinWriter.Close() })
	defer stop()

	moduleConfig := wazero.NewModuleConfig().
		WithStdout(cfg.stdout).
		WithStderr(protocol).
		WithStdin(stdinReader).
		WithArgs(lang.Args()...).
		WithName("")
	for k, v := range cfg.env {
		moduleConfig = moduleConfig.WithEnv(k, v)
	}

	go protocol.send(line)

	errCh := make(chan error, 1)
	go func() {
		mod, err := e.runtime.InstantiateModule(ctx, compiled, moduleConfig)
		if mod != nil {
			mod.Close(context.Background())
		}
		stdinWriter.Close()
		errCh <- err
	}()

	err = <-errCh

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, fmt.Errorf("timeout after %v", cfg.timeout)
		}
		return nil, ctxErr
	}

	select {
	case raw := <-protocol.Replies():
		return DecodeReply(raw, req)
	default:
	}

	if err != nil {
		return nil, fmt.Errorf("execution failed: %w%s", err, stderrSuffix(protocol.Stderr()))
	}
	return nil, fmt.Errorf("%w%s", ErrNoReply, stderrSuffix(protocol.Stderr()))
}

// Bind returns an Interpreter that executes requests with lang.
func (e *Executor) Bind(lang Language, opts ...Option) *Binding {
	return &Binding{exec: e, lang: lang, opts: opts}
}

// Binding is an Executor paired with a language and run options.
type Binding struct {
	exec *Executor
	lang Language
	opts []Option
}

func (b *Binding) Execute(ctx context.Context, req Request, host *hostfunc.Registry) (Reply, error) {
	return b.exec.Execute(ctx, b.lang, req, host, b.opts...)
}

// getCompiled returns a cached compiled module, compiling if necessary.
func (e *Executor) getCompiled(ctx context.Context, lang Language) (wazero.CompiledModule, error) {
	name := lang.Name()

	e.mu.RLock()
	if compiled, ok := e.compiled[name]; ok {
		e.mu.RUnlock()
		return compiled, nil
	}
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, errors.New("executor closed")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if compiled, ok := e.compiled[name]; ok {
		return compiled, nil
	}

	compiled, err := e.runtime.CompileModule(ctx, lang.Module())
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}

	e.compiled[name] = compiled
	return compiled, nil
}

// Close releases all resources held by the Executor.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	ctx := context.Background()

	var errs []error
	if err := e.runtime.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if e.cache != nil {
		if err := e.cache.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func stderrSuffix(stderr string) string {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return ""
	}
	return ": " + stderr
}

func defaultCacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "santabox")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "santabox")
	}
	return filepath.Join(os.TempDir(), "santabox-cache")
}
