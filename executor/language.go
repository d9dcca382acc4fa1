package executor

import (
	"context"

	"github.com/caffeineduck/santabox/hostfunc"
)

// Language describes a WASI interpreter module.
type Language interface {
	// Name returns a unique identifier, used as the compiled module cache key.
	Name() string

	// Module returns the WASM binary for the interpreter.
	Module() []byte

	// Args returns the command-line arguments passed to the module.
	Args() []string
}

// Interpreter runs one request in an isolated execution context. A non-nil
// error is a fault of the context itself, never a script failure: those are
// reported as *ErrorReply.
type Interpreter interface {
	Execute(ctx context.Context, req Request, host *hostfunc.Registry) (Reply, error)
}
