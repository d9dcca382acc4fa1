// Package santa provides the santa-lang language adapter.
//
// The interpreter is the santa-lang WASI build, loaded from disk at startup
// (see internal/tools/download for fetching it).
package santa

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
)

// DefaultModulePath is where the CLI looks for the interpreter when no path
// is configured.
const DefaultModulePath = "santa-lang.wasm"

var wasmMagic = []byte{0x00, 'a', 's', 'm'}

var ErrNotWasm = errors.New("not a WebAssembly module")

// Santa implements the executor.Language interface.
type Santa struct {
	module []byte
	name   string
}

// New wraps an interpreter binary already in memory.
func New(module []byte) (*Santa, error) {
	if !bytes.HasPrefix(module, wasmMagic) {
		return nil, ErrNotWasm
	}
	sum := sha256.Sum256(module)
	return &Santa{
		module: module,
		name:   "santa-lang-" + hex.EncodeToString(sum[:6]),
	}, nil
}

// Load reads the interpreter module at path.
func Load(path string) (*Santa, error) {
	module, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load interpreter: %w", err)
	}
	lang, err := New(module)
	if err != nil {
		return nil, fmt.Errorf("load interpreter %s: %w", path, err)
	}
	return lang, nil
}

// Name identifies the module by content, so different builds never share a
// compiled module.
func (s *Santa) Name() string {
	return s.name
}

// Module returns the interpreter WASM binary.
func (s *Santa) Module() []byte {
	return s.module
}

// Args returns the command-line arguments for the interpreter.
func (s *Santa) Args() []string {
	return []string{"santa-lang"}
}
