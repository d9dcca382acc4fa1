package hostfunc

import (
	"context"
	"io"
	"sort"
	"sync"
)

type Func func(ctx context.Context, args map[string]any) (any, error)

type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// NewBridge returns a registry exposing the two capabilities scripts get
// from the host: puts writes to out, read resolves through reader.
func NewBridge(out io.Writer, reader *Reader) *Registry {
	r := NewRegistry()
	r.Register("puts", NewPuts(out))
	if reader != nil {
		r.Register("read", reader.Func())
	}
	return r
}

func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	r.funcs[name] = fn
	r.mu.Unlock()
}

func (r *Registry) Get(name string) (Func, bool) {
	r.mu.RLock()
	fn, ok := r.funcs[name]
	r.mu.RUnlock()
	return fn, ok
}

// All returns a snapshot of the registered functions.
func (r *Registry) All() map[string]Func {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make(map[string]Func, len(r.funcs))
	for name, fn := range r.funcs {
		all[name] = fn
	}
	return all
}

func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
