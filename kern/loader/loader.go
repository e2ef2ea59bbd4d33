// Package loader is the program registry exec and boot resolve names in.
package loader

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"pebbles/kern/core"
)

var (
	ErrDuplicate = errors.New("loader: program already registered")
	ErrNoEntry   = errors.New("loader: program has no entry")
)

// DefaultPages is the image size given to programs that do not set one.
const DefaultPages = 1

// Registry maps program names to images. It is safe for concurrent use;
// exec looks programs up from any core.
type Registry struct {
	mu    sync.RWMutex
	progs map[string]core.Program
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{progs: make(map[string]core.Program)}
}

// Register adds prog under prog.Name.
func (r *Registry) Register(prog core.Program) error {
	if prog.Entry == nil {
		return fmt.Errorf("%w: %q", ErrNoEntry, prog.Name)
	}
	if prog.Pages <= 0 {
		prog.Pages = DefaultPages
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.progs[prog.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicate, prog.Name)
	}
	r.progs[prog.Name] = prog
	return nil
}

// Add registers a program built from name and entry.
func (r *Registry) Add(name string, entry core.Entry) error {
	return r.Register(core.Program{Name: name, Entry: entry})
}

// Lookup implements core.Programs.
func (r *Registry) Lookup(name string) (core.Program, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.progs[name]
	return p, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.progs))
	for name := range r.progs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
