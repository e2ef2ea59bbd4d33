package core

import (
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// KernelPanic is the value a kernel invariant violation panics with.
type KernelPanic string

func (p KernelPanic) Error() string { return string(p) }

// Panic reports a violated kernel invariant. It never returns.
func Panic(format string, args ...any) {
	panic(KernelPanic(fmt.Sprintf(format, args...)))
}

// PanicInfo contains details about a kernel panic.
type PanicInfo struct {
	Core  int
	TID   int
	Value any
	Stack []byte
}

var (
	panicActive atomic.Bool
	panicOnce   sync.Once

	panicHandler atomic.Value // func(PanicInfo)
)

// InPanicMode reports whether some core has panicked.
func InPanicMode() bool {
	return panicActive.Load()
}

// SetPanicHandler installs a process-wide panic handler.
//
// The handler is invoked at most once (on the first panic). It must not panic.
func SetPanicHandler(fn func(PanicInfo)) {
	panicHandler.Store(fn)
}

func triggerPanic(info PanicInfo) {
	panicOnce.Do(func() {
		panicActive.Store(true)
		info.Stack = debug.Stack()
		if v := panicHandler.Load(); v != nil {
			if fn, ok := v.(func(PanicInfo)); ok && fn != nil {
				fn(info)
			}
		}
	})
}

// fatal stops the machine after a kernel panic on this core and retires the
// calling goroutine.
func (c *Core) fatal(v any) {
	tid := 0
	if c.current != nil {
		tid = c.current.TID
	}
	triggerPanic(PanicInfo{Core: c.id, TID: tid, Value: v})
	c.Logf("kernel panic: tid %d: %v", tid, v)

	err, ok := v.(error)
	if !ok {
		err = fmt.Errorf("%v", v)
	}
	if c.env.Fatal != nil {
		c.env.Fatal(fmt.Errorf("core%d: %w", c.id, errors.Join(ErrKernelPanic, err)))
	}
	runtime.Goexit()
}

// ErrKernelPanic wraps the error a machine stops with after a kernel panic.
var ErrKernelPanic = errors.New("kernel panic")
