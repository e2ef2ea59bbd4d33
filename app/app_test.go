package app

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"pebbles/hal"
	"pebbles/kern"
	"pebbles/kern/core"
)

type logSink struct {
	mu    sync.Mutex
	lines []string
}

func (l *logSink) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, s)
}

func (l *logSink) WriteLineBytes(b []byte) { l.WriteLineString(string(b)) }

func (l *logSink) contains(sub string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.lines {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

type memFB struct {
	w, h     int
	buf      []byte
	presents int
}

func newMemFB(w, h int) *memFB { return &memFB{w: w, h: h, buf: make([]byte, w*h*2)} }

func (f *memFB) Width() int              { return f.w }
func (f *memFB) Height() int             { return f.h }
func (f *memFB) Format() hal.PixelFormat { return hal.PixelFormatRGB565 }
func (f *memFB) StrideBytes() int        { return f.w * 2 }
func (f *memFB) Buffer() []byte          { return f.buf }
func (f *memFB) ClearRGB(r, g, b uint8)  {}

func (f *memFB) Present() error {
	f.presents++
	return nil
}

type keys chan hal.KeyEvent

func (k keys) Events() <-chan hal.KeyEvent { return k }

type testHAL struct {
	log *logSink
	fb  *memFB
	kbd keys
}

func (h *testHAL) Logger() hal.Logger   { return h.log }
func (h *testHAL) Display() hal.Display { return h }
func (h *testHAL) Input() hal.Input     { return h }
func (h *testHAL) Time() hal.Time       { return nil }

func (h *testHAL) Framebuffer() hal.Framebuffer { return h.fb }
func (h *testHAL) Keyboard() hal.Keyboard       { return h.kbd }

func newTestHAL() *testHAL {
	return &testHAL{log: &logSink{}, fb: newMemFB(hal.ScreenWidth, hal.ScreenHeight), kbd: make(keys, 64)}
}

func typeLine(k keys, s string) {
	for _, r := range s {
		k <- hal.KeyEvent{Press: true, Rune: r}
	}
	k <- hal.KeyEvent{Code: hal.KeyEnter, Press: true}
}

// drive calls step like a host runner until it returns an error.
func drive(t *testing.T, step func() error) error {
	t.Helper()
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		if err := step(); err != nil {
			return err
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("machine did not stop")
	return nil
}

func testConfig() Config {
	cfg := kern.DefaultConfig()
	cfg.Cores = 3
	cfg.Hz = 500
	return Config{Machine: cfg}
}

func TestShellExitHaltsMachine(t *testing.T) {
	h := newTestHAL()
	typeLine(h.kbd, "hello from app")
	typeLine(h.kbd, "exit 7")

	err := drive(t, NewWithConfig(h, testConfig()))
	if !errors.Is(err, ErrHalted) {
		t.Fatalf("step error = %v, want ErrHalted", err)
	}
	if !h.log.contains(": from app") {
		t.Fatalf("hello output missing: %q", h.log.lines)
	}
	if !h.log.contains("init: shell exited with status 7") {
		t.Fatalf("init exit missing: %q", h.log.lines)
	}
	if h.fb.presents == 0 {
		t.Fatal("console never rendered")
	}
}

func TestBootErrorIsReturnedByStep(t *testing.T) {
	h := newTestHAL()
	cfg := testConfig()
	cfg.Machine.Init = "nosuch"
	err := NewWithConfig(h, cfg)()
	if !errors.Is(err, kern.ErrNoInit) {
		t.Fatalf("step error = %v, want ErrNoInit", err)
	}
}

func TestPanicLines(t *testing.T) {
	lines := panicLines(core.PanicInfo{Core: 2, TID: 9, Value: "boom", Stack: []byte("a\n\nb\n")})
	want := []string{"pebbles panic:", "core: 2 tid: 9", "panic: boom", "stack:", "a", "b"}
	if strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Fatalf("panicLines = %q, want %q", lines, want)
	}
	if got := panicLines(core.PanicInfo{}); got[len(got)-1] != "stack: unavailable" {
		t.Fatalf("panicLines without stack = %q", got)
	}
}
