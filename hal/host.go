package hal

import (
	"fmt"
	"os"
	"sync"
	"time"
)

const (
	// ScreenWidth and ScreenHeight fit an 80x25 console in a 6x10 font.
	ScreenWidth  = 480
	ScreenHeight = 250

	// TickDuration is the host timer period.
	TickDuration = 10 * time.Millisecond
)

type hostHAL struct {
	logger *hostLogger
	fb     *hostFramebuffer
	kbd    *hostKeyboard
	in     Keyboard
	t      *hostTime
}

// New returns a host HAL implementation whose keyboard is the window.
func New() HAL {
	return newHost()
}

func newHost() *hostHAL {
	kbd := newHostKeyboard()
	return &hostHAL{
		logger: &hostLogger{w: os.Stdout},
		fb:     newHostFramebuffer(ScreenWidth, ScreenHeight),
		kbd:    kbd,
		in:     kbd,
		t:      newHostTime(TickDuration),
	}
}

func (h *hostHAL) Logger() Logger   { return h.logger }
func (h *hostHAL) Display() Display { return hostDisplay{fb: h.fb} }
func (h *hostHAL) Input() Input     { return hostInput{kbd: h.in} }
func (h *hostHAL) Time() Time       { return h.t }

type hostDisplay struct {
	fb *hostFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }

type hostInput struct {
	kbd Keyboard
}

func (in hostInput) Keyboard() Keyboard { return in.kbd }

type hostLogger struct {
	mu sync.Mutex
	w  *os.File
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}
