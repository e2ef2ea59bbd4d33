// Package console is the text console the manager core owns: a grid of
// character cells with a cursor and a colour attribute, plus the keyboard
// line discipline readline is served from.
//
// Only the manager thread mutates a Console. The mutex is for renderers and
// tests reading it from other goroutines.
package console

import (
	"errors"
	"sync"
)

const (
	DefaultRows = 25
	DefaultCols = 80

	// DefaultColor is light grey on black.
	DefaultColor uint8 = 0x07

	// MaxLine bounds a pending input line; further keys are dropped.
	MaxLine = 256

	// KillLine (ctrl-U) erases the pending input line.
	KillLine byte = 0x15
)

var (
	ErrBadColor  = errors.New("console: invalid colour")
	ErrBadCursor = errors.New("console: cursor out of range")
)

// Logger receives every completed output line.
type Logger interface {
	WriteLineBytes(b []byte)
}

// Cell is one character position.
type Cell struct {
	Ch    byte
	Color uint8
}

// Console is the cell grid and input state.
type Console struct {
	mu sync.Mutex

	rows, cols int
	cells      []Cell
	row, col   int
	color      uint8

	line  []byte
	ready []byte

	sink    Logger
	pending []byte

	gen uint64
}

// New returns a cleared rows x cols console. Non-positive sizes select the
// defaults.
func New(rows, cols int) *Console {
	if rows <= 0 {
		rows = DefaultRows
	}
	if cols <= 0 {
		cols = DefaultCols
	}
	c := &Console{
		rows:  rows,
		cols:  cols,
		cells: make([]Cell, rows*cols),
		color: DefaultColor,
	}
	c.clear()
	return c
}

// SetSink mirrors completed output lines to l. A nil l stops mirroring.
func (c *Console) SetSink(l Logger) {
	c.mu.Lock()
	c.sink = l
	c.mu.Unlock()
}

// Size returns the grid dimensions.
func (c *Console) Size() (rows, cols int) { return c.rows, c.cols }

// Write draws b at the cursor and returns len(b).
func (c *Console) Write(b []byte) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range b {
		c.put(ch)
	}
	c.gen++
	return len(b)
}

// SetColor sets the attribute for subsequent output. The high bit is
// reserved.
func (c *Console) SetColor(color uint8) error {
	if color&0x80 != 0 {
		return ErrBadColor
	}
	c.mu.Lock()
	c.color = color
	c.mu.Unlock()
	return nil
}

// Color returns the current attribute.
func (c *Console) Color() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.color
}

// SetCursor moves the cursor.
func (c *Console) SetCursor(row, col int) error {
	if row < 0 || row >= c.rows || col < 0 || col >= c.cols {
		return ErrBadCursor
	}
	c.mu.Lock()
	c.row, c.col = row, col
	c.gen++
	c.mu.Unlock()
	return nil
}

// Cursor returns the cursor position.
func (c *Console) Cursor() (row, col int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.row, c.col
}

// At returns the cell at row, col.
func (c *Console) At(row, col int) Cell {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cells[row*c.cols+col]
}

// Row returns the characters of one row with trailing blanks removed.
func (c *Console) Row(row int) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := make([]byte, c.cols)
	end := 0
	for i := 0; i < c.cols; i++ {
		b[i] = c.cells[row*c.cols+i].Ch
		if b[i] != ' ' {
			end = i + 1
		}
	}
	return string(b[:end])
}

// Generation changes whenever the grid or cursor does.
func (c *Console) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Snapshot copies the grid into dst, which is grown as needed.
func (c *Console) Snapshot(dst []Cell) []Cell {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cap(dst) < len(c.cells) {
		dst = make([]Cell, len(c.cells))
	}
	dst = dst[:len(c.cells)]
	copy(dst, c.cells)
	return dst
}

// Feed runs one keyboard byte through the line discipline. Input is echoed.
// Backspace and KillLine edit the pending line; carriage return or newline
// completes it.
func (c *Console) Feed(ch byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ch {
	case '\b', 0x7f:
		if len(c.line) == 0 {
			return
		}
		c.line = c.line[:len(c.line)-1]
		c.put('\b')
	case KillLine:
		if len(c.line) == 0 {
			return
		}
		for range c.line {
			c.put('\b')
		}
		c.line = c.line[:0]
	case '\r', '\n':
		c.line = append(c.line, '\n')
		c.ready = append(c.ready, c.line...)
		c.line = c.line[:0]
		c.put('\n')
	default:
		if ch < ' ' || len(c.line) >= MaxLine {
			return
		}
		c.line = append(c.line, ch)
		c.put(ch)
	}
	c.gen++
}

// LineReady reports whether a completed input line is waiting.
func (c *Console) LineReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ready) > 0
}

// ReadLine removes and returns up to max bytes of the oldest completed line,
// newline included. Bytes past max stay queued for the next read. It returns
// nil when no line is ready.
func (c *Console) ReadLine(max int) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.ready) == 0 || max <= 0 {
		return nil
	}
	n := 0
	for n < len(c.ready) && c.ready[n] != '\n' {
		n++
	}
	n++
	if n > max {
		n = max
	}
	out := append([]byte(nil), c.ready[:n]...)
	c.ready = append(c.ready[:0], c.ready[n:]...)
	return out
}

func (c *Console) put(ch byte) {
	switch ch {
	case '\n':
		c.flush()
		c.col = 0
		c.newline()
	case '\r':
		c.col = 0
	case '\b':
		if len(c.pending) > 0 {
			c.pending = c.pending[:len(c.pending)-1]
		}
		if c.col > 0 {
			c.col--
			c.cells[c.row*c.cols+c.col] = Cell{Ch: ' ', Color: c.color}
		}
	default:
		c.pending = append(c.pending, ch)
		c.cells[c.row*c.cols+c.col] = Cell{Ch: ch, Color: c.color}
		c.col++
		if c.col == c.cols {
			c.col = 0
			c.newline()
		}
	}
}

func (c *Console) newline() {
	c.row++
	if c.row < c.rows {
		return
	}
	copy(c.cells, c.cells[c.cols:])
	last := c.cells[(c.rows-1)*c.cols:]
	for i := range last {
		last[i] = Cell{Ch: ' ', Color: c.color}
	}
	c.row = c.rows - 1
}

func (c *Console) flush() {
	if c.sink != nil {
		c.sink.WriteLineBytes(c.pending)
	}
	c.pending = c.pending[:0]
}

func (c *Console) clear() {
	for i := range c.cells {
		c.cells[i] = Cell{Ch: ' ', Color: c.color}
	}
	c.row, c.col = 0, 0
}
