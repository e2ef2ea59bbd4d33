package console

import (
	"testing"

	"pebbles/hal"
)

type lineSink struct{ lines []string }

func (s *lineSink) WriteLineBytes(b []byte) { s.lines = append(s.lines, string(b)) }

func TestWriteWrapsAndScrolls(t *testing.T) {
	c := New(2, 4)
	c.Write([]byte("abcdef"))
	if got := c.Row(0); got != "abcd" {
		t.Fatalf("Row(0) = %q, want %q", got, "abcd")
	}
	if got := c.Row(1); got != "ef" {
		t.Fatalf("Row(1) = %q, want %q", got, "ef")
	}
	c.Write([]byte("\nxy"))
	if got := c.Row(0); got != "ef" {
		t.Fatalf("after scroll Row(0) = %q, want %q", got, "ef")
	}
	if got := c.Row(1); got != "xy" {
		t.Fatalf("after scroll Row(1) = %q, want %q", got, "xy")
	}
	if r, col := c.Cursor(); r != 1 || col != 2 {
		t.Fatalf("Cursor() = %d,%d, want 1,2", r, col)
	}
}

func TestControlCharacters(t *testing.T) {
	c := New(3, 10)
	c.Write([]byte("hello\rj"))
	if got := c.Row(0); got != "jello" {
		t.Fatalf("Row(0) = %q, want %q", got, "jello")
	}
	c.Write([]byte("\b\b"))
	if got := c.Row(0); got != " ello" {
		t.Fatalf("Row(0) after backspace = %q, want %q", got, " ello")
	}
}

func TestColorAndCursor(t *testing.T) {
	c := New(5, 5)
	if err := c.SetColor(0x80); err != ErrBadColor {
		t.Fatalf("SetColor(0x80) = %v, want %v", err, ErrBadColor)
	}
	if err := c.SetColor(0x1e); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		row, col int
		err      error
	}{
		{0, 0, nil},
		{4, 4, nil},
		{5, 0, ErrBadCursor},
		{0, 5, ErrBadCursor},
		{-1, 0, ErrBadCursor},
	}
	for _, tt := range tests {
		if err := c.SetCursor(tt.row, tt.col); err != tt.err {
			t.Fatalf("SetCursor(%d, %d) = %v, want %v", tt.row, tt.col, err, tt.err)
		}
	}
	c.SetCursor(2, 3)
	c.Write([]byte("Z"))
	if cell := c.At(2, 3); cell.Ch != 'Z' || cell.Color != 0x1e {
		t.Fatalf("At(2, 3) = %+v", cell)
	}
}

func TestLineDiscipline(t *testing.T) {
	c := New(5, 20)
	if c.LineReady() {
		t.Fatal("LineReady() on fresh console")
	}
	for _, b := range []byte("lsx\b -l") {
		c.Feed(b)
	}
	if c.LineReady() {
		t.Fatal("LineReady() before return")
	}
	if got := c.ReadLine(10); got != nil {
		t.Fatalf("ReadLine() = %q before return", got)
	}
	c.Feed('\r')
	if got := c.Row(0); got != "ls -l" {
		t.Fatalf("echo Row(0) = %q, want %q", got, "ls -l")
	}
	if got := string(c.ReadLine(3)); got != "ls " {
		t.Fatalf("ReadLine(3) = %q, want %q", got, "ls ")
	}
	if got := string(c.ReadLine(10)); got != "-l\n" {
		t.Fatalf("ReadLine(10) = %q, want %q", got, "-l\n")
	}
	if c.LineReady() {
		t.Fatal("LineReady() after draining")
	}
}

func TestBackspaceOnEmptyLine(t *testing.T) {
	c := New(2, 10)
	c.Write([]byte("$ "))
	c.Feed('\b')
	if got := c.Row(0); got != "$" {
		t.Fatalf("Row(0) = %q, want prompt kept", got)
	}
}

func TestKillLine(t *testing.T) {
	c := New(2, 20)
	c.Write([]byte("$ "))
	for _, b := range []byte("rm -rf") {
		c.Feed(b)
	}
	c.Feed(KillLine)
	if got := c.Row(0); got != "$" {
		t.Fatalf("Row(0) = %q after kill", got)
	}
	for _, b := range []byte("ls\n") {
		c.Feed(b)
	}
	if got := string(c.ReadLine(64)); got != "ls\n" {
		t.Fatalf("ReadLine = %q, want %q", got, "ls\n")
	}
}

func TestReadLineKeepsLinesSeparate(t *testing.T) {
	c := New(5, 20)
	for _, b := range []byte("one\ntwo\n") {
		c.Feed(b)
	}
	if got := string(c.ReadLine(64)); got != "one\n" {
		t.Fatalf("first ReadLine = %q", got)
	}
	if got := string(c.ReadLine(64)); got != "two\n" {
		t.Fatalf("second ReadLine = %q", got)
	}
}

func TestSinkMirrorsLines(t *testing.T) {
	c := New(5, 20)
	s := &lineSink{}
	c.SetSink(s)
	c.Write([]byte("hello\nwor"))
	c.Write([]byte("ld\n"))
	if len(s.lines) != 2 || s.lines[0] != "hello" || s.lines[1] != "world" {
		t.Fatalf("sink lines = %q", s.lines)
	}
}

type testFB struct {
	w, h     int
	buf      []byte
	presents int
}

func newTestFB(w, h int) *testFB { return &testFB{w: w, h: h, buf: make([]byte, w*h*2)} }

func (f *testFB) Width() int              { return f.w }
func (f *testFB) Height() int             { return f.h }
func (f *testFB) Format() hal.PixelFormat { return hal.PixelFormatRGB565 }
func (f *testFB) StrideBytes() int        { return f.w * 2 }
func (f *testFB) Buffer() []byte          { return f.buf }
func (f *testFB) ClearRGB(r, g, b uint8)  {}
func (f *testFB) Present() error          { f.presents++; return nil }

func (f *testFB) lit() int {
	n := 0
	for i := 0; i < len(f.buf); i += 2 {
		if f.buf[i] != 0 || f.buf[i+1] != 0 {
			n++
		}
	}
	return n
}

func TestRendererDrawsOnChange(t *testing.T) {
	fb := newTestFB(160, 40)
	r := NewRenderer(fb)
	if r == nil {
		t.Fatal("NewRenderer() = nil")
	}
	c := New(4, 20)
	if !r.Render(c) {
		t.Fatal("first Render() did not draw")
	}
	if r.Render(c) {
		t.Fatal("Render() drew without a change")
	}
	c.Write([]byte("HI"))
	if !r.Render(c) {
		t.Fatal("Render() skipped a change")
	}
	if fb.lit() == 0 {
		t.Fatal("no pixels drawn")
	}
	if fb.presents != 2 {
		t.Fatalf("presents = %d, want 2", fb.presents)
	}
}
