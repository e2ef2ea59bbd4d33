package hal

import (
	"strings"
	"testing"
	"time"
)

func TestStreamKeyboard(t *testing.T) {
	k := newStreamKeyboard(strings.NewReader("ls\r\nx\b\n"))
	var got []KeyEvent
	timeout := time.After(5 * time.Second)
	for done := false; !done; {
		select {
		case ev, ok := <-k.Events():
			if !ok {
				done = true
				break
			}
			got = append(got, ev)
		case <-timeout:
			t.Fatal("event channel never closed")
		}
	}
	want := []KeyEvent{
		{Press: true, Rune: 'l'},
		{Press: true, Rune: 's'},
		{Code: KeyEnter, Press: true},
		{Press: true, Rune: 'x'},
		{Code: KeyBackspace, Press: true},
		{Code: KeyEnter, Press: true},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d events %+v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestHostTimeCountsElapsedTicks(t *testing.T) {
	ht := newHostTime(time.Millisecond)
	ht.step()
	if seq := <-ht.Ticks(); seq != 1 {
		t.Fatalf("first tick = %d, want 1", seq)
	}
	time.Sleep(5 * time.Millisecond)
	ht.step()
	n := len(ht.Ticks())
	if n < 5 {
		t.Fatalf("%d ticks after 5ms, want at least 5", n)
	}
	var last uint64
	for i := 0; i < n; i++ {
		last = <-ht.Ticks()
	}
	if last != uint64(n)+1 {
		t.Fatalf("last tick = %d, want %d", last, n+1)
	}
}

func TestRGB565RoundTrip(t *testing.T) {
	for _, c := range [][3]uint8{{0, 0, 0}, {255, 255, 255}, {255, 0, 0}, {0, 255, 0}, {0, 0, 255}} {
		r, g, b := rgb888From565(rgb565(c[0], c[1], c[2]))
		if r != c[0] || g != c[1] || b != c[2] {
			t.Fatalf("round trip of %v = %d,%d,%d", c, r, g, b)
		}
	}
}

func TestFramebufferClear(t *testing.T) {
	fb := newHostFramebuffer(4, 2)
	fb.ClearRGB(255, 0, 0)
	dst := make([]byte, len(fb.Buffer()))
	fb.snapshotRGB565(dst)
	for i := 0; i < len(dst); i += 2 {
		if p := uint16(dst[i]) | uint16(dst[i+1])<<8; p != 0xf800 {
			t.Fatalf("pixel %d = %#04x, want 0xf800", i/2, p)
		}
	}
}
