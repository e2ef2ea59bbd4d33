package vm

import (
	"bytes"
	"errors"
	"testing"

	"pebbles/kern/defs"
)

func TestMapUnmapAccounting(t *testing.T) {
	f := NewFrames(8)
	as := New(f)

	if err := as.Map(0x1000, 3); err != nil {
		t.Fatalf("Map() error = %v", err)
	}
	if got := f.Free(); got != 5 {
		t.Fatalf("Free() = %d, want 5", got)
	}

	tests := []struct {
		name string
		base uint32
		n    int
		want error
	}{
		{"overlap", 0x2000, 1, ErrOverlap},
		{"misaligned", 0x10001, 1, ErrBadRange},
		{"empty", 0x10000, 0, ErrBadRange},
		{"exhausted", 0x10000, 6, ErrNoFrames},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := as.Map(tt.base, tt.n); !errors.Is(err, tt.want) {
				t.Fatalf("Map(%#x, %d) = %v, want %v", tt.base, tt.n, err, tt.want)
			}
		})
	}

	if err := as.Unmap(0x2000); !errors.Is(err, ErrNotMapped) {
		t.Fatalf("Unmap(inner page) = %v, want ErrNotMapped", err)
	}
	if err := as.Unmap(0x1000); err != nil {
		t.Fatalf("Unmap() error = %v", err)
	}
	if got := f.Free(); got != 8 {
		t.Fatalf("Free() after Unmap = %d, want 8", got)
	}
}

func TestZeroFillAndCrossPageWrite(t *testing.T) {
	as := New(NewFrames(4))
	if err := as.Map(0, 2); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 8)
	if err := as.Read(100, buf); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf, make([]byte, 8)) {
		t.Fatalf("untouched page read %v, want zeros", buf)
	}

	msg := []byte("straddle")
	addr := uint32(defs.PageSize - 3)
	if err := as.Write(addr, msg); err != nil {
		t.Fatal(err)
	}
	if err := as.Read(addr, buf); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf, msg) {
		t.Fatalf("Read() = %q, want %q", buf, msg)
	}
	if err := as.Write(2*defs.PageSize-2, msg); !errors.Is(err, ErrNotMapped) {
		t.Fatalf("Write past mapping = %v, want ErrNotMapped", err)
	}
}

func TestCloneIsDeepAndReservesFrames(t *testing.T) {
	f := NewFrames(4)
	as := New(f)
	if err := as.Map(0, 2); err != nil {
		t.Fatal(err)
	}
	if err := as.Write(0, []byte("parent")); err != nil {
		t.Fatal(err)
	}

	c, err := as.Clone()
	if err != nil {
		t.Fatalf("Clone() error = %v", err)
	}
	if f.Free() != 0 {
		t.Fatalf("Free() after clone = %d, want 0", f.Free())
	}
	if err := c.Write(0, []byte("child!")); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 6)
	_ = as.Read(0, buf)
	if string(buf) != "parent" {
		t.Fatalf("parent sees %q after child write", buf)
	}

	if _, err := as.Clone(); !errors.Is(err, ErrNoFrames) {
		t.Fatalf("Clone() with no frames = %v, want ErrNoFrames", err)
	}

	c.Destroy(true)
	if f.Free() != 2 {
		t.Fatalf("Free() after Destroy(reclaim) = %d, want 2", f.Free())
	}
	as.Destroy(false)
	if f.Free() != 2 {
		t.Fatalf("Destroy(no reclaim) released frames: Free() = %d", f.Free())
	}
}
