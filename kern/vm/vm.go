// Package vm is the address-space collaborator of the kernel core: a pool of
// physical frames and per-process page maps with zero-fill-on-demand backing.
//
// An AddressSpace is not internally synchronized. All threads of a process
// run on one core, and callers hold the process's region sub-lock covering
// the range they touch; Clone and Destroy require the space to be quiescent.
package vm

import (
	"errors"
	"sort"
	"sync/atomic"

	"pebbles/kern/defs"
)

var (
	ErrNoFrames  = errors.New("vm: out of frames")
	ErrNotMapped = errors.New("vm: range not mapped")
	ErrOverlap   = errors.New("vm: range overlaps a mapping")
	ErrBadRange  = errors.New("vm: misaligned or empty range")
)

// Frames is the machine-wide physical frame reservation counter.
type Frames struct {
	total int64
	free  atomic.Int64
}

// NewFrames returns a pool of n frames.
func NewFrames(n int) *Frames {
	f := &Frames{total: int64(n)}
	f.free.Store(int64(n))
	return f
}

// Reserve takes n frames, or none if fewer than n are free.
func (f *Frames) Reserve(n int) bool {
	for {
		free := f.free.Load()
		if free < int64(n) {
			return false
		}
		if f.free.CompareAndSwap(free, free-int64(n)) {
			return true
		}
	}
}

// Release returns n frames to the pool.
func (f *Frames) Release(n int) {
	if f.free.Add(int64(n)) > f.total {
		panic("vm: frame pool overflow")
	}
}

// Free returns the number of unreserved frames.
func (f *Frames) Free() int { return int(f.free.Load()) }

// Total returns the pool size.
func (f *Frames) Total() int { return int(f.total) }

type mapping struct {
	base  uint32
	pages int
	data  map[int][]byte
}

func (m *mapping) end() uint64 { return uint64(m.base) + uint64(m.pages)*defs.PageSize }

// AddressSpace is one process's page map.
type AddressSpace struct {
	frames   *Frames
	mappings map[uint32]*mapping
	pages    int
}

// New returns an empty address space drawing from frames.
func New(frames *Frames) *AddressSpace {
	return &AddressSpace{frames: frames, mappings: make(map[uint32]*mapping)}
}

// Pages returns the number of frames the space has reserved.
func (as *AddressSpace) Pages() int { return as.pages }

// Map reserves n zero-filled pages at base.
func (as *AddressSpace) Map(base uint32, n int) error {
	if n <= 0 || base%defs.PageSize != 0 {
		return ErrBadRange
	}
	end := uint64(base) + uint64(n)*defs.PageSize
	if end > defs.AddressSpaceSize {
		return ErrBadRange
	}
	for _, m := range as.mappings {
		if uint64(base) < m.end() && uint64(m.base) < end {
			return ErrOverlap
		}
	}
	if !as.frames.Reserve(n) {
		return ErrNoFrames
	}
	as.mappings[base] = &mapping{base: base, pages: n, data: make(map[int][]byte)}
	as.pages += n
	return nil
}

// Unmap releases the mapping that starts exactly at base.
func (as *AddressSpace) Unmap(base uint32) error {
	m, ok := as.mappings[base]
	if !ok {
		return ErrNotMapped
	}
	delete(as.mappings, base)
	as.pages -= m.pages
	as.frames.Release(m.pages)
	return nil
}

func (as *AddressSpace) find(addr uint32) *mapping {
	for _, m := range as.mappings {
		if addr >= m.base && uint64(addr) < m.end() {
			return m
		}
	}
	return nil
}

// Write copies b into the space at addr. The whole range must be mapped.
func (as *AddressSpace) Write(addr uint32, b []byte) error {
	return as.walk(addr, len(b), func(page []byte, off int, i int, n int) {
		copy(page[off:off+n], b[i:i+n])
	}, true)
}

// Read copies from the space at addr into b.
func (as *AddressSpace) Read(addr uint32, b []byte) error {
	return as.walk(addr, len(b), func(page []byte, off int, i int, n int) {
		if page == nil {
			clear(b[i : i+n])
			return
		}
		copy(b[i:i+n], page[off:off+n])
	}, false)
}

func (as *AddressSpace) walk(addr uint32, length int, fn func(page []byte, off, i, n int), fill bool) error {
	for i := 0; i < length; {
		a := uint64(addr) + uint64(i)
		if a >= 1<<32 {
			return ErrNotMapped
		}
		m := as.find(uint32(a))
		if m == nil {
			return ErrNotMapped
		}
		idx := int((a - uint64(m.base)) / defs.PageSize)
		off := int((a - uint64(m.base)) % defs.PageSize)
		n := defs.PageSize - off
		if n > length-i {
			n = length - i
		}
		page := m.data[idx]
		if page == nil && fill {
			page = make([]byte, defs.PageSize)
			m.data[idx] = page
		}
		fn(page, off, i, n)
		i += n
	}
	return nil
}

// Clone duplicates the space, reserving fresh frames for every page.
func (as *AddressSpace) Clone() (*AddressSpace, error) {
	if !as.frames.Reserve(as.pages) {
		return nil, ErrNoFrames
	}
	c := New(as.frames)
	for base, m := range as.mappings {
		cm := &mapping{base: m.base, pages: m.pages, data: make(map[int][]byte, len(m.data))}
		for idx, page := range m.data {
			cm.data[idx] = append([]byte(nil), page...)
		}
		c.mappings[base] = cm
	}
	c.pages = as.pages
	return c, nil
}

// Destroy drops every mapping. With reclaim the frames go back to the pool;
// without it the reservation is left for the caller to account for.
func (as *AddressSpace) Destroy(reclaim bool) {
	if reclaim && as.pages > 0 {
		as.frames.Release(as.pages)
	}
	as.mappings = make(map[uint32]*mapping)
	as.pages = 0
}

// Bases returns the start of every mapping in ascending order.
func (as *AddressSpace) Bases() []uint32 {
	out := make([]uint32, 0, len(as.mappings))
	for base := range as.mappings {
		out = append(out, base)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
