package tcb

import (
	"errors"
	"testing"

	"pebbles/kern/defs"
	"pebbles/kern/list"
	"pebbles/kern/vm"
)

type fakeSched struct {
	depth int
	warns int
}

func (f *fakeSched) DisableInterrupts()   { f.depth++ }
func (f *fakeSched) EnableInterrupts()    { f.depth-- }
func (f *fakeSched) Self() list.Elem      { return nil }
func (f *fakeSched) Block()               { panic("fakeSched: block") }
func (f *fakeSched) Wake(list.Elem)       {}
func (f *fakeSched) Yield()               {}
func (f *fakeSched) Warnf(string, ...any) { f.warns++ }

func newStore(cpu, n int, ids *IDSource) (*Store, *fakeSched) {
	s := &fakeSched{}
	return NewStore(cpu, n, ids, s), s
}

func TestCreateProcessPidIsFirstTid(t *testing.T) {
	var ids IDSource
	st, s := newStore(1, 4, &ids)

	p, th, err := st.CreateProcess(0, vm.New(vm.NewFrames(1)))
	if err != nil {
		t.Fatalf("CreateProcess() error = %v", err)
	}
	if p.PID != th.TID {
		t.Fatalf("pid = %d, want tid %d", p.PID, th.TID)
	}
	if th.Proc() != p || p.Live() != 1 {
		t.Fatalf("thread not registered: proc=%p live=%d", th.Proc(), p.Live())
	}
	if th.Core != 1 || p.Core != 1 {
		t.Fatalf("core = %d/%d, want 1", th.Core, p.Core)
	}
	if s.depth != 0 {
		t.Fatalf("interrupt depth = %d after store calls, want 0", s.depth)
	}
}

func TestLookupByStack(t *testing.T) {
	var ids IDSource
	st0, _ := newStore(0, 3, &ids)
	st1, _ := newStore(1, 3, &ids)

	a, _ := st1.CreateThread(nil)
	b, _ := st1.CreateThread(nil)
	c, _ := st0.CreateThread(nil)

	tests := []struct {
		name string
		st   *Store
		addr uintptr
		want *Thread
	}{
		{"base", st1, a.Stack.Base, a},
		{"top", st1, a.Stack.Top() - 1, a},
		{"sp", st1, b.SP(), b},
		{"next slot", st1, a.Stack.Top(), b},
		{"free slot", st1, b.Stack.Top(), nil},
		{"past arena", st1, st1.base + 3*defs.StackSize, nil},
		{"below arena", st1, st1.base - 1, nil},
		{"other core", st0, c.SP(), c},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.st.LookupByStack(tt.addr); got != tt.want {
				t.Fatalf("LookupByStack(%#x) = %v, want %v", tt.addr, got, tt.want)
			}
		})
	}

	if a.Stack.Contains(c.SP()) || c.Stack.Contains(a.SP()) {
		t.Fatal("arenas of different cores overlap")
	}
}

func TestStackExhaustionAndIDsNeverReused(t *testing.T) {
	var ids IDSource
	st, _ := newStore(2, 2, &ids)

	a, _ := st.CreateThread(nil)
	b, _ := st.CreateThread(nil)
	if _, err := st.CreateThread(nil); !errors.Is(err, ErrNoStack) {
		t.Fatalf("CreateThread() on full arena = %v, want ErrNoStack", err)
	}

	slot := a.Stack
	st.FreeThread(a)
	if st.Lookup(a.TID) != nil {
		t.Fatal("freed thread still found by tid")
	}
	c, err := st.CreateThread(nil)
	if err != nil {
		t.Fatalf("CreateThread() after free = %v", err)
	}
	if c.Stack != slot {
		t.Fatalf("freed slot not reused: got %#x, want %#x", c.Stack.Base, slot.Base)
	}
	if c.TID <= b.TID {
		t.Fatalf("tid %d reused or not monotonic (last %d)", c.TID, b.TID)
	}
	if st.LookupByStack(c.SP()) != c {
		t.Fatal("LookupByStack does not find the new owner of a reused slot")
	}
}

func TestLiveThreadAccounting(t *testing.T) {
	var ids IDSource
	st, _ := newStore(1, 8, &ids)
	p, first, _ := st.CreateProcess(0, nil)

	var threads []*Thread
	threads = append(threads, first)
	for i := 0; i < 4; i++ {
		th, err := st.CreateThread(p)
		if err != nil {
			t.Fatal(err)
		}
		threads = append(threads, th)
	}

	placeholder := st.NewPlaceholder()
	pointing := func() int {
		n := 0
		st.Each(func(th *Thread) {
			if th.Proc() == p {
				n++
			}
		})
		return n
	}

	for i, th := range threads {
		last := p.Deregister(th)
		th.Detach(placeholder)
		if last != (i == len(threads)-1) {
			t.Fatalf("Deregister #%d last = %v", i, last)
		}
		if p.Live() != pointing() {
			t.Fatalf("live = %d, threads pointing at process = %d", p.Live(), pointing())
		}
		if i%2 == 0 {
			st.FreeThread(th)
		}
	}
	st.FreeProcess(p)
}

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		name  string
		from  State
		event func(*Thread) any
		want  any
		to    State
	}{
		{"block normal", Normal, func(t *Thread) any { return t.BeginBlock() }, true, Blocked},
		{"block made runnable", MadeRunnable, func(t *Thread) any { return t.BeginBlock() }, false, Normal},
		{"ready blocked", Blocked, func(t *Thread) any { return t.Ready() }, Enqueue, Wakeup},
		{"ready normal", Normal, func(t *Thread) any { return t.Ready() }, Recorded, MadeRunnable},
		{"ready made runnable", MadeRunnable, func(t *Thread) any { return t.Ready() }, Invalid, MadeRunnable},
		{"ready wakeup", Wakeup, func(t *Thread) any { return t.Ready() }, Invalid, Wakeup},
		{"resumed wakeup", Wakeup, func(t *Thread) any { t.Resumed(); return nil }, nil, Normal},
		{"resumed normal", Normal, func(t *Thread) any { t.Resumed(); return nil }, nil, Normal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := &Thread{state: tt.from}
			if got := tt.event(th); got != tt.want {
				t.Fatalf("result = %v, want %v", got, tt.want)
			}
			if th.State() != tt.to {
				t.Fatalf("state = %s, want %s", th.State(), tt.to)
			}
		})
	}
}

func TestBlockFromWakeupPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic blocking a thread in wakeup state")
		}
	}()
	th := &Thread{state: Wakeup}
	th.BeginBlock()
}

func TestRegionSpan(t *testing.T) {
	p := &Process{}
	if got := p.RegionSpan(0, 0); got != nil {
		t.Fatalf("empty span = %v", got)
	}
	got := p.RegionSpan(defs.RegionSpan-defs.PageSize, 2*defs.PageSize)
	if len(got) != 2 || got[0] != &p.Regions[0] || got[1] != &p.Regions[1] {
		t.Fatalf("span across boundary = %v", got)
	}
	if got := p.RegionSpan(0, defs.AddressSpaceSize); len(got) != defs.NumRegions {
		t.Fatalf("whole address space covers %d regions, want %d", len(got), defs.NumRegions)
	}
	if p.Region(0xFFFF_F000) != &p.Regions[defs.NumRegions-1] {
		t.Fatal("top page not in last region")
	}
}

func TestUnparkBeforePark(t *testing.T) {
	var ids IDSource
	st, _ := newStore(1, 1, &ids)
	th, _ := st.CreateThread(nil)

	th.Unpark()
	halt := make(chan struct{})
	if !th.Park(halt) {
		t.Fatal("Park() = false after early Unpark")
	}
	close(halt)
	if th.Park(halt) {
		t.Fatal("Park() = true after halt")
	}
}
