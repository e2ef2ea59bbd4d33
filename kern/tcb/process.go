package tcb

import (
	"sort"

	"pebbles/kern/defs"
	"pebbles/kern/klock"
	"pebbles/kern/vm"
)

// Process is a process control block. All of its threads live on Core.
type Process struct {
	PID  int
	PPID int
	Core int

	AS   *vm.AddressSpace
	Args []string

	// Status is reported to the parent when the last thread vanishes.
	// StatusSet records that set_status chose it; it then outranks the
	// value an entry function returns.
	Status    int
	StatusSet bool

	// Regions guard address-space mutations, one lock per RegionSpan bytes.
	Regions [defs.NumRegions]klock.Mutex

	live    int
	threads map[int]*Thread
}

// Register makes t one of p's live threads.
func (p *Process) Register(t *Thread) {
	if p.threads == nil {
		p.threads = make(map[int]*Thread)
	}
	if _, ok := p.threads[t.TID]; ok {
		panic("tcb: thread registered twice")
	}
	p.threads[t.TID] = t
	t.proc = p
	p.live++
}

// Deregister removes t from p and reports whether it was the last live
// thread.
func (p *Process) Deregister(t *Thread) bool {
	if _, ok := p.threads[t.TID]; !ok {
		panic("tcb: deregister of foreign thread")
	}
	delete(p.threads, t.TID)
	p.live--
	return p.live == 0
}

// Live returns the number of registered threads.
func (p *Process) Live() int { return p.live }

// TIDs returns the registered thread ids in ascending order.
func (p *Process) TIDs() []int {
	out := make([]int, 0, len(p.threads))
	for tid := range p.threads {
		out = append(out, tid)
	}
	sort.Ints(out)
	return out
}

// Region returns the sub-lock guarding addr.
func (p *Process) Region(addr uint32) *klock.Mutex {
	return &p.Regions[uint64(addr)/defs.RegionSpan%defs.NumRegions]
}

// RegionSpan returns the sub-locks covering [addr, addr+n) in ascending
// order, which is the order they must be taken in.
func (p *Process) RegionSpan(addr uint32, n uint64) []*klock.Mutex {
	if n == 0 {
		return nil
	}
	first := uint64(addr) / defs.RegionSpan
	last := (uint64(addr) + n - 1) / defs.RegionSpan
	if last >= defs.NumRegions {
		last = defs.NumRegions - 1
	}
	out := make([]*klock.Mutex, 0, last-first+1)
	for i := first; i <= last; i++ {
		out = append(out, &p.Regions[i])
	}
	return out
}
