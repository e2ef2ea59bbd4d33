// Package kern assembles the cores into a machine: core 0 runs the manager,
// every other core is a worker running user threads. The first process,
// init, starts on core 1.
package kern

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"pebbles/hal"
	"pebbles/kern/console"
	"pebbles/kern/core"
	"pebbles/kern/defs"
	"pebbles/kern/manager"
	"pebbles/kern/mbox"
	"pebbles/kern/tcb"
	"pebbles/kern/vm"
)

// Config sizes a machine.
type Config struct {
	// Cores counts every core, the manager included. At least 2.
	Cores int
	// StackSlots is the number of thread control blocks per core.
	StackSlots int
	// Frames is the machine-wide physical frame pool.
	Frames int
	// Hz is the tick rate used when no clock is passed to Run.
	Hz int
	// Ticks stops the machine after that many ticks; 0 runs until init
	// exits.
	Ticks uint64

	// Init names the first program and Args its arguments.
	Init string
	Args []string

	Rows, Cols int

	Log hal.Logger
}

// DefaultConfig returns a four-core machine booting "init".
func DefaultConfig() Config {
	return Config{
		Cores:      4,
		StackSlots: 64,
		Frames:     4096,
		Hz:         100,
		Init:       "init",
		Rows:       console.DefaultRows,
		Cols:       console.DefaultCols,
	}
}

var (
	ErrConfig = errors.New("kern: invalid config")
	ErrNoInit = errors.New("kern: init program not found")
)

// Machine is a booted set of cores.
type Machine struct {
	cfg Config
	env *core.Env

	cores []*core.Core
	mgr   *manager.Manager
	con   *console.Console
	init  *tcb.Process

	ticks atomic.Uint64

	halt     chan struct{}
	haltOnce sync.Once
	errMu    sync.Mutex
	err      error
}

// New builds a machine and boots it up to the point where the first context
// switch would happen: cores, links, the manager thread and init exist, but
// nothing runs until Run.
func New(cfg Config, progs core.Programs) (*Machine, error) {
	if cfg.Cores < 2 || cfg.Cores > defs.MaxCores {
		return nil, fmt.Errorf("%w: %d cores", ErrConfig, cfg.Cores)
	}
	if cfg.StackSlots <= 0 || cfg.Frames <= 0 {
		return nil, fmt.Errorf("%w: slots=%d frames=%d", ErrConfig, cfg.StackSlots, cfg.Frames)
	}
	prog, ok := progs.Lookup(cfg.Init)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoInit, cfg.Init)
	}

	m := &Machine{
		cfg:  cfg,
		halt: make(chan struct{}),
		con:  console.New(cfg.Rows, cfg.Cols),
	}
	m.env = &core.Env{
		IDs:      &tcb.IDSource{},
		Frames:   vm.NewFrames(cfg.Frames),
		Programs: progs,
		Log:      cfg.Log,
		Halt:     m.halt,
		Ticks:    m.ticks.Load,
		Fatal:    m.fail,
	}
	if cfg.Log != nil {
		m.con.SetSink(cfg.Log)
	}

	mbell := mbox.NewDoorbell()
	m.cores = append(m.cores, core.New(0, cfg.StackSlots, m.env, nil, mbell))
	links := make(map[int]*mbox.Pair, cfg.Cores-1)
	workers := make([]int, 0, cfg.Cores-1)
	for id := 1; id < cfg.Cores; id++ {
		bell := mbox.NewDoorbell()
		links[id] = mbox.NewPair(mbell, bell)
		workers = append(workers, id)
		m.cores = append(m.cores, core.New(id, cfg.StackSlots, m.env, links[id], bell))
	}

	m.mgr = manager.New(m.cores[0], links, workers, m.con, m.Halt)
	if _, err := m.cores[0].SpawnKernel(m.mgr.Run); err != nil {
		return nil, fmt.Errorf("kern: manager thread: %w", err)
	}

	p, err := m.cores[1].Spawn(prog, cfg.Args)
	if err != nil {
		return nil, fmt.Errorf("kern: boot %s: %w", cfg.Init, err)
	}
	m.init = p
	m.mgr.Adopt(p.PID, 0)
	return m, nil
}

// Core returns core id.
func (m *Machine) Core(id int) *core.Core { return m.cores[id] }

// Cores returns the number of cores.
func (m *Machine) Cores() int { return len(m.cores) }

// Manager returns the manager.
func (m *Machine) Manager() *manager.Manager { return m.mgr }

// Console returns the console.
func (m *Machine) Console() *console.Console { return m.con }

// Init returns the first process.
func (m *Machine) Init() *tcb.Process { return m.init }

// Ticks returns the global tick count.
func (m *Machine) Ticks() uint64 { return m.ticks.Load() }

// Tick advances global time by one tick and raises the timer on every
// worker.
func (m *Machine) Tick() {
	m.ticks.Add(1)
	for _, c := range m.cores[1:] {
		c.RaiseTimer()
	}
}

// Key hands a keyboard byte to the manager.
func (m *Machine) Key(b byte) bool { return m.mgr.Key(b) }

// Halt stops the machine. Parked threads exit; Run returns.
func (m *Machine) Halt() {
	m.haltOnce.Do(func() { close(m.halt) })
}

// Halted returns a channel closed once the machine stops.
func (m *Machine) Halted() <-chan struct{} { return m.halt }

// Err returns the error that stopped the machine, if any.
func (m *Machine) Err() error {
	m.errMu.Lock()
	defer m.errMu.Unlock()
	return m.err
}

func (m *Machine) fail(err error) {
	m.errMu.Lock()
	if m.err == nil {
		m.err = err
	}
	m.errMu.Unlock()
	m.Halt()
}

// Start gives every core to its idle thread. Threads queued at boot begin
// running.
func (m *Machine) Start() error {
	for _, c := range m.cores {
		if err := c.Start(); err != nil {
			return err
		}
	}
	return nil
}

// Run starts the machine and drives it until init exits, ctx is done, the
// tick limit is reached or a kernel panic stops it. Ticks come from clock
// when it is non-nil, otherwise from an internal ticker at Config.Hz. Key
// events from kbd, when non-nil, feed the console.
func (m *Machine) Run(ctx context.Context, clock hal.Time, kbd hal.Keyboard) error {
	if err := m.Start(); err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		select {
		case <-m.halt:
			return m.Err()
		case <-ctx.Done():
			m.Halt()
			return ctx.Err()
		}
	})

	g.Go(func() error {
		ticks, stop := m.tickSource(clock)
		defer stop()
		for {
			select {
			case <-m.halt:
				return nil
			case <-ticks:
				m.Tick()
				if m.cfg.Ticks > 0 && m.Ticks() >= m.cfg.Ticks {
					m.Halt()
					return nil
				}
			}
		}
	})

	if kbd != nil {
		g.Go(func() error {
			events := kbd.Events()
			for {
				select {
				case <-m.halt:
					return nil
				case ev, ok := <-events:
					if !ok {
						return nil
					}
					if b, ok := keyByte(ev); ok {
						m.Key(b)
					}
				}
			}
		})
	}

	err := g.Wait()
	if err == nil {
		err = m.Err()
	}
	return err
}

func (m *Machine) tickSource(clock hal.Time) (<-chan uint64, func()) {
	if clock != nil {
		return clock.Ticks(), func() {}
	}
	hz := m.cfg.Hz
	if hz <= 0 {
		hz = 100
	}
	t := time.NewTicker(time.Second / time.Duration(hz))
	ch := make(chan uint64)
	done := make(chan struct{})
	go func() {
		var n uint64
		for {
			select {
			case <-done:
				return
			case <-t.C:
				n++
				select {
				case ch <- n:
				case <-done:
					return
				}
			}
		}
	}()
	return ch, func() {
		t.Stop()
		close(done)
	}
}

func keyByte(ev hal.KeyEvent) (byte, bool) {
	if !ev.Press {
		return 0, false
	}
	switch ev.Code {
	case hal.KeyEnter:
		return '\n', true
	case hal.KeyBackspace:
		return '\b', true
	case hal.KeyTab:
		return ' ', true
	}
	if ev.Rune > 0 && ev.Rune < 0x80 {
		return byte(ev.Rune), true
	}
	return 0, false
}
