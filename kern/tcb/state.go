package tcb

// State is the four-valued flag that makes block and wake race-free.
//
// A thread that is about to block may be made runnable before it actually
// switches away; the MadeRunnable state records that wakeup so the block
// returns at once instead of losing it.
type State uint8

const (
	Normal State = iota
	Blocked
	MadeRunnable
	Wakeup
)

func (s State) String() string {
	switch s {
	case Normal:
		return "normal"
	case Blocked:
		return "blocked"
	case MadeRunnable:
		return "made_runnable"
	case Wakeup:
		return "wakeup"
	default:
		return "invalid"
	}
}

// Readiness is the outcome of making a thread runnable.
type Readiness uint8

const (
	// Enqueue means the thread was blocked and must be put on a run queue
	// (or switched to directly).
	Enqueue Readiness = iota + 1

	// Recorded means the thread had not blocked yet; its next block returns
	// immediately.
	Recorded

	// Invalid means the thread was already on its way back to running.
	Invalid
)

// BeginBlock moves the thread towards Blocked. It reports whether the caller
// must switch away; false means a wakeup already arrived and was consumed.
func (t *Thread) BeginBlock() bool {
	switch t.state {
	case Normal:
		t.state = Blocked
		return true
	case MadeRunnable:
		t.state = Normal
		return false
	default:
		panic("tcb: block from state " + t.state.String())
	}
}

// Ready applies a make-runnable, resume or reply delivery to the thread.
func (t *Thread) Ready() Readiness {
	switch t.state {
	case Blocked:
		t.state = Wakeup
		return Enqueue
	case Normal:
		t.state = MadeRunnable
		return Recorded
	default:
		return Invalid
	}
}

// Resumed completes a wakeup once the thread has been chosen to run.
func (t *Thread) Resumed() {
	if t.state == Wakeup {
		t.state = Normal
	}
}

// State returns the thread's scheduling flag.
func (t *Thread) State() State { return t.state }

// ForceBlocked marks a dying thread as switched out for good.
func (t *Thread) ForceBlocked() { t.state = Blocked }
