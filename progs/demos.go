package progs

import (
	"strings"
	"sync/atomic"

	"pebbles/kern/core"
	"pebbles/kern/defs"
)

// Hello prints its pid and arguments.
func Hello(ctx *core.Context) int {
	args := ctx.Args()
	printf(ctx, "Hello from pid %d: %s\n", ctx.GetPID(), strings.Join(args[1:], " "))
	return 0
}

// ForkWait forks n children (default 10) that exit with their index and
// reaps them all.
func ForkWait(ctx *core.Context) int {
	n := intArg(ctx.Args(), 1, 10)
	for i := 0; i < n; i++ {
		status := i
		if pid := ctx.Fork(func(*core.Context) int { return status }); pid < 0 {
			printf(ctx, "forkwait: fork %d: %v\n", i, defs.Code(pid))
			n = i
			break
		}
	}
	sum := 0
	for {
		var status int
		if ctx.Wait(&status) < 0 {
			break
		}
		sum += status
	}
	printf(ctx, "forkwait: %d children, status sum %d\n", n, sum)
	return 0
}

// Sleeper sleeps for the given number of ticks (default 100).
func Sleeper(ctx *core.Context) int {
	n := intArg(ctx.Args(), 1, 100)
	start := ctx.GetTicks()
	if r := ctx.Sleep(n); r < 0 {
		printf(ctx, "sleeper: %v\n", defs.Code(r))
		return r
	}
	printf(ctx, "sleeper: slept %d ticks\n", ctx.GetTicks()-start)
	return 0
}

// Threads starts n threads (default 4). The last one to run wakes the
// main thread, which sleeps in deschedule until then.
func Threads(ctx *core.Context) int {
	n := intArg(ctx.Args(), 1, 4)
	if n <= 0 {
		return defs.EINVAL.Ret()
	}
	var done atomic.Int32
	var finished atomic.Bool
	wake := 0
	main := ctx.GetTID()
	for i := 0; i < n; i++ {
		id := i
		tid := ctx.ThreadFork(func(ctx *core.Context) int {
			printf(ctx, "threads: %d is tid %d\n", id, ctx.GetTID())
			if done.Add(1) < int32(n) {
				return 0
			}
			wake = 1
			for ctx.MakeRunnable(main) < 0 && !finished.Load() {
				ctx.Yield(defs.AnyThread)
			}
			return 0
		})
		if tid < 0 {
			printf(ctx, "threads: thread_fork: %v\n", defs.Code(tid))
			finished.Store(true)
			return tid
		}
	}
	for done.Load() < int32(n) {
		ctx.Deschedule(&wake)
	}
	finished.Store(true)
	printf(ctx, "threads: %d threads ran\n", n)
	return 0
}

// Spin burns CPU for n ticks (default 50) without blocking, so only timer
// preemption lets other threads on its core run.
func Spin(ctx *core.Context) int {
	n := intArg(ctx.Args(), 1, 50)
	start := ctx.GetTicks()
	loops := 0
	for ctx.GetTicks()-start < n {
		loops++
		ctx.Preempt()
	}
	printf(ctx, "spin: %d loops in %d ticks\n", loops, n)
	return 0
}
