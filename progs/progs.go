// Package progs holds the user programs the loader ships with.
package progs

import (
	"fmt"
	"strconv"

	"pebbles/kern/core"
	"pebbles/kern/loader"
)

// All lists every program in this package.
func All() []core.Program {
	return []core.Program{
		{Name: "init", Entry: Init},
		{Name: "shell", Entry: Shell, Pages: 2},
		{Name: "hello", Entry: Hello},
		{Name: "forkwait", Entry: ForkWait},
		{Name: "sleeper", Entry: Sleeper},
		{Name: "threads", Entry: Threads},
		{Name: "spin", Entry: Spin},
	}
}

// Register adds every program to r.
func Register(r *loader.Registry) error {
	for _, p := range All() {
		if err := r.Register(p); err != nil {
			return err
		}
	}
	return nil
}

func printf(ctx *core.Context, format string, args ...any) {
	ctx.Print([]byte(fmt.Sprintf(format, args...)))
}

// intArg returns args[i] as an integer, or def when it is missing or
// malformed.
func intArg(args []string, i, def int) int {
	if i >= len(args) {
		return def
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return def
	}
	return n
}
