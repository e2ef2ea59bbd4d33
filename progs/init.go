package progs

import (
	"pebbles/kern/core"
	"pebbles/kern/defs"
)

// Init becomes the orphan reaper, starts the shell and reaps everything
// until the shell exits.
func Init(ctx *core.Context) int {
	if r := ctx.SetInit(); r < 0 {
		printf(ctx, "init: set_init: %v\n", defs.Code(r))
	}
	shell := ctx.Fork(func(ctx *core.Context) int {
		r := ctx.Exec("shell", nil)
		printf(ctx, "init: exec shell: %v\n", defs.Code(r))
		return r
	})
	if shell < 0 {
		printf(ctx, "init: fork: %v\n", defs.Code(shell))
		return shell
	}
	for {
		var status int
		pid := ctx.Wait(&status)
		if pid < 0 {
			return 0
		}
		if pid == shell {
			printf(ctx, "init: shell exited with status %d\n", status)
			return status
		}
	}
}
