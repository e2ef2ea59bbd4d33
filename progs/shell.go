package progs

import (
	"sort"
	"strings"

	"github.com/google/shlex"

	"pebbles/internal/buildinfo"
	"pebbles/kern/core"
	"pebbles/kern/defs"
	"pebbles/kern/proto"
)

const prompt = "pebbles$ "

type command struct {
	Usage string
	Desc  string
	Run   func(ctx *core.Context, args []string) int
}

var builtins map[string]command

func init() {
	builtins = map[string]command{
		"help":    {Usage: "help", Desc: "list builtins", Run: cmdHelp},
		"exit":    {Usage: "exit [status]", Desc: "leave the shell"},
		"ticks":   {Usage: "ticks", Desc: "print timer ticks since boot", Run: cmdTicks},
		"color":   {Usage: "color <attr>", Desc: "set the console colour attribute", Run: cmdColor},
		"cursor":  {Usage: "cursor [row col]", Desc: "print or move the console cursor", Run: cmdCursor},
		"version": {Usage: "version", Desc: "print the kernel build", Run: cmdVersion},
	}
}

// Shell reads command lines and runs each as a child process. A trailing
// "&" leaves the child running in the background.
func Shell(ctx *core.Context) int {
	buf := make([]byte, proto.MaxMessageBytes)
	for {
		printf(ctx, prompt)
		n := ctx.Readline(buf)
		if n < 0 {
			return n
		}
		args, err := shlex.Split(string(buf[:n]))
		if err != nil {
			printf(ctx, "shell: %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" {
			return intArg(args, 1, 0)
		}
		if cmd, ok := builtins[args[0]]; ok {
			if r := cmd.Run(ctx, args[1:]); r < 0 {
				printf(ctx, "%s: %v\n", args[0], defs.Code(r))
			}
			continue
		}
		background := false
		if last := len(args) - 1; args[last] == "&" {
			background = true
			args = args[:last]
			if len(args) == 0 {
				continue
			}
		}
		run(ctx, args, background)
	}
}

func run(ctx *core.Context, args []string, background bool) {
	pid := ctx.Fork(func(ctx *core.Context) int {
		r := ctx.Exec(args[0], args[1:])
		printf(ctx, "%s: %v\n", args[0], defs.Code(r))
		return r
	})
	if pid < 0 {
		printf(ctx, "shell: fork: %v\n", defs.Code(pid))
		return
	}
	if background {
		printf(ctx, "[%d]\n", pid)
		return
	}
	for {
		var status int
		w := ctx.Wait(&status)
		if w < 0 {
			return
		}
		if w != pid {
			printf(ctx, "[%d] done, status %d\n", w, status)
			continue
		}
		if status != 0 {
			printf(ctx, "%s: exit status %d\n", args[0], status)
		}
		return
	}
}

func cmdHelp(ctx *core.Context, _ []string) int {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		cmd := builtins[name]
		b.WriteString("  " + cmd.Usage + strings.Repeat(" ", max(1, 18-len(cmd.Usage))) + cmd.Desc + "\n")
	}
	b.WriteString("anything else runs as a program\n")
	return ctx.Print([]byte(b.String()))
}

func cmdVersion(ctx *core.Context, _ []string) int {
	printf(ctx, "%s\n", buildinfo.String())
	return 0
}

func cmdTicks(ctx *core.Context, _ []string) int {
	printf(ctx, "%d\n", ctx.GetTicks())
	return 0
}

func cmdColor(ctx *core.Context, args []string) int {
	if len(args) != 1 {
		return defs.EINVAL.Ret()
	}
	return ctx.SetTermColor(intArg(args, 0, -1))
}

func cmdCursor(ctx *core.Context, args []string) int {
	switch len(args) {
	case 0:
		var row, col int
		if r := ctx.GetCursorPos(&row, &col); r < 0 {
			return r
		}
		printf(ctx, "%d %d\n", row, col)
		return 0
	case 2:
		return ctx.SetCursorPos(intArg(args, 0, -1), intArg(args, 1, -1))
	default:
		return defs.EINVAL.Ret()
	}
}
