package app

import (
	"fmt"
	"strings"

	"pebbles/hal"
	"pebbles/kern/console"
	"pebbles/kern/core"
)

func installPanicHandler(h hal.HAL) {
	core.SetPanicHandler(func(info core.PanicInfo) {
		lines := panicLines(info)
		if l := h.Logger(); l != nil {
			for _, line := range lines {
				l.WriteLineString(line)
			}
		}

		disp := h.Display()
		if disp == nil {
			return
		}
		console.PanicScreen(disp.Framebuffer(), lines)
	})
}

func panicLines(info core.PanicInfo) []string {
	lines := []string{
		"pebbles panic:",
		fmt.Sprintf("core: %d tid: %d", info.Core, info.TID),
		fmt.Sprintf("panic: %v", info.Value),
	}
	if len(info.Stack) == 0 {
		return append(lines, "stack: unavailable")
	}
	lines = append(lines, "stack:")
	for _, line := range strings.Split(string(info.Stack), "\n") {
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
