package console

import (
	"strings"

	"pebbles/hal"

	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"
)

// PanicScreen clears fb and writes lines to it through a scrolling
// terminal. Long stacks scroll off the top; the last lines stay visible.
func PanicScreen(fb hal.Framebuffer, lines []string) {
	if fb == nil || fb.Format() != hal.PixelFormatRGB565 {
		return
	}
	d := newFBDisplay(fb)
	fb.ClearRGB(0, 0, 0xaa)

	t := tinyterm.NewTerminal(d)
	t.Configure(&tinyterm.Config{
		Font:              &proggy.TinySZ8pt7b,
		FontHeight:        10,
		FontOffset:        8,
		UseSoftwareScroll: true,
	})
	for _, line := range lines {
		line = strings.TrimRight(line, "\n")
		_, _ = t.Write([]byte(line + "\r\n"))
	}
	t.Display()
	_ = fb.Present()
}
