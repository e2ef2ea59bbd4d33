package console

import (
	"image/color"

	"pebbles/hal"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

// palette is the classic 16-colour text mode palette. The low nibble of an
// attribute selects the foreground, bits 4-6 the background.
var palette = [16]color.RGBA{
	{0x00, 0x00, 0x00, 0xff}, {0x00, 0x00, 0xaa, 0xff}, {0x00, 0xaa, 0x00, 0xff}, {0x00, 0xaa, 0xaa, 0xff},
	{0xaa, 0x00, 0x00, 0xff}, {0xaa, 0x00, 0xaa, 0xff}, {0xaa, 0x55, 0x00, 0xff}, {0xaa, 0xaa, 0xaa, 0xff},
	{0x55, 0x55, 0x55, 0xff}, {0x55, 0x55, 0xff, 0xff}, {0x55, 0xff, 0x55, 0xff}, {0x55, 0xff, 0xff, 0xff},
	{0xff, 0x55, 0x55, 0xff}, {0xff, 0x55, 0xff, 0xff}, {0xff, 0xff, 0x55, 0xff}, {0xff, 0xff, 0xff, 0xff},
}

func colors(attr uint8) (fg, bg color.RGBA) {
	return palette[attr&0x0f], palette[(attr>>4)&0x07]
}

// Renderer draws a Console onto a framebuffer.
type Renderer struct {
	d drivers.Displayer
	f *fbDisplay

	font       tinyfont.Fonter
	fontWidth  int16
	fontHeight int16
	fontOffset int16

	gen  uint64
	drew bool
	snap []Cell
}

// NewRenderer returns a renderer for fb, or nil when fb is not RGB565.
func NewRenderer(fb hal.Framebuffer) *Renderer {
	if fb == nil || fb.Format() != hal.PixelFormatRGB565 {
		return nil
	}
	d := newFBDisplay(fb)
	r := &Renderer{
		d:          d,
		f:          d,
		font:       &proggy.TinySZ8pt7b,
		fontHeight: 10,
		fontOffset: 8,
	}
	_, w := tinyfont.LineWidth(r.font, "0")
	r.fontWidth = int16(w)
	if r.fontWidth <= 0 {
		r.fontWidth = 6
	}
	return r
}

// Render redraws con when it changed since the last call. It reports whether
// it drew.
func (r *Renderer) Render(con *Console) bool {
	gen := con.Generation()
	if r.drew && gen == r.gen {
		return false
	}
	r.gen, r.drew = gen, true
	r.snap = con.Snapshot(r.snap)
	rows, cols := con.Size()
	crow, ccol := con.Cursor()

	w, h := r.d.Size()
	_ = r.f.FillRectangle(0, 0, w, h, palette[0])
	for row := 0; row < rows; row++ {
		y := int16(row) * r.fontHeight
		if y+r.fontHeight > h {
			break
		}
		for col := 0; col < cols; col++ {
			x := int16(col) * r.fontWidth
			if x+r.fontWidth > w {
				break
			}
			cell := r.snap[row*cols+col]
			fg, bg := colors(cell.Color)
			if bg != palette[0] {
				_ = r.f.FillRectangle(x, y, r.fontWidth, r.fontHeight, bg)
			}
			if cell.Ch > ' ' {
				tinyfont.DrawChar(r.d, r.font, x, y+r.fontOffset, rune(cell.Ch), fg)
			}
			if row == crow && col == ccol {
				_ = r.f.FillRectangle(x, y+r.fontHeight-1, r.fontWidth, 1, fg)
			}
		}
	}
	_ = r.d.Display()
	return true
}
