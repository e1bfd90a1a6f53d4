package ascii

import (
	"fmt"
	"math"
	"strings"
)

// cellAspect corrects for terminal glyph cells being taller than wide.
const cellAspect = 0.55

// RasterError reports a frame whose geometry cannot be rendered.
type RasterError struct {
	Width  int
	Height int
}

func (e *RasterError) Error() string {
	return fmt.Sprintf("cannot rasterize frame with geometry %dx%d", e.Width, e.Height)
}

// Rasterizer renders raw RGB frames into fixed-width text frames.
type Rasterizer struct {
	width   int
	colored bool
}

// NewRasterizer creates a Rasterizer targeting the given character width.
func NewRasterizer(width int, colored bool) *Rasterizer {
	return &Rasterizer{width: width, colored: colored}
}

// Width returns the target character width.
func (rz *Rasterizer) Width() int {
	return rz.width
}

// Rows returns the number of text rows produced for a source frame of the
// given pixel geometry. The row count preserves the source aspect ratio,
// corrected for the glyph cell aspect, and is never below 1.
func (rz *Rasterizer) Rows(w, h int) int {
	rows := int(math.Round(float64(rz.width) * float64(h) / float64(w) * cellAspect))
	if rows < 1 {
		rows = 1
	}
	return rows
}

// Frame renders one packed RGB24 frame (row-major, 3 bytes per pixel) into a
// text frame of Rows(w, h) lines, each exactly the target width in glyphs.
// Downsampling uses nearest-neighbor resampling, which keeps output
// deterministic across platforms. Rows are joined by newlines with no
// trailing newline.
func (rz *Rasterizer) Frame(pix []byte, w, h int) (string, error) {
	if w <= 0 || h <= 0 || rz.width <= 0 {
		return "", &RasterError{Width: w, Height: h}
	}
	if len(pix) < w*h*3 {
		return "", fmt.Errorf("short frame buffer: have %d bytes, need %d", len(pix), w*h*3)
	}

	rows := rz.Rows(w, h)

	var b strings.Builder
	b.Grow(rows * (rz.width + 1))
	for y := 0; y < rows; y++ {
		if y > 0 {
			b.WriteByte('\n')
		}
		sy := y * h / rows
		for x := 0; x < rz.width; x++ {
			sx := x * w / rz.width
			off := (sy*w + sx) * 3
			b.WriteString(Pixel(pix[off], pix[off+1], pix[off+2], rz.colored))
		}
	}
	return b.String(), nil
}
