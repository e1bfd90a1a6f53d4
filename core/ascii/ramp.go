package ascii

import "fmt"

// Ramp is the glyph set used to represent brightness, ordered dark to light.
const Ramp = "@%#*+=-:. "

// Luminance computes perceived brightness from an RGB pixel using the BT.601
// weights. The result stays within [0, 255].
func Luminance(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

// Glyph maps a luminance value in [0, 255] onto the ramp.
func Glyph(luma float64) byte {
	idx := int(luma / 255 * float64(len(Ramp)-1))
	if idx < 0 {
		idx = 0
	} else if idx >= len(Ramp) {
		idx = len(Ramp) - 1
	}
	return Ramp[idx]
}

// Pixel renders one RGB pixel as its ramp glyph. In colored mode the glyph is
// wrapped in a truecolor escape carrying the original channels, followed by a
// reset.
func Pixel(r, g, b uint8, colored bool) string {
	ch := Glyph(Luminance(r, g, b))
	if !colored {
		return string(ch)
	}
	return fmt.Sprintf("\x1b[38;2;%d;%d;%dm%c\x1b[0m", r, g, b, ch)
}
