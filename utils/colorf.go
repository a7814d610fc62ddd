package utils

import (
	"fmt"
)

// ColorFloat is an RGBA color with float components in [0,1], the form
// glTF materials carry their factors in. Implements image/color.Color.
type ColorFloat [4]float32

func (c *ColorFloat) RGBA() (r, g, b, a uint32) {
	const mf = float32(256*256 - 1)
	r = uint32(c[0] * mf)
	g = uint32(c[1] * mf)
	b = uint32(c[2] * mf)
	a = uint32(c[3] * mf)
	return
}

// Hex renders the color as #rrggbbaa for viewer summaries.
func (c *ColorFloat) Hex() string {
	var b [4]uint8
	for i, v := range c {
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		b[i] = uint8(v*255 + 0.5)
	}
	return fmt.Sprintf("#%.2x%.2x%.2x%.2x", b[0], b[1], b[2], b[3])
}

func NewColorFloatA(c []float32) ColorFloat {
	return ColorFloat{c[0], c[1], c[2], c[3]}
}

func NewColorFloat(c []float32) ColorFloat {
	return ColorFloat{c[0], c[1], c[2], 1.0}
}

// White is the neutral base color factor.
func White() ColorFloat {
	return ColorFloat{1, 1, 1, 1}
}
