package display

import (
	"fmt"
	"math"
)

// RGB is a 24-bit colour.
type RGB struct {
	R, G, B uint8
}

// Hex formats c as "#rrggbb".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Color maps a deviation in semitones to the display colour: white when in
// tune, pure red at half a semitone flat and pure green at half a semitone
// sharp.
func Color(deviation float64) RGB {
	p := 1 - math.Abs(deviation)*2
	p = math.Max(0, math.Min(1, p))

	r, g, b := 255.0, 255.0, 255.0*p
	if deviation < 0 {
		g *= p
	} else if deviation > 0 {
		r *= p
	}

	return RGB{
		R: uint8(math.Round(r)),
		G: uint8(math.Round(g)),
		B: uint8(math.Round(b)),
	}
}
