package categories

import (
	"fmt"
	"math"
)

const goldenAngle = 137.50776405003785

// GeneratePalette returns n distinct hex colours. The same n and seed always produce the same palette.
func GeneratePalette(n int, seed int64) []string {
	if n <= 0 {
		return []string{}
	}
	start := float64(((seed % 360) + 360) % 360)
	colors := make([]string, n)
	for i := range colors {
		hue := math.Mod(start+float64(i)*goldenAngle, 360)
		// alternate lightness so neighbouring hues stay distinguishable
		light := 0.5
		if i%2 == 1 {
			light = 0.4
		}
		colors[i] = hslToHex(hue, 0.65, light)
	}
	return colors
}

func hslToHex(h, s, l float64) string {
	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return fmt.Sprintf("#%02x%02x%02x", channel(r+m), channel(g+m), channel(b+m))
}

func channel(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}
