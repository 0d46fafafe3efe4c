package weeks

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Gradient endpoints and fixed tone for week label colors.
const (
	StartHue   = 200.0 // light blue
	EndHue     = 270.0 // purple
	Saturation = 0.65
	Lightness  = 0.55

	// MinWeek and MaxWeek bound the gradient input.
	MinWeek = 1
	MaxWeek = 52
)

// ColorFunc maps an ISO week number to a 6-digit lowercase hex color.
type ColorFunc func(week int) string

// ClampWeek clamps week into [MinWeek, MaxWeek].
func ClampWeek(week int) int {
	if week < MinWeek {
		return MinWeek
	}
	if week > MaxWeek {
		return MaxWeek
	}
	return week
}

// WeekHue returns the interpolated hue in degrees for week.
func WeekHue(week int) float64 {
	week = ClampWeek(week)
	return StartHue + (EndHue-StartHue)*(float64(week-1)/float64(MaxWeek-MinWeek))
}

// WeekColor returns the gradient color for week. Out-of-range weeks are
// clamped. The result only depends on the week number, so the same week in
// different years gets the same color.
func WeekColor(week int) string {
	r, g, b := HSLToRGB(WeekHue(week), Saturation, Lightness)
	return fmt.Sprintf("%02x%02x%02x", toByte(r), toByte(g), toByte(b))
}

// RandomColor returns a random color and ignores week. Sequences generated
// with it are not repeatable.
func RandomColor(_ int) string {
	return fmt.Sprintf("%02x%02x%02x", rand.IntN(256), rand.IntN(256), rand.IntN(256))
}

// HSLToRGB converts hue (degrees), saturation and lightness (0..1) to RGB
// components in 0..1 using the sector formula.
func HSLToRGB(h, s, l float64) (float64, float64, float64) {
	c := (1 - math.Abs(2*l-1)) * s
	hPrime := h / 60
	x := c * (1 - math.Abs(math.Mod(hPrime, 2)-1))

	var r1, g1, b1 float64
	switch int(hPrime) {
	case 0:
		r1, g1, b1 = c, x, 0
	case 1:
		r1, g1, b1 = x, c, 0
	case 2:
		r1, g1, b1 = 0, c, x
	case 3:
		r1, g1, b1 = 0, x, c
	case 4:
		r1, g1, b1 = x, 0, c
	case 5, 6:
		r1, g1, b1 = c, 0, x
	}

	m := l - c/2
	return r1 + m, g1 + m, b1 + m
}

func toByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v * 255)
}
