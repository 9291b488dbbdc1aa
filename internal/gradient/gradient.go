// Package gradient samples the heatmap color scale.
package gradient

import (
	"fmt"
	"math"
	"strconv"
)

// Color is an RGB triple. Channels are fractional because stops are lerped.
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// CSS renders the color as rgb(r, g, b) with rounded channels.
func (c Color) CSS() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", channel(c.R), channel(c.G), channel(c.B))
}

// Hex renders the color as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", channel(c.R), channel(c.G), channel(c.B))
}

func channel(v float64) int {
	return int(math.Max(0, math.Min(255, math.Round(v))))
}

// Neutral is the shade for cells nobody is available in.
var Neutral = mustHex("#E0E0E0")

type stop struct {
	at    float64
	color Color
}

var ramp = []stop{
	{0, mustHex("#FFFBD6")},
	{0.33, mustHex("#FFDE69")},
	{0.69, mustHex("#FF9636")},
	{0.82, mustHex("#FD7836")},
	{1, mustHex("#F93636")},
}

// Sample returns the shades for 0..n available respondents: index 0 is
// Neutral and 1..n climb the ramp. n <= 1 collapses to Neutral and the top
// stop, so there are always at least two colors.
func Sample(n int) []Color {
	if n <= 1 {
		return []Color{Neutral, ramp[len(ramp)-1].color}
	}
	out := make([]Color, n+1)
	out[0] = Neutral
	for i := 0; i < n; i++ {
		out[i+1] = At(float64(i) / float64(n-1))
	}
	return out
}

// At returns the ramp color at position x in [0, 1].
func At(x float64) Color {
	x = math.Max(0, math.Min(1, x))
	for i := 1; i < len(ramp); i++ {
		lo, hi := ramp[i-1], ramp[i]
		if x < hi.at || i == len(ramp)-1 {
			t := (x - lo.at) / (hi.at - lo.at)
			return Color{
				R: lerp(lo.color.R, hi.color.R, t),
				G: lerp(lo.color.G, hi.color.G, t),
				B: lerp(lo.color.B, hi.color.B, t),
			}
		}
	}
	return ramp[len(ramp)-1].color
}

func lerp(a, b, t float64) float64 {
	return a*(1-t) + b*t
}

// ParseHex reads #rgb or #rrggbb, with or without the leading '#'.
func ParseHex(s string) (Color, error) {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return Color{}, fmt.Errorf("gradient: invalid hex length %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("gradient: invalid hex %q: %w", s, err)
	}
	return Color{R: float64(v >> 16 & 0xff), G: float64(v >> 8 & 0xff), B: float64(v & 0xff)}, nil
}

func mustHex(s string) Color {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}
