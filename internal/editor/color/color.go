// Package color holds the RGBA colors used by cursors and selections.
package color

import (
	"fmt"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// RGBA is a color with channels in 0..1.
type RGBA struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}

func New(r, g, b, a float64) RGBA {
	return RGBA{R: clamp01(r), G: clamp01(g), B: clamp01(b), A: clamp01(a)}
}

var (
	Green = New(0, 1, 0, 1)
	White = New(1, 1, 1, 1)
)

func (c RGBA) Colorful() colorful.Color { return colorful.Color{R: c.R, G: c.G, B: c.B} }

// Hex returns #rrggbbaa.
func (c RGBA) Hex() string {
	return fmt.Sprintf("%s%02x", c.Colorful().Clamped().Hex(), uint8(c.A*255+0.5))
}

func (c RGBA) String() string { return c.Hex() }

// WithAlpha returns c with its alpha replaced.
func (c RGBA) WithAlpha(a float64) RGBA {
	c.A = clamp01(a)
	return c
}

// ParseHex accepts #rgb, #rrggbb and #rrggbbaa.
func ParseHex(s string) (RGBA, error) {
	s = strings.TrimSpace(s)
	alpha := 1.0
	if len(s) == 9 && strings.HasPrefix(s, "#") {
		a, err := strconv.ParseUint(s[7:], 16, 8)
		if err != nil {
			return RGBA{}, fmt.Errorf("color %q: bad alpha: %w", s, err)
		}
		alpha = float64(a) / 255
		s = s[:7]
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return RGBA{}, fmt.Errorf("color %q: %w", s, err)
	}
	return New(c.R, c.G, c.B, alpha), nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
