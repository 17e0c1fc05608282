package palette

import (
	"fmt"
	"math"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Color is a straight-alpha RGBA color. It serializes as "#RRGGBB" when opaque
// and "#RRGGBBAA" otherwise.
type Color struct {
	R, G, B, A uint8
}

var (
	White = Color{R: 255, G: 255, B: 255, A: 255}
	Black = Color{A: 255}
)

func RGB(r, g, b uint8) Color { return Color{R: r, G: g, B: b, A: 255} }

// ParseHex accepts "#RGB", "#RRGGBB" and "#RRGGBBAA" (leading '#' optional).
func ParseHex(s string) (Color, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(raw) == 3 {
		raw = string([]byte{raw[0], raw[0], raw[1], raw[1], raw[2], raw[2]})
	}
	var c Color
	switch len(raw) {
	case 6:
		if _, err := fmt.Sscanf(raw, "%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
			return Color{}, fmt.Errorf("color %q: %w", s, err)
		}
		c.A = 255
	case 8:
		if _, err := fmt.Sscanf(raw, "%02x%02x%02x%02x", &c.R, &c.G, &c.B, &c.A); err != nil {
			return Color{}, fmt.Errorf("color %q: %w", s, err)
		}
	default:
		return Color{}, fmt.Errorf("color %q: bad length", s)
	}
	return c, nil
}

func MustHex(s string) Color {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Color) Hex() string {
	if c.A == 255 {
		return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02X%02X%02X%02X", c.R, c.G, c.B, c.A)
}

func (c Color) String() string { return c.Hex() }

// WithAlpha replaces the alpha channel; a is in [0,1].
func (c Color) WithAlpha(a float64) Color {
	c.A = unit8(a)
	return c
}

// Invert flips the color channels and keeps alpha.
func (c Color) Invert() Color {
	return Color{R: 255 - c.R, G: 255 - c.G, B: 255 - c.B, A: c.A}
}

func (c Color) MarshalText() ([]byte, error) { return []byte(c.Hex()), nil }

func (c *Color) UnmarshalText(b []byte) error {
	v, err := ParseHex(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// HSV returns hue in degrees [0,360) and saturation/value in [0,1].
func (c Color) HSV() (h, s, v float64) {
	return c.colorful().Hsv()
}

// FromHSV builds an opaque color from hue degrees and unit saturation/value.
func FromHSV(h, s, v float64) Color {
	r, g, b := colorful.Hsv(h, clamp01(s), clamp01(v)).Clamped().RGB255()
	return RGB(r, g, b)
}

func (c Color) colorful() colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

func unit8(a float64) uint8 {
	return uint8(math.Round(clamp01(a) * 255))
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
