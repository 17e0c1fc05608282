package palette

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// SkinColoration names the rule a species uses to constrain skin colors.
type SkinColoration string

const (
	HumanToned SkinColoration = "HumanToned"
	Hues       SkinColoration = "Hues"
	TintedHues SkinColoration = "TintedHues"
)

const (
	humanHueMin    = 25.0
	humanHueMax    = 45.0
	humanSatMin    = 0.20
	humanValMin    = 0.20
	huesValMin     = 0.175
	tintedSatMax   = 0.10
	tintedValMin   = 0.85
	tattooValScale = 0.25

	// Round-tripping through 8-bit channels moves hue by up to a degree.
	hueSlack  = 1.0
	unitSlack = 0.01
)

func (k SkinColoration) Valid() bool {
	switch k {
	case HumanToned, Hues, TintedHues:
		return true
	}
	return false
}

// HumanSkinTone maps a tone slider in [0,100] onto the human palette:
// 0..20 walks the hue from 45 to 25 degrees, 20..100 darkens.
func HumanSkinTone(tone int) Color {
	if tone < 0 {
		tone = 0
	}
	if tone > 100 {
		tone = 100
	}
	hue, sat, val := humanHueMin, 20.0, 100.0
	offset := float64(tone - 20)
	if offset <= 0 {
		hue += math.Abs(offset)
	} else {
		sat += offset
		val -= offset
	}
	return FromHSV(hue, sat/100, val/100)
}

// VerifySkinColor reports whether c is acceptable under the coloration rule.
func VerifySkinColor(kind SkinColoration, c Color) bool {
	h, s, v := c.HSV()
	switch kind {
	case HumanToned:
		return h >= humanHueMin-hueSlack && h <= humanHueMax+hueSlack &&
			s >= humanSatMin-unitSlack && v >= humanValMin-unitSlack
	case Hues:
		return v >= huesValMin-unitSlack
	case TintedHues:
		return s <= tintedSatMax+unitSlack && v >= tintedValMin-unitSlack
	}
	return true
}

// ValidSkinTone clamps c into the closest color accepted by the rule.
func ValidSkinTone(kind SkinColoration, c Color) Color {
	h, s, v := c.HSV()
	switch kind {
	case HumanToned:
		h = math.Min(math.Max(h, humanHueMin), humanHueMax)
		s = math.Max(s, humanSatMin)
		v = math.Max(v, humanValMin)
	case Hues:
		v = math.Max(v, huesValMin)
	case TintedHues:
		s = math.Min(s, tintedSatMax)
		v = math.Max(v, tintedValMin)
	default:
		return c
	}
	return FromHSV(h, s, v).WithAlpha(float64(c.A) / 255)
}

// Tattoo derives the ink color used by tattoo-style markings: the skin hue,
// heavily darkened and shifted towards blue in Lab space.
func Tattoo(skin Color) Color {
	h, s, v := skin.HSV()
	dark := colorful.Hsv(h, s, v*tattooValScale)
	ink := dark.BlendLab(colorful.Color{R: 0.05, G: 0.08, B: 0.2}, 0.5).Clamped()
	r, g, b := ink.RGB255()
	return RGB(r, g, b)
}
