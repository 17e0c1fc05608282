package markings

import (
	"humanoidcraft.ai/internal/sim/palette"
	"humanoidcraft.ai/internal/sim/visual"
)

type ColoringKind string

const (
	ColorSkin     ColoringKind = "skin"
	ColorEye      ColoringKind = "eye"
	ColorSimple   ColoringKind = "simple"
	ColorCategory ColoringKind = "category"
	ColorTattoo   ColoringKind = "tattoo"
)

// LayerColoring derives one sprite layer's color from the wearer.
type LayerColoring struct {
	Kind     ColoringKind    `json:"type,omitempty"`
	Color    *palette.Color  `json:"color,omitempty"`
	Category visual.Category `json:"category,omitempty"`
	Fallback *palette.Color  `json:"fallback,omitempty"`
	Negative bool            `json:"negative,omitempty"`
}

// Coloring is a definition's coloring rule: a default plus per-state overrides.
type Coloring struct {
	Default LayerColoring            `json:"default"`
	Layers  map[string]LayerColoring `json:"layers,omitempty"`
}

// ColorInputs are the wearer properties coloring rules may read. Nil colors
// make the rule fall back.
type ColorInputs struct {
	Skin *palette.Color
	Eye  *palette.Color
	Set  *Set
}

func (lc LayerColoring) Resolve(in ColorInputs) palette.Color {
	var (
		c  palette.Color
		ok bool
	)
	switch lc.Kind {
	case ColorSkin:
		if in.Skin != nil {
			c, ok = *in.Skin, true
		}
	case ColorEye:
		if in.Eye != nil {
			c, ok = *in.Eye, true
		}
	case ColorSimple:
		if lc.Color != nil {
			c, ok = *lc.Color, true
		}
	case ColorCategory:
		c, ok = in.Set.firstColor(lc.Category)
	case ColorTattoo:
		if in.Skin != nil {
			c, ok = palette.Tattoo(*in.Skin), true
		}
	}
	if !ok {
		c = palette.White
		if lc.Fallback != nil {
			c = *lc.Fallback
		}
	}
	if lc.Negative {
		c = c.Invert()
	}
	return c
}

// LayerColors computes the colors a forced-coloring marking is created with.
// This runs once when the marking is applied; compositing never re-derives.
// Layers without a rule keep the definition's default color.
func LayerColors(def *Definition, in ColorInputs) []palette.Color {
	out := def.AsMarking().Colors
	for i, s := range def.Sprites {
		rule := def.Coloring.Default
		if lc, ok := def.Coloring.Layers[s.State]; ok {
			rule = lc
		}
		if rule.Kind == "" {
			continue
		}
		out[i] = rule.Resolve(in)
	}
	return out
}
