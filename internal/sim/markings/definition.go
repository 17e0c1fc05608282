package markings

import (
	"humanoidcraft.ai/internal/sim/palette"
	"humanoidcraft.ai/internal/sim/visual"
)

// Sprite references one state inside an RSI bundle.
type Sprite struct {
	RSI   string `json:"rsi"`
	State string `json:"state"`
}

// Definition is the immutable, catalog-owned description of a marking.
type Definition struct {
	ID                  string          `json:"id"`
	Category            visual.Category `json:"category"`
	BodyPart            visual.Layer    `json:"body_part"`
	Sprites             []Sprite        `json:"sprites"`
	DefaultColors       []palette.Color `json:"default_colors,omitempty"`
	ForcedColoring      bool            `json:"forced_coloring,omitempty"`
	FollowSkinColor     bool            `json:"follow_skin_color,omitempty"`
	Coloring            Coloring        `json:"coloring,omitempty"`
	SpeciesRestrictions []string        `json:"species_restriction,omitempty"`
	SexRestriction      visual.Sex      `json:"sex_restriction,omitempty"`
	Default             bool            `json:"default,omitempty"`
}

// LayerKey is the render layer id of one marking sprite.
func LayerKey(markingID string, s Sprite) string {
	return markingID + "-" + s.State
}

// AsMarking builds a visible marking carrying the definition's default colors,
// white where none are given.
func (d *Definition) AsMarking() Marking {
	colors := make([]palette.Color, len(d.Sprites))
	for i := range colors {
		if i < len(d.DefaultColors) {
			colors[i] = d.DefaultColors[i]
		} else {
			colors[i] = palette.White
		}
	}
	return Marking{ID: d.ID, Colors: colors, Visible: true}
}

// AllowsSpecies reports whether the definition may be worn by the species.
// Whitelist-only species reject unrestricted markings.
func (d *Definition) AllowsSpecies(species string, onlyWhitelisted bool) bool {
	if d.SpeciesRestrictions == nil {
		return !onlyWhitelisted
	}
	for _, s := range d.SpeciesRestrictions {
		if s == species {
			return true
		}
	}
	return false
}

func (d *Definition) AllowsSex(sex visual.Sex) bool {
	return d.SexRestriction == "" || d.SexRestriction == sex
}

// Points is one category's budget inside a species point table.
type Points struct {
	Points          int      `json:"points"`
	Required        bool     `json:"required,omitempty"`
	DefaultMarkings []string `json:"default_markings,omitempty"`
}

// PointTable is the per-species marking budget.
type PointTable struct {
	OnlyWhitelisted bool                       `json:"only_whitelisted,omitempty"`
	Points          map[visual.Category]Points `json:"points"`
}

func (t PointTable) clone() PointTable {
	out := PointTable{OnlyWhitelisted: t.OnlyWhitelisted}
	if t.Points == nil {
		return out
	}
	out.Points = make(map[visual.Category]Points, len(t.Points))
	for k, v := range t.Points {
		v.DefaultMarkings = append([]string(nil), v.DefaultMarkings...)
		out.Points[k] = v
	}
	return out
}

// Catalog is the read side of the marking registry.
type Catalog interface {
	TryGetMarking(id string) (*Definition, bool)
	MarkingsByCategory(c visual.Category) map[string]*Definition
	CanBeApplied(species string, sex visual.Sex, markingID string) bool
	// MustMatchSkin reports whether markings on the species' layer must take
	// the skin color, and at which alpha. The alpha is 1 when they need not.
	MustMatchSkin(species string, layer visual.Layer) (bool, float64)
	SpeciesPoints(species string) (PointTable, bool)
	SpeciesHasLayer(species string, layer visual.Layer) bool
}
