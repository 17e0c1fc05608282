package catalogs

import (
	"humanoidcraft.ai/internal/sim/markings"
	"humanoidcraft.ai/internal/sim/visual"
)

var _ markings.Catalog = (*Catalogs)(nil)

func (c *Catalogs) TryGetMarking(id string) (*markings.Definition, bool) {
	d, ok := c.Markings.ByID[id]
	return d, ok
}

// MarkingsByCategory returns the catalog's own map; callers must not mutate it.
func (c *Catalogs) MarkingsByCategory(cat visual.Category) map[string]*markings.Definition {
	if m, ok := c.Markings.ByCategory[cat]; ok {
		return m
	}
	return map[string]*markings.Definition{}
}

// CanBeApplied reports whether a marking may be worn by the species and sex.
// Whether the species has the body part is not checked here.
func (c *Catalogs) CanBeApplied(species string, sex visual.Sex, markingID string) bool {
	sp, ok := c.Species.ByID[species]
	if !ok {
		return false
	}
	d, ok := c.Markings.ByID[markingID]
	if !ok {
		return false
	}
	return d.AllowsSpecies(species, sp.MarkingPoints.OnlyWhitelisted) && d.AllowsSex(sex)
}

func (c *Catalogs) MustMatchSkin(species string, layer visual.Layer) (bool, float64) {
	sl, ok := c.speciesLayer(species, layer)
	if !ok || !sl.MarkingsMatchSkin {
		return false, 1
	}
	return true, sl.LayerAlpha
}

func (c *Catalogs) SpeciesPoints(species string) (markings.PointTable, bool) {
	sp, ok := c.Species.ByID[species]
	if !ok {
		return markings.PointTable{}, false
	}
	return sp.MarkingPoints, true
}

func (c *Catalogs) SpeciesHasLayer(species string, layer visual.Layer) bool {
	set, ok := c.SpriteSet(species)
	if !ok {
		return false
	}
	_, ok = set.Sprites[layer]
	return ok
}

func (c *Catalogs) IndexSpecies(id string) (*SpeciesDef, bool) {
	sp, ok := c.Species.ByID[id]
	return sp, ok
}

// SpriteSet returns the base sprite set of a species.
func (c *Catalogs) SpriteSet(species string) (*SpriteSetDef, bool) {
	sp, ok := c.Species.ByID[species]
	if !ok {
		return nil, false
	}
	set, ok := c.SpriteSets.ByID[sp.SpriteSet]
	return set, ok
}

func (c *Catalogs) SpriteLayer(id string) (*SpriteLayerDef, bool) {
	d, ok := c.SpriteLayers.ByID[id]
	return d, ok
}

// speciesLayer resolves the unsexed sprite layer a species uses for layer.
func (c *Catalogs) speciesLayer(species string, layer visual.Layer) (*SpriteLayerDef, bool) {
	set, ok := c.SpriteSet(species)
	if !ok {
		return nil, false
	}
	id, ok := set.Sprites[layer]
	if !ok {
		return nil, false
	}
	return c.SpriteLayer(id)
}

// Digests summarizes every catalog for handshakes and replay headers.
type Digests struct {
	Species      string `json:"species"`
	SpriteSets   string `json:"sprite_sets"`
	SpriteLayers string `json:"sprite_layers"`
	Markings     string `json:"markings"`
}

func (c *Catalogs) Digests() Digests {
	return Digests{
		Species:      c.Species.Digest,
		SpriteSets:   c.SpriteSets.Digest,
		SpriteLayers: c.SpriteLayers.Digest,
		Markings:     c.Markings.Digest,
	}
}
