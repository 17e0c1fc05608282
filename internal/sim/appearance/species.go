package appearance

import (
	"humanoidcraft.ai/internal/sim/visual"
)

// ResolvedLayer is one species base layer after sex-morphing.
type ResolvedLayer struct {
	Layer    visual.Layer `json:"layer"`
	ID       string       `json:"id"`
	SexMorph bool         `json:"sex_morph,omitempty"`
}

// Resolver maps a species and sex to its base sprite layers.
type Resolver struct {
	cat SpeciesCatalog
}

func NewResolver(cat SpeciesCatalog) *Resolver {
	return &Resolver{cat: cat}
}

// ResolveBaseLayers returns the species' base layers in render order. It is a
// pure function of its arguments and the catalog. Unknown species resolve to
// nothing.
func (r *Resolver) ResolveBaseLayers(species string, sex visual.Sex) []ResolvedLayer {
	set, ok := r.cat.SpriteSet(species)
	if !ok {
		return nil
	}
	out := make([]ResolvedLayer, 0, len(set.Sprites))
	for _, layer := range visual.RenderOrder {
		id, ok := set.Sprites[layer]
		if !ok {
			continue
		}
		morphed := r.SexMorph(layer, sex, id)
		out = append(out, ResolvedLayer{Layer: layer, ID: morphed, SexMorph: morphed != id})
	}
	return out
}

// SexMorph applies visual.GetSexMorph and falls back to id when the catalog
// has no sprite layer registered under the morphed id.
func (r *Resolver) SexMorph(layer visual.Layer, sex visual.Sex, id string) string {
	morphed := visual.GetSexMorph(layer, sex, id)
	if morphed == id {
		return id
	}
	if _, ok := r.cat.SpriteLayer(morphed); !ok {
		return id
	}
	return morphed
}
