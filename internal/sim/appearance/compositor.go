package appearance

import (
	"go.uber.org/zap"

	"humanoidcraft.ai/internal/sim/markings"
	"humanoidcraft.ai/internal/sim/palette"
	"humanoidcraft.ai/internal/sim/render"
	"humanoidcraft.ai/internal/sim/visual"
)

// Compositor turns an Appearance into an ordered render layer list.
type Compositor struct {
	cat      Catalog
	resolver *Resolver
	log      *zap.Logger
}

func NewCompositor(cat Catalog, log *zap.Logger) *Compositor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Compositor{cat: cat, resolver: NewResolver(cat), log: log}
}

func (c *Compositor) Resolver() *Resolver { return c.resolver }

// Recompute runs one compositing pass against the appearance's render stack
// and returns a copy of the result. Running it twice on unchanged state yields
// the same list.
func (c *Compositor) Recompute(a *Appearance) render.LayerList {
	a.normalize()
	sink := a.stack()
	c.updateBaseLayers(a, sink)
	c.applyMarkingSet(a, sink)
	return sink.Layers()
}

func (c *Compositor) updateBaseLayers(a *Appearance, sink render.Sink) {
	stale := make(map[visual.Layer]bool, len(a.BaseLayers))
	for l := range a.BaseLayers {
		stale[l] = true
	}
	a.BaseLayers = map[visual.Layer]BaseLayer{}

	resolved := c.resolver.ResolveBaseLayers(a.Species, a.Sex)
	speciesIDs := make(map[visual.Layer]string, len(resolved))
	for _, rl := range resolved {
		speciesIDs[rl.Layer] = rl.ID
		delete(stale, rl.Layer)
		if _, custom := a.CustomBaseLayers[rl.Layer]; custom {
			continue
		}
		c.setLayerData(a, sink, rl.Layer, rl.ID, nil, false)
	}

	// Custom layers are applied verbatim; no sex-morph.
	for _, l := range visual.RenderOrder {
		info, ok := a.CustomBaseLayers[l]
		if !ok {
			continue
		}
		delete(stale, l)
		id := info.ID
		if id == "" {
			id = speciesIDs[l]
		}
		c.setLayerData(a, sink, l, id, info.Color, true)
	}

	// Layers left over from a previous species or sex are hidden in place.
	for l := range stale {
		if layer, ok := sink.Get(string(l)); ok {
			layer.Visible = false
			sink.Set(layer)
		}
	}
}

func (c *Compositor) setLayerData(a *Appearance, sink render.Sink, key visual.Layer, id string, color *palette.Color, custom bool) {
	sink.Reserve(string(key))
	layer, _ := sink.Get(string(key))
	layer.Visible = !a.IsHidden(key)

	if id != "" {
		def, ok := c.cat.SpriteLayer(id)
		if !ok {
			c.log.Warn("unknown sprite layer",
				zap.String("layer", string(key)),
				zap.String("sprite_layer", id),
				zap.String("species", a.Species),
			)
		} else {
			a.BaseLayers[key] = BaseLayer{ID: id, Custom: custom, Sprite: *def}
			layer.RSI, layer.State = def.RSI, def.State
		}
	}

	base, hasBase := a.BaseLayers[key]
	switch {
	case key == visual.Eyes:
		layer.Color = a.EyeColor
	case color != nil:
		layer.Color = *color
	case hasBase && base.Sprite.MatchSkin:
		layer.Color = a.SkinColor.WithAlpha(base.Sprite.LayerAlpha)
	case hasBase && base.Sprite.Color != nil:
		layer.Color = *base.Sprite.Color
	default:
		layer.Color = palette.White
	}
	sink.Set(layer)
}

// applyMarkingSet drops every marking layer of the previous pass and re-adds
// the current set. Stale layers are found by diffing against the set rendered
// last time.
func (c *Compositor) applyMarkingSet(a *Appearance, sink render.Sink) {
	c.removeMarkingLayers(a.rendered, sink)
	c.removeMarkingLayers(a.Markings, sink)

	a.Markings.ForEach(func(_ visual.Category, m markings.Marking) {
		def, ok := c.cat.TryGetMarking(m.ID)
		if !ok {
			c.log.Warn("unknown marking",
				zap.String("marking", m.ID),
				zap.String("species", a.Species),
			)
			return
		}
		c.applyMarking(a, sink, def, m)
	})
	a.rendered = a.Markings.Clone()
}

func (c *Compositor) removeMarkingLayers(set *markings.Set, sink render.Sink) {
	set.ForEach(func(_ visual.Category, m markings.Marking) {
		def, ok := c.cat.TryGetMarking(m.ID)
		if !ok {
			return
		}
		for _, s := range def.Sprites {
			sink.Remove(markings.LayerKey(m.ID, s))
		}
	})
}

func (c *Compositor) applyMarking(a *Appearance, sink render.Sink, def *markings.Definition, m markings.Marking) {
	target, ok := sink.Index(string(def.BodyPart))
	if !ok {
		return
	}
	base, hasBase := a.BaseLayers[def.BodyPart]
	visible := m.Visible && !a.IsHidden(def.BodyPart) && hasBase && base.Sprite.AllowsMarkings

	for j, s := range def.Sprites {
		sink.Insert(target+1+j, render.Layer{
			Key:     markings.LayerKey(def.ID, s),
			RSI:     s.RSI,
			State:   s.State,
			Color:   m.ColorAt(j),
			Visible: visible,
		})
	}
}
