package appearance

import (
	"go.uber.org/zap"

	"humanoidcraft.ai/internal/sim/markings"
	"humanoidcraft.ai/internal/sim/palette"
	"humanoidcraft.ai/internal/sim/visual"
)

// Editor applies mutations to appearances. Every mutation is best effort:
// unknown ids, bad indices and exhausted budgets leave the appearance as it
// was. Callers recomposite afterwards.
type Editor struct {
	cat      Catalog
	resolver *Resolver
	log      *zap.Logger
}

func NewEditor(cat Catalog, log *zap.Logger) *Editor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Editor{cat: cat, resolver: NewResolver(cat), log: log}
}

// SetSpecies switches species and revalidates the marking set against the new
// species' restrictions and point budgets. Unknown species are ignored.
func (e *Editor) SetSpecies(a *Appearance, species string) {
	a.normalize()
	points, ok := e.cat.SpeciesPoints(species)
	if !ok {
		e.log.Warn("unknown species", zap.String("species", species))
		return
	}
	a.Species = species
	// Strip what the species cannot wear before re-budgeting, so invalid
	// markings never take a slot.
	set := a.Markings.Clone()
	set.Points = points
	set.EnsureSpecies(species, a.Sex, &a.SkinColor, e.cat)
	a.Markings = markings.Rebuild(set, points, e.cat)
}

// SetSex changes sex and strips markings restricted to the other one. Gender
// is left alone.
func (e *Editor) SetSex(a *Appearance, sex visual.Sex) {
	a.normalize()
	if a.Sex == sex || !sex.Valid() {
		return
	}
	a.Sex = sex
	a.Markings.EnsureSexes(sex, e.cat)
}

// SetSkinColor sets the skin color. With verify, colors outside the species'
// coloration are moved onto it first. Custom base layers with an explicit
// color keep it.
func (e *Editor) SetSkinColor(a *Appearance, c palette.Color, verify bool) {
	sp, ok := e.cat.IndexSpecies(a.Species)
	if !ok {
		return
	}
	if verify && !palette.VerifySkinColor(sp.SkinColoration, c) {
		c = palette.ValidSkinTone(sp.SkinColoration, c)
	}
	a.SkinColor = c
}

func (e *Editor) SetEyeColor(a *Appearance, c palette.Color) {
	a.EyeColor = c
}

// SetBaseLayerID overrides the sprite of one base layer, keeping any color
// override already set.
func (e *Editor) SetBaseLayerID(a *Appearance, layer visual.Layer, id string) {
	if !layer.Valid() {
		return
	}
	a.normalize()
	info := a.CustomBaseLayers[layer]
	info.ID = id
	a.CustomBaseLayers[layer] = info
}

// SetBaseLayerColor overrides the color of one base layer. A nil color keeps
// the override entry but lets the computed color through.
func (e *Editor) SetBaseLayerColor(a *Appearance, layer visual.Layer, c *palette.Color) {
	if !layer.Valid() {
		return
	}
	a.normalize()
	info := a.CustomBaseLayers[layer]
	if c != nil {
		col := *c
		c = &col
	}
	info.Color = c
	a.CustomBaseLayers[layer] = info
}

func (e *Editor) ClearBaseLayer(a *Appearance, layer visual.Layer) {
	delete(a.CustomBaseLayers, layer)
}

// AddMarking adds a marking with its default colors, painting every layer
// with color when given. Forced-coloring markings ignore color and take the
// colors their rules derive from the current appearance.
func (e *Editor) AddMarking(a *Appearance, id string, color *palette.Color, forced bool) {
	def, ok := e.cat.TryGetMarking(id)
	if !ok {
		return
	}
	a.normalize()
	m := def.AsMarking()
	switch {
	case def.ForcedColoring:
		m.Colors = e.forcedColors(a, def)
	case color != nil:
		m.SetAllColors(*color)
	}
	m.Forced = forced
	a.Markings.AddBack(def.Category, m)
}

func (e *Editor) AddMarkingColors(a *Appearance, id string, colors []palette.Color, forced bool) {
	def, ok := e.cat.TryGetMarking(id)
	if !ok {
		return
	}
	a.normalize()
	if def.ForcedColoring {
		colors = e.forcedColors(a, def)
	}
	m := markings.New(id, colors)
	m.Forced = forced
	a.Markings.AddBack(def.Category, m)
}

func (e *Editor) forcedColors(a *Appearance, def *markings.Definition) []palette.Color {
	return markings.LayerColors(def, markings.ColorInputs{Skin: &a.SkinColor, Eye: &a.EyeColor, Set: a.Markings})
}

// RemoveMarking removes every instance of a marking.
func (e *Editor) RemoveMarking(a *Appearance, id string) {
	def, ok := e.cat.TryGetMarking(id)
	if !ok {
		return
	}
	a.normalize()
	a.Markings.Remove(def.Category, id)
}

func (e *Editor) RemoveMarkingAt(a *Appearance, c visual.Category, index int) {
	a.normalize()
	a.Markings.RemoveAt(c, index)
}

// SetMarkingID swaps the marking at index for another of the same category,
// carrying colors over element-wise. Extra layers keep the new marking's
// defaults.
func (e *Editor) SetMarkingID(a *Appearance, c visual.Category, index int, id string) {
	def, ok := e.cat.MarkingsByCategory(c)[id]
	if !ok {
		return
	}
	a.normalize()
	old, ok := a.Markings.At(c, index)
	if !ok {
		return
	}
	m := def.AsMarking()
	m.Forced = old.Forced
	for i := 0; i < len(m.Colors) && i < len(old.Colors); i++ {
		m.SetColor(i, old.Colors[i])
	}
	a.Markings.Replace(c, index, m)
}

// SetMarkingColor overwrites colors of the marking at index, up to the shorter
// of the two lists.
func (e *Editor) SetMarkingColor(a *Appearance, c visual.Category, index int, colors []palette.Color) {
	a.normalize()
	m, ok := a.Markings.At(c, index)
	if !ok {
		return
	}
	for i := 0; i < len(m.Colors) && i < len(colors); i++ {
		m.SetColor(i, colors[i])
	}
}

// SetMarkingSet replaces the whole marking set with a copy of set.
func (e *Editor) SetMarkingSet(a *Appearance, set *markings.Set) {
	if set == nil {
		return
	}
	a.Markings = set.Clone()
}

// EnsureDefaultMarkings adds any required default markings that are missing.
func (e *Editor) EnsureDefaultMarkings(a *Appearance) {
	a.normalize()
	a.Markings.EnsureDefault(a.SkinColor, a.EyeColor, e.cat)
}

// CopyFrom copies src's appearance onto dst. Visibility sets stay with dst.
func (e *Editor) CopyFrom(dst, src *Appearance) {
	src.normalize()
	dst.normalize()
	dst.Species = src.Species
	dst.SkinColor = src.SkinColor
	dst.EyeColor = src.EyeColor
	dst.Age = src.Age
	e.SetSex(dst, src.Sex)
	dst.CustomBaseLayers = cloneCustom(src.CustomBaseLayers)
	dst.Markings = src.Markings.Clone()
	dst.Gender = src.Gender
}

// SeverBodyPart permanently hides a body part and everything attached to it.
func (e *Editor) SeverBodyPart(a *Appearance, part visual.Layer) bool {
	layers := visual.Sublayers(part)
	if len(layers) == 0 {
		return false
	}
	return a.SetLayersVisibility(layers, false, true)
}
