package appearance

import (
	"go.uber.org/zap"

	"humanoidcraft.ai/internal/sim/markings"
	"humanoidcraft.ai/internal/sim/palette"
	"humanoidcraft.ai/internal/sim/profile"
	"humanoidcraft.ai/internal/sim/visual"
)

// LoadProfile replaces the appearance with one built from a character
// profile. Markings are applied in a fixed order: freely colored markings,
// then the hair and facial hair styles, then species validation, then
// forced-coloring markings (colored once, here), then required defaults.
// Visibility sets and custom base layers are reset.
func (e *Editor) LoadProfile(a *Appearance, p profile.Profile) {
	p.Normalize(e.cat)
	sp, ok := e.cat.IndexSpecies(p.Species)
	if !ok {
		e.log.Warn("profile species unknown", zap.String("species", p.Species))
		return
	}
	skin, eye := p.Appearance.SkinColor, p.Appearance.EyeColor
	set := markings.NewSet(sp.MarkingPoints)

	type pending struct {
		def *markings.Definition
		m   markings.Marking
	}
	var forced []pending
	for _, m := range p.Appearance.Markings {
		def, ok := e.cat.TryGetMarking(m.ID)
		if !ok {
			e.log.Warn("profile marking unknown", zap.String("marking", m.ID), zap.String("species", p.Species))
			continue
		}
		if def.ForcedColoring {
			forced = append(forced, pending{def: def, m: m})
			continue
		}
		set.AddBack(def.Category, markings.New(m.ID, m.Colors))
	}

	e.addStyle(set, p, p.Appearance.HairStyleID, p.Appearance.HairColor)
	e.addStyle(set, p, p.Appearance.FacialHairStyleID, p.Appearance.FacialHairColor)

	set.EnsureSpecies(p.Species, p.Sex, &skin, e.cat)

	for _, f := range forced {
		// The set was validated before these were added; hold them to the
		// same species, sex and body part rules.
		if !e.cat.CanBeApplied(p.Species, p.Sex, f.m.ID) || !e.cat.SpeciesHasLayer(p.Species, f.def.BodyPart) {
			continue
		}
		colors := markings.LayerColors(f.def, markings.ColorInputs{Skin: &skin, Eye: &eye, Set: set})
		set.AddBack(f.def.Category, markings.New(f.m.ID, colors))
	}

	set.EnsureSexes(p.Sex, e.cat)
	set.EnsureDefault(skin, eye, e.cat)

	a.Species = p.Species
	a.Sex = p.Sex
	a.Gender = p.Gender
	a.Age = p.Age
	a.SkinColor = skin
	a.EyeColor = eye
	a.Markings = set
	a.CustomBaseLayers = map[visual.Layer]CustomBaseLayer{}
	a.HiddenLayers = LayerSet{}
	a.PermanentlyHidden = LayerSet{}
	a.normalize()
}

// addStyle adds a hair or facial hair style. It takes the skin color instead
// of the chosen one when markings on its body part must match skin.
func (e *Editor) addStyle(set *markings.Set, p profile.Profile, id string, color palette.Color) {
	if id == "" {
		return
	}
	def, ok := e.cat.TryGetMarking(id)
	if !ok || !e.cat.CanBeApplied(p.Species, p.Sex, id) {
		return
	}
	if match, alpha := e.cat.MustMatchSkin(p.Species, def.BodyPart); match {
		color = p.Appearance.SkinColor.WithAlpha(alpha)
	}
	m := def.AsMarking()
	m.SetAllColors(color)
	set.AddBack(def.Category, m)
}

// FromProfile builds a fresh appearance from a profile.
func (e *Editor) FromProfile(p profile.Profile) *Appearance {
	a := New()
	e.LoadProfile(a, p)
	return a
}
