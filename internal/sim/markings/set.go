package markings

import (
	"humanoidcraft.ai/internal/sim/palette"
	"humanoidcraft.ai/internal/sim/visual"
)

// Set holds applied markings per category. Order inside a category is
// insertion order; categories are walked in visual.CategoryOrder.
//
// Every mutation is best effort: unknown ids, missing categories, bad indices
// and exhausted budgets are ignored rather than reported.
type Set struct {
	Markings map[visual.Category][]Marking `json:"markings"`
	Points   PointTable                    `json:"points"`
}

func NewSet(points PointTable) *Set {
	return &Set{
		Markings: map[visual.Category][]Marking{},
		Points:   points.clone(),
	}
}

// Rebuild re-adds every marking of src into a fresh set budgeted by points.
// Markings are re-homed under their definition's category; unknown ids drop.
func Rebuild(src *Set, points PointTable, cat Catalog) *Set {
	out := NewSet(points)
	src.ForEach(func(_ visual.Category, m Marking) {
		def, ok := cat.TryGetMarking(m.ID)
		if !ok {
			return
		}
		out.AddBack(def.Category, m.Clone())
	})
	return out
}

// Clone returns a deep copy that shares no slices with s.
func (s *Set) Clone() *Set {
	if s == nil {
		return nil
	}
	out := &Set{
		Markings: make(map[visual.Category][]Marking, len(s.Markings)),
		Points:   s.Points.clone(),
	}
	for c, list := range s.Markings {
		cp := make([]Marking, len(list))
		for i, m := range list {
			cp[i] = m.Clone()
		}
		out.Markings[c] = cp
	}
	return out
}

func (s *Set) ensureMap() {
	if s.Markings == nil {
		s.Markings = map[visual.Category][]Marking{}
	}
}

// budgetLeft reports whether a non-forced marking still fits in c.
func (s *Set) budgetLeft(c visual.Category) bool {
	p, ok := s.Points.Points[c]
	if !ok {
		return true
	}
	used := 0
	for _, m := range s.Markings[c] {
		if !m.Forced {
			used++
		}
	}
	return used < p.Points
}

// AddBack appends m to c unless a non-forced m would exceed the budget.
func (s *Set) AddBack(c visual.Category, m Marking) {
	if !m.Forced && !s.budgetLeft(c) {
		return
	}
	s.ensureMap()
	s.Markings[c] = append(s.Markings[c], m)
}

// Remove drops every marking with the id from c.
func (s *Set) Remove(c visual.Category, id string) {
	list, ok := s.Markings[c]
	if !ok {
		return
	}
	kept := list[:0]
	for _, m := range list {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	s.setCategory(c, kept)
}

func (s *Set) RemoveAt(c visual.Category, index int) {
	list, ok := s.Markings[c]
	if !ok || index < 0 || index >= len(list) {
		return
	}
	kept := append(list[:index:index], list[index+1:]...)
	s.setCategory(c, kept)
}

func (s *Set) setCategory(c visual.Category, list []Marking) {
	if len(list) == 0 {
		delete(s.Markings, c)
		return
	}
	s.Markings[c] = list
}

// Replace substitutes the marking at index, keeping its position.
func (s *Set) Replace(c visual.Category, index int, m Marking) {
	list, ok := s.Markings[c]
	if !ok || index < 0 || index >= len(list) {
		return
	}
	list[index] = m
}

func (s *Set) RemoveCategory(c visual.Category) {
	delete(s.Markings, c)
}

func (s *Set) Clear() {
	s.Markings = map[visual.Category][]Marking{}
}

// TryGetCategory returns the live slice for c.
func (s *Set) TryGetCategory(c visual.Category) ([]Marking, bool) {
	list, ok := s.Markings[c]
	return list, ok && len(list) > 0
}

// At returns a pointer to the marking for in-place color edits.
func (s *Set) At(c visual.Category, index int) (*Marking, bool) {
	list := s.Markings[c]
	if index < 0 || index >= len(list) {
		return nil, false
	}
	return &list[index], true
}

func (s *Set) Count() int {
	n := 0
	for _, list := range s.Markings {
		n += len(list)
	}
	return n
}

func (s *Set) CategoryCount(c visual.Category) int {
	return len(s.Markings[c])
}

// Has reports whether any category holds a marking with the id.
func (s *Set) Has(id string) bool {
	found := false
	s.ForEach(func(_ visual.Category, m Marking) {
		if m.ID == id {
			found = true
		}
	})
	return found
}

// ForEach walks markings in category order, then insertion order. Categories
// outside visual.CategoryOrder are never visited.
func (s *Set) ForEach(fn func(visual.Category, Marking)) {
	if s == nil {
		return
	}
	for _, c := range visual.CategoryOrder {
		for _, m := range s.Markings[c] {
			fn(c, m)
		}
	}
}

func (s *Set) firstColor(c visual.Category) (palette.Color, bool) {
	if s == nil {
		return palette.Color{}, false
	}
	for _, m := range s.Markings[c] {
		if len(m.Colors) > 0 {
			return m.Colors[0], true
		}
	}
	return palette.Color{}, false
}

func (s *Set) filter(keep func(visual.Category, Marking) bool) {
	for c, list := range s.Markings {
		kept := list[:0]
		for _, m := range list {
			if keep(c, m) {
				kept = append(kept, m)
			}
		}
		s.setCategory(c, kept)
	}
}

// EnsureSpecies drops markings the species may not wear: unknown ids,
// markings restricted to another species or sex, and markings whose body
// part the species has no layer for. Survivors on a skin-matched body part, and followSkinColor
// markings, are repainted with the skin color. Missing required defaults are
// appended last.
func (s *Set) EnsureSpecies(species string, sex visual.Sex, skinColor *palette.Color, cat Catalog) {
	table, ok := cat.SpeciesPoints(species)
	if !ok {
		return
	}
	s.filter(func(_ visual.Category, m Marking) bool {
		def, ok := cat.TryGetMarking(m.ID)
		if !ok {
			return false
		}
		if !def.AllowsSpecies(species, table.OnlyWhitelisted) || !def.AllowsSex(sex) {
			return false
		}
		return cat.SpeciesHasLayer(species, def.BodyPart)
	})

	if skinColor != nil {
		for _, list := range s.Markings {
			for i := range list {
				def, _ := cat.TryGetMarking(list[i].ID)
				if def == nil {
					continue
				}
				match, alpha := cat.MustMatchSkin(species, def.BodyPart)
				if !match && !def.FollowSkinColor {
					continue
				}
				list[i].SetAllColors(skinColor.WithAlpha(alpha))
			}
		}
	}

	s.ensureDefault(ColorInputs{Skin: skinColor, Set: s}, cat)
}

// EnsureSexes drops markings restricted to another sex.
func (s *Set) EnsureSexes(sex visual.Sex, cat Catalog) {
	s.filter(func(_ visual.Category, m Marking) bool {
		def, ok := cat.TryGetMarking(m.ID)
		if !ok {
			return true
		}
		return def.AllowsSex(sex)
	})
}

// EnsureDefault fills every empty required category with its default markings
// and collapses duplicated default-flagged markings to their first instance.
func (s *Set) EnsureDefault(skinColor, eyeColor palette.Color, cat Catalog) {
	s.ensureDefault(ColorInputs{Skin: &skinColor, Eye: &eyeColor, Set: s}, cat)
}

func (s *Set) ensureDefault(in ColorInputs, cat Catalog) {
	for _, c := range visual.CategoryOrder {
		p, ok := s.Points.Points[c]
		if !ok || !p.Required || s.CategoryCount(c) > 0 {
			continue
		}
		for _, id := range p.DefaultMarkings {
			def, ok := cat.TryGetMarking(id)
			if !ok {
				continue
			}
			s.AddBack(c, New(id, LayerColors(def, in)))
		}
	}

	seen := map[string]bool{}
	for _, c := range visual.CategoryOrder {
		list, ok := s.Markings[c]
		if !ok {
			continue
		}
		kept := list[:0]
		for _, m := range list {
			if def, ok := cat.TryGetMarking(m.ID); ok && def.Default {
				if seen[m.ID] {
					continue
				}
				seen[m.ID] = true
			}
			kept = append(kept, m)
		}
		s.setCategory(c, kept)
	}
}
