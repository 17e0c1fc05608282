package appearance

import "humanoidcraft.ai/internal/sim/visual"

// IsHidden reports whether either hidden set holds the layer.
func (a *Appearance) IsHidden(layer visual.Layer) bool {
	return a.HiddenLayers.Has(layer) || a.PermanentlyHidden.Has(layer)
}

// SetLayerVisibility toggles a layer and reports whether any set changed.
//
// Hiding always adds to HiddenLayers, and also to PermanentlyHidden when
// permanent. Showing removes from HiddenLayers, and from PermanentlyHidden
// only when permanent, so a permanently hidden layer survives a temporary
// reveal.
func (a *Appearance) SetLayerVisibility(layer visual.Layer, visible, permanent bool) bool {
	a.normalize()
	dirty := false
	if visible {
		if permanent {
			dirty = remove(a.PermanentlyHidden, layer) || dirty
		}
		dirty = remove(a.HiddenLayers, layer) || dirty
		return dirty
	}
	if permanent {
		dirty = add(a.PermanentlyHidden, layer) || dirty
	}
	dirty = add(a.HiddenLayers, layer) || dirty
	return dirty
}

func (a *Appearance) SetLayersVisibility(layers []visual.Layer, visible, permanent bool) bool {
	dirty := false
	for _, l := range layers {
		dirty = a.SetLayerVisibility(l, visible, permanent) || dirty
	}
	return dirty
}

func add(s LayerSet, l visual.Layer) bool {
	if s[l] {
		return false
	}
	s[l] = true
	return true
}

func remove(s LayerSet, l visual.Layer) bool {
	if !s[l] {
		return false
	}
	delete(s, l)
	return true
}
