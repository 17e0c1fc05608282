package appearance

import (
	"encoding/json"
	"sort"

	"humanoidcraft.ai/internal/sim/catalogs"
	"humanoidcraft.ai/internal/sim/markings"
	"humanoidcraft.ai/internal/sim/palette"
	"humanoidcraft.ai/internal/sim/render"
	"humanoidcraft.ai/internal/sim/visual"
)

// SpeciesCatalog is the species side of the catalogs.
type SpeciesCatalog interface {
	IndexSpecies(id string) (*catalogs.SpeciesDef, bool)
	SpriteSet(species string) (*catalogs.SpriteSetDef, bool)
	SpriteLayer(id string) (*catalogs.SpriteLayerDef, bool)
}

// Catalog is everything the compositor and editor read.
type Catalog interface {
	markings.Catalog
	SpeciesCatalog
}

// CustomBaseLayer overrides one base layer. An empty ID keeps the species
// sprite; a nil Color keeps the computed color.
type CustomBaseLayer struct {
	ID    string         `json:"id,omitempty"`
	Color *palette.Color `json:"color,omitempty"`
}

// BaseLayer is a base layer resolved during the last compositing pass.
type BaseLayer struct {
	ID     string                  `json:"id"`
	Custom bool                    `json:"custom,omitempty"`
	Sprite catalogs.SpriteLayerDef `json:"sprite"`
}

// LayerSet is a set of base layers. It encodes as a sorted JSON array.
type LayerSet map[visual.Layer]bool

func (s LayerSet) Has(l visual.Layer) bool { return s[l] }

func (s LayerSet) Sorted() []visual.Layer {
	out := make([]visual.Layer, 0, len(s))
	for l, ok := range s {
		if ok {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return visual.RenderIndex(out[i]) < visual.RenderIndex(out[j]) })
	return out
}

func (s LayerSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *LayerSet) UnmarshalJSON(b []byte) error {
	var list []visual.Layer
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}
	*s = make(LayerSet, len(list))
	for _, l := range list {
		(*s)[l] = true
	}
	return nil
}

func (s LayerSet) clone() LayerSet {
	out := make(LayerSet, len(s))
	for l, ok := range s {
		if ok {
			out[l] = true
		}
	}
	return out
}

// Appearance is the full visual state of one humanoid. It is owned by a single
// goroutine; nothing here locks.
type Appearance struct {
	Species   string        `json:"species"`
	Sex       visual.Sex    `json:"sex"`
	Gender    visual.Gender `json:"gender"`
	Age       int           `json:"age"`
	SkinColor palette.Color `json:"skin_color"`
	EyeColor  palette.Color `json:"eye_color"`

	Markings         *markings.Set                    `json:"markings"`
	CustomBaseLayers map[visual.Layer]CustomBaseLayer `json:"custom_base_layers,omitempty"`

	HiddenLayers      LayerSet `json:"hidden_layers"`
	PermanentlyHidden LayerSet `json:"permanently_hidden"`

	// BaseLayers is rebuilt by every compositing pass.
	BaseLayers map[visual.Layer]BaseLayer `json:"-"`

	sink     *render.Stack
	rendered *markings.Set
}

func New() *Appearance {
	return &Appearance{
		Sex:               visual.Male,
		Gender:            visual.Masculine,
		SkinColor:         palette.HumanSkinTone(20),
		EyeColor:          palette.Black,
		Markings:          markings.NewSet(markings.PointTable{}),
		CustomBaseLayers:  map[visual.Layer]CustomBaseLayer{},
		HiddenLayers:      LayerSet{},
		PermanentlyHidden: LayerSet{},
		BaseLayers:        map[visual.Layer]BaseLayer{},
	}
}

// Clone deep-copies the authoritative state. Render state is not copied; the
// clone composites from scratch.
func (a *Appearance) Clone() *Appearance {
	out := *a
	out.Markings = a.Markings.Clone()
	out.CustomBaseLayers = cloneCustom(a.CustomBaseLayers)
	out.HiddenLayers = a.HiddenLayers.clone()
	out.PermanentlyHidden = a.PermanentlyHidden.clone()
	out.BaseLayers = map[visual.Layer]BaseLayer{}
	out.sink = nil
	out.rendered = nil
	out.normalize()
	return &out
}

func cloneCustom(in map[visual.Layer]CustomBaseLayer) map[visual.Layer]CustomBaseLayer {
	out := make(map[visual.Layer]CustomBaseLayer, len(in))
	for l, c := range in {
		if c.Color != nil {
			col := *c.Color
			c.Color = &col
		}
		out[l] = c
	}
	return out
}

// normalize fills nil containers, e.g. after decoding a snapshot.
func (a *Appearance) normalize() {
	if a.Markings == nil {
		a.Markings = markings.NewSet(markings.PointTable{})
	}
	if a.CustomBaseLayers == nil {
		a.CustomBaseLayers = map[visual.Layer]CustomBaseLayer{}
	}
	if a.HiddenLayers == nil {
		a.HiddenLayers = LayerSet{}
	}
	if a.PermanentlyHidden == nil {
		a.PermanentlyHidden = LayerSet{}
	}
	if a.BaseLayers == nil {
		a.BaseLayers = map[visual.Layer]BaseLayer{}
	}
}

// stack returns the render stack, seeding every known base layer slot so base
// layers keep fixed positions regardless of mutation history.
func (a *Appearance) stack() *render.Stack {
	if a.sink == nil {
		keys := make([]string, len(visual.RenderOrder))
		for i, l := range visual.RenderOrder {
			keys[i] = string(l)
		}
		a.sink = render.NewStackWith(keys...)
	}
	return a.sink
}

// Layers returns the output of the last compositing pass.
func (a *Appearance) Layers() render.LayerList {
	if a.sink == nil {
		return nil
	}
	return a.sink.Layers()
}
