package catalogs

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"humanoidcraft.ai/internal/sim/markings"
	"humanoidcraft.ai/internal/sim/palette"
	"humanoidcraft.ai/internal/sim/visual"
)

type Catalogs struct {
	Species      SpeciesCatalog
	SpriteSets   SpriteSetCatalog
	SpriteLayers SpriteLayerCatalog
	Markings     MarkingCatalog
}

type SpeciesCatalog struct {
	IDs    []string
	ByID   map[string]*SpeciesDef
	Digest string
}

type SpeciesDef struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	SpriteSet        string                 `json:"sprite_set"`
	SkinColoration   palette.SkinColoration `json:"skin_coloration"`
	DefaultSkinColor palette.Color          `json:"default_skin_color"`
	YoungAge         int                    `json:"young_age"`
	OldAge           int                    `json:"old_age"`
	MinAge           int                    `json:"min_age"`
	MaxAge           int                    `json:"max_age"`
	MarkingPoints    markings.PointTable    `json:"marking_points"`
}

type SpriteSetCatalog struct {
	ByID   map[string]*SpriteSetDef
	Digest string
}

// SpriteSetDef maps a species' base layers to sprite layer ids. Dimorphic
// layers name the unsexed id; the sexed variant is derived at resolve time.
type SpriteSetDef struct {
	ID      string                  `json:"id"`
	Sprites map[visual.Layer]string `json:"sprites"`
}

type SpriteLayerCatalog struct {
	ByID   map[string]*SpriteLayerDef
	Digest string
}

type SpriteLayerDef struct {
	ID                string         `json:"id"`
	RSI               string         `json:"rsi,omitempty"`
	State             string         `json:"state,omitempty"`
	MatchSkin         bool           `json:"match_skin"`
	LayerAlpha        float64        `json:"layer_alpha"`
	AllowsMarkings    bool           `json:"allows_markings"`
	MarkingsMatchSkin bool           `json:"markings_match_skin"`
	Color             *palette.Color `json:"color,omitempty"`
}

// rawSpriteLayer carries the defaulted fields as pointers so omitted keys can
// be told apart from explicit false/0.
type rawSpriteLayer struct {
	ID                string         `json:"id"`
	RSI               string         `json:"rsi"`
	State             string         `json:"state"`
	MatchSkin         *bool          `json:"match_skin"`
	LayerAlpha        *float64       `json:"layer_alpha"`
	AllowsMarkings    *bool          `json:"allows_markings"`
	MarkingsMatchSkin bool           `json:"markings_match_skin"`
	Color             *palette.Color `json:"color"`
}

type MarkingCatalog struct {
	IDs        []string
	ByID       map[string]*markings.Definition
	ByCategory map[visual.Category]map[string]*markings.Definition
	Digest     string
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadSpriteLayers(filepath.Join(configDir, "sprite_layers.json"), &c.SpriteLayers); err != nil {
		return nil, err
	}
	if err := loadSpriteSets(filepath.Join(configDir, "sprite_sets.json"), &c.SpriteSets); err != nil {
		return nil, err
	}
	if err := loadMarkings(filepath.Join(configDir, "markings"), &c.Markings); err != nil {
		return nil, err
	}
	if err := loadSpecies(filepath.Join(configDir, "species.json"), &c.Species); err != nil {
		return nil, err
	}
	if err := c.crossCheck(); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadSpriteLayers(path string, out *SpriteLayerCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := validateDoc(schemaSpriteLayers, raw); err != nil {
		return fmt.Errorf("sprite_layers.json: %w", err)
	}
	out.Digest = sha256Hex(raw)

	var defs []rawSpriteLayer
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("sprite_layers.json: %w", err)
	}
	out.ByID = make(map[string]*SpriteLayerDef, len(defs))
	for _, r := range defs {
		if r.ID == "" {
			return fmt.Errorf("sprite_layers.json: empty id")
		}
		if _, dup := out.ByID[r.ID]; dup {
			return fmt.Errorf("sprite_layers.json: duplicate id %q", r.ID)
		}
		d := &SpriteLayerDef{
			ID:                r.ID,
			RSI:               r.RSI,
			State:             r.State,
			MatchSkin:         true,
			LayerAlpha:        1,
			AllowsMarkings:    true,
			MarkingsMatchSkin: r.MarkingsMatchSkin,
			Color:             r.Color,
		}
		if r.MatchSkin != nil {
			d.MatchSkin = *r.MatchSkin
		}
		if r.LayerAlpha != nil {
			d.LayerAlpha = *r.LayerAlpha
		}
		if r.AllowsMarkings != nil {
			d.AllowsMarkings = *r.AllowsMarkings
		}
		out.ByID[d.ID] = d
	}
	return nil
}

func loadSpriteSets(path string, out *SpriteSetCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := validateDoc(schemaSpriteSets, raw); err != nil {
		return fmt.Errorf("sprite_sets.json: %w", err)
	}
	out.Digest = sha256Hex(raw)

	var defs []SpriteSetDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("sprite_sets.json: %w", err)
	}
	out.ByID = make(map[string]*SpriteSetDef, len(defs))
	for i := range defs {
		d := &defs[i]
		if d.ID == "" {
			return fmt.Errorf("sprite_sets.json: empty id")
		}
		for layer := range d.Sprites {
			if !layer.Valid() {
				return fmt.Errorf("sprite_sets.json: %s: unknown layer %q", d.ID, layer)
			}
		}
		out.ByID[d.ID] = d
	}
	return nil
}

// loadMarkings reads every *.json file under dir. Each file holds an array of
// definitions; files are read in name order so the digest is stable.
func loadMarkings(dir string, out *MarkingCatalog) error {
	out.ByID = map[string]*markings.Definition{}
	out.ByCategory = map[visual.Category]map[string]*markings.Definition{}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			out.Digest = sha256Hex(nil)
			return nil
		}
		return err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".json") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	var concat bytes.Buffer
	for _, p := range files {
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		concat.Write(b)
		concat.WriteByte('\n')

		name := filepath.Base(p)
		if err := validateDoc(schemaMarkings, b); err != nil {
			return fmt.Errorf("markings/%s: %w", name, err)
		}
		var defs []markings.Definition
		if err := json.Unmarshal(b, &defs); err != nil {
			return fmt.Errorf("markings/%s: %w", name, err)
		}
		for i := range defs {
			d := &defs[i]
			if d.ID == "" {
				return fmt.Errorf("markings/%s: missing id", name)
			}
			if _, dup := out.ByID[d.ID]; dup {
				return fmt.Errorf("markings/%s: duplicate id %q", name, d.ID)
			}
			if !d.Category.Valid() {
				return fmt.Errorf("markings/%s: %s: unknown category %q", name, d.ID, d.Category)
			}
			if !d.BodyPart.Valid() {
				return fmt.Errorf("markings/%s: %s: unknown body part %q", name, d.ID, d.BodyPart)
			}
			out.ByID[d.ID] = d
			if out.ByCategory[d.Category] == nil {
				out.ByCategory[d.Category] = map[string]*markings.Definition{}
			}
			out.ByCategory[d.Category][d.ID] = d
		}
	}
	out.IDs = sortedKeys(out.ByID)
	out.Digest = sha256Hex(concat.Bytes())
	return nil
}

func loadSpecies(path string, out *SpeciesCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := validateDoc(schemaSpecies, raw); err != nil {
		return fmt.Errorf("species.json: %w", err)
	}
	out.Digest = sha256Hex(raw)

	var defs []SpeciesDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("species.json: %w", err)
	}
	out.ByID = make(map[string]*SpeciesDef, len(defs))
	for i := range defs {
		d := &defs[i]
		if d.ID == "" {
			return fmt.Errorf("species.json: empty id")
		}
		if !d.SkinColoration.Valid() {
			return fmt.Errorf("species.json: %s: unknown skin coloration %q", d.ID, d.SkinColoration)
		}
		if d.OldAge < d.YoungAge {
			return fmt.Errorf("species.json: %s: old_age below young_age", d.ID)
		}
		for c := range d.MarkingPoints.Points {
			if !c.Valid() {
				return fmt.Errorf("species.json: %s: unknown marking category %q", d.ID, c)
			}
		}
		out.ByID[d.ID] = d
	}
	out.IDs = sortedKeys(out.ByID)
	return nil
}

// crossCheck verifies references between the catalogs.
func (c *Catalogs) crossCheck() error {
	for _, id := range c.Species.IDs {
		sp := c.Species.ByID[id]
		set, ok := c.SpriteSets.ByID[sp.SpriteSet]
		if !ok {
			return fmt.Errorf("species %s: unknown sprite set %q", id, sp.SpriteSet)
		}
		for layer, layerID := range set.Sprites {
			if _, ok := c.SpriteLayers.ByID[layerID]; !ok {
				return fmt.Errorf("sprite set %s: %s: unknown sprite layer %q", set.ID, layer, layerID)
			}
		}
		for cat, p := range sp.MarkingPoints.Points {
			for _, mid := range p.DefaultMarkings {
				if _, ok := c.Markings.ByID[mid]; !ok {
					return fmt.Errorf("species %s: %s: unknown default marking %q", id, cat, mid)
				}
			}
		}
	}
	for _, mid := range c.Markings.IDs {
		for _, sp := range c.Markings.ByID[mid].SpeciesRestrictions {
			if _, ok := c.Species.ByID[sp]; !ok {
				return fmt.Errorf("marking %s: unknown species %q", mid, sp)
			}
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
