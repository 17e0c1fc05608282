package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"humanoidcraft.ai/internal/sim/catalogs"
	"humanoidcraft.ai/internal/sim/markings"
	"humanoidcraft.ai/internal/sim/palette"
	"humanoidcraft.ai/internal/sim/visual"
)

const DefaultSpecies = "Human"

// Profile is a character record produced by character creation.
type Profile struct {
	Name       string        `json:"name"`
	Species    string        `json:"species"`
	Sex        visual.Sex    `json:"sex"`
	Gender     visual.Gender `json:"gender"`
	Age        int           `json:"age"`
	Appearance Appearance    `json:"appearance"`
}

type Appearance struct {
	HairStyleID       string             `json:"hair_style_id,omitempty"`
	HairColor         palette.Color      `json:"hair_color"`
	FacialHairStyleID string             `json:"facial_hair_style_id,omitempty"`
	FacialHairColor   palette.Color      `json:"facial_hair_color"`
	SkinColor         palette.Color      `json:"skin_color"`
	EyeColor          palette.Color      `json:"eye_color"`
	Markings          []markings.Marking `json:"markings,omitempty"`
}

// SpeciesIndex is the slice of the catalogs a profile needs.
type SpeciesIndex interface {
	IndexSpecies(id string) (*catalogs.SpeciesDef, bool)
}

var (
	defaultEyeColor  = palette.MustHex("#000000")
	defaultHairColor = palette.MustHex("#000000")
)

// DefaultWithSpecies returns a plain, bald profile for the species.
func DefaultWithSpecies(species string, idx SpeciesIndex) Profile {
	p := Profile{
		Name:    "John Doe",
		Species: species,
		Sex:     visual.Male,
		Gender:  visual.Masculine,
		Age:     18,
		Appearance: Appearance{
			HairColor:       defaultHairColor,
			FacialHairColor: defaultHairColor,
			SkinColor:       palette.HumanSkinTone(20),
			EyeColor:        defaultEyeColor,
		},
	}
	if sp, ok := idx.IndexSpecies(species); ok {
		p.Age = sp.MinAge
		if sp.DefaultSkinColor != (palette.Color{}) {
			p.Appearance.SkinColor = sp.DefaultSkinColor
		}
	}
	return p
}

// Normalize clamps the profile into something the species can wear: unknown
// species fall back to the default species, age is clamped, and the skin color
// is moved onto the species' coloration.
func (p *Profile) Normalize(idx SpeciesIndex) {
	if p == nil {
		return
	}
	p.Name = strings.TrimSpace(p.Name)
	sp, ok := idx.IndexSpecies(p.Species)
	if !ok {
		p.Species = DefaultSpecies
		sp, ok = idx.IndexSpecies(p.Species)
	}
	if !p.Sex.Valid() {
		p.Sex = visual.Male
	}
	if !p.Gender.Valid() {
		p.Gender = visual.DefaultGender(p.Sex)
	}
	if !ok {
		return
	}
	if p.Age < sp.MinAge {
		p.Age = sp.MinAge
	}
	if sp.MaxAge > 0 && p.Age > sp.MaxAge {
		p.Age = sp.MaxAge
	}
	if !palette.VerifySkinColor(sp.SkinColoration, p.Appearance.SkinColor) {
		p.Appearance.SkinColor = palette.ValidSkinTone(sp.SkinColoration, p.Appearance.SkinColor)
	}
}

// Validate reports everything wrong with the profile at once.
func (p Profile) Validate(idx SpeciesIndex) error {
	var errs []error
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, errors.New("empty name"))
	}
	sp, ok := idx.IndexSpecies(p.Species)
	if !ok {
		errs = append(errs, fmt.Errorf("unknown species %q", p.Species))
	}
	if !p.Sex.Valid() {
		errs = append(errs, fmt.Errorf("invalid sex %q", p.Sex))
	}
	if !p.Gender.Valid() {
		errs = append(errs, fmt.Errorf("invalid gender %q", p.Gender))
	}
	if ok {
		if p.Age < sp.MinAge || (sp.MaxAge > 0 && p.Age > sp.MaxAge) {
			errs = append(errs, fmt.Errorf("age %d outside [%d,%d]", p.Age, sp.MinAge, sp.MaxAge))
		}
		if !palette.VerifySkinColor(sp.SkinColoration, p.Appearance.SkinColor) {
			errs = append(errs, fmt.Errorf("skin color %s invalid for %s", p.Appearance.SkinColor, sp.SkinColoration))
		}
	}
	for i, m := range p.Appearance.Markings {
		if m.ID == "" {
			errs = append(errs, fmt.Errorf("marking %d: empty id", i))
		}
	}
	return errors.Join(errs...)
}

func Decode(b []byte) (Profile, error) {
	var p Profile
	if err := json.Unmarshal(b, &p); err != nil {
		return p, err
	}
	return p, nil
}

func LoadFile(path string) (Profile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, err
	}
	p, err := Decode(b)
	if err != nil {
		return p, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}
