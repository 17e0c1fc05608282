package appearance

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"humanoidcraft.ai/internal/sim/markings"
	"humanoidcraft.ai/internal/sim/palette"
	"humanoidcraft.ai/internal/sim/visual"
)

func ids(s *markings.Set, c visual.Category) []string {
	list, _ := s.TryGetCategory(c)
	out := make([]string, 0, len(list))
	for _, m := range list {
		out = append(out, m.ID)
	}
	return out
}

func TestSetSpecies_UnknownIsIgnored(t *testing.T) {
	cats := loadCatalogs(t)
	log, logs := observed(zap.WarnLevel)
	ed := NewEditor(cats, log)

	a := newHuman(t, cats, visual.Male)
	ed.AddMarking(a, "LongHair", &testHair, false)
	ed.SetSpecies(a, "Dragon")

	if a.Species != "Human" || !a.Markings.Has("LongHair") {
		t.Fatalf("unknown species changed state: %s %v", a.Species, ids(a.Markings, visual.CategoryHair))
	}
	if logs.FilterMessage("unknown species").Len() != 1 {
		t.Fatalf("expected a warning")
	}
}

func TestSetSpecies_RevalidatesMarkings(t *testing.T) {
	cats := loadCatalogs(t)
	ed := NewEditor(cats, nil)

	a := newHuman(t, cats, visual.Male)
	ed.AddMarking(a, "LongHair", &testHair, false)
	ed.AddMarking(a, "TattooKneeLeft", nil, false)
	ed.SetSpecies(a, "Reptilian")

	if a.Markings.Has("LongHair") || a.Markings.Has("TattooKneeLeft") {
		t.Fatalf("whitelist-only species kept unrestricted markings")
	}
	if got := ids(a.Markings, visual.CategorySnout); !cmp.Equal(got, []string{"LizardSnoutRound"}) {
		t.Fatalf("snout default: %v", got)
	}
	if got := ids(a.Markings, visual.CategoryTail); !cmp.Equal(got, []string{"LizardTailSmooth"}) {
		t.Fatalf("tail default: %v", got)
	}
	if !a.Markings.Points.OnlyWhitelisted {
		t.Fatalf("set should carry the new species' point table")
	}

	ed.SetSpecies(a, "Human")
	if a.Markings.Has("LizardTailSmooth") || a.Markings.Has("LizardSnoutRound") {
		t.Fatalf("reptilian markings survived the switch back")
	}
	if got := ids(a.Markings, visual.CategoryUndergarmentBottom); !cmp.Equal(got, []string{"UnderwearBoxers"}) {
		t.Fatalf("human default underwear: %v", got)
	}
}

func TestSetSex_DropsRestrictedMarkings(t *testing.T) {
	cats := loadCatalogs(t)
	ed := NewEditor(cats, nil)

	a := newHuman(t, cats, visual.Male)
	ed.AddMarking(a, "FullBeard", &testHair, false)
	ed.SetSex(a, visual.Female)

	if a.Sex != visual.Female || a.Markings.Has("FullBeard") {
		t.Fatalf("sex change: %s %v", a.Sex, ids(a.Markings, visual.CategoryFacialHair))
	}
	if a.Gender != visual.Masculine {
		t.Fatalf("gender should be left alone, got %s", a.Gender)
	}
	ed.SetSex(a, visual.Sex("Bogus"))
	if a.Sex != visual.Female {
		t.Fatalf("invalid sex accepted")
	}
}

func TestAddMarking_RespectsBudget(t *testing.T) {
	cats := loadCatalogs(t)
	ed := NewEditor(cats, nil)

	a := newHuman(t, cats, visual.Male)
	ed.AddMarking(a, "LongHair", &testHair, false)
	ed.AddMarking(a, "ShortHair", &testHair, false)
	if got := ids(a.Markings, visual.CategoryHair); !cmp.Equal(got, []string{"LongHair"}) {
		t.Fatalf("budget exceeded: %v", got)
	}

	ed.AddMarking(a, "Afro", nil, true)
	if got := ids(a.Markings, visual.CategoryHair); !cmp.Equal(got, []string{"LongHair", "Afro"}) {
		t.Fatalf("forced marking should bypass the budget: %v", got)
	}

	ed.AddMarking(a, "NoSuchMarking", nil, true)
	if a.Markings.Count() != 2 {
		t.Fatalf("unknown marking added")
	}
}

func TestSetMarkingColor(t *testing.T) {
	cats := loadCatalogs(t)
	ed := NewEditor(cats, nil)

	a := newHuman(t, cats, visual.Male)
	ed.AddMarking(a, "Ponytail", nil, false)
	ed.SetMarkingColor(a, visual.CategoryHair, 0, []palette.Color{testHair})

	m, ok := a.Markings.At(visual.CategoryHair, 0)
	if !ok {
		t.Fatalf("ponytail missing")
	}
	want := []palette.Color{testHair, palette.MustHex("#C21E1E")}
	if diff := cmp.Diff(want, m.Colors); diff != "" {
		t.Fatalf("colors (-want +got):\n%s", diff)
	}

	ed.SetMarkingColor(a, visual.CategoryHair, 5, []palette.Color{palette.Black})
	ed.SetMarkingColor(a, visual.CategoryTail, 0, []palette.Color{palette.Black})
	if m, _ := a.Markings.At(visual.CategoryHair, 0); m.Colors[0] != testHair {
		t.Fatalf("bad index touched a marking")
	}
}

func TestSetMarkingID_KeepsColors(t *testing.T) {
	cats := loadCatalogs(t)
	ed := NewEditor(cats, nil)

	a := newHuman(t, cats, visual.Male)
	ed.AddMarking(a, "LongHair", &testHair, false)
	ed.SetMarkingID(a, visual.CategoryHair, 0, "ShortHair")
	m, _ := a.Markings.At(visual.CategoryHair, 0)
	if m.ID != "ShortHair" || m.ColorAt(0) != testHair {
		t.Fatalf("swap: %+v", m)
	}

	// Ids from another category are rejected.
	ed.SetMarkingID(a, visual.CategoryHair, 0, "Goatee")
	if m, _ := a.Markings.At(visual.CategoryHair, 0); m.ID != "ShortHair" {
		t.Fatalf("cross-category swap accepted: %s", m.ID)
	}
}

func TestSetSkinColor_Verify(t *testing.T) {
	cats := loadCatalogs(t)
	ed := NewEditor(cats, nil)
	blue := palette.RGB(0, 0, 255)

	a := newHuman(t, cats, visual.Male)
	ed.SetSkinColor(a, blue, false)
	if a.SkinColor != blue {
		t.Fatalf("unverified color should be taken as is")
	}
	ed.SetSkinColor(a, blue, true)
	if a.SkinColor == blue || !palette.VerifySkinColor(palette.HumanToned, a.SkinColor) {
		t.Fatalf("verified color not clamped: %s", a.SkinColor)
	}
}

func TestSeverBodyPart(t *testing.T) {
	cats := loadCatalogs(t)
	ed := NewEditor(cats, nil)
	c := NewCompositor(cats, nil)

	a := newHuman(t, cats, visual.Male)
	ed.AddMarking(a, "LongHair", &testHair, false)
	if !ed.SeverBodyPart(a, visual.Head) {
		t.Fatalf("sever should report a change")
	}
	for _, l := range visual.Sublayers(visual.Head) {
		if !a.PermanentlyHidden.Has(l) {
			t.Fatalf("%s not permanently hidden", l)
		}
	}
	if a.IsHidden(visual.RArm) {
		t.Fatalf("unrelated part hidden")
	}
	if ed.SeverBodyPart(a, visual.Head) {
		t.Fatalf("second sever should be a no-op")
	}
	if ed.SeverBodyPart(a, visual.Eyes) {
		t.Fatalf("eyes are not a body part root")
	}

	ll := c.Recompute(a)
	for _, key := range []string{"Head", "Eyes", "LongHair-long"} {
		if l, _ := mustLayer(t, ll, key); l.Visible {
			t.Fatalf("%s visible after sever", key)
		}
	}
}

func TestCopyFrom(t *testing.T) {
	cats := loadCatalogs(t)
	ed := NewEditor(cats, nil)

	src := newHuman(t, cats, visual.Female)
	ed.AddMarking(src, "LongHair", &testHair, false)
	red := palette.RGB(200, 0, 0)
	ed.SetBaseLayerColor(src, visual.Chest, &red)

	dst := New()
	dst.Species = "Reptilian"
	dst.SetLayerVisibility(visual.Eyes, false, true)
	ed.CopyFrom(dst, src)

	if dst.Species != "Human" || dst.Sex != visual.Female || dst.Gender != visual.Feminine || dst.SkinColor != testSkin {
		t.Fatalf("scalar fields not copied: %+v", dst)
	}
	if !dst.IsHidden(visual.Eyes) {
		t.Fatalf("visibility should stay with the target")
	}
	ed.RemoveMarking(dst, "LongHair")
	*dst.CustomBaseLayers[visual.Chest].Color = palette.Black
	if !src.Markings.Has("LongHair") || *src.CustomBaseLayers[visual.Chest].Color != red {
		t.Fatalf("copy shares state with its source")
	}
}

func TestSetSpecies_InvalidMarkingTakesNoSlot(t *testing.T) {
	cats := loadCatalogs(t)
	ed := NewEditor(cats, nil)

	a := newHuman(t, cats, visual.Male)
	set := markings.NewSet(markings.PointTable{})
	set.AddBack(visual.CategoryChest, markings.New("LizardChestBelly", nil))
	set.AddBack(visual.CategoryChest, markings.New("TattooTribalChest", nil))
	ed.SetMarkingSet(a, set)

	ed.SetSpecies(a, "Human")
	if got := ids(a.Markings, visual.CategoryChest); !cmp.Equal(got, []string{"TattooTribalChest"}) {
		t.Fatalf("chest markings: %v", got)
	}
}

func TestAddMarking_ForcedColoringIgnoresCaller(t *testing.T) {
	cats := loadCatalogs(t)
	ed := NewEditor(cats, nil)
	red := palette.RGB(255, 0, 0)
	want := []palette.Color{palette.Tattoo(testSkin)}

	a := newHuman(t, cats, visual.Male)
	ed.AddMarking(a, "TattooTribalChest", &red, false)
	if got := colorsOf(t, a.Markings, visual.CategoryChest, "TattooTribalChest"); !cmp.Equal(got, want) {
		t.Fatalf("AddMarking colors: %v, want %v", got, want)
	}

	b := newHuman(t, cats, visual.Male)
	ed.AddMarkingColors(b, "TattooTribalChest", []palette.Color{red}, false)
	if got := colorsOf(t, b.Markings, visual.CategoryChest, "TattooTribalChest"); !cmp.Equal(got, want) {
		t.Fatalf("AddMarkingColors colors: %v, want %v", got, want)
	}

	// Unforced markings still take the caller's color.
	ed.AddMarking(a, "LongHair", &red, false)
	if got := colorsOf(t, a.Markings, visual.CategoryHair, "LongHair"); !cmp.Equal(got, []palette.Color{red}) {
		t.Fatalf("hair colors: %v", got)
	}
}
