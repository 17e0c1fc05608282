package appearance

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"humanoidcraft.ai/internal/sim/markings"
	"humanoidcraft.ai/internal/sim/palette"
	"humanoidcraft.ai/internal/sim/visual"
)

func TestRecompute_HumanMaleLongHair(t *testing.T) {
	cats := loadCatalogs(t)
	c := NewCompositor(cats, nil)
	ed := NewEditor(cats, nil)

	a := newHuman(t, cats, visual.Male)
	ed.AddMarking(a, "LongHair", &testHair, false)
	ll := c.Recompute(a)

	_, head := mustLayer(t, ll, string(visual.Head))
	hair, at := mustLayer(t, ll, "LongHair-long")
	if at != head+1 {
		t.Fatalf("LongHair-long at %d, want directly after Head (%d): %v", at, head, ll.Keys())
	}
	if hair.Color != testHair || !hair.Visible {
		t.Fatalf("hair layer: %+v", hair)
	}
	if hair.RSI != "Mobs/Customization/human_hair.rsi" || hair.State != "long" {
		t.Fatalf("hair sprite: %+v", hair)
	}

	for layer, state := range map[visual.Layer]string{
		visual.Chest: "torso_m",
		visual.Head:  "head_m",
		visual.RArm:  "r_arm_m",
		visual.LArm:  "l_arm_m",
		visual.RLeg:  "r_leg_m",
		visual.LLeg:  "l_leg_m",
	} {
		l, _ := mustLayer(t, ll, string(layer))
		if l.State != state {
			t.Fatalf("%s state %q, want %q", layer, l.State, state)
		}
		if l.Color != testSkin || !l.Visible {
			t.Fatalf("%s should be visible in skin color: %+v", layer, l)
		}
	}

	eyes, _ := mustLayer(t, ll, string(visual.Eyes))
	if eyes.Color != testEyes {
		t.Fatalf("eyes color %s, want %s", eyes.Color, testEyes)
	}
	if base := a.BaseLayers[visual.Chest]; base.ID != "MobHumanTorsoMale" || base.Custom {
		t.Fatalf("chest base layer: %+v", base)
	}

	// Layers the species lacks stay as hidden placeholders.
	if tail, _ := mustLayer(t, ll, string(visual.Tail)); tail.Visible {
		t.Fatalf("tail placeholder should be hidden: %+v", tail)
	}
}

func TestRecompute_Idempotent(t *testing.T) {
	cats := loadCatalogs(t)
	c := NewCompositor(cats, nil)
	ed := NewEditor(cats, nil)

	a := newHuman(t, cats, visual.Female)
	ed.AddMarking(a, "LongHair", &testHair, false)
	ed.AddMarking(a, "ScarEye", nil, false)
	ed.AddMarking(a, "TattooTribalChest", nil, true)

	first := c.Recompute(a)
	second := c.Recompute(a)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("second pass differs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first, a.Layers()); diff != "" {
		t.Fatalf("Layers differs from last pass (-want +got):\n%s", diff)
	}
}

func TestRecompute_UnknownMarkingIsSkippedWithWarning(t *testing.T) {
	cats := loadCatalogs(t)
	log, logs := observed(zap.WarnLevel)
	c := NewCompositor(cats, log)

	baseline := c.Recompute(newHuman(t, cats, visual.Male))

	a := newHuman(t, cats, visual.Male)
	a.Markings.AddBack(visual.CategoryHead, markings.New("DeletedMarking", []palette.Color{palette.White}))
	got := c.Recompute(a)

	if diff := cmp.Diff(baseline, got); diff != "" {
		t.Fatalf("unknown marking changed the layer list (-want +got):\n%s", diff)
	}
	warned := logs.FilterMessage("unknown marking").All()
	if len(warned) != 1 {
		t.Fatalf("expected one warning, got %d", len(warned))
	}
	fields := warned[0].ContextMap()
	if fields["marking"] != "DeletedMarking" || fields["species"] != "Human" {
		t.Fatalf("warning fields: %v", fields)
	}
	if !a.Markings.Has("DeletedMarking") {
		t.Fatalf("unknown marking should stay in the set")
	}
}

func TestRecompute_LaterMarkingsSitNearerTheirBodyPart(t *testing.T) {
	cats := loadCatalogs(t)
	c := NewCompositor(cats, nil)
	ed := NewEditor(cats, nil)

	a := newHuman(t, cats, visual.Male)
	ed.AddMarking(a, "LongHair", &testHair, false)
	ed.AddMarking(a, "Freckles", nil, false)
	ed.AddMarking(a, "ScarEye", nil, false)
	ll := c.Recompute(a)

	_, head := mustLayer(t, ll, string(visual.Head))
	want := []string{"Head", "ScarEye-scar_eye", "Freckles-freckles", "LongHair-long", "Snout"}
	if diff := cmp.Diff(want, ll.Keys()[head:head+len(want)]); diff != "" {
		t.Fatalf("order after Head (-want +got):\n%s", diff)
	}
}

func TestRecompute_RemovedMarkingLeavesNoLayers(t *testing.T) {
	cats := loadCatalogs(t)
	c := NewCompositor(cats, nil)
	ed := NewEditor(cats, nil)

	a := newHuman(t, cats, visual.Male)
	ed.AddMarking(a, "LongHair", &testHair, false)
	c.Recompute(a)

	ed.SetMarkingID(a, visual.CategoryHair, 0, "Ponytail")
	ll := c.Recompute(a)
	if _, _, ok := ll.Find("LongHair-long"); ok {
		t.Fatalf("replaced marking still rendered: %v", ll.Keys())
	}
	band, _ := mustLayer(t, ll, "Ponytail-ponytail_band")
	if band.Color == testHair {
		t.Fatalf("second ponytail layer should keep its default color")
	}
	tail, _ := mustLayer(t, ll, "Ponytail-ponytail")
	if tail.Color != testHair {
		t.Fatalf("first ponytail layer should carry the old color: %s", tail.Color)
	}

	ed.RemoveMarking(a, "Ponytail")
	ll = c.Recompute(a)
	for _, k := range ll.Keys() {
		if k == "Ponytail-ponytail" || k == "Ponytail-ponytail_band" {
			t.Fatalf("removed marking still rendered: %v", ll.Keys())
		}
	}
	if len(ll) != len(visual.RenderOrder) {
		t.Fatalf("only base layers should remain, got %v", ll.Keys())
	}
}

func TestRecompute_PermanentHideSurvivesTemporaryShow(t *testing.T) {
	cats := loadCatalogs(t)
	c := NewCompositor(cats, nil)
	a := newHuman(t, cats, visual.Male)

	if !a.SetLayerVisibility(visual.Eyes, false, true) {
		t.Fatalf("hiding should report a change")
	}
	a.SetLayerVisibility(visual.Eyes, true, false)
	if !a.IsHidden(visual.Eyes) {
		t.Fatalf("temporary show must not undo a permanent hide")
	}
	if eyes, _ := mustLayer(t, c.Recompute(a), string(visual.Eyes)); eyes.Visible {
		t.Fatalf("eyes rendered visible")
	}

	a.SetLayerVisibility(visual.Eyes, true, true)
	if a.IsHidden(visual.Eyes) {
		t.Fatalf("permanent show should clear both sets")
	}
	if eyes, _ := mustLayer(t, c.Recompute(a), string(visual.Eyes)); !eyes.Visible {
		t.Fatalf("eyes still hidden")
	}
	if a.SetLayerVisibility(visual.Eyes, true, true) {
		t.Fatalf("no-op show should report no change")
	}
}

func TestRecompute_HiddenBodyPartHidesItsMarkings(t *testing.T) {
	cats := loadCatalogs(t)
	c := NewCompositor(cats, nil)
	ed := NewEditor(cats, nil)

	a := newHuman(t, cats, visual.Male)
	ed.AddMarking(a, "LongHair", &testHair, false)
	a.SetLayerVisibility(visual.Head, false, false)

	ll := c.Recompute(a)
	if hair, _ := mustLayer(t, ll, "LongHair-long"); hair.Visible {
		t.Fatalf("marking on a hidden head should be hidden")
	}
	if len(ll.Visible()) == 0 {
		t.Fatalf("other layers should stay visible")
	}

	a.SetLayerVisibility(visual.Head, true, false)
	if hair, _ := mustLayer(t, c.Recompute(a), "LongHair-long"); !hair.Visible {
		t.Fatalf("marking should come back with the head")
	}
}

func TestRecompute_CustomBaseLayer(t *testing.T) {
	cats := loadCatalogs(t)
	c := NewCompositor(cats, nil)
	ed := NewEditor(cats, nil)

	a := newHuman(t, cats, visual.Male)
	red := palette.RGB(200, 30, 30)
	ed.SetBaseLayerID(a, visual.Chest, "MobHumanTorso")
	ed.SetBaseLayerColor(a, visual.Chest, &red)
	ed.SetBaseLayerColor(a, visual.Head, nil)

	ll := c.Recompute(a)
	chest, _ := mustLayer(t, ll, string(visual.Chest))
	if chest.State != "torso" {
		t.Fatalf("custom id must not be sex-morphed: %+v", chest)
	}
	if chest.Color != red {
		t.Fatalf("custom color ignored: %s", chest.Color)
	}
	head, _ := mustLayer(t, ll, string(visual.Head))
	if head.State != "head_m" || head.Color != testSkin {
		t.Fatalf("empty override should keep the species sprite: %+v", head)
	}
	if !a.BaseLayers[visual.Chest].Custom {
		t.Fatalf("chest should be marked custom")
	}

	tan := palette.MustHex("#D9A066")
	ed.SetSkinColor(a, tan, true)
	ll = c.Recompute(a)
	if chest, _ := mustLayer(t, ll, string(visual.Chest)); chest.Color != red {
		t.Fatalf("skin change overwrote a custom color: %s", chest.Color)
	}
	if head, _ := mustLayer(t, ll, string(visual.Head)); head.Color != a.SkinColor {
		t.Fatalf("head did not follow skin: %s", head.Color)
	}

	ed.ClearBaseLayer(a, visual.Chest)
	if chest, _ := mustLayer(t, c.Recompute(a), string(visual.Chest)); chest.State != "torso_m" || chest.Color != a.SkinColor {
		t.Fatalf("cleared override should restore the species layer: %+v", chest)
	}
}

func TestRecompute_UnknownSpriteLayerWarns(t *testing.T) {
	cats := loadCatalogs(t)
	log, logs := observed(zap.WarnLevel)
	c := NewCompositor(cats, log)
	ed := NewEditor(cats, nil)

	a := newHuman(t, cats, visual.Male)
	ed.SetBaseLayerID(a, visual.Chest, "MobNoSuchTorso")
	ll := c.Recompute(a)
	if logs.FilterMessage("unknown sprite layer").Len() != 1 {
		t.Fatalf("expected a warning for the missing sprite layer")
	}
	if _, ok := a.BaseLayers[visual.Chest]; ok {
		t.Fatalf("unresolved layer should not count as a base layer")
	}
	if chest, _ := mustLayer(t, ll, string(visual.Chest)); chest.Color != palette.White {
		t.Fatalf("unresolved layer should fall back to white: %s", chest.Color)
	}
}

func TestRecompute_SpeciesChangeHidesStaleLayers(t *testing.T) {
	cats := loadCatalogs(t)
	c := NewCompositor(cats, nil)
	ed := NewEditor(cats, nil)

	points, _ := cats.SpeciesPoints("Reptilian")
	a := New()
	a.Species = "Reptilian"
	a.SkinColor = palette.MustHex("#3A8F4A")
	a.Markings = markings.NewSet(points)
	ed.EnsureDefaultMarkings(a)

	ll := c.Recompute(a)
	_, tail := mustLayer(t, ll, string(visual.Tail))
	lizard, at := mustLayer(t, ll, "LizardTailSmooth-tail_smooth")
	if at != tail+1 || !lizard.Visible || lizard.Color != a.SkinColor {
		t.Fatalf("tail marking: %+v at %d (tail %d)", lizard, at, tail)
	}
	if snout, _ := mustLayer(t, ll, string(visual.Snout)); !snout.Visible {
		t.Fatalf("reptilian snout layer should be visible")
	}

	ed.SetSpecies(a, "Human")
	ll = c.Recompute(a)
	for _, l := range []visual.Layer{visual.Tail, visual.Snout, visual.HeadTop, visual.HeadSide} {
		if got, _ := mustLayer(t, ll, string(l)); got.Visible {
			t.Fatalf("%s should be hidden after the species change", l)
		}
	}
	if _, _, ok := ll.Find("LizardTailSmooth-tail_smooth"); ok {
		t.Fatalf("reptilian-only marking survived the species change")
	}
	if chest, _ := mustLayer(t, ll, string(visual.Chest)); chest.RSI != "Mobs/Species/Human/parts.rsi" {
		t.Fatalf("chest not switched to human sprite: %+v", chest)
	}
}

func TestRecompute_EyesKeepEyeColor(t *testing.T) {
	cats := loadCatalogs(t)
	c := NewCompositor(cats, nil)
	ed := NewEditor(cats, nil)

	a := newHuman(t, cats, visual.Male)
	red := palette.RGB(200, 30, 30)
	ed.SetBaseLayerColor(a, visual.Eyes, &red)

	if eyes, _ := mustLayer(t, c.Recompute(a), string(visual.Eyes)); eyes.Color != testEyes {
		t.Fatalf("eyes took the override color: %s", eyes.Color)
	}
}
