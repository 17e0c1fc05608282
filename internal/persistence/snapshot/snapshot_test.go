package snapshot

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"humanoidcraft.ai/internal/sim/appearance"
	"humanoidcraft.ai/internal/sim/markings"
	"humanoidcraft.ai/internal/sim/palette"
	"humanoidcraft.ai/internal/sim/visual"
)

func sample() Snapshot {
	a := appearance.New()
	a.Species = "Human"
	a.Age = 31
	a.SkinColor = palette.MustHex("#F1C27D")
	a.Markings = markings.NewSet(markings.PointTable{Points: map[visual.Category]markings.Points{
		visual.CategoryHair: {Points: 1},
	}})
	a.Markings.AddBack(visual.CategoryHair, markings.New("LongHair", []palette.Color{palette.MustHex("#3B2219")}))
	red := palette.RGB(200, 0, 0)
	a.CustomBaseLayers[visual.Chest] = appearance.CustomBaseLayer{ID: "MobHumanTorso", Color: &red}
	a.PermanentlyHidden[visual.Eyes] = true
	a.HiddenLayers[visual.Eyes] = true

	return Snapshot{
		Header:   Header{Version: Version, WorldID: "main", Tick: 1200},
		TickRate: 10,
		Catalogs: Catalogs{Species: "s", SpriteSets: "ss", SpriteLayers: "sl", Markings: "m"},
		Entities: []Entity{{ID: "e1", Name: "Alex", SpawnTick: 3, Appearance: *a}},
	}
}

var ignoreRender = cmpopts.IgnoreUnexported(appearance.Appearance{})

func TestWriteReadSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snaps", FileName(1200))
	want := sample()
	if err := WriteSnapshot(path, want); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff(want, got, ignoreRender, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("round trip (-want +got):\n%s", diff)
	}

	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("header: %v", err)
	}
	if h != want.Header {
		t.Fatalf("header: %+v", h)
	}
}

func TestDecode_RejectsOtherVersion(t *testing.T) {
	snap := sample()
	snap.Header.Version = 99
	var buf bytes.Buffer
	if err := Encode(&buf, snap); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := Decode(&buf); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestDecode_Garbage(t *testing.T) {
	if _, err := Decode(bytes.NewReader([]byte("not zstd"))); err == nil {
		t.Fatalf("expected error")
	}
}
