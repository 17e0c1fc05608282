package main

import (
	"strings"
	"testing"

	"humanoidcraft.ai/internal/sim/catalogs"
	"humanoidcraft.ai/internal/sim/palette"
	"humanoidcraft.ai/internal/sim/profile"
	"humanoidcraft.ai/internal/sim/visual"
	"humanoidcraft.ai/internal/sim/world"
)

type captureSink struct{ entries []world.CompositeEntry }

func (c *captureSink) WriteComposite(e world.CompositeEntry) error {
	c.entries = append(c.entries, e)
	return nil
}

func fixture(t *testing.T) (*catalogs.Catalogs, *world.World, *captureSink) {
	t.Helper()
	cats, err := catalogs.Load("../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	w := world.New(world.Config{ID: "replay", TickRateHz: 5}, cats, nil)
	sink := &captureSink{}
	w.AddCompositeSink(sink)

	var spawns []world.SpawnRequest
	for _, name := range []string{"Alex", "Sam"} {
		spawns = append(spawns, world.SpawnRequest{
			Profile: profile.Profile{
				Name:    name,
				Species: "Human",
				Sex:     visual.Female,
				Gender:  visual.Feminine,
				Age:     30,
				Appearance: profile.Appearance{
					HairStyleID: "LongHair",
					HairColor:   palette.MustHex("#8B4513"),
					SkinColor:   palette.MustHex("#F1C27D"),
					EyeColor:    palette.MustHex("#2A6FDB"),
				},
			},
			Resp: make(chan world.SpawnResponse, 1),
		})
	}
	w.StepOnce(spawns, nil, nil)
	for _, s := range spawns {
		if r := <-s.Resp; r.Code != "" {
			t.Fatalf("spawn: %s %s", r.Code, r.Message)
		}
	}
	return cats, w, sink
}

func TestVerify_DeterministicAndMatchesLog(t *testing.T) {
	cats, w, sink := fixture(t)
	snap := w.ExportSnapshot(w.CurrentTick() - 1)

	rep, err := verify(snap, cats, sink.entries)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(rep.Entities) != 2 {
		t.Fatalf("entities=%d", len(rep.Entities))
	}
	if rep.LoggedChecked != 2 {
		t.Fatalf("logged checked=%d want 2", rep.LoggedChecked)
	}
	live := w.Entities()
	for i := range live {
		if live[i].Digest != rep.Entities[i].Digest {
			t.Fatalf("%s: replayed digest differs from live", live[i].ID)
		}
	}
}

func TestVerify_LoggedMismatch(t *testing.T) {
	cats, w, sink := fixture(t)
	snap := w.ExportSnapshot(w.CurrentTick() - 1)

	bad := append([]world.CompositeEntry(nil), sink.entries...)
	bad[0].Digest = "deadbeef"
	_, err := verify(snap, cats, bad)
	if err == nil || !strings.Contains(err.Error(), "logged digest mismatch") {
		t.Fatalf("want logged mismatch, got %v", err)
	}
}

func TestVerify_IgnoresEntriesAfterSnapshot(t *testing.T) {
	cats, w, sink := fixture(t)
	snap := w.ExportSnapshot(w.CurrentTick() - 1)

	later := sink.entries[0]
	later.Tick = snap.Header.Tick + 10
	later.Digest = "deadbeef"
	rep, err := verify(snap, cats, append(sink.entries, later))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if rep.LoggedChecked != 2 {
		t.Fatalf("logged checked=%d", rep.LoggedChecked)
	}
}
