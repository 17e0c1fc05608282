package indexdb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"humanoidcraft.ai/internal/persistence/snapshot"
	"humanoidcraft.ai/internal/sim/appearance"
	"humanoidcraft.ai/internal/sim/catalogs"
	"humanoidcraft.ai/internal/sim/palette"
	"humanoidcraft.ai/internal/sim/profile"
	"humanoidcraft.ai/internal/sim/tuning"
	"humanoidcraft.ai/internal/sim/visual"
	"humanoidcraft.ai/internal/sim/world"
)

func openTemp(t *testing.T) (*SQLiteIndex, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.sqlite")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	return s, path
}

func TestSQLiteIndex_ProfileCRUD(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()
	ctx := context.Background()

	p := profile.Profile{
		Name:    "Alex",
		Species: "Human",
		Sex:     visual.Female,
		Gender:  visual.Feminine,
		Age:     31,
		Appearance: profile.Appearance{
			HairStyleID: "LongHair",
			HairColor:   palette.MustHex("#3B2219"),
			SkinColor:   palette.MustHex("#F1C27D"),
			EyeColor:    palette.MustHex("#2A6FDB"),
		},
	}
	if err := s.SaveProfile(ctx, "alex", p); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.LoadProfile(ctx, "alex")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(p, got); diff != "" {
		t.Fatalf("profile (-want +got):\n%s", diff)
	}

	p.Name = "Alexis"
	if err := s.SaveProfile(ctx, "alex", p); err != nil {
		t.Fatalf("resave: %v", err)
	}
	if err := s.SaveProfile(ctx, "sam", profile.Profile{Name: "Sam", Species: "Reptilian"}); err != nil {
		t.Fatalf("save sam: %v", err)
	}
	list, err := s.ListProfiles(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "alex" || list[0].Name != "Alexis" || list[1].Species != "Reptilian" {
		t.Fatalf("list: %+v", list)
	}

	if err := s.DeleteProfile(ctx, "alex"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteProfile(ctx, "alex"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete err=%v", err)
	}
	if _, err := s.LoadProfile(ctx, "alex"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("load deleted err=%v", err)
	}
}

func TestSQLiteIndex_CompositesAndSnapshotsPersist(t *testing.T) {
	s, path := openTemp(t)

	for tick := uint64(1); tick <= 3; tick++ {
		_ = s.WriteComposite(world.CompositeEntry{
			Tick: tick, EntityID: "e1", Species: "Human", Digest: "d", Layers: 20, Visible: 15, Markings: int(tick),
		})
	}
	a := appearance.New()
	a.Species = "Human"
	s.RecordSnapshot("/tmp/000000000003.snap.zst", snapshot.Snapshot{
		Header:   snapshot.Header{Version: snapshot.Version, WorldID: "w", Tick: 3},
		Entities: []snapshot.Entity{{ID: "e1", Appearance: *a}},
	})
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	ctx := context.Background()

	rows, err := s2.LatestComposites(ctx, "e1", 2)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if len(rows) != 2 || rows[0].Tick != 3 || rows[0].Markings != 3 || rows[1].Tick != 2 {
		t.Fatalf("rows: %+v", rows)
	}
	counts, err := s2.TableCounts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	want := map[string]int64{"profiles": 0, "composites": 3, "snapshots": 1, "catalogs": 0}
	if diff := cmp.Diff(want, counts); diff != "" {
		t.Fatalf("counts (-want +got):\n%s", diff)
	}
}

func TestSQLiteIndex_UpsertCatalogs(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()

	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	if err := s.UpsertCatalogs("../../../configs", cats, tuning.Defaults()); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := s.CatalogDigests(context.Background())
	if err != nil {
		t.Fatalf("digests: %v", err)
	}
	d := cats.Digests()
	for name, want := range map[string]string{
		"species":       d.Species,
		"sprite_sets":   d.SpriteSets,
		"sprite_layers": d.SpriteLayers,
		"markings":      d.Markings,
	} {
		if got[name] != want {
			t.Fatalf("%s digest=%q want %q", name, got[name], want)
		}
	}
	if len(got["tuning"]) != 64 {
		t.Fatalf("tuning digest=%q", got["tuning"])
	}
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqComposite}

	_ = s.WriteComposite(world.CompositeEntry{Tick: 2})
	s.RecordSnapshot("/tmp/2.snap.zst", snapshot.Snapshot{})

	st := s.Stats()
	if st.DropCompositeTotal != 1 || st.DropSnapshotTotal != 1 {
		t.Fatalf("drops: %+v", st)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}
