package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/language"

	"humanoidcraft.ai/internal/persistence/indexdb"
	"humanoidcraft.ai/internal/sim/catalogs"
	"humanoidcraft.ai/internal/sim/profile"
)

const alexJSON = `{
  "name": "Alex",
  "species": "Human",
  "sex": "Male",
  "gender": "Masculine",
  "age": 25,
  "appearance": {
    "hair_style_id": "LongHair",
    "hair_color": "#8B4513",
    "facial_hair_color": "#000000",
    "skin_color": "#F1C27D",
    "eye_color": "#2A6FDB"
  }
}`

func testEnv(t *testing.T) (*indexdb.SQLiteIndex, *catalogs.Catalogs, string) {
	t.Helper()
	cats, err := catalogs.Load("../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	dir := t.TempDir()
	db, err := indexdb.OpenSQLite(filepath.Join(dir, "world.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, cats, dir
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestProfiles_ImportListExportDelete(t *testing.T) {
	db, cats, dir := testEnv(t)
	ctx := context.Background()
	path := filepath.Join(dir, "alex.json")
	writeFile(t, path, alexJSON)

	id, err := profilesImport(ctx, db, cats, path, "", false)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if id != "alex" {
		t.Fatalf("id=%q want alex", id)
	}

	var list bytes.Buffer
	if err := profilesList(ctx, db, &list); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(list.String(), "alex") || !strings.Contains(list.String(), "1 profiles") {
		t.Fatalf("list output:\n%s", list.String())
	}

	var out bytes.Buffer
	if err := profilesExport(ctx, db, "alex", &out); err != nil {
		t.Fatalf("export: %v", err)
	}
	var p profile.Profile
	if err := json.Unmarshal(out.Bytes(), &p); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if p.Name != "Alex" || p.Appearance.HairStyleID != "LongHair" {
		t.Fatalf("exported %+v", p)
	}

	if err := db.DeleteProfile(ctx, "alex"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := profilesExport(ctx, db, "alex", &out); !errors.Is(err, indexdb.ErrNotFound) {
		t.Fatalf("export after delete: %v", err)
	}
}

func TestProfiles_ImportRejectsInvalidUnlessNormalized(t *testing.T) {
	db, cats, dir := testEnv(t)
	ctx := context.Background()
	path := filepath.Join(dir, "kid.json")
	writeFile(t, path, strings.Replace(alexJSON, `"age": 25`, `"age": 3`, 1))

	if _, err := profilesImport(ctx, db, cats, path, "kid", false); err == nil {
		t.Fatalf("expected validation error")
	}
	if _, err := profilesImport(ctx, db, cats, path, "kid", true); err != nil {
		t.Fatalf("normalized import: %v", err)
	}
	p, err := db.LoadProfile(ctx, "kid")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.Age != 18 {
		t.Fatalf("age=%d want clamped to 18", p.Age)
	}
}

func TestRenderProfile(t *testing.T) {
	_, cats, _ := testEnv(t)
	p, err := profile.Decode([]byte(alexJSON))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	var text bytes.Buffer
	if err := renderProfile(cats, p, language.English, false, false, &text); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(text.String(), "Alex is a young Human.") {
		t.Fatalf("examine line missing:\n%s", text.String())
	}

	var js bytes.Buffer
	if err := renderProfile(cats, p, language.English, true, true, &js); err != nil {
		t.Fatalf("render json: %v", err)
	}
	var layers []renderedLayer
	if err := json.Unmarshal(js.Bytes(), &layers); err != nil {
		t.Fatalf("decode layers: %v", err)
	}
	head, hair := -1, -1
	for i, l := range layers {
		switch l.Key {
		case "Head":
			head = i
		case "LongHair-long":
			hair = i
		}
	}
	if head < 0 || hair != head+1 {
		t.Fatalf("hair at %d, head at %d", hair, head)
	}
	if layers[hair].Color != "#8B4513" {
		t.Fatalf("hair color=%s", layers[hair].Color)
	}
}

func TestDBStats(t *testing.T) {
	db, _, dir := testEnv(t)
	ctx := context.Background()
	p, _ := profile.Decode([]byte(alexJSON))
	if err := db.SaveProfile(ctx, "alex", p); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "snapshots"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "snapshots", "10.snap.zst"), strings.Repeat("x", 2048))

	var out bytes.Buffer
	if err := dbStats(ctx, db, filepath.Join(dir, "world.sqlite"), dir, &out); err != nil {
		t.Fatalf("stats: %v", err)
	}
	s := out.String()
	for _, want := range []string{"profiles     1 rows", "snapshots    2.0 kB in 1 files", "composites   0 B in 0 files"} {
		if !strings.Contains(s, want) {
			t.Fatalf("missing %q in:\n%s", want, s)
		}
	}
}
