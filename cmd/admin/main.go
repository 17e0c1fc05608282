package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"humanoidcraft.ai/internal/persistence/indexdb"
	"humanoidcraft.ai/internal/sim/appearance"
	"humanoidcraft.ai/internal/sim/catalogs"
	"humanoidcraft.ai/internal/sim/profile"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "profiles":
		profilesCmd(os.Args[2:])
	case "render":
		renderCmd(os.Args[2:])
	case "db":
		dbCmd(os.Args[2:])
	case "state":
		stateCmd(os.Args[2:])
	case "spawn":
		spawnCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: admin <command> [flags]

  profiles list|import|export|delete   manage stored character profiles
  render -profile file.json           composite a profile and print its layers
  db stats|composites                 inspect the world index
  state                               fetch /admin/v1/state from a running server
  spawn -id <profile>                 spawn a stored profile on a running server`)
}

// dbFlags registers the flags every sqlite-backed command shares.
type dbFlags struct {
	dataDir *string
	worldID *string
	dbPath  *string
}

func addDBFlags(fs *flag.FlagSet) dbFlags {
	return dbFlags{
		dataDir: fs.String("data", "./data", "runtime data directory"),
		worldID: fs.String("world", "world_1", "world id"),
		dbPath:  fs.String("db", "", "sqlite db path (optional; overrides -data/-world)"),
	}
}

func (f dbFlags) path() string {
	if p := strings.TrimSpace(*f.dbPath); p != "" {
		return p
	}
	return filepath.Join(*f.dataDir, "worlds", *f.worldID, "index", "world.sqlite")
}

func (f dbFlags) open() *indexdb.SQLiteIndex {
	path := f.path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		fmt.Fprintln(os.Stderr, "mkdir:", err)
		os.Exit(1)
	}
	db, err := indexdb.OpenSQLite(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	return db
}

func mustCatalogs(dir string) *catalogs.Catalogs {
	cats, err := catalogs.Load(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}
	return cats
}

func profilesCmd(args []string) {
	fs := flag.NewFlagSet("profiles", flag.ExitOnError)
	dbf := addDBFlags(fs)
	configDir := fs.String("configs", "./configs", "config directory")
	id := fs.String("id", "", "profile id (import: defaults to the file name)")
	file := fs.String("file", "", "profile json (import) or output path (export; default stdout)")
	normalize := fs.Bool("normalize", false, "import: clamp the profile instead of rejecting it")
	_ = fs.Parse(args)

	sub := "list"
	if fs.NArg() > 0 {
		sub = strings.TrimSpace(fs.Arg(0))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	db := dbf.open()
	defer db.Close()

	var err error
	switch sub {
	case "list":
		err = profilesList(ctx, db, os.Stdout)
	case "import":
		if *file == "" {
			fmt.Fprintln(os.Stderr, "missing -file")
			os.Exit(2)
		}
		var got string
		got, err = profilesImport(ctx, db, mustCatalogs(*configDir), *file, *id, *normalize)
		if err == nil {
			fmt.Printf("imported %s\n", got)
		}
	case "export":
		if *id == "" {
			fmt.Fprintln(os.Stderr, "missing -id")
			os.Exit(2)
		}
		out := io.Writer(os.Stdout)
		if *file != "" {
			f, ferr := os.Create(*file)
			if ferr != nil {
				fmt.Fprintln(os.Stderr, "create:", ferr)
				os.Exit(1)
			}
			defer f.Close()
			out = f
		}
		err = profilesExport(ctx, db, *id, out)
	case "delete":
		if *id == "" {
			fmt.Fprintln(os.Stderr, "missing -id")
			os.Exit(2)
		}
		err = db.DeleteProfile(ctx, *id)
		if err == nil {
			fmt.Printf("deleted %s\n", *id)
		}
	default:
		fmt.Fprintln(os.Stderr, "unknown profiles command:", sub)
		os.Exit(2)
	}
	if errors.Is(err, indexdb.ErrNotFound) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(3)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, sub+":", err)
		os.Exit(1)
	}
}

func profilesList(ctx context.Context, db *indexdb.SQLiteIndex, w io.Writer) error {
	rows, err := db.ListProfiles(ctx)
	if err != nil {
		return err
	}
	for _, r := range rows {
		updated := r.UpdatedAt
		if t, err := time.Parse(time.RFC3339Nano, r.UpdatedAt); err == nil {
			updated = humanize.Time(t)
		}
		fmt.Fprintf(w, "%-24s %-20s %-14s %s\n", r.ID, r.Name, r.Species, updated)
	}
	fmt.Fprintf(w, "%s profiles\n", humanize.Comma(int64(len(rows))))
	return nil
}

// profilesImport stores a profile file under id, or under the file's base
// name when id is empty.
func profilesImport(ctx context.Context, db *indexdb.SQLiteIndex, cats *catalogs.Catalogs, path, id string, normalize bool) (string, error) {
	p, err := profile.LoadFile(path)
	if err != nil {
		return "", err
	}
	if normalize {
		p.Normalize(cats)
	}
	if err := p.Validate(cats); err != nil {
		return "", fmt.Errorf("invalid profile: %w", err)
	}
	if id == "" {
		id = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := db.SaveProfile(ctx, id, p); err != nil {
		return "", err
	}
	return id, nil
}

func profilesExport(ctx context.Context, db *indexdb.SQLiteIndex, id string, w io.Writer) error {
	p, err := db.LoadProfile(ctx, id)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

func renderCmd(args []string) {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	configDir := fs.String("configs", "./configs", "config directory")
	path := fs.String("profile", "", "profile json")
	locale := fs.String("locale", "en", "examine locale (BCP 47)")
	all := fs.Bool("all", false, "include hidden layers")
	asJSON := fs.Bool("json", false, "print layers as json")
	_ = fs.Parse(args)

	if *path == "" {
		fmt.Fprintln(os.Stderr, "missing -profile")
		os.Exit(2)
	}
	p, err := profile.LoadFile(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read profile:", err)
		os.Exit(1)
	}
	tag, err := language.Parse(*locale)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bad -locale:", err)
		os.Exit(2)
	}
	if err := renderProfile(mustCatalogs(*configDir), p, tag, *all, *asJSON, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "render:", err)
		os.Exit(1)
	}
}

type renderedLayer struct {
	Key     string `json:"key"`
	RSI     string `json:"rsi,omitempty"`
	State   string `json:"state,omitempty"`
	Color   string `json:"color"`
	Visible bool   `json:"visible"`
}

// renderProfile builds an appearance from p exactly as a spawn would and
// prints the composited layers, bottom first.
func renderProfile(cats *catalogs.Catalogs, p profile.Profile, tag language.Tag, all, asJSON bool, w io.Writer) error {
	log := zap.NewNop()
	ed := appearance.NewEditor(cats, log)
	a := ed.FromProfile(p)
	layers := appearance.NewCompositor(cats, log).Recompute(a)

	out := make([]renderedLayer, 0, len(layers))
	for _, l := range layers {
		if !l.Visible && !all {
			continue
		}
		out = append(out, renderedLayer{Key: l.Key, RSI: l.RSI, State: l.State, Color: l.Color.Hex(), Visible: l.Visible})
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprintln(w, ed.Examine(a, p.Name, tag))
	for i, l := range out {
		mark := " "
		if !l.Visible {
			mark = "-"
		}
		fmt.Fprintf(w, "%s %3d %-28s %-36s %s\n", mark, i, l.Key, l.RSI+":"+l.State, l.Color)
	}
	fmt.Fprintf(w, "%d layers (%d visible), %d markings\n", len(layers), len(layers.Visible()), a.Markings.Count())
	return nil
}
