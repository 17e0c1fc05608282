package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"humanoidcraft.ai/internal/persistence/indexdb"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dbf := addDBFlags(fs)
	entity := fs.String("entity", "", "entity id (composites)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "stats"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	db := dbf.open()
	defer db.Close()

	var err error
	switch q {
	case "stats":
		worldDir := ""
		if strings.TrimSpace(*dbf.dbPath) == "" {
			worldDir = filepath.Join(*dbf.dataDir, "worlds", *dbf.worldID)
		}
		err = dbStats(ctx, db, dbf.path(), worldDir, os.Stdout)
	case "composites":
		if *entity == "" {
			fmt.Fprintln(os.Stderr, "missing -entity")
			os.Exit(2)
		}
		var rows []indexdb.CompositeRow
		rows, err = db.LatestComposites(ctx, *entity, *limit)
		if err == nil {
			for _, r := range rows {
				printJSON(r)
			}
		}
	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, q+":", err)
		os.Exit(1)
	}
}

// dbStats prints row counts and on-disk sizes. worldDir may be empty when
// the database lives outside a world directory.
func dbStats(ctx context.Context, db *indexdb.SQLiteIndex, dbPath, worldDir string, w io.Writer) error {
	counts, err := db.TableCounts(ctx)
	if err != nil {
		return err
	}
	tables := make([]string, 0, len(counts))
	for t := range counts {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	for _, t := range tables {
		fmt.Fprintf(w, "%-12s %s rows\n", t, humanize.Comma(counts[t]))
	}

	var dbSize uint64
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if fi, err := os.Stat(dbPath + suffix); err == nil {
			dbSize += uint64(fi.Size())
		}
	}
	fmt.Fprintf(w, "%-12s %s\n", "sqlite", humanize.Bytes(dbSize))

	if worldDir == "" {
		return nil
	}
	for _, sub := range []string{"snapshots", "composites"} {
		n, size := dirSize(filepath.Join(worldDir, sub))
		fmt.Fprintf(w, "%-12s %s in %d files\n", sub, humanize.Bytes(size), n)
	}
	return nil
}

func dirSize(dir string) (int, uint64) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0
	}
	var n int
	var size uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		n++
		size += uint64(fi.Size())
	}
	return n, size
}

func printJSON(v any) {
	b, _ := json.Marshal(v)
	fmt.Println(string(b))
}
