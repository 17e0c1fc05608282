package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"humanoidcraft.ai/internal/persistence/snapshot"
	"humanoidcraft.ai/internal/sim/catalogs"
	"humanoidcraft.ai/internal/sim/tuning"
	"humanoidcraft.ai/internal/sim/world"
)

var ErrNotFound = errors.New("not found")

// SQLiteIndex stores character profiles and indexes composites and
// snapshots. Profile calls are synchronous; index writes go through a
// buffered queue and are dropped when it is full.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropComposite atomic.Uint64
	dropSnapshot  atomic.Uint64
}

type reqKind int

const (
	reqComposite reqKind = iota + 1
	reqSnapshot
)

type req struct {
	kind reqKind

	composite world.CompositeEntry
	snapshot  snapshotRow
}

type snapshotRow struct {
	Tick     uint64
	WorldID  string
	Path     string
	Entities int
	Markings int
}

type Stats struct {
	QueueDepth         int    `json:"queue_depth"`
	QueueCapacity      int    `json:"queue_capacity"`
	DropCompositeTotal uint64 `json:"drop_composite_total"`
	DropSnapshotTotal  uint64 `json:"drop_snapshot_total"`
}

// ProfileRow is one stored profile without its body.
type ProfileRow struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Species   string `json:"species"`
	UpdatedAt string `json:"updated_at"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, 65536)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{db: db, ch: make(chan req, queue)}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			species TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_profiles_name ON profiles(name);`,
		`CREATE TABLE IF NOT EXISTS composites (
			tick INTEGER NOT NULL,
			entity_id TEXT NOT NULL,
			species TEXT NOT NULL,
			digest TEXT NOT NULL,
			layers INTEGER NOT NULL,
			visible INTEGER NOT NULL,
			markings INTEGER NOT NULL,
			PRIMARY KEY (entity_id, tick)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_composites_tick ON composites(tick);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			tick INTEGER PRIMARY KEY,
			world_id TEXT NOT NULL,
			path TEXT NOT NULL,
			entities INTEGER NOT NULL,
			markings INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:         len(s.ch),
		QueueCapacity:      cap(s.ch),
		DropCompositeTotal: s.dropComposite.Load(),
		DropSnapshotTotal:  s.dropSnapshot.Load(),
	}
}

// WriteComposite queues a composite row. Dropped rows are counted; the JSONL
// log stays the source of truth.
func (s *SQLiteIndex) WriteComposite(e world.CompositeEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqComposite, composite: e}:
	default:
		s.dropComposite.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.Snapshot) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		Tick:     snap.Header.Tick,
		WorldID:  snap.Header.WorldID,
		Path:     path,
		Entities: len(snap.Entities),
	}
	for i := range snap.Entities {
		if m := snap.Entities[i].Appearance.Markings; m != nil {
			r.Markings += m.Count()
		}
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshot.Add(1)
	}
}

// UpsertCatalogs records the raw catalog files and the applied tuning with
// their digests.
func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil || cats == nil {
		return nil
	}
	rows := catalogRows(configDir, cats, tune)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.Exec(r.name, r.digest, string(r.data), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type catalogRow struct {
	name   string
	digest string
	data   []byte
}

func catalogRows(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) []catalogRow {
	var rows []catalogRow
	add := func(name, digest string, data []byte) {
		if name == "" || digest == "" || len(data) == 0 {
			return
		}
		rows = append(rows, catalogRow{name: name, digest: digest, data: data})
	}
	read := func(file string) []byte {
		if configDir == "" {
			return nil
		}
		b, err := os.ReadFile(filepath.Join(configDir, file))
		if err != nil {
			return nil
		}
		return b
	}
	add("species", cats.Species.Digest, read("species.json"))
	add("sprite_sets", cats.SpriteSets.Digest, read("sprite_sets.json"))
	add("sprite_layers", cats.SpriteLayers.Digest, read("sprite_layers.json"))
	// Markings span several files; store the decoded definitions in id order.
	defs := make([]any, 0, len(cats.Markings.IDs))
	for _, id := range cats.Markings.IDs {
		defs = append(defs, cats.Markings.ByID[id])
	}
	if b, err := json.Marshal(defs); err == nil {
		add("markings", cats.Markings.Digest, b)
	}
	if b, err := json.Marshal(tune); err == nil {
		sum := sha256.Sum256(b)
		add("tuning", hex.EncodeToString(sum[:]), b)
	}
	return rows
}

// CatalogDigests returns the stored digest per catalog name.
func (s *SQLiteIndex) CatalogDigests(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, digest FROM catalogs ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var name, digest string
		if err := rows.Scan(&name, &digest); err != nil {
			return nil, err
		}
		out[name] = digest
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertComposite, _ := s.db.Prepare(`INSERT OR REPLACE INTO composites(tick,entity_id,species,digest,layers,visible,markings) VALUES(?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(tick,world_id,path,entities,markings) VALUES(?,?,?,?,?)`)
	defer func() {
		if insertComposite != nil {
			_ = insertComposite.Close()
		}
		if insertSnapshot != nil {
			_ = insertSnapshot.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqComposite:
			c := r.composite
			if insertComposite == nil {
				continue
			}
			if _, err := tx.Stmt(insertComposite).Exec(
				int64(c.Tick),
				c.EntityID,
				c.Species,
				c.Digest,
				c.Layers,
				c.Visible,
				c.Markings,
			); err != nil {
				rollback()
				continue
			}
			opCount++

		case reqSnapshot:
			sn := r.snapshot
			if insertSnapshot == nil {
				continue
			}
			if _, err := tx.Stmt(insertSnapshot).Exec(
				int64(sn.Tick),
				sn.WorldID,
				sn.Path,
				sn.Entities,
				sn.Markings,
			); err != nil {
				rollback()
				continue
			}
			opCount++
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}
