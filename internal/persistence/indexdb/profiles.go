package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"humanoidcraft.ai/internal/sim/profile"
)

func (s *SQLiteIndex) SaveProfile(ctx context.Context, id string, p profile.Profile) error {
	if id == "" {
		return fmt.Errorf("empty profile id")
	}
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO profiles(id,name,species,json,updated_at) VALUES(?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET name=excluded.name, species=excluded.species, json=excluded.json, updated_at=excluded.updated_at`,
		id, p.Name, p.Species, string(b), time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLiteIndex) LoadProfile(ctx context.Context, id string) (profile.Profile, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT json FROM profiles WHERE id=?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return profile.Profile{}, fmt.Errorf("profile %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return profile.Profile{}, err
	}
	p, err := profile.Decode([]byte(raw))
	if err != nil {
		return p, fmt.Errorf("profile %q: %w", id, err)
	}
	return p, nil
}

// ListProfiles returns every stored profile ordered by id.
func (s *SQLiteIndex) ListProfiles(ctx context.Context) ([]ProfileRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, species, updated_at FROM profiles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ProfileRow
	for rows.Next() {
		var r ProfileRow
		if err := rows.Scan(&r.ID, &r.Name, &r.Species, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) DeleteProfile(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("profile %q: %w", id, ErrNotFound)
	}
	return nil
}

// TableCounts reports row counts for the admin stats command.
func (s *SQLiteIndex) TableCounts(ctx context.Context) (map[string]int64, error) {
	out := map[string]int64{}
	for _, t := range []string{"profiles", "composites", "snapshots", "catalogs"} {
		var n int64
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+t).Scan(&n); err != nil {
			return nil, fmt.Errorf("%s: %w", t, err)
		}
		out[t] = n
	}
	return out, nil
}

// LatestComposites returns the newest composite rows of an entity.
func (s *SQLiteIndex) LatestComposites(ctx context.Context, entityID string, limit int) ([]CompositeRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT tick, species, digest, layers, visible, markings FROM composites WHERE entity_id=? ORDER BY tick DESC LIMIT ?`,
		entityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CompositeRow
	for rows.Next() {
		r := CompositeRow{EntityID: entityID}
		var tick int64
		if err := rows.Scan(&tick, &r.Species, &r.Digest, &r.Layers, &r.Visible, &r.Markings); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		out = append(out, r)
	}
	return out, rows.Err()
}

type CompositeRow struct {
	Tick     uint64 `json:"tick"`
	EntityID string `json:"entity_id"`
	Species  string `json:"species"`
	Digest   string `json:"digest"`
	Layers   int    `json:"layers"`
	Visible  int    `json:"visible"`
	Markings int    `json:"markings"`
}
