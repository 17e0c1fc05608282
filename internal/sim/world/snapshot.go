package world

import (
	"fmt"

	"go.uber.org/zap"

	"humanoidcraft.ai/internal/persistence/snapshot"
)

// ExportSnapshot copies every entity's authoritative appearance. It must run
// on the loop goroutine or before Run starts.
func (w *World) ExportSnapshot(nowTick uint64) snapshot.Snapshot {
	d := w.cats.Digests()
	snap := snapshot.Snapshot{
		Header: snapshot.Header{
			Version: snapshot.Version,
			WorldID: w.cfg.ID,
			Tick:    nowTick,
		},
		TickRate:           w.cfg.TickRateHz,
		SnapshotEveryTicks: w.cfg.SnapshotEveryTicks,
		Catalogs: snapshot.Catalogs{
			Species:      d.Species,
			SpriteSets:   d.SpriteSets,
			SpriteLayers: d.SpriteLayers,
			Markings:     d.Markings,
		},
	}
	for _, id := range w.sortedIDs() {
		e := w.entities[id]
		snap.Entities = append(snap.Entities, snapshot.Entity{
			ID:         e.ID,
			Name:       e.Name,
			SpawnTick:  e.SpawnTick,
			Appearance: *e.Appearance.Clone(),
		})
	}
	return snap
}

// ImportSnapshot replaces every entity and resumes at the tick after the
// snapshot. Call before Run.
func (w *World) ImportSnapshot(snap snapshot.Snapshot) error {
	if snap.Header.Version != snapshot.Version {
		return fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	if d := w.cats.Digests(); d.Markings != snap.Catalogs.Markings || d.Species != snap.Catalogs.Species {
		w.log.Warn("snapshot catalogs differ from loaded catalogs",
			zap.Uint64("tick", snap.Header.Tick),
		)
	}
	entities := make(map[string]*Entity, len(snap.Entities))
	for i := range snap.Entities {
		se := &snap.Entities[i]
		if _, dup := entities[se.ID]; dup {
			return fmt.Errorf("snapshot: duplicate entity %q", se.ID)
		}
		entities[se.ID] = &Entity{
			ID:         se.ID,
			Name:       se.Name,
			SpawnTick:  se.SpawnTick,
			Appearance: se.Appearance.Clone(),
			dirty:      true,
		}
	}
	w.entities = entities
	w.subs = map[string]map[string]chan []byte{}
	w.tick.Store(snap.Header.Tick + 1)
	return nil
}
