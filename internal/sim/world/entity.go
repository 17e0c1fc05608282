package world

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"go.uber.org/zap"

	"humanoidcraft.ai/internal/protocol"
	"humanoidcraft.ai/internal/sim/appearance"
	"humanoidcraft.ai/internal/sim/render"
)

type Entity struct {
	ID         string
	Name       string
	SpawnTick  uint64
	Appearance *appearance.Appearance

	dirty bool
	last  protocol.LayersMsg

	// MODIFY rate limiting, counted per window of ticks.
	windowStart uint64
	windowCount int
}

func (w *World) spawnEntity(nowTick uint64, req SpawnRequest) SpawnResponse {
	if w.cfg.MaxEntities > 0 && len(w.entities) >= w.cfg.MaxEntities {
		return SpawnResponse{Code: protocol.ErrEntityLimit, Message: "entity limit reached"}
	}
	id := req.ID
	if id == "" {
		id = w.newID()
	}
	if _, dup := w.entities[id]; dup {
		return SpawnResponse{Code: protocol.ErrBadRequest, Message: "entity already exists"}
	}
	a := w.ed.FromProfile(req.Profile)
	e := &Entity{
		ID:         id,
		Name:       req.Profile.Name,
		SpawnTick:  nowTick,
		Appearance: a,
		dirty:      true,
	}
	w.entities[id] = e
	w.log.Info("spawn",
		zap.String("entity", id),
		zap.String("species", a.Species),
		zap.Uint64("tick", nowTick),
	)
	return SpawnResponse{EntityID: id}
}

func (w *World) despawnEntity(id string) {
	if _, ok := w.entities[id]; !ok {
		return
	}
	delete(w.entities, id)
	delete(w.subs, id)
	w.log.Info("despawn", zap.String("entity", id))
}

// recompose runs the compositor for one entity and caches the resulting
// LAYERS message. With fanout the message goes to every subscriber and a
// composite entry goes to every sink.
func (w *World) recompose(nowTick uint64, e *Entity, fanout bool) {
	layers := w.comp.Recompute(e.Appearance)
	msg := protocol.LayersMsg{
		Type:            protocol.TypeLayers,
		ProtocolVersion: protocol.Version,
		Tick:            nowTick,
		EntityID:        e.ID,
		Layers:          toWire(layers),
	}
	digest, err := layersDigest(msg.Layers)
	if err != nil {
		w.log.Error("digest layers", zap.String("entity", e.ID), zap.Error(err))
	}
	msg.Digest = digest
	e.last = msg
	e.dirty = false
	if !fanout {
		return
	}

	if subs := w.subs[e.ID]; len(subs) > 0 {
		b, err := json.Marshal(msg)
		if err != nil {
			w.log.Error("marshal layers", zap.String("entity", e.ID), zap.Error(err))
		} else {
			sessions := make([]string, 0, len(subs))
			for s := range subs {
				sessions = append(sessions, s)
			}
			sort.Strings(sessions)
			for _, s := range sessions {
				sendLatest(subs[s], b)
			}
		}
	}

	if len(w.compositeSinks) == 0 {
		return
	}
	entry := CompositeEntry{
		Tick:     nowTick,
		EntityID: e.ID,
		Species:  e.Appearance.Species,
		Digest:   msg.Digest,
		Layers:   len(layers),
		Visible:  len(layers.Visible()),
		Markings: e.Appearance.Markings.Count(),
	}
	for _, s := range w.compositeSinks {
		if err := s.WriteComposite(entry); err != nil {
			w.log.Warn("composite sink", zap.String("entity", e.ID), zap.Error(err))
		}
	}
}

func toWire(layers render.LayerList) []protocol.Layer {
	out := make([]protocol.Layer, len(layers))
	for i, l := range layers {
		out[i] = protocol.Layer{
			Key:     l.Key,
			RSI:     l.RSI,
			State:   l.State,
			Color:   l.Color.Hex(),
			Visible: l.Visible,
		}
	}
	return out
}

// layersDigest hashes the wire form so renderers can skip unchanged stacks.
func layersDigest(layers []protocol.Layer) (string, error) {
	b, err := json.Marshal(layers)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
