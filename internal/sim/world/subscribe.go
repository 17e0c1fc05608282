package world

import (
	"go.uber.org/zap"

	"humanoidcraft.ai/internal/protocol"
)

func (w *World) handleSubscribe(req SubscribeRequest) SubscribeResponse {
	e, ok := w.entities[req.EntityID]
	if !ok {
		return SubscribeResponse{Code: protocol.ErrUnknownEntity}
	}
	if req.Out != nil && req.SessionID != "" {
		subs := w.subs[e.ID]
		if subs == nil {
			subs = map[string]chan []byte{}
			w.subs[e.ID] = subs
		}
		subs[req.SessionID] = req.Out
	}

	nowTick := w.tick.Load()
	if e.last.Type == "" {
		// Never composited yet; the pending tick still fans out as usual.
		w.recompose(nowTick, e, false)
		e.dirty = true
	}

	d := w.cats.Digests()
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       req.SessionID,
		EntityID:        e.ID,
		Tick:            nowTick,
		TickRateHz:      w.cfg.TickRateHz,
		Catalogs: protocol.CatalogDigests{
			Species:      d.Species,
			SpriteSets:   d.SpriteSets,
			SpriteLayers: d.SpriteLayers,
			Markings:     d.Markings,
		},
		Examine: w.ed.Examine(e.Appearance, e.Name, req.Locale),
	}
	w.log.Debug("subscribe", zap.String("entity", e.ID), zap.String("session", req.SessionID))
	return SubscribeResponse{Welcome: welcome, Layers: e.last}
}

func (w *World) handleUnsubscribe(req UnsubscribeRequest) {
	subs := w.subs[req.EntityID]
	if subs == nil {
		return
	}
	delete(subs, req.SessionID)
	if len(subs) == 0 {
		delete(w.subs, req.EntityID)
	}
}
