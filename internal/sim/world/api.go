package world

import (
	"context"

	"humanoidcraft.ai/internal/persistence/snapshot"
	"humanoidcraft.ai/internal/sim/catalogs"
)

func (w *World) Inbox() chan<- Command                     { return w.inbox }
func (w *World) Spawn() chan<- SpawnRequest                { return w.spawn }
func (w *World) Despawn() chan<- string                    { return w.despawn }
func (w *World) Subscribe() chan<- SubscribeRequest        { return w.subscribe }
func (w *World) Unsubscribe() chan<- UnsubscribeRequest    { return w.unsubscribe }
func (w *World) SetSnapshotSink(ch chan<- snapshot.Snapshot) { w.snapshotSink = ch }

// AddCompositeSink registers a sink for composite entries. Call before Run.
func (w *World) AddCompositeSink(s CompositeSink) {
	if s != nil {
		w.compositeSinks = append(w.compositeSinks, s)
	}
}

func (w *World) ID() string          { return w.cfg.ID }
func (w *World) TickRateHz() int     { return w.cfg.TickRateHz }
func (w *World) CurrentTick() uint64 { return w.tick.Load() }

// List asks the running loop for a summary of every entity.
func (w *World) List(ctx context.Context) ([]EntitySummary, error) {
	resp := make(chan []EntitySummary, 1)
	select {
	case w.listReq <- resp:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case out := <-resp:
		return out, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SpawnAndWait queues a spawn and waits for the tick that applies it.
func (w *World) SpawnAndWait(ctx context.Context, req SpawnRequest) (SpawnResponse, error) {
	req.Resp = make(chan SpawnResponse, 1)
	select {
	case w.spawn <- req:
	case <-ctx.Done():
		return SpawnResponse{}, ctx.Err()
	}
	select {
	case resp := <-req.Resp:
		return resp, nil
	case <-ctx.Done():
		return SpawnResponse{}, ctx.Err()
	}
}

func (w *World) CatalogDigests() catalogs.Digests { return w.cats.Digests() }

// Metrics returns the stats of the last tick, zero before the first one.
func (w *World) Metrics() Metrics {
	if m := w.metrics.Load(); m != nil {
		return *m
	}
	return Metrics{}
}

// Entities is List for callers driving the world with StepOnce. It must not
// be called while Run is active.
func (w *World) Entities() []EntitySummary { return w.summaries() }
