package world

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"humanoidcraft.ai/internal/persistence/snapshot"
	"humanoidcraft.ai/internal/sim/appearance"
	"humanoidcraft.ai/internal/sim/catalogs"
	"humanoidcraft.ai/internal/sim/tuning"
)

type Config struct {
	ID                 string
	TickRateHz         int
	SnapshotEveryTicks int
	MaxEntities        int
	InboxSize          int
	ModifyWindowTicks  int
	ModifyMax          int
}

func ConfigFromTuning(id string, t tuning.Tuning) Config {
	return Config{
		ID:                 id,
		TickRateHz:         t.TickRateHz,
		SnapshotEveryTicks: t.SnapshotEveryTicks,
		MaxEntities:        t.MaxEntities,
		InboxSize:          t.InboxSize,
		ModifyWindowTicks:  t.RateLimits.ModifyWindowTicks,
		ModifyMax:          t.RateLimits.ModifyMax,
	}
}

// World owns every appearance. All state below is touched only by the
// goroutine running Run; other goroutines talk to it over channels.
type World struct {
	cfg  Config
	cats *catalogs.Catalogs
	comp *appearance.Compositor
	ed   *appearance.Editor
	log  *zap.Logger

	tick     atomic.Uint64
	metrics  atomic.Pointer[Metrics]
	entities map[string]*Entity
	subs     map[string]map[string]chan []byte

	inbox       chan Command
	spawn       chan SpawnRequest
	despawn     chan string
	subscribe   chan SubscribeRequest
	unsubscribe chan UnsubscribeRequest
	listReq     chan chan []EntitySummary
	stop        chan struct{}
	stopOnce    sync.Once

	compositeSinks []CompositeSink
	snapshotSink   chan<- snapshot.Snapshot

	newID func() string
}

func New(cfg Config, cats *catalogs.Catalogs, log *zap.Logger) *World {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = 10
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = 1024
	}
	return &World{
		cfg:         cfg,
		cats:        cats,
		comp:        appearance.NewCompositor(cats, log.Named("compositor")),
		ed:          appearance.NewEditor(cats, log.Named("editor")),
		log:         log,
		entities:    map[string]*Entity{},
		subs:        map[string]map[string]chan []byte{},
		inbox:       make(chan Command, cfg.InboxSize),
		spawn:       make(chan SpawnRequest, 64),
		despawn:     make(chan string, 64),
		subscribe:   make(chan SubscribeRequest, 64),
		unsubscribe: make(chan UnsubscribeRequest, 64),
		listReq:     make(chan chan []EntitySummary),
		stop:        make(chan struct{}),
		newID:       uuid.NewString,
	}
}

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingSpawns []SpawnRequest
	var pendingDespawns []string
	var pendingCommands []Command

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.spawn:
			pendingSpawns = append(pendingSpawns, req)
		case id := <-w.despawn:
			pendingDespawns = append(pendingDespawns, id)
		case req := <-w.subscribe:
			req.Resp <- w.handleSubscribe(req)
		case req := <-w.unsubscribe:
			w.handleUnsubscribe(req)
		case resp := <-w.listReq:
			resp <- w.summaries()
		case cmd := <-w.inbox:
			pendingCommands = append(pendingCommands, cmd)
		case <-ticker.C:
			w.step(pendingSpawns, pendingDespawns, pendingCommands)
			pendingSpawns = pendingSpawns[:0]
			pendingDespawns = pendingDespawns[:0]
			pendingCommands = pendingCommands[:0]
		}
	}
}

func (w *World) Stop() { w.stopOnce.Do(func() { close(w.stop) }) }

// StepOnce advances one tick with the same ordering as Run. It must not be
// called while Run is active.
func (w *World) StepOnce(spawns []SpawnRequest, despawns []string, cmds []Command) uint64 {
	tick := w.tick.Load()
	w.step(spawns, despawns, cmds)
	return tick
}

// step applies one tick: spawns, despawns, then commands in receive order.
// Dirty entities are recomposited once, in id order, and fanned out.
func (w *World) step(spawns []SpawnRequest, despawns []string, cmds []Command) {
	start := time.Now()
	nowTick := w.tick.Load()

	for _, req := range spawns {
		resp := w.spawnEntity(nowTick, req)
		if req.Resp != nil {
			req.Resp <- resp
		}
	}
	for _, id := range despawns {
		w.despawnEntity(id)
	}
	for _, cmd := range cmds {
		w.applyCommand(nowTick, cmd)
	}

	recomposed := 0
	for _, id := range w.sortedIDs() {
		e := w.entities[id]
		if !e.dirty {
			continue
		}
		w.recompose(nowTick, e, true)
		recomposed++
	}

	if w.cfg.SnapshotEveryTicks > 0 && nowTick > 0 && nowTick%uint64(w.cfg.SnapshotEveryTicks) == 0 && w.snapshotSink != nil {
		select {
		case w.snapshotSink <- w.ExportSnapshot(nowTick):
		default:
			w.log.Warn("snapshot sink full, skipping", zap.Uint64("tick", nowTick))
		}
	}

	subs := 0
	for _, m := range w.subs {
		subs += len(m)
	}
	w.metrics.Store(&Metrics{
		Tick:        nowTick,
		Entities:    len(w.entities),
		Subscribers: subs,
		Commands:    len(cmds),
		Recomposed:  recomposed,
		InboxDepth:  len(w.inbox),
		StepMS:      float64(time.Since(start).Microseconds()) / 1000,
	})
	w.tick.Add(1)
}

func (w *World) sortedIDs() []string {
	ids := make([]string, 0, len(w.entities))
	for id := range w.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (w *World) summaries() []EntitySummary {
	out := make([]EntitySummary, 0, len(w.entities))
	for _, id := range w.sortedIDs() {
		e := w.entities[id]
		out = append(out, EntitySummary{
			ID:        e.ID,
			Name:      e.Name,
			Species:   e.Appearance.Species,
			SpawnTick: e.SpawnTick,
			Digest:    e.last.Digest,
		})
	}
	return out
}

// trySend drops the message when the outbox is full.
func trySend(ch chan []byte, b []byte) {
	select {
	case ch <- b:
	default:
	}
}

// sendLatest makes room by dropping the oldest queued message.
func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
