package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"humanoidcraft.ai/internal/logging"
	"humanoidcraft.ai/internal/persistence/indexdb"
	persistlog "humanoidcraft.ai/internal/persistence/log"
	"humanoidcraft.ai/internal/persistence/snapshot"
	"humanoidcraft.ai/internal/protocol"
	"humanoidcraft.ai/internal/sim/catalogs"
	"humanoidcraft.ai/internal/sim/tuning"
	"humanoidcraft.ai/internal/sim/world"
	"humanoidcraft.ai/internal/transport/observer"
	"humanoidcraft.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "world_1", "world id")
		configDir  = flag.String("configs", "./configs", "config directory")
		schemaDir  = flag.String("schemas", "./schemas", "protocol schema directory (empty to skip validation)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_index", false, "disable the composite index (profiles are still stored)")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if errors.Is(err, os.ErrNotExist) {
		tune, err = tuning.Defaults(), nil
	}
	if err == nil {
		err = tuning.ApplyEnv(&tune)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "load tuning: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(tune.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("world", *worldID))
	if tune.ProtocolVersion != "" && tune.ProtocolVersion != protocol.Version {
		logger.Warn("tuning protocol_version differs from server", zap.String("tuning", tune.ProtocolVersion), zap.String("server", protocol.Version))
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatal("load catalogs", zap.Error(err))
	}

	var validator *protocol.Validator
	if dir := strings.TrimSpace(*schemaDir); dir != "" {
		validator, err = protocol.LoadValidator(dir)
		if err != nil {
			logger.Fatal("load protocol schemas", zap.Error(err))
		}
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	if err := os.MkdirAll(worldDir, 0o755); err != nil {
		logger.Fatal("data dir", zap.Error(err))
	}

	db, err := indexdb.OpenSQLite(filepath.Join(worldDir, "index", "world.sqlite"))
	if err != nil {
		logger.Fatal("open profile db", zap.Error(err))
	}
	defer db.Close()

	idx, err := openRuntimeIndex(db, *worldID, *disableDB, logger)
	if err != nil {
		logger.Fatal("open index backend", zap.Error(err))
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Warn("index backend: upsert catalogs", zap.Error(err))
		}
	}

	w := world.New(world.ConfigFromTuning(*worldID, tune), cats, logger.Named("world"))

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = latestSnapshot(worldDir)
	}
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatal("read snapshot", zap.Error(err))
		}
		if snap.Header.WorldID != "" && snap.Header.WorldID != *worldID {
			logger.Fatal("snapshot world id mismatch", zap.String("snapshot_world", snap.Header.WorldID))
		}
		if err := w.ImportSnapshot(snap); err != nil {
			logger.Fatal("import snapshot", zap.Error(err))
		}
		logger.Info("resumed from snapshot",
			zap.String("snapshot", filepath.Base(snapshotToLoad)),
			zap.Uint64("tick", w.CurrentTick()),
			zap.Int("entities", len(snap.Entities)),
		)
	}

	ctx, cancel := signalContext()
	defer cancel()

	compLog := persistlog.NewCompositeLogger(worldDir)
	defer compLog.Close()
	w.AddCompositeSink(multiSink{compLog, idx})

	snapCh := make(chan snapshot.Snapshot, 2)
	w.SetSnapshotSink(snapCh)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				path := filepath.Join(worldDir, "snapshots", snapshot.FileName(snap.Header.Tick))
				if err := snapshot.WriteSnapshot(path, snap); err != nil {
					logger.Error("snapshot write", zap.Error(err))
					continue
				}
				if idx != nil {
					idx.RecordSnapshot(path, snap)
				}
			}
		}
	}()

	go func() {
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("world stopped", zap.Error(err))
		}
	}()

	spawnStoredProfiles(ctx, w, db, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, *worldID, w, db)
	})

	if envBool("HUMANOID_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()) {
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(struct {
				WorldID string        `json:"world_id"`
				Tick    uint64        `json:"tick"`
				Metrics world.Metrics `json:"metrics"`
				Index   indexdb.Stats `json:"index"`
			}{*worldID, w.CurrentTick(), w.Metrics(), db.Stats()})
		})
		mux.HandleFunc("/admin/v1/profiles/spawn", spawnHandler(w, db))

		obsSrv := observer.NewServer(w, logger.Named("observer"))
		mux.HandleFunc("/admin/v1/observer/bootstrap", obsSrv.BootstrapHandler())
		mux.HandleFunc("/admin/v1/observer/ws", obsSrv.WSHandler())
	} else {
		logger.Info("admin endpoints disabled (HUMANOID_ENABLE_ADMIN_HTTP=false)")
	}
	if envBool("HUMANOID_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	wsSrv := ws.NewServer(w, logger.Named("ws"), validator)
	wsSrv.OutboxSize = tune.OutboxSize
	mux.HandleFunc("/v1/ws", wsSrv.Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Info("listening", zap.String("addr", *addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("ListenAndServe", zap.Error(err))
	}
}

// spawnStoredProfiles spawns every stored profile under its own id. Ids
// restored from a snapshot are rejected by the world and skipped.
func spawnStoredProfiles(ctx context.Context, w *world.World, db *indexdb.SQLiteIndex, logger *zap.Logger) {
	rows, err := db.ListProfiles(ctx)
	if err != nil {
		logger.Error("list profiles", zap.Error(err))
		return
	}
	spawned := 0
	for _, r := range rows {
		p, err := db.LoadProfile(ctx, r.ID)
		if err != nil {
			logger.Warn("load profile", zap.String("profile", r.ID), zap.Error(err))
			continue
		}
		resp, err := w.SpawnAndWait(ctx, world.SpawnRequest{ID: r.ID, Profile: p})
		if err != nil {
			return
		}
		if resp.Code == "" {
			spawned++
		} else if resp.Code != protocol.ErrBadRequest {
			logger.Warn("spawn profile", zap.String("profile", r.ID), zap.String("code", resp.Code))
		}
	}
	logger.Info("stored profiles spawned", zap.Int("spawned", spawned), zap.Int("stored", len(rows)))
}

// spawnHandler spawns a stored profile on demand: POST ?id=<profile id>.
func spawnHandler(w *world.World, db *indexdb.SQLiteIndex) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		id := strings.TrimSpace(r.URL.Query().Get("id"))
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		p, err := db.LoadProfile(ctx, id)
		if errors.Is(err, indexdb.ErrNotFound) {
			http.Error(rw, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)
			return
		}
		resp, err := w.SpawnAndWait(ctx, world.SpawnRequest{ID: id, Profile: p})
		rw.Header().Set("Content-Type", "application/json")
		if err != nil {
			rw.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
			return
		}
		if resp.Code != "" {
			rw.WriteHeader(http.StatusConflict)
		}
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": resp.Code == "", "entity_id": resp.EntityID, "code": resp.Code})
	}
}

func writeMetrics(rw http.ResponseWriter, worldID string, w *world.World, db *indexdb.SQLiteIndex) {
	m := w.Metrics()
	gauge := func(name, help string, v any) {
		fmt.Fprintf(rw, "# HELP %s %s\n", name, help)
		fmt.Fprintf(rw, "# TYPE %s gauge\n", name)
		fmt.Fprintf(rw, "%s{world=%q} %v\n", name, worldID, v)
	}
	gauge("humanoid_world_tick", "Current world tick.", w.CurrentTick())
	gauge("humanoid_world_entities", "Current number of entities.", m.Entities)
	gauge("humanoid_world_subscribers", "Attached renderer sessions.", m.Subscribers)
	gauge("humanoid_world_recomposed", "Entities recomposited in the last tick.", m.Recomposed)
	gauge("humanoid_world_inbox_depth", "Queued MODIFY commands.", m.InboxDepth)
	gauge("humanoid_world_step_ms", "Last tick step duration in milliseconds.", fmt.Sprintf("%.3f", m.StepMS))

	st := db.Stats()
	gauge("humanoid_index_queue_depth", "Composite index queue depth.", st.QueueDepth)
	gauge("humanoid_index_dropped_total", "Index rows dropped on a full queue.", st.DropCompositeTotal+st.DropSnapshotTotal)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func latestSnapshot(worldDir string) string {
	dir := filepath.Join(worldDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}
