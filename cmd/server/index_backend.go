package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"humanoidcraft.ai/internal/persistence/indexdb"
	"humanoidcraft.ai/internal/persistence/snapshot"
	"humanoidcraft.ai/internal/sim/catalogs"
	"humanoidcraft.ai/internal/sim/tuning"
	"humanoidcraft.ai/internal/sim/world"
)

// runtimeIndex is a read-model sink; it never affects compositing.
type runtimeIndex interface {
	world.CompositeSink
	Close() error
	UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error
	RecordSnapshot(path string, snap snapshot.Snapshot)
}

// openRuntimeIndex picks the composite index backend. The sqlite backend
// reuses the profile database.
func openRuntimeIndex(db *indexdb.SQLiteIndex, worldID string, disable bool, logger *zap.Logger) (runtimeIndex, error) {
	if disable {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("HUMANOID_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return nopCloser{db}, nil
	case "remote":
		endpoint := strings.TrimSpace(os.Getenv("HUMANOID_INDEX_INGEST_URL"))
		if endpoint == "" {
			return nil, fmt.Errorf("HUMANOID_INDEX_BACKEND=remote but HUMANOID_INDEX_INGEST_URL is empty")
		}
		return indexdb.OpenRemote(indexdb.RemoteConfig{
			Endpoint:      endpoint,
			Token:         strings.TrimSpace(os.Getenv("HUMANOID_INDEX_TOKEN")),
			WorldID:       worldID,
			BatchSize:     envInt("HUMANOID_INDEX_BATCH_SIZE", 128),
			FlushInterval: time.Duration(envInt("HUMANOID_INDEX_FLUSH_MS", 500)) * time.Millisecond,
			Logger:        logger.Named("remote_index"),
		})
	default:
		return nil, fmt.Errorf("unsupported HUMANOID_INDEX_BACKEND: %s", backend)
	}
}

// nopCloser keeps the shared sqlite handle open until main closes it.
type nopCloser struct{ *indexdb.SQLiteIndex }

func (nopCloser) Close() error { return nil }

// multiSink fans composite entries out to every non-nil sink.
type multiSink []world.CompositeSink

func (m multiSink) WriteComposite(e world.CompositeEntry) error {
	for _, s := range m {
		if s != nil {
			_ = s.WriteComposite(e)
		}
	}
	return nil
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
