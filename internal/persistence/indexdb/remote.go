package indexdb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"humanoidcraft.ai/internal/persistence/snapshot"
	"humanoidcraft.ai/internal/sim/catalogs"
	"humanoidcraft.ai/internal/sim/tuning"
	"humanoidcraft.ai/internal/sim/world"
)

// RemoteConfig configures an HTTP ingest endpoint that receives the same
// rows as the sqlite index, batched as JSON.
type RemoteConfig struct {
	Endpoint      string
	Token         string
	WorldID       string
	BatchSize     int
	FlushInterval time.Duration
	HTTPTimeout   time.Duration
	Logger        *zap.Logger
}

type RemoteIndex struct {
	cfg        RemoteConfig
	httpClient *http.Client

	ch   chan remoteEvent
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	flushFail atomic.Uint64
	dropped   atomic.Uint64
}

type remoteEvent struct {
	Kind    string `json:"kind"`
	WorldID string `json:"world_id"`
	Payload any    `json:"payload"`
}

type remoteSnapshotPayload struct {
	Tick     uint64 `json:"tick"`
	Path     string `json:"path"`
	Entities int    `json:"entities"`
}

type remoteCatalogPayload struct {
	Name      string `json:"name"`
	Digest    string `json:"digest"`
	JSON      string `json:"json"`
	UpdatedAt string `json:"updated_at"`
}

type RemoteStats struct {
	QueueDepth        int    `json:"queue_depth"`
	FlushFailTotal    uint64 `json:"flush_fail_total"`
	QueueDroppedTotal uint64 `json:"queue_dropped_total"`
}

// maxRetained bounds the batch kept across failed flushes.
const maxRetained = 8192

func OpenRemote(cfg RemoteConfig) (*RemoteIndex, error) {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.WorldID = strings.TrimSpace(cfg.WorldID)
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("empty ingest endpoint")
	}
	if cfg.WorldID == "" {
		return nil, fmt.Errorf("empty world id")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 128
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 500 * time.Millisecond
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	d := &RemoteIndex{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		ch:         make(chan remoteEvent, 32768),
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.loop()
	}()
	return d, nil
}

func (d *RemoteIndex) Close() error {
	if d == nil {
		return nil
	}
	d.once.Do(func() {
		d.closed.Store(true)
		close(d.ch)
		d.wg.Wait()
	})
	return nil
}

func (d *RemoteIndex) Stats() RemoteStats {
	return RemoteStats{
		QueueDepth:        len(d.ch),
		FlushFailTotal:    d.flushFail.Load(),
		QueueDroppedTotal: d.dropped.Load(),
	}
}

func (d *RemoteIndex) WriteComposite(e world.CompositeEntry) error {
	d.enqueue(remoteEvent{Kind: "composite", WorldID: d.cfg.WorldID, Payload: e})
	return nil
}

func (d *RemoteIndex) RecordSnapshot(path string, snap snapshot.Snapshot) {
	d.enqueue(remoteEvent{Kind: "snapshot", WorldID: d.cfg.WorldID, Payload: remoteSnapshotPayload{
		Tick:     snap.Header.Tick,
		Path:     path,
		Entities: len(snap.Entities),
	}})
}

func (d *RemoteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if cats == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, r := range catalogRows(configDir, cats, tune) {
		d.enqueue(remoteEvent{Kind: "catalog", WorldID: d.cfg.WorldID, Payload: remoteCatalogPayload{
			Name:      r.name,
			Digest:    r.digest,
			JSON:      string(r.data),
			UpdatedAt: now,
		}})
	}
	return nil
}

func (d *RemoteIndex) enqueue(ev remoteEvent) {
	if d == nil || d.closed.Load() {
		return
	}
	select {
	case d.ch <- ev:
	default:
		d.dropped.Add(1)
		d.cfg.Logger.Warn("remote index queue full", zap.String("kind", ev.Kind))
	}
}

// loop batches events and keeps a failed batch for the next flush.
func (d *RemoteIndex) loop() {
	ticker := time.NewTicker(d.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]remoteEvent, 0, d.cfg.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := d.sendBatch(batch); err != nil {
			d.flushFail.Add(1)
			d.cfg.Logger.Warn("remote index flush failed", zap.Int("batch", len(batch)), zap.Error(err))
			if len(batch) > maxRetained {
				n := len(batch) - maxRetained
				d.dropped.Add(uint64(n))
				batch = append(batch[:0], batch[n:]...)
			}
			return
		}
		batch = batch[:0]
	}

	for {
		select {
		case ev, ok := <-d.ch:
			if !ok {
				flush()
				return
			}
			batch = append(batch, ev)
			if len(batch) >= d.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (d *RemoteIndex) sendBatch(events []remoteEvent) error {
	body := struct {
		Events []remoteEvent `json:"events"`
	}{Events: events}
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		req, err := http.NewRequest(http.MethodPost, d.cfg.Endpoint, bytes.NewReader(buf))
		if err != nil {
			return err
		}
		req.Header.Set("content-type", "application/json")
		if d.cfg.Token != "" {
			req.Header.Set("x-index-token", d.cfg.Token)
		}

		resp, err := d.httpClient.Do(req)
		if err == nil {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
			_ = resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil
			}
			err = fmt.Errorf("status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		}
		lastErr = err
		time.Sleep(time.Duration(100*(1<<attempt)) * time.Millisecond)
	}
	return lastErr
}
