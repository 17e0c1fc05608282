package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"humanoidcraft.ai/internal/sim/appearance"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
}

// Catalogs pins the catalog digests a snapshot was taken against.
type Catalogs struct {
	Species      string `json:"species"`
	SpriteSets   string `json:"sprite_sets"`
	SpriteLayers string `json:"sprite_layers"`
	Markings     string `json:"markings"`
}

type Snapshot struct {
	Header Header `json:"header"`

	TickRate           int      `json:"tick_rate_hz"`
	SnapshotEveryTicks int      `json:"snapshot_every_ticks,omitempty"`
	Catalogs           Catalogs `json:"catalogs"`

	Entities []Entity `json:"entities"`
}

// Entity is the authoritative state of one humanoid. Render state is not
// stored; it is recomposited after import.
type Entity struct {
	ID         string                `json:"id"`
	Name       string                `json:"name"`
	SpawnTick  uint64                `json:"spawn_tick"`
	Appearance appearance.Appearance `json:"appearance"`
}

// Encode writes a JSON header line followed by the gob body, all zstd
// compressed.
func Encode(w io.Writer, snap Snapshot) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func Decode(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	dec, err := zstd.NewReader(r)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The header is repeated inside the gob body.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return snap, nil
}

func WriteSnapshot(path string, snap Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := Encode(f, snap); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func ReadSnapshot(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, err
	}
	defer f.Close()
	snap, err := Decode(f)
	if err != nil {
		return snap, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return snap, nil
}

// ReadHeader reads only the header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()
	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}

// FileName is the conventional snapshot file name for a tick.
func FileName(tick uint64) string {
	return fmt.Sprintf("%012d.snap.zst", tick)
}
