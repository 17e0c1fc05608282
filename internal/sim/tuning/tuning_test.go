package tuning

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoad_RepoConfig(t *testing.T) {
	tune, err := Load("../../../configs/tuning.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tune.TickRateHz != 10 || tune.Logging.Level != "info" {
		t.Fatalf("unexpected tuning: %+v", tune)
	}
	if tune.TickDuration() != 100*time.Millisecond {
		t.Fatalf("tick duration %s", tune.TickDuration())
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("tick_rate_hz: 20\nlogging:\n  level: debug\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := Defaults()
	want.TickRateHz = 20
	want.Logging.Level = "debug"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tuning (-want +got):\n%s", diff)
	}
}

func TestLoad_Rejects(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"bad_yaml.yaml":   "tick_rate_hz: [",
		"zero_tick.yaml":  "tick_rate_hz: 0\n",
		"bad_format.yaml": "logging:\n  format: xml\n",
	} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "tuning.yaml") {
			t.Fatalf("%s: expected tuning.yaml error, got %v", name, err)
		}
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); !os.IsNotExist(err) {
		t.Fatalf("missing file should surface os.ErrNotExist, got %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("HUMANOID_TICK_RATE_HZ", "30")
	t.Setenv("HUMANOID_LOG_LEVEL", "warn")
	t.Setenv("HUMANOID_LOG_FORMAT", "console")
	t.Setenv("HUMANOID_RATE_MODIFY_MAX", "5")

	tune := Defaults()
	if err := ApplyEnv(&tune); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if tune.TickRateHz != 30 || tune.Logging.Level != "warn" || tune.Logging.Format != "console" || tune.RateLimits.ModifyMax != 5 {
		t.Fatalf("overrides not applied: %+v", tune)
	}
	if tune.SnapshotEveryTicks != Defaults().SnapshotEveryTicks {
		t.Fatalf("unset variable changed a field")
	}
}

func TestApplyEnv_BadValue(t *testing.T) {
	t.Setenv("HUMANOID_TICK_RATE_HZ", "fast")
	tune := Defaults()
	if err := ApplyEnv(&tune); err == nil {
		t.Fatalf("expected parse error")
	}
}
