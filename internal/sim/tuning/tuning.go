package tuning

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HUMANOID_"

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version" env:"PROTOCOL_VERSION"`

	TickRateHz         int `yaml:"tick_rate_hz" env:"TICK_RATE_HZ"`
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks" env:"SNAPSHOT_EVERY_TICKS"`
	MaxEntities        int `yaml:"max_entities" env:"MAX_ENTITIES"`
	InboxSize          int `yaml:"inbox_size" env:"INBOX_SIZE"`
	OutboxSize         int `yaml:"outbox_size" env:"OUTBOX_SIZE"`

	Logging    Logging    `yaml:"logging" envPrefix:"LOG_"`
	RateLimits RateLimits `yaml:"rate_limits" envPrefix:"RATE_"`
}

type Logging struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// RateLimits caps client MODIFY traffic per entity.
type RateLimits struct {
	ModifyWindowTicks int `yaml:"modify_window_ticks" env:"MODIFY_WINDOW_TICKS"`
	ModifyMax         int `yaml:"modify_max" env:"MODIFY_MAX"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:    "1.0",
		TickRateHz:         10,
		SnapshotEveryTicks: 3000,
		MaxEntities:        512,
		InboxSize:          1024,
		OutboxSize:         64,
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
		RateLimits: RateLimits{
			ModifyWindowTicks: 10,
			ModifyMax:         20,
		},
	}
}

// Load reads a tuning file on top of Defaults. Keys missing from the file keep
// their default.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// ApplyEnv overrides fields from HUMANOID_* environment variables. Unset
// variables leave the field alone.
func ApplyEnv(t *Tuning) error {
	if err := env.ParseWithOptions(t, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("tuning env: %w", err)
	}
	return t.Validate()
}

func (t Tuning) Validate() error {
	var errs []error
	if t.TickRateHz <= 0 {
		errs = append(errs, fmt.Errorf("tick_rate_hz must be positive, got %d", t.TickRateHz))
	}
	if t.SnapshotEveryTicks < 0 {
		errs = append(errs, fmt.Errorf("snapshot_every_ticks must not be negative, got %d", t.SnapshotEveryTicks))
	}
	if t.MaxEntities <= 0 {
		errs = append(errs, fmt.Errorf("max_entities must be positive, got %d", t.MaxEntities))
	}
	if t.InboxSize <= 0 || t.OutboxSize <= 0 {
		errs = append(errs, errors.New("inbox_size and outbox_size must be positive"))
	}
	switch t.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q: want json or console", t.Logging.Format))
	}
	if t.RateLimits.ModifyWindowTicks < 0 || t.RateLimits.ModifyMax < 0 {
		errs = append(errs, errors.New("rate_limits must not be negative"))
	}
	return errors.Join(errs...)
}

func (t Tuning) TickDuration() time.Duration {
	if t.TickRateHz <= 0 {
		return time.Second
	}
	return time.Second / time.Duration(t.TickRateHz)
}
