package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/mskavach/kavach/engine"
)

// Config holds user-configurable timings and integrations.
type Config struct {
	EdgeBuzzerTime    time.Duration  `yaml:"edge_buzzer_time" validate:"gt=0"`
	EscalationDelay   time.Duration  `yaml:"escalation_delay" validate:"gt=0"`
	ControlAudioDelay time.Duration  `yaml:"control_audio_delay" validate:"gt=0"`
	TickInterval      time.Duration  `yaml:"tick_interval" validate:"gt=0"`
	ProcessingDelay   time.Duration  `yaml:"processing_delay" validate:"gte=0"`
	LogLevel          string         `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFile           string         `yaml:"log_file"`
	MetricsAddr       string         `yaml:"metrics_addr" validate:"omitempty,hostname_port"`
	Cues              CueConfig      `yaml:"cues"`
	Location          LocationConfig `yaml:"location"`
}

// CueConfig binds local commands to deterrence and control-room cues.
type CueConfig struct {
	BuzzerCommand  string `yaml:"buzzer_command"`
	ControlCommand string `yaml:"control_command"`
}

// LocationConfig is the device location shown to the control room.
type LocationConfig struct {
	Name string  `yaml:"name"`
	Lat  float64 `yaml:"lat" validate:"gte=-90,lte=90"`
	Lon  float64 `yaml:"lon" validate:"gte=-180,lte=180"`
}

// MapsURL returns a map link for the location.
func (l LocationConfig) MapsURL() string {
	return fmt.Sprintf("https://maps.google.com/?q=%.4f,%.4f", l.Lat, l.Lon)
}

// Default returns a config with the stock escalation timings.
func Default() Config {
	return Config{
		EdgeBuzzerTime:    engine.DefaultEdgeBuzzerTime,
		EscalationDelay:   engine.DefaultEscalationDelay,
		ControlAudioDelay: engine.DefaultControlAudioDelay,
		TickInterval:      engine.DefaultTickInterval,
		ProcessingDelay:   2 * time.Second,
		LogLevel:          "info",
		MetricsAddr:       "127.0.0.1:9450",
		Location: LocationConfig{
			Name: "MVP Colony Junction, Visakhapatnam",
			Lat:  17.7430,
			Lon:  83.3194,
		},
	}
}

// Path returns ~/.config/kavach/config.yaml (or under XDG_CONFIG_HOME).
// Returns empty string if home directory cannot be determined.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "kavach", "config.yaml")
}

// Load reads the config at path over the defaults. An empty path uses
// Path(); a missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = Path()
	}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks ranges. Zero thresholds are rejected: they would let two
// transitions fire at the same instant.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s (got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Save writes the config to path (or Path() when empty).
func Save(path string, cfg Config) error {
	if path == "" {
		path = Path()
	}
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Timings converts the config into engine thresholds.
func (c Config) Timings() engine.Timings {
	return engine.Timings{
		EdgeBuzzerTime:    c.EdgeBuzzerTime,
		EscalationDelay:   c.EscalationDelay,
		ControlAudioDelay: c.ControlAudioDelay,
	}
}

// Session converts the config into a session configuration.
func (c Config) Session() engine.SessionConfig {
	return engine.SessionConfig{
		Timings:      c.Timings(),
		TickInterval: c.TickInterval,
		Cues: engine.CueConfig{
			BuzzerCommand:  c.Cues.BuzzerCommand,
			ControlCommand: c.Cues.ControlCommand,
		},
	}
}

// Level parses LogLevel into a slog level.
func (c Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}
