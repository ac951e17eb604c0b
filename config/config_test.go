package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3*time.Second, cfg.EdgeBuzzerTime)
	assert.Equal(t, 5*time.Second, cfg.EscalationDelay)
	assert.Equal(t, 5*time.Second, cfg.ControlAudioDelay)
	assert.Equal(t, 500*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, "https://maps.google.com/?q=17.7430,83.3194", cfg.Location.MapsURL())
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
edge_buzzer_time: 2s
escalation_delay: 4500ms
log_level: debug
cues:
  buzzer_command: aplay assets/buzzer.wav
location:
  name: Beach Road
  lat: 17.71
  lon: 83.32
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.EdgeBuzzerTime)
	assert.Equal(t, 4500*time.Millisecond, cfg.EscalationDelay)
	assert.Equal(t, 5*time.Second, cfg.ControlAudioDelay, "unset fields keep defaults")
	assert.Equal(t, "aplay assets/buzzer.wav", cfg.Cues.BuzzerCommand)
	assert.Equal(t, "Beach Road", cfg.Location.Name)
	assert.Equal(t, slog.LevelDebug, cfg.Level())

	s := cfg.Session()
	assert.Equal(t, cfg.EdgeBuzzerTime, s.Timings.EdgeBuzzerTime)
	assert.Equal(t, cfg.TickInterval, s.TickInterval)
	assert.Equal(t, "aplay assets/buzzer.wav", s.Cues.BuzzerCommand)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"zero_threshold", "edge_buzzer_time: 0s\n", "EdgeBuzzerTime"},
		{"negative_delay", "escalation_delay: -1s\n", "EscalationDelay"},
		{"bad_level", "log_level: chatty\n", "LogLevel"},
		{"bad_addr", "metrics_addr: not-an-addr\n", "MetricsAddr"},
		{"bad_lat", "location:\n  lat: 120\n", "Lat"},
		{"bad_yaml", "edge_buzzer_time: [\n", "parse config"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(c.yaml), 0600))
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), c.want)
		})
	}
}

func TestMetricsAddrMayBeEmpty(t *testing.T) {
	cfg := Default()
	cfg.MetricsAddr = ""
	assert.NoError(t, cfg.Validate())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.EscalationDelay = 7 * time.Second
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestPathHonorsXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	assert.Equal(t, filepath.Join(dir, "kavach", "config.yaml"), Path())
}
