package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GLOBE_CONFIG", "")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 16*time.Millisecond, c.Engine.TickInterval)
	assert.Equal(t, 100*time.Millisecond, c.Engine.HoverInterval)
	assert.Equal(t, 0.6, c.Engine.PitchLimit)
	assert.Equal(t, 0.95, c.Engine.Damping)
	assert.Equal(t, "none", c.Perception.Source)
	assert.False(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"localhost:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "globe.clicks", c.Kafka.Topic)

	orbit := c.Orbit()
	assert.Equal(t, 0.003, orbit.DragSensitivity)
	assert.Equal(t, 2.5, orbit.InitialDistance)
	assert.Equal(t, 0.08, c.Focus().Blend)
	assert.Equal(t, "globe-engine", c.TracingSettings().ServiceName)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("GLOBE_CONFIG", "")
	t.Setenv("GLOBE_ENGINE_TICK_INTERVAL", "8ms")
	t.Setenv("GLOBE_ENGINE_PITCH_LIMIT", "0.5")
	t.Setenv("GLOBE_KAFKA_ENABLED", "true")
	t.Setenv("GLOBE_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("GLOBE_LOG_LEVEL", "debug")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8*time.Millisecond, c.Engine.TickInterval)
	assert.Equal(t, 0.5, c.Orbit().PitchLimit)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "debug", c.Logging().Level)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "globe.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[engine]
hover_interval = "250ms"
idle_drift = 0.0001

[regions]
path = "/data/countries.geojson"

[perception]
source = "replay"
replay_path = "/data/wave.jsonl"
`), 0o644))
	t.Setenv("GLOBE_CONFIG", path)

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, c.Engine.HoverInterval)
	assert.Equal(t, 0.0001, c.Orbit().IdleDrift)
	assert.Equal(t, "/data/countries.geojson", c.Regions.Path)
	assert.Equal(t, "replay", c.Perception.Source)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Setenv("GLOBE_CONFIG", filepath.Join(t.TempDir(), "absent.toml"))
	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("GLOBE_CONFIG", "")
	base, err := Load()
	require.NoError(t, err)

	cases := map[string]func(*Config){
		"zero tick":        func(c *Config) { c.Engine.TickInterval = 0 },
		"pitch too large":  func(c *Config) { c.Engine.PitchLimit = 2 },
		"no damping":       func(c *Config) { c.Engine.Damping = 1 },
		"camera inside":    func(c *Config) { c.Engine.InitialDistance = 0.5 },
		"replay no path":   func(c *Config) { c.Perception.Source = "replay" },
		"unknown source":   func(c *Config) { c.Perception.Source = "webcam" },
		"kafka no brokers": func(c *Config) { c.Kafka.Enabled = true; c.Kafka.Brokers = nil },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base
			mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("GLOBE_TEST_DOTENV=from-file\n"), 0o644))

	t.Setenv("GLOBE_TEST_DOTENV", "")
	os.Unsetenv("GLOBE_TEST_DOTENV")

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "from-file", os.Getenv("GLOBE_TEST_DOTENV"))
}
