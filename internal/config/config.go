// Package config loads engine settings from defaults, an optional TOML file
// and GLOBE_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/signalsfoundry/holo-globe/core"
	"github.com/signalsfoundry/holo-globe/internal/logging"
	"github.com/signalsfoundry/holo-globe/internal/observability"
)

// EnvPrefix prefixes every environment override, e.g. GLOBE_ENGINE_TICK_INTERVAL.
const EnvPrefix = "GLOBE"

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds application configuration.
type Config struct {
	Engine     EngineConfig     `mapstructure:"engine"`
	Regions    RegionsConfig    `mapstructure:"regions"`
	Perception PerceptionConfig `mapstructure:"perception"`
	Server     ServerConfig     `mapstructure:"server"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	Log        LogConfig        `mapstructure:"log"`
}

// EngineConfig holds the frame clock and orbit tuning.
type EngineConfig struct {
	TickInterval    time.Duration `mapstructure:"tick_interval"`
	HoverInterval   time.Duration `mapstructure:"hover_interval"`
	DragSensitivity float64       `mapstructure:"drag_sensitivity"`
	Damping         float64       `mapstructure:"damping"`
	GestureDamping  float64       `mapstructure:"gesture_damping"`
	IdleDrift       float64       `mapstructure:"idle_drift"`
	PitchLimit      float64       `mapstructure:"pitch_limit"`
	InitialDistance float64       `mapstructure:"initial_distance"`
	FOV             float64       `mapstructure:"fov"`
	FocusBlend      float64       `mapstructure:"focus_blend"`
	FocusEpsilon    float64       `mapstructure:"focus_epsilon"`
}

// RegionsConfig points at the boundary dataset.
type RegionsConfig struct {
	Path string `mapstructure:"path"`
}

// PerceptionConfig selects the hand landmark source.
type PerceptionConfig struct {
	Source       string        `mapstructure:"source"` // none | replay
	ReplayPath   string        `mapstructure:"replay_path"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Loop         bool          `mapstructure:"loop"`
}

// ServerConfig holds listen addresses.
type ServerConfig struct {
	GRPCAddr    string `mapstructure:"grpc_addr"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// KafkaConfig controls click result publishing.
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// TracingConfig mirrors observability.TracingConfig.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Exporter    string  `mapstructure:"exporter"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	orbit := core.DefaultOrbitConfig()
	focus := core.DefaultFocusConfig()
	tracing := observability.DefaultTracingConfig()

	v.SetDefault("engine.tick_interval", 16*time.Millisecond)
	v.SetDefault("engine.hover_interval", core.DefaultHoverInterval)
	v.SetDefault("engine.drag_sensitivity", orbit.DragSensitivity)
	v.SetDefault("engine.damping", orbit.Damping)
	v.SetDefault("engine.gesture_damping", orbit.GestureDamping)
	v.SetDefault("engine.idle_drift", orbit.IdleDrift)
	v.SetDefault("engine.pitch_limit", orbit.PitchLimit)
	v.SetDefault("engine.initial_distance", orbit.InitialDistance)
	v.SetDefault("engine.fov", core.DefaultFOV)
	v.SetDefault("engine.focus_blend", focus.Blend)
	v.SetDefault("engine.focus_epsilon", focus.Epsilon)

	v.SetDefault("regions.path", "")

	v.SetDefault("perception.source", "none")
	v.SetDefault("perception.replay_path", "")
	v.SetDefault("perception.poll_interval", 33*time.Millisecond)
	v.SetDefault("perception.loop", false)

	v.SetDefault("server.grpc_addr", ":50071")
	v.SetDefault("server.metrics_addr", ":9091")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "globe.clicks")

	v.SetDefault("tracing.enabled", tracing.Enabled)
	v.SetDefault("tracing.service_name", tracing.ServiceName)
	v.SetDefault("tracing.exporter", tracing.Exporter)
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.sample_ratio", tracing.SampleRatio)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration from file and env. The file named by GLOBE_CONFIG
// must exist when set; otherwise ./globe.toml is read if present.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")
	cfgPath := os.Getenv(EnvPrefix + "_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("globe")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadDotEnv loads variables from the given .env files without overriding
// ones already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Validate checks the settings the engine cannot run without.
func (c Config) Validate() error {
	e := c.Engine
	switch {
	case e.TickInterval <= 0:
		return fmt.Errorf("%w: engine.tick_interval must be positive", ErrInvalidConfig)
	case e.HoverInterval < 0:
		return fmt.Errorf("%w: engine.hover_interval must not be negative", ErrInvalidConfig)
	case e.PitchLimit <= 0 || e.PitchLimit >= math.Pi/2:
		return fmt.Errorf("%w: engine.pitch_limit must be in (0, pi/2)", ErrInvalidConfig)
	case e.Damping <= 0 || e.Damping >= 1:
		return fmt.Errorf("%w: engine.damping must be in (0, 1)", ErrInvalidConfig)
	case e.FocusBlend <= 0 || e.FocusBlend > 1:
		return fmt.Errorf("%w: engine.focus_blend must be in (0, 1]", ErrInvalidConfig)
	case e.InitialDistance <= core.GlobeRadius:
		return fmt.Errorf("%w: engine.initial_distance must be outside the globe", ErrInvalidConfig)
	}
	switch c.Perception.Source {
	case "", "none":
	case "replay":
		if c.Perception.ReplayPath == "" {
			return fmt.Errorf("%w: perception.replay_path is required for the replay source", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown perception.source %q", ErrInvalidConfig, c.Perception.Source)
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("%w: kafka needs brokers and a topic when enabled", ErrInvalidConfig)
	}
	return nil
}

// Orbit returns the orbit controller tuning.
func (c Config) Orbit() core.OrbitConfig {
	o := core.DefaultOrbitConfig()
	o.DragSensitivity = c.Engine.DragSensitivity
	o.Damping = c.Engine.Damping
	o.GestureDamping = c.Engine.GestureDamping
	o.IdleDrift = c.Engine.IdleDrift
	o.PitchLimit = c.Engine.PitchLimit
	o.InitialDistance = c.Engine.InitialDistance
	return o
}

// Focus returns the focus animator tuning.
func (c Config) Focus() core.FocusConfig {
	return core.FocusConfig{Blend: c.Engine.FocusBlend, Epsilon: c.Engine.FocusEpsilon}
}

// TracingSettings converts to the observability form.
func (c Config) TracingSettings() observability.TracingConfig {
	return observability.TracingConfig{
		Enabled:     c.Tracing.Enabled,
		ServiceName: c.Tracing.ServiceName,
		Exporter:    c.Tracing.Exporter,
		Endpoint:    c.Tracing.Endpoint,
		SampleRatio: c.Tracing.SampleRatio,
	}
}

// Logging converts to the logging form.
func (c Config) Logging() logging.Config {
	return logging.Config{Level: c.Log.Level, Format: c.Log.Format, AddSource: true}
}
