// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/osa030/soundbridge/internal/domain/bridge"
	"github.com/osa030/soundbridge/internal/domain/track"
)

// Config represents the application configuration.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Cache   CacheConfig   `yaml:"cache"`
	Storage StorageConfig `yaml:"storage"`
	Bridge  bridge.Config `yaml:"bridge"`
	Session SessionConfig `yaml:"session"`
	Metrics MetricsConfig `yaml:"metrics"`
	Catalog CatalogConfig `yaml:"catalog"`
}

// EngineConfig represents audio output configuration.
type EngineConfig struct {
	SampleRate int           `yaml:"sample_rate" default:"44100" validate:"gte=8000,lte=192000"`
	Channels   int           `yaml:"channels" default:"2" validate:"oneof=1 2"`
	BufferSize time.Duration `yaml:"buffer_size" default:"50ms" validate:"gt=0"`
}

// CacheConfig represents buffer cache configuration.
type CacheConfig struct {
	MaxBytes           int64         `yaml:"max_bytes" default:"536870912"` // negative = unbounded
	LoadTimeout        time.Duration `yaml:"load_timeout" default:"30s" validate:"gt=0"`
	PreloadConcurrency int           `yaml:"preload_concurrency" default:"4" validate:"gte=1,lte=64"`
}

// StorageConfig represents the storage resolver configuration.
type StorageConfig struct {
	Type     string         `yaml:"type" default:"direct" validate:"oneof=direct s3"`
	Settings map[string]any `yaml:"settings"`
}

// SessionConfig represents session recording configuration.
type SessionConfig struct {
	BackupDir     string        `yaml:"backup_dir" default:"sessions"`
	RetryAttempts int           `yaml:"retry_attempts" default:"3" validate:"gte=1,lte=10"`
	RetryDelay    time.Duration `yaml:"retry_delay" default:"1s" validate:"gte=0"`
}

// MetricsConfig represents the metrics endpoint configuration.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the endpoint
}

// CatalogConfig lists the songs and environmental sounds.
type CatalogConfig struct {
	Songs  []track.Song               `yaml:"songs" validate:"dive"`
	Sounds []track.EnvironmentalSound `yaml:"sounds" validate:"dive"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SOUNDBRIDGE_STORAGE_BUCKET"); v != "" {
		c.setStorageSetting("bucket", v)
	}
	if v := os.Getenv("SOUNDBRIDGE_STORAGE_ENDPOINT"); v != "" {
		c.setStorageSetting("endpoint", v)
	}
	if v := os.Getenv("SOUNDBRIDGE_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
}

func (c *Config) setStorageSetting(key string, v any) {
	if c.Storage.Settings == nil {
		c.Storage.Settings = make(map[string]any)
	}
	c.Storage.Settings[key] = v
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if err := c.Bridge.Validate(); err != nil {
		return errors.Wrap(err, "invalid bridge defaults")
	}

	if id := c.Bridge.EnvironmentalSoundID; id != "" && len(c.Catalog.Sounds) > 0 && !c.hasSound(id) {
		return errors.Newf("default environmental sound %q is not in the catalog", id)
	}

	return nil
}

func (c *Config) hasSound(id string) bool {
	for _, s := range c.Catalog.Sounds {
		if s.ID == id {
			return true
		}
	}
	return false
}
