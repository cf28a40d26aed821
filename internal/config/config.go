package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Plugins PluginConfig  `mapstructure:"plugins"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// StorageConfig defines storage backend settings
type StorageConfig struct {
	Type        string      `mapstructure:"type"`
	StatePath   string      `mapstructure:"state_path"`
	RecordPath  string      `mapstructure:"record_path"`
	LockTimeout string      `mapstructure:"lock_timeout"`
	Redis       RedisConfig `mapstructure:"redis"`
}

// RedisConfig defines Redis connection settings
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	KeyPrefix    string `mapstructure:"key_prefix"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	LockTTL      string `mapstructure:"lock_ttl"`
}

// PluginConfig defines upload plugin discovery and execution
type PluginConfig struct {
	Dir             string `mapstructure:"dir"`
	Timeout         string `mapstructure:"timeout"` // empty means wait indefinitely
	ConfigCacheSize int    `mapstructure:"config_cache_size"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig defines the optional Prometheus textfile export
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// LockTimeoutDuration returns the parsed storage lock timeout.
func (c StorageConfig) LockTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.LockTimeout)
	return d
}

// TimeoutDuration returns the plugin timeout, zero when unset.
func (c PluginConfig) TimeoutDuration() time.Duration {
	if c.Timeout == "" {
		return 0
	}
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// DefaultPath returns the config file used when --config is not given
func DefaultPath() string {
	return expandHome("~/.timelog/config.yaml")
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure viper
	v.SetConfigFile(configPath)
	v.SetEnvPrefix("TIMELOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Historical overrides predate the config file
	_ = v.BindEnv("storage.state_path", "TIMELOG_STATE_PATH", "TIMELOG_STORAGE_STATE_PATH")
	_ = v.BindEnv("storage.record_path", "TIMELOG_RECORD_PATH", "TIMELOG_STORAGE_RECORD_PATH")
	_ = v.BindEnv("plugins.dir", "TIMELOG_PLUGIN_PATH", "TIMELOG_PLUGINS_DIR")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	// Unmarshal config
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate config
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Storage defaults
	v.SetDefault("storage.type", "file")
	v.SetDefault("storage.state_path", "~/.timelog-state")
	v.SetDefault("storage.record_path", "~/.timelog-record")
	v.SetDefault("storage.lock_timeout", "2s")

	// Redis defaults
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.key_prefix", "timelog")
	v.SetDefault("storage.redis.dial_timeout", "5s")
	v.SetDefault("storage.redis.read_timeout", "3s")
	v.SetDefault("storage.redis.write_timeout", "3s")
	v.SetDefault("storage.redis.lock_ttl", "30s")

	// Plugin defaults
	v.SetDefault("plugins.dir", "~/.timelog/plugins")
	v.SetDefault("plugins.timeout", "")
	v.SetDefault("plugins.config_cache_size", 32)

	// Logging defaults
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "text")

	v.SetDefault("metrics.textfile", "")
}

// validate validates the configuration
func validate(cfg *Config) error {
	switch cfg.Storage.Type {
	case "file":
		if cfg.Storage.StatePath == "" {
			return fmt.Errorf("storage state path is required")
		}
		if cfg.Storage.RecordPath == "" {
			return fmt.Errorf("storage record path is required")
		}
	case "redis":
		if cfg.Storage.Redis.Host == "" {
			return fmt.Errorf("redis host is required")
		}
	default:
		return fmt.Errorf("unsupported storage type: %q", cfg.Storage.Type)
	}

	if _, err := time.ParseDuration(cfg.Storage.LockTimeout); err != nil {
		return fmt.Errorf("invalid storage lock_timeout: %w", err)
	}

	if cfg.Plugins.Timeout != "" {
		d, err := time.ParseDuration(cfg.Plugins.Timeout)
		if err != nil {
			return fmt.Errorf("invalid plugins timeout: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("plugins timeout must not be negative")
		}
	}
	if cfg.Plugins.ConfigCacheSize <= 0 {
		cfg.Plugins.ConfigCacheSize = 32
	}

	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid logging format: %q", cfg.Logging.Format)
	}

	cfg.Storage.StatePath = expandHome(cfg.Storage.StatePath)
	cfg.Storage.RecordPath = expandHome(cfg.Storage.RecordPath)
	cfg.Plugins.Dir = expandHome(cfg.Plugins.Dir)
	cfg.Metrics.Textfile = expandHome(cfg.Metrics.Textfile)

	return nil
}

// expandHome replaces a leading ~ with the user's home directory. When the
// home directory cannot be determined the path is used relative to the
// working directory, as the historical tool did.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
