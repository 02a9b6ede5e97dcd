// Package config loads sector-intel settings from defaults, an optional YAML
// file and SECTOR_INTEL_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "SECTOR_INTEL"

type Config struct {
	API      APIConfig      `mapstructure:"api"      yaml:"api"`
	Server   ServerConfig   `mapstructure:"server"   yaml:"server"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Query    QueryConfig    `mapstructure:"query"    yaml:"query"`
	Render   RenderConfig   `mapstructure:"render"   yaml:"render"`
	Sessions SessionsConfig `mapstructure:"sessions" yaml:"sessions"`
	Log      LogConfig      `mapstructure:"log"      yaml:"log"`
	Tracing  TracingConfig  `mapstructure:"tracing"  yaml:"tracing"`
}

// APIConfig points at the backend. A zero timeout leaves the HTTP client
// without a deadline; pipeline runs block until the backend finishes.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"  yaml:"timeout"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
	Mode string `mapstructure:"mode" yaml:"mode"` // gin mode: release, debug, test
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type QueryConfig struct {
	StaleTime     time.Duration `mapstructure:"stale_time"      yaml:"stale_time"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"     yaml:"retry_delay"`
	MaxRetryDelay time.Duration `mapstructure:"max_retry_delay" yaml:"max_retry_delay"`
}

type RenderConfig struct {
	Wait           time.Duration `mapstructure:"wait"            yaml:"wait"`
	RefreshSeconds int           `mapstructure:"refresh_seconds" yaml:"refresh_seconds"`
}

type SessionsConfig struct {
	IdleTTL time.Duration `mapstructure:"idle_ttl" yaml:"idle_ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type TracingConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Pretty  bool `mapstructure:"pretty"  yaml:"pretty"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8000")
	v.SetDefault("api.timeout", time.Duration(0))

	v.SetDefault("server.addr", ":8090")
	v.SetDefault("server.mode", "release")

	v.SetDefault("database.path", "sector-intel.db")

	v.SetDefault("query.stale_time", 5*time.Minute)
	v.SetDefault("query.retry_delay", time.Second)
	v.SetDefault("query.max_retry_delay", 30*time.Second)

	v.SetDefault("render.wait", 2*time.Second)
	v.SetDefault("render.refresh_seconds", 2)

	v.SetDefault("sessions.idle_ttl", 30*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.pretty", false)
}

// Load reads configuration. When path is empty, config.yaml is searched for
// in the working directory and in ~/.sector-intel; a missing file is fine.
// A .env file in the working directory is loaded into the environment first.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".sector-intel"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url must not be empty"))
	}
	if c.Query.StaleTime <= 0 {
		errs = append(errs, errors.New("query.stale_time must be positive"))
	}
	if c.Render.RefreshSeconds <= 0 {
		errs = append(errs, errors.New("render.refresh_seconds must be positive"))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr must not be empty"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
