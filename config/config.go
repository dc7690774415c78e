// Package config loads the server configuration from a file and
// NFS4XATTR_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete server configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (NFS4XATTR_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Server    ServerConfig    `mapstructure:"server"`
	VFS       VFSConfig       `mapstructure:"vfs"`
	AttrCache AttrCacheConfig `mapstructure:"attr_cache"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`

	// Modules are the backends, in file handle index order. The
	// first module provides the root file handle.
	Modules []ModuleConfig `mapstructure:"modules" validate:"required,min=1,max=255,dive"`
}

type LoggingConfig struct {
	// Valid values: TRACE, DEBUG, INFO, WARN, ERROR (normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=TRACE DEBUG INFO WARN ERROR"`

	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

type ServerConfig struct {
	Listen string `mapstructure:"listen" validate:"required"`

	// ShutdownTimeout is the maximum time to wait for connections to drain
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`

	// RequireUnixAuth rejects calls with AUTH_NULL credentials
	RequireUnixAuth bool `mapstructure:"require_unix_auth"`
}

type VFSConfig struct {
	BounceBufferSize  int `mapstructure:"bounce_buffer_size" validate:"required,gte=64"`
	ArenaChunkSize    int `mapstructure:"arena_chunk_size" validate:"required,gte=512"`
	WorkerConcurrency int `mapstructure:"worker_concurrency" validate:"required,gt=0"`
}

type AttrCacheConfig struct {
	Size int           `mapstructure:"size" validate:"required,gt=0"`
	TTL  time.Duration `mapstructure:"ttl" validate:"required,gt=0"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen" validate:"required_if=Enabled true"`
}

// ModuleConfig selects a backend. Options are decoded by the factory
// of the given type.
type ModuleConfig struct {
	Name    string         `mapstructure:"name" validate:"required"`
	Type    string         `mapstructure:"type" validate:"required,oneof=memfs badgerfs nativefs vfs"`
	Options map[string]any `mapstructure:"options"`
}

// Load loads configuration from file, environment, and defaults.
// A missing file is not an error when configPath is empty.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	// Example: NFS4XATTR_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("NFS4XATTR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only applies to keys viper knows about.
	for _, key := range []string{
		"logging.level", "logging.format", "logging.output",
		"server.listen", "server.shutdown_timeout", "server.require_unix_auth",
		"vfs.bounce_buffer_size", "vfs.arena_chunk_size", "vfs.worker_concurrency",
		"attr_cache.size", "attr_cache.ttl",
		"metrics.enabled", "metrics.listen",
	} {
		v.BindEnv(key) //nolint:errcheck
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/nfs4xattr")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper, configPath string) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && configPath == "" {
			return nil
		}

		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}
