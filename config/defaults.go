package config

import (
	"strings"
	"time"

	"github.com/kuleuven/nfs4xattr/vfs"
	"github.com/kuleuven/nfs4xattr/vfs/attrcache"
	"github.com/kuleuven/nfs4xattr/worker"
)

const (
	DefaultListen          = ":2049"
	DefaultMetricsListen   = ":9090"
	DefaultShutdownTimeout = 30 * time.Second
)

// ApplyDefaults fills in zero values. Explicit values are kept.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyVFSDefaults(&cfg.VFS)
	applyAttrCacheDefaults(&cfg.AttrCache)

	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = DefaultMetricsListen
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}

	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}

	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
}

func applyVFSDefaults(cfg *VFSConfig) {
	if cfg.BounceBufferSize == 0 {
		cfg.BounceBufferSize = vfs.DefaultBounceBufferSize
	}

	if cfg.ArenaChunkSize == 0 {
		cfg.ArenaChunkSize = vfs.DefaultArenaChunkSize
	}

	if cfg.WorkerConcurrency == 0 {
		cfg.WorkerConcurrency = worker.DefaultConcurrency
	}
}

func applyAttrCacheDefaults(cfg *AttrCacheConfig) {
	if cfg.Size == 0 {
		cfg.Size = attrcache.DefaultSize
	}

	if cfg.TTL == 0 {
		cfg.TTL = attrcache.DefaultTimeout
	}
}

// GetDefaultConfig returns a valid configuration serving a single
// in-memory module.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Modules: []ModuleConfig{
			{Name: "mem", Type: "memfs"},
		},
	}

	ApplyDefaults(cfg)

	return cfg
}

// Options returns the engine options.
func (c VFSConfig) Options() vfs.Options {
	return vfs.Options{
		BounceBufferSize: c.BounceBufferSize,
		ArenaChunkSize:   c.ArenaChunkSize,
	}
}
