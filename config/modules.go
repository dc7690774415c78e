package config

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/kuleuven/nfs4xattr/vfs"
	"github.com/kuleuven/nfs4xattr/vfs/modules/badgerfs"
	"github.com/kuleuven/nfs4xattr/vfs/modules/memfs"
	"github.com/kuleuven/nfs4xattr/vfs/modules/nativefs"
	"github.com/kuleuven/nfs4xattr/vfs/modules/vfsfs"
	"github.com/kuleuven/vfs/runas"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/multierr"
)

type memfsConfig struct {
	Blocking bool `mapstructure:"blocking"`
	NoXattr  bool `mapstructure:"no_xattr"`
}

// vfsConfig mounts a host directory through kuleuven/vfs, accessed with
// the identity of the given user.
type vfsConfig struct {
	Root      string   `mapstructure:"root"`
	Namespace string   `mapstructure:"namespace"`
	UID       *uint32  `mapstructure:"uid"`
	GID       *uint32  `mapstructure:"gid"`
	Groups    []uint32 `mapstructure:"groups"`
}

// CreateModules creates the configured modules in order. Modules that
// were already created are closed again if a later one fails.
func CreateModules(ctx context.Context, cfg *Config) ([]vfs.Module, error) {
	var modules []vfs.Module

	for i, moduleCfg := range cfg.Modules {
		module, err := CreateModule(ctx, moduleCfg)
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("modules[%d]: %w", i, err), CloseModules(modules))
		}

		modules = append(modules, module)
	}

	return modules, nil
}

// CloseModules closes the modules that hold resources.
func CloseModules(modules []vfs.Module) error {
	var err error

	for _, module := range modules {
		if closer, ok := module.(io.Closer); ok {
			err = multierr.Append(err, closer.Close())
		}
	}

	return err
}

// CreateModule creates a single module.
func CreateModule(ctx context.Context, cfg ModuleConfig) (vfs.Module, error) {
	switch cfg.Type {
	case "memfs":
		return createMemfs(cfg)
	case "badgerfs":
		return createBadgerfs(cfg)
	case "nativefs":
		return createNativefs(cfg)
	case "vfs":
		return createVfsfs(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown module type: %q", cfg.Type)
	}
}

func createMemfs(cfg ModuleConfig) (vfs.Module, error) {
	var memCfg memfsConfig
	if err := mapstructure.Decode(cfg.Options, &memCfg); err != nil {
		return nil, fmt.Errorf("invalid memfs config: %w", err)
	}

	return memfs.New(cfg.Name, memfs.Options{
		Blocking: memCfg.Blocking,
		NoXattr:  memCfg.NoXattr,
	}), nil
}

func createBadgerfs(cfg ModuleConfig) (vfs.Module, error) {
	var badgerCfg badgerfs.Config
	if err := mapstructure.Decode(cfg.Options, &badgerCfg); err != nil {
		return nil, fmt.Errorf("invalid badgerfs config: %w", err)
	}

	if badgerCfg.Path == "" && !badgerCfg.InMemory {
		return nil, fmt.Errorf("badgerfs: path is required unless in_memory is set")
	}

	fs, err := badgerfs.Open(cfg.Name, badgerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	return fs, nil
}

func createNativefs(cfg ModuleConfig) (vfs.Module, error) {
	var nativeCfg nativefs.Config
	if err := mapstructure.Decode(cfg.Options, &nativeCfg); err != nil {
		return nil, fmt.Errorf("invalid nativefs config: %w", err)
	}

	if nativeCfg.Root == "" {
		return nil, fmt.Errorf("nativefs: root is required")
	}

	return nativefs.New(cfg.Name, nativeCfg)
}

func createVfsfs(ctx context.Context, cfg ModuleConfig) (vfs.Module, error) {
	var vfsCfg vfsConfig
	if err := mapstructure.Decode(cfg.Options, &vfsCfg); err != nil {
		return nil, fmt.Errorf("invalid vfs config: %w", err)
	}

	if vfsCfg.Root == "" {
		return nil, fmt.Errorf("vfs: root is required")
	}

	user := &runas.User{
		UID:    uint32(os.Getuid()),
		GID:    uint32(os.Getgid()),
		Groups: vfsCfg.Groups,
	}

	if vfsCfg.UID != nil {
		user.UID = *vfsCfg.UID
	}

	if vfsCfg.GID != nil {
		user.GID = *vfsCfg.GID
	}

	return vfsfs.Mount(ctx, cfg.Name, vfsCfg.Root, vfsCfg.Namespace, user)
}
