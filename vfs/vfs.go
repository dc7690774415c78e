package vfs

import (
	"errors"
	"fmt"
	"io"

	"github.com/kuleuven/nfs4xattr/bufpool"
	"github.com/kuleuven/nfs4xattr/logger"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

const (
	DefaultBounceBufferSize = 64 * 1024
	DefaultArenaChunkSize   = 64 * 1024
)

type Options struct {
	// BounceBufferSize is the size of the buffer listings of
	// blocking modules are relayed through.
	BounceBufferSize int

	// ArenaChunkSize is the chunk size of the per-request arenas,
	// and hence the largest value segment a module hands out.
	ArenaChunkSize int
}

// VFS routes requests to the mounted modules. File handles start with the
// index of the module they belong to, followed by the module's key.
type VFS struct {
	opts     Options
	modules  []Module
	byName   map[string]int
	cache    AttrCache
	delegate Delegator
	handles  *openCache
	bounces  bufpool.Pool
	log      *logrus.Entry
}

var ErrNoModules = errors.New("vfs: no modules")

// New creates a VFS. The first module provides the root handle.
// The cache may be nil; the delegator is required when a blocking module is mounted.
func New(opts Options, cache AttrCache, delegate Delegator, modules ...Module) (*VFS, error) {
	if len(modules) == 0 {
		return nil, ErrNoModules
	}

	if len(modules) > 255 {
		return nil, fmt.Errorf("vfs: too many modules: %d", len(modules))
	}

	if opts.BounceBufferSize <= 0 {
		opts.BounceBufferSize = DefaultBounceBufferSize
	}

	if opts.ArenaChunkSize <= 0 {
		opts.ArenaChunkSize = DefaultArenaChunkSize
	}

	if cache == nil {
		cache = nopCache{}
	}

	v := &VFS{
		opts:     opts,
		byName:   map[string]int{},
		cache:    cache,
		delegate: delegate,
		handles:  newOpenCache(),
		bounces:  bufpool.Pool{Size: opts.BounceBufferSize},
		log:      logger.Logger.WithField("component", "vfs"),
	}

	for i, m := range modules {
		if _, ok := v.byName[m.Name()]; ok {
			return nil, fmt.Errorf("vfs: duplicate module name %q", m.Name())
		}

		if m.Capabilities().Has(CapBlocking) && delegate == nil {
			return nil, fmt.Errorf("vfs: module %q is blocking but no delegator is configured", m.Name())
		}

		v.byName[m.Name()] = i
		v.modules = append(v.modules, m)
	}

	registerMetrics()

	return v, nil
}

// FH composes the file handle of key in the named module.
func (v *VFS) FH(module string, key []byte) ([]byte, error) {
	i, ok := v.byName[module]
	if !ok {
		return nil, fmt.Errorf("vfs: unknown module %q", module)
	}

	fh := make([]byte, 0, 1+len(key))
	fh = append(fh, byte(i))

	return append(fh, key...), nil
}

// RootFH returns the file handle of the first module's root.
func (v *VFS) RootFH() []byte {
	fh, _ := v.FH(v.modules[0].Name(), v.modules[0].Root())

	return fh
}

// Module returns the module a file handle belongs to.
func (v *VFS) Module(fh []byte) (Module, Error) {
	if len(fh) < 1 || int(fh[0]) >= len(v.modules) {
		return nil, ErrBadF
	}

	return v.modules[fh[0]], OK
}

// OpenHandles returns the number of handles in the open cache.
func (v *VFS) OpenHandles() int {
	return v.handles.len()
}

// Close closes all modules that implement io.Closer.
func (v *VFS) Close() error {
	var err error

	for _, m := range v.modules {
		if c, ok := m.(io.Closer); ok {
			err = multierr.Append(err, c.Close())
		}
	}

	return err
}

// dispatch hands req to its module, on the delegation pool if the module blocks.
func (t *Thread) dispatch(req *Request) {
	module := req.Module

	t.log.Tracef("dispatch %s to %s", req.Opcode, module.Name())

	if !module.Capabilities().Has(CapBlocking) {
		module.Dispatch(req)

		return
	}

	req.delegated = true

	if err := t.vfs.delegate.Submit(func() { module.Dispatch(req) }); err != nil {
		t.log.Warnf("cannot delegate %s to %s: %v", req.Opcode, module.Name(), err)

		req.Complete(ErrFault)
	}
}
