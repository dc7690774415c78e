// Package nativefs exposes the extended attributes of a directory tree on the host.
// Keys are slash separated paths relative to the root.
package nativefs

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/kuleuven/nfs4xattr/logger"
	"github.com/kuleuven/nfs4xattr/vfs"
	"github.com/pkg/xattr"
	"github.com/sirupsen/logrus"
)

const DefaultNamespace = "user."

type Config struct {
	Root string `mapstructure:"root"`
	// Namespace is prepended to attribute names on the host.
	Namespace string `mapstructure:"namespace"`
}

type FS struct {
	name      string
	root      string
	namespace string
	log       *logrus.Entry
}

func New(name string, cfg Config) (*FS, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, err
	}

	fi, err := os.Stat(root)
	if err != nil {
		return nil, err
	}

	if !fi.IsDir() {
		return nil, fmt.Errorf("nativefs: %s is not a directory", root)
	}

	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}

	return &FS{
		name:      name,
		root:      root,
		namespace: cfg.Namespace,
		log:       logger.Logger.WithField("module", name),
	}, nil
}

func (fs *FS) Name() string {
	return fs.name
}

func (fs *FS) Capabilities() vfs.Capabilities {
	return vfs.CapXattr | vfs.CapBlocking
}

func (fs *FS) Root() []byte {
	return []byte{}
}

// Key returns the key of a path relative to the root.
func (fs *FS) Key(rel string) []byte {
	return []byte(strings.TrimPrefix(path.Clean("/"+rel), "/"))
}

func (fs *FS) path(key []byte) string {
	rel := path.Clean("/" + string(key))

	return filepath.Join(fs.root, filepath.FromSlash(rel))
}

func (fs *FS) Dispatch(req *vfs.Request) {
	switch req.Opcode {
	case vfs.OpOpen:
		req.Complete(fs.open(req))
	case vfs.OpClose:
		req.Complete(vfs.OK)
	case vfs.OpGetxattr:
		req.Complete(fs.getxattr(req))
	case vfs.OpSetxattr:
		req.Complete(fs.setxattr(req))
	case vfs.OpRemovexattr:
		req.Complete(fs.removexattr(req))
	case vfs.OpListxattr:
		req.Complete(fs.listxattr(req))
	default:
		req.Complete(vfs.ErrNotSup)
	}
}

func (fs *FS) status(err error) vfs.Error {
	if err == nil {
		return vfs.OK
	}

	if errors.Is(err, xattr.ENOATTR) {
		return vfs.ErrNoData
	}

	status := vfs.FromError(err)

	if status == vfs.ErrIO {
		fs.log.Warnf("xattr call failed: %v", err)
	}

	return status
}

func (fs *FS) open(req *vfs.Request) vfs.Error {
	p := fs.path(req.Key())

	if _, err := lstat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return vfs.ErrStale
		}

		return fs.status(err)
	}

	req.Open.RPrivate = p

	return vfs.OK
}

func (fs *FS) fill(p string, attrs ...*vfs.Attrs) error {
	st, err := lstat(p)
	if err != nil {
		return err
	}

	for _, a := range attrs {
		a.Fill(&st)
	}

	return nil
}

func (fs *FS) getxattr(req *vfs.Request) vfs.Error {
	args := &req.Getxattr
	p := args.Handle.Private.(string)

	value, err := xattr.LGet(p, fs.namespace+string(args.Name))
	if err != nil {
		return fs.status(err)
	}

	if err = fs.fill(p, &args.Attr); err != nil {
		return fs.status(err)
	}

	return req.SetValue(value)
}

func (fs *FS) setxattr(req *vfs.Request) vfs.Error {
	args := &req.Setxattr
	p := args.Handle.Private.(string)

	var flags int

	switch args.Flags {
	case vfs.SetxattrCreate:
		flags = xattr.XATTR_CREATE
	case vfs.SetxattrReplace:
		flags = xattr.XATTR_REPLACE
	}

	if err := fs.fill(p, &args.PreAttr); err != nil {
		return fs.status(err)
	}

	if err := xattr.LSetWithFlags(p, fs.namespace+string(args.Name), req.GatherValue(), flags); err != nil {
		return fs.status(err)
	}

	return fs.status(fs.fill(p, &args.PostAttr))
}

func (fs *FS) removexattr(req *vfs.Request) vfs.Error {
	args := &req.Removexattr
	p := args.Handle.Private.(string)

	if err := fs.fill(p, &args.PreAttr); err != nil {
		return fs.status(err)
	}

	if err := xattr.LRemove(p, fs.namespace+string(args.Name)); err != nil {
		return fs.status(err)
	}

	return fs.status(fs.fill(p, &args.PostAttr))
}

// The host has no listing cookies, names are numbered by vfs.NameCookie.
func (fs *FS) listxattr(req *vfs.Request) vfs.Error {
	args := &req.Listxattr
	p := args.Handle.Private.(string)

	all, err := xattr.LList(p)
	if err != nil {
		return fs.status(err)
	}

	if err = fs.fill(p, &args.Attr); err != nil {
		return fs.status(err)
	}

	var names []string

	for _, name := range all {
		if strings.HasPrefix(name, fs.namespace) {
			names = append(names, strings.TrimPrefix(name, fs.namespace))
		}
	}

	args.EmitNames(names)

	return vfs.OK
}
