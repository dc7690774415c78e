// Package vfsfs serves the extended attributes of a github.com/kuleuven/vfs filesystem.
//
// Keys are the handles returned by the filesystem itself, so a file handle
// stays valid for as long as the underlying filesystem resolves it.
package vfsfs

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	kvfs "github.com/kuleuven/vfs"
	kvfsnative "github.com/kuleuven/vfs/fs/nativefs"
	"github.com/kuleuven/vfs/fs/rootfs"
	"github.com/kuleuven/vfs/runas"

	"github.com/kuleuven/nfs4xattr/clock"
	"github.com/kuleuven/nfs4xattr/logger"
	"github.com/kuleuven/nfs4xattr/vfs"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

const DefaultNamespace = "user."

type FS struct {
	name      string
	fs        kvfs.AdvancedLinkFS
	root      []byte
	namespace string
	log       *logrus.Entry

	// Create and replace checks happen before the write.
	sync.Mutex
}

func New(name string, fsys kvfs.AdvancedLinkFS, namespace string) (*FS, error) {
	root, err := fsys.Handle("/")
	if err != nil {
		return nil, err
	}

	if namespace == "" {
		namespace = DefaultNamespace
	}

	return &FS{
		name:      name,
		fs:        fsys,
		root:      root,
		namespace: namespace,
		log:       logger.Logger.WithField("module", name),
	}, nil
}

// Mount serves the host directory root through a rootfs, with every call
// made as user.
func Mount(ctx context.Context, name, root, namespace string, user *runas.User) (*FS, error) {
	runasContext, err := runas.RunAs(user)
	if err != nil {
		return nil, err
	}

	fsys := rootfs.New(ctx)

	err = fsys.Mount("/", &kvfsnative.NativeServerInodeFS{
		NativeFS: &kvfsnative.NativeFS{
			Root:    root,
			Context: runasContext,
		},
	}, 0)
	if err != nil {
		return nil, multierr.Append(err, fsys.Close())
	}

	module, err := New(name, fsys, namespace)
	if err != nil {
		return nil, multierr.Append(err, fsys.Close())
	}

	return module, nil
}

func (fs *FS) Name() string {
	return fs.name
}

func (fs *FS) Capabilities() vfs.Capabilities {
	return vfs.CapXattr | vfs.CapBlocking
}

func (fs *FS) Root() []byte {
	return fs.root
}

// Key returns the key of the given path.
func (fs *FS) Key(path string) ([]byte, error) {
	return fs.fs.Handle(path)
}

func (fs *FS) Close() error {
	return fs.fs.Close()
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

	status := vfs.FromError(err)

	if status == vfs.ErrIO {
		fs.log.Warnf("filesystem call failed: %v", err)
	}

	return status
}

func (fs *FS) open(req *vfs.Request) vfs.Error {
	path, err := fs.fs.Path(req.Key())
	if errors.Is(err, syscall.EOPNOTSUPP) || errors.Is(err, os.ErrNotExist) {
		return vfs.ErrStale
	} else if err != nil {
		return fs.status(err)
	}

	req.Open.RPrivate = path

	return vfs.OK
}

func attrsOf(fi kvfs.FileInfo) vfs.Attrs {
	mode := uint32(fi.Mode().Perm())

	switch {
	case fi.IsDir():
		mode |= syscall.S_IFDIR
	case fi.Mode()&os.ModeSymlink != 0:
		mode |= syscall.S_IFLNK
	default:
		mode |= syscall.S_IFREG
	}

	mtime := fi.ModTime()

	return vfs.Attrs{
		SetMask: vfs.AttrMode | vfs.AttrNlink | vfs.AttrUID | vfs.AttrGID |
			vfs.AttrSize | vfs.AttrMtime | vfs.AttrChange | vfs.AttrMaskCacheable,
		Mode:   mode,
		Nlink:  uint64(fi.NumLinks()),
		UID:    uint32(fi.Uid()),
		GID:    uint32(fi.Gid()),
		Size:   uint64(fi.Size()),
		Mtime:  mtime,
		Change: uint64(mtime.UnixNano()),
	}
}

func (fs *FS) getxattr(req *vfs.Request) vfs.Error {
	args := &req.Getxattr
	path := args.Handle.Private.(string)

	fi, err := fs.fs.Lstat(path)
	if err != nil {
		return fs.status(err)
	}

	attrs, err := fi.Extended()
	if err != nil {
		return fs.status(err)
	}

	value, ok := attrs.Get(fs.namespace + string(args.Name))
	if !ok {
		return vfs.ErrNoData
	}

	st := attrsOf(fi)
	args.Attr.Fill(&st)

	return req.SetValue(value)
}

// touch bumps the modification time so clients see a new change id.
func (fs *FS) touch(path string, prev time.Time) (vfs.Attrs, error) {
	now := clock.MustIncrement(prev)

	if err := fs.fs.Chtimes(path, now, now); err != nil {
		return vfs.Attrs{}, err
	}

	fi, err := fs.fs.Lstat(path)
	if err != nil {
		return vfs.Attrs{}, err
	}

	return attrsOf(fi), nil
}

func (fs *FS) setxattr(req *vfs.Request) vfs.Error {
	args := &req.Setxattr
	path := args.Handle.Private.(string)
	name := fs.namespace + string(args.Name)

	fs.Lock()
	defer fs.Unlock()

	fi, err := fs.fs.Lstat(path)
	if err != nil {
		return fs.status(err)
	}

	if args.Flags != vfs.SetxattrEither {
		attrs, err := fi.Extended()
		if err != nil {
			return fs.status(err)
		}

		_, exists := attrs.Get(name)

		switch {
		case args.Flags == vfs.SetxattrCreate && exists:
			return vfs.ErrExist
		case args.Flags == vfs.SetxattrReplace && !exists:
			return vfs.ErrNoData
		}
	}

	pre := attrsOf(fi)
	args.PreAttr.Fill(&pre)

	if err = fs.fs.SetExtendedAttr(path, name, req.GatherValue()); err != nil {
		return fs.status(err)
	}

	post, err := fs.touch(path, fi.ModTime())
	if err != nil {
		return fs.status(err)
	}

	args.PostAttr.Fill(&post)

	return vfs.OK
}

func (fs *FS) removexattr(req *vfs.Request) vfs.Error {
	args := &req.Removexattr
	path := args.Handle.Private.(string)
	name := fs.namespace + string(args.Name)

	fs.Lock()
	defer fs.Unlock()

	fi, err := fs.fs.Lstat(path)
	if err != nil {
		return fs.status(err)
	}

	attrs, err := fi.Extended()
	if err != nil {
		return fs.status(err)
	}

	if _, ok := attrs.Get(name); !ok {
		return vfs.ErrNoData
	}

	pre := attrsOf(fi)
	args.PreAttr.Fill(&pre)

	if err = fs.fs.UnsetExtendedAttr(path, name); err != nil {
		return fs.status(err)
	}

	post, err := fs.touch(path, fi.ModTime())
	if err != nil {
		return fs.status(err)
	}

	args.PostAttr.Fill(&post)

	return vfs.OK
}

func (fs *FS) listxattr(req *vfs.Request) vfs.Error {
	args := &req.Listxattr
	path := args.Handle.Private.(string)

	fi, err := fs.fs.Lstat(path)
	if err != nil {
		return fs.status(err)
	}

	attrs, err := fi.Extended()
	if err != nil {
		return fs.status(err)
	}

	var names []string

	for name := range attrs {
		if strings.HasPrefix(name, fs.namespace) {
			names = append(names, strings.TrimPrefix(name, fs.namespace))
		}
	}

	st := attrsOf(fi)
	args.Attr.Fill(&st)

	args.EmitNames(names)

	return vfs.OK
}
