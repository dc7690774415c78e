// Package memfs is an in-memory module. Values are immutable once stored,
// so they are handed out without copying.
package memfs

import (
	"bytes"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/kuleuven/nfs4xattr/clock"
	"github.com/kuleuven/nfs4xattr/vfs"
)

const (
	MaxNameLen   = 255
	MaxValueSize = 64 * 1024
)

type Options struct {
	// Blocking makes the module run on the delegation pool.
	Blocking bool
	// NoXattr hides extended attribute support.
	NoXattr bool
	// Clock stamps modification times, clock.GlobalClock if nil.
	Clock clock.Source
}

type FS struct {
	name  string
	caps  vfs.Capabilities
	clock clock.Source
	root  []byte

	inum    atomic.Uint64
	opens   atomic.Int64
	closes  atomic.Int64
	objects map[string]*object
	lock    sync.RWMutex
}

type object struct {
	attrs  vfs.Attrs
	xattrs map[string]*xattr
	order  []*xattr // by seq
	seq    uint64
	sync.Mutex
}

type xattr struct {
	name  string
	value []byte
	seq   uint64
}

func New(name string, opts Options) *FS {
	fs := &FS{
		name:    name,
		clock:   clock.Default(opts.Clock),
		objects: map[string]*object{},
	}

	if !opts.NoXattr {
		fs.caps |= vfs.CapXattr
	}

	if opts.Blocking {
		fs.caps |= vfs.CapBlocking
	}

	fs.root = fs.create(0o040755)

	return fs
}

func (fs *FS) Name() string {
	return fs.name
}

func (fs *FS) Capabilities() vfs.Capabilities {
	return fs.caps
}

func (fs *FS) Root() []byte {
	return fs.root
}

// Create adds an empty regular file and returns its key.
func (fs *FS) Create() []byte {
	return fs.create(0o100644)
}

func (fs *FS) create(mode uint32) []byte {
	id := uuid.New()
	now := fs.clock.Now()

	obj := &object{
		attrs: vfs.Attrs{
			SetMask: vfs.AttrMaskStat | vfs.AttrMaskCacheable,
			Inum:    fs.inum.Add(1),
			Mode:    mode,
			Nlink:   1,
			Atime:   now,
			Mtime:   now,
			Ctime:   now,
			Change:  1,
		},
		xattrs: map[string]*xattr{},
	}

	fs.lock.Lock()
	fs.objects[string(id[:])] = obj
	fs.lock.Unlock()

	return id[:]
}

// Opens and Closes count the open and close requests served.
func (fs *FS) Opens() int64  { return fs.opens.Load() }
func (fs *FS) Closes() int64 { return fs.closes.Load() }

func (fs *FS) Dispatch(req *vfs.Request) {
	switch req.Opcode {
	case vfs.OpOpen:
		fs.open(req)
	case vfs.OpClose:
		fs.closes.Add(1)
		req.Complete(vfs.OK)
	case vfs.OpGetxattr:
		fs.getxattr(req)
	case vfs.OpSetxattr:
		fs.setxattr(req)
	case vfs.OpRemovexattr:
		fs.removexattr(req)
	case vfs.OpListxattr:
		fs.listxattr(req)
	default:
		req.Complete(vfs.ErrNotSup)
	}
}

func (fs *FS) open(req *vfs.Request) {
	fs.lock.RLock()
	obj, ok := fs.objects[string(req.Key())]
	fs.lock.RUnlock()

	if !ok {
		req.Complete(vfs.ErrStale)

		return
	}

	fs.opens.Add(1)

	req.Open.RPrivate = obj
	req.Complete(vfs.OK)
}

func checkName(name []byte) vfs.Error {
	switch {
	case len(name) == 0:
		return vfs.ErrInval
	case len(name) > MaxNameLen:
		return vfs.ErrNameTooLong
	default:
		return vfs.OK
	}
}

func (fs *FS) getxattr(req *vfs.Request) {
	req.Complete(fs.doGetxattr(req))
}

func (fs *FS) doGetxattr(req *vfs.Request) vfs.Error {
	args := &req.Getxattr
	obj := args.Handle.Private.(*object)

	if status := checkName(args.Name); status != vfs.OK {
		return status
	}

	obj.Lock()
	defer obj.Unlock()

	x, ok := obj.xattrs[string(args.Name)]
	if !ok {
		return vfs.ErrNoData
	}

	args.Attr.Fill(&obj.attrs)

	return req.LendValue(x.value)
}

func (fs *FS) setxattr(req *vfs.Request) {
	req.Complete(fs.doSetxattr(req))
}

func (fs *FS) doSetxattr(req *vfs.Request) vfs.Error {
	args := &req.Setxattr
	obj := args.Handle.Private.(*object)

	if status := checkName(args.Name); status != vfs.OK {
		return status
	}

	if args.ValueLength > MaxValueSize {
		return vfs.ErrRange
	}

	value := bytes.Clone(req.GatherValue())

	obj.Lock()
	defer obj.Unlock()

	x, exists := obj.xattrs[string(args.Name)]

	switch {
	case exists && args.Flags == vfs.SetxattrCreate:
		return vfs.ErrExist
	case !exists && args.Flags == vfs.SetxattrReplace:
		return vfs.ErrNoData
	}

	args.PreAttr.Fill(&obj.attrs)

	if exists {
		x.value = value
	} else {
		obj.seq++

		x = &xattr{name: string(args.Name), value: value, seq: obj.seq}

		obj.xattrs[x.name] = x
		obj.order = append(obj.order, x)
	}

	fs.touch(obj)

	args.PostAttr.Fill(&obj.attrs)

	return vfs.OK
}

func (fs *FS) removexattr(req *vfs.Request) {
	req.Complete(fs.doRemovexattr(req))
}

func (fs *FS) doRemovexattr(req *vfs.Request) vfs.Error {
	args := &req.Removexattr
	obj := args.Handle.Private.(*object)

	if status := checkName(args.Name); status != vfs.OK {
		return status
	}

	obj.Lock()
	defer obj.Unlock()

	x, ok := obj.xattrs[string(args.Name)]
	if !ok {
		return vfs.ErrNoData
	}

	args.PreAttr.Fill(&obj.attrs)

	delete(obj.xattrs, x.name)

	obj.order = slices.DeleteFunc(obj.order, func(o *xattr) bool {
		return o == x
	})

	fs.touch(obj)

	args.PostAttr.Fill(&obj.attrs)

	return vfs.OK
}

func (fs *FS) listxattr(req *vfs.Request) {
	req.Complete(fs.doListxattr(req))
}

func (fs *FS) doListxattr(req *vfs.Request) vfs.Error {
	args := &req.Listxattr
	obj := args.Handle.Private.(*object)

	obj.Lock()
	defer obj.Unlock()

	args.Attr.Fill(&obj.attrs)

	start, _ := slices.BinarySearchFunc(obj.order, args.Cookie, func(x *xattr, cookie uint64) int {
		switch {
		case x.seq <= cookie:
			return -1
		default:
			return 1
		}
	})

	for _, x := range obj.order[start:] {
		if args.Emit([]byte(x.name), x.seq) == vfs.ScanStop {
			args.REOF = false

			return vfs.OK
		}

		args.RCookie = x.seq
	}

	args.REOF = true

	return vfs.OK
}

func (fs *FS) touch(obj *object) {
	now := fs.clock.MustIncrement(obj.attrs.Mtime)

	obj.attrs.Mtime = now
	obj.attrs.Ctime = now
	obj.attrs.Change++
}
