// Package badgerfs stores objects and their extended attributes in BadgerDB.
package badgerfs

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/kuleuven/nfs4xattr/clock"
	"github.com/kuleuven/nfs4xattr/logger"
	"github.com/kuleuven/nfs4xattr/vfs"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

const (
	MaxNameLen   = 255
	MaxValueSize = 64 * 1024

	// Number of times a conflicting transaction is retried.
	maxRetries = 5
)

type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path     string `mapstructure:"path"`
	InMemory bool   `mapstructure:"in_memory"`
}

type FS struct {
	name  string
	db    *badger.DB
	inum  *badger.Sequence
	root  uuid.UUID
	clock clock.Source
	log   *logrus.Entry
}

func Open(name string, cfg Config) (*FS, error) {
	opts := badger.DefaultOptions(cfg.Path)

	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}

	opts = opts.WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", cfg.Path, err)
	}

	inum, err := db.GetSequence(keyInum(), 128)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("failed to open inode sequence: %w", err), db.Close())
	}

	fs := &FS{
		name:  name,
		db:    db,
		inum:  inum,
		clock: clock.Default(nil),
		log:   logger.Logger.WithField("module", name),
	}

	if err := fs.loadRoot(); err != nil {
		return nil, multierr.Append(err, fs.Close())
	}

	return fs, nil
}

func (fs *FS) loadRoot() error {
	err := fs.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyRoot())
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			fs.root, err = uuid.FromBytes(val)

			return err
		})
	})
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}

	id, err := fs.create(0o040755)
	if err != nil {
		return err
	}

	fs.root = id

	return fs.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyRoot(), id[:])
	})
}

func (fs *FS) Close() error {
	return multierr.Append(fs.inum.Release(), fs.db.Close())
}

func (fs *FS) Name() string {
	return fs.name
}

func (fs *FS) Capabilities() vfs.Capabilities {
	return vfs.CapXattr | vfs.CapBlocking
}

func (fs *FS) Root() []byte {
	return fs.root[:]
}

// Create adds an empty regular file and returns its key.
func (fs *FS) Create() ([]byte, error) {
	id, err := fs.create(0o100644)
	if err != nil {
		return nil, err
	}

	return id[:], nil
}

func (fs *FS) create(mode uint32) (uuid.UUID, error) {
	inum, err := fs.inum.Next()
	if err != nil {
		return uuid.Nil, err
	}

	now := fs.clock.Now()
	id := uuid.New()

	data, err := encode(&objectData{
		Inum:   inum + 1,
		Mode:   mode,
		Atime:  now,
		Mtime:  now,
		Ctime:  now,
		Change: 1,
	})
	if err != nil {
		return uuid.Nil, err
	}

	return id, fs.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyObject(id), data)
	})
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
		req.Complete(fs.update(req, fs.setxattr))
	case vfs.OpRemovexattr:
		req.Complete(fs.update(req, fs.removexattr))
	case vfs.OpListxattr:
		req.Complete(fs.listxattr(req))
	default:
		req.Complete(vfs.ErrNotSup)
	}
}

func (fs *FS) status(op vfs.Opcode, err error) vfs.Error {
	var vfsErr vfs.Error

	switch {
	case err == nil:
		return vfs.OK
	case errors.As(err, &vfsErr):
		return vfsErr
	default:
		fs.log.Errorf("%s failed: %v", op, err)

		return vfs.ErrIO
	}
}

func (fs *FS) open(req *vfs.Request) vfs.Error {
	id, err := uuid.FromBytes(req.Key())
	if err != nil {
		return vfs.ErrStale
	}

	err = fs.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(keyObject(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return vfs.ErrStale
		}

		return err
	})

	req.Open.RPrivate = id

	return fs.status(req.Opcode, err)
}

func checkName(name []byte) error {
	switch {
	case len(name) == 0:
		return vfs.ErrInval
	case len(name) > MaxNameLen:
		return vfs.ErrNameTooLong
	default:
		return nil
	}
}

func getObject(txn *badger.Txn, id uuid.UUID) (*objectData, error) {
	item, err := txn.Get(keyObject(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, vfs.ErrStale
	} else if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}

	var obj objectData

	err = item.Value(func(val []byte) error {
		return decode(val, &obj)
	})

	return &obj, err
}

func getXattr(txn *badger.Txn, id uuid.UUID, name []byte) (*xattrData, error) {
	item, err := txn.Get(keyXattr(id, name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, vfs.ErrNoData
	} else if err != nil {
		return nil, fmt.Errorf("failed to get xattr: %w", err)
	}

	var x xattrData

	err = item.Value(func(val []byte) error {
		return decode(val, &x)
	})

	return &x, err
}

func putObject(txn *badger.Txn, id uuid.UUID, obj *objectData) error {
	data, err := encode(obj)
	if err != nil {
		return err
	}

	return txn.Set(keyObject(id), data)
}

func (fs *FS) getxattr(req *vfs.Request) vfs.Error {
	args := &req.Getxattr
	id := args.Handle.Private.(uuid.UUID)

	if err := checkName(args.Name); err != nil {
		return fs.status(req.Opcode, err)
	}

	var status vfs.Error

	err := fs.db.View(func(txn *badger.Txn) error {
		obj, err := getObject(txn, id)
		if err != nil {
			return err
		}

		x, err := getXattr(txn, id, args.Name)
		if err != nil {
			return err
		}

		attrs := obj.attrs()
		args.Attr.Fill(&attrs)

		status = req.SetValue(x.Value)

		return nil
	})
	if err != nil {
		return fs.status(req.Opcode, err)
	}

	return status
}

// update runs fn in a read-write transaction, retrying on conflicts.
func (fs *FS) update(req *vfs.Request, fn func(txn *badger.Txn, req *vfs.Request, id uuid.UUID) error) vfs.Error {
	var id uuid.UUID

	switch req.Opcode {
	case vfs.OpSetxattr:
		id = req.Setxattr.Handle.Private.(uuid.UUID)
	case vfs.OpRemovexattr:
		id = req.Removexattr.Handle.Private.(uuid.UUID)
	}

	var err error

	for range maxRetries {
		err = fs.db.Update(func(txn *badger.Txn) error {
			return fn(txn, req, id)
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}

	return fs.status(req.Opcode, err)
}

func (fs *FS) touch(obj *objectData) {
	now := fs.clock.MustIncrement(obj.Mtime)

	obj.Mtime = now
	obj.Ctime = now
	obj.Change++
}

func (fs *FS) setxattr(txn *badger.Txn, req *vfs.Request, id uuid.UUID) error {
	args := &req.Setxattr

	if err := checkName(args.Name); err != nil {
		return err
	}

	if args.ValueLength > MaxValueSize {
		return vfs.ErrRange
	}

	obj, err := getObject(txn, id)
	if err != nil {
		return err
	}

	x, err := getXattr(txn, id, args.Name)

	switch {
	case err == nil && args.Flags == vfs.SetxattrCreate:
		return vfs.ErrExist
	case errors.Is(err, vfs.ErrNoData) && args.Flags == vfs.SetxattrReplace:
		return vfs.ErrNoData
	case errors.Is(err, vfs.ErrNoData):
		obj.Seq++

		x = &xattrData{Seq: obj.Seq}

		if err = txn.Set(keySeq(id, x.Seq), args.Name); err != nil {
			return err
		}
	case err != nil:
		return err
	}

	pre := obj.attrs()
	args.PreAttr.Fill(&pre)

	x.Value = req.GatherValue()

	data, err := encode(x)
	if err != nil {
		return err
	}

	if err = txn.Set(keyXattr(id, args.Name), data); err != nil {
		return err
	}

	fs.touch(obj)

	post := obj.attrs()
	args.PostAttr.Fill(&post)

	return putObject(txn, id, obj)
}

func (fs *FS) removexattr(txn *badger.Txn, req *vfs.Request, id uuid.UUID) error {
	args := &req.Removexattr

	if err := checkName(args.Name); err != nil {
		return err
	}

	obj, err := getObject(txn, id)
	if err != nil {
		return err
	}

	x, err := getXattr(txn, id, args.Name)
	if err != nil {
		return err
	}

	pre := obj.attrs()
	args.PreAttr.Fill(&pre)

	if err = txn.Delete(keyXattr(id, args.Name)); err != nil {
		return err
	}

	if err = txn.Delete(keySeq(id, x.Seq)); err != nil {
		return err
	}

	fs.touch(obj)

	post := obj.attrs()
	args.PostAttr.Fill(&post)

	return putObject(txn, id, obj)
}

func (fs *FS) listxattr(req *vfs.Request) vfs.Error {
	args := &req.Listxattr
	id := args.Handle.Private.(uuid.UUID)
	prefix := keySeqPrefix(id)

	err := fs.db.View(func(txn *badger.Txn) error {
		obj, err := getObject(txn, id)
		if err != nil {
			return err
		}

		attrs := obj.attrs()
		args.Attr.Fill(&attrs)

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(keySeq(id, args.Cookie+1)); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()

			seq, err := parseSeq(item.Key())
			if err != nil {
				return err
			}

			name, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}

			if args.Emit(name, seq) == vfs.ScanStop {
				args.REOF = false

				return nil
			}

			args.RCookie = seq
		}

		args.REOF = true

		return nil
	})

	return fs.status(req.Opcode, err)
}
