//nolint:staticcheck
package msg

import "github.com/kuleuven/nfs4xattr/xdr"

type PUTFH4args struct {
	Fh []byte // nfs_fh4
}

func (a *PUTFH4args) Decode(d *xdr.Decoder) error {
	var err error

	a.Fh, err = d.Bytes()

	return err
}

type GETFH4resok struct {
	Fh []byte // nfs_fh4
}

func (r GETFH4resok) Encode(e *xdr.Encoder) error {
	return e.Bytes(r.Fh)
}

type ChangeInfo4 struct {
	Atomic bool
	Before uint64
	After  uint64
}

func (c ChangeInfo4) Encode(e *xdr.Encoder) error {
	return e.EncodeAll(c.Atomic, c.Before, c.After)
}

func (c *ChangeInfo4) Decode(d *xdr.Decoder) error {
	return d.DecodeAll(&c.Atomic, &c.Before, &c.After)
}

// Names in the xattr arguments alias the request buffer.

type GETXATTR4args struct {
	Name []byte
}

func (a *GETXATTR4args) Decode(d *xdr.Decoder) error {
	var err error

	a.Name, err = d.Opaque()

	return err
}

// GETXATTR4resok holds the value as scatter segments, the
// first Length bytes of which are encoded.
type GETXATTR4resok struct {
	Length uint32
	Value  [][]byte
}

func (r GETXATTR4resok) Encode(e *xdr.Encoder) error {
	return e.Segments(r.Length, r.Value)
}

const (
	SETXATTR4_EITHER  = uint32(0)
	SETXATTR4_CREATE  = uint32(1)
	SETXATTR4_REPLACE = uint32(2)
)

type SETXATTR4args struct {
	Option uint32
	Name   []byte
	Value  []byte
}

func (a *SETXATTR4args) Decode(d *xdr.Decoder) error {
	var err error

	if a.Option, err = d.Uint32(); err != nil {
		return err
	}

	if a.Name, err = d.Opaque(); err != nil {
		return err
	}

	a.Value, err = d.Opaque()

	return err
}

type SETXATTR4resok struct {
	CInfo ChangeInfo4
}

func (r SETXATTR4resok) Encode(e *xdr.Encoder) error {
	return r.CInfo.Encode(e)
}

type LISTXATTRS4args struct {
	Cookie   uint64
	MaxCount uint32
}

func (a *LISTXATTRS4args) Decode(d *xdr.Decoder) error {
	return d.DecodeAll(&a.Cookie, &a.MaxCount)
}

// LISTXATTRS4resok carries Count names that are already encoded
// as XDR opaque values in Names.
type LISTXATTRS4resok struct {
	Cookie uint64
	Count  uint32
	Names  []byte
	EOF    bool
}

func (r LISTXATTRS4resok) Encode(e *xdr.Encoder) error {
	if err := e.Uint64(r.Cookie); err != nil {
		return err
	}

	if err := e.Uint32(r.Count); err != nil {
		return err
	}

	if err := e.ByteArray(r.Names); err != nil {
		return err
	}

	return e.Bool(r.EOF)
}

type REMOVEXATTR4args struct {
	Name []byte
}

func (a *REMOVEXATTR4args) Decode(d *xdr.Decoder) error {
	var err error

	a.Name, err = d.Opaque()

	return err
}

type REMOVEXATTR4resok struct {
	CInfo ChangeInfo4
}

func (r REMOVEXATTR4resok) Encode(e *xdr.Encoder) error {
	return r.CInfo.Encode(e)
}
