package nfs4xattr

import (
	"github.com/kuleuven/nfs4xattr/bufpool"
	"github.com/kuleuven/nfs4xattr/msg"
	"github.com/kuleuven/nfs4xattr/vfs"
	"github.com/kuleuven/nfs4xattr/xdr"
)

// GetxattrSegments is the number of segments a GETXATTR value may span.
const GetxattrSegments = 64

// ChangeMask is requested before and after a modification to build change_info4.
const ChangeMask = vfs.AttrMtime | vfs.AttrChange

func changeInfo(pre, post *vfs.Attrs) msg.ChangeInfo4 {
	return msg.ChangeInfo4{
		Atomic: pre.Has(vfs.AttrChange) && post.Has(vfs.AttrChange),
		Before: pre.ChangeID(),
		After:  post.ChangeID(),
	}
}

func (x *Compound) GetXattr() {
	var args msg.GETXATTR4args

	if !x.decodeArgs(msg.OP4_GETXATTR, &args) {
		return
	}

	x.Logger.Tracef("GETXATTR %s", args.Name)

	x.open(msg.OP4_GETXATTR, func(h *vfs.OpenHandle) {
		iov := make([][]byte, GetxattrSegments)

		x.Thread.Getxattr(h, args.Name, iov, 0, func(status vfs.Error, length uint32, value [][]byte, _ *vfs.Attrs) {
			x.Thread.Release(h)

			// The segments are only valid during the callback, so the
			// value is encoded into the reply right away.
			x.Done(msg.OP4_GETXATTR, msg.Status(status), msg.GETXATTR4resok{
				Length: length,
				Value:  value,
			})
		})
	})
}

func setxattrFlags(option uint32) (vfs.SetxattrFlags, bool) {
	switch option {
	case msg.SETXATTR4_EITHER:
		return vfs.SetxattrEither, true
	case msg.SETXATTR4_CREATE:
		return vfs.SetxattrCreate, true
	case msg.SETXATTR4_REPLACE:
		return vfs.SetxattrReplace, true
	default:
		return 0, false
	}
}

func (x *Compound) SetXattr() {
	var args msg.SETXATTR4args

	if !x.decodeArgs(msg.OP4_SETXATTR, &args) {
		return
	}

	x.Logger.Tracef("SETXATTR %s (option %d, %d bytes)", args.Name, args.Option, len(args.Value))

	x.open(msg.OP4_SETXATTR, func(h *vfs.OpenHandle) {
		flags, ok := setxattrFlags(args.Option)
		if !ok {
			x.Thread.Release(h)
			x.Done(msg.OP4_SETXATTR, msg.NFS4ERR_INVAL)

			return
		}

		value := [][]byte{args.Value}

		x.Thread.Setxattr(h, args.Name, value, uint32(len(args.Value)), flags, ChangeMask, ChangeMask, func(status vfs.Error, pre, post *vfs.Attrs) {
			x.Thread.Release(h)

			if status != vfs.OK {
				x.Done(msg.OP4_SETXATTR, msg.Status(status))

				return
			}

			x.Done(msg.OP4_SETXATTR, msg.NFS4_OK, msg.SETXATTR4resok{CInfo: changeInfo(pre, post)})
		})
	})
}

func (x *Compound) RemoveXattr() {
	var args msg.REMOVEXATTR4args

	if !x.decodeArgs(msg.OP4_REMOVEXATTR, &args) {
		return
	}

	x.Logger.Tracef("REMOVEXATTR %s", args.Name)

	x.open(msg.OP4_REMOVEXATTR, func(h *vfs.OpenHandle) {
		x.Thread.Removexattr(h, args.Name, ChangeMask, ChangeMask, func(status vfs.Error, pre, post *vfs.Attrs) {
			x.Thread.Release(h)

			if status != vfs.OK {
				x.Done(msg.OP4_REMOVEXATTR, msg.Status(status))

				return
			}

			x.Done(msg.OP4_REMOVEXATTR, msg.NFS4_OK, msg.REMOVEXATTR4resok{CInfo: changeInfo(pre, post)})
		})
	})
}

// listCursor collects encoded names until maxcount would be exceeded.
type listCursor struct {
	names    Bytes
	encoder  *xdr.Encoder
	count    uint32
	used     int
	maxCount int
}

func (c *listCursor) add(name []byte, _ uint64) vfs.ScanAction {
	size := 4 + xdr.RoundUp(len(name))

	if c.used+size > c.maxCount {
		return vfs.ScanStop
	}

	if err := c.encoder.Bytes(name); err != nil {
		return vfs.ScanStop
	}

	c.count++
	c.used += size

	return vfs.ScanContinue
}

func (x *Compound) ListXattrs() {
	var args msg.LISTXATTRS4args

	if !x.decodeArgs(msg.OP4_LISTXATTRS, &args) {
		return
	}

	x.Logger.Tracef("LISTXATTRS cookie %d maxcount %d", args.Cookie, args.MaxCount)

	x.open(msg.OP4_LISTXATTRS, func(h *vfs.OpenHandle) {
		// Not even a cookie and an empty array would fit.
		if args.MaxCount < 8 {
			x.Thread.Release(h)
			x.Done(msg.OP4_LISTXATTRS, msg.NFS4ERR_TOOSMALL)

			return
		}

		names := bufpool.Get()

		cursor := &listCursor{
			names:    names,
			encoder:  xdr.NewEncoder(names),
			maxCount: int(args.MaxCount),
		}

		x.Thread.Listxattr(h, 0, args.Cookie, cursor.add, func(status vfs.Error, h *vfs.OpenHandle, cookie uint64, eof bool, _ *vfs.Attrs) {
			defer names.Discard()

			x.Thread.Release(h)

			switch {
			case status != vfs.OK:
				x.Done(msg.OP4_LISTXATTRS, msg.Status(status))
			case cursor.count == 0 && !eof:
				x.Done(msg.OP4_LISTXATTRS, msg.NFS4ERR_TOOSMALL)
			default:
				x.Done(msg.OP4_LISTXATTRS, msg.NFS4_OK, msg.LISTXATTRS4resok{
					Cookie: cookie,
					Count:  cursor.count,
					Names:  names.Bytes(),
					EOF:    eof,
				})
			}
		})
	})
}
