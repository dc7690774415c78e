package nfs4xattr

import (
	"encoding/hex"

	"github.com/kuleuven/nfs4xattr/msg"
	"github.com/kuleuven/nfs4xattr/vfs"
)

// MaxFHSize is NFS4_FHSIZE.
const MaxFHSize = 128

func (x *Compound) PutFH() {
	var args msg.PUTFH4args

	if !x.decodeArgs(msg.OP4_PUTFH, &args) {
		return
	}

	x.Logger.Tracef("PUTFH %s", hex.EncodeToString(args.Fh))

	if len(args.Fh) > MaxFHSize {
		x.Done(msg.OP4_PUTFH, msg.NFS4ERR_BADHANDLE)

		return
	}

	if _, status := x.VFS.Module(args.Fh); status != vfs.OK {
		x.Done(msg.OP4_PUTFH, msg.Status(status))

		return
	}

	x.CurrentFH = args.Fh

	x.Done(msg.OP4_PUTFH, msg.NFS4_OK)
}

// PutRootFH also serves PUTPUBFH, which shares the root.
func (x *Compound) PutRootFH(op uint32) {
	x.Logger.Trace(msg.Proc4Name(op))

	x.CurrentFH = x.VFS.RootFH()

	x.Done(op, msg.NFS4_OK)
}

func (x *Compound) GetFH() {
	x.Logger.Trace("GETFH")

	if x.CurrentFH == nil {
		x.Done(msg.OP4_GETFH, msg.NFS4ERR_NOFILEHANDLE)

		return
	}

	x.Done(msg.OP4_GETFH, msg.NFS4_OK, msg.GETFH4resok{Fh: x.CurrentFH})
}

func (x *Compound) SaveFH() {
	x.Logger.Trace("SAVEFH")

	if x.CurrentFH == nil {
		x.Done(msg.OP4_SAVEFH, msg.NFS4ERR_NOFILEHANDLE)

		return
	}

	x.SavedFH = x.CurrentFH

	x.Done(msg.OP4_SAVEFH, msg.NFS4_OK)
}

func (x *Compound) RestoreFH() {
	x.Logger.Trace("RESTOREFH")

	if x.SavedFH == nil {
		x.Done(msg.OP4_RESTOREFH, msg.NFS4ERR_RESTOREFH)

		return
	}

	x.CurrentFH = x.SavedFH

	x.Done(msg.OP4_RESTOREFH, msg.NFS4_OK)
}
