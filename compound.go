package nfs4xattr

import (
	"github.com/kuleuven/nfs4xattr/auth"
	"github.com/kuleuven/nfs4xattr/logger"
	"github.com/kuleuven/nfs4xattr/msg"
	"github.com/kuleuven/nfs4xattr/vfs"
	"github.com/kuleuven/nfs4xattr/xdr"
	"github.com/sirupsen/logrus"
)

// Compound executes the operations of a COMPOUND call one after the
// other. Every operation ends in Done, which schedules the next one on
// the thread; operations that wait for the VFS simply call Done later.
type Compound struct {
	*Muxv4
	AuthResp msg.Auth
	MinorVer uint32 // 0, 1 or 2 to indicate v4.0, v4.1 or v4.2
	Tag      string
	OpsCount int         // Number of ops in compound
	Creds    *auth.Creds // nil for AUTH_NULL
	Logger   *logrus.Entry

	CurrentFH []byte
	SavedFH   []byte

	in, out    Bytes
	decoder    *xdr.Decoder
	executed   int
	lastStatus uint32
	respond    func(out Bytes, err error)
}

func (x *Compound) Start() {
	registerMetrics()

	if x.MinorVer > 2 {
		x.in.Discard()

		err := xdr.NewEncoder(x.out).EncodeAll(
			x.AuthResp,
			msg.ACCEPT_SUCCESS,
			msg.NFS4ERR_MINOR_VERS_MISMATCH,
			x.Tag,
			uint32(0),
		)

		x.respond(x.out, err)

		return
	}

	if err := x.WriteHeader(x.out, x.OpsCount, msg.NFS4_OK); err != nil {
		x.finish(err)

		return
	}

	x.decoder = xdr.NewDecoder(x.in)

	x.next()
}

func (x *Compound) next() {
	if x.executed == x.OpsCount || x.lastStatus != msg.NFS4_OK {
		x.finish(nil)

		return
	}

	x.executed++

	var op uint32

	if !x.decodeArgs(msg.OP4_ILLEGAL, &op) {
		return
	}

	switch op {
	case msg.OP4_PUTFH:
		x.PutFH()
	case msg.OP4_PUTROOTFH:
		x.PutRootFH(msg.OP4_PUTROOTFH)
	case msg.OP4_PUTPUBFH:
		x.PutRootFH(msg.OP4_PUTPUBFH)
	case msg.OP4_GETFH:
		x.GetFH()
	case msg.OP4_SAVEFH:
		x.SaveFH()
	case msg.OP4_RESTOREFH:
		x.RestoreFH()
	case msg.OP4_GETXATTR:
		x.GetXattr()
	case msg.OP4_SETXATTR:
		x.SetXattr()
	case msg.OP4_LISTXATTRS:
		x.ListXattrs()
	case msg.OP4_REMOVEXATTR:
		x.RemoveXattr()
	default:
		if msg.KnownOp(op) {
			x.Logger.Debugf("operation %s is not implemented", msg.Proc4Name(op))
			x.Done(op, msg.NFS4ERR_NOTSUPP)
		} else {
			x.Done(msg.OP4_ILLEGAL, msg.NFS4ERR_OP_ILLEGAL)
		}
	}
}

// Done appends the result of operation op and continues with the next one.
func (x *Compound) Done(op, status uint32, data ...interface{}) {
	observeOperation(op, status)

	x.lastStatus = status

	if _, err := OperationResponse(x.out, op, status, data...); err != nil {
		x.finish(err)

		return
	}

	x.Thread.Post(x.next)
}

// Fail ends operation op with the status err translates to.
func (x *Compound) Fail(op uint32, err error) {
	x.Logger.WithError(err).Debugf("%s failed", msg.Proc4Name(op))

	x.Done(op, msg.Err2Status(err))
}

// decodeArgs reads the next value of the compound into args. On failure
// op ends with NFS4ERR_BADXDR and false is returned.
func (x *Compound) decodeArgs(op uint32, args interface{}) bool {
	if err := x.decoder.Decode(args); err != nil {
		x.Fail(op, msg.BadXDR(err))

		return false
	}

	return true
}

func (x *Compound) finish(err error) {
	x.in.Discard()

	if err == nil {
		err = x.RewriteHeaderIfNeeded(x.out, x.executed, x.lastStatus)
	}

	if err != nil {
		x.out.Discard()
		x.respond(nil, err)

		return
	}

	x.respond(x.out, nil)
}

func (x *Compound) WriteHeader(out Bytes, opsCount int, lastStatus uint32) error {
	seq := []interface{}{
		x.AuthResp,
		msg.ACCEPT_SUCCESS,
		lastStatus,
		x.Tag,
		opsCount,
	}

	return xdr.NewEncoder(out).EncodeAll(seq...)
}

func (x *Compound) RewriteHeaderIfNeeded(out Bytes, opsCount int, lastStatus uint32) error {
	if lastStatus == msg.NFS4_OK && opsCount == x.OpsCount {
		return nil
	}

	offset := out.SeekWrite(0)

	if err := x.WriteHeader(out, opsCount, lastStatus); err != nil {
		return err
	}

	out.SeekWrite(offset)

	return nil
}

func OperationResponse(out Bytes, op, status uint32, data ...interface{}) (uint32, error) {
	if status != msg.NFS4_OK {
		logger.Logger.Debugf("Operation [%s] failed with status %d", msg.Proc4Name(op), status)
	}

	encoder := xdr.NewEncoder(out)

	if err := encoder.EncodeAll(op, status); err != nil {
		return status, err
	}

	if status != msg.NFS4_OK {
		return status, nil
	}

	return status, encoder.EncodeAll(data...)
}

// open resolves the current file handle and calls fn with a
// referenced handle. fn must release it.
func (x *Compound) open(op uint32, fn func(h *vfs.OpenHandle)) {
	if x.CurrentFH == nil {
		x.Done(op, msg.NFS4ERR_NOFILEHANDLE)

		return
	}

	x.Thread.Open(x.CurrentFH, vfs.OpenPath|vfs.OpenInferred, func(status vfs.Error, h *vfs.OpenHandle) {
		if status != vfs.OK {
			x.Done(op, msg.Status(status))

			return
		}

		fn(h)
	})
}
