package nfs4xattr

import (
	"github.com/kuleuven/nfs4xattr/msg"
	"github.com/kuleuven/nfs4xattr/xdr"
)

// MuxMismatch answers calls for other programs or NFS versions.
type MuxMismatch struct{}

func (x *MuxMismatch) Handle(request Request, respond func(Response)) {
	reply, data, err := x.HandleProc(request.Header, request.Data)

	respond(Response{
		Reply: reply,
		Data:  data,
		Error: err,
	})
}

func (x *MuxMismatch) HandleProc(header *msg.RPCMsgCall, data Bytes) (*msg.RPCMsgReply, Bytes, error) {
	seq := []interface{}{
		msg.Auth{},
		msg.ACCEPT_PROG_MISMATCH,
		uint32(4), // low:  v4
		uint32(4), // high: v4
	}

	if header.Prog != msg.NFS_PROGRAM {
		seq = []interface{}{
			msg.Auth{},
			msg.ACCEPT_PROG_UNAVAIL,
		}
	}

	data.Reset()

	err := xdr.NewEncoder(data).EncodeAll(seq...)

	return accepted(header), data, err
}
