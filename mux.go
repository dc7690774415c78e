package nfs4xattr

import (
	"fmt"

	"github.com/kuleuven/nfs4xattr/auth"
	"github.com/kuleuven/nfs4xattr/bufpool"
	"github.com/kuleuven/nfs4xattr/msg"
	"github.com/kuleuven/nfs4xattr/vfs"
	"github.com/kuleuven/nfs4xattr/xdr"
	"github.com/sirupsen/logrus"
)

type Request struct {
	Header *msg.RPCMsgCall
	Data   Bytes
}

type Response struct {
	Reply *msg.RPCMsgReply
	Data  Bytes
	Error error
}

type Bytes interface {
	bufpool.Bytes
}

// Mux handles a single RPC call. Handle is invoked on the connection
// thread and calls respond exactly once, possibly later.
type Mux interface {
	Handle(request Request, respond func(Response))
}

// Muxv4 serves NFSv4 calls. All of its work happens on Thread.
type Muxv4 struct {
	VFS    *vfs.VFS
	Thread *vfs.Thread
	Logger *logrus.Entry

	// RequireUnixAuth rejects AUTH_NULL calls.
	RequireUnixAuth bool
}

func (x *Muxv4) Handle(request Request, respond func(Response)) {
	header := request.Header

	switch header.Proc {
	case msg.PROC4_VOID:
		reply, data, err := x.Void(header, request.Data)

		respond(Response{Reply: reply, Data: data, Error: err})
	case msg.PROC4_COMPOUND:
		x.Compound(header, request.Data, respond)
	default:
		request.Data.Discard()

		respond(Response{Error: fmt.Errorf("not implemented: proc %d", header.Proc)})
	}
}

func (x *Muxv4) Void(header *msg.RPCMsgCall, data Bytes) (*msg.RPCMsgReply, Bytes, error) {
	data.Reset()

	err := xdr.NewEncoder(data).EncodeAll(
		msg.Auth{
			Flavor: msg.AUTH_FLAVOR_NULL,
			Body:   []byte{},
		},
		msg.ACCEPT_SUCCESS,
		[0]byte{},
	)
	if err != nil {
		return nil, nil, err
	}

	return accepted(header), data, nil
}

func accepted(header *msg.RPCMsgCall) *msg.RPCMsgReply {
	return &msg.RPCMsgReply{
		Xid:       header.Xid,
		MsgType:   msg.RPC_REPLY,
		ReplyStat: msg.MSG_ACCEPTED,
	}
}

// Compound starts a COMPOUND call. The argument buffer stays alive until
// the reply has been encoded, since decoded names alias it.
func (x *Muxv4) Compound(header *msg.RPCMsgCall, data Bytes, respond func(Response)) {
	verf, creds, err := auth.Authenticate(header.Cred, x.RequireUnixAuth)
	if authErr, ok := err.(*auth.AuthError); ok {
		data.Reset()

		respond(Response{
			Reply: &msg.RPCMsgReply{
				Xid:       header.Xid,
				MsgType:   msg.RPC_REPLY,
				ReplyStat: msg.MSG_DENIED,
			},
			Data:  data,
			Error: xdr.NewEncoder(data).EncodeAll(msg.REJECT_AUTH_ERROR, authErr.Code),
		})

		return
	} else if err != nil {
		data.Discard()

		respond(Response{Error: err})

		return
	}

	var (
		tag      string
		minorVer uint32
		opsCnt   uint32
	)

	if err = xdr.NewDecoder(data).DecodeAll(&tag, &minorVer, &opsCnt); err != nil {
		data.Discard()

		respond(Response{Error: err})

		return
	}

	compound := &Compound{
		Muxv4:    x,
		AuthResp: verf,
		MinorVer: minorVer,
		Tag:      tag,
		OpsCount: int(opsCnt),
		Creds:    creds,
		Logger:   x.Logger.WithField("creds", creds.String()),
		in:       data,
		out:      bufpool.Get(),
		respond: func(out Bytes, err error) {
			respond(Response{Reply: accepted(header), Data: out, Error: err})
		},
	}

	compound.Logger.Tracef("[COMPOUND WITH %d OPS] (v4.%d)", opsCnt, minorVer)

	compound.Start()
}
