//nolint:staticcheck
package msg

import "github.com/kuleuven/nfs4xattr/xdr"

const (
	RPC_CALL = uint32(iota)
	RPC_REPLY
)

const (
	MSG_ACCEPTED = uint32(iota)
	MSG_DENIED
)

const (
	ACCEPT_SUCCESS       = uint32(iota) /* RPC executed successfully       */
	ACCEPT_PROG_UNAVAIL                 /* remote hasn't exported program  */
	ACCEPT_PROG_MISMATCH                /* remote can't support version #  */
	ACCEPT_PROC_UNAVAIL                 /* program can't support procedure */
	ACCEPT_GARBAGE_ARGS                 /* procedure can't decode params   */
)

const (
	REJECT_RPC_MISMATCH = uint32(iota)
	REJECT_AUTH_ERROR
)

const (
	AUTH_OK = uint32(iota)
	AUTH_BADCRED
	AUTH_REJECTEDCRED
	AUTH_BADVERF
	AUTH_REJECTEDVERF
	AUTH_TOOWEAK
)

const (
	AUTH_FLAVOR_NULL = uint32(iota)
	AUTH_FLAVOR_UNIX
)

// NFS_PROGRAM is the ONC RPC program number of NFS.
const NFS_PROGRAM = uint32(100003)

type Auth struct {
	Flavor uint32
	Body   []byte
}

func (a *Auth) Decode(d *xdr.Decoder) error {
	var err error

	if a.Flavor, err = d.Uint32(); err != nil {
		return err
	}

	a.Body, err = d.Bytes()

	return err
}

func (a Auth) Encode(e *xdr.Encoder) error {
	if err := e.Uint32(a.Flavor); err != nil {
		return err
	}

	return e.Bytes(a.Body)
}

type RPCMsgCall struct {
	Xid     uint32
	MsgType uint32 /* RPC_CALL */
	RPCVer  uint32 /* rfc1057, const: 2 */

	Prog uint32 /* nfs: 100003 */
	Vers uint32 /* 4 */
	Proc uint32 /* PROC4_VOID | PROC4_COMPOUND */

	Cred Auth
	Verf Auth
}

func (c *RPCMsgCall) Decode(d *xdr.Decoder) error {
	return d.DecodeAll(&c.Xid, &c.MsgType, &c.RPCVer, &c.Prog, &c.Vers, &c.Proc, &c.Cred, &c.Verf)
}

func (c RPCMsgCall) Encode(e *xdr.Encoder) error {
	return e.EncodeAll(c.Xid, c.MsgType, c.RPCVer, c.Prog, c.Vers, c.Proc, c.Cred, c.Verf)
}

type RPCMsgReply struct {
	Xid       uint32 /* exact as the corresponding call. */
	MsgType   uint32 /* RPC_REPLY */
	ReplyStat uint32 /* MSG_ACCEPT | MSG_DENIED */
}

func (r *RPCMsgReply) Decode(d *xdr.Decoder) error {
	return d.DecodeAll(&r.Xid, &r.MsgType, &r.ReplyStat)
}

func (r RPCMsgReply) Encode(e *xdr.Encoder) error {
	return e.EncodeAll(r.Xid, r.MsgType, r.ReplyStat)
}
