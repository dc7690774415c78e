package nfs4xattr

import (
	"bytes"
	"testing"

	"github.com/kuleuven/nfs4xattr/bufpool"
	"github.com/kuleuven/nfs4xattr/logger"
	"github.com/kuleuven/nfs4xattr/msg"
	"github.com/kuleuven/nfs4xattr/vfs"
	"github.com/kuleuven/nfs4xattr/vfs/modules/memfs"
	"github.com/kuleuven/nfs4xattr/worker"
	"github.com/kuleuven/nfs4xattr/xdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	vfs    *vfs.VFS
	thread *vfs.Thread
	mem    *memfs.FS
	mux    *Muxv4
}

func newTestServer(t *testing.T, opts memfs.Options) *testServer {
	t.Helper()

	mem := memfs.New("mem", opts)
	pool := worker.New(4)

	t.Cleanup(func() {
		pool.Close()
	})

	v, err := vfs.New(vfs.Options{}, nil, pool, mem)
	require.NoError(t, err)

	thread := v.NewThread()

	return &testServer{
		vfs:    v,
		thread: thread,
		mem:    mem,
		mux: &Muxv4{
			VFS:    v,
			Thread: thread,
			Logger: logger.Logger.WithField("test", t.Name()),
		},
	}
}

func newCall(proc uint32) *msg.RPCMsgCall {
	return &msg.RPCMsgCall{
		Xid:     1,
		MsgType: msg.RPC_CALL,
		RPCVer:  2,
		Prog:    msg.NFS_PROGRAM,
		Vers:    4,
		Proc:    proc,
		Cred:    msg.Auth{Flavor: msg.AUTH_FLAVOR_NULL, Body: []byte{}},
		Verf:    msg.Auth{Flavor: msg.AUTH_FLAVOR_NULL, Body: []byte{}},
	}
}

// call hands a call to the mux and runs the thread until it is answered.
func (s *testServer) call(t *testing.T, header *msg.RPCMsgCall, args []byte) Response {
	t.Helper()

	var (
		resp     Response
		answered int
	)

	s.mux.Handle(Request{Header: header, Data: bufpool.New(args)}, func(r Response) {
		resp = r
		answered++
	})

	s.thread.Drain()

	require.Equal(t, 1, answered)
	require.Zero(t, s.thread.Outstanding())
	require.Zero(t, s.vfs.OpenHandles())

	return resp
}

func op(code uint32, args ...interface{}) []interface{} {
	return append([]interface{}{code}, args...)
}

type compoundReply struct {
	Status uint32
	Tag    string
	Count  uint32
	*xdr.Decoder
}

func (s *testServer) compound(t *testing.T, ops ...[]interface{}) *compoundReply {
	t.Helper()

	return s.compoundWith(t, newCall(msg.PROC4_COMPOUND), 2, ops...)
}

func (s *testServer) compoundWith(t *testing.T, header *msg.RPCMsgCall, minorVer uint32, ops ...[]interface{}) *compoundReply {
	t.Helper()

	args := []interface{}{"tag", minorVer, uint32(len(ops))}

	for _, o := range ops {
		args = append(args, o...)
	}

	data, err := xdr.Marshal(args...)
	require.NoError(t, err)

	resp := s.call(t, header, data)
	require.NoError(t, resp.Error)
	require.Equal(t, msg.MSG_ACCEPTED, resp.Reply.ReplyStat)

	var (
		verf   msg.Auth
		accept uint32
		reply  compoundReply
	)

	reply.Decoder = xdr.NewDecoder(bytes.NewReader(resp.Data.Bytes()))

	require.NoError(t, reply.DecodeAll(&verf, &accept, &reply.Status, &reply.Tag, &reply.Count))
	assert.Equal(t, msg.AUTH_FLAVOR_NULL, verf.Flavor)
	assert.Equal(t, msg.ACCEPT_SUCCESS, accept)
	assert.Equal(t, "tag", reply.Tag)

	return &reply
}

// result reads the op and status of the next operation result.
func (r *compoundReply) result(t *testing.T, op uint32) uint32 {
	t.Helper()

	var code, status uint32

	require.NoError(t, r.DecodeAll(&code, &status))
	assert.Equal(t, op, code)

	return status
}

func (r *compoundReply) changeInfo(t *testing.T) msg.ChangeInfo4 {
	t.Helper()

	var ci msg.ChangeInfo4

	require.NoError(t, r.Decode(&ci))

	return ci
}

func TestVoid(t *testing.T) {
	s := newTestServer(t, memfs.Options{})

	resp := s.call(t, newCall(msg.PROC4_VOID), nil)
	require.NoError(t, resp.Error)

	assert.Equal(t, uint32(1), resp.Reply.Xid)
	assert.Equal(t, msg.RPC_REPLY, resp.Reply.MsgType)
	assert.Equal(t, msg.MSG_ACCEPTED, resp.Reply.ReplyStat)
	assert.Equal(t, make([]byte, 12), resp.Data.Bytes())
}

func TestUnknownProcedure(t *testing.T) {
	s := newTestServer(t, memfs.Options{})

	resp := s.call(t, newCall(7), nil)
	assert.Error(t, resp.Error)
}

func TestSetAndGetXattr(t *testing.T) {
	for _, blocking := range []bool{false, true} {
		s := newTestServer(t, memfs.Options{Blocking: blocking})

		r := s.compound(t,
			op(msg.OP4_PUTROOTFH),
			op(msg.OP4_SETXATTR, msg.SETXATTR4_CREATE, []byte("color"), []byte("blue")),
			op(msg.OP4_GETXATTR, []byte("color")),
		)

		assert.Equal(t, msg.NFS4_OK, r.Status)
		assert.Equal(t, uint32(3), r.Count)

		assert.Equal(t, msg.NFS4_OK, r.result(t, msg.OP4_PUTROOTFH))
		assert.Equal(t, msg.NFS4_OK, r.result(t, msg.OP4_SETXATTR))

		ci := r.changeInfo(t)
		assert.True(t, ci.Atomic)
		assert.Less(t, ci.Before, ci.After)

		assert.Equal(t, msg.NFS4_OK, r.result(t, msg.OP4_GETXATTR))

		value, err := r.Bytes()
		require.NoError(t, err)
		assert.Equal(t, "blue", string(value))
	}
}

func TestSetxattrOptions(t *testing.T) {
	s := newTestServer(t, memfs.Options{})

	r := s.compound(t,
		op(msg.OP4_PUTROOTFH),
		op(msg.OP4_SETXATTR, msg.SETXATTR4_REPLACE, []byte("a"), []byte("1")),
	)

	assert.Equal(t, msg.NFS4ERR_NOXATTR, r.Status)
	assert.Equal(t, uint32(2), r.Count)

	r = s.compound(t,
		op(msg.OP4_PUTROOTFH),
		op(msg.OP4_SETXATTR, uint32(3), []byte("a"), []byte("1")),
	)

	assert.Equal(t, msg.NFS4ERR_INVAL, r.Status)

	r = s.compound(t,
		op(msg.OP4_PUTROOTFH),
		op(msg.OP4_SETXATTR, msg.SETXATTR4_EITHER, []byte("a"), []byte("1")),
		op(msg.OP4_SETXATTR, msg.SETXATTR4_CREATE, []byte("a"), []byte("2")),
	)

	assert.Equal(t, msg.NFS4ERR_EXIST, r.Status)
	assert.Equal(t, uint32(3), r.Count)
}

func TestRemoveXattr(t *testing.T) {
	s := newTestServer(t, memfs.Options{})

	r := s.compound(t,
		op(msg.OP4_PUTROOTFH),
		op(msg.OP4_SETXATTR, msg.SETXATTR4_EITHER, []byte("a"), []byte("1")),
		op(msg.OP4_REMOVEXATTR, []byte("a")),
		op(msg.OP4_GETXATTR, []byte("a")),
	)

	assert.Equal(t, msg.NFS4ERR_NOXATTR, r.Status)
	assert.Equal(t, uint32(4), r.Count)

	r.result(t, msg.OP4_PUTROOTFH)
	r.result(t, msg.OP4_SETXATTR)

	set := r.changeInfo(t)

	assert.Equal(t, msg.NFS4_OK, r.result(t, msg.OP4_REMOVEXATTR))

	removed := r.changeInfo(t)
	assert.Equal(t, set.After, removed.Before)
	assert.Less(t, removed.Before, removed.After)

	assert.Equal(t, msg.NFS4ERR_NOXATTR, r.result(t, msg.OP4_GETXATTR))
}

func TestListXattrs(t *testing.T) {
	s := newTestServer(t, memfs.Options{Blocking: true})

	r := s.compound(t,
		op(msg.OP4_PUTROOTFH),
		op(msg.OP4_SETXATTR, msg.SETXATTR4_EITHER, []byte("a"), []byte("1")),
		op(msg.OP4_SETXATTR, msg.SETXATTR4_EITHER, []byte("bb"), []byte("2")),
	)
	require.Equal(t, msg.NFS4_OK, r.Status)

	list := func(cookie uint64, maxCount uint32) *compoundReply {
		r := s.compound(t,
			op(msg.OP4_PUTROOTFH),
			op(msg.OP4_LISTXATTRS, cookie, maxCount),
		)

		r.result(t, msg.OP4_PUTROOTFH)

		return r
	}

	t.Run("All", func(t *testing.T) {
		r := list(0, 100)
		require.Equal(t, msg.NFS4_OK, r.result(t, msg.OP4_LISTXATTRS))

		var (
			cookie uint64
			count  uint32
			a, bb  []byte
			eof    bool
		)

		require.NoError(t, r.DecodeAll(&cookie, &count, &a, &bb, &eof))

		assert.Equal(t, uint64(2), cookie)
		assert.Equal(t, uint32(2), count)
		assert.Equal(t, "a", string(a))
		assert.Equal(t, "bb", string(bb))
		assert.True(t, eof)
	})

	t.Run("Partial", func(t *testing.T) {
		// Room for a single eight byte entry.
		r := list(0, 12)
		require.Equal(t, msg.NFS4_OK, r.result(t, msg.OP4_LISTXATTRS))

		var (
			cookie uint64
			count  uint32
			a      []byte
			eof    bool
		)

		require.NoError(t, r.DecodeAll(&cookie, &count, &a, &eof))

		assert.Equal(t, uint64(1), cookie)
		assert.Equal(t, uint32(1), count)
		assert.Equal(t, "a", string(a))
		assert.False(t, eof)

		r = list(cookie, 12)
		require.Equal(t, msg.NFS4_OK, r.result(t, msg.OP4_LISTXATTRS))

		var bb []byte

		require.NoError(t, r.DecodeAll(&cookie, &count, &bb, &eof))

		assert.Equal(t, uint32(1), count)
		assert.Equal(t, "bb", string(bb))
		assert.True(t, eof)
	})

	t.Run("TooSmall", func(t *testing.T) {
		for _, maxCount := range []uint32{4, 7} {
			r := list(0, maxCount)
			assert.Equal(t, msg.NFS4ERR_TOOSMALL, r.Status)
			assert.Equal(t, msg.NFS4ERR_TOOSMALL, r.result(t, msg.OP4_LISTXATTRS))
		}

		file, err := s.vfs.FH("mem", s.mem.Create())
		require.NoError(t, err)

		// The first entry takes sixteen bytes.
		r := s.compound(t,
			op(msg.OP4_PUTFH, file),
			op(msg.OP4_SETXATTR, msg.SETXATTR4_EITHER, []byte("longername"), []byte("1")),
			op(msg.OP4_LISTXATTRS, uint64(0), uint32(12)),
		)

		assert.Equal(t, msg.NFS4ERR_TOOSMALL, r.Status)
		assert.Equal(t, uint32(3), r.Count)
	})

	t.Run("AfterLast", func(t *testing.T) {
		r := list(2, 100)
		require.Equal(t, msg.NFS4_OK, r.result(t, msg.OP4_LISTXATTRS))

		var (
			cookie uint64
			count  uint32
			eof    bool
		)

		require.NoError(t, r.DecodeAll(&cookie, &count, &eof))

		assert.Equal(t, uint64(2), cookie)
		assert.Zero(t, count)
		assert.True(t, eof)
	})
}

func TestNotSupported(t *testing.T) {
	s := newTestServer(t, memfs.Options{NoXattr: true})

	r := s.compound(t,
		op(msg.OP4_PUTROOTFH),
		op(msg.OP4_LISTXATTRS, uint64(0), uint32(100)),
	)

	assert.Equal(t, msg.NFS4ERR_NOTSUPP, r.Status)
	assert.Equal(t, uint32(2), r.Count)
}

func TestFileHandles(t *testing.T) {
	s := newTestServer(t, memfs.Options{})

	file, err := s.vfs.FH("mem", s.mem.Create())
	require.NoError(t, err)

	r := s.compound(t,
		op(msg.OP4_PUTROOTFH),
		op(msg.OP4_SAVEFH),
		op(msg.OP4_PUTFH, file),
		op(msg.OP4_GETFH),
		op(msg.OP4_RESTOREFH),
		op(msg.OP4_GETFH),
	)

	require.Equal(t, msg.NFS4_OK, r.Status)
	assert.Equal(t, uint32(6), r.Count)

	r.result(t, msg.OP4_PUTROOTFH)
	r.result(t, msg.OP4_SAVEFH)
	r.result(t, msg.OP4_PUTFH)
	r.result(t, msg.OP4_GETFH)

	fh, err := r.Bytes()
	require.NoError(t, err)
	assert.Equal(t, file, fh)

	r.result(t, msg.OP4_RESTOREFH)
	r.result(t, msg.OP4_GETFH)

	fh, err = r.Bytes()
	require.NoError(t, err)
	assert.Equal(t, s.vfs.RootFH(), fh)
}

func TestFileHandleErrors(t *testing.T) {
	s := newTestServer(t, memfs.Options{})

	cases := []struct {
		name   string
		ops    [][]interface{}
		op     uint32
		status uint32
	}{
		{"NoCurrent", [][]interface{}{op(msg.OP4_GETXATTR, []byte("a"))}, msg.OP4_GETXATTR, msg.NFS4ERR_NOFILEHANDLE},
		{"NoCurrentGetFH", [][]interface{}{op(msg.OP4_GETFH)}, msg.OP4_GETFH, msg.NFS4ERR_NOFILEHANDLE},
		{"NoSaved", [][]interface{}{op(msg.OP4_RESTOREFH)}, msg.OP4_RESTOREFH, msg.NFS4ERR_RESTOREFH},
		{"UnknownModule", [][]interface{}{op(msg.OP4_PUTFH, []byte{9, 1})}, msg.OP4_PUTFH, msg.NFS4ERR_BADHANDLE},
		{"TooLarge", [][]interface{}{op(msg.OP4_PUTFH, make([]byte, MaxFHSize+1))}, msg.OP4_PUTFH, msg.NFS4ERR_BADHANDLE},
		{"Stale", [][]interface{}{op(msg.OP4_PUTFH, []byte{0, 1, 2}), op(msg.OP4_GETXATTR, []byte("a"))}, msg.OP4_GETXATTR, msg.NFS4ERR_STALE},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := s.compound(t, c.ops...)

			assert.Equal(t, c.status, r.Status)
			assert.Equal(t, uint32(len(c.ops)), r.Count)

			for _, o := range c.ops[:len(c.ops)-1] {
				assert.Equal(t, msg.NFS4_OK, r.result(t, o[0].(uint32)))
			}

			assert.Equal(t, c.status, r.result(t, c.op))
		})
	}
}

func TestCompoundStopsAtFirstError(t *testing.T) {
	s := newTestServer(t, memfs.Options{})

	r := s.compound(t,
		op(msg.OP4_PUTROOTFH),
		op(msg.OP4_GETXATTR, []byte("missing")),
		op(msg.OP4_SETXATTR, msg.SETXATTR4_EITHER, []byte("missing"), []byte("1")),
	)

	assert.Equal(t, msg.NFS4ERR_NOXATTR, r.Status)
	assert.Equal(t, uint32(2), r.Count)

	// The SETXATTR was never executed.
	r = s.compound(t,
		op(msg.OP4_PUTROOTFH),
		op(msg.OP4_GETXATTR, []byte("missing")),
	)

	assert.Equal(t, msg.NFS4ERR_NOXATTR, r.Status)
}

func TestIllegalOperations(t *testing.T) {
	s := newTestServer(t, memfs.Options{})

	r := s.compound(t, op(9999))
	assert.Equal(t, msg.NFS4ERR_OP_ILLEGAL, r.Status)
	assert.Equal(t, msg.NFS4ERR_OP_ILLEGAL, r.result(t, msg.OP4_ILLEGAL))

	r = s.compound(t, op(msg.OP4_PUTROOTFH), op(msg.OP4_SEQUENCE))
	assert.Equal(t, msg.NFS4ERR_NOTSUPP, r.Status)
	assert.Equal(t, uint32(2), r.Count)

	r.result(t, msg.OP4_PUTROOTFH)
	assert.Equal(t, msg.NFS4ERR_NOTSUPP, r.result(t, msg.OP4_SEQUENCE))

	// Truncated arguments.
	r = s.compound(t, op(msg.OP4_PUTROOTFH), op(msg.OP4_GETXATTR))
	assert.Equal(t, msg.NFS4ERR_BADXDR, r.Status)

	// More operations announced than sent.
	data, err := xdr.Marshal("tag", uint32(2), uint32(2), msg.OP4_PUTROOTFH)
	require.NoError(t, err)

	resp := s.call(t, newCall(msg.PROC4_COMPOUND), data)
	require.NoError(t, resp.Error)

	var (
		verf                  msg.Auth
		accept, status, count uint32
		tag                   string
	)

	_, err = xdr.Unmarshal(resp.Data.Bytes(), &verf, &accept, &status, &tag, &count)
	require.NoError(t, err)
	assert.Equal(t, msg.NFS4ERR_BADXDR, status)
	assert.Equal(t, uint32(2), count)
}

func TestMinorVersionMismatch(t *testing.T) {
	s := newTestServer(t, memfs.Options{})

	r := s.compoundWith(t, newCall(msg.PROC4_COMPOUND), 3, op(msg.OP4_PUTROOTFH))

	assert.Equal(t, msg.NFS4ERR_MINOR_VERS_MISMATCH, r.Status)
	assert.Zero(t, r.Count)
}

func TestAuthentication(t *testing.T) {
	s := newTestServer(t, memfs.Options{})
	s.mux.RequireUnixAuth = true

	data, err := xdr.Marshal("tag", uint32(2), uint32(1), msg.OP4_PUTROOTFH)
	require.NoError(t, err)

	resp := s.call(t, newCall(msg.PROC4_COMPOUND), data)
	require.NoError(t, resp.Error)
	assert.Equal(t, msg.MSG_DENIED, resp.Reply.ReplyStat)

	expected, err := xdr.Marshal(msg.REJECT_AUTH_ERROR, msg.AUTH_TOOWEAK)
	require.NoError(t, err)
	assert.Equal(t, expected, resp.Data.Bytes())

	body, err := xdr.Marshal(uint32(0), "client", uint32(1000), uint32(100), []uint32{100, 200})
	require.NoError(t, err)

	header := newCall(msg.PROC4_COMPOUND)
	header.Cred = msg.Auth{Flavor: msg.AUTH_FLAVOR_UNIX, Body: body}

	r := s.compoundWith(t, header, 2, op(msg.OP4_PUTROOTFH))
	assert.Equal(t, msg.NFS4_OK, r.Status)
}

func TestMuxMismatch(t *testing.T) {
	mux := &MuxMismatch{}

	handle := func(header *msg.RPCMsgCall) []byte {
		var resp Response

		mux.Handle(Request{Header: header, Data: bufpool.New([]byte("args"))}, func(r Response) {
			resp = r
		})

		require.NoError(t, resp.Error)
		assert.Equal(t, msg.MSG_ACCEPTED, resp.Reply.ReplyStat)

		return resp.Data.Bytes()
	}

	header := newCall(msg.PROC4_VOID)
	header.Vers = 3

	expected, err := xdr.Marshal(msg.Auth{}, msg.ACCEPT_PROG_MISMATCH, uint32(4), uint32(4))
	require.NoError(t, err)
	assert.Equal(t, expected, handle(header))

	header.Prog = 100005

	expected, err = xdr.Marshal(msg.Auth{}, msg.ACCEPT_PROG_UNAVAIL)
	require.NoError(t, err)
	assert.Equal(t, expected, handle(header))
}
