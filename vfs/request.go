package vfs

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kuleuven/nfs4xattr/bufpool"
)

// Request is a single in-flight VFS operation. Only the argument struct
// matching Opcode is meaningful. Requests are owned by the thread that
// issued them and are recycled after the caller has been notified.
type Request struct {
	Opcode Opcode
	Status Error
	Module Module
	Thread *Thread

	// FH is the full file handle, FHHash its hash.
	FH     []byte
	FHHash uint64

	// Arena holds scratch memory that lives until the request is freed.
	Arena *bufpool.Arena

	Open        OpenArgs
	Close       CloseArgs
	Getxattr    GetxattrArgs
	Setxattr    SetxattrArgs
	Removexattr RemovexattrArgs
	Listxattr   ListxattrArgs

	complete  func(*Request)
	delegated bool
	completed uint32
	start     time.Time
}

// Key returns the module specific part of the file handle.
func (r *Request) Key() []byte {
	return r.FH[1:]
}

// Complete finishes the request with the given status.
// It must be called exactly once per request.
func (r *Request) Complete(status Error) {
	if !atomic.CompareAndSwapUint32(&r.completed, 0, 1) {
		panic(fmt.Sprintf("vfs: %s request completed twice", r.Opcode))
	}

	r.Status = status

	if r.delegated {
		r.Thread.Post(func() {
			r.complete(r)
		})

		return
	}

	r.complete(r)
}

type OpenFlags uint32

const (
	// OpenPath opens the object for metadata access only.
	OpenPath OpenFlags = 1 << iota
	// OpenInferred marks an open that the server issues on behalf of
	// a stateless protocol operation.
	OpenInferred
)

type OpenArgs struct {
	Flags OpenFlags

	// RPrivate is the module state stored in the resulting handle.
	RPrivate any

	callback OpenCallback
}

type CloseArgs struct {
	Private any
}

type GetxattrArgs struct {
	Handle *OpenHandle
	Name   []byte
	Attr   Attrs

	// Iov are the segments the value is returned in. Modules fill
	// them through Request.SetValue or Request.LendValue.
	Iov          [][]byte
	RNiov        int
	RValueLength uint32

	callback GetxattrCallback
}

// SetValue copies value into arena memory referenced by the result segments.
func (r *Request) SetValue(value []byte) Error {
	args := &r.Getxattr
	chunk := r.Arena.ChunkSize()

	if len(value) > chunk*len(args.Iov) {
		return ErrRange
	}

	n := 0

	for off := 0; off < len(value); off += chunk {
		end := min(off+chunk, len(value))

		seg := r.Arena.Alloc(end - off)
		copy(seg, value[off:end])

		args.Iov[n] = seg
		n++
	}

	args.RNiov = n
	args.RValueLength = uint32(len(value))

	return OK
}

// LendValue returns value without copying it. The module must keep
// value unmodified until the request is freed.
func (r *Request) LendValue(value []byte) Error {
	args := &r.Getxattr

	if len(value) == 0 {
		args.RNiov = 0
		args.RValueLength = 0

		return OK
	}

	if len(args.Iov) == 0 {
		return ErrRange
	}

	args.Iov[0] = value
	args.RNiov = 1
	args.RValueLength = uint32(len(value))

	return OK
}

type SetxattrFlags uint32

const (
	SetxattrEither  SetxattrFlags = 0
	SetxattrCreate  SetxattrFlags = 1
	SetxattrReplace SetxattrFlags = 2
)

type SetxattrArgs struct {
	Handle      *OpenHandle
	Name        []byte
	Value       [][]byte
	ValueLength uint32
	Flags       SetxattrFlags
	PreAttr     Attrs
	PostAttr    Attrs

	callback SetxattrCallback
}

// GatherValue returns the value as one contiguous slice. It may alias the
// caller's buffers and is only valid for the lifetime of the request.
func (r *Request) GatherValue() []byte {
	args := &r.Setxattr

	if len(args.Value) == 1 && len(args.Value[0]) >= int(args.ValueLength) {
		return args.Value[0][:args.ValueLength]
	}

	out := r.Arena.Alloc(int(args.ValueLength))
	n := 0

	for _, seg := range args.Value {
		n += copy(out[n:], seg)
	}

	return out[:n]
}

type RemovexattrArgs struct {
	Handle   *OpenHandle
	Name     []byte
	PreAttr  Attrs
	PostAttr Attrs

	callback RemovexattrCallback
}

// ScanAction tells a listing backend whether to go on.
type ScanAction int

const (
	ScanContinue ScanAction = iota
	ScanStop
)

type ListxattrArgs struct {
	Handle *OpenHandle
	Cookie uint64
	Attr   Attrs

	// RCookie is the cookie of the last name accepted by the caller,
	// REOF is set when no names follow it.
	RCookie uint64
	REOF    bool

	callback ListxattrCallback
	complete ListxattrComplete
	bounce   *bounce
}

// Emit hands one name to the caller. Cookies must increase
// monotonically within a scan.
func (a *ListxattrArgs) Emit(name []byte, cookie uint64) ScanAction {
	if a.bounce != nil {
		return a.bounce.pack(name, cookie)
	}

	return a.callback(name, cookie)
}
