package nfs4xattr

import (
	"errors"
	"fmt"
	"io"

	"github.com/kuleuven/nfs4xattr/bufpool"
	"github.com/kuleuven/nfs4xattr/msg"
	"github.com/kuleuven/nfs4xattr/xdr"
)

// MaxRecordSize bounds the size of a single RPC record.
const MaxRecordSize = 16 << 20

var ErrFragmented = errors.New("fragmented rpc records are not supported")

// ReceiveCall reads one RPC record. The returned buffer holds the
// procedure arguments that follow the call header.
func ReceiveCall(r io.Reader) (*msg.RPCMsgCall, Bytes, error) {
	decoder := xdr.NewDecoder(r)

	frag, err := decoder.Uint32()
	if err != nil {
		return nil, nil, err
	}

	if frag&(1<<31) == 0 {
		return nil, nil, ErrFragmented
	}

	recordSize := int(frag &^ (1 << 31))
	if recordSize > MaxRecordSize {
		return nil, nil, fmt.Errorf("rpc record of %d bytes exceeds %d", recordSize, MaxRecordSize)
	}

	header := &msg.RPCMsgCall{}

	before := decoder.Count()

	if err = decoder.Decode(header); err != nil {
		return nil, nil, fmt.Errorf("decode rpc header: %w", err)
	}

	restSize := recordSize - (decoder.Count() - before)
	if restSize < 0 {
		return nil, nil, errors.New("rpc header exceeds record")
	}

	if header.MsgType != msg.RPC_CALL {
		return nil, nil, errors.New("expecting a rpc call message")
	}

	buf := bufpool.Get()

	data := buf.Allocate(restSize)
	n, err := io.ReadFull(r, data)

	buf.Commit(n)

	if err != nil {
		buf.Discard()

		return nil, nil, err
	}

	return header, buf, nil
}

// SendReply writes reply followed by data as a single RPC record and
// returns data to its pool.
func SendReply(w io.Writer, reply *msg.RPCMsgReply, data Bytes) error {
	defer data.Discard()

	payload := data.Bytes()
	encoder := xdr.NewEncoder(w)
	length := 12 + len(payload)
	frag := uint32(length) | uint32(1<<31)

	if err := encoder.Uint32(frag); err != nil {
		return err
	}

	if err := encoder.Encode(reply); err != nil {
		return err
	}

	_, err := w.Write(payload)

	return err
}
