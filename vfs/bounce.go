package vfs

import (
	"encoding/binary"

	"github.com/kuleuven/nfs4xattr/bufpool"
)

// A blocking module lists names on a delegation goroutine, where the
// caller's callback must not run. The names are packed into a bounce
// buffer instead and replayed on the issuing thread once the module is done.
//
// Records are {cookie uint64, length uint32, name}, each padded to 8 bytes.
const bounceHeaderSize = 12

type bounce struct {
	buf     bufpool.Bytes
	size    int
	records int
}

func (v *VFS) newBounce() *bounce {
	return &bounce{
		buf:  v.bounces.Get(),
		size: v.opts.BounceBufferSize,
	}
}

func bounceRecordSize(nameLen int) int {
	return (bounceHeaderSize + nameLen + 7) &^ 7
}

// pack stores one record. A full buffer stops the scan: the module reports
// the last stored cookie and the caller resumes from there.
func (b *bounce) pack(name []byte, cookie uint64) ScanAction {
	n := bounceRecordSize(len(name))

	if b.buf.Len()+n > b.size {
		vfsBounceOverflows.Inc()

		return ScanStop
	}

	rec := b.buf.Allocate(n)

	binary.LittleEndian.PutUint64(rec[0:8], cookie)
	binary.LittleEndian.PutUint32(rec[8:12], uint32(len(name)))
	copy(rec[bounceHeaderSize:], name)
	clear(rec[bounceHeaderSize+len(name):])

	b.buf.Commit(n)
	b.records++

	return ScanContinue
}

// replay feeds the records to the caller's callback in order. If the caller
// stops, the listing ends at the last record it accepted.
func (b *bounce) replay(args *ListxattrArgs) {
	data := b.buf.Bytes()
	last := args.Cookie

	for len(data) >= bounceHeaderSize {
		cookie := binary.LittleEndian.Uint64(data[0:8])
		nameLen := int(binary.LittleEndian.Uint32(data[8:12]))
		name := data[bounceHeaderSize : bounceHeaderSize+nameLen]

		if args.callback(name, cookie) == ScanStop {
			args.RCookie = last
			args.REOF = false

			break
		}

		last = cookie
		data = data[bounceRecordSize(nameLen):]
	}

	vfsBounceRecords.Add(float64(b.records))
}

func (b *bounce) release() {
	b.buf.Discard()
	b.buf = nil
}
