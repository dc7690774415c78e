package bufpool

import "io"

// Bytes is a growable message buffer with separate read and write offsets.
type Bytes interface {
	Bytes() []byte
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Next(n int) ([]byte, error)
	SeekWrite(n int) int
	Allocate(n int) []byte
	Commit(n int)
	Len() int
	Reset()
	Discard()
	Copy(target Bytes)
}

type Buf struct {
	buf  []byte
	r, w int
	pool *Pool
}

func (b *Buf) Write(p []byte) (int, error) {
	n := copy(b.Allocate(len(p)), p)

	b.w += n

	return n, nil
}

func (b *Buf) Read(p []byte) (int, error) {
	if b.r >= b.w && len(p) > 0 {
		return 0, io.EOF
	}

	n := copy(p, b.buf[b.r:b.w])

	b.r += n

	return n, nil
}

// Next returns the next n unread bytes without copying them.
// The slice is only valid until the buffer is reset or discarded.
func (b *Buf) Next(n int) ([]byte, error) {
	if n < 0 || b.r+n > b.w {
		return nil, ErrShortBuffer
	}

	p := b.buf[b.r : b.r+n : b.r+n]

	b.r += n

	return p, nil
}

func (b *Buf) Bytes() []byte {
	return b.buf[b.r:b.w]
}

func (b *Buf) Allocate(n int) []byte {
	if b.w+n > len(b.buf) {
		b.grow(b.w + n)
	}

	return b.buf[b.w : b.w+n]
}

func (b *Buf) Commit(n int) {
	b.w += n
}

func (b *Buf) SeekWrite(n int) int {
	old := b.w

	b.w = n

	return old
}

func (b *Buf) Reset() {
	b.r = 0
	b.w = 0
}

func (b *Buf) grow(n int) {
	if n <= len(b.buf) {
		return
	}

	size := 2 * len(b.buf)
	if size < n {
		size = n
	}

	newbuf := make([]byte, size)

	copy(newbuf, b.buf[:b.w])

	b.buf = newbuf
}

func (b *Buf) Discard() {
	if b.pool == nil {
		return
	}

	b.pool.Put(b)
}

func (b *Buf) Len() int {
	return b.w - b.r
}

func (b *Buf) Copy(other Bytes) {
	target := other.Allocate(b.Len())

	n := copy(target, b.Bytes())

	other.Commit(n)
}
