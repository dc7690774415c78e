package bufpool

import (
	"errors"
	"sync"
)

var ErrShortBuffer = errors.New("bufpool: short buffer")

// DefaultSize is the initial capacity of buffers created by a Pool.
const DefaultSize = 4096

type Pool struct {
	// Size is the initial capacity of new buffers, DefaultSize if zero.
	Size int

	bufs []Bytes
	sync.Mutex
}

func (p *Pool) Get() Bytes {
	p.Lock()
	defer p.Unlock()

	if n := len(p.bufs); n > 0 {
		buf := p.bufs[n-1]
		p.bufs = p.bufs[:n-1]

		return buf
	}

	size := p.Size
	if size == 0 {
		size = DefaultSize
	}

	return p.New(make([]byte, size))
}

func (p *Pool) Put(buf Bytes) {
	p.Lock()
	defer p.Unlock()

	buf.Reset()

	p.bufs = append(p.bufs, buf)
}

func (p *Pool) New(buf []byte) Bytes {
	return &Buf{
		buf:  buf,
		pool: p,
	}
}

var GlobalPool Pool

func Get() Bytes {
	return GlobalPool.Get()
}

func Put(buf Bytes) {
	GlobalPool.Put(buf)
}

// New wraps buf for reading, e.g. to decode a received message.
func New(buf []byte) Bytes {
	return &Buf{
		buf: buf,
		w:   len(buf),
	}
}
