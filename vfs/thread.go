package vfs

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kuleuven/nfs4xattr/bufpool"
	"github.com/sirupsen/logrus"
)

// Thread is an execution context for VFS requests. Requests are issued and
// completed on the goroutine that runs the thread; closures posted from other
// goroutines are executed there in order.
type Thread struct {
	vfs *VFS
	log *logrus.Entry

	lock    sync.Mutex
	pending []func()
	spare   []func()
	wake    chan struct{}

	free        []*Request
	outstanding atomic.Int64
}

func (v *VFS) NewThread() *Thread {
	return &Thread{
		vfs:  v,
		log:  v.log,
		wake: make(chan struct{}, 1),
	}
}

// Post schedules fn to run on the thread. It never blocks.
func (t *Thread) Post(fn func()) {
	t.lock.Lock()
	t.pending = append(t.pending, fn)
	t.lock.Unlock()

	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// Poll runs the closures that are currently queued and returns how many ran.
// It must only be called from the goroutine that owns the thread.
func (t *Thread) Poll() int {
	t.lock.Lock()
	batch := t.pending
	t.pending = t.spare[:0]
	t.lock.Unlock()

	for _, fn := range batch {
		fn()
	}

	clear(batch)

	t.spare = batch[:0]

	return len(batch)
}

// Run executes posted closures until ctx is done.
func (t *Thread) Run(ctx context.Context) error {
	for {
		t.Poll()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.wake:
		}
	}
}

// Drain executes posted closures until none are queued and no requests
// are outstanding.
func (t *Thread) Drain() {
	for {
		if t.Poll() > 0 {
			continue
		}

		if t.Outstanding() == 0 {
			return
		}

		<-t.wake
	}
}

// Outstanding returns the number of requests that have not been freed yet.
func (t *Thread) Outstanding() int {
	return int(t.outstanding.Load())
}

func (t *Thread) allocRequest(module Module, fh []byte, fhHash uint64, op Opcode) *Request {
	var req *Request

	if n := len(t.free); n > 0 {
		req = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		req = &Request{
			Arena: bufpool.NewArena(t.vfs.opts.ArenaChunkSize),
		}
	}

	req.Opcode = op
	req.Module = module
	req.Thread = t
	req.FH = fh
	req.FHHash = fhHash
	req.start = time.Now()

	t.outstanding.Add(1)

	return req
}

func (t *Thread) allocHandleRequest(h *OpenHandle, op Opcode) *Request {
	return t.allocRequest(h.Module, h.FH, h.FHHash, op)
}

func (t *Thread) freeRequest(req *Request) {
	arena := req.Arena
	arena.Reset()

	*req = Request{Arena: arena}

	t.free = append(t.free, req)
	t.outstanding.Add(-1)
}
