package vfs

import (
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// OpenHandle is a reference counted open object. It stays valid
// until the last reference is released.
type OpenHandle struct {
	Module Module
	FH     []byte
	FHHash uint64

	// Private is the state the module returned from OpOpen.
	Private any

	refs atomic.Int32
}

// Refs returns the current number of references.
func (h *OpenHandle) Refs() int {
	return int(h.refs.Load())
}

// HashFH returns the hash used to index file handles.
func HashFH(fh []byte) uint64 {
	return xxhash.Sum64(fh)
}

type openCache struct {
	handles map[string]*OpenHandle
	sync.Mutex
}

func newOpenCache() *openCache {
	return &openCache{
		handles: map[string]*OpenHandle{},
	}
}

func (c *openCache) acquire(fh []byte) (*OpenHandle, bool) {
	c.Lock()
	defer c.Unlock()

	h, ok := c.handles[string(fh)]
	if ok {
		h.refs.Add(1)
	}

	return h, ok
}

// insert adds h with one reference. If another open of the same
// handle won the race, that handle is acquired and returned instead.
func (c *openCache) insert(h *OpenHandle) (*OpenHandle, bool) {
	c.Lock()
	defer c.Unlock()

	if existing, ok := c.handles[string(h.FH)]; ok {
		existing.refs.Add(1)

		return existing, false
	}

	h.refs.Store(1)
	c.handles[string(h.FH)] = h

	return h, true
}

// release drops a reference and reports whether it was the last one.
func (c *openCache) release(h *OpenHandle) bool {
	c.Lock()
	defer c.Unlock()

	n := h.refs.Add(-1)

	switch {
	case n > 0:
		return false
	case n < 0:
		panic("vfs: open handle released more often than acquired")
	}

	delete(c.handles, string(h.FH))

	return true
}

func (c *openCache) len() int {
	c.Lock()
	defer c.Unlock()

	return len(c.handles)
}
