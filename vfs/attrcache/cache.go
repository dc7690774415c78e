package attrcache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/kuleuven/nfs4xattr/vfs"
)

var (
	DefaultTimeout = 30 * time.Second
	DefaultSize    = 16384
)

const shards = 16

// Cache keeps attribute snapshots by file handle. Only snapshots
// that the module marked cacheable are stored.
type Cache struct {
	shards [shards]*expirable.LRU[string, vfs.Attrs]
}

// New returns a cache holding at most size entries, each for at most timeout.
func New(size int, timeout time.Duration) *Cache {
	if size <= 0 {
		size = DefaultSize
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Cache{}

	for i := range c.shards {
		c.shards[i] = expirable.NewLRU[string, vfs.Attrs](max(size/shards, 1), nil, timeout)
	}

	return c
}

func (c *Cache) shard(fhHash uint64) *expirable.LRU[string, vfs.Attrs] {
	return c.shards[fhHash%shards]
}

// Insert merges attr into the entry of fh. Values attr does not carry are
// kept from the previous snapshot, so a request that asked for little
// does not evict what an earlier one stored.
func (c *Cache) Insert(fhHash uint64, fh []byte, attr *vfs.Attrs) {
	if attr == nil || !attr.Has(vfs.AttrMaskCacheable) || attr.SetMask&vfs.AttrMaskStat == 0 {
		return
	}

	s := c.shard(fhHash)
	key := string(fh)

	entry, ok := s.Peek(key)
	if !ok {
		s.Add(key, *attr)

		return
	}

	reqMask := entry.ReqMask | attr.ReqMask

	entry.ReqMask = attr.SetMask
	entry.Fill(attr)
	entry.ReqMask = reqMask

	s.Add(key, entry)
}

func (c *Cache) Lookup(fhHash uint64, fh []byte) (vfs.Attrs, bool) {
	return c.shard(fhHash).Get(string(fh))
}

func (c *Cache) Invalidate(fhHash uint64, fh []byte) {
	c.shard(fhHash).Remove(string(fh))
}

func (c *Cache) Len() int {
	n := 0

	for _, s := range c.shards {
		n += s.Len()
	}

	return n
}
