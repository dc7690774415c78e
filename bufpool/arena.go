package bufpool

// Arena is a bump allocator for the scratch memory of a single request.
// Everything allocated from it is released at once by Reset, after which
// earlier allocations must no longer be used.
type Arena struct {
	chunkSize int
	chunks    [][]byte
	cur       []byte
}

func NewArena(chunkSize int) *Arena {
	if chunkSize <= 0 {
		chunkSize = DefaultSize
	}

	return &Arena{chunkSize: chunkSize}
}

// ChunkSize is the largest allocation that is served from a shared chunk.
func (a *Arena) ChunkSize() int {
	return a.chunkSize
}

// Alloc returns n bytes of uninitialized memory.
func (a *Arena) Alloc(n int) []byte {
	if n > a.chunkSize {
		p := make([]byte, n)

		a.chunks = append(a.chunks, p)

		return p
	}

	if len(a.cur) < n {
		a.cur = make([]byte, a.chunkSize)
		a.chunks = append(a.chunks, a.cur)
	}

	p := a.cur[:n:n]
	a.cur = a.cur[n:]

	return p
}

// Reset releases all allocations. The first chunk is retained for reuse.
func (a *Arena) Reset() {
	if len(a.chunks) == 0 {
		return
	}

	first := a.chunks[0]

	clear(a.chunks)

	if len(first) == a.chunkSize {
		a.chunks = append(a.chunks[:0], first)
		a.cur = first
	} else {
		a.chunks = a.chunks[:0]
		a.cur = nil
	}
}

// Size is the total number of bytes held by the arena.
func (a *Arena) Size() int {
	n := 0

	for _, c := range a.chunks {
		n += len(c)
	}

	return n
}
