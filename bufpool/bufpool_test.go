package bufpool

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufReadWrite(t *testing.T) {
	var pool Pool

	b := pool.Get()

	_, err := b.Write([]byte("hello world"))
	require.NoError(t, err)

	p := make([]byte, 5)

	n, err := b.Read(p)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", string(p))

	next, err := b.Next(6)
	require.NoError(t, err)
	assert.Equal(t, " world", string(next))

	_, err = b.Next(1)
	assert.ErrorIs(t, err, ErrShortBuffer)

	_, err = b.Read(p)
	assert.ErrorIs(t, err, io.EOF)

	b.Discard()

	assert.Len(t, pool.bufs, 1)
	assert.Equal(t, 0, pool.Get().Len())
}

func TestBufGrowKeepsContent(t *testing.T) {
	b := (&Pool{Size: 4}).Get()

	_, err := b.Write([]byte("abcdefgh"))
	require.NoError(t, err)

	out := b.Allocate(3)
	copy(out, "xyz")
	b.Commit(3)

	assert.Equal(t, "abcdefghxyz", string(b.Bytes()))
}

func TestSeekWrite(t *testing.T) {
	b := Get()
	defer b.Discard()

	_, _ = b.Write([]byte("0000tail"))

	old := b.SeekWrite(0)
	_, _ = b.Write([]byte("head"))
	b.SeekWrite(old)

	assert.Equal(t, "headtail", string(b.Bytes()))
}

func TestArena(t *testing.T) {
	a := NewArena(16)

	p1 := a.Alloc(10)
	p2 := a.Alloc(10)
	big := a.Alloc(100)

	assert.Len(t, p1, 10)
	assert.Len(t, p2, 10)
	assert.Len(t, big, 100)
	assert.Equal(t, 10, cap(p1))
	assert.Equal(t, 16+16+100, a.Size())

	a.Reset()

	assert.Equal(t, 16, a.Size())

	p3 := a.Alloc(16)
	assert.Len(t, p3, 16)
	assert.Equal(t, 16, a.Size())
}
