package worker

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolBoundsConcurrency(t *testing.T) {
	p := New(2)

	var (
		running, peak atomic.Int32
		wg            sync.WaitGroup
	)

	for range 10 {
		wg.Add(1)

		require.NoError(t, p.Submit(func() {
			defer wg.Done()

			n := running.Add(1)

			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}

			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
		}))
	}

	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.NoError(t, p.Close())
}

func TestPoolClose(t *testing.T) {
	p := New(1)

	var done atomic.Bool

	require.NoError(t, p.Submit(func() {
		time.Sleep(10 * time.Millisecond)
		done.Store(true)
	}))

	require.NoError(t, p.Close())
	assert.True(t, done.Load())

	assert.ErrorIs(t, p.Submit(func() {}), ErrPoolClosed)
}
