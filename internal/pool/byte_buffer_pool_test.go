package pool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewByteBuffer(t *testing.T) {
	bb := NewByteBuffer(64)

	require.Equal(t, 0, bb.Len())
	require.Equal(t, 64, bb.Cap())
	require.Empty(t, bb.Bytes())
}

func TestByteBuffer_Resize(t *testing.T) {
	t.Run("within capacity", func(t *testing.T) {
		bb := NewByteBuffer(16)
		b := bb.Resize(8)

		require.Len(t, b, 8)
		require.Equal(t, 16, bb.Cap())
	})

	t.Run("grows", func(t *testing.T) {
		bb := NewByteBuffer(4)
		b := bb.Resize(100)

		require.Len(t, b, 100)
		require.GreaterOrEqual(t, bb.Cap(), 100)
	})

	t.Run("shrinks", func(t *testing.T) {
		bb := NewByteBuffer(16)
		bb.Resize(16)
		require.Len(t, bb.Resize(2), 2)
		require.Equal(t, 16, bb.Cap())
	})

	t.Run("zero", func(t *testing.T) {
		bb := NewByteBuffer(0)
		require.Empty(t, bb.Resize(0))
	})

	t.Run("negative panics", func(t *testing.T) {
		bb := NewByteBuffer(0)
		require.Panics(t, func() { bb.Resize(-1) })
	})
}

func TestByteBuffer_WriteAndReset(t *testing.T) {
	bb := NewByteBuffer(2)

	n, err := bb.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, []byte{1, 2, 3}, bb.Bytes())

	capBefore := bb.Cap()
	bb.Reset()
	require.Equal(t, 0, bb.Len())
	require.Equal(t, capBefore, bb.Cap())
}

func TestByteBufferPool_MaxThreshold(t *testing.T) {
	t.Run("discard oversized", func(t *testing.T) {
		p := NewByteBufferPool(8, 32)
		bb := p.Get()
		bb.Resize(64)
		p.Put(bb)

		// whatever comes back must respect the default size
		got := p.Get()
		require.LessOrEqual(t, got.Cap(), 32)
	})

	t.Run("reset on put", func(t *testing.T) {
		p := NewByteBufferPool(8, 0)
		bb := p.Get()
		_, _ = bb.Write([]byte("abc"))
		p.Put(bb)

		require.Equal(t, 0, bb.Len())
	})

	t.Run("nil put", func(t *testing.T) {
		p := NewByteBufferPool(8, 0)
		require.NotPanics(t, func() { p.Put(nil) })
	})
}

func TestRecordBuffer_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			bb := GetRecordBuffer()
			b := bb.Resize(n * 10)
			for j := range b {
				b[j] = byte(n)
			}
			PutRecordBuffer(bb)
		}(i)
	}
	wg.Wait()

	bb := GetRecordBuffer()
	require.Equal(t, 0, bb.Len())
	PutRecordBuffer(bb)
}
