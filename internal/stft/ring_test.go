package stft

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRingBufferSizeInvariant(t *testing.T) {
	r := NewRingBuffer(16)
	require.Equal(t, 0, r.Size())

	data := []float32{1, 2, 3, 4, 5}
	n := r.Enqueue(data)
	require.Equal(t, 5, n)
	require.Equal(t, 5, r.Size())
	require.GreaterOrEqual(t, r.Size(), 0)
	require.Less(t, r.Size(), r.Capacity())
}

// TestDequeueThenEnqueueRestoresSize checks spec.md §8 universal invariant
// 7: dequeue(k) followed by enqueue(k) restores size exactly.
func TestDequeueThenEnqueueRestoresSize(t *testing.T) {
	r := NewRingBuffer(16)
	r.Enqueue([]float32{1, 2, 3, 4, 5, 6, 7, 8})
	before := r.Size()

	buf := make([]float32, 3)
	got := r.DequeueInto(buf)
	require.Equal(t, 3, got)
	require.Equal(t, before-3, r.Size())

	r.Enqueue(buf)
	require.Equal(t, before, r.Size())
}

func TestRingBufferWrapsCorrectly(t *testing.T) {
	r := NewRingBuffer(4)
	r.Enqueue([]float32{1, 2, 3})
	out := make([]float32, 2)
	r.DequeueInto(out)
	require.Equal(t, []float32{1, 2}, out)

	r.Enqueue([]float32{4, 5, 6})
	require.Equal(t, 4, r.Size())

	rest := make([]float32, 4)
	got := r.DequeueInto(rest)
	require.Equal(t, 4, got)
	require.Equal(t, []float32{3, 4, 5, 6}, rest)
}

func TestRingBufferOverflowIsBounded(t *testing.T) {
	r := NewRingBuffer(4)
	n := r.Enqueue([]float32{1, 2, 3, 4, 5, 6})
	require.Equal(t, 4, n)
	require.Equal(t, 4, r.Size())
}

func TestPeekDoesNotConsume(t *testing.T) {
	r := NewRingBuffer(8)
	r.Enqueue([]float32{1, 2, 3, 4})
	dst := make([]float32, 4)
	r.PeekInto(dst)
	require.Equal(t, 4, r.Size())
	require.Equal(t, []float32{1, 2, 3, 4}, dst)
}

func TestAdvanceConsumesWithoutCopy(t *testing.T) {
	r := NewRingBuffer(8)
	r.Enqueue([]float32{1, 2, 3, 4})
	r.Advance(2)
	require.Equal(t, 2, r.Size())
	dst := make([]float32, 2)
	r.PeekInto(dst)
	require.Equal(t, []float32{3, 4}, dst)
}
