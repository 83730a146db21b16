package noise

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLCGBounds(t *testing.T) {
	l := NewLCG(42)
	for i := 0; i < 100000; i++ {
		v := l.Next()
		require.GreaterOrEqual(t, v, float32(-1))
		require.LessOrEqual(t, v, float32(1))
	}
}

func TestLCGReproducible(t *testing.T) {
	a := NewLCG(123)
	b := NewLCG(123)
	for i := 0; i < 1000; i++ {
		require.Equal(t, a.Next(), b.Next())
	}
}

func TestLCGReseedRestartsSequence(t *testing.T) {
	a := NewLCG(7)
	first := make([]float32, 10)
	a.Fill(first)

	a.Reseed(7)
	second := make([]float32, 10)
	a.Fill(second)

	require.Equal(t, first, second)
}

func TestLCGZeroSeedHandled(t *testing.T) {
	l := NewLCG(0)
	v := l.Next()
	require.GreaterOrEqual(t, v, float32(-1))
	require.LessOrEqual(t, v, float32(1))
}

func TestLCGSkipMatchesEquivalentNextCalls(t *testing.T) {
	a := NewLCG(99)
	b := NewLCG(99)

	const lead = 733
	for i := 0; i < lead; i++ {
		a.Next()
	}
	b.Skip(lead)

	for i := 0; i < 1000; i++ {
		require.Equal(t, a.Next(), b.Next())
	}
}

func TestLCGSkipZeroIsNoOp(t *testing.T) {
	a := NewLCG(5)
	b := NewLCG(5)
	b.Skip(0)
	for i := 0; i < 100; i++ {
		require.Equal(t, a.Next(), b.Next())
	}
}
