//go:build !opus

package netsink

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStubOpusEncoderIsDisabled(t *testing.T) {
	enc := NewOpusEncoder(48000, 32000)
	require.False(t, enc.IsEnabled())

	out, err := enc.Encode([]int16{1, -1, 1000})
	require.NoError(t, err)
	require.Len(t, out, 6)
}
