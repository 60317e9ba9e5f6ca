package hash

import (
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/require"
)

func TestSum(t *testing.T) {
	require.Equal(t, xxhash.Sum64String("capture"), Sum([]byte("capture")))
	require.NotEqual(t, Sum([]byte("a")), Sum([]byte("b")))
}

func TestDigest_MatchesSum(t *testing.T) {
	data := []byte("program version 1.0, run 42, four channels")

	d := NewDigest()
	for i := 0; i < len(data); i += 5 {
		end := min(i+5, len(data))
		n, err := d.Write(data[i:end])
		require.NoError(t, err)
		require.Equal(t, end-i, n)
	}

	require.Equal(t, Sum(data), d.Sum64())
}
