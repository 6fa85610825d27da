package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHash(t *testing.T) {
	// blake2b-256 of the empty string
	require.Equal(t, "0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8", HashString(nil))
	require.Len(t, Hash([]byte("a")), HashSize)
	h := Hasher()
	_, err := h.Write([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, Hash([]byte("a")), h.Sum(nil))
}

func TestHashToPrime(t *testing.T) {
	tests := []struct {
		name     string
		lambda   uint32
		expected int64
		bits     int
	}{
		{name: "lambda used as is", lambda: 20, expected: 934399, bits: 20},
		{name: "lambda raised to the minimum", lambda: 8, expected: 63809, bits: MinPrimeBits},
		{name: "lambda capped at the digest size", lambda: 1000, bits: MaxPrimeBits},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := HashToPrime(test.lambda, []byte("hello"))
			require.NoError(t, err)
			require.Equal(t, test.bits, got.BitLen())
			require.True(t, got.ProbablyPrime(20))
			if test.expected != 0 {
				require.Equal(t, test.expected, got.Int64())
			}
			// deterministic
			again, err := HashToPrime(test.lambda, []byte("hello"))
			require.NoError(t, err)
			require.Zero(t, got.Cmp(again))
		})
	}
}
