package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBLSVRFEncoding(t *testing.T) {
	vrf := NewBLSVRF()
	sk, pk, err := vrf.GenerateKey()
	require.NoError(t, err)
	require.Len(t, sk, BLS12381PrivKeySize)
	require.Len(t, pk, BLS12381PubKeySize)
	proof, output, err := vrf.Prove(sk, []byte("input"))
	require.NoError(t, err)
	require.Len(t, proof, BLS12381SignatureSize)
	// the output is the hash of the proof
	require.Equal(t, Hash(proof), output)
	// truncated proof
	_, err = vrf.Verify(pk, []byte("input"), proof[:BLS12381SignatureSize-1])
	require.ErrorIs(t, err, ErrInvalidVRFProof)
	// truncated keys
	_, _, err = vrf.Prove(sk[1:], []byte("input"))
	require.ErrorIs(t, err, ErrInvalidVRFKey)
	_, err = vrf.Verify(pk[1:], []byte("input"), proof)
	require.ErrorIs(t, err, ErrInvalidVRFKey)
}
