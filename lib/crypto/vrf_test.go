package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVRF(t *testing.T) {
	for _, scheme := range []string{ECVRFSecp256k1, BLS12381VRF} {
		t.Run(scheme, func(t *testing.T) {
			vrf, err := NewVRF(scheme)
			require.NoError(t, err)
			require.Equal(t, scheme, vrf.Name())
			// generate two key pairs
			sk, pk, err := vrf.GenerateKey()
			require.NoError(t, err)
			_, otherPk, err := vrf.GenerateKey()
			require.NoError(t, err)
			input := []byte("period hash")
			// evaluate
			proof, output, err := vrf.Prove(sk, input)
			require.NoError(t, err)
			require.NotEmpty(t, output)
			// the evaluation is unique per key and input
			proof2, output2, err := vrf.Prove(sk, input)
			require.NoError(t, err)
			require.Equal(t, output, output2)
			require.Equal(t, proof, proof2)
			// verify returns the same output
			got, err := vrf.Verify(pk, input, proof)
			require.NoError(t, err)
			require.Equal(t, output, got)
			// wrong input
			_, err = vrf.Verify(pk, []byte("other input"), proof)
			require.ErrorIs(t, err, ErrInvalidVRFProof)
			// wrong key
			_, err = vrf.Verify(otherPk, input, proof)
			require.ErrorIs(t, err, ErrInvalidVRFProof)
			// garbage key
			_, err = vrf.Verify([]byte{1, 2, 3}, input, proof)
			require.Error(t, err)
			_, _, err = vrf.Prove([]byte{1, 2, 3}, input)
			require.ErrorIs(t, err, ErrInvalidVRFKey)
		})
	}
}

func TestNewVRFUnknownScheme(t *testing.T) {
	_, err := NewVRF("ed25519")
	require.ErrorIs(t, err, ErrUnknownVRFScheme)
	// the empty scheme falls back to the default
	vrf, err := NewVRF("")
	require.NoError(t, err)
	require.Equal(t, ECVRFSecp256k1, vrf.Name())
}
