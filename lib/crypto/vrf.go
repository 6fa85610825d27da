package crypto

import (
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/vechain/go-ecvrf"
)

/*
	Verifiable Random Function (VRF)

	A VRF maps (private key, input) to a pseudorandom output together with a proof that anyone holding the public key
	can check. The output is unique per (key, input) pair, which makes it suitable to seed stake-weighted sortition.

	VRFI is the capability the sortition consumes. The key and proof encodings are opaque to callers.
*/

const (
	// VRF scheme names as they appear in configuration
	ECVRFSecp256k1 = "ecvrf-secp256k1"
	BLS12381VRF    = "bls12381"

	Secp256k1PrivKeySize = 32
)

var (
	ErrUnknownVRFScheme = errors.New("vrf: unknown scheme")
	ErrInvalidVRFKey    = errors.New("vrf: invalid key")
	ErrInvalidVRFProof  = errors.New("vrf: proof verification failed")
)

// VRFI is the verifiable random function capability
type VRFI interface {
	// Name() is the configuration name of the scheme
	Name() string
	// GenerateKey() creates a fresh random key pair
	GenerateKey() (privateKey, publicKey []byte, err error)
	// Prove() evaluates the VRF, returning the proof and the pseudorandom output
	Prove(privateKey, input []byte) (proof, output []byte, err error)
	// Verify() checks a proof, returning the output it commits to
	Verify(publicKey, input, proof []byte) (output []byte, err error)
}

// NewVRF() returns the VRF implementation registered under a scheme name
func NewVRF(scheme string) (VRFI, error) {
	switch scheme {
	case ECVRFSecp256k1, "":
		return NewECVRF(), nil
	case BLS12381VRF:
		return NewBLSVRF(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVRFScheme, scheme)
	}
}

var _ VRFI = &ECVRF{}

// ECVRF is ECVRF-SECP256K1-SHA256-TAI; private keys are 32 byte scalars, public keys are compressed points
type ECVRF struct {
	vrf ecvrf.VRF
}

// NewECVRF() creates the secp256k1 VRF
func NewECVRF() *ECVRF { return &ECVRF{vrf: ecvrf.Secp256k1Sha256Tai} }

func (e *ECVRF) Name() string { return ECVRFSecp256k1 }

func (e *ECVRF) GenerateKey() (privateKey, publicKey []byte, err error) {
	pk, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, nil, err
	}
	return pk.Serialize(), pk.PubKey().SerializeCompressed(), nil
}

func (e *ECVRF) Prove(privateKey, input []byte) (proof, output []byte, err error) {
	if len(privateKey) != Secp256k1PrivKeySize {
		return nil, nil, ErrInvalidVRFKey
	}
	sk := secp256k1.PrivKeyFromBytes(privateKey)
	if sk.Key.IsZero() {
		return nil, nil, ErrInvalidVRFKey
	}
	output, proof, err = e.vrf.Prove(sk.ToECDSA(), input)
	return
}

func (e *ECVRF) Verify(publicKey, input, proof []byte) (output []byte, err error) {
	pk, err := secp256k1.ParsePubKey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidVRFKey, err.Error())
	}
	if output, err = e.vrf.Verify(pk.ToECDSA(), input, proof); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidVRFProof, err.Error())
	}
	return
}
