package crypto

import (
	"fmt"

	"github.com/drand/kyber"
	bls12381 "github.com/drand/kyber-bls12381"
	"github.com/drand/kyber/pairing"
	"github.com/drand/kyber/sign/bdn"
	"github.com/drand/kyber/util/random"
)

const (
	BLS12381PrivKeySize   = 32
	BLS12381PubKeySize    = 48
	BLS12381SignatureSize = 96
)

var _ VRFI = &BLSVRF{}

// BLSVRF is a 'practical' VRF built on unique BLS12-381 signatures:
// the proof is the signature over the input and the output is Hash(proof)
// Public keys live on G1 and signatures on G2
type BLSVRF struct {
	suite  pairing.Suite
	scheme *bdn.Scheme
}

// NewBLSVRF() creates the BLS12-381 VRF
func NewBLSVRF() *BLSVRF {
	suite := bls12381.NewBLS12381Suite()
	return &BLSVRF{suite: suite, scheme: bdn.NewSchemeOnG2(suite)}
}

func (b *BLSVRF) Name() string { return BLS12381VRF }

func (b *BLSVRF) GenerateKey() (privateKey, publicKey []byte, err error) {
	sk, pk := b.scheme.NewKeyPair(random.New())
	if privateKey, err = sk.MarshalBinary(); err != nil {
		return nil, nil, err
	}
	if publicKey, err = pk.MarshalBinary(); err != nil {
		return nil, nil, err
	}
	return
}

func (b *BLSVRF) Prove(privateKey, input []byte) (proof, output []byte, err error) {
	sk, err := b.privateKey(privateKey)
	if err != nil {
		return nil, nil, err
	}
	if proof, err = b.scheme.Sign(sk, input); err != nil {
		return nil, nil, err
	}
	return proof, Hash(proof), nil
}

func (b *BLSVRF) Verify(publicKey, input, proof []byte) (output []byte, err error) {
	if len(proof) != BLS12381SignatureSize {
		return nil, ErrInvalidVRFProof
	}
	pk, err := b.publicKey(publicKey)
	if err != nil {
		return nil, err
	}
	if err = b.scheme.Verify(pk, input, proof); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidVRFProof, err.Error())
	}
	return Hash(proof), nil
}

// privateKey() decodes a BLS scalar
func (b *BLSVRF) privateKey(bz []byte) (kyber.Scalar, error) {
	if len(bz) != BLS12381PrivKeySize {
		return nil, ErrInvalidVRFKey
	}
	sk := b.suite.G2().Scalar()
	if err := sk.UnmarshalBinary(bz); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidVRFKey, err.Error())
	}
	return sk, nil
}

// publicKey() decodes a G1 point
func (b *BLSVRF) publicKey(bz []byte) (kyber.Point, error) {
	if len(bz) != BLS12381PubKeySize {
		return nil, ErrInvalidVRFKey
	}
	point := b.suite.G1().Point()
	if err := point.UnmarshalBinary(bz); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidVRFKey, err.Error())
	}
	return point, nil
}
