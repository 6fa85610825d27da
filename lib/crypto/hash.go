package crypto

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"hash"
	"math/big"

	"golang.org/x/crypto/blake2b"
)

const (
	HashSize = blake2b.Size256

	// hash to prime candidate sizes are bounded to a sane window regardless of the configured lambda
	MinPrimeBits = 16
	MaxPrimeBits = HashSize * 8
	// MaxPrimeAttempts bounds the candidate search; exhausting it is a hard failure
	MaxPrimeAttempts = 10000
	// primalityRounds is the number of Miller-Rabin rounds for each candidate
	primalityRounds = 20
)

var ErrHashToPrime = errors.New("hash to prime: no prime candidate found")

/*
	Hash is a function that takes an input message and returns a fixed-size string of bytes that is unique to the input.
	Blake2b-256 is the global hashing algorithm: VRF sample expansion, the practical VRF output and the Fiat-Shamir
	challenge of the VDF all go through it.
*/

// Hasher() returns the global hashing algorithm used
func Hasher() hash.Hash {
	h, _ := blake2b.New256(nil)
	return h
}

// Hash() executes the global hashing algorithm on input bytes
func Hash(msg []byte) []byte {
	h := blake2b.Sum256(msg)
	return h[:]
}

// HashString() returns the hex byte version of a hash
func HashString(msg []byte) string { return hex.EncodeToString(Hash(msg)) }

// PrimeBits() returns the bit length of the Fiat-Shamir prime for a security parameter
func PrimeBits(lambda uint32) int {
	switch {
	case lambda < MinPrimeBits:
		return MinPrimeBits
	case lambda > MaxPrimeBits:
		return MaxPrimeBits
	default:
		return int(lambda)
	}
}

// HashToPrime() deterministically maps input bytes to a probable prime of PrimeBits(lambda) bits
// candidate(i) = top bits of Hash(uint64_be(i) || input) with the highest and lowest bits forced on
// The primes differ from those of a seeded random search, so VDF proofs built on one do not verify on the other
func HashToPrime(lambda uint32, input []byte) (*big.Int, error) {
	bits := PrimeBits(lambda)
	// pre-allocate a buffer with the counter (8 bytes) + input
	buffer := make([]byte, 8+len(input))
	copy(buffer[8:], input)
	candidate := new(big.Int)
	for i := uint64(0); i < MaxPrimeAttempts; i++ {
		binary.BigEndian.PutUint64(buffer[:8], i)
		candidate.SetBytes(Hash(buffer))
		// keep only the top `bits` bits of the digest
		candidate.Rsh(candidate, uint(MaxPrimeBits-bits))
		candidate.SetBit(candidate, bits-1, 1)
		candidate.SetBit(candidate, 0, 1)
		if candidate.ProbablyPrime(primalityRounds) {
			return candidate, nil
		}
	}
	return nil, ErrHashToPrime
}
