package sortition

import (
	"encoding/binary"
	"math"

	"github.com/canopy-network/sortition/lib"
	"github.com/canopy-network/sortition/lib/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

/*
	VRF SORTITION

	Every candidate proposer evaluates a VRF over the same public seed (the DAG level and the period hash). The output
	is unpredictable before evaluation and checkable after it, so nobody can choose a favourable value.

	The stake of the candidate is turned into a weight: its share of the total vote count scaled to VotesProportion.
	The weight is the number of 'tickets' the candidate holds; each ticket yields a 16 bit sample derived from the
	VRF output and the threshold is the smallest of them. More stake means more samples and so a lower expected
	threshold, which in turn maps to a lower VDF difficulty.
*/

const (
	// VotesProportion scales a vote share into a sortition weight
	VotesProportion = 1000
)

// ThresholdI is the capability the difficulty engine needs from a VRF evaluation
type ThresholdI interface {
	Threshold() uint16
}

var _ ThresholdI = &VrfSortition{}

// ComputeThreshold() converts a vote share into the sortition weight: voteCount * VotesProportion / totalVoteCount
// The arithmetic is unsigned 64 bit with wrap-around and the result is truncated to 16 bits
func ComputeThreshold(voteCount, totalVoteCount uint64) uint16 {
	if totalVoteCount == 0 {
		return 0
	}
	return uint16(voteCount * VotesProportion / totalVoteCount)
}

// ThresholdFromOutput() is the minimum over `weight` samples of the VRF output
// sample 0 is the output itself and sample i is Hash(output || uint16_be(i)), each read as a little endian uint16
// a zero weight holds no tickets and yields the maximum threshold
func ThresholdFromOutput(output []byte, weight uint16) uint16 {
	if weight == 0 || len(output) < 2 {
		return math.MaxUint16
	}
	threshold := binary.LittleEndian.Uint16(output)
	buffer := make([]byte, len(output)+2)
	copy(buffer, output)
	for i := uint16(1); i < weight; i++ {
		binary.BigEndian.PutUint16(buffer[len(output):], i)
		if sample := binary.LittleEndian.Uint16(crypto.Hash(buffer)); sample < threshold {
			threshold = sample
		}
	}
	return threshold
}

// MakeVrfInput() builds the VRF seed shared by all candidates of a DAG level
func MakeVrfInput(level uint64, periodHash []byte) []byte {
	out := rlp.AppendUint64(nil, level)
	encoded, _ := rlp.EncodeToBytes(periodHash)
	return append(out, encoded...)
}

// VrfSortition is a VRF evaluation: the proof travels on the wire, the output and threshold are derived from it
type VrfSortition struct {
	Proof     []byte // the VRF proof
	Output    []byte // the VRF output, populated by ProveVrf() or Verify()
	threshold uint16
}

// ProveVrf() evaluates the VRF with the candidate's private key and derives the threshold for its weight
func ProveVrf(vrf crypto.VRFI, privateKey, input []byte, weight uint16) (VrfSortition, lib.ErrorI) {
	proof, output, err := vrf.Prove(privateKey, input)
	if err != nil {
		return VrfSortition{}, lib.ErrVRFProve(err)
	}
	return VrfSortition{Proof: proof, Output: output, threshold: ThresholdFromOutput(output, weight)}, nil
}

// Verify() checks the proof against the candidate's public key and recomputes the output and threshold
// It returns false on any failure and never panics on malformed input
func (v *VrfSortition) Verify(vrf crypto.VRFI, publicKey, input []byte, weight uint16) bool {
	output, err := vrf.Verify(publicKey, input, v.Proof)
	if err != nil {
		return false
	}
	v.Output, v.threshold = output, ThresholdFromOutput(output, weight)
	return true
}

// Threshold() returns the threshold derived by ProveVrf() or Verify()
func (v *VrfSortition) Threshold() uint16 { return v.threshold }
