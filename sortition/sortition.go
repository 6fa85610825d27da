package sortition

import (
	"bytes"
	"time"

	"github.com/canopy-network/sortition/lib"
	"github.com/canopy-network/sortition/lib/crypto"
)

// VdfSortition is the record a proposer attaches to a DAG block: the VRF evaluation that fixes the
// difficulty, the difficulty itself and the VDF solution proving the delay was spent
// The zero value is the default record
type VdfSortition struct {
	VrfSortition
	Solution        crypto.VDFSolution // the (proof, output) pair of the VDF
	Difficulty      uint16             // log2 of the sequential squarings
	ComputationTime time.Duration      // how long the local proof took; diagnostic only and never encoded
}

// NewVdfSortition() evaluates the VRF for a candidate with `voteCount` out of `totalVoteCount` votes and fixes the difficulty
// The VDF is not solved yet
func NewVdfSortition(params lib.SortitionParams, vrf crypto.VRFI, privateKey, vrfInput []byte, voteCount, totalVoteCount uint64) (*VdfSortition, lib.ErrorI) {
	v, err := ProveVrf(vrf, privateKey, vrfInput, ComputeThreshold(voteCount, totalVoteCount))
	if err != nil {
		return nil, err
	}
	return &VdfSortition{VrfSortition: v, Difficulty: DifficultyOf(&v, params)}, nil
}

// IsStale() returns true if the VRF put this sortition outside the difficulty range
func (s *VdfSortition) IsStale(params lib.SortitionParams) bool { return IsStale(s.Difficulty, params) }

// NewPuzzle() constructs the VDF puzzle this sortition commits to
func (s *VdfSortition) NewPuzzle(params lib.SortitionParams, vdfInput, modulus []byte) (*crypto.VDFPuzzle, lib.ErrorI) {
	puzzle, err := crypto.NewVDFPuzzle(uint32(params.VDF.LambdaBound), s.Difficulty, vdfInput, modulus)
	if err != nil {
		return nil, lib.NewVDFError(err, s.Difficulty)
	}
	return puzzle, nil
}

// ComputeVdfSolution() *blocking call* solves the puzzle in the calling goroutine
// On cancellation the sortition is left unsolved and cancelled is true
func (s *VdfSortition) ComputeVdfSolution(params lib.SortitionParams, vdfInput, modulus []byte, token *crypto.CancellationToken) (cancelled bool, e lib.ErrorI) {
	puzzle, e := s.NewPuzzle(params, vdfInput, modulus)
	if e != nil {
		return false, e
	}
	start := time.Now()
	outcome, err := puzzle.Prove(token)
	if err != nil {
		return false, lib.NewVDFError(err, s.Difficulty)
	}
	solution, ok := outcome.Solution()
	if !ok {
		return true, nil
	}
	s.SetSolution(solution, time.Since(start))
	return false, nil
}

// SetSolution() attaches a solved VDF and the time it took
func (s *VdfSortition) SetSolution(solution crypto.VDFSolution, elapsed time.Duration) {
	s.Solution, s.ComputationTime = solution, elapsed
}

// Equals() compares the encoded fields
func (s *VdfSortition) Equals(o *VdfSortition) bool {
	if s == nil || o == nil {
		return s == o
	}
	return bytes.Equal(s.Proof, o.Proof) && s.Solution.Equals(o.Solution) && s.Difficulty == o.Difficulty
}
