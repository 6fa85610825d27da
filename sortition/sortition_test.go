package sortition

import (
	"testing"

	"github.com/canopy-network/sortition/lib"
	"github.com/canopy-network/sortition/lib/crypto"
	"github.com/stretchr/testify/require"
)

// testKeys is a VRF key pair for tests
type testKeys struct {
	vrf        crypto.VRFI
	privateKey []byte
	publicKey  []byte
}

func newTestKeys(t *testing.T) testKeys {
	vrf := crypto.NewECVRF()
	sk, pk, err := vrf.GenerateKey()
	require.NoError(t, err)
	return testKeys{vrf: vrf, privateKey: sk, publicKey: pk}
}

// newTestParams() keeps difficulties small and makes a full-stake candidate practically never stale
func newTestParams() lib.SortitionParams {
	return lib.SortitionParams{
		VRF: lib.VrfParams{ThresholdUpper: 65000},
		VDF: lib.VdfParams{
			DifficultyMin:   4,
			DifficultyMax:   8,
			DifficultyStale: 10,
			LambdaBound:     20,
		},
	}
}

// testModulus is the factored RSA-100 number: small enough for fast tests, never valid in a config
const testModulus = "1522605027922533360535618378132637429718068114961380688657908494580122963258952897654000350692006139"

func newTestModulus(t *testing.T) []byte {
	modulus, err := lib.SortitionConfig{Modulus: testModulus}.ModulusBytes()
	require.NoError(t, err)
	return modulus
}

// newSolvedSortition() proposes a solved sortition for a candidate holding all the votes
func newSolvedSortition(t *testing.T, keys testKeys, params lib.SortitionParams, modulus []byte) (*VdfSortition, Candidate) {
	c := Candidate{
		PublicKey:      keys.publicKey,
		VrfInput:       MakeVrfInput(7, []byte("period hash")),
		VdfInput:       []byte("dag block"),
		VoteCount:      10,
		TotalVoteCount: 10,
	}
	s, err := NewVdfSortition(params, keys.vrf, keys.privateKey, c.VrfInput, c.VoteCount, c.TotalVoteCount)
	require.NoError(t, err)
	require.False(t, s.IsStale(params))
	cancelled, err := s.ComputeVdfSolution(params, c.VdfInput, modulus, crypto.NewCancellationToken())
	require.NoError(t, err)
	require.False(t, cancelled)
	return s, c
}

func TestNewVdfSortition(t *testing.T) {
	keys, params, modulus := newTestKeys(t), newTestParams(), newTestModulus(t)
	s, c := newSolvedSortition(t, keys, params, modulus)
	require.Equal(t, DifficultyOf(s, params), s.Difficulty)
	require.False(t, s.Solution.IsEmpty())
	// the same candidate always lands on the same difficulty
	again, err := NewVdfSortition(params, keys.vrf, keys.privateKey, c.VrfInput, c.VoteCount, c.TotalVoteCount)
	require.NoError(t, err)
	require.Equal(t, s.Difficulty, again.Difficulty)
	require.Equal(t, s.Proof, again.Proof)
	// the solution solves the committed puzzle
	puzzle, err := s.NewPuzzle(params, c.VdfInput, modulus)
	require.NoError(t, err)
	require.True(t, puzzle.Verify(s.Solution))
	// but not a puzzle over another message
	other, err := s.NewPuzzle(params, []byte("other block"), modulus)
	require.NoError(t, err)
	require.False(t, other.Verify(s.Solution))
}

func TestComputeVdfSolutionCancelled(t *testing.T) {
	keys, params, modulus := newTestKeys(t), newTestParams(), newTestModulus(t)
	s, err := NewVdfSortition(params, keys.vrf, keys.privateKey, []byte("seed"), 1, 1)
	require.NoError(t, err)
	token := crypto.NewCancellationToken()
	token.Cancel()
	cancelled, err := s.ComputeVdfSolution(params, []byte("dag block"), modulus, token)
	require.NoError(t, err)
	require.True(t, cancelled)
	require.True(t, s.Solution.IsEmpty())
	require.Zero(t, s.ComputationTime)
}

func TestComputeVdfSolutionInvalidModulus(t *testing.T) {
	keys, params := newTestKeys(t), newTestParams()
	s, err := NewVdfSortition(params, keys.vrf, keys.privateKey, []byte("seed"), 1, 1)
	require.NoError(t, err)
	_, err = s.ComputeVdfSolution(params, []byte("dag block"), []byte{1}, crypto.NewCancellationToken())
	require.ErrorIs(t, err, lib.ErrInvalidModulus())
}

func TestVdfSortitionEquals(t *testing.T) {
	a := &VdfSortition{VrfSortition: VrfSortition{Proof: []byte{1}}, Solution: crypto.VDFSolution{Proof: []byte{2}, Output: []byte{3}}, Difficulty: 5}
	b := &VdfSortition{VrfSortition: VrfSortition{Proof: []byte{1}}, Solution: crypto.VDFSolution{Proof: []byte{2}, Output: []byte{3}}, Difficulty: 5}
	require.True(t, a.Equals(b))
	// the computation time is not part of the record
	b.ComputationTime = 1
	require.True(t, a.Equals(b))
	b.Difficulty = 6
	require.False(t, a.Equals(b))
	require.False(t, a.Equals(nil))
	require.True(t, (*VdfSortition)(nil).Equals(nil))
}
