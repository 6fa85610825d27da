package sortition

import (
	"math"
	"testing"

	"github.com/canopy-network/sortition/lib"
	"github.com/stretchr/testify/require"
)

func newDifficultyParams(upper, lo, hi, stale uint16) lib.SortitionParams {
	return lib.SortitionParams{
		VRF: lib.VrfParams{ThresholdUpper: upper},
		VDF: lib.VdfParams{DifficultyMin: lo, DifficultyMax: hi, DifficultyStale: stale, LambdaBound: 100},
	}
}

func TestCalculateDifficulty(t *testing.T) {
	tests := []struct {
		name      string
		params    lib.SortitionParams
		threshold uint16
		expected  uint16
	}{
		{name: "lowest threshold", params: newDifficultyParams(1000, 1, 16, 17), threshold: 0, expected: 1},
		{name: "middle bucket", params: newDifficultyParams(1000, 1, 16, 17), threshold: 50, expected: 9},
		{name: "last non-stale threshold", params: newDifficultyParams(1000, 1, 16, 17), threshold: 99, expected: 16},
		{name: "first stale threshold", params: newDifficultyParams(1000, 1, 16, 17), threshold: 100, expected: 17},
		{name: "maximum threshold", params: newDifficultyParams(1000, 1, 16, 17), threshold: math.MaxUint16, expected: 17},
		{name: "last bucket spills over max", params: newDifficultyParams(1005, 1, 16, 20), threshold: 100, expected: 17},
		{name: "defaults", params: lib.DefaultSortitionParams(), threshold: 250, expected: 18},
		{name: "empty range", params: newDifficultyParams(1000, 5, 4, 30), threshold: 0, expected: 30},
		{name: "inverted range", params: newDifficultyParams(1000, 10, 5, 30), threshold: 0, expected: 30},
		{name: "more difficulties than the upper", params: newDifficultyParams(6000, 0, math.MaxUint16, 30), threshold: 0, expected: 30},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, CalculateDifficulty(test.threshold, test.params))
		})
	}
}

func TestCalculateDifficultyMonotonic(t *testing.T) {
	params := lib.DefaultSortitionParams()
	previous := CalculateDifficulty(0, params)
	for threshold := 0; threshold <= math.MaxUint16; threshold++ {
		got := CalculateDifficulty(uint16(threshold), params)
		require.GreaterOrEqual(t, got, previous)
		if !IsStale(got, params) {
			require.GreaterOrEqual(t, got, params.VDF.DifficultyMin)
			require.LessOrEqual(t, got, params.VDF.DifficultyMax)
		}
		previous = got
	}
	require.True(t, IsStale(previous, params))
}

func TestDifficultyOf(t *testing.T) {
	params := newDifficultyParams(1000, 1, 16, 17)
	require.Equal(t, uint16(16), DifficultyOf(&VrfSortition{threshold: 99}, params))
	require.Equal(t, uint16(17), DifficultyOf(&VrfSortition{threshold: 100}, params))
	require.True(t, IsStale(17, params))
	require.False(t, IsStale(16, params))
}
