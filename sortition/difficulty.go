package sortition

import "github.com/canopy-network/sortition/lib"

// ThresholdCorrection scales a VRF threshold before it is placed in a difficulty bucket
const ThresholdCorrection = 10

// CalculateDifficulty() maps a VRF threshold onto [DifficultyMin, DifficultyMax] or DifficultyStale
//
//	corrected = threshold * ThresholdCorrection
//	corrected >= ThresholdUpper  -> DifficultyStale
//	otherwise                    -> DifficultyMin + corrected / (ThresholdUpper / (max - min + 1))
//
// Integer division truncates and the sum is truncated to 16 bits; when ThresholdUpper is not a multiple of the
// range size the last bucket spills over DifficultyMax. Every peer must compute the identical value.
func CalculateDifficulty(threshold uint16, params lib.SortitionParams) uint16 {
	corrected := uint32(threshold) * ThresholdCorrection
	if corrected >= uint32(params.VRF.ThresholdUpper) {
		return params.VDF.DifficultyStale
	}
	// an empty or inverted range has no buckets
	count := params.NumberOfDifficulties()
	if count == 0 {
		return params.VDF.DifficultyStale
	}
	bucket := uint32(params.VRF.ThresholdUpper) / count
	if bucket == 0 {
		return params.VDF.DifficultyStale
	}
	return uint16(uint32(params.VDF.DifficultyMin) + corrected/bucket)
}

// DifficultyOf() is CalculateDifficulty() over anything that carries a threshold
func DifficultyOf(t ThresholdI, params lib.SortitionParams) uint16 {
	return CalculateDifficulty(t.Threshold(), params)
}

// IsStale() returns true if the difficulty is the one reserved for stale sortitions
func IsStale(difficulty uint16, params lib.SortitionParams) bool {
	return difficulty == params.VDF.DifficultyStale
}
