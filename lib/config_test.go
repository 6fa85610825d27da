package lib

import (
	"math/big"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	// calculate expected
	expected := Config{
		MainConfig:      DefaultMainConfig(),
		SortitionConfig: DefaultSortitionConfig(),
		StoreConfig:     DefaultStoreConfig(),
		MetricsConfig:   DefaultMetricsConfig(),
	}
	// execute the function call
	got := DefaultConfig()
	// compare got vs expected
	diff := cmp.Diff(expected, got)
	require.Empty(t, diff, "config mismatch: %s", diff)
	// the defaults are valid
	require.NoError(t, got.Validate())
}

func TestFileConfig(t *testing.T) {
	filePath := "./test_config"
	// define a variable to test upon
	config := DefaultConfig()
	config.Params.VRF.ThresholdUpper = 1000
	// write to file
	require.NoError(t, config.WriteToFile(filePath))
	defer os.RemoveAll(filePath)
	// read from file
	got, err := NewConfigFromFile(filePath)
	require.NoError(t, err)
	// compare got vs expected
	require.Equal(t, config, got)
}

func TestPartialFileConfig(t *testing.T) {
	filePath := "./test_partial_config"
	// only override a nested sortition parameter
	require.NoError(t, os.WriteFile(filePath, []byte(`{"params":{"vrf":{"thresholdUpper":1000},"vdf":{"difficultyMin":1,"difficultyMax":16,"difficultyStale":17,"lambdaBound":100}}}`), os.ModePerm))
	defer os.RemoveAll(filePath)
	got, err := NewConfigFromFile(filePath)
	require.NoError(t, err)
	// overridden values
	require.EqualValues(t, 1000, got.Params.VRF.ThresholdUpper)
	require.EqualValues(t, 17, got.Params.VDF.DifficultyStale)
	// everything else keeps its default
	require.Equal(t, DefaultMainConfig(), got.MainConfig)
	require.Equal(t, DefaultSortitionConfig().Modulus, got.Modulus)
}

func TestSortitionParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		params SortitionParams
		valid  bool
	}{
		{
			name:   "default",
			params: DefaultSortitionParams(),
			valid:  true,
		},
		{
			name:   "max below min",
			params: SortitionParams{VRF: VrfParams{ThresholdUpper: 1000}, VDF: VdfParams{DifficultyMin: 5, DifficultyMax: 4}},
		},
		{
			name:   "threshold upper smaller than the range",
			params: SortitionParams{VRF: VrfParams{ThresholdUpper: 3}, VDF: VdfParams{DifficultyMin: 1, DifficultyMax: 4}},
		},
		{
			name:   "stale inside the range",
			params: SortitionParams{VRF: VrfParams{ThresholdUpper: 1000}, VDF: VdfParams{DifficultyMin: 0, DifficultyMax: 1, DifficultyStale: 0}},
			valid:  true,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.params.Validate()
			if test.valid {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidSortitionParams(""))
		})
	}
}

func TestSortitionConfigValidate(t *testing.T) {
	// invalid modulus
	c := DefaultSortitionConfig()
	c.Modulus = "not a number"
	require.ErrorIs(t, c.Validate(), ErrInvalidModulus())
	c.Modulus = "0x01"
	require.ErrorIs(t, c.Validate(), ErrInvalidModulus())
	// hex modulus parses but is too small to keep its factors secret
	c.Modulus = "0xd5a6f57f928b2d00"
	bz, err := c.ModulusBytes()
	require.NoError(t, err)
	require.Equal(t, []byte{213, 166, 245, 127, 146, 139, 45, 0}, bz)
	require.True(t, IsCode(c.Validate(), MainModule, CodeInvalidConfig))
	// unknown vrf scheme
	c = DefaultSortitionConfig()
	c.VRFScheme = "ed25519"
	require.True(t, IsCode(c.Validate(), SortitionModule, CodeInvalidVRFScheme))
	// inverted targets
	c = DefaultSortitionConfig()
	c.DagEfficiencyTargets = [2]uint16{7100, 6900}
	require.ErrorIs(t, c.Validate(), ErrInvalidEfficiencyTargets())
	// adjustment disabled skips the adjustment checks
	c.ChangingInterval = 0
	require.NoError(t, c.Validate())
	// missing computation interval
	c = DefaultSortitionConfig()
	c.ComputationInterval = 0
	require.ErrorIs(t, c.Validate(), ErrInvalidAdjustmentInterval())
	// target efficiency
	require.EqualValues(t, 7000, DefaultSortitionConfig().TargetEfficiency())
}

func TestDefaultModulus(t *testing.T) {
	bz, err := DefaultSortitionConfig().ModulusBytes()
	require.NoError(t, err)
	require.Equal(t, 2048, new(big.Int).SetBytes(bz).BitLen())
	// a factored challenge number is below the minimum size
	c := DefaultSortitionConfig()
	c.Modulus = "1522605027922533360535618378132637429718068114961380688657908494580122963258952897654000350692006139"
	_, err = c.ModulusBytes()
	require.NoError(t, err)
	require.True(t, IsCode(c.Validate(), MainModule, CodeInvalidConfig))
	// the smallest accepted modulus
	c.Modulus = new(big.Int).Lsh(big.NewInt(1), MinModulusBits-1).String()
	require.NoError(t, c.Validate())
	c.Modulus = new(big.Int).Lsh(big.NewInt(1), MinModulusBits-2).String()
	require.True(t, IsCode(c.Validate(), MainModule, CodeInvalidConfig))
}

func TestGetLogLevel(t *testing.T) {
	for level, expected := range map[string]int32{"debug": DebugLevel, "INFO": InfoLevel, "warning": WarnLevel, "error": ErrorLevel, "": DebugLevel} {
		m := MainConfig{LogLevel: level}
		require.Equal(t, expected, m.GetLogLevel(), level)
	}
}
