package lib

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/units"
	"github.com/canopy-network/sortition/lib/crypto"
)

/* This file implements the 'user controlled' configuration of each module, including the consensus-critical sortition parameters */

const (
	// FILE NAMES in the 'data directory'
	ConfigFilePath = "config.json"  // the file path for the node configuration
	VRFKeyFilePath = "vrf_key.json" // the file path for the local VRF key pair

	// RSA2048Modulus is the RSA-2048 challenge number; its factorization has never been published
	RSA2048Modulus = "25195908475657893494027183240048398571429282126204032027777137836043662020707595556264018525880784406918290641249515082189298559149176184502808489120072844992687392807287776735971418347270261896375014971824691165077613379859095700097330459748808428401797429100642458691817195118746121515172654632282216869987549182422433637259085141865462043576798423387184774447920739934236584823824281198163815010674810451660377306056201619676256133844143603833904414952634432190114657544454178424020924616515723350778707749817125772467962926386356373289912154831438167899885040445364023527381951378636564391212010397122822120720357"
	// MinModulusBits is the smallest configurable VDF modulus; smaller moduli are practical to factor
	MinModulusBits = 1024
)

// Config is the structure of the user configuration options
type Config struct {
	MainConfig      // main options spanning over all modules
	SortitionConfig // vrf + vdf sortition options
	StoreConfig     // persistence options
	MetricsConfig   // telemetry options
}

// DefaultConfig() returns a Config with developer set options
func DefaultConfig() Config {
	return Config{
		MainConfig:      DefaultMainConfig(),
		SortitionConfig: DefaultSortitionConfig(),
		StoreConfig:     DefaultStoreConfig(),
		MetricsConfig:   DefaultMetricsConfig(),
	}
}

// Validate() checks every section that carries invariants
func (c Config) Validate() ErrorI { return c.SortitionConfig.Validate() }

// MAIN CONFIG BELOW

type MainConfig struct {
	LogLevel     string `json:"logLevel"`     // any level includes the levels above it: debug < info < warning < error
	LogMaxSizeMB int    `json:"logMaxSizeMB"` // size of a log file before it is rotated
	LogBackups   int    `json:"logBackups"`   // number of rotated log files kept
}

// DefaultMainConfig() sets log level to 'info'
func DefaultMainConfig() MainConfig {
	return MainConfig{
		LogLevel:     "info",
		LogMaxSizeMB: 1,
		LogBackups:   1500,
	}
}

// GetLogLevel() parses the log string in the config file into a LogLevel Enum
func (m *MainConfig) GetLogLevel() int32 {
	switch level := strings.ToLower(m.LogLevel); {
	case strings.Contains(level, "deb"):
		return DebugLevel
	case strings.Contains(level, "inf"):
		return InfoLevel
	case strings.Contains(level, "war"):
		return WarnLevel
	case strings.Contains(level, "err"):
		return ErrorLevel
	default:
		return DebugLevel
	}
}

// LoggerConfig() converts the main options into a logger configuration
func (m *MainConfig) LoggerConfig() LoggerConfig {
	return LoggerConfig{Level: m.GetLogLevel(), MaxSizeMB: m.LogMaxSizeMB, MaxBackups: m.LogBackups, MaxAgeDays: 14}
}

// SORTITION PARAMS BELOW

// VrfParams configures the VRF side of the sortition
type VrfParams struct {
	ThresholdUpper uint16 `json:"thresholdUpper"` // corrected thresholds at or above this value are stale
}

// VdfParams configures the VDF side of the sortition
type VdfParams struct {
	DifficultyMin   uint16 `json:"difficultyMin"`   // lowest non-stale difficulty
	DifficultyMax   uint16 `json:"difficultyMax"`   // highest non-stale difficulty
	DifficultyStale uint16 `json:"difficultyStale"` // difficulty assigned to stale sortitions
	LambdaBound     uint16 `json:"lambdaBound"`     // security parameter of the Fiat-Shamir prime
}

// SortitionParams are the consensus-critical parameters; every node must use identical values
type SortitionParams struct {
	VRF VrfParams `json:"vrf"`
	VDF VdfParams `json:"vdf"`
}

// DefaultSortitionParams() returns the developer network parameters
func DefaultSortitionParams() SortitionParams {
	return SortitionParams{
		VRF: VrfParams{ThresholdUpper: 6000},
		VDF: VdfParams{
			DifficultyMin:   16,
			DifficultyMax:   21,
			DifficultyStale: 23,
			LambdaBound:     100,
		},
	}
}

// NumberOfDifficulties() is the size of the non-stale difficulty range
func (p SortitionParams) NumberOfDifficulties() uint32 {
	return uint32(p.VDF.DifficultyMax) - uint32(p.VDF.DifficultyMin) + 1
}

// Validate() rejects parameters that cannot yield a difficulty in [min, max]
func (p SortitionParams) Validate() ErrorI {
	if p.VDF.DifficultyMax < p.VDF.DifficultyMin {
		return ErrInvalidSortitionParams("difficulty max is below difficulty min")
	}
	if uint32(p.VRF.ThresholdUpper) < p.NumberOfDifficulties() {
		return ErrInvalidSortitionParams("threshold upper is smaller than the number of difficulties")
	}
	return nil
}

// SORTITION CONFIG BELOW

// SortitionConfig is the local configuration of the sortition engine and its parameter adjustment
type SortitionConfig struct {
	Params                 SortitionParams `json:"params"`                 // parameters in effect from genesis
	VRFScheme              string          `json:"vrfScheme"`              // the VRF implementation: ecvrf-secp256k1 or bls12381
	Modulus                string          `json:"modulus"`                // the VDF RSA modulus as a decimal or 0x prefixed hex string
	ValidationWorkers      int             `json:"validationWorkers"`      // concurrent validations in a batch
	ChangesCountForAverage uint32          `json:"changesCountForAverage"` // efficiency samples averaged per adjustment
	DagEfficiencyTargets   [2]uint16       `json:"dagEfficiencyTargets"`   // [low, high] efficiency band in basis points
	ChangingInterval       uint64          `json:"changingInterval"`       // periods between adjustments; 0 disables adjustment
	ComputationInterval    uint64          `json:"computationInterval"`    // periods between efficiency samples
	MaxChangePercent       uint16          `json:"maxChangePercent"`       // largest relative threshold change per adjustment
}

// DefaultSortitionConfig() returns the developer recommended sortition configuration
func DefaultSortitionConfig() SortitionConfig {
	return SortitionConfig{
		Params:                 DefaultSortitionParams(),
		VRFScheme:              crypto.ECVRFSecp256k1,
		Modulus:                RSA2048Modulus,
		ValidationWorkers:      4,
		ChangesCountForAverage: 10,
		DagEfficiencyTargets:   [2]uint16{6900, 7100},
		ChangingInterval:       200,
		ComputationInterval:    50,
		MaxChangePercent:       10,
	}
}

// TargetEfficiency() is the middle of the efficiency band
func (c SortitionConfig) TargetEfficiency() uint16 {
	return uint16((uint32(c.DagEfficiencyTargets[0]) + uint32(c.DagEfficiencyTargets[1])) / 2)
}

// ModulusBytes() parses the configured modulus into big-endian bytes
func (c SortitionConfig) ModulusBytes() ([]byte, ErrorI) {
	n, ok := new(big.Int).SetString(c.Modulus, 0)
	if !ok || n.Cmp(big.NewInt(2)) < 0 {
		return nil, ErrInvalidModulus()
	}
	return n.Bytes(), nil
}

// Validate() checks the params, the VRF scheme, the modulus and the adjustment settings
func (c SortitionConfig) Validate() ErrorI {
	if err := c.Params.Validate(); err != nil {
		return err
	}
	if _, err := crypto.NewVRF(c.VRFScheme); err != nil {
		return ErrInvalidVRFScheme(err)
	}
	n, err := c.ModulusBytes()
	if err != nil {
		return err
	}
	// the group order must stay unknown, so the modulus must be too large to factor
	if bits := new(big.Int).SetBytes(n).BitLen(); bits < MinModulusBits {
		return ErrInvalidConfig(fmt.Sprintf("vdf modulus has %d bits, at least %d are required", bits, MinModulusBits))
	}
	if c.ChangingInterval == 0 {
		return nil
	}
	if c.ComputationInterval == 0 || c.ChangesCountForAverage == 0 {
		return ErrInvalidAdjustmentInterval()
	}
	if c.DagEfficiencyTargets[0] == 0 || c.DagEfficiencyTargets[0] > c.DagEfficiencyTargets[1] {
		return ErrInvalidEfficiencyTargets()
	}
	return nil
}

// STORE CONFIG BELOW

// StoreConfig is user configurations for the key value database
type StoreConfig struct {
	DataDirPath  string `json:"dataDirPath"`  // path of the designated folder where the application stores its data
	DBName       string `json:"dbName"`       // name of the database
	InMemory     bool   `json:"inMemory"`     // non-disk database, only for testing
	MemTableSize int64  `json:"memTableSize"` // size of each badger memtable in bytes
}

// DefaultDataDirPath() is $USERHOME/.sortition
func DefaultDataDirPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}
	return filepath.Join(home, ".sortition")
}

// DefaultStoreConfig() returns the developer recommended store configuration
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		DataDirPath:  DefaultDataDirPath(),
		DBName:       "sortition",
		InMemory:     false,
		MemTableSize: int64(16 * units.MiB),
	}
}

// METRICS CONFIG BELOW

// MetricsConfig represents the configuration for the metrics server
type MetricsConfig struct {
	Enabled           bool   `json:"enabled"`           // if the metrics server is enabled
	PrometheusAddress string `json:"prometheusAddress"` // the address of the server
}

// DefaultMetricsConfig() returns the default metrics configuration
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:           false,
		PrometheusAddress: "0.0.0.0:9090",
	}
}

// WriteToFile() saves the Config object to a JSON file
func (c Config) WriteToFile(filepath string) ErrorI {
	// convert the config to indented 'pretty' json bytes
	jsonBytes, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return ErrJSONMarshal(err)
	}
	// write the config.json file to the data directory
	if err = os.WriteFile(filepath, jsonBytes, os.ModePerm); err != nil {
		return ErrWriteFile(err)
	}
	return nil
}

// NewConfigFromFile() populates a Config object from a JSON file, filling any blanks with defaults
func NewConfigFromFile(filepath string) (Config, ErrorI) {
	fileBytes, err := os.ReadFile(filepath)
	if err != nil {
		return Config{}, ErrReadFile(err)
	}
	c := DefaultConfig()
	if err = json.Unmarshal(fileBytes, &c); err != nil {
		return Config{}, ErrJSONUnmarshal(err)
	}
	return c, nil
}
