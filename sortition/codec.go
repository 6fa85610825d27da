package sortition

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/canopy-network/sortition/lib"
	"github.com/canopy-network/sortition/lib/crypto"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"
)

// vdfSortitionRLP is the wire layout: a list of exactly four items
type vdfSortitionRLP struct {
	Proof      []byte // the VRF proof
	Solution1  []byte // the VDF proof
	Solution2  []byte // the VDF output
	Difficulty uint16
}

// Encode() serializes the sortition into its RLP wire format
func (s *VdfSortition) Encode() []byte {
	bz, err := rlp.EncodeToBytes(&vdfSortitionRLP{
		Proof:      s.Proof,
		Solution1:  s.Solution.Proof,
		Solution2:  s.Solution.Output,
		Difficulty: s.Difficulty,
	})
	if err != nil {
		// byte strings and an unsigned integer always encode
		panic(err)
	}
	return bz
}

// Decode() parses the RLP wire format; empty input yields the default record
// Anything but a canonical list of exactly four items is rejected
func Decode(bz []byte) (*VdfSortition, lib.ErrorI) {
	if len(bz) == 0 {
		return &VdfSortition{}, nil
	}
	r := new(vdfSortitionRLP)
	if err := rlp.DecodeBytes(bz, r); err != nil {
		return nil, lib.ErrMalformedEncoding(err)
	}
	return &VdfSortition{
		VrfSortition: VrfSortition{Proof: r.Proof},
		Solution:     crypto.VDFSolution{Proof: r.Solution1, Output: r.Solution2},
		Difficulty:   r.Difficulty,
	}, nil
}

// DisplayJSON is the diagnostic representation of a sortition
type DisplayJSON struct {
	Proof      string `json:"proof"`      // 0x prefixed hex
	Sol1       string `json:"sol1"`       // bare hex
	Sol2       string `json:"sol2"`       // bare hex
	Difficulty string `json:"difficulty"` // 0x prefixed hex quantity
}

// ToDisplay() converts the sortition into its diagnostic representation
func (s *VdfSortition) ToDisplay() DisplayJSON {
	return DisplayJSON{
		Proof:      hexutil.Encode(s.Proof),
		Sol1:       hex.EncodeToString(s.Solution.Proof),
		Sol2:       hex.EncodeToString(s.Solution.Output),
		Difficulty: hexutil.EncodeUint64(uint64(s.Difficulty)),
	}
}

// MarshalJSON() implements the json.Marshaller interface
func (s VdfSortition) MarshalJSON() ([]byte, error) { return json.Marshal(s.ToDisplay()) }

// UnmarshalJSON() implements the json.Unmarshaler interface
// Byte fields accept hex with or without the 0x prefix and the difficulty accepts hex or decimal
func (s *VdfSortition) UnmarshalJSON(b []byte) error {
	var j DisplayJSON
	if err := json.Unmarshal(b, &j); err != nil {
		return lib.ErrJSONUnmarshal(err)
	}
	proof, err := decodeHex(j.Proof)
	if err != nil {
		return err
	}
	sol1, err := decodeHex(j.Sol1)
	if err != nil {
		return err
	}
	sol2, err := decodeHex(j.Sol2)
	if err != nil {
		return err
	}
	difficulty, err := decodeQuantity(j.Difficulty)
	if err != nil {
		return err
	}
	*s = VdfSortition{
		VrfSortition: VrfSortition{Proof: proof},
		Solution:     crypto.VDFSolution{Proof: sol1, Output: sol2},
		Difficulty:   difficulty,
	}
	return nil
}

// decodeHex() parses hex with an optional 0x prefix
func decodeHex(s string) ([]byte, lib.ErrorI) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	bz, err := hex.DecodeString(s)
	if err != nil {
		return nil, lib.ErrHexDecode(err)
	}
	return bz, nil
}

// decodeQuantity() parses a 16 bit quantity written as 0x prefixed hex or as decimal
func decodeQuantity(s string) (uint16, lib.ErrorI) {
	var (
		v   uint64
		err error
	)
	switch {
	case s == "":
		return 0, lib.ErrHexDecode(errors.New("empty difficulty"))
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		v, err = strconv.ParseUint(s[2:], 16, 16)
	default:
		v, err = strconv.ParseUint(s, 10, 16)
	}
	if err != nil {
		return 0, lib.ErrHexDecode(err)
	}
	return uint16(v), nil
}
