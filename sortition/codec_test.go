package sortition

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/canopy-network/sortition/lib"
	"github.com/canopy-network/sortition/lib/crypto"
	"github.com/stretchr/testify/require"
)

func newCodecSortition() *VdfSortition {
	return &VdfSortition{
		VrfSortition: VrfSortition{Proof: []byte{1, 2}},
		Solution:     crypto.VDFSolution{Proof: []byte{3}, Output: []byte{}},
		Difficulty:   8,
	}
}

func TestEncode(t *testing.T) {
	s := newCodecSortition()
	bz := s.Encode()
	require.Equal(t, "c6820102038008", hex.EncodeToString(bz))
	got, err := Decode(bz)
	require.NoError(t, err)
	require.True(t, s.Equals(got))
	require.Equal(t, bz, got.Encode())
}

func TestEncodeDecode(t *testing.T) {
	long := bytes.Repeat([]byte{0xab}, 1024)
	tests := []struct {
		name      string
		sortition *VdfSortition
	}{
		{name: "nil fields", sortition: &VdfSortition{}},
		{
			name: "empty fields",
			sortition: &VdfSortition{
				VrfSortition: VrfSortition{Proof: []byte{}},
				Solution:     crypto.VDFSolution{Proof: []byte{}, Output: []byte{}},
			},
		},
		{
			name: "single bytes around the short string boundary",
			sortition: &VdfSortition{
				VrfSortition: VrfSortition{Proof: []byte{0x00}},
				Solution:     crypto.VDFSolution{Proof: []byte{0x7f}, Output: []byte{0x80}},
				Difficulty:   0x7f,
			},
		},
		{
			name: "single byte difficulty above the short integer boundary",
			sortition: &VdfSortition{
				VrfSortition: VrfSortition{Proof: []byte{1}},
				Difficulty:   0x80,
			},
		},
		{
			name: "maximal difficulty",
			sortition: &VdfSortition{
				VrfSortition: VrfSortition{Proof: []byte{1, 2, 3}},
				Solution:     crypto.VDFSolution{Proof: []byte{4}, Output: []byte{5}},
				Difficulty:   math.MaxUint16,
			},
		},
		{
			name: "long proofs",
			sortition: &VdfSortition{
				VrfSortition: VrfSortition{Proof: long[:81]},
				Solution:     crypto.VDFSolution{Proof: long[:256], Output: long},
				Difficulty:   21,
			},
		},
		{
			name: "computation time is not encoded",
			sortition: &VdfSortition{
				VrfSortition:    VrfSortition{Proof: []byte{9}},
				Solution:        crypto.VDFSolution{Proof: []byte{8}, Output: []byte{7}},
				Difficulty:      16,
				ComputationTime: time.Second,
			},
		},
	}
	// every length around the 55 byte switch to a long string prefix
	for n := 50; n <= 60; n++ {
		tests = append(tests, struct {
			name      string
			sortition *VdfSortition
		}{
			name: fmt.Sprintf("%d byte fields", n),
			sortition: &VdfSortition{
				VrfSortition: VrfSortition{Proof: long[:n]},
				Solution:     crypto.VDFSolution{Proof: long[:n], Output: long[:n]},
				Difficulty:   uint16(n),
			},
		})
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			bz := test.sortition.Encode()
			require.NotEmpty(t, bz)
			got, err := Decode(bz)
			require.NoError(t, err)
			require.True(t, test.sortition.Equals(got))
			require.Zero(t, got.ComputationTime)
			// the encoding is canonical
			require.Equal(t, bz, got.Encode())
		})
	}
}

func TestEncodeSolved(t *testing.T) {
	keys, params, modulus := newTestKeys(t), newTestParams(), newTestModulus(t)
	s, c := newSolvedSortition(t, keys, params, modulus)
	got, err := Decode(s.Encode())
	require.NoError(t, err)
	require.True(t, s.Equals(got))
	// the decoded record still validates
	require.NoError(t, got.VerifyVdf(params, keys.vrf, modulus, c))
}

func TestDecodeEmpty(t *testing.T) {
	got, err := Decode(nil)
	require.NoError(t, err)
	require.True(t, got.Equals(&VdfSortition{}))
	require.Zero(t, got.Difficulty)
	require.True(t, got.Solution.IsEmpty())
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "three items", input: "c58201020380"},
		{name: "five items", input: "c7820102038008" + "01"},
		{name: "trailing bytes", input: "c6820102038008" + "00"},
		{name: "not a list", input: "820102"},
		{name: "truncated", input: "c6820102"},
		{name: "difficulty over 16 bits", input: "c9820102038083010000"},
		{name: "non-canonical difficulty", input: "c8820102038082" + "0008"},
		{name: "nested list as proof", input: "c7c3820102038008"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			bz, e := hex.DecodeString(test.input)
			require.NoError(t, e)
			_, err := Decode(bz)
			require.Error(t, err)
			require.True(t, lib.IsCode(err, lib.SortitionModule, lib.CodeMalformedEncoding))
		})
	}
}

func TestDisplayJSON(t *testing.T) {
	bz, err := json.Marshal(newCodecSortition())
	require.NoError(t, err)
	require.JSONEq(t, `{"proof":"0x0102","sol1":"03","sol2":"","difficulty":"0x8"}`, string(bz))
	// the value marshals the same as the pointer
	byValue, err := json.Marshal(*newCodecSortition())
	require.NoError(t, err)
	require.Equal(t, bz, byValue)
	// and parses back
	got := new(VdfSortition)
	require.NoError(t, json.Unmarshal(bz, got))
	require.True(t, newCodecSortition().Equals(got))
}

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *VdfSortition
		wantErr  bool
	}{
		{
			name:     "bare hex and decimal difficulty",
			input:    `{"proof":"0102","sol1":"0x03","sol2":"","difficulty":"8"}`,
			expected: newCodecSortition(),
		},
		{
			name:     "upper case prefix",
			input:    `{"proof":"0X0102","sol1":"03","sol2":"0x","difficulty":"0x08"}`,
			expected: newCodecSortition(),
		},
		{name: "bad hex", input: `{"proof":"zz","sol1":"","sol2":"","difficulty":"1"}`, wantErr: true},
		{name: "odd length hex", input: `{"proof":"012","sol1":"","sol2":"","difficulty":"1"}`, wantErr: true},
		{name: "missing difficulty", input: `{"proof":"","sol1":"","sol2":""}`, wantErr: true},
		{name: "difficulty over 16 bits", input: `{"proof":"","sol1":"","sol2":"","difficulty":"0x10000"}`, wantErr: true},
		{name: "not an object", input: `[1,2]`, wantErr: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := new(VdfSortition)
			err := json.Unmarshal([]byte(test.input), got)
			if test.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.True(t, test.expected.Equals(got))
		})
	}
}
