package evm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseType(t *testing.T) {
	cases := []struct {
		in   string
		want FieldType
	}{
		{"address", FieldType{Kind: KindAddress}},
		{"bool", FieldType{Kind: KindBool}},
		{"uint256", FieldType{Kind: KindUint, Size: 256}},
		{"uint", FieldType{Kind: KindUint, Size: 256}},
		{"uint8", FieldType{Kind: KindUint, Size: 8}},
		{"int128", FieldType{Kind: KindInt, Size: 128}},
		{"int", FieldType{Kind: KindInt, Size: 256}},
		{"bytes4", FieldType{Kind: KindFixedBytes, Size: 4}},
		{"byte", FieldType{Kind: KindFixedBytes, Size: 1}},
		{"bytes", FieldType{Kind: KindRaw}},
		{"string", FieldType{Kind: KindRaw}},
		{"uint256[]", FieldType{Kind: KindRaw}},
		{"not_a_type", FieldType{Kind: KindRaw}},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseType(tc.in))
		})
	}
}

func TestFieldTypeDecode(t *testing.T) {
	addrWord := make([]byte, WordSize)
	for i := 12; i < WordSize; i++ {
		addrWord[i] = 0xAA
	}
	zero := make([]byte, WordSize)
	answer := uintWord(0x2A)
	full := make([]byte, WordSize)
	for i := range full {
		full[i] = 0xff
	}
	selector := make([]byte, WordSize)
	copy(selector, []byte{0xde, 0xad, 0xbe, 0xef})

	assert.Equal(t, "0x"+strings.Repeat("aa", 20), ParseType("address").Decode(addrWord))
	assert.Equal(t, false, ParseType("bool").Decode(zero))
	assert.Equal(t, true, ParseType("bool").Decode(uintWord(1)))
	assert.Equal(t, "42", ParseType("uint256").Decode(answer))
	assert.Equal(t, "0", ParseType("uint64").Decode(zero))
	assert.Equal(t,
		"115792089237316195423570985008687907853269984665640564039457584007913129639935",
		ParseType("int256").Decode(full))
	assert.Equal(t, "0xdeadbeef", ParseType("bytes4").Decode(selector))
	assert.Equal(t, "0x"+strings.Repeat("00", WordSize), ParseType("string").Decode(zero))
}
