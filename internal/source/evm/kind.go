package evm

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// Kind is the decode strategy for a single ABI word.
type Kind int

const (
	// KindRaw covers dynamic and unsupported types: the word is kept as hex.
	KindRaw Kind = iota
	KindAddress
	KindBool
	KindUint
	KindInt
	KindFixedBytes
)

// FieldType is a parsed solidity type. Size is the byte width for KindFixedBytes
// and the bit width for KindUint and KindInt.
type FieldType struct {
	Kind Kind
	Size int
}

// ParseType maps a solidity type name onto a FieldType. Names the ABI parser
// rejects, plus dynamic and composite types, map to KindRaw.
func ParseType(solidity string) FieldType {
	t, err := abi.NewType(normalizeType(solidity), "", nil)
	if err != nil {
		return FieldType{Kind: KindRaw}
	}
	switch t.T {
	case abi.AddressTy:
		return FieldType{Kind: KindAddress}
	case abi.BoolTy:
		return FieldType{Kind: KindBool}
	case abi.UintTy:
		return FieldType{Kind: KindUint, Size: t.Size}
	case abi.IntTy:
		return FieldType{Kind: KindInt, Size: t.Size}
	case abi.FixedBytesTy:
		return FieldType{Kind: KindFixedBytes, Size: t.Size}
	default:
		return FieldType{Kind: KindRaw}
	}
}

func normalizeType(solidity string) string {
	s := strings.TrimSpace(solidity)
	switch s {
	case "uint":
		return "uint256"
	case "int":
		return "int256"
	case "byte":
		return "bytes1"
	}
	return s
}

// Decode formats one 32-byte word. Integers of either signedness are read as
// unsigned 256-bit big-endian and rendered in decimal.
func (f FieldType) Decode(word []byte) any {
	if len(word) != WordSize {
		return hexutil.Encode(word)
	}
	switch f.Kind {
	case KindAddress:
		return hexutil.Encode(word[WordSize-20:])
	case KindBool:
		for _, b := range word {
			if b != 0 {
				return true
			}
		}
		return false
	case KindUint, KindInt:
		return new(uint256.Int).SetBytes32(word).Dec()
	case KindFixedBytes:
		n := f.Size
		if n <= 0 || n > WordSize {
			n = WordSize
		}
		return hexutil.Encode(word[:n])
	default:
		return hexutil.Encode(word)
	}
}
