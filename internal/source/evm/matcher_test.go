package evm

import (
	"testing"

	"github.com/devblac/logsync/internal/spec"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

const usdc = "0xA0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"

func transferSpec() spec.Specification {
	return spec.Specification{
		ContractName:    "usdc",
		SpecName:        "transfers",
		Chain:           "mainnet",
		ContractAddress: usdc,
		EventName:       "Transfer",
		EventSignature:  "Transfer(address,address,uint256)",
		Fields: []spec.Field{
			{Name: "from", SolidityType: "address", Indexed: true},
			{Name: "to", SolidityType: "address", Indexed: true},
			{Name: "value", SolidityType: "uint256"},
		},
		Table: spec.Table{Name: "usdc_transfers"},
	}
}

func approvalSpec() spec.Specification {
	s := transferSpec()
	s.SpecName = "approvals"
	s.EventName = "Approval"
	s.EventSignature = "Approval(address,address,uint256)"
	s.Fields[1].Name = "spender"
	s.Table.Name = "usdc_approvals"
	return s
}

func addressTopic(hexAddr string) common.Hash {
	return common.BytesToHash(common.HexToAddress(hexAddr).Bytes())
}

func uintWord(v byte) []byte {
	w := make([]byte, WordSize)
	w[WordSize-1] = v
	return w
}

// field returns the decoded value of the named field.
func field(d DecodedLog, name string) (any, bool) {
	for _, v := range d.Values {
		if v.Name == name {
			return v.Value, true
		}
	}
	return nil, false
}

func TestMatcher_DecodesTransfer(t *testing.T) {
	m, err := NewMatcher(transferSpec(), 0)
	require.NoError(t, err)

	from := "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	to := "0x000000000000000000000000000000000000bEEF"
	log := types.Log{
		Address:     common.HexToAddress(usdc),
		Topics:      []common.Hash{crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)")), addressTopic(from), addressTopic(to)},
		Data:        uintWord(0x2A),
		BlockNumber: 100,
		TxHash:      common.HexToHash("0x01"),
		Index:       3,
	}
	require.True(t, m.Matches(log))

	got := m.Decode(log, 1700000000)
	require.Equal(t, uint64(100), got.BlockNumber)
	require.Equal(t, uint64(1700000000), got.BlockTimestamp)
	require.Equal(t, uint(3), got.LogIndex)
	require.Equal(t, common.HexToHash("0x01").Hex(), got.TxHash)
	require.Equal(t, []any{
		"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		"0x000000000000000000000000000000000000beef",
		"42",
	}, got.Args())
}

func TestMatcher_RejectsOtherEvents(t *testing.T) {
	m, err := NewMatcher(transferSpec(), 0)
	require.NoError(t, err)
	wrongTopic := types.Log{
		Address: common.HexToAddress(usdc),
		Topics:  []common.Hash{crypto.Keccak256Hash([]byte("Approval(address,address,uint256)"))},
	}
	require.False(t, m.Matches(wrongTopic), "approval must not match transfer")
	wrongAddr := types.Log{
		Address: common.HexToAddress("0x01"),
		Topics:  []common.Hash{crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))},
	}
	require.False(t, m.Matches(wrongAddr), "other contract must not match")
	require.False(t, m.Matches(types.Log{Address: common.HexToAddress(usdc)}), "anonymous log must not match")
}

func TestMatcher_ShortDataYieldsNil(t *testing.T) {
	s := transferSpec()
	s.Fields = append(s.Fields, spec.Field{Name: "memo", SolidityType: "bytes32"})
	m, err := NewMatcher(s, 0)
	require.NoError(t, err)
	log := types.Log{
		Address: common.HexToAddress(usdc),
		Topics:  []common.Hash{m.Topic0(), addressTopic("0x01"), addressTopic("0x02")},
		Data:    uintWord(7),
	}
	got := m.Decode(log, 0)
	v, _ := field(got, "value")
	require.Equal(t, "7", v)
	v, ok := field(got, "memo")
	require.True(t, ok)
	require.Nil(t, v)
}

func TestMatcher_IndexedFallsBackToData(t *testing.T) {
	m, err := NewMatcher(transferSpec(), 0)
	require.NoError(t, err)
	data := append(append(common.LeftPadBytes(common.HexToAddress("0x02").Bytes(), WordSize), uintWord(0)...), uintWord(9)...)
	log := types.Log{
		Address: common.HexToAddress(usdc),
		Topics:  []common.Hash{m.Topic0(), addressTopic("0x01")},
		Data:    data,
	}
	got := m.Decode(log, 0)
	to, _ := field(got, "to")
	require.Equal(t, "0x0000000000000000000000000000000000000002", to)
	value, _ := field(got, "value")
	require.Equal(t, "0", value)
}

func TestNewMatcher_InvalidAddress(t *testing.T) {
	s := transferSpec()
	s.ContractAddress = "not-an-address"
	_, err := NewMatcher(s, 0)
	require.ErrorIs(t, err, ErrInvalidAddress)
	_, err = NewRouter([]spec.Specification{transferSpec(), s})
	require.ErrorIs(t, err, ErrInvalidAddress)
}

func TestRouter_RoutesEachLogToOneSpec(t *testing.T) {
	other := transferSpec()
	other.ContractName = "dai"
	other.ContractAddress = "0x6B175474E89094C44Da98b954EedeAC495271d0F"
	other.Table.Name = "dai_transfers"

	r, err := NewRouter([]spec.Specification{transferSpec(), approvalSpec(), other})
	require.NoError(t, err)
	require.Len(t, r.Addresses(), 2)
	require.Len(t, r.Matchers(), 3)

	approval := types.Log{
		Address: common.HexToAddress(usdc),
		Topics:  []common.Hash{crypto.Keccak256Hash([]byte("Approval(address,address,uint256)"))},
	}
	m, ok := r.Route(approval)
	require.True(t, ok)
	require.Equal(t, "usdc_approvals", m.Spec.Table.Name)
	require.Equal(t, 1, m.Index)

	daiTransfer := types.Log{
		Address: common.HexToAddress(other.ContractAddress),
		Topics:  []common.Hash{crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))},
	}
	m, ok = r.Route(daiTransfer)
	require.True(t, ok)
	require.Equal(t, "dai_transfers", m.Spec.Table.Name)

	unknown := types.Log{
		Address: common.HexToAddress(usdc),
		Topics:  []common.Hash{crypto.Keccak256Hash([]byte("Paused(address)"))},
	}
	_, ok = r.Route(unknown)
	require.False(t, ok, "unknown event must not route")
}

func TestRouter_FirstMatchWins(t *testing.T) {
	dup := transferSpec()
	dup.SpecName = "transfers_copy"
	dup.Table.Name = "usdc_transfers_copy"
	r, err := NewRouter([]spec.Specification{transferSpec(), dup})
	require.NoError(t, err)
	log := types.Log{
		Address: common.HexToAddress(usdc),
		Topics:  []common.Hash{crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))},
	}
	m, ok := r.Route(log)
	require.True(t, ok)
	require.Equal(t, 0, m.Index)
}
