package evm

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/devblac/logsync/internal/spec"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Matcher recognizes and decodes the logs of one specification.
type Matcher struct {
	Spec spec.Specification
	// Index is the position of Spec in the slice the router was built from.
	Index int

	address common.Address
	topic0  common.Hash
	types   []FieldType
}

// NewMatcher compiles a specification into a matcher.
func NewMatcher(s spec.Specification, index int) (*Matcher, error) {
	if !common.IsHexAddress(s.ContractAddress) {
		return nil, fmt.Errorf("%w: spec %s: %q", ErrInvalidAddress, s.ID(), s.ContractAddress)
	}
	fts := make([]FieldType, len(s.Fields))
	for i, f := range s.Fields {
		fts[i] = ParseType(f.SolidityType)
	}
	return &Matcher{
		Spec:    s,
		Index:   index,
		address: common.HexToAddress(s.ContractAddress),
		topic0:  crypto.Keccak256Hash([]byte(s.EventSignature)),
		types:   fts,
	}, nil
}

// Address is the contract the matcher listens to.
func (m *Matcher) Address() common.Address { return m.address }

// Topic0 is the keccak256 hash of the event signature.
func (m *Matcher) Topic0() common.Hash { return m.topic0 }

// Matches reports whether the log was emitted by this specification's event.
func (m *Matcher) Matches(log types.Log) bool {
	return log.Address == m.address && len(log.Topics) > 0 && log.Topics[0] == m.topic0
}

// Decode reads the declared fields from topics and data. Indexed fields take the
// next topic while topics remain; everything else takes the next data word.
// Fields past the end of the data payload decode to nil.
func (m *Matcher) Decode(log types.Log, timestamp uint64) DecodedLog {
	out := DecodedLog{
		BlockNumber:    log.BlockNumber,
		BlockTimestamp: timestamp,
		TxHash:         log.TxHash.Hex(),
		LogIndex:       log.Index,
		Values:         make([]Value, len(m.Spec.Fields)),
	}

	topic := 1
	offset := 0
	for i, f := range m.Spec.Fields {
		v := Value{Name: f.Name}
		switch {
		case f.Indexed && topic < len(log.Topics):
			v.Value = m.types[i].Decode(log.Topics[topic].Bytes())
			topic++
		case offset+WordSize <= len(log.Data):
			v.Value = m.types[i].Decode(log.Data[offset : offset+WordSize])
			offset += WordSize
		default:
			offset = len(log.Data)
		}
		out.Values[i] = v
	}
	return out
}

// Router dispatches logs of one chain group to their matchers by contract address.
type Router struct {
	byAddress map[common.Address][]*Matcher
	matchers  []*Matcher
	addresses []common.Address
}

// NewRouter builds matchers for specs. Matchers sharing an address are tried in
// the order the specs were given.
func NewRouter(specs []spec.Specification) (*Router, error) {
	r := &Router{byAddress: make(map[common.Address][]*Matcher, len(specs))}
	for i, s := range specs {
		m, err := NewMatcher(s, i)
		if err != nil {
			return nil, err
		}
		if _, seen := r.byAddress[m.address]; !seen {
			r.addresses = append(r.addresses, m.address)
		}
		r.byAddress[m.address] = append(r.byAddress[m.address], m)
		r.matchers = append(r.matchers, m)
	}
	sort.Slice(r.addresses, func(i, j int) bool {
		return bytes.Compare(r.addresses[i].Bytes(), r.addresses[j].Bytes()) < 0
	})
	return r, nil
}

// Route returns the first matcher whose event signature matches the log.
func (r *Router) Route(log types.Log) (*Matcher, bool) {
	for _, m := range r.byAddress[log.Address] {
		if m.Matches(log) {
			return m, true
		}
	}
	return nil, false
}

// Addresses is the deduplicated, sorted address filter for eth_getLogs.
func (r *Router) Addresses() []common.Address {
	return r.addresses
}

// Matchers returns every matcher in spec order.
func (r *Router) Matchers() []*Matcher {
	return r.matchers
}
