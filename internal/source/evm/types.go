package evm

import (
	"errors"
)

// WordSize is the ABI slot width for topics and data words.
const WordSize = 32

// ErrInvalidAddress signals a specification whose contract address does not parse.
var ErrInvalidAddress = errors.New("invalid contract address")

// Value is one decoded field. A nil Value means the log carried no data for it.
type Value struct {
	Name  string
	Value any
}

// DecodedLog is a log matched to one specification and decoded into column values.
type DecodedLog struct {
	BlockNumber    uint64
	BlockTimestamp uint64
	TxHash         string
	LogIndex       uint
	Values         []Value
}

// Args returns the decoded values in declaration order.
func (d DecodedLog) Args() []any {
	out := make([]any, len(d.Values))
	for i, v := range d.Values {
		out[i] = v.Value
	}
	return out
}
