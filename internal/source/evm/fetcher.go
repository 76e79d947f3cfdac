package evm

import (
	"context"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// DefaultChunkSize keeps eth_getLogs ranges under common provider limits.
const DefaultChunkSize = 1000

// Range is an inclusive block range.
type Range struct {
	From uint64
	To   uint64
}

// Len is the number of blocks in the range.
func (r Range) Len() uint64 {
	return r.To - r.From + 1
}

// nextRange returns the chunk starting at from, capped at head.
func nextRange(from, head, size uint64) Range {
	to := head
	if head-from >= size {
		to = from + size - 1
	}
	return Range{From: from, To: to}
}

// Chunks splits [from, head] into contiguous ranges of at most size blocks.
func Chunks(from, head, size uint64) []Range {
	if size == 0 {
		size = DefaultChunkSize
	}
	var out []Range
	for from <= head {
		r := nextRange(from, head, size)
		out = append(out, r)
		if r.To == head {
			break
		}
		from = r.To + 1
	}
	return out
}

// Fetcher pulls logs for a fixed address set in bounded ranges.
type Fetcher struct {
	client    BlockClient
	addresses []common.Address
	chunkSize uint64
}

// NewFetcher builds a fetcher; chunkSize 0 selects DefaultChunkSize.
func NewFetcher(client BlockClient, addresses []common.Address, chunkSize uint64) *Fetcher {
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}
	return &Fetcher{client: client, addresses: addresses, chunkSize: chunkSize}
}

// Fetch returns every log of the address set inside r.
func (f *Fetcher) Fetch(ctx context.Context, r Range) ([]types.Log, error) {
	logs, err := f.client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(r.From),
		ToBlock:   new(big.Int).SetUint64(r.To),
		Addresses: f.addresses,
	})
	if err != nil {
		return nil, fmt.Errorf("filter logs %d-%d: %w", r.From, r.To, err)
	}
	return logs, nil
}

// Each walks [from, head] chunk by chunk in increasing block order and hands
// every chunk's logs to fn. The first fetch or fn error stops the walk.
func (f *Fetcher) Each(ctx context.Context, from, head uint64, fn func(ctx context.Context, r Range, logs []types.Log) error) error {
	for _, r := range Chunks(from, head, f.chunkSize) {
		logs, err := f.Fetch(ctx, r)
		if err != nil {
			return err
		}
		if err := fn(ctx, r, logs); err != nil {
			return err
		}
	}
	return nil
}
