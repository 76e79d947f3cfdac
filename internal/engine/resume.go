package engine

import (
	"context"
	"fmt"

	"github.com/devblac/logsync/internal/spec"
)

// BlockReader reads the highest stored block of a table.
type BlockReader interface {
	MaxBlock(ctx context.Context, table string) (uint64, bool, error)
}

// ResumePoint is the first block s still needs: one past the last stored block,
// or the configured start block for an empty or missing table.
func ResumePoint(ctx context.Context, r BlockReader, s spec.Specification) (uint64, error) {
	last, ok, err := r.MaxBlock(ctx, s.TableName())
	if err != nil {
		return 0, fmt.Errorf("resume point for %s: %w", s.ID(), err)
	}
	if !ok {
		return s.StartBlock, nil
	}
	return last + 1, nil
}

// FetchStart returns the earliest resume point across specs together with each
// spec's own resume point, indexed like specs.
func FetchStart(ctx context.Context, r BlockReader, specs []spec.Specification) (uint64, []uint64, error) {
	floors := make([]uint64, len(specs))
	var start uint64
	for i, s := range specs {
		p, err := ResumePoint(ctx, r, s)
		if err != nil {
			return 0, nil, err
		}
		floors[i] = p
		if i == 0 || p < start {
			start = p
		}
	}
	return start, floors, nil
}
