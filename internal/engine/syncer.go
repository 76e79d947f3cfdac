package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/devblac/logsync/internal/metrics"
	"github.com/devblac/logsync/internal/source/evm"
	"github.com/devblac/logsync/internal/storage"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/devblac/logsync/internal/engine"

// RowWriter persists decoded rows into target tables.
type RowWriter interface {
	HasTable(table string) bool
	Write(ctx context.Context, table string, row storage.Row) (bool, error)
}

// Options tune a Syncer. Zero values select defaults.
type Options struct {
	ChunkSize uint64
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	Tracer    trace.Tracer
}

// Syncer runs sync passes for chain groups. It holds no per-pass state and is
// safe to share between goroutines.
type Syncer struct {
	reader    BlockReader
	writer    RowWriter
	chunkSize uint64
	metrics   *metrics.Metrics
	log       *slog.Logger
	tracer    trace.Tracer
}

// PassResult summarizes one chain group pass.
type PassResult struct {
	PassID   string
	Chain    string
	From     uint64
	Head     uint64
	CaughtUp bool
	Fetched  int
	Inserted int
	Skipped  int
	Failed   int
}

// NewSyncer builds a syncer over a resume reader and a row writer.
func NewSyncer(reader BlockReader, writer RowWriter, opts Options) *Syncer {
	s := &Syncer{
		reader:    reader,
		writer:    writer,
		chunkSize: opts.ChunkSize,
		metrics:   opts.Metrics,
		log:       opts.Logger,
		tracer:    opts.Tracer,
	}
	if s.chunkSize == 0 {
		s.chunkSize = evm.DefaultChunkSize
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	return s
}

// SyncGroup brings every table of g up to the current chain head. A chunk or
// header failure aborts the pass; rows already written stay and the next pass
// resumes after them. Failures on single logs are logged and skipped.
func (s *Syncer) SyncGroup(ctx context.Context, g Group, client evm.BlockClient) (res PassResult, err error) {
	res = PassResult{PassID: uuid.NewString(), Chain: g.Chain}
	log := s.log.With("chain", g.Chain, "pass_id", res.PassID)
	started := time.Now()

	ctx, span := s.tracer.Start(ctx, "engine.sync_group", trace.WithAttributes(
		attribute.String("chain", g.Chain),
		attribute.Int("specs", len(g.Specs)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		s.metrics.Pass(g.Chain, err, time.Since(started))
	}()

	router, err := s.preflight(g)
	if err != nil {
		return res, err
	}

	head, err := client.BlockNumber(ctx)
	if err != nil {
		return res, fmt.Errorf("chain %s head: %w", g.Chain, err)
	}
	res.Head = head
	s.metrics.ChainHead(g.Chain, head)

	start, floors, err := FetchStart(ctx, s.reader, g.Specs)
	if err != nil {
		return res, err
	}
	res.From = start
	for i, sp := range g.Specs {
		s.metrics.ResumeBlock(sp.TableName(), floors[i])
	}
	span.SetAttributes(
		attribute.Int64("from", int64(start)),
		attribute.Int64("head", int64(head)),
	)

	if start > head {
		res.CaughtUp = true
		log.Debug("chain group caught up", "from", start, "head", head)
		return res, nil
	}

	log.Info("sync pass started", "from", start, "head", head, "specs", len(g.Specs))
	fetcher := evm.NewFetcher(client, router.Addresses(), s.chunkSize)
	err = fetcher.Each(ctx, start, head, func(ctx context.Context, r evm.Range, logs []types.Log) error {
		return s.processChunk(ctx, log, g, client, router, floors, r, logs, &res)
	})
	if err != nil {
		return res, err
	}

	log.Info("sync pass finished",
		"from", start,
		"head", head,
		"fetched", res.Fetched,
		"inserted", res.Inserted,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"elapsed", time.Since(started).String(),
	)
	return res, nil
}

// preflight fails fast on configuration errors before any RPC traffic.
func (s *Syncer) preflight(g Group) (*evm.Router, error) {
	for _, sp := range g.Specs {
		if !s.writer.HasTable(sp.TableName()) {
			return nil, fmt.Errorf("%w: %s (spec %s)", storage.ErrMissingTable, sp.TableName(), sp.ID())
		}
	}
	return evm.NewRouter(g.Specs)
}

func (s *Syncer) processChunk(ctx context.Context, log *slog.Logger, g Group, client evm.BlockClient, router *evm.Router, floors []uint64, r evm.Range, logs []types.Log, res *PassResult) error {
	ctx, span := s.tracer.Start(ctx, "engine.chunk", trace.WithAttributes(
		attribute.Int64("from", int64(r.From)),
		attribute.Int64("to", int64(r.To)),
		attribute.Int("logs", len(logs)),
	))
	defer span.End()

	res.Fetched += len(logs)
	s.metrics.LogsFetched(g.Chain, len(logs))

	timestamps := newTimestampCache(client)
	for _, l := range logs {
		m, ok := router.Route(l)
		if !ok {
			res.Skipped++
			s.metrics.LogSkipped(g.Chain, "unmatched")
			continue
		}
		if l.BlockNumber < floors[m.Index] {
			res.Skipped++
			s.metrics.LogSkipped(g.Chain, "below_resume")
			continue
		}

		ts, err := timestamps.get(ctx, l.BlockNumber)
		if err != nil {
			span.RecordError(err)
			return err
		}

		decoded := m.Decode(l, ts)
		table := m.Spec.TableName()
		inserted, err := s.writer.Write(ctx, table, storage.Row{
			BlockNumber:    decoded.BlockNumber,
			BlockTimestamp: decoded.BlockTimestamp,
			TxHash:         decoded.TxHash,
			LogIndex:       decoded.LogIndex,
			Values:         decoded.Args(),
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			res.Failed++
			s.metrics.LogError(table)
			log.Warn("log insert failed",
				"contract", m.Spec.ContractName,
				"spec", m.Spec.SpecName,
				"table", table,
				"block", l.BlockNumber,
				"tx", decoded.TxHash,
				"log_index", decoded.LogIndex,
				"error", err,
			)
			continue
		}
		if inserted {
			res.Inserted++
			s.metrics.RowInserted(table)
		}
	}
	return nil
}

// timestampCache memoizes block timestamps for the lifetime of one chunk.
type timestampCache struct {
	client evm.BlockClient
	byNum  map[uint64]uint64
}

func newTimestampCache(client evm.BlockClient) *timestampCache {
	return &timestampCache{client: client, byNum: map[uint64]uint64{}}
}

func (c *timestampCache) get(ctx context.Context, block uint64) (uint64, error) {
	if ts, ok := c.byNum[block]; ok {
		return ts, nil
	}
	h, err := c.client.HeaderByNumber(ctx, new(big.Int).SetUint64(block))
	if err != nil {
		return 0, fmt.Errorf("block header %d: %w", block, err)
	}
	if h == nil {
		return 0, fmt.Errorf("block header %d: not found", block)
	}
	c.byNum[block] = h.Time
	return h.Time, nil
}
