package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/devblac/logsync/internal/config"
	"github.com/devblac/logsync/internal/source/evm"
	"golang.org/x/sync/errgroup"
)

// Dialer opens a chain client for a group.
type Dialer func(ctx context.Context, g Group) (evm.BlockClient, error)

// Driver runs sync passes over chain groups, once or on an interval.
type Driver struct {
	syncer   *Syncer
	dial     Dialer
	interval time.Duration
	log      *slog.Logger
}

// NewDriver wires a syncer to a dialer.
func NewDriver(syncer *Syncer, dial Dialer, interval time.Duration, log *slog.Logger) *Driver {
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = config.DefaultInterval
	}
	return &Driver{syncer: syncer, dial: dial, interval: interval, log: log}
}

// RunOnce syncs every group one after another and stops at the first failure.
func (d *Driver) RunOnce(ctx context.Context, groups []Group) error {
	for _, g := range groups {
		if err := d.runGroup(ctx, g); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) runGroup(ctx context.Context, g Group) error {
	d.logStart(g)
	client, err := d.dial(ctx, g)
	if err != nil {
		return fmt.Errorf("chain %s: dial: %w", g.Chain, err)
	}
	defer closeClient(client)

	if _, err := d.syncer.SyncGroup(ctx, g, client); err != nil {
		return fmt.Errorf("chain %s: %w", g.Chain, err)
	}
	return nil
}

// RunDaemon runs one loop per group until ctx is cancelled. The first pass
// starts immediately. A failing group is logged and retried on its next tick
// without affecting the others.
func (d *Driver) RunDaemon(ctx context.Context, groups []Group) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, g := range groups {
		g := g
		eg.Go(func() error {
			d.loop(ctx, g)
			return nil
		})
	}
	return eg.Wait()
}

func (d *Driver) loop(ctx context.Context, g Group) {
	d.logStart(g)
	log := d.log.With("chain", g.Chain)
	var client evm.BlockClient
	defer func() {
		if client != nil {
			closeClient(client)
		}
	}()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		client = d.tick(ctx, log, g, client)
		select {
		case <-ctx.Done():
			log.Info("chain loop stopped")
			return
		case <-ticker.C:
		}
	}
}

// tick runs a single pass and returns the client to reuse on the next tick.
func (d *Driver) tick(ctx context.Context, log *slog.Logger, g Group, client evm.BlockClient) (next evm.BlockClient) {
	next = client
	defer func() {
		if r := recover(); r != nil {
			log.Error("sync pass panicked", "panic", r)
		}
	}()

	if next == nil {
		c, err := d.dial(ctx, g)
		if err != nil {
			log.Error("dial chain failed", "error", err)
			return nil
		}
		next = c
	}

	if _, err := d.syncer.SyncGroup(ctx, g, next); err != nil {
		if ctx.Err() != nil {
			return next
		}
		log.Error("sync pass failed", "error", err, "config_error", IsConfigError(err))
	}
	return next
}

func (d *Driver) logStart(g Group) {
	d.log.Info("starting chain group",
		"chain", g.Chain,
		"start_block", g.MinStartBlock,
		"tables", g.Tables(),
	)
}

func closeClient(c evm.BlockClient) {
	if cl, ok := c.(io.Closer); ok {
		_ = cl.Close()
	}
}
