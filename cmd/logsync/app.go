package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/devblac/logsync/internal/config"
	"github.com/devblac/logsync/internal/engine"
	"github.com/devblac/logsync/internal/logging"
	"github.com/devblac/logsync/internal/metrics"
	"github.com/devblac/logsync/internal/source/evm"
	"github.com/devblac/logsync/internal/spec"
)

// app is everything loaded from disk before a command touches the network.
type app struct {
	cfg    *config.Config
	specs  []spec.Specification
	schema *spec.Schema
	groups []engine.Group
}

func loadApp(path string, filter spec.Filter) (*app, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	specs, err := spec.LoadAll(cfg, filter)
	if err != nil {
		return nil, fmt.Errorf("load specs: %w", err)
	}
	schema, err := spec.LoadSchema(cfg.Paths.Schema)
	if err != nil {
		return nil, err
	}
	groups, err := engine.GroupByChain(specs, cfg.Endpoints())
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, specs: specs, schema: schema, groups: groups}, nil
}

// dialChain opens a rate limited client for a configured chain.
func dialChain(ctx context.Context, cfg *config.Config, name string, m *metrics.Metrics) (*evm.RPCClient, error) {
	ch, ok := cfg.ChainByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", engine.ErrUnknownChain, name)
	}
	return evm.NewRPCClient(ctx, ch, m)
}

func dialer(cfg *config.Config, m *metrics.Metrics) engine.Dialer {
	return func(ctx context.Context, g engine.Group) (evm.BlockClient, error) {
		return dialChain(ctx, cfg, g.Chain, m)
	}
}

func newLogger() *slog.Logger {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	return logging.NewWithLevel(level)
}
