package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/devblac/logsync/internal/config"
	"github.com/devblac/logsync/internal/metrics"
	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"
)

// BlockClient captures the subset of ethclient used by the sync engine.
type BlockClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// RPCClient wraps ethclient.Client with a per-chain rate limit and call metrics.
type RPCClient struct {
	client  *ethclient.Client
	chain   string
	limiter *rate.Limiter
	metrics *metrics.Metrics
}

// NewRPCClient dials an EVM node for the given chain.
func NewRPCClient(ctx context.Context, chain config.Chain, m *metrics.Metrics) (*RPCClient, error) {
	c, err := ethclient.DialContext(ctx, chain.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial evm rpc for chain %s: %w", chain.Name, err)
	}
	return &RPCClient{
		client:  c,
		chain:   chain.Name,
		limiter: newLimiter(chain.RPS, chain.Burst),
		metrics: m,
	}, nil
}

func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// BlockNumber returns the current chain head.
func (c *RPCClient) BlockNumber(ctx context.Context) (uint64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	n, err := c.client.BlockNumber(ctx)
	c.record("eth_blockNumber", err)
	return n, err
}

// HeaderByNumber fetches a block header; nil number means latest.
func (c *RPCClient) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	h, err := c.client.HeaderByNumber(ctx, number)
	c.record("eth_getBlockByNumber", err)
	return h, err
}

// FilterLogs runs eth_getLogs.
func (c *RPCClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	logs, err := c.client.FilterLogs(ctx, q)
	c.record("eth_getLogs", err)
	return logs, err
}

// ChainID returns the node's chain id.
func (c *RPCClient) ChainID(ctx context.Context) (*big.Int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	id, err := c.client.ChainID(ctx)
	c.record("eth_chainId", err)
	return id, err
}

// Close releases the underlying connection.
func (c *RPCClient) Close() error {
	c.client.Close()
	return nil
}

func (c *RPCClient) record(method string, err error) {
	c.metrics.RPCCall(c.chain, method, ClassifyRPCError(err))
}

// ClassifyRPCError buckets an RPC error for metrics.
func ClassifyRPCError(err error) string {
	if err == nil {
		return "ok"
	}
	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded"):
		return "timeout"
	case strings.Contains(lower, "rate limit") || strings.Contains(lower, "429") || strings.Contains(lower, "too many requests"):
		return "rate_limited"
	case strings.Contains(lower, "500") || strings.Contains(lower, "502") || strings.Contains(lower, "503") || strings.Contains(lower, "internal server error"):
		return "server_error"
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "no such host") || strings.Contains(lower, "broken pipe") || strings.Contains(lower, "eof"):
		return "network_error"
	default:
		return "client_error"
	}
}
