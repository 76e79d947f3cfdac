package health

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/devblac/logsync/internal/source/evm"
)

// RPCChecker pings the head of every configured chain.
type RPCChecker struct {
	clients map[string]evm.BlockClient
}

// NewRPCChecker creates a checker over chain name to client.
func NewRPCChecker(clients map[string]evm.BlockClient) *RPCChecker {
	return &RPCChecker{clients: clients}
}

// Ping asks every chain for its head block and joins the failures.
func (c *RPCChecker) Ping(ctx context.Context) error {
	chains := make([]string, 0, len(c.clients))
	for name := range c.clients {
		chains = append(chains, name)
	}
	sort.Strings(chains)

	var errs []error
	for _, name := range chains {
		if _, err := c.clients[name].BlockNumber(ctx); err != nil {
			errs = append(errs, fmt.Errorf("chain %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
