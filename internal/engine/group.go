package engine

import (
	"fmt"
	"sort"

	"github.com/devblac/logsync/internal/spec"
)

// Group is the unit of fetching: every specification that lives on one chain.
type Group struct {
	Chain  string
	RPCURL string
	Specs  []spec.Specification
	// MinStartBlock is the lowest configured start block in the group.
	MinStartBlock uint64
}

// Tables lists the target tables of the group in spec order.
func (g Group) Tables() []string {
	out := make([]string, len(g.Specs))
	for i, s := range g.Specs {
		out[i] = s.TableName()
	}
	return out
}

// GroupByChain partitions specs by chain. Specs keep their input order inside a
// group and groups are ordered by chain name. Every chain must have an endpoint.
func GroupByChain(specs []spec.Specification, endpoints map[string]string) ([]Group, error) {
	byChain := map[string]*Group{}
	for _, s := range specs {
		url, ok := endpoints[s.Chain]
		if !ok || url == "" {
			return nil, fmt.Errorf("%w: %q (spec %s)", ErrUnknownChain, s.Chain, s.ID())
		}
		g, ok := byChain[s.Chain]
		if !ok {
			g = &Group{Chain: s.Chain, RPCURL: url, MinStartBlock: s.StartBlock}
			byChain[s.Chain] = g
		}
		if s.StartBlock < g.MinStartBlock {
			g.MinStartBlock = s.StartBlock
		}
		g.Specs = append(g.Specs, s)
	}

	out := make([]Group, 0, len(byChain))
	for _, g := range byChain {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Chain < out[j].Chain })
	return out, nil
}
