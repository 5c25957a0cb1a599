// Package health is the Health Probe: it concurrently attempts a
// read-only connection to each endpoint of each registered chain and
// reports the set of unhealthy endpoints, grounded on the original
// check_blockchain_nodes_health()/NodesHealth pairing.
package health

import (
	"context"

	"golang.org/x/sync/errgroup"

	chainutils "github.com/meridianlabs/chainutils"
)

// ChainHealth is one chain's health snapshot.
type ChainHealth struct {
	HealthyTotal   int
	UnhealthyTotal int
	UnhealthyNodes []chainutils.UnhealthyNode
}

// Snapshot is the full health report, keyed by chain.
type Snapshot map[chainutils.ChainId]ChainHealth

// DefaultWorkers bounds the Health Probe's fan-out when a caller does not
// specify its own worker count.
const DefaultWorkers = 8

// Probe fans out across every chain registered in reg, bounded by
// workers concurrent chain checks, and reports each chain's unhealthy
// endpoints. Probe never returns an error itself; an empty Snapshot means
// no chain is registered (the condition the REST facade turns into a 500).
func Probe(ctx context.Context, reg *chainutils.Registry, workers int) Snapshot {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	chains := reg.Chains()

	snapshot := make(Snapshot, len(chains))
	results := make([]ChainHealth, len(chains))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, chain := range chains {
		i, chain := i, chain
		g.Go(func() error {
			adapter, config, err := reg.Get(chain)
			if err != nil {
				return nil
			}
			urls := append(append([]string(nil), config.PrimaryURLs...), config.FallbackURLs...)
			unhealthy := adapter.UnhealthyEndpoints(gCtx, urls, config.Timeouts)
			results[i] = ChainHealth{
				HealthyTotal:   len(urls) - len(unhealthy),
				UnhealthyTotal: len(unhealthy),
				UnhealthyNodes: unhealthy,
			}
			return nil
		})
	}
	_ = g.Wait()

	for i, chain := range chains {
		snapshot[chain] = results[i]
	}
	return snapshot
}
