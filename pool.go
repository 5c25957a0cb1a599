package chainutils

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// NodePool is an ordered, immutable list of live NodeConnections. Its size
// equals the number of primary endpoints supplied at construction: each
// primary slot that failed to connect directly was filled by the first
// fallback that succeeded, and that fallback is then unavailable to any
// later slot.
type NodePool struct {
	adapter ChainAdapter
	members []NodeConnection
}

// Len reports the pool's member count.
func (p *NodePool) Len() int {
	return len(p.members)
}

// Adapter returns the ChainAdapter this pool was built with.
func (p *NodePool) Adapter() ChainAdapter {
	return p.adapter
}

// Members returns the pool's connections in construction order. Callers
// must not mutate the returned slice.
func (p *NodePool) Members() []NodeConnection {
	return p.members
}

// BuildPool turns a list of primary URLs and a list of fallback URLs into
// a fully populated pool of live connections.
//
// Algorithm (single-threaded, deterministic except for chain-reported
// data): copy the fallback list into a scratch list; for each primary URL
// in order, try it directly, and on failure walk the scratch list in
// order, using the first success and removing it from the scratch list so
// no later primary can reuse it. If every attempt for a primary fails,
// pool construction fails with ErrNodeConnection carrying every attempted
// host.
func BuildPool(ctx context.Context, adapter ChainAdapter, primary, fallback []string, timeouts ConnectTimeouts, logger *zap.Logger) (*NodePool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	scratch := append([]string(nil), fallback...)
	members := make([]NodeConnection, 0, len(primary))

	for _, primaryURL := range primary {
		conn, attempted, err := buildOneSlot(ctx, adapter, primaryURL, &scratch, timeouts, logger)
		if err != nil {
			return nil, newErrDetails(ErrNodeConnection,
				"cannot connect to any node for primary endpoint "+primaryURL,
				err, ErrorDetails{Hosts: attempted, Chain: adapter.ChainId()})
		}
		members = append(members, conn)
	}
	return &NodePool{adapter: adapter, members: members}, nil
}

func buildOneSlot(ctx context.Context, adapter ChainAdapter, primaryURL string, scratch *[]string, timeouts ConnectTimeouts, logger *zap.Logger) (NodeConnection, []string, error) {
	attempted := []string{primaryURL}
	var combined error

	if conn, err := adapter.BuildSingleConnection(ctx, primaryURL, timeouts); err == nil {
		return conn, attempted, nil
	} else {
		logger.Warn("primary endpoint unreachable, trying fallbacks", zap.String("url", primaryURL), zap.Error(err))
		combined = multierr.Append(combined, err)
	}

	remaining := *scratch
	for i, fallbackURL := range remaining {
		attempted = append(attempted, fallbackURL)
		conn, err := adapter.BuildSingleConnection(ctx, fallbackURL, timeouts)
		if err != nil {
			logger.Warn("fallback endpoint unreachable", zap.String("url", fallbackURL), zap.Error(err))
			combined = multierr.Append(combined, err)
			continue
		}
		*scratch = append(append([]string(nil), remaining[:i]...), remaining[i+1:]...)
		return conn, attempted, nil
	}
	return nil, attempted, newErr(ErrSingleNodeConnection, "no endpoint in primary+fallback set is reachable", combined)
}
