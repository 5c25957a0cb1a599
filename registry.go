package chainutils

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// ChainConfig is the set of parameters Initialize needs to bring up one
// chain: primary/fallback endpoints, timing assumptions used by the
// Lifecycle Scheduler, and the chain's network id.
type ChainConfig struct {
	PrimaryURLs            []string
	FallbackURLs           []string
	AvgBlockTime           uint64 // seconds
	RequiredConfirmations  uint64
	NetworkId              uint64
	DefaultPrivateKeyHex   string // empty if this process never signs on this chain
	DeferredRuntimeEnabled bool
	Timeouts               ConnectTimeouts
}

// registryEntry bundles a configured adapter with the config it was
// initialized under.
type registryEntry struct {
	adapter ChainAdapter
	config  ChainConfig
}

// Registry is the process-wide adapter discovery map: ChainId -> adapter.
// It has init-and-replace semantics; there is no partial-mutation API.
// Exactly one Registry normally exists per process (DefaultRegistry), but
// the type is exported so tests can construct isolated instances.
type Registry struct {
	mu      sync.RWMutex
	entries map[ChainId]registryEntry
	logger  *zap.Logger
}

// NewRegistry constructs an empty adapter registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{entries: make(map[ChainId]registryEntry), logger: logger}
}

// DefaultRegistry is the package-level registry used by callers that do
// not need isolated test instances.
var DefaultRegistry = NewRegistry(nil)

// Initialize registers adapter under chain with config. Calling
// Initialize again for the same chain replaces the prior registration
// outright (init-and-replace; no partial mutation is ever visible to a
// concurrent reader).
func (r *Registry) Initialize(chain ChainId, adapter ChainAdapter, config ChainConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[chain] = registryEntry{adapter: adapter, config: config}
}

// Get returns the adapter and config registered for chain, or
// ErrNotInitialized if Initialize was never called for it.
func (r *Registry) Get(chain ChainId) (ChainAdapter, ChainConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[chain]
	if !ok {
		return nil, ChainConfig{}, newErrDetails(ErrNotInitialized, "chain adapter accessed before initialize", nil, ErrorDetails{Chain: chain})
	}
	return e.adapter, e.config, nil
}

// Chains lists every chain currently registered.
func (r *Registry) Chains() []ChainId {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ChainId, 0, len(r.entries))
	for c := range r.entries {
		out = append(out, c)
	}
	return out
}

// BuildPool is a convenience wrapper that looks up chain's adapter and
// config and builds a fresh NodePool from its configured endpoints.
func (r *Registry) BuildPool(ctx context.Context, chain ChainId) (*NodePool, error) {
	adapter, config, err := r.Get(chain)
	if err != nil {
		return nil, err
	}
	return BuildPool(ctx, adapter, config.PrimaryURLs, config.FallbackURLs, config.Timeouts, r.logger)
}
