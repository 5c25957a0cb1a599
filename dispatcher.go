package chainutils

import (
	"math/big"
	"math/rand"
)

// Reconcile invokes fn on every member of pool and requires all results to
// be equal by value equality. Disagreement raises ErrResultsNotMatching
// carrying each member's result by positional index. This is the
// strongly-typed replacement for the original chainable-proxy's terminal
// get() reducer: a caller picks the reconciliation function explicitly
// instead of a runtime step interpreter discovering it via reflection.
func Reconcile[T comparable](pool *NodePool, fn func(NodeConnection) (T, error)) (T, error) {
	var zero T
	if pool.Len() == 0 {
		return zero, newErr(ErrNodeConnection, "at least one valid connection must be established", nil)
	}

	results := make([]T, pool.Len())
	for i, member := range pool.Members() {
		v, err := fn(member)
		if err != nil {
			return zero, err
		}
		results[i] = v
	}

	first := results[0]
	for _, r := range results[1:] {
		if r != first {
			details := make(map[int]any, len(results))
			for i, r := range results {
				details[i] = r
			}
			return zero, newErrDetails(ErrResultsNotMatching, "pool members disagree", nil, ErrorDetails{MemberResults: details})
		}
	}
	return first, nil
}

// ReconcileBigInt invokes fn on every member of pool and requires all
// results to be equal by value (Cmp == 0), raising ErrResultsNotMatching
// on disagreement. *big.Int cannot be passed to Reconcile directly since
// Go's == compares pointer identity, not numeric value; this is the
// value-equality reconciler balance reads use instead of a Min/Max
// reducer, which would silently mask disagreement between pool members.
func ReconcileBigInt(pool *NodePool, fn func(NodeConnection) (*big.Int, error)) (*big.Int, error) {
	if pool.Len() == 0 {
		return nil, newErr(ErrNodeConnection, "at least one valid connection must be established", nil)
	}

	results := make([]*big.Int, pool.Len())
	for i, member := range pool.Members() {
		v, err := fn(member)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, newErr(ErrNodeConnection, "non-integer result cannot be reconciled numerically", nil)
		}
		results[i] = v
	}

	first := results[0]
	for _, r := range results[1:] {
		if r.Cmp(first) != 0 {
			details := make(map[int]any, len(results))
			for i, r := range results {
				details[i] = r.String()
			}
			return nil, newErrDetails(ErrResultsNotMatching, "pool members disagree", nil, ErrorDetails{MemberResults: details})
		}
	}
	return first, nil
}

// ReconcileMinBigInt invokes fn on every member of pool and returns the
// minimum of the results. Equivalent to the proxy's get_minimum_result().
func ReconcileMinBigInt(pool *NodePool, fn func(NodeConnection) (*big.Int, error)) (*big.Int, error) {
	return reduceBigInt(pool, fn, func(a, b *big.Int) bool { return a.Cmp(b) < 0 })
}

// ReconcileMaxBigInt is the symmetric counterpart of ReconcileMinBigInt.
func ReconcileMaxBigInt(pool *NodePool, fn func(NodeConnection) (*big.Int, error)) (*big.Int, error) {
	return reduceBigInt(pool, fn, func(a, b *big.Int) bool { return a.Cmp(b) > 0 })
}

func reduceBigInt(pool *NodePool, fn func(NodeConnection) (*big.Int, error), better func(a, b *big.Int) bool) (*big.Int, error) {
	if pool.Len() == 0 {
		return nil, newErr(ErrNodeConnection, "at least one valid connection must be established", nil)
	}
	var best *big.Int
	for _, member := range pool.Members() {
		v, err := fn(member)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, newErr(ErrNodeConnection, "non-integer result cannot be reconciled numerically", nil)
		}
		if best == nil || better(v, best) {
			best = v
		}
	}
	return best, nil
}

// ReconcileMinUint64 and ReconcileMaxUint64 mirror the big.Int variants
// for results that fit in a uint64 (e.g. block numbers).
func ReconcileMinUint64(pool *NodePool, fn func(NodeConnection) (uint64, error)) (uint64, error) {
	return reduceUint64(pool, fn, func(a, b uint64) bool { return a < b })
}

func ReconcileMaxUint64(pool *NodePool, fn func(NodeConnection) (uint64, error)) (uint64, error) {
	return reduceUint64(pool, fn, func(a, b uint64) bool { return a > b })
}

func reduceUint64(pool *NodePool, fn func(NodeConnection) (uint64, error), better func(a, b uint64) bool) (uint64, error) {
	if pool.Len() == 0 {
		return 0, newErr(ErrNodeConnection, "at least one valid connection must be established", nil)
	}
	var best uint64
	var set bool
	for _, member := range pool.Members() {
		v, err := fn(member)
		if err != nil {
			return 0, err
		}
		if !set || better(v, best) {
			best = v
			set = true
		}
	}
	return best, nil
}

// Write invokes fn on exactly one pool member, chosen uniformly at random,
// and returns its raw result. This is the dispatcher's write path: a
// transaction must land once, so reconciliation is deliberately bypassed.
// The member set a caller is allowed to target this way is documented by
// ChainAdapter.WriteMethodNames(), retained for introspection even though
// Go's static call sites do not need it to pick this code path.
func Write[T any](pool *NodePool, fn func(NodeConnection) (T, error)) (T, error) {
	var zero T
	if pool.Len() == 0 {
		return zero, newErr(ErrNodeConnection, "at least one valid connection must be established", nil)
	}
	idx := rand.Intn(pool.Len())
	return fn(pool.Members()[idx])
}
