package chainutils

import (
	"context"
	"math/big"
	"net/url"
)

// NodeConnection is an opaque handle produced by a Chain Adapter. Its
// lifetime is bound to the Node Pool that created it: a connection is
// either usable or construction failed outright, so no half-open state
// ever surfaces to callers.
type NodeConnection interface {
	// Endpoint is the URL this connection was built against, used for
	// logging and health reporting (host component only).
	Endpoint() string
}

// ChainAdapter encapsulates the idiosyncrasies of one chain family. The
// EVM-family adapter (package evm) is the reference implementation; a
// non-EVM chain gets the stub adapter (package stub), which advertises its
// identity and refuses to operate.
type ChainAdapter interface {
	// ChainId is a compile-time constant of the adapter type.
	ChainId() ChainId

	// BuildSingleConnection establishes transport to url, performs one
	// trivial liveness read, and installs any protocol-specific
	// middleware before returning. Fails with ErrSingleNodeConnection.
	BuildSingleConnection(ctx context.Context, url string, timeouts ConnectTimeouts) (NodeConnection, error)

	// WriteMethodNames is the per-chain constant set of operation names
	// that mutate chain state and must therefore execute on exactly one
	// pool member. Retained as adapter-reported metadata even though Go's
	// static call sites make a runtime write/read distinction
	// unnecessary at the dispatcher layer.
	WriteMethodNames() map[string]struct{}

	// AddressOf derives the canonical address string for a private key.
	AddressOf(privateKeyHex string) (string, error)

	// DecryptKey decrypts an encrypted key blob with password, returning
	// the private key in the adapter's canonical hex form.
	DecryptKey(encryptedBlob []byte, password string) (string, error)

	// IsValidAddress reports whether s is a syntactically valid address
	// for this chain.
	IsValidAddress(s string) bool

	// IsEqualAddress reports whether a and b denote the same address,
	// tolerating the chain's casing/checksum conventions.
	IsEqualAddress(a, b string) bool

	// Balance reads an account's native or token balance through pool,
	// reconciled across members.
	Balance(ctx context.Context, pool *NodePool, account string, tokenContract *string) (BigResult, error)

	// ReadReceipt reads a transaction's current status through pool.
	ReadReceipt(ctx context.Context, pool *NodePool, txId string) (TransactionReceipt, error)

	// SendRaw dispatches signed bytes to conn, the single pool member the
	// dispatcher's write path chose, classifying the outcome.
	SendRaw(ctx context.Context, conn NodeConnection, raw []byte) (txId string, kind SendErrorKind, err error)

	// BuildCall binds a contract function call (selector, args) against
	// current chain parameters observed through pool, producing the
	// unsigned payload a caller must sign before SendRaw.
	BuildCall(ctx context.Context, pool *NodePool, req TransactionSubmissionRequest, fromAddress string) (CallBuild, error)

	// LoadAbi loads and parses the ABI named by ref, memoized per kind.
	LoadAbi(ref ContractAbiRef) (ParsedAbi, error)

	// IsProtocolVersionSupportedByContract calls the contract's
	// on-chain version getter and checks it against the adapter's
	// supported version set.
	IsProtocolVersionSupportedByContract(ctx context.Context, pool *NodePool, addr string, ref ContractAbiRef) (bool, error)

	// UnhealthyEndpoints attempts BuildSingleConnection for each of urls
	// and reports the ones that failed.
	UnhealthyEndpoints(ctx context.Context, urls []string, timeouts ConnectTimeouts) []UnhealthyNode
}

// BigResult is a reconciled numeric read result.
type BigResult struct {
	Value any // *big.Int for balances; concrete numeric type otherwise
}

// ParsedAbi is an opaquely adapter-defined parsed contract ABI.
type ParsedAbi struct {
	Kind AbiKind
	Raw  []byte
	Impl any
}

// CallBuild is the adapter-produced, not-yet-signed transaction body plus
// the fee fields chosen while assembling it.
type CallBuild struct {
	SigningPayload     []byte
	AdaptableFeePerGas *big.Int
}

// HostOf reduces rawURL to its host component, per §3: endpoint identity
// for comparison and reporting purposes uses the URL's host component
// only, never the full URL (which may carry a path-embedded API key).
// Shared by every ChainAdapter implementation so they report unhealthy
// endpoints consistently.
func HostOf(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		return u.Host
	}
	return rawURL
}
