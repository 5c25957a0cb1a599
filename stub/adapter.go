// Package stub is the non-EVM Chain Adapter: it advertises its chain
// identity and refuses to operate. Per §4.3, the rest of the system is
// written so it works with the stub as long as that chain is never
// targeted at runtime; nothing in this module prevents a caller from
// registering and then targeting one anyway (an open question left
// unresolved exactly as raised).
package stub

import (
	"context"

	chainutils "github.com/meridianlabs/chainutils"
)

// Adapter is the non-EVM stub Chain Adapter.
type Adapter struct {
	chainID chainutils.ChainId
}

// NewAdapter constructs a stub adapter carrying only chainID's identity.
func NewAdapter(chainID chainutils.ChainId) *Adapter {
	return &Adapter{chainID: chainID}
}

func (a *Adapter) fail(operation string) error {
	return chainutils.NewNotImplementedError(a.chainID, operation)
}

// ChainId implements chainutils.ChainAdapter.
func (a *Adapter) ChainId() chainutils.ChainId { return a.chainID }

// WriteMethodNames implements chainutils.ChainAdapter. The stub has no
// write path: it reports an empty set.
func (a *Adapter) WriteMethodNames() map[string]struct{} { return map[string]struct{}{} }

// BuildSingleConnection implements chainutils.ChainAdapter.
func (a *Adapter) BuildSingleConnection(ctx context.Context, url string, timeouts chainutils.ConnectTimeouts) (chainutils.NodeConnection, error) {
	return nil, a.fail("build_single_connection")
}

// AddressOf implements chainutils.ChainAdapter.
func (a *Adapter) AddressOf(privateKeyHex string) (string, error) {
	return "", a.fail("address_of")
}

// DecryptKey implements chainutils.ChainAdapter.
func (a *Adapter) DecryptKey(encryptedBlob []byte, password string) (string, error) {
	return "", a.fail("decrypt_key")
}

// IsValidAddress implements chainutils.ChainAdapter. Syntax checks do not
// require a live connection, so the stub still answers this one.
func (a *Adapter) IsValidAddress(s string) bool { return false }

// IsEqualAddress implements chainutils.ChainAdapter.
func (a *Adapter) IsEqualAddress(x, y string) bool { return x == y }

// Balance implements chainutils.ChainAdapter.
func (a *Adapter) Balance(ctx context.Context, pool *chainutils.NodePool, account string, tokenContract *string) (chainutils.BigResult, error) {
	return chainutils.BigResult{}, a.fail("balance")
}

// ReadReceipt implements chainutils.ChainAdapter.
func (a *Adapter) ReadReceipt(ctx context.Context, pool *chainutils.NodePool, txId string) (chainutils.TransactionReceipt, error) {
	return chainutils.TransactionReceipt{}, a.fail("read_receipt")
}

// SendRaw implements chainutils.ChainAdapter.
func (a *Adapter) SendRaw(ctx context.Context, conn chainutils.NodeConnection, raw []byte) (string, chainutils.SendErrorKind, error) {
	return "", chainutils.SendErrorOther, a.fail("send_raw")
}

// BuildCall implements chainutils.ChainAdapter.
func (a *Adapter) BuildCall(ctx context.Context, pool *chainutils.NodePool, req chainutils.TransactionSubmissionRequest, fromAddress string) (chainutils.CallBuild, error) {
	return chainutils.CallBuild{}, a.fail("build_call")
}

// LoadAbi implements chainutils.ChainAdapter.
func (a *Adapter) LoadAbi(ref chainutils.ContractAbiRef) (chainutils.ParsedAbi, error) {
	return chainutils.ParsedAbi{}, a.fail("load_abi")
}

// IsProtocolVersionSupportedByContract implements chainutils.ChainAdapter.
func (a *Adapter) IsProtocolVersionSupportedByContract(ctx context.Context, pool *chainutils.NodePool, addr string, ref chainutils.ContractAbiRef) (bool, error) {
	return false, a.fail("is_protocol_version_supported_by_contract")
}

// UnhealthyEndpoints implements chainutils.ChainAdapter. Every URL is
// reported unreachable since the stub can never build a connection.
func (a *Adapter) UnhealthyEndpoints(ctx context.Context, urls []string, timeouts chainutils.ConnectTimeouts) []chainutils.UnhealthyNode {
	out := make([]chainutils.UnhealthyNode, 0, len(urls))
	for _, u := range urls {
		out = append(out, chainutils.UnhealthyNode{Host: chainutils.HostOf(u), Status: "unreachable"})
	}
	return out
}
