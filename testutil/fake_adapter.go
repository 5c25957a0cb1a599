// Package testutil provides hand-written fakes for exercising the core
// engine and scheduler without a live chain, in the spirit of the
// reference toolkit's own hand-written mocks (rpc/mock_client.go,
// storage/mock_store.go) rather than a generated-mock framework.
package testutil

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	chainutils "github.com/meridianlabs/chainutils"
)

// FakeConnection is a NodeConnection that carries only the URL it was
// built for; the scripted responses live on FakeAdapter, keyed by URL, so
// BuildPool's fallback logic can be exercised deterministically.
type FakeConnection struct {
	URL string
}

// Endpoint implements chainutils.NodeConnection.
func (c *FakeConnection) Endpoint() string { return c.URL }

// FakeAdapter is a scriptable ChainAdapter. Unreachable marks URLs whose
// BuildSingleConnection call fails; SendRawKind/SendRawErr control what
// SendRaw reports; BalanceByURL lets a test make distinct pool members
// disagree on a reconciled read.
type FakeAdapter struct {
	Chain chainutils.ChainId

	mu               sync.Mutex
	Unreachable      map[string]bool
	BalanceByURL     map[string]*big.Int
	SendRawKind      chainutils.SendErrorKind
	SendRawErr       error
	SendRawTxId      string
	SendRawCalls     int
	FailSendRawTimes int

	ReceiptsByTxId map[string]chainutils.TransactionReceipt
	StatusSequence []chainutils.TransactionStatus
	statusSeqIdx   int
}

// NewFakeAdapter constructs a FakeAdapter for chain with empty scripts.
func NewFakeAdapter(chain chainutils.ChainId) *FakeAdapter {
	return &FakeAdapter{
		Chain:          chain,
		Unreachable:    map[string]bool{},
		BalanceByURL:   map[string]*big.Int{},
		ReceiptsByTxId: map[string]chainutils.TransactionReceipt{},
		SendRawTxId:    "0xfake",
	}
}

func (a *FakeAdapter) ChainId() chainutils.ChainId { return a.Chain }

func (a *FakeAdapter) BuildSingleConnection(ctx context.Context, url string, timeouts chainutils.ConnectTimeouts) (chainutils.NodeConnection, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Unreachable[url] {
		return nil, chainutils.NewSingleNodeConnectionError("fake: unreachable", nil)
	}
	return &FakeConnection{URL: url}, nil
}

func (a *FakeAdapter) WriteMethodNames() map[string]struct{} {
	return map[string]struct{}{"sendRawTransaction": {}}
}

func (a *FakeAdapter) AddressOf(privateKeyHex string) (string, error) {
	return "0xfakeaddress", nil
}

func (a *FakeAdapter) DecryptKey(encryptedBlob []byte, password string) (string, error) {
	return "fakekey", nil
}

func (a *FakeAdapter) IsValidAddress(s string) bool { return len(s) > 0 }

func (a *FakeAdapter) IsEqualAddress(x, y string) bool { return x == y }

func (a *FakeAdapter) Balance(ctx context.Context, pool *chainutils.NodePool, account string, tokenContract *string) (chainutils.BigResult, error) {
	value, err := chainutils.ReconcileBigInt(pool, func(c chainutils.NodeConnection) (*big.Int, error) {
		a.mu.Lock()
		defer a.mu.Unlock()
		if v, ok := a.BalanceByURL[c.(*FakeConnection).URL]; ok {
			return v, nil
		}
		return big.NewInt(0), nil
	})
	if err != nil {
		return chainutils.BigResult{}, err
	}
	return chainutils.BigResult{Value: value}, nil
}

// ReadReceipt returns the ReceiptsByTxId entry for txId when one is
// scripted. Otherwise, when StatusSequence is non-empty, each call
// advances to the next status in the sequence, repeating the final one
// once exhausted. Useful for scripting a transaction's progress across
// lifecycle task activations.
func (a *FakeAdapter) ReadReceipt(ctx context.Context, pool *chainutils.NodePool, txId string) (chainutils.TransactionReceipt, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if r, ok := a.ReceiptsByTxId[txId]; ok {
		return r, nil
	}

	if len(a.StatusSequence) > 0 {
		status := a.StatusSequence[a.statusSeqIdx]
		if a.statusSeqIdx < len(a.StatusSequence)-1 {
			a.statusSeqIdx++
		}
		return chainutils.TransactionReceipt{Hash: txId, StatusCode: status}, nil
	}
	return chainutils.TransactionReceipt{Hash: txId, StatusCode: chainutils.StatusUnincluded}, nil
}

// FailSendRawTimes, when > 0, makes SendRaw report SendRawErr/SendRawKind
// for that many calls, then succeed from then on — useful for exercising
// a resubmission loop that eventually lands.
func (a *FakeAdapter) SendRaw(ctx context.Context, conn chainutils.NodeConnection, raw []byte) (string, chainutils.SendErrorKind, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.SendRawCalls++
	if a.FailSendRawTimes > 0 {
		a.FailSendRawTimes--
		err := a.SendRawErr
		if a.FailSendRawTimes == 0 {
			a.SendRawErr = nil
		}
		return "", a.SendRawKind, err
	}
	if a.SendRawErr != nil {
		return "", a.SendRawKind, a.SendRawErr
	}
	return a.SendRawTxId, chainutils.SendErrorOther, nil
}

func (a *FakeAdapter) BuildCall(ctx context.Context, pool *chainutils.NodePool, req chainutils.TransactionSubmissionRequest, fromAddress string) (chainutils.CallBuild, error) {
	return chainutils.CallBuild{
		SigningPayload:     []byte(fmt.Sprintf("unsigned:%d", req.Nonce)),
		AdaptableFeePerGas: req.MinAdaptableFeePerGas,
	}, nil
}

func (a *FakeAdapter) LoadAbi(ref chainutils.ContractAbiRef) (chainutils.ParsedAbi, error) {
	return chainutils.ParsedAbi{Kind: ref.Kind}, nil
}

func (a *FakeAdapter) IsProtocolVersionSupportedByContract(ctx context.Context, pool *chainutils.NodePool, addr string, ref chainutils.ContractAbiRef) (bool, error) {
	return true, nil
}

func (a *FakeAdapter) UnhealthyEndpoints(ctx context.Context, urls []string, timeouts chainutils.ConnectTimeouts) []chainutils.UnhealthyNode {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []chainutils.UnhealthyNode
	for _, u := range urls {
		if a.Unreachable[u] {
			out = append(out, chainutils.UnhealthyNode{Host: u, Status: "unreachable"})
		}
	}
	return out
}

// FakeSigner returns a signer that deterministically "signs" payload by
// appending a suffix, standing in for the pure sign(payload, key) bytes
// primitive.
func FakeSigner(payload []byte) ([]byte, error) {
	return append(append([]byte{}, payload...), []byte(":signed")...), nil
}
