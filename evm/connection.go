// Package evm is the EVM-family reference Chain Adapter: Ethereum and its
// close relatives (BNB Chain, Polygon, Avalanche C-Chain, Celo) modeled as
// a single concrete adapter parameterised by ChainId and network id, per
// the design note that polymorphic per-chain subclasses collapse to one
// adapter type plus a registry in a systems language.
package evm

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Connection is a live EVM RPC connection: the NodeConnection this
// package's BuildSingleConnection returns.
type Connection struct {
	endpoint string
	rpcClt   *rpc.Client
	client   *ethclient.Client
	poa      bool
}

// Endpoint implements chainutils.NodeConnection.
func (c *Connection) Endpoint() string {
	return c.endpoint
}

// Client exposes the underlying ethclient.Client for adapter internals.
func (c *Connection) Client() *ethclient.Client {
	return c.client
}

// RPC exposes the underlying raw RPC client, used for calls ethclient does
// not surface directly (e.g. the raw eth_getBlockByNumber read fee.go
// uses on proof-of-authority chains).
func (c *Connection) RPC() *rpc.Client {
	return c.rpcClt
}

// dial establishes transport to rawURL, performs one trivial liveness
// read, and installs the proof-of-authority quirk flag before returning.
// Some EVM chains (BNB Chain, Polygon's Bor) extend the block header's
// extraData field beyond the 32 bytes go-ethereum's strict header decoder
// expects; Connection.poa records that this endpoint needs the tolerant
// raw-RPC path for header reads instead of ethclient.HeaderByNumber.
func dial(ctx context.Context, rawURL string, poaHint bool) (*Connection, error) {
	rpcClt, err := rpc.DialContext(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	client := ethclient.NewClient(rpcClt)

	var blockHex string
	if err := rpcClt.CallContext(ctx, &blockHex, "eth_blockNumber"); err != nil {
		rpcClt.Close()
		return nil, err
	}

	return &Connection{endpoint: hostOf(rawURL), rpcClt: rpcClt, client: client, poa: poaHint}, nil
}
