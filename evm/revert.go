package evm

import (
	"context"
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	chainutils "github.com/meridianlabs/chainutils"
)

// RevertReason retrieves the revert reason for a transaction that has
// already been mined with a failing status, by replaying the call one
// block before its inclusion block (the state at inclusion time already
// reflects the revert, so the call must be replayed against the parent
// block to observe why it failed). Not part of chainutils.ChainAdapter:
// it is an EVM-specific diagnostic, not a primitive the upper layers
// require.
func (a *Adapter) RevertReason(ctx context.Context, pool *chainutils.NodePool, txId string) (string, error) {
	hash := common.HexToHash(txId)

	var lastErr error
	for _, member := range pool.Members() {
		conn := member.(*Connection)

		tx, _, err := conn.Client().TransactionByHash(ctx, hash)
		if err != nil {
			lastErr = err
			continue
		}
		receipt, err := conn.Client().TransactionReceipt(ctx, hash)
		if err != nil {
			lastErr = err
			continue
		}
		if receipt.Status == 1 {
			return "", chainutils.NewChainErrorFor(a.chainID, "transaction did not revert", nil)
		}
		if receipt.BlockNumber == nil || receipt.BlockNumber.Sign() == 0 {
			return "", chainutils.NewChainErrorFor(a.chainID, "revert reason unavailable for a transaction with no inclusion block", nil)
		}

		replayBlock := new(big.Int).Sub(receipt.BlockNumber, big.NewInt(1))
		signer := types.LatestSignerForChainID(tx.ChainId())
		from, senderErr := types.Sender(signer, tx)
		if senderErr != nil {
			lastErr = senderErr
			continue
		}
		msg := ethereum.CallMsg{
			From:     from,
			To:       tx.To(),
			Gas:      tx.Gas(),
			GasPrice: tx.GasPrice(),
			Value:    tx.Value(),
			Data:     tx.Data(),
		}

		_, callErr := conn.Client().CallContract(ctx, msg, replayBlock)
		if callErr == nil {
			return "", chainutils.NewChainErrorFor(a.chainID, "replay succeeded; revert reason could not be determined", nil)
		}
		if isArchiveNodeMissingError(callErr) {
			return revertReasonFromError(callErr) + " due to the absence of an archive node", nil
		}
		return revertReasonFromError(callErr), nil
	}

	return "", chainutils.NewChainErrorFor(a.chainID, "unable to replay transaction on any node", lastErr)
}

// isArchiveNodeMissingError reports whether err is the RPC-level complaint
// a full (non-archive) node returns when asked to replay a call against a
// block whose state it has already pruned.
func isArchiveNodeMissingError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "missing trie node") ||
		strings.Contains(msg, "historical state") ||
		strings.Contains(msg, "pruned")
}

func revertReasonFromError(err error) string {
	var dataErr interface{ ErrorData() interface{} }
	if errors.As(err, &dataErr) {
		if s, ok := dataErr.ErrorData().(string); ok && s != "" {
			return s
		}
	}
	return err.Error()
}
