package evm

import (
	"context"
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	chainutils "github.com/meridianlabs/chainutils"
)

// assembledFee is the outcome of fee assembly: the fields a transaction
// body needs plus the adaptable fee actually used, tracked separately
// because EIP-1559 and legacy transactions expose it differently
// (priority tip vs. full gas price).
type assembledFee struct {
	eip1559              bool
	maxFeePerGas         *big.Int // type-2 only
	maxPriorityFeePerGas *big.Int // type-2 only
	gasPrice             *big.Int // legacy only
	adaptableFeePerGas   *big.Int
}

// assembleFee implements §4.4's fee assembly: for a type-2-capable chain,
// base = min(baseFeePerGas) across the pool, tip = the request's minimum
// adaptable fee, max_fee = 2*base + tip, clamped to the request's ceiling
// when set (never below tip: going below tip is reported as
// ErrMaxTotalFeePerGasExceeded instead of silently clamping there).
// Otherwise (legacy), gas_price = max(min(gasPrice across pool), tip),
// clamped by the ceiling when set.
func (a *Adapter) assembleFee(ctx context.Context, pool *chainutils.NodePool, req chainutils.TransactionSubmissionRequest) (assembledFee, error) {
	tip := req.MinAdaptableFeePerGas

	if a.supportsEIP1559 {
		base, err := chainutils.ReconcileMinBigInt(pool, func(c chainutils.NodeConnection) (*big.Int, error) {
			return a.baseFeePerGas(ctx, c.(*Connection))
		})
		if err != nil {
			return assembledFee{}, err
		}

		maxFee := new(big.Int).Add(new(big.Int).Mul(base, big.NewInt(2)), tip)
		if req.MaxTotalFeePerGas != nil && maxFee.Cmp(req.MaxTotalFeePerGas) > 0 {
			if req.MaxTotalFeePerGas.Cmp(tip) < 0 {
				return assembledFee{}, chainutils.NewMaxTotalFeePerGasExceeded(a.chainID, "configured ceiling is below the minimum adaptable fee per gas")
			}
			a.logger.Warn("clamping max fee per gas to the configured ceiling",
				zap.String("unclamped", maxFee.String()), zap.String("ceiling", req.MaxTotalFeePerGas.String()))
			maxFee = new(big.Int).Set(req.MaxTotalFeePerGas)
		}

		return assembledFee{
			eip1559:              true,
			maxFeePerGas:         maxFee,
			maxPriorityFeePerGas: tip,
			adaptableFeePerGas:   tip,
		}, nil
	}

	minGasPrice, err := chainutils.ReconcileMinBigInt(pool, func(c chainutils.NodeConnection) (*big.Int, error) {
		return a.legacyGasPrice(ctx, c.(*Connection))
	})
	if err != nil {
		return assembledFee{}, err
	}

	gasPrice := minGasPrice
	if tip.Cmp(gasPrice) > 0 {
		gasPrice = tip
	}
	if req.MaxTotalFeePerGas != nil && gasPrice.Cmp(req.MaxTotalFeePerGas) > 0 {
		gasPrice = new(big.Int).Set(req.MaxTotalFeePerGas)
	}

	return assembledFee{
		eip1559:            false,
		gasPrice:           gasPrice,
		adaptableFeePerGas: gasPrice,
	}, nil
}

// baseFeePerGas reads the latest block's base fee. On a proof-of-authority
// chain it takes the tolerant raw-RPC path instead of ethclient.HeaderByNumber:
// go-ethereum's header decoder rejects the extended extraData field that
// clique-style chains such as BNB Chain and Polygon's Bor put in every
// block header, so decoding just the field this call needs avoids the
// strict decoder entirely.
func (a *Adapter) baseFeePerGas(ctx context.Context, conn *Connection) (*big.Int, error) {
	if conn.poa {
		return a.baseFeePerGasTolerant(ctx, conn)
	}
	header, err := conn.Client().HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, chainutils.NewChainErrorFor(a.chainID, "unable to read latest base fee", err)
	}
	if header.BaseFee == nil {
		return nil, chainutils.NewChainErrorFor(a.chainID, "chain does not report a base fee", nil)
	}
	return header.BaseFee, nil
}

func (a *Adapter) baseFeePerGasTolerant(ctx context.Context, conn *Connection) (*big.Int, error) {
	var raw json.RawMessage
	if err := conn.RPC().CallContext(ctx, &raw, "eth_getBlockByNumber", "latest", false); err != nil {
		return nil, chainutils.NewChainErrorFor(a.chainID, "unable to read latest block", err)
	}

	var block struct {
		BaseFeePerGas string `json:"baseFeePerGas"`
	}
	if err := json.Unmarshal(raw, &block); err != nil {
		return nil, chainutils.NewChainErrorFor(a.chainID, "unable to parse latest block", err)
	}
	if block.BaseFeePerGas == "" {
		return nil, chainutils.NewChainErrorFor(a.chainID, "chain does not report a base fee", nil)
	}

	baseFee, err := hexutil.DecodeBig(block.BaseFeePerGas)
	if err != nil {
		return nil, chainutils.NewChainErrorFor(a.chainID, "unable to decode base fee", err)
	}
	return baseFee, nil
}

func (a *Adapter) legacyGasPrice(ctx context.Context, conn *Connection) (*big.Int, error) {
	price, err := conn.Client().SuggestGasPrice(ctx)
	if err != nil {
		return nil, chainutils.NewChainErrorFor(a.chainID, "unable to read gas price", err)
	}
	return price, nil
}
