package chainutils

import (
	"context"

	"go.uber.org/zap"
)

const minGasLimit = 21000

// ValidateSubmissionRequest checks req's field invariants in isolation
// from any chain I/O. A violation is always reported with
// ErrBlockchainUtilities except the max-fee-below-min case, which is
// reported as ErrMaxTotalFeePerGasExceeded since it is a submission
// outcome in its own right, not merely a malformed request.
func ValidateSubmissionRequest(req TransactionSubmissionRequest) error {
	if req.GasLimit != nil && *req.GasLimit < minGasLimit {
		return newErr(ErrBlockchainUtilities, "gas limit below minimum of 21000", nil)
	}
	if req.MinAdaptableFeePerGas == nil || req.MinAdaptableFeePerGas.Sign() < 0 {
		return newErr(ErrBlockchainUtilities, "minimum adaptable fee per gas must be >= 0", nil)
	}
	if req.MaxTotalFeePerGas != nil && req.MaxTotalFeePerGas.Cmp(req.MinAdaptableFeePerGas) < 0 {
		return newErr(ErrMaxTotalFeePerGasExceeded, "maximum total fee per gas is below the minimum adaptable fee", nil)
	}
	if req.Amount != nil && req.Amount.Sign() < 0 {
		return newErr(ErrBlockchainUtilities, "amount must be >= 0", nil)
	}
	return nil
}

// SubmissionEngine validates a TransactionSubmissionRequest, assembles fee
// fields from on-chain observations (delegated to the ChainAdapter),
// signs, dispatches through the pool's write path, and classifies the
// outcome into the error taxonomy.
type SubmissionEngine struct {
	Adapter ChainAdapter
	Signer  func(payload []byte) ([]byte, error)
	Logger  *zap.Logger
}

// NewSubmissionEngine constructs a SubmissionEngine bound to adapter and a
// signing primitive. signer is the pure "given a canonical transaction
// body and a private key, return signed bytes" collaborator; key material
// never appears in this package.
func NewSubmissionEngine(adapter ChainAdapter, signer func([]byte) ([]byte, error), logger *zap.Logger) *SubmissionEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionEngine{Adapter: adapter, Signer: signer, Logger: logger}
}

// Submit runs the full pipeline against pool. Callers without an existing
// pool should build one first via Registry.BuildPool; this engine has no
// implicit fallback for a nil pool.
func (e *SubmissionEngine) Submit(ctx context.Context, pool *NodePool, req TransactionSubmissionRequest, fromAddress string) (TransactionSubmissionResponse, error) {
	if err := ValidateSubmissionRequest(req); err != nil {
		return TransactionSubmissionResponse{}, err
	}

	build, err := e.Adapter.BuildCall(ctx, pool, req, fromAddress)
	if err != nil {
		return TransactionSubmissionResponse{}, err
	}

	signed, err := e.Signer(build.SigningPayload)
	if err != nil {
		return TransactionSubmissionResponse{}, newErr(ErrBlockchainUtilities, "signing failed", err)
	}

	type sendOutcome struct {
		txId string
		kind SendErrorKind
	}
	outcome, err := Write(pool, func(c NodeConnection) (sendOutcome, error) {
		txId, kind, sendErr := e.Adapter.SendRaw(ctx, c, signed)
		return sendOutcome{txId: txId, kind: kind}, sendErr
	})
	if err != nil {
		return TransactionSubmissionResponse{}, classifySendErrorKind(outcome.kind, err)
	}
	txId := outcome.txId

	e.Logger.Debug("transaction dispatched",
		zap.String("chain", e.Adapter.ChainId().Name()),
		zap.String("tx_id", txId),
		zap.String("adaptable_fee_per_gas", build.AdaptableFeePerGas.String()))

	return TransactionSubmissionResponse{
		TransactionId:      txId,
		AdaptableFeePerGas: build.AdaptableFeePerGas,
	}, nil
}

// classifySendErrorKind maps the kind SendRaw reports into the taxonomy;
// Submit uses this to build the *ChainError a caller sees.
func classifySendErrorKind(kind SendErrorKind, raw error) error {
	switch kind {
	case SendErrorNonceTooLow:
		return newErr(ErrTransactionNonceTooLow, "nonce already used", raw)
	case SendErrorUnderpriced:
		return newErr(ErrTransactionUnderpriced, "transaction underpriced", raw)
	default:
		return newErr(ErrBlockchainUtilities, "transaction dispatch failed", raw)
	}
}
