package chainutils

import (
	"context"
	"math"
	"math/big"

	"go.uber.org/zap"
)

const minFeeIncreaseFactor = 1.101

// ResubmissionEngine escalates the adaptable fee by a bounded
// multiplicative factor and re-invokes a SubmissionEngine until the
// transaction is accepted (not underpriced) or the fee ceiling is
// exceeded. It never lowers fees, never retries
// ErrMaxTotalFeePerGasExceeded, and never sleeps or schedules — that is
// the Lifecycle Scheduler's job.
type ResubmissionEngine struct {
	Submission *SubmissionEngine
	Logger     *zap.Logger
}

// NewResubmissionEngine constructs a ResubmissionEngine bound to a
// SubmissionEngine.
func NewResubmissionEngine(submission *SubmissionEngine, logger *zap.Logger) *ResubmissionEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResubmissionEngine{Submission: submission, Logger: logger}
}

// nextAdaptableFee computes ceil(prev * factor), floored at 1 when prev is
// 0. This is the one formula a resubmission loop iteration applies; it
// never lowers the fee.
func nextAdaptableFee(prev *big.Int, factor float64) *big.Int {
	prevF := new(big.Float).SetInt(prev)
	scaled := new(big.Float).Mul(prevF, big.NewFloat(factor))
	ceiled, _ := scaled.Float64()
	next := big.NewInt(int64(math.Ceil(ceiled)))
	if next.Sign() < 1 {
		next = big.NewInt(1)
	}
	return next
}

// Resubmit runs the fee-bump loop against req until the Submission Engine
// accepts the transaction or the fee ceiling is exceeded.
func (e *ResubmissionEngine) Resubmit(ctx context.Context, pool *NodePool, req TransactionResubmissionRequest, fromAddress string) (TransactionSubmissionResponse, error) {
	if req.AdaptableFeeIncreaseFactor < minFeeIncreaseFactor {
		return TransactionSubmissionResponse{}, newErr(ErrBlockchainUtilities, "adaptable fee increase factor must be >= 1.101", nil)
	}
	if req.MinAdaptableFeePerGas == nil || req.MinAdaptableFeePerGas.Sign() < 0 {
		return TransactionSubmissionResponse{}, newErr(ErrBlockchainUtilities, "minimum adaptable fee per gas must be >= 0", nil)
	}

	current := req.TransactionSubmissionRequest
	for {
		newMin := nextAdaptableFee(current.MinAdaptableFeePerGas, req.AdaptableFeeIncreaseFactor)
		if current.MaxTotalFeePerGas != nil && newMin.Cmp(current.MaxTotalFeePerGas) > 0 {
			return TransactionSubmissionResponse{}, newErrDetails(ErrMaxTotalFeePerGasExceeded,
				"required adaptable fee exceeds the configured ceiling", nil,
				ErrorDetails{})
		}
		current.MinAdaptableFeePerGas = newMin

		resp, err := e.Submission.Submit(ctx, pool, current, fromAddress)
		if err == nil {
			return resp, nil
		}
		if HasCode(err, ErrTransactionUnderpriced) {
			e.Logger.Warn("resubmission underpriced, increasing fee again",
				zap.String("next_min_adaptable_fee_per_gas", newMin.String()))
			continue
		}
		return TransactionSubmissionResponse{}, err
	}
}
