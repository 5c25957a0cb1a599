package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	chainutils "github.com/meridianlabs/chainutils"
)

const minFeeIncreaseFactor = 1.101

// DefaultMaxRetries is the reference upper bound on activations for a
// single lifecycle task before it fails with its last underlying error.
const DefaultMaxRetries = 1000

// PoolProvider returns a fresh or cached NodePool for the lifecycle's
// chain; typically chainutils.Registry.BuildPool bound to one chain.
type PoolProvider func(ctx context.Context) (*chainutils.NodePool, error)

// Lifecycle wraps a Runtime with the fixed task body the Lifecycle
// Scheduler is specified around: transaction_resubmission_task, plus the
// dependent-transaction task recovered from the richer of the two
// scheduler modules in the system this was distilled from (see the
// module-level design ledger for why both are treated as canonical core).
type Lifecycle struct {
	Adapter               chainutils.ChainAdapter
	FromAddress           string
	Pool                  PoolProvider
	Submission            *chainutils.SubmissionEngine
	Resubmission          *chainutils.ResubmissionEngine
	Runtime               Runtime
	AvgBlockTime          time.Duration
	RequiredConfirmations uint64
	MaxRetries            int
	Logger                *zap.Logger
}

// NewLifecycle constructs a Lifecycle. maxRetries <= 0 means
// DefaultMaxRetries.
func NewLifecycle(adapter chainutils.ChainAdapter, fromAddress string, pool PoolProvider, submission *chainutils.SubmissionEngine, resubmission *chainutils.ResubmissionEngine, runtime Runtime, avgBlockTime time.Duration, requiredConfirmations uint64, maxRetries int, logger *zap.Logger) *Lifecycle {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Lifecycle{
		Adapter:               adapter,
		FromAddress:           fromAddress,
		Pool:                  pool,
		Submission:            submission,
		Resubmission:          resubmission,
		Runtime:               runtime,
		AvgBlockTime:          avgBlockTime,
		RequiredConfirmations: requiredConfirmations,
		MaxRetries:            maxRetries,
		Logger:                logger,
	}
}

func (l *Lifecycle) resubmissionPeriod(blocksUntilResubmission uint64) time.Duration {
	return l.AvgBlockTime * time.Duration(blocksUntilResubmission)
}

func (l *Lifecycle) unconfirmedPeriod() time.Duration {
	return l.AvgBlockTime * time.Duration(l.RequiredConfirmations)
}

// maxFeeExceededBackoff reproduces the original's linear-in-retries delay
// verbatim: avg_block_time * required_confirmations * retries_so_far. This
// can exceed unconfirmedPeriod() at high retry counts; that is intentional
// (matches the system this was distilled from), not a bug.
func (l *Lifecycle) maxFeeExceededBackoff(retries int) time.Duration {
	return l.AvgBlockTime * time.Duration(l.RequiredConfirmations) * time.Duration(retries)
}

// lifecycleOutcome is the terminal value a resubmission or dependent task
// returns once the underlying transaction reaches Confirmed or Reverted.
type lifecycleOutcome struct {
	status chainutils.TransactionStatus
	txId   string
}

type resubmissionState struct {
	lastTxId string
	request  chainutils.TransactionResubmissionRequest
}

func (l *Lifecycle) resubmissionTaskFunc(state *resubmissionState, blocksUntilResubmission uint64) TaskFunc {
	var lastErr error
	return func(ctx context.Context, retries int) (any, error) {
		if retries >= l.MaxRetries {
			if lastErr != nil {
				return nil, fmt.Errorf("lifecycle task exhausted its retry budget of %d activations: %w", l.MaxRetries, lastErr)
			}
			return nil, fmt.Errorf("lifecycle task exhausted its retry budget of %d activations", l.MaxRetries)
		}

		pool, err := l.Pool(ctx)
		if err != nil {
			lastErr = err
			l.Logger.Warn("lifecycle task unable to build a pool, retrying", zap.Error(err))
			return nil, Retry(l.resubmissionPeriod(blocksUntilResubmission))
		}

		receipt, err := l.Adapter.ReadReceipt(ctx, pool, state.lastTxId)
		if err != nil {
			lastErr = err
			l.Logger.Warn("lifecycle task unable to read transaction status, retrying", zap.Error(err))
			return nil, Retry(l.resubmissionPeriod(blocksUntilResubmission))
		}

		switch receipt.StatusCode {
		case chainutils.StatusUnincluded:
			resp, resubErr := l.Resubmission.Resubmit(ctx, pool, state.request, l.FromAddress)
			if resubErr != nil {
				lastErr = resubErr
				if chainutils.HasCode(resubErr, chainutils.ErrMaxTotalFeePerGasExceeded) {
					return nil, Retry(l.maxFeeExceededBackoff(retries))
				}
				l.Logger.Warn("resubmission failed, retrying after resubmission period", zap.Error(resubErr))
				return nil, Retry(l.resubmissionPeriod(blocksUntilResubmission))
			}
			state.lastTxId = resp.TransactionId
			state.request.MinAdaptableFeePerGas = resp.AdaptableFeePerGas
			return nil, Retry(l.resubmissionPeriod(blocksUntilResubmission))

		case chainutils.StatusUnconfirmed:
			return nil, Retry(l.unconfirmedPeriod())

		case chainutils.StatusConfirmed, chainutils.StatusReverted:
			return lifecycleOutcome{status: receipt.StatusCode, txId: state.lastTxId}, nil

		default:
			return nil, Retry(l.resubmissionPeriod(blocksUntilResubmission))
		}
	}
}

// StartTransactionSubmission is the Lifecycle Scheduler's public entry
// point: submit once, resubmit once on an initial underprice, then
// register the ongoing resubmission task under a freshly generated id.
func (l *Lifecycle) StartTransactionSubmission(ctx context.Context, req chainutils.TransactionSubmissionStartRequest) (chainutils.InternalTransactionId, error) {
	if req.BlocksUntilResubmission == 0 {
		return "", chainutils.NewChainErrorFor(l.Adapter.ChainId(), "blocks_until_resubmission must be > 0", nil)
	}
	if req.AdaptableFeeIncreaseFactor < minFeeIncreaseFactor {
		return "", chainutils.NewChainErrorFor(l.Adapter.ChainId(), "adaptable fee increase factor must be >= 1.101", nil)
	}

	pool, err := l.Pool(ctx)
	if err != nil {
		return "", err
	}

	resp, err := l.Submission.Submit(ctx, pool, req.TransactionSubmissionRequest, l.FromAddress)
	if err != nil {
		if !chainutils.HasCode(err, chainutils.ErrTransactionUnderpriced) {
			return "", err
		}
		resubReq := chainutils.TransactionResubmissionRequest{
			TransactionSubmissionRequest: req.TransactionSubmissionRequest,
			AdaptableFeeIncreaseFactor:   req.AdaptableFeeIncreaseFactor,
		}
		resp, err = l.Resubmission.Resubmit(ctx, pool, resubReq, l.FromAddress)
		if err != nil {
			return "", err
		}
	}

	state := &resubmissionState{
		lastTxId: resp.TransactionId,
		request: chainutils.TransactionResubmissionRequest{
			TransactionSubmissionRequest: req.TransactionSubmissionRequest,
			AdaptableFeeIncreaseFactor:   req.AdaptableFeeIncreaseFactor,
		},
	}
	state.request.MinAdaptableFeePerGas = resp.AdaptableFeePerGas

	internalId := chainutils.InternalTransactionId(uuid.NewString())
	l.Runtime.Schedule(ctx, string(internalId), l.resubmissionPeriod(req.BlocksUntilResubmission), l.resubmissionTaskFunc(state, req.BlocksUntilResubmission))
	return internalId, nil
}

// PollStatus looks up id's task result. Not-ready is never an error;
// ready-failure surfaces the underlying error wrapped with id for
// traceability.
func (l *Lifecycle) PollStatus(id chainutils.InternalTransactionId) (chainutils.PollResult, error) {
	ready, result := l.Runtime.Result(string(id))
	if !ready {
		return chainutils.PollResult{Completed: false}, nil
	}
	if result.Err != nil {
		return chainutils.PollResult{}, chainutils.NewChainErrorFor(l.Adapter.ChainId(),
			fmt.Sprintf("lifecycle task %s failed", id), result.Err)
	}
	outcome, ok := result.Value.(lifecycleOutcome)
	if !ok {
		return chainutils.PollResult{}, chainutils.NewChainErrorFor(l.Adapter.ChainId(),
			fmt.Sprintf("lifecycle task %s returned an unexpected result", id), nil)
	}
	return chainutils.PollResult{Completed: true, Status: outcome.status, TransactionId: outcome.txId}, nil
}

// DependentSubmissionRequest waits for a prerequisite transaction to reach
// RequiredDepth confirmations before starting Follower.
type DependentSubmissionRequest struct {
	PrerequisiteTxId string
	RequiredDepth    uint64
	Follower         chainutils.TransactionSubmissionStartRequest
}

type dependentState struct {
	awaitingFollower bool
	followerId       chainutils.InternalTransactionId
}

func (l *Lifecycle) dependentTaskFunc(dep DependentSubmissionRequest, state *dependentState) TaskFunc {
	var lastErr error
	return func(ctx context.Context, retries int) (any, error) {
		if retries >= l.MaxRetries {
			if lastErr != nil {
				return nil, fmt.Errorf("dependent lifecycle task exhausted its retry budget of %d activations: %w", l.MaxRetries, lastErr)
			}
			return nil, fmt.Errorf("dependent lifecycle task exhausted its retry budget of %d activations", l.MaxRetries)
		}

		if state.awaitingFollower {
			ready, result := l.Runtime.Result(string(state.followerId))
			if !ready {
				return nil, Retry(l.unconfirmedPeriod())
			}
			return result.Value, result.Err
		}

		pool, err := l.Pool(ctx)
		if err != nil {
			lastErr = err
			return nil, Retry(l.unconfirmedPeriod())
		}

		receipt, err := l.Adapter.ReadReceipt(ctx, pool, dep.PrerequisiteTxId)
		if err != nil {
			lastErr = err
			return nil, Retry(l.unconfirmedPeriod())
		}
		if receipt.StatusCode == chainutils.StatusReverted {
			return nil, fmt.Errorf("prerequisite transaction %s reverted", dep.PrerequisiteTxId)
		}
		if receipt.BlockNumber == nil || receipt.CurrentBlock < *receipt.BlockNumber+dep.RequiredDepth {
			return nil, Retry(l.unconfirmedPeriod())
		}

		followerId, err := l.StartTransactionSubmission(ctx, dep.Follower)
		if err != nil {
			return nil, err
		}
		state.awaitingFollower = true
		state.followerId = followerId
		return nil, Retry(l.unconfirmedPeriod())
	}
}

// StartDependentSubmission registers a task that waits for a prerequisite
// transaction's confirmation depth before starting a follower submission,
// and returns a fresh InternalTransactionId pollable the same way as
// StartTransactionSubmission's.
func (l *Lifecycle) StartDependentSubmission(ctx context.Context, dep DependentSubmissionRequest) chainutils.InternalTransactionId {
	internalId := chainutils.InternalTransactionId(uuid.NewString())
	state := &dependentState{}
	l.Runtime.Schedule(ctx, string(internalId), l.unconfirmedPeriod(), l.dependentTaskFunc(dep, state))
	return internalId
}
