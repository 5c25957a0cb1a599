package scheduler_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chainutils "github.com/meridianlabs/chainutils"
	"github.com/meridianlabs/chainutils/scheduler"
	"github.com/meridianlabs/chainutils/testutil"
)

func newLifecycle(t *testing.T, adapter *testutil.FakeAdapter) (*scheduler.Lifecycle, *chainutils.NodePool) {
	t.Helper()
	pool, err := chainutils.BuildPool(context.Background(), adapter, []string{"n1"}, nil, chainutils.ConnectTimeouts{}, nil)
	require.NoError(t, err)

	submission := chainutils.NewSubmissionEngine(adapter, testutil.FakeSigner, nil)
	resub := chainutils.NewResubmissionEngine(submission, nil)
	runtime := scheduler.NewInProcessRuntime()

	lc := scheduler.NewLifecycle(adapter, "0xfrom",
		func(ctx context.Context) (*chainutils.NodePool, error) { return pool, nil },
		submission, resub, runtime,
		time.Millisecond, 1, 50, nil)
	return lc, pool
}

func TestLifecycle_HappyPath(t *testing.T) {
	adapter := testutil.NewFakeAdapter(chainutils.ChainIdEthereum)
	adapter.StatusSequence = []chainutils.TransactionStatus{
		chainutils.StatusUnincluded,
		chainutils.StatusUnconfirmed,
		chainutils.StatusConfirmed,
	}
	lc, _ := newLifecycle(t, adapter)

	id, err := lc.StartTransactionSubmission(context.Background(), chainutils.TransactionSubmissionStartRequest{
		TransactionSubmissionRequest: chainutils.TransactionSubmissionRequest{
			MinAdaptableFeePerGas: big.NewInt(1),
		},
		AdaptableFeeIncreaseFactor: 1.101,
		BlocksUntilResubmission:    1,
	})
	require.NoError(t, err)

	poll, err := lc.PollStatus(id)
	require.NoError(t, err)
	assert.False(t, poll.Completed)

	require.Eventually(t, func() bool {
		poll, err = lc.PollStatus(id)
		return err == nil && poll.Completed
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, chainutils.StatusConfirmed, poll.Status)
}

func TestLifecycle_RejectsInvalidStartRequest(t *testing.T) {
	adapter := testutil.NewFakeAdapter(chainutils.ChainIdEthereum)
	lc, _ := newLifecycle(t, adapter)

	_, err := lc.StartTransactionSubmission(context.Background(), chainutils.TransactionSubmissionStartRequest{
		TransactionSubmissionRequest: chainutils.TransactionSubmissionRequest{MinAdaptableFeePerGas: big.NewInt(1)},
		AdaptableFeeIncreaseFactor:   1.101,
		BlocksUntilResubmission:      0,
	})
	require.Error(t, err)
}

func TestLifecycle_DependentSubmission_StartsFollowerAtDepth(t *testing.T) {
	adapter := testutil.NewFakeAdapter(chainutils.ChainIdEthereum)
	blockN := uint64(100)
	adapter.ReceiptsByTxId["0xprereq"] = chainutils.TransactionReceipt{
		Hash: "0xprereq", StatusCode: chainutils.StatusConfirmed, BlockNumber: &blockN, CurrentBlock: blockN,
	}
	lc, _ := newLifecycle(t, adapter)

	id := lc.StartDependentSubmission(context.Background(), scheduler.DependentSubmissionRequest{
		PrerequisiteTxId: "0xprereq",
		RequiredDepth:    0,
		Follower: chainutils.TransactionSubmissionStartRequest{
			TransactionSubmissionRequest: chainutils.TransactionSubmissionRequest{MinAdaptableFeePerGas: big.NewInt(1)},
			AdaptableFeeIncreaseFactor:   1.101,
			BlocksUntilResubmission:      1,
		},
	})

	adapter.StatusSequence = []chainutils.TransactionStatus{chainutils.StatusConfirmed}

	require.Eventually(t, func() bool {
		poll, err := lc.PollStatus(id)
		return err == nil && poll.Completed
	}, 2*time.Second, 5*time.Millisecond)
}
