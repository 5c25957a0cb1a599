package chainutils_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chainutils "github.com/meridianlabs/chainutils"
	"github.com/meridianlabs/chainutils/testutil"
)

func submissionRequest(minFee *big.Int) chainutils.TransactionSubmissionRequest {
	return chainutils.TransactionSubmissionRequest{
		ContractAddress:       "0xcontract",
		MinAdaptableFeePerGas: minFee,
		Nonce:                 1,
	}
}

func TestResubmit_RetriesThenSucceeds(t *testing.T) {
	adapter := testutil.NewFakeAdapter(chainutils.ChainIdEthereum)
	pool, err := chainutils.BuildPool(context.Background(), adapter, []string{"n1"}, nil, chainutils.ConnectTimeouts{}, nil)
	require.NoError(t, err)

	adapter.FailSendRawTimes = 3
	adapter.SendRawErr = chainutils.NewTransactionUnderpricedError(nil)
	adapter.SendRawKind = chainutils.SendErrorUnderpriced

	submission := chainutils.NewSubmissionEngine(adapter, testutil.FakeSigner, nil)
	resub := chainutils.NewResubmissionEngine(submission, nil)

	req := chainutils.TransactionResubmissionRequest{
		TransactionSubmissionRequest: submissionRequest(big.NewInt(0)),
		AdaptableFeeIncreaseFactor:   1.101,
	}

	resp, err := resub.Resubmit(context.Background(), pool, req, "0xfrom")
	require.NoError(t, err)
	assert.Equal(t, "0xfake", resp.TransactionId)
	assert.Equal(t, 4, adapter.SendRawCalls)
}

func TestResubmit_RejectsLowFactor(t *testing.T) {
	adapter := testutil.NewFakeAdapter(chainutils.ChainIdEthereum)
	pool, err := chainutils.BuildPool(context.Background(), adapter, []string{"n1"}, nil, chainutils.ConnectTimeouts{}, nil)
	require.NoError(t, err)

	submission := chainutils.NewSubmissionEngine(adapter, testutil.FakeSigner, nil)
	resub := chainutils.NewResubmissionEngine(submission, nil)

	req := chainutils.TransactionResubmissionRequest{
		TransactionSubmissionRequest: submissionRequest(big.NewInt(0)),
		AdaptableFeeIncreaseFactor:   1.05,
	}
	_, err = resub.Resubmit(context.Background(), pool, req, "0xfrom")
	require.Error(t, err)
}

func TestResubmit_StopsAtFeeCeiling(t *testing.T) {
	adapter := testutil.NewFakeAdapter(chainutils.ChainIdEthereum)
	adapter.SendRawErr = chainutils.NewTransactionUnderpricedError(nil)
	adapter.SendRawKind = chainutils.SendErrorUnderpriced
	pool, err := chainutils.BuildPool(context.Background(), adapter, []string{"n1"}, nil, chainutils.ConnectTimeouts{}, nil)
	require.NoError(t, err)

	submission := chainutils.NewSubmissionEngine(adapter, testutil.FakeSigner, nil)
	resub := chainutils.NewResubmissionEngine(submission, nil)

	req := chainutils.TransactionResubmissionRequest{
		TransactionSubmissionRequest: chainutils.TransactionSubmissionRequest{
			MinAdaptableFeePerGas: big.NewInt(1),
			MaxTotalFeePerGas:     big.NewInt(2),
		},
		AdaptableFeeIncreaseFactor: 1.101,
	}
	_, err = resub.Resubmit(context.Background(), pool, req, "0xfrom")
	require.Error(t, err)
	assert.True(t, chainutils.HasCode(err, chainutils.ErrMaxTotalFeePerGasExceeded))
}
