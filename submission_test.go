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

func TestValidateSubmissionRequest(t *testing.T) {
	gasTooLow := uint64(1000)
	valid := chainutils.TransactionSubmissionRequest{MinAdaptableFeePerGas: big.NewInt(0)}
	require.NoError(t, chainutils.ValidateSubmissionRequest(valid))

	withLowGas := valid
	withLowGas.GasLimit = &gasTooLow
	require.Error(t, chainutils.ValidateSubmissionRequest(withLowGas))

	noMinFee := chainutils.TransactionSubmissionRequest{}
	require.Error(t, chainutils.ValidateSubmissionRequest(noMinFee))

	ceilingBelowMin := chainutils.TransactionSubmissionRequest{
		MinAdaptableFeePerGas: big.NewInt(10),
		MaxTotalFeePerGas:     big.NewInt(5),
	}
	err := chainutils.ValidateSubmissionRequest(ceilingBelowMin)
	require.Error(t, err)
	assert.True(t, chainutils.HasCode(err, chainutils.ErrMaxTotalFeePerGasExceeded))
}

func TestSubmissionEngine_Submit_Success(t *testing.T) {
	adapter := testutil.NewFakeAdapter(chainutils.ChainIdEthereum)
	pool, err := chainutils.BuildPool(context.Background(), adapter, []string{"n1"}, nil, chainutils.ConnectTimeouts{}, nil)
	require.NoError(t, err)

	engine := chainutils.NewSubmissionEngine(adapter, testutil.FakeSigner, nil)
	resp, err := engine.Submit(context.Background(), pool, chainutils.TransactionSubmissionRequest{
		MinAdaptableFeePerGas: big.NewInt(100),
		Nonce:                 5,
	}, "0xfrom")
	require.NoError(t, err)
	assert.Equal(t, "0xfake", resp.TransactionId)
	assert.Equal(t, big.NewInt(100), resp.AdaptableFeePerGas)
	assert.Equal(t, 1, adapter.SendRawCalls)
}

func TestSubmissionEngine_Submit_ClassifiesNonceTooLow(t *testing.T) {
	adapter := testutil.NewFakeAdapter(chainutils.ChainIdEthereum)
	adapter.SendRawErr = chainutils.NewTransactionNonceTooLowError(nil)
	adapter.SendRawKind = chainutils.SendErrorNonceTooLow
	pool, err := chainutils.BuildPool(context.Background(), adapter, []string{"n1"}, nil, chainutils.ConnectTimeouts{}, nil)
	require.NoError(t, err)

	engine := chainutils.NewSubmissionEngine(adapter, testutil.FakeSigner, nil)
	_, err = engine.Submit(context.Background(), pool, chainutils.TransactionSubmissionRequest{
		MinAdaptableFeePerGas: big.NewInt(100),
	}, "0xfrom")
	require.Error(t, err)
	assert.True(t, chainutils.HasCode(err, chainutils.ErrTransactionNonceTooLow))
}

func TestSubmissionEngine_Submit_RejectsInvalidRequest(t *testing.T) {
	adapter := testutil.NewFakeAdapter(chainutils.ChainIdEthereum)
	pool, err := chainutils.BuildPool(context.Background(), adapter, []string{"n1"}, nil, chainutils.ConnectTimeouts{}, nil)
	require.NoError(t, err)

	engine := chainutils.NewSubmissionEngine(adapter, testutil.FakeSigner, nil)
	_, err = engine.Submit(context.Background(), pool, chainutils.TransactionSubmissionRequest{}, "0xfrom")
	require.Error(t, err)
	assert.Equal(t, 0, adapter.SendRawCalls)
}
