package chainutils_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chainutils "github.com/meridianlabs/chainutils"
	"github.com/meridianlabs/chainutils/testutil"
)

func TestBuildPool_FallbackConsumption(t *testing.T) {
	adapter := testutil.NewFakeAdapter(chainutils.ChainIdEthereum)
	adapter.Unreachable["p1"] = true

	pool, err := chainutils.BuildPool(context.Background(), adapter,
		[]string{"p1", "p2"}, []string{"f1", "f2"}, chainutils.ConnectTimeouts{}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, pool.Len())

	assert.Equal(t, "f1", pool.Members()[0].Endpoint())
	assert.Equal(t, "p2", pool.Members()[1].Endpoint())
}

func TestBuildPool_AllUnreachable(t *testing.T) {
	adapter := testutil.NewFakeAdapter(chainutils.ChainIdEthereum)
	adapter.Unreachable["p1"] = true
	adapter.Unreachable["f1"] = true

	_, err := chainutils.BuildPool(context.Background(), adapter,
		[]string{"p1"}, []string{"f1"}, chainutils.ConnectTimeouts{}, nil)
	require.Error(t, err)
	assert.True(t, chainutils.HasCode(err, chainutils.ErrNodeConnection))
}

func TestBuildPool_SizeMatchesPrimaryCount(t *testing.T) {
	adapter := testutil.NewFakeAdapter(chainutils.ChainIdEthereum)

	pool, err := chainutils.BuildPool(context.Background(), adapter,
		[]string{"p1", "p2", "p3"}, nil, chainutils.ConnectTimeouts{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, pool.Len())
}
