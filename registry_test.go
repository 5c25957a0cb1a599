package chainutils_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chainutils "github.com/meridianlabs/chainutils"
	"github.com/meridianlabs/chainutils/testutil"
)

func TestRegistry_NotInitialized(t *testing.T) {
	reg := chainutils.NewRegistry(nil)
	_, _, err := reg.Get(chainutils.ChainIdEthereum)
	require.Error(t, err)
	assert.True(t, chainutils.HasCode(err, chainutils.ErrNotInitialized))
}

func TestRegistry_InitializeThenGet(t *testing.T) {
	reg := chainutils.NewRegistry(nil)
	adapter := testutil.NewFakeAdapter(chainutils.ChainIdEthereum)
	config := chainutils.ChainConfig{PrimaryURLs: []string{"n1"}, AvgBlockTime: 12, RequiredConfirmations: 12}

	reg.Initialize(chainutils.ChainIdEthereum, adapter, config)

	got, gotConfig, err := reg.Get(chainutils.ChainIdEthereum)
	require.NoError(t, err)
	assert.Same(t, adapter, got.(*testutil.FakeAdapter))
	assert.Equal(t, uint64(12), gotConfig.AvgBlockTime)
	assert.Equal(t, []chainutils.ChainId{chainutils.ChainIdEthereum}, reg.Chains())
}

func TestRegistry_ReinitializeReplaces(t *testing.T) {
	reg := chainutils.NewRegistry(nil)
	first := testutil.NewFakeAdapter(chainutils.ChainIdEthereum)
	second := testutil.NewFakeAdapter(chainutils.ChainIdEthereum)

	reg.Initialize(chainutils.ChainIdEthereum, first, chainutils.ChainConfig{})
	reg.Initialize(chainutils.ChainIdEthereum, second, chainutils.ChainConfig{})

	got, _, err := reg.Get(chainutils.ChainIdEthereum)
	require.NoError(t, err)
	assert.Same(t, second, got.(*testutil.FakeAdapter))
}
