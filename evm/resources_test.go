package evm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chainutils "github.com/meridianlabs/chainutils"
	"github.com/meridianlabs/chainutils/evm"
)

func TestAdapter_LoadAbi_Erc20(t *testing.T) {
	adapter := evm.NewAdapter(chainutils.ChainIdEthereum, 1, true, evm.DefaultAbiSource, nil)

	parsed, err := adapter.LoadAbi(chainutils.ContractAbiRef{Kind: "erc20"})
	require.NoError(t, err)
	assert.Equal(t, chainutils.AbiKind("erc20"), parsed.Kind)
	assert.NotNil(t, parsed.Impl)
}

func TestAdapter_LoadAbi_Hub(t *testing.T) {
	adapter := evm.NewAdapter(chainutils.ChainIdEthereum, 1, true, evm.DefaultAbiSource, nil)

	parsed, err := adapter.LoadAbi(chainutils.ContractAbiRef{Kind: "hub"})
	require.NoError(t, err)
	assert.Equal(t, chainutils.AbiKind("hub"), parsed.Kind)
}

func TestAdapter_LoadAbi_UnknownKindFails(t *testing.T) {
	adapter := evm.NewAdapter(chainutils.ChainIdEthereum, 1, true, evm.DefaultAbiSource, nil)

	_, err := adapter.LoadAbi(chainutils.ContractAbiRef{Kind: "nonexistent"})
	require.Error(t, err)
}

func TestAdapter_AddressValidation(t *testing.T) {
	adapter := evm.NewAdapter(chainutils.ChainIdEthereum, 1, true, evm.DefaultAbiSource, nil)

	assert.True(t, adapter.IsValidAddress("0x0000000000000000000000000000000000000001"))
	assert.False(t, adapter.IsValidAddress("not-an-address"))
	assert.True(t, adapter.IsEqualAddress(
		"0x0000000000000000000000000000000000000001",
		"0x0000000000000000000000000000000000000001",
	))
}
