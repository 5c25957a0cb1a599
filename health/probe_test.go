package health_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	chainutils "github.com/meridianlabs/chainutils"
	"github.com/meridianlabs/chainutils/health"
	"github.com/meridianlabs/chainutils/testutil"
)

func TestProbe_EmptyRegistryYieldsEmptySnapshot(t *testing.T) {
	reg := chainutils.NewRegistry(nil)
	snapshot := health.Probe(context.Background(), reg, 0)
	assert.Empty(t, snapshot)
}

func TestProbe_ReportsUnhealthyEndpoints(t *testing.T) {
	reg := chainutils.NewRegistry(nil)

	ethAdapter := testutil.NewFakeAdapter(chainutils.ChainIdEthereum)
	ethAdapter.Unreachable["https://bad.example"] = true
	reg.Initialize(chainutils.ChainIdEthereum, ethAdapter, chainutils.ChainConfig{
		PrimaryURLs:  []string{"https://good.example"},
		FallbackURLs: []string{"https://bad.example"},
	})

	bnbAdapter := testutil.NewFakeAdapter(chainutils.ChainIdBnbChain)
	reg.Initialize(chainutils.ChainIdBnbChain, bnbAdapter, chainutils.ChainConfig{
		PrimaryURLs: []string{"https://bnb.example"},
	})

	snapshot := health.Probe(context.Background(), reg, 4)

	ethHealth := snapshot[chainutils.ChainIdEthereum]
	assert.Equal(t, 1, ethHealth.HealthyTotal)
	assert.Equal(t, 1, ethHealth.UnhealthyTotal)
	assert.Equal(t, "https://bad.example", ethHealth.UnhealthyNodes[0].Host)

	bnbHealth := snapshot[chainutils.ChainIdBnbChain]
	assert.Equal(t, 1, bnbHealth.HealthyTotal)
	assert.Equal(t, 0, bnbHealth.UnhealthyTotal)
}
