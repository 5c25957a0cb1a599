package restapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chainutils "github.com/meridianlabs/chainutils"
	"github.com/meridianlabs/chainutils/restapi"
	"github.com/meridianlabs/chainutils/testutil"
)

func TestHealthHandler_NoChainRegistered(t *testing.T) {
	reg := chainutils.NewRegistry(nil)
	handler := restapi.NewHealthHandler(reg)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthHandler_ReportsSnapshot(t *testing.T) {
	reg := chainutils.NewRegistry(nil)
	adapter := testutil.NewFakeAdapter(chainutils.ChainIdEthereum)
	adapter.Unreachable["https://bad.example"] = true
	reg.Initialize(chainutils.ChainIdEthereum, adapter, chainutils.ChainConfig{
		PrimaryURLs:  []string{"https://good.example"},
		FallbackURLs: []string{"https://bad.example"},
	})

	handler := restapi.NewHealthHandler(reg)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]struct {
		HealthyTotal   int `json:"healthy_total"`
		UnhealthyTotal int `json:"unhealthy_total"`
		UnhealthyNodes []struct {
			NodeDomain string `json:"node_domain"`
			Status     string `json:"status"`
		} `json:"unhealthy_nodes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	ethBody, ok := body[chainutils.ChainIdEthereum.Pascal()]
	require.True(t, ok)
	assert.Equal(t, 1, ethBody.HealthyTotal)
	assert.Equal(t, 1, ethBody.UnhealthyTotal)
	require.Len(t, ethBody.UnhealthyNodes, 1)
	assert.Equal(t, "https://bad.example", ethBody.UnhealthyNodes[0].NodeDomain)
}
