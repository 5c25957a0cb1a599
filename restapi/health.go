// Package restapi exposes the library's health snapshot over HTTP. It is
// a thin net/http handler with no router/framework dependency, matching
// the reference toolkit's own stdlib-only HTTP usage; the REST health
// endpoint is the one external interface named in scope (the rest of
// "REST facades" is explicitly out of scope).
package restapi

import (
	"encoding/json"
	"net/http"

	chainutils "github.com/meridianlabs/chainutils"
	"github.com/meridianlabs/chainutils/health"
)

type unhealthyNodeJSON struct {
	NodeDomain string `json:"node_domain"`
	Status     string `json:"status"`
}

type chainHealthJSON struct {
	HealthyTotal   int                 `json:"healthy_total"`
	UnhealthyTotal int                 `json:"unhealthy_total"`
	UnhealthyNodes []unhealthyNodeJSON `json:"unhealthy_nodes"`
}

// HealthHandler serves the health snapshot described in §6: a JSON object
// keyed by chain pascal-case name, 200 on success, 500 when no chain has
// been registered.
type HealthHandler struct {
	Registry *chainutils.Registry
	Workers  int
}

// NewHealthHandler constructs a HealthHandler probing reg.
func NewHealthHandler(reg *chainutils.Registry) *HealthHandler {
	return &HealthHandler{Registry: reg, Workers: health.DefaultWorkers}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snapshot := health.Probe(r.Context(), h.Registry, h.Workers)
	if len(snapshot) == 0 {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "no chain has been registered"})
		return
	}

	body := make(map[string]chainHealthJSON, len(snapshot))
	for chain, ch := range snapshot {
		nodes := make([]unhealthyNodeJSON, 0, len(ch.UnhealthyNodes))
		for _, n := range ch.UnhealthyNodes {
			nodes = append(nodes, unhealthyNodeJSON{NodeDomain: n.Host, Status: n.Status})
		}
		body[chain.Pascal()] = chainHealthJSON{
			HealthyTotal:   ch.HealthyTotal,
			UnhealthyTotal: ch.UnhealthyTotal,
			UnhealthyNodes: nodes,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(body)
}
