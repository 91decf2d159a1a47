package adminapi

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/dtnkit/bpa/internal/routing"
	"github.com/dtnkit/bpa/pkg/eid"
)

// handlers groups the read-only introspection endpoints against a single
// routing.Table. A nil Table is never passed in by cmd/bpa, but handlers
// degrade to "unhealthy"/empty responses rather than panicking if it is.
type handlers struct {
	table *routing.Table
}

// Liveness handles GET /health: the process is up and serving.
func (h *handlers) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{"service": "bpa"}))
}

// Readiness handles GET /health/ready: the routing table is wired in.
func (h *handlers) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.table == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("routing table not initialized"))
		return
	}
	writeJSON(w, http.StatusOK, healthyResponse(map[string]int{"nodes": h.countNodes()}))
}

func (h *handlers) countNodes() int {
	count := 0
	h.table.IterateNodes(func(*routing.Node) bool { count++; return true })
	return count
}

// contactView is the JSON projection of a routing.Contact: runtime-only
// fields (remaining capacity, queued bundles) are included since they are
// exactly what an operator wants to see, unlike internal/controlplane/store
// which persists only the configured window.
type contactView struct {
	FromMs        int64    `json:"from_ms"`
	ToMs          int64    `json:"to_ms"`
	BitrateBps    int64    `json:"bitrate_bps"`
	TotalCapacity int64    `json:"total_capacity"`
	RemainingP0   int64    `json:"remaining_p0"`
	RemainingP1   int64    `json:"remaining_p1"`
	RemainingP2   int64    `json:"remaining_p2"`
	QueuedBundles int      `json:"queued_bundles"`
	Active        bool     `json:"active"`
	Endpoints     []string `json:"endpoints,omitempty"`
}

// nodeView is the JSON projection of a routing.Node.
type nodeView struct {
	EID        string        `json:"eid"`
	ClaAddress string        `json:"cla_address,omitempty"`
	Endpoints  []string      `json:"endpoints,omitempty"`
	Contacts   []contactView `json:"contacts"`
}

func toEndpointStrings(eids []eid.EID) []string {
	if len(eids) == 0 {
		return nil
	}
	out := make([]string, len(eids))
	for i, e := range eids {
		out[i] = e.String()
	}
	return out
}

func toNodeView(n *routing.Node) nodeView {
	view := nodeView{
		EID:        n.EID.String(),
		ClaAddress: n.ClaAddress,
		Endpoints:  toEndpointStrings(n.Endpoints),
		Contacts:   make([]contactView, 0, len(n.Contacts)),
	}
	for _, c := range n.Contacts {
		view.Contacts = append(view.Contacts, contactView{
			FromMs:        c.FromMs,
			ToMs:          c.ToMs,
			BitrateBps:    c.BitrateBps,
			TotalCapacity: c.TotalCapacity,
			RemainingP0:   c.RemainingP0,
			RemainingP1:   c.RemainingP1,
			RemainingP2:   c.RemainingP2,
			QueuedBundles: len(c.QueuedBundles),
			Active:        c.Active,
			Endpoints:     toEndpointStrings(c.ExtraEndpoints),
		})
	}
	return view
}

// ListNodes handles GET /api/v1/nodes: every known node and its contacts.
func (h *handlers) ListNodes(w http.ResponseWriter, r *http.Request) {
	if h.table == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("routing table not initialized"))
		return
	}

	views := make([]nodeView, 0)
	h.table.IterateNodes(func(n *routing.Node) bool {
		views = append(views, toNodeView(n))
		return true
	})
	sort.Slice(views, func(i, j int) bool { return views[i].EID < views[j].EID })

	writeJSON(w, http.StatusOK, okResponse(views))
}

// GetNode handles GET /api/v1/nodes/*: one node's detail, looked up by its
// own EID or any endpoint it reaches (routing.Table.LookupByEID). The EID
// is taken from a wildcard route segment, not a named param, since dtn://
// and ipn: EIDs themselves contain "/".
func (h *handlers) GetNode(w http.ResponseWriter, r *http.Request) {
	if h.table == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("routing table not initialized"))
		return
	}

	raw := chi.URLParam(r, "*")
	target, err := eid.Parse(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid eid: "+err.Error()))
		return
	}

	node, ok := h.table.LookupByEID(target)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse("no such node"))
		return
	}
	writeJSON(w, http.StatusOK, okResponse(toNodeView(node)))
}
