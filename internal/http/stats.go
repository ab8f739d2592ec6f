package http

import (
	"net/http"

	"github.com/nextlevelbuilder/relaycat/internal/store"
)

// StatsHandler serves the dashboard counters.
type StatsHandler struct {
	stores *store.Stores
	auth   *Authenticator
}

// NewStatsHandler creates a handler for the stats endpoint.
func NewStatsHandler(stores *store.Stores, auth *Authenticator) *StatsHandler {
	return &StatsHandler{stores: stores, auth: auth}
}

// RegisterRoutes registers the stats route on the given mux.
func (h *StatsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/stats", h.auth.Middleware(h.handleStats))
}

func (h *StatsHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := h.stores.Users.Stats(ctx)
	if err != nil {
		writeStoreError(w, "stats.users", err)
		return
	}
	rules, err := h.stores.Rules.Count(ctx)
	if err != nil {
		writeStoreError(w, "stats.rules", err)
		return
	}
	routes, err := h.stores.Routes.Count(ctx)
	if err != nil {
		writeStoreError(w, "stats.routes", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{
		"users":          users.Total,
		"verified_users": users.Verified,
		"banned_users":   users.Banned,
		"rules":          rules,
		"routes":         routes,
	})
}
