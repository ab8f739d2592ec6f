package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/nextlevelbuilder/relaycat/internal/store"
)

const (
	defaultUserPageSize = 50
	maxUserPageSize     = 500
)

// UsersHandler handles user listing and ban endpoints.
type UsersHandler struct {
	users store.UserStore
	auth  *Authenticator
}

// NewUsersHandler creates a handler for user endpoints.
func NewUsersHandler(users store.UserStore, auth *Authenticator) *UsersHandler {
	return &UsersHandler{users: users, auth: auth}
}

// RegisterRoutes registers all user routes on the given mux.
func (h *UsersHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/users", h.auth.Middleware(h.handleList))
	mux.HandleFunc("GET /v1/users/{id}", h.auth.Middleware(h.handleGet))
	mux.HandleFunc("POST /v1/users/{id}/ban", h.auth.Middleware(h.handleSetBanned(true)))
	mux.HandleFunc("POST /v1/users/{id}/unban", h.auth.Middleware(h.handleSetBanned(false)))
}

func (h *UsersHandler) handleList(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultUserPageSize)
	if limit <= 0 || limit > maxUserPageSize {
		limit = defaultUserPageSize
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	users, err := h.users.List(r.Context(), limit, offset)
	if err != nil {
		writeStoreError(w, "users.list", err)
		return
	}
	stats, err := h.users.Stats(r.Context())
	if err != nil {
		writeStoreError(w, "users.stats", err)
		return
	}
	if users == nil {
		users = []store.User{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"users":    users,
		"total":    stats.Total,
		"verified": stats.Verified,
		"banned":   stats.Banned,
		"limit":    limit,
		"offset":   offset,
	})
}

func (h *UsersHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "user")
	if !ok {
		return
	}
	u, err := h.users.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, "users.get", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UsersHandler) handleSetBanned(banned bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "user")
		if !ok {
			return
		}
		changed, err := h.users.SetBanned(r.Context(), id, banned)
		if err != nil {
			writeStoreError(w, "users.ban", err)
			return
		}
		slog.Info("users.ban updated via API", "user_id", id, "banned", banned, "changed", changed)
		writeJSON(w, http.StatusOK, map[string]any{
			"id":      id,
			"banned":  banned,
			"changed": changed,
		})
	}
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
