package http

import (
	"net/http"
	"strconv"

	"github.com/nextlevelbuilder/relaycat/internal/store"
)

// boolSettings must hold a value strconv.ParseBool accepts.
var boolSettings = map[string]bool{
	store.SettingConfirmReply: true,
}

// SettingsHandler handles the key/value settings endpoints.
type SettingsHandler struct {
	settings store.SettingStore
	auth     *Authenticator
}

// NewSettingsHandler creates a handler for settings endpoints.
func NewSettingsHandler(settings store.SettingStore, auth *Authenticator) *SettingsHandler {
	return &SettingsHandler{settings: settings, auth: auth}
}

// RegisterRoutes registers all settings routes on the given mux.
func (h *SettingsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/settings", h.auth.Middleware(h.handleList))
	mux.HandleFunc("GET /v1/settings/{key}", h.auth.Middleware(h.handleGet))
	mux.HandleFunc("PUT /v1/settings/{key}", h.auth.Middleware(h.handlePut))
}

func (h *SettingsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.List(r.Context())
	if err != nil {
		writeStoreError(w, "settings.list", err)
		return
	}
	if settings == nil {
		settings = []store.Setting{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": settings})
}

func (h *SettingsHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	value, err := h.settings.Get(r.Context(), key)
	if err != nil {
		writeStoreError(w, "settings.get", err)
		return
	}
	writeJSON(w, http.StatusOK, store.Setting{Key: key, Value: value})
}

func (h *SettingsHandler) handlePut(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	var body struct {
		Value       string `json:"value"`
		Description string `json:"description"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if boolSettings[key] {
		b, err := strconv.ParseBool(body.Value)
		if err != nil {
			writeError(w, http.StatusBadRequest, key+" must be a boolean")
			return
		}
		body.Value = strconv.FormatBool(b)
	}

	if err := h.settings.Set(r.Context(), key, body.Value, body.Description); err != nil {
		writeStoreError(w, "settings.set", err)
		return
	}
	writeJSON(w, http.StatusOK, store.Setting{Key: key, Value: body.Value, Description: body.Description})
}
