package http

import (
	"net/http"

	"github.com/nextlevelbuilder/relaycat/internal/store"
)

// RulesHandler handles filter rule CRUD endpoints.
type RulesHandler struct {
	rules store.RuleStore
	auth  *Authenticator
}

// NewRulesHandler creates a handler for rule management endpoints.
func NewRulesHandler(rules store.RuleStore, auth *Authenticator) *RulesHandler {
	return &RulesHandler{rules: rules, auth: auth}
}

// RegisterRoutes registers all rule routes on the given mux.
func (h *RulesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/rules", h.auth.Middleware(h.handleList))
	mux.HandleFunc("POST /v1/rules", h.auth.Middleware(h.handleCreate))
	mux.HandleFunc("GET /v1/rules/{id}", h.auth.Middleware(h.handleGet))
	mux.HandleFunc("PATCH /v1/rules/{id}", h.auth.Middleware(h.handleUpdate))
	mux.HandleFunc("DELETE /v1/rules/{id}", h.auth.Middleware(h.handleDelete))
}

func (h *RulesHandler) handleList(w http.ResponseWriter, r *http.Request) {
	rules, err := h.rules.List(r.Context())
	if err != nil {
		writeStoreError(w, "rules.list", err)
		return
	}
	if rules == nil {
		rules = []store.Rule{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": rules})
}

// createRuleRequest mirrors store.Rule with optional priority and active flag.
type createRuleRequest struct {
	Type     string `json:"rule_type"`
	Pattern  string `json:"pattern"`
	Action   string `json:"action"`
	Priority *int   `json:"priority"`
	Active   *bool  `json:"is_active"`
}

func (h *RulesHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRuleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rule := store.Rule{
		Type:     req.Type,
		Pattern:  req.Pattern,
		Action:   req.Action,
		Priority: store.DefaultRulePriority,
		Active:   true,
	}
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}

	if err := store.ValidatePattern(&rule); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.rules.Create(r.Context(), &rule); err != nil {
		writeStoreError(w, "rules.create", err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

func (h *RulesHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "rule")
	if !ok {
		return
	}
	rule, err := h.rules.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, "rules.get", err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (h *RulesHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "rule")
	if !ok {
		return
	}

	var updates map[string]any
	if !decodeJSON(w, r, &updates) {
		return
	}

	cur, err := h.rules.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, "rules.get", err)
		return
	}
	candidate := *cur
	if v, ok := updates["rule_type"].(string); ok {
		candidate.Type = v
	}
	if v, ok := updates["pattern"].(string); ok {
		candidate.Pattern = v
	}
	if err := store.ValidatePattern(&candidate); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.rules.Update(r.Context(), id, updates); err != nil {
		writeStoreError(w, "rules.update", err)
		return
	}

	rule, err := h.rules.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, "rules.get", err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (h *RulesHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "rule")
	if !ok {
		return
	}
	if err := h.rules.Delete(r.Context(), id); err != nil {
		writeStoreError(w, "rules.delete", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
